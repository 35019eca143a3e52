// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cpy-watch watches a CircuitPython project tree and re-stages
// and re-syncs the bundle onto the CIRCUITPY volume whenever a source
// file changes. A small JSON/TCP control socket triggers syncs and
// reports status; repeated sync failures raise an SMTP alert.
//
// Usage: cpy-watch [OPTIONS]
//
// Example:
//
//	$> cpy-watch -root ~/src/jam-synth -p default
//	$> echo '{"cmd": "status"}' | nc localhost 8766
package main // import "github.com/fruitjam/tlv320/cmd/cpy-watch"

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	mail "gopkg.in/gomail.v2"

	"github.com/fruitjam/tlv320/bundle"
	"github.com/fruitjam/tlv320/disk"
	"github.com/fruitjam/tlv320/mirror"
)

func main() {
	log.SetPrefix("cpy-watch: ")
	log.SetFlags(0)

	var (
		addr     = flag.String("addr", ":8766", "[ip]:port of the control socket")
		root     = flag.String("root", ".", "project root directory to watch")
		manifest = flag.String("m", "bundle.yaml", "bundle manifest, relative to the project root")
		profile  = flag.String("p", bundle.DefaultProfile, "profile to sync")
		debounce = flag.Duration("debounce", 500*time.Millisecond, "quiet period after a change before syncing")
	)

	flag.Usage = func() {
		fmt.Printf(`cpy-watch watches a CircuitPython project tree and re-syncs the bundle
onto the CIRCUITPY volume whenever a source file changes.

Usage: cpy-watch [OPTIONS]

Example:

 $> cpy-watch -root ~/src/jam-synth -p default
 $> echo '{"cmd": "status"}' | nc localhost 8766

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	err := run(*addr, *root, *manifest, *profile, *debounce)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(addr, root, manifest, profile string, debounce time.Duration) error {
	srv, err := newServer(addr, root, manifest, profile, debounce)
	if err != nil {
		return fmt.Errorf("could not create cpy-watch server: %w", err)
	}
	log.Printf("running cpy-watch server on %q, watching %q...", addr, root)
	return srv.serve()
}

// Request is a control-socket command.
type Request struct {
	Name string `json:"cmd"` // sync | status | quit
}

// Reply is the answer to a control-socket command.
type Reply struct {
	Msg string `json:"msg"`
	Err string `json:"err,omitempty"`
}

type status struct {
	Syncs    int       `json:"syncs"`
	Fails    int       `json:"fails"` // consecutive failures
	Last     time.Time `json:"last,omitempty"`
	LastErr  string    `json:"last-err,omitempty"`
	Watching bool      `json:"watching"`
}

type server struct {
	ctl net.Listener
	msg *log.Logger

	root     string
	manifest string
	profile  string
	debounce time.Duration

	syncc chan chan error // sync requests, replied to when done
	quit  chan int

	mu     sync.Mutex
	stat   status
	alerts int
}

func newServer(addr, root, manifest, profile string, debounce time.Duration) (*server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not listen on %q: %w", addr, err)
	}
	return &server{
		ctl: ctl,
		msg: log.New(os.Stdout, "cpy-watch: ", 0),

		root:     root,
		manifest: manifest,
		profile:  profile,
		debounce: debounce,

		syncc: make(chan chan error),
		quit:  make(chan int),
	}, nil
}

func (srv *server) serve() error {
	defer srv.ctl.Close()

	go srv.watch()
	go srv.runner()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			select {
			case <-srv.quit:
				return nil
			default:
				srv.msg.Printf("could not accept connection: %+v", err)
				continue
			}
		}
		go srv.handle(conn)
	}
}

func (srv *server) handle(conn net.Conn) {
	defer conn.Close()

	for {
		var (
			req Request
			err = json.NewDecoder(conn).Decode(&req)
		)
		if err != nil {
			return
		}
		switch req.Name {
		case "sync":
			done := make(chan error)
			srv.syncc <- done
			err := <-done
			if err != nil {
				_ = json.NewEncoder(conn).Encode(Reply{Err: err.Error()})
				continue
			}
			_ = json.NewEncoder(conn).Encode(Reply{Msg: "ok"})

		case "status":
			srv.mu.Lock()
			stat := srv.stat
			srv.mu.Unlock()
			raw, _ := json.Marshal(stat)
			_ = json.NewEncoder(conn).Encode(Reply{Msg: string(raw)})

		case "quit":
			_ = json.NewEncoder(conn).Encode(Reply{Msg: "bye"})
			close(srv.quit)
			_ = srv.ctl.Close()
			return

		default:
			srv.msg.Printf("unknown command %q", req.Name)
			_ = json.NewEncoder(conn).Encode(Reply{Err: "unknown command"})
		}
	}
}

// watch feeds debounced tree changes into the sync runner.
func (srv *server) watch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		srv.msg.Printf("could not create watcher: %+v", err)
		return
	}
	defer w.Close()

	err = srv.addDirs(w)
	if err != nil {
		srv.msg.Printf("could not watch %q: %+v", srv.root, err)
		return
	}
	srv.mu.Lock()
	srv.stat.Watching = true
	srv.mu.Unlock()

	var (
		timer = time.NewTimer(srv.debounce)
		armed = false
	)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-srv.quit:
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if srv.ignored(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if !armed {
				timer.Reset(srv.debounce)
				armed = true
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			srv.msg.Printf("watch error: %+v", err)

		case <-timer.C:
			armed = false
			done := make(chan error)
			select {
			case srv.syncc <- done:
				<-done
			case <-srv.quit:
				return
			}
		}
	}
}

func (srv *server) addDirs(w *fsnotify.Watcher) error {
	return filepath.WalkDir(srv.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if srv.ignored(path) && path != srv.root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// ignored filters out the build tree, VCS and editor droppings.
func (srv *server) ignored(path string) bool {
	rel, err := filepath.Rel(srv.root, path)
	if err != nil {
		return true
	}
	for _, elem := range strings.Split(filepath.ToSlash(rel), "/") {
		switch {
		case elem == "build", elem == ".git", elem == "__pycache__":
			return true
		case strings.HasSuffix(elem, "~"), strings.HasSuffix(elem, ".swp"):
			return true
		}
	}
	return false
}

// runner serializes the bundle+sync runs.
func (srv *server) runner() {
	for {
		select {
		case <-srv.quit:
			return
		case done := <-srv.syncc:
			err := srv.sync()
			srv.account(err)
			done <- err
		}
	}
}

func (srv *server) sync() error {
	man, err := bundle.Load(filepath.Join(srv.root, srv.manifest))
	if err != nil {
		return fmt.Errorf("could not load manifest: %w", err)
	}
	b := bundle.NewBuilder(srv.root, man, bundle.WithLogger(srv.msg))

	_, err = b.Build(context.Background(), srv.profile)
	if err != nil {
		return fmt.Errorf("could not stage profile %q: %w", srv.profile, err)
	}

	vol, err := disk.Find(man.Label)
	if err != nil {
		if errors.Is(err, disk.ErrNotFound) {
			srv.msg.Printf("no %q volume mounted. waiting for the next change.", man.Label)
			return nil
		}
		return err
	}

	plan, err := mirror.New(b.Dir(srv.profile), vol.Mount)
	if err != nil {
		return fmt.Errorf("could not plan sync to %q: %w", vol.Mount, err)
	}
	err = plan.Apply(context.Background())
	if err != nil {
		return fmt.Errorf("could not sync to %q: %w", vol.Mount, err)
	}
	srv.msg.Printf("synced %q to %s: %d copied, %d deleted",
		srv.profile, vol.Mount, len(plan.Copies), len(plan.Deletes),
	)
	return nil
}

// maxFails consecutive sync failures raise an alert.
const (
	maxFails  = 3
	maxAlerts = 5
)

func (srv *server) account(err error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.stat.Last = time.Now()
	switch err {
	case nil:
		srv.stat.Syncs++
		srv.stat.Fails = 0
		srv.stat.LastErr = ""
		srv.alerts = 0
	default:
		srv.stat.Fails++
		srv.stat.LastErr = err.Error()
		srv.msg.Printf("sync failed (%d in a row): %+v", srv.stat.Fails, err)
		if srv.stat.Fails >= maxFails && srv.alerts < maxAlerts {
			srv.alerts++
			srv.alertMail(err)
		}
	}
}

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = strings.Split(os.Getenv("MAIL_TGTS"), ",")
)

func (srv *server) alertMail(cause error) {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 {
		srv.msg.Printf("could not send mail alert: missing credentials")
		return
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[cpy-watch] sync alert: %q", srv.profile))
	msg.SetBody("text/plain", fmt.Sprintf("profile: %q\nroot: %q\nerror: %v",
		srv.profile, srv.root, cause,
	))

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err := dial.DialAndSend(msg)
	if err != nil {
		srv.msg.Printf("could not send mail alert: %+v", err)
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
