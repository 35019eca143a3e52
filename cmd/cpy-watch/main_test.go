// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const manifest = `
name: jam-synth
profiles:
  default:
    include: [code.py]
`

func TestServer(t *testing.T) {
	root := t.TempDir()
	for fname, data := range map[string]string{
		"bundle.yaml": manifest,
		"code.py":     "print('hi')",
	} {
		err := os.WriteFile(filepath.Join(root, fname), []byte(data), 0644)
		if err != nil {
			t.Fatalf("could not write %q: %+v", fname, err)
		}
	}

	srv, err := newServer("127.0.0.1:0", root, "bundle.yaml", "default", time.Hour)
	if err != nil {
		t.Fatalf("could not create server: %+v", err)
	}
	go srv.serve()

	conn, err := net.Dial("tcp", srv.ctl.Addr().String())
	if err != nil {
		t.Fatalf("could not dial server: %+v", err)
	}
	defer conn.Close()

	var (
		enc = json.NewEncoder(conn)
		dec = json.NewDecoder(conn)
	)

	send := func(cmd string) Reply {
		t.Helper()
		err := enc.Encode(Request{Name: cmd})
		if err != nil {
			t.Fatalf("could not send %q: %+v", cmd, err)
		}
		var rep Reply
		err = dec.Decode(&rep)
		if err != nil {
			t.Fatalf("could not read reply to %q: %+v", cmd, err)
		}
		return rep
	}

	// no CIRCUITPY volume mounted in the test environment: the sync
	// stages the bundle and stops there, without error.
	if got, want := send("sync"), "ok"; got.Msg != want {
		t.Fatalf("invalid sync reply: got=%q, want=%q (err=%q)", got.Msg, want, got.Err)
	}
	if _, err := os.Stat(filepath.Join(root, "build", "default", "code.py")); err != nil {
		t.Fatalf("bundle not staged: %+v", err)
	}

	rep := send("status")
	var stat status
	err = json.Unmarshal([]byte(rep.Msg), &stat)
	if err != nil {
		t.Fatalf("could not parse status %q: %+v", rep.Msg, err)
	}
	if got, want := stat.Syncs, 1; got != want {
		t.Fatalf("invalid sync count: got=%d, want=%d", got, want)
	}
	if got, want := stat.Fails, 0; got != want {
		t.Fatalf("invalid fail count: got=%d, want=%d", got, want)
	}

	if got := send("bogus"); got.Err == "" {
		t.Fatalf("expected an error for an unknown command")
	}

	if got, want := send("quit"), "bye"; got.Msg != want {
		t.Fatalf("invalid quit reply: got=%q, want=%q", got.Msg, want)
	}
}

func TestIgnored(t *testing.T) {
	srv := &server{root: "/w"}
	for _, tc := range []struct {
		path string
		want bool
	}{
		{"/w/code.py", false},
		{"/w/lib/synth.py", false},
		{"/w/build/default/code.py", true},
		{"/w/.git/HEAD", true},
		{"/w/__pycache__/code.cpython-39.pyc", true},
		{"/w/code.py~", true},
		{"/w/.code.py.swp", true},
	} {
		t.Run(strings.TrimPrefix(tc.path, "/w/"), func(t *testing.T) {
			if got, want := srv.ignored(tc.path), tc.want; got != want {
				t.Fatalf("invalid ignore for %q: got=%v, want=%v", tc.path, got, want)
			}
		})
	}
}
