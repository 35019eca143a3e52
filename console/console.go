// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package console opens an interactive terminal on the serial port of
// a CircuitPython board, at 115200 baud, 8N1, no flow control.
package console // import "github.com/fruitjam/tlv320/console"

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/peterh/liner"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// escape is the key that closes the raw session (Ctrl-]).
const escape = 0x1d

// Console is a serial terminal session.
type Console struct {
	port *os.File
	name string

	msg  *log.Logger
	logw io.Writer // optional session log
	hist string    // history file for line mode
}

// Option configures a Console.
type Option func(*Console)

// WithLog copies everything the board sends to w.
func WithLog(w io.Writer) Option {
	return func(con *Console) {
		con.logw = w
	}
}

// WithHistory sets the history file of the line-edited mode.
func WithHistory(fname string) Option {
	return func(con *Console) {
		con.hist = fname
	}
}

// Open opens the given serial port, or the first detected board port
// when name is empty, and configures it raw at 115200 8N1.
func Open(name string, opts ...Option) (*Console, error) {
	if name == "" {
		var err error
		name, err = FindPort()
		if err != nil {
			return nil, err
		}
	}

	port, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("console: could not open %q: %w", name, err)
	}

	err = configure(int(port.Fd()))
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("console: could not configure %q: %w", name, err)
	}

	con := &Console{
		port: port,
		name: name,
		msg:  log.New(os.Stdout, "", 0),
	}
	for _, opt := range opts {
		opt(con)
	}
	return con, nil
}

// Name returns the device name of the session's port.
func (con *Console) Name() string { return con.name }

// Close closes the serial port.
func (con *Console) Close() error {
	return con.port.Close()
}

// configure puts the port line discipline in raw mode, 115200 8N1 with
// no hardware flow control.
func configure(fd int) error {
	tio, err := unix.IoctlGetTermios(fd, ioctlGets)
	if err != nil {
		return fmt.Errorf("could not get termios: %w", err)
	}

	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	tio.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0
	setSpeed(tio)

	err = unix.IoctlSetTermios(fd, ioctlSets, tio)
	if err != nil {
		return fmt.Errorf("could not set termios: %w", err)
	}
	return nil
}

// rawStdin puts the controlling terminal in raw mode so single keys
// reach the board, and returns the function restoring it.
func rawStdin() (func(), error) {
	fd := int(os.Stdin.Fd())
	old, err := unix.IoctlGetTermios(fd, ioctlGets)
	if err != nil {
		return nil, fmt.Errorf("console: could not get stdin termios: %w", err)
	}

	tio := *old
	tio.Iflag &^= unix.ICRNL | unix.IXON
	tio.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0

	err = unix.IoctlSetTermios(fd, ioctlSets, &tio)
	if err != nil {
		return nil, fmt.Errorf("console: could not set stdin termios: %w", err)
	}
	return func() {
		_ = unix.IoctlSetTermios(fd, ioctlSets, old)
	}, nil
}

// Run pumps bytes between the terminal and the board until the user
// hits Ctrl-] or the port goes away.
func (con *Console) Run(ctx context.Context) error {
	restore, err := rawStdin()
	if err != nil {
		return err
	}
	defer restore()

	con.msg.Printf("connected to %s (115200 8N1). Ctrl-] to leave.\r", con.name)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		// board -> terminal (and session log)
		out := io.Writer(os.Stdout)
		if con.logw != nil {
			out = io.MultiWriter(os.Stdout, con.logw)
		}
		_, err := io.Copy(out, con.port)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("console: could not read from %q: %w", con.name, err)
		}
		return nil
	})
	grp.Go(func() error {
		// terminal -> board
		buf := make([]byte, 1)
		for {
			_, err := os.Stdin.Read(buf)
			if err != nil {
				return fmt.Errorf("console: could not read stdin: %w", err)
			}
			if buf[0] == escape {
				cancel()
				// unblock the port reader.
				_ = con.port.Close()
				return nil
			}
			_, err = con.port.Write(buf)
			if err != nil {
				return fmt.Errorf("console: could not write to %q: %w", con.name, err)
			}
		}
	})

	err = grp.Wait()
	con.msg.Printf("disconnected from %s.", con.name)
	return err
}

// RunLine is the line-edited mode: local editing with history, lines
// sent to the board REPL with CR endings. An empty Ctrl-D leaves the
// session; Ctrl-C and Ctrl-D are otherwise forwarded to the board.
func (con *Console) RunLine(ctx context.Context) error {
	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)

	if con.hist != "" {
		if f, err := os.Open(con.hist); err == nil {
			_, _ = term.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(con.hist)
			if err != nil {
				con.msg.Printf("could not save history: %+v", err)
				return
			}
			defer f.Close()
			_, _ = term.WriteHistory(f)
		}()
	}

	go func() {
		out := io.Writer(os.Stdout)
		if con.logw != nil {
			out = io.MultiWriter(os.Stdout, con.logw)
		}
		_, _ = io.Copy(out, con.port)
	}()

	con.msg.Printf("connected to %s (line mode). Ctrl-D to leave.", con.name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := term.Prompt("")
		switch err {
		case nil:
			if line != "" {
				term.AppendHistory(line)
			}
			_, err = con.port.Write([]byte(line + "\r"))
			if err != nil {
				return fmt.Errorf("console: could not write to %q: %w", con.name, err)
			}
		case liner.ErrPromptAborted:
			// forward the Ctrl-C, the REPL knows what to do.
			_, err = con.port.Write([]byte{0x03})
			if err != nil {
				return fmt.Errorf("console: could not write to %q: %w", con.name, err)
			}
		case io.EOF:
			con.msg.Printf("disconnected from %s.", con.name)
			return nil
		default:
			return fmt.Errorf("console: could not read line: %w", err)
		}
	}
}
