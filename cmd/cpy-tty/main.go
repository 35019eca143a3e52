// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cpy-tty opens a serial terminal on the CircuitPython board
// (115200 baud, 8N1, no flow control). The raw mode pumps every key to
// the board and leaves on Ctrl-]; the -line mode adds local line
// editing with history for REPL work.
//
// Usage: cpy-tty [OPTIONS]
//
// Example:
//
//	$> cpy-tty
//	$> cpy-tty -line
//	$> cpy-tty -p /dev/ttyACM1 -log session.log
package main // import "github.com/fruitjam/tlv320/cmd/cpy-tty"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fruitjam/tlv320/console"
)

func main() {
	log.SetPrefix("cpy-tty: ")
	log.SetFlags(0)

	var (
		port  = flag.String("p", "", "serial port (default: first detected board port)")
		line  = flag.Bool("line", false, "line-edited mode with history")
		logF  = flag.String("log", "", "copy the session to this file")
		histF = flag.String("hist", defaultHistory(), "history file for -line mode")
	)

	flag.Usage = func() {
		fmt.Printf(`cpy-tty opens a serial terminal on the CircuitPython board
(115200 baud, 8N1, no flow control).

Usage: cpy-tty [OPTIONS]

Example:

 $> cpy-tty
 $> cpy-tty -line
 $> cpy-tty -p /dev/ttyACM1 -log session.log

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	err := run(*port, *logF, *histF, *line)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func defaultHistory() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ".cpy-tty.history")
}

func run(port, logF, histF string, line bool) error {
	var opts []console.Option
	if logF != "" {
		f, err := os.Create(logF)
		if err != nil {
			return fmt.Errorf("could not create session log %q: %w", logF, err)
		}
		defer f.Close()
		opts = append(opts, console.WithLog(f))
	}
	if histF != "" {
		opts = append(opts, console.WithHistory(histF))
	}

	con, err := console.Open(port, opts...)
	if err != nil {
		return fmt.Errorf("could not open console: %w", err)
	}
	defer con.Close()

	ctx := context.Background()
	if line {
		err = con.RunLine(ctx)
	} else {
		err = con.Run(ctx)
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("console session failed: %w", err)
	}
	return nil
}
