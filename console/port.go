// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package console

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// ErrNoPort is returned when no board serial port can be found.
var ErrNoPort = errors.New("console: no serial port found")

// portGlobs lists the device names a CircuitPython board shows up
// under: CDC-ACM on Linux, usbmodem on macOS.
var portGlobs = []string{
	"/dev/ttyACM*",
	"/dev/tty.usbmodem*",
	"/dev/cu.usbmodem*",
}

// FindPort returns the first serial port matching the usual board
// device names.
func FindPort() (string, error) {
	return findPort(portGlobs)
}

func findPort(globs []string) (string, error) {
	for _, pattern := range globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return "", fmt.Errorf("console: could not glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0], nil
	}
	return "", ErrNoPort
}
