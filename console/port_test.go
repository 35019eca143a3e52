// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package console

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindPort(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyACM1", "ttyACM0", "ttyUSB0"} {
		err := os.WriteFile(filepath.Join(dir, name), nil, 0644)
		if err != nil {
			t.Fatalf("could not create %q: %+v", name, err)
		}
	}

	got, err := findPort([]string{
		filepath.Join(dir, "tty.usbmodem*"),
		filepath.Join(dir, "ttyACM*"),
	})
	if err != nil {
		t.Fatalf("could not find port: %+v", err)
	}
	if want := filepath.Join(dir, "ttyACM0"); got != want {
		t.Fatalf("invalid port: got=%q, want=%q", got, want)
	}
}

func TestFindPortMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := findPort([]string{filepath.Join(dir, "ttyACM*")})
	if !errors.Is(err, ErrNoPort) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrNoPort)
	}
}
