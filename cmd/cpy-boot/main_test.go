// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	for _, tc := range []struct {
		name string
		cmds func() []*exec.Cmd
		stop bool
	}{
		{
			name: "simple",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command("true"),
					exec.Command("true"),
				}
			},
		},
		{
			name: "simple-stop",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command("sleep", "30"),
					exec.Command("sleep", "30"),
				}
			},
			stop: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()

			stop := make(chan os.Signal, 1)
			if tc.stop {
				go func() {
					time.Sleep(1 * time.Second)
					stop <- os.Interrupt
				}()
			}
			cmds := tc.cmds()
			err := run(false, 1*time.Second, cmds, dir, stop)
			if err != nil {
				t.Fatalf("could not run processes: %+v", err)
			}

			for _, cmd := range cmds {
				name := filepath.Base(cmd.Path)
				if _, err := os.Stat(filepath.Join(dir, name+".log")); err != nil {
					t.Fatalf("missing log file for %q: %+v", name, err)
				}
			}
		})
	}
}
