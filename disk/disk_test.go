// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disk

import (
	"errors"
	"strings"
	"testing"
)

const mounts = `proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
/dev/nvme0n1p2 / ext4 rw,relatime 0 0
tmpfs /run tmpfs rw,nosuid,nodev 0 0
/dev/sda1 /media/CIRCUITPY vfat rw,nosuid,nodev,relatime,uid=1000 0 0
/dev/sdb1 /media/usb\040stick vfat rw 0 0
`

func TestFindIn(t *testing.T) {
	vol, err := findIn(strings.NewReader(mounts), "CIRCUITPY")
	if err != nil {
		t.Fatalf("could not find volume: %+v", err)
	}
	if got, want := vol.Mount, "/media/CIRCUITPY"; got != want {
		t.Fatalf("invalid mount point: got=%q, want=%q", got, want)
	}
	if got, want := vol.Device, "/dev/sda1"; got != want {
		t.Fatalf("invalid device: got=%q, want=%q", got, want)
	}
}

func TestFindInEscaped(t *testing.T) {
	vol, err := findIn(strings.NewReader(mounts), "usb stick")
	if err != nil {
		t.Fatalf("could not find volume: %+v", err)
	}
	if got, want := vol.Mount, "/media/usb stick"; got != want {
		t.Fatalf("invalid mount point: got=%q, want=%q", got, want)
	}
}

func TestFindInMissing(t *testing.T) {
	_, err := findIn(strings.NewReader(mounts), "NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrNotFound)
	}
}

func TestCandidates(t *testing.T) {
	t.Setenv("USER", "jam")
	got := candidates("CIRCUITPY")
	want := []string{
		"/media/CIRCUITPY",
		"/run/media/jam/CIRCUITPY",
		"/Volumes/CIRCUITPY",
	}
	if len(got) != len(want) {
		t.Fatalf("invalid candidates: got=%v, want=%v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("invalid candidate %d: got=%q, want=%q", i, got[i], want[i])
		}
	}
}

func TestUnescape(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{in: "/media/CIRCUITPY", want: "/media/CIRCUITPY"},
		{in: `/media/usb\040stick`, want: "/media/usb stick"},
		{in: `/a\011b`, want: "/a\tb"},
		{in: `trailing\`, want: `trailing\`},
	} {
		t.Run(tc.in, func(t *testing.T) {
			if got, want := unescape(tc.in), tc.want; got != want {
				t.Fatalf("invalid unescape: got=%q, want=%q", got, want)
			}
		})
	}
}
