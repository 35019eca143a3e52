// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disk locates, mounts and unmounts the removable volume a
// CircuitPython board exposes over USB mass storage.
package disk // import "github.com/fruitjam/tlv320/disk"

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Label is the volume label of a CircuitPython board.
const Label = "CIRCUITPY"

// ErrNotFound is returned when no volume with the wanted label is
// mounted.
var ErrNotFound = errors.New("disk: volume not found")

// Volume describes a mounted removable volume.
type Volume struct {
	Label  string
	Device string // block device, when known
	Mount  string // mount point
}

// Find returns the mounted volume with the given label. It scans the
// mount table, then falls back to probing the well-known mount points
// (/media, /run/media/$USER, /Volumes).
func Find(label string) (Volume, error) {
	f, err := os.Open("/proc/mounts")
	if err == nil {
		defer f.Close()
		vol, err := findIn(f, label)
		if err == nil {
			return vol, nil
		}
	}

	for _, dir := range candidates(label) {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			continue
		}
		return Volume{Label: label, Mount: dir}, nil
	}

	return Volume{}, fmt.Errorf("disk: no %q volume: %w", label, ErrNotFound)
}

// findIn scans an fstab-formatted mount table for a mount point whose
// base name is the wanted label.
func findIn(r io.Reader, label string) (Volume, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		mnt := unescape(fields[1])
		if filepath.Base(mnt) != label {
			continue
		}
		return Volume{
			Label:  label,
			Device: fields[0],
			Mount:  mnt,
		}, nil
	}
	if err := sc.Err(); err != nil {
		return Volume{}, fmt.Errorf("disk: could not scan mount table: %w", err)
	}
	return Volume{}, fmt.Errorf("disk: no %q mount: %w", label, ErrNotFound)
}

// candidates returns the usual mount points for a volume label.
func candidates(label string) []string {
	dirs := []string{
		filepath.Join("/media", label),
	}
	if usr := os.Getenv("USER"); usr != "" {
		dirs = append(dirs, filepath.Join("/run/media", usr, label))
	}
	dirs = append(dirs, filepath.Join("/Volumes", label))
	return dirs
}

// unescape decodes the octal escapes (\040 for space, ...) of the
// mount-table format.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			v, err := strconv.ParseUint(s[i+1:i+4], 8, 8)
			if err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Usage returns the total and free sizes of the filesystem holding
// dir, in bytes.
func Usage(dir string) (total, free uint64, err error) {
	var st unix.Statfs_t
	err = unix.Statfs(dir, &st)
	if err != nil {
		return 0, 0, fmt.Errorf("disk: could not statfs %q: %w", dir, err)
	}
	bsize := uint64(st.Bsize)
	return st.Blocks * bsize, st.Bavail * bsize, nil
}

// Mount mounts the volume with the given label using pmount. If the
// volume is already mounted, its current mount point is returned with
// no error.
func Mount(label string) (Volume, error) {
	vol, err := Find(label)
	if err == nil {
		return vol, nil
	}

	dev := filepath.Join("/dev/disk/by-label", label)
	if _, err := os.Stat(dev); err != nil {
		return Volume{}, fmt.Errorf("disk: no %q disk attached: %w", label, ErrNotFound)
	}

	cmd := exec.Command("pmount", dev, label)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	if err != nil {
		return Volume{}, fmt.Errorf("disk: could not pmount %q: %w", dev, err)
	}

	return Find(label)
}

// Umount unmounts the volume with the given label using pumount. An
// already unmounted volume is not an error.
func Umount(label string) error {
	vol, err := Find(label)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	cmd := exec.Command("pumount", vol.Mount)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	if err != nil {
		return fmt.Errorf("disk: could not pumount %q: %w", vol.Mount, err)
	}
	return nil
}
