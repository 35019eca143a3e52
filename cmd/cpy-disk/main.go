// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cpy-disk mounts, unmounts and inspects the CIRCUITPY volume
// of an attached board, wrapping pmount/pumount.
//
// Usage: cpy-disk [OPTIONS] mount|umount|status
//
// Example:
//
//	$> cpy-disk mount
//	$> cpy-disk status
//	$> cpy-disk umount
package main // import "github.com/fruitjam/tlv320/cmd/cpy-disk"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fruitjam/tlv320/disk"
)

func main() {
	log.SetPrefix("cpy-disk: ")
	log.SetFlags(0)

	label := flag.String("l", disk.Label, "volume label to operate on")

	flag.Usage = func() {
		fmt.Printf(`cpy-disk mounts, unmounts and inspects the CIRCUITPY volume of an
attached board, wrapping pmount/pumount.

Usage: cpy-disk [OPTIONS] mount|umount|status

Example:

 $> cpy-disk mount
 $> cpy-disk status
 $> cpy-disk umount

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing mount|umount|status command")
	}

	err := run(os.Stdout, *label, flag.Arg(0))
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(w io.Writer, label, cmd string) error {
	switch cmd {
	case "mount":
		return mount(w, label)
	case "umount":
		return umount(w, label)
	case "status":
		return status(w, label)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func mount(w io.Writer, label string) error {
	if vol, err := disk.Find(label); err == nil {
		fmt.Fprintf(w, "%q is already mounted on %s\n", label, vol.Mount)
		return nil
	}

	vol, err := disk.Mount(label)
	if err != nil {
		return fmt.Errorf("could not mount %q: %w", label, err)
	}
	fmt.Fprintf(w, "mounted %q on %s\n", label, vol.Mount)
	return nil
}

func umount(w io.Writer, label string) error {
	if _, err := disk.Find(label); errors.Is(err, disk.ErrNotFound) {
		fmt.Fprintf(w, "%q is not mounted\n", label)
		return nil
	}

	err := disk.Umount(label)
	if err != nil {
		return fmt.Errorf("could not umount %q: %w", label, err)
	}
	fmt.Fprintf(w, "unmounted %q\n", label)
	return nil
}

func status(w io.Writer, label string) error {
	vol, err := disk.Find(label)
	if err != nil {
		if errors.Is(err, disk.ErrNotFound) {
			fmt.Fprintf(w, "%q is not mounted\n", label)
			return nil
		}
		return err
	}

	fmt.Fprintf(w, "label:  %s\n", vol.Label)
	if vol.Device != "" {
		fmt.Fprintf(w, "device: %s\n", vol.Device)
	}
	fmt.Fprintf(w, "mount:  %s\n", vol.Mount)

	total, free, err := disk.Usage(vol.Mount)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "size:   %d bytes (%d free)\n", total, free)
	return nil
}
