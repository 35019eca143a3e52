// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cpy-bundle stages a deployable CircuitPython bundle under
// the build directory, from the project's bundle.yaml manifest.
//
// Usage: cpy-bundle [OPTIONS]
//
// Example:
//
//	$> cpy-bundle -p tlv-test
//	$> cpy-bundle -zip
//	$> cpy-bundle -clean
package main // import "github.com/fruitjam/tlv320/cmd/cpy-bundle"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fruitjam/tlv320/bundle"
)

func main() {
	log.SetPrefix("cpy-bundle: ")
	log.SetFlags(0)

	var (
		root     = flag.String("root", ".", "project root directory")
		manifest = flag.String("m", "bundle.yaml", "bundle manifest, relative to the project root")
		profile  = flag.String("p", bundle.DefaultProfile, "profile to stage")
		doZip    = flag.Bool("zip", false, "archive the staged bundle to a zip file")
		doClean  = flag.Bool("clean", false, "remove the build directory and exit")
		mpyCross = flag.String("mpy-cross", "mpy-cross", "mpy-cross binary to use")
	)

	flag.Usage = func() {
		fmt.Printf(`cpy-bundle stages a deployable CircuitPython bundle under the build
directory, from the project's bundle.yaml manifest.

Usage: cpy-bundle [OPTIONS]

Example:

 $> cpy-bundle -p tlv-test
 $> cpy-bundle -zip
 $> cpy-bundle -clean

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	err := run(*root, *manifest, *profile, *mpyCross, *doZip, *doClean)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(root, manifest, profile, mpyCross string, doZip, doClean bool) error {
	b, err := newBuilder(root, manifest, mpyCross)
	if err != nil {
		return err
	}

	if doClean {
		return b.Clean()
	}

	meta, err := b.Build(context.Background(), profile)
	if err != nil {
		return fmt.Errorf("could not stage profile %q: %w", profile, err)
	}
	log.Printf("bundle %s: %d files, %d bytes", meta.ID, len(meta.Files), meta.Bytes)

	if doZip {
		oname, err := b.Archive(profile)
		if err != nil {
			return fmt.Errorf("could not archive profile %q: %w", profile, err)
		}
		log.Printf("archived to %s", oname)
	}
	return nil
}

func newBuilder(root, manifest, mpyCross string) (*bundle.Builder, error) {
	man, err := bundle.Load(filepath.Join(root, manifest))
	if err != nil {
		return nil, fmt.Errorf("could not load manifest: %w", err)
	}
	return bundle.NewBuilder(root, man,
		bundle.WithMpyCross(mpyCross),
	), nil
}
