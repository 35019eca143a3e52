// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cpy-sync stages a bundle and mirrors it onto the mounted
// CIRCUITPY volume. With no volume mounted it is a no-op, so it can
// run unconditionally from editor hooks and watchers.
//
// Usage: cpy-sync [OPTIONS]
//
// Example:
//
//	$> cpy-sync
//	$> cpy-sync -p tlv-test
//	$> cpy-sync -n
//	$> cpy-sync -db labjam
package main // import "github.com/fruitjam/tlv320/cmd/cpy-sync"

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"

	"github.com/fruitjam/tlv320/bundle"
	"github.com/fruitjam/tlv320/disk"
	"github.com/fruitjam/tlv320/labdb"
	"github.com/fruitjam/tlv320/mirror"
)

func main() {
	log.SetPrefix("cpy-sync: ")
	log.SetFlags(0)

	var cfg config
	flag.StringVar(&cfg.root, "root", ".", "project root directory")
	flag.StringVar(&cfg.manifest, "m", "bundle.yaml", "bundle manifest, relative to the project root")
	flag.StringVar(&cfg.profile, "p", bundle.DefaultProfile, "profile to sync")
	flag.StringVar(&cfg.dst, "dst", "", "sync onto this directory instead of the detected volume")
	flag.StringVar(&cfg.dbname, "db", "", "record the deploy in this lab database")
	flag.BoolVar(&cfg.noBundle, "no-bundle", false, "sync the staged bundle as-is, do not rebuild")
	flag.BoolVar(&cfg.strict, "strict", false, "fail when no volume is mounted")
	flag.BoolVar(&cfg.dryRun, "n", false, "print the sync plan and exit")
	flag.BoolVar(&cfg.checksum, "checksum", false, "compare file contents instead of size+mtime")

	flag.Usage = func() {
		fmt.Printf(`cpy-sync stages a bundle and mirrors it onto the mounted CIRCUITPY
volume. With no volume mounted it is a no-op.

Usage: cpy-sync [OPTIONS]

Example:

 $> cpy-sync
 $> cpy-sync -p tlv-test
 $> cpy-sync -n
 $> cpy-sync -db labjam

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	err := run(cfg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type config struct {
	root     string
	manifest string
	profile  string
	dst      string
	dbname   string
	noBundle bool
	strict   bool
	dryRun   bool
	checksum bool
}

func run(cfg config) error {
	man, err := bundle.Load(filepath.Join(cfg.root, cfg.manifest))
	if err != nil {
		return fmt.Errorf("could not load manifest: %w", err)
	}
	b := bundle.NewBuilder(cfg.root, man)

	var meta *bundle.Meta
	switch {
	case cfg.noBundle:
		meta, err = readMeta(b.Dir(cfg.profile))
		if err != nil {
			return fmt.Errorf("no staged bundle for profile %q (run cpy-bundle first): %w",
				cfg.profile, err,
			)
		}
	default:
		meta, err = b.Build(context.Background(), cfg.profile)
		if err != nil {
			return fmt.Errorf("could not stage profile %q: %w", cfg.profile, err)
		}
	}

	dst := cfg.dst
	if dst == "" {
		vol, err := disk.Find(man.Label)
		if err != nil {
			if errors.Is(err, disk.ErrNotFound) && !cfg.strict {
				log.Printf("no %q volume mounted. nothing to do.", man.Label)
				return nil
			}
			return err
		}
		dst = vol.Mount
	}

	plan, err := mirror.New(b.Dir(cfg.profile), dst,
		mirror.WithChecksum(cfg.checksum),
	)
	if err != nil {
		return fmt.Errorf("could not plan sync to %q: %w", dst, err)
	}

	if cfg.dryRun {
		plan.DryRun(os.Stdout)
		return nil
	}

	err = plan.Apply(context.Background())
	if err != nil {
		return fmt.Errorf("could not sync to %q: %w", dst, err)
	}
	log.Printf("synced %q to %s: %d copied (%d bytes), %d deleted, %d up to date",
		cfg.profile, dst,
		len(plan.Copies), plan.Bytes, len(plan.Deletes), len(plan.Skips),
	)

	if cfg.dbname != "" {
		err = record(cfg, meta, plan)
		if err != nil {
			return fmt.Errorf("could not record deploy: %w", err)
		}
	}
	return nil
}

func readMeta(dir string) (*bundle.Meta, error) {
	raw, err := os.ReadFile(filepath.Join(dir, bundle.MetaFile))
	if err != nil {
		return nil, err
	}
	var meta bundle.Meta
	err = json.Unmarshal(raw, &meta)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", bundle.MetaFile, err)
	}
	return &meta, nil
}

func record(cfg config, meta *bundle.Meta, plan *mirror.Plan) error {
	db, err := labdb.Open(cfg.dbname)
	if err != nil {
		return err
	}
	defer db.Close()

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	machine, err := machineid.ID()
	if err != nil {
		machine = "unknown"
	}

	d := labdb.Deploy{
		ID:      uuid.New().String(),
		Profile: cfg.profile,
		Bundle:  meta.ID,
		Files:   len(meta.Files),
		Bytes:   meta.Bytes,
		Host:    host,
		Machine: machine,
		Created: meta.Created,
	}
	err = db.RecordDeploy(context.Background(), d)
	if err != nil {
		return err
	}
	log.Printf("recorded deploy %s in %q", d.ID, cfg.dbname)
	return nil
}
