// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mirror one-way synchronizes a staged bundle onto a mounted
// CIRCUITPY volume: changed files are copied, stale files are removed,
// the volume's own metadata is left alone.
package mirror // import "github.com/fruitjam/tlv320/mirror"

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// FAT stores timestamps with a 2 s granularity: files whose
// modification times differ by no more than this are considered
// unchanged.
const mtimeTolerance = 2 // seconds

// protected lists volume entries that are never deleted: CircuitPython
// and OS housekeeping files the board or the host recreates anyway.
var protected = map[string]bool{
	"boot_out.txt":              true,
	".metadata_never_index":     true,
	".fseventsd":                true,
	".Trashes":                  true,
	"System Volume Information": true,
}

// Plan lists the actions that make dst mirror src.
type Plan struct {
	Src string
	Dst string

	Copies  []string // relative paths to copy (new or changed)
	Skips   []string // relative paths already up to date
	Deletes []string // relative dst paths to remove

	Bytes int64 // total size of the files to copy

	checksum bool
	workers  int
}

// Option configures planning and application.
type Option func(*Plan)

// WithChecksum compares file contents by SHA-256 instead of size and
// modification time.
func WithChecksum(on bool) Option {
	return func(p *Plan) {
		p.checksum = on
	}
}

// WithWorkers bounds the number of concurrent copies (default 4).
func WithWorkers(n int) Option {
	return func(p *Plan) {
		p.workers = n
	}
}

// New walks src and dst and builds the synchronization plan.
func New(src, dst string, opts ...Option) (*Plan, error) {
	p := &Plan{
		Src:     src,
		Dst:     dst,
		workers: 4,
	}
	for _, opt := range opts {
		opt(p)
	}

	srcSet := make(map[string]bool)
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		srcSet[rel] = true
		if d.IsDir() {
			return nil
		}

		same, size, err := p.unchanged(rel)
		if err != nil {
			return err
		}
		if same {
			p.Skips = append(p.Skips, rel)
			return nil
		}
		p.Copies = append(p.Copies, rel)
		p.Bytes += size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: could not walk %q: %w", src, err)
	}

	err = filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dst {
				return filepath.SkipAll
			}
			return err
		}
		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		if rel == "." || srcSet[rel] {
			return nil
		}
		if protected[root(rel)] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		p.Deletes = append(p.Deletes, rel)
		if d.IsDir() {
			// children go away with the directory.
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mirror: could not walk %q: %w", dst, err)
	}

	sort.Strings(p.Copies)
	sort.Strings(p.Skips)
	sort.Strings(p.Deletes)
	return p, nil
}

// root returns the first element of a relative path.
func root(rel string) string {
	if i := strings.IndexByte(rel, filepath.Separator); i >= 0 {
		return rel[:i]
	}
	return rel
}

// unchanged reports whether the dst copy of rel is up to date, and
// returns the source file size.
func (p *Plan) unchanged(rel string) (bool, int64, error) {
	sfi, err := os.Stat(filepath.Join(p.Src, rel))
	if err != nil {
		return false, 0, fmt.Errorf("mirror: could not stat %q: %w", rel, err)
	}
	dfi, err := os.Stat(filepath.Join(p.Dst, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return false, sfi.Size(), nil
		}
		return false, 0, fmt.Errorf("mirror: could not stat dst %q: %w", rel, err)
	}

	if sfi.Size() != dfi.Size() {
		return false, sfi.Size(), nil
	}

	if p.checksum {
		ssum, err := sum(filepath.Join(p.Src, rel))
		if err != nil {
			return false, 0, err
		}
		dsum, err := sum(filepath.Join(p.Dst, rel))
		if err != nil {
			return false, 0, err
		}
		return ssum == dsum, sfi.Size(), nil
	}

	dt := sfi.ModTime().Unix() - dfi.ModTime().Unix()
	if dt < 0 {
		dt = -dt
	}
	return dt <= mtimeTolerance, sfi.Size(), nil
}

func sum(fname string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(fname)
	if err != nil {
		return sum, fmt.Errorf("mirror: could not open %q: %w", fname, err)
	}
	defer f.Close()

	h := sha256.New()
	_, err = io.Copy(h, f)
	if err != nil {
		return sum, fmt.Errorf("mirror: could not hash %q: %w", fname, err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// DryRun writes the plan to w without touching anything.
func (p *Plan) DryRun(w io.Writer) {
	for _, rel := range p.Copies {
		fmt.Fprintf(w, "copy   %s\n", rel)
	}
	for _, rel := range p.Deletes {
		fmt.Fprintf(w, "delete %s\n", rel)
	}
	fmt.Fprintf(w, "%d file(s) to copy (%d bytes), %d to delete, %d up to date\n",
		len(p.Copies), p.Bytes, len(p.Deletes), len(p.Skips),
	)
}

// Apply executes the plan: parallel copies first, deletions last.
func (p *Plan) Apply(ctx context.Context) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(p.workers)

	for _, rel := range p.Copies {
		rel := rel
		grp.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return p.copy(rel)
		})
	}
	err := grp.Wait()
	if err != nil {
		return fmt.Errorf("mirror: could not copy files: %w", err)
	}

	// deepest entries first, so directories empty out before removal.
	dels := make([]string, len(p.Deletes))
	copy(dels, p.Deletes)
	sort.Sort(sort.Reverse(sort.StringSlice(dels)))
	for _, rel := range dels {
		err := os.RemoveAll(filepath.Join(p.Dst, rel))
		if err != nil {
			return fmt.Errorf("mirror: could not delete %q: %w", rel, err)
		}
	}
	return nil
}

// copy copies one file onto the volume and fsyncs it: yanking the
// board mid-sync should not leave half-written files.
func (p *Plan) copy(rel string) error {
	src, err := os.Open(filepath.Join(p.Src, rel))
	if err != nil {
		return fmt.Errorf("could not open %q: %w", rel, err)
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return fmt.Errorf("could not stat %q: %w", rel, err)
	}

	oname := filepath.Join(p.Dst, rel)
	err = os.MkdirAll(filepath.Dir(oname), 0755)
	if err != nil {
		return fmt.Errorf("could not create directory for %q: %w", rel, err)
	}

	dst, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", oname, err)
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	if err != nil {
		return fmt.Errorf("could not copy %q: %w", rel, err)
	}
	err = dst.Sync()
	if err != nil {
		return fmt.Errorf("could not sync %q: %w", oname, err)
	}
	err = dst.Close()
	if err != nil {
		return fmt.Errorf("could not close %q: %w", oname, err)
	}

	err = os.Chtimes(oname, fi.ModTime(), fi.ModTime())
	if err != nil {
		return fmt.Errorf("could not set times of %q: %w", oname, err)
	}
	return nil
}
