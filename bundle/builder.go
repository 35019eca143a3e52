// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fruitjam/tlv320/synth"
	"github.com/fruitjam/tlv320/wav"
)

// MetaFile is the name of the metadata file written at the root of
// every staged bundle.
const MetaFile = "bundle.json"

// never cross-compiled: CircuitPython loads these by name.
var keepPy = map[string]bool{
	"code.py":       true,
	"boot.py":       true,
	"settings.toml": true,
}

// Meta describes a staged bundle.
type Meta struct {
	ID      string     `json:"id"` // build UUID
	Name    string     `json:"name"`
	Profile string     `json:"profile"`
	Created time.Time  `json:"created"`
	Files   []FileMeta `json:"files"`
	Bytes   int64      `json:"bytes"`
}

// FileMeta describes one file of a staged bundle.
type FileMeta struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Builder stages bundles for one project.
type Builder struct {
	root string // project root
	out  string // build directory
	man  *Manifest

	msg     *log.Logger
	workers int

	// compile cross-compiles src to dst. Hooked in tests.
	compile func(ctx context.Context, src, dst string) error
}

// BuildOption configures a Builder.
type BuildOption func(*Builder)

// WithLogger directs build progress messages to msg.
func WithLogger(msg *log.Logger) BuildOption {
	return func(b *Builder) {
		b.msg = msg
	}
}

// WithBuildDir sets the build directory (default <root>/build).
func WithBuildDir(dir string) BuildOption {
	return func(b *Builder) {
		b.out = dir
	}
}

// WithMpyCross sets the mpy-cross binary to use.
func WithMpyCross(bin string) BuildOption {
	return func(b *Builder) {
		b.compile = func(ctx context.Context, src, dst string) error {
			cmd := exec.CommandContext(ctx, bin, "-o", dst, src)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		}
	}
}

// WithWorkers bounds the number of concurrent cross-compilations
// (default 4).
func WithWorkers(n int) BuildOption {
	return func(b *Builder) {
		b.workers = n
	}
}

// NewBuilder returns a Builder staging bundles of the project at root
// according to the manifest.
func NewBuilder(root string, man *Manifest, opts ...BuildOption) *Builder {
	b := &Builder{
		root:    root,
		out:     filepath.Join(root, "build"),
		man:     man,
		msg:     log.New(os.Stdout, "bundle: ", 0),
		workers: 4,
	}
	WithMpyCross("mpy-cross")(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dir returns the staging directory of the named profile.
func (b *Builder) Dir(profile string) string {
	return filepath.Join(b.out, profile)
}

// Clean removes the build directory. A missing directory is fine.
func (b *Builder) Clean() error {
	err := os.RemoveAll(b.out)
	if err != nil {
		return fmt.Errorf("bundle: could not clean %q: %w", b.out, err)
	}
	return nil
}

// Build stages the named profile under the build directory and returns
// its metadata. Any previous staging of that profile is replaced.
func (b *Builder) Build(ctx context.Context, profile string) (*Meta, error) {
	prof, err := b.man.Profile(profile)
	if err != nil {
		return nil, err
	}

	dir := b.Dir(profile)
	err = os.RemoveAll(dir)
	if err != nil {
		return nil, fmt.Errorf("bundle: could not reset %q: %w", dir, err)
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("bundle: could not create %q: %w", dir, err)
	}

	b.msg.Printf("staging profile %q into %q...", profile, dir)

	err = b.stage(dir, prof)
	if err != nil {
		return nil, err
	}
	if prof.Mpy {
		err = b.crossCompile(ctx, dir)
		if err != nil {
			return nil, err
		}
	}
	err = b.tones(dir, prof)
	if err != nil {
		return nil, err
	}

	meta, err := b.meta(dir, profile)
	if err != nil {
		return nil, err
	}

	b.msg.Printf("staging profile %q into %q... [done] (%d files, %d bytes)",
		profile, dir, len(meta.Files), meta.Bytes,
	)
	return meta, nil
}

// stage copies the profile's files into the staging directory.
func (b *Builder) stage(dir string, prof Profile) error {
	for _, inc := range prof.Include {
		src := filepath.Join(b.root, filepath.FromSlash(inc))
		fi, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("bundle: could not stat %q: %w", inc, err)
		}
		switch {
		case fi.IsDir():
			err = filepath.WalkDir(src, func(fname string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(b.root, fname)
				if err != nil {
					return err
				}
				if prof.excluded(rel) {
					return nil
				}
				return copyFile(fname, filepath.Join(dir, rel))
			})
			if err != nil {
				return fmt.Errorf("bundle: could not stage %q: %w", inc, err)
			}
		default:
			if prof.excluded(inc) {
				continue
			}
			err = copyFile(src, filepath.Join(dir, filepath.FromSlash(inc)))
			if err != nil {
				return fmt.Errorf("bundle: could not stage %q: %w", inc, err)
			}
		}
	}
	return nil
}

// excluded matches the exclude patterns against the path and against
// its base name.
func (prof Profile) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range prof.Exclude {
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
		if ok, _ := path.Match(pat, path.Base(rel)); ok {
			return true
		}
	}
	return false
}

// crossCompile converts the staged .py files to .mpy, in parallel.
// code.py, boot.py and settings.toml always ship as sources.
func (b *Builder) crossCompile(ctx context.Context, dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(fname string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(fname) != ".py" || keepPy[d.Name()] {
			return nil
		}
		files = append(files, fname)
		return nil
	})
	if err != nil {
		return fmt.Errorf("bundle: could not list staged sources: %w", err)
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(b.workers)
	for _, fname := range files {
		fname := fname
		grp.Go(func() error {
			dst := strings.TrimSuffix(fname, ".py") + ".mpy"
			err := b.compile(ctx, fname, dst)
			if err != nil {
				return fmt.Errorf("could not compile %q: %w", fname, err)
			}
			return os.Remove(fname)
		})
	}
	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	return nil
}

// tones renders the profile's generated WAV files.
func (b *Builder) tones(dir string, prof Profile) error {
	for _, tone := range prof.Tones {
		snd, err := render(tone)
		if err != nil {
			return err
		}

		oname := filepath.Join(dir, filepath.FromSlash(tone.File))
		err = os.MkdirAll(filepath.Dir(oname), 0755)
		if err != nil {
			return fmt.Errorf("bundle: could not create directory for %q: %w", tone.File, err)
		}
		f, err := os.Create(oname)
		if err != nil {
			return fmt.Errorf("bundle: could not create %q: %w", tone.File, err)
		}
		err = wav.NewEncoder(f).Encode(snd)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("bundle: could not encode %q: %w", tone.File, err)
		}
		err = f.Close()
		if err != nil {
			return fmt.Errorf("bundle: could not close %q: %w", tone.File, err)
		}
		b.msg.Printf("rendered %q (%v)", tone.File, snd.Duration())
	}
	return nil
}

func render(tone Tone) (*wav.Sound, error) {
	rate := tone.Rate
	if rate == 0 {
		rate = 11025
	}
	switch tone.Kind {
	case "scale":
		return synth.New(rate, 2).Render(synth.Scale())
	default:
		wform := synth.Sine
		if tone.Wave != "" {
			var err error
			wform, err = synth.WaveByName(tone.Wave)
			if err != nil {
				return nil, fmt.Errorf("bundle: %w", err)
			}
		}
		dur, err := tone.Duration()
		if err != nil {
			return nil, err
		}
		gain := tone.Gain
		if gain == 0 {
			gain = 0.5
		}
		snd, err := synth.Tone(rate, 2, wform, tone.Freq, dur, gain)
		if err != nil {
			return nil, fmt.Errorf("bundle: %w", err)
		}
		return snd, nil
	}
}

// meta hashes the staged tree and writes the bundle.json file.
func (b *Builder) meta(dir, profile string) (*Meta, error) {
	meta := &Meta{
		ID:      uuid.New().String(),
		Name:    b.man.Name,
		Profile: profile,
		Created: time.Now().UTC(),
	}

	err := filepath.WalkDir(dir, func(fname string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, fname)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		sum, err := hashFile(fname)
		if err != nil {
			return err
		}
		meta.Files = append(meta.Files, FileMeta{
			Path:   filepath.ToSlash(rel),
			Size:   fi.Size(),
			SHA256: sum,
		})
		meta.Bytes += fi.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: could not hash staged tree: %w", err)
	}

	sort.Slice(meta.Files, func(i, j int) bool {
		return meta.Files[i].Path < meta.Files[j].Path
	})

	f, err := os.Create(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, fmt.Errorf("bundle: could not create %s: %w", MetaFile, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(meta)
	if err != nil {
		return nil, fmt.Errorf("bundle: could not write %s: %w", MetaFile, err)
	}
	return meta, nil
}

// Archive zips the staged profile next to the build directory and
// returns the archive file name.
func (b *Builder) Archive(profile string) (string, error) {
	dir := b.Dir(profile)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("bundle: profile %q not staged: %w", profile, err)
	}

	oname := filepath.Join(b.out, fmt.Sprintf("%s-%s.zip", b.man.Name, profile))
	f, err := os.Create(oname)
	if err != nil {
		return "", fmt.Errorf("bundle: could not create archive %q: %w", oname, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(fname string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, fname)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(fname)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("bundle: could not archive %q: %w", dir, err)
	}
	err = zw.Close()
	if err != nil {
		return "", fmt.Errorf("bundle: could not finalize archive %q: %w", oname, err)
	}
	err = f.Close()
	if err != nil {
		return "", fmt.Errorf("bundle: could not close archive %q: %w", oname, err)
	}
	return oname, nil
}

func hashFile(fname string) (string, error) {
	f, err := os.Open(fname)
	if err != nil {
		return "", fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	h := sha256.New()
	_, err = io.Copy(h, f)
	if err != nil {
		return "", fmt.Errorf("could not hash %q: %w", fname, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	err := os.MkdirAll(filepath.Dir(dst), 0755)
	if err != nil {
		return fmt.Errorf("could not create directory for %q: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", src, err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("could not stat %q: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", dst, err)
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	if err != nil {
		return fmt.Errorf("could not copy %q: %w", src, err)
	}
	err = out.Close()
	if err != nil {
		return fmt.Errorf("could not close %q: %w", dst, err)
	}

	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}
