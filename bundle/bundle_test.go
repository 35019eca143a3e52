// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bundle

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

const manifest = `
name: jam-synth
label: CIRCUITPY
profiles:
  default:
    include: [code.py, lib]
    exclude: ["*.pyc", "scratch*"]
    mpy: true
  tlv-test:
    include: [code.py]
    tones:
      - {file: sounds/scale.wav, kind: scale}
      - {file: sounds/test-1k.wav, kind: tone, freq: 1000, dur: 250ms, wave: sine, gain: 0.5}
`

func newTestProject(t *testing.T) (string, *Manifest) {
	t.Helper()
	root := t.TempDir()
	for fname, data := range map[string]string{
		"bundle.yaml":        manifest,
		"code.py":            "print('hi')",
		"lib/helper.py":      "x = 1",
		"lib/scratch_old.py": "old",
		"lib/cache.pyc":      "\x00",
	} {
		oname := filepath.Join(root, fname)
		err := os.MkdirAll(filepath.Dir(oname), 0755)
		if err != nil {
			t.Fatalf("could not create directory for %q: %+v", fname, err)
		}
		err = os.WriteFile(oname, []byte(data), 0644)
		if err != nil {
			t.Fatalf("could not write %q: %+v", fname, err)
		}
	}

	man, err := Load(filepath.Join(root, "bundle.yaml"))
	if err != nil {
		t.Fatalf("could not load manifest: %+v", err)
	}
	return root, man
}

func newTestBuilder(root string, man *Manifest) *Builder {
	b := NewBuilder(root, man,
		WithLogger(log.New(io.Discard, "", 0)),
	)
	// fake mpy-cross: copy the source.
	b.compile = func(ctx context.Context, src, dst string) error {
		return copyFile(src, dst)
	}
	return b
}

func TestLoad(t *testing.T) {
	root, man := newTestProject(t)
	_ = root

	if got, want := man.Name, "jam-synth"; got != want {
		t.Fatalf("invalid name: got=%q, want=%q", got, want)
	}
	if got, want := len(man.Profiles), 2; got != want {
		t.Fatalf("invalid profile count: got=%d, want=%d", got, want)
	}
	if _, err := man.Profile("nope"); err == nil {
		t.Fatalf("expected an error for unknown profile")
	}
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{name: "no-name", data: "profiles: {default: {include: [code.py]}}"},
		{name: "no-profiles", data: "name: x"},
		{name: "no-default", data: "name: x\nprofiles: {other: {include: [code.py]}}"},
		{name: "empty-profile", data: "name: x\nprofiles: {default: {}}"},
		{name: "bad-tone-kind", data: "name: x\nprofiles: {default: {tones: [{file: a.wav, kind: chirp}]}}"},
		{name: "bad-tone-dur", data: "name: x\nprofiles: {default: {tones: [{file: a.wav, kind: tone, dur: nope}]}}"},
		{name: "not-yaml", data: ":"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(t.TempDir(), "bundle.yaml")
			err := os.WriteFile(fname, []byte(tc.data), 0644)
			if err != nil {
				t.Fatalf("could not write manifest: %+v", err)
			}
			_, err = Load(fname)
			if err == nil {
				t.Fatalf("expected a manifest error")
			}
		})
	}
}

func TestBuild(t *testing.T) {
	root, man := newTestProject(t)
	b := newTestBuilder(root, man)

	meta, err := b.Build(context.Background(), DefaultProfile)
	if err != nil {
		t.Fatalf("could not build: %+v", err)
	}

	dir := b.Dir(DefaultProfile)
	for _, fname := range []string{"code.py", "lib/helper.mpy", MetaFile} {
		if _, err := os.Stat(filepath.Join(dir, fname)); err != nil {
			t.Fatalf("missing %q in bundle: %+v", fname, err)
		}
	}
	for _, fname := range []string{"lib/helper.py", "lib/scratch_old.py", "lib/cache.pyc"} {
		if _, err := os.Stat(filepath.Join(dir, fname)); !os.IsNotExist(err) {
			t.Fatalf("unexpected %q in bundle (err=%v)", fname, err)
		}
	}

	if meta.ID == "" {
		t.Fatalf("missing build id")
	}
	// code.py + lib/helper.mpy; bundle.json itself is not listed.
	if got, want := len(meta.Files), 2; got != want {
		t.Fatalf("invalid file count: got=%d, want=%d\nfiles: %+v", got, want, meta.Files)
	}
	if got, want := meta.Files[0].Path, "code.py"; got != want {
		t.Fatalf("invalid first file: got=%q, want=%q", got, want)
	}

	var onDisk Meta
	raw, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		t.Fatalf("could not read %s: %+v", MetaFile, err)
	}
	err = json.Unmarshal(raw, &onDisk)
	if err != nil {
		t.Fatalf("could not parse %s: %+v", MetaFile, err)
	}
	if got, want := onDisk.ID, meta.ID; got != want {
		t.Fatalf("invalid on-disk id: got=%q, want=%q", got, want)
	}
}

func TestBuildTones(t *testing.T) {
	root, man := newTestProject(t)
	b := newTestBuilder(root, man)

	_, err := b.Build(context.Background(), "tlv-test")
	if err != nil {
		t.Fatalf("could not build: %+v", err)
	}

	dir := b.Dir("tlv-test")
	for _, fname := range []string{"sounds/scale.wav", "sounds/test-1k.wav"} {
		fi, err := os.Stat(filepath.Join(dir, fname))
		if err != nil {
			t.Fatalf("missing %q in bundle: %+v", fname, err)
		}
		if fi.Size() <= 44 {
			t.Fatalf("%q has no sample data (%d bytes)", fname, fi.Size())
		}
	}
	// sources stay .py: the tlv-test profile does not cross-compile.
	if _, err := os.Stat(filepath.Join(dir, "code.py")); err != nil {
		t.Fatalf("missing code.py: %+v", err)
	}
}

func TestBuildKeepsCodePy(t *testing.T) {
	root, man := newTestProject(t)
	b := newTestBuilder(root, man)

	_, err := b.Build(context.Background(), DefaultProfile)
	if err != nil {
		t.Fatalf("could not build: %+v", err)
	}

	// code.py must never be compiled away, even with mpy enabled.
	if _, err := os.Stat(filepath.Join(b.Dir(DefaultProfile), "code.py")); err != nil {
		t.Fatalf("code.py was compiled away: %+v", err)
	}
	if _, err := os.Stat(filepath.Join(b.Dir(DefaultProfile), "code.mpy")); !os.IsNotExist(err) {
		t.Fatalf("unexpected code.mpy (err=%v)", err)
	}
}

func TestArchive(t *testing.T) {
	root, man := newTestProject(t)
	b := newTestBuilder(root, man)

	_, err := b.Build(context.Background(), DefaultProfile)
	if err != nil {
		t.Fatalf("could not build: %+v", err)
	}

	oname, err := b.Archive(DefaultProfile)
	if err != nil {
		t.Fatalf("could not archive: %+v", err)
	}
	if got, want := filepath.Base(oname), "jam-synth-default.zip"; got != want {
		t.Fatalf("invalid archive name: got=%q, want=%q", got, want)
	}

	zr, err := zip.OpenReader(oname)
	if err != nil {
		t.Fatalf("could not open archive: %+v", err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"code.py", "lib/helper.mpy", MetaFile} {
		if !names[want] {
			t.Fatalf("missing %q in archive (have %v)", want, names)
		}
	}
}

func TestClean(t *testing.T) {
	root, man := newTestProject(t)
	b := newTestBuilder(root, man)

	_, err := b.Build(context.Background(), DefaultProfile)
	if err != nil {
		t.Fatalf("could not build: %+v", err)
	}
	err = b.Clean()
	if err != nil {
		t.Fatalf("could not clean: %+v", err)
	}
	if _, err := os.Stat(b.Dir(DefaultProfile)); !os.IsNotExist(err) {
		t.Fatalf("build directory still there (err=%v)", err)
	}

	// cleaning twice is fine.
	err = b.Clean()
	if err != nil {
		t.Fatalf("could not clean twice: %+v", err)
	}
}
