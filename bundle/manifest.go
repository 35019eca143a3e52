// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bundle stages a deployable CircuitPython tree under a build
// directory: project files, optional .mpy cross-compilation, generated
// test tones and a metadata file describing the build.
package bundle // import "github.com/fruitjam/tlv320/bundle"

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

// Manifest describes a project and its deployable profiles. It is
// usually loaded from a bundle.yaml at the project root.
type Manifest struct {
	Name     string             `yaml:"name"`
	Label    string             `yaml:"label"`    // target volume label
	Profiles map[string]Profile `yaml:"profiles"` // at least "default"
}

// Profile selects which files a bundle carries and how they are
// processed.
type Profile struct {
	Include []string `yaml:"include"` // files or directories, project-relative
	Exclude []string `yaml:"exclude"` // glob patterns, matched per path element
	Mpy     bool     `yaml:"mpy"`     // cross-compile .py files to .mpy
	Tones   []Tone   `yaml:"tones"`   // generated WAV files
}

// Tone describes one generated WAV file.
type Tone struct {
	File string  `yaml:"file"` // bundle-relative output path
	Kind string  `yaml:"kind"` // "scale" or "tone"
	Wave string  `yaml:"wave"` // sine, square, triangle (kind "tone")
	Freq float64 `yaml:"freq"` // Hz (kind "tone")
	Dur  string  `yaml:"dur"`  // duration, e.g. "2s" (kind "tone")
	Gain float64 `yaml:"gain"` // linear amplitude, 0..1 (kind "tone")
	Rate int     `yaml:"rate"` // sample rate (default 11025)
}

// Duration parses the tone duration.
func (t Tone) Duration() (time.Duration, error) {
	if t.Dur == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(t.Dur)
	if err != nil {
		return 0, fmt.Errorf("bundle: invalid tone duration %q: %w", t.Dur, err)
	}
	return d, nil
}

// Load reads a manifest from a YAML file.
func Load(fname string) (*Manifest, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("bundle: could not open manifest %q: %w", fname, err)
	}
	defer f.Close()

	var man Manifest
	err = yaml.NewDecoder(f).Decode(&man)
	if err != nil {
		return nil, fmt.Errorf("bundle: could not parse manifest %q: %w", fname, err)
	}

	err = man.validate()
	if err != nil {
		return nil, fmt.Errorf("bundle: invalid manifest %q: %w", fname, err)
	}
	return &man, nil
}

func (man *Manifest) validate() error {
	if man.Name == "" {
		return fmt.Errorf("missing project name")
	}
	if man.Label == "" {
		man.Label = "CIRCUITPY"
	}
	if len(man.Profiles) == 0 {
		return fmt.Errorf("no profiles")
	}
	if _, ok := man.Profiles[DefaultProfile]; !ok {
		return fmt.Errorf("missing %q profile", DefaultProfile)
	}
	for name, prof := range man.Profiles {
		if len(prof.Include)+len(prof.Tones) == 0 {
			return fmt.Errorf("profile %q is empty", name)
		}
		for _, tone := range prof.Tones {
			switch tone.Kind {
			case "scale", "tone":
				// ok
			default:
				return fmt.Errorf("profile %q: unknown tone kind %q", name, tone.Kind)
			}
			if tone.File == "" {
				return fmt.Errorf("profile %q: tone without output file", name)
			}
			if _, err := tone.Duration(); err != nil {
				return fmt.Errorf("profile %q: %w", name, err)
			}
		}
	}
	return nil
}

// Profile returns the named profile.
func (man *Manifest) Profile(name string) (Profile, error) {
	prof, ok := man.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("bundle: unknown profile %q", name)
	}
	return prof, nil
}
