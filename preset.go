// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv320

import "fmt"

// Preset is a named volume configuration for the DAC outputs.
type Preset struct {
	Name              string
	DACVolumeDB       float64 // digital volume, [-63.5, +24] dB
	HeadphoneVolumeDB float64 // analog headphone volume, [-78.3, 0] dB
	LineLevel         bool    // line-level output, too loud for earbuds
}

// Built-in presets for the headphone jack of the Fruit Jam board.
var (
	// LineLevel suits a mixer or the AUX input of powered speakers.
	// Do not use with headphones.
	LineLevel = Preset{
		Name:              "line",
		DACVolumeDB:       -44,
		HeadphoneVolumeDB: -64,
		LineLevel:         true,
	}

	// Headphone is a safe level for sensitive earbuds. Raise the DAC
	// volume toward 0 dB for headphones that need a stronger signal.
	Headphone = Preset{
		Name:              "headphone",
		DACVolumeDB:       -58,
		HeadphoneVolumeDB: -64,
	}
)

var presets = []Preset{LineLevel, Headphone}

// PresetByName returns the built-in preset with the given name.
func PresetByName(name string) (Preset, error) {
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("tlv320: unknown preset %q", name)
}
