// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wav encodes and decodes 16-bit PCM RIFF/WAVE files.
package wav // import "github.com/fruitjam/tlv320/wav"

import "time"

const (
	tagRIFF = "RIFF"
	tagWAVE = "WAVE"
	tagFmt  = "fmt "
	tagData = "data"

	fmtPCM = 1 // WAVE_FORMAT_PCM

	bitsPerSample = 16
)

// Sound holds 16-bit PCM audio data.
type Sound struct {
	Rate     int     // sample rate (Hz)
	Channels int     // number of interleaved channels
	Samples  []int16 // interleaved samples
}

// Frames returns the number of sample frames, all channels counted as
// one frame.
func (snd *Sound) Frames() int {
	if snd.Channels == 0 {
		return 0
	}
	return len(snd.Samples) / snd.Channels
}

// Duration returns the play time of the sound.
func (snd *Sound) Duration() time.Duration {
	if snd.Rate == 0 {
		return 0
	}
	return time.Duration(snd.Frames()) * time.Second / time.Duration(snd.Rate)
}
