// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package synth renders simple synthesizer voices to 16-bit PCM, for
// generating DAC test signals offline.
package synth // import "github.com/fruitjam/tlv320/synth"

import (
	"fmt"
	"math"
	"time"

	"github.com/fruitjam/tlv320/wav"
)

// NoteHz returns the equal-temperament frequency of a MIDI note
// (A4 = note 69 = 440 Hz).
func NoteHz(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// Wave selects an oscillator shape.
type Wave int

const (
	Sine Wave = iota
	Square
	Triangle
)

func (w Wave) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	}
	return fmt.Sprintf("Wave(%d)", int(w))
}

// WaveByName returns the oscillator shape with the given name.
func WaveByName(name string) (Wave, error) {
	for _, w := range []Wave{Sine, Square, Triangle} {
		if w.String() == name {
			return w, nil
		}
	}
	return 0, fmt.Errorf("synth: unknown waveform %q", name)
}

// sample returns the oscillator value in [-1, 1] at phase x (radians).
func (w Wave) sample(x float64) float64 {
	switch w {
	case Square:
		if math.Sin(x) < 0 {
			return -1
		}
		return 1
	case Triangle:
		return 2 / math.Pi * math.Asin(math.Sin(x))
	default:
		return math.Sin(x)
	}
}

// Envelope is an attack/decay/sustain/release amplitude envelope.
// SustainLevel is relative to AttackLevel.
type Envelope struct {
	AttackTime   float64 // s
	DecayTime    float64 // s
	ReleaseTime  float64 // s
	AttackLevel  float64 // peak amplitude, 0..1
	SustainLevel float64 // fraction of AttackLevel, 0..1
}

// DefaultEnvelope is the pluck-like patch used by the scale player:
// 2 ms attack to 0.6, 10 ms decay to 0.4 of that, instant release.
var DefaultEnvelope = Envelope{
	AttackTime:   0.002,
	DecayTime:    0.01,
	ReleaseTime:  0,
	AttackLevel:  0.6,
	SustainLevel: 0.4,
}

// amp returns the envelope amplitude at time t for a note released at
// time hold.
func (env Envelope) amp(t, hold float64) float64 {
	sustain := env.SustainLevel * env.AttackLevel
	if t >= hold {
		if env.ReleaseTime <= 0 {
			return 0
		}
		v := sustain * (1 - (t-hold)/env.ReleaseTime)
		return math.Max(v, 0)
	}
	switch {
	case t < env.AttackTime:
		return env.AttackLevel * t / env.AttackTime
	case t < env.AttackTime+env.DecayTime:
		x := (t - env.AttackTime) / env.DecayTime
		return env.AttackLevel + x*(sustain-env.AttackLevel)
	default:
		return sustain
	}
}

// Note is one step of a melody: a MIDI note held for Hold, followed by
// Gap of silence.
type Note struct {
	MIDI int
	Hold time.Duration
	Gap  time.Duration
}

// Scale returns the chromatic scale from middle C (MIDI 60) up to C5
// (MIDI 72), each note held 0.8 s with a 0.2 s gap.
func Scale() []Note {
	var notes []Note
	for midi := 60; midi <= 72; midi++ {
		notes = append(notes, Note{
			MIDI: midi,
			Hold: 800 * time.Millisecond,
			Gap:  200 * time.Millisecond,
		})
	}
	return notes
}

// Synth renders notes with a fixed oscillator and envelope.
type Synth struct {
	Rate     int
	Channels int
	Wave     Wave
	Env      Envelope
}

// New returns a Synth with the default envelope and a sine oscillator.
func New(rate, channels int) *Synth {
	return &Synth{
		Rate:     rate,
		Channels: channels,
		Env:      DefaultEnvelope,
	}
}

// Render plays the notes back to back into a new sound.
func (s *Synth) Render(notes []Note) (*wav.Sound, error) {
	if s.Rate < 1 {
		return nil, fmt.Errorf("synth: invalid sample rate %d", s.Rate)
	}
	if s.Channels < 1 {
		return nil, fmt.Errorf("synth: invalid channel count %d", s.Channels)
	}

	snd := &wav.Sound{
		Rate:     s.Rate,
		Channels: s.Channels,
	}
	for _, note := range notes {
		s.render(snd, note)
	}
	return snd, nil
}

func (s *Synth) render(snd *wav.Sound, note Note) {
	var (
		rate = float64(s.Rate)
		freq = NoteHz(note.MIDI)
		hold = note.Hold.Seconds()

		frames = int(rate * (note.Hold + note.Gap).Seconds())
	)
	for i := 0; i < frames; i++ {
		var (
			t = float64(i) / rate
			a = s.Env.amp(t, hold)
			v = int16(a * s.Wave.sample(2*math.Pi*freq*t) * math.MaxInt16)
		)
		for ch := 0; ch < s.Channels; ch++ {
			snd.Samples = append(snd.Samples, v)
		}
	}
}

// Tone renders a single constant-amplitude tone, envelope bypassed.
func Tone(rate, channels int, w Wave, freq float64, dur time.Duration, gain float64) (*wav.Sound, error) {
	if rate < 1 {
		return nil, fmt.Errorf("synth: invalid sample rate %d", rate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("synth: invalid channel count %d", channels)
	}
	if gain < 0 || gain > 1 {
		return nil, fmt.Errorf("synth: invalid gain %v", gain)
	}

	snd := &wav.Sound{
		Rate:     rate,
		Channels: channels,
	}
	frames := int(float64(rate) * dur.Seconds())
	for i := 0; i < frames; i++ {
		var (
			t = float64(i) / float64(rate)
			v = int16(gain * w.sample(2*math.Pi*freq*t) * math.MaxInt16)
		)
		for ch := 0; ch < channels; ch++ {
			snd.Samples = append(snd.Samples, v)
		}
	}
	return snd, nil
}
