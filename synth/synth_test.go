// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synth

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func TestNoteHz(t *testing.T) {
	for _, tc := range []struct {
		note int
		want float64
	}{
		{note: 69, want: 440},
		{note: 57, want: 220},
		{note: 81, want: 880},
		{note: 60, want: 261.6255653005986},
		{note: 72, want: 523.2511306011972},
	} {
		t.Run(fmt.Sprintf("%d", tc.note), func(t *testing.T) {
			got := NoteHz(tc.note)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("invalid frequency: got=%v, want=%v", got, tc.want)
			}
		})
	}
}

func TestWaveByName(t *testing.T) {
	for _, w := range []Wave{Sine, Square, Triangle} {
		got, err := WaveByName(w.String())
		if err != nil {
			t.Fatalf("could not look up %q: %+v", w, err)
		}
		if got != w {
			t.Fatalf("invalid waveform: got=%v, want=%v", got, w)
		}
	}
	_, err := WaveByName("sawtooth")
	if err == nil {
		t.Fatalf("expected an error for unknown waveform")
	}
}

func TestEnvelope(t *testing.T) {
	env := DefaultEnvelope
	const hold = 0.8
	for _, tc := range []struct {
		t    float64
		want float64
	}{
		{t: 0, want: 0},
		{t: 0.001, want: 0.3},  // halfway through attack
		{t: 0.002, want: 0.6},  // attack peak
		{t: 0.007, want: 0.42}, // halfway through decay
		{t: 0.012, want: 0.24}, // sustain = 0.4 * 0.6
		{t: 0.5, want: 0.24},
		{t: 0.8, want: 0}, // instant release
		{t: 1.0, want: 0},
	} {
		t.Run(fmt.Sprintf("%v", tc.t), func(t *testing.T) {
			got := env.amp(tc.t, hold)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("invalid amplitude at t=%v: got=%v, want=%v", tc.t, got, tc.want)
			}
		})
	}
}

func TestScale(t *testing.T) {
	notes := Scale()
	if got, want := len(notes), 13; got != want {
		t.Fatalf("invalid scale length: got=%d, want=%d", got, want)
	}
	if got, want := notes[0].MIDI, 60; got != want {
		t.Fatalf("invalid first note: got=%d, want=%d", got, want)
	}
	if got, want := notes[12].MIDI, 72; got != want {
		t.Fatalf("invalid last note: got=%d, want=%d", got, want)
	}
}

func TestRenderScale(t *testing.T) {
	s := New(11025, 2)
	snd, err := s.Render(Scale())
	if err != nil {
		t.Fatalf("could not render scale: %+v", err)
	}

	if got, want := snd.Duration(), 13*time.Second; got != want {
		t.Fatalf("invalid duration: got=%v, want=%v", got, want)
	}
	if got, want := snd.Channels, 2; got != want {
		t.Fatalf("invalid channels: got=%d, want=%d", got, want)
	}

	// stereo frames carry the same value on both channels.
	for i := 0; i < 100; i += 2 {
		if snd.Samples[i] != snd.Samples[i+1] {
			t.Fatalf("channel mismatch at frame %d: %d != %d",
				i/2, snd.Samples[i], snd.Samples[i+1],
			)
		}
	}

	// the 0.2 s gap after each note is silent.
	rate := float64(11025)
	gap := int(0.9 * rate) // in the middle of the first gap
	for i := 2 * gap; i < 2*gap+20; i++ {
		if snd.Samples[i] != 0 {
			t.Fatalf("gap not silent at sample %d: %d", i, snd.Samples[i])
		}
	}

	// the envelope caps the amplitude at the attack level.
	max := int16(0)
	for _, v := range snd.Samples {
		if v > max {
			max = v
		}
	}
	peak := 0.6 * float64(math.MaxInt16)
	if limit := int16(peak) + 1; max > limit {
		t.Fatalf("amplitude above attack level: %d > %d", max, limit)
	}
	if max == 0 {
		t.Fatalf("rendered scale is silent")
	}
}

func TestTone(t *testing.T) {
	snd, err := Tone(11025, 1, Square, 1000, 100*time.Millisecond, 0.5)
	if err != nil {
		t.Fatalf("could not render tone: %+v", err)
	}
	if got, want := len(snd.Samples), 1102; got != want {
		t.Fatalf("invalid sample count: got=%d, want=%d", got, want)
	}
	half := 0.5 * float64(math.MaxInt16)
	want := int16(half)
	for i, v := range snd.Samples {
		if v != want && v != -want {
			t.Fatalf("invalid square sample %d: got=%d, want=±%d", i, v, want)
		}
	}

	_, err = Tone(11025, 1, Sine, 1000, time.Second, 1.5)
	if err == nil {
		t.Fatalf("expected an error for out-of-range gain")
	}
}
