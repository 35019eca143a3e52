// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tlv-tone renders test tones to a WAV file, matching what the
// board synthesizes. The default renders the chromatic scale from
// middle C; -freq renders a single constant tone instead. -stats prints
// amplitude statistics of the rendered sound, with an optional
// histogram plot.
//
// Usage: tlv-tone [OPTIONS] FILE.wav
//
// Example:
//
//	$> tlv-tone scale.wav
//	$> tlv-tone -freq 440 -dur 1s -wave square -gain 0.5 beep.wav
//	$> tlv-tone -stats -hist scale.png scale.wav
package main // import "github.com/fruitjam/tlv320/cmd/tlv-tone"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"

	"github.com/fruitjam/tlv320/synth"
	"github.com/fruitjam/tlv320/wav"
)

func main() {
	log.SetPrefix("tlv-tone: ")
	log.SetFlags(0)

	var (
		rate  = flag.Int("rate", 11025, "sample rate (Hz)")
		ch    = flag.Int("ch", 2, "channel count")
		wname = flag.String("wave", "sine", "oscillator waveform (sine|square|triangle)")
		freq  = flag.Float64("freq", 0, "render a single tone at this frequency (Hz) instead of the scale")
		dur   = flag.Duration("dur", 1*time.Second, "single tone duration")
		gain  = flag.Float64("gain", 0.8, "single tone amplitude, 0 to 1")
		stats = flag.Bool("stats", false, "print amplitude statistics")
		hist  = flag.String("hist", "", "write the amplitude histogram to this PNG file")
	)

	flag.Usage = func() {
		fmt.Printf(`tlv-tone renders test tones to a WAV file, matching what the board
synthesizes.

Usage: tlv-tone [OPTIONS] FILE.wav

Example:

 $> tlv-tone scale.wav
 $> tlv-tone -freq 440 -dur 1s -wave square -gain 0.5 beep.wav
 $> tlv-tone -stats -hist scale.png scale.wav

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("missing output WAV file")
	}

	wave, err := synth.WaveByName(*wname)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	snd, err := render(*rate, *ch, wave, *freq, *dur, *gain)
	if err != nil {
		log.Fatalf("could not render: %+v", err)
	}

	err = save(flag.Arg(0), snd)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("wrote %q: %d frames, %v", flag.Arg(0), snd.Frames(), snd.Duration())

	if *stats || *hist != "" {
		h := histogram(snd)
		if *stats {
			printStats(os.Stdout, h)
		}
		if *hist != "" {
			err = plotHist(*hist, h)
			if err != nil {
				log.Fatalf("could not plot histogram: %+v", err)
			}
		}
	}
}

func render(rate, ch int, wave synth.Wave, freq float64, dur time.Duration, gain float64) (*wav.Sound, error) {
	if freq > 0 {
		return synth.Tone(rate, ch, wave, freq, dur, gain)
	}
	s := synth.New(rate, ch)
	s.Wave = wave
	return s.Render(synth.Scale())
}

func save(fname string, snd *wav.Sound) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", fname, err)
	}
	defer f.Close()

	err = wav.NewEncoder(f).Encode(snd)
	if err != nil {
		return fmt.Errorf("could not encode %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close %q: %w", fname, err)
	}
	return nil
}

// histogram bins the normalized sample amplitudes over [-1, 1].
func histogram(snd *wav.Sound) *hbook.H1D {
	h := hbook.NewH1D(100, -1, 1)
	for _, v := range snd.Samples {
		h.Fill(float64(v)/math.MaxInt16, 1)
	}
	return h
}

func printStats(w io.Writer, h *hbook.H1D) {
	fmt.Fprintf(w, "samples: %d\n", h.Entries())
	fmt.Fprintf(w, "mean:    %+.4f\n", h.XMean())
	fmt.Fprintf(w, "rms:     %.4f\n", h.XRMS())
	fmt.Fprintf(w, "std:     %.4f\n", h.XStdDev())
}

func plotHist(fname string, h *hbook.H1D) error {
	p := hplot.New()
	p.Title.Text = "sample amplitudes"
	p.X.Label.Text = "amplitude"
	p.Y.Label.Text = "samples"

	p.Add(hplot.NewH1D(h), hplot.NewGrid())

	err := p.Save(15*vg.Centimeter, -1, fname)
	if err != nil {
		return fmt.Errorf("could not save plot to %q: %w", fname, err)
	}
	log.Printf("wrote amplitude histogram to %q", fname)
	return nil
}
