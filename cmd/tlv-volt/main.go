// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tlv-volt converts between decibels, voltages and
// TLV320DAC3100 volume register codes. Each argument is a dB value;
// tlv-volt prints the matching DAC digital code, the analog headphone
// code with its actual table attenuation, the amplitude and power
// gains, and the line-out voltages at consumer and pro reference
// levels.
//
// Usage: tlv-volt [OPTIONS] dB [dB...]
//
// Example:
//
//	$> tlv-volt -- -44
//	$> tlv-volt -plot volumes.png
//	$> tlv-volt -apply -bus 1 -- -64
package main // import "github.com/fruitjam/tlv320/cmd/tlv-volt"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fruitjam/tlv320"
	"github.com/fruitjam/tlv320/decibel"
)

func main() {
	log.SetPrefix("tlv-volt: ")
	log.SetFlags(0)

	var (
		plot  = flag.String("plot", "", "write the analog volume transfer curve to this PNG file")
		apply = flag.Bool("apply", false, "apply the first dB value to the headphone volume over I2C")
		bus   = flag.Int("bus", 1, "I2C bus number for -apply")
		addr  = flag.Uint("addr", 0x18, "I2C device address for -apply")
	)

	flag.Usage = func() {
		fmt.Printf(`tlv-volt converts between decibels, voltages and TLV320DAC3100 volume
register codes.

Usage: tlv-volt [OPTIONS] dB [dB...]

Example:

 $> tlv-volt -- -44
 $> tlv-volt -plot volumes.png
 $> tlv-volt -apply -bus 1 -- -64

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	dBs := make([]float64, 0, flag.NArg())
	for _, arg := range flag.Args() {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			log.Fatalf("could not parse dB value %q: %+v", arg, err)
		}
		dBs = append(dBs, v)
	}
	if len(dBs) == 0 && *plot == "" {
		flag.Usage()
		log.Fatalf("missing dB value(s)")
	}

	err := run(os.Stdout, dBs)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	if *plot != "" {
		err = plotCurve(*plot)
		if err != nil {
			log.Fatalf("could not plot transfer curve: %+v", err)
		}
	}

	if *apply {
		err = applyVolume(*bus, uint8(*addr), dBs[0])
		if err != nil {
			log.Fatalf("could not apply volume: %+v", err)
		}
	}
}

func run(w io.Writer, dBs []float64) error {
	for _, dB := range dBs {
		var (
			dac = tlv320.DACVolume(dB)
			hp  = tlv320.AnalogVolume(dB)
		)
		fmt.Fprintf(w, "%+.1f dB:\n", dB)
		fmt.Fprintf(w, "  dac code:  0x%02x (%+.1f dB)\n", dac, tlv320.DACVolumeDB(dac))
		fmt.Fprintf(w, "  hp code:   %d (%+.1f dB)\n", hp, tlv320.AnalogVolumeDB(hp))
		fmt.Fprintf(w, "  amplitude: %.6g\n", decibel.AmplitudeGain(dB))
		fmt.Fprintf(w, "  power:     %.6g\n", decibel.PowerGain(dB))
		fmt.Fprintf(w, "  consumer line out: %.4g Vrms (%.4g Vpk)\n",
			decibel.Volts(decibel.ConsumerLine+dB),
			decibel.VoltsPeak(decibel.ConsumerLine+dB),
		)
		fmt.Fprintf(w, "  pro line out:      %.4g Vrms (%.4g Vpk)\n",
			decibel.Volts(decibel.ProLine+dB),
			decibel.VoltsPeak(decibel.ProLine+dB),
		)
	}
	return nil
}

// plotCurve draws the measured analog attenuation against the nominal
// half-dB-per-code line.
func plotCurve(fname string) error {
	var (
		table = make(plotter.XYs, 128)
		ideal = make(plotter.XYs, 128)
	)
	for code := 0; code < 128; code++ {
		table[code].X = float64(code)
		table[code].Y = tlv320.AnalogVolumeDB(uint8(code))
		ideal[code].X = float64(code)
		ideal[code].Y = -0.5 * float64(code)
	}

	p := hplot.New()
	p.Title.Text = "TLV320DAC3100 analog volume"
	p.X.Label.Text = "register code"
	p.Y.Label.Text = "attenuation (dB)"
	p.Add(hplot.NewGrid())

	ltab, err := plotter.NewLine(table)
	if err != nil {
		return fmt.Errorf("could not create table line: %w", err)
	}
	lid, err := plotter.NewLine(ideal)
	if err != nil {
		return fmt.Errorf("could not create ideal line: %w", err)
	}
	lid.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(ltab, lid)
	p.Legend.Add("table 6-24", ltab)
	p.Legend.Add("-code/2", lid)
	p.Legend.Top = true

	err = p.Save(15*vg.Centimeter, -1, fname)
	if err != nil {
		return fmt.Errorf("could not save plot to %q: %w", fname, err)
	}
	log.Printf("wrote transfer curve to %q", fname)
	return nil
}

func applyVolume(bus int, addr uint8, dB float64) error {
	dev, err := tlv320.Open(bus, tlv320.WithAddr(addr))
	if err != nil {
		return fmt.Errorf("could not open device on bus %d: %w", bus, err)
	}
	defer dev.Close()

	err = dev.SetHeadphoneVolume(dB)
	if err != nil {
		return err
	}
	log.Printf("headphone volume set to %+.1f dB (code %d)", dB, tlv320.AnalogVolume(dB))
	return nil
}
