// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv320

import "math"

// Digital volume limits for the left/right DAC volume-control registers
// (datasheet Tables 6-77 and 6-78), in dB.
const (
	MinDACVolumeDB = -63.5
	MaxDACVolumeDB = +24
)

// DACVolume converts a digital DAC volume in dB to the two's-complement
// register value of the DAC left/right volume-control registers
// (P0/R65 and P0/R66). The volume is encoded in half-dB steps; values
// outside [-63.5, +24] dB clip to the nearest bound.
func DACVolume(dB float64) uint8 {
	v := int(math.Round(dB * 2))
	switch {
	case v < -127:
		v = -127
	case v > 48:
		v = 48
	}
	return uint8(v & 0xff)
}

// DACVolumeDB is the inverse of DACVolume. Reserved register values
// (0x80 and 0x32..0x7f) are reported as the nearest valid volume.
func DACVolumeDB(v uint8) float64 {
	s := int(int8(v))
	switch {
	case s < -127:
		s = -127
	case s > 48:
		s = 48
	}
	return float64(s) / 2
}

// analogVolTable transcribes datasheet Table 6-24, "Analog Volume
// Control for Headphone and Speaker Outputs": analog gain in dB for
// each 7-bit register value of P1/R36, P1/R37 and P1/R38.
//
// The table is piecewise: a near-linear segment down to -52.7 dB
// (codes 0..105, roughly round(-1.99*dB - 0.2)), a curved segment down
// to -72.2 dB (codes 106..116), and a constant -78.3 dB tail
// (codes 117..127).
var analogVolTable = [128]float64{
	0, -0.5, -1, -1.5, -2, -2.5, -3, -3.5, -4, -4.5,
	-5, -5.5, -6, -6.5, -7, -7.5, -8, -8.5, -9, -9.5,
	-10, -10.5, -11, -11.5, -12, -12.5, -13, -13.5, -14, -14.5,
	-15, -15.5, -16, -16.5, -17, -17.5, -18.1, -18.6, -19.1, -19.6,
	-20.1, -20.6, -21.1, -21.6, -22.1, -22.6, -23.1, -23.6, -24.1, -24.6,
	-25.1, -25.6, -26.1, -26.6, -27.1, -27.6, -28.1, -28.6, -29.1, -29.6,
	-30.1, -30.6, -31.1, -31.6, -32.1, -32.6, -33.1, -33.6, -34.1, -34.6,
	-35.2, -35.7, -36.2, -36.7, -37.2, -37.7, -38.2, -38.7, -39.2, -39.7,
	-40.2, -40.7, -41.2, -41.7, -42.1, -42.7, -43.2, -43.8, -44.3, -44.8,
	-45.2, -45.8, -46.2, -46.7, -47.4, -47.9, -48.2, -48.7, -49.3, -50,
	-50.3, -51, -51.4, -51.8, -52.2, -52.7, -53.7, -54.2, -55.3, -56.7,
	-58.3, -60.2, -62.7, -64.3, -66.2, -68.7, -72.2, -78.3, -78.3, -78.3,
	-78.3, -78.3, -78.3, -78.3, -78.3, -78.3, -78.3, -78.3,
}

// Analog volume limits for the headphone/speaker analog volume-control
// registers (datasheet Table 6-24), in dB.
const (
	MinAnalogVolumeDB = -78.3
	MaxAnalogVolumeDB = 0
)

// AnalogVolume converts an analog gain in dB to the 7-bit register
// value of the headphone/speaker analog volume-control registers.
// Gains outside [-78.3, 0] dB clip to the nearest bound. The constant
// -78.3 dB tail of Table 6-24 is multivalued in this direction; the
// lowest code (117) is returned for it.
func AnalogVolume(dB float64) uint8 {
	switch {
	case dB < MinAnalogVolumeDB:
		dB = MinAnalogVolumeDB
	case dB > MaxAnalogVolumeDB:
		dB = MaxAnalogVolumeDB
	}

	var code uint8
	for i, tdB := range analogVolTable {
		switch {
		case dB == tdB:
			return uint8(i)
		case dB < tdB:
			code = uint8(i)
		default:
			return code
		}
	}
	return code
}

// AnalogVolumeDB converts a 7-bit analog volume register value back to
// the gain in dB, per Table 6-24. Values are clipped to [0, 127].
func AnalogVolumeDB(v uint8) float64 {
	if v > 127 {
		v = 127
	}
	return analogVolTable[v]
}
