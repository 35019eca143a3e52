// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decibel converts between decibel levels and linear power,
// amplitude and voltage ratios for audio signal levels.
package decibel // import "github.com/fruitjam/tlv320/decibel"

import "math"

// Common reference levels, in dBV (decibels relative to 1 Vrms).
const (
	// ConsumerLine is the nominal consumer line level (-10 dBV,
	// about 0.316 Vrms).
	ConsumerLine = -10.0

	// ProLine is the nominal professional line level (+4 dBu,
	// about 1.228 Vrms), expressed in dBV.
	ProLine = 4.0 + dBuToDBV

	// dBu references 0.775 Vrms (1 mW into 600 ohm) instead of 1 Vrms.
	dBuToDBV = -2.2184874961635637
)

// PowerRatio returns the level of power p2 relative to power p1, in dB:
// 10*log10(p2/p1). Both powers must be positive.
func PowerRatio(p1, p2 float64) float64 {
	return 10 * math.Log10(p2/p1)
}

// AmplitudeRatio returns the level of amplitude a2 relative to
// amplitude a1, in dB: 20*log10(a2/a1). Both amplitudes must be
// positive. The factor of 20 follows from power being proportional to
// the square of the amplitude.
func AmplitudeRatio(a1, a2 float64) float64 {
	return 20 * math.Log10(a2/a1)
}

// PowerGain returns the linear power ratio for a level in dB:
// 10^(dB/10).
func PowerGain(dB float64) float64 {
	return math.Pow(10, dB/10)
}

// AmplitudeGain returns the linear amplitude ratio for a level in dB:
// 10^(dB/20). It is the inverse of AmplitudeRatio with a1=1.
func AmplitudeGain(dB float64) float64 {
	return math.Pow(10, dB/20)
}

// Volts returns the RMS voltage of a signal at the given dBV level
// (decibels relative to 1 Vrms).
func Volts(dBV float64) float64 {
	return AmplitudeGain(dBV)
}

// VoltsPeak returns the peak voltage of a sine wave at the given dBV
// level: Vrms * sqrt(2).
func VoltsPeak(dBV float64) float64 {
	return Volts(dBV) * math.Sqrt2
}
