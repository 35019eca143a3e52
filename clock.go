// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv320

import "fmt"

// ClockConfig holds the PLL and divider settings that derive the DAC
// clock tree from the I2S bit clock.
//
// The I2S controller drives 32-bit slots whatever the sample width, so
// BCLK runs at 64 x Fs. The PLL multiplies that reference into the
// 80-110 MHz window required by the DAC (PLL_CLK = BCLK x J.D x R / P)
// and the NDAC/MDAC/DOSR dividers bring it back down to the sample
// rate: Fs = PLL_CLK / (NDAC x MDAC x DOSR).
type ClockConfig struct {
	Rate int // sample rate (Hz)
	Bits int // sample width (bits)

	P, R, J uint8
	D       uint16

	NDAC, MDAC uint8
	DOSR       uint16
}

// BCLK returns the bit-clock frequency in Hz for this configuration.
func (cfg ClockConfig) BCLK() int { return 64 * cfg.Rate }

// PLL returns the PLL output frequency in Hz for this configuration.
func (cfg ClockConfig) PLL() float64 {
	j := float64(cfg.J) + float64(cfg.D)/10000
	return float64(cfg.BCLK()) * j * float64(cfg.R) / float64(cfg.P)
}

// clkCfgs lists the supported BCLK-referenced configurations, 16-bit
// samples in 32-bit slots. All share P=1, D=0, MDAC=4 and DOSR=128;
// J, R and NDAC track the sample-rate family.
var clkCfgs = []ClockConfig{
	{Rate: 8000, Bits: 16, P: 1, R: 4, J: 48, NDAC: 24, MDAC: 4, DOSR: 128},
	{Rate: 11025, Bits: 16, P: 1, R: 4, J: 32, NDAC: 16, MDAC: 4, DOSR: 128},
	{Rate: 12000, Bits: 16, P: 1, R: 4, J: 32, NDAC: 16, MDAC: 4, DOSR: 128},
	{Rate: 16000, Bits: 16, P: 1, R: 2, J: 48, NDAC: 12, MDAC: 4, DOSR: 128},
	{Rate: 22050, Bits: 16, P: 1, R: 2, J: 32, NDAC: 8, MDAC: 4, DOSR: 128},
	{Rate: 24000, Bits: 16, P: 1, R: 2, J: 32, NDAC: 8, MDAC: 4, DOSR: 128},
	{Rate: 32000, Bits: 16, P: 1, R: 1, J: 48, NDAC: 6, MDAC: 4, DOSR: 128},
	{Rate: 44100, Bits: 16, P: 1, R: 1, J: 32, NDAC: 4, MDAC: 4, DOSR: 128},
	{Rate: 48000, Bits: 16, P: 1, R: 1, J: 32, NDAC: 4, MDAC: 4, DOSR: 128},
}

// ClockConfigFor returns the clock configuration for the given sample
// rate and bit depth.
func ClockConfigFor(rate, bits int) (ClockConfig, error) {
	for _, cfg := range clkCfgs {
		if cfg.Rate == rate && cfg.Bits == bits {
			return cfg, nil
		}
	}
	return ClockConfig{}, fmt.Errorf(
		"tlv320: unsupported clock configuration (rate=%d Hz, bits=%d)",
		rate, bits,
	)
}
