// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv320

import (
	"fmt"
	"testing"
)

func TestClockConfigFor(t *testing.T) {
	for _, cfg := range clkCfgs {
		t.Run(fmt.Sprintf("%d", cfg.Rate), func(t *testing.T) {
			got, err := ClockConfigFor(cfg.Rate, 16)
			if err != nil {
				t.Fatalf("could not get clock config: %+v", err)
			}
			if got != cfg {
				t.Fatalf("invalid clock config:\ngot= %#v\nwant=%#v", got, cfg)
			}

			// The divider chain must reproduce the sample rate:
			// BCLK x J.D x R / P == Fs x NDAC x MDAC x DOSR,
			// ie. 64 x J.D x R / P == NDAC x MDAC x DOSR.
			lhs := 64 * (float64(cfg.J) + float64(cfg.D)/10000) * float64(cfg.R) / float64(cfg.P)
			rhs := float64(cfg.NDAC) * float64(cfg.MDAC) * float64(cfg.DOSR)
			if lhs != rhs {
				t.Fatalf("broken divider chain: 64*J.D*R/P=%v, NDAC*MDAC*DOSR=%v", lhs, rhs)
			}

			// PLL output must sit in the 80-110 MHz window.
			if pll := cfg.PLL(); pll < 80e6 || pll > 110e6 {
				t.Fatalf("PLL out of range: %v Hz", pll)
			}
		})
	}
}

func TestClockConfigForUnsupported(t *testing.T) {
	for _, tc := range []struct {
		rate, bits int
	}{
		{rate: 96000, bits: 16},
		{rate: 44100, bits: 24},
		{rate: 0, bits: 16},
	} {
		t.Run(fmt.Sprintf("%d-%d", tc.rate, tc.bits), func(t *testing.T) {
			_, err := ClockConfigFor(tc.rate, tc.bits)
			if err == nil {
				t.Fatalf("expected an error for rate=%d, bits=%d", tc.rate, tc.bits)
			}
		})
	}
}
