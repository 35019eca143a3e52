// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the TLV320DAC3100 register addresses and bit masks
// used by the tlv320 device driver.
//
// Register names follow the datasheet (SLAS667) "Page N / Register M"
// layout. All registers are 8 bits wide and reached through the page
// select register at offset 0x00 of every page.
package regs // import "github.com/fruitjam/tlv320/internal/regs"

// I2CAddr is the 7-bit I2C address of the TLV320DAC3100.
const I2CAddr = 0x18

// Page 0: clocking, interface and digital datapath.
const (
	PAGE_CTRL = 0x00 // page select (valid on every page)

	P0_SW_RESET   = 0x01 // self-clearing software reset
	P0_OT_FLAG    = 0x03 // over-temperature flag
	P0_CLK_MUX    = 0x04 // PLL_CLKIN / CODEC_CLKIN muxing
	P0_PLL_P_R    = 0x05 // PLL power, P and R dividers
	P0_PLL_J      = 0x06 // PLL J multiplier
	P0_PLL_D_MSB  = 0x07 // PLL D fractional multiplier (MSB)
	P0_PLL_D_LSB  = 0x08 // PLL D fractional multiplier (LSB)
	P0_NDAC       = 0x0b // NDAC divider, bit 7 powers the divider
	P0_MDAC       = 0x0c // MDAC divider, bit 7 powers the divider
	P0_DOSR_MSB   = 0x0d // DAC oversampling ratio (MSB)
	P0_DOSR_LSB   = 0x0e // DAC oversampling ratio (LSB)
	P0_IFACE1     = 0x1b // audio interface: protocol, word length, dirs
	P0_DATA_SLOT  = 0x1c // data-slot offset
	P0_DAC_FLAG1  = 0x25 // DAC/HP/SPK power status flags
	P0_DAC_FLAG2  = 0x26 // soft-stepping status flags
	P0_DAC_SETUP  = 0x3f // Table 6-75: DAC datapath setup
	P0_DAC_MUTE   = 0x40 // Table 6-76: DAC volume control (mute bits)
	P0_DAC_LVOL   = 0x41 // Table 6-77: DAC left volume control
	P0_DAC_RVOL   = 0x42 // Table 6-78: DAC right volume control
	P0_VOL_ADC    = 0x74 // VOL/MICDET pin ADC reading
)

// Page 1: analog output drivers.
const (
	P1_HP_DRIVERS  = 0x1f // headphone driver power and common mode
	P1_SPK_AMP     = 0x20 // class-D speaker amplifier power
	P1_HP_POP      = 0x21 // headphone pop-removal timings
	P1_OUT_ROUTING = 0x23 // DAC to output-stage mixer routing
	P1_HPL_VOL_A   = 0x24 // Table 6-24: left analog volume to HPL
	P1_HPR_VOL_A   = 0x25 // Table 6-24: right analog volume to HPR
	P1_SPK_VOL_A   = 0x26 // Table 6-24: left analog volume to SPK
	P1_HPL_DRIVER  = 0x28 // HPL driver PGA gain and mute
	P1_HPR_DRIVER  = 0x29 // HPR driver PGA gain and mute
	P1_SPK_DRIVER  = 0x2a // SPK driver gain and mute
)

// Bit masks.
const (
	RESET = 0x01 // P0_SW_RESET: trigger reset

	PLL_CLKIN_BCLK = 0x04 // P0_CLK_MUX: PLL_CLKIN = BCLK
	CODEC_CLKIN_PLL = 0x03 // P0_CLK_MUX: CODEC_CLKIN = PLL_CLK

	PLL_PWR  = 0x80 // P0_PLL_P_R: PLL power up
	NDAC_PWR = 0x80 // P0_NDAC: divider power up
	MDAC_PWR = 0x80 // P0_MDAC: divider power up

	IFACE_I2S_16 = 0x00 // P0_IFACE1: I2S, 16-bit, BCLK/WCLK inputs

	DAC_L_PWR  = 0x80 // P0_DAC_SETUP: power up left DAC
	DAC_R_PWR  = 0x40 // P0_DAC_SETUP: power up right DAC
	DAC_PATHS  = 0x14 // P0_DAC_SETUP: L->left, R->right datapaths
	DAC_L_MUTE = 0x08 // P0_DAC_MUTE: mute left channel
	DAC_R_MUTE = 0x04 // P0_DAC_MUTE: mute right channel

	HP_L_PWR = 0x80 // P1_HP_DRIVERS: power up HPL
	HP_R_PWR = 0x40 // P1_HP_DRIVERS: power up HPR
	HP_CM    = 0x04 // P1_HP_DRIVERS: 1.65 V common mode (3.3 V AVdd)

	SPK_PWR = 0x80 // P1_SPK_AMP: power up class-D amplifier

	MIX_DAC_L = 0x40 // P1_OUT_ROUTING: left DAC to left mixer
	MIX_DAC_R = 0x04 // P1_OUT_ROUTING: right DAC to right mixer

	VOL_A_EN = 0x80 // P1_xxx_VOL_A: route analog volume stage

	DRIVER_UNMUTE = 0x04 // P1_xxx_DRIVER: unmute output stage
	DRIVER_PWR    = 0x02 // P1_SPK_DRIVER: enable speaker driver
)
