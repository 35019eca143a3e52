// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv320

import (
	"fmt"
	"time"

	"github.com/fruitjam/tlv320/internal/regs"
	"github.com/go-daq/smbus"
)

// Bus is the subset of an smbus connection the TLV320 driver needs.
// *smbus.Conn implements Bus; tests substitute an in-memory one.
type Bus interface {
	ReadReg(addr, reg uint8) (uint8, error)
	WriteReg(addr, reg, v uint8) error
	Close() error
}

var _ Bus = (*smbus.Conn)(nil)

// Device drives a TLV320DAC3100 over I2C.
//
// The chip exposes its registers through pages selected with the page
// control register at offset 0 of every page. Device tracks the
// selected page and only rewrites it on page changes.
type Device struct {
	bus  Bus
	addr uint8
	page uint8

	sleep func(time.Duration)
}

// Option configures a Device.
type Option func(*Device)

// WithAddr sets the I2C address of the DAC (default 0x18).
func WithAddr(addr uint8) Option {
	return func(dev *Device) {
		dev.addr = addr
	}
}

// WithBus makes the device use the provided bus connection instead of
// opening /dev/i2c-N.
func WithBus(bus Bus) Option {
	return func(dev *Device) {
		dev.bus = bus
	}
}

// Open opens the TLV320DAC3100 on the given I2C bus number.
func Open(bus int, opts ...Option) (*Device, error) {
	dev := &Device{
		addr:  regs.I2CAddr,
		page:  0xff, // unknown. force a page select on first access.
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(dev)
	}

	if dev.bus == nil {
		conn, err := smbus.Open(bus, dev.addr)
		if err != nil {
			return nil, fmt.Errorf("tlv320: could not open i2c-%d: %w", bus, err)
		}
		dev.bus = conn
	}

	return dev, nil
}

// Close closes the underlying bus connection.
func (dev *Device) Close() error {
	err := dev.bus.Close()
	if err != nil {
		return fmt.Errorf("tlv320: could not close i2c bus: %w", err)
	}
	return nil
}

func (dev *Device) setPage(page uint8) error {
	if dev.page == page {
		return nil
	}
	err := dev.bus.WriteReg(dev.addr, regs.PAGE_CTRL, page)
	if err != nil {
		return fmt.Errorf("tlv320: could not select page %d: %w", page, err)
	}
	dev.page = page
	return nil
}

func (dev *Device) write(page, reg, v uint8) error {
	err := dev.setPage(page)
	if err != nil {
		return err
	}
	err = dev.bus.WriteReg(dev.addr, reg, v)
	if err != nil {
		return fmt.Errorf(
			"tlv320: could not write 0x%02x to P%d/R%d: %w",
			v, page, reg, err,
		)
	}
	return nil
}

func (dev *Device) read(page, reg uint8) (uint8, error) {
	err := dev.setPage(page)
	if err != nil {
		return 0, err
	}
	v, err := dev.bus.ReadReg(dev.addr, reg)
	if err != nil {
		return 0, fmt.Errorf("tlv320: could not read P%d/R%d: %w", page, reg, err)
	}
	return v, nil
}

// Probe checks that a TLV320DAC3100 answers on the bus, reading the
// over-temperature flag register (reset value has bit 1 set).
func (dev *Device) Probe() error {
	v, err := dev.read(0, regs.P0_OT_FLAG)
	if err != nil {
		return fmt.Errorf("tlv320: could not probe device 0x%02x: %w", dev.addr, err)
	}
	if v&0x02 == 0 {
		return fmt.Errorf("tlv320: unexpected OT-flag value 0x%02x from device 0x%02x", v, dev.addr)
	}
	return nil
}

// Reset performs a software reset and waits for the chip to settle.
func (dev *Device) Reset() error {
	err := dev.write(0, regs.P0_SW_RESET, regs.RESET)
	if err != nil {
		return fmt.Errorf("tlv320: could not reset device: %w", err)
	}
	dev.page = 0
	dev.sleep(10 * time.Millisecond)
	return nil
}

// ConfigureClocks programs the PLL and the DAC clock dividers for the
// given sample rate and bit depth, with BCLK as the PLL reference.
func (dev *Device) ConfigureClocks(rate, bits int) error {
	cfg, err := ClockConfigFor(rate, bits)
	if err != nil {
		return err
	}

	for _, rv := range []struct {
		reg uint8
		v   uint8
	}{
		{regs.P0_CLK_MUX, regs.PLL_CLKIN_BCLK | regs.CODEC_CLKIN_PLL},
		{regs.P0_PLL_P_R, regs.PLL_PWR | cfg.P<<4 | cfg.R},
		{regs.P0_PLL_J, cfg.J},
		{regs.P0_PLL_D_MSB, uint8(cfg.D >> 8)},
		{regs.P0_PLL_D_LSB, uint8(cfg.D)},
		{regs.P0_NDAC, regs.NDAC_PWR | cfg.NDAC},
		{regs.P0_MDAC, regs.MDAC_PWR | cfg.MDAC},
		{regs.P0_DOSR_MSB, uint8(cfg.DOSR >> 8)},
		{regs.P0_DOSR_LSB, uint8(cfg.DOSR)},
		{regs.P0_IFACE1, regs.IFACE_I2S_16},
	} {
		err := dev.write(0, rv.reg, rv.v)
		if err != nil {
			return fmt.Errorf("tlv320: could not configure clocks (rate=%d, bits=%d): %w",
				rate, bits, err,
			)
		}
	}

	// PLL start-up time, per datasheet section 10.3.9.1.
	dev.sleep(10 * time.Millisecond)
	return nil
}

// SetDACVolume sets the left and right digital DAC volumes, in dB.
// The range is [-63.5, +24] dB in half-dB steps.
func (dev *Device) SetDACVolume(dB float64) error {
	v := DACVolume(dB)
	err := dev.write(0, regs.P0_DAC_LVOL, v)
	if err == nil {
		err = dev.write(0, regs.P0_DAC_RVOL, v)
	}
	if err != nil {
		return fmt.Errorf("tlv320: could not set DAC volume to %v dB: %w", dB, err)
	}
	return nil
}

// SetHeadphoneVolume sets the left and right analog headphone volumes,
// in dB. The range is [-78.3, 0] dB per Table 6-24.
func (dev *Device) SetHeadphoneVolume(dB float64) error {
	v := regs.VOL_A_EN | AnalogVolume(dB)
	err := dev.write(1, regs.P1_HPL_VOL_A, v)
	if err == nil {
		err = dev.write(1, regs.P1_HPR_VOL_A, v)
	}
	if err != nil {
		return fmt.Errorf("tlv320: could not set headphone volume to %v dB: %w", dB, err)
	}
	return nil
}

// SetSpeakerVolume sets the analog speaker volume, in dB.
func (dev *Device) SetSpeakerVolume(dB float64) error {
	err := dev.write(1, regs.P1_SPK_VOL_A, regs.VOL_A_EN|AnalogVolume(dB))
	if err != nil {
		return fmt.Errorf("tlv320: could not set speaker volume to %v dB: %w", dB, err)
	}
	return nil
}

// SetHeadphoneEnabled powers the headphone drivers up or down and
// unmutes (resp. mutes) their output stages.
func (dev *Device) SetHeadphoneEnabled(on bool) error {
	var (
		pwr uint8
		drv uint8
	)
	if on {
		pwr = regs.HP_L_PWR | regs.HP_R_PWR | regs.HP_CM
		drv = regs.DRIVER_UNMUTE
	}
	for _, rv := range []struct {
		reg uint8
		v   uint8
	}{
		{regs.P1_HP_DRIVERS, pwr},
		{regs.P1_HPL_DRIVER, drv},
		{regs.P1_HPR_DRIVER, drv},
	} {
		err := dev.write(1, rv.reg, rv.v)
		if err != nil {
			return fmt.Errorf("tlv320: could not switch headphone output (on=%v): %w", on, err)
		}
	}
	return nil
}

// SetSpeakerEnabled powers the class-D speaker amplifier up or down and
// unmutes (resp. mutes) its driver.
func (dev *Device) SetSpeakerEnabled(on bool) error {
	var (
		amp uint8
		drv uint8
	)
	if on {
		amp = regs.SPK_PWR
		drv = regs.DRIVER_UNMUTE | regs.DRIVER_PWR
	}
	err := dev.write(1, regs.P1_SPK_AMP, amp)
	if err == nil {
		err = dev.write(1, regs.P1_SPK_DRIVER, drv)
	}
	if err != nil {
		return fmt.Errorf("tlv320: could not switch speaker output (on=%v): %w", on, err)
	}
	return nil
}

// Mute mutes both DAC channels.
func (dev *Device) Mute() error {
	err := dev.write(0, regs.P0_DAC_MUTE, regs.DAC_L_MUTE|regs.DAC_R_MUTE)
	if err != nil {
		return fmt.Errorf("tlv320: could not mute: %w", err)
	}
	return nil
}

// Unmute unmutes both DAC channels.
func (dev *Device) Unmute() error {
	err := dev.write(0, regs.P0_DAC_MUTE, 0)
	if err != nil {
		return fmt.Errorf("tlv320: could not unmute: %w", err)
	}
	return nil
}

// Init brings the DAC from reset to a playing state for the given
// preset: reset, clock tree, datapath, output routing, volumes.
func (dev *Device) Init(rate, bits int, p Preset) error {
	err := dev.Reset()
	if err != nil {
		return err
	}

	err = dev.ConfigureClocks(rate, bits)
	if err != nil {
		return err
	}

	err = dev.write(0, regs.P0_DAC_SETUP, regs.DAC_L_PWR|regs.DAC_R_PWR|regs.DAC_PATHS)
	if err != nil {
		return fmt.Errorf("tlv320: could not power up DAC datapath: %w", err)
	}

	err = dev.write(1, regs.P1_OUT_ROUTING, regs.MIX_DAC_L|regs.MIX_DAC_R)
	if err != nil {
		return fmt.Errorf("tlv320: could not route DAC to output mixers: %w", err)
	}

	return dev.Apply(p)
}

// Apply configures the output stages and volumes of the given preset.
// The speaker stays muted with line-level presets.
func (dev *Device) Apply(p Preset) error {
	err := dev.SetDACVolume(p.DACVolumeDB)
	if err != nil {
		return err
	}
	err = dev.SetHeadphoneVolume(p.HeadphoneVolumeDB)
	if err != nil {
		return err
	}
	err = dev.SetHeadphoneEnabled(true)
	if err != nil {
		return err
	}
	err = dev.SetSpeakerEnabled(false)
	if err != nil {
		return err
	}
	return dev.Unmute()
}
