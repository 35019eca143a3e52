// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlv320

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fruitjam/tlv320/internal/regs"
)

type fakeBus struct {
	page uint8
	mem  map[[2]uint8]uint8
	log  []string
	err  error
}

func newFakeBus() *fakeBus {
	bus := &fakeBus{mem: make(map[[2]uint8]uint8)}
	// reset value of the OT-flag register.
	bus.mem[[2]uint8{0, regs.P0_OT_FLAG}] = 0x02
	return bus
}

func (bus *fakeBus) WriteReg(addr, reg, v uint8) error {
	if bus.err != nil {
		return bus.err
	}
	if addr != regs.I2CAddr {
		return fmt.Errorf("fake: invalid i2c address 0x%02x", addr)
	}
	if reg == regs.PAGE_CTRL {
		bus.page = v
		bus.log = append(bus.log, fmt.Sprintf("page %d", v))
		return nil
	}
	bus.mem[[2]uint8{bus.page, reg}] = v
	bus.log = append(bus.log, fmt.Sprintf("w[%d] 0x%02x=0x%02x", bus.page, reg, v))
	return nil
}

func (bus *fakeBus) ReadReg(addr, reg uint8) (uint8, error) {
	if bus.err != nil {
		return 0, bus.err
	}
	return bus.mem[[2]uint8{bus.page, reg}], nil
}

func (bus *fakeBus) Close() error { return nil }

func (bus *fakeBus) reg(page, reg uint8) uint8 {
	return bus.mem[[2]uint8{page, reg}]
}

func newTestDevice(t *testing.T, bus Bus) *Device {
	t.Helper()
	dev, err := Open(1, WithBus(bus))
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	dev.sleep = func(time.Duration) {}
	return dev
}

func TestDeviceProbe(t *testing.T) {
	bus := newFakeBus()
	dev := newTestDevice(t, bus)
	defer dev.Close()

	err := dev.Probe()
	if err != nil {
		t.Fatalf("could not probe device: %+v", err)
	}

	bus.mem[[2]uint8{0, regs.P0_OT_FLAG}] = 0
	dev.page = 0xff
	err = dev.Probe()
	if err == nil {
		t.Fatalf("expected a probe error")
	}
}

func TestDeviceInit(t *testing.T) {
	bus := newFakeBus()
	dev := newTestDevice(t, bus)
	defer dev.Close()

	err := dev.Init(11025, 16, LineLevel)
	if err != nil {
		t.Fatalf("could not initialize device: %+v", err)
	}

	for _, tc := range []struct {
		name string
		page uint8
		reg  uint8
		want uint8
	}{
		{"clk-mux", 0, regs.P0_CLK_MUX, 0x07},
		{"pll-p-r", 0, regs.P0_PLL_P_R, 0x80 | 1<<4 | 4},
		{"pll-j", 0, regs.P0_PLL_J, 32},
		{"ndac", 0, regs.P0_NDAC, 0x80 | 16},
		{"mdac", 0, regs.P0_MDAC, 0x80 | 4},
		{"dosr-msb", 0, regs.P0_DOSR_MSB, 0},
		{"dosr-lsb", 0, regs.P0_DOSR_LSB, 128},
		{"iface", 0, regs.P0_IFACE1, regs.IFACE_I2S_16},
		{"dac-setup", 0, regs.P0_DAC_SETUP, 0xd4},
		{"dac-mute", 0, regs.P0_DAC_MUTE, 0},
		{"dac-lvol", 0, regs.P0_DAC_LVOL, 0xa8}, // -44 dB
		{"dac-rvol", 0, regs.P0_DAC_RVOL, 0xa8},
		{"routing", 1, regs.P1_OUT_ROUTING, 0x44},
		{"hp-vol-l", 1, regs.P1_HPL_VOL_A, 0x80 | 112}, // -64 dB
		{"hp-vol-r", 1, regs.P1_HPR_VOL_A, 0x80 | 112},
		{"hp-drivers", 1, regs.P1_HP_DRIVERS, 0xc4},
		{"hpl-driver", 1, regs.P1_HPL_DRIVER, regs.DRIVER_UNMUTE},
		{"spk-amp", 1, regs.P1_SPK_AMP, 0},
		{"spk-driver", 1, regs.P1_SPK_DRIVER, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got, want := bus.reg(tc.page, tc.reg), tc.want; got != want {
				t.Fatalf("invalid P%d/R%#02x: got=%#02x, want=%#02x",
					tc.page, tc.reg, got, want,
				)
			}
		})
	}
}

func TestDevicePageTracking(t *testing.T) {
	bus := newFakeBus()
	dev := newTestDevice(t, bus)
	defer dev.Close()

	err := dev.SetDACVolume(-58)
	if err != nil {
		t.Fatalf("could not set DAC volume: %+v", err)
	}
	err = dev.SetHeadphoneVolume(-64)
	if err != nil {
		t.Fatalf("could not set headphone volume: %+v", err)
	}

	var selects int
	for _, op := range bus.log {
		if strings.HasPrefix(op, "page ") {
			selects++
		}
	}
	if got, want := selects, 2; got != want {
		t.Fatalf("invalid number of page selects: got=%d, want=%d\nlog: %v",
			got, want, bus.log,
		)
	}
}

func TestDeviceWriteError(t *testing.T) {
	bus := newFakeBus()
	dev := newTestDevice(t, bus)
	defer dev.Close()

	bus.err = fmt.Errorf("boom")
	if err := dev.SetDACVolume(0); err == nil {
		t.Fatalf("expected a write error")
	}
	if err := dev.Mute(); err == nil {
		t.Fatalf("expected a write error")
	}
}
