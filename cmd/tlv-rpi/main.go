// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tlv-rpi starts a TDAQ server driving a TLV320DAC3100 wired to
// the I2C bus of a Linux SBC. The optional arguments select the volume
// preset and the I2C bus number:
//
//	$> tlv-rpi <tdaq flags> [PRESET [BUS]]
package main // import "github.com/fruitjam/tlv320/cmd/tlv-rpi"

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/fruitjam/tlv320"
)

func main() {
	cmd := flags.New()

	brd := &board{
		bus:    1,
		preset: tlv320.LineLevel,
		rate:   11025,
		bits:   16,
	}
	if len(cmd.Args) > 0 {
		p, err := tlv320.PresetByName(cmd.Args[0])
		if err != nil {
			log.Fatalf("tlv-rpi: %+v", err)
		}
		brd.preset = p
	}
	if len(cmd.Args) > 1 {
		bus, err := strconv.Atoi(cmd.Args[1])
		if err != nil {
			log.Fatalf("tlv-rpi: could not parse bus number %q: %+v", cmd.Args[1], err)
		}
		brd.bus = bus
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", brd.OnConfig)
	srv.CmdHandle("/init", brd.OnInit)
	srv.CmdHandle("/reset", brd.OnReset)
	srv.CmdHandle("/start", brd.OnStart)
	srv.CmdHandle("/stop", brd.OnStop)
	srv.CmdHandle("/quit", brd.OnQuit)

	srv.RunHandle(brd.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type board struct {
	bus    int
	preset tlv320.Preset
	rate   int
	bits   int

	mu  sync.Mutex
	dev *tlv320.Device
}

func (brd *board) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	brd.mu.Lock()
	defer brd.mu.Unlock()

	if brd.dev == nil {
		dev, err := tlv320.Open(brd.bus)
		if err != nil {
			return err
		}
		brd.dev = dev
	}
	err := brd.dev.Probe()
	if err != nil {
		return err
	}
	ctx.Msg.Infof("dac answering on bus %d, preset %q", brd.bus, brd.preset.Name)
	return nil
}

func (brd *board) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	brd.mu.Lock()
	defer brd.mu.Unlock()

	if brd.dev == nil {
		return fmt.Errorf("dac not configured")
	}
	return brd.dev.Init(brd.rate, brd.bits, brd.preset)
}

func (brd *board) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	brd.mu.Lock()
	defer brd.mu.Unlock()

	if brd.dev == nil {
		return nil
	}
	return brd.dev.Reset()
}

func (brd *board) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	brd.mu.Lock()
	defer brd.mu.Unlock()

	if brd.dev == nil {
		return fmt.Errorf("dac not configured")
	}
	return brd.dev.Unmute()
}

func (brd *board) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	brd.mu.Lock()
	defer brd.mu.Unlock()

	if brd.dev == nil {
		return nil
	}
	return brd.dev.Mute()
}

func (brd *board) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	brd.mu.Lock()
	defer brd.mu.Unlock()

	if brd.dev == nil {
		return nil
	}
	err := brd.dev.Close()
	brd.dev = nil
	return err
}

// run polls the over-temperature flag while the server is up.
func (brd *board) run(ctx tdaq.Context) error {
	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tick.C:
			brd.mu.Lock()
			dev := brd.dev
			brd.mu.Unlock()
			if dev == nil {
				continue
			}
			err := dev.Probe()
			if err != nil {
				ctx.Msg.Warnf("dac heartbeat failed: %+v", err)
			}
		}
	}
}
