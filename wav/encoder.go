// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encoder writes sounds to an output stream as PCM16 RIFF/WAVE.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
	}
}

// Encode writes the RIFF/WAVE encoding of snd to the stream.
func (enc *Encoder) Encode(snd *Sound) error {
	if snd == nil {
		return nil
	}
	if snd.Channels < 1 {
		return fmt.Errorf("wav: invalid channel count %d", snd.Channels)
	}
	if snd.Rate < 1 {
		return fmt.Errorf("wav: invalid sample rate %d", snd.Rate)
	}

	var (
		blockAlign = snd.Channels * bitsPerSample / 8
		byteRate   = snd.Rate * blockAlign
		dataSize   = 2 * len(snd.Samples)
	)

	enc.writeTag(tagRIFF)
	if enc.err != nil {
		return fmt.Errorf("wav: could not write RIFF header: %w", enc.err)
	}
	enc.writeU32(uint32(4 + 8 + 16 + 8 + dataSize))
	enc.writeTag(tagWAVE)

	enc.writeTag(tagFmt)
	enc.writeU32(16)
	enc.writeU16(fmtPCM)
	enc.writeU16(uint16(snd.Channels))
	enc.writeU32(uint32(snd.Rate))
	enc.writeU32(uint32(byteRate))
	enc.writeU16(uint16(blockAlign))
	enc.writeU16(bitsPerSample)

	enc.writeTag(tagData)
	enc.writeU32(uint32(dataSize))
	for _, v := range snd.Samples {
		enc.writeU16(uint16(v))
	}

	if enc.err != nil {
		return fmt.Errorf("wav: could not encode sound: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func (enc *Encoder) writeTag(tag string) {
	enc.write([]byte(tag))
}

func (enc *Encoder) writeU16(v uint16) {
	const n = 2
	binary.LittleEndian.PutUint16(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeU32(v uint32) {
	const n = 4
	binary.LittleEndian.PutUint32(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}
