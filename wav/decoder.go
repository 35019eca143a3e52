// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Decoder reads PCM16 RIFF/WAVE sounds from an input stream.
type Decoder struct {
	r   io.Reader
	buf []byte
	err error
}

// NewDecoder returns a new Decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 8),
	}
}

// Decode reads the next RIFF/WAVE sound from the stream into snd.
// Only 16-bit PCM data is supported.
func (dec *Decoder) Decode(snd *Sound) error {
	if tag := dec.readTag(); tag != tagRIFF {
		if dec.err != nil {
			return dec.err
		}
		return fmt.Errorf("wav: invalid RIFF header %q", tag)
	}
	_ = dec.readU32() // total chunk size
	if tag := dec.readTag(); tag != tagWAVE {
		if dec.err == nil {
			dec.err = fmt.Errorf("wav: invalid WAVE header %q", tag)
		}
		return dec.err
	}

	var data []byte
	for {
		var (
			tag  = dec.readTag()
			size = dec.readU32()
		)
		if dec.err != nil {
			return fmt.Errorf("wav: could not read chunk header: %w", dec.err)
		}
		switch tag {
		case tagFmt:
			err := dec.decodeFmt(snd, int(size))
			if err != nil {
				return err
			}
		case tagData:
			data = make([]byte, size)
			_, dec.err = io.ReadFull(dec.r, data)
			if dec.err != nil {
				return fmt.Errorf("wav: could not read data chunk: %w", dec.err)
			}
		default:
			// skip unknown chunks (LIST, fact, ...)
			_, dec.err = io.CopyN(io.Discard, dec.r, int64(size))
			if dec.err != nil {
				return fmt.Errorf("wav: could not skip %q chunk: %w", tag, dec.err)
			}
		}
		if data != nil && snd.Rate != 0 {
			break
		}
	}

	snd.Samples = make([]int16, len(data)/2)
	for i := range snd.Samples {
		snd.Samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return nil
}

func (dec *Decoder) decodeFmt(snd *Sound, size int) error {
	if size < 16 {
		return fmt.Errorf("wav: invalid fmt chunk size %d", size)
	}
	var (
		format   = dec.readU16()
		channels = dec.readU16()
		rate     = dec.readU32()
		_        = dec.readU32() // byte rate
		_        = dec.readU16() // block align
		bits     = dec.readU16()
	)
	if dec.err != nil {
		return fmt.Errorf("wav: could not read fmt chunk: %w", dec.err)
	}
	if format != fmtPCM {
		return fmt.Errorf("wav: unsupported format %d", format)
	}
	if bits != bitsPerSample {
		return fmt.Errorf("wav: unsupported sample width %d bits", bits)
	}
	if size > 16 {
		_, dec.err = io.CopyN(io.Discard, dec.r, int64(size-16))
		if dec.err != nil {
			return fmt.Errorf("wav: could not skip fmt extension: %w", dec.err)
		}
	}
	snd.Channels = int(channels)
	snd.Rate = int(rate)
	return nil
}

func (dec *Decoder) read(p []byte) {
	if dec.err != nil {
		return
	}
	_, dec.err = io.ReadFull(dec.r, p)
}

func (dec *Decoder) readTag() string {
	const n = 4
	dec.read(dec.buf[:n])
	if dec.err != nil {
		return ""
	}
	return string(dec.buf[:n])
}

func (dec *Decoder) readU16() uint16 {
	const n = 2
	dec.read(dec.buf[:n])
	return binary.LittleEndian.Uint16(dec.buf[:n])
}

func (dec *Decoder) readU32() uint32 {
	const n = 4
	dec.read(dec.buf[:n])
	return binary.LittleEndian.Uint32(dec.buf[:n])
}
