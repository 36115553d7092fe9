// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cabac implements the arithmetic decoding engine of H.265 (9.3.4.3)
// and an encoder producing the same bins.
package cabac

// Context is a context variable: probability state and most probable symbol.
type Context struct {
	State uint8
	MPS   uint8
}

// Decoder is the arithmetic decoding engine.
//
// The offset register holds up to 16 bits ahead of the 9 bits used by the
// standard; bitsNeeded counts down to the next byte fetch.
type Decoder struct {
	data       []byte
	pos        int
	value      uint32
	rng        uint32
	bitsNeeded int
	overrun    int
}

// NewDecoder returns a decoder initialised at the start of data.
func NewDecoder(data []byte) *Decoder {
	d := &Decoder{}
	d.Init(data, 0)
	return d
}

// Init (re)starts the engine at data[pos:] (9.3.2.5).
func (d *Decoder) Init(data []byte, pos int) {
	d.data = data
	d.pos = pos
	d.overrun = 0
	d.Reset()
}

// Reset restarts the engine at the current byte position, after a
// terminating bin or PCM samples.
func (d *Decoder) Reset() {
	d.rng = 510
	d.bitsNeeded = -8
	d.value = uint32(d.nextByte()) << 8
	d.value |= uint32(d.nextByte())
}

// Pos returns the index of the next byte not yet loaded into the engine.
// After a terminating bin equal to 1 it is the first byte of the
// following byte aligned data.
func (d *Decoder) Pos() int {
	return d.pos
}

// Data returns the buffer the engine reads from.
func (d *Decoder) Data() []byte {
	return d.data
}

// Overrun returns the number of bytes requested beyond the end of data.
func (d *Decoder) Overrun() int {
	return d.overrun
}

func (d *Decoder) nextByte() byte {
	if d.pos < len(d.data) {
		b := d.data[d.pos]
		d.pos++
		return b
	}
	d.overrun++
	return 0
}

// DecodeBit decodes a context coded bin (9.3.4.3.2).
func (d *Decoder) DecodeBit(ctx *Context) int {
	lps := uint32(rangeTabLps[ctx.State][(d.rng>>6)-4])
	d.rng -= lps
	scaledRange := d.rng << 7

	if d.value < scaledRange {
		// MPS path
		bit := int(ctx.MPS)
		ctx.State = transIdxMps[ctx.State]
		if scaledRange < 256<<7 {
			d.rng = scaledRange >> 6
			d.value <<= 1
			d.bitsNeeded++
			if d.bitsNeeded == 0 {
				d.bitsNeeded = -8
				d.value |= uint32(d.nextByte())
			}
		}
		return bit
	}

	// LPS path
	numBits := uint(renormTable[lps>>3])
	d.value = (d.value - scaledRange) << numBits
	d.rng = lps << numBits
	bit := 1 - int(ctx.MPS)
	if ctx.State == 0 {
		ctx.MPS = 1 - ctx.MPS
	}
	ctx.State = transIdxLps[ctx.State]
	d.bitsNeeded += int(numBits)
	if d.bitsNeeded >= 0 {
		d.value |= uint32(d.nextByte()) << uint(d.bitsNeeded)
		d.bitsNeeded -= 8
	}
	return bit
}

// DecodeTerminate decodes end_of_slice_segment_flag, end_of_subset_one_bit
// and pcm_flag (9.3.4.3.5).
func (d *Decoder) DecodeTerminate() int {
	d.rng -= 2
	scaledRange := d.rng << 7
	if d.value >= scaledRange {
		return 1
	}
	if scaledRange < 256<<7 {
		d.rng = scaledRange >> 6
		d.value <<= 1
		d.bitsNeeded++
		if d.bitsNeeded == 0 {
			d.bitsNeeded = -8
			d.value |= uint32(d.nextByte())
		}
	}
	return 0
}

// DecodeBypass decodes an equiprobable bin (9.3.4.3.4).
func (d *Decoder) DecodeBypass() int {
	d.value <<= 1
	d.bitsNeeded++
	if d.bitsNeeded >= 0 {
		d.bitsNeeded = -8
		d.value |= uint32(d.nextByte())
	}

	scaledRange := d.rng << 7
	if d.value >= scaledRange {
		d.value -= scaledRange
		return 1
	}
	return 0
}

// DecodeBypassBits decodes a fixed-length bypass value, MSB first.
func (d *Decoder) DecodeBypassBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(d.DecodeBypass())
	}
	return v
}

// DecodeExpGolombBypass decodes a k-th order Exp-Golomb bypass value
// (9.3.3.12).
func (d *Decoder) DecodeExpGolombBypass(k int) uint32 {
	var base uint32
	for d.DecodeBypass() == 1 && k < 32 {
		base += 1 << uint(k)
		k++
	}
	return base + d.DecodeBypassBits(k)
}

// DecodeCoeffAbsLevelRemaining decodes coeff_abs_level_remaining with the
// Rice parameter rice (9.3.3.11).
func (d *Decoder) DecodeCoeffAbsLevelRemaining(rice int) int {
	prefix := 0
	for prefix < 32 && d.DecodeBypass() == 1 {
		prefix++
	}
	if prefix <= 3 {
		return prefix<<uint(rice) + int(d.DecodeBypassBits(rice))
	}
	suffix := int(d.DecodeBypassBits(prefix - 3 + rice))
	return ((1<<uint(prefix-3))+3-1)<<uint(rice) + suffix
}
