// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cabac

import "github.com/cnotch/hevcdec/utils/bits"

// Encoder is an arithmetic encoder producing bins the Decoder reads back.
// It is used to synthesise slice data.
type Encoder struct {
	w            *bits.Writer
	low          uint32
	rng          uint32
	bitsLeft     int
	bufferedByte uint32
	numBuffered  int
}

// NewEncoder returns an encoder appending to w.
func NewEncoder(w *bits.Writer) *Encoder {
	e := &Encoder{w: w}
	e.Reset()
	return e
}

// Reset restarts the engine, after Finish and the byte alignment of a
// substream or PCM samples.
func (e *Encoder) Reset() {
	e.low = 0
	e.rng = 510
	e.bitsLeft = 23
	e.bufferedByte = 0xff
	e.numBuffered = 0
}

// Writer returns the underlying bit writer.
func (e *Encoder) Writer() *bits.Writer {
	return e.w
}

// EncodeBit encodes a context coded bin.
func (e *Encoder) EncodeBit(ctx *Context, bin int) {
	lps := uint32(rangeTabLps[ctx.State][(e.rng>>6)&3])
	e.rng -= lps

	if bin != int(ctx.MPS) {
		numBits := uint(renormTable[lps>>3])
		e.low = (e.low + e.rng) << numBits
		e.rng = lps << numBits
		if ctx.State == 0 {
			ctx.MPS = 1 - ctx.MPS
		}
		ctx.State = transIdxLps[ctx.State]
		e.bitsLeft -= int(numBits)
	} else {
		ctx.State = transIdxMps[ctx.State]
		if e.rng >= 256 {
			return
		}
		e.low <<= 1
		e.rng <<= 1
		e.bitsLeft--
	}
	e.testAndWriteOut()
}

// EncodeBypass encodes an equiprobable bin.
func (e *Encoder) EncodeBypass(bin int) {
	e.low <<= 1
	if bin != 0 {
		e.low += e.rng
	}
	e.bitsLeft--
	e.testAndWriteOut()
}

// EncodeBypassBits encodes the low n bits of v, MSB first.
func (e *Encoder) EncodeBypassBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		e.EncodeBypass(int(v>>uint(i)) & 1)
	}
}

// EncodeTerminate encodes a terminating bin.
func (e *Encoder) EncodeTerminate(bin int) {
	e.rng -= 2
	if bin != 0 {
		e.low += e.rng
		e.low <<= 7
		e.rng = 2 << 7
		e.bitsLeft -= 7
	} else if e.rng >= 256 {
		return
	} else {
		e.low <<= 1
		e.rng <<= 1
		e.bitsLeft--
	}
	e.testAndWriteOut()
}

// EncodeExpGolombBypass encodes v as a k-th order Exp-Golomb bypass value.
func (e *Encoder) EncodeExpGolombBypass(v uint32, k int) {
	for v >= 1<<uint(k) {
		e.EncodeBypass(1)
		v -= 1 << uint(k)
		k++
	}
	e.EncodeBypass(0)
	e.EncodeBypassBits(v, k)
}

// EncodeCoeffAbsLevelRemaining encodes coeff_abs_level_remaining.
func (e *Encoder) EncodeCoeffAbsLevelRemaining(v, rice int) {
	if v < 4<<uint(rice) {
		prefix := v >> uint(rice)
		for i := 0; i < prefix; i++ {
			e.EncodeBypass(1)
		}
		e.EncodeBypass(0)
		e.EncodeBypassBits(uint32(v), rice)
		return
	}

	q := v>>uint(rice) - 2
	n := 0
	for q > 1 {
		q >>= 1
		n++
	}
	prefix := n + 3
	for i := 0; i < prefix; i++ {
		e.EncodeBypass(1)
	}
	e.EncodeBypass(0)
	suffix := v - ((1<<uint(n))+2)<<uint(rice)
	e.EncodeBypassBits(uint32(suffix), n+rice)
}

// Finish flushes the codeword. The caller then writes the stop bit and
// the alignment bits.
func (e *Encoder) Finish() {
	if e.low>>uint(32-e.bitsLeft) != 0 {
		e.w.Write(uint64(e.bufferedByte+1), 8)
		for e.numBuffered > 1 {
			e.w.Write(0x00, 8)
			e.numBuffered--
		}
		e.low -= 1 << uint(32-e.bitsLeft)
	} else {
		if e.numBuffered > 0 {
			e.w.Write(uint64(e.bufferedByte), 8)
		}
		for e.numBuffered > 1 {
			e.w.Write(0xff, 8)
			e.numBuffered--
		}
	}
	e.w.Write(uint64(e.low>>8), 24-e.bitsLeft)
}

func (e *Encoder) testAndWriteOut() {
	if e.bitsLeft < 12 {
		e.writeOut()
	}
}

func (e *Encoder) writeOut() {
	leadByte := e.low >> uint(24-e.bitsLeft)
	e.bitsLeft += 8
	e.low &= 0xffffffff >> uint(e.bitsLeft)

	if leadByte == 0xff {
		e.numBuffered++
		return
	}
	if e.numBuffered == 0 {
		e.numBuffered = 1
		e.bufferedByte = leadByte
		return
	}

	carry := leadByte >> 8
	e.w.Write(uint64(e.bufferedByte+carry), 8)
	e.bufferedByte = leadByte & 0xff
	b := (0xff + carry) & 0xff
	for e.numBuffered > 1 {
		e.w.Write(uint64(b), 8)
		e.numBuffered--
	}
}
