// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bits

const uintBitsCount = int(32 << (^uint(0) >> 63))

// Reader is a MSB-first bit reader over a RBSP.
// Reads beyond the end of the buffer panic; callers recover and report the
// syntax structure as invalid.
type Reader struct {
	buf    []byte
	offset int // bit base
}

// NewReader retruns a new Reader.
func NewReader(buf []byte) *Reader {
	return &Reader{
		buf: buf,
	}
}

// Offset returns the offset of bits.
func (r *Reader) Offset() int {
	return r.offset
}

// ByteAligned reports whether the read position is on a byte boundary.
func (r *Reader) ByteAligned() bool {
	return r.offset&0x7 == 0
}

// AlignByte skips to the next byte boundary.
func (r *Reader) AlignByte() {
	r.offset = (r.offset + 7) &^ 7
}

// Skip skip n bits.
func (r *Reader) Skip(n int) {
	if n <= 0 {
		return
	}
	_ = r.buf[(r.offset+n-1)>>3] // bounds check hint to compiler; see golang.org/issue/14808
	r.offset += n
}

// Peek returns the next n bits without consuming them.
func (r *Reader) Peek(n int) uint64 {
	clone := *r
	return clone.readUint64(n, 64)
}

// ReadBit read a bit.
func (r *Reader) ReadBit() uint8 {
	_ = r.buf[r.offset>>3]

	tmp := (r.buf[r.offset>>3] >> (7 - r.offset&0x7)) & 1
	r.offset++
	return tmp
}

// ReadBool read one bit bool.
func (r *Reader) ReadBool() bool { return r.ReadBit() == 1 }

// ReadUint8 read the uint8 of n bits.
func (r *Reader) ReadUint8(n int) uint8 { return uint8(r.readUint64(n, 8)) }

// ReadUint16 read the uint16 of n bits.
func (r *Reader) ReadUint16(n int) uint16 { return uint16(r.readUint64(n, 16)) }

// ReadUint32 read the uint32 of n bits.
func (r *Reader) ReadUint32(n int) uint32 { return uint32(r.readUint64(n, 32)) }

// ReadInt read the int of n bits.
func (r *Reader) ReadInt(n int) int { return int(r.readUint64(n, uintBitsCount)) }

// ReadUe read the unsigned Exp-Golomb code (9.2). Codes with more than 32
// leading zero bits are cut at 32.
func (r *Reader) ReadUe() uint32 {
	zeros := 0
	for zeros < 32 && r.ReadBit() == 0 {
		zeros++
	}
	return uint32(r.readUint64(zeros, 32)) + (1<<uint(zeros) - 1)
}

// ReadSe read the signed Exp-Golomb code: 1, -1, 2, -2 ...
func (r *Reader) ReadSe() int32 {
	k := r.ReadUe()
	if k&0x01 != 0 {
		return int32((k + 1) / 2)
	}
	return -int32(k / 2)
}

// MoreRbspData reports whether there is syntax data before the
// rbsp_trailing_bits, i.e. before the last bit equal to 1.
func (r *Reader) MoreRbspData() bool {
	last := len(r.buf) - 1
	for last >= 0 && r.buf[last] == 0 {
		last--
	}
	if last < 0 {
		return false
	}

	b := r.buf[last]
	stop := last<<3 + 7
	for b&1 == 0 {
		b >>= 1
		stop--
	}
	return r.offset < stop
}

var bitsMask = [9]byte{
	0x00,
	0x01, 0x03, 0x07, 0x0f,
	0x1f, 0x3f, 0x7f, 0xff,
}

// readUint64 read the uint64 of n bits.
func (r *Reader) readUint64(n, max int) uint64 {
	if n <= 0 || n > max {
		return 0
	}

	_ = r.buf[(r.offset+n-1)>>3] // bounds check hint to compiler; see golang.org/issue/14808

	idx := r.offset >> 3
	validBits := 8 - r.offset&0x7
	r.offset += n

	var tmp uint64
	for n >= validBits {
		n -= validBits
		tmp |= uint64(r.buf[idx]&bitsMask[validBits]) << n
		idx++
		validBits = 8
	}

	if n > 0 {
		tmp |= uint64((r.buf[idx] >> (validBits - n)) & bitsMask[n])
	}
	return tmp
}
