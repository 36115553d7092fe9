// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bits

// Writer is a MSB-first bit writer, the counterpart of Reader.
type Writer struct {
	buf    []byte
	offset int // bit base
}

// NewWriter returns a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// WriteBit write a bit.
func (w *Writer) WriteBit(b uint8) {
	if w.offset&0x7 == 0 {
		w.buf = append(w.buf, 0)
	}
	if b != 0 {
		w.buf[w.offset>>3] |= 0x80 >> uint(w.offset&0x7)
	}
	w.offset++
}

// WriteBool write one bit bool.
func (w *Writer) WriteBool(b bool) {
	if b {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
}

// Write write the low n bits of v.
func (w *Writer) Write(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteBit(uint8(v>>uint(i)) & 1)
	}
}

// WriteUe write the unsigned Exp-Golomb code.
func (w *Writer) WriteUe(v uint32) {
	x := uint64(v) + 1
	n := 0
	for t := x; t > 1; t >>= 1 {
		n++
	}
	w.Write(0, n)
	w.Write(x, n+1)
}

// WriteSe write the signed Exp-Golomb code.
func (w *Writer) WriteSe(v int32) {
	if v > 0 {
		w.WriteUe(uint32(v)*2 - 1)
	} else {
		w.WriteUe(uint32(-v) * 2)
	}
}

// WriteTrailingBits write the rbsp_stop_one_bit and the alignment zero bits.
func (w *Writer) WriteTrailingBits() {
	w.WriteBit(1)
	w.AlignByte()
}

// AlignByte pads zero bits up to the next byte boundary.
func (w *Writer) AlignByte() {
	for w.offset&0x7 != 0 {
		w.WriteBit(0)
	}
}

// WriteBytes append whole bytes, the writer must be byte aligned.
func (w *Writer) WriteBytes(p []byte) {
	if w.offset&0x7 != 0 {
		panic("bits: WriteBytes on unaligned writer")
	}
	w.buf = append(w.buf, p...)
	w.offset += len(p) << 3
}

// Offset returns the number of written bits.
func (w *Writer) Offset() int {
	return w.offset
}

// Bytes returns the written bytes, the last byte is zero padded.
func (w *Writer) Bytes() []byte {
	return w.buf
}
