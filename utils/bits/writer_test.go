// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_RoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBit(1)
	w.Write(0x2b, 8)
	w.WriteUe(0)
	w.WriteUe(7)
	w.WriteUe(300)
	w.WriteSe(-5)
	w.WriteSe(9)
	w.WriteBool(false)
	w.Write(0x474000100, 36)
	w.WriteTrailingBits()

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(1), r.ReadBit())
	assert.Equal(t, uint8(0x2b), r.ReadUint8(8))
	assert.Equal(t, uint32(0), r.ReadUe())
	assert.Equal(t, uint32(7), r.ReadUe())
	assert.Equal(t, uint32(300), r.ReadUe())
	assert.Equal(t, int32(-5), r.ReadSe())
	assert.Equal(t, int32(9), r.ReadSe())
	assert.False(t, r.ReadBool())
	assert.Equal(t, uint64(0x474000100), r.Peek(36))
	r.Skip(36)
	assert.False(t, r.MoreRbspData())
	assert.Equal(t, 0, w.Offset()&7)
}

func TestWriter_WriteUe(t *testing.T) {
	w := NewWriter()
	for _, v := range []uint32{0, 1, 2, 3, 4} {
		w.WriteUe(v)
	}
	w.AlignByte()
	assert.Equal(t, []byte{0xa6, 0x42, 0x80}, w.Bytes())
}
