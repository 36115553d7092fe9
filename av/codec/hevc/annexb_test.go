// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStream = []byte{
	// AUD
	0x00, 0x00, 0x00, 0x01, 0x46, 0x01, 0x50,
	// SEI with an emulation prevention byte and a trailing zero
	0x00, 0x00, 0x01, 0x4e, 0x01, 0x05, 0x00, 0x00, 0x03, 0x01, 0x80, 0x00,
	// EOS
	0x00, 0x00, 0x01, 0x48, 0x01, 0xc0,
}

func collect(p *NalParser) (units []*Nal) {
	for nal := p.Next(); nal != nil; nal = p.Next() {
		units = append(units, nal)
	}
	return
}

func TestNalParser_Push(t *testing.T) {
	p := &NalParser{}
	require.NoError(t, p.Push(testStream))
	units := collect(p)
	require.Len(t, units, 2)
	assert.Equal(t, uint8(NalAud), units[0].Type)
	assert.Equal(t, []byte{0x50}, units[0].Data)
	assert.Equal(t, uint8(NalSeiPrefix), units[1].Type)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x01, 0x80}, units[1].Data)

	// 最后一个单元等待下一个起始码或 flush
	assert.Equal(t, 3, p.BufferedBytes())
	require.NoError(t, p.Push(nil))
	units = collect(p)
	require.Len(t, units, 1)
	assert.Equal(t, uint8(NalEosNut), units[0].Type)
	assert.Equal(t, []byte{0xc0}, units[0].Data)
}

func TestNalParser_Chunking(t *testing.T) {
	whole := &NalParser{}
	require.NoError(t, whole.Push(testStream))
	require.NoError(t, whole.Push(nil))
	want := collect(whole)

	for _, size := range []int{1, 2, 3, 5, 7} {
		p := &NalParser{}
		var got []*Nal
		for i := 0; i < len(testStream); i += size {
			end := i + size
			if end > len(testStream) {
				end = len(testStream)
			}
			require.NoError(t, p.Push(testStream[i:end]))
			got = append(got, collect(p)...)
		}
		require.NoError(t, p.Push(nil))
		got = append(got, collect(p)...)

		require.Len(t, got, len(want), "chunk size %d", size)
		for i := range want {
			assert.Equal(t, want[i].NalHeader, got[i].NalHeader)
			assert.Equal(t, want[i].Data, got[i].Data)
		}
	}
}

func TestNalParser_PeekAndLen(t *testing.T) {
	p := &NalParser{}
	require.NoError(t, p.Push(testStream))
	assert.Equal(t, 2, p.Len())
	first := p.Peek()
	assert.Same(t, first, p.Peek())
	assert.Same(t, first, p.Next())
	assert.Equal(t, 1, p.Len())

	p.Reset()
	assert.Equal(t, 0, p.Len())
	assert.Nil(t, p.Next())
	assert.Equal(t, 0, p.BufferedBytes())
}

func TestNalParser_NoStartCode(t *testing.T) {
	p := &NalParser{}
	assert.NoError(t, p.Push([]byte{0x00, 0x00}))
	err := p.Push([]byte{0x12, 0x34, 0x56, 0x78})
	assert.True(t, IsError(err, ErrNoStartCode))

	// 之后的正常数据仍可解析
	require.NoError(t, p.Push(testStream))
	assert.Equal(t, 2, p.Len())
}

func TestNalParser_BadHeader(t *testing.T) {
	p := &NalParser{}
	// forbidden_zero_bit set, then nuh_temporal_id_plus1 equal to zero
	require.NoError(t, p.Push([]byte{0, 0, 1, 0xc6, 0x01, 0x50, 0, 0, 1, 0x46, 0x00, 0x50, 0, 0, 1}))
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 2, p.BadUnits)
}

func TestNal_RbspOffset(t *testing.T) {
	nal, err := NewNal([]byte{0x02, 0x01, 0xaa, 0x00, 0x00, 0x03, 0x01, 0xbb, 0x00, 0x00, 0x03, 0x00, 0xcc})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0x00, 0x00, 0x01, 0xbb, 0x00, 0x00, 0x00, 0xcc}, nal.Data)
	assert.Equal(t, 13, nal.Size())

	// slice data starting at RBSP offset 1 (escaped 1)
	assert.Equal(t, 4, nal.RbspOffset(1, 4)) // escaped 5 -> 0xbb
	assert.Equal(t, 8, nal.RbspOffset(1, 9)) // escaped 10 -> 0xcc
	assert.Equal(t, 5, nal.RbspOffset(5, 0)) // rbsp 5 is escaped 6
}

func TestNalHeader_Predicates(t *testing.T) {
	h := NalHeader{Type: NalCraNut}
	assert.True(t, h.IsIRAP())
	assert.True(t, h.IsCRA())
	assert.False(t, h.IsIDR())

	h.Type = NalIdrNLp
	assert.True(t, h.IsIDR())
	assert.True(t, h.IsVCL())

	h.Type = NalRaslN
	assert.True(t, h.IsRASL())
	assert.True(t, h.IsSubLayerNonReference())

	h.Type = NalTrailR
	assert.False(t, h.IsSubLayerNonReference())

	h.Type = NalVps
	assert.False(t, h.IsVCL())
	assert.Equal(t, uint8(NalVps), NalType(0x40))
}
