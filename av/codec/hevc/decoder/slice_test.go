// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"testing"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/cabac"
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSlice returns a slice decoder over a flat 64x64 picture covered by
// one slice with header sh.
func testSlice(t *testing.T, d *Decoder, sh *hevc.SliceHeader) *sliceDecoder {
	pic := filterPic(t, d, sh)
	s := &sliceDecoder{}
	s.setup(d, pic, pic.slices[0], 0, &hevc.Nal{})
	return s
}

// encodeBins returns the arithmetic coded bins written by fn, closed by a
// terminating bin.
func encodeBins(initType, qp int, fn func(e *cabac.Encoder, cs *cabac.ContextSet)) []byte {
	w := bits.NewWriter()
	e := cabac.NewEncoder(w)
	var cs cabac.ContextSet
	cs.Init(initType, qp)
	fn(e, &cs)
	e.EncodeTerminate(1)
	e.Finish()
	w.WriteTrailingBits()
	return w.Bytes()
}

func TestTransformUnit_CuQpDelta(t *testing.T) {
	tests := []struct {
		name    string
		node    ttNode
		cbfLuma bool
		cbf     [2][2]bool
		coded   bool
		wantQp  int
	}{
		{"4x4 luma without coefficients, parent cbf_cb", ttNode{log2: 2, depth: 1, blkIdx: 0}, false, [2][2]bool{{true, false}, {false, false}}, true, 31},
		{"4x4 luma without coefficients, parent cbf_cr", ttNode{x: 4, log2: 2, depth: 1, blkIdx: 1}, false, [2][2]bool{{false, false}, {true, false}}, true, 31},
		{"no coefficients", ttNode{log2: 2, depth: 1, blkIdx: 0}, false, [2][2]bool{}, false, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			defer d.Close()
			sh := &hevc.SliceHeader{SliceType: hevc.SliceP, NumRefIdxActive: [2]int{1, 0}, SliceQpY: 30}
			s := testSlice(t, d, sh)
			pps := *s.pps
			pps.CuQpDeltaEnabled = true
			s.pps = &pps
			s.cu = codingUnit{log2: 3, predMode: modeInter}

			s.data = encodeBins(sh.InitType(), sh.SliceQpY, func(e *cabac.Encoder, cs *cabac.ContextSet) {
				encodeCuQpDelta(e, cs, 1)
			})
			s.cab.Init(s.data, 0)
			s.ctx.Init(sh.InitType(), sh.SliceQpY)

			node := tt.node
			require.NoError(t, s.decodeTransformUnit(&node, tt.cbfLuma, tt.cbf))
			assert.Equal(t, tt.coded, s.isCuQpDeltaCoded)
			assert.Equal(t, tt.wantQp, s.qpY)
		})
	}
}

func TestInitContexts_DependentSegment(t *testing.T) {
	tests := []struct {
		name      string
		dependent bool
		wantQp    int
	}{
		{"dependent segment continues qPY_PREV", true, 33},
		{"independent slice resets to SliceQpY", false, 26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			defer d.Close()
			d.dsCtx.Init(1, 40)
			d.dsQpY = 33

			sh := &hevc.SliceHeader{
				SliceType:             hevc.SliceI,
				SliceQpY:              26,
				DependentSliceSegment: tt.dependent,
				SegmentAddress:        5,
			}
			s := testSlice(t, d, sh)
			s.ctbAddrRs, s.ctbAddrTs = 5, 5
			s.ctbX, s.ctbY = 16, 16
			s.initContexts(true)

			var fresh cabac.ContextSet
			fresh.Init(sh.InitType(), sh.SliceQpY)
			if tt.dependent {
				assert.Equal(t, d.dsCtx, s.ctx)
			} else {
				assert.Equal(t, fresh, s.ctx)
			}

			// 片段中第一个量化组
			s.cuQpDeltaVal = 0
			s.updateQp(16, 16)
			assert.Equal(t, tt.wantQp, s.qpY)
			assert.False(t, s.resetQpPrev)
		})
	}
}

func TestDecodePcm(t *testing.T) {
	d := NewDecoder()
	defer d.Close()
	s := testSlice(t, d, &hevc.SliceHeader{SliceQpY: 26})
	sps := *s.sps
	sps.PcmEnabled = true
	sps.PcmBitDepthLuma, sps.PcmBitDepthChroma = 8, 8
	s.sps = &sps

	// 两个字节的 CABAC 初始化数据，之后是 8x8 亮度和两个 4x4 色度块
	data := []byte{0x00, 0x00}
	for i := 0; i < 64; i++ {
		data = append(data, byte(i))
	}
	for i := 0; i < 16; i++ {
		data = append(data, 200)
	}
	for i := 0; i < 16; i++ {
		data = append(data, 50)
	}
	data = append(data, 0x80, 0x00)

	t.Run("samples", func(t *testing.T) {
		s.data = data
		s.cab.Init(data, 0)
		require.NoError(t, s.decodePcm(8, 8, 3))

		luma, stride := s.pic.Plane(0)
		assert.Equal(t, uint8(0), luma[8*stride+8])
		assert.Equal(t, uint8(9), luma[9*stride+9])
		assert.Equal(t, uint8(63), luma[15*stride+15])
		assert.Equal(t, uint8(128), luma[8*stride+16])
		cb, cstride := s.pic.Plane(1)
		assert.Equal(t, uint8(200), cb[4*cstride+4])
		cr, _ := s.pic.Plane(2)
		assert.Equal(t, uint8(50), cr[7*cstride+7])
		assert.Equal(t, len(data), s.cab.Pos())
		assert.Equal(t, 0, s.cab.Overrun())
	})

	t.Run("truncated", func(t *testing.T) {
		short := data[:40]
		s.data = short
		s.cab.Init(short, 0)
		err := s.decodePcm(0, 0, 3)
		assert.True(t, hevc.IsError(err, hevc.ErrEOF))
	})

	t.Run("engine already past the data", func(t *testing.T) {
		s.data = data[:1]
		s.cab.Init(s.data, 0)
		require.Equal(t, 1, s.cab.Overrun())
		err := s.decodePcm(0, 0, 3)
		assert.True(t, hevc.IsError(err, hevc.ErrEOF))
	})
}

func TestSliceDecode_Panic(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	d := NewDecoder()
	defer d.Close()

	// 缺少 CTB 信息的图像
	s := &sliceDecoder{
		d:    d,
		pic:  &Picture{},
		sh:   &hevc.SliceHeader{SliceType: hevc.SliceI, SliceQpY: 26},
		sps:  q.sps,
		pps:  q.pps,
		data: []byte{0x80, 0x00, 0x00, 0x00},
	}
	err := s.decode()
	require.Error(t, err)
	assert.True(t, hevc.IsError(err, hevc.ErrInternal))
	assert.False(t, hevc.IsError(err, hevc.ErrEOF))
	assert.Equal(t, "internal decoder error", hevc.ErrorString(err))
	assert.Contains(t, err.Error(), "panic at ctb 0")
}
