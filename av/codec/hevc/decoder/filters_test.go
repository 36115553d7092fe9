// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"sync/atomic"
	"testing"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// filterPic returns a 64x64 picture covered by one slice.
func filterPic(t *testing.T, d *Decoder, sh *hevc.SliceHeader) *Picture {
	q := newTestSeq(t, 2, 0)
	pic := d.pool.acquire(q.sps, q.pps)
	pic.fill(128)
	pic.slices = append(pic.slices, &sliceInfo{header: sh})
	for i := range pic.ctbs {
		pic.ctbs[i].sliceAddr = 0
	}
	return pic
}

func TestDeblock_IntraEdge(t *testing.T) {
	for _, workers := range []int{0, 2} {
		d := NewDecoder(WithWorkers(workers))
		pic := filterPic(t, d, &hevc.SliceHeader{})

		plane, stride := pic.Plane(0)
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				if x < 32 {
					plane[y*stride+x] = 100
				} else {
					plane[y*stride+x] = 140
				}
			}
		}
		pic.setBlocks(0, 0, 64, 64, func(b *blockInfo) {
			b.predMode = modeIntra
			b.qpY = 30
		})
		pic.setBlocks(32, 0, 4, 64, func(b *blockInfo) { b.flags |= flagTransformV })

		d.deblock(pic)
		for _, y := range []int{0, 17, 63} {
			row := plane[y*stride:]
			assert.Equal(t, []uint8{100, 100, 101, 103, 137, 139, 140}, row[28:35], "row %d", y)
			assert.Equal(t, uint8(100), row[0])
			assert.Equal(t, uint8(140), row[63])
		}
		// 色度两侧相同，保持不变
		cb, cstride := pic.Plane(1)
		assert.Equal(t, uint8(128), cb[5*cstride+15])
		assert.Equal(t, uint8(128), cb[5*cstride+16])
		d.Close()
	}
}

func TestDeblock_NoEdgeFlags(t *testing.T) {
	d := NewDecoder()
	defer d.Close()
	pic := filterPic(t, d, &hevc.SliceHeader{})
	plane, stride := pic.Plane(0)
	for y := 0; y < 64; y++ {
		for x := 32; x < 64; x++ {
			plane[y*stride+x] = 140
		}
	}
	// 无边界标志的块不滤波
	pic.setBlocks(0, 0, 64, 64, func(b *blockInfo) { b.predMode = modeIntra })
	d.deblock(pic)
	assert.Equal(t, uint8(128), plane[31])
	assert.Equal(t, uint8(140), plane[32])
}

func TestBoundaryStrength(t *testing.T) {
	d := NewDecoder()
	defer d.Close()
	pic := filterPic(t, d, &hevc.SliceHeader{})
	ref := &Picture{}
	pic.slices[0].refs[0][0] = ref

	m := pbMotion{predFlag: [2]bool{true, false}}
	pic.setMotion(0, 0, 64, 64, &m)
	assert.Equal(t, 0, boundaryStrength(pic, 7, 0, 8, 0, true))

	m.mv[0] = mvec{x: 4}
	pic.setMotion(8, 0, 8, 8, &m)
	assert.Equal(t, 1, boundaryStrength(pic, 7, 0, 8, 0, false))

	m.mv[0] = mvec{x: 3}
	pic.setMotion(8, 0, 8, 8, &m)
	assert.Equal(t, 0, boundaryStrength(pic, 7, 0, 8, 0, false))

	pic.block(8, 0).flags |= flagCodedLuma
	assert.Equal(t, 1, boundaryStrength(pic, 7, 0, 8, 0, true))
	assert.Equal(t, 0, boundaryStrength(pic, 7, 0, 8, 0, false))

	pic.block(7, 0).predMode = modeIntra
	assert.Equal(t, 2, boundaryStrength(pic, 7, 0, 8, 0, false))
}

func TestSao_BandOffset(t *testing.T) {
	d := NewDecoder()
	defer d.Close()
	pic := filterPic(t, d, &hevc.SliceHeader{SaoLuma: true})
	pic.ctbs[0].sao[0] = saoParams{typeIdx: 1, class: 16, offset: [4]int8{2, 5, 5, 5}}
	pic.ctbs[1].sao[0] = saoParams{typeIdx: 1, class: 20, offset: [4]int8{2, 5, 5, 5}}
	pic.ctbs[2].sao[1] = saoParams{typeIdx: 1, class: 16, offset: [4]int8{-7}}

	d.sao(pic)
	plane, stride := pic.Plane(0)
	assert.Equal(t, uint8(130), plane[0])
	assert.Equal(t, uint8(130), plane[15*stride+15])
	// 样本不在所选频带内
	assert.Equal(t, uint8(128), plane[16])
	// SaoChroma 关闭
	cb, _ := pic.Plane(1)
	assert.Equal(t, uint8(128), cb[16])
}

func TestSao_EdgeOffset(t *testing.T) {
	d := NewDecoder()
	defer d.Close()
	pic := filterPic(t, d, &hevc.SliceHeader{SaoLuma: true})
	pic.ctbs[0].sao[0] = saoParams{typeIdx: 2, class: 0, offset: [4]int8{3, 1, -1, -4}}

	plane, stride := pic.Plane(0)
	plane[2*stride+5] = 140
	plane[2*stride+9] = 120

	d.sao(pic)
	row := plane[2*stride:]
	assert.Equal(t, uint8(136), row[5], "local maximum")
	assert.Equal(t, uint8(123), row[9], "local minimum")
	assert.Equal(t, uint8(129), row[4], "edge below a peak")
	assert.Equal(t, uint8(127), row[8], "edge above a valley")
	assert.Equal(t, uint8(128), row[1])
	assert.Equal(t, uint8(128), plane[3*stride+5])
}

func TestSao_SkipsBypassBlocks(t *testing.T) {
	d := NewDecoder()
	defer d.Close()
	pic := filterPic(t, d, &hevc.SliceHeader{SaoLuma: true})
	pic.ctbs[0].sao[0] = saoParams{typeIdx: 1, class: 16, offset: [4]int8{2}}
	pic.setBlocks(0, 0, 8, 8, func(b *blockInfo) { b.flags |= flagBypass })

	d.sao(pic)
	plane, stride := pic.Plane(0)
	assert.Equal(t, uint8(128), plane[0])
	assert.Equal(t, uint8(130), plane[8*stride+8])
}

func testRefs(n int, top, left func(i int) int, corner int) *intraRefs {
	r := &intraRefs{n: n}
	for i := 0; i < 2*n; i++ {
		r.setTop(i, top(i))
		r.setLeft(i, left(i))
	}
	r.v[2*n] = corner
	return r
}

func TestIntra_Angular(t *testing.T) {
	refs := testRefs(4, func(i int) int { return 10 + i }, func(i int) int { return 50 + i }, 30)
	dst := make([]uint8, 16)

	predAngular(dst, 4, refs, intraVer, false)
	for y := 0; y < 4; y++ {
		assert.Equal(t, []uint8{10, 11, 12, 13}, dst[y*4:y*4+4])
	}

	predAngular(dst, 4, refs, intraHor, false)
	for y := 0; y < 4; y++ {
		v := uint8(50 + y)
		assert.Equal(t, []uint8{v, v, v, v}, dst[y*4:y*4+4])
	}

	predAngular(dst, 4, refs, intraVer, true)
	assert.Equal(t, []uint8{20, 20, 21, 21}, []uint8{dst[0], dst[4], dst[8], dst[12]})
	assert.Equal(t, uint8(11), dst[1])

	// 45 度对角，p[x+y+1][-1]
	predAngular(dst, 4, refs, 34, false)
	assert.Equal(t, uint8(11), dst[0])
	assert.Equal(t, uint8(17), dst[3*4+3])
}

func TestIntra_PlanarAndDC(t *testing.T) {
	flat := func(int) int { return 77 }
	refs := testRefs(8, flat, flat, 77)
	dst := make([]uint8, 64)
	predPlanar(dst, 8, refs, 3)
	for _, v := range dst {
		require.Equal(t, uint8(77), v)
	}

	refs = testRefs(4, func(int) int { return 40 }, func(int) int { return 80 }, 60)
	dst = dst[:16]
	predDC(dst, 4, refs, 2, true)
	assert.Equal(t, uint8(60), dst[0])
	assert.Equal(t, uint8(55), dst[1])
	assert.Equal(t, uint8(65), dst[4])
	assert.Equal(t, uint8(60), dst[5])

	predDC(dst, 4, refs, 2, false)
	assert.Equal(t, uint8(60), dst[0])
}

func TestIntra_FilterRefs(t *testing.T) {
	refs := &intraRefs{n: 8}
	refs.v[16] = 40
	filterIntraRefs(refs, 0, 2, 3, false)
	assert.Equal(t, 20, refs.corner())
	assert.Equal(t, 10, refs.left(0))
	assert.Equal(t, 10, refs.top(0))
	assert.Equal(t, 0, refs.top(1))

	// 接近水平或垂直的模式不滤波
	refs = &intraRefs{n: 8}
	refs.v[16] = 40
	filterIntraRefs(refs, 0, intraVer, 3, false)
	assert.Equal(t, 40, refs.corner())
}

func TestWorkerPool(t *testing.T) {
	p := newWorkerPool(3, xlog.L())
	defer p.close()

	var n int32
	jobs := make([]task, 50)
	for i := range jobs {
		jobs[i] = func() { atomic.AddInt32(&n, 1) }
	}
	jobs[7] = func() {
		atomic.AddInt32(&n, 1)
		panic("boom")
	}
	for round := 0; round < 4; round++ {
		p.run(jobs)
	}
	assert.Equal(t, int32(200), atomic.LoadInt32(&n))

	p.close()
	assert.True(t, p.closed)
}
