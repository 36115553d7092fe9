// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"testing"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idr(dc map[int]int) testPic {
	return testPic{nalType: hevc.NalIdrWRadl, dc: dc}
}

func trail(poc int, refs ...testRef) testPic {
	return testPic{nalType: hevc.NalTrailR, poc: poc, refs: refs}
}

func used(delta int32) testRef { return testRef{delta: delta, used: true} }

// gopStream is an IDR with texture followed by four skipped P pictures.
func gopStream(q *testSeq) []byte {
	units := [][]byte{q.slice(idr(map[int]int{0: 3, 5: -2, 10: 1, 15: 4}))}
	for poc := 1; poc <= 4; poc++ {
		units = append(units, q.slice(trail(poc, used(-1))))
	}
	units = append(units, q.slice(idr(map[int]int{3: 2})))
	return append(q.header(), annexB(units...)...)
}

func decodeAll(t *testing.T, d *Decoder, stream []byte, chunk int) []outPic {
	var out []outPic
	for i := 0; i < len(stream); i += chunk {
		end := i + chunk
		if end > len(stream) {
			end = len(stream)
		}
		require.NoError(t, d.DecodeData(stream[i:end]))
		out = drain(d, out)
	}
	require.NoError(t, d.DecodeData(nil))
	return drain(d, out)
}

func TestDecoder_IntraFlush(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	d := NewDecoder()
	defer d.Close()

	require.NoError(t, d.DecodeData(append(q.header(), annexB(q.slice(idr(nil)))...)))
	// 最后一个单元等待下一个起始码
	assert.Nil(t, d.PeekNextPicture())

	require.NoError(t, d.DecodeData(nil))
	p := d.PeekNextPicture()
	require.NotNil(t, p)
	assert.Same(t, p, d.PeekNextPicture())
	assert.Equal(t, 0, p.POC())
	assert.Equal(t, 64, p.Width(0))
	assert.Equal(t, 32, p.Height(1))
	assert.Equal(t, hevc.Chroma420, p.ChromaFormat())
	assert.Equal(t, flatSums(q), picSums(p))

	left, top, w, h := p.CropWindow(0)
	assert.Equal(t, [4]int{0, 0, 64, 64}, [4]int{left, top, w, h})

	assert.Same(t, p, d.GetNextPicture())
	assert.Nil(t, d.PeekNextPicture())
	assert.Nil(t, d.GetNextPicture())
	d.ReleaseNextPicture()

	assert.Equal(t, 1, d.Stats().Decoded)
	assert.Equal(t, 1, d.Stats().Output)
	assert.Equal(t, len(d.dpb), d.pool.inUse)
}

func TestDecoder_ChunkingInvariance(t *testing.T) {
	q := newTestSeq(t, 3, 0)
	stream := gopStream(q)

	d := NewDecoder()
	want := decodeAll(t, d, stream, len(stream))
	d.Close()
	require.Len(t, want, 6)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 0}, pocs(want))
	assert.NotEqual(t, flatSums(q), want[0].sums)
	// 跳过块复制参考图像
	for i := 1; i <= 4; i++ {
		assert.Equal(t, want[0].sums, want[i].sums)
	}

	for _, chunk := range []int{1, 3, 7, 64, 1000} {
		d := NewDecoder(WithWorkers(3))
		got := decodeAll(t, d, stream, chunk)
		assert.Equal(t, want, got, "chunk %d", chunk)
		assert.Equal(t, len(d.dpb), d.pool.inUse)
		d.Close()
	}
}

func TestDecoder_OutputOrder(t *testing.T) {
	q := newTestSeq(t, 3, 1)
	stream := append(q.header(), annexB(
		q.slice(idr(nil)),
		q.slice(trail(2, used(-2))),
		q.slice(trail(1, used(-1), testRef{delta: 1})),
	)...)

	d := NewDecoder()
	defer d.Close()
	out := decodeAll(t, d, stream, len(stream))
	assert.Equal(t, []int{0, 1, 2}, pocs(out))
}

func TestDecoder_SplitNal(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	stream := append(q.header(), annexB(q.slice(idr(map[int]int{7: 5})), eos())...)

	whole := NewDecoder()
	defer whole.Close()
	want := decodeAll(t, whole, stream, len(stream))

	// 在单元中间切分
	for cut := len(q.header()) + 6; cut < len(stream)-6; cut += 5 {
		d := NewDecoder()
		require.NoError(t, d.DecodeData(stream[:cut]))
		require.NoError(t, d.DecodeData(stream[cut:]))
		require.NoError(t, d.DecodeData(nil))
		assert.Equal(t, want, drain(d, nil), "cut %d", cut)
		d.Close()
	}
}

func TestDecoder_TruncatedSlice(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	broken := trail(1, used(-1))
	broken.truncate = true
	stream := append(q.header(), annexB(q.slice(idr(nil)), q.slice(broken))...)

	d := NewDecoder()
	defer d.Close()
	require.NoError(t, d.DecodeData(stream))
	err := d.DecodeData(nil)
	assert.Equal(t, hevc.ErrEOF, err)
	assert.Equal(t, "unexpected end of file", hevc.ErrorString(err))

	assert.Equal(t, []int{0}, pocs(drain(d, nil)))
	assert.Equal(t, 1, d.Stats().Aborted)
	assert.Nil(t, d.cur)
	assert.Equal(t, len(d.dpb), d.pool.inUse)
}

func TestDecoder_CtbOutsideImage(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	bad := idr(nil)
	bad.noEnd = true
	stream := append(q.header(), annexB(q.slice(bad), q.slice(idr(nil)))...)

	d := NewDecoder()
	defer d.Close()
	err := d.DecodeData(stream)
	assert.Equal(t, hevc.ErrCtbOutsideImageArea, err)
	require.NoError(t, d.DecodeData(nil))

	out := drain(d, nil)
	require.Len(t, out, 1)
	assert.Equal(t, flatSums(q), out[0].sums)
	assert.Equal(t, len(d.dpb), d.pool.inUse)
}

func TestDecoder_DpbBackPressure(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	units := [][]byte{q.slice(idr(nil))}
	for poc := 1; poc <= 4; poc++ {
		units = append(units, q.slice(trail(poc, used(-1))))
	}
	stream := append(q.header(), annexB(units...)...)

	d := NewDecoder()
	defer d.Close()
	require.NoError(t, d.DecodeData(stream))
	assert.True(t, d.PendingUnits() > 0)
	assert.True(t, d.occupancy() <= 2)

	var out []outPic
	for round := 0; round < 10; round++ {
		out = drain(d, out)
		require.NoError(t, d.DecodeData(nil))
		assert.True(t, d.occupancy() <= 2)
	}
	out = drain(d, out)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, pocs(out))
	assert.Equal(t, 0, d.PendingUnits())
	assert.Equal(t, len(d.dpb), d.pool.inUse)
}

func TestDecoder_ReleaseWithoutGet(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	d := NewDecoder()
	defer d.Close()
	require.NoError(t, d.DecodeData(append(q.header(), annexB(q.slice(idr(nil)), eos())...)))
	require.NoError(t, d.DecodeData(nil))

	require.NotNil(t, d.PeekNextPicture())
	d.ReleaseNextPicture()
	assert.Nil(t, d.PeekNextPicture())
	// 序列结束后参考图像仍保留至下一个 IRAP
	assert.Equal(t, len(d.dpb), d.pool.inUse)
}

func TestDecoder_MissingReference(t *testing.T) {
	q := newTestSeq(t, 3, 0)
	stream := append(q.header(), annexB(
		q.slice(idr(map[int]int{0: 4})),
		q.slice(trail(2, used(-1))),
	)...)

	d := NewDecoder()
	defer d.Close()
	err := d.DecodeData(stream)
	require.NoError(t, err)
	err = d.DecodeData(nil)
	assert.Equal(t, hevc.ErrChecksumMismatch, err)

	out := drain(d, nil)
	assert.Equal(t, []int{0, 2}, pocs(out))
	// 替代图像为灰色
	assert.Equal(t, flatSums(q), out[1].sums)
	assert.Equal(t, 1, d.Stats().MissingRefs)
}

func TestDecoder_SkipLeadingPictures(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	stream := append(q.header(), annexB(
		q.slice(trail(3, used(-1))),
		q.slice(idr(nil)),
		q.slice(trail(1, used(-1))),
	)...)

	d := NewDecoder()
	defer d.Close()
	out := decodeAll(t, d, stream, len(stream))
	assert.Equal(t, []int{0, 1}, pocs(out))
	assert.Equal(t, 1, d.Stats().Skipped)
}

func TestDecoder_EndOfSequence(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	stream := append(q.header(), annexB(
		q.slice(idr(nil)),
		q.slice(trail(1, used(-1))),
		eos(),
		q.slice(testPic{nalType: hevc.NalCraNut, poc: 8}),
		q.slice(trail(9, used(-1))),
	)...)

	d := NewDecoder()
	defer d.Close()
	out := decodeAll(t, d, stream, 13)
	assert.Equal(t, []int{0, 1, 8, 9}, pocs(out))
}

func TestDecoder_PictureHash(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	good := flatSums(q)
	bad := good
	bad[0][3] ^= 0xff

	tests := []struct {
		name    string
		sums    [3][16]byte
		strict  bool
		wantErr bool
		wantOut int
	}{
		{"match", good, false, false, 1},
		{"lenient", bad, false, true, 1},
		{"strict", bad, true, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(WithParameter(ParamSEICheckHash, true))
			defer d.Close()
			d.SetParameterBool(ParamStrictHash, tt.strict)
			assert.True(t, d.GetParameterBool(ParamSEICheckHash))

			stream := append(q.header(), annexB(q.slice(idr(nil)), hashSEI(tt.sums))...)
			require.NoError(t, d.DecodeData(stream))
			err := d.DecodeData(nil)
			if tt.wantErr {
				assert.Equal(t, hevc.ErrChecksumMismatch, err)
				assert.Equal(t, 1, d.Stats().HashMismatches)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, drain(d, nil), tt.wantOut)
		})
	}
}

func TestDecoder_HashCheckOff(t *testing.T) {
	q := newTestSeq(t, 2, 0)
	var bad [3][16]byte
	d := NewDecoder()
	defer d.Close()

	stream := append(q.header(), annexB(q.slice(idr(nil)), hashSEI(bad))...)
	require.NoError(t, d.DecodeData(stream))
	require.NoError(t, d.DecodeData(nil))
	assert.Len(t, drain(d, nil), 1)
	assert.False(t, d.GetParameterBool(Param(42)))
}

func TestDecoder_NoStartCode(t *testing.T) {
	d := NewDecoder()
	defer d.Close()
	err := d.DecodeData([]byte{0x12, 0x34, 0x56, 0x78, 0x9a})
	assert.Equal(t, hevc.ErrNoStartCode, err)
}

// decodePlanes decodes stream and returns a copy of the planes of every
// output picture by POC.
func decodePlanes(t *testing.T, d *Decoder, stream []byte) map[int][3][]uint8 {
	out := make(map[int][3][]uint8)
	collect := func() {
		for p := d.GetNextPicture(); p != nil; p = d.GetNextPicture() {
			var planes [3][]uint8
			for c := 0; c < 3; c++ {
				plane, stride := p.Plane(c)
				for y := 0; y < p.Height(c); y++ {
					planes[c] = append(planes[c], plane[y*stride:y*stride+p.Width(c)]...)
				}
			}
			out[p.POC()] = planes
			d.ReleaseNextPicture()
		}
	}
	require.NoError(t, d.DecodeData(stream))
	collect()
	require.NoError(t, d.DecodeData(nil))
	collect()
	return out
}

func TestDecoder_BiPrediction(t *testing.T) {
	q := newTestSeq(t, 3, 1)
	future := trail(2, used(-2))
	future.intra = true
	future.dc = map[int]int{0: -2, 6: 3, 15: 1}
	stream := append(q.header(), annexB(
		q.slice(idr(map[int]int{0: 4, 5: -3, 10: 2})),
		q.slice(future),
		q.slice(trail(1, used(-1), used(1))),
	)...)

	d := NewDecoder()
	defer d.Close()
	out := decodePlanes(t, d, stream)
	require.Len(t, out, 3)
	assert.Equal(t, 0, d.Stats().Aborted)

	// 两个参考图像的平均值
	past, next, bi := out[0], out[2], out[1]
	assert.NotEqual(t, past[0], next[0])
	for c := 0; c < 3; c++ {
		for i := range bi[c] {
			want := uint8((int(past[c][i]) + int(next[c][i]) + 1) >> 1)
			if !assert.Equal(t, want, bi[c][i], "component %d sample %d", c, i) {
				return
			}
		}
	}
}

func TestDecoder_DependentSegments(t *testing.T) {
	q := newTestSeqWith(t, 2, 0, func(sps *hevc.SPS, pps *hevc.PPS) {
		pps.DependentSliceSegments = true
		pps.CuQpDeltaEnabled = true
	})
	pic := idr(map[int]int{2: 5, 9: 4, 12: 3})
	pic.qp = map[int]int{2: 6, 9: 0, 12: -4}

	d := NewDecoder()
	defer d.Close()
	whole := decodePlanes(t, d, append(q.header(), annexB(q.slices(pic)...)...))

	pic.segments = []int{3, 9}
	units := q.slices(pic)
	require.Len(t, units, 3)

	d2 := NewDecoder()
	defer d2.Close()
	require.NoError(t, d2.DecodeData(append(q.header(), annexB(units...)...)))
	require.NoError(t, d2.DecodeData(nil))
	p := d2.GetNextPicture()
	require.NotNil(t, p)
	// 第二、三个片段延续前一片段的 QpY
	assert.Equal(t, int8(26), p.block(0, 0).qpY)
	assert.Equal(t, int8(32), p.block(48, 0).qpY)
	assert.Equal(t, int8(32), p.block(16, 32).qpY)
	assert.Equal(t, int8(28), p.block(0, 48).qpY)
	assert.Equal(t, int8(28), p.block(48, 48).qpY)
	d2.ReleaseNextPicture()
	assert.Equal(t, 0, d2.Stats().Aborted)

	d3 := NewDecoder()
	defer d3.Close()
	assert.Equal(t, whole, decodePlanes(t, d3, append(q.header(), annexB(units...)...)))
}

func TestDecoder_WppEntryPoints(t *testing.T) {
	pics := func(q *testSeq) []byte {
		p := trail(1, used(-1))
		return append(q.header(), annexB(
			q.slice(idr(map[int]int{0: 3, 4: -2, 9: 1, 13: 4, 15: -1})),
			q.slice(p),
		)...)
	}
	plain := newTestSeq(t, 2, 0)
	wpp := newTestSeqWith(t, 2, 0, func(sps *hevc.SPS, pps *hevc.PPS) {
		pps.EntropyCodingSync = true
	})

	nal, err := hevc.NewNal(wpp.slice(idr(nil)))
	require.NoError(t, err)
	var sets hevc.ParamSets
	sets.SPS[0], sets.PPS[0] = wpp.sps, wpp.pps
	sh := &hevc.SliceHeader{}
	require.NoError(t, sh.Decode(nal, &sets, nil))
	assert.Len(t, sh.EntryPoints, 3)

	d := NewDecoder()
	defer d.Close()
	want := decodeAll(t, d, pics(plain), 1<<20)
	require.Len(t, want, 2)

	for _, workers := range []int{0, 2} {
		d := NewDecoder(WithWorkers(workers))
		got := decodeAll(t, d, pics(wpp), 97)
		assert.Equal(t, want, got, "workers %d", workers)
		assert.Equal(t, 0, d.Stats().Aborted)
		d.Close()
	}
}

func TestDecoder_TileEntryPoints(t *testing.T) {
	q := newTestSeqWith(t, 2, 0, func(sps *hevc.SPS, pps *hevc.PPS) {
		pps.TilesEnabled = true
		pps.NumTileColumns, pps.NumTileRows = 2, 2
		pps.UniformSpacing = true
		pps.LoopFilterAcrossTiles = true
	})
	require.Equal(t, 4, q.pps.TileID[q.sps.PicSizeInCtbs-1]+1)
	stream := append(q.header(), annexB(
		q.slice(idr(nil)),
		q.slice(trail(1, used(-1))),
		q.slice(trail(2, used(-1))),
	)...)

	d := NewDecoder()
	defer d.Close()
	out := decodeAll(t, d, stream, 61)
	assert.Equal(t, []int{0, 1, 2}, pocs(out))
	for _, o := range out {
		assert.Equal(t, flatSums(q), o.sums, "poc %d", o.poc)
	}
	assert.Equal(t, 0, d.Stats().Aborted)
}
