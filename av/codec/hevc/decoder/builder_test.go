// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"sort"
	"testing"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/cabac"
	"github.com/cnotch/hevcdec/utils"
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/stretchr/testify/require"
)

// testSeq synthesises a 64x64 4:2:0 stream with 16x16 CTBs. Intra CTBs are
// planar predicted, optionally with a DC coefficient. Inter CTBs are
// skipped with a zero motion vector.
type testSeq struct {
	sps    *hevc.SPS
	pps    *hevc.PPS
	spsNal []byte
	ppsNal []byte
}

type testRef struct {
	delta int32
	used  bool
}

type testPic struct {
	nalType  uint8
	poc      int
	refs     []testRef
	intra    bool        // I slice in a non IRAP picture
	dc       map[int]int // CTB address -> DC level
	qp       map[int]int // CTB address -> cu_qp_delta of a CTB with DC level
	segments []int       // CTB addresses starting dependent slice segments
	noEnd    bool        // slice data runs past the last CTB
	truncate bool        // slice data missing
}

func newTestSeq(t *testing.T, dpbSize, reorder int) *testSeq {
	return newTestSeqWith(t, dpbSize, reorder, nil)
}

// newTestSeqWith lets fn adjust the parameter sets before they are encoded.
func newTestSeqWith(t *testing.T, dpbSize, reorder int, fn func(sps *hevc.SPS, pps *hevc.PPS)) *testSeq {
	sps := &hevc.SPS{
		TemporalIDNesting: true,
		ProfileTierLevel: hevc.ProfileTierLevel{
			ProfileIdc:                1,
			ProfileCompatibilityFlags: 1 << 30,
			LevelIdc:                  60,
		},
		ChromaFormatIdc:      1,
		Width:                64,
		Height:               64,
		BitDepthLuma:         8,
		BitDepthChroma:       8,
		Log2MaxPocLsb:        8,
		Log2MinCbSize:        3,
		Log2DiffMaxMinCbSize: 1,
		Log2MinTbSize:        2,
		Log2DiffMaxMinTbSize: 2,
	}
	sps.MaxDecPicBuffering[0] = dpbSize
	sps.MaxNumReorderPics[0] = reorder

	pps := &hevc.PPS{
		NumRefIdxL0DefaultActive: 1,
		NumRefIdxL1DefaultActive: 1,
		InitQp:                   26,
		Log2ParMrgLevel:          2,
	}
	if fn != nil {
		fn(sps, pps)
	}

	q := &testSeq{spsNal: sps.Encode(), ppsNal: pps.Encode()}
	q.sps, q.pps = &hevc.SPS{}, &hevc.PPS{}
	require.NoError(t, q.sps.Decode(q.spsNal))
	require.NoError(t, q.pps.Decode(q.ppsNal))
	require.NoError(t, q.pps.Setup(q.sps))
	return q
}

// header returns the parameter sets as an Annex-B stream.
func (q *testSeq) header() []byte {
	return annexB(q.spsNal, q.ppsNal)
}

func annexB(units ...[]byte) []byte {
	var out []byte
	for _, u := range units {
		out = append(out, 0, 0, 0, 1)
		out = append(out, u...)
	}
	return out
}

func escape(w *bits.Writer) []byte {
	out := w.Bytes()
	return append(out[:2:2], utils.AddEmulationBytes(out[2:])...)
}

// slice returns the single slice segment of picture p.
func (q *testSeq) slice(p testPic) []byte {
	return q.slices(p)[0]
}

// slices returns the slice segments of picture p, the first one
// independent.
func (q *testSeq) slices(p testPic) [][]byte {
	h := hevc.NalHeader{Type: p.nalType}
	sh := &hevc.SliceHeader{
		FirstSliceSegmentInPic: true,
		SliceType:              hevc.SliceI,
		PicOutput:              true,
		PocLsb:                 p.poc & (q.sps.MaxPocLsb - 1),
		MaxNumMergeCand:        1,
	}

	var neg, pos []testRef
	for _, r := range p.refs {
		if r.delta < 0 {
			neg = append(neg, r)
		} else {
			pos = append(pos, r)
		}
	}
	if !h.IsIRAP() && !p.intra && len(p.refs) > 0 {
		sh.SliceType = hevc.SliceP
		sh.NumRefIdxActive[0] = 1
		for _, r := range pos {
			if r.used {
				sh.SliceType = hevc.SliceB
				sh.NumRefIdxActive[1] = 1
			}
		}
	}
	sort.Slice(neg, func(i, j int) bool { return neg[i].delta > neg[j].delta })
	sort.Slice(pos, func(i, j int) bool { return pos[i].delta < pos[j].delta })
	for i, r := range neg {
		sh.StRps.DeltaPocS0[i], sh.StRps.UsedS0[i] = r.delta, r.used
	}
	for i, r := range pos {
		sh.StRps.DeltaPocS1[i], sh.StRps.UsedS1[i] = r.delta, r.used
	}
	sh.StRps.NumNegative, sh.StRps.NumPositive = len(neg), len(pos)

	// 片段按 tile 扫描顺序划分
	bounds := append([]int{0}, p.segments...)
	bounds = append(bounds, q.sps.PicSizeInCtbs)
	var cs cabac.ContextSet
	var units [][]byte
	for i := 0; i+1 < len(bounds); i++ {
		seg := *sh
		if i > 0 {
			seg.FirstSliceSegmentInPic = false
			seg.DependentSliceSegment = true
			seg.SegmentAddress = q.pps.CtbAddrTsToRs[bounds[i]]
		}

		var data []byte
		if !p.truncate {
			last := i+2 == len(bounds)
			var starts []int
			data, starts = q.sliceData(&seg, p, &cs, bounds[i], bounds[i+1], last && p.noEnd)
			seg.EntryPointOffsets = entryOffsets(data, starts)
		}

		w := bits.NewWriter()
		w.Write(uint64(p.nalType)<<9|1, 16)
		seg.Encode(w, p.nalType, q.sps, q.pps)
		w.WriteBytes(data)
		units = append(units, escape(w))
	}
	return units
}

// entryOffsets converts substream starts in data into escaped
// entry_point_offset_minus1 + 1 values. Every substream ends with a
// nonzero byte, so prefixes escape the same as the whole.
func entryOffsets(data []byte, starts []int) []int {
	var offsets []int
	prev := 0
	for _, st := range starts {
		n := len(utils.AddEmulationBytes(data[:st]))
		offsets = append(offsets, n-prev)
		prev = n
	}
	return offsets
}

// substreamStart reports a CTB starting a tile or, with WPP, a CTB row.
// Tiles and WPP are not combined here.
func (q *testSeq) substreamStart(ts int) bool {
	pps := q.pps
	if ts == 0 {
		return false
	}
	if pps.TilesEnabled {
		return pps.TileID[ts] != pps.TileID[ts-1]
	}
	return pps.EntropyCodingSync && pps.CtbAddrTsToRs[ts]%q.sps.PicWidthInCtbs == 0
}

// sliceData encodes the CTBs [first, end) in tile scan. cs carries the
// contexts from one dependent slice segment to the next.
func (q *testSeq) sliceData(sh *hevc.SliceHeader, p testPic, cs *cabac.ContextSet, first, end int, noEnd bool) (data []byte, starts []int) {
	sps, pps := q.sps, q.pps
	qp := pps.InitQp + sh.QpDelta
	w := bits.NewWriter()
	e := cabac.NewEncoder(w)
	var sync cabac.ContextSet
	syncValid := false

	for ts := first; ts < end; ts++ {
		rs := pps.CtbAddrTsToRs[ts]
		cx, cy := rs%sps.PicWidthInCtbs, rs/sps.PicWidthInCtbs

		switch {
		case ts == 0 || (pps.TilesEnabled && q.substreamStart(ts)):
			cs.Init(sh.InitType(), qp)
		case pps.EntropyCodingSync && cx == 0:
			if syncValid {
				*cs = sync
			} else {
				cs.Init(sh.InitType(), qp)
			}
		}
		// 非独立片段沿用 cs

		q.encodeCtu(e, cs, sh, p, rs, cx, cy)

		if pps.EntropyCodingSync && cx == 1 {
			sync, syncValid = *cs, true
		}

		switch {
		case ts+1 == end && !noEnd:
			e.EncodeTerminate(1)
		case ts+1 < end && q.substreamStart(ts+1):
			e.EncodeTerminate(0)
			e.EncodeTerminate(1) // end_of_subset_one_bit
			e.Finish()
			w.WriteTrailingBits()
			data = append(data, w.Bytes()...)
			starts = append(starts, len(data))
			w = bits.NewWriter()
			e = cabac.NewEncoder(w)
		default:
			e.EncodeTerminate(0)
		}
	}
	if noEnd {
		e.EncodeTerminate(1)
	}
	e.Finish()
	w.WriteTrailingBits()
	return append(data, w.Bytes()...), starts
}

// encodeCtu writes one unsplit CTB: planar intra with an optional DC
// coefficient, or a skipped CU merging the first candidate.
func (q *testSeq) encodeCtu(e *cabac.Encoder, cs *cabac.ContextSet, sh *hevc.SliceHeader, p testPic, rs, cx, cy int) {
	pps := q.pps
	e.EncodeBit(&cs[cabac.SplitCuFlag], 0)

	if sh.IsIntra() {
		e.EncodeBit(&cs[cabac.PrevIntraLumaPredFlag], 1)
		e.EncodeBypass(0) // mpm_idx
		e.EncodeBit(&cs[cabac.IntraChromaPredMode], 0)
		e.EncodeBit(&cs[cabac.CbfChroma], 0)
		e.EncodeBit(&cs[cabac.CbfChroma], 0)

		level := p.dc[rs]
		if level == 0 {
			e.EncodeBit(&cs[cabac.CbfLuma+1], 0)
			return
		}
		e.EncodeBit(&cs[cabac.CbfLuma+1], 1)
		if pps.CuQpDeltaEnabled {
			encodeCuQpDelta(e, cs, p.qp[rs])
		}
		// last position (0, 0) of a 16x16 block
		e.EncodeBit(&cs[cabac.LastSigCoeffXPrefix+6], 0)
		e.EncodeBit(&cs[cabac.LastSigCoeffYPrefix+6], 0)
		e.EncodeBit(&cs[cabac.CoeffAbsLevelGreater1Flag+1], 0)
		if level < 0 {
			e.EncodeBypass(1)
		} else {
			e.EncodeBypass(0)
		}
		return
	}

	// 左、上邻块在同一 tile 内才可用
	w := q.sps.PicWidthInCtbs
	inc := 0
	if cx > 0 && pps.TileIDRs[rs] == pps.TileIDRs[rs-1] {
		inc++
	}
	if cy > 0 && pps.TileIDRs[rs] == pps.TileIDRs[rs-w] {
		inc++
	}
	e.EncodeBit(&cs[cabac.CuSkipFlag+inc], 1)
}

// encodeCuQpDelta writes cu_qp_delta_abs and cu_qp_delta_sign_flag.
func encodeCuQpDelta(e *cabac.Encoder, cs *cabac.ContextSet, v int) {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	for i := 0; i < 5; i++ {
		ctx := cabac.CuQpDeltaAbs
		if i > 0 {
			ctx++
		}
		if i == abs {
			e.EncodeBit(&cs[ctx], 0)
			break
		}
		e.EncodeBit(&cs[ctx], 1)
	}
	if abs >= 5 {
		e.EncodeExpGolombBypass(uint32(abs-5), 0)
	}
	if v < 0 {
		e.EncodeBypass(1)
	} else if v > 0 {
		e.EncodeBypass(0)
	}
}

// hashSEI returns a suffix SEI unit carrying the MD5 of the three planes.
func hashSEI(sums [3][16]byte) []byte {
	payload := []byte{hevc.HashMD5}
	for c := 0; c < 3; c++ {
		payload = append(payload, sums[c][:]...)
	}

	w := bits.NewWriter()
	w.Write(uint64(hevc.NalSeiSuffix)<<9|1, 16)
	w.Write(hevc.SeiDecodedPictureHash, 8)
	w.Write(uint64(len(payload)), 8)
	w.WriteBytes(payload)
	w.WriteTrailingBits()
	return escape(w)
}

// eos returns an end of sequence unit.
func eos() []byte {
	return []byte{hevc.NalEosNut << 1, 1}
}

// flatSums returns the plane MD5s of a picture whose samples are all 128.
func flatSums(q *testSeq) (sums [3][16]byte) {
	for c := 0; c < 3; c++ {
		w, h := q.sps.Width, q.sps.Height
		if c > 0 {
			w, h = w/q.sps.SubWidthC, h/q.sps.SubHeightC
		}
		plane := make([]byte, w*h)
		for i := range plane {
			plane[i] = 128
		}
		sums[c] = hevc.PlaneMD5(plane, w, w, h)
	}
	return
}

// picSums returns the plane MD5s of a decoded picture.
func picSums(p *Picture) (sums [3][16]byte) {
	for c := 0; c < 3; c++ {
		plane, stride := p.Plane(c)
		sums[c] = hevc.PlaneMD5(plane, stride, p.Width(c), p.Height(c))
	}
	return
}

type outPic struct {
	poc  int
	sums [3][16]byte
}

// drain takes and releases every queued picture.
func drain(d *Decoder, out []outPic) []outPic {
	for p := d.GetNextPicture(); p != nil; p = d.GetNextPicture() {
		out = append(out, outPic{poc: p.POC(), sums: picSums(p)})
		d.ReleaseNextPicture()
	}
	return out
}

func pocs(out []outPic) []int {
	r := make([]int, len(out))
	for i, o := range out {
		r[i] = o.poc
	}
	return r
}
