// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/cabac"
	"github.com/pkg/errors"
)

// inter_pred_idc
const (
	predL0 = iota
	predL1
	predBi
)

// mcScratch holds the intermediate inter prediction samples of a slice
// decoder.
type mcScratch struct {
	pred [2][64 * 64]int16
	tmp  [(64 + 7) * 64]int16
}

// luma interpolation filter, Table 8-11
var lumaFilter = [4][]int{
	{0, 0, 0, 64, 0, 0, 0, 0},
	{-1, 4, -10, 58, 17, -5, 1, 0},
	{-1, 4, -11, 40, 40, -11, 4, -1},
	{0, 1, -5, 17, 58, -10, 4, -1},
}

// chroma interpolation filter, Table 8-12
var chromaFilter = [8][]int{
	{0, 64, 0, 0},
	{-2, 58, 10, -2},
	{-4, 54, 16, -2},
	{-6, 46, 28, -4},
	{-4, 36, 36, -4},
	{-4, 28, 46, -6},
	{-2, 16, 54, -4},
	{-2, 10, 58, -2},
}

// merge candidate combination order, Table 8-6
var (
	l0CandIdx = [12]int{0, 1, 0, 2, 1, 2, 0, 3, 1, 3, 2, 3}
	l1CandIdx = [12]int{1, 0, 2, 0, 2, 1, 3, 0, 3, 1, 3, 2}
)

// pbMvd is the parsed motion data of a prediction unit in AMVP mode.
type pbMvd struct {
	predIdc int
	refIdx  [2]int
	mvd     [2]mvec
	mvpFlag [2]int
}

// predictionUnits splits an inter coding unit by its PartMode.
func (s *sliceDecoder) predictionUnits(x0, y0, log2 int) error {
	cu := &s.cu
	n := 1 << uint(log2)
	h, q := n>>1, n>>2

	type pb struct{ x, y, w, h int }
	var pbs []pb
	switch cu.partMode {
	case part2Nx2N:
		pbs = []pb{{0, 0, n, n}}
	case part2NxN:
		pbs = []pb{{0, 0, n, h}, {0, h, n, h}}
	case partNx2N:
		pbs = []pb{{0, 0, h, n}, {h, 0, h, n}}
	case part2NxnU:
		pbs = []pb{{0, 0, n, q}, {0, q, n, n - q}}
	case part2NxnD:
		pbs = []pb{{0, 0, n, n - q}, {0, n - q, n, q}}
	case partnLx2N:
		pbs = []pb{{0, 0, q, n}, {q, 0, n - q, n}}
	case partnRx2N:
		pbs = []pb{{0, 0, n - q, n}, {n - q, 0, q, n}}
	default:
		pbs = []pb{{0, 0, h, h}, {h, 0, h, h}, {0, h, h, h}, {h, h, h, h}}
	}

	for i, p := range pbs {
		if err := s.predictionUnit(x0, y0, n, x0+p.x, y0+p.y, p.w, p.h, i); err != nil {
			return err
		}
	}
	return nil
}

// predictionUnit parses prediction_unit() (7.3.8.6), derives its motion and
// writes the inter prediction.
func (s *sliceDecoder) predictionUnit(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx int) error {
	sh := s.sh
	cu := &s.cu

	merge := cu.predMode == modeSkip
	if !merge {
		merge = s.cab.DecodeBit(&s.ctx[cabac.MergeFlag]) == 1
	}
	if partIdx == 0 {
		cu.mergeFlag = merge
	}

	var m pbMotion
	if merge {
		mergeIdx := s.decodeMergeIdx()
		m = s.mergeMotion(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, mergeIdx)
	} else {
		var p pbMvd
		p.predIdc = predL0
		if sh.IsB() {
			p.predIdc = s.decodeInterPredIdc(w, h)
		}
		for l := 0; l < 2; l++ {
			if (l == 0 && p.predIdc == predL1) || (l == 1 && p.predIdc == predL0) {
				continue
			}
			p.refIdx[l] = s.decodeRefIdx(sh.NumRefIdxActive[l])
			if l == 1 && sh.MvdL1Zero && p.predIdc == predBi {
				p.mvd[1] = mvec{}
			} else {
				p.mvd[l] = s.decodeMvd()
			}
			p.mvpFlag[l] = s.cab.DecodeBit(&s.ctx[cabac.MvpFlag])
		}
		m = s.amvpMotion(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, &p)
	}

	for l := 0; l < 2; l++ {
		if m.predFlag[l] {
			if int(m.refIdx[l]) >= sh.NumRefIdxActive[l] || s.si.refs[l][m.refIdx[l]] == nil {
				return errors.Wrapf(hevc.ErrInvalidParameterSet, "ref_idx_l%d %d without reference picture", l, m.refIdx[l])
			}
		}
	}

	s.pic.setMotion(xPb, yPb, w, h, &m)
	s.markPredictionEdges(xPb, yPb, w, h)
	s.predictInter(xPb, yPb, w, h, &m)
	return nil
}

func (s *sliceDecoder) decodeMergeIdx() int {
	cMax := s.sh.MaxNumMergeCand - 1
	if cMax <= 0 {
		return 0
	}
	if s.cab.DecodeBit(&s.ctx[cabac.MergeIdx]) == 0 {
		return 0
	}
	i := 1
	for i < cMax && s.cab.DecodeBypass() == 1 {
		i++
	}
	return i
}

func (s *sliceDecoder) decodeInterPredIdc(w, h int) int {
	if w+h != 12 {
		depth := int(s.pic.block(s.cu.x, s.cu.y).ctDepth)
		if s.cab.DecodeBit(&s.ctx[cabac.InterPredIdc+depth]) == 1 {
			return predBi
		}
	}
	return s.cab.DecodeBit(&s.ctx[cabac.InterPredIdc+4])
}

func (s *sliceDecoder) decodeRefIdx(numActive int) int {
	cMax := numActive - 1
	i := 0
	for i < cMax {
		var bin int
		if i < 2 {
			bin = s.cab.DecodeBit(&s.ctx[cabac.RefIdx+i])
		} else {
			bin = s.cab.DecodeBypass()
		}
		if bin == 0 {
			break
		}
		i++
	}
	return i
}

// decodeMvd parses mvd_coding() (7.3.8.9).
func (s *sliceDecoder) decodeMvd() mvec {
	var g0, g1 [2]bool
	g0[0] = s.cab.DecodeBit(&s.ctx[cabac.AbsMvdGreater0Flag]) == 1
	g0[1] = s.cab.DecodeBit(&s.ctx[cabac.AbsMvdGreater0Flag]) == 1
	for i := 0; i < 2; i++ {
		if g0[i] {
			g1[i] = s.cab.DecodeBit(&s.ctx[cabac.AbsMvdGreater1Flag]) == 1
		}
	}

	var v [2]int32
	for i := 0; i < 2; i++ {
		if !g0[i] {
			continue
		}
		abs := int32(1)
		if g1[i] {
			abs = int32(s.cab.DecodeExpGolombBypass(1)) + 2
		}
		if s.cab.DecodeBypass() == 1 {
			abs = -abs
		}
		v[i] = abs
	}
	return mvec{v[0], v[1]}
}

// pbAvailable is the prediction block availability (6.4.2).
func (s *sliceDecoder) pbAvailable(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, xN, yN int) bool {
	sameCb := xCb <= xN && yCb <= yN && xCb+nCbS > xN && yCb+nCbS > yN

	var avail bool
	switch {
	case !sameCb:
		avail = s.available(xPb, yPb, xN, yN)
	case w<<1 == nCbS && h<<1 == nCbS && partIdx == 1 && yCb+h <= yN && xCb+w > xN:
		avail = false
	default:
		avail = true
	}
	return avail && !s.pic.block(xN, yN).isIntra()
}

func sameMotion(a, b *pbMotion) bool {
	for l := 0; l < 2; l++ {
		if a.predFlag[l] != b.predFlag[l] {
			return false
		}
		if a.predFlag[l] && (a.mv[l] != b.mv[l] || a.refIdx[l] != b.refIdx[l]) {
			return false
		}
	}
	return true
}

// mergeMotion derives the motion of a prediction unit in merge mode
// (8.5.3.2.2).
func (s *sliceDecoder) mergeMotion(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, mergeIdx int) pbMotion {
	sh, pps := s.sh, s.pps
	cu := &s.cu
	origW, origH := w, h
	if pps.Log2ParMrgLevel > 2 && nCbS == 8 {
		xPb, yPb, w, h, partIdx = xCb, yCb, nCbS, nCbS, 0
	}

	var list [5]pbMotion
	num := 0
	maxNum := sh.MaxNumMergeCand

	plevel := uint(pps.Log2ParMrgLevel)
	sameMer := func(xN, yN int) bool {
		return xPb>>plevel == xN>>plevel && yPb>>plevel == yN>>plevel
	}
	spatial := func(xN, yN int) (*pbMotion, bool) {
		if sameMer(xN, yN) || !s.pbAvailable(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, xN, yN) {
			return nil, false
		}
		return s.pic.motionAt(xN, yN), true
	}

	// A1
	var a1, b1 *pbMotion
	okA1, okB1 := false, false
	vertical2 := cu.partMode == partNx2N || cu.partMode == partnLx2N || cu.partMode == partnRx2N
	if !(vertical2 && partIdx == 1) {
		a1, okA1 = spatial(xPb-1, yPb+h-1)
	}
	if okA1 {
		list[num] = *a1
		num++
	}

	// B1
	horizontal2 := cu.partMode == part2NxN || cu.partMode == part2NxnU || cu.partMode == part2NxnD
	if !(horizontal2 && partIdx == 1) {
		b1, okB1 = spatial(xPb+w-1, yPb-1)
	}
	if okB1 && !(okA1 && sameMotion(a1, b1)) {
		list[num] = *b1
		num++
	}

	// B0
	b0, okB0 := spatial(xPb+w, yPb-1)
	if okB0 && okB1 && sameMotion(b0, b1) {
		okB0 = false
	}
	if okB0 {
		list[num] = *b0
		num++
	}

	// A0
	a0, okA0 := spatial(xPb-1, yPb+h)
	if okA0 && okA1 && sameMotion(a0, a1) {
		okA0 = false
	}
	if okA0 {
		list[num] = *a0
		num++
	}

	// B2
	if num < 4 {
		b2, okB2 := spatial(xPb-1, yPb-1)
		if okB2 && okA1 && sameMotion(b2, a1) {
			okB2 = false
		}
		if okB2 && okB1 && sameMotion(b2, b1) {
			okB2 = false
		}
		if okB2 {
			list[num] = *b2
			num++
		}
	}

	// temporal
	if num < maxNum && sh.TemporalMvpEnabled {
		var col pbMotion
		mv, ok := s.temporalMv(xPb, yPb, w, h, 0, 0)
		if ok {
			col.predFlag[0], col.mv[0] = true, mv
		}
		if sh.IsB() {
			if mv, ok := s.temporalMv(xPb, yPb, w, h, 0, 1); ok {
				col.predFlag[1], col.mv[1] = true, mv
			}
		}
		if col.predFlag[0] || col.predFlag[1] {
			list[num] = col
			num++
		}
	}

	// combined bi-predictive candidates
	if sh.IsB() && num > 1 && num < maxNum {
		numOrig := num
		for combIdx := 0; combIdx < numOrig*(numOrig-1) && num < maxNum; combIdx++ {
			l0 := &list[l0CandIdx[combIdx]]
			l1 := &list[l1CandIdx[combIdx]]
			if !l0.predFlag[0] || !l1.predFlag[1] {
				continue
			}
			if s.si.refPOC[0][l0.refIdx[0]] == s.si.refPOC[1][l1.refIdx[1]] && l0.mv[0] == l1.mv[1] {
				continue
			}
			var c pbMotion
			c.predFlag = [2]bool{true, true}
			c.refIdx = [2]int8{l0.refIdx[0], l1.refIdx[1]}
			c.mv = [2]mvec{l0.mv[0], l1.mv[1]}
			list[num] = c
			num++
		}
	}

	// zero candidates
	numRefIdx := sh.NumRefIdxActive[0]
	if sh.IsB() {
		numRefIdx = minInt(sh.NumRefIdxActive[0], sh.NumRefIdxActive[1])
	}
	for zeroIdx := 0; num < maxNum; zeroIdx++ {
		refIdx := 0
		if zeroIdx < numRefIdx {
			refIdx = zeroIdx
		}
		var c pbMotion
		c.predFlag[0], c.refIdx[0] = true, int8(refIdx)
		c.refIdx[1] = -1
		if sh.IsB() {
			c.predFlag[1], c.refIdx[1] = true, int8(refIdx)
		}
		list[num] = c
		num++
	}

	m := list[mergeIdx]
	if m.predFlag[0] && m.predFlag[1] && origW+origH == 12 {
		m.predFlag[1], m.refIdx[1], m.mv[1] = false, -1, mvec{}
	}
	for l := 0; l < 2; l++ {
		if !m.predFlag[l] {
			m.refIdx[l], m.mv[l] = -1, mvec{}
		}
	}
	return m
}

// amvpMotion derives the motion vectors of a prediction unit in AMVP mode
// (8.5.3.2.5).
func (s *sliceDecoder) amvpMotion(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx int, p *pbMvd) pbMotion {
	var m pbMotion
	m.refIdx = [2]int8{-1, -1}
	for l := 0; l < 2; l++ {
		if (l == 0 && p.predIdc == predL1) || (l == 1 && p.predIdc == predL0) {
			continue
		}
		mvp := s.mvpCandidate(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, l, p.refIdx[l], p.mvpFlag[l])
		// 8.5.3.2.5: 16 位回绕
		m.mv[l] = mvec{
			x: int32(int16(mvp.x + p.mvd[l].x)),
			y: int32(int16(mvp.y + p.mvd[l].y)),
		}
		m.refIdx[l] = int8(p.refIdx[l])
		m.predFlag[l] = true
	}
	return m
}

// mvpCandidate builds mvpListLX and returns entry mvpFlag (8.5.3.2.6).
func (s *sliceDecoder) mvpCandidate(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, X, refIdx, mvpFlag int) mvec {
	si := s.si
	Y := 1 - X
	targetPOC := si.refPOC[X][refIdx]
	targetPic := si.refs[X][refIdx]
	targetLT := si.refLT[X][refIdx]
	currPOC := s.pic.poc

	samePic := func(l int, idx int8) bool {
		return si.refs[l][idx] == targetPic && si.refPOC[l][idx] == targetPOC
	}
	// exact reference picture match, LX before LY
	exact := func(nb *pbMotion) (mvec, bool) {
		if nb.predFlag[X] && samePic(X, nb.refIdx[X]) {
			return nb.mv[X], true
		}
		if nb.predFlag[Y] && samePic(Y, nb.refIdx[Y]) {
			return nb.mv[Y], true
		}
		return mvec{}, false
	}
	// matching long term marking, scaled when both are short term
	scaled := func(nb *pbMotion) (mvec, bool) {
		for _, l := range [2]int{X, Y} {
			if !nb.predFlag[l] || si.refLT[l][nb.refIdx[l]] != targetLT {
				continue
			}
			mv := nb.mv[l]
			if !targetLT {
				td := clip3(-128, 127, currPOC-si.refPOC[l][nb.refIdx[l]])
				tb := clip3(-128, 127, currPOC-targetPOC)
				mv = scaleMv(mv, td, tb)
			}
			return mv, true
		}
		return mvec{}, false
	}

	nbA := [2][2]int{{xPb - 1, yPb + h}, {xPb - 1, yPb + h - 1}}
	nbB := [3][2]int{{xPb + w, yPb - 1}, {xPb + w - 1, yPb - 1}, {xPb - 1, yPb - 1}}

	var availA [2]bool
	for k, n := range nbA {
		availA[k] = s.pbAvailable(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, n[0], n[1])
	}
	var availB [3]bool
	for k, n := range nbB {
		availB[k] = s.pbAvailable(xCb, yCb, nCbS, xPb, yPb, w, h, partIdx, n[0], n[1])
	}

	var mvA, mvB mvec
	okA, okB := false, false
	isScaled := availA[0] || availA[1]

	for k, n := range nbA {
		if availA[k] && !okA {
			mvA, okA = exact(s.pic.motionAt(n[0], n[1]))
		}
	}
	for k, n := range nbA {
		if availA[k] && !okA {
			mvA, okA = scaled(s.pic.motionAt(n[0], n[1]))
		}
	}

	for k, n := range nbB {
		if availB[k] && !okB {
			mvB, okB = exact(s.pic.motionAt(n[0], n[1]))
		}
	}
	if !isScaled && okB {
		mvA, okA = mvB, true
	}
	if !isScaled {
		okB = false
		for k, n := range nbB {
			if availB[k] && !okB {
				mvB, okB = scaled(s.pic.motionAt(n[0], n[1]))
			}
		}
	}

	var list [3]mvec
	num := 0
	if okA {
		list[num] = mvA
		num++
	}
	if okB && !(okA && mvA == mvB) {
		list[num] = mvB
		num++
	}
	if num < 2 && s.sh.TemporalMvpEnabled {
		if mv, ok := s.temporalMv(xPb, yPb, w, h, refIdx, X); ok {
			list[num] = mv
			num++
		}
	}
	// 不足两个时补零
	return list[mvpFlag]
}

func scaleMv(mv mvec, td, tb int) mvec {
	if td == 0 {
		return mv
	}
	tx := (16384 + absInt(td)>>1) / td
	f := clip3(-4096, 4095, (tb*tx+32)>>6)
	scale := func(v int32) int32 {
		p := f * int(v)
		r := (absInt(p) + 127) >> 8
		if p < 0 {
			r = -r
		}
		return int32(clip3(-32768, 32767, r))
	}
	return mvec{scale(mv.x), scale(mv.y)}
}

// temporalMv derives the collocated motion vector for refIdx of list X
// (8.5.3.2.8).
func (s *sliceDecoder) temporalMv(xPb, yPb, w, h, refIdx, X int) (mvec, bool) {
	sps := s.sps
	colPic := s.colPic()
	if colPic == nil {
		return mvec{}, false
	}

	xBr, yBr := xPb+w, yPb+h
	if yPb>>uint(sps.CtbLog2Size) == yBr>>uint(sps.CtbLog2Size) && yBr < sps.Height && xBr < sps.Width {
		if mv, ok := s.collocatedMv(colPic, (xBr>>4)<<4, (yBr>>4)<<4, refIdx, X); ok {
			return mv, true
		}
	}

	xCtr, yCtr := xPb+w>>1, yPb+h>>1
	return s.collocatedMv(colPic, (xCtr>>4)<<4, (yCtr>>4)<<4, refIdx, X)
}

func (s *sliceDecoder) colPic() *Picture {
	sh := s.sh
	l := 0
	if sh.IsB() && !sh.CollocatedFromL0 {
		l = 1
	}
	if sh.CollocatedRefIdx >= sh.NumRefIdxActive[l] {
		return nil
	}
	return s.si.refs[l][sh.CollocatedRefIdx]
}

// collocatedMv implements 8.5.3.2.9 for the collocated block at (x, y).
func (s *sliceDecoder) collocatedMv(colPic *Picture, x, y, refIdx, X int) (mvec, bool) {
	if colPic.blocks == nil || x >= colPic.width[0] || y >= colPic.height[0] {
		return mvec{}, false
	}
	b := colPic.block(x, y)
	if b.isIntra() || colPic.ctbAt(x, y).sliceAddr < 0 {
		return mvec{}, false
	}
	col := colPic.motionAt(x, y)
	if !col.predFlag[0] && !col.predFlag[1] {
		return mvec{}, false
	}

	var l int
	switch {
	case !col.predFlag[0]:
		l = 1
	case !col.predFlag[1]:
		l = 0
	case s.noBackwardPred:
		l = X
	default:
		// N 取 collocated_from_l0_flag 的值
		l = 0
		if s.sh.CollocatedFromL0 {
			l = 1
		}
	}

	colSlice := colPic.sliceAt(x, y)
	colRef := col.refIdx[l]
	targetLT := s.si.refLT[X][refIdx]
	if colSlice.refLT[l][colRef] != targetLT {
		return mvec{}, false
	}

	mv := col.mv[l]
	colPocDiff := colPic.poc - colSlice.refPOC[l][colRef]
	currPocDiff := s.pic.poc - s.si.refPOC[X][refIdx]
	if targetLT || colPocDiff == currPocDiff {
		return mv, true
	}
	return scaleMv(mv, clip3(-128, 127, colPocDiff), clip3(-128, 127, currPocDiff)), true
}

// predictInter writes the inter prediction of all components (8.5.3.3).
func (s *sliceDecoder) predictInter(xPb, yPb, w, h int, m *pbMotion) {
	sps := s.sps
	comps := 3
	if sps.ChromaArrayType == 0 {
		comps = 1
	}

	for c := 0; c < comps; c++ {
		xP, yP, pw, ph := xPb, yPb, w, h
		if c > 0 {
			xP, yP = xPb/sps.SubWidthC, yPb/sps.SubHeightC
			pw, ph = w/sps.SubWidthC, h/sps.SubHeightC
		}

		for l := 0; l < 2; l++ {
			if !m.predFlag[l] {
				continue
			}
			ref := s.si.refs[l][m.refIdx[l]]
			plane, stride := ref.Plane(c)
			if c == 0 {
				mv := m.mv[l]
				interpolate(s.mc.pred[l][:], pw, plane, stride, ref.width[0], ref.height[0],
					xP+int(mv.x>>2), yP+int(mv.y>>2), pw, ph, lumaFilter[mv.x&3], lumaFilter[mv.y&3], &s.mc.tmp)
				continue
			}
			mvx := int(m.mv[l].x) * 2 / sps.SubWidthC
			mvy := int(m.mv[l].y) * 2 / sps.SubHeightC
			interpolate(s.mc.pred[l][:], pw, plane, stride, ref.width[c], ref.height[c],
				xP+mvx>>3, yP+mvy>>3, pw, ph, chromaFilter[mvx&7], chromaFilter[mvy&7], &s.mc.tmp)
		}

		plane, stride := s.pic.Plane(c)
		s.weightedPrediction(plane[yP*stride+xP:], stride, pw, ph, c, m)
	}
}

// interpolate produces the 14 bit intermediate prediction of a w x h block
// whose integer position in the reference is (x0, y0) (8.5.3.3.3).
func interpolate(dst []int16, dstStride int, plane []uint8, stride, pw, ph, x0, y0, w, h int, fx, fy []int, tmp *[(64 + 7) * 64]int16) {
	taps := len(fx)
	half := taps/2 - 1
	sample := func(x, y int) int {
		return int(plane[clip3(0, ph-1, y)*stride+clip3(0, pw-1, x)])
	}
	fullX := fx[half] == 64
	fullY := fy[half] == 64

	switch {
	case fullX && fullY:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst[y*dstStride+x] = int16(sample(x0+x, y0+y) << 6)
			}
		}
	case fullY:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum := 0
				for i := 0; i < taps; i++ {
					sum += fx[i] * sample(x0+x+i-half, y0+y)
				}
				dst[y*dstStride+x] = int16(sum)
			}
		}
	case fullX:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum := 0
				for i := 0; i < taps; i++ {
					sum += fy[i] * sample(x0+x, y0+y+i-half)
				}
				dst[y*dstStride+x] = int16(sum)
			}
		}
	default:
		rows := h + taps - 1
		for r := 0; r < rows; r++ {
			for x := 0; x < w; x++ {
				sum := 0
				for i := 0; i < taps; i++ {
					sum += fx[i] * sample(x0+x+i-half, y0+r-half)
				}
				tmp[r*w+x] = int16(sum)
			}
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum := 0
				for i := 0; i < taps; i++ {
					sum += fy[i] * int(tmp[(y+i)*w+x])
				}
				dst[y*dstStride+x] = int16(sum >> 6)
			}
		}
	}
}

// weightedPrediction combines the intermediate predictions into dst
// (8.5.3.3.4).
func (s *sliceDecoder) weightedPrediction(dst []uint8, stride, w, h, c int, m *pbMotion) {
	sh, pps := s.sh, s.pps
	explicit := (sh.SliceType == hevc.SliceP && pps.WeightedPred) || (sh.IsB() && pps.WeightedBipred)
	p0, p1 := s.mc.pred[0][:], s.mc.pred[1][:]
	bi := m.predFlag[0] && m.predFlag[1]

	if !explicit {
		if bi {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					i := y*w + x
					dst[y*stride+x] = clipPel((int(p0[i]) + int(p1[i]) + 64) >> 7)
				}
			}
			return
		}
		p := p0
		if !m.predFlag[0] {
			p = p1
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst[y*stride+x] = clipPel((int(p[y*w+x]) + 32) >> 6)
			}
		}
		return
	}

	pwt := &sh.PredWeightTable
	weight := func(l int) (wt, o, log2WD int) {
		ri := m.refIdx[l]
		if c == 0 {
			return pwt.LumaWeight[l][ri], pwt.LumaOffset[l][ri], pwt.LumaLog2WeightDenom + 6
		}
		return pwt.ChromaWeight[l][ri][c-1], pwt.ChromaOffset[l][ri][c-1], pwt.ChromaLog2WeightDenom + 6
	}

	if bi {
		w0, o0, log2WD := weight(0)
		w1, o1, _ := weight(1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				v := (int(p0[i])*w0 + int(p1[i])*w1 + ((o0 + o1 + 1) << uint(log2WD))) >> uint(log2WD+1)
				dst[y*stride+x] = clipPel(v)
			}
		}
		return
	}

	l := 0
	if !m.predFlag[0] {
		l = 1
	}
	p := s.mc.pred[l][:]
	w0, o0, log2WD := weight(l)
	round := 1 << uint(log2WD-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := ((int(p[y*w+x])*w0 + round) >> uint(log2WD)) + o0
			dst[y*stride+x] = clipPel(v)
		}
	}
}
