// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

// β′, Table 8-12
var betaTable = [52]int{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 20, 22, 24,
	26, 28, 30, 32, 34, 36, 38, 40, 42, 44, 46, 48, 50, 52, 54, 56,
	58, 60, 62, 64,
}

// tC′, Table 8-12
var tcTable = [54]int{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4,
	5, 5, 6, 6, 7, 8, 9, 10, 11, 13, 14, 16, 18, 20, 22, 24,
}

// deblock applies the deblocking filter to a decoded picture, vertical
// edges of the whole picture first (8.7.2).
func (d *Decoder) deblock(pic *Picture) {
	rows := pic.sps.PicHeightInCtbs
	jobs := make([]task, rows)
	for _, vertical := range [2]bool{true, false} {
		for r := 0; r < rows; r++ {
			r, vertical := r, vertical
			jobs[r] = func() { deblockRow(pic, r, vertical) }
		}
		d.workers.run(jobs)
	}
}

// deblockRow filters the edges of one CTB row in one direction. Rows may
// run concurrently, the samples an edge reads never overlap those another
// row writes.
func deblockRow(pic *Picture, row int, vertical bool) {
	sps := pic.sps
	y0 := row << uint(sps.CtbLog2Size)
	y1 := minInt(y0+sps.CtbSize, sps.Height)
	chroma := sps.ChromaArrayType != 0

	if vertical {
		for y := y0; y < y1; y += 4 {
			for x := 8; x < sps.Width; x += 8 {
				q := pic.block(x, y)
				if q.flags&(flagTransformV|flagPredictionV) == 0 {
					continue
				}
				bs := boundaryStrength(pic, x-1, y, x, y, q.flags&flagTransformV != 0)
				if bs == 0 {
					continue
				}
				filterLumaEdge(pic, x, y, true, bs)
				if chroma && bs == 2 && (x/sps.SubWidthC)&7 == 0 {
					filterChromaEdge(pic, x, y, true)
				}
			}
		}
		return
	}

	for y := y0; y < y1; y += 8 {
		if y == 0 {
			continue
		}
		for x := 0; x < sps.Width; x += 4 {
			q := pic.block(x, y)
			if q.flags&(flagTransformH|flagPredictionH) == 0 {
				continue
			}
			bs := boundaryStrength(pic, x, y-1, x, y, q.flags&flagTransformH != 0)
			if bs == 0 {
				continue
			}
			filterLumaEdge(pic, x, y, false, bs)
			if chroma && bs == 2 && (y/sps.SubHeightC)&7 == 0 {
				filterChromaEdge(pic, x, y, false)
			}
		}
	}
}

// boundaryStrength derives bS of the edge between the blocks containing
// (xp, yp) and (xq, yq) (8.7.2.4).
func boundaryStrength(pic *Picture, xp, yp, xq, yq int, transformEdge bool) int {
	p, q := pic.block(xp, yp), pic.block(xq, yq)
	if p.isIntra() || q.isIntra() {
		return 2
	}
	if transformEdge && (p.flags&flagCodedLuma != 0 || q.flags&flagCodedLuma != 0) {
		return 1
	}

	mp, mq := pic.motionAt(xp, yp), pic.motionAt(xq, yq)
	sp, sq := pic.sliceAt(xp, yp), pic.sliceAt(xq, yq)

	var refP, refQ [2]*Picture
	nP, nQ := 0, 0
	for l := 0; l < 2; l++ {
		if mp.predFlag[l] {
			refP[l] = sp.refs[l][mp.refIdx[l]]
			nP++
		}
		if mq.predFlag[l] {
			refQ[l] = sq.refs[l][mq.refIdx[l]]
			nQ++
		}
	}
	if nP != nQ {
		return 1
	}

	if nP == 1 {
		lp, lq := 0, 0
		if !mp.predFlag[0] {
			lp = 1
		}
		if !mq.predFlag[0] {
			lq = 1
		}
		if refP[lp] != refQ[lq] || mvDiffers(mp.mv[lp], mq.mv[lq]) {
			return 1
		}
		return 0
	}

	// 双向预测
	if !((refP[0] == refQ[0] && refP[1] == refQ[1]) || (refP[0] == refQ[1] && refP[1] == refQ[0])) {
		return 1
	}
	if refP[0] != refP[1] {
		if refP[0] == refQ[0] {
			if mvDiffers(mp.mv[0], mq.mv[0]) || mvDiffers(mp.mv[1], mq.mv[1]) {
				return 1
			}
			return 0
		}
		if mvDiffers(mp.mv[0], mq.mv[1]) || mvDiffers(mp.mv[1], mq.mv[0]) {
			return 1
		}
		return 0
	}

	// both motion vectors refer to the same picture
	straight := mvDiffers(mp.mv[0], mq.mv[0]) || mvDiffers(mp.mv[1], mq.mv[1])
	cross := mvDiffers(mp.mv[0], mq.mv[1]) || mvDiffers(mp.mv[1], mq.mv[0])
	if straight && cross {
		return 1
	}
	return 0
}

func mvDiffers(a, b mvec) bool {
	return absInt(int(a.x-b.x)) >= 4 || absInt(int(a.y-b.y)) >= 4
}

// untouched reports blocks whose samples the loop filters keep.
func untouched(b *blockInfo) bool {
	return b.flags&(flagPcm|flagBypass) != 0
}

// filterLumaEdge filters a four sample luma edge segment whose q0 sample is
// at (x, y) (8.7.2.5.3, 8.7.2.5.6, 8.7.2.5.7).
func filterLumaEdge(pic *Picture, x, y int, vertical bool, bs int) {
	plane, stride := pic.Plane(0)
	step, along := 1, stride
	xp, yp := x-1, y
	if !vertical {
		step, along = stride, 1
		xp, yp = x, y-1
	}

	p, q := pic.block(xp, yp), pic.block(x, y)
	sh := pic.sliceAt(x, y).header
	qpL := (int(q.qpY) + int(p.qpY) + 1) >> 1
	beta := betaTable[clip3(0, 51, qpL+sh.BetaOffsetDiv2*2)]
	tc := tcTable[clip3(0, 53, qpL+2*(bs-1)+sh.TcOffsetDiv2*2)]
	if tc == 0 && beta == 0 {
		return
	}

	base := y*stride + x
	at := func(k, i int) int { return int(plane[base+k*along+i*step]) }
	// p(i) 为边界左/上侧第 i 个样本
	pv := func(k, i int) int { return at(k, -1-i) }
	qv := func(k, i int) int { return at(k, i) }

	dp0 := absInt(pv(0, 2) - 2*pv(0, 1) + pv(0, 0))
	dp3 := absInt(pv(3, 2) - 2*pv(3, 1) + pv(3, 0))
	dq0 := absInt(qv(0, 2) - 2*qv(0, 1) + qv(0, 0))
	dq3 := absInt(qv(3, 2) - 2*qv(3, 1) + qv(3, 0))
	dpq0, dpq3 := dp0+dq0, dp3+dq3
	if dpq0+dpq3 >= beta {
		return
	}

	strongLine := func(k, dpq int) bool {
		return 2*dpq < beta>>2 &&
			absInt(pv(k, 3)-pv(k, 0))+absInt(qv(k, 0)-qv(k, 3)) < beta>>3 &&
			absInt(pv(k, 0)-qv(k, 0)) < (5*tc+1)>>1
	}
	strong := strongLine(0, dpq0) && strongLine(3, dpq3)
	dEp := dp0+dp3 < (beta+beta>>1)>>3
	dEq := dq0+dq3 < (beta+beta>>1)>>3
	noP, noQ := untouched(p), untouched(q)

	for k := 0; k < 4; k++ {
		line := base + k*along
		set := func(i, v int) { plane[line+i*step] = uint8(v) }
		p0, p1, p2, p3 := pv(k, 0), pv(k, 1), pv(k, 2), pv(k, 3)
		q0, q1, q2, q3 := qv(k, 0), qv(k, 1), qv(k, 2), qv(k, 3)

		if strong {
			tc2 := 2 * tc
			if !noP {
				set(-1, clip3(p0-tc2, p0+tc2, (p2+2*p1+2*p0+2*q0+q1+4)>>3))
				set(-2, clip3(p1-tc2, p1+tc2, (p2+p1+p0+q0+2)>>2))
				set(-3, clip3(p2-tc2, p2+tc2, (2*p3+3*p2+p1+p0+q0+4)>>3))
			}
			if !noQ {
				set(0, clip3(q0-tc2, q0+tc2, (p1+2*p0+2*q0+2*q1+q2+4)>>3))
				set(1, clip3(q1-tc2, q1+tc2, (p0+q0+q1+q2+2)>>2))
				set(2, clip3(q2-tc2, q2+tc2, (p0+q0+q1+3*q2+2*q3+4)>>3))
			}
			continue
		}

		delta := (9*(q0-p0) - 3*(q1-p1) + 8) >> 4
		if absInt(delta) >= tc*10 {
			continue
		}
		delta = clip3(-tc, tc, delta)
		if !noP {
			set(-1, int(clipPel(p0+delta)))
			if dEp {
				dp := clip3(-(tc >> 1), tc>>1, (((p2+p0+1)>>1)-p1+delta)>>1)
				set(-2, int(clipPel(p1+dp)))
			}
		}
		if !noQ {
			set(0, int(clipPel(q0-delta)))
			if dEq {
				dq := clip3(-(tc >> 1), tc>>1, (((q2+q0+1)>>1)-q1-delta)>>1)
				set(1, int(clipPel(q1+dq)))
			}
		}
	}
}

// filterChromaEdge filters the chroma samples of a luma edge segment with
// bS equal to 2 (8.7.2.5.5).
func filterChromaEdge(pic *Picture, x, y int, vertical bool) {
	sps, pps := pic.sps, pic.pps
	xp, yp := x-1, y
	if !vertical {
		xp, yp = x, y-1
	}
	p, q := pic.block(xp, yp), pic.block(x, y)
	sh := pic.sliceAt(x, y).header
	noP, noQ := untouched(p), untouched(q)

	xc, yc := x/sps.SubWidthC, y/sps.SubHeightC
	lines := 4 / sps.SubHeightC
	if !vertical {
		lines = 4 / sps.SubWidthC
	}

	for c := 1; c < 3; c++ {
		offset := pps.CbQpOffset
		if c == 2 {
			offset = pps.CrQpOffset
		}
		qpi := ((int(q.qpY)+int(p.qpY)+1)>>1) + offset
		qpc := chromaQpMapping(sps.ChromaArrayType, qpi)
		tc := tcTable[clip3(0, 53, qpc+2+sh.TcOffsetDiv2*2)]
		if tc == 0 {
			continue
		}

		plane, stride := pic.Plane(c)
		step, along := 1, stride
		if !vertical {
			step, along = stride, 1
		}
		for k := 0; k < lines; k++ {
			i := yc*stride + xc + k*along
			p0, p1 := int(plane[i-step]), int(plane[i-2*step])
			q0, q1 := int(plane[i]), int(plane[i+step])
			delta := clip3(-tc, tc, ((((q0 - p0) << 2) + p1 - q1 + 4) >> 3))
			if !noP {
				plane[i-step] = clipPel(p0 + delta)
			}
			if !noQ {
				plane[i] = clipPel(q0 - delta)
			}
		}
	}
}
