// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

// neighbour offsets of the edge offset classes, Table 8-13
var saoEdgeOffsets = [4][2][2]int{
	{{-1, 0}, {1, 0}},
	{{0, -1}, {0, 1}},
	{{-1, -1}, {1, 1}},
	{{1, -1}, {-1, 1}},
}

// edgeIdx remapping of 2 + Sign() + Sign()
var saoEdgeIdx = [5]int{1, 2, 0, 3, 4}

// sao applies sample adaptive offset to a deblocked picture (8.7.3).
func (d *Decoder) sao(pic *Picture) {
	enabled := false
	for _, si := range pic.slices {
		if si.header.SaoLuma || si.header.SaoChroma {
			enabled = true
			break
		}
	}
	if !enabled {
		return
	}

	// 以去块后的副本作为输入
	var src [3][]uint8
	for c := 0; c < 3; c++ {
		n := len(pic.planes[c])
		if cap(d.saoBuf[c]) < n {
			d.saoBuf[c] = make([]uint8, n)
		}
		src[c] = d.saoBuf[c][:n]
		copy(src[c], pic.planes[c])
	}

	rows := pic.sps.PicHeightInCtbs
	jobs := make([]task, rows)
	for r := 0; r < rows; r++ {
		r := r
		jobs[r] = func() { saoRow(pic, &src, r) }
	}
	d.workers.run(jobs)
}

func saoRow(pic *Picture, src *[3][]uint8, row int) {
	sps := pic.sps
	comps := 3
	if sps.ChromaArrayType == 0 {
		comps = 1
	}

	for col := 0; col < sps.PicWidthInCtbs; col++ {
		rs := row*sps.PicWidthInCtbs + col
		ctb := &pic.ctbs[rs]
		if ctb.sliceAddr < 0 {
			continue
		}
		sh := pic.slices[ctb.sliceIdx].header
		for c := 0; c < comps; c++ {
			if (c == 0 && !sh.SaoLuma) || (c > 0 && !sh.SaoChroma) {
				continue
			}
			if ctb.sao[c].typeIdx == 0 {
				continue
			}
			saoCtb(pic, src[c], c, rs)
		}
	}
}

// saoCtb applies the offsets of component c to CTB rs.
func saoCtb(pic *Picture, src []uint8, c, rs int) {
	sps, pps := pic.sps, pic.pps
	params := &pic.ctbs[rs].sao[c]
	dst, stride := pic.Plane(c)
	width, height := pic.width[c], pic.height[c]

	subW, subH := 1, 1
	if c > 0 {
		subW, subH = sps.SubWidthC, sps.SubHeightC
	}
	ctbW, ctbH := sps.CtbSize/subW, sps.CtbSize/subH
	x0 := (rs % sps.PicWidthInCtbs) * ctbW
	y0 := (rs / sps.PicWidthInCtbs) * ctbH
	x1, y1 := minInt(x0+ctbW, width), minInt(y0+ctbH, height)

	if params.typeIdx == 1 {
		var bandTable [32]int
		for k := 0; k < 4; k++ {
			bandTable[(k+int(params.class))&31] = k + 1
		}
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				if untouched(pic.block(x*subW, y*subH)) {
					continue
				}
				v := int(src[y*stride+x])
				if b := bandTable[v>>3]; b > 0 {
					dst[y*stride+x] = clipPel(v + int(params.offset[b-1]))
				}
			}
		}
		return
	}

	cur := &pic.ctbs[rs]
	curTs := pps.CtbAddrRsToTs[rs]
	curAcross := pic.slices[cur.sliceIdx].header.LoopFilterAcrossSlices
	ctbLog2 := uint(sps.CtbLog2Size)

	// usable reports whether the neighbour at (xn, yn) takes part in the
	// edge classification.
	usable := func(xn, yn int) bool {
		if xn < 0 || yn < 0 || xn >= width || yn >= height {
			return false
		}
		nrs := ((yn*subH)>>ctbLog2)*sps.PicWidthInCtbs + (xn*subW)>>ctbLog2
		if nrs == rs {
			return true
		}
		nb := &pic.ctbs[nrs]
		if nb.sliceAddr < 0 {
			return false
		}
		if nb.sliceAddr != cur.sliceAddr {
			if pps.CtbAddrRsToTs[nrs] < curTs && !curAcross {
				return false
			}
			if curTs < pps.CtbAddrRsToTs[nrs] && !pic.slices[nb.sliceIdx].header.LoopFilterAcrossSlices {
				return false
			}
		}
		return pps.LoopFilterAcrossTiles || pps.TileIDRs[nrs] == pps.TileIDRs[rs]
	}

	offsets := saoEdgeOffsets[params.class]
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if untouched(pic.block(x*subW, y*subH)) {
				continue
			}
			ax, ay := x+offsets[0][0], y+offsets[0][1]
			bx, by := x+offsets[1][0], y+offsets[1][1]
			if !usable(ax, ay) || !usable(bx, by) {
				continue
			}
			v := int(src[y*stride+x])
			e := saoEdgeIdx[2+sign(v-int(src[ay*stride+ax]))+sign(v-int(src[by*stride+bx]))]
			if e > 0 {
				dst[y*stride+x] = clipPel(v + int(params.offset[e-1]))
			}
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
