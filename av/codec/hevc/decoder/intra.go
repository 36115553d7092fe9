// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

// intraPredAngle, Table 8-4
var intraPredAngle = [35]int{
	0, 0, 32, 26, 21, 17, 13, 9, 5, 2, 0, -2, -5, -9, -13, -17, -21, -26,
	-32, -26, -21, -17, -13, -9, -5, -2, 0, 2, 5, 9, 13, 17, 21, 26, 32,
}

// invAngle of modes 11 to 25, Table 8-5
var invAngle = [15]int{
	-4096, -1638, -910, -630, -482, -390, -315, -256, -315, -390, -482, -630, -910, -1638, -4096,
}

// intraRefs holds the neighbouring samples of a transform block in the
// order of the substitution process: p[-1][2N-1] up to p[-1][-1], then
// p[0][-1] to p[2N-1][-1].
type intraRefs struct {
	n int
	v [4*32 + 1]int
}

func (r *intraRefs) left(y int) int   { return r.v[2*r.n-1-y] } // p[-1][y]
func (r *intraRefs) top(x int) int    { return r.v[2*r.n+1+x] } // p[x][-1]
func (r *intraRefs) corner() int      { return r.v[2*r.n] }     // p[-1][-1]
func (r *intraRefs) setLeft(y, v int) { r.v[2*r.n-1-y] = v }
func (r *intraRefs) setTop(x, v int)  { r.v[2*r.n+1+x] = v }

// predictIntra writes the intra prediction of the (1<<log2) block of
// component c at (x0, y0) in component samples (8.4.4.2).
func (s *sliceDecoder) predictIntra(c, x0, y0, log2, mode int) {
	n := 1 << uint(log2)
	var refs intraRefs
	s.intraNeighbours(&refs, c, x0, y0, n)

	if c == 0 || s.sps.ChromaArrayType == 3 {
		filterIntraRefs(&refs, c, mode, log2, s.sps.StrongIntraSmoothing)
	}

	plane, stride := s.pic.Plane(c)
	dst := plane[y0*stride+x0:]
	edge := c == 0 && n < 32
	switch mode {
	case intraPlanar:
		predPlanar(dst, stride, &refs, log2)
	case intraDC:
		predDC(dst, stride, &refs, log2, edge)
	default:
		predAngular(dst, stride, &refs, mode, edge)
	}
}

// intraNeighbours gathers and substitutes the reference samples
// (8.4.4.2.2).
func (s *sliceDecoder) intraNeighbours(refs *intraRefs, c, x0, y0, n int) {
	sps, pic := s.sps, s.pic
	subW, subH := 1, 1
	if c > 0 {
		subW, subH = sps.SubWidthC, sps.SubHeightC
	}
	unitW, unitH := maxInt(1, 4/subW), maxInt(1, 4/subH)
	xCurr, yCurr := x0*subW, y0*subH
	constrained := s.pps.ConstrainedIntraPred

	usable := func(xN, yN int) bool {
		xL, yL := xN*subW, yN*subH
		if !s.available(xCurr, yCurr, xL, yL) {
			return false
		}
		return !constrained || pic.block(xL, yL).isIntra()
	}

	plane, stride := pic.Plane(c)
	refs.n = n
	var avail [4*32 + 1]bool
	found := false

	// left column, bottom to top
	for y := 2*n - 1; y >= 0; y -= unitH {
		yu := y - y%unitH
		if usable(x0-1, y0+yu) {
			found = true
			for k := yu; k < yu+unitH && k < 2*n; k++ {
				refs.setLeft(k, int(plane[(y0+k)*stride+x0-1]))
				avail[2*n-1-k] = true
			}
		}
	}
	if usable(x0-1, y0-1) {
		found = true
		refs.v[2*n] = int(plane[(y0-1)*stride+x0-1])
		avail[2*n] = true
	}
	for x := 0; x < 2*n; x += unitW {
		if usable(x0+x, y0-1) {
			found = true
			for k := x; k < x+unitW && k < 2*n; k++ {
				refs.setTop(k, int(plane[(y0-1)*stride+x0+k]))
				avail[2*n+1+k] = true
			}
		}
	}

	total := 4*n + 1
	if !found {
		for i := 0; i < total; i++ {
			refs.v[i] = 128
		}
		return
	}

	if !avail[0] {
		for i := 1; i < total; i++ {
			if avail[i] {
				refs.v[0] = refs.v[i]
				break
			}
		}
	}
	for i := 1; i < total; i++ {
		if !avail[i] {
			refs.v[i] = refs.v[i-1]
		}
	}
}

// filterIntraRefs applies the neighbouring sample filter (8.4.4.2.3).
func filterIntraRefs(refs *intraRefs, c, mode, log2 int, strongSmoothing bool) {
	n := refs.n
	if mode == intraDC || n == 4 {
		return
	}
	minDist := minInt(absInt(mode-intraVer), absInt(mode-intraHor))
	thres := [...]int{3: 7, 4: 1, 5: 0}[log2]
	if minDist <= thres {
		return
	}

	total := 4*n + 1
	if strongSmoothing && c == 0 && n == 32 {
		corner, bottom, right := refs.corner(), refs.left(2*n-1), refs.top(2*n-1)
		if absInt(corner+right-2*refs.top(n-1)) < 8 && absInt(corner+bottom-2*refs.left(n-1)) < 8 {
			for i := 0; i < 2*n-1; i++ {
				refs.setLeft(i, ((63-i)*corner+(i+1)*bottom+32)>>6)
				refs.setTop(i, ((63-i)*corner+(i+1)*right+32)>>6)
			}
			return
		}
	}

	var f [4*32 + 1]int
	f[0], f[total-1] = refs.v[0], refs.v[total-1]
	for i := 1; i < total-1; i++ {
		f[i] = (refs.v[i-1] + 2*refs.v[i] + refs.v[i+1] + 2) >> 2
	}
	copy(refs.v[:total], f[:total])
}

func predPlanar(dst []uint8, stride int, refs *intraRefs, log2 int) {
	n := refs.n
	topRight, bottomLeft := refs.top(n), refs.left(n)
	for y := 0; y < n; y++ {
		row := dst[y*stride:]
		for x := 0; x < n; x++ {
			v := (n-1-x)*refs.left(y) + (x+1)*topRight +
				(n-1-y)*refs.top(x) + (y+1)*bottomLeft + n
			row[x] = uint8(v >> uint(log2+1))
		}
	}
}

func predDC(dst []uint8, stride int, refs *intraRefs, log2 int, edge bool) {
	n := refs.n
	sum := n
	for i := 0; i < n; i++ {
		sum += refs.top(i) + refs.left(i)
	}
	dc := sum >> uint(log2+1)

	for y := 0; y < n; y++ {
		row := dst[y*stride:]
		for x := 0; x < n; x++ {
			row[x] = uint8(dc)
		}
	}
	if !edge {
		return
	}

	dst[0] = uint8((refs.left(0) + 2*dc + refs.top(0) + 2) >> 2)
	for x := 1; x < n; x++ {
		dst[x] = uint8((refs.top(x) + 3*dc + 2) >> 2)
	}
	for y := 1; y < n; y++ {
		dst[y*stride] = uint8((refs.left(y) + 3*dc + 2) >> 2)
	}
}

func predAngular(dst []uint8, stride int, refs *intraRefs, mode int, edge bool) {
	n := refs.n
	angle := intraPredAngle[mode]
	vertical := mode >= 18

	// main 为主参考行，side 为另一侧
	main, side := refs.top, refs.left
	if !vertical {
		main, side = refs.left, refs.top
	}

	// ref[k] is stored at buf[k+n]
	var buf [3*32 + 1]int
	ref := func(k int) int { return buf[k+n] }
	buf[n] = refs.corner()
	for k := 1; k <= n; k++ {
		buf[n+k] = main(k - 1)
	}
	if angle < 0 {
		if last := (n * angle) >> 5; last < -1 {
			inv := invAngle[mode-11]
			for k := last; k <= -1; k++ {
				buf[n+k] = side(-1 + ((k*inv + 128) >> 8))
			}
		}
	} else {
		for k := n + 1; k <= 2*n; k++ {
			buf[n+k] = main(k - 1)
		}
	}

	for j := 0; j < n; j++ {
		idx := ((j + 1) * angle) >> 5
		fact := ((j + 1) * angle) & 31
		for i := 0; i < n; i++ {
			var v int
			if fact != 0 {
				v = ((32-fact)*ref(i+idx+1) + fact*ref(i+idx+2) + 16) >> 5
			} else {
				v = ref(i + idx + 1)
			}
			// 垂直模式按行写入，水平模式按列写入
			if vertical {
				dst[j*stride+i] = uint8(v)
			} else {
				dst[i*stride+j] = uint8(v)
			}
		}
	}

	if !edge || angle != 0 {
		return
	}
	corner := refs.corner()
	if vertical {
		for y := 0; y < n; y++ {
			dst[y*stride] = clipPel(refs.top(0) + ((refs.left(y) - corner) >> 1))
		}
	} else {
		for x := 0; x < n; x++ {
			dst[x] = clipPel(refs.left(0) + ((refs.top(x) - corner) >> 1))
		}
	}
}
