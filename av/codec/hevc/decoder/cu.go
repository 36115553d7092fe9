// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/cabac"
	"github.com/cnotch/hevcdec/av/codec/hevc/transform"
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/pkg/errors"
)

// PartMode
const (
	part2Nx2N = iota
	part2NxN
	partNx2N
	partNxN
	part2NxnU
	part2NxnD
	partnLx2N
	partnRx2N
)

// intra prediction modes
const (
	intraPlanar = 0
	intraDC     = 1
	intraHor    = 10
	intraVer    = 26
)

type cqtNode struct {
	x, y  int
	log2  int
	depth int
}

type ttNode struct {
	x, y         int
	xBase, yBase int
	log2         int
	depth        int
	blkIdx       int
	parentCbf    [2][2]bool // cbf_cb and cbf_cr of the parent node
}

type codingUnit struct {
	x, y       int
	log2       int
	predMode   uint8
	partMode   int
	bypass     bool
	intraSplit bool
	maxDepth   int
	mergeFlag  bool // merge_flag of the first prediction unit
}

func (cu *codingUnit) size() int { return 1 << uint(cu.log2) }

// decodeQuadtree walks coding_quadtree() of a CTB with an explicit stack.
func (s *sliceDecoder) decodeQuadtree(x0, y0 int) error {
	sps, pps := s.sps, s.pps
	stack := append(s.cqt[:0], cqtNode{x: x0, y: y0, log2: sps.CtbLog2Size})
	defer func() { s.cqt = stack[:0] }()

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		size := 1 << uint(n.log2)

		var split bool
		if n.x+size <= sps.Width && n.y+size <= sps.Height && n.log2 > sps.Log2MinCbSize {
			split = s.decodeSplitCuFlag(n) == 1
		} else {
			split = n.log2 > sps.Log2MinCbSize
		}

		if pps.CuQpDeltaEnabled && n.log2 >= s.log2MinCuQpDelta {
			s.isCuQpDeltaCoded = false
			s.cuQpDeltaVal = 0
		}

		if split {
			half := size >> 1
			// 逆序压栈，保持 z 扫描顺序
			for i := 3; i >= 0; i-- {
				x, y := n.x+(i&1)*half, n.y+(i>>1)*half
				if x < sps.Width && y < sps.Height {
					stack = append(stack, cqtNode{x: x, y: y, log2: n.log2 - 1, depth: n.depth + 1})
				}
			}
			continue
		}

		if err := s.decodeCodingUnit(n.x, n.y, n.log2, n.depth); err != nil {
			return err
		}
	}
	return nil
}

func (s *sliceDecoder) decodeSplitCuFlag(n cqtNode) int {
	inc := 0
	if s.available(n.x, n.y, n.x-1, n.y) && int(s.pic.block(n.x-1, n.y).ctDepth) > n.depth {
		inc++
	}
	if s.available(n.x, n.y, n.x, n.y-1) && int(s.pic.block(n.x, n.y-1).ctDepth) > n.depth {
		inc++
	}
	return s.cab.DecodeBit(&s.ctx[cabac.SplitCuFlag+inc])
}

func (s *sliceDecoder) decodeCuSkipFlag(x0, y0 int) bool {
	inc := 0
	if s.available(x0, y0, x0-1, y0) && s.pic.block(x0-1, y0).predMode == modeSkip {
		inc++
	}
	if s.available(x0, y0, x0, y0-1) && s.pic.block(x0, y0-1).predMode == modeSkip {
		inc++
	}
	return s.cab.DecodeBit(&s.ctx[cabac.CuSkipFlag+inc]) == 1
}

// decodeCodingUnit parses and reconstructs coding_unit() (7.3.8.5).
func (s *sliceDecoder) decodeCodingUnit(x0, y0, log2, depth int) error {
	sps, pps, sh := s.sps, s.pps, s.sh
	pic := s.pic
	cu := &s.cu
	*cu = codingUnit{x: x0, y: y0, log2: log2, predMode: modeIntra}
	size := cu.size()

	if pps.TransquantBypassEnabled {
		cu.bypass = s.cab.DecodeBit(&s.ctx[cabac.CuTransquantBypassFlag]) == 1
	}
	skip := false
	if !sh.IsIntra() {
		skip = s.decodeCuSkipFlag(x0, y0)
	}

	s.updateQp(x0, y0)

	if skip {
		cu.predMode = modeSkip
	} else if !sh.IsIntra() && s.cab.DecodeBit(&s.ctx[cabac.PredModeFlag]) == 0 {
		cu.predMode = modeInter
	}

	var flags uint8
	if cu.bypass {
		flags |= flagBypass
	}
	pic.setBlocks(x0, y0, size, size, func(b *blockInfo) {
		*b = blockInfo{predMode: cu.predMode, ctDepth: uint8(depth), intraMode: intraDC, flags: flags}
	})
	s.markCodingBlockEdges(x0, y0, size)

	if skip {
		cu.mergeFlag = true
		if err := s.predictionUnit(x0, y0, size, x0, y0, size, size, 0); err != nil {
			return err
		}
		s.finishCodingUnit()
		return nil
	}

	if cu.predMode != modeIntra || log2 == sps.Log2MinCbSize {
		cu.partMode = s.decodePartMode(cu.predMode == modeIntra, log2)
	}
	cu.intraSplit = cu.predMode == modeIntra && cu.partMode == partNxN

	pcm := false
	if cu.predMode == modeIntra {
		if cu.partMode == part2Nx2N && sps.PcmEnabled &&
			log2 >= sps.Log2MinPcmCbSize && log2 <= sps.Log2MinPcmCbSize+sps.Log2DiffMaxMinPcmCbSize {
			pcm = s.cab.DecodeTerminate() == 1
		}
		if pcm {
			if err := s.decodePcm(x0, y0, log2); err != nil {
				return err
			}
		} else {
			s.decodeIntraModes(x0, y0, log2)
		}
	} else {
		if err := s.predictionUnits(x0, y0, log2); err != nil {
			return err
		}
	}

	if !pcm {
		rqtRootCbf := true
		if cu.predMode != modeIntra && !(cu.partMode == part2Nx2N && cu.mergeFlag) {
			rqtRootCbf = s.cab.DecodeBit(&s.ctx[cabac.RqtRootCbf]) == 1
		}
		if rqtRootCbf {
			if cu.predMode == modeIntra {
				cu.maxDepth = sps.MaxTransformHierarchyDepthIntra
				if cu.intraSplit {
					cu.maxDepth++
				}
			} else {
				cu.maxDepth = sps.MaxTransformHierarchyDepthInter
			}
			if err := s.decodeTransformTree(x0, y0, log2); err != nil {
				return err
			}
		}
	}

	s.finishCodingUnit()
	return nil
}

// finishCodingUnit stores QpY for the deblocking filter and QP prediction.
func (s *sliceDecoder) finishCodingUnit() {
	cu := &s.cu
	size := cu.size()
	qp := int8(s.qpY)
	s.pic.setBlocks(cu.x, cu.y, size, size, func(b *blockInfo) {
		b.qpY = qp
	})
}

func (s *sliceDecoder) decodePartMode(intra bool, log2 int) int {
	sps := s.sps
	ctx := s.ctx[cabac.PartMode:]
	if s.cab.DecodeBit(&ctx[0]) == 1 {
		return part2Nx2N
	}
	if intra {
		return partNxN
	}

	if log2 == sps.Log2MinCbSize {
		if s.cab.DecodeBit(&ctx[1]) == 1 {
			return part2NxN
		}
		if log2 == 3 {
			return partNx2N
		}
		if s.cab.DecodeBit(&ctx[2]) == 1 {
			return partNx2N
		}
		return partNxN
	}

	if !sps.AmpEnabled {
		if s.cab.DecodeBit(&ctx[1]) == 1 {
			return part2NxN
		}
		return partNx2N
	}

	if s.cab.DecodeBit(&ctx[1]) == 1 {
		if s.cab.DecodeBit(&ctx[3]) == 1 {
			return part2NxN
		}
		if s.cab.DecodeBypass() == 0 {
			return part2NxnU
		}
		return part2NxnD
	}
	if s.cab.DecodeBit(&ctx[3]) == 1 {
		return partNx2N
	}
	if s.cab.DecodeBypass() == 0 {
		return partnLx2N
	}
	return partnRx2N
}

// decodePcm reads pcm_sample() and restarts the arithmetic decoder.
func (s *sliceDecoder) decodePcm(x0, y0, log2 int) error {
	sps, pic := s.sps, s.pic
	size := 1 << uint(log2)
	pos := s.cab.Pos()

	// pcm_sample() 的长度，截断的数据不再重新初始化 CABAC
	nbits := size * size * sps.PcmBitDepthLuma
	if sps.ChromaArrayType != 0 {
		nbits += 2 * (size / sps.SubWidthC) * (size / sps.SubHeightC) * sps.PcmBitDepthChroma
	}
	if s.cab.Overrun() > 0 || pos+(nbits+7)/8 > len(s.data) {
		return errors.Wrapf(hevc.ErrEOF, "pcm samples of %d bytes past the slice data", (nbits+7)/8)
	}

	r := bits.NewReader(s.data[pos:])
	readPlane := func(c, x, y, w, h, depth int) {
		plane, stride := pic.Plane(c)
		for j := 0; j < h; j++ {
			line := plane[(y+j)*stride+x:]
			for i := 0; i < w; i++ {
				line[i] = r.ReadUint8(depth) << uint(8-depth)
			}
		}
	}

	readPlane(0, x0, y0, size, size, sps.PcmBitDepthLuma)
	if sps.ChromaArrayType != 0 {
		w, h := size/sps.SubWidthC, size/sps.SubHeightC
		xc, yc := x0/sps.SubWidthC, y0/sps.SubHeightC
		readPlane(1, xc, yc, w, h, sps.PcmBitDepthChroma)
		readPlane(2, xc, yc, w, h, sps.PcmBitDepthChroma)
	}

	s.cab.Init(s.data, pos+(r.Offset()+7)/8)

	if sps.PcmLoopFilterDisabled {
		pic.setBlocks(x0, y0, size, size, func(b *blockInfo) { b.flags |= flagPcm })
	}
	return nil
}

// decodeIntraModes parses the luma and chroma intra prediction modes of
// the coding unit and stores them per block.
func (s *sliceDecoder) decodeIntraModes(x0, y0, log2 int) {
	sps, pic := s.sps, s.pic
	cu := &s.cu
	size := 1 << uint(log2)

	parts, pbSize := 1, size
	if cu.intraSplit {
		parts, pbSize = 4, size>>1
	}

	var prevFlag [4]bool
	for j := 0; j < parts; j++ {
		prevFlag[j] = s.cab.DecodeBit(&s.ctx[cabac.PrevIntraLumaPredFlag]) == 1
	}

	var lumaModes [4]uint8
	for j := 0; j < parts; j++ {
		mpmIdx, rem := 0, 0
		if prevFlag[j] {
			if s.cab.DecodeBypass() == 1 {
				mpmIdx = 1 + s.cab.DecodeBypass()
			}
		} else {
			rem = int(s.cab.DecodeBypassBits(5))
		}

		x, y := x0+(j&1)*pbSize, y0+(j>>1)*pbSize
		mode := s.lumaIntraMode(x, y, prevFlag[j], mpmIdx, rem)
		lumaModes[j] = mode
		pic.setBlocks(x, y, pbSize, pbSize, func(b *blockInfo) { b.intraMode = mode })
	}

	if sps.ChromaArrayType == 0 {
		return
	}

	chromaParts := 1
	if sps.ChromaArrayType == 3 && cu.intraSplit {
		chromaParts = 4
	}
	for j := 0; j < chromaParts; j++ {
		v := 4
		if s.cab.DecodeBit(&s.ctx[cabac.IntraChromaPredMode]) == 1 {
			v = int(s.cab.DecodeBypassBits(2))
		}

		mode := chromaIntraMode(v, lumaModes[j], sps.ChromaArrayType)
		x, y, w := x0, y0, size
		if chromaParts == 4 {
			x, y, w = x0+(j&1)*pbSize, y0+(j>>1)*pbSize, pbSize
		}
		pic.setBlocks(x, y, w, w, func(b *blockInfo) { b.intraModeC = mode })
	}
}

// lumaIntraMode derives IntraPredModeY (8.4.2).
func (s *sliceDecoder) lumaIntraMode(xPb, yPb int, prevFlag bool, mpmIdx, rem int) uint8 {
	candidate := func(xN, yN int) int {
		if !s.available(xPb, yPb, xN, yN) {
			return intraDC
		}
		b := s.pic.block(xN, yN)
		if b.predMode != modeIntra {
			return intraDC
		}
		return int(b.intraMode)
	}

	a := candidate(xPb-1, yPb)
	b := intraDC
	if yPb-1 >= (yPb>>uint(s.sps.CtbLog2Size))<<uint(s.sps.CtbLog2Size) {
		b = candidate(xPb, yPb-1)
	}

	var list [3]int
	switch {
	case a == b && a < 2:
		list = [3]int{intraPlanar, intraDC, intraVer}
	case a == b:
		list = [3]int{a, 2 + ((a + 29) % 32), 2 + ((a - 2 + 1) % 32)}
	default:
		list[0], list[1] = a, b
		switch {
		case a != intraPlanar && b != intraPlanar:
			list[2] = intraPlanar
		case a != intraDC && b != intraDC:
			list[2] = intraDC
		default:
			list[2] = intraVer
		}
	}

	if prevFlag {
		return uint8(list[mpmIdx])
	}

	if list[0] > list[1] {
		list[0], list[1] = list[1], list[0]
	}
	if list[0] > list[2] {
		list[0], list[2] = list[2], list[0]
	}
	if list[1] > list[2] {
		list[1], list[2] = list[2], list[1]
	}
	mode := rem
	for _, m := range list {
		if mode >= m {
			mode++
		}
	}
	return uint8(mode)
}

// Table 8-3, mode mapping for 4:2:2
var chroma422Modes = [35]uint8{
	0, 1, 2, 2, 2, 2, 3, 5, 7, 8, 10, 11, 13, 15, 16, 18, 19, 20,
	21, 22, 23, 23, 24, 24, 25, 25, 26, 27, 27, 28, 28, 29, 29, 30, 31,
}

// chromaIntraMode derives IntraPredModeC from intra_chroma_pred_mode
// (8.4.3).
func chromaIntraMode(v int, luma uint8, chromaArrayType int) uint8 {
	mode := luma
	if v < 4 {
		mode = [4]uint8{intraPlanar, intraVer, intraHor, intraDC}[v]
		if mode == luma {
			mode = 34
		}
	}
	if chromaArrayType == 2 {
		mode = chroma422Modes[mode]
	}
	return mode
}

// decodeTransformTree walks transform_tree() with an explicit stack and
// reconstructs every transform unit in z-scan order (7.3.8.8).
func (s *sliceDecoder) decodeTransformTree(x0, y0, log2 int) error {
	sps := s.sps
	cu := &s.cu
	cat := sps.ChromaArrayType
	interSplit := sps.MaxTransformHierarchyDepthInter == 0 && cu.predMode != modeIntra && cu.partMode != part2Nx2N

	stack := append(s.tt[:0], ttNode{x: x0, y: y0, xBase: x0, yBase: y0, log2: log2})
	defer func() { s.tt = stack[:0] }()

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var split bool
		if n.log2 <= sps.Log2MaxTbSize && n.log2 > sps.Log2MinTbSize &&
			n.depth < cu.maxDepth && !(cu.intraSplit && n.depth == 0) {
			split = s.cab.DecodeBit(&s.ctx[cabac.SplitTransformFlag+5-n.log2]) == 1
		} else {
			split = n.log2 > sps.Log2MaxTbSize || (cu.intraSplit && n.depth == 0) || (interSplit && n.depth == 0)
		}

		var cbf [2][2]bool
		if (n.log2 > 2 && cat != 0) || cat == 3 {
			for c := 0; c < 2; c++ {
				if n.depth == 0 || n.parentCbf[c][0] {
					ctx := &s.ctx[cabac.CbfChroma+n.depth]
					cbf[c][0] = s.cab.DecodeBit(ctx) == 1
					if cat == 2 && (!split || n.log2 == 3) {
						cbf[c][1] = s.cab.DecodeBit(ctx) == 1
					}
				}
			}
		} else if cat != 0 {
			// 4x4 亮度块的色度在 blkIdx 3 处按父节点的 cbf 解码
			cbf = n.parentCbf
		}

		if split {
			half := 1 << uint(n.log2-1)
			for i := 3; i >= 0; i-- {
				stack = append(stack, ttNode{
					x:         n.x + (i&1)*half,
					y:         n.y + (i>>1)*half,
					xBase:     n.x,
					yBase:     n.y,
					log2:      n.log2 - 1,
					depth:     n.depth + 1,
					blkIdx:    i,
					parentCbf: cbf,
				})
			}
			continue
		}

		cbfLuma := true
		if cu.predMode == modeIntra || n.depth != 0 || cbf[0][0] || cbf[1][0] || cbf[0][1] || cbf[1][1] {
			inc := 0
			if n.depth == 0 {
				inc = 1
			}
			cbfLuma = s.cab.DecodeBit(&s.ctx[cabac.CbfLuma+inc]) == 1
		}
		if err := s.decodeTransformUnit(&n, cbfLuma, cbf); err != nil {
			return err
		}
	}
	return nil
}

// decodeTransformUnit parses transform_unit() and reconstructs its
// transform blocks (7.3.8.10, 8.6.2).
func (s *sliceDecoder) decodeTransformUnit(n *ttNode, cbfLuma bool, cbf [2][2]bool) error {
	sps, pps, pic := s.sps, s.pps, s.pic
	cu := &s.cu
	cat := sps.ChromaArrayType
	size := 1 << uint(n.log2)
	if n.x+size > sps.Width || n.y+size > sps.Height {
		return errors.Wrapf(hevc.ErrCoefficientOutOfImageBounds, "transform unit (%d,%d) size %d", n.x, n.y, size)
	}
	intra := cu.predMode == modeIntra

	s.markTransformEdges(n.x, n.y, size)

	// 4x4 亮度块的 cbf 继承自父节点，四个子块都参与 cu_qp_delta 的判断
	cbfChroma := cbf[0][0] || cbf[1][0] || cbf[0][1] || cbf[1][1]
	if (cbfLuma || cbfChroma) && pps.CuQpDeltaEnabled && !s.isCuQpDeltaCoded {
		s.decodeCuQpDelta()
	}

	// chroma blocks carried by this unit
	chromaHere := cat != 0 && (n.log2 > 2 || cat == 3)
	chromaAtBase := cat != 0 && !chromaHere && n.blkIdx == 3

	// luma
	if intra {
		s.predictIntra(0, n.x, n.y, n.log2, int(pic.block(n.x, n.y).intraMode))
	}
	if cbfLuma {
		pic.setBlocks(n.x, n.y, size, size, func(b *blockInfo) { b.flags |= flagCodedLuma })
		if err := s.residualBlock(0, n.x, n.y, n.x, n.y, n.log2); err != nil {
			return err
		}
	}

	if !chromaHere && !chromaAtBase {
		return nil
	}

	// chroma
	xL, yL, log2C := n.x, n.y, n.log2-1
	if cat == 3 {
		log2C = n.log2
	}
	if chromaAtBase {
		xL, yL, log2C = n.xBase, n.yBase, 2
	}
	tbs := 1
	if cat == 2 {
		tbs = 2
	}
	xC, yC := xL/sps.SubWidthC, yL/sps.SubHeightC
	modeC := int(pic.block(xL, yL).intraModeC)
	for c := 1; c < 3; c++ {
		for t := 0; t < tbs; t++ {
			yT := yC + t<<uint(log2C)
			if intra {
				s.predictIntra(c, xC, yT, log2C, modeC)
			}
			if cbf[c-1][t] {
				if err := s.residualBlock(c, xL, yL, xC, yT, log2C); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *sliceDecoder) decodeCuQpDelta() {
	v := 0
	if s.cab.DecodeBit(&s.ctx[cabac.CuQpDeltaAbs]) == 1 {
		v = 1
		for v < 5 && s.cab.DecodeBit(&s.ctx[cabac.CuQpDeltaAbs+1]) == 1 {
			v++
		}
		if v == 5 {
			v += int(s.cab.DecodeExpGolombBypass(0))
		}
	}
	if v > 0 && s.cab.DecodeBypass() == 1 {
		v = -v
	}

	s.isCuQpDeltaCoded = true
	s.cuQpDeltaVal = v
	s.updateQp(s.cu.x, s.cu.y)
}

// residualBlock decodes residual_coding() of component c and adds the
// residual to the prediction at (xT, yT) in component samples. (xL, yL) is
// the luma location of the transform unit.
func (s *sliceDecoder) residualBlock(c, xL, yL, xT, yT, log2 int) error {
	sps, pps := s.sps, s.pps
	cu := &s.cu
	intra := cu.predMode == modeIntra

	predMode := -1
	if intra {
		b := s.pic.block(xL, yL)
		predMode = int(b.intraMode)
		if c > 0 {
			predMode = int(b.intraModeC)
		}
	}
	transformSkip := s.decodeResidual(c, log2, predMode)

	size := 1 << uint(log2)
	coeff := s.coeff[:size*size]
	if !cu.bypass {
		qp := s.qpY
		if c > 0 {
			qp = s.chromaQp(c)
		}
		var m []uint8
		if sps.ScalingListEnabled && !(transformSkip && size > 4) {
			matrixID := c
			if !intra {
				matrixID += 3
			}
			m = pps.Factors[log2-2][matrixID]
		}
		transform.Dequantize(coeff, log2, qp, 8, m)
		if transformSkip {
			transform.InverseSkip(coeff, log2, 8)
		} else {
			transform.Inverse(coeff, log2, 8, intra && c == 0 && log2 == 2)
		}
	}

	plane, stride := s.pic.Plane(c)
	transform.AddResidual(plane[yT*stride+xT:], stride, coeff, size)
	return nil
}

// markCodingBlockEdges records the left and top edges of a coding block for
// deblocking when filterEdgeFlag is set (8.7.2.3).
func (s *sliceDecoder) markCodingBlockEdges(x0, y0, size int) {
	sh, pps, pic := s.sh, s.pps, s.pic
	if sh.DeblockingDisabled {
		return
	}

	left := x0 > 0
	if left && x0&(s.sps.CtbSize-1) == 0 {
		nb := pic.ctbAt(x0-1, y0)
		cur := pic.ctbAt(x0, y0)
		if !pps.LoopFilterAcrossTiles && pps.TileIDRs[s.ctbAddrRs] != pps.TileIDRs[s.ctbAddrRs-1] {
			left = false
		}
		if !sh.LoopFilterAcrossSlices && nb.sliceAddr != cur.sliceAddr {
			left = false
		}
	}
	top := y0 > 0
	if top && y0&(s.sps.CtbSize-1) == 0 {
		nb := pic.ctbAt(x0, y0-1)
		cur := pic.ctbAt(x0, y0)
		if !pps.LoopFilterAcrossTiles && pps.TileIDRs[s.ctbAddrRs] != pps.TileIDRs[s.ctbAddrRs-s.sps.PicWidthInCtbs] {
			top = false
		}
		if !sh.LoopFilterAcrossSlices && nb.sliceAddr != cur.sliceAddr {
			top = false
		}
	}

	if left {
		pic.setBlocks(x0, y0, 4, size, func(b *blockInfo) { b.flags |= flagTransformV })
	}
	if top {
		pic.setBlocks(x0, y0, size, 4, func(b *blockInfo) { b.flags |= flagTransformH })
	}
}

// markTransformEdges records the inner edges of a transform block.
func (s *sliceDecoder) markTransformEdges(x0, y0, size int) {
	if s.sh.DeblockingDisabled {
		return
	}
	cu := &s.cu
	if x0 > cu.x {
		s.pic.setBlocks(x0, y0, 4, size, func(b *blockInfo) { b.flags |= flagTransformV })
	}
	if y0 > cu.y {
		s.pic.setBlocks(x0, y0, size, 4, func(b *blockInfo) { b.flags |= flagTransformH })
	}
}

// markPredictionEdges records the inner edges of a prediction block.
func (s *sliceDecoder) markPredictionEdges(x0, y0, w, h int) {
	if s.sh.DeblockingDisabled {
		return
	}
	cu := &s.cu
	if x0 > cu.x {
		s.pic.setBlocks(x0, y0, 4, h, func(b *blockInfo) { b.flags |= flagPredictionV })
	}
	if y0 > cu.y {
		s.pic.setBlocks(x0, y0, w, 4, func(b *blockInfo) { b.flags |= flagPredictionH })
	}
}
