// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"fmt"
	"runtime/debug"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/cabac"
	"github.com/pkg/errors"
)

// sliceDecoder decodes the slice data of one slice segment into the
// current picture.
type sliceDecoder struct {
	d        *Decoder
	pic      *Picture
	si       *sliceInfo
	sh       *hevc.SliceHeader
	sps      *hevc.SPS
	pps      *hevc.PPS
	data     []byte
	sliceIdx int

	cab cabac.Decoder
	ctx cabac.ContextSet

	ctbAddrRs int
	ctbAddrTs int
	ctbX      int
	ctbY      int

	// quantisation group state (8.6.1)
	qpY              int
	lastQpY          int
	qgX, qgY         int
	resetQpPrev      bool
	isCuQpDeltaCoded bool
	cuQpDeltaVal     int
	log2MinCuQpDelta int

	noBackwardPred bool

	cu    codingUnit
	cqt   []cqtNode
	tt    []ttNode
	coeff [32 * 32]int32
	mc    mcScratch
}

func (s *sliceDecoder) setup(d *Decoder, pic *Picture, si *sliceInfo, sliceIdx int, nal *hevc.Nal) {
	s.d, s.pic, s.si, s.sliceIdx = d, pic, si, sliceIdx
	s.sh = si.header
	s.sps, s.pps = pic.sps, pic.pps
	s.data = nal.Data
	s.log2MinCuQpDelta = s.sps.CtbLog2Size - s.pps.DiffCuQpDeltaDepth
	s.qpY = s.sh.SliceQpY
	s.lastQpY = s.sh.SliceQpY
	s.qgX, s.qgY = -1, -1
	s.resetQpPrev = true

	s.noBackwardPred = true
	for l := 0; l < 2; l++ {
		for i := 0; i < s.sh.NumRefIdxActive[l]; i++ {
			if si.refPOC[l][i] > pic.poc {
				s.noBackwardPred = false
			}
		}
	}
}

// decode runs the slice_segment_data() loop (7.3.8.1).
func (s *sliceDecoder) decode() (err error) {
	defer func() {
		if r := recover(); r != nil {
			// 截断由 CABAC 和 PCM 的长度检查报告，这里只剩内部错误
			s.d.logger.Errorf("slice data decode panic at ctb %d: %v\n%s", s.ctbAddrRs, r, debug.Stack())
			err = errors.Wrap(hevc.ErrInternal, fmt.Sprintf("slice data decode panic at ctb %d: %v", s.ctbAddrRs, r))
		}
	}()

	sh, sps, pps := s.sh, s.sps, s.pps
	if sh.DataOffset >= len(s.data) {
		return errors.Wrap(hevc.ErrEOF, "slice segment without data")
	}

	s.ctbAddrRs = sh.SegmentAddress
	s.ctbAddrTs = pps.CtbAddrRsToTs[s.ctbAddrRs]
	s.cab.Init(s.data, sh.DataOffset)
	substream := 0
	newSubstream := true

	for {
		if s.ctbAddrTs >= sps.PicSizeInCtbs {
			return errors.Wrapf(hevc.ErrCtbOutsideImageArea, "ctb %d", s.ctbAddrTs)
		}
		rs := pps.CtbAddrTsToRs[s.ctbAddrTs]
		s.ctbAddrRs = rs
		s.ctbX = (rs % sps.PicWidthInCtbs) << uint(sps.CtbLog2Size)
		s.ctbY = (rs / sps.PicWidthInCtbs) << uint(sps.CtbLog2Size)

		ctb := &s.pic.ctbs[rs]
		if ctb.sliceAddr >= 0 {
			return errors.Wrapf(hevc.ErrCtbOutsideImageArea, "ctb %d decoded twice", rs)
		}
		ctb.sliceAddr = sh.SliceAddrRs
		ctb.sliceIdx = s.sliceIdx

		if newSubstream {
			s.initContexts(substream == 0)
			newSubstream = false
		}

		if err := s.decodeCtu(ctb); err != nil {
			return err
		}
		if s.cab.Overrun() >= 2 {
			return errors.Wrapf(hevc.ErrEOF, "slice data ends inside ctb %d", rs)
		}

		// WPP: 保存行内第二个 CTB 之后的上下文
		if pps.EntropyCodingSync && s.isSyncPoint(rs) {
			s.d.wppCtx = s.ctx
			s.d.wppValid = true
		}

		end := s.cab.DecodeTerminate()
		s.ctbAddrTs++
		if end == 1 {
			if pps.DependentSliceSegments {
				s.d.dsCtx = s.ctx
				s.d.dsQpY = s.qpY
			}
			return nil
		}

		if s.ctbAddrTs >= sps.PicSizeInCtbs {
			return errors.Wrap(hevc.ErrCtbOutsideImageArea, "slice data continues past the last ctb")
		}
		next := pps.CtbAddrTsToRs[s.ctbAddrTs]
		if s.substreamStart(next, s.ctbAddrTs) {
			if s.cab.DecodeTerminate() != 1 {
				return errors.Wrap(hevc.ErrEOF, "end_of_subset_one_bit is zero")
			}
			pos := s.cab.Pos()
			if substream < len(sh.EntryPoints) {
				pos = sh.EntryPoints[substream]
			}
			substream++
			s.cab.Init(s.data, pos)
			newSubstream = true
		}
	}
}

// substreamStart reports whether the CTB at ts begins a tile or, with WPP,
// a CTB row of a tile.
func (s *sliceDecoder) substreamStart(rs, ts int) bool {
	pps := s.pps
	if pps.TilesEnabled && pps.TileID[ts] != pps.TileID[ts-1] {
		return true
	}
	return pps.EntropyCodingSync && s.rowStart(rs)
}

// rowStart reports the first CTB of a CTB row inside its tile.
func (s *sliceDecoder) rowStart(rs int) bool {
	w := s.sps.PicWidthInCtbs
	return rs%w == 0 || s.pps.TileIDRs[rs] != s.pps.TileIDRs[rs-1]
}

// isSyncPoint reports the second CTB of a row inside its tile.
func (s *sliceDecoder) isSyncPoint(rs int) bool {
	x := rs % s.sps.PicWidthInCtbs
	for i := 0; i < len(s.pps.ColBd)-1; i++ {
		if x == s.pps.ColBd[i]+1 && s.pps.ColBd[i+1]-s.pps.ColBd[i] > 1 {
			return true
		}
	}
	return false
}

// initContexts performs the context variable initialisation at the start
// of a substream (9.3.1).
func (s *sliceDecoder) initContexts(sliceStart bool) {
	sh, pps := s.sh, s.pps
	rs, ts := s.ctbAddrRs, s.ctbAddrTs
	initType := sh.InitType()

	switch {
	case ts == 0 || (pps.TilesEnabled && pps.TileID[ts] != pps.TileID[ts-1]):
		s.ctx.Init(initType, sh.SliceQpY)
		s.resetQpPrev = true
	case pps.EntropyCodingSync && s.rowStart(rs):
		xT, yT := s.ctbX+s.sps.CtbSize, s.ctbY-s.sps.CtbSize
		if s.d.wppValid && s.available(s.ctbX, s.ctbY, xT, yT) {
			s.ctx = s.d.wppCtx
		} else {
			s.ctx.Init(initType, sh.SliceQpY)
		}
		s.resetQpPrev = true
	case sliceStart && sh.DependentSliceSegment:
		// 非独立片段延续上一片段的上下文和 qPY_PREV
		s.ctx = s.d.dsCtx
		s.qpY = s.d.dsQpY
		s.resetQpPrev = false
	default:
		s.ctx.Init(initType, sh.SliceQpY)
	}
}

// available is the z-scan availability of (xN, yN) for (xCurr, yCurr).
func (s *sliceDecoder) available(xCurr, yCurr, xN, yN int) bool {
	return s.pps.ZScanAvailable(xCurr, yCurr, xN, yN, s.pic.sliceAddrFn)
}

func (s *sliceDecoder) decodeCtu(ctb *ctbInfo) error {
	sh := s.sh
	ctb.sao = [3]saoParams{}
	if sh.SaoLuma || sh.SaoChroma {
		s.decodeSao(ctb)
	}
	return s.decodeQuadtree(s.ctbX, s.ctbY)
}

// decodeSao parses sao() (7.3.8.3).
func (s *sliceDecoder) decodeSao(ctb *ctbInfo) {
	sh, sps, pps := s.sh, s.sps, s.pps
	rs := s.ctbAddrRs
	w := sps.PicWidthInCtbs

	if rs%w > 0 {
		inSlice := rs > sh.SliceAddrRs
		inTile := pps.TileIDRs[rs] == pps.TileIDRs[rs-1]
		if inSlice && inTile && s.cab.DecodeBit(&s.ctx[cabac.SaoMergeFlag]) == 1 {
			ctb.sao = s.pic.ctbs[rs-1].sao
			return
		}
	}
	if rs/w > 0 {
		inSlice := rs-w >= sh.SliceAddrRs
		inTile := pps.TileIDRs[rs] == pps.TileIDRs[rs-w]
		if inSlice && inTile && s.cab.DecodeBit(&s.ctx[cabac.SaoMergeFlag]) == 1 {
			ctb.sao = s.pic.ctbs[rs-w].sao
			return
		}
	}

	comps := 3
	if sps.ChromaArrayType == 0 {
		comps = 1
	}
	for c := 0; c < comps; c++ {
		p := &ctb.sao[c]
		if (c == 0 && !sh.SaoLuma) || (c > 0 && !sh.SaoChroma) {
			continue
		}

		if c == 2 {
			p.typeIdx = ctb.sao[1].typeIdx
		} else if s.cab.DecodeBit(&s.ctx[cabac.SaoTypeIdx]) == 1 {
			p.typeIdx = 1 + uint8(s.cab.DecodeBypass())
		}
		if p.typeIdx == 0 {
			continue
		}

		bitDepth := sps.BitDepthLuma
		if c > 0 {
			bitDepth = sps.BitDepthChroma
		}
		cMax := (1 << uint(minInt(bitDepth, 10)-5)) - 1
		var abs [4]int
		for i := range abs {
			for abs[i] < cMax && s.cab.DecodeBypass() == 1 {
				abs[i]++
			}
		}

		shift := uint(bitDepth - minInt(bitDepth, 10))
		if p.typeIdx == 1 {
			for i := range abs {
				if abs[i] != 0 && s.cab.DecodeBypass() == 1 {
					abs[i] = -abs[i]
				}
			}
			p.class = uint8(s.cab.DecodeBypassBits(5)) // sao_band_position
			for i := range abs {
				p.offset[i] = int8(abs[i] << shift)
			}
			continue
		}

		if c == 2 {
			p.class = ctb.sao[1].class
		} else {
			p.class = uint8(s.cab.DecodeBypassBits(2)) // sao_eo_class
		}
		p.offset[0] = int8(abs[0] << shift)
		p.offset[1] = int8(abs[1] << shift)
		p.offset[2] = int8(-abs[2] << shift)
		p.offset[3] = int8(-abs[3] << shift)
	}
}

// updateQp derives QpY of the coding unit at (xCb, yCb) (8.6.1).
func (s *sliceDecoder) updateQp(xCb, yCb int) {
	mask := (1 << uint(s.log2MinCuQpDelta)) - 1
	xQg, yQg := xCb-(xCb&mask), yCb-(yCb&mask)

	if xQg != s.qgX || yQg != s.qgY {
		// 新的量化组
		if s.resetQpPrev {
			s.lastQpY = s.sh.SliceQpY
			s.resetQpPrev = false
		} else {
			s.lastQpY = s.qpY
		}
		s.qgX, s.qgY = xQg, yQg
	}

	ctbMask := s.sps.CtbSize - 1
	qpA, qpB := s.lastQpY, s.lastQpY
	if xQg&ctbMask != 0 {
		qpA = int(s.pic.block(xQg-1, yQg).qpY)
	}
	if yQg&ctbMask != 0 {
		qpB = int(s.pic.block(xQg, yQg-1).qpY)
	}
	pred := (qpA + qpB + 1) >> 1
	s.qpY = ((pred+s.cuQpDeltaVal+52)%52+52)%52
}

// chromaQp maps QpY to Qp'Cb or Qp'Cr (8.6.1).
func (s *sliceDecoder) chromaQp(c int) int {
	offset := s.pps.CbQpOffset + s.sh.CbQpOffset
	if c == 2 {
		offset = s.pps.CrQpOffset + s.sh.CrQpOffset
	}
	return chromaQpMapping(s.sps.ChromaArrayType, s.qpY+offset)
}

var qpcTable = [...]int{29, 30, 31, 32, 33, 33, 34, 34, 35, 35, 36, 36, 37, 37}

// chromaQpMapping implements Table 8-10 for 8-bit video.
func chromaQpMapping(chromaArrayType, qPi int) int {
	qPi = clip3(0, 57, qPi)
	if chromaArrayType != 1 {
		return minInt(qPi, 51)
	}
	switch {
	case qPi < 30:
		return qPi
	case qPi > 43:
		return qPi - 6
	}
	return qpcTable[qPi-30]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clip3(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clipPel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
