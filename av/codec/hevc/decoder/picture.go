// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
)

// reference marking of a decoded picture (8.3.2)
type refMark uint8

const (
	unusedForReference refMark = iota
	shortTermReference
	longTermReference
)

// CuPredMode
const (
	modeInter uint8 = iota
	modeIntra
	modeSkip
)

// blockInfo flags
const (
	flagPcm         = 1 << iota // pcm_flag with pcm_loop_filter_disabled_flag
	flagBypass                  // cu_transquant_bypass_flag
	flagCodedLuma               // the luma transform block has coefficients
	flagTransformV              // transform edge on the left side
	flagTransformH              // transform edge on the top side
	flagPredictionV             // prediction edge on the left side
	flagPredictionH             // prediction edge on the top side
)

// blockInfo is the decoding state kept for every 4x4 luma block.
type blockInfo struct {
	predMode   uint8
	ctDepth    uint8
	intraMode  uint8
	intraModeC uint8
	qpY        int8
	flags      uint8
}

func (b *blockInfo) isIntra() bool { return b.predMode == modeIntra }

type mvec struct {
	x, y int32
}

// pbMotion is the motion of a prediction block, kept per 4x4 block.
type pbMotion struct {
	mv       [2]mvec
	refIdx   [2]int8
	predFlag [2]bool
}

type saoParams struct {
	typeIdx uint8 // 0: off, 1: band offset, 2: edge offset
	class   uint8 // band position or edge offset class
	offset  [4]int8
}

type ctbInfo struct {
	sliceAddr int // SliceAddrRs of the slice containing the CTB, -1 before decoding
	sliceIdx  int // index into Picture.slices
	sao       [3]saoParams
}

// sliceInfo keeps what the loop filters and later pictures need from a
// slice segment of the picture.
type sliceInfo struct {
	header *hevc.SliceHeader
	refPOC [2][hevc.MaxRefs]int
	refLT  [2][hevc.MaxRefs]bool
	refs   [2][hevc.MaxRefs]*Picture // valid while the picture is decoded
}

// Picture is a decoded picture with its 8-bit sample planes.
type Picture struct {
	planes [3][]uint8
	stride [3]int
	width  [3]int
	height [3]int
	chroma hevc.ChromaFormat
	key    poolKey

	poc        int
	nal        hevc.NalHeader
	sps        *hevc.SPS
	pps        *hevc.PPS
	picOutput  bool
	substitute bool
	hash       *hevc.PictureHash

	// DPB state
	ref          refMark
	outputNeeded bool
	queued       bool
	held         bool
	latency      int

	w4, h4      int
	blocks      []blockInfo
	motion      []pbMotion
	ctbs        []ctbInfo
	slices      []*sliceInfo
	sliceAddrFn func(ctbAddrRs int) int
}

// Width returns the coded width of component c, 0 for a missing plane.
func (p *Picture) Width(c int) int {
	return p.width[c]
}

// Height returns the coded height of component c.
func (p *Picture) Height(c int) int {
	return p.height[c]
}

// ChromaFormat returns the sampling format.
func (p *Picture) ChromaFormat() hevc.ChromaFormat {
	return p.chroma
}

// Plane returns the samples of component c and the row stride.
func (p *Picture) Plane(c int) ([]uint8, int) {
	return p.planes[c], p.stride[c]
}

// POC returns PicOrderCntVal.
func (p *Picture) POC() int {
	return p.poc
}

// NalType returns the nal_unit_type of the picture's slices.
func (p *Picture) NalType() uint8 {
	return p.nal.Type
}

// CropWindow returns the conformance window of component c as offsets
// from the top left corner and the cropped size.
func (p *Picture) CropWindow(c int) (left, top, width, height int) {
	if p.width[c] == 0 {
		return
	}

	sps := p.sps
	subW, subH := 1, 1
	if c > 0 {
		subW, subH = sps.SubWidthC, sps.SubHeightC
	}
	left = sps.ConfWinLeft * sps.SubWidthC / subW
	top = sps.ConfWinTop * sps.SubHeightC / subH
	width = sps.CroppedWidth() / subW
	height = sps.CroppedHeight() / subH
	return
}

func (p *Picture) sliceAddr(ctbAddrRs int) int {
	return p.ctbs[ctbAddrRs].sliceAddr
}

func (p *Picture) block(x, y int) *blockInfo {
	return &p.blocks[(y>>2)*p.w4+(x>>2)]
}

func (p *Picture) motionAt(x, y int) *pbMotion {
	return &p.motion[(y>>2)*p.w4+(x>>2)]
}

// ctbAt returns the CTB containing luma sample (x, y).
func (p *Picture) ctbAt(x, y int) *ctbInfo {
	log2 := uint(p.sps.CtbLog2Size)
	return &p.ctbs[(y>>log2)*p.sps.PicWidthInCtbs+(x>>log2)]
}

// sliceAt returns the header of the slice segment containing (x, y).
func (p *Picture) sliceAt(x, y int) *sliceInfo {
	return p.slices[p.ctbAt(x, y).sliceIdx]
}

// setBlocks applies fn to the 4x4 blocks of a w x h luma area.
func (p *Picture) setBlocks(x0, y0, w, h int, fn func(b *blockInfo)) {
	for y := y0 >> 2; y < (y0+h)>>2; y++ {
		row := p.blocks[y*p.w4:]
		for x := x0 >> 2; x < (x0+w)>>2; x++ {
			fn(&row[x])
		}
	}
}

func (p *Picture) setMotion(x0, y0, w, h int, m *pbMotion) {
	for y := y0 >> 2; y < (y0+h)>>2; y++ {
		row := p.motion[y*p.w4:]
		for x := x0 >> 2; x < (x0+w)>>2; x++ {
			row[x] = *m
		}
	}
}

// fill sets every sample of the planes to v.
func (p *Picture) fill(v uint8) {
	for c := range p.planes {
		plane := p.planes[c]
		for i := range plane {
			plane[i] = v
		}
	}
}

// resetMetadata prepares a pooled picture for decoding with sps and pps.
func (p *Picture) resetMetadata(sps *hevc.SPS, pps *hevc.PPS) {
	p.sps, p.pps = sps, pps
	p.poc = 0
	p.nal = hevc.NalHeader{}
	p.picOutput = false
	p.substitute = false
	p.hash = nil
	p.ref = unusedForReference
	p.outputNeeded, p.queued, p.held = false, false, false
	p.latency = 0

	for i := range p.blocks {
		p.blocks[i] = blockInfo{}
	}
	for i := range p.motion {
		p.motion[i] = pbMotion{}
	}
	for i := range p.ctbs {
		p.ctbs[i] = ctbInfo{sliceAddr: -1}
	}
	for i := range p.slices {
		p.slices[i] = nil
	}
	p.slices = p.slices[:0]
}

// dropRefs forgets the reference pictures of every slice once decoding is
// complete. Collocated motion only needs their POC.
func (p *Picture) dropRefs() {
	for _, si := range p.slices {
		si.refs = [2][hevc.MaxRefs]*Picture{}
	}
}
