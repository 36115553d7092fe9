// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
)

// poolKey is the geometry of a pooled picture.
type poolKey struct {
	width   int
	height  int
	chroma  hevc.ChromaFormat
	ctbLog2 int
}

// picturePool recycles picture buffers of the same geometry.
type picturePool struct {
	free  map[poolKey][]*Picture
	inUse int
}

func newPicturePool() *picturePool {
	return &picturePool{free: make(map[poolKey][]*Picture)}
}

// acquire returns a picture for sps, its metadata reset.
func (pp *picturePool) acquire(sps *hevc.SPS, pps *hevc.PPS) *Picture {
	key := poolKey{
		width:   sps.Width,
		height:  sps.Height,
		chroma:  sps.ChromaFormat(),
		ctbLog2: sps.CtbLog2Size,
	}

	var p *Picture
	if free := pp.free[key]; len(free) > 0 {
		p = free[len(free)-1]
		free[len(free)-1] = nil
		pp.free[key] = free[:len(free)-1]
	} else {
		p = newPicture(key, sps)
	}
	pp.inUse++
	p.resetMetadata(sps, pps)
	return p
}

// release returns p to the pool.
func (pp *picturePool) release(p *Picture) {
	pp.inUse--
	p.dropRefs()
	p.sps, p.pps, p.hash = nil, nil, nil
	pp.free[p.key] = append(pp.free[p.key], p)
}

// clear drops every free buffer.
func (pp *picturePool) clear() {
	pp.free = make(map[poolKey][]*Picture)
}

func newPicture(key poolKey, sps *hevc.SPS) *Picture {
	p := &Picture{key: key, chroma: key.chroma}
	p.width[0], p.height[0] = key.width, key.height
	if key.chroma != hevc.Chroma400 {
		for c := 1; c < 3; c++ {
			p.width[c] = key.width / sps.SubWidthC
			p.height[c] = key.height / sps.SubHeightC
		}
	}
	for c := 0; c < 3; c++ {
		p.stride[c] = p.width[c]
		if p.width[c] > 0 {
			p.planes[c] = make([]uint8, p.width[c]*p.height[c])
		}
	}

	p.w4, p.h4 = key.width>>2, key.height>>2
	p.blocks = make([]blockInfo, p.w4*p.h4)
	p.motion = make([]pbMotion, p.w4*p.h4)
	p.ctbs = make([]ctbInfo, sps.PicSizeInCtbs)
	p.sliceAddrFn = p.sliceAddr
	return p
}
