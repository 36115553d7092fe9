// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/decoder"
)

// Frame is an output picture cropped to its conformance window. Its planes
// are tightly packed copies, so the decoder picture can be released as
// soon as the frame is built.
type Frame struct {
	POC     int
	NalType uint8
	Chroma  hevc.ChromaFormat
	Width   [3]int
	Height  [3]int
	Planes  [3][]byte
}

// NewFrame copies the cropped samples of pic.
func NewFrame(pic *decoder.Picture) *Frame {
	f := &Frame{
		POC:     pic.POC(),
		NalType: pic.NalType(),
		Chroma:  pic.ChromaFormat(),
	}

	for c := 0; c < 3; c++ {
		left, top, w, h := pic.CropWindow(c)
		if w == 0 || h == 0 {
			continue
		}
		src, stride := pic.Plane(c)
		dst := make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(dst[y*w:(y+1)*w], src[(top+y)*stride+left:])
		}
		f.Width[c], f.Height[c] = w, h
		f.Planes[c] = dst
	}
	return f
}

// Size 帧的样本字节数
func (f *Frame) Size() int {
	return len(f.Planes[0]) + len(f.Planes[1]) + len(f.Planes[2])
}

// MD5 returns the MD5 of each plane, zero for a missing plane.
func (f *Frame) MD5() (sums [3][16]byte) {
	for c := 0; c < 3; c++ {
		if f.Planes[c] != nil {
			sums[c] = hevc.PlaneMD5(f.Planes[c], f.Width[c], f.Width[c], f.Height[c])
		}
	}
	return
}
