// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transform

var levelScale = [6]int64{40, 45, 51, 57, 64, 72}

// Dequantize scales the coefficient levels of a size x size block in place
// (8.6.3). m holds the scaling factors in raster order, or nil for the flat
// factor 16.
func Dequantize(c []int32, log2Size, qp, bitDepth int, m []uint8) {
	size := 1 << uint(log2Size)
	bdShift := uint(bitDepth + log2Size - 5)
	add := int64(1) << (bdShift - 1)
	scale := levelScale[qp%6] << uint(qp/6)

	for i, v := range c[:size*size] {
		if v == 0 {
			continue
		}
		f := int64(16)
		if m != nil {
			f = int64(m[i])
		}
		c[i] = clip16((int64(v)*f*scale + add) >> bdShift)
	}
}

func clip16(v int64) int32 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int32(v)
}
