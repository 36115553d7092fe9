// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transform implements the scaling and inverse transform process
// of H.265 (8.6.2 to 8.6.4) for 4x4 to 32x32 blocks.
package transform

// 64*sqrt(2)*cos(m*pi/64) as used by the integer transforms, m = 0..32
var cosTable = [33]int32{
	64, 90, 90, 90, 89, 88, 87, 85, 83, 82, 80, 78, 75, 73, 70, 67,
	64, 61, 57, 54, 50, 46, 43, 38, 36, 31, 25, 22, 18, 13, 9, 4,
	0,
}

// dctMatrix[k][n] is the 32-point coefficient of frequency k at position n.
var dctMatrix [32][32]int32

var dstMatrix = [4][4]int32{
	{29, 55, 74, 84},
	{74, 74, 0, -74},
	{84, -29, -74, 55},
	{55, -84, 74, -29},
}

func init() {
	for k := 0; k < 32; k++ {
		for n := 0; n < 32; n++ {
			if k == 0 {
				dctMatrix[k][n] = 64
				continue
			}
			m := (2*n + 1) * k % 128
			if m > 64 {
				m = 128 - m
			}
			if m > 32 {
				dctMatrix[k][n] = -cosTable[64-m]
			} else {
				dctMatrix[k][n] = cosTable[m]
			}
		}
	}
}

// Coefficient returns the coefficient of frequency k at position n of the
// size-point DCT.
func Coefficient(size, k, n int) int32 {
	return dctMatrix[k*(32/size)][n]
}

// Inverse transforms the scaled coefficients of a size x size block in
// place into residuals (8.6.4.2). dst selects the 4x4 DST used for intra
// luma blocks.
func Inverse(c []int32, log2Size, bitDepth int, dst bool) {
	size := 1 << uint(log2Size)
	step := 32 / size
	var tmp [32 * 32]int32
	var col, out [32]int32

	basis := func(k, n int) int32 {
		if dst {
			return dstMatrix[k][n]
		}
		return dctMatrix[k*step][n]
	}

	// 垂直方向
	for x := 0; x < size; x++ {
		last := -1
		for k := 0; k < size; k++ {
			col[k] = c[k*size+x]
			if col[k] != 0 {
				last = k
			}
		}
		if last < 0 {
			for y := 0; y < size; y++ {
				tmp[y*size+x] = 0
			}
			continue
		}
		for n := 0; n < size; n++ {
			var sum int64
			for k := 0; k <= last; k++ {
				sum += int64(basis(k, n)) * int64(col[k])
			}
			tmp[n*size+x] = clip16((sum + 64) >> 7)
		}
	}

	// 水平方向
	bdShift := uint(20 - bitDepth)
	add := int64(1) << (bdShift - 1)
	for y := 0; y < size; y++ {
		row := tmp[y*size : y*size+size]
		for n := 0; n < size; n++ {
			var sum int64
			for k, v := range row {
				if v != 0 {
					sum += int64(basis(k, n)) * int64(v)
				}
			}
			out[n] = int32((sum + add) >> bdShift)
		}
		copy(c[y*size:], out[:size])
	}
}

// InverseSkip turns transform skipped coefficients into residuals.
func InverseSkip(c []int32, log2Size, bitDepth int) {
	size := 1 << uint(log2Size)
	bdShift := uint(20 - bitDepth)
	add := int32(1) << (bdShift - 1)
	for i, v := range c[:size*size] {
		c[i] = (v<<7 + add) >> bdShift
	}
}

// AddResidual adds r to the size x size block of 8-bit samples at dst.
func AddResidual(dst []uint8, stride int, r []int32, size int) {
	for y := 0; y < size; y++ {
		line := dst[y*stride : y*stride+size]
		res := r[y*size : y*size+size]
		for x, v := range res {
			s := int32(line[x]) + v
			if s < 0 {
				s = 0
			} else if s > 255 {
				s = 255
			}
			line[x] = uint8(s)
		}
	}
}
