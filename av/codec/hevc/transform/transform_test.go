// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoefficient(t *testing.T) {
	tests := []struct {
		size, k, n int
		want       int32
	}{
		{4, 0, 3, 64},
		{4, 1, 0, 83},
		{4, 1, 3, -83},
		{4, 3, 0, 36},
		{8, 1, 0, 89},
		{8, 7, 0, 18},
		{16, 15, 0, 9},
		{32, 1, 0, 90},
		{32, 31, 0, 4},
		{32, 16, 1, -64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Coefficient(tt.size, tt.k, tt.n), "size %d k %d n %d", tt.size, tt.k, tt.n)
	}

	// 4 点变换正交
	var dot int32
	for n := 0; n < 4; n++ {
		dot += Coefficient(4, 1, n) * Coefficient(4, 3, n)
	}
	assert.Equal(t, int32(0), dot)
}

func TestInverse_DC(t *testing.T) {
	for log2 := 2; log2 <= 5; log2++ {
		size := 1 << uint(log2)
		c := make([]int32, size*size)
		c[0] = 64
		Inverse(c, log2, 8, false)
		for i, v := range c {
			if !assert.Equal(t, int32(1), v, "size %d index %d", size, i) {
				break
			}
		}
	}
}

func TestInverse_DST(t *testing.T) {
	c := make([]int32, 16)
	c[0] = 64
	Inverse(c, 2, 8, true)
	assert.Equal(t, []int32{
		0, 0, 0, 0,
		0, 0, 1, 1,
		0, 0, 1, 1,
		0, 1, 1, 1,
	}, c)
}

func TestInverseSkip(t *testing.T) {
	c := make([]int32, 16)
	c[0], c[1], c[2] = 4, 32, -32
	InverseSkip(c, 2, 8)
	assert.Equal(t, []int32{0, 1, -1, 0}, c[:4])
}

func TestDequantize(t *testing.T) {
	c := make([]int32, 16)
	c[0], c[1], c[15] = 1, -1, 32767
	Dequantize(c, 2, 4, 8, nil)
	assert.Equal(t, int32(32), c[0])
	assert.Equal(t, int32(-32), c[1])
	assert.Equal(t, int32(32767), c[15])

	m := make([]uint8, 16)
	for i := range m {
		m[i] = 32
	}
	c = make([]int32, 16)
	c[5] = 1
	Dequantize(c, 2, 4, 8, m)
	assert.Equal(t, int32(64), c[5])
}

func TestAddResidual(t *testing.T) {
	dst := []uint8{
		10, 250, 9,
		128, 5, 9,
	}
	AddResidual(dst, 3, []int32{-20, 10, 1, 2}, 2)
	assert.Equal(t, []uint8{0, 255, 9, 129, 7, 9}, dst)
}
