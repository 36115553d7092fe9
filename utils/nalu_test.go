// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveEmulationBytes(t *testing.T) {
	escaped := []byte{0x40, 0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x00, 0x00, 0x03}
	rbsp, skipped := RemoveEmulationBytes(escaped)
	assert.Equal(t, []byte{0x40, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}, rbsp)
	assert.Equal(t, []int{3, 7, 10}, skipped)

	assert.Equal(t, 3, EscapedToRbspOffset(3, skipped))
	assert.Equal(t, 3, EscapedToRbspOffset(4, skipped))
	assert.Equal(t, 6, EscapedToRbspOffset(8, skipped))
}

func TestAddEmulationBytes(t *testing.T) {
	tests := [][]byte{
		{0x40, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0x02, 0xff, 0x00, 0x00, 0x03, 0x80},
		{0x12, 0x34},
	}
	for _, rbsp := range tests {
		escaped := AddEmulationBytes(rbsp)
		for i := 0; i+2 < len(escaped); i++ {
			if escaped[i] == 0 && escaped[i+1] == 0 {
				assert.True(t, escaped[i+2] == 3 || escaped[i+2] > 3, "start code emulation at %d", i)
			}
		}
		back, _ := RemoveEmulationBytes(escaped)
		assert.Equal(t, rbsp, back)
	}
}

func TestRemoveNaluSeparator(t *testing.T) {
	assert.Equal(t, []byte{0x40, 0x01}, RemoveNaluSeparator([]byte{0, 0, 0, 1, 0x40, 0x01}))
	assert.Equal(t, []byte{0x40, 0x01}, RemoveNaluSeparator([]byte{0, 0, 1, 0x40, 0x01}))
	assert.Equal(t, []byte{0x40, 0x01}, RemoveNaluSeparator([]byte{0x40, 0x01}))
}
