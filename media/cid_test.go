// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCID(t *testing.T) {
	var sequenceSeed uint32

	tests := []struct {
		name string
		typ  SinkType
	}{
		{"NewYUVSink", YUVSink},
		{"NewMD5Sink", MD5Sink},
		{"NewFuncSink", FuncSink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cid := NewCID(tt.typ, &sequenceSeed)
			assert.Equal(t, tt.typ, cid.Type())
			assert.Equal(t, sequenceSeed, cid.Sequence())
		})
	}
}

func TestCID_Wrap(t *testing.T) {
	sequenceSeed := uint32(maxSinkSequence - 1)
	cid := NewCID(MD5Sink, &sequenceSeed)
	assert.Equal(t, uint32(1), cid.Sequence())
	assert.Equal(t, MD5Sink, cid.Type())
	assert.Equal(t, "MD5", cid.Type().String())
	assert.Equal(t, "Unknown", SinkType(3).String())
}
