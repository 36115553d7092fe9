// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cabac

import (
	"math/rand"
	"testing"

	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	opBit = iota
	opBypass
	opTerminate
	opRemaining
	opExpGolomb
)

type op struct {
	kind  int
	ctx   int
	value int
	param int
}

func randomOps(rnd *rand.Rand, n int) []op {
	ops := make([]op, 0, n)
	for i := 0; i < n; i++ {
		switch k := rnd.Intn(10); {
		case k < 6:
			// skewed bins exercise both paths of the context engine
			v := 0
			if rnd.Intn(5) == 0 {
				v = 1
			}
			ops = append(ops, op{kind: opBit, ctx: rnd.Intn(NumContexts), value: v})
		case k < 8:
			ops = append(ops, op{kind: opBypass, value: rnd.Intn(2)})
		case k < 9:
			ops = append(ops, op{kind: opTerminate})
		default:
			if rnd.Intn(2) == 0 {
				ops = append(ops, op{kind: opRemaining, value: rnd.Intn(3000), param: rnd.Intn(5)})
			} else {
				ops = append(ops, op{kind: opExpGolomb, value: rnd.Intn(1 << 15), param: rnd.Intn(4)})
			}
		}
	}
	return ops
}

func encodeOps(initType, qp int, ops []op) []byte {
	w := bits.NewWriter()
	e := NewEncoder(w)
	var cs ContextSet
	cs.Init(initType, qp)
	for _, o := range ops {
		switch o.kind {
		case opBit:
			e.EncodeBit(&cs[o.ctx], o.value)
		case opBypass:
			e.EncodeBypass(o.value)
		case opTerminate:
			e.EncodeTerminate(0)
		case opRemaining:
			e.EncodeCoeffAbsLevelRemaining(o.value, o.param)
		case opExpGolomb:
			e.EncodeExpGolombBypass(uint32(o.value), o.param)
		}
	}
	e.EncodeTerminate(1)
	e.Finish()
	w.WriteTrailingBits()
	return w.Bytes()
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		initType := round % 3
		qp := rnd.Intn(52)
		ops := randomOps(rnd, 2000)
		data := encodeOps(initType, qp, ops)

		d := NewDecoder(data)
		var cs ContextSet
		cs.Init(initType, qp)
		for i, o := range ops {
			switch o.kind {
			case opBit:
				require.Equal(t, o.value, d.DecodeBit(&cs[o.ctx]), "round %d op %d", round, i)
			case opBypass:
				require.Equal(t, o.value, d.DecodeBypass(), "round %d op %d", round, i)
			case opTerminate:
				require.Equal(t, 0, d.DecodeTerminate(), "round %d op %d", round, i)
			case opRemaining:
				require.Equal(t, o.value, d.DecodeCoeffAbsLevelRemaining(o.param), "round %d op %d", round, i)
			case opExpGolomb:
				require.Equal(t, uint32(o.value), d.DecodeExpGolombBypass(o.param), "round %d op %d", round, i)
			}
		}
		require.Equal(t, 1, d.DecodeTerminate())
		assert.Equal(t, len(data), d.Pos())
		assert.Equal(t, 0, d.Overrun())
	}
}

func TestSubstreams(t *testing.T) {
	w := bits.NewWriter()
	e := NewEncoder(w)
	var cs ContextSet
	cs.Init(0, 32)

	e.EncodeBit(&cs[SplitCuFlag], 1)
	e.EncodeBypassBits(0x5a, 8)
	e.EncodeTerminate(1)
	e.Finish()
	w.WriteTrailingBits()
	second := len(w.Bytes())

	e.Reset()
	cs.Init(0, 32)
	e.EncodeBit(&cs[SplitCuFlag], 0)
	e.EncodeTerminate(1)
	e.Finish()
	w.WriteTrailingBits()
	data := w.Bytes()

	d := NewDecoder(data)
	cs.Init(0, 32)
	assert.Equal(t, 1, d.DecodeBit(&cs[SplitCuFlag]))
	assert.Equal(t, uint32(0x5a), d.DecodeBypassBits(8))
	require.Equal(t, 1, d.DecodeTerminate())
	assert.Equal(t, second, d.Pos())

	d.Reset()
	cs.Init(0, 32)
	assert.Equal(t, 0, d.DecodeBit(&cs[SplitCuFlag]))
	assert.Equal(t, 1, d.DecodeTerminate())
	assert.Equal(t, len(data), d.Pos())
}

func TestOverrun(t *testing.T) {
	d := NewDecoder([]byte{0x12})
	for i := 0; i < 64; i++ {
		d.DecodeBypass()
	}
	assert.True(t, d.Overrun() >= 2)
}

func TestInitContext(t *testing.T) {
	tests := []struct {
		initValue int
		qp        int
		want      Context
	}{
		{154, 26, Context{State: 0, MPS: 1}},
		{154, 51, Context{State: 0, MPS: 1}},
		{139, 26, Context{State: 0, MPS: 0}},
		{200, 30, Context{State: 12, MPS: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, initContext(tt.initValue, tt.qp), "initValue %d qp %d", tt.initValue, tt.qp)
	}
}

func TestContextSet_Init(t *testing.T) {
	assert.Equal(t, 155, NumContexts)

	var cs ContextSet
	cs.Init(0, 30)
	assert.Equal(t, Context{State: 12, MPS: 1}, cs[SaoTypeIdx])
	// qp is clipped
	cs.Init(1, 80)
	assert.Equal(t, initContext(185, 51), cs[SaoTypeIdx])
	assert.Equal(t, initContext(198, 51), cs[AbsMvdGreater1Flag])
}
