// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/pkg/errors"
)

// ShortTermRPS is a st_ref_pic_set() in its explicit form: both lists hold
// POC deltas relative to the current picture, S0 decreasing and S1
// increasing.
type ShortTermRPS struct {
	NumNegative int
	NumPositive int
	DeltaPocS0  [MaxRefs]int32
	UsedS0      [MaxRefs]bool
	DeltaPocS1  [MaxRefs]int32
	UsedS1      [MaxRefs]bool
}

// NumDeltaPocs .
func (rps *ShortTermRPS) NumDeltaPocs() int {
	return rps.NumNegative + rps.NumPositive
}

// NumUsed returns the number of entries used by the current picture.
func (rps *ShortTermRPS) NumUsed() int {
	n := 0
	for i := 0; i < rps.NumNegative; i++ {
		if rps.UsedS0[i] {
			n++
		}
	}
	for i := 0; i < rps.NumPositive; i++ {
		if rps.UsedS1[i] {
			n++
		}
	}
	return n
}

// decode parses st_ref_pic_set(idx). sets are the candidate sets of the
// SPS, idx == len(sets) for a set coded in a slice header.
func (rps *ShortTermRPS) decode(r *bits.Reader, idx int, sets []ShortTermRPS, maxDecPicBuffering int) error {
	interPred := false
	if idx != 0 {
		interPred = r.ReadBool() // inter_ref_pic_set_prediction_flag
	}

	if !interPred {
		numNeg := int(r.ReadUe())
		numPos := int(r.ReadUe())
		if numNeg > maxDecPicBuffering || numPos > maxDecPicBuffering-numNeg || numNeg+numPos > MaxRefs {
			return errors.Wrapf(ErrInvalidParameterSet, "short-term ref pic set %d contains too many pictures", idx)
		}
		rps.NumNegative, rps.NumPositive = numNeg, numPos

		poc := int32(0)
		for i := 0; i < numNeg; i++ {
			poc -= int32(r.ReadUe()) + 1
			rps.DeltaPocS0[i] = poc
			rps.UsedS0[i] = r.ReadBool()
		}
		poc = 0
		for i := 0; i < numPos; i++ {
			poc += int32(r.ReadUe()) + 1
			rps.DeltaPocS1[i] = poc
			rps.UsedS1[i] = r.ReadBool()
		}
		return nil
	}

	deltaIdx := 1
	if idx == len(sets) {
		deltaIdx = int(r.ReadUe()) + 1 // delta_idx_minus1
	}
	if deltaIdx > idx {
		return errors.Wrapf(ErrInvalidParameterSet, "delta_idx_minus1 %d out of range", deltaIdx-1)
	}
	ref := &sets[idx-deltaIdx]

	sign := r.ReadBit()
	deltaRps := int32(r.ReadUe()) + 1
	if sign == 1 {
		deltaRps = -deltaRps
	}

	n := ref.NumDeltaPocs()
	var used, useDelta [MaxRefs + 1]bool
	for j := 0; j <= n; j++ {
		used[j] = r.ReadBool()
		useDelta[j] = true
		if !used[j] {
			useDelta[j] = r.ReadBool()
		}
	}

	// (7-61)
	i := 0
	for j := ref.NumPositive - 1; j >= 0; j-- {
		dPoc := ref.DeltaPocS1[j] + deltaRps
		if dPoc < 0 && useDelta[ref.NumNegative+j] {
			if i >= MaxRefs {
				return errors.Wrap(ErrInvalidParameterSet, "predicted short-term ref pic set overflow")
			}
			rps.DeltaPocS0[i] = dPoc
			rps.UsedS0[i] = used[ref.NumNegative+j]
			i++
		}
	}
	if deltaRps < 0 && useDelta[n] {
		if i >= MaxRefs {
			return errors.Wrap(ErrInvalidParameterSet, "predicted short-term ref pic set overflow")
		}
		rps.DeltaPocS0[i] = deltaRps
		rps.UsedS0[i] = used[n]
		i++
	}
	for j := 0; j < ref.NumNegative; j++ {
		dPoc := ref.DeltaPocS0[j] + deltaRps
		if dPoc < 0 && useDelta[j] {
			if i >= MaxRefs {
				return errors.Wrap(ErrInvalidParameterSet, "predicted short-term ref pic set overflow")
			}
			rps.DeltaPocS0[i] = dPoc
			rps.UsedS0[i] = used[j]
			i++
		}
	}
	rps.NumNegative = i

	// (7-62)
	i = 0
	for j := ref.NumNegative - 1; j >= 0; j-- {
		dPoc := ref.DeltaPocS0[j] + deltaRps
		if dPoc > 0 && useDelta[j] {
			if i >= MaxRefs {
				return errors.Wrap(ErrInvalidParameterSet, "predicted short-term ref pic set overflow")
			}
			rps.DeltaPocS1[i] = dPoc
			rps.UsedS1[i] = used[j]
			i++
		}
	}
	if deltaRps > 0 && useDelta[n] {
		if i >= MaxRefs {
			return errors.Wrap(ErrInvalidParameterSet, "predicted short-term ref pic set overflow")
		}
		rps.DeltaPocS1[i] = deltaRps
		rps.UsedS1[i] = used[n]
		i++
	}
	for j := 0; j < ref.NumPositive; j++ {
		dPoc := ref.DeltaPocS1[j] + deltaRps
		if dPoc > 0 && useDelta[ref.NumNegative+j] {
			if i >= MaxRefs {
				return errors.Wrap(ErrInvalidParameterSet, "predicted short-term ref pic set overflow")
			}
			rps.DeltaPocS1[i] = dPoc
			rps.UsedS1[i] = used[ref.NumNegative+j]
			i++
		}
	}
	rps.NumPositive = i

	if rps.NumDeltaPocs() > MaxRefs {
		return errors.Wrap(ErrInvalidParameterSet, "predicted short-term ref pic set overflow")
	}
	return nil
}

// encode writes the set in explicit form (no inter RPS prediction).
func (rps *ShortTermRPS) encode(w *bits.Writer, idx int) {
	if idx != 0 {
		w.WriteBit(0) // inter_ref_pic_set_prediction_flag
	}
	w.WriteUe(uint32(rps.NumNegative))
	w.WriteUe(uint32(rps.NumPositive))
	prev := int32(0)
	for i := 0; i < rps.NumNegative; i++ {
		w.WriteUe(uint32(prev - rps.DeltaPocS0[i] - 1))
		w.WriteBool(rps.UsedS0[i])
		prev = rps.DeltaPocS0[i]
	}
	prev = 0
	for i := 0; i < rps.NumPositive; i++ {
		w.WriteUe(uint32(rps.DeltaPocS1[i] - prev - 1))
		w.WriteBool(rps.UsedS1[i])
		prev = rps.DeltaPocS1[i]
	}
}
