// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"github.com/cnotch/hevcdec/utils"
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/pkg/errors"
)

// NalHeader is the two byte nal_unit_header.
//
// +---------------+---------------+
// |0|1|2|3|4|5|6|7|0|1|2|3|4|5|6|7|
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |F|   Type    |  LayerId  | TID |
// +-------------+-----------------+
type NalHeader struct {
	Type       uint8
	LayerID    uint8
	TemporalID uint8
}

func (h *NalHeader) decode(r *bits.Reader) error {
	if r.ReadBit() != 0 {
		return errors.Wrap(ErrInvalidParameterSet, "forbidden_zero_bit is set")
	}
	h.Type = r.ReadUint8(6)
	h.LayerID = r.ReadUint8(6)
	tid := r.ReadUint8(3)
	if tid == 0 {
		return errors.Wrap(ErrInvalidParameterSet, "nuh_temporal_id_plus1 is zero")
	}
	h.TemporalID = tid - 1
	return nil
}

// NalType returns nal_unit_type from the first header byte.
func NalType(b byte) uint8 {
	return (b >> 1) & 0x3f
}

// IsVCL reports whether the unit carries a slice segment.
func (h *NalHeader) IsVCL() bool { return h.Type <= NalRsvVcl31 }

// IsIRAP reports an intra random access point picture.
func (h *NalHeader) IsIRAP() bool { return h.Type >= NalBlaWLp && h.Type <= NalIrapVcl23 }

// IsIDR .
func (h *NalHeader) IsIDR() bool { return h.Type == NalIdrWRadl || h.Type == NalIdrNLp }

// IsBLA .
func (h *NalHeader) IsBLA() bool { return h.Type >= NalBlaWLp && h.Type <= NalBlaNLp }

// IsCRA .
func (h *NalHeader) IsCRA() bool { return h.Type == NalCraNut }

// IsRASL .
func (h *NalHeader) IsRASL() bool { return h.Type == NalRaslN || h.Type == NalRaslR }

// IsRADL .
func (h *NalHeader) IsRADL() bool { return h.Type == NalRadlN || h.Type == NalRadlR }

// IsSubLayerNonReference reports the sub-layer non-reference picture types
// (TRAIL_N, TSA_N, ..., RSV_VCL_N14).
func (h *NalHeader) IsSubLayerNonReference() bool {
	return h.Type <= NalVclR15 && h.Type&1 == 0
}

// Nal is a NAL unit with the emulation prevention bytes removed.
type Nal struct {
	NalHeader
	// Data is the RBSP following the two byte header.
	Data    []byte
	skipped []int // escaped positions of the removed 0x03, relative to Data
	size    int   // escaped size, header included
}

// NewNal parses the header of an escaped NAL unit (start code excluded).
func NewNal(escaped []byte) (*Nal, error) {
	if len(escaped) < 2 {
		return nil, errors.Wrap(ErrInvalidParameterSet, "nal unit shorter than its header")
	}

	nal := &Nal{size: len(escaped)}
	if err := nal.decode(bits.NewReader(escaped[:2])); err != nil {
		return nil, err
	}
	nal.Data, nal.skipped = utils.RemoveEmulationBytes(escaped[2:])
	return nal, nil
}

// Size returns the escaped size of the unit, header included.
func (n *Nal) Size() int {
	return n.size
}

// RbspOffset maps an offset counted on escaped slice data bytes onto Data.
// dataStart is the RBSP offset where the slice data begins.
func (n *Nal) RbspOffset(dataStart, escapedOffset int) int {
	// 先把数据起点换算为转义前的偏移
	start := dataStart
	for _, pos := range n.skipped {
		if pos <= start {
			start++
		} else {
			break
		}
	}
	return utils.EscapedToRbspOffset(start+escapedOffset, n.skipped)
}
