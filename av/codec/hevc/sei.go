// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"crypto/md5"
	"fmt"
	"runtime/debug"

	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/pkg/errors"
)

// PictureHash is the payload of a decoded picture hash SEI message.
type PictureHash struct {
	HashType      uint8
	NumComponents int
	MD5           [3][16]byte
	CRC           [3]uint16
	Checksum      [3]uint32
}

// DecodeSEI scans the sei_message()s of a SEI NAL unit and returns the
// decoded picture hash, or nil when the unit carries none.
func DecodeSEI(nal *Nal) (hash *PictureHash, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrInvalidParameterSet, fmt.Sprintf("sei decode panic；r = %v \n %s", r, debug.Stack()))
		}
	}()

	r := bits.NewReader(nal.Data)
	for r.MoreRbspData() {
		payloadType := 0
		for b := r.ReadUint8(8); ; b = r.ReadUint8(8) {
			payloadType += int(b)
			if b != 0xff {
				break
			}
		}
		payloadSize := 0
		for b := r.ReadUint8(8); ; b = r.ReadUint8(8) {
			payloadSize += int(b)
			if b != 0xff {
				break
			}
		}

		start := r.Offset() >> 3
		if start+payloadSize > len(nal.Data) {
			return nil, errors.Wrap(ErrInvalidParameterSet, "sei payload exceeds the nal unit")
		}
		payload := nal.Data[start : start+payloadSize]
		r.Skip(payloadSize << 3)

		if payloadType == SeiDecodedPictureHash {
			hash = &PictureHash{}
			if err = hash.decode(payload); err != nil {
				return nil, err
			}
		}
	}
	return
}

func (h *PictureHash) decode(payload []byte) error {
	if len(payload) < 1 {
		return errors.Wrap(ErrInvalidParameterSet, "empty decoded picture hash")
	}
	r := bits.NewReader(payload)
	h.HashType = r.ReadUint8(8)

	var size int
	switch h.HashType {
	case HashMD5:
		size = 16
	case HashCRC:
		size = 2
	case HashChecksum:
		size = 4
	default:
		return errors.Wrapf(ErrInvalidParameterSet, "unknown picture hash type %d", h.HashType)
	}

	// 分量数由负载长度推出（chroma_format_idc 为 0 时只有亮度）
	h.NumComponents = (len(payload) - 1) / size
	if h.NumComponents != 1 && h.NumComponents != 3 {
		return errors.Wrapf(ErrInvalidParameterSet, "picture hash of %d bytes", len(payload))
	}
	for c := 0; c < h.NumComponents; c++ {
		switch h.HashType {
		case HashMD5:
			for i := 0; i < 16; i++ {
				h.MD5[c][i] = r.ReadUint8(8)
			}
		case HashCRC:
			h.CRC[c] = r.ReadUint16(16)
		case HashChecksum:
			h.Checksum[c] = r.ReadUint32(32)
		}
	}
	return nil
}

// Verify compares the hash of plane c (8-bit samples) with the SEI value.
func (h *PictureHash) Verify(c int, plane []byte, stride, width, height int) bool {
	switch h.HashType {
	case HashMD5:
		return PlaneMD5(plane, stride, width, height) == h.MD5[c]
	case HashCRC:
		return PlaneCRC(plane, stride, width, height) == h.CRC[c]
	default:
		return PlaneChecksum(plane, stride, width, height) == h.Checksum[c]
	}
}

// PlaneMD5 returns the MD5 of the picture samples in raster order.
func PlaneMD5(plane []byte, stride, width, height int) [16]byte {
	m := md5.New()
	for y := 0; y < height; y++ {
		m.Write(plane[y*stride : y*stride+width])
	}
	var sum [16]byte
	copy(sum[:], m.Sum(nil))
	return sum
}

// PlaneCRC returns the CRC of D.3.19 for 8-bit samples.
func PlaneCRC(plane []byte, stride, width, height int) uint16 {
	crc := uint32(0xffff)
	for y := 0; y < height; y++ {
		for _, s := range plane[y*stride : y*stride+width] {
			for bit := uint(0); bit < 8; bit++ {
				msb := (crc >> 15) & 1
				v := uint32(s>>(7-bit)) & 1
				crc = (((crc << 1) + v) & 0xffff) ^ (msb * 0x1021)
			}
		}
	}
	for bit := 0; bit < 16; bit++ {
		msb := (crc >> 15) & 1
		crc = ((crc << 1) & 0xffff) ^ (msb * 0x1021)
	}
	return uint16(crc)
}

// PlaneChecksum returns the checksum of D.3.19 for 8-bit samples.
func PlaneChecksum(plane []byte, stride, width, height int) uint32 {
	var sum uint32
	for y := 0; y < height; y++ {
		for x, s := range plane[y*stride : y*stride+width] {
			mask := uint32((x & 0xff) ^ (y & 0xff) ^ (x >> 8) ^ (y >> 8))
			sum += uint32(s) ^ mask
		}
	}
	return sum
}
