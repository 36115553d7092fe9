// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package utils

import "bytes"

// RemoveEmulationBytes converts an escaped NAL payload into its RBSP.
// skipped holds the index in from of every removed 0x03 byte, in increasing
// order, so that offsets counted on the escaped payload can be mapped back
// onto the RBSP.
func RemoveEmulationBytes(from []byte) (to []byte, skipped []int) {
	to = make([]byte, 0, len(from))
	zeros := 0
	for i, b := range from {
		if zeros >= 2 && b == 3 {
			skipped = append(skipped, i)
			zeros = 0
			continue
		}

		to = append(to, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return
}

// EscapedToRbspOffset maps an offset in the escaped payload onto the RBSP
// produced by RemoveEmulationBytes.
func EscapedToRbspOffset(offset int, skipped []int) int {
	n := 0
	for _, pos := range skipped {
		if pos >= offset {
			break
		}
		n++
	}
	return offset - n
}

// AddEmulationBytes inserts 'emulation_prevention_three_byte's so that the
// result contains no start code prefix.
func AddEmulationBytes(rbsp []byte) []byte {
	to := make([]byte, 0, len(rbsp)+len(rbsp)/64+4)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			to = append(to, 3)
			zeros = 0
		}

		to = append(to, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	// 以 cabac_zero_word 结尾时追加 0x03
	if zeros >= 2 {
		to = append(to, 3)
	}
	return to
}

// RemoveNaluSeparator 移除 NALU 分隔符 0x00000001 或 0x000001
func RemoveNaluSeparator(nalu []byte) []byte {
	if bytes.HasPrefix(nalu, []byte{0x0, 0x0, 0x0, 0x1}) {
		return nalu[4:]
	}
	if bytes.HasPrefix(nalu, []byte{0x0, 0x0, 0x1}) {
		return nalu[3:]
	}
	return nalu
}
