// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

/**
 * Table 7-1 – NAL unit type codes and NAL unit type classes in
 * T-REC-H.265-201802
 */
const (
	NalTrailN    = 0
	NalTrailR    = 1
	NalTsaN      = 2
	NalTsaR      = 3
	NalStsaN     = 4
	NalStsaR     = 5
	NalRadlN     = 6
	NalRadlR     = 7
	NalRaslN     = 8
	NalRaslR     = 9
	NalVclN10    = 10
	NalVclR11    = 11
	NalVclN12    = 12
	NalVclR13    = 13
	NalVclN14    = 14
	NalVclR15    = 15
	NalBlaWLp    = 16
	NalBlaWRadl  = 17
	NalBlaNLp    = 18
	NalIdrWRadl  = 19
	NalIdrNLp    = 20
	NalCraNut    = 21
	NalIrapVcl22 = 22
	NalIrapVcl23 = 23
	NalRsvVcl31  = 31
	NalVps       = 32
	NalSps       = 33
	NalPps       = 34
	NalAud       = 35
	NalEosNut    = 36
	NalEobNut    = 37
	NalFdNut     = 38
	NalSeiPrefix = 39
	NalSeiSuffix = 40
	NalRsvNvcl47 = 47
	NalUnspec63  = 63
)

// HEVC(h265) 的图像片类型
const (
	SliceB = 0
	SliceP = 1
	SliceI = 2
)

// SEI payload types handled by the decoder.
const (
	SeiDecodedPictureHash = 132
)

// Hash types of the decoded picture hash SEI.
const (
	HashMD5      = 0
	HashCRC      = 1
	HashChecksum = 2
)

// ChromaFormat is the chroma sampling format of a picture.
type ChromaFormat int

// 色度采样格式
const (
	Chroma400 ChromaFormat = iota
	Chroma420
	Chroma422
	Chroma444
)

func (cf ChromaFormat) String() string {
	switch cf {
	case Chroma400:
		return "4:0:0"
	case Chroma420:
		return "4:2:0"
	case Chroma422:
		return "4:2:2"
	case Chroma444:
		return "4:4:4"
	}
	return "unknown"
}

// Syntax limits.
const (
	// 7.4.3.1: vps_max_sub_layers_minus1 is in [0, 6].
	MaxSubLayers = 7

	// 7.4.2.1: vps_video_parameter_set_id is u(4).
	MaxVpsCount = 16
	// 7.4.3.2.1: sps_seq_parameter_set_id is in [0, 15].
	MaxSpsCount = 16
	// 7.4.3.3.1: pps_pic_parameter_set_id is in [0, 63].
	MaxPpsCount = 64

	// A.4.2: MaxDpbSize is bounded above by 16.
	MaxDpbSize = 16
	// 7.4.3.1: vps_max_dec_pic_buffering_minus1[i] is in [0, MaxDpbSize - 1].
	MaxRefs = MaxDpbSize

	// 7.4.3.2.1: num_short_term_ref_pic_sets is in [0, 64].
	MaxShortTermRefPicSets = 64
	// 7.4.3.2.1: num_long_term_ref_pics_sps is in [0, 32].
	MaxLongTermRefPics = 32

	// A.3: all profiles require that CtbLog2SizeY is in [4, 6].
	MinLog2CtbSize = 4
	MaxLog2CtbSize = 6

	// E.3.2: cpb_cnt_minus1[i] is in [0, 31].
	MaxCpbCnt = 32

	// A.4.1: width and height are bounded above by sqrt(8 * 35651584).
	MaxWidth  = 16888
	MaxHeight = 16888

	// A.4.1: table A.6 allows at most 22 tile rows and 20 tile columns.
	MaxTileRows    = 22
	MaxTileColumns = 20

	// 7.4.7.1: (num_tile_columns_minus1 + 1) * PicHeightInCtbsY - 1, bounded
	// with the 16x16 CTB rows of a 4K picture.
	MaxEntryPointOffsets = MaxTileColumns * 135
)
