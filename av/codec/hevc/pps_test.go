// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"testing"

	"github.com/cnotch/hevcdec/utils"
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSPS(t *testing.T) *SPS {
	sps := &SPS{}
	require.NoError(t, sps.DecodeString("QgEBAWAAAAMAkAAAAwAAAwBdoAKAgC0WWVmkkyuAQAAA+kAAF3AC"))
	return sps
}

// 48x32 picture of 16x16 CTBs, 3x2 CTBs
func smallSPS() *SPS {
	sps := &SPS{
		ChromaFormatIdc:      1,
		Width:                48,
		Height:               32,
		BitDepthLuma:         8,
		BitDepthChroma:       8,
		Log2MaxPocLsb:        8,
		Log2MinCbSize:        3,
		Log2DiffMaxMinCbSize: 1,
		Log2MinTbSize:        2,
		Log2DiffMaxMinTbSize: 2,
	}
	sps.MaxDecPicBuffering[0] = 4
	if err := sps.derive(); err != nil {
		panic(err)
	}
	return sps
}

func TestPPS_EncodeDecode(t *testing.T) {
	pps := &PPS{
		ID:                       3,
		SPSID:                    1,
		SignDataHiding:           true,
		NumRefIdxL0DefaultActive: 2,
		NumRefIdxL1DefaultActive: 1,
		InitQp:                   30,
		CuQpDeltaEnabled:         true,
		DiffCuQpDeltaDepth:       1,
		CbQpOffset:               -2,
		CrQpOffset:               3,
		TilesEnabled:             true,
		NumTileColumns:           2,
		NumTileRows:              1,
		UniformSpacing:           false,
		ColumnWidthMinus1:        []int{0},
		RowHeightMinus1:          []int{},
		LoopFilterAcrossTiles:    true,
		DeblockingControlPresent: true,
		BetaOffsetDiv2:           2,
		TcOffsetDiv2:             -1,
		Log2ParMrgLevel:          3,
	}

	again := &PPS{}
	require.NoError(t, again.Decode(pps.Encode()))
	assert.Equal(t, uint8(3), again.ID)
	assert.Equal(t, uint8(1), again.SPSID)
	assert.True(t, again.SignDataHiding)
	assert.Equal(t, 2, again.NumRefIdxL0DefaultActive)
	assert.Equal(t, 30, again.InitQp)
	assert.Equal(t, 1, again.DiffCuQpDeltaDepth)
	assert.Equal(t, -2, again.CbQpOffset)
	assert.Equal(t, 3, again.CrQpOffset)
	assert.Equal(t, 2, again.NumTileColumns)
	assert.Equal(t, []int{0}, again.ColumnWidthMinus1)
	assert.Equal(t, 2, again.BetaOffsetDiv2)
	assert.Equal(t, -1, again.TcOffsetDiv2)
	assert.Equal(t, 3, again.Log2ParMrgLevel)
	assert.Nil(t, again.SPS())
}

func TestPPS_SetupTiles(t *testing.T) {
	sps := smallSPS()
	pps := &PPS{
		TilesEnabled:    true,
		NumTileColumns:  2,
		NumTileRows:     1,
		UniformSpacing:  true,
		Log2ParMrgLevel: 2,
		InitQp:          26,
	}
	require.NoError(t, pps.Setup(sps))
	assert.Same(t, sps, pps.SPS())

	assert.Equal(t, []int{0, 1, 3}, pps.ColBd)
	assert.Equal(t, []int{0, 2}, pps.RowBd)
	assert.Equal(t, []int{0, 2, 3, 1, 4, 5}, pps.CtbAddrRsToTs)
	assert.Equal(t, []int{0, 3, 1, 2, 4, 5}, pps.CtbAddrTsToRs)
	assert.Equal(t, []int{0, 1, 1, 0, 1, 1}, pps.TileIDRs)
	assert.Equal(t, []int{0, 0, 1, 1, 1, 1}, pps.TileID)
	assert.Same(t, sps.Factors, pps.Factors)

	// z-scan order inside the first CTB
	assert.Equal(t, 12, pps.MinTbStride)
	assert.Equal(t, 1, pps.MinTbAddrZs[1])
	assert.Equal(t, 2, pps.MinTbAddrZs[12])
	assert.Equal(t, 3, pps.MinTbAddrZs[13])
	assert.Equal(t, 4, pps.MinTbAddrZs[2])
	// first min TB of CTB 1 (tile scan address 2)
	assert.Equal(t, 2<<4, pps.MinTbAddrZs[4])
}

func TestPPS_ZScanAvailable(t *testing.T) {
	sps := smallSPS()
	pps := &PPS{
		TilesEnabled:    true,
		NumTileColumns:  2,
		NumTileRows:     1,
		UniformSpacing:  true,
		Log2ParMrgLevel: 2,
	}
	require.NoError(t, pps.Setup(sps))
	sameSlice := func(int) int { return 0 }

	// left neighbour in another tile
	assert.False(t, pps.ZScanAvailable(16, 0, 15, 0, sameSlice))
	// above, same tile
	assert.True(t, pps.ZScanAvailable(16, 16, 16, 15, sameSlice))
	assert.False(t, pps.ZScanAvailable(16, 16, 15, 16, sameSlice))
	assert.False(t, pps.ZScanAvailable(0, 0, -1, 0, sameSlice))
	// not decoded yet
	assert.False(t, pps.ZScanAvailable(0, 0, 4, 0, sameSlice))
	assert.True(t, pps.ZScanAvailable(4, 4, 0, 4, sameSlice))

	otherSlice := func(ctb int) int {
		if ctb == 1 {
			return 1
		}
		return 0
	}
	assert.False(t, pps.ZScanAvailable(16, 16, 16, 15, otherSlice))
}

func TestPPS_SetupErrors(t *testing.T) {
	sps := smallSPS()
	pps := &PPS{
		TilesEnabled:      true,
		NumTileColumns:    2,
		NumTileRows:       1,
		ColumnWidthMinus1: []int{4},
		RowHeightMinus1:   []int{},
		Log2ParMrgLevel:   2,
	}
	assert.True(t, IsError(pps.Setup(sps), ErrInvalidParameterSet))

	pps = &PPS{NumTileColumns: 1, NumTileRows: 1, UniformSpacing: true, Log2ParMrgLevel: 5}
	assert.True(t, IsError(pps.Setup(sps), ErrInvalidParameterSet))
}

func TestShortTermRPS_InterPrediction(t *testing.T) {
	w := bits.NewWriter()
	first := ShortTermRPS{NumNegative: 1}
	first.DeltaPocS0[0] = -1
	first.UsedS0[0] = true
	first.encode(w, 0)

	// inter_ref_pic_set_prediction_flag, delta_rps_sign, abs_delta_rps_minus1
	w.WriteBit(1)
	w.WriteBit(1)
	w.WriteUe(0)
	// used_by_curr_pic_flag
	w.WriteBit(1)
	w.WriteBit(1)

	// slice header form: delta_idx_minus1 is present, deltaRps = +2
	w.WriteBit(1)
	w.WriteUe(0)
	w.WriteBit(0)
	w.WriteUe(1)
	// used_by_curr_pic_flag / use_delta_flag pairs
	w.WriteBit(0)
	w.WriteBit(1)
	w.WriteBit(0)
	w.WriteBit(1)
	w.WriteBit(1)
	w.WriteTrailingBits()

	r := bits.NewReader(w.Bytes())
	sets := make([]ShortTermRPS, 2)
	require.NoError(t, sets[0].decode(r, 0, sets, 16))
	require.NoError(t, sets[1].decode(r, 1, sets, 16))
	assert.Equal(t, 2, sets[1].NumNegative)
	assert.Equal(t, 0, sets[1].NumPositive)
	assert.Equal(t, int32(-1), sets[1].DeltaPocS0[0])
	assert.Equal(t, int32(-2), sets[1].DeltaPocS0[1])
	assert.Equal(t, 2, sets[1].NumUsed())

	// reference: {-1, -2}, deltaRps = 2
	var inSlice ShortTermRPS
	require.NoError(t, inSlice.decode(r, 2, sets, 16))
	assert.Equal(t, 0, inSlice.NumNegative)
	assert.Equal(t, 2, inSlice.NumPositive)
	assert.Equal(t, int32(1), inSlice.DeltaPocS1[0])
	assert.False(t, inSlice.UsedS1[0])
	assert.Equal(t, int32(2), inSlice.DeltaPocS1[1])
	assert.True(t, inSlice.UsedS1[1])
}

func TestSliceHeader_EncodeDecode(t *testing.T) {
	sps := testSPS(t)
	pps := &PPS{
		SPSID:                    sps.ID,
		NumRefIdxL0DefaultActive: 1,
		NumRefIdxL1DefaultActive: 1,
		InitQp:                   30,
		NumTileColumns:           1,
		NumTileRows:              1,
		UniformSpacing:           true,
		EntropyCodingSync:        true,
		LoopFilterAcrossSlices:   true,
		Log2ParMrgLevel:          2,
	}
	sets := &ParamSets{}
	sets.SPS[sps.ID] = sps
	sets.PPS[0] = pps

	sh := &SliceHeader{
		FirstSliceSegmentInPic: true,
		SliceType:              SliceP,
		PicOutput:              true,
		PocLsb:                 5,
		TemporalMvpEnabled:     true,
		SaoLuma:                true,
		MaxNumMergeCand:        3,
		QpDelta:                -2,
		EntryPointOffsets:      []int{4, 2},
	}
	sh.NumRefIdxActive[0] = 1
	sh.StRps.NumNegative = 1
	sh.StRps.DeltaPocS0[0] = -1
	sh.StRps.UsedS0[0] = true

	w := bits.NewWriter()
	sh.Encode(w, NalTrailR, sps, pps)
	w.WriteBytes([]byte{0x00, 0x00, 0x01, 0xaa, 0xbb, 0xcc})
	nal := append([]byte{NalTrailR << 1, 0x01}, utils.AddEmulationBytes(w.Bytes())...)

	unit, err := NewNal(nal)
	require.NoError(t, err)
	got := &SliceHeader{}
	require.NoError(t, got.Decode(unit, sets, nil))

	assert.True(t, got.FirstSliceSegmentInPic)
	assert.Equal(t, SliceP, got.SliceType)
	assert.Equal(t, 5, got.PocLsb)
	assert.Equal(t, sh.StRps, got.StRps)
	assert.True(t, got.TemporalMvpEnabled)
	assert.True(t, got.SaoLuma)
	assert.Equal(t, 1, got.NumRefIdxActive[0])
	assert.Equal(t, 3, got.MaxNumMergeCand)
	assert.Equal(t, 28, got.SliceQpY)
	assert.Equal(t, 1, got.NumPicTotalCurr)
	assert.Equal(t, 1, got.InitType())
	assert.False(t, got.LoopFilterAcrossSlices)

	assert.Equal(t, []int{4, 2}, got.EntryPointOffsets)
	require.Len(t, got.EntryPoints, 2)
	assert.Equal(t, byte(0x00), unit.Data[got.DataOffset])
	assert.Equal(t, byte(0xaa), unit.Data[got.EntryPoints[0]])
	assert.Equal(t, byte(0xcc), unit.Data[got.EntryPoints[1]])
}

func TestSliceHeader_Errors(t *testing.T) {
	sets := &ParamSets{}
	unit, err := NewNal([]byte{NalTrailR << 1, 0x01, 0xf8})
	require.NoError(t, err)
	assert.True(t, IsError((&SliceHeader{}).Decode(unit, sets, nil), ErrInvalidParameterSet))
}

func TestPictureHash(t *testing.T) {
	plane := []byte{1, 2, 3, 4}
	assert.Equal(t, uint32(10), PlaneChecksum(plane, 2, 2, 2))
	assert.Equal(t, uint16(0x0313), PlaneCRC(plane, 2, 2, 2))

	abc := PlaneMD5([]byte("abcXabcX"), 4, 3, 1)
	assert.Equal(t, [16]byte{0x90, 0x01, 0x50, 0x98, 0x3c, 0xd2, 0x4f, 0xb0,
		0xd6, 0x96, 0x3f, 0x7d, 0x28, 0xe1, 0x7f, 0x72}, abc)

	sei := []byte{NalSeiSuffix << 1, 0x01, SeiDecodedPictureHash, 7, HashCRC,
		0x03, 0x13, 0x00, 0x00, 0x00, 0x00, 0x80}
	unit, err := NewNal(sei)
	require.NoError(t, err)
	hash, err := DecodeSEI(unit)
	require.NoError(t, err)
	require.NotNil(t, hash)
	assert.Equal(t, 3, hash.NumComponents)
	assert.True(t, hash.Verify(0, plane, 2, 2, 2))
	assert.False(t, hash.Verify(1, plane, 2, 2, 2))

	// user data unregistered only
	unit, err = NewNal([]byte{NalSeiPrefix << 1, 0x01, 5, 1, 0xaa, 0x80})
	require.NoError(t, err)
	hash, err = DecodeSEI(unit)
	assert.NoError(t, err)
	assert.Nil(t, hash)
}
