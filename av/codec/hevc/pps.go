// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"encoding/base64"
	"fmt"
	"runtime/debug"

	"github.com/cnotch/hevcdec/utils"
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/pkg/errors"
)

// PPS is a picture parameter set. The tables derived from the active SPS are
// filled by Setup.
type PPS struct {
	ID                          uint8
	SPSID                       uint8
	DependentSliceSegments      bool
	OutputFlagPresent           bool
	NumExtraSliceHeaderBits     int
	SignDataHiding              bool
	CabacInitPresent            bool
	NumRefIdxL0DefaultActive    int
	NumRefIdxL1DefaultActive    int
	InitQp                      int // 26 + init_qp_minus26
	ConstrainedIntraPred        bool
	TransformSkipEnabled        bool
	CuQpDeltaEnabled            bool
	DiffCuQpDeltaDepth          int
	CbQpOffset                  int
	CrQpOffset                  int
	SliceChromaQpOffsetsPresent bool
	WeightedPred                bool
	WeightedBipred              bool
	TransquantBypassEnabled     bool
	TilesEnabled                bool
	EntropyCodingSync           bool

	NumTileColumns         int
	NumTileRows            int
	UniformSpacing         bool
	ColumnWidthMinus1      []int
	RowHeightMinus1        []int
	LoopFilterAcrossTiles  bool
	LoopFilterAcrossSlices bool

	DeblockingControlPresent  bool
	DeblockingOverrideEnabled bool
	DeblockingDisabled        bool
	BetaOffsetDiv2            int
	TcOffsetDiv2              int

	ScalingListDataPresent bool
	ScalingList            ScalingList

	ListsModificationPresent    bool
	Log2ParMrgLevel             int
	SliceHeaderExtensionPresent bool
	ExtensionPresent            bool
	RangeExtension              bool
	MultilayerExtension         bool
	Extension3D                 bool
	SccExtension                bool
	Extension4Bits              uint8

	// derived by Setup
	sps           *SPS
	ColBd         []int // tile column boundaries in CTBs, NumTileColumns + 1 entries
	RowBd         []int
	CtbAddrRsToTs []int
	CtbAddrTsToRs []int
	TileID        []int // indexed by tile scan address
	TileIDRs      []int // indexed by raster scan address
	MinTbAddrZs   []int // PicWidthInMinTbs x PicHeightInMinTbs
	MinTbStride   int
	Factors       *ScalingFactors
}

// DecodeString 从 base64 字串解码 pps NAL
func (pps *PPS) DecodeString(b64 string) error {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	return pps.Decode(data)
}

// Decode 从字节序列中解码 pps NAL（可带起始码）
func (pps *PPS) Decode(data []byte) error {
	nal, err := NewNal(utils.RemoveNaluSeparator(data))
	if err != nil {
		return err
	}
	if nal.Type != NalPps {
		return errors.Wrap(ErrInvalidParameterSet, "not is pps NAL UNIT")
	}
	return pps.DecodeRbsp(nal.Data)
}

// DecodeRbsp decodes the RBSP following the NAL unit header.
func (pps *PPS) DecodeRbsp(rbsp []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrInvalidParameterSet, fmt.Sprintf("pps decode panic；r = %v \n %s", r, debug.Stack()))
		}
	}()

	r := bits.NewReader(rbsp)
	id := r.ReadUe()
	if id >= MaxPpsCount {
		return errors.Wrapf(ErrInvalidParameterSet, "pps_pic_parameter_set_id %d out of range", id)
	}
	pps.ID = uint8(id)
	spsID := r.ReadUe()
	if spsID >= MaxSpsCount {
		return errors.Wrapf(ErrInvalidParameterSet, "pps_seq_parameter_set_id %d out of range", spsID)
	}
	pps.SPSID = uint8(spsID)

	pps.DependentSliceSegments = r.ReadBool()
	pps.OutputFlagPresent = r.ReadBool()
	pps.NumExtraSliceHeaderBits = int(r.ReadUint8(3))
	pps.SignDataHiding = r.ReadBool()
	pps.CabacInitPresent = r.ReadBool()
	pps.NumRefIdxL0DefaultActive = int(r.ReadUe()) + 1
	pps.NumRefIdxL1DefaultActive = int(r.ReadUe()) + 1
	if pps.NumRefIdxL0DefaultActive > 15 || pps.NumRefIdxL1DefaultActive > 15 {
		return errors.Wrap(ErrInvalidParameterSet, "num_ref_idx_default_active_minus1 out of range")
	}
	pps.InitQp = 26 + int(r.ReadSe())
	pps.ConstrainedIntraPred = r.ReadBool()
	pps.TransformSkipEnabled = r.ReadBool()
	pps.CuQpDeltaEnabled = r.ReadBool()
	pps.DiffCuQpDeltaDepth = 0
	if pps.CuQpDeltaEnabled {
		pps.DiffCuQpDeltaDepth = int(r.ReadUe())
	}
	pps.CbQpOffset = int(r.ReadSe())
	pps.CrQpOffset = int(r.ReadSe())
	if pps.CbQpOffset < -12 || pps.CbQpOffset > 12 || pps.CrQpOffset < -12 || pps.CrQpOffset > 12 {
		return errors.Wrap(ErrInvalidParameterSet, "pps chroma qp offset out of range")
	}
	pps.SliceChromaQpOffsetsPresent = r.ReadBool()
	pps.WeightedPred = r.ReadBool()
	pps.WeightedBipred = r.ReadBool()
	pps.TransquantBypassEnabled = r.ReadBool()
	pps.TilesEnabled = r.ReadBool()
	pps.EntropyCodingSync = r.ReadBool()

	pps.NumTileColumns, pps.NumTileRows = 1, 1
	pps.UniformSpacing = true
	pps.LoopFilterAcrossTiles = true
	pps.ColumnWidthMinus1, pps.RowHeightMinus1 = nil, nil
	if pps.TilesEnabled {
		pps.NumTileColumns = int(r.ReadUe()) + 1
		pps.NumTileRows = int(r.ReadUe()) + 1
		if pps.NumTileColumns > MaxTileColumns || pps.NumTileRows > MaxTileRows {
			return errors.Wrapf(ErrInvalidParameterSet, "too many tiles %dx%d", pps.NumTileColumns, pps.NumTileRows)
		}
		pps.UniformSpacing = r.ReadBool()
		if !pps.UniformSpacing {
			pps.ColumnWidthMinus1 = make([]int, pps.NumTileColumns-1)
			for i := range pps.ColumnWidthMinus1 {
				pps.ColumnWidthMinus1[i] = int(r.ReadUe())
			}
			pps.RowHeightMinus1 = make([]int, pps.NumTileRows-1)
			for i := range pps.RowHeightMinus1 {
				pps.RowHeightMinus1[i] = int(r.ReadUe())
			}
		}
		pps.LoopFilterAcrossTiles = r.ReadBool()
	}

	pps.LoopFilterAcrossSlices = r.ReadBool()
	pps.DeblockingControlPresent = r.ReadBool()
	pps.DeblockingOverrideEnabled = false
	pps.DeblockingDisabled = false
	pps.BetaOffsetDiv2, pps.TcOffsetDiv2 = 0, 0
	if pps.DeblockingControlPresent {
		pps.DeblockingOverrideEnabled = r.ReadBool()
		pps.DeblockingDisabled = r.ReadBool()
		if !pps.DeblockingDisabled {
			pps.BetaOffsetDiv2 = int(r.ReadSe())
			pps.TcOffsetDiv2 = int(r.ReadSe())
			if pps.BetaOffsetDiv2 < -6 || pps.BetaOffsetDiv2 > 6 || pps.TcOffsetDiv2 < -6 || pps.TcOffsetDiv2 > 6 {
				return errors.Wrap(ErrInvalidParameterSet, "deblocking offsets out of range")
			}
		}
	}

	pps.ScalingListDataPresent = r.ReadBool()
	if pps.ScalingListDataPresent {
		pps.ScalingList.SetDefault()
		if err = pps.ScalingList.decode(r); err != nil {
			return
		}
	}

	pps.ListsModificationPresent = r.ReadBool()
	pps.Log2ParMrgLevel = int(r.ReadUe()) + 2
	pps.SliceHeaderExtensionPresent = r.ReadBool()
	pps.ExtensionPresent = r.ReadBool()
	if pps.ExtensionPresent {
		pps.RangeExtension = r.ReadBool()
		pps.MultilayerExtension = r.ReadBool()
		pps.Extension3D = r.ReadBool()
		pps.SccExtension = r.ReadBool()
		pps.Extension4Bits = r.ReadUint8(4)
	}

	pps.sps = nil
	return nil
}

// SPS returns the sequence parameter set the tables were derived for.
func (pps *PPS) SPS() *SPS {
	return pps.sps
}

// Setup derives the SPS dependent tables (6.5.1, 6.5.2). It is a no-op
// when the tables were already derived for sps.
func (pps *PPS) Setup(sps *SPS) error {
	if pps.sps == sps {
		return nil
	}

	if pps.DiffCuQpDeltaDepth > sps.Log2DiffMaxMinCbSize {
		return errors.Wrapf(ErrInvalidParameterSet, "diff_cu_qp_delta_depth %d out of range", pps.DiffCuQpDeltaDepth)
	}
	if pps.Log2ParMrgLevel > sps.CtbLog2Size {
		return errors.Wrapf(ErrInvalidParameterSet, "log2_parallel_merge_level %d out of range", pps.Log2ParMrgLevel)
	}
	if pps.NumTileColumns > sps.PicWidthInCtbs || pps.NumTileRows > sps.PicHeightInCtbs {
		return errors.Wrap(ErrInvalidParameterSet, "more tiles than CTBs")
	}

	// (6-3), (6-4)
	colWidth := make([]int, pps.NumTileColumns)
	rowHeight := make([]int, pps.NumTileRows)
	if pps.UniformSpacing {
		for i := range colWidth {
			colWidth[i] = ((i+1)*sps.PicWidthInCtbs)/pps.NumTileColumns - (i*sps.PicWidthInCtbs)/pps.NumTileColumns
		}
		for j := range rowHeight {
			rowHeight[j] = ((j+1)*sps.PicHeightInCtbs)/pps.NumTileRows - (j*sps.PicHeightInCtbs)/pps.NumTileRows
		}
	} else {
		last := sps.PicWidthInCtbs
		for i, w := range pps.ColumnWidthMinus1 {
			colWidth[i] = w + 1
			last -= colWidth[i]
		}
		if last <= 0 {
			return errors.Wrap(ErrInvalidParameterSet, "tile columns exceed the picture width")
		}
		colWidth[pps.NumTileColumns-1] = last

		last = sps.PicHeightInCtbs
		for j, h := range pps.RowHeightMinus1 {
			rowHeight[j] = h + 1
			last -= rowHeight[j]
		}
		if last <= 0 {
			return errors.Wrap(ErrInvalidParameterSet, "tile rows exceed the picture height")
		}
		rowHeight[pps.NumTileRows-1] = last
	}

	// (6-5), (6-6)
	colBd := make([]int, pps.NumTileColumns+1)
	for i, w := range colWidth {
		colBd[i+1] = colBd[i] + w
	}
	rowBd := make([]int, pps.NumTileRows+1)
	for j, h := range rowHeight {
		rowBd[j+1] = rowBd[j] + h
	}

	// (6-7), (6-8), (6-9)
	size := sps.PicSizeInCtbs
	rsToTs := make([]int, size)
	tsToRs := make([]int, size)
	tileID := make([]int, size)
	tileIDRs := make([]int, size)
	for rs := 0; rs < size; rs++ {
		tbX := rs % sps.PicWidthInCtbs
		tbY := rs / sps.PicWidthInCtbs
		tileX, tileY := 0, 0
		for i := 0; i < pps.NumTileColumns; i++ {
			if tbX >= colBd[i] {
				tileX = i
			}
		}
		for j := 0; j < pps.NumTileRows; j++ {
			if tbY >= rowBd[j] {
				tileY = j
			}
		}

		v := 0
		for i := 0; i < tileX; i++ {
			v += rowHeight[tileY] * colWidth[i]
		}
		for j := 0; j < tileY; j++ {
			v += sps.PicWidthInCtbs * rowHeight[j]
		}
		v += (tbY-rowBd[tileY])*colWidth[tileX] + tbX - colBd[tileX]
		rsToTs[rs] = v
		tsToRs[v] = rs
		tileIDRs[rs] = tileY*pps.NumTileColumns + tileX
	}
	for rs := 0; rs < size; rs++ {
		tileID[rsToTs[rs]] = tileIDRs[rs]
	}

	// (6-10)
	shift := uint(sps.CtbLog2Size - sps.Log2MinTbSize)
	stride := sps.PicWidthInCtbs << shift
	height := sps.PicHeightInCtbs << shift
	zs := make([]int, stride*height)
	for y := 0; y < height; y++ {
		for x := 0; x < stride; x++ {
			tbX := (x << uint(sps.Log2MinTbSize)) >> uint(sps.CtbLog2Size)
			tbY := (y << uint(sps.Log2MinTbSize)) >> uint(sps.CtbLog2Size)
			v := rsToTs[sps.PicWidthInCtbs*tbY+tbX] << (shift * 2)
			for i := uint(0); i < shift; i++ {
				m := 1 << i
				if m&x != 0 {
					v += m * m
				}
				if m&y != 0 {
					v += 2 * m * m
				}
			}
			zs[y*stride+x] = v
		}
	}

	pps.ColBd, pps.RowBd = colBd, rowBd
	pps.CtbAddrRsToTs, pps.CtbAddrTsToRs = rsToTs, tsToRs
	pps.TileID, pps.TileIDRs = tileID, tileIDRs
	pps.MinTbAddrZs, pps.MinTbStride = zs, stride
	if pps.ScalingListDataPresent {
		pps.Factors = pps.ScalingList.Factors()
	} else {
		pps.Factors = sps.Factors
	}
	pps.sps = sps
	return nil
}

// ZScanAvailable implements 6.4.1 for two luma locations of the same
// picture. sliceAddr maps a CTB raster address to the slice address of the
// slice containing it, or -1 when it is not decoded yet.
func (pps *PPS) ZScanAvailable(xCurr, yCurr, xN, yN int, sliceAddr func(ctbAddrRs int) int) bool {
	sps := pps.sps
	if xN < 0 || yN < 0 || xN >= sps.Width || yN >= sps.Height {
		return false
	}

	log2 := uint(sps.Log2MinTbSize)
	curr := pps.MinTbAddrZs[(yCurr>>log2)*pps.MinTbStride+(xCurr>>log2)]
	n := pps.MinTbAddrZs[(yN>>log2)*pps.MinTbStride+(xN>>log2)]
	if n > curr {
		return false
	}

	ctbLog2 := uint(sps.CtbLog2Size)
	ctbCurr := (yCurr>>ctbLog2)*sps.PicWidthInCtbs + (xCurr >> ctbLog2)
	ctbN := (yN>>ctbLog2)*sps.PicWidthInCtbs + (xN >> ctbLog2)
	sN := sliceAddr(ctbN)
	if sN < 0 || sN != sliceAddr(ctbCurr) {
		return false
	}
	return pps.TileIDRs[ctbN] == pps.TileIDRs[ctbCurr]
}

// Encode serialises the PPS into a NAL unit (header included, no start
// code).
func (pps *PPS) Encode() []byte {
	w := bits.NewWriter()
	w.Write(uint64(NalPps)<<9|1, 16)

	w.WriteUe(uint32(pps.ID))
	w.WriteUe(uint32(pps.SPSID))
	w.WriteBool(pps.DependentSliceSegments)
	w.WriteBool(pps.OutputFlagPresent)
	w.Write(uint64(pps.NumExtraSliceHeaderBits), 3)
	w.WriteBool(pps.SignDataHiding)
	w.WriteBool(pps.CabacInitPresent)
	w.WriteUe(uint32(pps.NumRefIdxL0DefaultActive - 1))
	w.WriteUe(uint32(pps.NumRefIdxL1DefaultActive - 1))
	w.WriteSe(int32(pps.InitQp - 26))
	w.WriteBool(pps.ConstrainedIntraPred)
	w.WriteBool(pps.TransformSkipEnabled)
	w.WriteBool(pps.CuQpDeltaEnabled)
	if pps.CuQpDeltaEnabled {
		w.WriteUe(uint32(pps.DiffCuQpDeltaDepth))
	}
	w.WriteSe(int32(pps.CbQpOffset))
	w.WriteSe(int32(pps.CrQpOffset))
	w.WriteBool(pps.SliceChromaQpOffsetsPresent)
	w.WriteBool(pps.WeightedPred)
	w.WriteBool(pps.WeightedBipred)
	w.WriteBool(pps.TransquantBypassEnabled)
	w.WriteBool(pps.TilesEnabled)
	w.WriteBool(pps.EntropyCodingSync)
	if pps.TilesEnabled {
		w.WriteUe(uint32(pps.NumTileColumns - 1))
		w.WriteUe(uint32(pps.NumTileRows - 1))
		w.WriteBool(pps.UniformSpacing)
		if !pps.UniformSpacing {
			for _, v := range pps.ColumnWidthMinus1 {
				w.WriteUe(uint32(v))
			}
			for _, v := range pps.RowHeightMinus1 {
				w.WriteUe(uint32(v))
			}
		}
		w.WriteBool(pps.LoopFilterAcrossTiles)
	}
	w.WriteBool(pps.LoopFilterAcrossSlices)
	w.WriteBool(pps.DeblockingControlPresent)
	if pps.DeblockingControlPresent {
		w.WriteBool(pps.DeblockingOverrideEnabled)
		w.WriteBool(pps.DeblockingDisabled)
		if !pps.DeblockingDisabled {
			w.WriteSe(int32(pps.BetaOffsetDiv2))
			w.WriteSe(int32(pps.TcOffsetDiv2))
		}
	}
	w.WriteBool(pps.ScalingListDataPresent)
	if pps.ScalingListDataPresent {
		pps.ScalingList.encode(w)
	}
	w.WriteBool(pps.ListsModificationPresent)
	w.WriteUe(uint32(pps.Log2ParMrgLevel - 2))
	w.WriteBool(pps.SliceHeaderExtensionPresent)
	w.WriteBit(0) // pps_extension_present_flag
	w.WriteTrailingBits()

	out := w.Bytes()
	return append(out[:2:2], utils.AddEmulationBytes(out[2:])...)
}
