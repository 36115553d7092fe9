// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"fmt"
	"runtime/debug"

	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/pkg/errors"
)

// PredWeightTable is pred_weight_table() with the derived weights and
// offsets (7.4.7.3).
type PredWeightTable struct {
	LumaLog2WeightDenom   int
	ChromaLog2WeightDenom int
	LumaWeight            [2][16]int
	LumaOffset            [2][16]int
	ChromaWeight          [2][16][2]int
	ChromaOffset          [2][16][2]int
	LumaWeightFlag        [2][16]bool
	ChromaWeightFlag      [2][16]bool
}

// SliceHeader is slice_segment_header(). Dependent slice segments carry a
// copy of the fields of the preceding independent segment.
type SliceHeader struct {
	FirstSliceSegmentInPic bool
	NoOutputOfPriorPics    bool
	PPSID                  int
	DependentSliceSegment  bool
	SegmentAddress         int

	SliceType             int
	PicOutput             bool
	ColourPlaneID         int
	PocLsb                int
	ShortTermRefPicSetSps bool
	StRpsIdx              int
	StRps                 ShortTermRPS

	NumLongTermSps     int
	NumLongTermPics    int
	PocLsbLt           [MaxLongTermRefPics]int
	UsedByCurrPicLt    [MaxLongTermRefPics]bool
	DeltaPocMsbPresent [MaxLongTermRefPics]bool
	DeltaPocMsbCycleLt [MaxLongTermRefPics]int // accumulated (7-52)

	TemporalMvpEnabled bool
	SaoLuma            bool
	SaoChroma          bool

	NumRefIdxActive   [2]int
	RefPicListModFlag [2]bool
	ListEntry         [2][16]int
	MvdL1Zero         bool
	CabacInit         bool
	CollocatedFromL0  bool
	CollocatedRefIdx  int
	PredWeightTable
	MaxNumMergeCand int

	QpDelta    int
	SliceQpY   int
	CbQpOffset int
	CrQpOffset int

	DeblockingOverride     bool
	DeblockingDisabled     bool
	BetaOffsetDiv2         int
	TcOffsetDiv2           int
	LoopFilterAcrossSlices bool

	// EntryPointOffsets holds entry_point_offset_minus1[i] + 1, counted in
	// escaped bytes.
	EntryPointOffsets []int
	// EntryPoints holds the start of every substream after the first as an
	// offset into the RBSP of the NAL unit.
	EntryPoints []int
	// DataOffset is the offset of the slice segment data into the RBSP.
	DataOffset int

	// derived
	SliceAddrRs     int
	NumPicTotalCurr int
}

// IsIntra reports an I slice.
func (sh *SliceHeader) IsIntra() bool { return sh.SliceType == SliceI }

// IsB reports a B slice.
func (sh *SliceHeader) IsB() bool { return sh.SliceType == SliceB }

// InitType returns the CABAC initType (9.3.2.2).
func (sh *SliceHeader) InitType() int {
	switch sh.SliceType {
	case SliceI:
		return 0
	case SliceP:
		if sh.CabacInit {
			return 2
		}
		return 1
	default:
		if sh.CabacInit {
			return 1
		}
		return 2
	}
}

// ceilLog2 returns Ceil(Log2(n)).
func ceilLog2(n int) int {
	l := 0
	for (1 << uint(l)) < n {
		l++
	}
	return l
}

// Decode parses the header of the slice segment nal. prev is the header of
// the preceding slice segment of the same picture, required for dependent
// slice segments.
func (sh *SliceHeader) Decode(nal *Nal, sets *ParamSets, prev *SliceHeader) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrEOF, fmt.Sprintf("slice header decode panic；r = %v \n %s", r, debug.Stack()))
		}
	}()

	r := bits.NewReader(nal.Data)
	sh.FirstSliceSegmentInPic = r.ReadBool()
	if nal.IsIRAP() {
		sh.NoOutputOfPriorPics = r.ReadBool()
	}

	ppsID := r.ReadUe()
	if ppsID >= MaxPpsCount || sets.PPS[ppsID] == nil {
		return errors.Wrapf(ErrInvalidParameterSet, "slice refers to missing pps %d", ppsID)
	}
	sh.PPSID = int(ppsID)
	pps := sets.PPS[ppsID]
	sps := sets.SPS[pps.SPSID]
	if sps == nil {
		return errors.Wrapf(ErrInvalidParameterSet, "pps %d refers to missing sps %d", ppsID, pps.SPSID)
	}

	sh.DependentSliceSegment = false
	sh.SegmentAddress = 0
	if !sh.FirstSliceSegmentInPic {
		if pps.DependentSliceSegments {
			sh.DependentSliceSegment = r.ReadBool()
		}
		sh.SegmentAddress = r.ReadInt(ceilLog2(sps.PicSizeInCtbs))
		if sh.SegmentAddress >= sps.PicSizeInCtbs {
			return errors.Wrapf(ErrCtbOutsideImageArea, "slice_segment_address %d", sh.SegmentAddress)
		}
	}

	if sh.DependentSliceSegment {
		if prev == nil || prev.PPSID != sh.PPSID {
			return errors.Wrap(ErrInvalidParameterSet, "dependent slice segment without independent slice segment")
		}
		sh.copyIndependent(prev)
	} else {
		sh.SliceAddrRs = sh.SegmentAddress
		if err = sh.decodeIndependent(r, nal, sps, pps); err != nil {
			return
		}
	}

	sh.EntryPointOffsets = sh.EntryPointOffsets[:0]
	sh.EntryPoints = sh.EntryPoints[:0]
	if pps.TilesEnabled || pps.EntropyCodingSync {
		n := int(r.ReadUe())
		if n > sps.PicSizeInCtbs || n > MaxEntryPointOffsets {
			return errors.Wrapf(ErrInvalidParameterSet, "num_entry_point_offsets %d out of range", n)
		}
		if n > 0 {
			length := int(r.ReadUe()) + 1
			if length > 32 {
				return errors.Wrapf(ErrInvalidParameterSet, "offset_len_minus1 %d out of range", length-1)
			}
			for i := 0; i < n; i++ {
				sh.EntryPointOffsets = append(sh.EntryPointOffsets, int(r.ReadUint32(length))+1)
			}
		}
	}

	if pps.SliceHeaderExtensionPresent {
		n := int(r.ReadUe())
		r.Skip(n * 8)
	}

	// byte_alignment()
	if r.ReadBit() != 1 {
		return errors.Wrap(ErrInvalidParameterSet, "alignment_bit_equal_to_one is zero")
	}
	r.AlignByte()
	sh.DataOffset = r.Offset() >> 3

	escaped := 0
	for _, off := range sh.EntryPointOffsets {
		escaped += off
		sh.EntryPoints = append(sh.EntryPoints, nal.RbspOffset(sh.DataOffset, escaped))
	}
	return nil
}

func (sh *SliceHeader) copyIndependent(prev *SliceHeader) {
	first, dep, addr := sh.FirstSliceSegmentInPic, sh.DependentSliceSegment, sh.SegmentAddress
	offsets, points := sh.EntryPointOffsets, sh.EntryPoints
	nopp := sh.NoOutputOfPriorPics

	*sh = *prev
	sh.FirstSliceSegmentInPic, sh.DependentSliceSegment, sh.SegmentAddress = first, dep, addr
	sh.EntryPointOffsets, sh.EntryPoints = offsets, points
	sh.NoOutputOfPriorPics = nopp
}

func (sh *SliceHeader) decodeIndependent(r *bits.Reader, nal *Nal, sps *SPS, pps *PPS) error {
	r.Skip(pps.NumExtraSliceHeaderBits) // slice_reserved_flag

	st := r.ReadUe()
	if st > SliceI {
		return errors.Wrapf(ErrInvalidParameterSet, "slice_type %d out of range", st)
	}
	sh.SliceType = int(st)
	if nal.IsIRAP() && sh.SliceType != SliceI {
		return errors.Wrap(ErrInvalidParameterSet, "IRAP picture with non intra slice")
	}

	sh.PicOutput = true
	if pps.OutputFlagPresent {
		sh.PicOutput = r.ReadBool()
	}
	if sps.SeparateColourPlane {
		sh.ColourPlaneID = int(r.ReadUint8(2))
	}

	sh.PocLsb = 0
	sh.StRps = ShortTermRPS{}
	sh.ShortTermRefPicSetSps = false
	sh.StRpsIdx = 0
	sh.NumLongTermSps, sh.NumLongTermPics = 0, 0
	sh.TemporalMvpEnabled = false
	if !nal.IsIDR() {
		sh.PocLsb = r.ReadInt(sps.Log2MaxPocLsb)
		sh.ShortTermRefPicSetSps = r.ReadBool()
		if !sh.ShortTermRefPicSetSps {
			sh.StRpsIdx = len(sps.StRps)
			if err := sh.StRps.decode(r, len(sps.StRps), sps.StRps, sps.MaxDecPicBuffering[sps.HighestTid()]); err != nil {
				return err
			}
		} else {
			if len(sps.StRps) == 0 {
				return errors.Wrap(ErrInvalidParameterSet, "no short-term ref pic set in sps")
			}
			if len(sps.StRps) > 1 {
				sh.StRpsIdx = r.ReadInt(ceilLog2(len(sps.StRps)))
			}
			if sh.StRpsIdx >= len(sps.StRps) {
				return errors.Wrapf(ErrInvalidParameterSet, "short_term_ref_pic_set_idx %d out of range", sh.StRpsIdx)
			}
			sh.StRps = sps.StRps[sh.StRpsIdx]
		}

		if sps.LongTermRefPicsPresent {
			if sps.NumLongTermRefPicsSps > 0 {
				sh.NumLongTermSps = int(r.ReadUe())
				if sh.NumLongTermSps > sps.NumLongTermRefPicsSps {
					return errors.Wrapf(ErrInvalidParameterSet, "num_long_term_sps %d out of range", sh.NumLongTermSps)
				}
			}
			sh.NumLongTermPics = int(r.ReadUe())
			if sh.NumLongTermSps+sh.NumLongTermPics > MaxLongTermRefPics ||
				sh.NumLongTermSps+sh.NumLongTermPics+sh.StRps.NumDeltaPocs() > MaxRefs {
				return errors.Wrap(ErrInvalidParameterSet, "too many long-term pictures")
			}

			for i := 0; i < sh.NumLongTermSps+sh.NumLongTermPics; i++ {
				if i < sh.NumLongTermSps {
					idx := 0
					if sps.NumLongTermRefPicsSps > 1 {
						idx = r.ReadInt(ceilLog2(sps.NumLongTermRefPicsSps))
					}
					sh.PocLsbLt[i] = sps.LtRefPicPocLsbSps[idx]
					sh.UsedByCurrPicLt[i] = sps.UsedByCurrPicLtSps[idx]
				} else {
					sh.PocLsbLt[i] = r.ReadInt(sps.Log2MaxPocLsb)
					sh.UsedByCurrPicLt[i] = r.ReadBool()
				}

				sh.DeltaPocMsbPresent[i] = r.ReadBool()
				delta := 0
				if sh.DeltaPocMsbPresent[i] {
					delta = int(r.ReadUe())
				}
				// (7-52)
				if i == 0 || i == sh.NumLongTermSps {
					sh.DeltaPocMsbCycleLt[i] = delta
				} else {
					sh.DeltaPocMsbCycleLt[i] = delta + sh.DeltaPocMsbCycleLt[i-1]
				}
			}
		}

		if sps.TemporalMvpEnabled {
			sh.TemporalMvpEnabled = r.ReadBool()
		}
	}

	sh.SaoLuma, sh.SaoChroma = false, false
	if sps.SaoEnabled {
		sh.SaoLuma = r.ReadBool()
		if sps.ChromaArrayType != 0 {
			sh.SaoChroma = r.ReadBool()
		}
	}

	// (7-55)
	sh.NumPicTotalCurr = 0
	for i := 0; i < sh.StRps.NumNegative; i++ {
		if sh.StRps.UsedS0[i] {
			sh.NumPicTotalCurr++
		}
	}
	for i := 0; i < sh.StRps.NumPositive; i++ {
		if sh.StRps.UsedS1[i] {
			sh.NumPicTotalCurr++
		}
	}
	for i := 0; i < sh.NumLongTermSps+sh.NumLongTermPics; i++ {
		if sh.UsedByCurrPicLt[i] {
			sh.NumPicTotalCurr++
		}
	}

	sh.NumRefIdxActive = [2]int{}
	sh.RefPicListModFlag = [2]bool{}
	sh.MvdL1Zero = false
	sh.CabacInit = false
	sh.CollocatedFromL0 = true
	sh.CollocatedRefIdx = 0
	sh.MaxNumMergeCand = 5
	if !sh.IsIntra() {
		sh.NumRefIdxActive[0] = pps.NumRefIdxL0DefaultActive
		if sh.IsB() {
			sh.NumRefIdxActive[1] = pps.NumRefIdxL1DefaultActive
		}
		if r.ReadBool() { // num_ref_idx_active_override_flag
			sh.NumRefIdxActive[0] = int(r.ReadUe()) + 1
			if sh.IsB() {
				sh.NumRefIdxActive[1] = int(r.ReadUe()) + 1
			}
		}
		if sh.NumRefIdxActive[0] > 15 || sh.NumRefIdxActive[1] > 15 {
			return errors.Wrap(ErrInvalidParameterSet, "num_ref_idx_active_minus1 out of range")
		}
		if sh.NumPicTotalCurr == 0 {
			return errors.Wrap(ErrInvalidParameterSet, "inter slice without reference pictures")
		}

		if pps.ListsModificationPresent && sh.NumPicTotalCurr > 1 {
			n := ceilLog2(sh.NumPicTotalCurr)
			lists := 1
			if sh.IsB() {
				lists = 2
			}
			for l := 0; l < lists; l++ {
				sh.RefPicListModFlag[l] = r.ReadBool()
				if sh.RefPicListModFlag[l] {
					for i := 0; i < sh.NumRefIdxActive[l]; i++ {
						sh.ListEntry[l][i] = r.ReadInt(n)
						if sh.ListEntry[l][i] >= sh.NumPicTotalCurr {
							return errors.Wrap(ErrInvalidParameterSet, "list_entry out of range")
						}
					}
				}
			}
		}

		if sh.IsB() {
			sh.MvdL1Zero = r.ReadBool()
		}
		if pps.CabacInitPresent {
			sh.CabacInit = r.ReadBool()
		}
		if sh.TemporalMvpEnabled {
			if sh.IsB() {
				sh.CollocatedFromL0 = r.ReadBool()
			}
			if (sh.CollocatedFromL0 && sh.NumRefIdxActive[0] > 1) ||
				(!sh.CollocatedFromL0 && sh.NumRefIdxActive[1] > 1) {
				sh.CollocatedRefIdx = int(r.ReadUe())
				l := 1
				if sh.CollocatedFromL0 {
					l = 0
				}
				if sh.CollocatedRefIdx >= sh.NumRefIdxActive[l] {
					return errors.Wrapf(ErrInvalidParameterSet, "collocated_ref_idx %d out of range", sh.CollocatedRefIdx)
				}
			}
		}

		if (pps.WeightedPred && sh.SliceType == SliceP) || (pps.WeightedBipred && sh.IsB()) {
			if err := sh.decodePredWeightTable(r, sps); err != nil {
				return err
			}
		}

		sh.MaxNumMergeCand = 5 - int(r.ReadUe())
		if sh.MaxNumMergeCand < 1 || sh.MaxNumMergeCand > 5 {
			return errors.Wrap(ErrInvalidParameterSet, "five_minus_max_num_merge_cand out of range")
		}
	}

	sh.QpDelta = int(r.ReadSe())
	sh.SliceQpY = pps.InitQp + sh.QpDelta
	if sh.SliceQpY < 0 || sh.SliceQpY > 51 {
		return errors.Wrapf(ErrInvalidParameterSet, "SliceQpY %d out of range", sh.SliceQpY)
	}

	sh.CbQpOffset, sh.CrQpOffset = 0, 0
	if pps.SliceChromaQpOffsetsPresent {
		sh.CbQpOffset = int(r.ReadSe())
		sh.CrQpOffset = int(r.ReadSe())
		if sh.CbQpOffset < -12 || sh.CbQpOffset > 12 || sh.CrQpOffset < -12 || sh.CrQpOffset > 12 ||
			pps.CbQpOffset+sh.CbQpOffset < -12 || pps.CbQpOffset+sh.CbQpOffset > 12 ||
			pps.CrQpOffset+sh.CrQpOffset < -12 || pps.CrQpOffset+sh.CrQpOffset > 12 {
			return errors.Wrap(ErrInvalidParameterSet, "slice chroma qp offset out of range")
		}
	}

	sh.DeblockingOverride = false
	if pps.DeblockingOverrideEnabled {
		sh.DeblockingOverride = r.ReadBool()
	}
	sh.DeblockingDisabled = pps.DeblockingDisabled
	sh.BetaOffsetDiv2, sh.TcOffsetDiv2 = pps.BetaOffsetDiv2, pps.TcOffsetDiv2
	if sh.DeblockingOverride {
		sh.DeblockingDisabled = r.ReadBool()
		if !sh.DeblockingDisabled {
			sh.BetaOffsetDiv2 = int(r.ReadSe())
			sh.TcOffsetDiv2 = int(r.ReadSe())
			if sh.BetaOffsetDiv2 < -6 || sh.BetaOffsetDiv2 > 6 || sh.TcOffsetDiv2 < -6 || sh.TcOffsetDiv2 > 6 {
				return errors.Wrap(ErrInvalidParameterSet, "slice deblocking offsets out of range")
			}
		}
	}

	sh.LoopFilterAcrossSlices = pps.LoopFilterAcrossSlices
	if pps.LoopFilterAcrossSlices && (sh.SaoLuma || sh.SaoChroma || !sh.DeblockingDisabled) {
		sh.LoopFilterAcrossSlices = r.ReadBool()
	}
	return nil
}

func (sh *SliceHeader) decodePredWeightTable(r *bits.Reader, sps *SPS) error {
	pwt := &sh.PredWeightTable
	pwt.LumaLog2WeightDenom = int(r.ReadUe())
	if pwt.LumaLog2WeightDenom > 7 {
		return errors.Wrap(ErrInvalidParameterSet, "luma_log2_weight_denom out of range")
	}
	pwt.ChromaLog2WeightDenom = 0
	if sps.ChromaArrayType != 0 {
		pwt.ChromaLog2WeightDenom = pwt.LumaLog2WeightDenom + int(r.ReadSe())
		if pwt.ChromaLog2WeightDenom < 0 || pwt.ChromaLog2WeightDenom > 7 {
			return errors.Wrap(ErrInvalidParameterSet, "ChromaLog2WeightDenom out of range")
		}
	}

	lists := 1
	if sh.IsB() {
		lists = 2
	}
	for l := 0; l < lists; l++ {
		n := sh.NumRefIdxActive[l]
		for i := 0; i < n; i++ {
			pwt.LumaWeightFlag[l][i] = r.ReadBool()
		}
		for i := 0; i < n; i++ {
			pwt.ChromaWeightFlag[l][i] = false
			if sps.ChromaArrayType != 0 {
				pwt.ChromaWeightFlag[l][i] = r.ReadBool()
			}
		}

		for i := 0; i < n; i++ {
			pwt.LumaWeight[l][i] = 1 << uint(pwt.LumaLog2WeightDenom)
			pwt.LumaOffset[l][i] = 0
			if pwt.LumaWeightFlag[l][i] {
				delta := int(r.ReadSe())
				if delta < -128 || delta > 127 {
					return errors.Wrap(ErrInvalidParameterSet, "delta_luma_weight out of range")
				}
				pwt.LumaWeight[l][i] += delta
				pwt.LumaOffset[l][i] = int(r.ReadSe())
				if pwt.LumaOffset[l][i] < -128 || pwt.LumaOffset[l][i] > 127 {
					return errors.Wrap(ErrInvalidParameterSet, "luma_offset out of range")
				}
			}

			for j := 0; j < 2; j++ {
				pwt.ChromaWeight[l][i][j] = 1 << uint(pwt.ChromaLog2WeightDenom)
				pwt.ChromaOffset[l][i][j] = 0
			}
			if pwt.ChromaWeightFlag[l][i] {
				for j := 0; j < 2; j++ {
					delta := int(r.ReadSe())
					if delta < -128 || delta > 127 {
						return errors.Wrap(ErrInvalidParameterSet, "delta_chroma_weight out of range")
					}
					w := (1 << uint(pwt.ChromaLog2WeightDenom)) + delta
					pwt.ChromaWeight[l][i][j] = w

					deltaOffset := int(r.ReadSe())
					if deltaOffset < -512 || deltaOffset > 511 {
						return errors.Wrap(ErrInvalidParameterSet, "delta_chroma_offset out of range")
					}
					// (7-56)
					pwt.ChromaOffset[l][i][j] = clip3(-128, 127, 128+deltaOffset-((128*w)>>uint(pwt.ChromaLog2WeightDenom)))
				}
			}
		}
	}
	return nil
}

func clip3(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Encode writes the slice segment header up to and including
// byte_alignment(). Short-term sets are written inline or by index
// depending on ShortTermRefPicSetSps. Weighted prediction tables and
// long-term pictures are not written.
func (sh *SliceHeader) Encode(w *bits.Writer, nalType uint8, sps *SPS, pps *PPS) {
	h := NalHeader{Type: nalType}
	w.WriteBool(sh.FirstSliceSegmentInPic)
	if h.IsIRAP() {
		w.WriteBool(sh.NoOutputOfPriorPics)
	}
	w.WriteUe(uint32(sh.PPSID))
	if !sh.FirstSliceSegmentInPic {
		if pps.DependentSliceSegments {
			w.WriteBool(sh.DependentSliceSegment)
		}
		w.Write(uint64(sh.SegmentAddress), ceilLog2(sps.PicSizeInCtbs))
	}

	if !sh.DependentSliceSegment {
		w.Write(0, pps.NumExtraSliceHeaderBits)
		w.WriteUe(uint32(sh.SliceType))
		if pps.OutputFlagPresent {
			w.WriteBool(sh.PicOutput)
		}
		if !h.IsIDR() {
			w.Write(uint64(sh.PocLsb), sps.Log2MaxPocLsb)
			w.WriteBool(sh.ShortTermRefPicSetSps)
			if !sh.ShortTermRefPicSetSps {
				sh.StRps.encode(w, len(sps.StRps))
			} else if len(sps.StRps) > 1 {
				w.Write(uint64(sh.StRpsIdx), ceilLog2(len(sps.StRps)))
			}
			if sps.LongTermRefPicsPresent {
				if sps.NumLongTermRefPicsSps > 0 {
					w.WriteUe(0)
				}
				w.WriteUe(0)
			}
			if sps.TemporalMvpEnabled {
				w.WriteBool(sh.TemporalMvpEnabled)
			}
		}
		if sps.SaoEnabled {
			w.WriteBool(sh.SaoLuma)
			if sps.ChromaArrayType != 0 {
				w.WriteBool(sh.SaoChroma)
			}
		}
		if !sh.IsIntra() {
			w.WriteBit(1) // num_ref_idx_active_override_flag
			w.WriteUe(uint32(sh.NumRefIdxActive[0] - 1))
			if sh.IsB() {
				w.WriteUe(uint32(sh.NumRefIdxActive[1] - 1))
			}
			if pps.ListsModificationPresent && sh.StRps.NumUsed() > 1 {
				n := ceilLog2(sh.StRps.NumUsed())
				lists := 1
				if sh.IsB() {
					lists = 2
				}
				for l := 0; l < lists; l++ {
					w.WriteBool(sh.RefPicListModFlag[l])
					if sh.RefPicListModFlag[l] {
						for i := 0; i < sh.NumRefIdxActive[l]; i++ {
							w.Write(uint64(sh.ListEntry[l][i]), n)
						}
					}
				}
			}
			if sh.IsB() {
				w.WriteBool(sh.MvdL1Zero)
			}
			if pps.CabacInitPresent {
				w.WriteBool(sh.CabacInit)
			}
			if sh.TemporalMvpEnabled {
				if sh.IsB() {
					w.WriteBool(sh.CollocatedFromL0)
				}
				if (sh.CollocatedFromL0 && sh.NumRefIdxActive[0] > 1) ||
					(!sh.CollocatedFromL0 && sh.NumRefIdxActive[1] > 1) {
					w.WriteUe(uint32(sh.CollocatedRefIdx))
				}
			}
			w.WriteUe(uint32(5 - sh.MaxNumMergeCand))
		}
		w.WriteSe(int32(sh.QpDelta))
		if pps.SliceChromaQpOffsetsPresent {
			w.WriteSe(int32(sh.CbQpOffset))
			w.WriteSe(int32(sh.CrQpOffset))
		}
		if pps.DeblockingOverrideEnabled {
			w.WriteBool(sh.DeblockingOverride)
		}
		if sh.DeblockingOverride {
			w.WriteBool(sh.DeblockingDisabled)
			if !sh.DeblockingDisabled {
				w.WriteSe(int32(sh.BetaOffsetDiv2))
				w.WriteSe(int32(sh.TcOffsetDiv2))
			}
		}
		disabled := pps.DeblockingDisabled
		if sh.DeblockingOverride {
			disabled = sh.DeblockingDisabled
		}
		if pps.LoopFilterAcrossSlices && (sh.SaoLuma || sh.SaoChroma || !disabled) {
			w.WriteBool(sh.LoopFilterAcrossSlices)
		}
	}

	if pps.TilesEnabled || pps.EntropyCodingSync {
		w.WriteUe(uint32(len(sh.EntryPointOffsets)))
		if len(sh.EntryPointOffsets) > 0 {
			w.WriteUe(31) // offset_len_minus1
			for _, off := range sh.EntryPointOffsets {
				w.Write(uint64(off-1), 32)
			}
		}
	}
	if pps.SliceHeaderExtensionPresent {
		w.WriteUe(0)
	}
	w.WriteTrailingBits() // byte_alignment()
}
