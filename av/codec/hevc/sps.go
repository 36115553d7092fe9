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

// VUI is vui_parameters().
type VUI struct {
	AspectRatioInfoPresent bool
	AspectRatioIdc         uint8
	SarWidth               uint16
	SarHeight              uint16

	OverscanInfoPresent bool
	OverscanAppropriate bool

	VideoSignalTypePresent    bool
	VideoFormat               uint8
	VideoFullRange            bool
	ColourDescriptionPresent  bool
	ColourPrimaries           uint8
	TransferCharacteristics   uint8
	MatrixCoefficients        uint8
	ChromaLocInfoPresent      bool
	ChromaSampleLocTypeTop    uint32
	ChromaSampleLocTypeBottom uint32

	NeutralChromaIndication bool
	FieldSeq                bool
	FrameFieldInfoPresent   bool

	DefaultDisplayWindow bool
	DefDispWinLeft       uint32
	DefDispWinRight      uint32
	DefDispWinTop        uint32
	DefDispWinBottom     uint32

	TimingInfoPresent        bool
	NumUnitsInTick           uint32
	TimeScale                uint32
	PocProportionalToTiming  bool
	NumTicksPocDiffOneMinus1 uint32
	HRDParametersPresent     bool
	HRD                      HRD

	BitstreamRestriction           bool
	TilesFixedStructure            bool
	MotionVectorsOverPicBoundaries bool
	RestrictedRefPicLists          bool
	MinSpatialSegmentationIdc      uint32
	MaxBytesPerPicDenom            uint32
	MaxBitsPerMinCuDenom           uint32
	Log2MaxMvLengthHorizontal      uint32
	Log2MaxMvLengthVertical        uint32
}

func (vui *VUI) setDefault() {
	*vui = VUI{
		VideoFormat:                    5,
		ColourPrimaries:                2,
		TransferCharacteristics:        2,
		MatrixCoefficients:             2,
		MotionVectorsOverPicBoundaries: true,
		MaxBytesPerPicDenom:            2,
		MaxBitsPerMinCuDenom:           1,
		Log2MaxMvLengthHorizontal:      15,
		Log2MaxMvLengthVertical:        15,
	}
}

func (vui *VUI) decode(r *bits.Reader, maxSubLayersMinus1 int) error {
	vui.setDefault()

	vui.AspectRatioInfoPresent = r.ReadBool()
	if vui.AspectRatioInfoPresent {
		vui.AspectRatioIdc = r.ReadUint8(8)
		if vui.AspectRatioIdc == 255 {
			vui.SarWidth = r.ReadUint16(16)
			vui.SarHeight = r.ReadUint16(16)
		}
	}

	vui.OverscanInfoPresent = r.ReadBool()
	if vui.OverscanInfoPresent {
		vui.OverscanAppropriate = r.ReadBool()
	}

	vui.VideoSignalTypePresent = r.ReadBool()
	if vui.VideoSignalTypePresent {
		vui.VideoFormat = r.ReadUint8(3)
		vui.VideoFullRange = r.ReadBool()
		vui.ColourDescriptionPresent = r.ReadBool()
		if vui.ColourDescriptionPresent {
			vui.ColourPrimaries = r.ReadUint8(8)
			vui.TransferCharacteristics = r.ReadUint8(8)
			vui.MatrixCoefficients = r.ReadUint8(8)
		}
	}

	vui.ChromaLocInfoPresent = r.ReadBool()
	if vui.ChromaLocInfoPresent {
		vui.ChromaSampleLocTypeTop = r.ReadUe()
		vui.ChromaSampleLocTypeBottom = r.ReadUe()
	}

	vui.NeutralChromaIndication = r.ReadBool()
	vui.FieldSeq = r.ReadBool()
	vui.FrameFieldInfoPresent = r.ReadBool()

	vui.DefaultDisplayWindow = r.ReadBool()
	if vui.DefaultDisplayWindow {
		vui.DefDispWinLeft = r.ReadUe()
		vui.DefDispWinRight = r.ReadUe()
		vui.DefDispWinTop = r.ReadUe()
		vui.DefDispWinBottom = r.ReadUe()
	}

	vui.TimingInfoPresent = r.ReadBool()
	if vui.TimingInfoPresent {
		vui.NumUnitsInTick = r.ReadUint32(32)
		vui.TimeScale = r.ReadUint32(32)
		vui.PocProportionalToTiming = r.ReadBool()
		if vui.PocProportionalToTiming {
			vui.NumTicksPocDiffOneMinus1 = r.ReadUe()
		}

		vui.HRDParametersPresent = r.ReadBool()
		if vui.HRDParametersPresent {
			if err := vui.HRD.decode(r, true, maxSubLayersMinus1); err != nil {
				return err
			}
		}
	}

	vui.BitstreamRestriction = r.ReadBool()
	if vui.BitstreamRestriction {
		vui.TilesFixedStructure = r.ReadBool()
		vui.MotionVectorsOverPicBoundaries = r.ReadBool()
		vui.RestrictedRefPicLists = r.ReadBool()
		vui.MinSpatialSegmentationIdc = r.ReadUe()
		vui.MaxBytesPerPicDenom = r.ReadUe()
		vui.MaxBitsPerMinCuDenom = r.ReadUe()
		vui.Log2MaxMvLengthHorizontal = r.ReadUe()
		vui.Log2MaxMvLengthVertical = r.ReadUe()
	}
	return nil
}

// encode writes the VUI, HRD parameters are not written.
func (vui *VUI) encode(w *bits.Writer) {
	w.WriteBool(vui.AspectRatioInfoPresent)
	if vui.AspectRatioInfoPresent {
		w.Write(uint64(vui.AspectRatioIdc), 8)
		if vui.AspectRatioIdc == 255 {
			w.Write(uint64(vui.SarWidth), 16)
			w.Write(uint64(vui.SarHeight), 16)
		}
	}

	w.WriteBool(vui.OverscanInfoPresent)
	if vui.OverscanInfoPresent {
		w.WriteBool(vui.OverscanAppropriate)
	}

	w.WriteBool(vui.VideoSignalTypePresent)
	if vui.VideoSignalTypePresent {
		w.Write(uint64(vui.VideoFormat), 3)
		w.WriteBool(vui.VideoFullRange)
		w.WriteBool(vui.ColourDescriptionPresent)
		if vui.ColourDescriptionPresent {
			w.Write(uint64(vui.ColourPrimaries), 8)
			w.Write(uint64(vui.TransferCharacteristics), 8)
			w.Write(uint64(vui.MatrixCoefficients), 8)
		}
	}

	w.WriteBool(vui.ChromaLocInfoPresent)
	if vui.ChromaLocInfoPresent {
		w.WriteUe(vui.ChromaSampleLocTypeTop)
		w.WriteUe(vui.ChromaSampleLocTypeBottom)
	}

	w.WriteBool(vui.NeutralChromaIndication)
	w.WriteBool(vui.FieldSeq)
	w.WriteBool(vui.FrameFieldInfoPresent)

	w.WriteBool(vui.DefaultDisplayWindow)
	if vui.DefaultDisplayWindow {
		w.WriteUe(vui.DefDispWinLeft)
		w.WriteUe(vui.DefDispWinRight)
		w.WriteUe(vui.DefDispWinTop)
		w.WriteUe(vui.DefDispWinBottom)
	}

	w.WriteBool(vui.TimingInfoPresent)
	if vui.TimingInfoPresent {
		w.Write(uint64(vui.NumUnitsInTick), 32)
		w.Write(uint64(vui.TimeScale), 32)
		w.WriteBool(vui.PocProportionalToTiming)
		if vui.PocProportionalToTiming {
			w.WriteUe(vui.NumTicksPocDiffOneMinus1)
		}
		w.WriteBit(0) // vui_hrd_parameters_present_flag
	}

	w.WriteBool(vui.BitstreamRestriction)
	if vui.BitstreamRestriction {
		w.WriteBool(vui.TilesFixedStructure)
		w.WriteBool(vui.MotionVectorsOverPicBoundaries)
		w.WriteBool(vui.RestrictedRefPicLists)
		w.WriteUe(vui.MinSpatialSegmentationIdc)
		w.WriteUe(vui.MaxBytesPerPicDenom)
		w.WriteUe(vui.MaxBitsPerMinCuDenom)
		w.WriteUe(vui.Log2MaxMvLengthHorizontal)
		w.WriteUe(vui.Log2MaxMvLengthVertical)
	}
}

// SPS is a sequence parameter set together with the variables derived from
// it.
type SPS struct {
	VPSID              uint8
	MaxSubLayersMinus1 uint8
	TemporalIDNesting  bool
	ProfileTierLevel   ProfileTierLevel
	ID                 uint8

	ChromaFormatIdc     uint8
	SeparateColourPlane bool
	Width               int // pic_width_in_luma_samples
	Height              int // pic_height_in_luma_samples

	ConformanceWindow bool
	ConfWinLeft       int
	ConfWinRight      int
	ConfWinTop        int
	ConfWinBottom     int

	BitDepthLuma   int
	BitDepthChroma int
	Log2MaxPocLsb  int

	SubLayerOrderingInfo bool
	MaxDecPicBuffering   [MaxSubLayers]int // sps_max_dec_pic_buffering_minus1 + 1
	MaxNumReorderPics    [MaxSubLayers]int
	MaxLatencyIncrease   [MaxSubLayers]int // sps_max_latency_increase_plus1

	Log2MinCbSize                   int
	Log2DiffMaxMinCbSize            int
	Log2MinTbSize                   int
	Log2DiffMaxMinTbSize            int
	MaxTransformHierarchyDepthInter int
	MaxTransformHierarchyDepthIntra int

	ScalingListEnabled     bool
	ScalingListDataPresent bool
	ScalingList            ScalingList

	AmpEnabled bool
	SaoEnabled bool

	PcmEnabled              bool
	PcmBitDepthLuma         int
	PcmBitDepthChroma       int
	Log2MinPcmCbSize        int
	Log2DiffMaxMinPcmCbSize int
	PcmLoopFilterDisabled   bool

	StRps []ShortTermRPS

	LongTermRefPicsPresent bool
	NumLongTermRefPicsSps  int
	LtRefPicPocLsbSps      [MaxLongTermRefPics]int
	UsedByCurrPicLtSps     [MaxLongTermRefPics]bool

	TemporalMvpEnabled   bool
	StrongIntraSmoothing bool
	VUIParametersPresent bool
	VUI                  VUI
	ExtensionPresent     bool
	RangeExtension       bool
	MultilayerExtension  bool
	Extension3D          bool
	SccExtension         bool
	Extension4Bits       uint8

	// derived variables
	ChromaArrayType   int
	SubWidthC         int
	SubHeightC        int
	CtbLog2Size       int
	CtbSize           int
	MinCbSize         int
	PicWidthInCtbs    int
	PicHeightInCtbs   int
	PicSizeInCtbs     int
	PicWidthInMinCbs  int
	PicHeightInMinCbs int
	Log2MaxTbSize     int
	MaxPocLsb         int
	Factors           *ScalingFactors
}

// ChromaFormat returns the sampling format.
func (sps *SPS) ChromaFormat() ChromaFormat {
	return ChromaFormat(sps.ChromaArrayType)
}

// FrameRate Video frame rate
func (sps *SPS) FrameRate() float64 {
	if !sps.VUI.TimingInfoPresent || sps.VUI.NumUnitsInTick == 0 {
		return 0.0
	}
	return float64(sps.VUI.TimeScale) / float64(sps.VUI.NumUnitsInTick)
}

// CroppedWidth returns the width inside the conformance window.
func (sps *SPS) CroppedWidth() int {
	return sps.Width - sps.SubWidthC*(sps.ConfWinLeft+sps.ConfWinRight)
}

// CroppedHeight returns the height inside the conformance window.
func (sps *SPS) CroppedHeight() int {
	return sps.Height - sps.SubHeightC*(sps.ConfWinTop+sps.ConfWinBottom)
}

// HighestTid returns the index of the highest sub-layer.
func (sps *SPS) HighestTid() int {
	return int(sps.MaxSubLayersMinus1)
}

// DecodeString 从 base64 字串解码 sps NAL
func (sps *SPS) DecodeString(b64 string) error {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	return sps.Decode(data)
}

// Decode 从字节序列中解码 sps NAL（可带起始码）
func (sps *SPS) Decode(data []byte) error {
	nal, err := NewNal(utils.RemoveNaluSeparator(data))
	if err != nil {
		return err
	}
	if nal.Type != NalSps {
		return errors.Wrap(ErrInvalidParameterSet, "not is sps NAL UNIT")
	}
	return sps.DecodeRbsp(nal.Data)
}

// DecodeRbsp decodes the RBSP following the NAL unit header.
func (sps *SPS) DecodeRbsp(rbsp []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrInvalidParameterSet, fmt.Sprintf("sps decode panic；r = %v \n %s", r, debug.Stack()))
		}
	}()

	r := bits.NewReader(rbsp)
	sps.VPSID = r.ReadUint8(4)
	sps.MaxSubLayersMinus1 = r.ReadUint8(3)
	if sps.MaxSubLayersMinus1 >= MaxSubLayers {
		return errors.Wrapf(ErrInvalidParameterSet, "sps_max_sub_layers_minus1 %d out of range", sps.MaxSubLayersMinus1)
	}
	sps.TemporalIDNesting = r.ReadBool()
	sps.ProfileTierLevel.decode(r, true, int(sps.MaxSubLayersMinus1))

	id := r.ReadUe()
	if id >= MaxSpsCount {
		return errors.Wrapf(ErrInvalidParameterSet, "sps_seq_parameter_set_id %d out of range", id)
	}
	sps.ID = uint8(id)

	chroma := r.ReadUe()
	if chroma > 3 {
		return errors.Wrapf(ErrInvalidParameterSet, "chroma_format_idc %d out of range", chroma)
	}
	sps.ChromaFormatIdc = uint8(chroma)
	if sps.ChromaFormatIdc == 3 {
		sps.SeparateColourPlane = r.ReadBool()
	}

	sps.Width = int(r.ReadUe())
	sps.Height = int(r.ReadUe())
	if sps.Width == 0 || sps.Height == 0 || sps.Width > MaxWidth || sps.Height > MaxHeight {
		return errors.Wrapf(ErrInvalidParameterSet, "invalid picture size %dx%d", sps.Width, sps.Height)
	}

	sps.ConformanceWindow = r.ReadBool()
	if sps.ConformanceWindow {
		sps.ConfWinLeft = int(r.ReadUe())
		sps.ConfWinRight = int(r.ReadUe())
		sps.ConfWinTop = int(r.ReadUe())
		sps.ConfWinBottom = int(r.ReadUe())
	}

	sps.BitDepthLuma = int(r.ReadUe()) + 8
	sps.BitDepthChroma = int(r.ReadUe()) + 8
	if sps.BitDepthLuma > 16 || sps.BitDepthChroma > 16 {
		return errors.Wrap(ErrInvalidParameterSet, "bit depth out of range")
	}

	sps.Log2MaxPocLsb = int(r.ReadUe()) + 4
	if sps.Log2MaxPocLsb > 16 {
		return errors.Wrapf(ErrInvalidParameterSet, "log2_max_pic_order_cnt_lsb_minus4 %d out of range", sps.Log2MaxPocLsb-4)
	}

	sps.SubLayerOrderingInfo = r.ReadBool()
	top := int(sps.MaxSubLayersMinus1)
	first := top
	if sps.SubLayerOrderingInfo {
		first = 0
	}
	for i := first; i <= top; i++ {
		sps.MaxDecPicBuffering[i] = int(r.ReadUe()) + 1
		sps.MaxNumReorderPics[i] = int(r.ReadUe())
		sps.MaxLatencyIncrease[i] = int(r.ReadUe())
		if sps.MaxDecPicBuffering[i] > MaxDpbSize {
			return errors.Wrapf(ErrInvalidParameterSet, "sps_max_dec_pic_buffering_minus1 %d out of range", sps.MaxDecPicBuffering[i]-1)
		}
		if sps.MaxNumReorderPics[i] > sps.MaxDecPicBuffering[i]-1 {
			sps.MaxDecPicBuffering[i] = sps.MaxNumReorderPics[i] + 1
		}
	}
	if !sps.SubLayerOrderingInfo {
		for i := 0; i < top; i++ {
			sps.MaxDecPicBuffering[i] = sps.MaxDecPicBuffering[top]
			sps.MaxNumReorderPics[i] = sps.MaxNumReorderPics[top]
			sps.MaxLatencyIncrease[i] = sps.MaxLatencyIncrease[top]
		}
	}

	sps.Log2MinCbSize = int(r.ReadUe()) + 3
	sps.Log2DiffMaxMinCbSize = int(r.ReadUe())
	sps.Log2MinTbSize = int(r.ReadUe()) + 2
	sps.Log2DiffMaxMinTbSize = int(r.ReadUe())
	sps.MaxTransformHierarchyDepthInter = int(r.ReadUe())
	sps.MaxTransformHierarchyDepthIntra = int(r.ReadUe())

	sps.ScalingListEnabled = r.ReadBool()
	if sps.ScalingListEnabled {
		sps.ScalingList.SetDefault()
		sps.ScalingListDataPresent = r.ReadBool()
		if sps.ScalingListDataPresent {
			if err = sps.ScalingList.decode(r); err != nil {
				return
			}
		}
	}

	sps.AmpEnabled = r.ReadBool()
	sps.SaoEnabled = r.ReadBool()

	sps.PcmEnabled = r.ReadBool()
	if sps.PcmEnabled {
		sps.PcmBitDepthLuma = int(r.ReadUint8(4)) + 1
		sps.PcmBitDepthChroma = int(r.ReadUint8(4)) + 1
		sps.Log2MinPcmCbSize = int(r.ReadUe()) + 3
		sps.Log2DiffMaxMinPcmCbSize = int(r.ReadUe())
		sps.PcmLoopFilterDisabled = r.ReadBool()
	}

	numStRps := int(r.ReadUe())
	if numStRps > MaxShortTermRefPicSets {
		return errors.Wrapf(ErrInvalidParameterSet, "num_short_term_ref_pic_sets %d out of range", numStRps)
	}
	sps.StRps = make([]ShortTermRPS, numStRps)
	for i := range sps.StRps {
		if err = sps.StRps[i].decode(r, i, sps.StRps[:numStRps], sps.MaxDecPicBuffering[top]); err != nil {
			return
		}
	}

	sps.LongTermRefPicsPresent = r.ReadBool()
	if sps.LongTermRefPicsPresent {
		sps.NumLongTermRefPicsSps = int(r.ReadUe())
		if sps.NumLongTermRefPicsSps > MaxLongTermRefPics {
			return errors.Wrapf(ErrInvalidParameterSet, "num_long_term_ref_pics_sps %d out of range", sps.NumLongTermRefPicsSps)
		}
		for i := 0; i < sps.NumLongTermRefPicsSps; i++ {
			sps.LtRefPicPocLsbSps[i] = r.ReadInt(sps.Log2MaxPocLsb)
			sps.UsedByCurrPicLtSps[i] = r.ReadBool()
		}
	}

	sps.TemporalMvpEnabled = r.ReadBool()
	sps.StrongIntraSmoothing = r.ReadBool()

	sps.VUIParametersPresent = r.ReadBool()
	if sps.VUIParametersPresent {
		if err = sps.VUI.decode(r, top); err != nil {
			return
		}
	} else {
		sps.VUI.setDefault()
	}

	sps.ExtensionPresent = r.ReadBool()
	if sps.ExtensionPresent {
		sps.RangeExtension = r.ReadBool()
		sps.MultilayerExtension = r.ReadBool()
		sps.Extension3D = r.ReadBool()
		sps.SccExtension = r.ReadBool()
		sps.Extension4Bits = r.ReadUint8(4)
	}

	return sps.derive()
}

func (sps *SPS) derive() error {
	if sps.SeparateColourPlane {
		sps.ChromaArrayType = 0
	} else {
		sps.ChromaArrayType = int(sps.ChromaFormatIdc)
	}
	sps.SubWidthC, sps.SubHeightC = 1, 1
	switch sps.ChromaFormatIdc {
	case 1:
		sps.SubWidthC, sps.SubHeightC = 2, 2
	case 2:
		sps.SubWidthC = 2
	}
	if sps.SeparateColourPlane {
		sps.SubWidthC, sps.SubHeightC = 1, 1
	}

	sps.CtbLog2Size = sps.Log2MinCbSize + sps.Log2DiffMaxMinCbSize
	if sps.CtbLog2Size < MinLog2CtbSize || sps.CtbLog2Size > MaxLog2CtbSize {
		return errors.Wrapf(ErrInvalidParameterSet, "CtbLog2SizeY %d out of range", sps.CtbLog2Size)
	}
	sps.CtbSize = 1 << uint(sps.CtbLog2Size)
	sps.MinCbSize = 1 << uint(sps.Log2MinCbSize)
	if sps.Width%sps.MinCbSize != 0 || sps.Height%sps.MinCbSize != 0 {
		return errors.Wrapf(ErrInvalidParameterSet, "invalid dimensions: %dx%d not divisible by MinCbSizeY = %d",
			sps.Width, sps.Height, sps.MinCbSize)
	}

	sps.PicWidthInCtbs = (sps.Width + sps.CtbSize - 1) >> uint(sps.CtbLog2Size)
	sps.PicHeightInCtbs = (sps.Height + sps.CtbSize - 1) >> uint(sps.CtbLog2Size)
	sps.PicSizeInCtbs = sps.PicWidthInCtbs * sps.PicHeightInCtbs
	sps.PicWidthInMinCbs = sps.Width >> uint(sps.Log2MinCbSize)
	sps.PicHeightInMinCbs = sps.Height >> uint(sps.Log2MinCbSize)

	sps.Log2MaxTbSize = sps.Log2MinTbSize + sps.Log2DiffMaxMinTbSize
	if sps.Log2MinTbSize >= sps.Log2MinCbSize || sps.Log2MaxTbSize > 5 || sps.Log2MaxTbSize > sps.CtbLog2Size {
		return errors.Wrap(ErrInvalidParameterSet, "invalid transform block sizes")
	}
	if sps.MaxTransformHierarchyDepthInter > sps.CtbLog2Size-sps.Log2MinTbSize ||
		sps.MaxTransformHierarchyDepthIntra > sps.CtbLog2Size-sps.Log2MinTbSize {
		return errors.Wrap(ErrInvalidParameterSet, "invalid transform hierarchy depth")
	}
	if sps.PcmEnabled && (sps.Log2MinPcmCbSize+sps.Log2DiffMaxMinPcmCbSize > 5 || sps.Log2MinPcmCbSize < sps.Log2MinCbSize) {
		return errors.Wrap(ErrInvalidParameterSet, "invalid pcm block sizes")
	}
	if sps.ConformanceWindow && (sps.CroppedWidth() <= 0 || sps.CroppedHeight() <= 0) {
		return errors.Wrap(ErrInvalidParameterSet, "conformance window out of picture")
	}

	sps.MaxPocLsb = 1 << uint(sps.Log2MaxPocLsb)
	if sps.ScalingListEnabled {
		sps.Factors = sps.ScalingList.Factors()
	} else {
		sps.Factors = FlatScalingFactors
	}
	return nil
}

// Encode serialises the SPS into a NAL unit (header included, no start
// code). Short-term sets are written in explicit form and VUI HRD
// parameters are omitted.
func (sps *SPS) Encode() []byte {
	w := bits.NewWriter()
	w.Write(uint64(NalSps)<<9|1, 16) // nal_unit_header, temporal id 0

	w.Write(uint64(sps.VPSID), 4)
	w.Write(uint64(sps.MaxSubLayersMinus1), 3)
	w.WriteBool(sps.TemporalIDNesting)
	sps.ProfileTierLevel.encode(w, int(sps.MaxSubLayersMinus1))
	w.WriteUe(uint32(sps.ID))
	w.WriteUe(uint32(sps.ChromaFormatIdc))
	if sps.ChromaFormatIdc == 3 {
		w.WriteBool(sps.SeparateColourPlane)
	}
	w.WriteUe(uint32(sps.Width))
	w.WriteUe(uint32(sps.Height))
	w.WriteBool(sps.ConformanceWindow)
	if sps.ConformanceWindow {
		w.WriteUe(uint32(sps.ConfWinLeft))
		w.WriteUe(uint32(sps.ConfWinRight))
		w.WriteUe(uint32(sps.ConfWinTop))
		w.WriteUe(uint32(sps.ConfWinBottom))
	}
	w.WriteUe(uint32(sps.BitDepthLuma - 8))
	w.WriteUe(uint32(sps.BitDepthChroma - 8))
	w.WriteUe(uint32(sps.Log2MaxPocLsb - 4))

	w.WriteBool(sps.SubLayerOrderingInfo)
	top := int(sps.MaxSubLayersMinus1)
	first := top
	if sps.SubLayerOrderingInfo {
		first = 0
	}
	for i := first; i <= top; i++ {
		w.WriteUe(uint32(sps.MaxDecPicBuffering[i] - 1))
		w.WriteUe(uint32(sps.MaxNumReorderPics[i]))
		w.WriteUe(uint32(sps.MaxLatencyIncrease[i]))
	}

	w.WriteUe(uint32(sps.Log2MinCbSize - 3))
	w.WriteUe(uint32(sps.Log2DiffMaxMinCbSize))
	w.WriteUe(uint32(sps.Log2MinTbSize - 2))
	w.WriteUe(uint32(sps.Log2DiffMaxMinTbSize))
	w.WriteUe(uint32(sps.MaxTransformHierarchyDepthInter))
	w.WriteUe(uint32(sps.MaxTransformHierarchyDepthIntra))

	w.WriteBool(sps.ScalingListEnabled)
	if sps.ScalingListEnabled {
		w.WriteBool(sps.ScalingListDataPresent)
		if sps.ScalingListDataPresent {
			sps.ScalingList.encode(w)
		}
	}

	w.WriteBool(sps.AmpEnabled)
	w.WriteBool(sps.SaoEnabled)
	w.WriteBool(sps.PcmEnabled)
	if sps.PcmEnabled {
		w.Write(uint64(sps.PcmBitDepthLuma-1), 4)
		w.Write(uint64(sps.PcmBitDepthChroma-1), 4)
		w.WriteUe(uint32(sps.Log2MinPcmCbSize - 3))
		w.WriteUe(uint32(sps.Log2DiffMaxMinPcmCbSize))
		w.WriteBool(sps.PcmLoopFilterDisabled)
	}

	w.WriteUe(uint32(len(sps.StRps)))
	for i := range sps.StRps {
		sps.StRps[i].encode(w, i)
	}

	w.WriteBool(sps.LongTermRefPicsPresent)
	if sps.LongTermRefPicsPresent {
		w.WriteUe(uint32(sps.NumLongTermRefPicsSps))
		for i := 0; i < sps.NumLongTermRefPicsSps; i++ {
			w.Write(uint64(sps.LtRefPicPocLsbSps[i]), sps.Log2MaxPocLsb)
			w.WriteBool(sps.UsedByCurrPicLtSps[i])
		}
	}

	w.WriteBool(sps.TemporalMvpEnabled)
	w.WriteBool(sps.StrongIntraSmoothing)
	w.WriteBool(sps.VUIParametersPresent)
	if sps.VUIParametersPresent {
		sps.VUI.encode(w)
	}
	w.WriteBit(0) // sps_extension_present_flag
	w.WriteTrailingBits()

	out := w.Bytes()
	return append(out[:2:2], utils.AddEmulationBytes(out[2:])...)
}
