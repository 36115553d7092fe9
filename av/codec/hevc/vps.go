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

// ProfileTierLevel is profile_tier_level().
type ProfileTierLevel struct {
	ProfileSpace              uint8
	TierFlag                  uint8
	ProfileIdc                uint8
	ProfileCompatibilityFlags uint32 // 32 flags, MSB first
	ProgressiveSource         bool
	InterlacedSource          bool
	NonPackedConstraint       bool
	FrameOnlyConstraint       bool
	ConstraintIndicatorFlags  uint64 // 48 bits from general_progressive_source_flag
	LevelIdc                  uint8

	SubLayerProfilePresent [MaxSubLayers]bool
	SubLayerLevelPresent   [MaxSubLayers]bool
	SubLayerProfileIdc     [MaxSubLayers]uint8
	SubLayerLevelIdc       [MaxSubLayers]uint8
}

// Compatible reports whether the stream claims conformance to profile idc.
func (ptl *ProfileTierLevel) Compatible(idc uint8) bool {
	return ptl.ProfileIdc == idc || (idc < 32 && ptl.ProfileCompatibilityFlags&(1<<(31-idc)) != 0)
}

func (ptl *ProfileTierLevel) decode(r *bits.Reader, profilePresent bool, maxSubLayersMinus1 int) {
	if profilePresent {
		ptl.ProfileSpace = r.ReadUint8(2)
		ptl.TierFlag = r.ReadBit()
		ptl.ProfileIdc = r.ReadUint8(5)
		ptl.ProfileCompatibilityFlags = r.ReadUint32(32)
		ptl.ConstraintIndicatorFlags = r.Peek(48)
		ptl.ProgressiveSource = r.ReadBool()
		ptl.InterlacedSource = r.ReadBool()
		ptl.NonPackedConstraint = r.ReadBool()
		ptl.FrameOnlyConstraint = r.ReadBool()
		// 43 bits of constraint flags and the inbld/reserved bit
		r.Skip(44)
	}

	ptl.LevelIdc = r.ReadUint8(8)

	for i := 0; i < maxSubLayersMinus1; i++ {
		ptl.SubLayerProfilePresent[i] = r.ReadBool()
		ptl.SubLayerLevelPresent[i] = r.ReadBool()
	}
	if maxSubLayersMinus1 > 0 {
		for i := maxSubLayersMinus1; i < 8; i++ {
			r.Skip(2) // reserved_zero_2bits
		}
	}

	for i := 0; i < maxSubLayersMinus1; i++ {
		if ptl.SubLayerProfilePresent[i] {
			r.Skip(3) // sub_layer_profile_space, sub_layer_tier_flag
			ptl.SubLayerProfileIdc[i] = r.ReadUint8(5)
			r.Skip(32) // sub_layer_profile_compatibility_flag
			r.Skip(48) // source, constraint and reserved flags
		}
		if ptl.SubLayerLevelPresent[i] {
			ptl.SubLayerLevelIdc[i] = r.ReadUint8(8)
		}
	}
}

func (ptl *ProfileTierLevel) encode(w *bits.Writer, maxSubLayersMinus1 int) {
	w.Write(uint64(ptl.ProfileSpace), 2)
	w.Write(uint64(ptl.TierFlag), 1)
	w.Write(uint64(ptl.ProfileIdc), 5)
	w.Write(uint64(ptl.ProfileCompatibilityFlags), 32)
	w.Write(ptl.ConstraintIndicatorFlags, 48)
	w.Write(uint64(ptl.LevelIdc), 8)

	for i := 0; i < maxSubLayersMinus1; i++ {
		w.WriteBool(ptl.SubLayerProfilePresent[i])
		w.WriteBool(ptl.SubLayerLevelPresent[i])
	}
	if maxSubLayersMinus1 > 0 {
		for i := maxSubLayersMinus1; i < 8; i++ {
			w.Write(0, 2)
		}
	}
	for i := 0; i < maxSubLayersMinus1; i++ {
		if ptl.SubLayerProfilePresent[i] {
			w.Write(0, 3)
			w.Write(uint64(ptl.SubLayerProfileIdc[i]), 5)
			w.Write(0, 32)
			w.Write(0, 48)
		}
		if ptl.SubLayerLevelPresent[i] {
			w.Write(uint64(ptl.SubLayerLevelIdc[i]), 8)
		}
	}
}

// SubLayerHRD is sub_layer_hrd_parameters().
type SubLayerHRD struct {
	BitRateValueMinus1 [MaxCpbCnt]uint32
	CpbSizeValueMinus1 [MaxCpbCnt]uint32
	CbrFlag            [MaxCpbCnt]bool
}

func (shrd *SubLayerHRD) decode(r *bits.Reader, subPicParamsPresent bool, cpbCntMinus1 int) {
	for i := 0; i <= cpbCntMinus1; i++ {
		shrd.BitRateValueMinus1[i] = r.ReadUe()
		shrd.CpbSizeValueMinus1[i] = r.ReadUe()
		if subPicParamsPresent {
			r.ReadUe() // cpb_size_du_value_minus1
			r.ReadUe() // bit_rate_du_value_minus1
		}
		shrd.CbrFlag[i] = r.ReadBool()
	}
}

// HRD is hrd_parameters().
type HRD struct {
	NalParamsPresent    bool
	VclParamsPresent    bool
	SubPicParamsPresent bool
	BitRateScale        uint8
	CpbSizeScale        uint8

	FixedPicRateGeneral         [MaxSubLayers]bool
	FixedPicRateWithinCvs       [MaxSubLayers]bool
	ElementalDurationInTcMinus1 [MaxSubLayers]uint32
	LowDelay                    [MaxSubLayers]bool
	CpbCntMinus1                [MaxSubLayers]uint8
	NalSubLayer                 [MaxSubLayers]SubLayerHRD
	VclSubLayer                 [MaxSubLayers]SubLayerHRD
}

func (hrd *HRD) decode(r *bits.Reader, commonInfPresent bool, maxSubLayersMinus1 int) error {
	if commonInfPresent {
		hrd.NalParamsPresent = r.ReadBool()
		hrd.VclParamsPresent = r.ReadBool()
		if hrd.NalParamsPresent || hrd.VclParamsPresent {
			hrd.SubPicParamsPresent = r.ReadBool()
			if hrd.SubPicParamsPresent {
				r.Skip(8 + 5 + 1 + 5) // tick_divisor_minus2 .. dpb_output_delay_du_length_minus1
			}
			hrd.BitRateScale = r.ReadUint8(4)
			hrd.CpbSizeScale = r.ReadUint8(4)
			if hrd.SubPicParamsPresent {
				r.Skip(4) // cpb_size_du_scale
			}
			r.Skip(5 + 5 + 5) // delay lengths
		}
	}

	for i := 0; i <= maxSubLayersMinus1; i++ {
		hrd.FixedPicRateGeneral[i] = r.ReadBool()
		hrd.FixedPicRateWithinCvs[i] = true
		if !hrd.FixedPicRateGeneral[i] {
			hrd.FixedPicRateWithinCvs[i] = r.ReadBool()
		}

		if hrd.FixedPicRateWithinCvs[i] {
			hrd.ElementalDurationInTcMinus1[i] = r.ReadUe()
		} else {
			hrd.LowDelay[i] = r.ReadBool()
		}

		if !hrd.LowDelay[i] {
			cnt := r.ReadUe()
			if cnt >= MaxCpbCnt {
				return errors.Wrapf(ErrInvalidParameterSet, "cpb_cnt_minus1 %d out of range", cnt)
			}
			hrd.CpbCntMinus1[i] = uint8(cnt)
		}

		if hrd.NalParamsPresent {
			hrd.NalSubLayer[i].decode(r, hrd.SubPicParamsPresent, int(hrd.CpbCntMinus1[i]))
		}
		if hrd.VclParamsPresent {
			hrd.VclSubLayer[i].decode(r, hrd.SubPicParamsPresent, int(hrd.CpbCntMinus1[i]))
		}
	}
	return nil
}

// VPS is a video parameter set.
type VPS struct {
	ID                       uint8
	BaseLayerInternal        bool
	BaseLayerAvailable       bool
	MaxLayersMinus1          uint8
	MaxSubLayersMinus1       uint8
	TemporalIDNesting        bool
	ProfileTierLevel         ProfileTierLevel
	SubLayerOrderingInfo     bool
	MaxDecPicBufferingMinus1 [MaxSubLayers]uint32
	MaxNumReorderPics        [MaxSubLayers]uint32
	MaxLatencyIncreasePlus1  [MaxSubLayers]uint32
	MaxLayerID               uint8
	NumLayerSetsMinus1       uint32

	TimingInfoPresent        bool
	NumUnitsInTick           uint32
	TimeScale                uint32
	PocProportionalToTiming  bool
	NumTicksPocDiffOneMinus1 uint32
	HRD                      []HRD
}

// DecodeString 从 base64 字串解码 vps NAL
func (vps *VPS) DecodeString(b64 string) error {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	return vps.Decode(data)
}

// Decode 从字节序列中解码 vps NAL（可带起始码）
func (vps *VPS) Decode(data []byte) error {
	nal, err := NewNal(utils.RemoveNaluSeparator(data))
	if err != nil {
		return err
	}
	if nal.Type != NalVps {
		return errors.Wrap(ErrInvalidParameterSet, "not is vps NAL UNIT")
	}
	return vps.DecodeRbsp(nal.Data)
}

// DecodeRbsp decodes the RBSP following the NAL unit header.
func (vps *VPS) DecodeRbsp(rbsp []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrInvalidParameterSet, fmt.Sprintf("vps decode panic；r = %v \n %s", r, debug.Stack()))
		}
	}()

	r := bits.NewReader(rbsp)
	vps.ID = r.ReadUint8(4)
	vps.BaseLayerInternal = r.ReadBool()
	vps.BaseLayerAvailable = r.ReadBool()
	vps.MaxLayersMinus1 = r.ReadUint8(6)
	vps.MaxSubLayersMinus1 = r.ReadUint8(3)
	vps.TemporalIDNesting = r.ReadBool()
	if vps.MaxSubLayersMinus1 >= MaxSubLayers {
		return errors.Wrapf(ErrInvalidParameterSet, "vps_max_sub_layers_minus1 %d out of range", vps.MaxSubLayersMinus1)
	}
	if vps.MaxSubLayersMinus1 == 0 && !vps.TemporalIDNesting {
		return errors.Wrap(ErrInvalidParameterSet, "vps_temporal_id_nesting_flag must be 1 if vps_max_sub_layers_minus1 is 0")
	}

	r.Skip(16) // vps_reserved_0xffff_16bits
	vps.ProfileTierLevel.decode(r, true, int(vps.MaxSubLayersMinus1))

	vps.SubLayerOrderingInfo = r.ReadBool()
	i := vps.MaxSubLayersMinus1
	if vps.SubLayerOrderingInfo {
		i = 0
	}
	for ; i <= vps.MaxSubLayersMinus1; i++ {
		vps.MaxDecPicBufferingMinus1[i] = r.ReadUe()
		vps.MaxNumReorderPics[i] = r.ReadUe()
		vps.MaxLatencyIncreasePlus1[i] = r.ReadUe()
	}
	if !vps.SubLayerOrderingInfo {
		top := vps.MaxSubLayersMinus1
		for i := uint8(0); i < top; i++ {
			vps.MaxDecPicBufferingMinus1[i] = vps.MaxDecPicBufferingMinus1[top]
			vps.MaxNumReorderPics[i] = vps.MaxNumReorderPics[top]
			vps.MaxLatencyIncreasePlus1[i] = vps.MaxLatencyIncreasePlus1[top]
		}
	}

	vps.MaxLayerID = r.ReadUint8(6)
	vps.NumLayerSetsMinus1 = r.ReadUe()
	if vps.NumLayerSetsMinus1 >= 1024 {
		return errors.Wrapf(ErrInvalidParameterSet, "vps_num_layer_sets_minus1 %d out of range", vps.NumLayerSetsMinus1)
	}
	r.Skip(int(vps.NumLayerSetsMinus1) * (int(vps.MaxLayerID) + 1)) // layer_id_included_flag

	vps.TimingInfoPresent = r.ReadBool()
	if vps.TimingInfoPresent {
		vps.NumUnitsInTick = r.ReadUint32(32)
		vps.TimeScale = r.ReadUint32(32)
		vps.PocProportionalToTiming = r.ReadBool()
		if vps.PocProportionalToTiming {
			vps.NumTicksPocDiffOneMinus1 = r.ReadUe()
		}

		numHrd := r.ReadUe()
		if numHrd > vps.NumLayerSetsMinus1+1 {
			return errors.Wrapf(ErrInvalidParameterSet, "vps_num_hrd_parameters %d out of range", numHrd)
		}
		vps.HRD = make([]HRD, numHrd)
		for i := range vps.HRD {
			r.ReadUe() // hrd_layer_set_idx
			cprmsPresent := true
			if i > 0 {
				cprmsPresent = r.ReadBool()
			}
			if err = vps.HRD[i].decode(r, cprmsPresent, int(vps.MaxSubLayersMinus1)); err != nil {
				return
			}
		}
	}

	r.ReadBit() // vps_extension_flag
	return nil
}
