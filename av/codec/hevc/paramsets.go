// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"github.com/pkg/errors"
)

// ParamSets stores the parameter sets received so far, indexed by id.
// A new set replaces the stored one; records already handed out stay valid.
type ParamSets struct {
	VPS [MaxVpsCount]*VPS
	SPS [MaxSpsCount]*SPS
	PPS [MaxPpsCount]*PPS
}

// Put decodes a VPS, SPS or PPS unit and stores it.
func (ps *ParamSets) Put(nal *Nal) error {
	switch nal.Type {
	case NalVps:
		vps := &VPS{}
		if err := vps.DecodeRbsp(nal.Data); err != nil {
			return errors.Wrap(err, "could not parse vps")
		}
		ps.VPS[vps.ID] = vps
	case NalSps:
		sps := &SPS{}
		if err := sps.DecodeRbsp(nal.Data); err != nil {
			return errors.Wrap(err, "could not parse sps")
		}
		ps.SPS[sps.ID] = sps
	case NalPps:
		pps := &PPS{}
		if err := pps.DecodeRbsp(nal.Data); err != nil {
			return errors.Wrap(err, "could not parse pps")
		}
		ps.PPS[pps.ID] = pps
	default:
		return errors.Wrapf(ErrInvalidParameterSet, "nal unit type %d is not a parameter set", nal.Type)
	}
	return nil
}

// Activate returns the PPS ppsID and its SPS with the SPS dependent tables
// derived.
func (ps *ParamSets) Activate(ppsID int) (*SPS, *PPS, error) {
	if ppsID < 0 || ppsID >= MaxPpsCount || ps.PPS[ppsID] == nil {
		return nil, nil, errors.Wrapf(ErrInvalidParameterSet, "pps %d not received", ppsID)
	}
	pps := ps.PPS[ppsID]
	sps := ps.SPS[pps.SPSID]
	if sps == nil {
		return nil, nil, errors.Wrapf(ErrInvalidParameterSet, "sps %d not received", pps.SPSID)
	}
	if err := sps.Supported(); err != nil {
		return nil, nil, err
	}
	if err := pps.Supported(); err != nil {
		return nil, nil, err
	}
	if err := pps.Setup(sps); err != nil {
		return nil, nil, err
	}
	return sps, pps, nil
}

// Reset forgets every stored set.
func (ps *ParamSets) Reset() {
	*ps = ParamSets{}
}

// Supported reports whether the decoder handles the sequence.
func (sps *SPS) Supported() error {
	if sps.BitDepthLuma != 8 || sps.BitDepthChroma != 8 {
		return errors.Wrapf(ErrUnsupported, "bit depth %d/%d", sps.BitDepthLuma, sps.BitDepthChroma)
	}
	if sps.SeparateColourPlane {
		return errors.Wrap(ErrUnsupported, "separate colour planes")
	}
	if sps.RangeExtension || sps.MultilayerExtension || sps.Extension3D || sps.SccExtension {
		return errors.Wrap(ErrUnsupported, "sps extensions")
	}
	if sps.PcmEnabled && (sps.PcmBitDepthLuma > 8 || sps.PcmBitDepthChroma > 8) {
		return errors.Wrap(ErrUnsupported, "pcm bit depth above 8")
	}
	return nil
}

// Supported reports whether the decoder handles the picture parameters.
func (pps *PPS) Supported() error {
	if pps.RangeExtension || pps.MultilayerExtension || pps.Extension3D || pps.SccExtension {
		return errors.Wrap(ErrUnsupported, "pps extensions")
	}
	return nil
}
