// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

import (
	"github.com/cnotch/hevcdec/utils/bits"
	"github.com/pkg/errors"
)

// Table 7-6, up-right diagonal order
var (
	defaultScalingIntra = [64]uint8{
		16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 17, 16, 17, 16, 17, 18,
		17, 18, 18, 17, 18, 21, 19, 20, 21, 20, 19, 21, 24, 22, 22, 24,
		24, 22, 22, 24, 25, 25, 27, 30, 27, 25, 25, 29, 31, 35, 35, 31,
		29, 36, 41, 44, 41, 36, 47, 54, 54, 47, 65, 70, 65, 88, 88, 115,
	}
	defaultScalingInter = [64]uint8{
		16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 17, 17, 17, 17, 17, 18,
		18, 18, 18, 18, 18, 20, 20, 20, 20, 20, 20, 20, 24, 24, 24, 24,
		24, 24, 24, 24, 25, 25, 25, 25, 25, 25, 25, 28, 28, 28, 28, 28,
		28, 33, 33, 33, 33, 33, 41, 41, 41, 41, 54, 54, 54, 71, 71, 91,
	}
)

// ScalingList is scaling_list_data() after prediction, the coefficients are
// kept in up-right diagonal order.
type ScalingList struct {
	List [4][6][64]uint8
	DC   [4][6]uint8 // sizeId 2 and 3
}

func coefNum(sizeID int) int {
	if sizeID == 0 {
		return 16
	}
	return 64
}

func matrixStep(sizeID int) int {
	if sizeID == 3 {
		return 3
	}
	return 1
}

func (sl *ScalingList) setDefaultMatrix(sizeID, matrixID int) {
	if sizeID == 0 {
		for i := 0; i < 16; i++ {
			sl.List[0][matrixID][i] = 16
		}
		return
	}

	if matrixID < 3 {
		sl.List[sizeID][matrixID] = defaultScalingIntra
	} else {
		sl.List[sizeID][matrixID] = defaultScalingInter
	}
	sl.DC[sizeID][matrixID] = 16
}

// SetDefault fills the default lists of Table 7-5 and Table 7-6.
func (sl *ScalingList) SetDefault() {
	for sizeID := 0; sizeID < 4; sizeID++ {
		for matrixID := 0; matrixID < 6; matrixID++ {
			sl.setDefaultMatrix(sizeID, matrixID)
		}
	}
}

func (sl *ScalingList) decode(r *bits.Reader) error {
	for sizeID := 0; sizeID < 4; sizeID++ {
		step := matrixStep(sizeID)
		for matrixID := 0; matrixID < 6; matrixID += step {
			if !r.ReadBool() { // scaling_list_pred_mode_flag
				delta := int(r.ReadUe()) // scaling_list_pred_matrix_id_delta
				if delta == 0 {
					sl.setDefaultMatrix(sizeID, matrixID)
					continue
				}

				ref := matrixID - delta*step
				if ref < 0 {
					return errors.Wrapf(ErrInvalidParameterSet, "scaling_list_pred_matrix_id_delta %d out of range", delta)
				}
				sl.List[sizeID][matrixID] = sl.List[sizeID][ref]
				sl.DC[sizeID][matrixID] = sl.DC[sizeID][ref]
				continue
			}

			next := 8
			if sizeID > 1 {
				dc := int(r.ReadSe()) // scaling_list_dc_coef_minus8
				if dc < -7 || dc > 247 {
					return errors.Wrapf(ErrInvalidParameterSet, "scaling_list_dc_coef_minus8 %d out of range", dc)
				}
				next = dc + 8
				sl.DC[sizeID][matrixID] = uint8(next)
			}
			for i := 0; i < coefNum(sizeID); i++ {
				delta := int(r.ReadSe()) // scaling_list_delta_coef
				if delta < -128 || delta > 127 {
					return errors.Wrapf(ErrInvalidParameterSet, "scaling_list_delta_coef %d out of range", delta)
				}
				next = (next + delta + 256) % 256
				sl.List[sizeID][matrixID][i] = uint8(next)
			}
		}
	}

	// 32x32 的色度矩阵来自 16x16 的列表（ChromaArrayType == 3）
	for _, matrixID := range []int{1, 2, 4, 5} {
		sl.List[3][matrixID] = sl.List[2][matrixID]
		sl.DC[3][matrixID] = sl.DC[2][matrixID]
	}
	return nil
}

// encode writes every list explicitly.
func (sl *ScalingList) encode(w *bits.Writer) {
	for sizeID := 0; sizeID < 4; sizeID++ {
		for matrixID := 0; matrixID < 6; matrixID += matrixStep(sizeID) {
			w.WriteBit(1)
			next := 8
			if sizeID > 1 {
				w.WriteSe(int32(sl.DC[sizeID][matrixID]) - 8)
				next = int(sl.DC[sizeID][matrixID])
			}
			for i := 0; i < coefNum(sizeID); i++ {
				v := int(sl.List[sizeID][matrixID][i])
				delta := v - next
				if delta > 127 {
					delta -= 256
				} else if delta < -128 {
					delta += 256
				}
				w.WriteSe(int32(delta))
				next = v
			}
		}
	}
}

// ScalingFactors holds m[x][y] for every sizeId and matrixId, row major.
type ScalingFactors [4][6][]uint8

// Factors derives the scaling factors of 7.4.5.
func (sl *ScalingList) Factors() *ScalingFactors {
	var f ScalingFactors
	for sizeID := 0; sizeID < 4; sizeID++ {
		size := 4 << uint(sizeID)
		for matrixID := 0; matrixID < 6; matrixID++ {
			m := make([]uint8, size*size)
			if sizeID == 0 {
				for i, p := range ScanOrder(2, ScanDiag) {
					m[int(p.Y)*4+int(p.X)] = sl.List[0][matrixID][i]
				}
			} else {
				ratio := size / 8
				for i, p := range ScanOrder(3, ScanDiag) {
					v := sl.List[sizeID][matrixID][i]
					for k := 0; k < ratio; k++ {
						for j := 0; j < ratio; j++ {
							m[(int(p.Y)*ratio+k)*size+int(p.X)*ratio+j] = v
						}
					}
				}
				if sizeID > 1 {
					m[0] = sl.DC[sizeID][matrixID]
				}
			}
			f[sizeID][matrixID] = m
		}
	}
	return &f
}

// FlatScalingFactors is the m[x][y] == 16 case (scaling_list_enabled_flag == 0).
var FlatScalingFactors = func() *ScalingFactors {
	var f ScalingFactors
	for sizeID := 0; sizeID < 4; sizeID++ {
		size := 4 << uint(sizeID)
		flat := make([]uint8, size*size)
		for i := range flat {
			flat[i] = 16
		}
		for matrixID := 0; matrixID < 6; matrixID++ {
			f[sizeID][matrixID] = flat
		}
	}
	return &f
}()
