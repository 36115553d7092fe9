// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/cabac"
)

// sig_coeff_flag context for 4x4 blocks, Table 9-50
var ctxIdxMap = [16]int{0, 1, 4, 5, 2, 3, 4, 5, 6, 6, 8, 8, 7, 7, 8, 8}

// scanIndex derives scanIdx (7.4.9.11). predMode is -1 for inter blocks.
func scanIndex(predMode, log2, c, chromaArrayType int) int {
	if predMode < 0 {
		return hevc.ScanDiag
	}
	if log2 == 2 || (log2 == 3 && (c == 0 || chromaArrayType == 3)) {
		switch {
		case predMode >= 6 && predMode <= 14:
			return hevc.ScanVertical
		case predMode >= 22 && predMode <= 30:
			return hevc.ScanHorizontal
		}
	}
	return hevc.ScanDiag
}

// decodeResidual parses residual_coding() (7.3.8.11) into s.coeff, row
// major, and reports transform_skip_flag.
func (s *sliceDecoder) decodeResidual(c, log2, predMode int) (transformSkip bool) {
	cab := &s.cab
	size := 1 << uint(log2)
	coeff := s.coeff[:size*size]
	for i := range coeff {
		coeff[i] = 0
	}

	if s.pps.TransformSkipEnabled && !s.cu.bypass && log2 == 2 {
		inc := 0
		if c > 0 {
			inc = 1
		}
		transformSkip = cab.DecodeBit(&s.ctx[cabac.TransformSkipFlag+inc]) == 1
	}

	// last_sig_coeff_x/y_prefix
	var ctxOffset, ctxShift int
	if c == 0 {
		ctxOffset = 3*(log2-2) + ((log2 - 1) >> 2)
		ctxShift = (log2 + 1) >> 2
	} else {
		ctxOffset = 15
		ctxShift = log2 - 2
	}
	cMax := (log2 << 1) - 1
	prefix := func(base int) int {
		i := 0
		for i < cMax && cab.DecodeBit(&s.ctx[base+ctxOffset+(i>>uint(ctxShift))]) == 1 {
			i++
		}
		return i
	}
	suffix := func(prefix int) int {
		if prefix <= 3 {
			return prefix
		}
		n := (prefix >> 1) - 1
		return (1<<uint(n))*(2+(prefix&1)) + int(cab.DecodeBypassBits(n))
	}
	xPrefix := prefix(cabac.LastSigCoeffXPrefix)
	yPrefix := prefix(cabac.LastSigCoeffYPrefix)
	lastX := suffix(xPrefix)
	lastY := suffix(yPrefix)

	scanIdx := scanIndex(predMode, log2, c, s.sps.ChromaArrayType)
	if scanIdx == hevc.ScanVertical {
		lastX, lastY = lastY, lastX
	}

	log2Sb := log2 - 2
	sbWidth := 1 << uint(log2Sb)
	scanSub := hevc.ScanOrder(log2Sb, scanIdx)
	scanPos := hevc.ScanOrder(2, scanIdx)

	lastSubBlock := len(scanSub) - 1
	for lastSubBlock > 0 {
		p := scanSub[lastSubBlock]
		if int(p.X) == lastX>>2 && int(p.Y) == lastY>>2 {
			break
		}
		lastSubBlock--
	}
	lastScanPos := 15
	for lastScanPos > 0 {
		p := scanPos[lastScanPos]
		if int(p.X) == lastX&3 && int(p.Y) == lastY&3 {
			break
		}
		lastScanPos--
	}

	var codedSb [8][8]bool
	signHidingAllowed := s.pps.SignDataHiding && !s.cu.bypass
	greater1Ctx := 1

	var (
		sigPos [16]int // scan positions of significant coefficients
		absLvl [16]int
	)

	for i := lastSubBlock; i >= 0; i-- {
		xS, yS := int(scanSub[i].X), int(scanSub[i].Y)

		inferSbDc := false
		if i < lastSubBlock && i > 0 {
			csbfCtx := 0
			if xS+1 < sbWidth && codedSb[xS+1][yS] {
				csbfCtx = 1
			}
			if yS+1 < sbWidth && codedSb[xS][yS+1] {
				csbfCtx = 1
			}
			if c > 0 {
				csbfCtx += 2
			}
			codedSb[xS][yS] = cab.DecodeBit(&s.ctx[cabac.CodedSubBlockFlag+csbfCtx]) == 1
			inferSbDc = true
		} else {
			codedSb[xS][yS] = true
		}

		numSig := 0
		start := 15
		if i == lastSubBlock {
			start = lastScanPos - 1
			sigPos[0] = lastScanPos
			numSig = 1
		}

		if codedSb[xS][yS] {
			prevCsbf := 0
			if xS+1 < sbWidth && codedSb[xS+1][yS] {
				prevCsbf |= 1
			}
			if yS+1 < sbWidth && codedSb[xS][yS+1] {
				prevCsbf |= 2
			}

			for n := start; n >= 0; n-- {
				xP, yP := int(scanPos[n].X), int(scanPos[n].Y)
				if n > 0 || !inferSbDc {
					inc := s.sigCoeffCtx(c, log2, scanIdx, xS, yS, xP, yP, prevCsbf)
					if cab.DecodeBit(&s.ctx[cabac.SigCoeffFlag+inc]) == 1 {
						sigPos[numSig] = n
						numSig++
						inferSbDc = false
					}
				} else {
					// DC 系数推断为非零
					sigPos[numSig] = 0
					numSig++
				}
			}
		}
		if numSig == 0 {
			continue
		}

		// coeff_abs_level_greater1_flag / greater2_flag
		ctxSet := 0
		if i > 0 && c == 0 {
			ctxSet = 2
		}
		if greater1Ctx == 0 {
			ctxSet++
		}
		greater1Ctx = 1

		firstG2 := -1
		for k := 0; k < numSig; k++ {
			absLvl[k] = 1
		}
		for k := 0; k < minInt(numSig, 8); k++ {
			inc := ctxSet*4 + greater1Ctx
			if c > 0 {
				inc += 16
			}
			if cab.DecodeBit(&s.ctx[cabac.CoeffAbsLevelGreater1Flag+inc]) == 1 {
				absLvl[k]++
				greater1Ctx = 0
				if firstG2 < 0 {
					firstG2 = k
				}
			} else if greater1Ctx > 0 && greater1Ctx < 3 {
				greater1Ctx++
			}
		}
		if firstG2 >= 0 {
			inc := ctxSet
			if c > 0 {
				inc += 4
			}
			absLvl[firstG2] += cab.DecodeBit(&s.ctx[cabac.CoeffAbsLevelGreater2Flag+inc])
		}

		signHidden := signHidingAllowed && sigPos[0]-sigPos[numSig-1] > 3
		nSigns := numSig
		if signHidden {
			nSigns--
		}
		signs := cab.DecodeBypassBits(nSigns) << uint(32-nSigns)

		// coeff_abs_level_remaining
		rice := 0
		for k := 0; k < numSig; k++ {
			base := 1
			if k < 8 {
				base = 2
				if k == firstG2 {
					base = 3
				}
			}
			if absLvl[k] == base {
				absLvl[k] += cab.DecodeCoeffAbsLevelRemaining(rice)
				if absLvl[k] > 3*(1<<uint(rice)) {
					rice = minInt(rice+1, 4)
				}
			}
		}

		sum := 0
		for k := 0; k < numSig; k++ {
			p := scanPos[sigPos[k]]
			x, y := xS<<2+int(p.X), yS<<2+int(p.Y)
			v := absLvl[k]
			sum += v
			if k < nSigns {
				if signs&0x80000000 != 0 {
					v = -v
				}
				signs <<= 1
			} else if sum&1 == 1 {
				v = -v
			}
			coeff[y*size+x] = int32(v)
		}
	}
	return
}

// sigCoeffCtx derives ctxInc of sig_coeff_flag (9.3.4.2.5).
func (s *sliceDecoder) sigCoeffCtx(c, log2, scanIdx, xS, yS, xP, yP, prevCsbf int) int {
	var sigCtx int
	switch {
	case log2 == 2:
		sigCtx = ctxIdxMap[yP<<2+xP]
	case xS == 0 && yS == 0 && xP == 0 && yP == 0:
		sigCtx = 0
	default:
		switch prevCsbf {
		case 0:
			switch {
			case xP+yP == 0:
				sigCtx = 2
			case xP+yP < 3:
				sigCtx = 1
			}
		case 1:
			sigCtx = 2 - minInt(yP, 2)
		case 2:
			sigCtx = 2 - minInt(xP, 2)
		default:
			sigCtx = 2
		}

		if c == 0 {
			if xS > 0 || yS > 0 {
				sigCtx += 3
			}
			if log2 == 3 {
				if scanIdx == hevc.ScanDiag {
					sigCtx += 9
				} else {
					sigCtx += 15
				}
			} else {
				sigCtx += 21
			}
		} else {
			if log2 == 3 {
				sigCtx += 9
			} else {
				sigCtx += 12
			}
		}
	}

	if c > 0 {
		return 27 + sigCtx
	}
	return sigCtx
}
