// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cabac

// Context index offsets of each syntax element in a ContextSet.
const (
	SaoMergeFlag              = 0
	SaoTypeIdx                = SaoMergeFlag + 1
	SplitCuFlag               = SaoTypeIdx + 1
	CuTransquantBypassFlag    = SplitCuFlag + 3
	CuSkipFlag                = CuTransquantBypassFlag + 1
	PredModeFlag              = CuSkipFlag + 3
	PartMode                  = PredModeFlag + 1
	PrevIntraLumaPredFlag     = PartMode + 4
	IntraChromaPredMode       = PrevIntraLumaPredFlag + 1
	RqtRootCbf                = IntraChromaPredMode + 1
	MergeFlag                 = RqtRootCbf + 1
	MergeIdx                  = MergeFlag + 1
	InterPredIdc              = MergeIdx + 1
	RefIdx                    = InterPredIdc + 5
	MvpFlag                   = RefIdx + 2
	SplitTransformFlag        = MvpFlag + 1
	CbfLuma                   = SplitTransformFlag + 3
	CbfChroma                 = CbfLuma + 2
	TransformSkipFlag         = CbfChroma + 5
	LastSigCoeffXPrefix       = TransformSkipFlag + 2
	LastSigCoeffYPrefix       = LastSigCoeffXPrefix + 18
	CodedSubBlockFlag         = LastSigCoeffYPrefix + 18
	SigCoeffFlag              = CodedSubBlockFlag + 4
	CoeffAbsLevelGreater1Flag = SigCoeffFlag + 42
	CoeffAbsLevelGreater2Flag = CoeffAbsLevelGreater1Flag + 24
	CuQpDeltaAbs              = CoeffAbsLevelGreater2Flag + 6
	AbsMvdGreater0Flag        = CuQpDeltaAbs + 2
	AbsMvdGreater1Flag        = AbsMvdGreater0Flag + 1
	NumContexts               = AbsMvdGreater1Flag + 1
)

// ContextSet holds every context variable of a slice segment.
type ContextSet [NumContexts]Context

// Init initialises all contexts for initType (0 for I slices, 1 and 2 for
// P and B) and the slice QP (9.3.2.2).
func (cs *ContextSet) Init(initType, qp int) {
	if qp < 0 {
		qp = 0
	} else if qp > 51 {
		qp = 51
	}

	for i, iv := range initValues[initType] {
		cs[i] = initContext(int(iv), qp)
	}
}

func initContext(initValue, qp int) Context {
	slope := (initValue>>4)*5 - 45
	offset := ((initValue & 15) << 3) - 16
	pre := ((slope * qp) >> 4) + offset
	if pre < 1 {
		pre = 1
	} else if pre > 126 {
		pre = 126
	}

	if pre <= 63 {
		return Context{State: uint8(63 - pre), MPS: 0}
	}
	return Context{State: uint8(pre - 64), MPS: 1}
}

// 未在 I 条带中出现的语法元素使用 154
const cnu = 154

type elementInit struct {
	offset int
	values [3][]uint8
}

var elementInits = []elementInit{
	{SaoMergeFlag, [3][]uint8{{153}, {153}, {153}}},
	{SaoTypeIdx, [3][]uint8{{200}, {185}, {160}}},
	{SplitCuFlag, [3][]uint8{{139, 141, 157}, {107, 139, 126}, {107, 139, 126}}},
	{CuTransquantBypassFlag, [3][]uint8{{154}, {154}, {154}}},
	{CuSkipFlag, [3][]uint8{{cnu, cnu, cnu}, {197, 185, 201}, {197, 185, 201}}},
	{PredModeFlag, [3][]uint8{{cnu}, {149}, {134}}},
	{PartMode, [3][]uint8{{184, cnu, cnu, cnu}, {154, 139, 154, 154}, {154, 139, 154, 154}}},
	{PrevIntraLumaPredFlag, [3][]uint8{{184}, {154}, {183}}},
	{IntraChromaPredMode, [3][]uint8{{63}, {152}, {152}}},
	{RqtRootCbf, [3][]uint8{{cnu}, {79}, {79}}},
	{MergeFlag, [3][]uint8{{cnu}, {110}, {154}}},
	{MergeIdx, [3][]uint8{{cnu}, {122}, {137}}},
	{InterPredIdc, [3][]uint8{{cnu, cnu, cnu, cnu, cnu}, {95, 79, 63, 31, 31}, {95, 79, 63, 31, 31}}},
	{RefIdx, [3][]uint8{{cnu, cnu}, {153, 153}, {153, 153}}},
	{MvpFlag, [3][]uint8{{cnu}, {168}, {168}}},
	{SplitTransformFlag, [3][]uint8{{153, 138, 138}, {124, 138, 94}, {224, 167, 122}}},
	{CbfLuma, [3][]uint8{{111, 141}, {153, 111}, {153, 111}}},
	{CbfChroma, [3][]uint8{
		{94, 138, 182, 154, 154},
		{149, 107, 167, 154, 154},
		{149, 92, 167, 154, 154},
	}},
	{TransformSkipFlag, [3][]uint8{{139, 139}, {139, 139}, {139, 139}}},
	{LastSigCoeffXPrefix, lastSigCoeffPrefixInit},
	{LastSigCoeffYPrefix, lastSigCoeffPrefixInit},
	{CodedSubBlockFlag, [3][]uint8{{91, 171, 134, 141}, {121, 140, 61, 154}, {121, 140, 61, 154}}},
	{SigCoeffFlag, [3][]uint8{
		{
			111, 111, 125, 110, 110, 94, 124, 108, 124, 107, 125, 141, 179, 153,
			125, 107, 125, 141, 179, 153, 125, 107, 125, 141, 179, 153, 125, 140,
			139, 182, 182, 152, 136, 152, 136, 153, 136, 139, 111, 136, 139, 111,
		},
		{
			155, 154, 139, 153, 139, 123, 123, 63, 153, 166, 183, 140, 136, 153,
			154, 166, 183, 140, 136, 153, 154, 166, 183, 140, 136, 153, 154, 170,
			153, 123, 123, 107, 121, 107, 121, 167, 151, 183, 140, 151, 183, 140,
		},
		{
			170, 154, 139, 153, 139, 123, 123, 63, 124, 166, 183, 140, 136, 153,
			154, 166, 183, 140, 136, 153, 154, 166, 183, 140, 136, 153, 154, 170,
			153, 138, 138, 122, 121, 122, 121, 167, 151, 183, 140, 151, 183, 140,
		},
	}},
	{CoeffAbsLevelGreater1Flag, [3][]uint8{
		{
			140, 92, 137, 138, 140, 152, 138, 139, 153, 74, 149, 92,
			139, 107, 122, 152, 140, 179, 166, 182, 140, 227, 122, 197,
		},
		{
			154, 196, 196, 167, 154, 152, 167, 182, 182, 134, 149, 136,
			153, 121, 136, 137, 169, 194, 166, 167, 154, 167, 137, 182,
		},
		{
			154, 196, 167, 167, 154, 152, 167, 182, 182, 134, 149, 136,
			153, 121, 136, 122, 169, 208, 166, 167, 154, 152, 167, 182,
		},
	}},
	{CoeffAbsLevelGreater2Flag, [3][]uint8{
		{138, 153, 136, 167, 152, 152},
		{107, 167, 91, 122, 107, 167},
		{107, 167, 91, 107, 107, 167},
	}},
	{CuQpDeltaAbs, [3][]uint8{{154, 154}, {154, 154}, {154, 154}}},
	{AbsMvdGreater0Flag, [3][]uint8{{cnu}, {140}, {169}}},
	{AbsMvdGreater1Flag, [3][]uint8{{cnu}, {198}, {198}}},
}

var lastSigCoeffPrefixInit = [3][]uint8{
	{110, 110, 124, 125, 140, 153, 125, 127, 140, 109, 111, 143, 127, 111, 79, 108, 123, 63},
	{125, 110, 94, 110, 95, 79, 125, 111, 110, 78, 110, 111, 111, 95, 94, 108, 123, 108},
	{125, 110, 124, 110, 95, 94, 125, 111, 111, 79, 125, 126, 111, 111, 79, 108, 123, 93},
}

var initValues [3][NumContexts]uint8

func init() {
	for _, e := range elementInits {
		for t := 0; t < 3; t++ {
			copy(initValues[t][e.offset:], e.values[t])
		}
	}
}
