// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/pkg/errors"
)

// refPicSets holds RefPicSetStCurrBefore, RefPicSetStCurrAfter and
// RefPicSetLtCurr of the current picture.
type refPicSets struct {
	stCurrBefore []*Picture
	stCurrAfter  []*Picture
	ltCurr       []*Picture
}

func (r *refPicSets) reset() {
	r.stCurrBefore = r.stCurrBefore[:0]
	r.stCurrAfter = r.stCurrAfter[:0]
	r.ltCurr = r.ltCurr[:0]
}

func (r *refPicSets) total() int {
	return len(r.stCurrBefore) + len(r.stCurrAfter) + len(r.ltCurr)
}

// picOrderCnt derives PicOrderCntVal (8.3.1).
func (d *Decoder) picOrderCnt(nal *hevc.Nal, sh *hevc.SliceHeader, sps *hevc.SPS, noRaslOutput bool) int {
	maxLsb := sps.MaxPocLsb
	lsb := sh.PocLsb
	if nal.IsIRAP() && noRaslOutput {
		return lsb
	}

	prevLsb := d.prevTid0Poc & (maxLsb - 1)
	prevMsb := d.prevTid0Poc - prevLsb
	msb := prevMsb
	switch {
	case lsb < prevLsb && prevLsb-lsb >= maxLsb/2:
		msb = prevMsb + maxLsb
	case lsb > prevLsb && lsb-prevLsb > maxLsb/2:
		msb = prevMsb - maxLsb
	}
	return msb + lsb
}

type ltEntry struct {
	poc  int
	msb  bool // delta_poc_msb_present_flag
	curr bool
}

// applyRps performs the reference picture set marking (8.3.2) and fills
// d.rps. Missing pictures of the current lists are replaced with generated
// ones (8.3.3); the number of replacements is returned.
func (d *Decoder) applyRps(nal *hevc.Nal, sh *hevc.SliceHeader, sps *hevc.SPS, pps *hevc.PPS, poc int, noRaslOutput bool) (missing int) {
	d.rps.reset()
	if nal.IsIRAP() && noRaslOutput {
		for _, p := range d.dpb {
			p.ref = unusedForReference
		}
		d.evict()
		return 0
	}

	maxLsb := sps.MaxPocLsb
	kept := make(map[*Picture]bool, len(d.dpb))

	// long-term pictures first
	var lts [hevc.MaxLongTermRefPics]ltEntry
	numLt := sh.NumLongTermSps + sh.NumLongTermPics
	for i := 0; i < numLt; i++ {
		e := ltEntry{poc: sh.PocLsbLt[i], msb: sh.DeltaPocMsbPresent[i], curr: sh.UsedByCurrPicLt[i]}
		if e.msb {
			e.poc += poc - sh.DeltaPocMsbCycleLt[i]*maxLsb - (poc & (maxLsb - 1))
		}
		lts[i] = e
	}
	for i := 0; i < numLt; i++ {
		e := lts[i]
		var found *Picture
		for _, p := range d.dpb {
			if p.ref == unusedForReference {
				continue
			}
			if (e.msb && p.poc == e.poc) || (!e.msb && p.poc&(maxLsb-1) == e.poc) {
				found = p
				break
			}
		}
		if found == nil && e.curr {
			found = d.generateMissing(sps, pps, e.poc, longTermReference)
			missing++
		}
		if found == nil {
			continue
		}
		found.ref = longTermReference
		kept[found] = true
		if e.curr {
			d.rps.ltCurr = append(d.rps.ltCurr, found)
		}
	}

	// short-term pictures
	shortTerm := func(poc int, curr bool) *Picture {
		for _, p := range d.dpb {
			if p.ref == shortTermReference && p.poc == poc && !kept[p] {
				kept[p] = true
				return p
			}
		}
		if !curr {
			return nil
		}
		missing++
		p := d.generateMissing(sps, pps, poc, shortTermReference)
		kept[p] = true
		return p
	}
	rps := &sh.StRps
	for i := 0; i < rps.NumNegative; i++ {
		p := shortTerm(poc+int(rps.DeltaPocS0[i]), rps.UsedS0[i])
		if p != nil && rps.UsedS0[i] {
			d.rps.stCurrBefore = append(d.rps.stCurrBefore, p)
		}
	}
	for i := 0; i < rps.NumPositive; i++ {
		p := shortTerm(poc+int(rps.DeltaPocS1[i]), rps.UsedS1[i])
		if p != nil && rps.UsedS1[i] {
			d.rps.stCurrAfter = append(d.rps.stCurrAfter, p)
		}
	}

	for _, p := range d.dpb {
		if !kept[p] {
			p.ref = unusedForReference
		}
	}
	d.evict()
	return missing
}

// generateMissing creates a grey reference picture for a POC the RPS names
// but the DPB lacks (8.3.3.2).
func (d *Decoder) generateMissing(sps *hevc.SPS, pps *hevc.PPS, poc int, ref refMark) *Picture {
	p := d.pool.acquire(sps, pps)
	p.fill(128)
	for i := range p.blocks {
		p.blocks[i].predMode = modeIntra
	}
	p.poc = poc
	p.ref = ref
	p.substitute = true
	d.dpb = append(d.dpb, p)

	d.stats.MissingRefs++
	d.logger.Warnf("reference picture POC %d missing, generated a substitute", poc)
	return p
}

// buildRefLists constructs RefPicList0 and RefPicList1 of a P or B slice
// (8.3.4).
func (d *Decoder) buildRefLists(si *sliceInfo) error {
	sh := si.header
	if sh.IsIntra() {
		return nil
	}
	total := d.rps.total()
	if total == 0 {
		return errors.Wrap(hevc.ErrInvalidParameterSet, "inter slice without reference pictures")
	}

	type entry struct {
		pic *Picture
		lt  bool
	}
	lists := 1
	if sh.IsB() {
		lists = 2
	}
	for l := 0; l < lists; l++ {
		num := maxInt(sh.NumRefIdxActive[l], total)
		sets := [2][]*Picture{d.rps.stCurrBefore, d.rps.stCurrAfter}
		if l == 1 {
			sets[0], sets[1] = sets[1], sets[0]
		}

		temp := make([]entry, 0, num+total)
		for len(temp) < num {
			for _, set := range sets {
				for _, p := range set {
					temp = append(temp, entry{pic: p})
				}
			}
			for _, p := range d.rps.ltCurr {
				temp = append(temp, entry{pic: p, lt: true})
			}
		}

		for i := 0; i < sh.NumRefIdxActive[l]; i++ {
			idx := i
			if sh.RefPicListModFlag[l] {
				idx = sh.ListEntry[l][i]
			}
			if idx >= len(temp) {
				return errors.Wrapf(hevc.ErrInvalidParameterSet, "list_entry_l%d %d out of range", l, idx)
			}
			e := temp[idx]
			si.refs[l][i] = e.pic
			si.refPOC[l][i] = e.pic.poc
			si.refLT[l][i] = e.lt
		}
	}
	return nil
}
