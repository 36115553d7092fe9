// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package decoder reconstructs pictures from an H.265/HEVC Annex-B stream.
//
// Compressed bytes are pushed with DecodeData in chunks of any size.
// Decoded pictures leave in output order through PeekNextPicture,
// GetNextPicture and ReleaseNextPicture.
package decoder

import (
	"sync/atomic"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/cabac"
	"github.com/cnotch/xlog"
	"github.com/pkg/errors"
)

var decoderIDSeed int32

// Stats counts the work done by a decoder.
type Stats struct {
	NalUnits       int // units consumed
	Skipped        int // slices skipped: RASL or before the first IRAP
	Decoded        int // pictures stored in the DPB
	Output         int // pictures moved to the output queue
	Aborted        int // pictures dropped after a decoding fault
	MissingRefs    int // generated substitutes of missing references
	HashMismatches int
}

// Decoder decodes one H.265/HEVC elementary stream. It is not safe for
// concurrent use.
type Decoder struct {
	id         int32
	logger     *xlog.Logger
	numWorkers int
	workers    *workerPool
	pool       *picturePool
	params     [numParams]bool

	parser   hevc.NalParser
	sets     hevc.ParamSets
	flushing bool

	// 当前图像的解码状态
	cur          *Picture
	curAborted   bool
	prevSlice    *hevc.SliceHeader
	pendingHash  *hevc.PictureHash
	firstPicture bool // the next picture starts a coded video sequence
	skipRasl     bool // RASL pictures of the last IRAP are not decodable
	prevTid0Poc  int
	rps          refPicSets
	slice        sliceDecoder

	wppCtx   cabac.ContextSet
	wppValid bool
	dsCtx    cabac.ContextSet
	dsQpY    int
	saoBuf   [3][]uint8

	dpb    []*Picture // decoded pictures with a buffer
	output []*Picture // output queue
	held   []*Picture // taken by GetNextPicture, not yet released
	stats  Stats
}

// NewDecoder creates a decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		id:           atomic.AddInt32(&decoderIDSeed, 1),
		pool:         newPicturePool(),
		firstPicture: true,
	}
	d.logger = xlog.L().With(xlog.Fields(xlog.F("decoder", d.id)))

	for _, opt := range opts {
		opt.apply(d)
	}

	d.workers = newWorkerPool(d.numWorkers, d.logger)
	return d
}

// Close stops the filter workers and drops every picture. The decoder
// must not be used afterwards.
func (d *Decoder) Close() {
	d.workers.close()
	d.parser.Reset()
	d.sets.Reset()
	d.cur, d.prevSlice, d.pendingHash = nil, nil, nil
	d.dpb, d.output, d.held = nil, nil, nil
	d.pool.clear()
}

// SetParameterBool sets a boolean decoding parameter.
func (d *Decoder) SetParameterBool(p Param, v bool) {
	if p >= 0 && p < numParams {
		d.params[p] = v
	}
}

// GetParameterBool returns a boolean decoding parameter.
func (d *Decoder) GetParameterBool(p Param) bool {
	if p >= 0 && p < numParams {
		return d.params[p]
	}
	return false
}

// Stats returns the decoding counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// PendingUnits returns the number of complete NAL units not yet decoded.
// They stay pending while the DPB is full of pictures the client did not
// release.
func (d *Decoder) PendingUnits() int {
	return d.parser.Len()
}

// DecodeData pushes compressed bytes and decodes every complete NAL unit.
// An empty data flushes the stream: the last unit is decoded and every
// remaining picture is output.
//
// Faults local to a picture drop that picture and are returned after the
// remaining units have been decoded. The decoder stays usable.
func (d *Decoder) DecodeData(data []byte) error {
	d.flushing = len(data) == 0
	if err := d.parser.Push(data); err != nil {
		return errors.Cause(err)
	}

	var first error
	for {
		nal := d.parser.Peek()
		if nal == nil {
			break
		}

		blocked, err := d.decodeNal(nal)
		if err != nil && first == nil {
			first = err
		}
		if blocked {
			if d.logger.LevelEnabled(xlog.DebugLevel) {
				d.logger.Debugf("dpb full, %d units pending", d.parser.Len())
			}
			return errors.Cause(first)
		}
		d.parser.Next()
		d.stats.NalUnits++
	}

	if d.flushing {
		d.flushing = false
		if err := d.finishPicture(); err != nil && first == nil {
			first = err
		}
		d.bumpAll()
	}
	return errors.Cause(first)
}

// decodeNal decodes one unit. blocked reports that the unit has to wait
// until the client releases pictures.
func (d *Decoder) decodeNal(nal *hevc.Nal) (blocked bool, err error) {
	if nal.LayerID > 0 {
		return false, nil
	}
	if d.logger.LevelEnabled(xlog.DebugLevel) {
		d.logger.Debugf("nal unit type %d, %d bytes", nal.Type, len(nal.Data))
	}

	switch {
	case nal.Type <= hevc.NalRsvVcl31:
		if (nal.Type > hevc.NalRaslR && nal.Type < hevc.NalBlaWLp) || nal.Type > hevc.NalCraNut {
			return false, nil // 保留类型
		}
		return d.decodeSlice(nal)

	case nal.Type == hevc.NalVps || nal.Type == hevc.NalSps || nal.Type == hevc.NalPps:
		if err = d.sets.Put(nal); err != nil {
			d.logger.Warnf("drop parameter set: %v", err)
		}
		return false, err

	case nal.Type == hevc.NalSeiPrefix || nal.Type == hevc.NalSeiSuffix:
		d.decodeSEI(nal)

	case nal.Type == hevc.NalAud:
		err = d.finishPicture()

	case nal.Type == hevc.NalEosNut || nal.Type == hevc.NalEobNut:
		err = d.finishPicture()
		d.bumpAll()
		d.firstPicture = true
		d.prevSlice = nil
	}
	return false, err
}

func (d *Decoder) decodeSEI(nal *hevc.Nal) {
	if !d.params[ParamSEICheckHash] {
		return
	}
	hash, err := hevc.DecodeSEI(nal)
	if err != nil {
		d.logger.Warnf("drop sei: %v", err)
		return
	}
	if hash == nil {
		return
	}

	// 哈希 SEI 属于当前图像，前缀 SEI 则属于下一幅图像
	if nal.Type == hevc.NalSeiSuffix && d.cur != nil {
		d.cur.hash = hash
		return
	}
	d.pendingHash = hash
}

func (d *Decoder) decodeSlice(nal *hevc.Nal) (blocked bool, err error) {
	sh := &hevc.SliceHeader{}
	if err = sh.Decode(nal, &d.sets, d.prevSlice); err != nil {
		d.logger.Warnf("drop slice segment: %v", err)
		if sh.FirstSliceSegmentInPic {
			d.finishPicture()
		} else if d.cur != nil {
			d.abort()
		}
		return false, err
	}

	if sh.FirstSliceSegmentInPic {
		// 先完成上一幅图像，其错误优先返回
		ferr := d.finishPicture()
		var started bool
		started, blocked, err = d.openPicture(nal, sh)
		if ferr != nil {
			err = ferr
		}
		if !started {
			return blocked, err
		}
	} else if d.cur == nil || d.curAborted {
		return false, nil
	} else if d.sets.PPS[sh.PPSID] != d.cur.pps {
		d.abort()
		return false, errors.Wrapf(hevc.ErrInvalidParameterSet, "pps %d changed inside a picture", sh.PPSID)
	}

	if serr := d.decodeSegment(nal, sh); serr != nil && err == nil {
		err = serr
	}
	return false, err
}

// openPicture activates the parameter sets of a first slice segment and
// starts its picture. started is false for skipped pictures.
func (d *Decoder) openPicture(nal *hevc.Nal, sh *hevc.SliceHeader) (started, blocked bool, err error) {
	sps, pps, err := d.sets.Activate(sh.PPSID)
	if err != nil {
		d.logger.Warnf("drop picture: %v", err)
		return false, false, err
	}
	if (nal.IsRASL() && d.skipRasl) || (d.firstPicture && !nal.IsIRAP()) {
		d.stats.Skipped++
		d.prevSlice = nil
		return false, false, nil
	}

	blocked, err = d.startPicture(nal, sh, sps, pps)
	return !blocked, blocked, err
}

// decodeSegment decodes one slice segment into the current picture. A
// fault aborts the picture.
func (d *Decoder) decodeSegment(nal *hevc.Nal, sh *hevc.SliceHeader) error {
	pic := d.cur
	si := &sliceInfo{header: sh}
	if err := d.buildRefLists(si); err != nil {
		d.logger.Errorf("abort picture POC %d: %v", pic.poc, err)
		d.abort()
		return err
	}
	pic.slices = append(pic.slices, si)
	d.prevSlice = sh

	d.slice.setup(d, pic, si, len(pic.slices)-1, nal)
	if err := d.slice.decode(); err != nil {
		d.logger.Errorf("abort picture POC %d: %v", pic.poc, err)
		d.abort()
		return err
	}
	return nil
}

// abort drops the current picture when it is finished.
func (d *Decoder) abort() {
	d.curAborted = true
	d.prevSlice = nil
}

// startPicture prepares the DPB for a new picture and allocates it
// (8.1.3, C.5.2.2). It reports blocked when the DPB holds no free slot
// until the client releases output pictures.
func (d *Decoder) startPicture(nal *hevc.Nal, sh *hevc.SliceHeader, sps *hevc.SPS, pps *hevc.PPS) (blocked bool, err error) {
	irap := nal.IsIRAP()
	noRaslOutput := irap && (nal.IsIDR() || nal.IsBLA() || d.firstPicture)
	poc := d.picOrderCnt(nal, sh, sps, noRaslOutput)

	if irap && noRaslOutput {
		if !d.firstPicture {
			if sh.NoOutputOfPriorPics || nal.IsCRA() {
				for _, p := range d.dpb {
					p.outputNeeded = false
				}
			} else {
				d.bumpAll()
			}
		}
		d.applyRps(nal, sh, sps, pps, poc, true)
	} else if missing := d.applyRps(nal, sh, sps, pps, poc, false); missing > 0 {
		err = errors.Wrapf(hevc.ErrChecksumMismatch, "%d reference pictures missing for POC %d", missing, poc)
	}

	d.bumpForOutput(sps, true)
	if d.occupancy() >= sps.MaxDecPicBuffering[sps.HighestTid()] {
		if len(d.output) > 0 {
			return true, err
		}
		d.logger.Warnf("dpb overflow at POC %d, %d pictures held", poc, len(d.held))
	}

	if d.firstPicture {
		d.logger.Infof("coded video sequence starts: %dx%d %s, POC %d",
			sps.Width, sps.Height, sps.ChromaFormat(), poc)
	}
	d.firstPicture = false

	pic := d.pool.acquire(sps, pps)
	pic.poc = poc
	pic.nal = nal.NalHeader
	pic.picOutput = sh.PicOutput
	if irap {
		d.skipRasl = noRaslOutput
	}
	if nal.TemporalID == 0 && !nal.IsRASL() && !nal.IsRADL() && !nal.IsSubLayerNonReference() {
		d.prevTid0Poc = poc
	}

	pic.hash, d.pendingHash = d.pendingHash, nil
	d.wppValid = false
	d.cur = pic
	d.curAborted = false
	return false, err
}
