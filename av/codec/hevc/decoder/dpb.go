// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/pkg/errors"
)

// occupancy counts the DPB pictures that still hold a buffer slot: those
// used for reference, waiting for output or waiting in the output queue.
func (d *Decoder) occupancy() int {
	n := 0
	for _, p := range d.dpb {
		if p.ref != unusedForReference || p.outputNeeded || p.queued {
			n++
		}
	}
	return n
}

func (d *Decoder) numOutputNeeded() int {
	n := 0
	for _, p := range d.dpb {
		if p.outputNeeded {
			n++
		}
	}
	return n
}

// bump moves the output-needed picture with the smallest POC to the output
// queue (C.5.2.4). It reports false when no picture waits for output.
func (d *Decoder) bump() bool {
	var next *Picture
	for _, p := range d.dpb {
		if p.outputNeeded && (next == nil || p.poc < next.poc) {
			next = p
		}
	}
	if next == nil {
		return false
	}

	next.outputNeeded = false
	next.queued = true
	d.output = append(d.output, next)
	d.stats.Output++
	return true
}

func (d *Decoder) bumpAll() {
	for d.bump() {
	}
}

// latencyExceeded reports whether some output-needed picture waited for
// SpsMaxLatencyPictures pictures.
func (d *Decoder) latencyExceeded(sps *hevc.SPS) bool {
	htid := sps.HighestTid()
	if sps.MaxLatencyIncrease[htid] == 0 {
		return false
	}
	limit := sps.MaxNumReorderPics[htid] + sps.MaxLatencyIncrease[htid] - 1
	for _, p := range d.dpb {
		if p.outputNeeded && p.latency >= limit {
			return true
		}
	}
	return false
}

// bumpForOutput outputs pictures while the reorder or latency limit is
// exceeded. With dpbFull set the occupancy limit is enforced too, leaving
// room for the next picture.
func (d *Decoder) bumpForOutput(sps *hevc.SPS, dpbFull bool) {
	htid := sps.HighestTid()
	for {
		need := d.numOutputNeeded() > sps.MaxNumReorderPics[htid] || d.latencyExceeded(sps)
		if !need && dpbFull {
			need = d.occupancy() >= sps.MaxDecPicBuffering[htid]
		}
		if !need || !d.bump() {
			return
		}
	}
}

// maybeRelease returns p to the pool once nothing refers to it any more.
func (d *Decoder) maybeRelease(p *Picture) {
	if p.ref != unusedForReference || p.outputNeeded || p.queued || p.held {
		return
	}
	for i, q := range d.dpb {
		if q == p {
			copy(d.dpb[i:], d.dpb[i+1:])
			d.dpb[len(d.dpb)-1] = nil
			d.dpb = d.dpb[:len(d.dpb)-1]
			d.pool.release(p)
			return
		}
	}
}

// evict releases every DPB picture no longer needed.
func (d *Decoder) evict() {
	for i := len(d.dpb) - 1; i >= 0; i-- {
		d.maybeRelease(d.dpb[i])
	}
}

// finishPicture runs the loop filters on the current picture and stores it
// in the DPB (C.5.2.3). An aborted picture is dropped.
func (d *Decoder) finishPicture() error {
	pic := d.cur
	if pic == nil {
		return nil
	}
	d.cur = nil
	d.rps.reset()

	if d.curAborted || len(pic.slices) == 0 {
		d.curAborted = false
		d.stats.Aborted++
		d.pool.release(pic)
		return nil
	}

	d.deblock(pic)
	d.sao(pic)
	err := d.checkHash(pic)
	pic.dropRefs()
	pic.ref = shortTermReference

	for _, p := range d.dpb {
		if p.outputNeeded {
			p.latency++
		}
	}
	if pic.picOutput {
		pic.outputNeeded = true
		pic.latency = 0
	}
	d.dpb = append(d.dpb, pic)
	d.stats.Decoded++

	d.bumpForOutput(pic.sps, false)
	return err
}

// checkHash compares the picture with its decoded picture hash SEI.
func (d *Decoder) checkHash(pic *Picture) error {
	if pic.hash == nil || !d.params[ParamSEICheckHash] {
		return nil
	}

	comps := 3
	if pic.chroma == hevc.Chroma400 {
		comps = 1
	}
	for c := 0; c < comps; c++ {
		plane, stride := pic.Plane(c)
		if pic.hash.Verify(c, plane, stride, pic.width[c], pic.height[c]) {
			continue
		}

		d.stats.HashMismatches++
		if d.params[ParamStrictHash] {
			pic.picOutput = false
		}
		d.logger.Warnf("decoded picture hash mismatch: POC %d, component %d", pic.poc, c)
		return errors.Wrapf(hevc.ErrChecksumMismatch, "POC %d component %d", pic.poc, c)
	}
	return nil
}

// PeekNextPicture returns the next picture of the output queue without
// removing it, or nil.
func (d *Decoder) PeekNextPicture() *Picture {
	if len(d.output) == 0 {
		return nil
	}
	return d.output[0]
}

// GetNextPicture removes the next picture from the output queue. The
// picture stays valid until ReleaseNextPicture releases it.
func (d *Decoder) GetNextPicture() *Picture {
	p := d.PeekNextPicture()
	if p == nil {
		return nil
	}
	d.output[0] = nil
	d.output = d.output[1:]
	p.queued = false
	p.held = true
	d.held = append(d.held, p)
	return p
}

// ReleaseNextPicture releases the oldest picture taken by GetNextPicture.
// Without such a picture it drops the head of the output queue.
func (d *Decoder) ReleaseNextPicture() {
	var p *Picture
	switch {
	case len(d.held) > 0:
		p = d.held[0]
		d.held[0] = nil
		d.held = d.held[1:]
		p.held = false
	case len(d.output) > 0:
		p = d.output[0]
		d.output[0] = nil
		d.output = d.output[1:]
		p.queued = false
	default:
		return
	}
	d.maybeRelease(p)
}
