// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

// NalParser splits an Annex-B byte stream into NAL units.
//
// Input may be pushed in arbitrary chunks. A unit is complete when the next
// start code is seen, or when the stream is flushed with an empty push.
type NalParser struct {
	buf     []byte // carry-over bytes, begins after a start code once started
	scan    int    // position in buf where the start code search resumes
	started bool
	units   []*Nal
	head    int
	// BadUnits counts units dropped because their header is malformed.
	BadUnits int
}

// Push appends data to the stream. A zero-length push flushes the
// buffered partial unit as the final unit of the stream.
func (p *NalParser) Push(data []byte) error {
	if len(data) == 0 {
		p.Flush()
		return nil
	}

	p.buf = append(p.buf, data...)
	var err error
	if !p.started {
		err = p.findFirstStartCode()
		if !p.started {
			return err
		}
	}

	from := 0
	for {
		i := indexStartCode(p.buf, p.scan)
		if i < 0 {
			break
		}

		p.emit(p.buf[from:i])
		from = i + 3
		p.scan = from
	}

	// 压缩缓冲区，保留未完成的 NAL
	if from > 0 {
		n := copy(p.buf, p.buf[from:])
		p.buf = p.buf[:n]
		p.scan -= from
	}
	if p.scan < len(p.buf)-2 {
		p.scan = len(p.buf) - 2
	}
	if p.scan < 0 {
		p.scan = 0
	}
	return err
}

// Flush emits the buffered partial unit and resets the start code search.
func (p *NalParser) Flush() {
	if p.started && len(p.buf) > 0 {
		p.emit(p.buf)
	}
	p.buf = p.buf[:0]
	p.scan = 0
	p.started = false
}

// Next returns the next complete unit, or nil.
func (p *NalParser) Next() *Nal {
	if p.head >= len(p.units) {
		return nil
	}
	nal := p.units[p.head]
	p.units[p.head] = nil
	p.head++
	if p.head == len(p.units) {
		p.units = p.units[:0]
		p.head = 0
	}
	return nal
}

// Peek returns the next complete unit without consuming it.
func (p *NalParser) Peek() *Nal {
	if p.head >= len(p.units) {
		return nil
	}
	return p.units[p.head]
}

// Len returns the number of complete units not yet consumed.
func (p *NalParser) Len() int {
	return len(p.units) - p.head
}

// BufferedBytes returns the size of the incomplete trailing unit.
func (p *NalParser) BufferedBytes() int {
	return len(p.buf)
}

// Reset drops all buffered data and units.
func (p *NalParser) Reset() {
	p.buf = p.buf[:0]
	p.scan = 0
	p.started = false
	for i := range p.units {
		p.units[i] = nil
	}
	p.units = p.units[:0]
	p.head = 0
}

func (p *NalParser) findFirstStartCode() error {
	i := indexStartCode(p.buf, 0)
	if i >= 0 {
		n := copy(p.buf, p.buf[i+3:])
		p.buf = p.buf[:n]
		p.scan = 0
		p.started = true
		return nil
	}
	if len(p.buf) < 4 {
		return nil
	}

	// 只保留可能是起始码前缀的零字节
	garbage := false
	keep := 0
	for j := len(p.buf) - 1; j >= 0 && p.buf[j] == 0 && keep < 2; j-- {
		keep++
	}
	for _, b := range p.buf[:len(p.buf)-keep] {
		if b != 0 {
			garbage = true
			break
		}
	}
	n := copy(p.buf, p.buf[len(p.buf)-keep:])
	p.buf = p.buf[:n]
	if garbage {
		return ErrNoStartCode
	}
	return nil
}

func (p *NalParser) emit(escaped []byte) {
	// trailing_zero_8bits 以及四字节起始码的首个零字节
	end := len(escaped)
	for end > 0 && escaped[end-1] == 0 {
		end--
	}
	if end == 0 {
		return
	}

	nal, err := NewNal(escaped[:end])
	if err != nil {
		p.BadUnits++
		return
	}
	p.units = append(p.units, nal)
}

// indexStartCode returns the index of the first 0x000001 at or after from.
func indexStartCode(b []byte, from int) int {
	for i := from; i+2 < len(b); {
		switch {
		case b[i+2] > 1:
			i += 3
		case b[i+2] == 1:
			if b[i] == 0 && b[i+1] == 0 {
				return i
			}
			i += 3
		default: // b[i+2] == 0
			i++
		}
	}
	return -1
}
