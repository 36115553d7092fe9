// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// yuvSink 按帧写入平面 YUV，4:0:0 只写亮度
type yuvSink struct {
	w io.WriteCloser
}

// NewYUVSink creates a sink writing raw planar frames to w. Closing the
// sink closes w.
func NewYUVSink(w io.WriteCloser) Sink {
	return &yuvSink{w: w}
}

func (s *yuvSink) Consume(f *Frame) error {
	for c := 0; c < 3; c++ {
		if f.Planes[c] == nil {
			continue
		}
		if _, err := s.w.Write(f.Planes[c]); err != nil {
			return errors.Wrapf(err, "write plane %d of POC %d", c, f.POC)
		}
	}
	return nil
}

func (s *yuvSink) Close() error {
	return s.w.Close()
}

// md5Sink 每帧输出一行平面 MD5
type md5Sink struct {
	w     io.Writer
	count int
}

// NewMD5Sink creates a sink printing one line per frame:
// its output index, POC and the MD5 of each plane.
func NewMD5Sink(w io.Writer) Sink {
	return &md5Sink{w: w}
}

func (s *md5Sink) Consume(f *Frame) error {
	sums := f.MD5()
	line := fmt.Sprintf("%d poc=%d y=%x", s.count, f.POC, sums[0])
	if f.Planes[1] != nil {
		line += fmt.Sprintf(" u=%x v=%x", sums[1], sums[2])
	}
	s.count++

	_, err := io.WriteString(s.w, line+"\n")
	return err
}

func (s *md5Sink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SinkFunc adapts a function to a sink without resources.
type SinkFunc func(f *Frame) error

// Consume calls fn(f).
func (fn SinkFunc) Consume(f *Frame) error {
	return fn(f)
}

// Close does nothing.
func (fn SinkFunc) Close() error {
	return nil
}
