// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync/atomic"
	"time"
)

// FlowSample 流量统计采样
type FlowSample struct {
	InBytes  int64 `json:"inbytes"`  // 压缩数据
	OutBytes int64 `json:"outbytes"` // 解码后的样本数据
	Frames   int64 `json:"frames"`
}

// Flow 流量统计接口
type Flow interface {
	AddIn(size int64)      // 增加输入
	AddOut(size int64)     // 增加一帧输出
	GetSample() FlowSample // 获取当前时点采样
}

func (fs *FlowSample) clone() FlowSample {
	return FlowSample{
		InBytes:  atomic.LoadInt64(&fs.InBytes),
		OutBytes: atomic.LoadInt64(&fs.OutBytes),
		Frames:   atomic.LoadInt64(&fs.Frames),
	}
}

// Add 采样累加
func (fs *FlowSample) Add(f FlowSample) {
	fs.InBytes += f.InBytes
	fs.OutBytes += f.OutBytes
	fs.Frames += f.Frames
}

// Sub returns the flow between an earlier sample prev and fs.
func (fs FlowSample) Sub(prev FlowSample) FlowSample {
	return FlowSample{
		InBytes:  fs.InBytes - prev.InBytes,
		OutBytes: fs.OutBytes - prev.OutBytes,
		Frames:   fs.Frames - prev.Frames,
	}
}

// Rate returns the frames per second and the input kbit/s of a sample
// taken over d.
func (fs FlowSample) Rate(d time.Duration) (fps, kbps float64) {
	secs := d.Seconds()
	if secs <= 0 {
		return 0, 0
	}
	return float64(fs.Frames) / secs, float64(fs.InBytes*8) / 1000 / secs
}

type flow struct {
	sample FlowSample
}

// NewFlow 创建流量统计
func NewFlow() Flow {
	return &flow{}
}

func (r *flow) AddIn(size int64) {
	atomic.AddInt64(&r.sample.InBytes, size)
}

func (r *flow) AddOut(size int64) {
	atomic.AddInt64(&r.sample.OutBytes, size)
	atomic.AddInt64(&r.sample.Frames, 1)
}

func (r *flow) GetSample() FlowSample {
	return r.sample.clone()
}

type childFlow struct {
	flow
	parent Flow
}

// NewChildFlow 创建子流量计数，它会把自己的计数Add到parent上
func NewChildFlow(parent Flow) Flow {
	return &childFlow{
		parent: parent,
	}
}

func (r *childFlow) AddIn(size int64) {
	r.flow.AddIn(size)
	r.parent.AddIn(size)
}

func (r *childFlow) AddOut(size int64) {
	r.flow.AddOut(size)
	r.parent.AddOut(size)
}
