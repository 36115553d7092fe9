// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"sync/atomic"
)

// SinkType 输出类型
type SinkType uint32

// 预定义输出类型
const (
	YUVSink SinkType = iota // 原始平面 YUV
	MD5Sink                 // 每帧的平面 MD5
	FuncSink                // 调用方提供的处理函数

	maxSinkSequence = 0x3fff_ffff
)

// CID consumer ID
// type(2bits)+sequence(30bits)
type CID uint32

// String 类型的字串表示
func (t SinkType) String() string {
	switch t {
	case YUVSink:
		return "YUV"
	case MD5Sink:
		return "MD5"
	case FuncSink:
		return "Func"
	default:
		return "Unknown"
	}
}

// NewCID 创建新的输出ID
func NewCID(sinkType SinkType, sequenceSeed *uint32) CID {
	localid := atomic.AddUint32(sequenceSeed, 1)
	if localid >= maxSinkSequence {
		localid = 1
		atomic.StoreUint32(sequenceSeed, localid)
	}
	return CID(sinkType<<30) | CID(localid&maxSinkSequence)
}

// Type 获取输出类型
func (id CID) Type() SinkType {
	return SinkType((id >> 30) & 0x3)
}

// Sequence 获取输出序号
func (id CID) Sequence() uint32 {
	return uint32(id & CID(maxSinkSequence))
}
