// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cnotch/hevcdec/stats"
	"github.com/cnotch/queue"
	"github.com/cnotch/xlog"
)

// Hub 状态
const (
	HubOK int32 = iota
	HubClosed
)

// ErrHubClosed Hub 已关闭
var ErrHubClosed = errors.New("hub is closed")

// Hub fans decoded frames out to sinks. Every sink consumes the frames in
// its own goroutine, in the order they were written.
type Hub struct {
	status           int32 // 状态
	sinkSequenceSeed uint32
	consumptions     consumptions      // 输出列表
	attrs            map[string]string // 属性
	logger           *xlog.Logger      // 日志对象
	Flow             stats.Flow        // 所有输出的流量统计
}

// NewHub 创建新的 Hub
func NewHub(options ...Option) *Hub {
	h := &Hub{
		status: HubOK,
		attrs:  make(map[string]string, 2),
		logger: xlog.L(),
		Flow:   stats.NewFlow(),
	}

	for _, option := range options {
		option.apply(h)
	}
	return h
}

// Attr 属性
func (h *Hub) Attr(key string) string {
	return h.attrs[strings.ToLower(strings.TrimSpace(key))]
}

// WriteFrame 向所有输出发送一帧
func (h *Hub) WriteFrame(f *Frame) error {
	if atomic.LoadInt32(&h.status) != HubOK {
		return ErrHubClosed
	}

	h.consumptions.SendToAll(f)
	return nil
}

// StartConsume 开始输出
func (h *Hub) StartConsume(sink Sink, sinkType SinkType, extra string) CID {
	c := &consumption{
		startOn:   time.Now(),
		hub:       h,
		cid:       NewCID(sinkType, &h.sinkSequenceSeed),
		recvQueue: queue.NewSyncQueue(),
		sink:      sink,
		sinkType:  sinkType,
		extra:     extra,
		Flow:      stats.NewChildFlow(h.Flow),
	}

	c.logger = h.logger.With(xlog.Fields(
		xlog.F("cid", uint32(c.cid)),
		xlog.F("sinktype", c.sinkType.String()),
		xlog.F("extra", c.extra)))

	h.consumptions.Add(c)
	c.done.Add(1)
	go c.consume()

	return c.cid
}

// StopConsume 立即停止输出
func (h *Hub) StopConsume(cid CID) {
	c := h.consumptions.Remove(cid)
	if c != nil {
		c.Close()
	}
}

// ConsumerCount 输出计数
func (h *Hub) ConsumerCount() int {
	return h.consumptions.Count()
}

// Infos 输出信息
func (h *Hub) Infos() []ConsumptionInfo {
	return h.consumptions.Infos()
}

// Finish waits until every sink consumed the frames written so far, then
// closes the hub. It returns the first sink error.
func (h *Hub) Finish() error {
	if !atomic.CompareAndSwapInt32(&h.status, HubOK, HubClosed) {
		return nil
	}
	return h.consumptions.FinishAll()
}

// Close 关闭 Hub，丢弃未输出的帧
func (h *Hub) Close() error {
	if !atomic.CompareAndSwapInt32(&h.status, HubOK, HubClosed) {
		return nil
	}
	h.consumptions.RemoveAndCloseAll()
	return nil
}
