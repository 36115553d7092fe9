// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cnotch/hevcdec/stats"
	"github.com/cnotch/queue"
	"github.com/cnotch/xlog"
)

// Sink 帧输出接口。Consume 在输出自己的协程中按输出顺序调用。
type Sink interface {
	Consume(f *Frame) error
	io.Closer
}

// endOfStream 通知输出协程处理完队列后退出
type endOfStream struct{}

// consumption 一个输出的消费过程
type consumption struct {
	startOn   time.Time        // 启动时间
	hub       *Hub             // 帧来源
	cid       CID              // 消费ID
	sink      Sink             // 输出
	sinkType  SinkType         // 输出类型
	extra     string           // 输出额外信息
	recvQueue *queue.SyncQueue // 接收帧的队列
	closed    bool             // 是否关闭
	err       error            // 第一个输出错误
	pending   int64            // 排队的帧数
	done      sync.WaitGroup   // 输出协程退出
	Flow      stats.Flow       // 流量统计
	logger    *xlog.Logger     // 日志对象
}

func (c *consumption) ID() CID {
	return c.cid
}

// Close 立即停止输出，队列中剩余的帧被丢弃
func (c *consumption) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true
	c.recvQueue.Signal()
	return nil
}

// finish 处理完已排队的帧后停止输出，并等待输出协程退出
func (c *consumption) finish() error {
	c.recvQueue.Push(endOfStream{})
	c.done.Wait()
	return c.err
}

// 向输出发送帧
func (c *consumption) send(f *Frame) {
	atomic.AddInt64(&c.pending, 1)
	stats.QueuedFrames.Add()
	c.recvQueue.Push(f)
	c.Flow.AddIn(int64(f.Size()))
}

func (c *consumption) consume() {
	defer func() {
		defer func() { // 避免 handler 再 panic
			recover()
		}()

		if r := recover(); r != nil {
			c.logger.Errorf("consume routine panic；r = %v \n %s", r, debug.Stack())
		}

		// 停止消费
		c.hub.StopConsume(c.cid)
		if err := c.sink.Close(); err != nil && c.err == nil {
			c.err = err
		}
		c.release()
		c.done.Done()
	}()

	for !c.closed {
		p := c.recvQueue.Pop()
		if p == nil {
			if !c.closed {
				c.logger.Warn("receive nil frame")
			}
			continue
		}
		if _, ok := p.(endOfStream); ok {
			return
		}

		f := p.(*Frame)
		atomic.AddInt64(&c.pending, -1)
		stats.QueuedFrames.Release()
		if c.err != nil {
			continue
		}
		if err := c.sink.Consume(f); err != nil {
			c.err = err
			c.logger.Errorf("sink failed at POC %d: %v", f.POC, err)
			continue
		}
		c.Flow.AddOut(int64(f.Size()))
	}
}

// release 丢弃队列中剩余的帧
func (c *consumption) release() {
	for n := atomic.SwapInt64(&c.pending, 0); n > 0; n-- {
		stats.QueuedFrames.Release()
	}

	// 尽早通知GC，回收内存
	c.recvQueue.Reset()
	c.hub = nil
}

// ConsumptionInfo 输出信息
type ConsumptionInfo struct {
	ID       uint32           `json:"id"`
	StartOn  string           `json:"start_on"`
	SinkType string           `json:"sink_type"`
	Extra    string           `json:"extra"`
	Flow     stats.FlowSample `json:"flow"` // 转换成 K
}

// Info 获取输出信息
func (c *consumption) Info() ConsumptionInfo {
	flow := c.Flow.GetSample()
	flow.InBytes /= 1024
	flow.OutBytes /= 1024

	return ConsumptionInfo{
		ID:       uint32(c.cid),
		StartOn:  c.startOn.Format(time.RFC3339Nano),
		SinkType: c.sinkType.String(),
		Extra:    c.extra,
		Flow:     flow,
	}
}
