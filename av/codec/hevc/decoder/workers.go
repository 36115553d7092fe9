// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"runtime/debug"
	"sync"

	"github.com/cnotch/queue"
	"github.com/cnotch/xlog"
)

type task func()

// stop 通知一个工作协程退出
type stop struct{}

// workerPool runs the per CTB row filter jobs. A pool without workers runs
// every job on the calling goroutine.
type workerPool struct {
	recvQueue *queue.SyncQueue
	workers   int
	closed    bool
	pending   sync.WaitGroup // jobs of the running batch
	exited    sync.WaitGroup
	logger    *xlog.Logger
}

func newWorkerPool(workers int, logger *xlog.Logger) *workerPool {
	p := &workerPool{
		recvQueue: queue.NewSyncQueue(),
		workers:   workers,
		logger:    logger,
	}
	p.exited.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// run executes jobs and waits until all of them have finished.
func (p *workerPool) run(jobs []task) {
	if p.workers == 0 || len(jobs) == 1 {
		for _, job := range jobs {
			p.exec(job)
		}
		return
	}

	p.pending.Add(len(jobs))
	for _, job := range jobs {
		p.recvQueue.Push(job)
	}
	p.pending.Wait()
}

func (p *workerPool) exec(job task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("filter job panic；r = %v \n %s", r, debug.Stack())
		}
	}()
	job()
}

func (p *workerPool) work() {
	defer p.exited.Done()

	for {
		v := p.recvQueue.Pop()
		if v == nil {
			continue
		}
		if _, ok := v.(stop); ok {
			return
		}

		p.exec(v.(task))
		p.pending.Done()
	}
}

// close stops the workers and waits for them to exit.
func (p *workerPool) close() {
	if p.closed {
		return
	}

	p.closed = true
	for i := 0; i < p.workers; i++ {
		p.recvQueue.Push(stop{})
	}
	p.exited.Wait()

	// 尽早通知GC，回收内存
	p.recvQueue.Reset()
}
