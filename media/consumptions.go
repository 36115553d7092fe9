// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"sort"
	"sync"
	"sync/atomic"
)

// consumptions 按 CID 登记的输出
type consumptions struct {
	sync.Map
	count int32
}

// sorted returns the registered consumptions in CID order.
func (m *consumptions) sorted() []*consumption {
	all := make([]*consumption, 0, m.Count())
	m.Range(func(key, value interface{}) bool {
		all = append(all, value.(*consumption))
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].cid < all[j].cid })
	return all
}

// SendToAll 按 CID 顺序把帧排入每个输出
func (m *consumptions) SendToAll(f *Frame) {
	for _, c := range m.sorted() {
		c.send(f)
	}
}

// FinishAll 等待所有输出处理完排队的帧，返回第一个输出错误
func (m *consumptions) FinishAll() (err error) {
	for _, c := range m.sorted() {
		if cerr := c.finish(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return
}

func (m *consumptions) RemoveAndCloseAll() {
	for _, c := range m.sorted() {
		if m.Remove(c.cid) != nil {
			c.Close()
		}
	}
}

func (m *consumptions) Add(c *consumption) {
	if _, loaded := m.LoadOrStore(c.cid, c); !loaded {
		atomic.AddInt32(&m.count, 1)
	}
}

func (m *consumptions) Remove(cid CID) *consumption {
	ci, ok := m.Load(cid)
	if !ok {
		return nil
	}
	m.Delete(cid)
	atomic.AddInt32(&m.count, -1)
	return ci.(*consumption)
}

func (m *consumptions) Count() int {
	return int(atomic.LoadInt32(&m.count))
}

func (m *consumptions) Infos() []ConsumptionInfo {
	all := m.sorted()
	cs := make([]ConsumptionInfo, len(all))
	for i, c := range all {
		cs[i] = c.Info()
	}
	return cs
}
