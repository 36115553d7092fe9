// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"fmt"
	"runtime"
	"time"

	"github.com/kelindar/process"
)

// 创建时间
var (
	StartingTime = time.Now()
)

// Usage 进程资源使用情况
type Usage struct {
	CPU        float64 `json:"cpu"`        // cpu使用情况
	Priv       int32   `json:"priv"`       // 私有内存 KB
	Virt       int32   `json:"virt"`       // 虚拟内存 KB
	HeapInuse  int32   `json:"heapinuse"`  // KB MemStats.HeapInuse
	GCCPU      float64 `json:"gccpu"`      // MemStats.GCCPUFraction
	Goroutines int32   `json:"goroutines"` // runtime.NumGoroutine()
	Uptime     int32   `json:"uptime"`     // 运行时间 S
}

// MeasureUsage samples the process. Fields the platform cannot report stay
// zero.
func MeasureUsage() (u Usage) {
	defer func() { recover() }()

	u.Uptime = int32(time.Since(StartingTime).Seconds())
	u.Goroutines = int32(runtime.NumGoroutine())

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)
	u.HeapInuse = toKB(memory.HeapInuse)
	u.GCCPU = memory.GCCPUFraction

	var memoryPriv, memoryVirtual int64
	process.ProcUsage(&u.CPU, &memoryPriv, &memoryVirtual)
	u.Priv = toKB(uint64(memoryPriv))
	u.Virt = toKB(uint64(memoryVirtual))
	return
}

func (u Usage) String() string {
	return fmt.Sprintf("cpu %.1f%%, priv %d KB, heap %d KB, gc %.2f%%, goroutines %d, uptime %ds",
		u.CPU, u.Priv, u.HeapInuse, u.GCCPU*100, u.Goroutines, u.Uptime)
}

// Converts the memory in bytes to KBs, otherwise it would overflow our int32
func toKB(v uint64) int32 {
	return int32(v / 1024)
}
