// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/cnotch/hevcdec/config"
	"github.com/cnotch/hevcdec/service"
	"github.com/cnotch/scheduler"
	"github.com/cnotch/xlog"
)

func main() {
	// 初始化配置
	config.InitConfig()
	// 初始化全局计划任务
	scheduler.SetPanicHandler(func(job *scheduler.ManagedJob, r interface{}) {
		xlog.Errorf("scheduler task panic. tag: %v, recover: %v", job.Tag, r)
	})

	svc, err := service.NewService(context.Background(), config.Input(), xlog.L())
	if err != nil {
		xlog.Errorf("%v", err)
		os.Exit(1)
	}

	if err = svc.OpenSinks(); err != nil {
		svc.Close()
		xlog.Errorf("%v", err)
		os.Exit(1)
	}

	// 解码整个文件
	if err = svc.Run(); err != nil {
		xlog.Errorf("decoding failed: %v", err)
		os.Exit(1)
	}
}
