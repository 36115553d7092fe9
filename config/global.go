// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	cfg "github.com/cnotch/loader"
	"github.com/cnotch/xlog"
)

// 程序名
const (
	Vendor  = "CAOHONGJU"
	Name    = "hevcdec"
	Version = "V1.0.0"
)

// 默认值
const (
	defaultChunk = 64 * 1024
	minChunk     = 1
)

var (
	globalC *config
)

// InitConfig 初始化 Config
func InitConfig() {
	exe, err := os.Executable()
	if err != nil {
		xlog.Panic(err.Error())
	}

	configPath := filepath.Join(filepath.Dir(exe), Name+".conf")

	globalC = new(config)
	globalC.initFlags()

	// 创建或加载配置文件
	if err := cfg.Load(globalC,
		&cfg.JSONLoader{Path: configPath, CreatedIfNonExsit: true},
		&cfg.EnvLoader{Prefix: strings.ToUpper(Name)},
		&cfg.FlagLoader{}); err != nil {
		// 异常，直接退出
		xlog.Panic(err.Error())
	}

	// 输入文件也可以作为第一个参数
	if !flag.Parsed() {
		flag.Parse()
	}
	if globalC.Input == "" && flag.NArg() > 0 {
		globalC.Input = flag.Arg(0)
	}

	// 初始化日志
	globalC.Log.initLogger()
}

// Input 输入文件
func Input() string {
	if globalC == nil {
		return ""
	}
	return globalC.Input
}

// Output YUV 输出文件
func Output() string {
	if globalC == nil {
		return ""
	}
	return globalC.Output
}

// MD5 MD5 输出文件
func MD5() string {
	if globalC == nil {
		return ""
	}
	return globalC.MD5
}

// CheckHash 是否校验 SEI 图像哈希
func CheckHash() bool {
	if globalC == nil {
		return false
	}
	return globalC.CheckHash || globalC.StrictHash
}

// StrictHash 是否丢弃哈希不匹配的图像
func StrictHash() bool {
	if globalC == nil {
		return false
	}
	return globalC.StrictHash
}

// Workers 环路滤波协程数
func Workers() int {
	if globalC == nil || globalC.Workers < 0 {
		return 0
	}
	return globalC.Workers
}

// Chunk 每次送入解码器的字节数
func Chunk() int {
	if globalC == nil || globalC.Chunk == 0 {
		return defaultChunk
	}
	if globalC.Chunk < minChunk {
		return minChunk
	}
	return globalC.Chunk
}

// ProgressInterval 进度日志间隔，0 表示不输出
func ProgressInterval() time.Duration {
	if globalC == nil || globalC.Progress <= 0 {
		return 0
	}
	return time.Duration(globalC.Progress) * time.Second
}
