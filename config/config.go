// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
)

// config 解码配置
type config struct {
	Input      string    `json:"input"`       // Annex-B 输入文件
	Output     string    `json:"output"`      // 原始 YUV 输出文件，空则不输出
	MD5        string    `json:"md5"`         // 每帧 MD5 输出文件，"-" 为标准输出
	CheckHash  bool      `json:"check_hash"`  // 校验 SEI 图像哈希
	StrictHash bool      `json:"strict_hash"` // 丢弃哈希不匹配的图像
	Workers    int       `json:"workers"`     // 环路滤波协程数
	Chunk      int       `json:"chunk"`       // 每次送入解码器的字节数
	Progress   int       `json:"progress"`    // 进度日志间隔（s），0 不输出
	Log        LogConfig `json:"log"`         // 日志配置
}

func (c *config) initFlags() {
	flag.StringVar(&c.Input, "input", "", "Set the H.265 Annex-B file to decode")
	flag.StringVar(&c.Output, "output", "", "Set the raw planar YUV file to write")
	flag.StringVar(&c.MD5, "md5", "",
		"Set the file to write per picture MD5 lines to, - for stdout")
	flag.BoolVar(&c.CheckHash, "check-hash", false,
		"Determines if pictures are verified against their hash SEI")
	flag.BoolVar(&c.StrictHash, "strict-hash", false,
		"Determines if pictures failing the hash check are dropped")
	flag.IntVar(&c.Workers, "workers", 0,
		"Set the number of loop filter goroutines, 0 filters inline")
	flag.IntVar(&c.Chunk, "chunk", 64*1024, "Set the bytes pushed to the decoder at once")
	flag.IntVar(&c.Progress, "progress", 5,
		"Set the seconds between progress logs, 0 disables them")

	// 初始化日志配置
	c.Log.initFlags()
}
