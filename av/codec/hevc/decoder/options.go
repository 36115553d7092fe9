// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"github.com/cnotch/xlog"
)

// Option 配置 Decoder 的选项接口
type Option interface {
	apply(*Decoder)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Decoder)

func (f optionFunc) apply(d *Decoder) {
	f(d)
}

// WithWorkers sets the number of goroutines running the loop filters.
// Zero filters on the goroutine calling DecodeData.
func WithWorkers(n int) Option {
	return optionFunc(func(d *Decoder) {
		if n < 0 {
			n = 0
		}
		d.numWorkers = n
	})
}

// WithLogger 日志选项
func WithLogger(logger *xlog.Logger) Option {
	return optionFunc(func(d *Decoder) {
		if logger != nil {
			d.logger = logger.With(xlog.Fields(xlog.F("decoder", d.id)))
		}
	})
}

// WithParameter presets a boolean decoding parameter.
func WithParameter(p Param, v bool) Option {
	return optionFunc(func(d *Decoder) {
		d.SetParameterBool(p, v)
	})
}

// Param is a boolean decoding parameter.
type Param int

// 解码参数
const (
	// ParamSEICheckHash verifies decoded pictures against their decoded
	// picture hash SEI.
	ParamSEICheckHash Param = iota
	// ParamStrictHash drops pictures failing the hash check from output.
	ParamStrictHash
	numParams
)
