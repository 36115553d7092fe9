// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"strings"

	"github.com/cnotch/xlog"
)

// Option 配置 Hub 的选项接口
type Option interface {
	apply(*Hub)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Hub)

func (f optionFunc) apply(h *Hub) {
	f(h)
}

// Attr 属性选项
func Attr(k, v string) Option {
	return optionFunc(func(h *Hub) {
		k := strings.ToLower(strings.TrimSpace(k))
		h.attrs[k] = v
	})
}

// Logger 日志选项，输出的日志对象派生自它
func Logger(logger *xlog.Logger) Option {
	return optionFunc(func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	})
}
