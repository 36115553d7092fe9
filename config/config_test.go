// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfig(c *config, fn func()) {
	saved := globalC
	globalC = c
	defer func() { globalC = saved }()
	fn()
}

func TestDefaults(t *testing.T) {
	withConfig(nil, func() {
		assert.Equal(t, "", Input())
		assert.Equal(t, "", Output())
		assert.Equal(t, "", MD5())
		assert.False(t, CheckHash())
		assert.False(t, StrictHash())
		assert.Equal(t, 0, Workers())
		assert.Equal(t, defaultChunk, Chunk())
		assert.Equal(t, time.Duration(0), ProgressInterval())
	})
}

func TestAccessors(t *testing.T) {
	c := &config{
		Input:      "in.265",
		Output:     "out.yuv",
		MD5:        "-",
		StrictHash: true,
		Workers:    -2,
		Chunk:      -5,
		Progress:   3,
	}
	withConfig(c, func() {
		assert.Equal(t, "in.265", Input())
		assert.Equal(t, "out.yuv", Output())
		assert.Equal(t, "-", MD5())
		// 严格模式隐含校验
		assert.True(t, CheckHash())
		assert.True(t, StrictHash())
		assert.Equal(t, 0, Workers())
		assert.Equal(t, minChunk, Chunk())
		assert.Equal(t, 3*time.Second, ProgressInterval())
	})

	c.Chunk = 4096
	c.Workers = 4
	withConfig(c, func() {
		assert.Equal(t, 4096, Chunk())
		assert.Equal(t, 4, Workers())
	})
}

func TestLogConfig_FileOutput(t *testing.T) {
	dir, err := ioutil.TempDir("", Name)
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	c := LogConfig{
		ToFile:   true,
		Filename: filepath.Join(dir, "logs", Name+".log"),
		MaxSize:  1,
	}
	l := c.newLogger(os.Stderr)
	require.NotNil(t, l)
	l.Infof("decoded %d pictures", 3)

	data, err := ioutil.ReadFile(c.Filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "decoded 3 pictures")
}
