// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/media"
	"github.com/cnotch/xlog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, data []byte) string {
	dir, err := ioutil.TempDir("", "hevcdec")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "in.265")
	require.NoError(t, ioutil.WriteFile(path, data, 0644))
	return path
}

func TestService_NoInput(t *testing.T) {
	_, err := NewService(context.Background(), "", xlog.L())
	assert.Equal(t, hevc.ErrNoSuchFile, errors.Cause(err))
}

func TestService_MissingFile(t *testing.T) {
	s, err := NewService(context.Background(), filepath.Join(os.TempDir(), "hevcdec-missing.265"), xlog.L())
	require.NoError(t, err)
	err = s.Run()
	assert.Equal(t, hevc.ErrNoSuchFile, errors.Cause(err))
}

func TestService_NoStartCode(t *testing.T) {
	path := writeInput(t, []byte{0x12, 0x34, 0x56, 0x78, 0x9a})
	s, err := NewService(context.Background(), path, xlog.L())
	require.NoError(t, err)
	err = s.Run()
	assert.Equal(t, hevc.ErrNoStartCode, errors.Cause(err))
}

func TestService_NoPictures(t *testing.T) {
	// 访问单元分隔符和序列结束
	path := writeInput(t, []byte{0, 0, 0, 1, 0x46, 0x01, 0x50, 0, 0, 0, 1, 0x48, 0x01})
	s, err := NewService(context.Background(), path, xlog.L())
	require.NoError(t, err)

	var frames int32
	s.AddSink(media.SinkFunc(func(f *media.Frame) error {
		atomic.AddInt32(&frames, 1)
		return nil
	}), media.FuncSink, "count")

	require.NoError(t, s.Run())
	assert.Equal(t, int32(0), atomic.LoadInt32(&frames))
	assert.Equal(t, 2, s.Stats().NalUnits)
	assert.Equal(t, int64(13), s.Flow().InBytes)
	assert.Equal(t, 0, s.Errors())
}

func TestService_Cancelled(t *testing.T) {
	path := writeInput(t, []byte{0, 0, 0, 1, 0x46, 0x01, 0x50})
	ctx, cancel := context.WithCancel(context.Background())
	s, err := NewService(ctx, path, xlog.L())
	require.NoError(t, err)

	cancel()
	assert.Equal(t, context.Canceled, s.Run())
}
