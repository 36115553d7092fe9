// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cnotch/hevcdec/av/codec/hevc"
	"github.com/cnotch/hevcdec/av/codec/hevc/decoder"
	"github.com/cnotch/hevcdec/config"
	"github.com/cnotch/hevcdec/media"
	"github.com/cnotch/hevcdec/stats"
	"github.com/cnotch/scheduler"
	"github.com/cnotch/xlog"
	"github.com/pkg/errors"
)

// Service 解码一个 Annex-B 文件，并把输出图像分发给各输出
type Service struct {
	context context.Context
	cancel  context.CancelFunc
	logger  *xlog.Logger
	input   string
	chunk   int
	decoder *decoder.Decoder
	hub     *media.Hub
	flow    stats.Flow // 输入字节和输出帧
	errors  int        // DecodeData 返回的错误数

	l        sync.Mutex // 保护进度采样
	lastFlow stats.FlowSample
	lastAt   time.Time
}

// NewService 创建解码服务，解码选项来自 config
func NewService(ctx context.Context, input string, l *xlog.Logger) (*Service, error) {
	if input == "" {
		return nil, errors.Wrap(hevc.ErrNoSuchFile, "no input file")
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Service{
		context: ctx,
		cancel:  cancel,
		logger:  l.With(xlog.Fields(xlog.F("input", input))),
		input:   input,
		chunk:   config.Chunk(),
		flow:    stats.NewFlow(),
		lastAt:  time.Now(),
	}

	s.decoder = decoder.NewDecoder(
		decoder.WithLogger(s.logger),
		decoder.WithWorkers(config.Workers()),
		decoder.WithParameter(decoder.ParamSEICheckHash, config.CheckHash()),
		decoder.WithParameter(decoder.ParamStrictHash, config.StrictHash()))
	s.hub = media.NewHub(media.Logger(s.logger), media.Attr("input", input))

	if interval := config.ProgressInterval(); interval > 0 {
		scheduler.PeriodFunc(interval, interval, s.reportProgress,
			fmt.Sprintf("%s: The task of logging decoding progress", input))
	}
	return s, nil
}

// AddSink 添加输出
func (s *Service) AddSink(sink media.Sink, sinkType media.SinkType, extra string) {
	s.hub.StartConsume(sink, sinkType, extra)
}

// OpenSinks 根据配置创建 YUV 和 MD5 文件输出
func (s *Service) OpenSinks() error {
	if path := config.Output(); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "could not create yuv output")
		}
		s.AddSink(media.NewYUVSink(f), media.YUVSink, path)
	}

	switch path := config.MD5(); path {
	case "":
	case "-":
		// 标准输出不随输出关闭
		s.AddSink(media.NewMD5Sink(struct{ io.Writer }{os.Stdout}), media.MD5Sink, "stdout")
	default:
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "could not create md5 output")
		}
		s.AddSink(media.NewMD5Sink(f), media.MD5Sink, path)
	}
	return nil
}

// Run decodes the whole input. Picture faults are logged and decoding
// goes on. It returns when the input is consumed, on a framing or I/O
// error, or when the service is cancelled.
func (s *Service) Run() (err error) {
	defer s.Close()
	stop := s.hookSignals()
	defer stop()

	f, err := os.Open(s.input)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(hevc.ErrNoSuchFile, s.input)
		}
		return errors.Wrap(err, "could not open input")
	}
	defer f.Close()

	s.logger.Infof("decoding starts, chunk %d bytes", s.chunk)
	buf := make([]byte, s.chunk)
	for {
		if err = s.context.Err(); err != nil {
			return err
		}

		n, rerr := io.ReadFull(f, buf)
		if n > 0 {
			s.flow.AddIn(int64(n))
			if err = s.decode(buf[:n]); err != nil {
				return err
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return errors.Wrap(rerr, "could not read input")
		}
	}

	// 刷新解码器，直到所有单元解码完毕
	for {
		if err = s.decode(nil); err != nil {
			return err
		}
		if s.decoder.PendingUnits() == 0 {
			break
		}
	}

	if err = s.hub.Finish(); err != nil {
		return err
	}
	s.logSummary()
	return nil
}

// decode pushes data, an empty data flushes, and hands every output
// picture to the hub.
func (s *Service) decode(data []byte) error {
	err := s.decoder.DecodeData(data)
	s.drain()

	switch {
	case err == nil:
	case err == hevc.ErrNoStartCode:
		return errors.Wrap(err, s.input)
	default:
		s.errors++
		s.logger.Warnf("decode: %s", hevc.ErrorString(err))
	}
	return nil
}

func (s *Service) drain() {
	for pic := s.decoder.GetNextPicture(); pic != nil; pic = s.decoder.GetNextPicture() {
		frame := media.NewFrame(pic)
		s.decoder.ReleaseNextPicture()

		s.flow.AddOut(int64(frame.Size()))
		if err := s.hub.WriteFrame(frame); err != nil {
			s.logger.Warnf("drop POC %d: %v", frame.POC, err)
		}
	}
}

// Close 停止计划任务并释放解码器和输出，未输出的帧被丢弃
func (s *Service) Close() {
	if s.cancel != nil {
		s.cancel()
	}

	// 停止计划任务
	for _, job := range scheduler.Jobs() {
		job.Cancel()
	}

	s.hub.Close()
	s.decoder.Close()
}

// Stats returns the decoder counters.
func (s *Service) Stats() decoder.Stats {
	return s.decoder.Stats()
}

// Flow returns the input bytes and output frames so far.
func (s *Service) Flow() stats.FlowSample {
	return s.flow.GetSample()
}

// Errors returns the number of decoding faults reported so far.
func (s *Service) Errors() int {
	return s.errors
}

func (s *Service) reportProgress() {
	s.l.Lock()
	sample := s.flow.GetSample()
	now := time.Now()
	fps, kbps := sample.Sub(s.lastFlow).Rate(now.Sub(s.lastAt))
	s.lastFlow, s.lastAt = sample, now
	s.l.Unlock()

	queued := stats.QueuedFrames.GetSample()
	s.logger.Infof("progress: %d frames, %.1f fps, %.0f kbit/s in, %d queued; %s",
		sample.Frames, fps, kbps, queued.Active, stats.MeasureUsage())
}

func (s *Service) logSummary() {
	st := s.decoder.Stats()
	sample := s.flow.GetSample()
	s.logger.Infof("decoding done: %d bytes in, %d frames out, %d nal units, %d decoded, %d skipped, %d aborted, %d missing refs, %d hash mismatches",
		sample.InBytes, sample.Frames, st.NalUnits, st.Decoded, st.Skipped, st.Aborted, st.MissingRefs, st.HashMismatches)

	for _, info := range s.hub.Infos() {
		s.logger.Infof("sink %s %s: %d frames", info.SinkType, info.Extra, info.Flow.Frames)
	}
}

// hookSignals cancels the service on SIGINT or SIGTERM. The returned
// function stops the hook.
func (s *Service) hookSignals() (stop func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range c {
			s.onSignal(sig)
		}
	}()
	return func() {
		signal.Stop(c)
		close(c)
	}
}

// OnSignal will be called when a OS-level signal is received.
func (s *Service) onSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGTERM, syscall.SIGINT:
		s.logger.Warn(fmt.Sprintf("received signal %s, stopping...", sig.String()))
		s.cancel()
	}
}
