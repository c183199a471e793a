/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package scheduler provides the round-robin rotation loop.
// scheduler 包提供轮转调度循环。
//
// This package provides:
// 此包提供：
// - Periodic rotation every quantum / 每个时间片的周期性轮转
// - Dead process eviction / 已退出进程驱逐
// - Rotation reports / 轮转报告
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seatunnel/rrsched/internal/otel_trace"
	"github.com/seatunnel/rrsched/internal/process"
	"github.com/seatunnel/rrsched/internal/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultQuantum is the default time slice per process
// DefaultQuantum 是每个进程的默认时间片
const DefaultQuantum = 3 * time.Second

// ErrAlreadyRunning indicates Start was called on a running scheduler
// ErrAlreadyRunning 表示调度器已在运行时再次调用 Start
var ErrAlreadyRunning = errors.New("scheduler is already running / 调度器已在运行")

// Registry is the subset of the process registry used by the rotation step
// Registry 是轮转步骤使用的进程注册表子集
type Registry interface {
	Enqueue(ctx context.Context, pid int) error
	Dequeue(ctx context.Context, pid int) error
	ReapTerminated(ctx context.Context) (int, error)
	SetState(ctx context.Context, target registry.Target, state process.State) (process.State, bool, error)
	FirstRunnable(ctx context.Context) (int, bool, error)
	Snapshot(ctx context.Context) ([]int, error)
}

// RotationReport describes the outcome of one rotation step
// RotationReport 描述一次轮转步骤的结果
type RotationReport struct {
	Tick      uint64    `json:"tick"`
	Time      time.Time `json:"time"`
	Reaped    int       `json:"reaped"`
	Previous  *int      `json:"previous"`
	Running   *int      `json:"running"`
	Queue     []int     `json:"queue"`
	Skipped   bool      `json:"skipped"`
	SkipStage string    `json:"skip_stage,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ReportHandler is called after every rotation step
// ReportHandler 在每次轮转步骤后被调用
type ReportHandler func(report RotationReport)

// Status is a point-in-time view of the scheduler
// Status 是调度器的时间点视图
type Status struct {
	ID         string          `json:"id"`
	Quantum    string          `json:"quantum"`
	Active     bool            `json:"active"`
	Running    *int            `json:"running"`
	Ticks      uint64          `json:"ticks"`
	LastReport *RotationReport `json:"last_report,omitempty"`
}

// Config holds scheduler configuration
// Config 保存调度器配置
type Config struct {
	ID      string
	Quantum time.Duration
	Logger  *zap.Logger
}

// Scheduler runs the round-robin policy once per quantum
// Scheduler 每个时间片执行一次轮转策略
type Scheduler struct {
	id       string
	quantum  time.Duration
	registry Registry
	logger   *zap.Logger

	// stepMu serializes rotation steps
	// stepMu 串行化轮转步骤
	stepMu sync.Mutex

	mu         sync.RWMutex
	current    int
	hasCurrent bool
	ticks      uint64
	lastReport *RotationReport
	handler    ReportHandler
	running    bool
	stopCh     chan struct{}
	done       chan struct{}

	stopping atomic.Bool
}

// New creates a new Scheduler instance
// New 创建一个新的 Scheduler 实例
func New(reg Registry, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = &Config{}
	}
	quantum := cfg.Quantum
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		id:       cfg.ID,
		quantum:  quantum,
		registry: reg,
		logger:   logger.With(zap.String("scheduler_id", cfg.ID)),
	}
}

// Quantum returns the configured time slice
func (s *Scheduler) Quantum() time.Duration {
	return s.quantum
}

// SetReportHandler sets the rotation report callback
// SetReportHandler 设置轮转报告回调
func (s *Scheduler) SetReportHandler(handler ReportHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Current returns the PID currently holding the quantum
// Current 返回当前持有时间片的 PID
func (s *Scheduler) Current() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.hasCurrent
}

// LastReport returns the most recent rotation report, nil before the first step
// LastReport 返回最近一次轮转报告，首次轮转前返回 nil
func (s *Scheduler) LastReport() *RotationReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	report.Queue = append([]int(nil), s.lastReport.Queue...)
	return &report
}

// Status returns the scheduler status
// Status 返回调度器状态
func (s *Scheduler) Status() Status {
	current, ok := s.Current()
	status := Status{
		ID:         s.id,
		Quantum:    s.quantum.String(),
		LastReport: s.LastReport(),
	}
	if ok {
		status.Running = &current
	}
	s.mu.RLock()
	status.Active = s.running
	status.Ticks = s.ticks
	s.mu.RUnlock()
	return status
}

func (s *Scheduler) setCurrent(pid int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current, s.hasCurrent = pid, ok
}

// Start starts the rotation loop; the first rotation runs one quantum later
// Start 启动轮转循环，首次轮转在一个时间片之后执行
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.stopping.Store(false)
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	s.logger.Info("Scheduler started", zap.Duration("quantum", s.quantum))

	go s.loop(ctx, stopCh, done)
	return nil
}

// Stop raises the shutdown flag and waits for the in-flight step to finish
// Stop 设置关闭标志并等待正在执行的步骤完成
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, done := s.stopCh, s.done
	s.stopping.Store(true)
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduler to stop: %w", ctx.Err())
	}

	s.logger.Info("Scheduler stopped")
	return nil
}

// loop re-arms the timer only after each step has finished
// loop 仅在每次步骤完成后重新设置定时器
func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	timer := time.NewTimer(s.quantum)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-timer.C:
		}

		// The step must not be aborted by shutdown, only bounded by one quantum
		// 步骤不会被关闭中断，只受一个时间片的时长限制
		stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.quantum)
		_, _ = s.Step(stepCtx)
		cancel()

		if s.stopping.Load() || ctx.Err() != nil {
			return
		}
		timer.Reset(s.quantum)
	}
}

// Step runs one rotation: reap, requeue the previous process, select and
// promote the next runnable one. A registry error skips the rest of the tick.
// Step 执行一次轮转：回收、将上一个进程重新入队、选出并提升下一个可运行进程。
// 注册表出错时跳过本次轮转的剩余部分。
func (s *Scheduler) Step(ctx context.Context) (RotationReport, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	ctx, span := otel_trace.Start(ctx, "scheduler.rotate")
	defer span.End()

	s.mu.Lock()
	s.ticks++
	report := RotationReport{Tick: s.ticks, Time: time.Now()}
	s.mu.Unlock()

	// Step 1: drop dead entries / 步骤 1：移除已退出条目
	reaped, err := s.registry.ReapTerminated(ctx)
	if err != nil {
		return s.skip(span, report, "reap", err)
	}
	report.Reaped = reaped

	// Step 2: demote the previous process to the tail / 步骤 2：将上一个进程降级到队尾
	if prev, ok := s.Current(); ok {
		report.Previous = intPtr(prev)
		if err := s.registry.Enqueue(ctx, prev); err != nil {
			return s.skip(span, report, "requeue", err)
		}
		s.setCurrent(0, false)
	}

	// Step 3: select the next runnable process / 步骤 3：选出下一个可运行进程
	next, ok, err := s.registry.FirstRunnable(ctx)
	if err != nil {
		return s.skip(span, report, "select", err)
	}

	// Step 4: resume it and take it out of the waiting line / 步骤 4：恢复它并移出等待队列
	if ok {
		state, found, err := s.registry.SetState(ctx, registry.PID(next), process.Running)
		if err != nil {
			return s.skip(span, report, "promote", err)
		}
		if found && state != process.Terminated {
			s.setCurrent(next, true)
			report.Running = intPtr(next)
		} else {
			s.logger.Debug("Selected process exited before promotion", zap.Int("pid", next))
		}
		if err := s.registry.Dequeue(ctx, next); err != nil {
			return s.skip(span, report, "dequeue", err)
		}
	}

	// Step 5: diagnostic snapshot / 步骤 5：诊断快照
	queue, err := s.registry.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("Failed to snapshot registry", zap.Error(err))
	}
	report.Queue = queue

	span.SetAttributes(
		attribute.Int64("rotation.tick", int64(report.Tick)),
		attribute.Int("rotation.reaped", report.Reaped),
		attribute.Int("rotation.queue_len", len(queue)),
	)
	if report.Running != nil {
		span.SetAttributes(attribute.Int("rotation.running", *report.Running))
	}

	s.logger.Info("Rotation completed",
		zap.Uint64("tick", report.Tick),
		zap.Int("reaped", report.Reaped),
		zap.Ints("queue", queue),
		zap.Stringer("running", pidStringer{report.Running}),
	)

	s.publish(report)
	return report, nil
}

func (s *Scheduler) skip(span trace.Span, report RotationReport, stage string, err error) (RotationReport, error) {
	report.Skipped = true
	report.SkipStage = stage
	report.Error = err.Error()
	if current, ok := s.Current(); ok {
		report.Running = intPtr(current)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, stage)

	s.logger.Warn("Rotation skipped",
		zap.Uint64("tick", report.Tick),
		zap.String("stage", stage),
		zap.Error(err),
	)

	s.publish(report)
	return report, fmt.Errorf("rotation %s: %w", stage, err)
}

func (s *Scheduler) publish(report RotationReport) {
	s.mu.Lock()
	s.lastReport = &report
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler(report)
	}
}

func intPtr(v int) *int {
	return &v
}

type pidStringer struct{ pid *int }

func (p pidStringer) String() string {
	if p.pid == nil {
		return "none"
	}
	return strconv.Itoa(*p.pid)
}
