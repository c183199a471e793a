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

// Package endpoint provides the registration endpoint used by processes to
// join the round-robin queue, plus its HTTP surface.
// endpoint 包提供进程加入轮转队列的注册端点及其 HTTP 接口。
package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/seatunnel/rrsched/internal/process"
	"github.com/seatunnel/rrsched/internal/registry"
	"go.uber.org/zap"
)

// NoneValue is reported by Read when nothing is runnable
// NoneValue 是没有可运行进程时 Read 返回的值
const NoneValue = "none"

// Registry is the subset of the process registry used by the endpoint
// Registry 是端点使用的进程注册表子集
type Registry interface {
	Enqueue(ctx context.Context, pid int) error
	Dequeue(ctx context.Context, pid int) error
	FirstRunnable(ctx context.Context) (int, bool, error)
	Entries(ctx context.Context) ([]registry.Descriptor, error)
}

// ServiceConfig holds configuration for the registration Service.
// ServiceConfig 保存注册 Service 的配置。
type ServiceConfig struct {
	// SelfPID is rejected on write so the daemon never pauses itself, defaults to os.Getpid()
	// SelfPID 在写入时被拒绝，避免守护进程暂停自身，默认为 os.Getpid()
	SelfPID int

	Logger *zap.Logger
}

// Service implements the write and read paths of the registration endpoint.
// Service 实现注册端点的写入与读取路径。
type Service struct {
	registry Registry
	selfPID  int
	logger   *zap.Logger
}

// NewService creates a new Service instance.
// NewService 创建一个新的 Service 实例。
func NewService(reg Registry, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	selfPID := cfg.SelfPID
	if selfPID == 0 {
		selfPID = os.Getpid()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: reg, selfPID: selfPID, logger: logger}
}

// ParsePID parses a textual base-10 process ID, surrounding whitespace allowed
// ParsePID 解析十进制文本进程 ID，允许前后空白
func ParsePID(input []byte) (int, error) {
	text := string(bytes.TrimSpace(input))
	pid, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInput, text)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: %d is not positive", ErrInvalidInput, pid)
	}
	if !process.ValidPID(pid) {
		return 0, fmt.Errorf("%w: %d exceeds the pid range", ErrInvalidInput, pid)
	}
	return pid, nil
}

// Write parses input and registers the process, returning the bytes consumed
// Write 解析输入并注册进程，返回消费的字节数
func (s *Service) Write(ctx context.Context, input []byte) (int, error) {
	_, n, err := s.Register(ctx, input)
	return n, err
}

// Register is Write that also returns the parsed PID
// Register 与 Write 相同，但同时返回解析出的 PID
func (s *Service) Register(ctx context.Context, input []byte) (int, int, error) {
	pid, err := ParsePID(input)
	if err != nil {
		return 0, 0, err
	}
	if pid == s.selfPID {
		return 0, 0, fmt.Errorf("%w: %d is the scheduler itself", ErrInvalidInput, pid)
	}

	if err := s.registry.Enqueue(ctx, pid); err != nil {
		s.logger.Warn("Failed to register process", zap.Int("pid", pid), zap.Error(err))
		return pid, 0, err
	}

	s.logger.Info("Process registered", zap.Int("pid", pid))
	return pid, len(input), nil
}

// Read reports the first runnable process or "none"; it never fails
// Read 返回第一个可运行进程或 "none"，不会失败
func (s *Service) Read(ctx context.Context) string {
	pid, ok, err := s.registry.FirstRunnable(ctx)
	if err != nil {
		s.logger.Debug("Read could not inspect registry", zap.Error(err))
		return NoneValue
	}
	if !ok {
		return NoneValue
	}
	return strconv.Itoa(pid)
}

// Unregister removes a process from the queue, no-op if absent
// Unregister 将进程移出队列，不存在时不做任何操作
func (s *Service) Unregister(ctx context.Context, pid int) error {
	if !process.ValidPID(pid) {
		return fmt.Errorf("%w: %d is not a valid pid", ErrInvalidInput, pid)
	}
	if err := s.registry.Dequeue(ctx, pid); err != nil {
		return err
	}
	s.logger.Info("Process unregistered", zap.Int("pid", pid))
	return nil
}

// List returns the registered processes in queue order
// List 按队列顺序返回已注册的进程
func (s *Service) List(ctx context.Context) ([]registry.Descriptor, error) {
	return s.registry.Entries(ctx)
}
