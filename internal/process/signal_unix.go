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

//go:build unix

package process

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SignalController controls processes with Unix signals
// SignalController 使用 Unix 信号控制进程
// SIGCONT resumes, SIGSTOP pauses, signal 0 checks liveness.
// SIGCONT 恢复，SIGSTOP 暂停，信号 0 探测存活。
type SignalController struct {
	logger *zap.Logger
}

// NewSignalController creates a new SignalController instance
// NewSignalController 创建一个新的 SignalController 实例
func NewSignalController(logger *zap.Logger) *SignalController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalController{logger: logger}
}

// Exists checks if a process with the given PID is alive
// Exists 检查给定 PID 的进程是否存活
func (c *SignalController) Exists(pid int) bool {
	// kill(2) treats pid <= 0 as a process group selector, and values past
	// pid_t are truncated into that range
	// kill(2) 将 pid <= 0 视为进程组选择器，超出 pid_t 的值会被截断到该范围
	if !ValidPID(pid) {
		return false
	}
	err := unix.Kill(pid, 0)
	// EPERM means the process exists but belongs to another user
	// EPERM 表示进程存在但属于其他用户
	return err == nil || errors.Is(err, unix.EPERM)
}

// Apply sends the signal matching the state to the process
// Apply 向进程发送与状态对应的信号
func (c *SignalController) Apply(pid int, state State) Outcome {
	if !c.Exists(pid) {
		return Dead
	}

	var sig unix.Signal
	switch state {
	case Running:
		sig = unix.SIGCONT
	case Waiting:
		sig = unix.SIGSTOP
	default:
		c.logger.Debug("Task status change without directive",
			zap.Int("pid", pid),
			zap.Stringer("state", state),
		)
		return Alive
	}

	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return Dead
		}
		c.logger.Warn("Failed to signal process",
			zap.Int("pid", pid),
			zap.String("signal", unix.SignalName(sig)),
			zap.Error(err),
		)
		return Alive
	}

	c.logger.Debug("Task status changed",
		zap.Int("pid", pid),
		zap.Stringer("state", state),
		zap.String("signal", unix.SignalName(sig)),
	)
	return Alive
}
