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

// Package process provides the process-control facility used by the scheduler.
// process 包提供调度器使用的进程控制能力。
//
// This package provides:
// 此包提供：
// - Process state model / 进程状态模型
// - Liveness checks by PID / 基于 PID 的存活检查
// - Pause/resume directives / 暂停/恢复指令
package process

import (
	"fmt"
	"math"
	"strings"
)

// MaxPID is the largest value representable by the kernel's pid_t
// MaxPID 是内核 pid_t 能表示的最大值
const MaxPID = math.MaxInt32

// ValidPID reports whether pid addresses exactly one process
// ValidPID 报告 pid 是否只指向单个进程
func ValidPID(pid int) bool {
	return pid > 0 && pid <= MaxPID
}

// State represents the scheduling state of a registered process
// State 表示已注册进程的调度状态
type State int

const (
	// Created indicates the process descriptor was just created
	// Created 表示进程描述符刚被创建
	Created State = iota

	// Running indicates the process holds the current quantum
	// Running 表示进程持有当前时间片
	Running

	// Waiting indicates the process is paused in the run queue
	// Waiting 表示进程在运行队列中暂停
	Waiting

	// Blocking indicates the process is blocked (bookkeeping only)
	// Blocking 表示进程被阻塞（仅记录）
	Blocking

	// Terminated indicates the underlying process no longer exists
	// Terminated 表示底层进程已不存在
	Terminated
)

var stateNames = map[State]string{
	Created:    "created",
	Running:    "running",
	Waiting:    "waiting",
	Blocking:   "blocking",
	Terminated: "terminated",
}

// String returns the lower-case name of the state
// String 返回状态的小写名称
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler so states render by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState parses a state name such as "running" or "waiting"
// ParseState 解析状态名称，例如 "running" 或 "waiting"
func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return Created, fmt.Errorf("unknown process state: %q", name)
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseState.
func (s *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// Outcome is the result of applying a state to a process
// Outcome 是对进程应用状态的结果
type Outcome int

const (
	// Alive means the target process was found
	// Alive 表示找到了目标进程
	Alive Outcome = iota

	// Dead means the target process could not be found at call time
	// Dead 表示调用时无法找到目标进程
	Dead
)

// String returns "alive" or "dead"
func (o Outcome) String() string {
	if o == Dead {
		return "dead"
	}
	return "alive"
}

// Controller pauses, resumes and checks processes by PID.
// Controller 通过 PID 暂停、恢复和探测进程。
//
// Apply semantics by state: Running resumes the process, Waiting pauses it,
// every other state is bookkeeping only. Apply returns Dead when the target
// cannot be found, regardless of the requested state.
// Apply 语义：Running 恢复进程，Waiting 暂停进程，其他状态仅做记录。
// 目标不存在时 Apply 返回 Dead，与请求的状态无关。
type Controller interface {
	// Exists reports whether the process still exists
	// Exists 报告进程是否仍然存在
	Exists(pid int) bool

	// Apply moves the process into the posture of the given state
	// Apply 将进程切换到给定状态对应的姿态
	Apply(pid int, state State) Outcome
}
