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

package process

import "sync"

// Directive records a state applied to a live process
// Directive 记录对存活进程应用的状态
type Directive struct {
	PID   int
	State State
}

// FakeController is an in-memory Controller for tests and simulations
// FakeController 是用于测试和模拟的内存 Controller
type FakeController struct {
	mu         sync.Mutex
	alive      map[int]bool
	directives []Directive
	calls      int
}

// NewFakeController creates a FakeController with the given live PIDs
// NewFakeController 使用给定的存活 PID 创建 FakeController
func NewFakeController(pids ...int) *FakeController {
	f := &FakeController{alive: make(map[int]bool)}
	for _, pid := range pids {
		f.alive[pid] = true
	}
	return f
}

// Spawn marks a PID as alive
func (f *FakeController) Spawn(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[pid] = true
}

// Kill marks a PID as dead
func (f *FakeController) Kill(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.alive, pid)
}

// Exists implements Controller
func (f *FakeController) Exists(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.alive[pid]
}

// Apply implements Controller
func (f *FakeController) Apply(pid int, state State) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if !f.alive[pid] {
		return Dead
	}
	f.directives = append(f.directives, Directive{PID: pid, State: state})
	return Alive
}

// Directives returns a copy of the directives applied so far
// Directives 返回目前已应用指令的副本
func (f *FakeController) Directives() []Directive {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Directive, len(f.directives))
	copy(out, f.directives)
	return out
}

// Calls returns the number of Exists and Apply invocations
func (f *FakeController) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Reset clears recorded directives and the call counter
func (f *FakeController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directives = nil
	f.calls = 0
}
