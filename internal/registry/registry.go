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

// Package registry provides the ordered process registry shared by the
// scheduler loop and the registration endpoint.
// registry 包提供调度循环与注册端点共享的有序进程注册表。
//
// This package provides:
// 此包提供：
// - FIFO ordered process descriptors / FIFO 有序的进程描述符
// - Single and bulk state updates / 单个与批量状态更新
// - Terminated entry reaping / 已终止条目回收
// - First runnable lookup / 首个可运行进程查找
package registry

import (
	"container/list"
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/seatunnel/rrsched/internal/process"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Descriptor is a registered process and its scheduling state
// Descriptor 是已注册的进程及其调度状态
type Descriptor struct {
	PID   int           `json:"pid"`
	State process.State `json:"state"`
}

// Target selects the descriptors affected by SetState
// Target 选择 SetState 影响的描述符
type Target struct {
	pid int
	all bool
}

// AllRegistered targets every registered process
// AllRegistered 表示所有已注册进程
var AllRegistered = Target{all: true}

// PID targets a single process
// PID 表示单个进程
func PID(pid int) Target {
	return Target{pid: pid}
}

// All reports whether the target is AllRegistered
func (t Target) All() bool {
	return t.all
}

// String returns the PID or "all"
func (t Target) String() string {
	if t.all {
		return "all"
	}
	return strconv.Itoa(t.pid)
}

// Config holds registry configuration
// Config 保存注册表配置
type Config struct {
	// Capacity bounds the number of descriptors, 0 means unbounded
	// Capacity 限制描述符数量，0 表示不限
	Capacity int

	Logger *zap.Logger
}

// Registry is the ordered, mutually exclusive collection of process descriptors.
// Registry 是有序且互斥的进程描述符集合。
//
// Every operation except Clear serializes on a single lock. The lock wait
// honours context cancellation and yields ErrLockInterrupted.
// 除 Clear 外的所有操作都在同一把锁上串行执行，等待锁时可通过 context 取消并返回 ErrLockInterrupted。
type Registry struct {
	sem        *semaphore.Weighted
	controller process.Controller
	logger     *zap.Logger
	capacity   int

	// order keeps insertion order, index maps PID to its element
	// order 保持插入顺序，index 将 PID 映射到其元素
	order *list.List
	index map[int]*list.Element
	size  atomic.Int64
}

// New creates a new Registry instance
// New 创建一个新的 Registry 实例
func New(controller process.Controller, cfg *Config) *Registry {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	capacity := cfg.Capacity
	if capacity < 0 {
		capacity = 0
	}
	return &Registry{
		sem:        semaphore.NewWeighted(1),
		controller: controller,
		logger:     logger,
		capacity:   capacity,
		order:      list.New(),
		index:      make(map[int]*list.Element),
	}
}

func (r *Registry) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockInterrupted, err)
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrLockInterrupted, err)
	}
	return nil
}

func (r *Registry) unlock() {
	r.sem.Release(1)
}

// Enqueue registers a process as Waiting at the tail of the queue.
// Enqueue 将进程以 Waiting 状态注册到队尾。
//
// The Controller is asked to pause the process. A PID already present is
// reset to Waiting in place, so the registry never holds duplicates.
// 会请求 Controller 暂停该进程。已存在的 PID 在原位置重置为 Waiting，注册表中不会出现重复项。
func (r *Registry) Enqueue(ctx context.Context, pid int) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	if elem, ok := r.index[pid]; ok {
		d := elem.Value.(*Descriptor)
		d.State = r.waitingState(pid)
		r.logger.Debug("Process re-registered in place", zap.Int("pid", pid), zap.Stringer("state", d.State))
		return nil
	}

	if r.capacity > 0 && r.order.Len() >= r.capacity {
		return fmt.Errorf("%w: capacity %d reached", ErrAllocationFailure, r.capacity)
	}

	d := &Descriptor{PID: pid, State: r.waitingState(pid)}
	r.index[pid] = r.order.PushBack(d)
	r.size.Add(1)

	r.logger.Debug("Process enqueued", zap.Int("pid", pid), zap.Stringer("state", d.State))
	return nil
}

// waitingState pauses the process and returns its resulting state
func (r *Registry) waitingState(pid int) process.State {
	if r.controller.Apply(pid, process.Waiting) == process.Dead {
		return process.Terminated
	}
	return process.Waiting
}

// Dequeue removes every descriptor matching the PID, no-op if absent
// Dequeue 移除所有匹配该 PID 的描述符，不存在时不做任何操作
func (r *Registry) Dequeue(ctx context.Context, pid int) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	r.remove(pid)
	return nil
}

func (r *Registry) remove(pid int) bool {
	elem, ok := r.index[pid]
	if !ok {
		return false
	}
	r.order.Remove(elem)
	delete(r.index, pid)
	r.size.Add(-1)
	return true
}

// ReapTerminated removes every Terminated descriptor and returns how many were removed
// ReapTerminated 移除所有 Terminated 描述符并返回移除数量
func (r *Registry) ReapTerminated(ctx context.Context) (int, error) {
	if err := r.lock(ctx); err != nil {
		return 0, err
	}
	defer r.unlock()

	reaped := 0
	for elem := r.order.Front(); elem != nil; {
		next := elem.Next()
		d := elem.Value.(*Descriptor)
		if d.State == process.Terminated {
			r.remove(d.PID)
			reaped++
		}
		elem = next
	}
	if reaped > 0 {
		r.logger.Debug("Reaped terminated processes", zap.Int("count", reaped))
	}
	return reaped, nil
}

// SetState updates the state of the targeted descriptors.
// SetState 更新目标描述符的状态。
//
// For AllRegistered every descriptor gets the state applied through the
// Controller and the result is (zero, false, nil). For a single PID the
// matching descriptor is updated and its resulting state returned with
// found=true, while every other descriptor only gets a liveness check.
// A PID that is not registered yields found=false.
// Any descriptor whose process is gone is forced to Terminated.
// 对 AllRegistered，每个描述符都会通过 Controller 应用状态，返回 (零值, false, nil)。
// 对单个 PID，匹配的描述符被更新并返回其结果状态与 found=true，其他描述符仅做存活探测。
// 未注册的 PID 返回 found=false。进程已不存在的描述符会被强制置为 Terminated。
func (r *Registry) SetState(ctx context.Context, target Target, state process.State) (process.State, bool, error) {
	if err := r.lock(ctx); err != nil {
		return process.Created, false, err
	}
	defer r.unlock()

	var (
		result process.State
		found  bool
	)
	for elem := r.order.Front(); elem != nil; elem = elem.Next() {
		d := elem.Value.(*Descriptor)
		switch {
		case target.all || d.PID == target.pid:
			d.State = state
			if r.controller.Apply(d.PID, state) == process.Dead {
				d.State = process.Terminated
			}
			if !target.all {
				result, found = d.State, true
			}
		default:
			if !r.controller.Exists(d.PID) {
				d.State = process.Terminated
			}
		}
	}

	if target.all {
		return process.Created, false, nil
	}
	return result, found, nil
}

// FirstRunnable returns the first PID in order whose process still exists.
// Dead entries are skipped without being modified.
// FirstRunnable 按顺序返回第一个仍然存在的进程 PID，已退出的条目被跳过且不修改。
func (r *Registry) FirstRunnable(ctx context.Context) (int, bool, error) {
	if err := r.lock(ctx); err != nil {
		return 0, false, err
	}
	defer r.unlock()

	for elem := r.order.Front(); elem != nil; elem = elem.Next() {
		d := elem.Value.(*Descriptor)
		if r.controller.Exists(d.PID) {
			return d.PID, true, nil
		}
	}
	return 0, false, nil
}

// Snapshot returns the registered PIDs in queue order
// Snapshot 按队列顺序返回已注册的 PID
func (r *Registry) Snapshot(ctx context.Context) ([]int, error) {
	if err := r.lock(ctx); err != nil {
		return nil, err
	}
	defer r.unlock()

	pids := make([]int, 0, r.order.Len())
	for elem := r.order.Front(); elem != nil; elem = elem.Next() {
		pids = append(pids, elem.Value.(*Descriptor).PID)
	}
	return pids, nil
}

// Entries returns copies of the descriptors in queue order
// Entries 按队列顺序返回描述符副本
func (r *Registry) Entries(ctx context.Context) ([]Descriptor, error) {
	if err := r.lock(ctx); err != nil {
		return nil, err
	}
	defer r.unlock()

	entries := make([]Descriptor, 0, r.order.Len())
	for elem := r.order.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, *elem.Value.(*Descriptor))
	}
	return entries, nil
}

// Len returns the number of descriptors without taking the lock
// Len 不加锁返回描述符数量
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// Clear removes every descriptor without locking.
// The caller must guarantee no other operation is in flight.
// Clear 不加锁移除所有描述符，调用方需保证没有其他并发操作。
func (r *Registry) Clear() {
	r.order.Init()
	r.index = make(map[int]*list.Element)
	r.size.Store(0)
}
