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

package endpoint

import (
	"errors"

	"github.com/seatunnel/rrsched/internal/registry"
)

// Error definitions for endpoint package.
// 端点包的错误定义。
var (
	// ErrInvalidInput indicates the input is not a positive base-10 process ID.
	// ErrInvalidInput 表示输入不是正的十进制进程 ID。
	ErrInvalidInput = errors.New("invalid process id / 无效的进程 ID")

	// ErrAllocationFailure is surfaced when the registry cannot take another process.
	// ErrAllocationFailure 在注册表无法容纳更多进程时返回。
	ErrAllocationFailure = registry.ErrAllocationFailure

	// ErrLockInterrupted is surfaced when the registry lock wait was cancelled.
	// ErrLockInterrupted 在等待注册表锁被取消时返回。
	ErrLockInterrupted = registry.ErrLockInterrupted
)
