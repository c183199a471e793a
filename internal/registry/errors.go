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

package registry

import "errors"

// Error definitions for registry package.
// 注册表包的错误定义。
var (
	// ErrAllocationFailure indicates descriptor storage could not be obtained.
	// ErrAllocationFailure 表示无法分配进程描述符。
	ErrAllocationFailure = errors.New("process descriptor allocation failed / 进程描述符分配失败")

	// ErrLockInterrupted indicates the registry lock wait was cancelled.
	// ErrLockInterrupted 表示等待注册表锁时被中断。
	ErrLockInterrupted = errors.New("registry lock wait interrupted / 等待注册表锁被中断")
)
