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

//go:build !unix

package process

import "go.uber.org/zap"

// SignalController is unavailable on this platform; every process reads as dead
// SignalController 在此平台上不可用；所有进程均视为已退出
type SignalController struct {
	logger *zap.Logger
}

// NewSignalController creates a new SignalController instance
// NewSignalController 创建一个新的 SignalController 实例
func NewSignalController(logger *zap.Logger) *SignalController {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Warn("Signal based process control is not supported on this platform")
	return &SignalController{logger: logger}
}

// Exists always returns false
func (c *SignalController) Exists(pid int) bool {
	return false
}

// Apply always returns Dead
func (c *SignalController) Apply(pid int, state State) Outcome {
	return Dead
}
