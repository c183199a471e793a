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

import "go.uber.org/zap"

// DryRunController checks liveness through another Controller but only logs
// the pause/resume directives instead of delivering them.
// DryRunController 通过另一个 Controller 探测存活，但只记录暂停/恢复指令而不实际下发。
type DryRunController struct {
	liveness Controller
	logger   *zap.Logger
}

// NewDryRunController creates a new DryRunController instance
// NewDryRunController 创建一个新的 DryRunController 实例
func NewDryRunController(liveness Controller, logger *zap.Logger) *DryRunController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DryRunController{liveness: liveness, logger: logger}
}

// Exists delegates to the wrapped controller
func (c *DryRunController) Exists(pid int) bool {
	return c.liveness.Exists(pid)
}

// Apply logs the directive that would have been sent
// Apply 记录本应下发的指令
func (c *DryRunController) Apply(pid int, state State) Outcome {
	if !c.liveness.Exists(pid) {
		return Dead
	}
	c.logger.Info("Dry run: skipping process directive",
		zap.Int("pid", pid),
		zap.Stringer("state", state),
	)
	return Alive
}
