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
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seatunnel/rrsched/internal/logger"
	"github.com/seatunnel/rrsched/internal/process"
	"github.com/seatunnel/rrsched/internal/registry"
	"github.com/seatunnel/rrsched/internal/scheduler"
)

// maxBodySize bounds a registration body, a PID never needs more
const maxBodySize = 64

// StatusProvider reports the scheduler status.
// StatusProvider 报告调度器状态。
type StatusProvider interface {
	Status() scheduler.Status
}

// Handler provides HTTP handlers for process registration.
// Handler 提供进程注册的 HTTP 处理器。
type Handler struct {
	service *Service
	status  StatusProvider
}

// NewHandler creates a new Handler instance.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(service *Service, status StatusProvider) *Handler {
	return &Handler{service: service, status: status}
}

// ==================== Response Types 响应类型 ====================

// ErrorResponse represents an error response.
// ErrorResponse 表示错误响应。
type ErrorResponse struct {
	ErrorMsg string `json:"error_msg"`
}

// RegisterResponse is returned after a successful registration.
// RegisterResponse 是注册成功后的响应。
type RegisterResponse struct {
	PID   int `json:"pid"`
	Bytes int `json:"bytes"`
}

// ListResponse lists the registered processes.
// ListResponse 列出已注册的进程。
type ListResponse struct {
	Processes []registry.Descriptor `json:"processes"`
	Count     int                   `json:"count"`
}

// NextResponse reports the next runnable process.
// NextResponse 报告下一个可运行进程。
type NextResponse struct {
	Next string `json:"next"`
}

// statusFor maps endpoint errors to HTTP status codes
// statusFor 将端点错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrAllocationFailure):
		return http.StatusInsufficientStorage
	case errors.Is(err, ErrLockInterrupted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==================== Process Handlers 进程处理器 ====================

// RegisterProcess handles POST /api/v1/processes - registers the textual PID in the body.
// RegisterProcess 处理 POST /api/v1/processes - 注册请求体中的文本 PID。
func (h *Handler) RegisterProcess(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{ErrorMsg: "Failed to read request body / 读取请求体失败"})
		return
	}
	if len(body) > maxBodySize {
		c.JSON(http.StatusBadRequest, ErrorResponse{ErrorMsg: ErrInvalidInput.Error()})
		return
	}

	pid, n, err := h.service.Register(c.Request.Context(), body)
	if err != nil {
		logger.ErrorF(c.Request.Context(), "[Endpoint] Failed to register process: %v", err)
		c.JSON(statusFor(err), ErrorResponse{ErrorMsg: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{PID: pid, Bytes: n})
}

// UnregisterProcess handles DELETE /api/v1/processes/:pid - removes a process from the queue.
// UnregisterProcess 处理 DELETE /api/v1/processes/:pid - 将进程移出队列。
func (h *Handler) UnregisterProcess(c *gin.Context) {
	pid, err := ParsePID([]byte(c.Param("pid")))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{ErrorMsg: err.Error()})
		return
	}

	if err := h.service.Unregister(c.Request.Context(), pid); err != nil {
		logger.ErrorF(c.Request.Context(), "[Endpoint] Failed to unregister process %d: %v", pid, err)
		c.JSON(statusFor(err), ErrorResponse{ErrorMsg: err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListProcesses handles GET /api/v1/processes - lists registered processes with their states.
// An optional ?state= query keeps only the entries in that state.
// ListProcesses 处理 GET /api/v1/processes - 列出已注册进程及其状态。
// 可选的 ?state= 查询参数只保留处于该状态的条目。
func (h *Handler) ListProcesses(c *gin.Context) {
	var (
		filter    process.State
		hasFilter bool
	)
	if name, ok := c.GetQuery("state"); ok {
		state, err := process.ParseState(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{ErrorMsg: err.Error()})
			return
		}
		filter, hasFilter = state, true
	}

	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		logger.ErrorF(c.Request.Context(), "[Endpoint] Failed to list processes: %v", err)
		c.JSON(statusFor(err), ErrorResponse{ErrorMsg: err.Error()})
		return
	}

	if hasFilter {
		kept := make([]registry.Descriptor, 0, len(entries))
		for _, e := range entries {
			if e.State == filter {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	c.JSON(http.StatusOK, ListResponse{Processes: entries, Count: len(entries)})
}

// NextProcess handles GET /api/v1/processes/next - reports the first runnable process.
// NextProcess 处理 GET /api/v1/processes/next - 报告第一个可运行进程。
func (h *Handler) NextProcess(c *gin.Context) {
	c.JSON(http.StatusOK, NextResponse{Next: h.service.Read(c.Request.Context())})
}

// SchedulerStatus handles GET /api/v1/scheduler - reports the rotation loop status.
// SchedulerStatus 处理 GET /api/v1/scheduler - 报告轮转循环状态。
func (h *Handler) SchedulerStatus(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{ErrorMsg: "Scheduler not available / 调度器不可用"})
		return
	}
	c.JSON(http.StatusOK, h.status.Status())
}

// Health handles GET /api/v1/health.
// Health 处理 GET /api/v1/health。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
