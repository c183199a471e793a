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
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// APIPrefix is the route prefix of the HTTP surface
// APIPrefix 是 HTTP 接口的路由前缀
const APIPrefix = "/api/v1"

// RouterConfig holds configuration for the HTTP router.
// RouterConfig 保存 HTTP 路由的配置。
type RouterConfig struct {
	// ServiceName is reported by the tracing middleware
	// ServiceName 由追踪中间件上报
	ServiceName string

	Logger *zap.Logger
}

// NewRouter builds the gin engine serving the registration endpoint
// NewRouter 构建提供注册端点的 gin 引擎
func NewRouter(h *Handler, cfg *RouterConfig) *gin.Engine {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rrsched"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName), loggerMiddleware(log))

	apiV1Router := r.Group(APIPrefix)
	{
		// Health
		apiV1Router.GET("/health", h.Health)

		// Processes 进程注册
		processRouter := apiV1Router.Group("/processes")
		{
			processRouter.POST("", h.RegisterProcess)
			processRouter.GET("", h.ListProcesses)
			processRouter.GET("/next", h.NextProcess)
			processRouter.DELETE("/:pid", h.UnregisterProcess)
		}

		// Scheduler 调度器
		apiV1Router.GET("/scheduler", h.SchedulerStatus)
	}

	return r
}

// loggerMiddleware logs one line per request
// loggerMiddleware 每个请求记录一行日志
func loggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			log.Warn("HTTP request", fields...)
			return
		}
		log.Debug("HTTP request", fields...)
	}
}
