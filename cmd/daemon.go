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

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seatunnel/rrsched/internal/config"
	"github.com/seatunnel/rrsched/internal/endpoint"
	rrgrpc "github.com/seatunnel/rrsched/internal/grpc"
	"github.com/seatunnel/rrsched/internal/process"
	"github.com/seatunnel/rrsched/internal/registry"
	"github.com/seatunnel/rrsched/internal/scheduler"
	"go.uber.org/zap"
)

// Daemon wires the registry, the rotation loop and both endpoints together
// Daemon 将注册表、轮转循环与两个端点组装在一起
type Daemon struct {
	// config holds the daemon configuration
	// config 保存守护进程配置
	config *config.Config

	logger *zap.Logger

	// registry is shared by the scheduler and the endpoints
	// registry 由调度器与端点共享
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	service   *endpoint.Service

	httpServer   *http.Server
	httpListener net.Listener
	grpcServer   *rrgrpc.Server

	// mu protects the running state
	// mu 保护运行状态
	mu      sync.Mutex
	running bool
}

// newController builds the process controller named by the configuration
// newController 根据配置构建进程控制器
func newController(kind string, logger *zap.Logger) (process.Controller, error) {
	switch kind {
	case config.ControllerSignal:
		return process.NewSignalController(logger), nil
	case config.ControllerDryRun:
		return process.NewDryRunController(process.NewSignalController(logger), logger), nil
	default:
		return nil, fmt.Errorf("unknown controller type: %s", kind)
	}
}

// NewDaemon creates a new Daemon with all components initialized
// NewDaemon 创建一个初始化所有组件的新 Daemon 实例
func NewDaemon(cfg *config.Config, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	controller, err := newController(cfg.Controller.Type, logger.Named("controller"))
	if err != nil {
		return nil, err
	}
	return newDaemon(cfg, controller, logger), nil
}

// newDaemon assembles a Daemon around an already built controller
// newDaemon 使用已构建的控制器组装 Daemon
func newDaemon(cfg *config.Config, controller process.Controller, logger *zap.Logger) *Daemon {
	reg := registry.New(controller, &registry.Config{
		Capacity: cfg.Registry.Capacity,
		Logger:   logger.Named("registry"),
	})
	sched := scheduler.New(reg, &scheduler.Config{
		ID:      cfg.Scheduler.ID,
		Quantum: cfg.Scheduler.Quantum,
		Logger:  logger.Named("scheduler"),
	})
	service := endpoint.NewService(reg, &endpoint.ServiceConfig{Logger: logger.Named("endpoint")})

	d := &Daemon{
		config:    cfg,
		logger:    logger,
		registry:  reg,
		scheduler: sched,
		service:   service,
	}

	if cfg.HTTP.Enabled {
		gin.SetMode(cfg.HTTP.Mode)
		router := endpoint.NewRouter(endpoint.NewHandler(service, sched), &endpoint.RouterConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Logger:      logger.Named("http"),
		})
		d.httpServer = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	if cfg.GRPC.Enabled {
		d.grpcServer = rrgrpc.NewServer(&rrgrpc.ServerConfig{Port: cfg.GRPC.Port}, service, logger.Named("grpc"))
	}

	return d
}

// Start starts the endpoints and the rotation loop
// Start 启动端点与轮转循环
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon is already running / 守护进程已在运行")
	}

	d.logger.Info("Starting rrsched",
		zap.String("version", Version),
		zap.String("scheduler_id", d.config.Scheduler.ID),
		zap.Duration("quantum", d.config.Scheduler.Quantum),
		zap.String("controller", d.config.Controller.Type),
	)

	// Step 1: HTTP endpoint / 步骤 1：HTTP 端点
	if d.httpServer != nil {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", d.httpServer.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", d.httpServer.Addr, err)
		}
		d.httpListener = ln
		go func() {
			if err := d.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("HTTP server error", zap.Error(err))
			}
		}()
		d.logger.Info("HTTP endpoint listening", zap.String("addr", ln.Addr().String()))
	}

	// Step 2: gRPC endpoint / 步骤 2：gRPC 端点
	if d.grpcServer != nil {
		if err := d.grpcServer.Start(ctx); err != nil {
			d.closeHTTP(ctx)
			return err
		}
	}

	// Step 3: rotation loop / 步骤 3：轮转循环
	if err := d.scheduler.Start(ctx); err != nil {
		d.closeHTTP(ctx)
		if d.grpcServer != nil {
			d.grpcServer.Stop()
		}
		return err
	}

	d.running = true
	d.logger.Info("rrsched started")
	return nil
}

// HTTPAddr returns the bound HTTP address, empty when HTTP is disabled
// HTTPAddr 返回绑定的 HTTP 地址，未启用 HTTP 时为空
func (d *Daemon) HTTPAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.httpListener == nil {
		return ""
	}
	return d.httpListener.Addr().String()
}

func (d *Daemon) closeHTTP(ctx context.Context) {
	if d.httpServer == nil || d.httpListener == nil {
		return
	}
	if err := d.httpServer.Shutdown(ctx); err != nil {
		d.logger.Warn("Failed to shut down HTTP server", zap.Error(err))
	}
	d.httpListener = nil
}

// Shutdown stops the endpoints, then the loop, resumes every paused process
// and finally clears the registry.
// Shutdown 依次停止端点与轮转循环，恢复所有被暂停的进程，最后清空注册表。
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false

	d.logger.Info("Shutting down rrsched")

	// Step 1: stop accepting registrations / 步骤 1：停止接受注册
	d.closeHTTP(ctx)
	if d.grpcServer != nil {
		d.grpcServer.Stop()
	}

	// Step 2: stop the rotation loop / 步骤 2：停止轮转循环
	if err := d.scheduler.Stop(ctx); err != nil {
		// A step may still hold the registry, so it is neither resumed nor cleared
		// 轮转步骤可能仍持有注册表，因此既不恢复进程也不清空注册表
		d.logger.Error("Rotation loop did not stop, registry left intact", zap.Error(err))
		return err
	}

	var errs []error

	// Step 3: a paused process must not outlive the scheduler stopped
	// 步骤 3：被暂停的进程不能在调度器退出后保持暂停
	if _, _, err := d.registry.SetState(context.WithoutCancel(ctx), registry.AllRegistered, process.Running); err != nil {
		errs = append(errs, fmt.Errorf("failed to resume registered processes: %w", err))
	}

	// Step 4: no concurrent access is possible past this point
	// 步骤 4：此后不可能再有并发访问
	d.registry.Clear()

	d.logger.Info("rrsched shutdown complete")
	return errors.Join(errs...)
}
