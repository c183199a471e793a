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

// Package grpc provides the gRPC transport of the registration endpoint.
// grpc 包提供注册端点的 gRPC 传输。
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/seatunnel/rrsched/internal/endpoint"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Default configuration values for gRPC server
// gRPC 服务器的默认配置值
const (
	// DefaultGRPCPort is the default port for gRPC server.
	// DefaultGRPCPort 是 gRPC 服务器的默认端口。
	DefaultGRPCPort = 9098

	// DefaultMaxRecvMsgSize is the default maximum receive message size (64KB).
	// DefaultMaxRecvMsgSize 是默认的最大接收消息大小（64KB）。
	DefaultMaxRecvMsgSize = 64 * 1024

	// DefaultMaxSendMsgSize is the default maximum send message size (64KB).
	// DefaultMaxSendMsgSize 是默认的最大发送消息大小（64KB）。
	DefaultMaxSendMsgSize = 64 * 1024
)

// Errors for gRPC server operations
// gRPC 服务器操作的错误定义
var (
	// ErrServerAlreadyRunning indicates the server is already running.
	// ErrServerAlreadyRunning 表示服务器已在运行。
	ErrServerAlreadyRunning = errors.New("grpc: server is already running")
)

// ServerConfig holds configuration for the gRPC server.
// ServerConfig 保存 gRPC 服务器的配置。
type ServerConfig struct {
	// Port is the port number for the gRPC server.
	// Port 是 gRPC 服务器的端口号。
	Port int

	// MaxRecvMsgSize is the maximum receive message size in bytes.
	// MaxRecvMsgSize 是最大接收消息大小（字节）。
	MaxRecvMsgSize int

	// MaxSendMsgSize is the maximum send message size in bytes.
	// MaxSendMsgSize 是最大发送消息大小（字节）。
	MaxSendMsgSize int
}

// Server serves the registration service over gRPC.
// Server 通过 gRPC 提供注册服务。
type Server struct {
	config  *ServerConfig
	handler RegistrationServer
	logger  *zap.Logger

	mu         sync.Mutex
	grpcServer *grpc.Server
	listener   net.Listener
	running    bool
}

// NewServer creates a new gRPC server instance.
// NewServer 创建一个新的 gRPC 服务器实例。
func NewServer(config *ServerConfig, service *endpoint.Service, logger *zap.Logger) *Server {
	if config == nil {
		config = &ServerConfig{}
	}

	// Set default values
	// 设置默认值
	if config.Port <= 0 {
		config.Port = DefaultGRPCPort
	}
	if config.MaxRecvMsgSize <= 0 {
		config.MaxRecvMsgSize = DefaultMaxRecvMsgSize
	}
	if config.MaxSendMsgSize <= 0 {
		config.MaxSendMsgSize = DefaultMaxSendMsgSize
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		config:  config,
		handler: &registration{service: service},
		logger:  logger,
	}
}

// Start listens on the configured port and serves in the background.
// Start 监听配置的端口并在后台提供服务。
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if err := s.serve(listener); err != nil {
		_ = listener.Close()
		return err
	}
	return nil
}

// Serve serves on an existing listener in the background.
// Serve 在已有的监听器上后台提供服务。
func (s *Server) Serve(listener net.Listener) error {
	return s.serve(listener)
}

func (s *Server) serve(listener net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrServerAlreadyRunning
	}

	s.grpcServer = grpc.NewServer(s.buildServerOptions()...)
	RegisterRegistrationServer(s.grpcServer, s.handler)
	s.listener = listener
	s.running = true

	s.logger.Info("gRPC server starting", zap.String("addr", listener.Addr().String()))

	grpcServer := s.grpcServer
	go func() {
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the gRPC server.
// Stop 优雅地停止 gRPC 服务器。
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.logger.Info("Stopping gRPC server")
	s.grpcServer.GracefulStop()
	s.running = false
	s.logger.Info("gRPC server stopped")
}

// IsRunning returns whether the server is running.
// IsRunning 返回服务器是否正在运行。
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the listening address, empty when not running.
// Addr 返回监听地址，未运行时为空。
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// buildServerOptions builds gRPC server options based on configuration.
// buildServerOptions 根据配置构建 gRPC 服务器选项。
func (s *Server) buildServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(s.config.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(s.config.MaxSendMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 15 * time.Minute,
			Time:              5 * time.Minute,
			Timeout:           20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			s.loggingUnaryInterceptor,
			s.recoveryUnaryInterceptor,
		),
	}
}

// loggingUnaryInterceptor logs unary RPC calls.
// loggingUnaryInterceptor 记录一元 RPC 调用。
func (s *Server) loggingUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	peerAddr := "unknown"
	if p, ok := peer.FromContext(ctx); ok {
		peerAddr = p.Addr.String()
	}

	resp, err := handler(ctx, req)

	duration := time.Since(start)
	if err != nil {
		s.logger.Warn("gRPC unary call failed",
			zap.String("method", info.FullMethod),
			zap.String("peer", peerAddr),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("gRPC unary call completed",
			zap.String("method", info.FullMethod),
			zap.String("peer", peerAddr),
			zap.Duration("duration", duration),
		)
	}

	return resp, err
}

// recoveryUnaryInterceptor recovers from panics in unary handlers.
// recoveryUnaryInterceptor 从一元处理器的 panic 中恢复。
func (s *Server) recoveryUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("gRPC unary handler panic",
				zap.String("method", info.FullMethod),
				zap.Any("panic", r),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}
