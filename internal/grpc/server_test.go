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

package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/seatunnel/rrsched/internal/endpoint"
	"github.com/seatunnel/rrsched/internal/process"
	"github.com/seatunnel/rrsched/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// testServer wraps the gRPC server for testing.
// testServer 包装 gRPC 服务器用于测试。
type testServer struct {
	server   *Server
	listener *bufconn.Listener
	registry *registry.Registry
	fake     *process.FakeController
}

// newTestServer creates a new test server with in-memory connection.
// newTestServer 创建一个使用内存连接的测试服务器。
func newTestServer(t *testing.T, capacity int, pids ...int) *testServer {
	t.Helper()
	listener := bufconn.Listen(bufSize)

	fake := process.NewFakeController(pids...)
	reg := registry.New(fake, &registry.Config{Capacity: capacity})
	service := endpoint.NewService(reg, &endpoint.ServiceConfig{SelfPID: 999999})

	logger, _ := zap.NewDevelopment()
	server := NewServer(nil, service, logger)
	require.NoError(t, server.Serve(listener))

	ts := &testServer{server: server, listener: listener, registry: reg, fake: fake}
	t.Cleanup(ts.close)
	return ts
}

// client creates a client connected to the test server.
// client 创建连接到测试服务器的客户端。
func (ts *testServer) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return ts.listener.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// close stops the test server.
// close 停止测试服务器。
func (ts *testServer) close() {
	ts.server.Stop()
	_ = ts.listener.Close()
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestNewServer tests server creation with various configurations.
// TestNewServer 测试使用各种配置创建服务器。
func TestNewServer(t *testing.T) {
	t.Run("with nil config uses defaults", func(t *testing.T) {
		server := NewServer(nil, nil, nil)
		assert.Equal(t, DefaultGRPCPort, server.config.Port)
		assert.Equal(t, DefaultMaxRecvMsgSize, server.config.MaxRecvMsgSize)
		assert.Equal(t, DefaultMaxSendMsgSize, server.config.MaxSendMsgSize)
		assert.NotNil(t, server.logger)
	})

	t.Run("with custom config", func(t *testing.T) {
		server := NewServer(&ServerConfig{Port: 9001, MaxRecvMsgSize: 1024, MaxSendMsgSize: 2048}, nil, nil)
		assert.Equal(t, 9001, server.config.Port)
		assert.Equal(t, 1024, server.config.MaxRecvMsgSize)
		assert.Equal(t, 2048, server.config.MaxSendMsgSize)
	})
}

// TestServerStartStop tests server start and stop operations.
// TestServerStartStop 测试服务器启动和停止操作。
func TestServerStartStop(t *testing.T) {
	t.Run("start and stop server", func(t *testing.T) {
		server := NewServer(&ServerConfig{Port: 19098}, nil, nil)

		require.NoError(t, server.Start(context.Background()))
		assert.True(t, server.IsRunning())
		assert.NotEmpty(t, server.Addr())

		server.Stop()
		assert.False(t, server.IsRunning())
		assert.Empty(t, server.Addr())
	})

	t.Run("double start returns error", func(t *testing.T) {
		server := NewServer(nil, nil, nil)
		require.NoError(t, server.Serve(bufconn.Listen(bufSize)))
		defer server.Stop()

		assert.ErrorIs(t, server.Serve(bufconn.Listen(bufSize)), ErrServerAlreadyRunning)
	})

	t.Run("stop when not running is safe", func(t *testing.T) {
		server := NewServer(nil, nil, nil)
		server.Stop()
		assert.False(t, server.IsRunning())
	})
}

// TestRegisterRPC tests the Register RPC method.
// TestRegisterRPC 测试 Register RPC 方法。
func TestRegisterRPC(t *testing.T) {
	ts := newTestServer(t, 0, 42)
	c := ts.client(t)
	ctx := testContext(t)

	n, err := c.Register(ctx, " 42\n")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	pids, err := ts.registry.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, pids)
	assert.Equal(t, []process.Directive{{PID: 42, State: process.Waiting}}, ts.fake.Directives())
}

// TestRegisterRPCErrors tests status codes returned by Register.
// TestRegisterRPCErrors 测试 Register 返回的状态码。
func TestRegisterRPCErrors(t *testing.T) {
	ts := newTestServer(t, 1, 1, 2)
	c := ts.client(t)
	ctx := testContext(t)

	_, err := c.Register(ctx, "not-a-pid")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// 1<<32 would truncate to pid 0 in kill(2)
	// 1<<32 在 kill(2) 中会被截断为 pid 0
	_, err = c.Register(ctx, "4294967296")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Zero(t, ts.fake.Calls())

	_, err = c.Register(ctx, "1")
	require.NoError(t, err)

	_, err = c.Register(ctx, "2")
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	assert.Equal(t, 1, ts.registry.Len())
}

// TestNextRPC tests the Next RPC method.
// TestNextRPC 测试 Next RPC 方法。
func TestNextRPC(t *testing.T) {
	ts := newTestServer(t, 0, 3, 4)
	c := ts.client(t)
	ctx := testContext(t)

	next, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, endpoint.NoneValue, next)

	require.NoError(t, ts.registry.Enqueue(ctx, 3))
	require.NoError(t, ts.registry.Enqueue(ctx, 4))
	ts.fake.Kill(3)

	next, err = c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4", next)
}

// TestUnregisterRPC tests the Unregister RPC method.
// TestUnregisterRPC 测试 Unregister RPC 方法。
func TestUnregisterRPC(t *testing.T) {
	ts := newTestServer(t, 0, 5)
	c := ts.client(t)
	ctx := testContext(t)

	require.NoError(t, ts.registry.Enqueue(ctx, 5))
	require.NoError(t, c.Unregister(ctx, 5))
	assert.Zero(t, ts.registry.Len())

	err := c.Unregister(ctx, -1)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = c.Unregister(ctx, 1<<32)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestToStatus tests the error to status code mapping.
// TestToStatus 测试错误到状态码的映射。
func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(endpoint.ErrInvalidInput)))
	assert.Equal(t, codes.ResourceExhausted, status.Code(toStatus(endpoint.ErrAllocationFailure)))
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(endpoint.ErrLockInterrupted)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}

// TestRecoveryInterceptor tests that handler panics become Internal errors.
// TestRecoveryInterceptor 测试处理器 panic 被转换为 Internal 错误。
func TestRecoveryInterceptor(t *testing.T) {
	server := NewServer(nil, nil, nil)
	info := &grpc.UnaryServerInfo{FullMethod: RegisterFullMethod}

	resp, err := server.recoveryUnaryInterceptor(context.Background(), nil, info,
		func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}
