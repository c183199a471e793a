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
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is the gRPC client used by the CLI to talk to a running daemon
// Client 是 CLI 与运行中的守护进程通信的 gRPC 客户端
type Client struct {
	conn *grpc.ClientConn // gRPC 连接
}

// NewClient creates a client for target; extra options are appended to the defaults
// NewClient 创建连接 target 的客户端，额外选项追加在默认选项之后
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Register submits a textual PID and returns the bytes the daemon consumed
// Register 提交文本 PID 并返回守护进程消费的字节数
func (c *Client) Register(ctx context.Context, pid string) (int64, error) {
	resp := new(wrapperspb.Int64Value)
	if err := c.conn.Invoke(ctx, RegisterFullMethod, wrapperspb.String(pid), resp); err != nil {
		return 0, fmt.Errorf("registration failed: %w", err)
	}
	return resp.GetValue(), nil
}

// Next returns the first runnable PID or "none"
// Next 返回第一个可运行的 PID 或 "none"
func (c *Client) Next(ctx context.Context) (string, error) {
	resp := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, NextFullMethod, &emptypb.Empty{}, resp); err != nil {
		return "", fmt.Errorf("next query failed: %w", err)
	}
	return resp.GetValue(), nil
}

// Unregister removes a PID from the daemon's queue
// Unregister 将 PID 移出守护进程的队列
func (c *Client) Unregister(ctx context.Context, pid int) error {
	if err := c.conn.Invoke(ctx, UnregisterFullMethod, wrapperspb.Int64(int64(pid)), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("unregistration failed: %w", err)
	}
	return nil
}

// Close closes the underlying connection
// Close 关闭底层连接
func (c *Client) Close() error {
	return c.conn.Close()
}
