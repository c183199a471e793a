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
	"errors"

	"github.com/seatunnel/rrsched/internal/endpoint"
	"github.com/seatunnel/rrsched/internal/process"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names of the registration service
// 注册服务的完整方法名
const (
	ServiceName          = "rrsched.v1.Registration"
	RegisterFullMethod   = "/" + ServiceName + "/Register"
	NextFullMethod       = "/" + ServiceName + "/Next"
	UnregisterFullMethod = "/" + ServiceName + "/Unregister"
)

// RegistrationServer is the server API of the registration service.
// RegistrationServer 是注册服务的服务端接口。
type RegistrationServer interface {
	// Register enqueues the textual PID and returns the bytes consumed.
	// Register 将文本 PID 入队并返回消费的字节数。
	Register(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)

	// Next reports the first runnable PID or "none".
	// Next 返回第一个可运行的 PID 或 "none"。
	Next(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)

	// Unregister removes a PID from the queue.
	// Unregister 将 PID 移出队列。
	Unregister(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

// RegistrationServiceDesc describes the registration service for grpc.Server.RegisterService
// RegistrationServiceDesc 描述注册服务，用于 grpc.Server.RegisterService
var RegistrationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistrationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: registerHandler},
		{MethodName: "Next", Handler: nextHandler},
		{MethodName: "Unregister", Handler: unregisterHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rrsched/v1/registration.proto",
}

// RegisterRegistrationServer registers srv on s.
// RegisterRegistrationServer 在 s 上注册 srv。
func RegisterRegistrationServer(s grpc.ServiceRegistrar, srv RegistrationServer) {
	s.RegisterService(&RegistrationServiceDesc, srv)
}

func registerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistrationServer).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RegisterFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistrationServer).Register(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func nextHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistrationServer).Next(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: NextFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistrationServer).Next(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func unregisterHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistrationServer).Unregister(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: UnregisterFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistrationServer).Unregister(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// ==================== Registration Handlers 注册处理器 ====================

// registration adapts the endpoint service to the gRPC API
// registration 将端点服务适配为 gRPC 接口
type registration struct {
	service *endpoint.Service
}

// Register handles Register requests from clients.
// Register 处理客户端的注册请求。
func (r *registration) Register(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	n, err := r.service.Write(ctx, []byte(req.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Int64(int64(n)), nil
}

// Next handles Next requests; it never fails.
// Next 处理 Next 请求，不会失败。
func (r *registration) Next(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(r.service.Read(ctx)), nil
}

// Unregister handles Unregister requests from clients.
// Unregister 处理客户端的注销请求。
func (r *registration) Unregister(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	pid := req.GetValue()
	if pid <= 0 || pid > process.MaxPID {
		return nil, status.Errorf(codes.InvalidArgument, "invalid pid %d", pid)
	}
	if err := r.service.Unregister(ctx, int(pid)); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// toStatus maps endpoint errors to gRPC status codes
// toStatus 将端点错误映射为 gRPC 状态码
func toStatus(err error) error {
	switch {
	case errors.Is(err, endpoint.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, endpoint.ErrAllocationFailure):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, endpoint.ErrLockInterrupted):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
