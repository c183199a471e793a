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

// Package otel_trace wires OpenTelemetry tracing for the scheduler daemon.
// otel_trace 包为调度守护进程接入 OpenTelemetry 追踪。
package otel_trace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/seatunnel/rrsched/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// InstrumentationName is the tracer name used for scheduler spans
// InstrumentationName 是调度器 span 使用的 tracer 名称
const InstrumentationName = "github.com/seatunnel/rrsched"

var (
	mu            sync.RWMutex
	tracer        trace.Tracer = noop.NewTracerProvider().Tracer("noop")
	shutdownFuncs []func(context.Context) error
	enabled       bool
)

// Init initializes OpenTelemetry tracing based on configuration.
// Init 根据配置初始化 OpenTelemetry 追踪。
// A disabled or failing setup leaves the noop tracer in place.
// 未启用或初始化失败时使用空操作追踪器。
func Init(ctx context.Context, cfg *config.TelemetryConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil || !cfg.Enabled {
		logger.Info("OpenTelemetry tracing is disabled")
		useNoop()
		return nil
	}

	logger.Info("Initializing OpenTelemetry tracing", zap.String("endpoint", cfg.Endpoint))

	// 初始化 Propagator
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// 初始化 Trace Provider
	provider, err := newTracerProvider(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to init trace provider, using noop tracer", zap.Error(err))
		useNoop()
		return err
	}
	otel.SetTracerProvider(provider)

	mu.Lock()
	shutdownFuncs = append(shutdownFuncs, provider.Shutdown)
	tracer = provider.Tracer(InstrumentationName)
	enabled = true
	mu.Unlock()

	logger.Info("OpenTelemetry tracing initialized")
	return nil
}

func newTracerProvider(ctx context.Context, cfg *config.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func useNoop() {
	mu.Lock()
	defer mu.Unlock()
	tracer = noop.NewTracerProvider().Tracer("noop")
	enabled = false
}

// IsEnabled returns whether tracing is enabled.
// IsEnabled 返回追踪是否已启用。
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Shutdown flushes and stops every installed provider
// Shutdown 刷新并停止所有已安装的提供者
func Shutdown(ctx context.Context) error {
	mu.Lock()
	funcs := shutdownFuncs
	shutdownFuncs = nil
	mu.Unlock()

	var errs []error
	for _, fn := range funcs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	useNoop()
	return errors.Join(errs...)
}

// Start starts a span from the package tracer
// Start 使用包级 tracer 开启一个 span
func Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	mu.RLock()
	t := tracer
	mu.RUnlock()
	return t.Start(ctx, name, opts...)
}

// SetTracerProvider installs a provider directly, mainly for tests
// SetTracerProvider 直接设置提供者，主要用于测试
func SetTracerProvider(tp trace.TracerProvider) {
	mu.Lock()
	defer mu.Unlock()
	tracer = tp.Tracer(InstrumentationName)
	enabled = true
}
