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

// Package logger provides structured logging for the scheduler daemon.
// logger 包提供调度守护进程的结构化日志。
package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/seatunnel/rrsched/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu        sync.RWMutex
	base      = zap.NewNop()
	ctxLogger = otelzap.New(base)
)

// New builds a zap logger from the log configuration
// New 根据日志配置构建 zap 日志器
func New(cfg *config.LogConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat, Output: config.DefaultLogOutput}
	}

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var syncers []zapcore.WriteSyncer
	switch cfg.Output {
	case "stdout", "":
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	case "file":
		syncers = append(syncers, fileSyncer(cfg))
	case "both":
		syncers = append(syncers, zapcore.AddSync(os.Stdout), fileSyncer(cfg))
	default:
		return nil, fmt.Errorf("invalid log output %q", cfg.Output)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// fileSyncer returns a rotating file writer
// fileSyncer 返回支持轮转的文件写入器
func fileSyncer(cfg *config.LogConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
}

// Init builds the logger and installs it as the package-level logger
// Init 构建日志器并设置为包级日志器
func Init(cfg *config.LogConfig) (*zap.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

// Set installs l as the package-level logger
// Set 将 l 设置为包级日志器
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	ctxLogger = otelzap.New(l, otelzap.WithMinLevel(l.Level()))
}

// L returns the package-level zap logger
// L 返回包级 zap 日志器
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func sugar(ctx context.Context) otelzap.SugaredLoggerWithCtx {
	mu.RLock()
	defer mu.RUnlock()
	return ctxLogger.Sugar().Ctx(ctx)
}

// DebugF logs a formatted debug message carrying the trace context
// DebugF 记录携带追踪上下文的调试日志
func DebugF(ctx context.Context, format string, args ...interface{}) {
	sugar(ctx).Debugf(format, args...)
}

// InfoF logs a formatted info message carrying the trace context
// InfoF 记录携带追踪上下文的信息日志
func InfoF(ctx context.Context, format string, args ...interface{}) {
	sugar(ctx).Infof(format, args...)
}

// WarnF logs a formatted warning carrying the trace context
// WarnF 记录携带追踪上下文的警告日志
func WarnF(ctx context.Context, format string, args ...interface{}) {
	sugar(ctx).Warnf(format, args...)
}

// ErrorF logs a formatted error carrying the trace context
// ErrorF 记录携带追踪上下文的错误日志
func ErrorF(ctx context.Context, format string, args ...interface{}) {
	sugar(ctx).Errorf(format, args...)
}

// Sync flushes the package-level logger
// Sync 刷新包级日志器
func Sync() {
	_ = L().Sync()
}
