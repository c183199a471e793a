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

package config

import "time"

// Config represents the scheduler daemon configuration
// Config 表示调度守护进程配置
type Config struct {
	// Scheduler loop configuration / 调度循环配置
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`

	// Process registry configuration / 进程注册表配置
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`

	// Process controller configuration / 进程控制器配置
	Controller ControllerConfig `mapstructure:"controller" yaml:"controller"`

	// HTTP registration endpoint / HTTP 注册端点
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`

	// gRPC registration endpoint / gRPC 注册端点
	GRPC GRPCConfig `mapstructure:"grpc" yaml:"grpc"`

	// Log configuration / 日志配置
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Telemetry configuration / 遥测配置
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// SchedulerConfig contains rotation loop settings
// SchedulerConfig 包含轮转循环设置
type SchedulerConfig struct {
	// ID is the unique identifier for this scheduler (auto-generated if empty)
	// ID 是此调度器的唯一标识符（如果为空则自动生成）
	ID string `mapstructure:"id" yaml:"id"`

	// Quantum is the time slice per process, plain integers are seconds
	// Quantum 是每个进程的时间片，纯整数表示秒
	Quantum time.Duration `mapstructure:"quantum" yaml:"quantum"`
}

// MarshalYAML renders the quantum as a duration string
// MarshalYAML 将时间片输出为时长字符串
func (s SchedulerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		ID      string `yaml:"id"`
		Quantum string `yaml:"quantum"`
	}{
		ID:      s.ID,
		Quantum: s.Quantum.String(),
	}, nil
}

// RegistryConfig contains process registry settings
// RegistryConfig 包含进程注册表设置
type RegistryConfig struct {
	// Capacity bounds the number of registered processes, 0 means unbounded
	// Capacity 限制已注册进程数量，0 表示不限
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// ControllerConfig contains process controller settings
// ControllerConfig 包含进程控制器设置
type ControllerConfig struct {
	// Type is the controller implementation (signal, dry-run)
	// Type 是控制器实现（signal, dry-run）
	Type string `mapstructure:"type" yaml:"type"`
}

// HTTPConfig contains HTTP endpoint settings
// HTTPConfig 包含 HTTP 端点设置
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`

	// Mode is the gin mode (debug, release, test)
	// Mode 是 gin 运行模式（debug, release, test）
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// GRPCConfig contains gRPC endpoint settings
// GRPCConfig 包含 gRPC 端点设置
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level" yaml:"level"`

	// Format is the encoder (json, console)
	// Format 是编码格式（json, console）
	Format string `mapstructure:"format" yaml:"format"`

	// Output is where logs go (stdout, file, both)
	// Output 是日志输出位置（stdout, file, both）
	Output string `mapstructure:"output" yaml:"output"`

	// File is the log file path
	// File 是日志文件路径
	File string `mapstructure:"file" yaml:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age" yaml:"max_age"`

	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings
// TelemetryConfig 包含 OpenTelemetry 设置
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector address
	// Endpoint 是 OTLP/gRPC 采集器地址
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
}
