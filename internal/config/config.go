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

// Package config provides configuration management for the scheduler daemon.
// config 包提供调度守护进程的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Environment variables / 环境变量
// 2. Configuration file / 配置文件
// 3. Default values / 默认值
//
// The quantum is read once at startup and is not hot-reloaded.
// 时间片仅在启动时读取，不支持热加载。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath    = "/etc/rrsched/config.yaml"
	DefaultQuantum       = 3 * time.Second
	MinQuantum           = 100 * time.Millisecond
	DefaultController    = ControllerSignal
	DefaultHTTPAddr      = ":8088"
	DefaultHTTPMode      = "release"
	DefaultGRPCPort      = 9098
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogOutput     = "stdout"
	DefaultLogFile       = "/var/log/rrsched/rrsched.log"
	DefaultLogMaxSize    = 100 // MB
	DefaultLogMaxBackups = 3
	DefaultLogMaxAge     = 7 // days
	DefaultOTLPEndpoint  = "localhost:4317"
	DefaultServiceName   = "rrsched"

	// EnvPrefix is the prefix of environment overrides, e.g. RRSCHED_SCHEDULER_QUANTUM
	// EnvPrefix 是环境变量覆盖的前缀，例如 RRSCHED_SCHEDULER_QUANTUM
	EnvPrefix = "RRSCHED"
)

// Controller types
// 控制器类型
const (
	ControllerSignal = "signal"
	ControllerDryRun = "dry-run"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set config file path / 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		v.SetConfigFile(DefaultConfigPath)
	}

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if we have defaults
		// 如果有默认值，配置文件未找到不是错误
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return unmarshal(v)
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults first / 首先设置默认值
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewReader(yamlData)); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Generate scheduler ID if not set / 如果未设置则生成调度器 ID
	if cfg.Scheduler.ID == "" {
		cfg.Scheduler.ID = uuid.NewString()
	}
	return &cfg, nil
}

// secondsToDurationHook decodes plain numbers into durations measured in seconds
// secondsToDurationHook 将纯数字解码为以秒为单位的时长
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType || from == durationType {
			return data, nil
		}
		value := reflect.ValueOf(data)
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(value.Int()) * time.Second, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(value.Uint()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(value.Float() * float64(time.Second)), nil
		case reflect.String:
			if n, err := strconv.ParseInt(strings.TrimSpace(value.String()), 10, 64); err == nil {
				return time.Duration(n) * time.Second, nil
			}
		}
		return data, nil
	}
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Scheduler defaults / 调度器默认值
	v.SetDefault("scheduler.id", "")
	v.SetDefault("scheduler.quantum", DefaultQuantum)

	// Registry defaults / 注册表默认值
	v.SetDefault("registry.capacity", 0)

	// Controller defaults / 控制器默认值
	v.SetDefault("controller.type", DefaultController)

	// Endpoint defaults / 端点默认值
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.mode", DefaultHTTPMode)
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", DefaultGRPCPort)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output", DefaultLogOutput)
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
	v.SetDefault("log.compress", false)

	// Telemetry defaults / 遥测默认值
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", DefaultOTLPEndpoint)
	v.SetDefault("telemetry.service_name", DefaultServiceName)
	v.SetDefault("telemetry.insecure", true)
}

// Default returns the default configuration
// Default 返回默认配置
func Default() *Config {
	cfg, err := LoadFromYAML(nil)
	if err != nil {
		// Defaults alone always decode
		panic(err)
	}
	return cfg
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	// Validate quantum / 验证时间片
	if c.Scheduler.Quantum < MinQuantum {
		return fmt.Errorf("scheduler.quantum must be at least %s", MinQuantum)
	}

	// Validate registry / 验证注册表
	if c.Registry.Capacity < 0 {
		return errors.New("registry.capacity must not be negative")
	}

	// Validate controller / 验证控制器
	switch c.Controller.Type {
	case ControllerSignal, ControllerDryRun:
	default:
		return fmt.Errorf("invalid controller.type: %s (must be %s or %s)", c.Controller.Type, ControllerSignal, ControllerDryRun)
	}

	// Validate endpoints / 验证端点
	if c.HTTP.Enabled {
		if c.HTTP.Addr == "" {
			return errors.New("http.addr is required when http is enabled")
		}
		switch c.HTTP.Mode {
		case "debug", "release", "test":
		default:
			return fmt.Errorf("invalid http.mode: %s (must be debug, release, or test)", c.HTTP.Mode)
		}
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid grpc.port: %d", c.GRPC.Port)
	}

	// Validate log / 验证日志
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Log.Format)
	}
	switch c.Log.Output {
	case "stdout":
	case "file", "both":
		if c.Log.File == "" {
			return errors.New("log.file is required when logging to a file")
		}
	default:
		return fmt.Errorf("invalid log output: %s (must be stdout, file, or both)", c.Log.Output)
	}

	// Validate telemetry / 验证遥测
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}

	return nil
}

// GRPCTarget returns the local dial target of the gRPC endpoint
// GRPCTarget 返回 gRPC 端点的本地拨号地址
func (c *Config) GRPCTarget() string {
	return fmt.Sprintf("127.0.0.1:%d", c.GRPC.Port)
}

// String returns a string representation of the config (for debugging)
// String 返回配置的字符串表示（用于调试）
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Scheduler.ID: %s, Scheduler.Quantum: %v, Controller.Type: %s, HTTP.Addr: %s, GRPC.Port: %d, Log.Level: %s}",
		c.Scheduler.ID,
		c.Scheduler.Quantum,
		c.Controller.Type,
		c.HTTP.Addr,
		c.GRPC.Port,
		c.Log.Level,
	)
}

// ToYAML serializes the configuration to YAML format
// ToYAML 将配置序列化为 YAML 格式
func (c *Config) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Equal compares two configs for equality
// Equal 比较两个配置是否相等
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}
