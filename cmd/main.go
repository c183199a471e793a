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

// Package main is the entry point for the rrsched daemon and its client commands.
// main 包是 rrsched 守护进程及其客户端命令的入口点。
//
// rrsched is a cooperative round-robin scheduler that:
// rrsched 是一个协作式轮转调度器，负责：
// - Accepts process registrations over HTTP and gRPC / 通过 HTTP 与 gRPC 接受进程注册
// - Lets exactly one registered process run per quantum / 每个时间片只让一个已注册进程运行
// - Evicts processes that have exited / 驱逐已退出的进程
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/seatunnel/rrsched/internal/config"
	rrgrpc "github.com/seatunnel/rrsched/internal/grpc"
	"github.com/seatunnel/rrsched/internal/logger"
	"github.com/seatunnel/rrsched/internal/otel_trace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const (
	// shutdownTimeout bounds the graceful shutdown
	// shutdownTimeout 限制优雅关闭的时长
	shutdownTimeout = 30 * time.Second

	// clientTimeout bounds a single client RPC
	// clientTimeout 限制单次客户端 RPC 的时长
	clientTimeout = 5 * time.Second
)

// options holds the global flags
// options 保存全局标志
type options struct {
	configFile string
	target     string
}

// newRootCmd builds the rrsched command tree
// newRootCmd 构建 rrsched 命令树
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "rrsched",
		Short: "rrsched - cooperative round-robin process scheduler",
		Long: `rrsched pauses registered processes and lets exactly one of them run per quantum.
rrsched 暂停已注册的进程，每个时间片只让其中一个运行。

Processes join the queue by writing their PID to the registration endpoint:
进程通过向注册端点写入 PID 加入队列：
- HTTP: POST /api/v1/processes
- gRPC: rrsched.v1.Registration/Register
- CLI:  rrsched register <pid>`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (default: "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newRegisterCmd(opts),
		newUnregisterCmd(opts),
		newNextCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig loads and validates the configuration
// loadConfig 加载并验证配置
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ==================== run ====================

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler daemon / 运行调度守护进程",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg)
		},
	}
}

// runDaemon runs the daemon until ctx is cancelled
// runDaemon 运行守护进程直到 ctx 被取消
func runDaemon(ctx context.Context, cfg *config.Config) error {
	log, err := logger.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	if err := otel_trace.Init(ctx, &cfg.Telemetry, log); err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	}

	daemon, err := NewDaemon(cfg, log)
	if err != nil {
		return err
	}

	// The loop context outlives the signal context, Shutdown stops it
	// 循环上下文的生命周期长于信号上下文，由 Shutdown 停止
	if err := daemon.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := daemon.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown finished with errors", zap.Error(err))
	}
	if err := otel_trace.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	return nil
}

// ==================== client commands 客户端命令 ====================

// dial opens a client to the daemon's gRPC endpoint
// dial 打开连接守护进程 gRPC 端点的客户端
func dial(opts *options) (*rrgrpc.Client, error) {
	target := opts.target
	if target == "" {
		cfg, err := loadConfig(opts)
		if err != nil {
			return nil, err
		}
		target = cfg.GRPCTarget()
	}
	return rrgrpc.NewClient(target)
}

func addTargetFlag(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.target, "addr", "", "gRPC address of the daemon (default: 127.0.0.1:<grpc.port>)")
}

func newRegisterCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <pid>",
		Short: "Register a process with the running daemon / 向运行中的守护进程注册进程",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()

			n, err := client.Register(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%d bytes)\n", args[0], n)
			return nil
		},
	}
	addTargetFlag(cmd, opts)
	return cmd
}

func newUnregisterCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unregister <pid>",
		Short: "Remove a process from the queue / 将进程移出队列",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid %q: %w", args[0], err)
			}

			client, err := dial(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()

			if err := client.Unregister(ctx, pid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unregistered %d\n", pid)
			return nil
		},
	}
	addTargetFlag(cmd, opts)
	return cmd
}

func newNextCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the next runnable process / 打印下一个可运行进程",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()

			next, err := client.Next(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}
	addTargetFlag(cmd, opts)
	return cmd
}

// ==================== config / version ====================

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration / 打印生效的配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information / 打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rrsched\n")
			fmt.Fprintf(out, "  Version:    %s\n", Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
