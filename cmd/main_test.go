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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seatunnel/rrsched/internal/config"
	"github.com/seatunnel/rrsched/internal/endpoint"
	rrgrpc "github.com/seatunnel/rrsched/internal/grpc"
	"github.com/seatunnel/rrsched/internal/process"
	"github.com/seatunnel/rrsched/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testConfig returns a dry-run configuration bound to an ephemeral HTTP port
// testConfig 返回绑定临时 HTTP 端口的 dry-run 配置
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scheduler.ID = "test-daemon"
	cfg.Scheduler.Quantum = 100 * time.Millisecond
	cfg.Controller.Type = config.ControllerDryRun
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.Mode = "test"
	cfg.GRPC.Enabled = false
	return cfg
}

// startChild starts a long-running child process and kills it on cleanup
// startChild 启动一个长时间运行的子进程，并在清理时将其终止
func startChild(t *testing.T) int {
	t.Helper()
	child := exec.Command("sleep", "30")
	require.NoError(t, child.Start())
	t.Cleanup(func() {
		_ = child.Process.Kill()
		_ = child.Wait()
	})
	return child.Process.Pid
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// TestNewDaemon tests Daemon creation
// TestNewDaemon 测试 Daemon 创建
func TestNewDaemon(t *testing.T) {
	cfg := testConfig()
	cfg.GRPC.Enabled = true

	d, err := NewDaemon(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, d.registry)
	assert.NotNil(t, d.scheduler)
	assert.NotNil(t, d.httpServer)
	assert.NotNil(t, d.grpcServer)
	assert.Equal(t, 100*time.Millisecond, d.scheduler.Quantum())
}

// TestNewDaemonUnknownController tests that an unknown controller type is rejected
// TestNewDaemonUnknownController 测试未知控制器类型被拒绝
func TestNewDaemonUnknownController(t *testing.T) {
	cfg := testConfig()
	cfg.Controller.Type = "telepathy"

	_, err := NewDaemon(cfg, nil)
	assert.Error(t, err)
}

func TestNewController(t *testing.T) {
	c, err := newController(config.ControllerSignal, nil)
	require.NoError(t, err)
	assert.IsType(t, &process.SignalController{}, c)

	c, err = newController(config.ControllerDryRun, nil)
	require.NoError(t, err)
	assert.IsType(t, &process.DryRunController{}, c)
}

// TestDaemonStartShutdown tests a full start, registration and shutdown cycle
// TestDaemonStartShutdown 测试完整的启动、注册与关闭流程
func TestDaemonStartShutdown(t *testing.T) {
	d, err := NewDaemon(testConfig(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	assert.Error(t, d.Start(ctx))

	addr := d.HTTPAddr()
	require.NotEmpty(t, addr)
	base := "http://" + addr + endpoint.APIPrefix

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	pid := startChild(t)
	resp, err = http.Post(base+"/processes", "text/plain", strings.NewReader(strconv.Itoa(pid)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The loop picks the child up within a few quanta
	// 轮转循环在几个时间片内选中该子进程
	assert.Eventually(t, func() bool {
		current, ok := d.scheduler.Current()
		return ok && current == pid
	}, 2*time.Second, 20*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(shutdownCtx))
	require.NoError(t, d.Shutdown(shutdownCtx))

	assert.Zero(t, d.registry.Len())
	assert.False(t, d.scheduler.Status().Active)
}

// blockingController holds every Running directive until released
// blockingController 在释放前阻塞所有 Running 指令
type blockingController struct {
	*process.FakeController
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingController(pids ...int) *blockingController {
	return &blockingController{
		FakeController: process.NewFakeController(pids...),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (b *blockingController) Apply(pid int, state process.State) process.Outcome {
	if state == process.Running {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.FakeController.Apply(pid, state)
}

// TestDaemonShutdownKeepsRegistryWhileStepInFlight tests that a timed out loop
// stop leaves the registry untouched
// TestDaemonShutdownKeepsRegistryWhileStepInFlight 测试循环停止超时时注册表保持不变
func TestDaemonShutdownKeepsRegistryWhileStepInFlight(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.Enabled = false
	controller := newBlockingController(77)
	d := newDaemon(cfg, controller, zap.NewNop())

	ctx := context.Background()
	_, err := d.service.Write(ctx, []byte("77"))
	require.NoError(t, err)
	require.NoError(t, d.Start(ctx))

	select {
	case <-controller.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("rotation step never promoted the process")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(shutdownCtx), context.DeadlineExceeded)
	assert.Equal(t, 1, d.registry.Len())

	close(controller.release)
	assert.Eventually(t, func() bool {
		return !d.scheduler.Status().Active
	}, 2*time.Second, 10*time.Millisecond)
}

// TestClientCommands tests register, next and unregister against a live gRPC endpoint
// TestClientCommands 测试针对 gRPC 端点的 register、next 与 unregister 命令
func TestClientCommands(t *testing.T) {
	fake := process.NewFakeController(4242)
	reg := registry.New(fake, nil)
	service := endpoint.NewService(reg, nil)

	server := rrgrpc.NewServer(&rrgrpc.ServerConfig{Port: 19198}, service, nil)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(server.Stop)

	addr := "--addr=127.0.0.1:19198"

	out, err := runCommand(t, "next", addr)
	require.NoError(t, err)
	assert.Equal(t, endpoint.NoneValue+"\n", out)

	out, err = runCommand(t, "register", "4242", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "registered 4242 (4 bytes)")
	assert.Equal(t, 1, reg.Len())

	out, err = runCommand(t, "next", addr)
	require.NoError(t, err)
	assert.Equal(t, "4242\n", out)

	_, err = runCommand(t, "register", "bogus", addr)
	assert.Error(t, err)

	out, err = runCommand(t, "unregister", "4242", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "unregistered 4242")
	assert.Zero(t, reg.Len())

	_, err = runCommand(t, "unregister", "x", addr)
	assert.Error(t, err)
}

// TestConfigCommand tests that the effective configuration is printed as YAML
// TestConfigCommand 测试生效配置以 YAML 输出
func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("scheduler:\n  id: cli-test\n  quantum: 2\nregistry:\n  capacity: %d\n", 16)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, err := runCommand(t, "config", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "id: cli-test")
	assert.Contains(t, out, "quantum: 2s")
	assert.Contains(t, out, "capacity: 16")
}

func TestConfigCommandInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("controller:\n  type: nope\n"), 0o600))

	_, err := runCommand(t, "config", "-c", path)
	assert.ErrorContains(t, err, "invalid config")
}

// TestVersionCommand tests the version command
// TestVersionCommand 测试版本命令
func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    "+Version)
}

// TestRootCommand tests the root command
// TestRootCommand 测试根命令
func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "rrsched", cmd.Use)

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "register", "unregister", "next", "config", "version"} {
		assert.Contains(t, names, want)
	}
}
