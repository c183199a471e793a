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

//go:build unix

package process

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func TestSignalControllerExists(t *testing.T) {
	c := NewSignalController(nil)

	assert.True(t, c.Exists(os.Getpid()))
	assert.False(t, c.Exists(0))
	assert.False(t, c.Exists(-1))
	assert.False(t, c.Exists(-100))

	// Values past pid_t would be truncated by kill(2) into group or broadcast targets
	// 超出 pid_t 的值会被 kill(2) 截断为进程组或广播目标
	assert.False(t, c.Exists(1<<32), "1<<32 truncates to pid 0")
	assert.False(t, c.Exists(1<<32-1), "1<<32-1 truncates to pid -1")
	assert.False(t, c.Exists(1<<40+1))
	assert.False(t, c.Exists(MaxPID+1))
	assert.Equal(t, Dead, c.Apply(1<<32, Waiting))
}

func TestSignalControllerPauseResume(t *testing.T) {
	cmd := startSleeper(t)
	pid := cmd.Process.Pid
	c := NewSignalController(nil)

	require.True(t, c.Exists(pid))
	assert.Equal(t, Alive, c.Apply(pid, Waiting))
	assert.Equal(t, Alive, c.Apply(pid, Running))
	assert.Equal(t, Alive, c.Apply(pid, Blocking))
	assert.Equal(t, Alive, c.Apply(pid, Created))
}

// procState returns the one-letter scheduler state from /proc/<pid>/stat
// procState 从 /proc/<pid>/stat 读取单字母的调度状态
func procState(pid int) (byte, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	// The command name may contain spaces or parentheses, the state follows the last ')'
	// 命令名可能包含空格或括号，状态位于最后一个 ')' 之后
	i := bytes.LastIndexByte(data, ')')
	if i < 0 || i+2 >= len(data) {
		return 0, fmt.Errorf("malformed stat line for pid %d", pid)
	}
	return data[i+2], nil
}

// TestSignalControllerStopsAndContinuesChild tests that Waiting really stops the
// child and Running lets it continue
// TestSignalControllerStopsAndContinuesChild 测试 Waiting 确实使子进程停止，Running 使其继续运行
func TestSignalControllerStopsAndContinuesChild(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("process states are read from /proc")
	}
	cmd := startSleeper(t)
	pid := cmd.Process.Pid
	if _, err := procState(pid); err != nil {
		t.Skipf("/proc not readable: %v", err)
	}
	c := NewSignalController(nil)

	stateIs := func(want bool) func() bool {
		return func() bool {
			state, err := procState(pid)
			return err == nil && (state == 'T') == want
		}
	}

	require.Equal(t, Alive, c.Apply(pid, Waiting))
	assert.Eventually(t, stateIs(true), 2*time.Second, 10*time.Millisecond, "child not stopped")

	// Blocking only checks liveness and keeps the child stopped
	// Blocking 只检测存活，子进程保持停止
	require.Equal(t, Alive, c.Apply(pid, Blocking))
	state, err := procState(pid)
	require.NoError(t, err)
	assert.Equal(t, byte('T'), state)

	require.Equal(t, Alive, c.Apply(pid, Running))
	assert.Eventually(t, stateIs(false), 2*time.Second, 10*time.Millisecond, "child not continued")
}

func TestSignalControllerDeadProcess(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("true not available: %v", err)
	}
	// Run reaps the child, so the PID no longer exists
	// Run 已回收子进程，因此该 PID 不再存在
	pid := cmd.ProcessState.Pid()
	c := NewSignalController(nil)

	assert.False(t, c.Exists(pid))
	assert.Equal(t, Dead, c.Apply(pid, Running))
	assert.Equal(t, Dead, c.Apply(pid, Terminated))
}
