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

package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "waiting", Waiting.String())
	assert.Equal(t, "blocking", Blocking.String())
	assert.Equal(t, "terminated", Terminated.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestParseState(t *testing.T) {
	for _, s := range []State{Created, Running, Waiting, Blocking, Terminated} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseState("  RUNNING ")
	require.NoError(t, err)
	assert.Equal(t, Running, got)

	_, err = ParseState("sleeping")
	assert.Error(t, err)
}

func TestStateMarshalText(t *testing.T) {
	b, err := Waiting.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "waiting", string(b))

	var s State
	require.NoError(t, s.UnmarshalText([]byte("blocking")))
	assert.Equal(t, Blocking, s)
	assert.Error(t, s.UnmarshalText([]byte("zombie")))
	assert.Equal(t, Blocking, s)
}

func TestFakeController(t *testing.T) {
	f := NewFakeController(10, 20)

	assert.True(t, f.Exists(10))
	assert.False(t, f.Exists(30))

	assert.Equal(t, Alive, f.Apply(10, Waiting))
	assert.Equal(t, Dead, f.Apply(30, Running))

	f.Kill(10)
	assert.Equal(t, Dead, f.Apply(10, Running))

	f.Spawn(30)
	assert.Equal(t, Alive, f.Apply(30, Running))

	assert.Equal(t, []Directive{{PID: 10, State: Waiting}, {PID: 30, State: Running}}, f.Directives())
	assert.Equal(t, 6, f.Calls())

	f.Reset()
	assert.Empty(t, f.Directives())
	assert.Zero(t, f.Calls())
}

func TestDryRunController(t *testing.T) {
	inner := NewFakeController(7)
	c := NewDryRunController(inner, nil)

	assert.True(t, c.Exists(7))
	assert.Equal(t, Alive, c.Apply(7, Waiting))
	assert.Equal(t, Dead, c.Apply(8, Running))

	// Directives never reach the wrapped controller
	// 指令不会到达被包装的控制器
	assert.Empty(t, inner.Directives())
}
