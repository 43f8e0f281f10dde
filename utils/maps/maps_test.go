/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retry struct {
	MaxAttempts int           `json:"maxAttempts"`
	Delay       time.Duration `json:"delay"`
}

type restConfig struct {
	Url       string            `json:"url"`
	TimeoutMs int               `json:"timeout_ms"`
	Headers   map[string]string `json:"headers"`
	Retry     *retry            `json:"retry"`
	Periodic  bool              `json:"periodic"`
}

func TestMap2Struct(t *testing.T) {
	var cfg restConfig
	err := Map2Struct(map[string]interface{}{
		"url":        "http://localhost",
		"timeout_ms": float64(500),
		"headers":    map[string]interface{}{"Content-Type": "application/json"},
		"retry":      map[string]interface{}{"maxAttempts": "3", "delay": "10ms"},
		"periodic":   "true",
	}, &cfg)
	require.Nil(t, err)
	assert.Equal(t, "http://localhost", cfg.Url)
	assert.Equal(t, 500, cfg.TimeoutMs)
	assert.Equal(t, "application/json", cfg.Headers["Content-Type"])
	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.Delay)
	assert.True(t, cfg.Periodic)

	err = Map2Struct(map[string]interface{}{"timeout_ms": "abc"}, &cfg)
	assert.NotNil(t, err)

	// nil input leaves the target untouched
	var empty restConfig
	assert.Nil(t, Map2Struct(nil, &empty))
	assert.Equal(t, "", empty.Url)
}

func TestGetSetDelete(t *testing.T) {
	data := map[string]interface{}{
		"user": map[string]interface{}{"name": "lala", "age": 5.0},
		"flag": true,
	}
	v, ok := Get(data, "user.name")
	assert.True(t, ok)
	assert.Equal(t, "lala", v)
	_, ok = Get(data, "user.city")
	assert.False(t, ok)
	_, ok = Get(data, "flag.x")
	assert.False(t, ok)

	assert.True(t, Set(data, "user.address.city", "xm"))
	v, _ = Get(data, "user.address.city")
	assert.Equal(t, "xm", v)
	assert.False(t, Set(data, "flag.x", 1))

	Delete(data, "user.age")
	_, ok = Get(data, "user.age")
	assert.False(t, ok)
	Delete(data, "missing.path")
}
