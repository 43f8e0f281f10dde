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

// Package base provides the configuration decoding, template environment and
// shared client helpers used by the built-in components.
package base

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/utils/maps"
	"github.com/rulego/rulechain/utils/str"
)

var (
	ErrClientNotInit  = errors.New("client not init")
	ErrShuttingDown   = errors.New("component is shutting down")
	validate          = validator.New()
	defaultOpsTimeout = 10 * time.Second
)

// Decode 把节点配置解析到 target，并按 `validate` 标签校验
// Any failure is an InvalidConfig error.
func Decode(configuration types.Configuration, target interface{}) error {
	if err := maps.Map2Struct(map[string]interface{}(configuration), target); err != nil {
		return &types.RuleError{Kind: types.InvalidConfig, Err: err}
	}
	if err := validate.Struct(target); err != nil {
		return &types.RuleError{Kind: types.InvalidConfig, Err: err}
	}
	return nil
}

// InvalidConfig builds an InvalidConfig error for checks that struct tags cannot express.
func InvalidConfig(format string, args ...interface{}) error {
	return types.NewRuleError(types.InvalidConfig, format, args...)
}

var NodeUtils = &nodeUtils{}

type nodeUtils struct {
}

// GetEnv 获取模板和表达式的执行环境
// Top level data fields are visible bare, the message through msg.*,
// metadata through metadata.* and the execution context through ctx.*.
func (n *nodeUtils) GetEnv(ctx types.RuleContext, msg types.RuleMsg) map[string]interface{} {
	env := make(map[string]interface{})
	if data, ok := msg.Data.(map[string]interface{}); ok {
		for k, v := range data {
			env[k] = v
		}
	}
	metadata := msg.Metadata.Values()
	env[types.MsgKey] = map[string]interface{}{
		"id":       msg.Id,
		"ts":       msg.Ts,
		"type":     msg.Type,
		"data":     msg.Data,
		"metadata": metadata,
	}
	env[types.MetadataKey] = metadata
	env[types.MsgTypeKey] = msg.Type
	if ctx != nil {
		env[types.CtxKey] = ctx.Vars()
	}
	return env
}

// PrepareJsData 准备传递给JavaScript脚本的数据，脚本修改的是副本
func (n *nodeUtils) PrepareJsData(msg types.RuleMsg) interface{} {
	return types.CopyValue(msg.Data)
}

// MetadataToJs copies metadata into a map a script may modify.
func (n *nodeUtils) MetadataToJs(metadata types.Metadata) map[string]interface{} {
	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// MetadataFromJs converts the metadata map a script modified back to Metadata.
func (n *nodeUtils) MetadataFromJs(values map[string]interface{}) types.Metadata {
	md := types.NewMetadata()
	for k, v := range values {
		if v == nil {
			continue
		}
		md.PutValue(k, str.ToString(v))
	}
	return md
}

// SharedClient 延迟初始化的客户端，例如：redis、数据库、mqtt客户端
// The client is created on first use, reused by every message and closed
// once in-flight operations are done.
type SharedClient[T any] struct {
	InitInstanceFunc  func() (T, error)
	CloseInstanceFunc func(T) error

	locker         sync.Mutex
	instance       T
	initialized    bool
	isShuttingDown atomic.Bool
	activeOps      atomic.Int64
}

// Init 初始化，initNow=true 会立刻创建客户端，否则在 Get() 时创建
func (x *SharedClient[T]) Init(initNow bool, initFunc func() (T, error), closeFunc func(T) error) error {
	x.InitInstanceFunc = initFunc
	x.CloseInstanceFunc = closeFunc
	if initNow {
		_, err := x.Get()
		return err
	}
	return nil
}

// Get 获取客户端，未创建则创建
func (x *SharedClient[T]) Get() (T, error) {
	x.locker.Lock()
	defer x.locker.Unlock()
	if x.initialized {
		return x.instance, nil
	}
	var zero T
	if x.isShuttingDown.Load() {
		return zero, ErrShuttingDown
	}
	if x.InitInstanceFunc == nil {
		return zero, ErrClientNotInit
	}
	instance, err := x.InitInstanceFunc()
	if err != nil {
		return zero, err
	}
	x.instance = instance
	x.initialized = true
	return instance, nil
}

// BeginOp 开始一个操作，正在关闭时返回 ErrShuttingDown
func (x *SharedClient[T]) BeginOp() error {
	if x.isShuttingDown.Load() {
		return ErrShuttingDown
	}
	x.activeOps.Add(1)
	return nil
}

// EndOp 结束一个操作
func (x *SharedClient[T]) EndOp() {
	x.activeOps.Add(-1)
}

// ActiveOps returns the number of operations in progress.
func (x *SharedClient[T]) ActiveOps() int64 {
	return x.activeOps.Load()
}

// GracefulShutdown 等待活跃操作完成后关闭客户端，timeout 为 0 时使用 10 秒
func (x *SharedClient[T]) GracefulShutdown(timeout time.Duration) {
	x.isShuttingDown.Store(true)
	if timeout <= 0 {
		timeout = defaultOpsTimeout
	}
	deadline := time.Now().Add(timeout)
	for x.activeOps.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	x.locker.Lock()
	defer x.locker.Unlock()
	if x.initialized && x.CloseInstanceFunc != nil {
		_ = x.CloseInstanceFunc(x.instance)
	}
	var zero T
	x.instance = zero
	x.initialized = false
}
