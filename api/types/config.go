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

package types

import (
	"time"
)

// Pool 协程池接口
type Pool interface {
	// Submit 提交任务，池已满或者已停止时返回错误
	Submit(task func()) error
	// Release 释放协程池
	Release()
}

// Config defines the configuration for the rule engine.
type Config struct {
	// OnEnd is called once per execution started by a trigger node (schedule).
	// Executions started by ProcessMsg return their results to the caller instead.
	OnEnd func(chainId string, result ExecutionResult)
	// ScriptMaxExecutionTime is the maximum execution time for scripts, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Pool is the interface for a coroutine pool. If not configured, the go func method is used by default.
	Pool Pool
	// Parser is the rule chain parser, defaulting to the JSON parser.
	Parser Parser
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Properties are global properties, visible to templates as ctx.<key>.
	Properties Metadata
	// Udf is a map for registering custom Golang functions that can be called by scripts.
	Udf map[string]interface{}
	// DefaultTimeout bounds a ProcessMsg call whose context has no deadline. Zero means no bound.
	DefaultTimeout time.Duration
	// RemoveTimeout bounds how long RemoveChain waits for running executions, defaulting to 5s.
	RemoveTimeout time.Duration
	// NodeInterceptors are registered on engine construction, before AddNodeInterceptor ones.
	NodeInterceptors []NodeInterceptor
	// MsgInterceptors are registered on engine construction, before AddMsgInterceptor ones.
	MsgInterceptors []MsgInterceptor
	// DisableDefaultInterceptors skips registering the built-in logging interceptors.
	DisableDefaultInterceptors bool
}

// Parser 规则链定义文件解析器
type Parser interface {
	// DecodeRuleChain 从描述文件解析规则链
	DecodeRuleChain(def []byte) (*RuleChain, error)
	// EncodeRuleChain 把规则链转换成描述文件
	EncodeRuleChain(def *RuleChain) ([]byte, error)
}

// RegisterUdf registers a custom function callable from scripts.
func (c *Config) RegisterUdf(name string, value interface{}) {
	if c.Udf == nil {
		c.Udf = make(map[string]interface{})
	}
	c.Udf[name] = value
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		RemoveTimeout:          time.Second * 5,
		Logger:                 DefaultLogger(),
		Properties:             NewMetadata(),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
