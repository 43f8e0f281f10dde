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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithOnEnd is an option that sets the callback receiving trigger execution results.
func WithOnEnd(onEnd func(chainId string, result ExecutionResult)) Option {
	return func(c *Config) error {
		c.OnEnd = onEnd
		return nil
	}
}

// WithPool is an option that sets the pool of the Config.
func WithPool(pool Pool) Option {
	return func(c *Config) error {
		c.Pool = pool
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the js max execution time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}

// WithParser is an option that sets the parser of the Config.
func WithParser(parser Parser) Option {
	return func(c *Config) error {
		c.Parser = parser
		return nil
	}
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithProperties is an option that adds global properties visible to templates.
func WithProperties(properties map[string]string) Option {
	return func(c *Config) error {
		if c.Properties == nil {
			c.Properties = NewMetadata()
		}
		for k, v := range properties {
			c.Properties.PutValue(k, v)
		}
		return nil
	}
}

// WithDefaultTimeout is an option that bounds ProcessMsg calls without a deadline.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.DefaultTimeout = timeout
		return nil
	}
}

// WithRemoveTimeout is an option that sets how long RemoveChain waits for running executions.
func WithRemoveTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.RemoveTimeout = timeout
		return nil
	}
}

// WithNodeInterceptors is an option that registers node interceptors on engine construction.
func WithNodeInterceptors(interceptors ...NodeInterceptor) Option {
	return func(c *Config) error {
		c.NodeInterceptors = append(c.NodeInterceptors, interceptors...)
		return nil
	}
}

// WithMsgInterceptors is an option that registers message interceptors on engine construction.
func WithMsgInterceptors(interceptors ...MsgInterceptor) Option {
	return func(c *Config) error {
		c.MsgInterceptors = append(c.MsgInterceptors, interceptors...)
		return nil
	}
}

// WithoutDefaultInterceptors is an option that skips the built-in logging interceptors.
func WithoutDefaultInterceptors() Option {
	return func(c *Config) error {
		c.DisableDefaultInterceptors = true
		return nil
	}
}
