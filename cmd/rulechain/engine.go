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

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/builtin/aspect"
	"github.com/rulego/rulechain/engine"
	"github.com/rulego/rulechain/utils/pool"
)

// newRuleEngine 根据配置创建规则引擎，registerer 不为空时注册 prometheus 指标
// The returned pool must be released after the engine is stopped.
func newRuleEngine(config Config, logger *zap.Logger, registerer prometheus.Registerer) (*engine.RuleEngine, *pool.WorkerPool, error) {
	wp := pool.NewWorkerPool(config.Engine.MaxWorkers)
	opts := []types.Option{
		types.WithLogger(types.NewZapLogger(logger)),
		types.WithPool(wp),
		types.WithDefaultTimeout(config.Engine.DefaultTimeout),
		types.WithRemoveTimeout(config.Engine.RemoveTimeout),
		types.WithProperties(config.Engine.Properties),
		types.WithOnEnd(func(chainId string, result types.ExecutionResult) {
			for _, err := range result.Errors() {
				logger.Warn("triggered execution failed", zap.String("chain", chainId), zap.Error(err))
			}
		}),
	}
	if config.Engine.ScriptMaxExecutionTime > 0 {
		opts = append(opts, types.WithScriptMaxExecutionTime(config.Engine.ScriptMaxExecutionTime))
	}
	if registerer != nil {
		metrics, err := aspect.NewMetrics(registerer)
		if err != nil {
			wp.Release()
			return nil, nil, err
		}
		opts = append(opts, types.WithNodeInterceptors(metrics), types.WithMsgInterceptors(metrics))
	}
	if config.Engine.Tracing {
		tracing := aspect.NewTracing(nil)
		opts = append(opts, types.WithNodeInterceptors(tracing), types.WithMsgInterceptors(tracing))
	}
	if config.Limit.PerSecond > 0 {
		burst := config.Limit.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, types.WithMsgInterceptors(aspect.NewLimiter(config.Limit.PerSecond, burst)))
	}
	ruleEngine, err := engine.NewRuleEngine(opts...)
	if err != nil {
		wp.Release()
		return nil, nil, err
	}
	return ruleEngine, wp, nil
}
