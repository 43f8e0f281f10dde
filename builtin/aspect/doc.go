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

// Package aspect 内置拦截器
//
//   - NodeLogging/MsgLogging: 记录节点及消息的执行日志，引擎默认注册
//   - Metrics: prometheus 指标
//   - Tracing: opentelemetry 跟踪
//   - Limiter: 消息限流
//
// Usage:
//
//	metrics, _ := aspect.NewMetrics(prometheus.DefaultRegisterer)
//	ruleEngine, _ := engine.NewRuleEngine(
//		types.WithNodeInterceptors(metrics),
//		types.WithMsgInterceptors(metrics, aspect.NewLimiter(100, 10)),
//	)
package aspect
