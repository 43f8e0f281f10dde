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

import "context"

// Interceptors observe rule chain execution without changing routing.
// 拦截器在不修改规则链或节点原有逻辑的情况下，对执行过程添加额外的行为(例如：日志、指标、限流、跟踪)。
// An interceptor may fail: the failure is handled as a failure of the node
// (node interceptors) or of the whole message (message interceptors).

// NodeInterceptor 节点拦截器，在每个节点 OnMsg 前后及出错时调用，按注册顺序执行
type NodeInterceptor interface {
	// Before 节点 OnMsg 执行之前调用，返回错误则不执行节点，按失败处理
	Before(ctx RuleContext, msg RuleMsg) error
	// After 节点执行成功之后调用，返回错误则转为失败
	After(ctx RuleContext, msg RuleMsg) error
	// OnError 节点执行失败时调用，返回错误则替换原错误
	OnError(ctx RuleContext, msg RuleMsg, err error) error
}

// MsgInterceptor 消息拦截器，每次 ProcessMsg 调用前后各执行一次，按注册顺序执行
type MsgInterceptor interface {
	// BeforeProcess 返回错误则不执行规则链
	BeforeProcess(ctx context.Context, msg RuleMsg) error
	// AfterProcess 收到最终消息及执行错误
	AfterProcess(ctx context.Context, msg RuleMsg, err error) error
}
