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

// Package test provides a rule context for testing a single node outside a rule chain.
package test

import (
	"context"
	"errors"
	"sync"

	"github.com/rulego/rulechain/api/types"
)

var _ types.RuleContext = (*NodeTestRuleContext)(nil)

// ErrNoFlow is returned by TellFlow when no flow function is set.
var ErrNoFlow = errors.New("no flow function for sub chain")

// NodeTestRuleContext
// 只为测试单节点，临时创建的上下文
// 无法把多个节点组成链式
// callback 回调处理结果
type NodeTestRuleContext struct {
	context  context.Context
	config   types.Config
	callback func(msg types.RuleMsg, relationType string, err error)
	self     types.NodeCtx
	from     types.NodeCtx
	chainId  string
	flow     func(chainId string, msg types.RuleMsg) (types.RuleMsg, error)
	wg       sync.WaitGroup
}

func NewRuleContext(config types.Config, callback func(msg types.RuleMsg, relationType string, err error)) *NodeTestRuleContext {
	return &NodeTestRuleContext{
		context:  context.TODO(),
		config:   config,
		callback: callback,
		chainId:  "test",
	}
}

// SetContext 设置执行上下文，可用于测试取消和超时
func (ctx *NodeTestRuleContext) SetContext(c context.Context) *NodeTestRuleContext {
	ctx.context = c
	return ctx
}

// SetSelf 设置当前节点信息
func (ctx *NodeTestRuleContext) SetSelf(self types.NodeCtx) *NodeTestRuleContext {
	ctx.self = self
	return ctx
}

// SetFlow 设置子规则链执行函数
func (ctx *NodeTestRuleContext) SetFlow(flow func(chainId string, msg types.RuleMsg) (types.RuleMsg, error)) *NodeTestRuleContext {
	ctx.flow = flow
	return ctx
}

func (ctx *NodeTestRuleContext) TellSuccess(msg types.RuleMsg) {
	ctx.tell(msg, types.Success, nil)
}

func (ctx *NodeTestRuleContext) TellFailure(msg types.RuleMsg, err error) {
	ctx.tell(msg, types.Failure, err)
}

func (ctx *NodeTestRuleContext) TellNext(msg types.RuleMsg, relationTypes ...string) {
	for _, relationType := range relationTypes {
		ctx.tell(msg, relationType, nil)
	}
}

func (ctx *NodeTestRuleContext) tell(msg types.RuleMsg, relationType string, err error) {
	if ctx.callback != nil {
		ctx.callback(msg, relationType, err)
	}
}

func (ctx *NodeTestRuleContext) TellFlow(_ context.Context, chainId string, msg types.RuleMsg, onEnd func(msg types.RuleMsg, err error)) {
	if ctx.flow == nil {
		onEnd(msg, ErrNoFlow)
		return
	}
	ctx.SubmitTask(func() {
		onEnd(ctx.flow(chainId, msg))
	})
}

func (ctx *NodeTestRuleContext) Self() types.NodeCtx {
	return ctx.self
}

func (ctx *NodeTestRuleContext) From() types.NodeCtx {
	return ctx.from
}

func (ctx *NodeTestRuleContext) ChainId() string {
	return ctx.chainId
}

func (ctx *NodeTestRuleContext) Config() types.Config {
	return ctx.config
}

func (ctx *NodeTestRuleContext) SubmitTask(task func()) {
	ctx.wg.Add(1)
	go func() {
		defer ctx.wg.Done()
		task()
	}()
}

// Wait 等待 SubmitTask 提交的任务执行完
func (ctx *NodeTestRuleContext) Wait() {
	ctx.wg.Wait()
}

func (ctx *NodeTestRuleContext) GetContext() context.Context {
	return ctx.context
}

func (ctx *NodeTestRuleContext) Vars() map[string]interface{} {
	vars := make(map[string]interface{})
	for k, v := range ctx.config.Properties {
		vars[k] = v
	}
	vars[types.CtxChainId] = ctx.chainId
	if ctx.self != nil {
		vars[types.CtxNodeId] = ctx.self.GetNodeId()
	}
	return vars
}
