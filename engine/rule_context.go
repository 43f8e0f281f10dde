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

package engine

import (
	"context"
	"sync"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/utils/runtime"
)

// joinBarrier 汇聚节点的等待状态，每次执行每个汇聚节点一个
type joinBarrier struct {
	expected int
	arrivals []arrival
	fired    bool
}

type arrival struct {
	msg types.RuleMsg
	err error
}

// execution 一次规则链执行(一条消息)的状态
// An execution is done when no node invocation is pending. A node invocation
// is pending until OnMsg returned and the node told at least once.
type execution struct {
	engine       *RuleEngine
	chain        *RuleChainCtx
	ctx          context.Context
	msgId        string
	interceptors []types.NodeInterceptor

	mu        sync.Mutex
	inflight  int
	joins     map[string]*joinBarrier
	ends      []types.EndResult
	finished  bool
	abandoned bool
	done      chan struct{}
}

// newExecution 创建执行，chain.inflight 需要已经由调用方增加
func newExecution(engine *RuleEngine, chain *RuleChainCtx, ctx context.Context, msgId string, interceptors []types.NodeInterceptor) *execution {
	return &execution{
		engine:       engine,
		chain:        chain,
		ctx:          ctx,
		msgId:        msgId,
		interceptors: interceptors,
		joins:        make(map[string]*joinBarrier),
		done:         make(chan struct{}),
	}
}

// start 每个入口节点收到一份消息副本
func (e *execution) start(entries []*RuleNodeCtx, msg types.RuleMsg) {
	e.mu.Lock()
	e.inflight += len(entries)
	e.mu.Unlock()
	for _, item := range entries {
		node := item
		msgCopy := msg.Copy()
		e.engine.submit(func() {
			e.invoke(e.newContext(nil, node), msgCopy)
		})
	}
}

// wait 等待执行完成或者ctx结束，超时返回已完成的分支及 Timeout 错误
func (e *execution) wait() (types.ExecutionResult, error) {
	select {
	case <-e.done:
		return e.result(), nil
	case <-e.ctx.Done():
		e.mu.Lock()
		e.abandoned = true
		e.mu.Unlock()
		return e.result(), &types.RuleError{
			Kind:    types.Timeout,
			ChainId: e.chain.Id,
			Message: "execution did not complete",
			Err:     e.ctx.Err(),
		}
	}
}

func (e *execution) result() types.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return types.ExecutionResult{Ends: append([]types.EndResult(nil), e.ends...)}
}

func (e *execution) newContext(from, self *RuleNodeCtx) *DefaultRuleContext {
	return &DefaultRuleContext{exec: e, from: from, self: self}
}

// invoke 执行节点：Before 拦截器 -> OnMsg，异常转为 HandlerError
func (e *execution) invoke(ctx *DefaultRuleContext, msg types.RuleMsg) {
	defer func() {
		if r := recover(); r != nil {
			ctx.mu.Lock()
			told := ctx.told
			ctx.mu.Unlock()
			if told {
				//已经发送过消息，只记录异常
				e.engine.config.Logger.Errorf("chain %s node %s panic after tell: %v", ctx.self.GetChainId(), ctx.self.GetNodeId(), runtime.PanicError(r))
			} else {
				ctx.TellFailure(msg, runtime.PanicError(r))
			}
		}
		ctx.onReturned()
	}()
	if e.ctx.Err() != nil {
		//已超时，放弃执行
		ctx.abandon()
		return
	}
	for _, interceptor := range e.interceptors {
		if err := interceptor.Before(ctx, msg); err != nil {
			ctx.tellRouted(msg, interceptorError(ctx.self, err), types.Failure)
			return
		}
	}
	ctx.self.OnMsg(ctx, msg)
}

// route 根据连接标签把消息发送到下一个节点，没有匹配的连接则分支结束
func (e *execution) route(from *RuleNodeCtx, msg types.RuleMsg, err error, relationTypes []string) {
	if len(relationTypes) == 0 {
		e.end(from, "", msg, err)
		return
	}
	for _, relationType := range relationTypes {
		nodes, _ := e.chain.GetNextNodes(from.GetNodeId(), relationType)
		if len(nodes) == 0 {
			if joins := e.chain.mergeTargets[from.GetNodeId()]; err != nil && relationType == types.Failure && len(joins) > 0 {
				//没有失败连接，错误交给汇聚节点
				for _, join := range joins {
					e.deliver(join, msg.Copy(), err)
				}
				continue
			}
			e.end(from, relationType, msg, err)
			continue
		}
		for _, item := range nodes {
			next := item
			//每个子节点一份消息副本
			msgCopy := msg.Copy()
			if next.merger != nil {
				e.deliver(next, msgCopy, nil)
				continue
			}
			if !e.acquire() {
				return
			}
			e.engine.submit(func() {
				e.invoke(e.newContext(from, next), msgCopy)
			})
		}
	}
}

// acquire 增加一个待执行的节点，执行已结束时返回false
func (e *execution) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return false
	}
	e.inflight++
	return true
}

// release 节点执行完成，没有待执行节点时触发未到齐的汇聚节点，否则结束执行
func (e *execution) release() {
	e.mu.Lock()
	e.inflight--
	if e.inflight > 0 || e.finished {
		e.mu.Unlock()
		return
	}
	var fire []*RuleNodeCtx
	for _, nodeId := range e.chain.nodeIds {
		if barrier, ok := e.joins[nodeId]; ok && !barrier.fired && len(barrier.arrivals) > 0 {
			barrier.fired = true
			fire = append(fire, e.chain.nodes[nodeId])
		}
	}
	if len(fire) == 0 {
		e.finished = true
		close(e.done)
		e.mu.Unlock()
		e.chain.inflight.Add(-1)
		return
	}
	e.inflight += len(fire)
	e.mu.Unlock()
	for _, item := range fire {
		join := item
		e.engine.submit(func() {
			e.fireJoin(join)
		})
	}
}

// deliver 消息到达汇聚节点，全部入口都到达后执行汇聚节点
func (e *execution) deliver(join *RuleNodeCtx, msg types.RuleMsg, err error) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	barrier, ok := e.joins[join.GetNodeId()]
	if !ok {
		barrier = &joinBarrier{expected: e.chain.inDegree[join.GetNodeId()]}
		e.joins[join.GetNodeId()] = barrier
	}
	if barrier.fired {
		e.mu.Unlock()
		e.engine.config.Logger.Warnf("chain %s: late arrival at join node %s dropped", e.chain.Id, join.GetNodeId())
		return
	}
	barrier.arrivals = append(barrier.arrivals, arrival{msg: msg, err: err})
	fire := len(barrier.arrivals) >= barrier.expected
	if fire {
		barrier.fired = true
		e.inflight++
	}
	e.mu.Unlock()
	if fire {
		e.engine.submit(func() {
			e.fireJoin(join)
		})
	}
}

// fireJoin 合并到达的消息并执行汇聚节点，第一个错误直接作为汇聚节点的失败
func (e *execution) fireJoin(join *RuleNodeCtx) {
	e.mu.Lock()
	arrivals := e.joins[join.GetNodeId()].arrivals
	e.mu.Unlock()
	ctx := e.newContext(nil, join)
	msgs := make([]types.RuleMsg, 0, len(arrivals))
	for _, item := range arrivals {
		if item.err != nil {
			ctx.returned = true
			ctx.TellFailure(item.msg, item.err)
			return
		}
		msgs = append(msgs, item.msg)
	}
	merged, err := join.merger.Merge(msgs)
	if err != nil {
		ctx.returned = true
		ctx.TellFailure(msgs[len(msgs)-1], err)
		return
	}
	e.invoke(ctx, merged)
}

// end 记录分支结束
func (e *execution) end(from *RuleNodeCtx, relationType string, msg types.RuleMsg, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished || e.abandoned {
		return
	}
	e.ends = append(e.ends, types.EndResult{
		ChainId:      e.chain.Id,
		NodeId:       from.GetNodeId(),
		RelationType: relationType,
		Msg:          msg,
		Err:          err,
	})
}

// DefaultRuleContext 节点处理消息的上下文，每次节点调用一个
type DefaultRuleContext struct {
	exec *execution
	from *RuleNodeCtx
	self *RuleNodeCtx

	mu       sync.Mutex
	told     bool
	returned bool
	released bool
}

func (ctx *DefaultRuleContext) TellSuccess(msg types.RuleMsg) {
	ctx.tell(msg, nil, types.Success)
}

func (ctx *DefaultRuleContext) TellFailure(msg types.RuleMsg, err error) {
	if err == nil {
		err = types.NewRuleError(types.HandlerError, "node failed without error")
	}
	ctx.tell(msg, err, types.Failure)
}

func (ctx *DefaultRuleContext) TellNext(msg types.RuleMsg, relationTypes ...string) {
	ctx.tell(msg, nil, relationTypes...)
}

// tell 执行 After/OnError 拦截器后路由消息
func (ctx *DefaultRuleContext) tell(msg types.RuleMsg, err error, relationTypes ...string) {
	self := ctx.self
	if err == nil {
		for _, interceptor := range ctx.exec.interceptors {
			if e := interceptor.After(ctx, msg); e != nil {
				err = interceptorError(self, e)
				relationTypes = []string{types.Failure}
				break
			}
		}
	} else {
		err = types.WrapError(types.HandlerError, self.GetChainId(), self.GetNodeId(), self.Type(), err)
		for _, interceptor := range ctx.exec.interceptors {
			if e := interceptor.OnError(ctx, msg, err); e != nil {
				err = interceptorError(self, e)
			}
		}
	}
	ctx.tellRouted(msg, err, relationTypes...)
}

// tellRouted 不经过拦截器直接路由
func (ctx *DefaultRuleContext) tellRouted(msg types.RuleMsg, err error, relationTypes ...string) {
	ctx.exec.route(ctx.self, msg, err, relationTypes)
	ctx.mu.Lock()
	ctx.told = true
	release := ctx.returned && !ctx.released
	if release {
		ctx.released = true
	}
	ctx.mu.Unlock()
	if release {
		ctx.exec.release()
	}
}

// onReturned OnMsg 已返回
func (ctx *DefaultRuleContext) onReturned() {
	ctx.mu.Lock()
	ctx.returned = true
	release := ctx.told && !ctx.released
	if release {
		ctx.released = true
	}
	ctx.mu.Unlock()
	if release {
		ctx.exec.release()
	}
}

func (ctx *DefaultRuleContext) abandon() {
	ctx.mu.Lock()
	ctx.told = true
	ctx.mu.Unlock()
}

// TellFlow 执行子规则链，子规则链的所有分支结束后调用 onEnd
func (ctx *DefaultRuleContext) TellFlow(c context.Context, chainId string, msg types.RuleMsg, onEnd func(msg types.RuleMsg, err error)) {
	if c == nil {
		c = ctx.GetContext()
	}
	engine := ctx.exec.engine
	chain, err := engine.acquireChain(chainId)
	if err != nil {
		onEnd(msg, err)
		return
	}
	msgCopy := msg.Copy()
	ctx.SubmitTask(func() {
		exec := newExecution(engine, chain, c, msgCopy.Id, ctx.exec.interceptors)
		exec.start(chain.heads, msgCopy)
		result, err := exec.wait()
		out, endErr := aggregate(msgCopy, result)
		onEnd(out, combineErrors(endErr, err))
	})
}

func (ctx *DefaultRuleContext) Self() types.NodeCtx {
	return ctx.self
}

func (ctx *DefaultRuleContext) From() types.NodeCtx {
	if ctx.from == nil {
		return nil
	}
	return ctx.from
}

func (ctx *DefaultRuleContext) ChainId() string {
	return ctx.exec.chain.Id
}

func (ctx *DefaultRuleContext) Config() types.Config {
	return ctx.exec.engine.config
}

func (ctx *DefaultRuleContext) SubmitTask(task func()) {
	ctx.exec.engine.submit(task)
}

func (ctx *DefaultRuleContext) GetContext() context.Context {
	return ctx.exec.ctx
}

func (ctx *DefaultRuleContext) Vars() map[string]interface{} {
	properties := ctx.exec.engine.config.Properties
	vars := make(map[string]interface{}, len(properties)+3)
	for k, v := range properties {
		vars[k] = v
	}
	vars[types.CtxChainId] = ctx.exec.chain.Id
	vars[types.CtxNodeId] = ctx.self.GetNodeId()
	vars[types.CtxMsgId] = ctx.exec.msgId
	return vars
}

func interceptorError(node *RuleNodeCtx, err error) error {
	return &types.RuleError{
		Kind:     types.InterceptorError,
		ChainId:  node.GetChainId(),
		NodeId:   node.GetNodeId(),
		NodeType: node.Type(),
		Err:      err,
	}
}
