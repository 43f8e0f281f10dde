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

// Package engine 规则引擎实现：组件注册器、规则链编译和校验、规则链注册表、执行调度
//
// 创建规则引擎并加载规则链：
//
//	ruleEngine, err := engine.NewRuleEngine(types.WithLogger(logger))
//	chainId, err := ruleEngine.LoadChain(def)
//	out, err := ruleEngine.ProcessMsg(ctx, chainId, types.NewMsg("TEST", types.NewMetadata(), data))
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/builtin/aspect"
	"github.com/rulego/rulechain/utils/fs"
	"go.uber.org/multierr"
)

// RuleEngine 规则引擎
// It owns the component registry, the loaded rule chains and the interceptors.
// All methods are safe for concurrent use.
type RuleEngine struct {
	config   types.Config
	registry *RuleComponentRegistry
	//已加载的规则链
	chains map[string]*RuleChainCtx
	//根规则链ID
	rootId string
	//规则链版本号，每次有效加载加1
	version          uint64
	nodeInterceptors []types.NodeInterceptor
	msgInterceptors  []types.MsgInterceptor
	stopped          atomic.Bool
	//串行化加载和删除
	loadLock sync.Mutex
	sync.RWMutex
}

// NewRuleEngine 创建规则引擎，注册所有内置组件
func NewRuleEngine(opts ...types.Option) (*RuleEngine, error) {
	config := types.NewConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	return NewRuleEngineWithConfig(config), nil
}

// NewRuleEngineWithConfig 使用指定配置创建规则引擎
func NewRuleEngineWithConfig(config types.Config) *RuleEngine {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	if config.Parser == nil {
		config.Parser = &JsonParser{}
	}
	if config.Properties == nil {
		config.Properties = types.NewMetadata()
	}
	if config.RemoveTimeout <= 0 {
		config.RemoveTimeout = time.Second * 5
	}
	e := &RuleEngine{
		config:   config,
		registry: NewRegistry(),
		chains:   make(map[string]*RuleChainCtx),
	}
	if !config.DisableDefaultInterceptors {
		e.nodeInterceptors = append(e.nodeInterceptors, aspect.NewNodeLogging(config.Logger))
		e.msgInterceptors = append(e.msgInterceptors, aspect.NewMsgLogging(config.Logger))
	}
	e.nodeInterceptors = append(e.nodeInterceptors, config.NodeInterceptors...)
	e.msgInterceptors = append(e.msgInterceptors, config.MsgInterceptors...)
	return e
}

// Config 获取规则引擎配置
func (e *RuleEngine) Config() types.Config {
	return e.config
}

// Registry 获取组件注册器
func (e *RuleEngine) Registry() *RuleComponentRegistry {
	return e.registry
}

// Register 注册组件原型，只影响之后加载的规则链
func (e *RuleEngine) Register(node types.Node) error {
	return e.registry.Register(node)
}

// RegisterNodeType 通过工厂函数注册组件，只影响之后加载的规则链
func (e *RuleEngine) RegisterNodeType(typeName string, factory types.NodeFactory) {
	e.registry.RegisterFactory(typeName, factory)
}

// UnregisterNodeType 删除组件，已加载的规则链不受影响
func (e *RuleEngine) UnregisterNodeType(typeName string) error {
	return e.registry.Unregister(typeName)
}

// Descriptors 所有组件描述
func (e *RuleEngine) Descriptors() []types.NodeDescriptor {
	return e.registry.Descriptors()
}

// AddNodeInterceptor 添加节点拦截器，按添加顺序执行，对之后开始的执行生效
func (e *RuleEngine) AddNodeInterceptor(interceptors ...types.NodeInterceptor) {
	e.Lock()
	defer e.Unlock()
	e.nodeInterceptors = append(append([]types.NodeInterceptor(nil), e.nodeInterceptors...), interceptors...)
}

// AddMsgInterceptor 添加消息拦截器，按添加顺序执行
func (e *RuleEngine) AddMsgInterceptor(interceptors ...types.MsgInterceptor) {
	e.Lock()
	defer e.Unlock()
	e.msgInterceptors = append(append([]types.MsgInterceptor(nil), e.msgInterceptors...), interceptors...)
}

func (e *RuleEngine) interceptors() ([]types.NodeInterceptor, []types.MsgInterceptor) {
	e.RLock()
	defer e.RUnlock()
	return e.nodeInterceptors, e.msgInterceptors
}

// LoadChain 解析并加载规则链，返回规则链ID
// 相同ID的规则链会被整体替换，校验失败时保留原来的版本
func (e *RuleEngine) LoadChain(def []byte) (string, error) {
	return e.loadWithParser(e.config.Parser, def)
}

// LoadChainFromFile 从文件加载规则链，.yaml/.yml 文件使用 YamlParser
func (e *RuleEngine) LoadChainFromFile(path string) (string, error) {
	def, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return e.loadWithParser(ParserForFile(path, e.config.Parser), def)
}

// LoadChainsFromDir 加载目录下所有的规则链文件，按文件名顺序
func (e *RuleEngine) LoadChainsFromDir(dir string) ([]string, error) {
	paths, err := fs.GetChainFiles(dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	var errs error
	for _, path := range paths {
		id, err := e.LoadChainFromFile(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errs
}

func (e *RuleEngine) loadWithParser(parser types.Parser, def []byte) (string, error) {
	if len(def) == 0 {
		return "", types.ErrEngineDslEmpty
	}
	chain, err := parser.DecodeRuleChain(def)
	if err != nil {
		return "", &types.RuleError{Kind: types.StructuralViolation, Message: "malformed rule chain definition", Err: err}
	}
	return e.LoadChainDef(chain)
}

// LoadChainDef 加载规则链定义，def 会被复制，调用方可以继续修改
func (e *RuleEngine) LoadChainDef(def *types.RuleChain) (string, error) {
	if def == nil {
		return "", types.ErrEngineDslEmpty
	}
	if e.stopped.Load() {
		return "", types.ErrEngineStopped
	}
	def, err := cloneChain(def)
	if err != nil {
		return "", err
	}
	if def.Id == "" {
		def.Id = uuid.Must(uuid.NewV4()).String()
	}

	e.loadLock.Lock()
	defer e.loadLock.Unlock()

	e.RLock()
	old := e.chains[def.Id]
	rootId := e.rootId
	universe := make(map[string]*RuleChainCtx, len(e.chains)+1)
	for id, chain := range e.chains {
		universe[id] = chain
	}
	e.RUnlock()

	if old != nil && sameDefinition(old.SelfDefinition, def) {
		return def.Id, nil
	}
	if def.Root && rootId != "" && rootId != def.Id {
		return "", structuralError(def.Id, "", fmt.Sprintf("rule chain %s is already the root chain", rootId))
	}
	candidate, err := compileChain(e.config, e.registry, def)
	if err != nil {
		return "", err
	}
	universe[def.Id] = candidate
	if err := checkCircularDependency(universe); err != nil {
		candidate.Destroy()
		return "", err
	}
	for target, nodeIds := range candidate.referencedChains() {
		if _, ok := universe[target]; !ok {
			e.config.Logger.Warnf("chain %s: nodes %v refer to chain %s which is not loaded", def.Id, nodeIds, target)
		}
	}
	for _, conn := range def.Connections {
		if label := conn.Label(); label != types.Success && label != types.Failure &&
			(strings.EqualFold(label, types.Success) || strings.EqualFold(label, types.Failure)) {
			e.config.Logger.Warnf("chain %s: connection %s->%s label %q never matches, relation labels are case sensitive", def.Id, conn.FromId, conn.ToId, label)
		}
	}
	if err := e.startTriggers(candidate); err != nil {
		candidate.Destroy()
		return "", types.WrapError(types.InvalidConfig, def.Id, "", "", err)
	}

	now := time.Now().Unix()
	e.Lock()
	e.version++
	def.Metadata.Version = e.version
	def.Metadata.UpdatedAt = now
	def.Metadata.CreatedAt = now
	if old != nil && old.SelfDefinition.Metadata.CreatedAt != 0 {
		def.Metadata.CreatedAt = old.SelfDefinition.Metadata.CreatedAt
	}
	e.chains[def.Id] = candidate
	if def.Root {
		e.rootId = def.Id
	} else if e.rootId == def.Id {
		e.rootId = ""
	}
	e.Unlock()

	if old != nil {
		stopTriggers(old)
		old.destroyWhenDrained(e.config.RemoveTimeout)
	}
	e.config.Logger.Infof("chain %s loaded, version %d", def.Id, def.Metadata.Version)
	return def.Id, nil
}

// Validate 校验规则链定义而不加载
func (e *RuleEngine) Validate(def *types.RuleChain) error {
	if def == nil {
		return types.ErrEngineDslEmpty
	}
	def, err := cloneChain(def)
	if err != nil {
		return err
	}
	if def.Id == "" {
		def.Id = uuid.Must(uuid.NewV4()).String()
	}
	e.RLock()
	chains := make(map[string]*RuleChainCtx, len(e.chains))
	for id, chain := range e.chains {
		chains[id] = chain
	}
	rootId := e.rootId
	e.RUnlock()
	if def.Root && rootId != "" && rootId != def.Id {
		return structuralError(def.Id, "", fmt.Sprintf("rule chain %s is already the root chain", rootId))
	}
	return Validate(e.config, e.registry, def, chains)
}

// RemoveChain 删除规则链，等待正在执行的消息完成后销毁节点
// 被其他规则链的子规则链节点引用时拒绝删除
func (e *RuleEngine) RemoveChain(ctx context.Context, id string) error {
	e.loadLock.Lock()
	defer e.loadLock.Unlock()

	e.Lock()
	chain, ok := e.chains[id]
	if !ok {
		e.Unlock()
		return chainNotFound(id)
	}
	for otherId, other := range e.chains {
		if otherId == id {
			continue
		}
		if nodeIds := other.referencedChains()[id]; len(nodeIds) > 0 {
			e.Unlock()
			return structuralError(id, "", fmt.Sprintf("rule chain is referenced by chain %s nodes %v", otherId, nodeIds))
		}
	}
	delete(e.chains, id)
	if e.rootId == id {
		e.rootId = ""
	}
	e.Unlock()

	stopTriggers(chain)
	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.config.RemoveTimeout)
	defer cancel()
	if !chain.waitDrained(waitCtx.Done()) {
		chain.destroyWhenDrained(e.config.RemoveTimeout)
		return &types.RuleError{Kind: types.Timeout, ChainId: id, Message: "running executions did not complete", Err: waitCtx.Err()}
	}
	chain.Destroy()
	e.config.Logger.Infof("chain %s removed", id)
	return nil
}

// GetChain 获取规则链定义的副本
func (e *RuleEngine) GetChain(id string) (*types.RuleChain, bool) {
	e.RLock()
	chain, ok := e.chains[id]
	e.RUnlock()
	if !ok {
		return nil, false
	}
	def, err := cloneChain(chain.SelfDefinition)
	return def, err == nil
}

// Chains 所有规则链定义的副本，按ID排序
func (e *RuleEngine) Chains() []*types.RuleChain {
	e.RLock()
	ids := make([]string, 0, len(e.chains))
	for id := range e.chains {
		ids = append(ids, id)
	}
	e.RUnlock()
	sort.Strings(ids)
	var out []*types.RuleChain
	for _, id := range ids {
		if def, ok := e.GetChain(id); ok {
			out = append(out, def)
		}
	}
	return out
}

// RootChain 根规则链
func (e *RuleEngine) RootChain() (*types.RuleChain, bool) {
	e.RLock()
	rootId := e.rootId
	e.RUnlock()
	if rootId == "" {
		return nil, false
	}
	return e.GetChain(rootId)
}

// DSL 以json格式读取规则链定义
func (e *RuleEngine) DSL(id string) ([]byte, error) {
	def, ok := e.GetChain(id)
	if !ok {
		return nil, chainNotFound(id)
	}
	return (&JsonParser{}).EncodeRuleChain(def)
}

// Version 当前规则链版本号
func (e *RuleEngine) Version() uint64 {
	e.RLock()
	defer e.RUnlock()
	return e.version
}

// ProcessMsg 处理消息，返回最终消息
// chainId 为空时使用根规则链，没有根规则链时使用唯一的规则链
func (e *RuleEngine) ProcessMsg(ctx context.Context, chainId string, msg types.RuleMsg) (types.RuleMsg, error) {
	_, out, err := e.process(ctx, chainId, msg)
	return out, err
}

// ProcessMsgWithResults 处理消息，返回所有分支的结果
func (e *RuleEngine) ProcessMsgWithResults(ctx context.Context, chainId string, msg types.RuleMsg) (types.ExecutionResult, error) {
	result, _, err := e.process(ctx, chainId, msg)
	return result, err
}

func (e *RuleEngine) process(ctx context.Context, chainId string, msg types.RuleMsg) (types.ExecutionResult, types.RuleMsg, error) {
	if e.stopped.Load() {
		return types.ExecutionResult{}, msg, types.ErrEngineStopped
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && e.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.DefaultTimeout)
		defer cancel()
	}
	if msg.Metadata == nil {
		msg.Metadata = types.NewMetadata()
	}
	if msg.Id == "" {
		msg.Id = uuid.Must(uuid.NewV4()).String()
	}
	nodeInterceptors, msgInterceptors := e.interceptors()
	for i, interceptor := range msgInterceptors {
		if err := interceptor.BeforeProcess(ctx, msg); err != nil {
			err = &types.RuleError{Kind: types.InterceptorError, ChainId: chainId, Err: err}
			//已经执行 BeforeProcess 的拦截器也要执行 AfterProcess
			for _, started := range msgInterceptors[:i] {
				_ = started.AfterProcess(ctx, msg, err)
			}
			return types.ExecutionResult{}, msg, err
		}
	}

	var (
		result types.ExecutionResult
		out    = msg
		err    error
	)
	if chain, acquireErr := e.acquireChain(chainId); acquireErr != nil {
		err = acquireErr
	} else {
		exec := newExecution(e, chain, ctx, msg.Id, nodeInterceptors)
		exec.start(chain.heads, msg)
		var waitErr error
		result, waitErr = exec.wait()
		var endErr error
		out, endErr = aggregate(msg, result)
		err = combineErrors(endErr, waitErr)
	}

	for _, interceptor := range msgInterceptors {
		if afterErr := interceptor.AfterProcess(ctx, out, err); afterErr != nil {
			err = multierr.Append(err, &types.RuleError{Kind: types.InterceptorError, ChainId: chainId, Err: afterErr})
		}
	}
	return result, out, err
}

// acquireChain 查找规则链并增加其执行计数，执行结束时减少
func (e *RuleEngine) acquireChain(chainId string) (*RuleChainCtx, error) {
	e.RLock()
	defer e.RUnlock()
	if chainId == "" {
		chainId = e.rootId
		if chainId == "" && len(e.chains) == 1 {
			for id := range e.chains {
				chainId = id
			}
		}
		if chainId == "" {
			return nil, &types.RuleError{Kind: types.ChainNotFound, Message: "no root chain"}
		}
	}
	chain, ok := e.chains[chainId]
	if !ok {
		return nil, chainNotFound(chainId)
	}
	chain.inflight.Add(1)
	return chain, nil
}

// submit 提交任务到协程池，没有协程池或者协程池已满时使用新的协程
func (e *RuleEngine) submit(task func()) {
	if e.config.Pool != nil {
		if err := e.config.Pool.Submit(task); err == nil {
			return
		}
	}
	go task()
}

// startTriggers 启动规则链中自主产生消息的节点
func (e *RuleEngine) startTriggers(chain *RuleChainCtx) error {
	var started []types.Trigger
	for _, item := range chain.triggers() {
		node := item
		trigger := node.Node.(types.Trigger)
		if err := trigger.Start(func(msg types.RuleMsg) {
			e.onTrigger(chain, node, msg)
		}); err != nil {
			for _, t := range started {
				t.Stop()
			}
			return err
		}
		started = append(started, trigger)
	}
	return nil
}

func stopTriggers(chain *RuleChainCtx) {
	for _, node := range chain.triggers() {
		node.Node.(types.Trigger).Stop()
	}
}

// onTrigger 节点产生的消息从该节点的出口开始执行，结果交给 Config.OnEnd
func (e *RuleEngine) onTrigger(chain *RuleChainCtx, node *RuleNodeCtx, msg types.RuleMsg) {
	if e.stopped.Load() || chain.destroyed.Load() {
		return
	}
	ctx := context.Background()
	if e.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.DefaultTimeout)
		defer cancel()
	}
	if msg.Metadata == nil {
		msg.Metadata = types.NewMetadata()
	}
	nodeInterceptors, _ := e.interceptors()
	chain.inflight.Add(1)
	exec := newExecution(e, chain, ctx, msg.Id, nodeInterceptors)
	exec.mu.Lock()
	exec.inflight++
	exec.mu.Unlock()
	ruleCtx := exec.newContext(nil, node)
	ruleCtx.returned = true
	ruleCtx.TellSuccess(msg)
	result, err := exec.wait()
	if err != nil {
		result.Ends = append(result.Ends, types.EndResult{ChainId: chain.Id, NodeId: node.GetNodeId(), Msg: msg, Err: err})
	}
	if e.config.OnEnd != nil {
		e.config.OnEnd(chain.Id, result)
	}
}

// Stop 停止规则引擎，停止所有触发器并销毁所有规则链
func (e *RuleEngine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	e.loadLock.Lock()
	defer e.loadLock.Unlock()
	e.Lock()
	chains := e.chains
	e.chains = make(map[string]*RuleChainCtx)
	e.rootId = ""
	e.Unlock()
	for _, chain := range chains {
		stopTriggers(chain)
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.config.RemoveTimeout)
	defer cancel()
	for _, chain := range chains {
		chain.waitDrained(ctx.Done())
		chain.Destroy()
	}
}

// aggregate 最终消息为最后一个成功结束的分支的消息，错误按完成顺序合并
func aggregate(input types.RuleMsg, result types.ExecutionResult) (types.RuleMsg, error) {
	out := input
	found := false
	for _, end := range result.Ends {
		if end.Err == nil {
			out = end.Msg
			found = true
		}
	}
	if !found && len(result.Ends) > 0 {
		out = result.Ends[len(result.Ends)-1].Msg
	}
	return out, multierr.Combine(result.Errors()...)
}

func combineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}

func chainNotFound(id string) error {
	return &types.RuleError{Kind: types.ChainNotFound, ChainId: id, Message: "rule chain not found"}
}

// cloneChain 通过json复制规则链定义
func cloneChain(def *types.RuleChain) (*types.RuleChain, error) {
	parser := &JsonParser{}
	b, err := parser.EncodeRuleChain(def)
	if err != nil {
		return nil, err
	}
	return parser.DecodeRuleChain(b)
}

// sameDefinition 比较两个规则链定义，忽略 metadata
func sameDefinition(a, b *types.RuleChain) bool {
	ca, errA := canonical(a)
	cb, errB := canonical(b)
	return errA == nil && errB == nil && string(ca) == string(cb)
}

func canonical(def *types.RuleChain) ([]byte, error) {
	c, err := cloneChain(def)
	if err != nil {
		return nil, err
	}
	c.Metadata = types.ChainMetadata{}
	for _, node := range c.Nodes {
		if node != nil {
			node.ChainId = c.Id
		}
	}
	return (&JsonParser{}).EncodeRuleChain(c)
}

// IsChainNotFound reports whether err means the rule chain does not exist.
func IsChainNotFound(err error) bool {
	return errors.Is(err, types.ErrChainNotFound)
}
