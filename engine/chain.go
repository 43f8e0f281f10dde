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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rulego/rulechain/api/types"
)

// RelationCache 节点出口缓存键：源节点+连接标签
type RelationCache struct {
	inNodeId     string
	relationType string
}

// RuleNodeCtx 节点组件实例定义
type RuleNodeCtx struct {
	//组件实例
	types.Node
	//组件配置
	SelfDefinition *types.RuleNode
	//所属规则链
	chainId string
	//节点种类
	kind types.NodeKind
	//汇聚节点，nil表示非汇聚节点
	merger types.Merger
}

func (rn *RuleNodeCtx) GetNodeId() string {
	return rn.SelfDefinition.Id
}

func (rn *RuleNodeCtx) GetChainId() string {
	return rn.chainId
}

func (rn *RuleNodeCtx) Definition() *types.RuleNode {
	return rn.SelfDefinition
}

// Kind 节点种类
func (rn *RuleNodeCtx) Kind() types.NodeKind {
	return rn.kind
}

// RuleChainCtx 规则链实例，初始化所有节点并记录节点间的路由关系
// A RuleChainCtx is immutable once installed. A reload builds a new one.
type RuleChainCtx struct {
	Id             string
	SelfDefinition *types.RuleChain
	//节点ID，按定义顺序
	nodeIds []string
	nodes   map[string]*RuleNodeCtx
	//出口连接
	nodeRoutes map[string][]types.NodeConnection
	//入口连接数量
	inDegree      map[string]int
	relationCache map[RelationCache][]*RuleNodeCtx
	//有连接指向汇聚节点的节点 -> 汇聚节点列表
	mergeTargets map[string][]*RuleNodeCtx
	heads        []*RuleNodeCtx
	//正在执行的消息数量
	inflight  atomic.Int64
	destroyed atomic.Bool
}

// compileChain 实例化所有节点并检查结构约束，失败时销毁已创建的节点实例
func compileChain(config types.Config, registry *RuleComponentRegistry, def *types.RuleChain) (*RuleChainCtx, error) {
	chainId := def.Id
	if len(def.Nodes) == 0 {
		return nil, structuralError(chainId, "", "rule chain has no nodes")
	}
	ruleChainCtx := &RuleChainCtx{
		Id:             chainId,
		SelfDefinition: def,
		nodes:          make(map[string]*RuleNodeCtx, len(def.Nodes)),
		nodeRoutes:     make(map[string][]types.NodeConnection),
		inDegree:       make(map[string]int),
		relationCache:  make(map[RelationCache][]*RuleNodeCtx),
		mergeTargets:   make(map[string][]*RuleNodeCtx),
	}
	for index, item := range def.Nodes {
		if item == nil || item.Id == "" {
			return nil, structuralError(chainId, "", fmt.Sprintf("node %d has no id", index))
		}
		if _, ok := ruleChainCtx.nodes[item.Id]; ok {
			return nil, structuralError(chainId, item.Id, "duplicate node id")
		}
		item.ChainId = chainId
		ruleChainCtx.nodes[item.Id] = &RuleNodeCtx{SelfDefinition: item, chainId: chainId}
		ruleChainCtx.nodeIds = append(ruleChainCtx.nodeIds, item.Id)
	}
	for _, item := range def.Connections {
		if _, ok := ruleChainCtx.nodes[item.FromId]; !ok {
			return nil, structuralError(chainId, item.FromId, fmt.Sprintf("connection from unknown node %q to %q", item.FromId, item.ToId))
		}
		if _, ok := ruleChainCtx.nodes[item.ToId]; !ok {
			return nil, structuralError(chainId, item.ToId, fmt.Sprintf("connection from %q to unknown node %q", item.FromId, item.ToId))
		}
	}

	//初始化所有节点
	for _, nodeId := range ruleChainCtx.nodeIds {
		nodeCtx := ruleChainCtx.nodes[nodeId]
		def := nodeCtx.SelfDefinition
		node, err := registry.Instantiate(config, def.TypeName, def.Configuration)
		if err != nil {
			ruleChainCtx.Destroy()
			return nil, types.WrapError(types.InvalidConfig, chainId, nodeId, def.TypeName, err)
		}
		nodeCtx.Node = node
		nodeCtx.kind = types.DescribeNode(node).Kind
		if merger, ok := node.(types.Merger); ok {
			nodeCtx.merger = merger
		}
		if nodeCtx.kind == types.Head {
			ruleChainCtx.heads = append(ruleChainCtx.heads, nodeCtx)
		}
	}

	//加载节点关系
	for _, item := range def.Connections {
		from, to := ruleChainCtx.nodes[item.FromId], ruleChainCtx.nodes[item.ToId]
		if to.kind == types.Head {
			ruleChainCtx.Destroy()
			return nil, structuralError(chainId, to.GetNodeId(), fmt.Sprintf("head node %q (%s) has an incoming connection from %q", to.GetNodeId(), to.Type(), from.GetNodeId()))
		}
		if from.kind == types.Tail {
			ruleChainCtx.Destroy()
			return nil, structuralError(chainId, from.GetNodeId(), fmt.Sprintf("tail node %q (%s) has an outgoing connection to %q", from.GetNodeId(), from.Type(), to.GetNodeId()))
		}
		ruleChainCtx.nodeRoutes[item.FromId] = append(ruleChainCtx.nodeRoutes[item.FromId], item)
		ruleChainCtx.inDegree[item.ToId]++
		key := RelationCache{inNodeId: item.FromId, relationType: item.Label()}
		ruleChainCtx.relationCache[key] = append(ruleChainCtx.relationCache[key], to)
		if to.merger != nil && !containsNode(ruleChainCtx.mergeTargets[item.FromId], to) {
			ruleChainCtx.mergeTargets[item.FromId] = append(ruleChainCtx.mergeTargets[item.FromId], to)
		}
	}
	if len(ruleChainCtx.heads) == 0 {
		ruleChainCtx.Destroy()
		return nil, structuralError(chainId, "", "rule chain has no head node")
	}
	for _, nodeId := range ruleChainCtx.nodeIds {
		nodeCtx := ruleChainCtx.nodes[nodeId]
		if nodeCtx.kind != types.Tail && len(ruleChainCtx.nodeRoutes[nodeId]) == 0 {
			ruleChainCtx.Destroy()
			return nil, structuralError(chainId, nodeId, fmt.Sprintf("node %q (%s) is not a tail node and has no outgoing connection", nodeId, nodeCtx.Type()))
		}
	}
	return ruleChainCtx, nil
}

// GetNodeById 通过ID获取节点
func (rc *RuleChainCtx) GetNodeById(id string) (*RuleNodeCtx, bool) {
	node, ok := rc.nodes[id]
	return node, ok
}

// GetNextNodes 获取节点指定关系的子节点
func (rc *RuleChainCtx) GetNextNodes(id string, relationType string) ([]*RuleNodeCtx, bool) {
	nodes, ok := rc.relationCache[RelationCache{inNodeId: id, relationType: relationType}]
	return nodes, ok
}

// Heads 头节点，按定义顺序
func (rc *RuleChainCtx) Heads() []*RuleNodeCtx {
	return rc.heads
}

// referencedChains 子规则链节点引用的规则链
func (rc *RuleChainCtx) referencedChains() map[string][]string {
	refs := make(map[string][]string)
	for _, nodeId := range rc.nodeIds {
		if referrer, ok := rc.nodes[nodeId].Node.(types.ChainReferrer); ok && referrer.ReferencedChain() != "" {
			target := referrer.ReferencedChain()
			refs[target] = append(refs[target], nodeId)
		}
	}
	return refs
}

// triggers 自主产生消息的节点
func (rc *RuleChainCtx) triggers() []*RuleNodeCtx {
	var out []*RuleNodeCtx
	for _, nodeId := range rc.nodeIds {
		if _, ok := rc.nodes[nodeId].Node.(types.Trigger); ok {
			out = append(out, rc.nodes[nodeId])
		}
	}
	return out
}

// Destroy 销毁所有已初始化的节点实例，重复调用无效
func (rc *RuleChainCtx) Destroy() {
	if !rc.destroyed.CompareAndSwap(false, true) {
		return
	}
	for _, nodeId := range rc.nodeIds {
		if item := rc.nodes[nodeId]; item != nil && item.Node != nil {
			item.Node.Destroy()
		}
	}
}

// destroyWhenDrained 等待正在执行的消息完成后销毁，超过 timeout 则强制销毁
func (rc *RuleChainCtx) destroyWhenDrained(timeout time.Duration) {
	go func() {
		deadline := time.Now().Add(timeout)
		for rc.inflight.Load() > 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		rc.Destroy()
	}()
}

// waitDrained 等待正在执行的消息完成，返回是否已完成
func (rc *RuleChainCtx) waitDrained(done <-chan struct{}) bool {
	for rc.inflight.Load() > 0 {
		select {
		case <-done:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
	return true
}

func containsNode(nodes []*RuleNodeCtx, target *RuleNodeCtx) bool {
	for _, item := range nodes {
		if item == target {
			return true
		}
	}
	return false
}

func structuralError(chainId, nodeId, message string) error {
	return &types.RuleError{Kind: types.StructuralViolation, ChainId: chainId, NodeId: nodeId, Message: message}
}
