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
	"sort"

	"github.com/rulego/rulechain/api/types"
)

const (
	white = iota
	gray
	black
)

// vertex 跨规则链依赖图的顶点
type vertex struct {
	chainId string
	nodeId  string
}

func (v vertex) String() string {
	return v.chainId + "/" + v.nodeId
}

// dependencyGraph 跨规则链的节点依赖图
// Edges are the connections of every chain plus, for every node referring
// to another chain, an edge into each head node of that chain.
type dependencyGraph struct {
	chains map[string]*RuleChainCtx
	color  map[vertex]int
	stack  []vertex
}

// checkCircularDependency 检查规则链集合中是否存在环，返回 CircularDependency 错误
// 引用尚未加载的规则链的节点不产生边
func checkCircularDependency(chains map[string]*RuleChainCtx) error {
	g := &dependencyGraph{chains: chains, color: make(map[vertex]int)}
	chainIds := make([]string, 0, len(chains))
	for id := range chains {
		chainIds = append(chainIds, id)
	}
	sort.Strings(chainIds)
	for _, chainId := range chainIds {
		for _, nodeId := range chains[chainId].nodeIds {
			v := vertex{chainId: chainId, nodeId: nodeId}
			if g.color[v] == white {
				if cycle := g.visit(v); cycle != nil {
					return circularDependencyError(cycle)
				}
			}
		}
	}
	return nil
}

// visit 深度优先遍历，发现环时返回环上的顶点，首尾相同
func (g *dependencyGraph) visit(v vertex) []vertex {
	g.color[v] = gray
	g.stack = append(g.stack, v)
	for _, next := range g.successors(v) {
		switch g.color[next] {
		case gray:
			for i := len(g.stack) - 1; i >= 0; i-- {
				if g.stack[i] == next {
					cycle := append([]vertex(nil), g.stack[i:]...)
					return append(cycle, next)
				}
			}
		case white:
			if cycle := g.visit(next); cycle != nil {
				return cycle
			}
		}
	}
	g.stack = g.stack[:len(g.stack)-1]
	g.color[v] = black
	return nil
}

func (g *dependencyGraph) successors(v vertex) []vertex {
	chain := g.chains[v.chainId]
	var out []vertex
	for _, conn := range chain.nodeRoutes[v.nodeId] {
		out = append(out, vertex{chainId: v.chainId, nodeId: conn.ToId})
	}
	if referrer, ok := chain.nodes[v.nodeId].Node.(types.ChainReferrer); ok {
		if target, ok := g.chains[referrer.ReferencedChain()]; ok {
			for _, head := range target.heads {
				out = append(out, vertex{chainId: target.Id, nodeId: head.GetNodeId()})
			}
		}
	}
	return out
}

func circularDependencyError(cycle []vertex) error {
	err := &types.RuleError{Kind: types.CircularDependency, Message: "rule chain graph contains a cycle"}
	seen := make(map[string]bool)
	for _, v := range cycle {
		err.Path = append(err.Path, v.String())
		if !seen[v.chainId] {
			seen[v.chainId] = true
			err.Chains = append(err.Chains, v.chainId)
		}
	}
	err.ChainId = cycle[0].chainId
	err.NodeId = cycle[0].nodeId
	return err
}

// Validate 校验规则链定义，不安装。chains 为已加载的规则链(同ID的规则链被候选替换)
func Validate(config types.Config, registry *RuleComponentRegistry, def *types.RuleChain, chains map[string]*RuleChainCtx) error {
	candidate, err := compileChain(config, registry, def)
	if err != nil {
		return err
	}
	defer candidate.Destroy()
	universe := make(map[string]*RuleChainCtx, len(chains)+1)
	for id, chain := range chains {
		universe[id] = chain
	}
	universe[candidate.Id] = candidate
	return checkCircularDependency(universe)
}
