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

// RuleChain 规则链定义
// A rule chain is replaced as a whole on reload, never mutated node by node.
type RuleChain struct {
	// Id 规则链ID(uuid)，为空时加载时自动生成
	Id string `json:"id" yaml:"id"`
	// Name 规则链的名称
	Name string `json:"name" yaml:"name"`
	// Root 是否根规则链，引擎中最多只有一条根规则链
	Root bool `json:"root" yaml:"root"`
	// Nodes 节点定义
	Nodes []*RuleNode `json:"nodes" yaml:"nodes"`
	// Connections 连接定义
	Connections []NodeConnection `json:"connections" yaml:"connections"`
	// Metadata 版本信息，由引擎在加载时维护
	Metadata ChainMetadata `json:"metadata" yaml:"metadata"`
}

// ChainMetadata 规则链版本信息
type ChainMetadata struct {
	Version   uint64 `json:"version" yaml:"version"`
	CreatedAt int64  `json:"created_at" yaml:"created_at"`
	UpdatedAt int64  `json:"updated_at" yaml:"updated_at"`
}

// RuleNode 规则链节点信息定义
type RuleNode struct {
	// Id 节点的唯一标识符
	Id string `json:"id" yaml:"id"`
	// TypeName 节点的类型，需要与注册的组件类型匹配
	TypeName string `json:"type_name" yaml:"type_name"`
	// ChainId 节点所属的规则链
	ChainId string `json:"chain_id" yaml:"chain_id"`
	// Configuration 节点的配置参数，具体内容取决于节点类型
	Configuration Configuration `json:"config" yaml:"config"`
	// Layout 可视化位置信息，执行时忽略
	Layout NodeLayout `json:"layout" yaml:"layout"`
}

// NodeLayout 用于可视化位置信息
type NodeLayout struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeConnection 规则链节点连接定义
type NodeConnection struct {
	// FromId 源节点id
	FromId string `json:"from_id" yaml:"from_id"`
	// ToId 目标节点id
	ToId string `json:"to_id" yaml:"to_id"`
	// TypeName 连接标签：Success、Failure 或者自定义标签
	TypeName string `json:"type_name" yaml:"type_name"`
}

// Label returns the connection label, Success when empty.
func (c NodeConnection) Label() string {
	if c.TypeName == "" {
		return Success
	}
	return c.TypeName
}

// GetNode 通过ID查找节点定义
func (r *RuleChain) GetNode(id string) (*RuleNode, bool) {
	for _, node := range r.Nodes {
		if node != nil && node.Id == id {
			return node, true
		}
	}
	return nil, false
}
