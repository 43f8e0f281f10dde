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
	"sync"
)

// NodeKind is the structural role of a component type in a rule chain.
// NodeKind 节点种类：头节点、中间节点、尾节点
type NodeKind int

const (
	// Middle nodes may have incoming and outgoing connections.
	Middle NodeKind = iota
	// Head nodes never have incoming connections. Execution starts at them.
	Head
	// Tail nodes never have outgoing connections.
	Tail
)

func (k NodeKind) String() string {
	switch k {
	case Head:
		return "head"
	case Tail:
		return "tail"
	default:
		return "middle"
	}
}

// MarshalText 序列化为文本
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NodeDescriptor 组件描述信息
type NodeDescriptor struct {
	TypeName    string   `json:"type_name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Kind        NodeKind `json:"node_kind"`
}

// DescriptorGetter 该接口是可选的，组件可以实现该接口，提供组件描述及节点种类
// 没有实现该接口的组件视为中间节点
type DescriptorGetter interface {
	Descriptor() NodeDescriptor
}

// ChainReferrer 该接口是可选的，引用其他规则链的组件(例如子规则链节点)实现该接口，
// 用于加载时跨规则链的循环依赖检测
type ChainReferrer interface {
	ReferencedChain() string
}

// Merger 该接口是可选的，汇聚节点实现该接口。
// The engine holds every branch reaching a Merger until all its incoming
// connections delivered, then runs the node with the merged message.
type Merger interface {
	Merge(msgs []RuleMsg) (RuleMsg, error)
}

// Trigger 该接口是可选的，不依赖输入消息、自主产生消息的头节点实现该接口(例如定时节点)
// Start is called when the chain is installed, Stop when it is replaced or removed.
type Trigger interface {
	Start(emit func(msg RuleMsg)) error
	Stop()
}

// NodeFactory builds a node instance from its configuration.
type NodeFactory func(ruleConfig Config, configuration Configuration) (Node, error)

// DescribeNode returns the descriptor of a node instance.
func DescribeNode(node Node) NodeDescriptor {
	if getter, ok := node.(DescriptorGetter); ok {
		desc := getter.Descriptor()
		if desc.TypeName == "" {
			desc.TypeName = node.Type()
		}
		return desc
	}
	return NodeDescriptor{TypeName: node.Type(), DisplayName: node.Type(), Kind: Middle}
}

// SafeComponentSlice 安全的组件列表切片
type SafeComponentSlice struct {
	//组件列表
	components []Node
	sync.Mutex
}

// Add 线程安全地添加元素
func (p *SafeComponentSlice) Add(nodes ...Node) {
	p.Lock()
	defer p.Unlock()
	p.components = append(p.components, nodes...)
}

// Components 获取组件列表
func (p *SafeComponentSlice) Components() []Node {
	p.Lock()
	defer p.Unlock()
	return append([]Node(nil), p.components...)
}
