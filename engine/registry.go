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
	"sort"
	"sync"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/action"
	"github.com/rulego/rulechain/components/common"
	"github.com/rulego/rulechain/components/external"
	"github.com/rulego/rulechain/components/filter"
	"github.com/rulego/rulechain/components/flow"
	"github.com/rulego/rulechain/components/transform"
	"github.com/rulego/rulechain/utils/runtime"
)

// BuiltinComponents returns a prototype of every built-in component.
func BuiltinComponents() []types.Node {
	var components []types.Node
	components = append(components, action.Registry.Components()...)
	components = append(components, common.Registry.Components()...)
	components = append(components, filter.Registry.Components()...)
	components = append(components, transform.Registry.Components()...)
	components = append(components, external.Registry.Components()...)
	components = append(components, flow.Registry.Components()...)
	return components
}

// RuleComponentRegistry 组件注册器，类型名称 -> 节点工厂
// Registering an existing type overwrites it. Chains loaded earlier keep the
// instances they were built with.
type RuleComponentRegistry struct {
	//组件工厂
	factories map[string]types.NodeFactory
	//组件描述
	descriptors map[string]types.NodeDescriptor
	sync.RWMutex
}

// NewRegistry 创建注册了所有内置组件的注册器
func NewRegistry() *RuleComponentRegistry {
	r := &RuleComponentRegistry{}
	for _, node := range BuiltinComponents() {
		_ = r.Register(node)
	}
	return r
}

// Register 注册组件原型，节点实例通过 New()+Init() 创建
func (r *RuleComponentRegistry) Register(node types.Node) error {
	if node == nil {
		return fmt.Errorf("component can not be nil")
	}
	typeName := node.Type()
	if typeName == "" {
		return fmt.Errorf("component type can not be empty")
	}
	r.Lock()
	defer r.Unlock()
	r.init()
	r.factories[typeName] = prototypeFactory(node)
	r.descriptors[typeName] = types.DescribeNode(node.New())
	return nil
}

// RegisterFactory 通过工厂函数注册组件，节点种类在实例化后由实例的描述信息决定
func (r *RuleComponentRegistry) RegisterFactory(typeName string, factory types.NodeFactory) {
	r.Lock()
	defer r.Unlock()
	r.init()
	r.factories[typeName] = factory
	r.descriptors[typeName] = types.NodeDescriptor{TypeName: typeName, DisplayName: typeName, Kind: types.Middle}
}

// Unregister 删除组件
func (r *RuleComponentRegistry) Unregister(typeName string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.factories[typeName]; !ok {
		return unknownNodeType(typeName)
	}
	delete(r.factories, typeName)
	delete(r.descriptors, typeName)
	return nil
}

// Resolve 查找组件工厂
func (r *RuleComponentRegistry) Resolve(typeName string) (types.NodeFactory, error) {
	r.RLock()
	defer r.RUnlock()
	if factory, ok := r.factories[typeName]; ok {
		return factory, nil
	}
	return nil, unknownNodeType(typeName)
}

// Instantiate 创建并初始化节点实例
func (r *RuleComponentRegistry) Instantiate(ruleConfig types.Config, typeName string, configuration types.Configuration) (node types.Node, err error) {
	factory, err := r.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	if configuration == nil {
		configuration = make(types.Configuration)
	}
	defer func() {
		if e := recover(); e != nil {
			node = nil
			err = types.WrapError(types.InvalidConfig, "", "", typeName, runtime.PanicError(e))
		}
	}()
	node, err = factory(ruleConfig, configuration)
	if err != nil {
		return nil, types.WrapError(types.InvalidConfig, "", "", typeName, err)
	}
	if node == nil {
		return nil, &types.RuleError{Kind: types.InvalidConfig, NodeType: typeName, Message: "factory returned no node"}
	}
	return node, nil
}

// Descriptor 获取组件描述
func (r *RuleComponentRegistry) Descriptor(typeName string) (types.NodeDescriptor, bool) {
	r.RLock()
	defer r.RUnlock()
	desc, ok := r.descriptors[typeName]
	return desc, ok
}

// Descriptors 获取所有组件描述，按类型名称排序
func (r *RuleComponentRegistry) Descriptors() []types.NodeDescriptor {
	r.RLock()
	defer r.RUnlock()
	out := make([]types.NodeDescriptor, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TypeName < out[j].TypeName
	})
	return out
}

func (r *RuleComponentRegistry) init() {
	if r.factories == nil {
		r.factories = make(map[string]types.NodeFactory)
		r.descriptors = make(map[string]types.NodeDescriptor)
	}
}

func prototypeFactory(prototype types.Node) types.NodeFactory {
	return func(ruleConfig types.Config, configuration types.Configuration) (types.Node, error) {
		node := prototype.New()
		if err := node.Init(ruleConfig, configuration); err != nil {
			return nil, err
		}
		return node, nil
	}
}

func unknownNodeType(typeName string) error {
	return &types.RuleError{Kind: types.UnknownNodeType, NodeType: typeName, Message: fmt.Sprintf("component %q is not registered", typeName)}
}
