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

package common

import (
	"github.com/rulego/rulechain/api/types"
)

func init() {
	Registry.Add(&ForkNode{})
}

// ForkNode 并行网关节点，把消息复制到所有`Success`连接，每个分支并发执行
type ForkNode struct {
}

// Type 组件类型
func (x *ForkNode) Type() string {
	return types.TypeFork
}

func (x *ForkNode) New() types.Node {
	return &ForkNode{}
}

func (x *ForkNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeFork,
		DisplayName: "Fork",
		Description: "Duplicates the message across all outgoing connections",
		Kind:        types.Head,
	}
}

// Init 初始化
func (x *ForkNode) Init(_ types.Config, _ types.Configuration) error {
	return nil
}

// OnMsg 处理消息
func (x *ForkNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *ForkNode) Destroy() {
}
