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

package action

import (
	"github.com/rulego/rulechain/api/types"
)

func init() {
	Registry.Add(&StartNode{})
}

// StartNode 规则链入口节点，消息原样发送到`Success`链
type StartNode struct {
}

// Type 组件类型
func (x *StartNode) Type() string {
	return types.TypeStart
}

func (x *StartNode) New() types.Node {
	return &StartNode{}
}

func (x *StartNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeStart,
		DisplayName: "Start",
		Description: "Entry point, forwards the inbound message unchanged",
		Kind:        types.Head,
	}
}

// Init 初始化
func (x *StartNode) Init(_ types.Config, _ types.Configuration) error {
	return nil
}

// OnMsg 处理消息
func (x *StartNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *StartNode) Destroy() {
}
