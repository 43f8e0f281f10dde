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

package flow

import (
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
)

func init() {
	Registry.Add(&SubchainNode{})
}

// SubchainNodeConfiguration 节点配置
type SubchainNodeConfiguration struct {
	//子规则链ID
	ChainId string `json:"chain_id" validate:"required"`
	//输出消息类型，为空时保持子规则链的输出类型
	OutputType string `json:"output_type"`
}

// SubchainNode 执行子规则链，子规则链的最终结果作为本节点的输出
// 子规则链执行成功发送到`Success`链，失败或者子规则链不存在发送到`Failure`链
type SubchainNode struct {
	//节点配置
	Config SubchainNodeConfiguration
}

// Type 组件类型
func (x *SubchainNode) Type() string {
	return types.TypeSubchain
}

func (x *SubchainNode) New() types.Node {
	return &SubchainNode{}
}

func (x *SubchainNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeSubchain,
		DisplayName: "Subchain",
		Description: "Runs another rule chain and forwards its result",
		Kind:        types.Middle,
	}
}

// ReferencedChain 引用的规则链，用于循环依赖检查
func (x *SubchainNode) ReferencedChain() string {
	return x.Config.ChainId
}

// Init 初始化
func (x *SubchainNode) Init(_ types.Config, configuration types.Configuration) error {
	return base.Decode(configuration, &x.Config)
}

// OnMsg 处理消息
func (x *SubchainNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellFlow(ctx.GetContext(), x.Config.ChainId, msg, func(out types.RuleMsg, err error) {
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		if x.Config.OutputType != "" {
			out.Type = x.Config.OutputType
		}
		ctx.TellSuccess(out)
	})
}

// Destroy 销毁
func (x *SubchainNode) Destroy() {
}
