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
	"github.com/rulego/rulechain/components/base"
)

const (
	// MergeLast 最后到达的消息胜出
	MergeLast = "last"
	// MergeBranches 把所有分支的消息体合并成 {"branches":[...]}
	MergeBranches = "branches"
	// BranchesKey MergeBranches 模式下的字段名
	BranchesKey = "branches"
)

func init() {
	Registry.Add(&JoinNode{})
}

// JoinNodeConfiguration 节点配置
type JoinNodeConfiguration struct {
	//合并策略：last 或 branches
	Merge string `json:"merge" validate:"omitempty,oneof=last branches"`
}

// JoinNode 汇聚节点，等待所有到达该节点的分支后输出一条合并后的消息
// The engine holds the arrivals of one execution and calls Merge once they
// are all in. A branch error is surfaced by the engine before Merge is called.
type JoinNode struct {
	//节点配置
	Config JoinNodeConfiguration
}

// Type 组件类型
func (x *JoinNode) Type() string {
	return types.TypeJoin
}

func (x *JoinNode) New() types.Node {
	return &JoinNode{Config: JoinNodeConfiguration{Merge: MergeLast}}
}

func (x *JoinNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeJoin,
		DisplayName: "Join",
		Description: "Waits for every branch reaching it and forwards one merged message",
		Kind:        types.Tail,
	}
}

// Init 初始化
func (x *JoinNode) Init(_ types.Config, configuration types.Configuration) error {
	return base.Decode(configuration, &x.Config)
}

// Merge 合并到达的消息，msgs 按到达顺序排列
// Metadata of later arrivals overwrites earlier keys.
func (x *JoinNode) Merge(msgs []types.RuleMsg) (types.RuleMsg, error) {
	if len(msgs) == 0 {
		return types.RuleMsg{}, types.NewRuleError(types.HandlerError, "join without arrivals")
	}
	last := msgs[len(msgs)-1]
	if x.Config.Merge != MergeBranches {
		return last, nil
	}
	merged := last.Copy()
	metadata := types.NewMetadata()
	branches := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		for k, v := range msg.Metadata {
			metadata.PutValue(k, v)
		}
		branches = append(branches, types.CopyValue(msg.Data))
	}
	merged.Metadata = metadata
	merged.Data = map[string]interface{}{BranchesKey: branches}
	return merged, nil
}

// OnMsg 收到合并后的消息，发送到`Success`链
func (x *JoinNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *JoinNode) Destroy() {
}
