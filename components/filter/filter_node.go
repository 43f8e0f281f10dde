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

package filter

import (
	"fmt"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/el"
	"github.com/rulego/rulechain/utils/maps"
)

// ErrFilterRejected 条件不成立时 `failure` 链收到的错误
var ErrFilterRejected = types.NewRuleError(types.HandlerError, "filter rejected")

func init() {
	Registry.Add(&FilterNode{})
}

// FilterNodeConfiguration 节点配置
type FilterNodeConfiguration struct {
	//条件表达式，例如：msg.data.temperature > 50
	Condition string `json:"condition" validate:"required"`
	//必须存在的消息体字段，支持 a.b 路径
	CheckFields []string `json:"checkFields"`
	//严格模式：表达式执行失败、返回值不是bool或者字段缺失时返回错误，否则视为false
	Strict bool `json:"strict"`
}

// FilterNode 使用表达式过滤消息
// 条件成立发送到`Success`链，不成立发送到`Failure`链
type FilterNode struct {
	//节点配置
	Config    FilterNodeConfiguration
	condition *el.Condition
}

// Type 组件类型
func (x *FilterNode) Type() string {
	return types.TypeFilter
}

func (x *FilterNode) New() types.Node {
	return &FilterNode{}
}

func (x *FilterNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeFilter,
		DisplayName: "Filter",
		Description: "Routes to success when the condition holds, to failure otherwise",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *FilterNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	condition, err := el.NewCondition(x.Config.Condition)
	if err != nil {
		return base.InvalidConfig("condition %q: %s", x.Config.Condition, err)
	}
	x.condition = condition
	return nil
}

// OnMsg 处理消息
func (x *FilterNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	pass, err := x.eval(ctx, msg)
	if err != nil {
		if x.Config.Strict {
			ctx.TellFailure(msg, err)
			return
		}
		pass = false
	}
	if pass {
		ctx.TellSuccess(msg)
	} else {
		ctx.TellFailure(msg, ErrFilterRejected)
	}
}

func (x *FilterNode) eval(ctx types.RuleContext, msg types.RuleMsg) (bool, error) {
	for _, field := range x.Config.CheckFields {
		if _, ok := maps.Get(msg.Data, field); !ok {
			return false, fmt.Errorf("missing field %s", field)
		}
	}
	return x.condition.Eval(base.NodeUtils.GetEnv(ctx, msg))
}

// Destroy 销毁
func (x *FilterNode) Destroy() {
}
