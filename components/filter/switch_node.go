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

//规则链节点配置示例：
//{
//  "id": "s1",
//  "type_name": "switch",
//  "config": {
//    "cases": [
//      {"name": "hot", "condition": "msg.data.temperature > 50"},
//      {"name": "warm", "condition": "msg.data.temperature > 20"}
//    ],
//    "default_next": "normal"
//  }
//}
import (
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/el"
)

// DefaultRelationType 没有匹配的case时默认的路由关系
const DefaultRelationType = "default"

func init() {
	Registry.Add(&SwitchNode{})
}

// SwitchNodeConfiguration 节点配置
type SwitchNodeConfiguration struct {
	// Cases 条件表达式列表，依次匹配，第一个匹配的case名称作为路由关系
	Cases []Case `json:"cases" validate:"required,min=1,dive"`
	// DefaultNext 没有匹配时的路由关系，默认 default
	DefaultNext string `json:"default_next"`
}

type Case struct {
	// Name 路由关系
	Name string `json:"name" validate:"required"`
	// Condition 条件表达式
	Condition   string `json:"condition" validate:"required"`
	Description string `json:"description"`
}

// SwitchNode 依次匹配case表达式，把消息转发到第一个匹配的case名称的路由链，
// 匹配不到则转发到 default_next 链。表达式执行失败发送到`Failure`链
type SwitchNode struct {
	//节点配置
	Config     SwitchNodeConfiguration
	conditions []*el.Condition
}

// Type 组件类型
func (x *SwitchNode) Type() string {
	return types.TypeSwitch
}

func (x *SwitchNode) New() types.Node {
	return &SwitchNode{Config: SwitchNodeConfiguration{DefaultNext: DefaultRelationType}}
}

func (x *SwitchNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeSwitch,
		DisplayName: "Switch",
		Description: "Routes to the label of the first matching case",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *SwitchNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.DefaultNext == "" {
		x.Config.DefaultNext = DefaultRelationType
	}
	x.conditions = nil
	for _, item := range x.Config.Cases {
		condition, err := el.NewCondition(item.Condition)
		if err != nil {
			return base.InvalidConfig("case %s: %s", item.Name, err)
		}
		x.conditions = append(x.conditions, condition)
	}
	return nil
}

// OnMsg 处理消息
func (x *SwitchNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	env := base.NodeUtils.GetEnv(ctx, msg)
	for i, condition := range x.conditions {
		ok, err := condition.Eval(env)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		if ok {
			ctx.TellNext(msg, x.Config.Cases[i].Name)
			return
		}
	}
	ctx.TellNext(msg, x.Config.DefaultNext)
}

// Destroy 销毁
func (x *SwitchNode) Destroy() {
}
