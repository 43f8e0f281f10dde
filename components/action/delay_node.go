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

//规则链节点配置示例：
//{
//  "id": "s1",
//  "type_name": "delay",
//  "config": {
//    "delay_ms": 1000,
//    "periodic": true,
//    "period_count": 3
//  }
//}
import (
	"time"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
)

func init() {
	Registry.Add(&DelayNode{})
}

// DelayNodeConfiguration 节点配置
type DelayNodeConfiguration struct {
	//延迟时间，单位毫秒
	DelayMs int64 `json:"delay_ms" validate:"gte=0"`
	//是否周期发送
	Periodic bool `json:"periodic"`
	//周期发送次数，periodic=true 时必须大于0
	PeriodCount int `json:"period_count" validate:"gte=0"`
}

// DelayNode 延迟转发消息
// 一次模式：等待 delay_ms 后发送到`Success`链
// 周期模式：每隔 delay_ms 发送一份副本，共 period_count 次
// The wait suspends only the current branch. When the execution context is
// cancelled the message goes to the `Failure` chain.
type DelayNode struct {
	//节点配置
	Config DelayNodeConfiguration
}

// Type 组件类型
func (x *DelayNode) Type() string {
	return types.TypeDelay
}

func (x *DelayNode) New() types.Node {
	return &DelayNode{Config: DelayNodeConfiguration{DelayMs: 1000}}
}

func (x *DelayNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeDelay,
		DisplayName: "Delay",
		Description: "Forwards the message after delay_ms, once or period_count times",
		Kind:        types.Head,
	}
}

// Init 初始化
func (x *DelayNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Periodic && x.Config.PeriodCount < 1 {
		return base.InvalidConfig("period_count must be at least 1 when periodic is true")
	}
	return nil
}

// OnMsg 处理消息
func (x *DelayNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	count := 1
	if x.Config.Periodic {
		count = x.Config.PeriodCount
	}
	delay := time.Duration(x.Config.DelayMs) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for i := 0; i < count; i++ {
		if i > 0 {
			timer.Reset(delay)
		}
		select {
		case <-ctx.GetContext().Done():
			ctx.TellFailure(msg, ctx.GetContext().Err())
			return
		case <-timer.C:
		}
		if i == count-1 {
			ctx.TellSuccess(msg)
		} else {
			ctx.TellSuccess(msg.Copy())
		}
	}
}

// Destroy 销毁
func (x *DelayNode) Destroy() {
}
