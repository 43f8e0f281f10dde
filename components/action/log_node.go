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
//  "id": "l1",
//  "type_name": "log",
//  "config": {
//    "template": "temperature=${msg.data.temperature} from ${metadata.deviceId}",
//    "level": "info"
//  }
//}
import (
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/el"
)

func init() {
	Registry.Add(&LogNode{})
}

// LogNodeConfiguration 节点配置
type LogNodeConfiguration struct {
	//日志模板，为空时记录消息体
	Template string `json:"template"`
	//日志级别
	Level string `json:"level" validate:"omitempty,oneof=debug info warn error"`
}

// LogNode 使用模板将消息格式化后记录日志，使用`types.Config.Logger`
// 记录成功后消息原样发送到`Success`链，模板执行失败发送到`Failure`链
type LogNode struct {
	//节点配置
	Config   LogNodeConfiguration
	template el.Template
	logger   types.Logger
}

// Type 组件类型
func (x *LogNode) Type() string {
	return types.TypeLog
}

func (x *LogNode) New() types.Node {
	return &LogNode{Config: LogNodeConfiguration{Level: "info"}}
}

func (x *LogNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeLog,
		DisplayName: "Log",
		Description: "Logs a template rendered from the message",
		Kind:        types.Tail,
	}
}

// Init 初始化
func (x *LogNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Template != "" {
		tmpl, err := el.NewTemplate(x.Config.Template)
		if err != nil {
			return base.InvalidConfig("template: %s", err)
		}
		x.template = tmpl
	}
	x.logger = ruleConfig.Logger
	return nil
}

// OnMsg 处理消息
func (x *LogNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	text := msg.GetDataAsString()
	if x.template != nil {
		out, err := x.template.ExecuteAsString(base.NodeUtils.GetEnv(ctx, msg))
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		text = out
	}
	if x.logger != nil {
		x.log(text)
	}
	ctx.TellSuccess(msg)
}

func (x *LogNode) log(text string) {
	switch x.Config.Level {
	case "debug":
		x.logger.Debugf("%s", text)
	case "warn":
		x.logger.Warnf("%s", text)
	case "error":
		x.logger.Errorf("%s", text)
	default:
		x.logger.Infof("%s", text)
	}
}

// Destroy 销毁
func (x *LogNode) Destroy() {
}
