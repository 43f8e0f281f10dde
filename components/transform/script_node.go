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

package transform

//规则链节点配置示例：
//{
//  "id": "s1",
//  "type_name": "script",
//  "config": {
//    "script": "return {value: msg.data.value + 1, node: ctx.node_id};",
//    "output_type": "RESULT"
//  }
//}
import (
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/js"
)

const scriptFuncName = "Script"

func init() {
	Registry.Add(&ScriptNode{})
}

// ScriptNodeConfiguration 节点配置
type ScriptNodeConfiguration struct {
	//函数体脚本，完整函数：function Script(msg, ctx) { ${script} }
	//msg: {id, type, ts, data, metadata}，ctx: 执行上下文变量
	Script string `json:"script" validate:"required"`
	//输出消息类型，为空时保持不变
	OutputType string `json:"output_type"`
}

// ScriptNode 执行JavaScript脚本，返回值作为新的消息体
// 脚本可以使用 console.log 和 console.error 记录日志
type ScriptNode struct {
	//节点配置
	Config   ScriptNodeConfiguration
	jsEngine *js.GojaJsEngine
}

// Type 组件类型
func (x *ScriptNode) Type() string {
	return types.TypeScript
}

func (x *ScriptNode) New() types.Node {
	return &ScriptNode{}
}

func (x *ScriptNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeScript,
		DisplayName: "Script",
		Description: "Runs a JavaScript body over the message, its return value is the new body",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *ScriptNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	engine, err := newJsEngine(ruleConfig, wrapFunction(scriptFuncName, "msg, ctx", x.Config.Script))
	if err != nil {
		return err
	}
	x.jsEngine = engine
	return nil
}

// OnMsg 处理消息
func (x *ScriptNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	out, err := x.jsEngine.Execute(scriptFuncName, jsMsg(msg), ctx.Vars())
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	if out == nil {
		ctx.TellFailure(msg, ErrEmptyResult)
		return
	}
	msg.Data = out
	if x.Config.OutputType != "" {
		msg.Type = x.Config.OutputType
	}
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *ScriptNode) Destroy() {
	if x.jsEngine != nil {
		x.jsEngine.Stop()
	}
}
