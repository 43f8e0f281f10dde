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
//  "id": "t1",
//  "type_name": "transform_js",
//  "config": {
//    "script": "metadata.scaled = 'true'; return {value: msg.value * 2};"
//  }
//}
import (
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/js"
)

const (
	JsTransformFuncName = "Transform"
	jsTransformParams   = "msg, metadata, msgType, ctx"
)

func init() {
	Registry.Add(&JsTransformNode{})
}

// JsTransformNodeConfiguration 节点配置
type JsTransformNodeConfiguration struct {
	//函数体脚本，完整函数：function Transform(msg, metadata, msgType, ctx) { ${script} }
	//msg 为消息体，返回值作为新的消息体
	Script string `json:"script" validate:"required"`
}

// JsTransformNode 使用JavaScript转换消息体
// 脚本对 metadata 的修改会保留到输出消息
// 执行成功发送到`Success`链，失败发送到`Failure`链
type JsTransformNode struct {
	//节点配置
	Config   JsTransformNodeConfiguration
	jsEngine *js.GojaJsEngine
}

// Type 组件类型
func (x *JsTransformNode) Type() string {
	return types.TypeTransformJs
}

func (x *JsTransformNode) New() types.Node {
	return &JsTransformNode{}
}

func (x *JsTransformNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeTransformJs,
		DisplayName: "JS Transform",
		Description: "Runs a JavaScript body over the message body and metadata",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *JsTransformNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	engine, err := newJsEngine(ruleConfig, wrapFunction(JsTransformFuncName, jsTransformParams, x.Config.Script))
	if err != nil {
		return err
	}
	x.jsEngine = engine
	return nil
}

// OnMsg 处理消息
func (x *JsTransformNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	metadata := base.NodeUtils.MetadataToJs(msg.Metadata)
	out, err := x.jsEngine.Execute(JsTransformFuncName, base.NodeUtils.PrepareJsData(msg), metadata, msg.Type, ctx.Vars())
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	if out == nil {
		ctx.TellFailure(msg, ErrEmptyResult)
		return
	}
	msg.Data = out
	msg.Metadata = base.NodeUtils.MetadataFromJs(metadata)
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *JsTransformNode) Destroy() {
	if x.jsEngine != nil {
		x.jsEngine.Stop()
	}
}
