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
//  "id": "f1",
//  "type_name": "js_function",
//  "config": {
//    "functions": {
//      "celsius": "return (msg.data.f - 32) * 5 / 9;",
//      "main": "return {c: celsius(msg)};"
//    },
//    "main": "main"
//  }
//}
import (
	"sort"
	"strings"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/js"
)

func init() {
	Registry.Add(&JsFunctionNode{})
}

// JsFunctionNodeConfiguration 节点配置
type JsFunctionNodeConfiguration struct {
	//函数名 -> 函数体，每个函数的参数为 msg: {id, type, ts, data, metadata}
	Functions map[string]string `json:"functions" validate:"required,min=1"`
	//入口函数名，默认 main
	Main string `json:"main"`
}

// JsFunctionNode 定义一组JavaScript函数，调用入口函数，返回值作为新的消息体
// 函数之间可以相互调用
type JsFunctionNode struct {
	//节点配置
	Config   JsFunctionNodeConfiguration
	jsEngine *js.GojaJsEngine
}

// Type 组件类型
func (x *JsFunctionNode) Type() string {
	return types.TypeJsFunction
}

func (x *JsFunctionNode) New() types.Node {
	return &JsFunctionNode{Config: JsFunctionNodeConfiguration{Main: "main"}}
}

func (x *JsFunctionNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeJsFunction,
		DisplayName: "JS Function",
		Description: "Calls the main function of a set of JavaScript functions",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *JsFunctionNode) Init(ruleConfig types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.Main == "" {
		x.Config.Main = "main"
	}
	if _, ok := x.Config.Functions[x.Config.Main]; !ok {
		return base.InvalidConfig("main function %s is not defined", x.Config.Main)
	}
	names := make([]string, 0, len(x.Config.Functions))
	for name := range x.Config.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(wrapFunction(name, "msg", x.Config.Functions[name]))
		sb.WriteString("\n")
	}
	engine, err := newJsEngine(ruleConfig, sb.String())
	if err != nil {
		return err
	}
	x.jsEngine = engine
	return nil
}

// OnMsg 处理消息
func (x *JsFunctionNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	out, err := x.jsEngine.Execute(x.Config.Main, jsMsg(msg))
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	if out == nil {
		ctx.TellFailure(msg, ErrEmptyResult)
		return
	}
	msg.Data = out
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *JsFunctionNode) Destroy() {
	if x.jsEngine != nil {
		x.jsEngine.Stop()
	}
}
