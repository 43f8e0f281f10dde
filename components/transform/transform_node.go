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
//  "type_name": "transform",
//  "config": {
//    "fields": {
//      "value": "${msg.data.value * 2}",
//      "device.name": "${metadata.deviceName}",
//      "metadata.unit": "celsius"
//    },
//    "dropFields": ["raw"]
//  }
//}
import (
	"sort"
	"strings"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/el"
	"github.com/rulego/rulechain/utils/maps"
	"github.com/rulego/rulechain/utils/str"
)

const metadataPrefix = types.MetadataKey + "."

func init() {
	Registry.Add(&TransformNode{})
}

// TransformNodeConfiguration 节点配置
type TransformNodeConfiguration struct {
	//字段模板，key 支持 a.b 路径，metadata.x 写入元数据
	Fields map[string]interface{} `json:"fields" validate:"required,min=1"`
	//删除的字段，metadata.x 删除元数据
	DropFields []string `json:"dropFields"`
}

type fieldTemplate struct {
	key      string
	metadata bool
	template el.Template
}

// TransformNode 使用模板计算消息体字段
// All templates are evaluated against the inbound message before any field
// is written. dropFields are removed after the fields are written.
// 执行成功发送到`Success`链，模板执行失败发送到`Failure`链
type TransformNode struct {
	//节点配置
	Config TransformNodeConfiguration
	fields []fieldTemplate
}

// Type 组件类型
func (x *TransformNode) Type() string {
	return types.TypeTransform
}

func (x *TransformNode) New() types.Node {
	return &TransformNode{}
}

func (x *TransformNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeTransform,
		DisplayName: "Transform",
		Description: "Computes message fields from ${expression} templates",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *TransformNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	keys := make([]string, 0, len(x.Config.Fields))
	for k := range x.Config.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	x.fields = nil
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return base.InvalidConfig("fields: empty key")
		}
		tmpl, err := el.NewTemplate(x.Config.Fields[k])
		if err != nil {
			return base.InvalidConfig("fields.%s: %s", k, err)
		}
		field := fieldTemplate{key: k, template: tmpl}
		if strings.HasPrefix(k, metadataPrefix) {
			field.key = k[len(metadataPrefix):]
			field.metadata = true
		}
		x.fields = append(x.fields, field)
	}
	return nil
}

// OnMsg 处理消息
func (x *TransformNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	env := base.NodeUtils.GetEnv(ctx, msg)
	values := make([]interface{}, len(x.fields))
	for i, field := range x.fields {
		v, err := field.template.Execute(env)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		values[i] = v
	}

	data, ok := msg.Data.(map[string]interface{})
	if !ok {
		data = make(map[string]interface{})
	}
	for i, field := range x.fields {
		if field.metadata {
			msg.Metadata.PutValue(field.key, str.ToString(values[i]))
		} else if !maps.Set(data, field.key, values[i]) {
			ctx.TellFailure(msg, types.NewRuleError(types.HandlerError, "field %s: parent is not an object", field.key))
			return
		}
	}
	for _, k := range x.Config.DropFields {
		if strings.HasPrefix(k, metadataPrefix) {
			delete(msg.Metadata, k[len(metadataPrefix):])
		} else {
			maps.Delete(data, k)
		}
	}
	msg.Data = data
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *TransformNode) Destroy() {
}
