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

package engine

import (
	"path/filepath"
	"strings"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/utils/fs"
	"github.com/rulego/rulechain/utils/json"
	"github.com/rulego/rulechain/utils/str"
	"gopkg.in/yaml.v3"
)

// JsonParser Json
type JsonParser struct {
}

// DecodeRuleChain 通过json解析规则链结构体
func (p *JsonParser) DecodeRuleChain(def []byte) (*types.RuleChain, error) {
	var chain types.RuleChain
	if err := json.Unmarshal(def, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// EncodeRuleChain 把规则链转换成格式化的json
func (p *JsonParser) EncodeRuleChain(def *types.RuleChain) ([]byte, error) {
	v, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	return json.Format(v)
}

// YamlParser Yaml，字段名称与json格式相同
type YamlParser struct {
}

// DecodeRuleChain 通过yaml解析规则链结构体
func (p *YamlParser) DecodeRuleChain(def []byte) (*types.RuleChain, error) {
	var chain types.RuleChain
	if err := yaml.Unmarshal(def, &chain); err != nil {
		return nil, err
	}
	for _, node := range chain.Nodes {
		if node != nil {
			node.Configuration = normalizeConfiguration(node.Configuration)
		}
	}
	return &chain, nil
}

// EncodeRuleChain 把规则链转换成yaml
func (p *YamlParser) EncodeRuleChain(def *types.RuleChain) ([]byte, error) {
	return yaml.Marshal(def)
}

// ParserForFile 根据文件扩展名选择解析器，.yaml/.yml 使用 YamlParser，否则使用 defaultParser
func ParserForFile(path string, defaultParser types.Parser) types.Parser {
	if fs.IsYaml(path) {
		return &YamlParser{}
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return &JsonParser{}
	}
	return defaultParser
}

// normalizeConfiguration 只有节点配置本身是 types.Configuration，嵌套的对象与json一样是 map[string]interface{}
func normalizeConfiguration(config types.Configuration) types.Configuration {
	if config == nil {
		return nil
	}
	out := make(types.Configuration, len(config))
	for k, item := range config {
		out[k] = normalizeYaml(item)
	}
	return out
}

// normalizeYaml converts yaml scalars to the values json decoding produces,
// so a chain reads the same whatever format it was written in.
// yaml.v3 decodes nested mappings with the type of the parent map.
func normalizeYaml(v interface{}) interface{} {
	switch value := v.(type) {
	case types.Configuration:
		return normalizeYaml(map[string]interface{}(value))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, item := range value {
			out[k] = normalizeYaml(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, item := range value {
			out[str.ToString(k)] = normalizeYaml(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, item := range value {
			out[i] = normalizeYaml(item)
		}
		return out
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case uint64:
		return float64(value)
	default:
		return value
	}
}
