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

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/js"
	"github.com/rulego/rulechain/utils/str"
)

// ErrEmptyResult 脚本没有返回新的消息体
var ErrEmptyResult = errors.New("script must return the new message body")

// newJsEngine compiles a node script, a compile error is an InvalidConfig error.
func newJsEngine(ruleConfig types.Config, jsScript string) (*js.GojaJsEngine, error) {
	engine, err := js.NewGojaJsEngine(ruleConfig, jsScript, consoleVars(ruleConfig.Logger))
	if err != nil {
		return nil, base.InvalidConfig("script: %s", err)
	}
	return engine, nil
}

// jsMsg 脚本中 msg 对象：{id, type, ts, data, metadata}
func jsMsg(msg types.RuleMsg) map[string]interface{} {
	return map[string]interface{}{
		"id":       msg.Id,
		"type":     msg.Type,
		"ts":       msg.Ts,
		"data":     base.NodeUtils.PrepareJsData(msg),
		"metadata": base.NodeUtils.MetadataToJs(msg.Metadata),
	}
}

// consoleVars 脚本中可用的 console.log / console.error
func consoleVars(logger types.Logger) map[string]interface{} {
	write := func(level func(format string, v ...interface{})) func(args ...interface{}) {
		return func(args ...interface{}) {
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = str.ToString(arg)
			}
			level("js: %s", strings.Join(parts, " "))
		}
	}
	if logger == nil {
		return map[string]interface{}{"console": map[string]interface{}{
			"log":   func(args ...interface{}) {},
			"error": func(args ...interface{}) {},
		}}
	}
	return map[string]interface{}{"console": map[string]interface{}{
		"log":   write(logger.Infof),
		"error": write(logger.Errorf),
	}}
}

func wrapFunction(name, params, body string) string {
	return fmt.Sprintf("function %s(%s) {\n%s\n}", name, params, body)
}
