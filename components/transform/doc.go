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

// Package transform provides the components that compute a new message body:
//
// - TransformNode: `${expression}` templates per field
// - ScriptNode: JavaScript over the whole message
// - JsTransformNode: JavaScript over body and metadata
// - JsFunctionNode: a set of named JavaScript functions and a main function
//
// For example:
//
//	{
//	  "id": "t1",
//	  "type_name": "transform",
//	  "config": {"fields": {"value": "${msg.data.value * 2}", "metadata.unit": "C"}}
//	}
package transform

import "github.com/rulego/rulechain/api/types"

// Registry 本包组件注册器
var Registry = new(types.SafeComponentSlice)
