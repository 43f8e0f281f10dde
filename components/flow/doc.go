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

// Package flow provides the subchain component, which runs another rule chain
// as one step of the current chain:
//
//	{"id": "s1", "type_name": "subchain", "config": {"chain_id": "enrich"}}
package flow

import "github.com/rulego/rulechain/api/types"

// Registry 本包组件注册器
var Registry = new(types.SafeComponentSlice)
