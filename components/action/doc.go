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

// Package action provides the entry and side-effect components of a rule chain:
//
// - StartNode: plain entry point of a chain
// - DelayNode: forwards the message after a delay, once or periodically
// - ScheduleNode: originates messages from a cron expression
// - LogNode: logs a template rendered from the message
//
// Each component is registered with the Registry. Use them in the chain
// definition by their type name, for example:
//
//	{
//	  "id": "d1",
//	  "type_name": "delay",
//	  "config": {"delay_ms": 1000, "periodic": true, "period_count": 3}
//	}
package action

import "github.com/rulego/rulechain/api/types"

// Registry 本包组件注册器
var Registry = new(types.SafeComponentSlice)
