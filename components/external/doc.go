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

// Package external provides the components that call external systems:
//
// - RestClientNode: HTTP requests with retry and proxy support
// - RedisNode: redis commands
// - DbClientNode: SQL statements over mysql or postgres
// - MqttClientNode: publishes the message to an MQTT broker
//
// Clients are created on first use and closed when the chain is destroyed.
//
//	{
//	  "id": "r1",
//	  "type_name": "rest_client",
//	  "config": {"url": "http://127.0.0.1:8080/api/${msg.data.id}", "method": "POST", "retry": {"maxAttempts": 3, "delay": 100}}
//	}
package external

import "github.com/rulego/rulechain/api/types"

// Registry 本包组件注册器
var Registry = new(types.SafeComponentSlice)
