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

package types

// 连接类型
const (
	Success = "success"
	Failure = "failure"
)

// Built-in component types.
const (
	TypeStart       = "start"
	TypeFork        = "fork"
	TypeJoin        = "join"
	TypeDelay       = "delay"
	TypeSchedule    = "schedule"
	TypeLog         = "log"
	TypeScript      = "script"
	TypeTransformJs = "transform_js"
	TypeJsFunction  = "js_function"
	TypeFilter      = "filter"
	TypeSwitch      = "switch"
	TypeTransform   = "transform"
	TypeRestClient  = "rest_client"
	TypeSubchain    = "subchain"
	TypeRedis       = "redis"
	TypeDbClient    = "db_client"
	TypeMqttClient  = "mqtt_client"
)

// Context variables exposed to templates under ctx.*
const (
	CtxChainId = "chain_id"
	CtxNodeId  = "node_id"
	CtxMsgId   = "msg_id"
)
