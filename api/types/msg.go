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

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

const (
	MsgKey      = "msg"
	MetadataKey = "metadata"
	MsgTypeKey  = "msgType"
	CtxKey      = "ctx"
)

// Metadata 规则引擎消息元数据
type Metadata map[string]string

// NewMetadata 创建一个新的规则引擎消息元数据实例
func NewMetadata() Metadata {
	return make(Metadata)
}

// BuildMetadata 通过map，创建一个新的规则引擎消息元数据实例
func BuildMetadata(data map[string]string) Metadata {
	metadata := make(Metadata, len(data))
	for k, v := range data {
		metadata[k] = v
	}
	return metadata
}

// Copy 复制
func (md Metadata) Copy() Metadata {
	return BuildMetadata(md)
}

// Has 是否存在某个key
func (md Metadata) Has(key string) bool {
	_, ok := md[key]
	return ok
}

// GetValue 通过key获取值
func (md Metadata) GetValue(key string) string {
	return md[key]
}

// PutValue 设置值
func (md Metadata) PutValue(key, value string) {
	if key != "" {
		md[key] = value
	}
}

// Values 获取所有值
func (md Metadata) Values() map[string]string {
	return md
}

// RuleMsg is the message flowing through a rule chain. Every node receives its
// own copy and hands a new value to the next node.
// RuleMsg 规则引擎消息
type RuleMsg struct {
	// Ts 消息时间戳(毫秒)
	Ts int64 `json:"ts"`
	// Id 消息ID，同一条消息在规则链流转的整个过程是唯一的
	Id string `json:"id"`
	// Type 消息类型，例如：TELEMETRY、ACTIVITY_EVENT
	Type string `json:"type"`
	// Data 消息内容，解码后的JSON值
	Data interface{} `json:"data"`
	// Metadata 消息元数据
	Metadata Metadata `json:"metadata"`
}

// NewMsg 创建一个新的消息实例，并通过uuid生成消息ID
func NewMsg(msgType string, metaData Metadata, data interface{}) RuleMsg {
	return newMsg("", 0, msgType, metaData, data)
}

// NewMsgFromJSON 创建消息，data 为 JSON 文本
func NewMsgFromJSON(msgType string, metaData Metadata, data string) (RuleMsg, error) {
	var v interface{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return RuleMsg{}, err
		}
	}
	return NewMsg(msgType, metaData, v), nil
}

func newMsg(id string, ts int64, msgType string, metaData Metadata, data interface{}) RuleMsg {
	if ts <= 0 {
		ts = time.Now().UnixMilli()
	}
	if id == "" {
		uuId, _ := uuid.NewV4()
		id = uuId.String()
	}
	if metaData == nil {
		metaData = NewMetadata()
	}
	return RuleMsg{
		Ts:       ts,
		Id:       id,
		Type:     msgType,
		Data:     data,
		Metadata: metaData,
	}
}

// Copy returns a deep copy of the message, identity included.
// Copy 复制
func (m *RuleMsg) Copy() RuleMsg {
	return newMsg(m.Id, m.Ts, m.Type, m.Metadata.Copy(), CopyValue(m.Data))
}

// DataAsMap returns Data when it is a JSON object.
func (m *RuleMsg) DataAsMap() (map[string]interface{}, bool) {
	v, ok := m.Data.(map[string]interface{})
	return v, ok
}

// GetDataAsString returns the string form of Data: strings as is, anything else as JSON.
func (m *RuleMsg) GetDataAsString() string {
	switch v := m.Data.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

// CopyValue deep-copies a decoded JSON value.
func CopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = CopyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = CopyValue(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	case []byte:
		return append([]byte(nil), val...)
	default:
		return val
	}
}

// EndResult is the outcome of one branch that reached the end of its path.
// EndResult 分支执行结果
type EndResult struct {
	ChainId      string  `json:"chainId"`
	NodeId       string  `json:"nodeId"`
	RelationType string  `json:"relationType"`
	Msg          RuleMsg `json:"msg"`
	Err          error   `json:"-"`
}

// ExecutionResult collects every branch end of one execution, in completion order.
type ExecutionResult struct {
	Ends []EndResult `json:"ends"`
}

// Errors returns the branch errors in completion order.
func (r ExecutionResult) Errors() []error {
	var errs []error
	for _, end := range r.Ends {
		if end.Err != nil {
			errs = append(errs, end.Err)
		}
	}
	return errs
}

// Messages returns the messages of the branches that ended without error.
func (r ExecutionResult) Messages() []RuleMsg {
	var msgs []RuleMsg
	for _, end := range r.Ends {
		if end.Err == nil {
			msgs = append(msgs, end.Msg)
		}
	}
	return msgs
}
