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
	"testing"
	"time"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMsg() types.RuleMsg {
	metadata := types.NewMetadata()
	metadata.PutValue("deviceName", "sensor-1")
	return types.NewMsg("TEST", metadata, map[string]interface{}{
		"value": 5.0,
		"raw":   "0x05",
		"f":     212.0,
	})
}

func onMsg(t *testing.T, node types.Node) test.Result {
	results := test.OnMsg(t, node, types.NewConfig(), newTestMsg(), 1, time.Second)
	require.Len(t, results, 1)
	return results[0]
}

func TestNodeNew(t *testing.T) {
	test.NodeNew(t, types.TypeTransform, &TransformNode{}, Registry)
	test.NodeNew(t, types.TypeScript, &ScriptNode{}, Registry)
	test.NodeNew(t, types.TypeTransformJs, &JsTransformNode{}, Registry)
	test.NodeNew(t, types.TypeJsFunction, &JsFunctionNode{}, Registry)
}

func TestTransformNode(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeTransform, types.Configuration{
		"fields": map[string]interface{}{
			"value":         "${msg.data.value * 2}",
			"device.name":   "${metadata.deviceName}",
			"label":         "v=${value}",
			"fixed":         true,
			"metadata.unit": "celsius",
		},
		"dropFields": []interface{}{"raw", "metadata.deviceName"},
	}, Registry)
	require.Nil(t, err)

	r := onMsg(t, node)
	require.Nil(t, r.Err)
	assert.Equal(t, types.Success, r.RelationType)
	assert.Equal(t, map[string]interface{}{
		"value":  10.0,
		"f":      212.0,
		"device": map[string]interface{}{"name": "sensor-1"},
		"label":  "v=5",
		"fixed":  true,
	}, r.Msg.Data)
	assert.Equal(t, "celsius", r.Msg.Metadata.GetValue("unit"))
	assert.False(t, r.Msg.Metadata.Has("deviceName"))
}

func TestTransformNodeNonObjectData(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeTransform, types.Configuration{
		"fields": map[string]interface{}{"text": "${msg.data}"},
	}, Registry)
	require.Nil(t, err)
	results := test.OnMsg(t, node, types.NewConfig(), types.NewMsg("TEST", nil, "hello"), 1, time.Second)
	assert.Equal(t, map[string]interface{}{"text": "hello"}, results[0].Msg.Data)
}

func TestTransformNodeErrors(t *testing.T) {
	_, err := test.CreateAndInitNode(types.TypeTransform, types.Configuration{}, Registry)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
	_, err = test.CreateAndInitNode(types.TypeTransform, types.Configuration{
		"fields": map[string]interface{}{"a": "${msg.data.value"},
	}, Registry)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))

	node, err := test.CreateAndInitNode(types.TypeTransform, types.Configuration{
		"fields": map[string]interface{}{"raw.x": "1"},
	}, Registry)
	require.Nil(t, err)
	r := onMsg(t, node)
	assert.Equal(t, types.Failure, r.RelationType)
	assert.True(t, errors.Is(r.Err, types.ErrHandler))
}

func TestScriptNode(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeScript, types.Configuration{
		"script":      "console.log('value', msg.data.value); return {value: msg.data.value + 1, type: msg.type, device: msg.metadata.deviceName, chain: ctx.chain_id};",
		"output_type": "RESULT",
	}, Registry)
	require.Nil(t, err)
	r := onMsg(t, node)
	require.Nil(t, r.Err)
	assert.Equal(t, map[string]interface{}{"value": 6.0, "type": "TEST", "device": "sensor-1", "chain": "test"}, r.Msg.Data)
	assert.Equal(t, "RESULT", r.Msg.Type)

	node, err = test.CreateAndInitNode(types.TypeScript, types.Configuration{"script": "msg.data.value = 1;"}, Registry)
	require.Nil(t, err)
	r = onMsg(t, node)
	assert.Equal(t, types.Failure, r.RelationType)
	assert.Equal(t, ErrEmptyResult, r.Err)

	_, err = test.CreateAndInitNode(types.TypeScript, types.Configuration{"script": "return {"}, Registry)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
	_, err = test.CreateAndInitNode(types.TypeScript, types.Configuration{}, Registry)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}

func TestJsTransformNode(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeTransformJs, types.Configuration{
		"script": "metadata.scaled = 'true'; delete metadata.deviceName; return {value: msg.value * 2, type: msgType};",
	}, Registry)
	require.Nil(t, err)
	r := onMsg(t, node)
	require.Nil(t, r.Err)
	assert.Equal(t, map[string]interface{}{"value": 10.0, "type": "TEST"}, r.Msg.Data)
	assert.Equal(t, "true", r.Msg.Metadata.GetValue("scaled"))
	assert.False(t, r.Msg.Metadata.Has("deviceName"))

	node, err = test.CreateAndInitNode(types.TypeTransformJs, types.Configuration{"script": "throw new Error('bad value');"}, Registry)
	require.Nil(t, err)
	r = onMsg(t, node)
	assert.Equal(t, types.Failure, r.RelationType)
	assert.Contains(t, r.Err.Error(), "bad value")
}

func TestJsTransformNodeTimeout(t *testing.T) {
	config := types.NewConfig(types.WithScriptMaxExecutionTime(50 * time.Millisecond))
	node, err := test.CreateAndInitNodeWithConfig(config, types.TypeTransformJs, types.Configuration{"script": "while(true){}"}, Registry)
	require.Nil(t, err)
	results := test.OnMsg(t, node, config, newTestMsg(), 1, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, types.Failure, results[0].RelationType)
}

func TestJsFunctionNode(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeJsFunction, types.Configuration{
		"functions": map[string]interface{}{
			"celsius": "return (msg.data.f - 32) * 5 / 9;",
			"entry":   "return {c: celsius(msg), id: msg.id};",
		},
		"main": "entry",
	}, Registry)
	require.Nil(t, err)
	msg := newTestMsg()
	results := test.OnMsg(t, node, types.NewConfig(), msg, 1, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]interface{}{"c": 100.0, "id": msg.Id}, results[0].Msg.Data)

	_, err = test.CreateAndInitNode(types.TypeJsFunction, types.Configuration{
		"functions": map[string]interface{}{"other": "return 1;"},
	}, Registry)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}
