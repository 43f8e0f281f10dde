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

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/engine"
	"github.com/rulego/rulechain/utils/json"
)

func newTestServer(t *testing.T, config Config) (*httptest.Server, *engine.RuleEngine) {
	registry := prometheus.NewRegistry()
	ruleEngine, wp, err := newRuleEngine(config, zap.NewNop(), registry)
	require.Nil(t, err)
	ts := httptest.NewServer(newRouter(ruleEngine, registry, zap.NewNop()))
	t.Cleanup(func() {
		ts.Close()
		ruleEngine.Stop()
		wp.Release()
	})
	return ts, ruleEngine
}

func doRequest(t *testing.T, method, url, contentType, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.Nil(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.Nil(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	return resp.StatusCode, b
}

func decodeMsgResponse(t *testing.T, b []byte) msgResponse {
	t.Helper()
	var out msgResponse
	require.Nil(t, json.Unmarshal(b, &out))
	return out
}

func TestChainsApi(t *testing.T) {
	ts, ruleEngine := newTestServer(t, DefaultConfig())

	status, body := doRequest(t, http.MethodGet, ts.URL+chainsPath, "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", string(body))

	status, body = doRequest(t, http.MethodPut, ts.URL+chainsPath+"/double", jsonContentType, doubleChainDSL("", true))
	require.Equal(t, http.StatusCreated, status, string(body))
	def, err := (&engine.JsonParser{}).DecodeRuleChain(body)
	require.Nil(t, err)
	assert.Equal(t, "double", def.Id)
	assert.Equal(t, uint64(1), def.Metadata.Version)

	status, body = doRequest(t, http.MethodGet, ts.URL+chainsPath+"/double", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"id": "double"`)

	var chains []*types.RuleChain
	status, body = doRequest(t, http.MethodGet, ts.URL+chainsPath, "", "")
	assert.Equal(t, http.StatusOK, status)
	require.Nil(t, json.Unmarshal(body, &chains))
	require.Len(t, chains, 1)

	//ID 与路径不一致
	status, _ = doRequest(t, http.MethodPut, ts.URL+chainsPath+"/other", jsonContentType, doubleChainDSL("double", false))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, http.MethodGet, ts.URL+chainsPath+"/missing", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, http.MethodDelete, ts.URL+chainsPath+"/double", "", "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = doRequest(t, http.MethodDelete, ts.URL+chainsPath+"/double", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, ruleEngine.Chains())
}

func TestPutChainYaml(t *testing.T) {
	ts, ruleEngine := newTestServer(t, DefaultConfig())
	yamlDef := `
nodes:
  - id: s
    type_name: start
  - id: l
    type_name: log
connections:
  - from_id: s
    to_id: l
`
	status, body := doRequest(t, http.MethodPut, ts.URL+chainsPath+"/from_yaml", "application/yaml", yamlDef)
	require.Equal(t, http.StatusCreated, status, string(body))
	_, ok := ruleEngine.GetChain("from_yaml")
	assert.True(t, ok)
}

func TestPutChainRejected(t *testing.T) {
	ts, _ := newTestServer(t, DefaultConfig())

	status, body := doRequest(t, http.MethodPut, ts.URL+chainsPath+"/broken", jsonContentType, "{")
	assert.Equal(t, http.StatusBadRequest, status)
	var errResp errorResponse
	require.Nil(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, types.StructuralViolation.String(), errResp.Kind)

	status, _ = doRequest(t, http.MethodPut, ts.URL+chainsPath+"/empty", jsonContentType, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, http.MethodPut, ts.URL+chainsPath+"/y", jsonContentType, subchainDSL("y", "x"))
	require.Equal(t, http.StatusCreated, status)
	status, body = doRequest(t, http.MethodPut, ts.URL+chainsPath+"/x", jsonContentType, subchainDSL("x", "y"))
	assert.Equal(t, http.StatusBadRequest, status)
	require.Nil(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, types.CircularDependency.String(), errResp.Kind)
	assert.ElementsMatch(t, []string{"x", "y"}, errResp.Chains)

	//被引用的规则链不能删除
	status, _ = doRequest(t, http.MethodPut, ts.URL+chainsPath+"/z", jsonContentType, subchainDSL("z", "y"))
	require.Equal(t, http.StatusCreated, status)
	status, _ = doRequest(t, http.MethodDelete, ts.URL+chainsPath+"/y", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestValidateApi(t *testing.T) {
	ts, ruleEngine := newTestServer(t, DefaultConfig())

	status, _ := doRequest(t, http.MethodPost, ts.URL+validatePath, jsonContentType, doubleChainDSL("v", true))
	assert.Equal(t, http.StatusNoContent, status)
	_, ok := ruleEngine.GetChain("v")
	assert.False(t, ok)

	invalid := strings.Replace(doubleChainDSL("v", true), `"type_name": "start"`, `"type_name": "not_exists"`, 1)
	status, body := doRequest(t, http.MethodPost, ts.URL+validatePath, jsonContentType, invalid)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), types.UnknownNodeType.String())
}

func TestMsgApi(t *testing.T) {
	ts, _ := newTestServer(t, DefaultConfig())
	status, _ := doRequest(t, http.MethodPut, ts.URL+chainsPath+"/double", jsonContentType, doubleChainDSL("double", true))
	require.Equal(t, http.StatusCreated, status)

	status, body := doRequest(t, http.MethodPost, ts.URL+apiBasePath+"/msg/TELEMETRY?deviceId=d1", jsonContentType, `{"value": 21}`)
	require.Equal(t, http.StatusOK, status, string(body))
	out := decodeMsgResponse(t, body)
	require.NotNil(t, out.Msg)
	assert.Equal(t, "TELEMETRY", out.Msg.Type)
	assert.Equal(t, 42.0, out.Msg.Data.(map[string]interface{})["value"])
	assert.Equal(t, "d1", out.Msg.Metadata.GetValue("deviceId"))
	require.Len(t, out.Ends, 1)
	assert.Equal(t, "l", out.Ends[0].NodeId)
	assert.Nil(t, out.Error)

	status, body = doRequest(t, http.MethodPost, ts.URL+chainsPath+"/double/msg/TELEMETRY", jsonContentType, `{"value": 1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, decodeMsgResponse(t, body).Msg.Data.(map[string]interface{})["value"])

	status, body = doRequest(t, http.MethodPost, ts.URL+chainsPath+"/missing/msg/TELEMETRY", jsonContentType, `{}`)
	assert.Equal(t, http.StatusNotFound, status)
	out = decodeMsgResponse(t, body)
	require.NotNil(t, out.Error)
	assert.Equal(t, types.ChainNotFound.String(), out.Error.Kind)
}

func TestMsgApiHandlerError(t *testing.T) {
	ts, _ := newTestServer(t, DefaultConfig())
	def := `{
  "id": "filter",
  "nodes": [
    {"id": "s", "type_name": "start"},
    {"id": "f", "type_name": "filter", "config": {"condition": "value > 10"}},
    {"id": "l", "type_name": "log"}
  ],
  "connections": [
    {"from_id": "s", "to_id": "f"},
    {"from_id": "f", "to_id": "l"}
  ]
}`
	status, _ := doRequest(t, http.MethodPut, ts.URL+chainsPath+"/filter", jsonContentType, def)
	require.Equal(t, http.StatusCreated, status)

	status, body := doRequest(t, http.MethodPost, ts.URL+chainsPath+"/filter/msg/TEST", jsonContentType, `{"value": 1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	out := decodeMsgResponse(t, body)
	assert.Nil(t, out.Msg)
	require.Len(t, out.Ends, 1)
	assert.Equal(t, types.Failure, out.Ends[0].RelationType)
	assert.NotEmpty(t, out.Ends[0].Error)
	require.NotNil(t, out.Error)
	assert.Equal(t, "f", out.Error.NodeId)
}

func TestRateLimitedMsgApi(t *testing.T) {
	config := DefaultConfig()
	config.Limit = LimitConfig{PerSecond: 0.001, Burst: 1}
	ts, _ := newTestServer(t, config)
	status, _ := doRequest(t, http.MethodPut, ts.URL+chainsPath+"/double", jsonContentType, doubleChainDSL("double", true))
	require.Equal(t, http.StatusCreated, status)

	status, _ = doRequest(t, http.MethodPost, ts.URL+apiBasePath+"/msg/TEST", jsonContentType, `{"value": 1}`)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, http.MethodPost, ts.URL+apiBasePath+"/msg/TEST", jsonContentType, `{"value": 1}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestComponentsAndMetricsApi(t *testing.T) {
	ts, _ := newTestServer(t, DefaultConfig())

	status, body := doRequest(t, http.MethodGet, ts.URL+componentsPath, "", "")
	assert.Equal(t, http.StatusOK, status)
	var descriptors []map[string]interface{}
	require.Nil(t, json.Unmarshal(body, &descriptors))
	assert.NotEmpty(t, descriptors)

	status, _ = doRequest(t, http.MethodPut, ts.URL+chainsPath+"/double", jsonContentType, doubleChainDSL("double", true))
	require.Equal(t, http.StatusCreated, status)
	status, _ = doRequest(t, http.MethodPost, ts.URL+apiBasePath+"/msg/TEST", jsonContentType, `{"value": 1}`)
	require.Equal(t, http.StatusOK, status)

	status, body = doRequest(t, http.MethodGet, ts.URL+"/metrics", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `rulechain_messages_total{result="success"} 1`)
	assert.Contains(t, string(body), `rulechain_node_executions_total{chain="double",node="t",result="success",type="transform"} 1`)

	status, _ = doRequest(t, http.MethodGet, ts.URL+"/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
}
