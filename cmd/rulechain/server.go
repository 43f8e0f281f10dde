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
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/engine"
	"github.com/rulego/rulechain/utils/json"
)

const (
	// base HTTP paths.
	apiVersion  = "v1"
	apiBasePath = "/api/" + apiVersion

	// /api/v1/chains/{chainId}
	chainsPath = apiBasePath + "/chains"
	chainPath  = chainsPath + "/:chainId"
	// /api/v1/chains/{chainId}/msg/{msgType}
	chainMsgPath = chainPath + "/msg/:msgType"
	// /api/v1/msg/{msgType} 根规则链处理
	rootMsgPath    = apiBasePath + "/msg/:msgType"
	validatePath   = apiBasePath + "/validate"
	componentsPath = apiBasePath + "/components"

	contentTypeKey   = "Content-Type"
	jsonContentType  = "application/json"
	maxBodySize      = 4 << 20
	chainIdParamName = "chainId"
)

// apiServer 规则链管理和消息处理 http 接口
type apiServer struct {
	engine *engine.RuleEngine
	logger *zap.Logger
}

// newRouter 注册所有路由，gatherer 不为空时提供 /metrics
func newRouter(ruleEngine *engine.RuleEngine, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	s := &apiServer{engine: ruleEngine, logger: logger}
	router := httprouter.New()
	router.GET(chainsPath, s.listChains)
	router.GET(chainPath, s.getChain)
	router.PUT(chainPath, s.putChain)
	router.DELETE(chainPath, s.deleteChain)
	router.POST(chainMsgPath, s.postMsg)
	router.POST(rootMsgPath, s.postMsg)
	router.POST(validatePath, s.validateChain)
	router.GET(componentsPath, s.listComponents)
	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})
	if gatherer != nil {
		router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return router
}

func (s *apiServer) listChains(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	chains := s.engine.Chains()
	if chains == nil {
		chains = []*types.RuleChain{}
	}
	s.writeJSON(w, http.StatusOK, chains)
}

func (s *apiServer) getChain(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	def, err := s.engine.DSL(ps.ByName(chainIdParamName))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set(contentTypeKey, jsonContentType)
	_, _ = w.Write(def)
}

// putChain 加载或者替换规则链，请求体为 json 或者 yaml(Content-Type 包含 yaml)
func (s *apiServer) putChain(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	chainId := ps.ByName(chainIdParamName)
	def, ok := s.decodeChain(w, r)
	if !ok {
		return
	}
	if def.Id == "" {
		def.Id = chainId
	} else if def.Id != chainId {
		s.writeError(w, types.NewRuleError(types.StructuralViolation, "chain id %q does not match path %q", def.Id, chainId))
		return
	}
	if _, err := s.engine.LoadChainDef(def); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.engine.DSL(chainId)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set(contentTypeKey, jsonContentType)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(out)
}

func (s *apiServer) deleteChain(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.engine.RemoveChain(r.Context(), ps.ByName(chainIdParamName)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) validateChain(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	def, ok := s.decodeChain(w, r)
	if !ok {
		return
	}
	if err := s.engine.Validate(def); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postMsg 处理消息，请求体为消息数据，查询参数作为元数据
func (s *apiServer) postMsg(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse(err))
		return
	}
	metadata := types.NewMetadata()
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			metadata.PutValue(k, v[0])
		}
	}
	msg := types.NewMsg(ps.ByName("msgType"), metadata, json.Decode(body))
	result, err := s.engine.ProcessMsgWithResults(r.Context(), ps.ByName(chainIdParamName), msg)
	status := http.StatusOK
	if err != nil {
		status = statusOf(err)
		s.logger.Debug("process message", zap.String("msgId", msg.Id), zap.Error(err))
	}
	s.writeJSON(w, status, newMsgResponse(result, err))
}

func (s *apiServer) listComponents(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, s.engine.Descriptors())
}

func (s *apiServer) decodeChain(w http.ResponseWriter, r *http.Request) (*types.RuleChain, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse(err))
		return nil, false
	}
	if len(body) == 0 {
		s.writeError(w, types.ErrEngineDslEmpty)
		return nil, false
	}
	var parser types.Parser = &engine.JsonParser{}
	if strings.Contains(r.Header.Get(contentTypeKey), "yaml") {
		parser = &engine.YamlParser{}
	}
	def, err := parser.DecodeRuleChain(body)
	if err != nil {
		s.writeError(w, &types.RuleError{Kind: types.StructuralViolation, Message: "malformed rule chain definition", Err: err})
		return nil, false
	}
	return def, true
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusOf(err), newErrorResponse(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set(contentTypeKey, jsonContentType)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
