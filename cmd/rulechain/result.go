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
	"errors"
	"net/http"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/builtin/aspect"
)

// errorResponse 错误信息
type errorResponse struct {
	Kind    string   `json:"kind,omitempty"`
	ChainId string   `json:"chainId,omitempty"`
	NodeId  string   `json:"nodeId,omitempty"`
	Path    []string `json:"path,omitempty"`
	Chains  []string `json:"chains,omitempty"`
	Message string   `json:"message"`
}

type endResponse struct {
	ChainId      string        `json:"chainId"`
	NodeId       string        `json:"nodeId"`
	RelationType string        `json:"relationType"`
	Msg          types.RuleMsg `json:"msg"`
	Error        string        `json:"error,omitempty"`
}

// msgResponse 消息处理结果，msg 为最后一个成功结束的分支的消息
type msgResponse struct {
	Msg   *types.RuleMsg `json:"msg,omitempty"`
	Ends  []endResponse  `json:"ends"`
	Error *errorResponse `json:"error,omitempty"`
}

func newErrorResponse(err error) *errorResponse {
	if err == nil {
		return nil
	}
	out := &errorResponse{Message: err.Error()}
	var ruleErr *types.RuleError
	if errors.As(err, &ruleErr) {
		out.Kind = ruleErr.Kind.String()
		out.ChainId = ruleErr.ChainId
		out.NodeId = ruleErr.NodeId
		out.Path = ruleErr.Path
		out.Chains = ruleErr.Chains
	}
	return out
}

func newMsgResponse(result types.ExecutionResult, err error) msgResponse {
	out := msgResponse{Ends: make([]endResponse, 0, len(result.Ends)), Error: newErrorResponse(err)}
	for _, end := range result.Ends {
		item := endResponse{ChainId: end.ChainId, NodeId: end.NodeId, RelationType: end.RelationType, Msg: end.Msg}
		if end.Err != nil {
			item.Error = end.Err.Error()
		}
		out.Ends = append(out.Ends, item)
	}
	if msgs := result.Messages(); len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		out.Msg = &last
	}
	return out
}

// statusOf 错误对应的 http 状态码
func statusOf(err error) int {
	if errors.Is(err, aspect.ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	switch types.KindOf(err) {
	case types.ChainNotFound:
		return http.StatusNotFound
	case types.UnknownNodeType, types.InvalidConfig, types.StructuralViolation, types.CircularDependency:
		return http.StatusBadRequest
	case types.HandlerError:
		return http.StatusUnprocessableEntity
	case types.Timeout:
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, types.ErrEngineDslEmpty) {
		return http.StatusBadRequest
	}
	if errors.Is(err, types.ErrEngineStopped) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
