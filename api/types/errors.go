/*
 * Copyright 2024 The RuleGo Authors.
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
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a RuleError.
type ErrorKind int

const (
	UnknownNodeType ErrorKind = iota + 1
	InvalidConfig
	StructuralViolation
	CircularDependency
	HandlerError
	InterceptorError
	ChainNotFound
	Timeout
)

var errorKindNames = map[ErrorKind]string{
	UnknownNodeType:     "unknown node type",
	InvalidConfig:       "invalid config",
	StructuralViolation: "structural violation",
	CircularDependency:  "circular dependency",
	HandlerError:        "handler error",
	InterceptorError:    "interceptor error",
	ChainNotFound:       "chain not found",
	Timeout:             "timeout",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Sentinels for errors.Is, matched by kind.
var (
	ErrUnknownNodeType     = &RuleError{Kind: UnknownNodeType}
	ErrInvalidConfig       = &RuleError{Kind: InvalidConfig}
	ErrStructuralViolation = &RuleError{Kind: StructuralViolation}
	ErrCircularDependency  = &RuleError{Kind: CircularDependency}
	ErrHandler             = &RuleError{Kind: HandlerError}
	ErrInterceptor         = &RuleError{Kind: InterceptorError}
	ErrChainNotFound       = &RuleError{Kind: ChainNotFound}
	ErrTimeout             = &RuleError{Kind: Timeout}
)

var (
	// ErrEngineStopped is returned by operations on a stopped engine
	ErrEngineStopped = errors.New("rule engine stopped")
	// ErrEngineDslEmpty is returned when the rule chain dsl is empty.
	ErrEngineDslEmpty = errors.New("dsl can not empty")
)

// RuleError 规则引擎错误，标识出错的规则链和节点
type RuleError struct {
	Kind ErrorKind
	// ChainId 出错的规则链
	ChainId string
	// NodeId 出错的节点
	NodeId string
	// NodeType 出错节点的组件类型
	NodeType string
	// Path 循环依赖路径，元素格式：chainId/nodeId
	Path []string
	// Chains 循环依赖涉及的规则链
	Chains []string
	// Message 错误说明
	Message string
	// Err 原始错误
	Err error
}

func (e *RuleError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.ChainId != "" {
		sb.WriteString(" chainId=")
		sb.WriteString(e.ChainId)
	}
	if e.NodeId != "" {
		sb.WriteString(" nodeId=")
		sb.WriteString(e.NodeId)
	}
	if e.NodeType != "" {
		sb.WriteString(" nodeType=")
		sb.WriteString(e.NodeType)
	}
	if len(e.Path) > 0 {
		sb.WriteString(" path=")
		sb.WriteString(strings.Join(e.Path, " -> "))
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Is matches another RuleError of the same kind.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewRuleError 创建错误
func NewRuleError(kind ErrorKind, format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err as a RuleError of kind. An err that already is a RuleError keeps its kind.
// An err holding a RuleError deeper in its chain (e.g. combined errors) is wrapped whole,
// taking the kind of the first RuleError found.
func WrapError(kind ErrorKind, chainId, nodeId, nodeType string, err error) *RuleError {
	if ruleErr, ok := err.(*RuleError); ok {
		if ruleErr.ChainId == "" && ruleErr.NodeId == "" {
			cp := *ruleErr
			cp.ChainId, cp.NodeId, cp.NodeType = chainId, nodeId, nodeType
			return &cp
		}
		return ruleErr
	}
	var inner *RuleError
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &RuleError{Kind: kind, ChainId: chainId, NodeId: nodeId, NodeType: nodeType, Err: err}
}

// KindOf returns the kind of the first RuleError in err's chain, 0 if none.
func KindOf(err error) ErrorKind {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr.Kind
	}
	return 0
}
