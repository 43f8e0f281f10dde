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

package test

import (
	"reflect"
	"testing"
	"time"

	"github.com/rulego/rulechain/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Result 节点一次输出
type Result struct {
	Msg          types.RuleMsg
	RelationType string
	Err          error
}

// CreateAndInitNode 创建并初始化一个节点实例
func CreateAndInitNode(targetNodeType string, initConfig types.Configuration, registry *types.SafeComponentSlice) (types.Node, error) {
	return CreateAndInitNodeWithConfig(types.NewConfig(), targetNodeType, initConfig, registry)
}

// CreateAndInitNodeWithConfig 使用指定引擎配置创建并初始化一个节点实例
func CreateAndInitNodeWithConfig(config types.Config, targetNodeType string, initConfig types.Configuration, registry *types.SafeComponentSlice) (types.Node, error) {
	var nodeFactory types.Node
	for _, component := range registry.Components() {
		if component.Type() == targetNodeType {
			nodeFactory = component
		}
	}
	if nodeFactory == nil {
		return nil, types.NewRuleError(types.UnknownNodeType, "%s", targetNodeType)
	}
	node := nodeFactory.New()
	err := node.Init(config, initConfig)
	return node, err
}

// NodeNew 测试组件注册以及创建节点实例
func NodeNew(t *testing.T, targetNodeType string, targetNode types.Node, registry *types.SafeComponentSlice) {
	var nodeFactory types.Node
	for _, component := range registry.Components() {
		if component.Type() == targetNode.Type() {
			nodeFactory = component
		}
	}
	require.NotNil(t, nodeFactory)
	assert.Equal(t, targetNodeType, nodeFactory.Type())

	node := nodeFactory.New()
	assert.Equal(t, reflect.TypeOf(targetNode), reflect.TypeOf(node))
	assert.Equal(t, targetNodeType, node.Type())
	assert.Equal(t, targetNodeType, types.DescribeNode(node).TypeName)
}

// OnMsg 调用节点处理消息，等待 count 次输出，超时返回已收到的输出
func OnMsg(t *testing.T, node types.Node, config types.Config, msg types.RuleMsg, count int, timeout time.Duration) []Result {
	results := make(chan Result, count+16)
	ctx := NewRuleContext(config, func(msg types.RuleMsg, relationType string, err error) {
		results <- Result{Msg: msg, RelationType: relationType, Err: err}
	})
	return OnMsgWithContext(t, node, ctx, results, msg, count, timeout)
}

// OnMsgWithContext 使用指定上下文调用节点，results 为上下文回调写入的通道
func OnMsgWithContext(t *testing.T, node types.Node, ctx types.RuleContext, results chan Result, msg types.RuleMsg, count int, timeout time.Duration) []Result {
	t.Helper()
	node.OnMsg(ctx, msg)
	var out []Result
	deadline := time.After(timeout)
	for len(out) < count {
		select {
		case r := <-results:
			out = append(out, r)
		case <-deadline:
			t.Errorf("node %s: received %d of %d results before timeout", node.Type(), len(out), count)
			return out
		}
	}
	return out
}
