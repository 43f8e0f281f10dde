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

package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rulego/rulechain/api/types"
)

// testNode 测试用节点，行为由 mode 决定
type testNode struct {
	typeName  string
	mode      string
	tag       string
	destroyed *atomic.Int32
}

func (x *testNode) Type() string {
	return x.typeName
}

func (x *testNode) New() types.Node {
	return &testNode{typeName: x.typeName, mode: x.mode, tag: x.tag, destroyed: x.destroyed}
}

func (x *testNode) Init(_ types.Config, configuration types.Configuration) error {
	if configuration["invalid"] == true {
		return errors.New("invalid test node config")
	}
	return nil
}

func (x *testNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	switch x.mode {
	case "fail":
		ctx.TellFailure(msg, errors.New("boom"))
	case "panic":
		panic("test node panic")
	case "tellThenPanic":
		ctx.TellSuccess(msg)
		panic("test node panic")
	case "slow":
		time.Sleep(300 * time.Millisecond)
		ctx.TellSuccess(msg)
	case "async":
		go func() {
			time.Sleep(10 * time.Millisecond)
			ctx.TellSuccess(msg)
		}()
	default:
		if x.tag != "" {
			msg.Metadata.PutValue("tag", x.tag)
		}
		ctx.TellSuccess(msg)
	}
}

func (x *testNode) Destroy() {
	if x.destroyed != nil {
		x.destroyed.Add(1)
	}
}

// registerTestNode 注册测试节点类型
func registerTestNode(t *testing.T, e *RuleEngine, typeName, mode string, destroyed *atomic.Int32) {
	require.Nil(t, e.Register(&testNode{typeName: typeName, mode: mode, destroyed: destroyed}))
}

// tagFactory 创建给消息打上 tag 元数据的节点工厂
func tagFactory(typeName, tag string) types.NodeFactory {
	return func(_ types.Config, _ types.Configuration) (types.Node, error) {
		return &testNode{typeName: typeName, tag: tag}, nil
	}
}

func newTestEngine(t *testing.T, opts ...types.Option) *RuleEngine {
	opts = append([]types.Option{types.WithoutDefaultInterceptors()}, opts...)
	e, err := NewRuleEngine(opts...)
	require.Nil(t, err)
	t.Cleanup(e.Stop)
	return e
}

func node(id, typeName string, configuration types.Configuration) *types.RuleNode {
	return &types.RuleNode{Id: id, TypeName: typeName, Configuration: configuration}
}

func conn(from, to, label string) types.NodeConnection {
	return types.NodeConnection{FromId: from, ToId: to, TypeName: label}
}

func chain(id string, root bool, nodes []*types.RuleNode, connections ...types.NodeConnection) *types.RuleChain {
	return &types.RuleChain{Id: id, Name: id, Root: root, Nodes: nodes, Connections: connections}
}

// doubleChain start -> t(value*2) -> log
func doubleChain(id string, root bool) *types.RuleChain {
	return chain(id, root,
		[]*types.RuleNode{
			node("s", types.TypeStart, nil),
			node("t", types.TypeTransform, types.Configuration{
				"fields": map[string]interface{}{"value": "${msg.data.value * 2}"},
			}),
			node("l", types.TypeLog, nil),
		},
		conn("s", "t", types.Success),
		conn("t", "l", types.Success),
	)
}

// subchainChain start -> sub(target) -> log
func subchainChain(id string, root bool, target string) *types.RuleChain {
	return chain(id, root,
		[]*types.RuleNode{
			node("s", types.TypeStart, nil),
			node("sub", types.TypeSubchain, types.Configuration{"chain_id": target}),
			node("l", types.TypeLog, nil),
		},
		conn("s", "sub", types.Success),
		conn("sub", "l", types.Success),
	)
}

func valueMsg(v float64) types.RuleMsg {
	return types.NewMsg("TEST", types.NewMetadata(), map[string]interface{}{"value": v})
}

func ruleError(t *testing.T, err error) *types.RuleError {
	t.Helper()
	var ruleErr *types.RuleError
	require.True(t, errors.As(err, &ruleErr), "expected RuleError, got %v", err)
	return ruleErr
}
