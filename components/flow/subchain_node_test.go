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

package flow

import (
	"errors"
	"testing"
	"time"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeNew(t *testing.T) {
	test.NodeNew(t, types.TypeSubchain, &SubchainNode{}, Registry)
}

func TestSubchainNode(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeSubchain, types.Configuration{"chain_id": "enrich", "output_type": "ENRICHED"}, Registry)
	require.Nil(t, err)
	assert.Equal(t, "enrich", node.(types.ChainReferrer).ReferencedChain())

	results := make(chan test.Result, 1)
	ctx := test.NewRuleContext(types.NewConfig(), func(msg types.RuleMsg, relationType string, err error) {
		results <- test.Result{Msg: msg, RelationType: relationType, Err: err}
	}).SetFlow(func(chainId string, msg types.RuleMsg) (types.RuleMsg, error) {
		if chainId != "enrich" {
			return msg, types.NewRuleError(types.ChainNotFound, "%s", chainId)
		}
		out := msg.Copy()
		out.Data = map[string]interface{}{"enriched": true}
		return out, nil
	})
	out := test.OnMsgWithContext(t, node, ctx, results, types.NewMsg("TEST", nil, "x"), 1, time.Second)
	require.Len(t, out, 1)
	assert.Equal(t, types.Success, out[0].RelationType)
	assert.Equal(t, "ENRICHED", out[0].Msg.Type)
	assert.Equal(t, map[string]interface{}{"enriched": true}, out[0].Msg.Data)
}

func TestSubchainNodeFailure(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeSubchain, types.Configuration{"chain_id": "missing"}, Registry)
	require.Nil(t, err)
	results := make(chan test.Result, 1)
	ctx := test.NewRuleContext(types.NewConfig(), func(msg types.RuleMsg, relationType string, err error) {
		results <- test.Result{Msg: msg, RelationType: relationType, Err: err}
	}).SetFlow(func(chainId string, msg types.RuleMsg) (types.RuleMsg, error) {
		return msg, types.NewRuleError(types.ChainNotFound, "%s", chainId)
	})
	msg := types.NewMsg("TEST", nil, "x")
	out := test.OnMsgWithContext(t, node, ctx, results, msg, 1, time.Second)
	require.Len(t, out, 1)
	assert.Equal(t, types.Failure, out[0].RelationType)
	assert.True(t, errors.Is(out[0].Err, types.ErrChainNotFound))
	assert.Equal(t, msg.Data, out[0].Msg.Data)

	_, err = test.CreateAndInitNode(types.TypeSubchain, types.Configuration{}, Registry)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}
