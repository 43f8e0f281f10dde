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

package common

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
	test.NodeNew(t, types.TypeFork, &ForkNode{}, Registry)
	test.NodeNew(t, types.TypeJoin, &JoinNode{}, Registry)
	assert.Equal(t, types.Head, types.DescribeNode(&ForkNode{}).Kind)
	assert.Equal(t, types.Tail, types.DescribeNode(&JoinNode{}).Kind)
}

func TestForkNode(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeFork, nil, Registry)
	require.Nil(t, err)
	results := test.OnMsg(t, node, types.NewConfig(), types.NewMsg("TEST", nil, "x"), 1, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, types.Success, results[0].RelationType)
}

func TestJoinNodeMerge(t *testing.T) {
	m1 := types.NewMsg("TEST", types.BuildMetadata(map[string]string{"a": "1", "k": "first"}), map[string]interface{}{"v": 1.0})
	m2 := types.NewMsg("TEST", types.BuildMetadata(map[string]string{"b": "2", "k": "second"}), map[string]interface{}{"v": 2.0})

	node, err := test.CreateAndInitNode(types.TypeJoin, nil, Registry)
	require.Nil(t, err)
	merger := node.(types.Merger)
	out, err := merger.Merge([]types.RuleMsg{m1, m2})
	require.Nil(t, err)
	assert.Equal(t, m2.Data, out.Data)

	_, err = merger.Merge(nil)
	assert.True(t, errors.Is(err, types.ErrHandler))

	node, err = test.CreateAndInitNode(types.TypeJoin, types.Configuration{"merge": "branches"}, Registry)
	require.Nil(t, err)
	out, err = node.(types.Merger).Merge([]types.RuleMsg{m1, m2})
	require.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"branches": []interface{}{
		map[string]interface{}{"v": 1.0},
		map[string]interface{}{"v": 2.0},
	}}, out.Data)
	assert.Equal(t, "1", out.Metadata.GetValue("a"))
	assert.Equal(t, "2", out.Metadata.GetValue("b"))
	assert.Equal(t, "second", out.Metadata.GetValue("k"))

	_, err = test.CreateAndInitNode(types.TypeJoin, types.Configuration{"merge": "first"}, Registry)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}

func TestJoinNodeOnMsg(t *testing.T) {
	node, err := test.CreateAndInitNode(types.TypeJoin, nil, Registry)
	require.Nil(t, err)
	results := test.OnMsg(t, node, types.NewConfig(), types.NewMsg("TEST", nil, "x"), 1, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, types.Success, results[0].RelationType)
}
