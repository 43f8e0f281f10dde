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

package js

import (
	"strings"
	"testing"
	"time"

	"github.com/rulego/rulechain/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	config := types.NewConfig(types.WithProperties(map[string]string{"factor": "3"}))
	config.RegisterUdf("double", func(v float64) float64 { return v * 2 })
	config.RegisterUdf("jsUpper", "function jsUpper(s){ return s.toUpperCase(); }")

	engine, err := NewGojaJsEngine(config, `
function Transform(msg, metadata, msgType) {
	metadata.seen = 'true';
	return {value: double(msg.value), name: jsUpper(msg.name), factor: global.factor, type: msgType};
}`, nil)
	require.Nil(t, err)

	metadata := map[string]interface{}{"a": "1"}
	out, err := engine.Execute("Transform", map[string]interface{}{"value": 5.0, "name": "lala"}, metadata, "TEST")
	require.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"value": 10.0, "name": "LALA", "factor": "3", "type": "TEST"}, out)
	assert.Equal(t, "true", metadata["seen"])

	_, err = engine.Execute("Missing")
	require.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "is not a function"))
}

func TestExecuteError(t *testing.T) {
	engine, err := NewGojaJsEngine(types.NewConfig(), `function Fail(){ throw new Error("bad input"); }`, nil)
	require.Nil(t, err)
	_, err = engine.Execute("Fail")
	require.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad input"))

	_, err = NewGojaJsEngine(types.NewConfig(), `function (`, nil)
	assert.NotNil(t, err)
}

func TestExecuteTimeout(t *testing.T) {
	config := types.NewConfig(types.WithScriptMaxExecutionTime(50 * time.Millisecond))
	engine, err := NewGojaJsEngine(config, `function Loop(){ while(true){} }
function Ok(){ return 1; }`, nil)
	require.Nil(t, err)
	_, err = engine.Execute("Loop")
	assert.Equal(t, ErrTimeout, err)

	// the runtime is usable again after an interrupt
	out, err := engine.Execute("Ok")
	require.Nil(t, err)
	assert.Equal(t, 1.0, out)
}

func TestFromVars(t *testing.T) {
	engine, err := NewGojaJsEngine(types.NewConfig(), `function Get(){ return prefix + "-x"; }`, map[string]interface{}{"prefix": "p"})
	require.Nil(t, err)
	out, err := engine.Execute("Get")
	require.Nil(t, err)
	assert.Equal(t, "p-x", out)
}
