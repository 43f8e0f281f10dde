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

package str

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "10", ToString(10.0))
	assert.Equal(t, "2.5", ToString(2.5))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "7", ToString(int64(7)))
	assert.Equal(t, "boom", ToString(errors.New("boom")))
	assert.Equal(t, `{"a":"<b>"}`, ToString(map[string]interface{}{"a": "<b>"}))
	assert.Equal(t, `[1,2]`, ToString([]interface{}{1, 2}))
}

func TestCheckHasVar(t *testing.T) {
	assert.True(t, CheckHasVar("hello ${name}"))
	assert.False(t, CheckHasVar("hello name"))
	assert.True(t, IsWholeVar(" ${msg.data.value * 2} "))
	assert.False(t, IsWholeVar("a${b}"))
	assert.False(t, IsWholeVar("${a}-${b}"))
}

func TestConvertDollarPlaceholder(t *testing.T) {
	assert.Equal(t, "select * from t where a=$1 and b=$2", ConvertDollarPlaceholder("select * from t where a=? and b=?", "postgres"))
	assert.Equal(t, "select ?", ConvertDollarPlaceholder("select ?", "mysql"))
}
