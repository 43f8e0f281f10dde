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

package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	b, err := Marshal(map[string]string{"url": "http://a?b=1&c=<d>"})
	require.Nil(t, err)
	assert.Equal(t, `{"url":"http://a?b=1&c=<d>"}`, string(b))
}

func TestDecode(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"a": 1.0}, Decode([]byte(`{"a":1}`)))
	assert.Equal(t, "not json", Decode([]byte("not json")))
	assert.Nil(t, Decode([]byte("  ")))
	assert.Equal(t, 3.0, Decode([]byte("3")))
}

func TestFormat(t *testing.T) {
	out, err := Format([]byte(`{"a":[1,2]}`))
	assert.Nil(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ]\n}", string(out))
	_, err = Format([]byte(`{`))
	assert.NotNil(t, err)
}
