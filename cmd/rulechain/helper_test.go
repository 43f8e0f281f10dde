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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// doubleChainDSL start -> value*2 -> log
func doubleChainDSL(id string, root bool) string {
	return fmt.Sprintf(`{
  "id": %q,
  "root": %t,
  "nodes": [
    {"id": "s", "type_name": "start"},
    {"id": "t", "type_name": "transform", "config": {"fields": {"value": "${msg.data.value * 2}"}}},
    {"id": "l", "type_name": "log"}
  ],
  "connections": [
    {"from_id": "s", "to_id": "t", "type_name": "success"},
    {"from_id": "t", "to_id": "l", "type_name": "success"}
  ]
}`, id, root)
}

// subchainDSL start -> subchain(target) -> log
func subchainDSL(id, target string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "nodes": [
    {"id": "s", "type_name": "start"},
    {"id": "sub", "type_name": "subchain", "config": {"chain_id": %q}},
    {"id": "l", "type_name": "log"}
  ],
  "connections": [
    {"from_id": "s", "to_id": "sub", "type_name": "success"},
    {"from_id": "sub", "to_id": "l", "type_name": "success"}
  ]
}`, id, target)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.Nil(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
