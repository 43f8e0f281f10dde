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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCmd(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := executeCmd("version")
	require.Nil(t, err)
	assert.Equal(t, "rulechain v"+version+"\n", stdout)
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", doubleChainDSL("a", true))
	b := writeFile(t, dir, "b.json", subchainDSL("b", "a"))

	stdout, _, err := executeCmd("validate", a, b)
	require.Nil(t, err)
	assert.Contains(t, stdout, "ok   "+a+" (a)")
	assert.Contains(t, stdout, "ok   "+b+" (b)")

	stdout, _, err = executeCmd("validate", dir)
	require.Nil(t, err)
	assert.Contains(t, stdout, "(b)")

	_, _, err = executeCmd("validate")
	assert.NotNil(t, err)
}

func TestValidateCmdInvalid(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.json", `{"id": "broken", "nodes": [{"id": "s", "type_name": "start"}]}`)
	_, stderr, err := executeCmd("validate", broken)
	require.NotNil(t, err)
	assert.Contains(t, stderr, "FAIL "+broken)

	//跨文件的子规则链循环引用
	x := writeFile(t, dir, "x.json", subchainDSL("x", "y"))
	y := writeFile(t, dir, "y.json", subchainDSL("y", "x"))
	stdout, stderr, err := executeCmd("validate", x, y)
	require.NotNil(t, err)
	assert.Contains(t, stdout, "ok   "+x+" (x)")
	assert.Contains(t, stderr, "FAIL "+y)

	_, stderr, err = executeCmd("validate", dir+"/missing.json")
	require.NotNil(t, err)
	assert.Contains(t, stderr, "FAIL")
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "double.json", doubleChainDSL("double", true))

	stdout, _, err := executeCmd("run", "-f", path, "--data", `{"value": 21}`, "--metadata", "deviceId=d1", "--log-level", "error")
	require.Nil(t, err)
	assert.Contains(t, stdout, `"value": 42`)
	assert.Contains(t, stdout, `"deviceId": "d1"`)
	assert.Contains(t, stdout, `"relationType": "success"`)

	_, _, err = executeCmd("run", "-f", path, "--chain", "missing", "--log-level", "error")
	assert.NotNil(t, err)

	_, _, err = executeCmd("run", "-f", path, "--data", `{"value":`, "--log-level", "error")
	assert.NotNil(t, err)

	//缺少 --file
	_, _, err = executeCmd("run")
	assert.NotNil(t, err)
}
