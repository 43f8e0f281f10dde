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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rulego/rulechain/engine"
)

func newCmdTestEngine(t *testing.T) *engine.RuleEngine {
	ruleEngine, wp, err := newRuleEngine(DefaultConfig(), zap.NewNop(), nil)
	require.Nil(t, err)
	t.Cleanup(func() {
		ruleEngine.Stop()
		wp.Release()
	})
	return ruleEngine
}

func hasChain(ruleEngine *engine.RuleEngine, id string) bool {
	_, ok := ruleEngine.GetChain(id)
	return ok
}

func TestChainDirLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", doubleChainDSL("a", true))
	writeFile(t, dir, "b.json", subchainDSL("b", "a"))
	writeFile(t, dir, "broken.json", "{")
	writeFile(t, dir, "README.md", "# chains")

	ruleEngine := newCmdTestEngine(t)
	chains := newChainDir(dir, ruleEngine, zap.NewNop())
	assert.Equal(t, 1, chains.LoadAll())
	assert.True(t, hasChain(ruleEngine, "a"))
	assert.True(t, hasChain(ruleEngine, "b"))
	assert.Len(t, chains.files, 2)

	//目录不存在
	missing := newChainDir(filepath.Join(dir, "missing"), ruleEngine, zap.NewNop())
	assert.Equal(t, 0, missing.LoadAll())
}

func TestChainDirWatch(t *testing.T) {
	dir := t.TempDir()
	ruleEngine := newCmdTestEngine(t)
	chains := newChainDir(dir, ruleEngine, zap.NewNop())
	chains.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- chains.Watch(ctx)
	}()
	//等待监听生效
	time.Sleep(100 * time.Millisecond)

	path := writeFile(t, dir, "w.json", doubleChainDSL("w", true))
	assert.Eventually(t, func() bool {
		return hasChain(ruleEngine, "w")
	}, 3*time.Second, 20*time.Millisecond)

	//非规则链文件忽略
	writeFile(t, dir, "notes.txt", "hello")

	//修改后重新加载
	writeFile(t, dir, "w.json", subchainDSL("w", "other"))
	assert.Eventually(t, func() bool {
		def, ok := ruleEngine.GetChain("w")
		return ok && len(def.Nodes) == 3 && def.Nodes[1].TypeName == "subchain"
	}, 3*time.Second, 20*time.Millisecond)

	require.Nil(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return !hasChain(ruleEngine, "w")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestChainDirReloadWithNewId(t *testing.T) {
	dir := t.TempDir()
	ruleEngine := newCmdTestEngine(t)
	chains := newChainDir(dir, ruleEngine, zap.NewNop())

	path := writeFile(t, dir, "c.json", doubleChainDSL("first", false))
	require.True(t, chains.load(path))
	assert.True(t, hasChain(ruleEngine, "first"))

	writeFile(t, dir, "c.json", doubleChainDSL("second", false))
	require.True(t, chains.load(path))
	assert.True(t, hasChain(ruleEngine, "second"))
	assert.False(t, hasChain(ruleEngine, "first"))
	assert.Equal(t, "second", chains.files[path])
}
