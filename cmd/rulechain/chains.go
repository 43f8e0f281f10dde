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
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rulego/rulechain/engine"
	"github.com/rulego/rulechain/utils/fs"
)

// chainDir 规则链目录，记录文件与规则链ID的对应关系
// A file that is written is reloaded, a file that disappears unloads its chain.
type chainDir struct {
	dir      string
	engine   *engine.RuleEngine
	logger   *zap.Logger
	debounce time.Duration

	mu    sync.Mutex
	files map[string]string
}

func newChainDir(dir string, ruleEngine *engine.RuleEngine, logger *zap.Logger) *chainDir {
	return &chainDir{
		dir:      dir,
		engine:   ruleEngine,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		files:    make(map[string]string),
	}
}

// LoadAll 加载目录下所有规则链文件，返回失败的文件数量
func (d *chainDir) LoadAll() int {
	paths, err := fs.GetChainFiles(d.dir)
	if err != nil {
		d.logger.Warn("read chains directory", zap.String("dir", d.dir), zap.Error(err))
		return 0
	}
	failed := 0
	for _, path := range paths {
		if !d.load(path) {
			failed++
		}
	}
	return failed
}

func (d *chainDir) load(path string) bool {
	chainId, err := d.engine.LoadChainFromFile(path)
	if err != nil {
		d.logger.Error("load chain", zap.String("file", path), zap.Error(err))
		return false
	}
	d.mu.Lock()
	previous, ok := d.files[path]
	d.files[path] = chainId
	d.mu.Unlock()
	d.logger.Info("chain loaded", zap.String("file", path), zap.String("chain", chainId))
	//文件中的规则链ID被修改，删除原来的规则链
	if ok && previous != chainId && !d.loadedByOtherFile(path, previous) {
		if err := d.engine.RemoveChain(context.Background(), previous); err != nil {
			d.logger.Error("remove replaced chain", zap.String("file", path), zap.String("chain", previous), zap.Error(err))
		} else {
			d.logger.Info("chain removed", zap.String("file", path), zap.String("chain", previous))
		}
	}
	return true
}

// loadedByOtherFile 另一个文件也加载了该规则链
func (d *chainDir) loadedByOtherFile(path, chainId string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for other, id := range d.files {
		if other != path && id == chainId {
			return true
		}
	}
	return false
}

func (d *chainDir) unload(ctx context.Context, path string) {
	d.mu.Lock()
	chainId, ok := d.files[path]
	delete(d.files, path)
	d.mu.Unlock()
	if !ok {
		return
	}
	if err := d.engine.RemoveChain(ctx, chainId); err != nil {
		d.logger.Error("remove chain", zap.String("file", path), zap.String("chain", chainId), zap.Error(err))
		return
	}
	d.logger.Info("chain removed", zap.String("file", path), zap.String("chain", chainId))
}

// Watch 监听目录变化直到 ctx 结束，变化在 debounce 时间内合并处理
func (d *chainDir) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(d.dir); err != nil {
		return err
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(d.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !fs.IsChainFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			timer.Reset(d.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("watch chains directory", zap.Error(err))
		case <-timer.C:
			d.sync(ctx, pending)
			pending = make(map[string]struct{})
		}
	}
}

// sync 文件存在则重新加载，否则卸载
func (d *chainDir) sync(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			d.load(path)
		} else {
			d.unload(ctx, path)
		}
	}
}
