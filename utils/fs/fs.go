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

// Package fs locates rule chain definition files.
package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ChainFileExts are the extensions recognised as rule chain definitions.
var ChainFileExts = []string{".json", ".yaml", ".yml"}

func IsExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsChainFile reports whether path has a rule chain definition extension.
func IsChainFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, item := range ChainFileExts {
		if ext == item {
			return true
		}
	}
	return false
}

// IsYaml reports whether path is a YAML file.
func IsYaml(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// GetChainFiles returns the rule chain definition files directly under dir, sorted by name.
func GetChainFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, d := range entries {
		if !d.IsDir() && IsChainFile(d.Name()) {
			paths = append(paths, filepath.Join(dir, d.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
