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

// Package js runs JavaScript for the script nodes on pooled goja runtimes.
//
// A script is compiled once per node. Every runtime of the pool runs the
// compiled program once, so the functions it declares can then be called by
// name. Execution is interrupted after Config.ScriptMaxExecutionTime.
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rulego/rulechain/api/types"
)

const (
	//GlobalKey global properties key,call them through the global.xx method
	GlobalKey = "global"
)

// ErrTimeout is returned when a script runs longer than the configured limit.
var ErrTimeout = errors.New("js execution timeout")

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool   sync.Pool
	config   types.Config
	jsScript *goja.Program
	udf      map[string]*goja.Program
}

// NewGojaJsEngine compiles jsScript and prepares the runtime pool.
// String values of config.Udf are run as JavaScript, other values are exposed as globals.
func NewGojaJsEngine(config types.Config, jsScript string, fromVars map[string]interface{}) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	jsEngine := &GojaJsEngine{
		config:   config,
		jsScript: program,
		udf:      make(map[string]*goja.Program),
	}
	for name, v := range config.Udf {
		if src, ok := v.(string); ok {
			p, err := goja.Compile(name, src, true)
			if err != nil {
				return nil, fmt.Errorf("compile udf %s: %w", name, err)
			}
			jsEngine.udf[name] = p
		}
	}
	// fail on load rather than on the first message
	vm, err := jsEngine.newVm(fromVars)
	if err != nil {
		return nil, err
	}
	jsEngine.vmPool.Put(vm)
	jsEngine.vmPool.New = func() interface{} {
		vm, err := jsEngine.newVm(fromVars)
		if err != nil {
			config.Logger.Errorf("js vm error: %s", err.Error())
		}
		return vm
	}
	return jsEngine, nil
}

func (g *GojaJsEngine) newVm(fromVars map[string]interface{}) (*goja.Runtime, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	for k, v := range fromVars {
		if err := vm.Set(k, v); err != nil {
			return nil, err
		}
	}
	if len(g.config.Properties) != 0 {
		if err := vm.Set(GlobalKey, g.config.Properties.Values()); err != nil {
			return nil, err
		}
	}
	for k, v := range g.config.Udf {
		if p, ok := g.udf[k]; ok {
			if _, err := vm.RunProgram(p); err != nil {
				return nil, fmt.Errorf("run udf %s: %w", k, err)
			}
		} else if err := vm.Set(k, v); err != nil {
			return nil, err
		}
	}
	timer := g.startTimeout(vm)
	_, err := vm.RunProgram(g.jsScript)
	g.stopTimeout(vm, timer)
	if err != nil {
		return nil, err
	}
	return vm, nil
}

// Execute calls the JavaScript function functionName and returns its exported result.
// Integer results are returned as float64, like decoded JSON numbers.
func (g *GojaJsEngine) Execute(functionName string, argumentList ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%v", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	if vm == nil {
		return nil, errors.New("js vm not available")
	}
	defer g.vmPool.Put(vm)

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}
	params := make([]goja.Value, len(argumentList))
	for i, v := range argumentList {
		params[i] = vm.ToValue(v)
	}

	timer := g.startTimeout(vm)
	res, err := f(goja.Undefined(), params...)
	g.stopTimeout(vm, timer)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return Normalize(res.Export()), nil
}

func (g *GojaJsEngine) Stop() {
}

func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.ScriptMaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

// stopTimeout stops the timer and clears an interrupt so the runtime can be reused.
func (g *GojaJsEngine) stopTimeout(vm *goja.Runtime, timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
	vm.ClearInterrupt()
}

// Normalize converts exported JavaScript values to the shapes encoding/json decodes into.
func Normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case map[string]interface{}:
		for k, item := range val {
			val[k] = Normalize(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = Normalize(item)
		}
		return val
	default:
		return val
	}
}
