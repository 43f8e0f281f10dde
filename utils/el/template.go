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

// Package el evaluates `${expression}` templates and conditions with expr-lang/expr.
// 模板变量支持 ${xx} 方式，使用expr表达式计算
package el

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/rulechain/utils/str"
)

// ErrUnclosedVar is returned for a `${` without its closing brace.
var ErrUnclosedVar = errors.New("unclosed ${ in template")

// Template 模板接口
type Template interface {
	// Execute 执行模板，返回值保留表达式的类型
	Execute(env map[string]any) (any, error)
	// ExecuteAsString 执行模板并转成字符串
	ExecuteAsString(env map[string]any) (string, error)
	// IsNotVar 是否是普通字符串，不包含变量
	IsNotVar() bool
}

// NewTemplate 创建模板
// A string made of one placeholder keeps the expression's type, a string mixing
// text and placeholders renders to a string, anything else is returned as is.
func NewTemplate(tmpl any) (Template, error) {
	v, ok := tmpl.(string)
	if !ok {
		return &AnyTemplate{Tmpl: tmpl}, nil
	}
	//未闭合的占位符也要解析，返回 ErrUnclosedVar
	if !strings.Contains(v, str.VarPrefix) {
		return &NotTemplate{Tmpl: v}, nil
	}
	segments, err := parseSegments(v)
	if err != nil {
		return nil, err
	}
	if len(segments) == 1 && segments[0].program != nil && str.IsWholeVar(v) {
		return &ExprTemplate{Tmpl: v, Program: segments[0].program}, nil
	}
	return &MixedTemplate{Tmpl: v, segments: segments}, nil
}

// ExprTemplate 整个字符串是一个表达式
type ExprTemplate struct {
	Tmpl    string
	Program *vm.Program
}

func (t *ExprTemplate) Execute(env map[string]any) (any, error) {
	return expr.Run(t.Program, env)
}

func (t *ExprTemplate) ExecuteAsString(env map[string]any) (string, error) {
	v, err := t.Execute(env)
	if err != nil {
		return "", err
	}
	return str.ToStringMaybeErr(v)
}

func (t *ExprTemplate) IsNotVar() bool {
	return false
}

// NotTemplate 普通字符串
type NotTemplate struct {
	Tmpl string
}

func (t *NotTemplate) Execute(env map[string]any) (any, error) {
	return t.Tmpl, nil
}

func (t *NotTemplate) ExecuteAsString(env map[string]any) (string, error) {
	return t.Tmpl, nil
}

func (t *NotTemplate) IsNotVar() bool {
	return true
}

// AnyTemplate 非字符串值，原样返回
type AnyTemplate struct {
	Tmpl any
}

func (t *AnyTemplate) Execute(env map[string]any) (any, error) {
	return t.Tmpl, nil
}

func (t *AnyTemplate) ExecuteAsString(env map[string]any) (string, error) {
	return str.ToStringMaybeErr(t.Tmpl)
}

func (t *AnyTemplate) IsNotVar() bool {
	return true
}

// MixedTemplate 字符串和变量混合
type MixedTemplate struct {
	Tmpl     string
	segments []segment
}

type segment struct {
	text    string
	program *vm.Program
}

func (t *MixedTemplate) Execute(env map[string]any) (any, error) {
	return t.ExecuteAsString(env)
}

func (t *MixedTemplate) ExecuteAsString(env map[string]any) (string, error) {
	var sb strings.Builder
	for _, seg := range t.segments {
		if seg.program == nil {
			sb.WriteString(seg.text)
			continue
		}
		val, err := expr.Run(seg.program, env)
		if err != nil {
			return "", err
		}
		sb.WriteString(str.ToString(val))
	}
	return sb.String(), nil
}

func (t *MixedTemplate) IsNotVar() bool {
	return false
}

// parseSegments splits tmpl into literal text and compiled placeholders.
// Braces inside a placeholder nest, so `${{"a": 1}}` is one expression.
func parseSegments(tmpl string) ([]segment, error) {
	var segments []segment
	rest := tmpl
	for {
		start := strings.Index(rest, str.VarPrefix)
		if start < 0 {
			if rest != "" {
				segments = append(segments, segment{text: rest})
			}
			return segments, nil
		}
		if start > 0 {
			segments = append(segments, segment{text: rest[:start]})
		}
		end := closingBrace(rest, start+len(str.VarPrefix))
		if end < 0 {
			return nil, ErrUnclosedVar
		}
		code := strings.TrimSpace(rest[start+len(str.VarPrefix) : end])
		program, err := expr.Compile(code, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", code, err)
		}
		segments = append(segments, segment{text: code, program: program})
		rest = rest[end+1:]
	}
}

// closingBrace returns the index of the brace closing the placeholder whose body starts at from.
func closingBrace(s string, from int) int {
	depth := 0
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// Condition 布尔表达式
type Condition struct {
	Expression string
	program    *vm.Program
}

// NewCondition compiles a boolean expression. Unknown variables evaluate to nil.
func NewCondition(expression string) (*Condition, error) {
	code := strings.TrimSpace(expression)
	if str.IsWholeVar(code) {
		code = strings.TrimSpace(code[len(str.VarPrefix) : len(code)-len(str.VarSuffix)])
	}
	if code == "" {
		return nil, errors.New("condition can not empty")
	}
	program, err := expr.Compile(code, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return &Condition{Expression: expression, program: program}, nil
}

// Eval 执行表达式
func (c *Condition) Eval(env map[string]any) (bool, error) {
	out, err := expr.Run(c.program, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T, want bool", c.Expression, out)
	}
	return b, nil
}
