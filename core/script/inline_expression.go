/*
 * Copyright 2021. Go-Sharding Author All Rights Reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 *
 *  File author: Anders Xiao
 */

package script

import (
	"strings"

	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

// InlineExpression is a comma separated list of names with embedded
// ${script} parts, e.g. "ds_${range(0,1)}.t_order_${[0,1]}". Flat expands
// every item into the cartesian product of its script results.
type InlineExpression interface {
	Flat() ([]string, error)
	RawExpression() string
}

type inlineSegment struct {
	literal string
	script  CompiledScript
}

type inlineExpr struct {
	expression string
	groups     [][]inlineSegment
}

func NewInlineExpression(expression string) (InlineExpression, error) {
	groups, err := splitSegments(expression)
	if err != nil {
		return nil, err
	}
	return &inlineExpr{expression: expression, groups: groups}, nil
}

func (i *inlineExpr) RawExpression() string {
	return i.expression
}

func (i *inlineExpr) Flat() ([]string, error) {
	seen := make(map[string]struct{})
	list := make([]string, 0)
	for _, g := range i.groups {
		current := []string{""}
		for _, s := range g {
			if s.script == nil {
				current = outJoin(current, []string{s.literal})
				continue
			}
			values, err := s.script.Run()
			if err != nil {
				return nil, i.wrapExecuteError(err)
			}
			current = outJoin(current, values)
		}
		for _, c := range current {
			if _, ok := seen[c]; !ok && c != "" {
				seen[c] = core.Nothing
				list = append(list, c)
			}
		}
	}
	return list, nil
}

func (i *inlineExpr) wrapExecuteError(e error) error {
	sb := core.NewStringBuilder()
	sb.WriteLine("inline expression fault.")
	sb.WriteLine("expression: ", i.expression)
	sb.Write("error: ", e.Error())
	return errors.New(sb.String())
}

// outJoin concatenates every prefix with every suffix keeping prefix order.
func outJoin(prefix []string, suffix []string) []string {
	r := make([]string, 0, len(prefix)*len(suffix))
	for _, p := range prefix {
		for _, v := range suffix {
			r = append(r, p+v)
		}
	}
	return r
}

func splitSegments(exp string) ([][]inlineSegment, error) {
	syntaxError := func(message string, index int) error {
		sb := core.NewStringBuilder()
		sb.WriteLine("inline expression syntax error")
		sb.WriteLine(message)
		sb.WriteFormat("expression: %s", exp)
		if index >= 0 {
			sb.WriteLine()
			sb.WriteFormat("char index: %d", index)
		}
		return errors.New(sb.String())
	}

	var groups [][]inlineSegment
	var segments []inlineSegment
	literal := &strings.Builder{}
	raw := &strings.Builder{}
	inScript := false
	depth := 0

	flushLiteral := func() {
		if literal.Len() > 0 {
			segments = append(segments, inlineSegment{literal: literal.String()})
			literal.Reset()
		}
	}
	flushGroup := func() {
		flushLiteral()
		if len(segments) > 0 {
			segments[0].literal = strings.TrimLeft(segments[0].literal, " \t")
			last := len(segments) - 1
			segments[last].literal = strings.TrimRight(segments[last].literal, " \t")
			groups = append(groups, segments)
		}
		segments = nil
	}

	for i := 0; i < len(exp); i++ {
		c := exp[i]
		if inScript {
			switch c {
			case '{':
				depth++
			case '}':
				if depth == 0 {
					inScript = false
					text := strings.TrimSpace(raw.String())
					raw.Reset()
					if text == "" {
						return nil, syntaxError("empty script", i)
					}
					s, err := CompileScript(text)
					if err != nil {
						return nil, syntaxError(err.Error(), i)
					}
					segments = append(segments, inlineSegment{script: s})
					continue
				}
				depth--
			case '$':
				return nil, syntaxError("should not appear symbol '$'", i)
			}
			raw.WriteByte(c)
			continue
		}
		switch c {
		case '$':
			if i+1 >= len(exp) || exp[i+1] != '{' {
				return nil, syntaxError("'{' symbol is missing after the symbol '$'", i)
			}
			flushLiteral()
			inScript = true
			i++
		case ',':
			flushGroup()
		default:
			literal.WriteByte(c)
		}
	}
	if inScript {
		return nil, syntaxError("symbol '}' used to end the script are missing", -1)
	}
	flushGroup()
	return groups, nil
}
