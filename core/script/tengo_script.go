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
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

const resultVar = "_r"

// CompiledScript is a compiled inline script producing a list of strings.
type CompiledScript interface {
	Run() ([]string, error)
}

type tengoScript struct {
	raw      string
	compiled *tengo.Compiled
}

// CompileScript compiles one inline script, the value of its last
// expression is the result.
func CompileScript(script string) (CompiledScript, error) {
	s := tengo.NewScript([]byte(fmt.Sprintf("%s:=%s", resultVar, script)))
	if err := s.Add("range", &tengo.UserFunction{Name: "range", Value: rangeFunction}); err != nil {
		return nil, err
	}
	c, err := s.Compile()
	if err != nil {
		return nil, errors.Wrapf(err, "compile inline script '%s' fault", script)
	}
	return &tengoScript{raw: script, compiled: c}, nil
}

func (s *tengoScript) Run() ([]string, error) {
	c := s.compiled.Clone()
	if err := c.Run(); err != nil {
		return nil, errors.Wrapf(err, "run inline script '%s' fault", s.raw)
	}
	v := c.Get(resultVar)
	switch value := v.Value().(type) {
	case []interface{}:
		list := make([]string, len(value))
		for i, item := range value {
			list[i] = fmt.Sprint(item)
		}
		return list, nil
	case int64, float64, string, rune:
		return []string{fmt.Sprint(value)}, nil
	}
	sb := core.NewStringBuilder()
	sb.WriteLine("script return invalid type, expected array of numbers or strings, or a number or a string")
	sb.WriteLine("script: ", s.raw)
	sb.Write("return type: ", v.ValueType())
	return nil, errors.New(sb.String())
}

// rangeFunction is range(begin, end), both inclusive.
func rangeFunction(args ...tengo.Object) (tengo.Object, error) {
	if len(args) != 2 {
		return nil, tengo.ErrWrongNumArguments
	}
	begin, ok := tengo.ToInt64(args[0])
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "begin", Expected: "int", Found: args[0].TypeName()}
	}
	end, ok := tengo.ToInt64(args[1])
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "end", Expected: "int", Found: args[1].TypeName()}
	}
	if begin > end {
		return nil, errors.New("the begin parameter must be less than or equal to the end argument for using 'range' function in inline expression")
	}
	array := make([]tengo.Object, 0, end-begin+1)
	for i := begin; i <= end; i++ {
		array = append(array, &tengo.Int{Value: i})
	}
	return &tengo.ImmutableArray{Value: array}, nil
}
