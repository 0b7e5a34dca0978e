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
	"math"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/core/partition"
	"github.com/pkg/errors"
)

// builtinFunctions are callable from every rule expression. Numbers returned
// to the expression are float64, the only numeric kind govaluate computes on.
func builtinFunctions() map[string]govaluate.ExpressionFunction {
	return map[string]govaluate.ExpressionFunction{
		"node":     nodeFunction,
		"hashcode": hashcodeFunction,
		"mod":      modFunction,
		"str":      strFunction,
		"int":      intFunction,
		"pad":      padFunction,
	}
}

func isBuiltin(name string) bool {
	_, ok := builtinFunctions()[name]
	return ok
}

// node(shard, table[, suffix]) builds a table node.
func nodeFunction(args ...interface{}) (interface{}, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("node(shard, table[, suffix]) expects 2 or 3 arguments, got %d", len(args))
	}
	suffix := ""
	if len(args) == 3 {
		suffix = core.ToString(args[2])
	}
	return core.NewTableNode(core.ToString(args[0]), core.ToString(args[1]), suffix), nil
}

func hashcodeFunction(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("hashcode(value) expects 1 argument, got %d", len(args))
	}
	return float64(partition.Hashcode(core.ToString(args[0]))), nil
}

// mod(a, b) is the non negative remainder, a negative hash code still maps
// into [0, b).
func modFunction(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("mod(a, b) expects 2 arguments, got %d", len(args))
	}
	a, err := core.ToInt64(args[0])
	if err != nil {
		return nil, err
	}
	b, err := core.ToInt64(args[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, fmt.Errorf("mod by zero")
	}
	r := a % b
	if r < 0 {
		r += int64(math.Abs(float64(b)))
	}
	return float64(r), nil
}

func strFunction(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str(value) expects 1 argument, got %d", len(args))
	}
	return core.ToString(args[0]), nil
}

func intFunction(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("int(value) expects 1 argument, got %d", len(args))
	}
	f, err := core.ToFloat64(args[0])
	if err != nil {
		return nil, err
	}
	return math.Trunc(f), nil
}

// pad(value, width) left pads with zeros.
func padFunction(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("pad(value, width) expects 2 arguments, got %d", len(args))
	}
	width, err := core.ToInt64(args[1])
	if err != nil {
		return nil, err
	}
	s := core.ToString(args[0])
	if int64(len(s)) >= width {
		return s, nil
	}
	return strings.Repeat("0", int(width)-len(s)) + s, nil
}

// algorithmFunction exposes a partition function to expressions, one argument
// partitions a single value.
func algorithmFunction(name string, fn core.PartitionFunction) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("algorithm '%s' expects 1 argument, got %d", name, len(args))
		}
		idx, err := fn.Partition(args[0])
		if err != nil {
			return nil, errors.Wrapf(err, "algorithm '%s'", name)
		}
		return float64(idx), nil
	}
}
