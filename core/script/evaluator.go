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
	"math"
	"time"

	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

// Evaluator runs rule expressions against bound column values and resolves
// the outcome to a partition of the table.
type Evaluator struct {
	registry *Registry
}

func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Evaluate returns the raw expression value, a core.TableNode, a number or a
// string. Column values are looked up case insensitively and coerced to the
// declared column type, unbound columns evaluate as nil.
func (e *Evaluator) Evaluate(table string, expr *core.RuleExpression, values map[string]interface{}) (interface{}, error) {
	if expr.Function != "" && len(expr.Columns) == 1 {
		if fn, ok := e.registry.Algorithm(expr.Function); ok {
			return e.callAlgorithm(table, expr, fn, values)
		}
	}
	compiled, err := e.registry.Compile(expr.Text)
	if err != nil {
		return nil, err
	}

	params := make(map[string]interface{}, len(expr.Columns)*2)
	for _, c := range expr.Columns {
		v, _ := lookup(values, c)
		coerced, err := c.Coerce(v)
		if err != nil {
			return nil, core.WrapRuleEvaluationError(err, table, expr.Text, values)
		}
		p := toParameter(coerced)
		params[c.Name] = p
		params[c.Key()] = p
	}

	result, err := compiled.Evaluate(params)
	if err != nil {
		return nil, core.WrapRuleEvaluationError(err, table, expr.Text, values)
	}
	if result == nil {
		return nil, core.NewRuleEvaluationError(table, expr.Text, values, "expression returned null")
	}
	return result, nil
}

// callAlgorithm partitions the coerced column value directly, integers keep
// their full 64 bits and agree with PartitionRange on the same function.
func (e *Evaluator) callAlgorithm(table string, expr *core.RuleExpression, fn core.PartitionFunction, values map[string]interface{}) (interface{}, error) {
	c := expr.Columns[0]
	v, _ := lookup(values, c)
	coerced, err := c.Coerce(v)
	if err != nil {
		return nil, core.WrapRuleEvaluationError(err, table, expr.Text, values)
	}
	idx, err := fn.Partition(coerced)
	if err != nil {
		return nil, core.WrapRuleEvaluationError(errors.Wrapf(err, "algorithm '%s'", expr.Function), table, expr.Text, values)
	}
	return int64(idx), nil
}

// Resolve evaluates the router's rule and returns the selected partition.
func (e *Evaluator) Resolve(router *core.TableRouter, values map[string]interface{}) (core.TableNode, error) {
	if router.SuffixRule != nil {
		return e.resolveTwoLevel(router, values)
	}

	result, err := e.Evaluate(router.Name, router.Rule, values)
	if err != nil {
		return core.TableNode{}, err
	}
	switch v := result.(type) {
	case core.TableNode:
		if !router.Contains(v) {
			return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.Rule.Text, values, "node '%s' is not a partition of the table", v)
		}
		return v, nil
	case *core.TableNode:
		if v == nil || !router.Contains(*v) {
			return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.Rule.Text, values, "node '%v' is not a partition of the table", v)
		}
		return *v, nil
	}

	idx, ok := toIndex(result)
	if !ok {
		return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.Rule.Text, values, "unsupported result type %T (%v), expected a node or an integer index", result, result)
	}
	if idx < 0 || idx >= int64(len(router.Partitions)) {
		return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.Rule.Text, values, "index %d out of range [0, %d)", idx, len(router.Partitions))
	}
	return router.Partitions[idx], nil
}

// resolveTwoLevel combines the shard rule (shard name, or index into the
// router's shards) with the suffix rule (suffix text or full table name).
func (e *Evaluator) resolveTwoLevel(router *core.TableRouter, values map[string]interface{}) (core.TableNode, error) {
	shardResult, err := e.Evaluate(router.Name, router.Rule, values)
	if err != nil {
		return core.TableNode{}, err
	}
	var shard string
	if idx, ok := toIndex(shardResult); ok {
		shards := router.Shards()
		if idx < 0 || idx >= int64(len(shards)) {
			return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.Rule.Text, values, "shard index %d out of range [0, %d)", idx, len(shards))
		}
		shard = shards[idx]
	} else if s, isString := shardResult.(string); isString {
		shard = s
	} else {
		return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.Rule.Text, values, "unsupported shard rule result type %T", shardResult)
	}

	suffixResult, err := e.Evaluate(router.Name, router.SuffixRule, values)
	if err != nil {
		return core.TableNode{}, err
	}
	switch suffixResult.(type) {
	case string, float64, float32, int, int64:
	default:
		return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.SuffixRule.Text, values, "unsupported suffix rule result type %T", suffixResult)
	}
	suffix := core.ToString(suffixResult)
	node, ok := router.FindNode(shard, suffix)
	if !ok {
		return core.TableNode{}, core.NewRuleEvaluationError(router.Name, router.SuffixRule.Text, values, "shard '%s' has no partition with suffix '%s'", shard, suffix)
	}
	return node, nil
}

func lookup(values map[string]interface{}, c *core.RuleColumn) (interface{}, bool) {
	if v, ok := values[c.Name]; ok {
		return v, true
	}
	for k, v := range values {
		if core.TrimAndLower(k) == c.Key() {
			return v, true
		}
	}
	return nil, false
}

// toParameter converts integers to float64 for govaluate arithmetic.
func toParameter(v interface{}) interface{} {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		f, err := core.ToFloat64(n)
		if err != nil {
			return v
		}
		return f
	case time.Time:
		return n
	}
	return v
}

func toIndex(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int, int32, int64:
		i, err := core.ToInt64(n)
		return i, err == nil
	}
	return 0, false
}
