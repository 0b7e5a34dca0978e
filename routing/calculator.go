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

package routing

import (
	"fmt"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/logging"
	"github.com/scylladb/go-set/strset"
)

const DefaultMaxCombinations = 10000

var log = logging.GetLogger("routing")

// RuleEvaluator resolves one row of bound rule column values to a partition.
type RuleEvaluator interface {
	Resolve(router *core.TableRouter, values map[string]interface{}) (core.TableNode, error)
}

type CalculatorOption func(c *Calculator)

// WithMaxCombinations caps the cartesian product size, larger products fall
// back to a full scatter.
func WithMaxCombinations(max int) CalculatorOption {
	return func(c *Calculator) {
		if max > 0 {
			c.maxCombinations = max
		}
	}
}

// Calculator evaluates a table's rule over the cartesian product of the
// candidate values bound to its rule columns.
type Calculator struct {
	evaluator       RuleEvaluator
	maxCombinations int
}

func NewCalculator(evaluator RuleEvaluator, opts ...CalculatorOption) *Calculator {
	c := &Calculator{evaluator: evaluator, maxCombinations: DefaultMaxCombinations}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate selects the partitions addressed by candidates (rule column name
// to candidate values). A required column without candidates routes to every
// partition, an optional one is evaluated as nil.
func (c *Calculator) Calculate(router *core.TableRouter, candidates map[string][]interface{}) (*core.RoutingResult, error) {
	columns := router.RuleColumns()
	names := make([]string, 0, len(columns))
	lists := make([][]interface{}, 0, len(columns))
	sizes := make([]int, 0, len(columns))

	for _, col := range columns {
		values := distinctValues(lookupCandidates(candidates, col))
		if len(values) == 0 {
			if col.Required {
				log.Debugf("table '%s': required rule column '%s' is not bound, route to all nodes", router.Name, col.Name)
				return core.FullRoutingResult(router), nil
			}
			values = []interface{}{nil}
		}
		names = append(names, col.Name)
		lists = append(lists, values)
		sizes = append(sizes, len(values))
	}

	if len(lists) > 0 && core.PermuteCount(sizes, c.maxCombinations) > c.maxCombinations {
		log.Warnf("table '%s': %v candidate combinations exceed the limit %d, route to all nodes", router.Name, sizes, c.maxCombinations)
		return core.FullRoutingResult(router), nil
	}

	rows := core.Permute(lists)
	if len(lists) == 0 {
		// constant rule
		rows = [][]interface{}{{}}
	}

	selected := make([]core.TableNode, 0, len(rows))
	seen := make(map[core.TableNode]struct{}, len(rows))
	for _, row := range rows {
		values := make(map[string]interface{}, len(names))
		for i, name := range names {
			values[name] = row[i]
		}
		node, err := c.evaluator.Resolve(router, values)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[node]; !ok {
			seen[node] = core.Nothing
			selected = append(selected, node)
		}
	}

	result, err := core.NewRoutingResult(router, selected)
	if err != nil {
		return nil, core.NewRuleEvaluationError(router.Name, router.Rule.Text, nil, "%v", err)
	}
	return result, nil
}

func lookupCandidates(candidates map[string][]interface{}, col *core.RuleColumn) []interface{} {
	if v, ok := candidates[col.Name]; ok {
		return v
	}
	for k, v := range candidates {
		if core.TrimAndLower(k) == col.Key() {
			return v
		}
	}
	return nil
}

// distinctValues drops repeated candidates keeping the first occurrence.
func distinctValues(values []interface{}) []interface{} {
	if len(values) <= 1 {
		return values
	}
	keys := strset.NewWithSize(len(values))
	result := make([]interface{}, 0, len(values))
	for _, v := range values {
		key := valueKey(v)
		if !keys.Has(key) {
			keys.Add(key)
			result = append(result, v)
		}
	}
	return result
}

func valueKey(v interface{}) string {
	if v == nil {
		return "\x00nil"
	}
	if core.IsIntegral(v) {
		if i, err := core.ToInt64(v); err == nil {
			return fmt.Sprintf("i:%d", i)
		}
	}
	return fmt.Sprintf("%T:%v", v, v)
}
