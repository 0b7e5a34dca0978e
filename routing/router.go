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
	"sort"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/telemetry"
)

const DefaultEnumerationLimit = 200

type RouterOption func(r *Router)

// WithEnumerationLimit sets the widest integer range that is expanded into
// single values instead of being routed as a range.
func WithEnumerationLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.enumerationLimit = limit
		}
	}
}

func WithMetrics(m *telemetry.Metrics) RouterOption {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// Router is the routing entry of the query layer, it owns the table routers
// of one configuration.
type Router struct {
	tables           map[string]*core.TableRouter
	calculator       *Calculator
	enumerationLimit int
	metrics          *telemetry.Metrics
}

func NewRouter(calculator *Calculator, tables []*core.TableRouter, opts ...RouterOption) (*Router, error) {
	r := &Router{
		tables:           make(map[string]*core.TableRouter, len(tables)),
		calculator:       calculator,
		enumerationLimit: DefaultEnumerationLimit,
		metrics:          telemetry.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, t := range tables {
		if _, dup := r.tables[t.Name]; dup {
			return nil, core.NewConfigError("tables", "duplicate table router '%s'", t.Name)
		}
		r.tables[t.Name] = t
	}
	return r, nil
}

func (r *Router) Table(name string) (*core.TableRouter, bool) {
	t, ok := r.tables[core.TrimAndLower(name)]
	return t, ok
}

func (r *Router) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RouteRow routes a single row write, a column present with a nil value is
// bound to NULL.
func (r *Router) RouteRow(table string, row map[string]interface{}) (*core.RoutingResult, error) {
	router, err := r.table(table)
	if err != nil {
		return nil, err
	}
	candidates := make(map[string][]interface{}, len(row))
	for k, v := range row {
		candidates[k] = []interface{}{v}
	}
	return r.observe(router, func() (*core.RoutingResult, error) {
		return r.calculator.Calculate(router, candidates)
	})
}

type rangeOptions struct {
	allowEmpty bool
}

type RangeOption func(o *rangeOptions)

// AllowEmpty lets a provably empty range select no node instead of every node.
func AllowEmpty() RangeOption {
	return func(o *rangeOptions) {
		o.allowEmpty = true
	}
}

// RouteRange routes "column BETWEEN startRow[column] AND endRow[column]" for
// every column present in either row.
func (r *Router) RouteRange(table string, startRow, endRow map[string]interface{}, opts ...RangeOption) (*core.RoutingResult, error) {
	router, err := r.table(table)
	if err != nil {
		return nil, err
	}
	var o rangeOptions
	for _, opt := range opts {
		opt(&o)
	}

	conditions := make([]Condition, 0, len(startRow)+len(endRow))
	for k, begin := range startRow {
		conditions = append(conditions, Between{Column: k, Begin: begin, End: endRow[k]})
	}
	for k, end := range endRow {
		if _, ok := startRow[k]; !ok {
			conditions = append(conditions, Between{Column: k, End: end})
		}
	}
	return r.observe(router, func() (*core.RoutingResult, error) {
		return r.route(router, conditions, o.allowEmpty)
	})
}

// Route routes a predicate list. Conditions on columns the rule does not
// read are ignored.
func (r *Router) Route(table string, conditions ...Condition) (*core.RoutingResult, error) {
	router, err := r.table(table)
	if err != nil {
		return nil, err
	}
	return r.observe(router, func() (*core.RoutingResult, error) {
		return r.route(router, conditions, false)
	})
}

// RouteNone is the explicit "no node" result for predicates the caller has
// proven unsatisfiable.
func (r *Router) RouteNone(table string) (*core.RoutingResult, error) {
	router, err := r.table(table)
	if err != nil {
		return nil, err
	}
	return r.observe(router, func() (*core.RoutingResult, error) {
		return core.EmptyRoutingResult(router), nil
	})
}

func (r *Router) table(name string) (*core.TableRouter, error) {
	router, ok := r.Table(name)
	if !ok {
		return nil, core.NewRoutingError(name, "table is not sharded")
	}
	return router, nil
}

func (r *Router) observe(router *core.TableRouter, calc func() (*core.RoutingResult, error)) (*core.RoutingResult, error) {
	result, err := calc()
	switch {
	case err != nil:
		r.metrics.ObserveRouting(router.Name, telemetry.OutcomeError, 0)
	case result.IsEmpty():
		r.metrics.ObserveRouting(router.Name, telemetry.OutcomeEmpty, 0)
	case len(result.Selected()) == len(router.Partitions):
		r.metrics.ObserveRouting(router.Name, telemetry.OutcomeFull, len(result.Selected()))
	default:
		r.metrics.ObserveRouting(router.Name, telemetry.OutcomeSelected, len(result.Selected()))
	}
	return result, err
}

func (r *Router) route(router *core.TableRouter, conditions []Condition, allowEmpty bool) (*core.RoutingResult, error) {
	constraints, err := r.collect(router, conditions)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string][]interface{}, len(constraints))
	var ranges []*constraint
	for key, c := range constraints {
		switch {
		case c.empty:
			if allowEmpty {
				return core.EmptyRoutingResult(router), nil
			}
			log.Debugf("table '%s': contradicting conditions on '%s', route to all nodes", router.Name, key)
			return core.FullRoutingResult(router), nil
		case c.hasRange:
			ranges = append(ranges, c)
		case c.hasSet:
			candidates[key] = c.values
		}
	}

	if len(ranges) == 0 {
		return r.calculator.Calculate(router, candidates)
	}
	if len(ranges) == 1 {
		if result, ok, err := r.routeByFunction(router, ranges[0], allowEmpty); ok || err != nil {
			return result, err
		}
	}
	return core.FullRoutingResult(router), nil
}

// routeByFunction delegates a range to the partition function when the rule
// is exactly one algorithm call over the ranged column.
func (r *Router) routeByFunction(router *core.TableRouter, c *constraint, allowEmpty bool) (*core.RoutingResult, bool, error) {
	rule := router.Rule
	if router.SuffixRule != nil || rule.Function == "" || len(rule.Columns) != 1 || rule.Columns[0].Key() != c.key || router.Owner == nil {
		return nil, false, nil
	}
	fn, ok := router.Owner.Algorithm(rule.Function)
	if !ok {
		return nil, false, nil
	}
	begin, err := rule.Columns[0].Coerce(c.begin)
	if err != nil {
		return nil, false, core.WrapRuleEvaluationError(err, router.Name, rule.Text, nil)
	}
	end, err := rule.Columns[0].Coerce(c.end)
	if err != nil {
		return nil, false, core.WrapRuleEvaluationError(err, router.Name, rule.Text, nil)
	}
	indexes, err := fn.PartitionRange(begin, end)
	if err != nil {
		return nil, false, core.WrapRuleEvaluationError(err, router.Name, rule.Text, nil)
	}
	if len(indexes) == 0 {
		if allowEmpty {
			return core.EmptyRoutingResult(router), true, nil
		}
		return core.FullRoutingResult(router), true, nil
	}
	nodes := make([]core.TableNode, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(router.Partitions) {
			return nil, false, core.NewRuleEvaluationError(router.Name, rule.Text, nil, "index %d out of range [0, %d)", idx, len(router.Partitions))
		}
		nodes = append(nodes, router.Partitions[idx])
	}
	result, err := core.NewRoutingResult(router, nodes)
	return result, true, err
}
