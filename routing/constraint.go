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
	"github.com/endink/sharding-core/core"
)

// constraint is the AND of every condition on one rule column.
type constraint struct {
	key      string
	hasSet   bool
	values   []interface{}
	hasRange bool
	begin    interface{}
	end      interface{}
	empty    bool
}

func (r *Router) collect(router *core.TableRouter, conditions []Condition) (map[string]*constraint, error) {
	columns := make(map[string]*core.RuleColumn)
	for _, c := range router.RuleColumns() {
		columns[c.Key()] = c
	}

	constraints := make(map[string]*constraint)
	get := func(key string) *constraint {
		c, ok := constraints[key]
		if !ok {
			c = &constraint{key: key}
			constraints[key] = c
		}
		return c
	}

	for _, cond := range conditions {
		key := core.TrimAndLower(cond.column())
		if _, ok := columns[key]; !ok {
			continue
		}
		switch v := cond.(type) {
		case Equal:
			get(key).intersectValues([]interface{}{v.Value})
		case *Equal:
			get(key).intersectValues([]interface{}{v.Value})
		case In:
			if len(v.Values) > 0 {
				get(key).intersectValues(v.Values)
			}
		case *In:
			if len(v.Values) > 0 {
				get(key).intersectValues(v.Values)
			}
		case Between:
			if err := get(key).intersectRange(router.Name, v.Begin, v.End); err != nil {
				return nil, err
			}
		case *Between:
			if err := get(key).intersectRange(router.Name, v.Begin, v.End); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range constraints {
		c.resolve(r.enumerationLimit)
	}
	return constraints, nil
}

func (c *constraint) intersectValues(values []interface{}) {
	if !c.hasSet {
		c.hasSet = true
		c.values = append([]interface{}{}, values...)
		return
	}
	kept := c.values[:0]
	for _, v := range c.values {
		if containsValue(values, v) {
			kept = append(kept, v)
		}
	}
	c.values = kept
}

func (c *constraint) intersectRange(table string, begin, end interface{}) error {
	if begin != nil && end != nil {
		if cmp, err := core.Compare(begin, end); err == nil && cmp > 0 {
			return core.NewRoutingError(table, "range [%v, %v] on column '%s' is empty, begin is greater than end", begin, end, c.key)
		}
	}
	if !c.hasRange {
		c.hasRange = true
		c.begin, c.end = begin, end
		return nil
	}
	if begin != nil && (c.begin == nil || compareOrZero(begin, c.begin) > 0) {
		c.begin = begin
	}
	if end != nil && (c.end == nil || compareOrZero(end, c.end) < 0) {
		c.end = end
	}
	return nil
}

// resolve folds a range into the value set, or into values when the range is
// a short run of integers.
func (c *constraint) resolve(enumerationLimit int) {
	if c.hasRange && c.begin != nil && c.end != nil && compareOrZero(c.begin, c.end) > 0 {
		c.empty = true
		return
	}
	if c.hasSet && c.hasRange {
		kept := c.values[:0]
		for _, v := range c.values {
			if inRange(v, c.begin, c.end) {
				kept = append(kept, v)
			}
		}
		c.values = kept
		c.hasRange = false
	}
	if c.hasRange && core.IsIntegral(c.begin) && core.IsIntegral(c.end) {
		b, _ := core.ToInt64(c.begin)
		e, _ := core.ToInt64(c.end)
		if b <= e && core.SpanAtMost(b, e, int64(enumerationLimit)) {
			n := e - b
			c.values = make([]interface{}, 0, n+1)
			for i := int64(0); i <= n; i++ {
				c.values = append(c.values, b+i)
			}
			c.hasSet = true
			c.hasRange = false
		}
	}
	if c.hasSet && len(c.values) == 0 {
		c.empty = true
	}
}

func inRange(v, begin, end interface{}) bool {
	if begin != nil {
		if cmp, err := core.Compare(v, begin); err != nil || cmp < 0 {
			return err != nil
		}
	}
	if end != nil {
		if cmp, err := core.Compare(v, end); err != nil || cmp > 0 {
			return err != nil
		}
	}
	return true
}

func containsValue(values []interface{}, v interface{}) bool {
	for _, item := range values {
		if cmp, err := core.Compare(item, v); err == nil && cmp == 0 {
			return true
		}
	}
	return false
}

func compareOrZero(a, b interface{}) int {
	cmp, err := core.Compare(a, b)
	if err != nil {
		return 0
	}
	return cmp
}
