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

package core

import (
	"github.com/emirpasic/gods/sets/linkedhashset"
)

// TableRouter is the immutable sharding rule of one logical table. The order
// of Partitions is the contract index-returning rule expressions rely on.
//
// When SuffixRule is set the table uses a two level rule: Rule selects the
// shard (by name or by index into Shards) and SuffixRule selects the table
// suffix inside that shard.
type TableRouter struct {
	Name       string
	Partitions []TableNode
	Rule       *RuleExpression
	SuffixRule *RuleExpression
	Owner      AlgorithmLookup

	index  map[TableNode]int
	shards []string
}

func NewTableRouter(name string, partitions []TableNode, rule *RuleExpression, suffixRule *RuleExpression, owner AlgorithmLookup) (*TableRouter, error) {
	name = TrimAndLower(name)
	if name == "" {
		return nil, NewConfigError("table", "table name can not be empty")
	}
	if len(partitions) == 0 {
		return nil, NewConfigError(name, "table has no partitions")
	}
	if rule == nil || rule.Text == "" {
		return nil, NewConfigError(name, "table has no rule expression")
	}

	index := make(map[TableNode]int, len(partitions))
	shardSet := linkedhashset.New()
	for i, n := range partitions {
		if n.Shard == "" || n.Name == "" {
			return nil, NewConfigError(name, "partition #%d has empty shard or table name", i)
		}
		if _, dup := index[n]; dup {
			return nil, NewConfigError(name, "duplicate partition '%s'", n)
		}
		index[n] = i
		shardSet.Add(n.Shard)
	}

	shards := make([]string, 0, shardSet.Size())
	for _, s := range shardSet.Values() {
		shards = append(shards, s.(string))
	}

	p := make([]TableNode, len(partitions))
	copy(p, partitions)
	return &TableRouter{
		Name:       name,
		Partitions: p,
		Rule:       rule,
		SuffixRule: suffixRule,
		Owner:      owner,
		index:      index,
		shards:     shards,
	}, nil
}

func (r *TableRouter) IndexOf(node TableNode) (int, bool) {
	i, ok := r.index[node]
	return i, ok
}

func (r *TableRouter) Contains(node TableNode) bool {
	_, ok := r.index[node]
	return ok
}

// Shards lists the shard names in order of first appearance in Partitions.
func (r *TableRouter) Shards() []string {
	return r.shards
}

// FindNode resolves a shard and a suffix (or the full physical table name) to
// a partition.
func (r *TableRouter) FindNode(shard string, suffix string) (TableNode, bool) {
	for _, n := range r.Partitions {
		if n.Shard == shard && (n.Suffix == suffix || n.CompositeName() == suffix) {
			return n, true
		}
	}
	return TableNode{}, false
}

// RuleColumns merges the columns of Rule and SuffixRule by name. A column is
// required if either rule requires it.
func (r *TableRouter) RuleColumns() []*RuleColumn {
	var result []*RuleColumn
	seen := make(map[string]int)
	add := func(expr *RuleExpression) {
		if expr == nil {
			return
		}
		for _, c := range expr.Columns {
			if i, ok := seen[c.Key()]; ok {
				if c.Required && !result[i].Required {
					merged := *result[i]
					merged.Required = true
					result[i] = &merged
				}
				continue
			}
			seen[c.Key()] = len(result)
			result = append(result, c)
		}
	}
	add(r.Rule)
	add(r.SuffixRule)
	return result
}

func (r *TableRouter) String() string {
	sb := NewStringBuilder()
	sb.WriteFormat("%s -> [", r.Name)
	for i, n := range r.Partitions {
		if i > 0 {
			sb.Write(", ")
		}
		sb.Write(n)
	}
	sb.Write("] by ", r.Rule.Text)
	if r.SuffixRule != nil {
		sb.Write(" / ", r.SuffixRule.Text)
	}
	return sb.String()
}
