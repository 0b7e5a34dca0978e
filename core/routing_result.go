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
	"fmt"
	"sort"
)

// RoutingResult is the outcome of one routing calculation. Selected is a
// subset of the router's partitions kept in partition order. It is empty only
// when built with EmptyRoutingResult.
type RoutingResult struct {
	router   *TableRouter
	selected []TableNode
}

func NewRoutingResult(router *TableRouter, selected []TableNode) (*RoutingResult, error) {
	if len(selected) == 0 {
		return nil, fmt.Errorf("routing result of table '%s' must select at least one node", router.Name)
	}
	indexes := make([]int, 0, len(selected))
	seen := make(map[int]struct{}, len(selected))
	for _, n := range selected {
		i, ok := router.IndexOf(n)
		if !ok {
			return nil, fmt.Errorf("node '%s' is not a partition of table '%s'", n, router.Name)
		}
		if _, dup := seen[i]; !dup {
			seen[i] = Nothing
			indexes = append(indexes, i)
		}
	}
	sort.Ints(indexes)
	nodes := make([]TableNode, len(indexes))
	for i, idx := range indexes {
		nodes[i] = router.Partitions[idx]
	}
	return &RoutingResult{router: router, selected: nodes}, nil
}

// FullRoutingResult selects every partition of the router.
func FullRoutingResult(router *TableRouter) *RoutingResult {
	return &RoutingResult{router: router, selected: router.Partitions}
}

// EmptyRoutingResult selects nothing. Callers use it when a predicate is
// provably unsatisfiable.
func EmptyRoutingResult(router *TableRouter) *RoutingResult {
	return &RoutingResult{router: router, selected: []TableNode{}}
}

func (r *RoutingResult) Table() string {
	return r.router.Name
}

func (r *RoutingResult) All() []TableNode {
	return r.router.Partitions
}

func (r *RoutingResult) Selected() []TableNode {
	return r.selected
}

func (r *RoutingResult) IsEmpty() bool {
	return len(r.selected) == 0
}

// IsFullNode holds when every partition is selected and there is more than one.
func (r *RoutingResult) IsFullNode() bool {
	return len(r.selected) > 1 && len(r.selected) == len(r.router.Partitions)
}

// GroupByShard merges selected nodes of the same shard, shards in order of
// first selection.
func (r *RoutingResult) GroupByShard() []TableNodeGroup {
	var groups []TableNodeGroup
	pos := make(map[string]int)
	for _, n := range r.selected {
		i, ok := pos[n.Shard]
		if !ok {
			i = len(groups)
			pos[n.Shard] = i
			groups = append(groups, TableNodeGroup{Shard: n.Shard})
		}
		groups[i].Nodes = append(groups[i].Nodes, n)
	}
	return groups
}

func (r *RoutingResult) Equals(other *RoutingResult) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.router != other.router || len(r.selected) != len(other.selected) {
		return false
	}
	for i, n := range r.selected {
		if other.selected[i] != n {
			return false
		}
	}
	return true
}

func (r *RoutingResult) String() string {
	sb := NewStringBuilder(r.router.Name, " -> [")
	for i, n := range r.selected {
		if i > 0 {
			sb.Write(", ")
		}
		sb.Write(n)
	}
	sb.Write("]")
	return sb.String()
}
