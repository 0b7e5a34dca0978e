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

package partition

import (
	"fmt"
	"sort"

	"github.com/endink/sharding-core/core"
)

// segmentTable maps a bucket in [0, space) to a node index. Pair i of the
// count/length table contributes count[i] nodes owning length[i] consecutive
// buckets each, nodes are numbered in declaration order.
type segmentTable struct {
	space int64
	ends  []int64 // exclusive end bucket of node i
}

func newSegmentTable(count []int, length []int, space int64) (*segmentTable, error) {
	if len(count) == 0 {
		return nil, fmt.Errorf("partition count can not be empty")
	}
	if len(count) != len(length) {
		return nil, fmt.Errorf("partition count and length must have the same size, count: %v, length: %v", count, length)
	}
	var ends []int64
	var sum int64
	for i := range count {
		if count[i] <= 0 || length[i] <= 0 {
			return nil, fmt.Errorf("partition count and length must be positive, count: %v, length: %v", count, length)
		}
		for c := 0; c < count[i]; c++ {
			sum += int64(length[i])
			ends = append(ends, sum)
		}
	}
	if sum != space {
		return nil, fmt.Errorf("sum(count[i]*length[i]) must equal the partition space %d, got %d", space, sum)
	}
	return &segmentTable{space: space, ends: ends}, nil
}

func (t *segmentTable) nodeCount() int {
	return len(t.ends)
}

func (t *segmentTable) nodeOf(bucket int64) int {
	return sort.Search(len(t.ends), func(i int) bool { return t.ends[i] > bucket })
}

// span returns the distinct nodes owning buckets begin..end (inclusive,
// positions taken modulo space), walking whole segments at a time.
func (t *segmentTable) span(begin, end int64) []int {
	if !core.SpanAtMost(begin, end, t.space-1) {
		return allNodes(t.nodeCount())
	}
	seen := make(map[int]struct{})
	var result []int
	for off := int64(0); off <= end-begin; {
		bucket := floorMod(begin+off, t.space)
		node := t.nodeOf(bucket)
		if _, ok := seen[node]; !ok {
			seen[node] = struct{}{}
			result = append(result, node)
		}
		off += t.ends[node] - bucket
	}
	return result
}

func allNodes(n int) []int {
	nodes := make([]int, n)
	for i := range nodes {
		nodes[i] = i
	}
	return nodes
}

func floorMod(x, m int64) int64 {
	r := x % m
	if r < 0 {
		r += m
	}
	return r
}

func floorDiv(x, m int64) int64 {
	q := x / m
	if (x%m != 0) && ((x < 0) != (m < 0)) {
		q--
	}
	return q
}
