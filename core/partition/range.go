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
	"math"
	"time"

	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

type RangeConfig struct {
	Count        []int `yaml:"count"`
	Length       []int `yaml:"length"`
	Space        int64 `yaml:"space"`
	DefaultIndex *int  `yaml:"default-index"`
}

func (c *RangeConfig) Validate() error {
	if c.Space < 0 {
		return errors.Errorf("range space must be positive, got %d", c.Space)
	}
	if c.Space == 0 {
		for i := range c.Count {
			if i < len(c.Length) {
				c.Space += int64(c.Count[i]) * int64(c.Length[i])
			}
		}
	}
	return nil
}

// Range buckets the value itself: integers directly, times by unix seconds
// and strings by their 31 based hash code, each taken modulo the space.
type Range struct {
	table *segmentTable
	nullPolicy
}

var _ core.PartitionFunction = (*Range)(nil)

func NewRange(cfg RangeConfig) (*Range, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table, err := newSegmentTable(cfg.Count, cfg.Length, cfg.Space)
	if err != nil {
		return nil, err
	}
	np, err := newNullPolicy(cfg.DefaultIndex, table.nodeCount())
	if err != nil {
		return nil, err
	}
	return &Range{table: table, nullPolicy: np}, nil
}

func (r *Range) NodeCount() int {
	return r.table.nodeCount()
}

func (r *Range) Partition(value interface{}) (int, error) {
	if value == nil {
		return r.partitionNull()
	}
	key, err := rangeKey(value)
	if err != nil {
		return 0, err
	}
	return r.table.nodeOf(floorMod(key, r.table.space)), nil
}

// PartitionRange returns the contiguous span of nodes between the keys of
// begin and end. Open bounds and strings cover every node, begin > end covers
// none.
func (r *Range) PartitionRange(begin, end interface{}) ([]int, error) {
	if begin == nil || end == nil || isText(begin) || isText(end) {
		return allNodes(r.NodeCount()), nil
	}
	b, err := rangeKey(begin)
	if err != nil {
		return nil, err
	}
	e, err := rangeKey(end)
	if err != nil {
		return nil, err
	}
	if b > e {
		return []int{}, nil
	}
	return r.table.span(b, e), nil
}

func (r *Range) PartitionValues(values ...interface{}) ([]int, error) {
	return partitionValues(r.Partition, values)
}

func rangeKey(value interface{}) (int64, error) {
	switch v := value.(type) {
	case string:
		return int64(Hashcode(v)), nil
	case []byte:
		return int64(Hashcode(string(v))), nil
	case time.Time:
		return v.Unix(), nil
	case float32:
		return int64(math.Floor(float64(v))), nil
	case float64:
		return int64(math.Floor(v)), nil
	}
	i, err := core.ToInt64(value)
	if err != nil {
		return 0, errors.Errorf("unsupported range value type %T", value)
	}
	return i, nil
}

func isText(v interface{}) bool {
	switch v.(type) {
	case string, []byte:
		return true
	}
	return false
}

// Hashcode is the 31 based string hash, overflowing as int32.
func Hashcode(s string) int32 {
	var hash int32
	for _, c := range s {
		hash = c + ((hash << 5) - hash)
	}
	return hash
}
