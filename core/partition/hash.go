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
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

const (
	DefaultHashSpace        = 1024
	DefaultEnumerationLimit = 200
)

type HashConfig struct {
	Count            []int `yaml:"count"`
	Length           []int `yaml:"length"`
	Space            int64 `yaml:"space"`
	EnumerationLimit int   `yaml:"enumeration-limit"`
	DefaultIndex     *int  `yaml:"default-index"`
}

func (c *HashConfig) Validate() error {
	if c.Space == 0 {
		c.Space = DefaultHashSpace
	}
	if c.Space < 0 || c.Space&(c.Space-1) != 0 {
		return errors.Errorf("hash space must be a power of two, got %d", c.Space)
	}
	if c.EnumerationLimit <= 0 {
		c.EnumerationLimit = DefaultEnumerationLimit
	}
	return nil
}

// Hash buckets the xxhash digest of a value's byte form.
type Hash struct {
	table *segmentTable
	nullPolicy
	enumerationLimit int64
}

var _ core.PartitionFunction = (*Hash)(nil)

func NewHash(cfg HashConfig) (*Hash, error) {
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
	return &Hash{table: table, nullPolicy: np, enumerationLimit: int64(cfg.EnumerationLimit)}, nil
}

func (h *Hash) NodeCount() int {
	return h.table.nodeCount()
}

func (h *Hash) Partition(value interface{}) (int, error) {
	if value == nil {
		return h.partitionNull()
	}
	b, err := hashBytes(value)
	if err != nil {
		return 0, err
	}
	bucket := int64(xxhash.Sum64(b) & uint64(h.table.space-1))
	return h.table.nodeOf(bucket), nil
}

// PartitionRange enumerates small integer ranges, anything else may land on
// any node.
func (h *Hash) PartitionRange(begin, end interface{}) ([]int, error) {
	if begin == nil || end == nil || !core.IsIntegral(begin) || !core.IsIntegral(end) {
		return allNodes(h.NodeCount()), nil
	}
	b, _ := core.ToInt64(begin)
	e, _ := core.ToInt64(end)
	if b > e {
		return []int{}, nil
	}
	if !core.SpanAtMost(b, e, h.enumerationLimit) {
		return allNodes(h.NodeCount()), nil
	}
	seen := make(map[int]struct{})
	var result []int
	for i := int64(0); i <= e-b && len(seen) < h.NodeCount(); i++ {
		idx, err := h.Partition(b + i)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[idx]; !ok {
			seen[idx] = struct{}{}
			result = append(result, idx)
		}
	}
	return result, nil
}

func (h *Hash) PartitionValues(values ...interface{}) ([]int, error) {
	return partitionValues(h.Partition, values)
}

// hashBytes gives equal values of different numeric kinds the same bytes.
func hashBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case bool:
		return []byte(strconv.FormatBool(v)), nil
	case time.Time:
		return []byte(v.Format("2006-01-02 15:04:05.999999999")), nil
	case float32:
		return floatBytes(float64(v)), nil
	case float64:
		return floatBytes(v), nil
	}
	if core.IsIntegral(value) {
		if u, ok := value.(uint64); ok {
			return []byte(strconv.FormatUint(u, 10)), nil
		}
		i, err := core.ToInt64(value)
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(i, 10)), nil
	}
	return nil, errors.Errorf("unsupported hash value type %T", value)
}

func floatBytes(f float64) []byte {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return []byte(strconv.FormatInt(int64(f), 10))
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64))
}
