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
	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

type DirectConfig struct {
	Nodes        int  `yaml:"nodes"`
	DefaultIndex *int `yaml:"default-index"`
}

func (c *DirectConfig) Validate() error {
	if c.Nodes <= 0 {
		return errors.Errorf("direct nodes must be positive, got %d", c.Nodes)
	}
	return nil
}

// Direct uses the value itself as the node index.
type Direct struct {
	nodes int
	nullPolicy
}

var _ core.PartitionFunction = (*Direct)(nil)

func NewDirect(cfg DirectConfig) (*Direct, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	np, err := newNullPolicy(cfg.DefaultIndex, cfg.Nodes)
	if err != nil {
		return nil, err
	}
	return &Direct{nodes: cfg.Nodes, nullPolicy: np}, nil
}

func (d *Direct) NodeCount() int {
	return d.nodes
}

func (d *Direct) Partition(value interface{}) (int, error) {
	if value == nil {
		return d.partitionNull()
	}
	i, err := core.ToInt64(value)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= int64(d.nodes) {
		return 0, errors.Errorf("direct index %d out of range [0, %d)", i, d.nodes)
	}
	return int(i), nil
}

func (d *Direct) PartitionRange(begin, end interface{}) ([]int, error) {
	if begin == nil || end == nil {
		return allNodes(d.nodes), nil
	}
	b, err := core.ToInt64(begin)
	if err != nil {
		return nil, err
	}
	e, err := core.ToInt64(end)
	if err != nil {
		return nil, err
	}
	if b < 0 {
		b = 0
	}
	if e >= int64(d.nodes) {
		e = int64(d.nodes) - 1
	}
	result := []int{}
	for i := b; i <= e; i++ {
		result = append(result, int(i))
	}
	return result, nil
}

func (d *Direct) PartitionValues(values ...interface{}) ([]int, error) {
	return partitionValues(d.Partition, values)
}
