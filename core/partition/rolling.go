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
	"time"

	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

type RollingUnit string

const (
	RollingNumber RollingUnit = "number"
	RollingDay    RollingUnit = "day"
	RollingMonth  RollingUnit = "month"
	RollingYear   RollingUnit = "year"
)

type RollingConfig struct {
	Unit         RollingUnit `yaml:"unit"`
	Stride       int64       `yaml:"stride"`
	Base         int64       `yaml:"base"`
	Epoch        string      `yaml:"epoch"`
	Nodes        int         `yaml:"nodes"`
	DefaultIndex *int        `yaml:"default-index"`

	epoch time.Time
}

func (c *RollingConfig) Validate() error {
	if c.Unit == "" {
		c.Unit = RollingNumber
	}
	if c.Stride == 0 {
		c.Stride = 1
	}
	if c.Stride < 0 {
		return errors.Errorf("rolling stride must be positive, got %d", c.Stride)
	}
	if c.Nodes <= 0 {
		return errors.Errorf("rolling nodes must be positive, got %d", c.Nodes)
	}
	switch c.Unit {
	case RollingNumber:
	case RollingDay, RollingMonth, RollingYear:
		if c.Epoch == "" {
			return errors.Errorf("rolling unit '%s' requires an epoch", c.Unit)
		}
		t, err := core.ToTime(c.Epoch)
		if err != nil {
			return errors.Wrap(err, "invalid rolling epoch")
		}
		c.epoch = t
	default:
		return errors.Errorf("unknown rolling unit '%s', supported: number, day, month, year", c.Unit)
	}
	return nil
}

// Rolling assigns consecutive strides of a number or a calendar period to
// nodes round robin.
type Rolling struct {
	cfg RollingConfig
	nullPolicy
}

var _ core.PartitionFunction = (*Rolling)(nil)

func NewRolling(cfg RollingConfig) (*Rolling, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	np, err := newNullPolicy(cfg.DefaultIndex, cfg.Nodes)
	if err != nil {
		return nil, err
	}
	return &Rolling{cfg: cfg, nullPolicy: np}, nil
}

func (r *Rolling) NodeCount() int {
	return r.cfg.Nodes
}

func (r *Rolling) Partition(value interface{}) (int, error) {
	if value == nil {
		return r.partitionNull()
	}
	period, err := r.period(value)
	if err != nil {
		return 0, err
	}
	return int(floorMod(period, int64(r.cfg.Nodes))), nil
}

func (r *Rolling) PartitionRange(begin, end interface{}) ([]int, error) {
	if begin == nil || end == nil {
		return allNodes(r.NodeCount()), nil
	}
	b, err := r.period(begin)
	if err != nil {
		return nil, err
	}
	e, err := r.period(end)
	if err != nil {
		return nil, err
	}
	if b > e {
		return []int{}, nil
	}
	if !core.SpanAtMost(b, e, int64(r.cfg.Nodes)-1) {
		return allNodes(r.NodeCount()), nil
	}
	result := make([]int, 0, e-b+1)
	for i := int64(0); i <= e-b; i++ {
		result = append(result, int(floorMod(b+i, int64(r.cfg.Nodes))))
	}
	return result, nil
}

func (r *Rolling) PartitionValues(values ...interface{}) ([]int, error) {
	return partitionValues(r.Partition, values)
}

// period is the ordinal stride the value falls in, relative to base or epoch.
func (r *Rolling) period(value interface{}) (int64, error) {
	if r.cfg.Unit == RollingNumber {
		v, err := core.ToInt64(value)
		if err != nil {
			return 0, err
		}
		return floorDiv(v-r.cfg.Base, r.cfg.Stride), nil
	}

	t, err := core.ToTime(value)
	if err != nil {
		return 0, err
	}
	t = t.In(r.cfg.epoch.Location())
	epoch := r.cfg.epoch
	var n int64
	switch r.cfg.Unit {
	case RollingDay:
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		e := time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, time.UTC)
		n = int64(d.Sub(e).Hours()) / 24
	case RollingMonth:
		n = int64(t.Year()-epoch.Year())*12 + int64(t.Month()-epoch.Month())
	case RollingYear:
		n = int64(t.Year() - epoch.Year())
	}
	return floorDiv(n, r.cfg.Stride), nil
}
