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

package database

import (
	"context"
	"sort"

	"github.com/endink/sharding-core/core"
	"go.uber.org/multierr"
)

// Cluster owns the shard routers of every configured shard and the health
// checker that reinstates their failed replicas.
type Cluster struct {
	shards  map[string]*ShardRouter
	names   []string
	checker *HealthChecker
}

func NewCluster(defs []ShardDefinition, health HealthCheckConfig, opts ...ShardRouterOption) (*Cluster, error) {
	c := &Cluster{
		shards:  make(map[string]*ShardRouter, len(defs)),
		checker: NewHealthChecker(health),
	}
	var errs error
	for _, def := range defs {
		router, err := NewShardRouter(def, opts...)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, dup := c.shards[router.Name()]; dup {
			errs = multierr.Append(errs, core.NewConfigError("sources", "duplicate shard '%s'", router.Name()))
			continue
		}
		c.shards[router.Name()] = router
		c.names = append(c.names, router.Name())
		c.checker.Watch(router)
	}
	if errs != nil {
		return nil, errs
	}
	sort.Strings(c.names)
	return c, nil
}

func (c *Cluster) Shard(name string) (*ShardRouter, bool) {
	r, ok := c.shards[core.TrimAndLower(name)]
	return r, ok
}

// Shards returns the shard names in alphabetical order.
func (c *Cluster) Shards() []string {
	return c.names
}

func (c *Cluster) HealthChecker() *HealthChecker {
	return c.checker
}

// Acquire borrows a connection from the named shard.
func (c *Cluster) Acquire(ctx context.Context, shard string, readOnly bool) (*Connection, error) {
	r, ok := c.Shard(shard)
	if !ok {
		return nil, core.NewRoutingError(shard, "shard '%s' is not configured", shard)
	}
	return r.Acquire(ctx, readOnly)
}

func (c *Cluster) Start(ctx context.Context) {
	c.checker.Start(ctx)
}

// Close stops the health loop and closes every replica pool.
func (c *Cluster) Close() error {
	c.checker.Stop()
	var errs error
	for _, name := range c.names {
		r := c.shards[name]
		r.throttled.Stop()
		for _, m := range r.markers {
			errs = multierr.Append(errs, m.source.Close())
		}
	}
	return errs
}
