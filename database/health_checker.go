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
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultValidationQuery = "SELECT 1"
	DefaultCheckInterval   = 10 * time.Second
	DefaultCheckTimeout    = 3 * time.Second
)

type HealthCheckConfig struct {
	ValidationQuery string
	Interval        time.Duration
	Timeout         time.Duration
}

func (c HealthCheckConfig) withDefaults() HealthCheckConfig {
	if c.ValidationQuery == "" {
		c.ValidationQuery = DefaultValidationQuery
	}
	if c.Interval <= 0 {
		c.Interval = DefaultCheckInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultCheckTimeout
	}
	return c
}

type pendingReplica struct {
	router *ShardRouter
	marker *DataSourceMarker
}

// HealthChecker probes demoted replicas on a fixed interval and puts the
// ones that answer the validation query back into their shard ring.
type HealthChecker struct {
	cfg HealthCheckConfig

	mu      sync.Mutex
	pending map[*DataSourceMarker]*ShardRouter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHealthChecker(cfg HealthCheckConfig) *HealthChecker {
	return &HealthChecker{
		cfg:     cfg.withDefaults(),
		pending: make(map[*DataSourceMarker]*ShardRouter),
	}
}

func (h *HealthChecker) Config() HealthCheckConfig {
	return h.cfg
}

// Watch subscribes to the failures of a shard router.
func (h *HealthChecker) Watch(router *ShardRouter) {
	router.AddFailureListener(func(r *ShardRouter, m *DataSourceMarker) {
		h.Enqueue(r, m)
	})
	for _, m := range router.Markers() {
		if m.IsAbnormal() {
			h.Enqueue(router, m)
		}
	}
}

func (h *HealthChecker) Enqueue(router *ShardRouter, m *DataSourceMarker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[m] = router
}

// Pending lists the replicas waiting for a successful probe.
func (h *HealthChecker) Pending() []*DataSourceMarker {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := make([]*DataSourceMarker, 0, len(h.pending))
	for m := range h.pending {
		list = append(list, m)
	}
	return list
}

func (h *HealthChecker) Start(ctx context.Context) {
	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.CheckNow(ctx)
			}
		}
	}()
	log.Infof("health checker started, interval: %s, query: %s", h.cfg.Interval, h.cfg.ValidationQuery)
}

// Stop cancels the loop and waits for the running round to finish.
func (h *HealthChecker) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		h.wg.Wait()
	}
}

// CheckNow runs one probing round over every pending replica and returns
// how many recovered.
func (h *HealthChecker) CheckNow(ctx context.Context) int {
	h.mu.Lock()
	round := make([]pendingReplica, 0, len(h.pending))
	for m, r := range h.pending {
		round = append(round, pendingReplica{router: r, marker: m})
	}
	h.mu.Unlock()

	recovered := 0
	for _, p := range round {
		if ctx.Err() != nil {
			break
		}
		if !p.marker.IsAbnormal() {
			h.removeIfHealthy(p.marker)
			continue
		}
		if err := h.probe(ctx, p.marker); err != nil {
			p.marker.failures.Inc()
			p.marker.lastError.Store(err)
			log.Debugf("replica '%s' is still unavailable: %v", p.marker, err)
			continue
		}
		p.router.ReportRecovered(p.marker)
		h.removeIfHealthy(p.marker)
		recovered++
	}
	return recovered
}

// removeIfHealthy drops m from the pending set unless a failure reported
// after the probe has demoted it again.
func (h *HealthChecker) removeIfHealthy(m *DataSourceMarker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !m.IsAbnormal() {
		delete(h.pending, m)
	}
}

func (h *HealthChecker) probe(ctx context.Context, m *DataSourceMarker) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	conn, err := m.source.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, h.cfg.ValidationQuery)
	if err != nil {
		return errors.Wrap(err, "validation query")
	}
	defer rows.Close()
	for rows.Next() {
	}
	return errors.Wrap(rows.Err(), "validation query")
}
