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
	"math/rand"
	"sync"
	"time"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/logging"
	"github.com/endink/sharding-core/telemetry"
	"go.uber.org/atomic"
)

type ringSnapshot struct {
	read  *hashRing
	write *hashRing
}

type ShardRouterOption func(r *ShardRouter)

func WithVirtualNodes(n int) ShardRouterOption {
	return func(r *ShardRouter) {
		if n > 0 {
			r.virtualNodes = n
		}
	}
}

// WithPositionFunc replaces the random ring position used by Acquire.
func WithPositionFunc(fn func() uint64) ShardRouterOption {
	return func(r *ShardRouter) {
		if fn != nil {
			r.position = fn
		}
	}
}

func WithRouterMetrics(m *telemetry.Metrics) ShardRouterOption {
	return func(r *ShardRouter) {
		if m != nil {
			r.metrics = m
		}
	}
}

// FailureListener is told about every replica leaving the ring.
type FailureListener func(router *ShardRouter, marker *DataSourceMarker)

// ShardRouter load balances the replicas of one shard over a read ring and a
// write ring. Rings are immutable snapshots replaced on membership change, so
// Acquire never waits for a rebuild.
type ShardRouter struct {
	name         string
	markers      []*DataSourceMarker
	virtualNodes int
	position     func() uint64
	metrics      *telemetry.Metrics
	throttled    *logging.ThrottledLogger

	rings     atomic.Value
	rebuildMu sync.Mutex

	listenerMu sync.RWMutex
	listeners  []FailureListener
}

func NewShardRouter(def ShardDefinition, opts ...ShardRouterOption) (*ShardRouter, error) {
	name := core.TrimAndLower(def.Name)
	if err := core.ValidateIdentifier(name); err != nil {
		return nil, core.WrapConfigError(err, "sources", "invalid shard name")
	}
	if len(def.Replicas) == 0 {
		return nil, core.NewConfigError(name, "shard has no replica")
	}

	r := &ShardRouter{
		name:         name,
		virtualNodes: DefaultVirtualNodes,
		position:     rand.Uint64,
		metrics:      telemetry.Discard(),
		throttled:    logging.NewThrottledLogger("shard "+name, log, 5*time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}

	names := make(map[string]struct{}, len(def.Replicas))
	writable := false
	for _, replica := range def.Replicas {
		m, err := NewDataSourceMarker(name, replica)
		if err != nil {
			return nil, err
		}
		if _, dup := names[m.Name]; dup {
			return nil, core.NewConfigError(name, "duplicate replica '%s'", m.Name)
		}
		names[m.Name] = core.Nothing
		writable = writable || m.IsWritable()
		r.markers = append(r.markers, m)
	}
	if !writable {
		log.Warnf("shard '%s' has no writable replica, writes will fail", name)
	}
	r.rebuild()
	return r, nil
}

func (r *ShardRouter) Name() string {
	return r.name
}

func (r *ShardRouter) Markers() []*DataSourceMarker {
	return r.markers
}

// Available is the number of healthy replicas of the class.
func (r *ShardRouter) Available(readOnly bool) int {
	return r.ring(readOnly).Len()
}

func (r *ShardRouter) AddFailureListener(l FailureListener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *ShardRouter) ring(readOnly bool) *hashRing {
	snapshot := r.rings.Load().(*ringSnapshot)
	if readOnly {
		return snapshot.read
	}
	return snapshot.write
}

// Acquire returns a connection to a replica of the requested class picked at
// a random ring position. A replica that fails to connect leaves the ring and
// the next untried replica clockwise is attempted.
func (r *ShardRouter) Acquire(ctx context.Context, readOnly bool) (*Connection, error) {
	ring := r.ring(readOnly)
	pos := r.position()
	tried := make(map[*DataSourceMarker]bool)
	var triedNames []string
	var lastErr error

	for {
		m := ring.Next(pos, tried)
		if m == nil {
			return nil, &core.DataSourceUnavailableError{Shard: r.name, ReadOnly: readOnly, Tried: triedNames, Last: lastErr}
		}
		conn, err := m.source.Conn(ctx)
		if err == nil {
			return &Connection{conn: conn, marker: m, router: r}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.ReportFailure(m, err)
		tried[m] = true
		triedNames = append(triedNames, m.Name)
		lastErr = err
	}
}

// ReportFailure counts a failure and takes the replica out of both rings.
func (r *ShardRouter) ReportFailure(m *DataSourceMarker, err error) {
	m.failures.Inc()
	if err != nil {
		m.lastError.Store(err)
	}
	if !m.abnormal.CAS(false, true) {
		return
	}
	r.rebuild()
	r.metrics.ReplicaDemotions.WithLabelValues(r.name).Inc()
	r.throttled.Warnf("replica '%s' removed from the ring after %d failure(s): %v", m.Name, m.failures.Load(), err)

	r.listenerMu.RLock()
	listeners := r.listeners
	r.listenerMu.RUnlock()
	for _, l := range listeners {
		l(r, m)
	}
}

// ReportRecovered puts the replica back and clears its failure counter.
func (r *ShardRouter) ReportRecovered(m *DataSourceMarker) {
	if !m.abnormal.CAS(true, false) {
		return
	}
	m.failures.Store(0)
	r.rebuild()
	r.metrics.ReplicaReinstatements.WithLabelValues(r.name).Inc()
	log.Infof("replica '%s' of shard '%s' is healthy again", m.Name, r.name)
}

func (r *ShardRouter) rebuild() {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	healthy := make([]*DataSourceMarker, 0, len(r.markers))
	for _, m := range r.markers {
		if !m.IsAbnormal() {
			healthy = append(healthy, m)
		}
	}
	snapshot := &ringSnapshot{
		read: newHashRing(healthy, func(m *DataSourceMarker) int {
			if m.IsReadable() {
				return m.ReadWeight
			}
			return 0
		}, r.virtualNodes),
		write: newHashRing(healthy, func(m *DataSourceMarker) int {
			if m.IsWritable() {
				return m.WriteWeight
			}
			return 0
		}, r.virtualNodes),
	}
	r.rings.Store(snapshot)
	r.metrics.AvailableReplicas.WithLabelValues(r.name, "read").Set(float64(snapshot.read.Len()))
	r.metrics.AvailableReplicas.WithLabelValues(r.name, "write").Set(float64(snapshot.write.Len()))
}
