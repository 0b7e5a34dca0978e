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

package server

import (
	"context"
	"sync"
	"time"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/database"
	"github.com/endink/sharding-core/logging"
	"github.com/endink/sharding-core/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var log = logging.GetLogger("server")

type ScatterOption func(stc *ScatterConn)

// WithTimeout bounds multi shard calls. Single shard calls only honor the
// caller's context.
func WithTimeout(timeout time.Duration) ScatterOption {
	return func(stc *ScatterConn) {
		stc.timeout = timeout
	}
}

// WithWorkerPool shares a pool between several ScatterConn instances.
func WithWorkerPool(pool *WorkerPool) ScatterOption {
	return func(stc *ScatterConn) {
		if pool != nil {
			stc.pool = pool
		}
	}
}

func WithMetrics(m *telemetry.Metrics) ScatterOption {
	return func(stc *ScatterConn) {
		if m != nil {
			stc.metrics = m
		}
	}
}

// ScatterConn is used for executing queries across
// multiple shard level connections.
type ScatterConn struct {
	gateway Gateway
	pool    *WorkerPool
	timeout time.Duration
	metrics *telemetry.Metrics
}

// shardAction runs one statement on a borrowed connection.
type shardAction func(ctx context.Context, conn *database.Connection, q *BoundQuery) (*Result, error)

type shardGroup struct {
	shard    string
	readOnly bool
	indexes  []int
}

func NewScatterConn(gateway Gateway, opts ...ScatterOption) *ScatterConn {
	stc := &ScatterConn{
		gateway: gateway,
		metrics: telemetry.Discard(),
	}
	for _, opt := range opts {
		opt(stc)
	}
	if stc.pool == nil {
		stc.pool = NewWorkerPool(0)
	}
	return stc
}

// Execute runs queries and returns their rows, results[i] belongs to
// queries[i]. Any node failure fails the whole call and no result is
// returned.
func (stc *ScatterConn) Execute(ctx context.Context, queries []*BoundQuery) ([]*Result, error) {
	return stc.multiGo(ctx, "Execute", queries, runQuery)
}

// ExecuteUpdate runs write statements and returns the total rows affected.
func (stc *ScatterConn) ExecuteUpdate(ctx context.Context, queries []*BoundQuery) (int64, error) {
	results, err := stc.multiGo(ctx, "ExecuteUpdate", queries, runUpdate)
	if err != nil {
		return 0, err
	}
	var affected int64
	for _, r := range results {
		affected += r.RowsAffected
	}
	return affected, nil
}

// multiGo groups queries by shard and runs each group on its own connection.
// One group runs on the calling goroutine, more groups go through the
// worker pool.
func (stc *ScatterConn) multiGo(ctx context.Context, name string, queries []*BoundQuery, action shardAction) ([]*Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	for i, q := range queries {
		if q == nil || q.Node.Shard == "" {
			return nil, errors.Errorf("%s: query %d has no target shard", name, i)
		}
	}

	ctx, callID := NewCallContext(ctx)
	groups := groupByShard(queries)
	results := make([]*Result, len(queries))
	startTime := time.Now()
	log.Debugf("%s %s: %d statement(s) on %d shard(s)", name, callID, len(queries), len(groups))

	var err error
	if len(groups) == 1 {
		err = stc.runGroup(ctx, groups[0], queries, results, action)
	} else {
		err = stc.scatter(ctx, groups, queries, results, action)
	}
	stc.endAction(callID, name, startTime, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (stc *ScatterConn) scatter(ctx context.Context, groups []*shardGroup, queries []*BoundQuery, results []*Result, action shardAction) error {
	if stc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stc.timeout)
		defer cancel()
	}

	var mu sync.Mutex
	var allErrors error
	g, gctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		if err := stc.pool.Acquire(gctx); err != nil {
			break
		}
		group := group
		g.Go(func() error {
			defer stc.pool.Release()
			if err := stc.runGroup(gctx, group, queries, results, action); err != nil {
				mu.Lock()
				// errors after the first failure are mostly its cancellation
				if allErrors == nil || gctx.Err() == nil {
					allErrors = multierr.Append(allErrors, err)
				}
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
	return scatterError(ctx, allErrors)
}

// scatterError reports an elapsed deadline next to the node errors.
func scatterError(ctx context.Context, allErrors error) error {
	ctxErr := ctx.Err()
	if ctxErr != nil && (allErrors == nil || errors.Is(ctxErr, context.DeadlineExceeded)) {
		return multierr.Append(errors.Wrap(ctxErr, "scatter call aborted"), allErrors)
	}
	return allErrors
}

func (stc *ScatterConn) runGroup(ctx context.Context, group *shardGroup, queries []*BoundQuery, results []*Result, action shardAction) (err error) {
	conn, err := stc.gateway.Acquire(ctx, group.shard, group.readOnly)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Release(err); closeErr != nil && err == nil {
			log.Warnf("release connection of '%s' fault: %v", conn.Marker(), closeErr)
		}
	}()

	for _, i := range group.indexes {
		q := queries[i]
		r, execErr := action(ctx, conn, q)
		if execErr != nil {
			stc.metrics.NodeErrors.WithLabelValues(group.shard).Inc()
			return core.NewNodeExecutionError(q.Node, q.Sql, execErr)
		}
		results[i] = r
	}
	return nil
}

func (stc *ScatterConn) endAction(callID string, name string, startTime time.Time, err error) {
	outcome := telemetry.OutcomeSuccess
	if err != nil {
		outcome = telemetry.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = telemetry.OutcomeTimeout
		}
		log.Warnf("%s %s failed after %s: %v", name, callID, time.Since(startTime), err)
	}
	stc.metrics.ObserveScatter(startTime, outcome)
}

// groupByShard keeps the first appearance order of shards. A group is read
// only when all of its statements are.
func groupByShard(queries []*BoundQuery) []*shardGroup {
	var groups []*shardGroup
	index := make(map[string]*shardGroup)
	for i, q := range queries {
		g, ok := index[q.Node.Shard]
		if !ok {
			g = &shardGroup{shard: q.Node.Shard, readOnly: true}
			index[q.Node.Shard] = g
			groups = append(groups, g)
		}
		g.readOnly = g.readOnly && q.ReadOnly
		g.indexes = append(g.indexes, i)
	}
	return groups
}

func runQuery(ctx context.Context, conn *database.Connection, q *BoundQuery) (*Result, error) {
	rows, err := conn.QueryContext(ctx, q.Sql, q.BindVariables...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	r := &Result{Node: q.Node, Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.Rows = append(r.Rows, values)
	}
	return r, rows.Err()
}

func runUpdate(ctx context.Context, conn *database.Connection, q *BoundQuery) (*Result, error) {
	res, err := conn.ExecContext(ctx, q.Sql, q.BindVariables...)
	if err != nil {
		return nil, err
	}
	r := &Result{Node: q.Node}
	if r.RowsAffected, err = res.RowsAffected(); err != nil {
		return nil, err
	}
	r.LastInsertID, _ = res.LastInsertId()
	return r, nil
}
