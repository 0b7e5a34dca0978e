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
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math/rand"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/endink/sharding-core/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeSource struct {
	db     *sql.DB
	fail   atomic.Bool
	calls  atomic.Int32
	closed atomic.Bool
}

func newFakeSource(t *testing.T) (*fakeSource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &fakeSource{db: db}, mock
}

func (s *fakeSource) Conn(ctx context.Context) (*sql.Conn, error) {
	s.calls.Inc()
	if s.fail.Load() {
		return nil, driver.ErrBadConn
	}
	return s.db.Conn(ctx)
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func replica(name string, src DataSource, read, write int) ReplicaDefinition {
	return ReplicaDefinition{
		Name:        name,
		Source:      src,
		Readable:    read > 0,
		Writable:    write > 0,
		ReadWeight:  read,
		WriteWeight: write,
	}
}

func TestNewShardRouterValidation(t *testing.T) {
	src, _ := newFakeSource(t)

	_, err := NewShardRouter(ShardDefinition{Name: "ds0"})
	assert.True(t, core.IsConfigError(err))

	_, err = NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		replica("m", src, 1, 1),
		replica("m", src, 1, 0),
	}})
	assert.True(t, core.IsConfigError(err))

	_, err = NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		{Name: "m", Source: src},
	}})
	assert.True(t, core.IsConfigError(err))

	_, err = NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		replica("m", nil, 1, 1),
	}})
	assert.True(t, core.IsConfigError(err))
}

func TestRingsSeparateReadAndWrite(t *testing.T) {
	master, _ := newFakeSource(t)
	slave, _ := newFakeSource(t)
	r, err := NewShardRouter(ShardDefinition{Name: "DS0", Replicas: []ReplicaDefinition{
		replica("master", master, 0, 1),
		replica("slave", slave, 1, 0),
	}})
	require.NoError(t, err)
	assert.Equal(t, "ds0", r.Name())
	assert.Equal(t, 1, r.Available(true))
	assert.Equal(t, 1, r.Available(false))

	for i := 0; i < 20; i++ {
		conn, err := r.Acquire(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, "slave", conn.Marker().Name)
		require.NoError(t, conn.Release(nil))

		conn, err = r.Acquire(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, "master", conn.Marker().Name)
		require.NoError(t, conn.Release(nil))
	}
}

func TestAcquireFailsOver(t *testing.T) {
	bad, _ := newFakeSource(t)
	good, _ := newFakeSource(t)
	bad.fail.Store(true)

	r, err := NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		replica("bad", bad, 1, 1),
		replica("good", good, 1, 1),
	}})
	require.NoError(t, err)

	var demoted []string
	r.AddFailureListener(func(_ *ShardRouter, m *DataSourceMarker) {
		demoted = append(demoted, m.Name)
	})

	for i := 0; i < 64; i++ {
		conn, err := r.Acquire(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, "good", conn.Marker().Name)
		require.NoError(t, conn.Release(nil))
	}

	markers := r.Markers()
	assert.Equal(t, []string{"bad"}, demoted)
	assert.True(t, markers[0].IsAbnormal())
	assert.LessOrEqual(t, bad.calls.Load(), int32(1))
	assert.Equal(t, 1, r.Available(false))
	assert.ErrorIs(t, markers[0].LastError(), driver.ErrBadConn)
}

func TestFailoverExhaustion(t *testing.T) {
	a, _ := newFakeSource(t)
	b, _ := newFakeSource(t)
	a.fail.Store(true)
	b.fail.Store(true)

	r, err := NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		replica("a", a, 1, 1),
		replica("b", b, 1, 1),
	}})
	require.NoError(t, err)

	_, err = r.Acquire(context.Background(), false)
	require.Error(t, err)
	assert.True(t, core.IsNoAvailableDataSource(err))

	var unavailable *core.DataSourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ElementsMatch(t, []string{"a", "b"}, unavailable.Tried)
	assert.ErrorIs(t, err, driver.ErrBadConn)

	_, err = r.Acquire(context.Background(), false)
	assert.True(t, core.IsNoAvailableDataSource(err))
	assert.Empty(t, unavailableTried(err))
}

func unavailableTried(err error) []string {
	if e, ok := err.(*core.DataSourceUnavailableError); ok {
		return e.Tried
	}
	return nil
}

func TestReadOnlyShardRejectsWrites(t *testing.T) {
	src, _ := newFakeSource(t)
	r, err := NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		replica("slave", src, 1, 0),
	}})
	require.NoError(t, err)

	_, err = r.Acquire(context.Background(), false)
	assert.True(t, core.IsNoAvailableDataSource(err))
	assert.Zero(t, src.calls.Load())
}

func TestReportRecovered(t *testing.T) {
	src, _ := newFakeSource(t)
	r, err := NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		replica("m", src, 1, 1),
	}})
	require.NoError(t, err)
	m := r.Markers()[0]

	r.ReportFailure(m, driver.ErrBadConn)
	r.ReportFailure(m, driver.ErrBadConn)
	assert.Equal(t, int32(2), m.Failures())
	assert.Equal(t, 0, r.Available(true))

	r.ReportRecovered(m)
	assert.False(t, m.IsAbnormal())
	assert.Zero(t, m.Failures())
	assert.Equal(t, 1, r.Available(true))
	assert.Equal(t, 1, r.Available(false))
}

func TestReleaseDemotesOnConnectionError(t *testing.T) {
	src, _ := newFakeSource(t)
	r, err := NewShardRouter(ShardDefinition{Name: "ds0", Replicas: []ReplicaDefinition{
		replica("m", src, 1, 1),
	}})
	require.NoError(t, err)

	conn, err := r.Acquire(context.Background(), true)
	require.NoError(t, err)
	require.NoError(t, conn.Release(fmt.Errorf("duplicate key")))
	assert.False(t, conn.Marker().IsAbnormal())

	conn, err = r.Acquire(context.Background(), true)
	require.NoError(t, err)
	require.NoError(t, conn.Release(driver.ErrBadConn))
	assert.True(t, conn.Marker().IsAbnormal())
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(fmt.Errorf("syntax error")))
	assert.True(t, IsConnectionError(driver.ErrBadConn))
	assert.True(t, IsConnectionError(fmt.Errorf("exec: %w", sql.ErrConnDone)))
}

func TestConsistentHashStability(t *testing.T) {
	var markers []*DataSourceMarker
	for i := 0; i < 10; i++ {
		m, err := NewDataSourceMarker("ds0", replica(fmt.Sprintf("r%d", i), &fakeSource{}, 1, 1))
		require.NoError(t, err)
		markers = append(markers, m)
	}
	weight := func(m *DataSourceMarker) int { return m.ReadWeight }
	full := newHashRing(markers, weight, DefaultVirtualNodes)
	removed := markers[3]
	reduced := newHashRing(append(append([]*DataSourceMarker{}, markers[:3]...), markers[4:]...), weight, DefaultVirtualNodes)
	assert.Equal(t, 10, full.Len())
	assert.Equal(t, 9, reduced.Len())

	rnd := rand.New(rand.NewSource(7))
	const samples = 20000
	changed := 0
	for i := 0; i < samples; i++ {
		pos := rnd.Uint64()
		before := full.Locate(pos)
		after := reduced.Locate(pos)
		if before != after {
			changed++
			assert.Same(t, removed, before)
		}
	}
	assert.Less(t, float64(changed)/samples, 0.25)
}

func TestRingWeightsAmplifyShare(t *testing.T) {
	heavy, err := NewDataSourceMarker("ds0", replica("heavy", &fakeSource{}, 3, 0))
	require.NoError(t, err)
	light, err := NewDataSourceMarker("ds0", replica("light", &fakeSource{}, 1, 0))
	require.NoError(t, err)
	ring := newHashRing([]*DataSourceMarker{heavy, light}, func(m *DataSourceMarker) int { return m.ReadWeight }, 64)

	rnd := rand.New(rand.NewSource(11))
	hits := 0
	const samples = 20000
	for i := 0; i < samples; i++ {
		if ring.Locate(rnd.Uint64()) == heavy {
			hits++
		}
	}
	share := float64(hits) / samples
	assert.InDelta(t, 0.75, share, 0.1)
}

func TestRingNextSkipsExcluded(t *testing.T) {
	a, _ := NewDataSourceMarker("ds0", replica("a", &fakeSource{}, 1, 1))
	b, _ := NewDataSourceMarker("ds0", replica("b", &fakeSource{}, 1, 1))
	ring := newHashRing([]*DataSourceMarker{a, b}, func(m *DataSourceMarker) int { return 1 }, 4)

	first := ring.Locate(42)
	require.NotNil(t, first)
	second := ring.Next(42, map[*DataSourceMarker]bool{first: true})
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Nil(t, ring.Next(42, map[*DataSourceMarker]bool{a: true, b: true}))
	assert.Nil(t, newHashRing(nil, func(m *DataSourceMarker) int { return 1 }, 4).Locate(1))
}
