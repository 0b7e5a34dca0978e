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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/database"
	"github.com/endink/sharding-core/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const TestYAML = `
sources:
  ds0:
    replicas:
      - name: master
        endpoint: localhost:3306
        schema: test_db
        username: root
      - name: slave
        endpoint: localhost:3307
        schema: test_db
        username: root
        write: false
        read-weight: 2
  ds1:
    replicas:
      - endpoint: localhost:3308
        schema: test_db
        username: root
        params:
          charset: utf8mb4

algorithms:
  order_hash:
    type: hash
    props:
      count: [4]
      length: [256]

tables:
  t_order:
    partitions: ds0.t_order_[0-1], ds1.t_order_[2-3]
    columns:
      - name: order_id
        type: long
    rule: order_hash(order_id)
  t_order_item:
    partitions: ds[0-1].t_order_item_[0-1]
    columns:
      - name: user_id
        type: long
      - name: order_id
        type: long
        required: false
    shard-rule: mod(user_id, 2)
    suffix-rule: str(mod(order_id, 2))

health-check:
  query: SELECT 2
  interval: 5s

executor:
  workers: 8
  timeout: 3s

routing:
  enumeration-limit: 50

admin:
  listen: ":9090"

logging:
  level: debug
  format: json
`

func newTestManager(t *testing.T, yaml string) *Manager {
	m, err := NewManagerFromString(yaml)
	require.NoError(t, err, "create config manager fault")
	return m
}

func TestLoadSettings(t *testing.T) {
	s := newTestManager(t, TestYAML).Settings()

	assert.Len(t, s.Sources, 2)
	assert.Len(t, s.Sources["ds0"].Replicas, 2)
	assert.Equal(t, "order_hash(order_id)", s.Tables["t_order"].Rule)
	assert.Equal(t, 5*time.Second, s.HealthCheck.Interval)
	assert.Equal(t, 3*time.Second, s.Executor.Timeout)
	assert.Equal(t, 8, s.Executor.Workers)
	assert.Equal(t, 50, s.Routing.EnumerationLimit)
	assert.Equal(t, ":9090", s.Admin.Listen)
	assert.Equal(t, "json", s.Logging.Format)

	health := s.HealthCheckConfig()
	assert.Equal(t, "SELECT 2", health.ValidationQuery)
	assert.Equal(t, 5*time.Second, health.Interval)
}

func TestBuildRouter(t *testing.T) {
	s := newTestManager(t, TestYAML).Settings()
	router, err := s.BuildRouter(telemetry.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"t_order", "t_order_item"}, router.Tables())

	order, ok := router.Table("t_order")
	require.True(t, ok)
	assert.Len(t, order.Partitions, 4)
	assert.Equal(t, "order_hash", order.Rule.Function)

	r, err := router.RouteRow("t_order", map[string]interface{}{"order_id": 42})
	require.NoError(t, err)
	assert.Len(t, r.Selected(), 1)

	r, err = router.RouteRow("t_order_item", map[string]interface{}{"user_id": 3, "order_id": 4})
	require.NoError(t, err)
	require.Len(t, r.Selected(), 1)
	assert.Equal(t, core.NewTableNode("ds1", "t_order_item_", "0"), r.Selected()[0])

	r, err = router.RouteRow("t_order_item", map[string]interface{}{"order_id": 4})
	require.NoError(t, err)
	assert.True(t, r.IsFullNode())
}

func TestValidationCollectsAllErrors(t *testing.T) {
	_, err := NewManagerFromString(`
sources:
  ds0:
    replicas:
      - name: master
  ds1: {}
algorithms:
  broken:
    type: modulo
tables:
  t_order:
    columns:
      - name: order_id
        type: bogus
logging:
  format: xml
`)
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
	for _, msg := range []string{
		"replica #0 of shard 'ds0' has no endpoint",
		"shard 'ds1' has no replica",
		"unknown type 'modulo'",
		"table 't_order' has no partitions",
		"table 't_order' has no rule",
		"unknown rule column type 'bogus'",
		"bad log format",
	} {
		assert.Contains(t, err.Error(), msg)
	}
}

func TestBuildTablesErrors(t *testing.T) {
	cases := map[string]string{
		"undefined shard": `
sources:
  ds0:
    replicas:
      - endpoint: localhost:3306
tables:
  t:
    partitions: ds9.t_[0-1]
    columns: [{name: id}]
    rule: mod(id, 2)
`,
		"undeclared column": `
tables:
  t:
    partitions: ds0.t_[0-1]
    columns: [{name: id}]
    rule: mod(user_id, 2)
`,
		"unused column": `
tables:
  t:
    partitions: ds0.t_[0-1]
    columns: [{name: id}, {name: user_id}]
    rule: mod(id, 2)
`,
		"bad partitions": `
tables:
  t:
    partitions: ds0.t_[3-1]
    columns: [{name: id}]
    rule: mod(id, 2)
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestManager(t, yaml).Settings()
			_, err := s.BuildRouter(nil)
			require.Error(t, err)
			assert.True(t, core.IsConfigError(err), err.Error())
		})
	}
}

func TestBuildRegistryErrors(t *testing.T) {
	s := newTestManager(t, `
algorithms:
  bad_hash:
    type: hash
    props:
      count: [3]
      length: [256]
`).Settings()
	_, err := s.BuildRegistry()
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
	assert.Contains(t, err.Error(), "bad_hash")
}

type closeRecorder struct {
	database.DataSource
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestShardDefinitions(t *testing.T) {
	s := newTestManager(t, TestYAML).Settings()
	var endpoints []database.MySQLEndpoint
	defs, err := s.ShardDefinitions(func(e database.MySQLEndpoint, _ database.PoolConfig) (database.DataSource, error) {
		endpoints = append(endpoints, e)
		return &closeRecorder{}, nil
	})
	require.NoError(t, err)
	require.Len(t, defs, 2)

	master, slave := defs[0].Replicas[0], defs[0].Replicas[1]
	assert.Equal(t, "master", master.Name)
	assert.True(t, master.Writable)
	assert.Equal(t, 1, master.ReadWeight)
	assert.False(t, slave.Writable)
	assert.Zero(t, slave.WriteWeight)
	assert.Equal(t, 2, slave.ReadWeight)
	assert.Equal(t, "localhost:3308", defs[1].Replicas[0].Name)
	assert.Equal(t, "utf8mb4", endpoints[2].Params["charset"])

	var opened []*closeRecorder
	calls := 0
	_, err = s.ShardDefinitions(func(e database.MySQLEndpoint, _ database.PoolConfig) (database.DataSource, error) {
		calls++
		if calls == 2 {
			return nil, os.ErrPermission
		}
		r := &closeRecorder{}
		opened = append(opened, r)
		return r, nil
	})
	require.Error(t, err)
	for _, r := range opened {
		assert.True(t, r.closed)
	}
}

func TestNewManagerFromFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	override := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(base, []byte(TestYAML), 0o600))
	require.NoError(t, os.WriteFile(override, []byte("admin:\n  listen: \":7070\"\n"), 0o600))

	m, err := NewManagerFromFiles(base, filepath.Join(dir, "missing.yaml"), override)
	require.NoError(t, err)
	assert.Equal(t, []string{base, override}, m.Files())
	assert.Equal(t, ":7070", m.Settings().Admin.Listen)
	assert.Len(t, m.Settings().Tables, 2)

	_, err = NewManagerFromFiles(filepath.Join(dir, "missing.yaml"))
	assert.True(t, core.IsConfigError(err))
}

func TestDefaultConfigFileLocations(t *testing.T) {
	files := DefaultConfigFileLocations()
	require.NotEmpty(t, files)
	assert.Equal(t, "config.yaml", filepath.Base(files[len(files)-1]))
}
