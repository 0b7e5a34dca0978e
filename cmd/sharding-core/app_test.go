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

package main

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/endink/sharding-core/config"
	"github.com/endink/sharding-core/database"
	"github.com/endink/sharding-core/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appYAML = `
sources:
  ds0:
    replicas:
      - name: ds0-master
        endpoint: ds0:3306
  ds1:
    replicas:
      - name: ds1-master
        endpoint: ds1:3306
tables:
  t_order:
    partitions: ds0.t_order_[0-1], ds1.t_order_[2-3]
    columns:
      - name: order_id
        type: long
    rule: order_id % 4
admin:
  listen: 127.0.0.1:0
`

func TestRouteAndScatter(t *testing.T) {
	mgr, err := config.NewManagerFromString(appYAML)
	require.NoError(t, err)

	mocks := make(map[string]sqlmock.Sqlmock)
	open := func(e database.MySQLEndpoint, _ database.PoolConfig) (database.DataSource, error) {
		db, mock, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		mocks[e.Address] = mock
		return db, nil
	}

	a, err := newApp(mgr.Settings(), open, prometheus.NewRegistry())
	require.NoError(t, err)
	_, err = a.start(context.Background(), mgr.Settings().Admin.Listen)
	require.NoError(t, err)

	result, err := a.router.RouteRow("t_order", map[string]interface{}{"order_id": 7})
	require.NoError(t, err)
	require.Len(t, result.Selected(), 1)
	target := result.Selected()[0]
	assert.Equal(t, "ds1", target.Shard)

	mocks["ds1:3306"].ExpectExec("UPDATE t_order_3").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	affected, err := a.scatter.ExecuteUpdate(context.Background(), []*server.BoundQuery{
		server.NewBoundQuery(target, "UPDATE "+target.CompositeName()+" SET status = 1 WHERE order_id = ?", 7),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	for _, mock := range mocks {
		mock.ExpectClose()
	}
	require.NoError(t, a.close())
	for addr, mock := range mocks {
		assert.NoError(t, mock.ExpectationsWereMet(), addr)
	}
}

func TestNewAppRejectsBadRules(t *testing.T) {
	mgr, err := config.NewManagerFromString(`
tables:
  t_order:
    partitions: ds0.t_order_[0-1]
    columns:
      - name: order_id
    rule: order_id % 2 +
`)
	require.NoError(t, err)
	_, err = newApp(mgr.Settings(), config.MySQLOpener, prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestConfigFileList(t *testing.T) {
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, configFileList(" a.yaml,b.yaml, ,a.yaml"))
	assert.Empty(t, configFileList(" , "))
}
