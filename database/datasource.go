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
	"fmt"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/logging"
	"go.uber.org/atomic"
)

var log = logging.GetLogger("database")

// DataSource is one physical endpoint, *sql.DB satisfies it.
type DataSource interface {
	Conn(ctx context.Context) (*sql.Conn, error)
	Close() error
}

// ReplicaDefinition is one replica of a shard as configured.
type ReplicaDefinition struct {
	Name        string
	Source      DataSource
	Readable    bool
	Writable    bool
	ReadWeight  int
	WriteWeight int
}

// ShardDefinition lists the replicas of one shard in configuration order.
type ShardDefinition struct {
	Name     string
	Replicas []ReplicaDefinition
}

// DataSourceMarker tracks the health of one replica. Only the failure
// counter, the abnormal flag and the last error change after construction.
type DataSourceMarker struct {
	Shard       string
	Name        string
	Readable    bool
	Writable    bool
	ReadWeight  int
	WriteWeight int

	source    DataSource
	failures  atomic.Int32
	abnormal  atomic.Bool
	lastError atomic.Error
}

func NewDataSourceMarker(shard string, def ReplicaDefinition) (*DataSourceMarker, error) {
	if def.Name == "" {
		return nil, core.NewConfigError(shard, "replica name can not be empty")
	}
	if def.Source == nil {
		return nil, core.NewConfigError(shard, "replica '%s' has no data source", def.Name)
	}
	if def.ReadWeight < 0 || def.WriteWeight < 0 {
		return nil, core.NewConfigError(shard, "replica '%s' has a negative weight", def.Name)
	}
	if !def.Readable && !def.Writable {
		return nil, core.NewConfigError(shard, "replica '%s' is neither readable nor writable", def.Name)
	}
	return &DataSourceMarker{
		Shard:       shard,
		Name:        def.Name,
		Readable:    def.Readable,
		Writable:    def.Writable,
		ReadWeight:  def.ReadWeight,
		WriteWeight: def.WriteWeight,
		source:      def.Source,
	}, nil
}

func (m *DataSourceMarker) Source() DataSource {
	return m.source
}

// ReadOnly reports a replica that never takes writes.
func (m *DataSourceMarker) ReadOnly() bool {
	return !m.Writable
}

// IsReadable reports membership in the read ring when healthy.
func (m *DataSourceMarker) IsReadable() bool {
	return m.Readable && m.ReadWeight > 0
}

// IsWritable reports membership in the write ring when healthy.
func (m *DataSourceMarker) IsWritable() bool {
	return m.Writable && m.WriteWeight > 0
}

func (m *DataSourceMarker) Failures() int32 {
	return m.failures.Load()
}

func (m *DataSourceMarker) IsAbnormal() bool {
	return m.abnormal.Load()
}

func (m *DataSourceMarker) LastError() error {
	return m.lastError.Load()
}

func (m *DataSourceMarker) String() string {
	return fmt.Sprintf("%s/%s", m.Shard, m.Name)
}
