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
	"time"
)

// Settings is the whole configuration file.
type Settings struct {
	Sources     map[string]*ShardSettings     `yaml:"sources"`
	Pool        PoolSettings                  `yaml:"pool"`
	Algorithms  map[string]*AlgorithmSettings `yaml:"algorithms"`
	Tables      map[string]*TableSettings     `yaml:"tables"`
	HealthCheck HealthCheckSettings           `yaml:"health-check"`
	Executor    ExecutorSettings              `yaml:"executor"`
	Routing     RoutingSettings               `yaml:"routing"`
	Admin       AdminSettings                 `yaml:"admin"`
	Logging     LoggingSettings               `yaml:"logging"`
}

type ShardSettings struct {
	Replicas []*ReplicaSettings `yaml:"replicas"`
}

// ReplicaSettings is one MySQL endpoint of a shard. A replica is readable
// and writable with weight 1 unless told otherwise.
type ReplicaSettings struct {
	Name        string            `yaml:"name"`
	Endpoint    string            `yaml:"endpoint"`
	Schema      string            `yaml:"schema"`
	Username    string            `yaml:"username"`
	Password    string            `yaml:"password"`
	Params      map[string]string `yaml:"params"`
	Read        *bool             `yaml:"read"`
	Write       *bool             `yaml:"write"`
	ReadWeight  *int              `yaml:"read-weight"`
	WriteWeight *int              `yaml:"write-weight"`
}

type PoolSettings struct {
	MaxOpen     int           `yaml:"max-open"`
	MaxIdle     int           `yaml:"max-idle"`
	IdleTimeout time.Duration `yaml:"idle-timeout"`
	MaxLifetime time.Duration `yaml:"max-lifetime"`
	DialTimeout time.Duration `yaml:"dial-timeout"`
}

// AlgorithmSettings declares a named partition function, props are decoded
// into the typed config of its kind.
type AlgorithmSettings struct {
	Type  string                 `yaml:"type"`
	Props map[string]interface{} `yaml:"props"`
}

// TableSettings is the sharding rule of one logical table. Two level tables
// use shard-rule and suffix-rule, the others use rule alone.
type TableSettings struct {
	Partitions string            `yaml:"partitions"`
	Columns    []*ColumnSettings `yaml:"columns"`
	Rule       string            `yaml:"rule"`
	ShardRule  string            `yaml:"shard-rule"`
	SuffixRule string            `yaml:"suffix-rule"`
}

type ColumnSettings struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required *bool  `yaml:"required"`
}

type HealthCheckSettings struct {
	Query    string        `yaml:"query"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ExecutorSettings struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

type RoutingSettings struct {
	EnumerationLimit int `yaml:"enumeration-limit"`
	MaxCombinations  int `yaml:"max-combinations"`
}

type AdminSettings struct {
	Listen string `yaml:"listen"`
}

type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
