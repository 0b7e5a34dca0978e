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
	"sort"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/core/partition"
	"github.com/endink/sharding-core/logging"
	"go.uber.org/multierr"
)

// Validate checks what can be checked without building anything, every
// violation is reported.
func (s *Settings) Validate() error {
	var errs error
	for _, name := range sortedKeys(s.Sources) {
		errs = multierr.Append(errs, validateShard(name, s.Sources[name]))
	}
	for _, name := range sortedKeys(s.Algorithms) {
		a := s.Algorithms[name]
		if a == nil || a.Type == "" {
			errs = multierr.Append(errs, core.NewConfigError("algorithms", "algorithm '%s' has no type", name))
			continue
		}
		if !knownKind(a.Type) {
			errs = multierr.Append(errs, core.NewConfigError("algorithms", "algorithm '%s' has unknown type '%s', supported: %v", name, a.Type, partition.Kinds))
		}
	}
	for _, name := range sortedKeys(s.Tables) {
		errs = multierr.Append(errs, validateTable(name, s.Tables[name]))
	}
	if s.Executor.Workers < 0 {
		errs = multierr.Append(errs, core.NewConfigError("executor", "workers can not be negative"))
	}
	if s.Routing.EnumerationLimit < 0 || s.Routing.MaxCombinations < 0 {
		errs = multierr.Append(errs, core.NewConfigError("routing", "limits can not be negative"))
	}
	if _, err := logging.ParseLogFormat(s.Logging.Format); err != nil {
		errs = multierr.Append(errs, core.WrapConfigError(err, "logging", "bad log format"))
	}
	return errs
}

func validateShard(name string, shard *ShardSettings) error {
	if err := core.ValidateIdentifier(name); err != nil {
		return core.WrapConfigError(err, "sources", "invalid shard name")
	}
	if shard == nil || len(shard.Replicas) == 0 {
		return core.NewConfigError("sources", "shard '%s' has no replica", name)
	}
	var errs error
	for i, r := range shard.Replicas {
		if r == nil || r.Endpoint == "" {
			errs = multierr.Append(errs, core.NewConfigError("sources", "replica #%d of shard '%s' has no endpoint", i, name))
		}
	}
	return errs
}

func validateTable(name string, t *TableSettings) error {
	if t == nil {
		return core.NewConfigError("tables", "table '%s' is empty", name)
	}
	var errs error
	if t.Partitions == "" {
		errs = multierr.Append(errs, core.NewConfigError("tables", "table '%s' has no partitions", name))
	}
	if t.SuffixRule == "" && t.Rule == "" && t.ShardRule == "" {
		errs = multierr.Append(errs, core.NewConfigError("tables", "table '%s' has no rule", name))
	}
	if t.SuffixRule != "" && t.Rule != "" && t.ShardRule != "" {
		errs = multierr.Append(errs, core.NewConfigError("tables", "table '%s' sets both rule and shard-rule", name))
	}
	if len(t.Columns) == 0 {
		errs = multierr.Append(errs, core.NewConfigError("tables", "table '%s' declares no rule column", name))
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c == nil || c.Name == "" {
			errs = multierr.Append(errs, core.NewConfigError("tables", "table '%s' has a column without name", name))
			continue
		}
		key := core.TrimAndLower(c.Name)
		if _, dup := seen[key]; dup {
			errs = multierr.Append(errs, core.NewConfigError("tables", "table '%s' declares column '%s' twice", name, c.Name))
		}
		seen[key] = core.Nothing
		if _, err := core.ParseValueType(c.Type); err != nil {
			errs = multierr.Append(errs, core.WrapConfigError(err, "tables", "column '%s' of table '%s'", c.Name, name))
		}
	}
	return errs
}

func knownKind(kind string) bool {
	for _, k := range partition.Kinds {
		if string(k) == core.TrimAndLower(kind) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
