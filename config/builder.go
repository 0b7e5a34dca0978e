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
	"strings"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/core/partition"
	"github.com/endink/sharding-core/core/script"
	"github.com/endink/sharding-core/database"
	"github.com/endink/sharding-core/routing"
	"github.com/endink/sharding-core/telemetry"
	"go.uber.org/multierr"
)

// Opener creates the data source of one replica.
type Opener func(endpoint database.MySQLEndpoint, pool database.PoolConfig) (database.DataSource, error)

// MySQLOpener opens replicas through go-sql-driver/mysql.
func MySQLOpener(endpoint database.MySQLEndpoint, pool database.PoolConfig) (database.DataSource, error) {
	return database.OpenMySQL(endpoint, pool)
}

// BuildRegistry creates every configured partition algorithm.
func (s *Settings) BuildRegistry() (*script.Registry, error) {
	registry := script.NewRegistry()
	var errs error
	for _, name := range sortedKeys(s.Algorithms) {
		a := s.Algorithms[name]
		props, err := core.NewPropertiesFromMap(a.Props)
		if err != nil {
			errs = multierr.Append(errs, core.WrapConfigError(err, "algorithms", "bad properties of algorithm '%s'", name))
			continue
		}
		fn, err := partition.New(a.Type, props)
		if err != nil {
			errs = multierr.Append(errs, core.WrapConfigError(err, "algorithms", "algorithm '%s'", name))
			continue
		}
		errs = multierr.Append(errs, registry.Register(name, fn))
	}
	if errs != nil {
		return nil, errs
	}
	return registry, nil
}

// BuildTables creates the table routers, rule expressions are bound to the
// algorithms of registry.
func (s *Settings) BuildTables(registry *script.Registry) ([]*core.TableRouter, error) {
	var tables []*core.TableRouter
	var errs error
	for _, name := range sortedKeys(s.Tables) {
		t, err := s.buildTable(name, s.Tables[name], registry)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		tables = append(tables, t)
	}
	if errs != nil {
		return nil, errs
	}
	return tables, nil
}

func (s *Settings) buildTable(name string, t *TableSettings, registry *script.Registry) (*core.TableRouter, error) {
	partitions, err := script.ParsePartitionSpec(t.Partitions, name)
	if err != nil {
		return nil, err
	}
	if len(s.Sources) > 0 {
		for _, n := range partitions {
			if _, ok := s.Sources[n.Shard]; !ok {
				return nil, core.NewConfigError(name, "partition '%s' uses undefined shard '%s'", n, n.Shard)
			}
		}
	}

	columns := make(map[string]*core.RuleColumn, len(t.Columns))
	for _, c := range t.Columns {
		valueType, err := core.ParseValueType(c.Type)
		if err != nil {
			return nil, core.WrapConfigError(err, name, "column '%s'", c.Name)
		}
		col := core.NewRuleColumn(c.Name, boolOr(c.Required, true), valueType)
		columns[col.Key()] = col
	}

	used := make(map[string]bool, len(columns))
	ruleText := core.IfBlankAndTrim(t.ShardRule, t.Rule)
	rule, err := bindRule(name, ruleText, columns, used, registry)
	if err != nil {
		return nil, err
	}
	var suffixRule *core.RuleExpression
	if strings.TrimSpace(t.SuffixRule) != "" {
		if suffixRule, err = bindRule(name, t.SuffixRule, columns, used, registry); err != nil {
			return nil, err
		}
	}
	for key, c := range columns {
		if !used[key] {
			return nil, core.NewConfigError(name, "column '%s' is not read by any rule", c.Name)
		}
	}
	return core.NewTableRouter(name, partitions, rule, suffixRule, registry)
}

// bindRule attaches to the expression the declared columns it reads.
func bindRule(table string, text string, columns map[string]*core.RuleColumn, used map[string]bool, registry *script.Registry) (*core.RuleExpression, error) {
	text = strings.TrimSpace(text)
	compiled, err := registry.Compile(text)
	if err != nil {
		return nil, core.WrapConfigError(err, table, "bad rule")
	}
	var cols []*core.RuleColumn
	for _, v := range compiled.Vars() {
		key := core.TrimAndLower(v)
		c, ok := columns[key]
		if !ok {
			return nil, core.NewConfigError(table, "rule '%s' reads undeclared column '%s'", text, v)
		}
		if !containsColumn(cols, c) {
			cols = append(cols, c)
		}
		used[key] = true
	}
	expr := core.NewRuleExpression(text, cols...)
	if err = registry.Bind(expr); err != nil {
		return nil, err
	}
	return expr, nil
}

func containsColumn(cols []*core.RuleColumn, c *core.RuleColumn) bool {
	for _, col := range cols {
		if col == c {
			return true
		}
	}
	return false
}

// BuildRouter wires registry, evaluator, calculator and table routers.
func (s *Settings) BuildRouter(metrics *telemetry.Metrics) (*routing.Router, error) {
	registry, err := s.BuildRegistry()
	if err != nil {
		return nil, err
	}
	tables, err := s.BuildTables(registry)
	if err != nil {
		return nil, err
	}
	calculator := routing.NewCalculator(script.NewEvaluator(registry), routing.WithMaxCombinations(s.Routing.MaxCombinations))
	return routing.NewRouter(calculator, tables,
		routing.WithEnumerationLimit(s.Routing.EnumerationLimit),
		routing.WithMetrics(metrics),
	)
}

// ShardDefinitions opens every replica with open. Replicas already opened
// are closed again when a later one fails.
func (s *Settings) ShardDefinitions(open Opener) ([]database.ShardDefinition, error) {
	pool := database.PoolConfig{
		MaxOpen:     s.Pool.MaxOpen,
		MaxIdle:     s.Pool.MaxIdle,
		IdleTimeout: s.Pool.IdleTimeout,
		MaxLifetime: s.Pool.MaxLifetime,
	}
	var defs []database.ShardDefinition
	var opened []database.DataSource
	var errs error
	for _, shard := range sortedKeys(s.Sources) {
		def := database.ShardDefinition{Name: shard}
		for i, r := range s.Sources[shard].Replicas {
			source, err := open(database.MySQLEndpoint{
				Address:  r.Endpoint,
				User:     r.Username,
				Password: r.Password,
				Schema:   r.Schema,
				Params:   r.Params,
				Timeout:  s.Pool.DialTimeout,
			}, pool)
			if err != nil {
				errs = multierr.Append(errs, core.WrapConfigError(err, "sources", "open replica #%d of shard '%s'", i, shard))
				continue
			}
			opened = append(opened, source)
			read, write := boolOr(r.Read, true), boolOr(r.Write, true)
			def.Replicas = append(def.Replicas, database.ReplicaDefinition{
				Name:        core.IfBlankAndTrim(r.Name, r.Endpoint),
				Source:      source,
				Readable:    read,
				Writable:    write,
				ReadWeight:  weight(read, r.ReadWeight),
				WriteWeight: weight(write, r.WriteWeight),
			})
		}
		defs = append(defs, def)
	}
	if errs != nil {
		for _, source := range opened {
			errs = multierr.Append(errs, source.Close())
		}
		return nil, errs
	}
	return defs, nil
}

func weight(enabled bool, w *int) int {
	if !enabled {
		return 0
	}
	return intOr(w, 1)
}

func (s *Settings) HealthCheckConfig() database.HealthCheckConfig {
	return database.HealthCheckConfig{
		ValidationQuery: s.HealthCheck.Query,
		Interval:        s.HealthCheck.Interval,
		Timeout:         s.HealthCheck.Timeout,
	}
}
