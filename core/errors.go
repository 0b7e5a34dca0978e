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

package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoAvailableDataSource is matched (errors.Is) by every connection
// acquisition failure.
var ErrNoAvailableDataSource = errors.New("no available datasource")

// ConfigError is raised while loading rules or shard definitions.
type ConfigError struct {
	Source  string
	Message string
	cause   error
}

func NewConfigError(source string, format string, args ...interface{}) error {
	return errors.WithStack(&ConfigError{Source: source, Message: fmt.Sprintf(format, args...)})
}

func WrapConfigError(err error, source string, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&ConfigError{Source: source, Message: fmt.Sprintf(format, args...), cause: err})
}

func (e *ConfigError) Error() string {
	sb := NewStringBuilder("configuration error")
	if e.Source != "" {
		sb.WriteFormat(" (%s)", e.Source)
	}
	sb.Write(": ", e.Message)
	if e.cause != nil {
		sb.Write(": ", e.cause.Error())
	}
	return sb.String()
}

func (e *ConfigError) Unwrap() error { return e.cause }

// RuleEvaluationError means a rule expression produced a value that does not
// identify a partition of its table.
type RuleEvaluationError struct {
	Table      string
	Expression string
	Values     map[string]interface{}
	Message    string
	cause      error
}

func NewRuleEvaluationError(table, expression string, values map[string]interface{}, format string, args ...interface{}) error {
	return errors.WithStack(&RuleEvaluationError{
		Table:      table,
		Expression: expression,
		Values:     values,
		Message:    fmt.Sprintf(format, args...),
	})
}

func WrapRuleEvaluationError(err error, table, expression string, values map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&RuleEvaluationError{
		Table:      table,
		Expression: expression,
		Values:     values,
		Message:    "evaluate failed",
		cause:      err,
	})
}

func (e *RuleEvaluationError) Error() string {
	sb := NewStringBuilder()
	sb.WriteFormat("rule evaluation error on table '%s': %s", e.Table, e.Message)
	if e.cause != nil {
		sb.Write(": ", e.cause.Error())
	}
	sb.WriteLine()
	sb.WriteFormat("expression: %s", e.Expression)
	if len(e.Values) > 0 {
		sb.WriteLine()
		sb.WriteFormat("values: %v", e.Values)
	}
	return sb.String()
}

func (e *RuleEvaluationError) Unwrap() error { return e.cause }

// RoutingError is a deterministic per-request routing failure such as a
// self-contradictory range.
type RoutingError struct {
	Table   string
	Message string
}

func NewRoutingError(table string, format string, args ...interface{}) error {
	return errors.WithStack(&RoutingError{Table: table, Message: fmt.Sprintf(format, args...)})
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing error on table '%s': %s", e.Table, e.Message)
}

// NodeExecutionError carries the node and statement that failed during a
// scatter-gather call.
type NodeExecutionError struct {
	Node      TableNode
	Statement string
	cause     error
}

func NewNodeExecutionError(node TableNode, statement string, err error) error {
	if err == nil {
		return nil
	}
	return &NodeExecutionError{Node: node, Statement: statement, cause: err}
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("execute on node '%s' failed: %v%sstatement: %s", e.Node, e.cause, LineSeparator, abbreviate(e.Statement, 256))
}

func (e *NodeExecutionError) Unwrap() error { return e.cause }

func (e *NodeExecutionError) Cause() error { return e.cause }

// DataSourceUnavailableError is returned when every replica of the requested
// class has been tried or is abnormal.
type DataSourceUnavailableError struct {
	Shard    string
	ReadOnly bool
	Tried    []string
	Last     error
}

func (e *DataSourceUnavailableError) Error() string {
	kind := "writable"
	if e.ReadOnly {
		kind = "readable"
	}
	sb := NewStringBuilder()
	sb.WriteFormat("%s: no %s replica of shard '%s' is reachable", ErrNoAvailableDataSource.Error(), kind, e.Shard)
	if len(e.Tried) > 0 {
		sb.WriteFormat(", tried: %s", strings.Join(e.Tried, ", "))
	}
	if e.Last != nil {
		sb.WriteFormat(", last error: %v", e.Last)
	}
	return sb.String()
}

func (e *DataSourceUnavailableError) Is(target error) bool {
	return target == ErrNoAvailableDataSource
}

func (e *DataSourceUnavailableError) Unwrap() error { return e.Last }

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsRuleEvaluationError(err error) bool {
	var target *RuleEvaluationError
	return errors.As(err, &target)
}

func IsRoutingError(err error) bool {
	var target *RoutingError
	return errors.As(err, &target)
}

func IsNodeExecutionError(err error) bool {
	var target *NodeExecutionError
	return errors.As(err, &target)
}

func IsNoAvailableDataSource(err error) bool {
	return errors.Is(err, ErrNoAvailableDataSource)
}

func abbreviate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
