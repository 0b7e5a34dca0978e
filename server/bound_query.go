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
	"fmt"

	"github.com/endink/sharding-core/core"
)

// BoundQuery is a statement already translated for one physical node with
// its positional parameters.
type BoundQuery struct {
	Node          core.TableNode
	Sql           string
	BindVariables []interface{}
	// ReadOnly sends the statement to a readable replica.
	ReadOnly bool
}

func NewBoundQuery(node core.TableNode, sql string, args ...interface{}) *BoundQuery {
	return &BoundQuery{Node: node, Sql: sql, BindVariables: args}
}

func (q *BoundQuery) String() string {
	return fmt.Sprintf("%s: %s %v", q.Node, q.Sql, q.BindVariables)
}

// Result is the raw outcome of one BoundQuery. Rows are only filled for
// queries, RowsAffected and LastInsertID only for updates.
type Result struct {
	Node         core.TableNode
	Columns      []string
	Rows         [][]interface{}
	RowsAffected int64
	LastInsertID int64
}
