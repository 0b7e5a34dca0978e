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

package routing

// Condition is one predicate on a column, conditions passed together are
// combined with AND.
type Condition interface {
	column() string
}

// Equal is "column = value".
type Equal struct {
	Column string
	Value  interface{}
}

// In is "column IN (values)", sub-selects must already be materialized.
// An empty list binds nothing.
type In struct {
	Column string
	Values []interface{}
}

// Between is "column BETWEEN begin AND end", a nil bound is open.
type Between struct {
	Column string
	Begin  interface{}
	End    interface{}
}

func (c Equal) column() string   { return c.Column }
func (c In) column() string      { return c.Column }
func (c Between) column() string { return c.Column }
