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

import "strings"

// RuleExpression is the source text of a sharding rule and the columns it
// reads. Function names the partition algorithm when the whole expression is
// a single call of one algorithm over one column, e.g. "order_hash(order_id)".
type RuleExpression struct {
	Text     string
	Columns  []*RuleColumn
	Function string
}

func NewRuleExpression(text string, columns ...*RuleColumn) *RuleExpression {
	return &RuleExpression{Text: strings.TrimSpace(text), Columns: columns}
}

func (e *RuleExpression) Column(name string) (*RuleColumn, bool) {
	key := TrimAndLower(name)
	for _, c := range e.Columns {
		if c.Key() == key {
			return c, true
		}
	}
	return nil, false
}

func (e *RuleExpression) Equals(other *RuleExpression) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Text != other.Text || e.Function != other.Function || len(e.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range e.Columns {
		if !c.Equals(other.Columns[i]) {
			return false
		}
	}
	return true
}

func (e *RuleExpression) String() string {
	return e.Text
}
