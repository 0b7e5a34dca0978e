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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRuleColumnEquality(t *testing.T) {
	a := NewRuleColumn("Order_ID", true, ValueTypeLong)
	b := NewRuleColumn("order_id", true, ValueTypeLong)
	assert.True(t, a.Equals(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equals(NewRuleColumn("order_id", false, ValueTypeLong)))
}

func TestRuleColumnCoerce(t *testing.T) {
	v, err := NewRuleColumn("id", true, ValueTypeLong).Coerce("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = NewRuleColumn("id", true, ValueTypeLong).Coerce(7.0)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = NewRuleColumn("id", true, ValueTypeLong).Coerce(7.5)
	assert.Error(t, err)

	v, err = NewRuleColumn("name", true, ValueTypeString).Coerce([]byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, "abc", v)

	v, err = NewRuleColumn("d", true, ValueTypeDate).Coerce("2021-03-04")
	assert.NoError(t, err)
	assert.Equal(t, time.March, v.(time.Time).Month())

	v, err = NewRuleColumn("x", false, ValueTypeAny).Coerce(nil)
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestParseValueType(t *testing.T) {
	vt, err := ParseValueType("BIGINT")
	assert.NoError(t, err)
	assert.Equal(t, ValueTypeLong, vt)
	_, err = ParseValueType("blob")
	assert.Error(t, err)
}

func TestRuleExpressionEquals(t *testing.T) {
	a := NewRuleExpression("h(id)", NewRuleColumn("id", true, ValueTypeAny))
	b := NewRuleExpression("h(id)", NewRuleColumn("ID", true, ValueTypeAny))
	assert.True(t, a.Equals(b))
	b.Function = "h"
	assert.False(t, a.Equals(b))
	c, ok := a.Column("Id")
	assert.True(t, ok)
	assert.Equal(t, "id", c.Name)
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b interface{}
		want int
	}{
		{1, int64(1), 0},
		{1, 1.5, -1},
		{uint8(9), -3, 1},
		{"b", "a", 1},
		{"10", 9, 1},
		{nil, 0, -1},
		{time.Unix(10, 0), "5", 1},
	}
	for _, c := range cases {
		got, err := Compare(c.a, c.b)
		assert.NoError(t, err)
		assert.Equal(t, c.want, got, "%v vs %v", c.a, c.b)
	}
	_, err := Compare("abc", 1)
	assert.Error(t, err)
}

func TestErrorsClassification(t *testing.T) {
	err := NewConfigError("ds", "bad %s", "value")
	assert.True(t, IsConfigError(err))
	assert.False(t, IsRoutingError(err))
	assert.Contains(t, err.Error(), "(ds): bad value")

	var unavailable error = &DataSourceUnavailableError{Shard: "ds0", Tried: []string{"r1"}}
	assert.True(t, IsNoAvailableDataSource(unavailable))
	assert.False(t, IsNodeExecutionError(unavailable))

	nodeErr := NewNodeExecutionError(NewTableNode("ds0", "t", ""), "select 1", unavailable)
	assert.True(t, IsNodeExecutionError(nodeErr))
	assert.True(t, IsNoAvailableDataSource(nodeErr))
	assert.Nil(t, NewNodeExecutionError(TableNode{}, "", nil))
}
