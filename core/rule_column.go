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
)

type ValueType int

const (
	ValueTypeAny ValueType = iota
	ValueTypeInt
	ValueTypeLong
	ValueTypeFloat
	ValueTypeString
	ValueTypeDate
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeInt:
		return "int"
	case ValueTypeLong:
		return "long"
	case ValueTypeFloat:
		return "float"
	case ValueTypeString:
		return "string"
	case ValueTypeDate:
		return "date"
	}
	return "any"
}

func ParseValueType(s string) (ValueType, error) {
	switch TrimAndLower(s) {
	case "", "any":
		return ValueTypeAny, nil
	case "int", "integer", "int32":
		return ValueTypeInt, nil
	case "long", "bigint", "int64":
		return ValueTypeLong, nil
	case "float", "double", "decimal", "float64":
		return ValueTypeFloat, nil
	case "string", "varchar", "char", "text":
		return ValueTypeString, nil
	case "date", "datetime", "timestamp", "time":
		return ValueTypeDate, nil
	}
	return ValueTypeAny, fmt.Errorf("unknown rule column type '%s'", s)
}

// RuleColumn is a predicate column a rule expression reads. Names are case
// insensitive.
type RuleColumn struct {
	Name     string
	Required bool
	Type     ValueType
}

func NewRuleColumn(name string, required bool, valueType ValueType) *RuleColumn {
	return &RuleColumn{Name: strings.TrimSpace(name), Required: required, Type: valueType}
}

func (c *RuleColumn) Key() string {
	return TrimAndLower(c.Name)
}

func (c *RuleColumn) Equals(other *RuleColumn) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Key() == other.Key() && c.Required == other.Required && c.Type == other.Type
}

func (c *RuleColumn) String() string {
	if c.Required {
		return fmt.Sprintf("%s(%s,required)", c.Name, c.Type)
	}
	return fmt.Sprintf("%s(%s)", c.Name, c.Type)
}

// Coerce converts a bound value to the declared column type, nil passes through.
func (c *RuleColumn) Coerce(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case ValueTypeInt:
		i, err := ToInt64(v)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %v", c.Name, err)
		}
		return int64(int32(i)), nil
	case ValueTypeLong:
		i, err := ToInt64(v)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %v", c.Name, err)
		}
		return i, nil
	case ValueTypeFloat:
		f, err := ToFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %v", c.Name, err)
		}
		return f, nil
	case ValueTypeString:
		return ToString(v), nil
	case ValueTypeDate:
		t, err := ToTime(v)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %v", c.Name, err)
		}
		return t, nil
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return v, nil
}
