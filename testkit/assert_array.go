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

package testkit

import (
	"fmt"

	"github.com/emirpasic/gods/utils"
	"github.com/endink/sharding-core/core"
	"github.com/stretchr/testify/assert"
)

func errorDifferent(expected []interface{}, actual []interface{}) string {
	sb := core.NewStringBuilder()
	sb.WriteLine("array not same")

	sb.Write("expected: ")
	sortValues(expected)
	writeArray(sb, expected)
	sb.WriteLine()

	sb.Write("actual: ")
	sortValues(actual)
	writeArray(sb, actual)
	sb.WriteLine()

	return sb.String()
}

func sortValues(values []interface{}) {
	utils.Sort(values, func(a, b interface{}) int {
		if i, err := core.Compare(a, b); err == nil {
			return i
		}
		return utils.StringComparator(fmt.Sprint(a), fmt.Sprint(b))
	})
}

func writeArray(sb *core.StringBuilder, values []interface{}) {
	if len(values) == 0 {
		sb.Write("<empty array>")
		return
	}
	sb.WriteJoin(", ", values...)
}

// AssertArrayEquals compares two slices ignoring order.
func AssertArrayEquals(t assert.TestingT, expected []interface{}, actual []interface{}, msgAndArgs ...interface{}) bool {
	if len(expected) == 0 && len(actual) == 0 {
		return true
	}

	if len(expected) != len(actual) || !containsAll(actual, expected) || !containsAll(expected, actual) {
		return assert.Fail(t, errorDifferent(copyValues(expected), copyValues(actual)), msgAndArgs...)
	}
	return true
}

func AssertStrArrayEquals(t assert.TestingT, expected []string, actual []string, msgAndArgs ...interface{}) bool {
	return AssertArrayEquals(t, convertStrArray(expected), convertStrArray(actual), msgAndArgs...)
}

// AssertNodesEqual compares node lists ignoring order.
func AssertNodesEqual(t assert.TestingT, expected []core.TableNode, actual []core.TableNode, msgAndArgs ...interface{}) bool {
	e := make([]interface{}, len(expected))
	for i, n := range expected {
		e[i] = n.String()
	}
	a := make([]interface{}, len(actual))
	for i, n := range actual {
		a[i] = n.String()
	}
	return AssertArrayEquals(t, e, a, msgAndArgs...)
}

func convertStrArray(values []string) []interface{} {
	r := make([]interface{}, len(values))
	for i, value := range values {
		r[i] = value
	}
	return r
}

func copyValues(values []interface{}) []interface{} {
	r := make([]interface{}, len(values))
	copy(r, values)
	return r
}

func containsAll(values []interface{}, items []interface{}) bool {
	for _, item := range items {
		found := false
		for _, v := range values {
			if v == item {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
