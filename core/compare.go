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
	"time"
)

// Compare orders two routing values. Numbers compare numerically across
// integer and float kinds, times chronologically and everything else by its
// string form. A nil value sorts first.
func Compare(a, b interface{}) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}

	if isNumeric(a) && isNumeric(b) {
		if IsIntegral(a) && IsIntegral(b) {
			x, errA := ToInt64(a)
			y, errB := ToInt64(b)
			if errA == nil && errB == nil {
				return compareInt64(x, y), nil
			}
		}
		x, _ := ToFloat64(a)
		y, _ := ToFloat64(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}

	ta, aIsTime := a.(time.Time)
	tb, bIsTime := b.(time.Time)
	if aIsTime || bIsTime {
		var err error
		if !aIsTime {
			if ta, err = ToTime(a); err != nil {
				return 0, fmt.Errorf("can not compare %T with time: %v", a, err)
			}
		}
		if !bIsTime {
			if tb, err = ToTime(b); err != nil {
				return 0, fmt.Errorf("can not compare time with %T: %v", b, err)
			}
		}
		return compareInt64(ta.UnixNano(), tb.UnixNano()), nil
	}

	if isNumeric(a) != isNumeric(b) {
		// numeric literal bound as text
		x, errA := ToFloat64(a)
		y, errB := ToFloat64(b)
		if errA != nil || errB != nil {
			return 0, fmt.Errorf("can not compare %T with %T", a, b)
		}
		return Compare(x, y)
	}

	return strings.Compare(ToString(a), ToString(b)), nil
}

func compareInt64(x, y int64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
