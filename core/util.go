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
	"os"
	"regexp"
	"strings"
	"sync"
)

var LineSeparator = "\n"

var Nothing = struct{}{}

func FileExists(name string) bool {
	info, err := os.Lstat(name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func IfBlankAndTrim(value string, blankValue string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return blankValue
	}
	return v
}

func DistinctSliceAndTrim(slice []string) []string {
	result := make([]string, 0, len(slice))
	temp := map[string]struct{}{}
	for _, item := range slice {
		trim := strings.TrimSpace(item)
		if trim != "" {
			if _, ok := temp[trim]; !ok {
				temp[trim] = Nothing
				result = append(result, trim)
			}
		}
	}
	return result
}

var identityRegex *regexp.Regexp
var identityRegexOnce sync.Once

// ValidateIdentifier accepts letters, digits, '_' and '-', starting with a letter.
func ValidateIdentifier(identifier string) error {
	identityRegexOnce.Do(func() {
		identityRegex = regexp.MustCompile(`^[A-Za-z]+[A-Za-z0-9_-]*$`)
	})
	if !identityRegex.MatchString(identifier) {
		return fmt.Errorf("identifier must starts with a letter and letters, numbers, underline(_), minus(-) are allowed, given value: %s", identifier)
	}
	return nil
}

func TrimAndLower(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// SpanAtMost reports whether the inclusive run begin..end holds at most limit
// values, without overflowing on wide runs. begin must not exceed end.
func SpanAtMost(begin, end, limit int64) bool {
	return limit > 0 && uint64(end)-uint64(begin) < uint64(limit)
}

// Permute returns the cartesian product of lists, first list varying slowest.
// An empty input or any empty list yields no rows.
func Permute(lists [][]interface{}) [][]interface{} {
	if len(lists) == 0 {
		return nil
	}
	total := 1
	for _, l := range lists {
		if len(l) == 0 {
			return nil
		}
		total *= len(l)
	}

	result := make([][]interface{}, 0, total)
	indexes := make([]int, len(lists))
	for {
		row := make([]interface{}, len(lists))
		for i, idx := range indexes {
			row[i] = lists[i][idx]
		}
		result = append(result, row)

		pos := len(lists) - 1
		for pos >= 0 {
			indexes[pos]++
			if indexes[pos] < len(lists[pos]) {
				break
			}
			indexes[pos] = 0
			pos--
		}
		if pos < 0 {
			return result
		}
	}
}

// PermuteCount is the number of rows Permute would produce, saturating at limit+1.
func PermuteCount(sizes []int, limit int) int {
	if len(sizes) == 0 {
		return 0
	}
	total := 1
	for _, s := range sizes {
		total *= s
		if total == 0 || total > limit {
			if total == 0 {
				return 0
			}
			return limit + 1
		}
	}
	return total
}
