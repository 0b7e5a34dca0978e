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

package partition

import "github.com/pkg/errors"

var ErrNullValue = errors.New("null value can not be partitioned and no default-index is configured")

type nullPolicy struct {
	defaultIndex *int
}

func newNullPolicy(defaultIndex *int, nodeCount int) (nullPolicy, error) {
	if defaultIndex != nil && (*defaultIndex < 0 || *defaultIndex >= nodeCount) {
		return nullPolicy{}, errors.Errorf("default-index %d out of range [0, %d)", *defaultIndex, nodeCount)
	}
	return nullPolicy{defaultIndex: defaultIndex}, nil
}

func (p nullPolicy) partitionNull() (int, error) {
	if p.defaultIndex == nil {
		return 0, errors.WithStack(ErrNullValue)
	}
	return *p.defaultIndex, nil
}

func partitionValues(fn func(interface{}) (int, error), values []interface{}) ([]int, error) {
	seen := make(map[int]struct{}, len(values))
	result := make([]int, 0, len(values))
	for _, v := range values {
		idx, err := fn(v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[idx]; !ok {
			seen[idx] = struct{}{}
			result = append(result, idx)
		}
	}
	return result, nil
}
