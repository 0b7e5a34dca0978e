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

// PartitionFunction maps column values to zero based node indexes.
type PartitionFunction interface {
	// NodeCount is the number of distinct node indexes the function can return.
	NodeCount() int
	Partition(value interface{}) (int, error)
	// PartitionRange returns the indexes covering [begin, end]. An empty
	// slice means the range is provably empty.
	PartitionRange(begin, end interface{}) ([]int, error)
	PartitionValues(values ...interface{}) ([]int, error)
}

// AlgorithmLookup resolves named partition algorithm instances shared by
// every table of a configuration.
type AlgorithmLookup interface {
	Algorithm(name string) (PartitionFunction, bool)
}
