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

package database

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const DefaultVirtualNodes = 32

type ringEntry struct {
	hash   uint64
	marker *DataSourceMarker
}

// hashRing is an immutable consistent hash ring, each marker is placed
// virtualNodes*weight times.
type hashRing struct {
	entries []ringEntry
	size    int
}

func newHashRing(markers []*DataSourceMarker, weight func(*DataSourceMarker) int, virtualNodes int) *hashRing {
	r := &hashRing{}
	for _, m := range markers {
		w := weight(m)
		if w <= 0 {
			continue
		}
		r.size++
		for i := 0; i < w*virtualNodes; i++ {
			r.entries = append(r.entries, ringEntry{
				hash:   xxhash.Sum64String(m.Name + "#" + strconv.Itoa(i)),
				marker: m,
			})
		}
	}
	sort.Slice(r.entries, func(i, j int) bool {
		return r.entries[i].hash < r.entries[j].hash
	})
	return r
}

// Len is the number of distinct markers on the ring.
func (r *hashRing) Len() int {
	return r.size
}

func (r *hashRing) Locate(pos uint64) *DataSourceMarker {
	return r.Next(pos, nil)
}

// Next returns the first marker clockwise from pos that is not excluded.
func (r *hashRing) Next(pos uint64, excluded map[*DataSourceMarker]bool) *DataSourceMarker {
	n := len(r.entries)
	if n == 0 || len(excluded) >= r.size && r.allExcluded(excluded) {
		return nil
	}
	start := sort.Search(n, func(i int) bool { return r.entries[i].hash >= pos })
	for i := 0; i < n; i++ {
		e := r.entries[(start+i)%n]
		if !excluded[e.marker] {
			return e.marker
		}
	}
	return nil
}

func (r *hashRing) allExcluded(excluded map[*DataSourceMarker]bool) bool {
	for _, e := range r.entries {
		if !excluded[e.marker] {
			return false
		}
	}
	return true
}
