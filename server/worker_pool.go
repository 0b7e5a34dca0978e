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

package server

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

const maxWorkers = 128

// DefaultWorkers is four workers per core, at most 128.
func DefaultWorkers() int {
	n := runtime.NumCPU() * 4
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

// WorkerPool bounds the number of node statements running at once across
// every scatter call of the process.
type WorkerPool struct {
	size int64
	sem  *semaphore.Weighted
}

func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = DefaultWorkers()
	}
	return &WorkerPool{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
}

func (p *WorkerPool) Size() int {
	return int(p.size)
}

// Acquire blocks until a worker is free or ctx is done.
func (p *WorkerPool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

func (p *WorkerPool) Release() {
	p.sem.Release(1)
}
