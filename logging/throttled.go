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

package logging

import (
	"fmt"
	"sync"
	"time"
)

// ThrottledLogger emits at most one message per interval and reports how many
// were dropped once the interval elapses. The shard router uses it so a dead
// replica does not flood the log on every acquire.
type ThrottledLogger struct {
	name        string
	maxInterval time.Duration
	logger      StandardLogger

	mu           sync.Mutex
	lastLogTime  time.Time
	skippedCount int
	flushTimer   *time.Timer
}

func NewThrottledLogger(name string, logger StandardLogger, maxInterval time.Duration) *ThrottledLogger {
	if logger == nil {
		logger = GetLogger("throttled")
	}
	return &ThrottledLogger{
		name:        name,
		maxInterval: maxInterval,
		logger:      logger,
	}
}

type logFunc func(args ...interface{})

func (tl *ThrottledLogger) log(fn logFunc, format string, v ...interface{}) {
	now := time.Now()

	tl.mu.Lock()
	defer tl.mu.Unlock()

	wait := tl.maxInterval - now.Sub(tl.lastLogTime)
	if wait < 0 {
		tl.lastLogTime = now
		fn(fmt.Sprintf(tl.name+": "+format, v...))
		return
	}
	if tl.skippedCount == 0 {
		tl.flushTimer = time.AfterFunc(wait, func() {
			tl.mu.Lock()
			defer tl.mu.Unlock()
			if tl.skippedCount > 0 {
				fn(fmt.Sprintf("%s: skipped %d log messages", tl.name, tl.skippedCount))
			}
			tl.skippedCount = 0
			tl.flushTimer = nil
		})
	}
	tl.skippedCount++
}

// Stop cancels a pending "skipped" report.
func (tl *ThrottledLogger) Stop() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.flushTimer != nil {
		tl.flushTimer.Stop()
		tl.flushTimer = nil
	}
	tl.skippedCount = 0
}

func (tl *ThrottledLogger) Infof(format string, v ...interface{}) {
	tl.log(tl.logger.Info, format, v...)
}

func (tl *ThrottledLogger) Warnf(format string, v ...interface{}) {
	tl.log(tl.logger.Warn, format, v...)
}

func (tl *ThrottledLogger) Errorf(format string, v ...interface{}) {
	tl.log(tl.logger.Error, format, v...)
}
