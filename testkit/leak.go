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
	"testing"

	"go.uber.org/goleak"
)

// LeakCheck snapshots the running goroutines and returns a function that
// fails the test if any goroutine started after the snapshot is still alive.
//
//	defer testkit.LeakCheck(t)()
func LeakCheck(t *testing.T, ignoreTopFunctions ...string) func() {
	opts := []goleak.Option{
		goleak.IgnoreCurrent(),
		// the database/sql connection opener lives as long as the *sql.DB
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	}
	for _, f := range ignoreTopFunctions {
		opts = append(opts, goleak.IgnoreTopFunction(f))
	}
	return func() {
		t.Helper()
		goleak.VerifyNone(t, opts...)
	}
}
