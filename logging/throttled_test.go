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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottledLogger(t *testing.T) {
	ch := make(chan string, 10)
	tl := NewThrottledLogger("test", NewLoggerForTest(ch), 100*time.Millisecond)
	defer tl.Stop()

	tl.Infof("first %d", 1)
	assert.Equal(t, "test: first 1", <-ch)

	tl.Infof("second")
	tl.Warnf("third")
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message: %s", msg)
	default:
	}

	select {
	case msg := <-ch:
		assert.Equal(t, "test: skipped 2 log messages", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("skipped report was not written")
	}

	time.Sleep(110 * time.Millisecond)
	tl.Errorf("after %s", "wait")
	assert.Equal(t, "test: after wait", <-ch)
}

func TestParseLogFormat(t *testing.T) {
	f, err := ParseLogFormat("JSON")
	assert.NoError(t, err)
	assert.Equal(t, JSONOutput, f)

	f, err = ParseLogFormat("")
	assert.NoError(t, err)
	assert.Equal(t, ColorizedOutput, f)

	_, err = ParseLogFormat("xml")
	assert.Error(t, err)
}

func TestGetLoggerIsCached(t *testing.T) {
	a := GetLogger("cache-test")
	b := GetLogger("cache-test")
	assert.Same(t, a, b)
	assert.NoError(t, SetLevel("cache-test", "warn"))
	assert.Error(t, SetLevel("cache-test", "loud"))
}
