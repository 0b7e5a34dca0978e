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

import "fmt"

type channelLogger struct {
	ch chan string
}

// NewLoggerForTest returns a logger that writes every formatted message to ch.
func NewLoggerForTest(ch chan string) StandardLogger {
	return &channelLogger{ch: ch}
}

func (l *channelLogger) write(args ...interface{}) { l.ch <- fmt.Sprint(args...) }

func (l *channelLogger) writef(format string, args ...interface{}) {
	l.ch <- fmt.Sprintf(format, args...)
}

func (l *channelLogger) Debug(args ...interface{}) { l.write(args...) }
func (l *channelLogger) Info(args ...interface{})  { l.write(args...) }
func (l *channelLogger) Warn(args ...interface{})  { l.write(args...) }
func (l *channelLogger) Error(args ...interface{}) { l.write(args...) }

func (l *channelLogger) Debugf(format string, args ...interface{}) { l.writef(format, args...) }
func (l *channelLogger) Infof(format string, args ...interface{})  { l.writef(format, args...) }
func (l *channelLogger) Warnf(format string, args ...interface{})  { l.writef(format, args...) }
func (l *channelLogger) Errorf(format string, args ...interface{}) { l.writef(format, args...) }
