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
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StandardLogger is the logging surface components depend on,
// *zap.SugaredLogger satisfies it.
type StandardLogger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

var _ StandardLogger = (*zap.SugaredLogger)(nil)

var loggerMutex sync.RWMutex // guards access to global logger state

// loggers is the set of loggers in the system
var loggers = make(map[string]*zap.SugaredLogger)

var levels = make(map[string]zap.AtomicLevel)
var defaultLevel = zapcore.InfoLevel
var output = zapcore.AddSync(os.Stdout)

var logCore = newCore(ColorizedOutput, output, defaultLevel)

var DefaultLogger = GetLogger("sharding-core")

func newCore(format LogFormat, ws zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case PlaintextOutput:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case JSONOutput:
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	// per-logger levels are applied with zap.IncreaseLevel, the core only filters below debug
	return zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(minLevel(level)))
}

func minLevel(level zapcore.Level) zapcore.Level {
	if level < zapcore.DebugLevel {
		return level
	}
	return zapcore.DebugLevel
}

// Configure replaces the output format and the default level of every logger,
// loggers created before the call are rebuilt on the new core.
func Configure(format LogFormat, level string) error {
	var lvl zapcore.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return err
		}
	} else {
		lvl = zapcore.InfoLevel
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	defaultLevel = lvl
	logCore = newCore(format, output, lvl)
	for name := range loggers {
		levels[name].SetLevel(lvl)
		loggers[name] = buildLogger(name)
	}
	return nil
}

// SetLevel changes the level of one named logger.
func SetLevel(name string, level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if l, ok := levels[name]; ok {
		l.SetLevel(lvl)
		return nil
	}
	levels[name] = zap.NewAtomicLevelAt(lvl)
	return nil
}

func buildLogger(name string) *zap.SugaredLogger {
	return zap.New(logCore, zap.AddCaller()).
		WithOptions(zap.IncreaseLevel(levels[name])).
		Named(name).
		Sugar()
}

func GetLogger(name string) *zap.SugaredLogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	log, ok := loggers[name]
	if !ok {
		if _, hasLevel := levels[name]; !hasLevel {
			levels[name] = zap.NewAtomicLevelAt(defaultLevel)
		}
		log = buildLogger(name)
		loggers[name] = log
	}

	return log
}
