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

package config

import (
	"strings"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/logging"
	"github.com/pkg/errors"
	"go.uber.org/config"
)

// Manager holds the loaded configuration.
type Manager struct {
	files    []string
	settings *Settings
}

// NewManager loads every existing file of DefaultConfigFileLocations.
func NewManager() (*Manager, error) {
	return NewManagerFromFiles(DefaultConfigFileLocations()...)
}

// NewManagerFromFiles merges the files that exist, missing files are
// skipped.
func NewManagerFromFiles(files ...string) (*Manager, error) {
	var sources []config.YAMLOption
	var found []string

	var sb = core.NewStringBuilder()
	sb.WriteLine()
	sb.WriteLine("Search configuration locations:")
	for _, f := range files {
		if core.FileExists(f) {
			sources = append(sources, config.File(f))
			found = append(found, f)
			sb.WriteLine("[Found]:", f)
		} else {
			sb.WriteLine("[Not Found]:", f)
		}
	}
	logger.Info(sb.String())

	if len(sources) == 0 {
		return nil, core.NewConfigError("config", "no configuration file found in %v", files)
	}
	sources = append(sources, config.Permissive())
	yaml, err := config.NewYAML(sources...)
	if err != nil {
		return nil, core.WrapConfigError(err, "config", "build configuration fault")
	}
	m, err := NewManagerFromYAML(yaml)
	if err != nil {
		return nil, err
	}
	m.files = found
	return m, nil
}

func NewManagerFromYAML(yaml *config.YAML) (*Manager, error) {
	settings := &Settings{}
	if err := yaml.Get(config.Root).Populate(settings); err != nil {
		return nil, core.WrapConfigError(err, "config", "bad configuration format")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Manager{settings: settings}, nil
}

func NewManagerFromString(ymlContent string) (*Manager, error) {
	yml, err := config.NewYAML(config.Source(strings.NewReader(ymlContent)), config.Permissive())
	if err != nil {
		return nil, core.WrapConfigError(err, "config", "bad configuration format")
	}
	return NewManagerFromYAML(yml)
}

func (m *Manager) Settings() *Settings {
	return m.settings
}

// Files lists the configuration files that were merged.
func (m *Manager) Files() []string {
	return m.files
}

// ConfigureLogging applies the logging section.
func (m *Manager) ConfigureLogging() error {
	format, err := logging.ParseLogFormat(core.IfBlankAndTrim(m.settings.Logging.Format, logging.ColorizedOutput.String()))
	if err != nil {
		return core.WrapConfigError(err, "logging", "bad log format")
	}
	return errors.Wrap(logging.Configure(format, core.IfBlankAndTrim(m.settings.Logging.Level, "info")), "configure logging")
}
