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
	"os"
	"path/filepath"
	"runtime"

	"github.com/endink/sharding-core/logging"
)

var logger = logging.GetLogger("config")

// DefaultConfigFileLocations lists the files merged at startup, later files
// override earlier ones.
func DefaultConfigFileLocations() []string {
	var files []string
	if runtime.GOOS != "windows" {
		files = append(files, "/etc/sharding-core/config.yaml", "/etc/sharding-core/config.yml")
	}
	if dir, err := os.Getwd(); err == nil {
		files = append(files, filepath.Join(dir, "config.yaml"))
	} else {
		files = append(files, "config.yaml")
	}
	return files
}
