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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/endink/sharding-core/config"
	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	var configFiles = flag.String("config", "", "comma separated config files, default search path when empty")
	var listen = flag.String("listen", "", "admin listen address, overrides admin.listen")
	flag.Parse()

	if err := run(*configFiles, *listen); err != nil {
		fmt.Fprintf(os.Stderr, "sharding-core: %v\n", err)
		os.Exit(1)
	}
}

func run(configFiles string, listen string) error {
	var mgr *config.Manager
	var err error
	if configFiles == "" {
		mgr, err = config.NewManager()
	} else {
		mgr, err = config.NewManagerFromFiles(configFileList(configFiles)...)
	}
	if err != nil {
		return err
	}
	if err = mgr.ConfigureLogging(); err != nil {
		return err
	}
	settings := mgr.Settings()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(settings, config.MySQLOpener, reg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if listen == "" {
		listen = settings.Admin.Listen
	}
	if _, err = a.start(ctx, listen); err != nil {
		_ = a.close()
		return err
	}
	logging.DefaultLogger.Infof("sharding core started, tables: %v, shards: %v", a.router.Tables(), a.cluster.Shards())

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGPIPE)
	for sig := range sc {
		if sig == syscall.SIGPIPE {
			logging.DefaultLogger.Infof("Ignore broken pipe signal")
			continue
		}
		logging.DefaultLogger.Infof("Got signal %d, quit", sig)
		break
	}
	cancel()
	return a.close()
}

// configFileList splits the -config flag, dropping blanks and repeats.
func configFileList(flagValue string) []string {
	return core.DistinctSliceAndTrim(strings.Split(flagValue, ","))
}
