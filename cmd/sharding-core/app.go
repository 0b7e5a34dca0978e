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
	"time"

	"github.com/endink/sharding-core/admin"
	"github.com/endink/sharding-core/config"
	"github.com/endink/sharding-core/database"
	"github.com/endink/sharding-core/routing"
	"github.com/endink/sharding-core/server"
	"github.com/endink/sharding-core/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// app is the assembled middleware core: routing, replica routing with its
// health loop, the scatter executor and the admin surface.
type app struct {
	router  *routing.Router
	cluster *database.Cluster
	scatter *server.ScatterConn
	admin   *admin.Server
}

func newApp(settings *config.Settings, open config.Opener, reg *prometheus.Registry) (*app, error) {
	metrics := telemetry.NewMetrics(reg)

	router, err := settings.BuildRouter(metrics)
	if err != nil {
		return nil, err
	}
	defs, err := settings.ShardDefinitions(open)
	if err != nil {
		return nil, err
	}
	cluster, err := database.NewCluster(defs, settings.HealthCheckConfig(), database.WithRouterMetrics(metrics))
	if err != nil {
		for _, def := range defs {
			for _, r := range def.Replicas {
				err = multierr.Append(err, r.Source.Close())
			}
		}
		return nil, err
	}

	return &app{
		router:  router,
		cluster: cluster,
		scatter: server.NewScatterConn(cluster,
			server.WithWorkerPool(server.NewWorkerPool(settings.Executor.Workers)),
			server.WithTimeout(settings.Executor.Timeout),
			server.WithMetrics(metrics),
		),
		admin: admin.NewServer(router, cluster, reg),
	}, nil
}

func (a *app) start(ctx context.Context, listen string) (string, error) {
	a.cluster.Start(ctx)
	return a.admin.Start(listen)
}

func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return multierr.Combine(a.admin.Shutdown(ctx), a.cluster.Close())
}
