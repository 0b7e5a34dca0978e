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

package admin

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/endink/sharding-core/database"
	"github.com/endink/sharding-core/logging"
	"github.com/endink/sharding-core/routing"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultListen = ":8090"

var log = logging.GetLogger("admin")

// Server exposes replica state, routing previews and metrics over HTTP.
type Server struct {
	router   *routing.Router
	cluster  *database.Cluster
	gatherer prometheus.Gatherer
	engine   *gin.Engine
	http     *http.Server
}

func NewServer(router *routing.Router, cluster *database.Cluster, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router:   router,
		cluster:  cluster,
		gatherer: gatherer,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), gzip.Gzip(gzip.DefaultCompression))

	api := s.engine.Group("/api")
	api.GET("/shards", s.handleShards)
	api.GET("/tables", s.handleTables)
	api.GET("/tables/:table/route", s.handleRoute)
	s.engine.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return s
}

// Handler is the gin engine, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves in the background. The bound address is
// returned so ":0" can be used.
func (s *Server) Start(addr string) (string, error) {
	if addr == "" {
		addr = DefaultListen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "admin listen on %s", addr)
	}
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("admin server stopped: %v", err)
		}
	}()
	log.Infof("admin server listening on %s", ln.Addr())
	return ln.Addr().String(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
