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

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sharding_core"

const (
	OutcomeSelected = "selected"
	OutcomeFull     = "full"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeSuccess  = "success"
	OutcomeTimeout  = "timeout"
)

// Metrics are the collectors of one process. Collectors built with a nil
// registerer work but are not exported.
type Metrics struct {
	RoutingCalculations   *prometheus.CounterVec
	RoutedNodes           *prometheus.HistogramVec
	ScatterDuration       *prometheus.HistogramVec
	NodeErrors            *prometheus.CounterVec
	ReplicaDemotions      *prometheus.CounterVec
	ReplicaReinstatements *prometheus.CounterVec
	AvailableReplicas     *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RoutingCalculations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "calculations_total",
			Help:      "Routing calculations by table and outcome (selected, full, empty, error).",
		}, []string{"table", "outcome"}),
		RoutedNodes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "routed_nodes",
			Help:      "Number of nodes selected by one routing calculation.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		}, []string{"table"}),
		ScatterDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "scatter_duration_seconds",
			Help:      "Latency of scatter-gather calls by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		NodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "node_errors_total",
			Help:      "Statement failures by shard.",
		}, []string{"shard"}),
		ReplicaDemotions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datasource",
			Name:      "demotions_total",
			Help:      "Replicas removed from the load balancing ring.",
		}, []string{"shard"}),
		ReplicaReinstatements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datasource",
			Name:      "reinstatements_total",
			Help:      "Replicas put back into the load balancing ring by the health check.",
		}, []string{"shard"}),
		AvailableReplicas: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "datasource",
			Name:      "available_replicas",
			Help:      "Replicas currently in the ring by shard and class (read, write).",
		}, []string{"shard", "class"}),
	}
}

var defaultMetrics = NewMetrics(nil)

// Discard returns collectors that are not registered anywhere.
func Discard() *Metrics {
	return defaultMetrics
}

func (m *Metrics) ObserveRouting(table string, outcome string, nodes int) {
	m.RoutingCalculations.WithLabelValues(table, outcome).Inc()
	if outcome != OutcomeError {
		m.RoutedNodes.WithLabelValues(table).Observe(float64(nodes))
	}
}

func (m *Metrics) ObserveScatter(start time.Time, outcome string) {
	m.ScatterDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
