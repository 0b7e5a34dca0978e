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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRouting("t_order", OutcomeSelected, 2)
	m.ObserveRouting("t_order", OutcomeError, 0)
	m.ObserveScatter(time.Now(), OutcomeSuccess)
	m.ReplicaDemotions.WithLabelValues("ds0").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RoutingCalculations.WithLabelValues("t_order", OutcomeSelected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReplicaDemotions.WithLabelValues("ds0")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sharding_core_routing_calculations_total"])
	assert.True(t, names["sharding_core_executor_scatter_duration_seconds"])
}

func TestDiscardIsUsable(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().ObserveRouting("t", OutcomeFull, 4)
	})
}
