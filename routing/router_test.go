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

package routing

import (
	"math"
	"testing"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/core/partition"
	"github.com/endink/sharding-core/core/script"
	"github.com/endink/sharding-core/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry *script.Registry
	router   *Router
	metrics  *telemetry.Metrics
}

func newFixture(t *testing.T, opts ...RouterOption) *fixture {
	registry := script.NewRegistry()
	rng, err := partition.NewRange(partition.RangeConfig{Count: []int{4}, Length: []int{1000}})
	require.NoError(t, err)
	require.NoError(t, registry.Register("order_range", rng))

	byMod := newOrderRouter(t, registry)

	rangeRule := core.NewRuleExpression("order_range(order_id)", core.NewRuleColumn("order_id", true, core.ValueTypeLong))
	require.NoError(t, registry.Bind(rangeRule))
	byRange, err := core.NewTableRouter("t_order_range", orderPartitions(), rangeRule, nil, registry)
	require.NoError(t, err)

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	opts = append(opts, WithMetrics(metrics))
	router, err := NewRouter(NewCalculator(script.NewEvaluator(registry)), []*core.TableRouter{byMod, byRange}, opts...)
	require.NoError(t, err)
	return &fixture{registry: registry, router: router, metrics: metrics}
}

func TestNewRouterDuplicate(t *testing.T) {
	registry := script.NewRegistry()
	r := newOrderRouter(t, registry)
	_, err := NewRouter(NewCalculator(script.NewEvaluator(registry)), []*core.TableRouter{r, r})
	assert.True(t, core.IsConfigError(err))
}

func TestRouteRow(t *testing.T) {
	f := newFixture(t)
	result, err := f.router.RouteRow("T_ORDER", map[string]interface{}{"order_id": 6, "name": "x"})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[2]}, result.Selected())
	assert.Equal(t, []string{"t_order", "t_order_range"}, f.router.Tables())

	_, err = f.router.RouteRow("t_unknown", nil)
	assert.True(t, core.IsRoutingError(err))

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RoutingCalculations.WithLabelValues("t_order", telemetry.OutcomeSelected)))
}

func TestRouteConditions(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.Route("t_order", In{Column: "order_id", Values: []interface{}{1, 2, 5}})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[1], orderPartitions()[2]}, result.Selected())

	result, err = f.router.Route("t_order",
		In{Column: "order_id", Values: []interface{}{1, 2, 5}},
		Equal{Column: "ORDER_ID", Value: int64(2)})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[2]}, result.Selected())

	result, err = f.router.Route("t_order", In{Column: "order_id"})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode(), "empty IN list binds nothing")

	result, err = f.router.Route("t_order", Equal{Column: "user_id", Value: 1})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode(), "conditions on other columns are ignored")

	result, err = f.router.Route("t_order", Equal{Column: "order_id", Value: 1}, Equal{Column: "order_id", Value: 2})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode(), "contradiction falls back to full scatter")
}

func TestRouteBetween(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.Route("t_order", Between{Column: "order_id", Begin: 4, End: 5})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[0], orderPartitions()[1]}, result.Selected())

	result, err = f.router.Route("t_order",
		Between{Column: "order_id", Begin: 0, End: 100},
		In{Column: "order_id", Values: []interface{}{3, 200}})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[3]}, result.Selected())

	result, err = f.router.Route("t_order", Between{Column: "order_id", Begin: 0, End: 100000})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode(), "wide range on a non function rule")

	_, err = f.router.Route("t_order", Between{Column: "order_id", Begin: 9, End: 1})
	assert.True(t, core.IsRoutingError(err))
}

func TestEnumerationLimit(t *testing.T) {
	f := newFixture(t, WithEnumerationLimit(1))
	result, err := f.router.Route("t_order", Between{Column: "order_id", Begin: 4, End: 5})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode())
}

func TestRouteRangeByFunction(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.RouteRange("t_order_range",
		map[string]interface{}{"order_id": 500},
		map[string]interface{}{"order_id": 1500})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[0], orderPartitions()[1]}, result.Selected())

	result, err = f.router.RouteRange("t_order_range",
		map[string]interface{}{"order_id": 3500},
		nil)
	require.NoError(t, err)
	assert.True(t, result.IsFullNode(), "open range covers every node")
}

func TestRouteRangeEmpty(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.RouteRange("t_order",
		map[string]interface{}{"order_id": 1},
		map[string]interface{}{"order_id": 1},
	)
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[1]}, result.Selected())

	result, err = f.router.Route("t_order_range",
		Between{Column: "order_id", Begin: 10, End: 5000},
		Between{Column: "order_id", Begin: 6000, End: 7000})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode())

	none, err := f.router.RouteNone("t_order")
	require.NoError(t, err)
	assert.True(t, none.IsEmpty())
}

func TestRouteRangeAllowEmpty(t *testing.T) {
	f := newFixture(t)
	result, err := f.router.RouteRange("t_order",
		map[string]interface{}{"order_id": 1},
		map[string]interface{}{"order_id": 1},
		AllowEmpty())
	require.NoError(t, err)
	assert.Len(t, result.Selected(), 1)

	// both bounds tighten to an empty window
	c := &constraint{key: "order_id"}
	require.NoError(t, c.intersectRange("t", 10, 20))
	require.NoError(t, c.intersectRange("t", 30, 40))
	c.resolve(DefaultEnumerationLimit)
	assert.True(t, c.empty)
}

func TestRouteWideBetween(t *testing.T) {
	f := newFixture(t)

	result, err := f.router.Route("t_order", Between{Column: "order_id", Begin: int64(math.MinInt64 / 2), End: int64(math.MaxInt64/2 + 10)})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode())

	result, err = f.router.Route("t_order", Between{Column: "order_id", Begin: int64(math.MinInt64), End: int64(math.MaxInt64)})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode())

	result, err = f.router.Route("t_order_range", Between{Column: "order_id", Begin: int64(math.MinInt64 / 2), End: int64(math.MaxInt64/2 + 10)})
	require.NoError(t, err)
	assert.True(t, result.IsFullNode())

	result, err = f.router.Route("t_order_range", Between{Column: "order_id", Begin: int64(math.MaxInt64 - 10), End: int64(math.MaxInt64)})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[3]}, result.Selected())
}

func TestRouteLargeIdAgreesWithRange(t *testing.T) {
	f := newFixture(t)
	id := int64(9007199254740999)

	row, err := f.router.RouteRow("t_order_range", map[string]interface{}{"order_id": id})
	require.NoError(t, err)
	assert.Equal(t, []core.TableNode{orderPartitions()[0]}, row.Selected())

	ranged, err := f.router.Route("t_order_range", Between{Column: "order_id", Begin: id - 300, End: id})
	require.NoError(t, err)
	assert.Contains(t, ranged.Selected(), row.Selected()[0])
	assert.Equal(t, []core.TableNode{orderPartitions()[0]}, ranged.Selected())
}
