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

package script

import (
	"testing"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/core/partition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderPartitions() []core.TableNode {
	return []core.TableNode{
		core.NewTableNode("shard1", "t_order_", "0"),
		core.NewTableNode("shard1", "t_order_", "1"),
		core.NewTableNode("shard2", "t_order_", "2"),
		core.NewTableNode("shard2", "t_order_", "3"),
	}
}

func newRouter(t *testing.T, registry *Registry, rule *core.RuleExpression, suffix *core.RuleExpression) *core.TableRouter {
	require.NoError(t, registry.Bind(rule))
	if suffix != nil {
		require.NoError(t, registry.Bind(suffix))
	}
	r, err := core.NewTableRouter("t_order", orderPartitions(), rule, suffix, registry)
	require.NoError(t, err)
	return r
}

func TestResolveIndex(t *testing.T) {
	registry := NewRegistry()
	evaluator := NewEvaluator(registry)
	router := newRouter(t, registry, core.NewRuleExpression("order_id % 4", core.NewRuleColumn("order_id", true, core.ValueTypeLong)), nil)

	node, err := evaluator.Resolve(router, map[string]interface{}{"ORDER_ID": 7})
	require.NoError(t, err)
	assert.Equal(t, "shard2.t_order_3", node.String())

	node, err = evaluator.Resolve(router, map[string]interface{}{"order_id": "12"})
	require.NoError(t, err)
	assert.Equal(t, "shard1.t_order_0", node.String())
}

func TestResolveOutOfRange(t *testing.T) {
	registry := NewRegistry()
	evaluator := NewEvaluator(registry)
	router := newRouter(t, registry, core.NewRuleExpression("order_id + 4", core.NewRuleColumn("order_id", true, core.ValueTypeLong)), nil)

	_, err := evaluator.Resolve(router, map[string]interface{}{"order_id": 1})
	assert.True(t, core.IsRuleEvaluationError(err))
	assert.Contains(t, err.Error(), "out of range")
}

func TestResolveNode(t *testing.T) {
	registry := NewRegistry()
	evaluator := NewEvaluator(registry)
	rule := core.NewRuleExpression("node('shard' + str(int(user_id / 100) + 1), 't_order_', str(user_id % 4))",
		core.NewRuleColumn("user_id", true, core.ValueTypeLong))
	router := newRouter(t, registry, rule, nil)

	node, err := evaluator.Resolve(router, map[string]interface{}{"user_id": 103})
	require.NoError(t, err)
	assert.Equal(t, core.NewTableNode("shard2", "t_order_", "3"), node)

	bad := newRouter(t, registry, core.NewRuleExpression("node('shard9', 't_order_', '0')"), nil)
	_, err = evaluator.Resolve(bad, nil)
	assert.True(t, core.IsRuleEvaluationError(err))
	assert.Contains(t, err.Error(), "not a partition")
}

func TestResolveUnsupportedResult(t *testing.T) {
	registry := NewRegistry()
	evaluator := NewEvaluator(registry)
	router := newRouter(t, registry, core.NewRuleExpression("order_id > 1", core.NewRuleColumn("order_id", true, core.ValueTypeLong)), nil)
	_, err := evaluator.Resolve(router, map[string]interface{}{"order_id": 5})
	assert.True(t, core.IsRuleEvaluationError(err))

	router = newRouter(t, registry, core.NewRuleExpression("order_id / 2", core.NewRuleColumn("order_id", true, core.ValueTypeLong)), nil)
	_, err = evaluator.Resolve(router, map[string]interface{}{"order_id": 5})
	assert.True(t, core.IsRuleEvaluationError(err), "2.5 is not an index")
}

func TestAlgorithmCall(t *testing.T) {
	registry := NewRegistry()
	hash, err := partition.NewHash(partition.HashConfig{Count: []int{4}, Length: []int{256}})
	require.NoError(t, err)
	require.NoError(t, registry.Register("order_hash", hash))

	rule := core.NewRuleExpression("order_hash(order_id)", core.NewRuleColumn("order_id", true, core.ValueTypeLong))
	router := newRouter(t, registry, rule, nil)
	assert.Equal(t, "order_hash", rule.Function)

	want, err := hash.Partition(int64(42))
	require.NoError(t, err)
	node, err := NewEvaluator(registry).Resolve(router, map[string]interface{}{"order_id": 42})
	require.NoError(t, err)
	assert.Equal(t, orderPartitions()[want], node)

	composite := core.NewRuleExpression("order_hash(order_id) % 2", core.NewRuleColumn("order_id", true, core.ValueTypeLong))
	require.NoError(t, registry.Bind(composite))
	assert.Empty(t, composite.Function)
}

func TestAlgorithmCallKeepsLargeIntegers(t *testing.T) {
	registry := NewRegistry()
	rng, err := partition.NewRange(partition.RangeConfig{Count: []int{4}, Length: []int{1000}})
	require.NoError(t, err)
	require.NoError(t, registry.Register("order_range", rng))

	rule := core.NewRuleExpression("order_range(order_id)", core.NewRuleColumn("order_id", true, core.ValueTypeLong))
	router := newRouter(t, registry, rule, nil)

	// 2^53 + 7 rounds to ...1000 as a float64 and would land on the next node
	id := int64(9007199254740999)
	v, err := NewEvaluator(registry).Evaluate(router.Name, rule, map[string]interface{}{"order_id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	node, err := NewEvaluator(registry).Resolve(router, map[string]interface{}{"order_id": id})
	require.NoError(t, err)
	assert.Equal(t, orderPartitions()[0], node)
}

func TestNullValue(t *testing.T) {
	registry := NewRegistry()
	hash, err := partition.NewHash(partition.HashConfig{Count: []int{4}, Length: []int{256}})
	require.NoError(t, err)
	require.NoError(t, registry.Register("h", hash))
	router := newRouter(t, registry, core.NewRuleExpression("h(id)", core.NewRuleColumn("id", false, core.ValueTypeAny)), nil)

	_, err = NewEvaluator(registry).Resolve(router, map[string]interface{}{})
	assert.True(t, core.IsRuleEvaluationError(err))
	assert.Contains(t, err.Error(), "null value")
}

func TestTwoLevelRule(t *testing.T) {
	registry := NewRegistry()
	evaluator := NewEvaluator(registry)
	shardRule := core.NewRuleExpression("user_id % 2", core.NewRuleColumn("user_id", true, core.ValueTypeLong))
	suffixRule := core.NewRuleExpression("order_id % 4", core.NewRuleColumn("order_id", true, core.ValueTypeLong))
	router := newRouter(t, registry, shardRule, suffixRule)

	node, err := evaluator.Resolve(router, map[string]interface{}{"user_id": 3, "order_id": 6})
	require.NoError(t, err)
	assert.Equal(t, core.NewTableNode("shard2", "t_order_", "2"), node)

	_, err = evaluator.Resolve(router, map[string]interface{}{"user_id": 2, "order_id": 6})
	assert.True(t, core.IsRuleEvaluationError(err), "shard1 has no suffix 2")

	byName := newRouter(t, registry,
		core.NewRuleExpression("'shard' + str(user_id)", core.NewRuleColumn("user_id", true, core.ValueTypeLong)),
		core.NewRuleExpression("'t_order_' + str(order_id)", core.NewRuleColumn("order_id", true, core.ValueTypeLong)))
	node, err = evaluator.Resolve(byName, map[string]interface{}{"user_id": 1, "order_id": 1})
	require.NoError(t, err)
	assert.Equal(t, "shard1.t_order_1", node.String())
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	direct, err := partition.NewDirect(partition.DirectConfig{Nodes: 4})
	require.NoError(t, err)

	assert.NoError(t, registry.Register("direct4", direct))
	assert.True(t, core.IsConfigError(registry.Register("direct4", direct)))
	assert.True(t, core.IsConfigError(registry.Register("mod", direct)))
	assert.True(t, core.IsConfigError(registry.Register("bad-name", direct)))

	fn, ok := registry.Algorithm("DIRECT4")
	assert.True(t, ok)
	assert.Same(t, direct, fn)

	a, err := registry.Compile("direct4(x) + 1")
	require.NoError(t, err)
	b, err := registry.Compile("direct4(x) + 1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = registry.Compile("unknown_fn(x)")
	assert.True(t, core.IsConfigError(err))

	undeclared := core.NewRuleExpression("x + y", core.NewRuleColumn("x", true, core.ValueTypeAny))
	assert.True(t, core.IsConfigError(registry.Bind(undeclared)))
}

func TestBuiltins(t *testing.T) {
	v, err := modFunction(float64(-7), float64(4))
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)

	v, err = padFunction(float64(7), float64(3))
	require.NoError(t, err)
	assert.Equal(t, "007", v)

	v, err = hashcodeFunction("abc")
	require.NoError(t, err)
	assert.Equal(t, float64(96354), v)

	_, err = nodeFunction("a")
	assert.Error(t, err)
}
