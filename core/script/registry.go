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
	"regexp"
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/endink/sharding-core/core"
)

var (
	algorithmNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	singleCallRegex    = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*\[?([A-Za-z_][A-Za-z0-9_]*)\]?\s*\)\s*$`)
)

// Registry owns the partition algorithms of one configuration and the cache
// of compiled rule expressions. Reads are concurrent, Register is expected to
// happen while the configuration is built.
type Registry struct {
	mu         sync.RWMutex
	algorithms map[string]core.PartitionFunction
	functions  map[string]govaluate.ExpressionFunction
	cache      *sync.Map
}

var _ core.AlgorithmLookup = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		algorithms: make(map[string]core.PartitionFunction),
		functions:  builtinFunctions(),
		cache:      &sync.Map{},
	}
}

func (r *Registry) Register(name string, fn core.PartitionFunction) error {
	if !algorithmNameRegex.MatchString(name) {
		return core.NewConfigError("algorithm", "algorithm name '%s' must be an identifier of letters, digits and '_'", name)
	}
	if fn == nil {
		return core.NewConfigError("algorithm", "algorithm '%s' is nil", name)
	}
	key := core.TrimAndLower(name)
	if isBuiltin(key) {
		return core.NewConfigError("algorithm", "algorithm name '%s' conflicts with a builtin function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.algorithms[key]; ok {
		return core.NewConfigError("algorithm", "duplicate algorithm '%s'", name)
	}
	r.algorithms[key] = fn

	functions := make(map[string]govaluate.ExpressionFunction, len(r.functions)+2)
	for k, f := range r.functions {
		functions[k] = f
	}
	call := algorithmFunction(key, fn)
	functions[key] = call
	functions[name] = call
	r.functions = functions
	r.cache = &sync.Map{}
	return nil
}

func (r *Registry) Algorithm(name string) (core.PartitionFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.algorithms[core.TrimAndLower(name)]
	return fn, ok
}

func (r *Registry) AlgorithmNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	return names
}

// Compile returns the cached compiled form of text, compiling it on first use.
func (r *Registry) Compile(text string) (*govaluate.EvaluableExpression, error) {
	r.mu.RLock()
	cache, functions := r.cache, r.functions
	r.mu.RUnlock()

	if v, ok := cache.Load(text); ok {
		return v.(*govaluate.EvaluableExpression), nil
	}
	compiled, err := govaluate.NewEvaluableExpressionWithFunctions(text, functions)
	if err != nil {
		return nil, core.WrapConfigError(err, "rule", "invalid rule expression '%s'", text)
	}
	actual, _ := cache.LoadOrStore(text, compiled)
	return actual.(*govaluate.EvaluableExpression), nil
}

// Bind compiles expr, checks that every variable it reads is a declared rule
// column and records the partition algorithm of single call expressions.
func (r *Registry) Bind(expr *core.RuleExpression) error {
	compiled, err := r.Compile(expr.Text)
	if err != nil {
		return err
	}
	for _, v := range compiled.Vars() {
		if _, ok := expr.Column(v); !ok {
			return core.NewConfigError("rule", "rule expression '%s' reads undeclared column '%s'", expr.Text, v)
		}
	}
	expr.Function = ""
	if m := singleCallRegex.FindStringSubmatch(expr.Text); m != nil && len(expr.Columns) == 1 {
		if _, ok := r.Algorithm(m[1]); ok && expr.Columns[0].Key() == core.TrimAndLower(m[2]) {
			expr.Function = core.TrimAndLower(m[1])
		}
	}
	return nil
}
