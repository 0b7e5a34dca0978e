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
	"net/http"
	"strings"

	"github.com/endink/sharding-core/core"
	"github.com/endink/sharding-core/routing"
	"github.com/gin-gonic/gin"
)

type replicaView struct {
	Name        string `json:"name"`
	Readable    bool   `json:"readable"`
	Writable    bool   `json:"writable"`
	ReadWeight  int    `json:"readWeight"`
	WriteWeight int    `json:"writeWeight"`
	Abnormal    bool   `json:"abnormal"`
	Failures    int32  `json:"failures"`
	LastError   string `json:"lastError,omitempty"`
}

type shardView struct {
	Name           string        `json:"name"`
	ReadAvailable  int           `json:"readAvailable"`
	WriteAvailable int           `json:"writeAvailable"`
	Replicas       []replicaView `json:"replicas"`
}

type routeView struct {
	Table    string   `json:"table"`
	Full     bool     `json:"full"`
	Empty    bool     `json:"empty"`
	Selected []string `json:"selected"`
}

type errorView struct {
	Error string `json:"error"`
}

func (s *Server) handleShards(c *gin.Context) {
	if s.cluster == nil {
		c.JSON(http.StatusOK, gin.H{"shards": []shardView{}})
		return
	}
	shards := make([]shardView, 0, len(s.cluster.Shards()))
	for _, name := range s.cluster.Shards() {
		router, _ := s.cluster.Shard(name)
		view := shardView{
			Name:           name,
			ReadAvailable:  router.Available(true),
			WriteAvailable: router.Available(false),
		}
		for _, m := range router.Markers() {
			r := replicaView{
				Name:        m.Name,
				Readable:    m.Readable,
				Writable:    m.Writable,
				ReadWeight:  m.ReadWeight,
				WriteWeight: m.WriteWeight,
				Abnormal:    m.IsAbnormal(),
				Failures:    m.Failures(),
			}
			if err := m.LastError(); err != nil {
				r.LastError = err.Error()
			}
			view.Replicas = append(view.Replicas, r)
		}
		shards = append(shards, view)
	}
	c.JSON(http.StatusOK, gin.H{"shards": shards})
}

func (s *Server) handleTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": s.router.Tables()})
}

// handleRoute previews the routing of a predicate given as query
// parameters: "col=v" is equality, "col=v1,v2" an IN list and "col=a..b" a
// range with optional open ends.
func (s *Server) handleRoute(c *gin.Context) {
	table := c.Param("table")
	router, ok := s.router.Table(table)
	if !ok {
		c.JSON(http.StatusNotFound, errorView{Error: "unknown table '" + table + "'"})
		return
	}

	var conditions []routing.Condition
	for _, col := range router.RuleColumns() {
		raw, found := lookupQuery(c, col.Name)
		if !found {
			continue
		}
		cond, err := parseCondition(col, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorView{Error: err.Error()})
			return
		}
		conditions = append(conditions, cond)
	}

	result, err := s.router.Route(table, conditions...)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsRoutingError(err) || core.IsRuleEvaluationError(err) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, errorView{Error: err.Error()})
		return
	}

	view := routeView{
		Table:    result.Table(),
		Full:     result.IsFullNode(),
		Empty:    result.IsEmpty(),
		Selected: make([]string, 0, len(result.Selected())),
	}
	for _, n := range result.Selected() {
		view.Selected = append(view.Selected, n.String())
	}
	c.JSON(http.StatusOK, view)
}

func lookupQuery(c *gin.Context, name string) (string, bool) {
	for key, values := range c.Request.URL.Query() {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}

func parseCondition(col *core.RuleColumn, raw string) (routing.Condition, error) {
	if begin, end, isRange := strings.Cut(raw, ".."); isRange {
		b, err := coerceOptional(col, begin)
		if err != nil {
			return nil, err
		}
		e, err := coerceOptional(col, end)
		if err != nil {
			return nil, err
		}
		return routing.Between{Column: col.Name, Begin: b, End: e}, nil
	}
	parts := strings.Split(raw, ",")
	values := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := col.Coerce(p)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if len(values) == 1 {
		return routing.Equal{Column: col.Name, Value: values[0]}, nil
	}
	return routing.In{Column: col.Name, Values: values}, nil
}

func coerceOptional(col *core.RuleColumn, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	return col.Coerce(raw)
}
