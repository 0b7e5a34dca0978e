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

package core

import "strings"

// TableNode is one physical placement of a logical table. It is a comparable
// value and can be used as a map key.
type TableNode struct {
	Shard  string
	Name   string
	Suffix string
}

func NewTableNode(shard, name, suffix string) TableNode {
	return TableNode{
		Shard:  strings.TrimSpace(shard),
		Name:   strings.TrimSpace(name),
		Suffix: strings.TrimSpace(suffix),
	}
}

// CompositeName is the physical table name, object name followed by suffix.
func (n TableNode) CompositeName() string {
	return n.Name + n.Suffix
}

func (n TableNode) IsZero() bool {
	return n.Shard == "" && n.Name == "" && n.Suffix == ""
}

func (n TableNode) String() string {
	return n.Shard + "." + n.CompositeName()
}

// TableNodeGroup is the set of nodes of one shard selected by a routing result.
type TableNodeGroup struct {
	Shard string
	Nodes []TableNode
}
