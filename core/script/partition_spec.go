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
	"fmt"
	"strconv"
	"strings"

	"github.com/endink/sharding-core/core"
	"github.com/scylladb/go-set/strset"
)

// ParsePartitionSpec expands a partition list such as
//
//	shard1.t_order_[0-1], shard2.t_order_[2-3]
//	ds[0-1].t_user
//	ds_${range(0,1)}.t_order_${[0,1]}
//
// into table nodes. A bracket on the table part becomes the node suffix, a
// bracket on the shard part expands the shard name. An item without a table
// part uses table, so "shard1[0-1]" yields table+"0" and table+"1".
func ParsePartitionSpec(spec string, table string) ([]core.TableNode, error) {
	items, err := splitTopLevel(spec)
	if err != nil {
		return nil, core.NewConfigError("partition", "%v, spec: %s", err, spec)
	}
	if len(items) == 0 {
		return nil, core.NewConfigError("partition", "partition spec is empty")
	}

	var nodes []core.TableNode
	keys := strset.New()
	for _, item := range items {
		if item == "" {
			return nil, core.NewConfigError("partition", "empty item in partition spec: %s", spec)
		}
		expanded, err := expandItem(item, table)
		if err != nil {
			return nil, core.NewConfigError("partition", "%v, item: %s", err, item)
		}
		for _, n := range expanded {
			key := n.Shard + "." + n.Name + "#" + n.Suffix
			if keys.Has(key) {
				return nil, core.NewConfigError("partition", "duplicate partition '%s' in spec: %s", n, spec)
			}
			keys.Add(key)
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func expandItem(item string, table string) ([]core.TableNode, error) {
	if strings.Contains(item, "${") {
		return expandInlineItem(item, table)
	}

	shardPart, tablePart := item, ""
	if dot := indexOutsideBrackets(item, '.'); dot >= 0 {
		shardPart, tablePart = item[:dot], item[dot+1:]
		if strings.TrimSpace(tablePart) == "" {
			return nil, fmt.Errorf("table name is missing")
		}
	} else {
		// shard[suffix] form, the bracket belongs to the table
		if open := strings.IndexByte(item, '['); open >= 0 {
			shardPart, tablePart = item[:open], table+item[open:]
		} else {
			tablePart = table
		}
	}
	if strings.TrimSpace(tablePart) == "" {
		return nil, fmt.Errorf("table name is missing")
	}

	shardPrefix, shardElems, err := parseBracket(shardPart)
	if err != nil {
		return nil, err
	}
	tableName, suffixes, err := parseBracket(tablePart)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateIdentifier(shardPrefix); err != nil {
		return nil, err
	}

	var nodes []core.TableNode
	for _, s := range elementsOrEmpty(shardElems) {
		for _, suffix := range elementsOrEmpty(suffixes) {
			nodes = append(nodes, core.NewTableNode(shardPrefix+s, tableName, suffix))
		}
	}
	return nodes, nil
}

func expandInlineItem(item string, table string) ([]core.TableNode, error) {
	expr, err := NewInlineExpression(item)
	if err != nil {
		return nil, err
	}
	names, err := expr.Flat()
	if err != nil {
		return nil, err
	}
	nodes := make([]core.TableNode, 0, len(names))
	for _, name := range names {
		shard, tableName := name, table
		if dot := strings.IndexByte(name, '.'); dot >= 0 {
			shard, tableName = name[:dot], name[dot+1:]
		}
		if strings.TrimSpace(tableName) == "" {
			return nil, fmt.Errorf("table name is missing in '%s'", name)
		}
		nodes = append(nodes, core.NewTableNode(shard, tableName, ""))
	}
	return nodes, nil
}

func elementsOrEmpty(elems []string) []string {
	if len(elems) == 0 {
		return []string{""}
	}
	return elems
}

// parseBracket splits "name[range]" into its prefix and expanded elements.
func parseBracket(part string) (string, []string, error) {
	part = strings.TrimSpace(part)
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.ContainsRune(part, ']') {
			return "", nil, fmt.Errorf("unexpected ']' in '%s'", part)
		}
		return part, nil, nil
	}
	if !strings.HasSuffix(part, "]") || strings.Count(part, "[") != 1 || strings.Count(part, "]") != 1 {
		return "", nil, fmt.Errorf("only one trailing suffix range is allowed in '%s'", part)
	}
	prefix := strings.TrimSpace(part[:open])
	if prefix == "" {
		return "", nil, fmt.Errorf("name is missing before '[' in '%s'", part)
	}
	elems, err := expandRange(part[open+1 : len(part)-1])
	if err != nil {
		return "", nil, err
	}
	return prefix, elems, nil
}

// expandRange expands "0-3", "00-15", "a-d" and lists such as "0,2,5-6".
func expandRange(content string) ([]string, error) {
	var result []string
	for _, item := range strings.Split(content, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("empty element in range '[%s]'", content)
		}
		dash := strings.IndexByte(item, '-')
		if dash <= 0 {
			result = append(result, item)
			continue
		}
		from, to := strings.TrimSpace(item[:dash]), strings.TrimSpace(item[dash+1:])
		elems, err := expandSpan(from, to)
		if err != nil {
			return nil, err
		}
		result = append(result, elems...)
	}
	return result, nil
}

func expandSpan(from, to string) ([]string, error) {
	if isLetter(from) && isLetter(to) {
		if from[0] > to[0] {
			return nil, fmt.Errorf("invalid range '%s-%s'", from, to)
		}
		var r []string
		for c := from[0]; c <= to[0]; c++ {
			r = append(r, string(c))
		}
		return r, nil
	}

	begin, err := strconv.Atoi(from)
	if err != nil {
		return nil, fmt.Errorf("invalid range '%s-%s'", from, to)
	}
	end, err := strconv.Atoi(to)
	if err != nil || begin > end || begin < 0 {
		return nil, fmt.Errorf("invalid range '%s-%s'", from, to)
	}
	width := 0
	if len(from) > 1 && from[0] == '0' {
		width = len(from)
	}
	r := make([]string, 0, end-begin+1)
	for i := begin; i <= end; i++ {
		r = append(r, fmt.Sprintf("%0*d", width, i))
	}
	return r, nil
}

func isLetter(s string) bool {
	return len(s) == 1 && ((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}

func indexOutsideBrackets(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits at commas outside of [] and {}.
func splitTopLevel(s string) ([]string, error) {
	var items []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced '%c' at %d", s[i], i)
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	if strings.TrimSpace(s) != "" {
		items = append(items, strings.TrimSpace(s[start:]))
	}
	return items, nil
}
