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

package partition

import (
	"github.com/endink/sharding-core/core"
	"github.com/pkg/errors"
)

type Kind string

const (
	KindHash    Kind = "hash"
	KindRange   Kind = "range"
	KindRolling Kind = "rolling"
	KindDirect  Kind = "direct"
)

var Kinds = []Kind{KindHash, KindRange, KindRolling, KindDirect}

// New builds a partition function of the given kind from its properties.
func New(kind string, props core.Properties) (core.PartitionFunction, error) {
	if props == nil {
		props = core.EmptyProperties
	}
	switch Kind(core.TrimAndLower(kind)) {
	case KindHash:
		var cfg HashConfig
		if err := props.PopulateValue(&cfg); err != nil {
			return nil, errors.Wrap(err, "invalid hash properties")
		}
		return NewHash(cfg)
	case KindRange:
		var cfg RangeConfig
		if err := props.PopulateValue(&cfg); err != nil {
			return nil, errors.Wrap(err, "invalid range properties")
		}
		return NewRange(cfg)
	case KindRolling:
		var cfg RollingConfig
		if err := props.PopulateValue(&cfg); err != nil {
			return nil, errors.Wrap(err, "invalid rolling properties")
		}
		return NewRolling(cfg)
	case KindDirect:
		var cfg DirectConfig
		if err := props.PopulateValue(&cfg); err != nil {
			return nil, errors.Wrap(err, "invalid direct properties")
		}
		return NewDirect(cfg)
	}
	return nil, errors.Errorf("unknown partition algorithm '%s', supported: %v", kind, Kinds)
}
