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

package database

import "time"

// PoolConfig sizes the connection pool of every replica.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	IdleTimeout time.Duration
	MaxLifetime time.Duration
}

var defaultPoolConfig = PoolConfig{
	MaxOpen:     16,
	MaxIdle:     4,
	IdleTimeout: 30 * time.Minute,
	MaxLifetime: time.Hour,
}

func DefaultPoolConfig() PoolConfig {
	return defaultPoolConfig
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxOpen <= 0 {
		c.MaxOpen = defaultPoolConfig.MaxOpen
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = defaultPoolConfig.MaxIdle
	}
	if c.MaxIdle > c.MaxOpen {
		c.MaxIdle = c.MaxOpen
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultPoolConfig.IdleTimeout
	}
	if c.MaxLifetime <= 0 {
		c.MaxLifetime = defaultPoolConfig.MaxLifetime
	}
	return c
}
