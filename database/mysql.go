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

import (
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// MySQLEndpoint is the address and credentials of one MySQL replica.
type MySQLEndpoint struct {
	Address  string
	User     string
	Password string
	Schema   string
	Params   map[string]string
	Timeout  time.Duration
}

func (e MySQLEndpoint) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = e.Address
	cfg.User = e.User
	cfg.Passwd = e.Password
	cfg.DBName = e.Schema
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	if e.Timeout > 0 {
		cfg.Timeout = e.Timeout
	}
	if len(e.Params) > 0 {
		cfg.Params = make(map[string]string, len(e.Params))
		for k, v := range e.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}

// OpenMySQL creates the pool of one replica. No connection is made until
// the first Conn call.
func OpenMySQL(endpoint MySQLEndpoint, pool PoolConfig) (*sql.DB, error) {
	if endpoint.Address == "" {
		return nil, errors.New("mysql address can not be empty")
	}
	db, err := sql.Open("mysql", endpoint.DSN())
	if err != nil {
		return nil, errors.Wrapf(err, "open mysql %s", endpoint.Address)
	}
	pool = pool.withDefaults()
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxIdleTime(pool.IdleTimeout)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	return db, nil
}
