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
	"context"
	"database/sql"
	"database/sql/driver"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// Connection is a pooled connection borrowed from one replica. Release must
// be called exactly once.
type Connection struct {
	conn   *sql.Conn
	marker *DataSourceMarker
	router *ShardRouter
}

func (c *Connection) Conn() *sql.Conn {
	return c.conn
}

func (c *Connection) Marker() *DataSourceMarker {
	return c.marker
}

func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

// Release returns the connection to its pool. A connection level err demotes
// the replica so the next Acquire skips it until the health check passes.
func (c *Connection) Release(err error) error {
	if IsConnectionError(err) {
		c.router.ReportFailure(c.marker, err)
	}
	return c.conn.Close()
}

// IsConnectionError separates broken transports from statement errors.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
