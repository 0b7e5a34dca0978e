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

package server

import (
	"context"

	"github.com/google/uuid"
)

type callIDKey struct{}

// NewCallContext tags ctx with a fresh scatter call id unless it already
// carries one.
func NewCallContext(ctx context.Context) (context.Context, string) {
	if id := CallIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.New().String()
	return context.WithValue(ctx, callIDKey{}, id), id
}

func CallIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}
