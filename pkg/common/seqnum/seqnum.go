// Copyright 2022 - 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package seqnum

import (
	"sync/atomic"
)

// IdAlloctor hands out strictly increasing ids, safe for concurrent use.
type IdAlloctor struct {
	id atomic.Uint64
}

func NewIdAlloctor(from uint64) *IdAlloctor {
	if from == 0 {
		panic("should not be 0")
	}

	alloc := &IdAlloctor{}
	alloc.id.Store(from - 1)
	return alloc
}

func (alloc *IdAlloctor) Alloc() uint64 {
	return alloc.id.Add(1)
}
