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
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
)

func TestIdAlloctor(t *testing.T) {
	alloc := NewIdAlloctor(1)
	assert.Equal(t, uint64(1), alloc.Alloc())
	assert.Equal(t, uint64(2), alloc.Alloc())
	alloc = NewIdAlloctor(100)
	assert.Equal(t, uint64(100), alloc.Alloc())
	assert.Panics(t, func() { NewIdAlloctor(0) })
}

func TestIdAlloctorConcurrent(t *testing.T) {
	alloc := NewIdAlloctor(1)
	pool, err := ants.NewPool(8)
	assert.NoError(t, err)
	defer pool.Release()

	var (
		mu   sync.Mutex
		seen = make(map[uint64]struct{})
		wg   sync.WaitGroup
	)
	workers, perWorker := 8, 1000
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		_ = pool.Submit(func() {
			defer wg.Done()
			local := make([]uint64, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, alloc.Alloc())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		})
	}
	wg.Wait()
	assert.Equal(t, workers*perWorker, len(seen))
	assert.Equal(t, uint64(workers*perWorker), alloc.Get())
}
