// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import "sync"

// lockGuard remembers whether mu is held, so a deferred release unlocks it
// on every return path, also after an explicit unlock and relock.
type lockGuard struct {
	mu   *sync.Mutex
	held bool
}

func acquire(mu *sync.Mutex) *lockGuard {
	mu.Lock()
	return &lockGuard{mu: mu, held: true}
}

func (g *lockGuard) lock() {
	g.mu.Lock()
	g.held = true
}

func (g *lockGuard) unlock() {
	g.held = false
	g.mu.Unlock()
}

func (g *lockGuard) release() {
	if g.held {
		g.unlock()
	}
}
