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

package chain

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// Handle addresses an entry in an Arena. A handle outlives its entry: once
// the slot is released and reused the generation no longer matches and the
// handle resolves to nil.
type Handle struct {
	slot uint32
	gen  uint32
}

func (h Handle) IsNil() bool { return h.gen == 0 }

func (h Handle) String() string {
	if h.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d#%d", h.slot, h.gen)
}

type slot struct {
	entry *Entry
	gen   uint32
}

// Arena owns every entry of one name index. Not safe for concurrent use.
type Arena struct {
	slots []slot
	free  *roaring.Bitmap
	live  int
}

func NewArena() *Arena {
	return &Arena{
		free: roaring.New(),
	}
}

// Insert stores e and returns its handle.
func (a *Arena) Insert(e *Entry) Handle {
	if a.Contains(e) {
		panic(fmt.Sprintf("entry %s inserted twice", e))
	}
	var idx uint32
	if !a.free.IsEmpty() {
		idx = a.free.Minimum()
		a.free.Remove(idx)
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.gen++
	s.entry = e
	e.handle = Handle{slot: idx, gen: s.gen}
	a.live++
	return e.handle
}

// Get resolves h, nil if h is nil or stale.
func (a *Arena) Get(h Handle) *Entry {
	if h.IsNil() || int(h.slot) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.slot]
	if s.gen != h.gen {
		return nil
	}
	return s.entry
}

// Contains reports whether e is currently stored in a.
func (a *Arena) Contains(e *Entry) bool {
	return e != nil && a.Get(e.handle) == e
}

// Release frees the slot of h. It returns false if h was already stale.
func (a *Arena) Release(h Handle) bool {
	e := a.Get(h)
	if e == nil {
		return false
	}
	s := &a.slots[h.slot]
	s.entry = nil
	// bump now so h goes stale even before the slot is reused
	s.gen++
	a.free.Add(h.slot)
	a.live--
	return true
}

func (a *Arena) Len() int { return a.live }
