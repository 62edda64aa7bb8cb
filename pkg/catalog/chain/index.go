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
	"github.com/tidwall/btree"
	"golang.org/x/text/cases"

	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
)

type chainRef struct {
	seq  uint64
	key  string
	head Handle
}

func compareChainRef(a, b *chainRef) bool {
	return a.seq < b.seq
}

// NameIndex maps names to the heads of their version chains. Keys compare
// case-insensitively. Scans see chains in the order their names were first
// added.
//
// NameIndex is not safe for concurrent use, callers hold the structural
// lock of the owning set.
type NameIndex struct {
	arena   *Arena
	chains  map[string]*chainRef
	order   *btree.BTreeG[*chainRef]
	nextSeq uint64
	caser   cases.Caser
}

func NewNameIndex() *NameIndex {
	return &NameIndex{
		arena:  NewArena(),
		chains: make(map[string]*chainRef),
		order:  btree.NewBTreeG[*chainRef](compareChainRef),
		caser:  cases.Fold(),
	}
}

// Key returns the case folded form of name.
func (idx *NameIndex) Key(name string) string {
	return idx.caser.String(name)
}

// Add creates a single node chain for node.
func (idx *NameIndex) Add(node *Entry) error {
	key := idx.Key(node.Name)
	if _, ok := idx.chains[key]; ok {
		return moerr.NewInternalError(moerr.Context(),
			"entry %q already has a version chain", node.Name)
	}
	node.heir, node.elder = Handle{}, Handle{}
	idx.nextSeq++
	ref := &chainRef{
		seq:  idx.nextSeq,
		key:  key,
		head: idx.arena.Insert(node),
	}
	idx.chains[key] = ref
	idx.order.Set(ref)
	return nil
}

// ReplaceHead pushes node on top of the chain of its name.
func (idx *NameIndex) ReplaceHead(node *Entry) error {
	ref, ok := idx.chains[idx.Key(node.Name)]
	if !ok {
		return moerr.NewInternalError(moerr.Context(),
			"entry %q does not have a version chain to replace", node.Name)
	}
	old := idx.arena.Get(ref.head)
	node.heir = Handle{}
	node.elder = ref.head
	h := idx.arena.Insert(node)
	old.heir = h
	ref.head = h
	return nil
}

// Lookup returns the head of the chain for name, nil if there is none.
func (idx *NameIndex) Lookup(name string) *Entry {
	ref, ok := idx.chains[idx.Key(name)]
	if !ok {
		return nil
	}
	return idx.arena.Get(ref.head)
}

// Contains reports whether node is still linked into some chain.
func (idx *NameIndex) Contains(node *Entry) bool {
	return idx.arena.Contains(node)
}

// Heir returns the newer neighbour of node.
func (idx *NameIndex) Heir(node *Entry) *Entry {
	return idx.arena.Get(node.heir)
}

// Elder returns the older neighbour of node.
func (idx *NameIndex) Elder(node *Entry) *Entry {
	return idx.arena.Get(node.elder)
}

// RemoveChainNode unlinks node from its chain and releases it. Removing the
// sole node of a chain erases the name.
func (idx *NameIndex) RemoveChainNode(node *Entry) error {
	if !idx.arena.Contains(node) {
		return moerr.NewInternalError(moerr.Context(),
			"entry %s is not linked into a version chain", node)
	}
	key := idx.Key(node.Name)
	ref, ok := idx.chains[key]
	if !ok {
		return moerr.NewInternalError(moerr.Context(),
			"entry %s has no version chain for its name", node)
	}
	heir := idx.arena.Get(node.heir)
	elder := idx.arena.Get(node.elder)
	if heir == nil {
		if ref.head != node.handle {
			return moerr.NewInternalError(moerr.Context(),
				"entry %s has no heir but is not the head", node)
		}
		if elder != nil {
			elder.heir = Handle{}
			ref.head = elder.handle
		} else {
			delete(idx.chains, key)
			idx.order.Delete(ref)
		}
	} else {
		heir.elder = node.elder
		if elder != nil {
			elder.heir = heir.handle
		}
	}
	node.heir, node.elder = Handle{}, Handle{}
	idx.arena.Release(node.handle)
	return nil
}

// Scan calls fn with the head of every chain in insertion order until fn
// returns false.
func (idx *NameIndex) Scan(fn func(head *Entry) bool) {
	idx.order.Scan(func(ref *chainRef) bool {
		return fn(idx.arena.Get(ref.head))
	})
}

// Len is the number of names in the index.
func (idx *NameIndex) Len() int {
	return len(idx.chains)
}

// Nodes is the number of versions across all chains.
func (idx *NameIndex) Nodes() int {
	return idx.arena.Len()
}

// Depth is the number of versions of name.
func (idx *NameIndex) Depth(name string) int {
	n := 0
	for node := idx.Lookup(name); node != nil; node = idx.Elder(node) {
		n++
	}
	return n
}

// Verify checks the chain invariants of every name: the head has no heir,
// links are symmetric, every node folds to its chain's key and every node
// in the arena belongs to exactly one chain.
func (idx *NameIndex) Verify() error {
	ctx := moerr.Context()
	if idx.order.Len() != len(idx.chains) {
		return moerr.NewInternalError(ctx,
			"name index holds %d chains but orders %d", len(idx.chains), idx.order.Len())
	}
	total := 0
	var err error
	idx.order.Scan(func(ref *chainRef) bool {
		head := idx.arena.Get(ref.head)
		if head == nil {
			err = moerr.NewInternalError(ctx, "chain %q has a stale head", ref.key)
			return false
		}
		if !head.heir.IsNil() {
			err = moerr.NewInternalError(ctx, "head %s of chain %q has an heir", head, ref.key)
			return false
		}
		for node := head; node != nil; node = idx.Elder(node) {
			total++
			if total > idx.arena.Len() {
				err = moerr.NewInternalError(ctx, "chain %q loops", ref.key)
				return false
			}
			if idx.Key(node.Name) != ref.key {
				err = moerr.NewInternalError(ctx, "entry %s is linked into chain %q", node, ref.key)
				return false
			}
			if elder := idx.Elder(node); elder != nil && elder.heir != node.handle {
				err = moerr.NewInternalError(ctx, "entry %s and its elder %s disagree", node, elder)
				return false
			}
			if !node.elder.IsNil() && idx.Elder(node) == nil {
				err = moerr.NewInternalError(ctx, "entry %s points to a released elder", node)
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	if total != idx.arena.Len() {
		return moerr.NewInternalError(ctx,
			"arena holds %d entries but chains link %d", idx.arena.Len(), total)
	}
	return nil
}
