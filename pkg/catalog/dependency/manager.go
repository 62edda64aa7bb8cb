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

package dependency

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"

	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	"github.com/matrixorigin/mocatalog/pkg/logutil"
)

type edgeKind uint8

const (
	// edgeRegular blocks a drop of the dependency unless it cascades.
	edgeRegular edgeKind = iota
	// edgeOwned is dropped together with its owner.
	edgeOwned
)

type key struct {
	set  string
	name string
}

type edge struct {
	ref  catalogif.ObjectRef
	kind edgeKind
}

// Manager tracks dependencies between entries by name. Edges are not
// versioned: an edge whose dependent is not visible to a transaction is
// ignored by it. Changes made by a transaction are undone when it rolls
// back.
type Manager struct {
	mu         sync.Mutex
	resolver   catalogif.EntryResolver
	caser      cases.Caser
	dependents map[key]map[key]edge
	owners     map[key]catalogif.ObjectRef
}

var _ catalogif.DependencyManager = (*Manager)(nil)

func NewManager(resolver catalogif.EntryResolver) *Manager {
	return &Manager{
		resolver:   resolver,
		caser:      cases.Fold(),
		dependents: make(map[key]map[key]edge),
		owners:     make(map[key]catalogif.ObjectRef),
	}
}

func (m *Manager) keyOf(ref catalogif.ObjectRef) key {
	return key{set: ref.Set, name: m.caser.String(ref.Name)}
}

// setEdgeLocked sets or, when e is nil, removes the edge from on to
// dependent. It returns the edge that was there before.
func (m *Manager) setEdgeLocked(on, dependent key, e *edge) *edge {
	edges := m.dependents[on]
	var prev *edge
	if old, ok := edges[dependent]; ok {
		prev = &old
	}
	if e != nil {
		if edges == nil {
			edges = make(map[key]edge)
			m.dependents[on] = edges
		}
		edges[dependent] = *e
	} else if prev != nil {
		delete(edges, dependent)
		if len(edges) == 0 {
			delete(m.dependents, on)
		}
	}
	return prev
}

// setOwnerLocked sets or, when owner is nil, removes the owner of owned.
// It returns the owner that was there before.
func (m *Manager) setOwnerLocked(owned key, owner *catalogif.ObjectRef) *catalogif.ObjectRef {
	var prev *catalogif.ObjectRef
	if old, ok := m.owners[owned]; ok {
		prev = &old
	}
	if owner != nil {
		m.owners[owned] = *owner
	} else {
		delete(m.owners, owned)
	}
	return prev
}

// journal collects the inverse of the edge changes one write makes, so a
// rollback of its transaction puts the replaced edges back.
type journal struct {
	m       *Manager
	reverts []func()
}

func (m *Manager) newJournal() *journal {
	return &journal{m: m}
}

func (j *journal) putEdge(on, dependent key, e *edge) {
	m := j.m
	prev := m.setEdgeLocked(on, dependent, e)
	if e == nil && prev == nil {
		return
	}
	j.reverts = append(j.reverts, func() { m.setEdgeLocked(on, dependent, prev) })
}

func (j *journal) putOwner(owned key, owner *catalogif.ObjectRef) {
	m := j.m
	prev := m.setOwnerLocked(owned, owner)
	if owner == nil && prev == nil {
		return
	}
	j.reverts = append(j.reverts, func() { m.setOwnerLocked(owned, prev) })
}

// record hands the journal to the undo buffer of txn. Work done outside a
// transaction is never rolled back.
func (j *journal) record(txn catalogif.TxnCtx) {
	if txn.Undo == nil || len(j.reverts) == 0 {
		return
	}
	m, reverts := j.m, j.reverts
	txn.Undo.PushRevert(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i := len(reverts) - 1; i >= 0; i-- {
			reverts[i]()
		}
	})
}

func (m *Manager) addEdgeLocked(j *journal, on catalogif.ObjectRef, dependent catalogif.ObjectRef, kind edgeKind) {
	j.putEdge(m.keyOf(on), m.keyOf(dependent), &edge{ref: dependent, kind: kind})
}

// forgetDependentLocked removes every edge where ref is the dependent.
func (m *Manager) forgetDependentLocked(j *journal, ref catalogif.ObjectRef) {
	k := m.keyOf(ref)
	for on, edges := range m.dependents {
		if _, ok := edges[k]; ok {
			j.putEdge(on, k, nil)
		}
	}
	j.putOwner(k, nil)
}

// reachableLocked reports whether to is dropped, directly or through other
// entries, whenever from is. Edges left by dropped entries count too.
func (m *Manager) reachableLocked(from, to key) bool {
	seen := map[key]struct{}{from: {}}
	stack := []key{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		for next := range m.dependents[cur] {
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				stack = append(stack, next)
			}
		}
	}
	return false
}

// RegisterDependencies records that entry depends on deps. Every dependency
// must be visible to txn. Edges left by an earlier, dropped entry of the
// same name are forgotten. Nothing is recorded while txn still sees a live
// entry under that name, the create is about to fail then.
func (m *Manager) RegisterDependencies(txn catalogif.TxnCtx, entry *chain.Entry, deps []catalogif.ObjectRef) error {
	ctx := txn.Context()
	for _, dep := range deps {
		e, err := m.resolver.ResolveEntry(txn, dep)
		if err != nil {
			return err
		}
		if e == nil {
			return moerr.NewNoSuchEntry(ctx, dep.Set, dep.Name)
		}
	}
	self := catalogif.RefOf(entry)
	existing, err := m.resolver.ResolveEntry(txn, self)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dep := range deps {
		if m.reachableLocked(m.keyOf(self), m.keyOf(dep)) {
			return moerr.NewInvalidInput(ctx, "%s cannot depend on %s, dropping %s drops it", self, dep, self)
		}
	}
	j := m.newJournal()
	defer j.record(txn)
	m.forgetDependentLocked(j, self)
	for _, dep := range deps {
		m.addEdgeLocked(j, dep, self, edgeRegular)
	}
	return nil
}

func (m *Manager) edgesOf(ref catalogif.ObjectRef) []edge {
	m.mu.Lock()
	defer m.mu.Unlock()
	edges := m.dependents[m.keyOf(ref)]
	result := make([]edge, 0, len(edges))
	for _, e := range edges {
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b edge) bool {
		return a.ref.String() < b.ref.String()
	})
	return result
}

// liveDependents returns the edges on ref whose dependent txn can see.
func (m *Manager) liveDependents(txn catalogif.TxnCtx, ref catalogif.ObjectRef) ([]edge, error) {
	var live []edge
	for _, e := range m.edgesOf(ref) {
		entry, err := m.resolver.ResolveEntry(txn, e.ref)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			live = append(live, e)
		}
	}
	return live, nil
}

func joinRefs(edges []edge) string {
	names := make([]string, 0, len(edges))
	for _, e := range edges {
		names = append(names, e.ref.String())
	}
	return strings.Join(names, ", ")
}

// DropCascade drops what entry owns and, when cascade is set, what depends
// on it. Without cascade a regular dependent fails the drop.
func (m *Manager) DropCascade(txn catalogif.TxnCtx, entry *chain.Entry, cascade bool) error {
	ref := catalogif.RefOf(entry)
	live, err := m.liveDependents(txn, ref)
	if err != nil {
		return err
	}
	var blocking []edge
	for _, e := range live {
		if e.kind == edgeRegular && !cascade {
			blocking = append(blocking, e)
		}
	}
	if len(blocking) > 0 {
		return moerr.NewDependentObjects(txn.Context(), ref.String(), joinRefs(blocking))
	}
	for _, e := range live {
		dropped, err := m.resolver.DropEntry(txn, e.ref, cascade)
		if err != nil {
			return err
		}
		if dropped {
			logutil.Debug("dependency dropped",
				zap.String("on", ref.String()),
				zap.String("dependent", e.ref.String()))
		}
	}
	return nil
}

// NotifyAltered rejects renaming an entry others depend on and moves the
// edges of a renamed dependent to its new name.
func (m *Manager) NotifyAltered(txn catalogif.TxnCtx, old, altered *chain.Entry) error {
	from, to := catalogif.RefOf(old), catalogif.RefOf(altered)
	if m.keyOf(from) == m.keyOf(to) {
		return nil
	}
	live, err := m.liveDependents(txn, from)
	if err != nil {
		return err
	}
	if len(live) > 0 {
		return moerr.NewInvalidInput(txn.Context(),
			"cannot rename %s because other entries depend on it: %s", from, joinRefs(live))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.newJournal()
	defer j.record(txn)
	fromKey, toKey := m.keyOf(from), m.keyOf(to)
	for on, edges := range m.dependents {
		if e, ok := edges[fromKey]; ok {
			e.ref = to
			j.putEdge(on, fromKey, nil)
			j.putEdge(on, toKey, &e)
		}
	}
	if owner, ok := m.owners[fromKey]; ok {
		j.putOwner(fromKey, nil)
		j.putOwner(toKey, &owner)
	}
	return nil
}

// TransferOwnership makes owned get dropped whenever owner is. Ownership
// is one level deep: an owned entry owns nothing, and an owner is not
// owned. Nothing that owned drops may drop owner in turn.
func (m *Manager) TransferOwnership(txn catalogif.TxnCtx, owner, owned *chain.Entry) error {
	ctx := txn.Context()
	ownerRef, ownedRef := catalogif.RefOf(owner), catalogif.RefOf(owned)
	ownerKey, ownedKey := m.keyOf(ownerRef), m.keyOf(ownedRef)
	if ownerKey == ownedKey {
		return moerr.NewInvalidInput(ctx, "%s cannot own itself", ownerRef)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.owners[ownedKey]; ok {
		if m.keyOf(cur) == ownerKey {
			return nil
		}
		return moerr.NewInvalidInput(ctx, "%s is already owned by %s", ownedRef, cur)
	}
	if cur, ok := m.owners[ownerKey]; ok {
		return moerr.NewInvalidInput(ctx, "%s is owned by %s and cannot own other entries", ownerRef, cur)
	}
	for _, o := range m.owners {
		if m.keyOf(o) == ownedKey {
			return moerr.NewInvalidInput(ctx, "%s owns other entries and cannot be owned", ownedRef)
		}
	}
	if m.reachableLocked(ownedKey, ownerKey) {
		return moerr.NewInvalidInput(ctx, "%s cannot own %s, dropping %s drops it", ownerRef, ownedRef, ownedRef)
	}
	j := m.newJournal()
	defer j.record(txn)
	j.putOwner(ownedKey, &ownerRef)
	m.addEdgeLocked(j, ownerRef, ownedRef, edgeOwned)
	return nil
}

// Dependents lists the references recorded as depending on ref.
func (m *Manager) Dependents(ref catalogif.ObjectRef) []catalogif.ObjectRef {
	edges := m.edgesOf(ref)
	refs := make([]catalogif.ObjectRef, 0, len(edges))
	for _, e := range edges {
		refs = append(refs, e.ref)
	}
	return refs
}

// Owner returns the owner of ref, if any.
func (m *Manager) Owner(ref catalogif.ObjectRef) (catalogif.ObjectRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[m.keyOf(ref)]
	return owner, ok
}
