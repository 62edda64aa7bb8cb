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

package catalogif

import (
	"context"
	"math"

	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
)

// TxnCtx is what every catalog operation runs under.
type TxnCtx struct {
	ID      txnts.TS
	StartTS txnts.TS
	// Undo is nil for work done outside a transaction.
	Undo UndoBuffer
	// Ctx is the client context, nil when the operation has no client.
	Ctx context.Context
}

// SystemTxn returns the context used for bootstrap work. Its writes are
// stamped committed at ZeroTS and it reads every committed version.
func SystemTxn(ctx context.Context) TxnCtx {
	return TxnCtx{
		ID:      txnts.ZeroTS,
		StartTS: txnts.CommitTS(math.MaxUint64),
		Ctx:     ctx,
	}
}

func (txn TxnCtx) Snapshot() txnts.Snapshot {
	return txnts.Snapshot{TxnID: txn.ID, StartTS: txn.StartTS}
}

// Context returns the client context or a background one.
func (txn TxnCtx) Context() context.Context {
	if txn.Ctx == nil {
		return context.Background()
	}
	return txn.Ctx
}

// VersionedSet is the side of an entry set the transaction manager drives
// when a transaction finishes. prev is always an entry that was pushed to
// an UndoBuffer by the set.
type VersionedSet interface {
	Name() string
	// CommitWrite stamps the write made on top of prev with ts.
	CommitWrite(prev *chain.Entry, ts txnts.TS) error
	// Undo removes the write made on top of prev.
	Undo(prev *chain.Entry) error
	// CleanupEntry reclaims prev once no snapshot can read it.
	CleanupEntry(prev *chain.Entry) error
}

// UndoBuffer records the writes of one transaction in order.
type UndoBuffer interface {
	PushCatalogEntry(set VersionedSet, prev *chain.Entry, alterRecord []byte)
	// PushRevert records fn to run if the transaction rolls back, once its
	// catalog writes are undone. Reverts run newest first.
	PushRevert(fn func())
}

// ObjectRef names an entry across sets.
type ObjectRef struct {
	Set  string
	Name string
}

func RefOf(entry *chain.Entry) ObjectRef {
	return ObjectRef{Set: entry.Set, Name: entry.Name}
}

func (ref ObjectRef) String() string {
	if ref.Set == "" {
		return ref.Name
	}
	return ref.Set + "." + ref.Name
}

// DependencyManager tracks which entries depend on which. Every method is
// called without catalog locks held.
type DependencyManager interface {
	RegisterDependencies(txn TxnCtx, entry *chain.Entry, deps []ObjectRef) error
	// DropCascade drops or rejects the dependents of entry before entry
	// itself is dropped.
	DropCascade(txn TxnCtx, entry *chain.Entry, cascade bool) error
	// NotifyAltered runs after old was replaced by altered in the catalog.
	NotifyAltered(txn TxnCtx, old, altered *chain.Entry) error
	TransferOwnership(txn TxnCtx, owner, owned *chain.Entry) error
}

// DefaultGenerator synthesizes entries that are not stored until first
// referenced.
type DefaultGenerator interface {
	// CreateDefaultEntry returns nil if name is not a default entry.
	CreateDefaultEntry(ctx context.Context, name string) (*chain.Entry, error)
	DefaultEntryNames() []string
	// Drained reports whether every default entry was materialized.
	Drained() bool
	SetDrained()
}

// EntryResolver resolves and drops entries by reference. The catalog
// implements it for collaborators that act on entries of other sets.
type EntryResolver interface {
	ResolveEntry(txn TxnCtx, ref ObjectRef) (*chain.Entry, error)
	DropEntry(txn TxnCtx, ref ObjectRef, cascade bool) (bool, error)
}
