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

import (
	"context"
	"math"
	"sync"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	"github.com/matrixorigin/mocatalog/pkg/logutil"
	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
	v2 "github.com/matrixorigin/mocatalog/pkg/util/metric/v2"
)

var distance = levenshtein.ComputeDistance

// EntrySet is one transactional namespace of a catalog, e.g. the tables of
// a schema. Writers take the catalog write lock and then the structural
// lock of the set, readers take the structural lock only.
type EntrySet struct {
	name     string
	catalog  *Catalog
	defaults catalogif.DefaultGenerator

	mu    sync.Mutex
	index *chain.NameIndex
}

var _ catalogif.VersionedSet = (*EntrySet)(nil)

func newEntrySet(catalog *Catalog, name string, defaults catalogif.DefaultGenerator) *EntrySet {
	return &EntrySet{
		name:     name,
		catalog:  catalog,
		defaults: defaults,
		index:    chain.NewNameIndex(),
	}
}

func (set *EntrySet) Name() string { return set.name }

func (set *EntrySet) Catalog() *Catalog { return set.catalog }

func (set *EntrySet) checkPlacement(ctx context.Context, name string, node *chain.Entry) error {
	catalog := set.catalog
	if set.index.Key(node.Name) != set.index.Key(name) {
		return moerr.NewInternalError(ctx, "entry %q is created under name %q", node.Name, name)
	}
	isDefault := name == catalog.defaultSchema
	if node.Internal && !catalog.system && !isDefault {
		return moerr.NewInternalError(ctx,
			"attempting to create internal entry %q in non-system catalog, internal entries can only be created in the system catalog",
			name)
	}
	if node.Internal {
		return nil
	}
	if !node.Temporary && catalog.system && node.Kind != chain.KindDependency {
		return moerr.NewInternalError(ctx,
			"attempting to create non-internal entry %q in system catalog, the system catalog can only contain internal entries",
			name)
	}
	if node.Temporary && !catalog.temporary {
		return moerr.NewInternalError(ctx, "attempting to create temporary entry %q in non-temporary catalog", name)
	}
	if !node.Temporary && catalog.temporary && !isDefault {
		return moerr.NewInvalidInput(ctx, "cannot create non-temporary entry %q in temporary catalog", name)
	}
	return nil
}

// CreateEntry adds node as the newest version of name. It returns false
// when name already has a version that is not deleted.
func (set *EntrySet) CreateEntry(txn catalogif.TxnCtx, name string, node *chain.Entry, deps []catalogif.ObjectRef) (bool, error) {
	ctx := txn.Context()
	if err := set.checkPlacement(ctx, name, node); err != nil {
		return false, err
	}
	node.SetTimestamp(txn.ID)
	node.Set = set.name
	if err := set.catalog.deps.RegisterDependencies(txn, node, deps); err != nil {
		return false, err
	}

	write := acquire(&set.catalog.writeMu)
	defer write.release()
	read := acquire(&set.mu)
	defer read.release()

	head := set.index.Lookup(name)
	if head == nil {
		def, err := set.createDefaultEntry(txn, name, read)
		if err != nil {
			return false, err
		}
		if def != nil {
			return false, nil
		}
		head = set.index.Lookup(name)
	}
	if head == nil {
		// transactions that started before this one commits must keep
		// seeing the name as missing
		root := chain.NewPlaceholder(name)
		root.Set = set.name
		if err := set.index.Add(root); err != nil {
			return false, err
		}
	} else {
		if chain.HasConflict(txn.Snapshot(), head.Timestamp()) {
			v2.CatalogCreateConflictCounter.Inc()
			logutil.Debug("catalog create conflict",
				zap.String("set", set.name),
				zap.Stringer("head", head),
				zap.Stringer("txn", txn.ID))
			return false, moerr.NewTxnWWConflict(ctx, "create", head.Name)
		}
		if !head.Deleted {
			return false, nil
		}
	}

	prev := set.index.Lookup(name)
	if err := set.index.ReplaceHead(node); err != nil {
		return false, err
	}
	if txn.Undo != nil {
		txn.Undo.PushCatalogEntry(set, prev, nil)
	}
	v2.CatalogCreateCounter.Inc()
	v2.CatalogChainDepthHistogram.Observe(float64(set.index.Depth(name)))
	logutil.Debug("catalog create",
		zap.String("set", set.name),
		zap.Stringer("entry", node))
	return true, nil
}

// getEntryInternal returns the head of name for a write by txn, nil if the
// head is deleted. Called with both locks held.
func (set *EntrySet) getEntryInternal(txn catalogif.TxnCtx, name string, op string) (*chain.Entry, error) {
	head := set.index.Lookup(name)
	if head == nil {
		return nil, nil
	}
	if chain.HasConflict(txn.Snapshot(), head.Timestamp()) {
		switch op {
		case "drop":
			v2.CatalogDropConflictCounter.Inc()
		default:
			v2.CatalogAlterConflictCounter.Inc()
		}
		logutil.Debug("catalog write conflict",
			zap.String("op", op),
			zap.String("set", set.name),
			zap.Stringer("head", head),
			zap.Stringer("txn", txn.ID))
		return nil, moerr.NewTxnWWConflict(txn.Context(), op, head.Name)
	}
	if head.Deleted {
		return nil, nil
	}
	return head, nil
}

// AlterEntry applies info to the entry name. It returns false when name
// does not exist. A rename is done as a drop of the old name followed by a
// create of the new one, readers may see neither name in between.
func (set *EntrySet) AlterEntry(txn catalogif.TxnCtx, name string, info chain.AlterInfo) (bool, error) {
	ctx := txn.Context()
	write := acquire(&set.catalog.writeMu)
	defer write.release()
	read := acquire(&set.mu)
	defer read.release()

	entry, err := set.getEntryInternal(txn, name, "alter")
	if err != nil || entry == nil {
		return false, err
	}
	if !info.AllowInternal() && entry.Internal {
		return false, moerr.NewCatalogPermission(ctx,
			"cannot alter entry %q because it is an internal system entry", entry.Name)
	}
	originalName := entry.Name
	if txn.Ctx == nil {
		return false, moerr.NewInternalError(ctx, "cannot alter entry %q without client context", originalName)
	}
	if entry.Object == nil {
		return false, moerr.NewInternalError(ctx, "entry %s has no object to alter", entry)
	}
	altered, err := entry.Object.Alter(txn.Ctx, entry, info)
	if err != nil {
		return false, err
	}
	if altered == nil {
		return true, nil
	}
	altered.SetTimestamp(txn.ID)
	altered.Set = set.name

	var record []byte
	if txn.Undo != nil {
		if record, err = encodeAlterRecord(info); err != nil {
			return false, err
		}
	}

	if set.index.Key(altered.Name) != set.index.Key(originalName) {
		if head := set.index.Lookup(altered.Name); head != nil {
			if dest := set.index.VisibleNode(head, txn.Snapshot()); !dest.Deleted {
				if err := entry.Object.UndoAlter(txn.Ctx, entry, info); err != nil {
					return false, err
				}
				return false, moerr.NewInvalidInput(ctx,
					"could not rename %q to %q: another entry with this name already exists",
					originalName, altered.Name)
			}
		}
		if _, err := set.dropEntryInternal(txn, originalName, info.AllowInternal(), chain.KindRenamed); err != nil {
			return false, err
		}
		read.unlock()
		write.unlock()

		marker := chain.NewEntry(chain.KindRenamed, altered.Name, nil)
		marker.Internal = altered.Internal
		marker.Temporary = altered.Temporary
		created, err := set.CreateEntry(txn, altered.Name, marker, nil)

		write.lock()
		read.lock()
		if err != nil {
			return false, err
		}
		if !created {
			// a default entry took the name while the locks were released
			return false, moerr.NewInvalidInput(ctx,
				"could not rename %q to %q: another entry with this name already exists",
				originalName, altered.Name)
		}
		v2.CatalogRenameCounter.Inc()
		logutil.Info("catalog rename",
			zap.String("set", set.name),
			zap.String("from", originalName),
			zap.String("to", altered.Name),
			zap.Stringer("txn", txn.ID))
	}

	prev := set.index.Lookup(altered.Name)
	if err := set.index.ReplaceHead(altered); err != nil {
		return false, err
	}
	if txn.Undo != nil {
		txn.Undo.PushCatalogEntry(set, prev, record)
	}
	v2.CatalogAlterCounter.Inc()
	v2.CatalogChainDepthHistogram.Observe(float64(set.index.Depth(altered.Name)))

	read.unlock()
	write.unlock()
	// the altered entry stays in place when the dependency manager rejects
	// it, the transaction is expected to roll back
	if err := set.catalog.deps.NotifyAltered(txn, entry, altered); err != nil {
		logutil.Warn("catalog alter rejected by dependencies",
			zap.String("set", set.name),
			zap.Stringer("entry", altered),
			zap.Error(err))
		return false, err
	}
	return true, nil
}

// AlterOwnership makes the entry info.Name owned by another entry.
func (set *EntrySet) AlterOwnership(txn catalogif.TxnCtx, info OwnershipInfo) (bool, error) {
	write := acquire(&set.catalog.writeMu)
	defer write.release()

	read := acquire(&set.mu)
	entry, err := set.getEntryInternal(txn, info.Name, "alter")
	read.release()
	if err != nil || entry == nil {
		return false, err
	}

	owner, err := set.catalog.GetEntry(txn, info.OwnerSet, info.OwnerName)
	if err != nil {
		return false, err
	}
	write.unlock()
	if err := set.catalog.deps.TransferOwnership(txn, owner, entry); err != nil {
		return false, err
	}
	return true, nil
}

func (set *EntrySet) dropDependencies(txn catalogif.TxnCtx, name string, cascade, allowDropInternal bool) (bool, error) {
	entry, err := set.GetEntry(txn, name)
	if err != nil || entry == nil {
		return false, err
	}
	if entry.Internal && !allowDropInternal {
		return false, moerr.NewCatalogPermission(txn.Context(),
			"cannot drop entry %q because it is an internal system entry", entry.Name)
	}
	if err := set.catalog.deps.DropCascade(txn, entry, cascade); err != nil {
		return false, err
	}
	return true, nil
}

// dropEntryInternal writes a tombstone of kind on top of name. Called with
// both locks held.
func (set *EntrySet) dropEntryInternal(txn catalogif.TxnCtx, name string, allowDropInternal bool, kind chain.Kind) (bool, error) {
	entry, err := set.getEntryInternal(txn, name, "drop")
	if err != nil || entry == nil {
		return false, err
	}
	if entry.Internal && !allowDropInternal {
		return false, moerr.NewCatalogPermission(txn.Context(),
			"cannot drop entry %q because it is an internal system entry", entry.Name)
	}
	tombstone := chain.NewTombstone(kind, entry.Name)
	tombstone.SetTimestamp(txn.ID)
	tombstone.Set = set.name
	if err := set.index.ReplaceHead(tombstone); err != nil {
		return false, err
	}
	if txn.Undo != nil {
		txn.Undo.PushCatalogEntry(set, entry, nil)
	}
	v2.CatalogDropCounter.Inc()
	logutil.Debug("catalog drop",
		zap.String("set", set.name),
		zap.Stringer("entry", entry),
		zap.Stringer("tombstone", tombstone))
	return true, nil
}

// DropEntry drops name after its dependents were dropped or rejected by
// the dependency manager. It returns false when name does not exist.
func (set *EntrySet) DropEntry(txn catalogif.TxnCtx, name string, cascade, allowDropInternal bool) (bool, error) {
	ok, err := set.dropDependencies(txn, name, cascade, allowDropInternal)
	if err != nil || !ok {
		return false, err
	}
	write := acquire(&set.catalog.writeMu)
	defer write.release()
	read := acquire(&set.mu)
	defer read.release()
	return set.dropEntryInternal(txn, name, allowDropInternal, chain.KindTombstone)
}

// GetEntry returns the version of name txn reads, nil if there is none or
// it is deleted.
func (set *EntrySet) GetEntry(txn catalogif.TxnCtx, name string) (*chain.Entry, error) {
	read := acquire(&set.mu)
	defer read.release()
	if head := set.index.Lookup(name); head != nil {
		node := set.index.VisibleNode(head, txn.Snapshot())
		if node.Deleted {
			return nil, nil
		}
		return node, nil
	}
	return set.createDefaultEntry(txn, name, read)
}

// Scan calls fn with every entry txn reads, in the order the names were
// first created. fn runs under the structural lock and must not call back
// into the set.
func (set *EntrySet) Scan(txn catalogif.TxnCtx, fn func(*chain.Entry)) error {
	read := acquire(&set.mu)
	defer read.release()
	if err := set.createDefaultEntries(txn, read); err != nil {
		return err
	}
	snap := txn.Snapshot()
	set.index.Scan(func(head *chain.Entry) bool {
		if node := set.index.VisibleNode(head, snap); !node.Deleted {
			fn(node)
		}
		return true
	})
	return nil
}

// ScanCommitted calls fn with the newest committed version of every name,
// ignoring writes in flight.
func (set *EntrySet) ScanCommitted(fn func(*chain.Entry)) {
	read := acquire(&set.mu)
	defer read.release()
	set.index.Scan(func(head *chain.Entry) bool {
		if node := set.index.CommittedNode(head); !node.Deleted {
			fn(node)
		}
		return true
	})
}

// CommitWrite stamps the write made on top of prev with the commit
// timestamp ts.
func (set *EntrySet) CommitWrite(prev *chain.Entry, ts txnts.TS) error {
	read := acquire(&set.mu)
	defer read.release()
	if !set.index.Contains(prev) {
		return moerr.NewInternalError(moerr.Context(), "commit of a write on top of released entry %s", prev)
	}
	written := set.index.Heir(prev)
	if written == nil {
		return moerr.NewInternalError(moerr.Context(), "entry %s has no write to commit", prev)
	}
	written.SetTimestamp(ts)
	return nil
}

// Undo removes the write made on top of prev, making prev the head again.
// When prev is the placeholder that reserved a new name the name goes away
// with it.
func (set *EntrySet) Undo(prev *chain.Entry) error {
	write := acquire(&set.catalog.writeMu)
	defer write.release()
	read := acquire(&set.mu)
	defer read.release()

	if !set.index.Contains(prev) {
		return moerr.NewInternalError(moerr.Context(), "undo of a write on top of released entry %s", prev)
	}
	removed := set.index.Heir(prev)
	if removed == nil {
		return moerr.NewInternalError(moerr.Context(), "entry %s has no write to undo", prev)
	}
	if err := set.index.RemoveChainNode(removed); err != nil {
		return err
	}
	if prev.Kind == chain.KindPlaceholder {
		if err := set.index.RemoveChainNode(prev); err != nil {
			return err
		}
	}
	set.catalog.ModifyCatalog()
	v2.CatalogUndoCounter.Inc()
	logutil.Debug("catalog undo",
		zap.String("set", set.name),
		zap.Stringer("removed", removed),
		zap.Stringer("restored", prev))
	return nil
}

// CleanupEntry reclaims prev once no snapshot can read it. When that
// leaves a lone deleted version behind, the name is reclaimed too.
// Cleaning an entry twice is a no-op.
func (set *EntrySet) CleanupEntry(prev *chain.Entry) error {
	write := acquire(&set.catalog.writeMu)
	defer write.release()
	read := acquire(&set.mu)
	defer read.release()

	if !set.index.Contains(prev) {
		return nil
	}
	heir := set.index.Heir(prev)
	if heir == nil {
		return moerr.NewInternalError(moerr.Context(), "cannot clean up head entry %s", prev)
	}
	if err := set.index.RemoveChainNode(prev); err != nil {
		return err
	}
	if heir.Deleted && !heir.HasElder() && !heir.HasHeir() {
		if err := set.index.RemoveChainNode(heir); err != nil {
			return err
		}
	}
	v2.CatalogCleanCounter.Inc()
	return nil
}

// SimilarEntry is the closest name to a looked up one.
type SimilarEntry struct {
	Name     string
	Distance int
}

func (s SimilarEntry) Found() bool {
	return s.Name != ""
}

// SimilarEntry returns the existing name with the smallest edit distance
// to name. Ties keep the name created first.
func (set *EntrySet) SimilarEntry(txn catalogif.TxnCtx, name string) (SimilarEntry, error) {
	read := acquire(&set.mu)
	defer read.release()
	if err := set.createDefaultEntries(txn, read); err != nil {
		return SimilarEntry{}, err
	}
	result := SimilarEntry{Distance: math.MaxInt}
	key := set.index.Key(name)
	set.index.Scan(func(head *chain.Entry) bool {
		if d := distance(set.index.Key(head.Name), key); d < result.Distance {
			result.Distance = d
			result.Name = head.Name
		}
		return true
	})
	return result, nil
}

// EntryNotFound returns the error for a failed lookup of name, with a
// suggestion when a close enough name exists.
func (set *EntrySet) EntryNotFound(txn catalogif.TxnCtx, name string) error {
	ctx := txn.Context()
	similar, err := set.SimilarEntry(txn, name)
	if err != nil {
		return err
	}
	if similar.Found() && similar.Distance <= set.catalog.maxSimilarity {
		ctx = moerr.WithDetail(ctx, "did you mean \""+similar.Name+"\"?")
	}
	return moerr.NewNoSuchEntry(ctx, set.name, name)
}

// createEntryInternal inserts a default entry as a new committed chain. It
// returns false if name was taken meanwhile.
func (set *EntrySet) createEntryInternal(entry *chain.Entry) bool {
	if set.index.Lookup(entry.Name) != nil {
		return false
	}
	entry.Set = set.name
	entry.SetTimestamp(txnts.ZeroTS)
	return set.index.Add(entry) == nil
}

func (set *EntrySet) generateDefault(ctx context.Context, name string) (entry *chain.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = moerr.ConvertPanicError(ctx, r)
		}
	}()
	return set.defaults.CreateDefaultEntry(ctx, name)
}

// createDefaultEntry materializes the default entry of name, if any. The
// structural lock is released while the generator runs.
func (set *EntrySet) createDefaultEntry(txn catalogif.TxnCtx, name string, read *lockGuard) (*chain.Entry, error) {
	if set.defaults == nil || set.defaults.Drained() || txn.Ctx == nil {
		return nil, nil
	}
	read.unlock()
	entry, err := set.generateDefault(txn.Ctx, name)
	read.lock()
	if err != nil {
		return nil, err
	}
	if entry == nil {
		v2.CatalogDefaultMissCounter.Inc()
		return nil, nil
	}
	if set.createEntryInternal(entry) {
		v2.CatalogDefaultCreatedCounter.Inc()
		logutil.Info("catalog default entry created",
			zap.String("set", set.name),
			zap.String("name", entry.Name))
		return entry, nil
	}
	// another reader materialized it first, keep theirs
	v2.CatalogDefaultLostCounter.Inc()
	head := set.index.Lookup(name)
	if head == nil {
		return nil, nil
	}
	node := set.index.VisibleNode(head, txn.Snapshot())
	if node.Deleted {
		return nil, nil
	}
	return node, nil
}

// createDefaultEntries materializes every default entry that is still
// missing and marks the generator drained.
func (set *EntrySet) createDefaultEntries(txn catalogif.TxnCtx, read *lockGuard) error {
	if set.defaults == nil || set.defaults.Drained() || txn.Ctx == nil {
		return nil
	}
	for _, name := range set.defaults.DefaultEntryNames() {
		if set.index.Lookup(name) != nil {
			continue
		}
		read.unlock()
		entry, err := set.generateDefault(txn.Ctx, name)
		read.lock()
		if err != nil {
			return err
		}
		if entry == nil {
			return moerr.NewInternalError(txn.Ctx, "failed to create default entry for %s", name)
		}
		if set.createEntryInternal(entry) {
			v2.CatalogDefaultCreatedCounter.Inc()
		} else {
			v2.CatalogDefaultLostCounter.Inc()
		}
	}
	set.defaults.SetDrained()
	return nil
}

// Depth is the number of versions kept for name.
func (set *EntrySet) Depth(name string) int {
	read := acquire(&set.mu)
	defer read.release()
	return set.index.Depth(name)
}

// Len is the number of names with a version chain, deleted or not.
func (set *EntrySet) Len() int {
	read := acquire(&set.mu)
	defer read.release()
	return set.index.Len()
}

type verifier interface {
	Verify() error
}

// Verify checks the version chains and asks every committed object that
// can verify itself to do so.
func (set *EntrySet) Verify() error {
	read := acquire(&set.mu)
	defer read.release()
	if err := set.index.Verify(); err != nil {
		return err
	}
	var err error
	set.index.Scan(func(head *chain.Entry) bool {
		node := set.index.CommittedNode(head)
		if node.Deleted {
			return true
		}
		if v, ok := node.Object.(verifier); ok {
			err = v.Verify()
		}
		return err == nil
	})
	return err
}
