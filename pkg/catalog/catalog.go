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
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/catalog/dependency"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	"github.com/matrixorigin/mocatalog/pkg/config"
	"github.com/matrixorigin/mocatalog/pkg/logutil"
	v2 "github.com/matrixorigin/mocatalog/pkg/util/metric/v2"
)

const (
	DefaultSchema        = "main"
	defaultMaxSimilarity = 4
)

type Option func(*Catalog)

// WithSystem marks the catalog as the system catalog. It may only hold
// internal entries.
func WithSystem() Option {
	return func(catalog *Catalog) {
		catalog.system = true
	}
}

// WithTemporary marks the catalog as holding temporary entries only.
func WithTemporary() Option {
	return func(catalog *Catalog) {
		catalog.temporary = true
	}
}

func WithDependencyManager(deps catalogif.DependencyManager) Option {
	return func(catalog *Catalog) {
		catalog.deps = deps
	}
}

func WithConfig(cfg config.CatalogConfig) Option {
	return func(catalog *Catalog) {
		if cfg.DefaultSchema != "" {
			catalog.defaultSchema = cfg.DefaultSchema
		}
		catalog.maxSimilarity = cfg.MaxSimilarityDistance
	}
}

// Catalog groups entry sets that share one write lock and one dependency
// manager.
type Catalog struct {
	name          string
	system        bool
	temporary     bool
	defaultSchema string
	maxSimilarity int

	// writeMu serializes every structural write to any set of the catalog.
	// It is always taken before the structural lock of a set.
	writeMu sync.Mutex
	deps    catalogif.DependencyManager

	setsMu sync.RWMutex
	sets   map[string]*EntrySet

	version atomic.Uint64
}

func NewCatalog(name string, opts ...Option) *Catalog {
	catalog := &Catalog{
		name:          name,
		defaultSchema: DefaultSchema,
		maxSimilarity: defaultMaxSimilarity,
		sets:          make(map[string]*EntrySet),
	}
	for _, opt := range opts {
		opt(catalog)
	}
	if catalog.deps == nil {
		catalog.deps = dependency.NewManager(catalog)
	}
	return catalog
}

func (catalog *Catalog) Name() string             { return catalog.name }
func (catalog *Catalog) IsSystemCatalog() bool    { return catalog.system }
func (catalog *Catalog) IsTemporaryCatalog() bool { return catalog.temporary }

func (catalog *Catalog) DependencyManager() catalogif.DependencyManager {
	return catalog.deps
}

// AddSet creates the entry set called name. defaults may be nil.
func (catalog *Catalog) AddSet(name string, defaults catalogif.DefaultGenerator) (*EntrySet, error) {
	catalog.setsMu.Lock()
	defer catalog.setsMu.Unlock()
	if _, ok := catalog.sets[name]; ok {
		return nil, moerr.NewDuplicate(context.Background(), "entry set "+name)
	}
	set := newEntrySet(catalog, name, defaults)
	catalog.sets[name] = set
	return set, nil
}

// GetSet returns the set called name, nil if there is none.
func (catalog *Catalog) GetSet(name string) *EntrySet {
	catalog.setsMu.RLock()
	defer catalog.setsMu.RUnlock()
	return catalog.sets[name]
}

// ModifyCatalog bumps the catalog version. Any change that can make cached
// lookups stale calls it.
func (catalog *Catalog) ModifyCatalog() {
	v := catalog.version.Add(1)
	v2.CatalogVersionGauge.Set(float64(v))
}

func (catalog *Catalog) Version() uint64 {
	return catalog.version.Load()
}

// GetEntry resolves name in set for txn. A miss is an error naming the
// closest existing entry when there is one.
func (catalog *Catalog) GetEntry(txn catalogif.TxnCtx, set, name string) (*chain.Entry, error) {
	s := catalog.GetSet(set)
	if s == nil {
		return nil, moerr.NewNoSuchEntry(txn.Context(), set, name)
	}
	entry, err := s.GetEntry(txn, name)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, s.EntryNotFound(txn, name)
	}
	return entry, nil
}

// ResolveEntry is GetEntry keyed by reference. A miss is not an error.
func (catalog *Catalog) ResolveEntry(txn catalogif.TxnCtx, ref catalogif.ObjectRef) (*chain.Entry, error) {
	s := catalog.GetSet(ref.Set)
	if s == nil {
		return nil, nil
	}
	return s.GetEntry(txn, ref.Name)
}

// DropEntry drops the referenced entry, it never drops internal entries.
func (catalog *Catalog) DropEntry(txn catalogif.TxnCtx, ref catalogif.ObjectRef, cascade bool) (bool, error) {
	s := catalog.GetSet(ref.Set)
	if s == nil {
		return false, nil
	}
	return s.DropEntry(txn, ref.Name, cascade, false)
}

// OwnershipInfo moves the entry Name under the entry OwnerSet.OwnerName.
type OwnershipInfo struct {
	Name      string
	OwnerSet  string
	OwnerName string
}

// Verify checks every set of the catalog.
func (catalog *Catalog) Verify() error {
	catalog.setsMu.RLock()
	sets := make([]*EntrySet, 0, len(catalog.sets))
	for _, set := range catalog.sets {
		sets = append(sets, set)
	}
	catalog.setsMu.RUnlock()
	for _, set := range sets {
		if err := set.Verify(); err != nil {
			logutil.Error("catalog verify failed",
				zap.String("catalog", catalog.name),
				zap.String("set", set.name),
				zap.Error(err))
			return err
		}
	}
	return nil
}
