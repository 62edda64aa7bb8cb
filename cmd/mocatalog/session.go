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

package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/matrixorigin/mocatalog/pkg/catalog"
	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/catalog/defaults"
	"github.com/matrixorigin/mocatalog/pkg/catalog/objects"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	"github.com/matrixorigin/mocatalog/pkg/config"
	"github.com/matrixorigin/mocatalog/pkg/logutil"
	"github.com/matrixorigin/mocatalog/pkg/txn/txnmgr"
)

const (
	schemaSet = "schemas"
	tableSet  = "tables"
	viewSet   = "views"
)

// session is a scripted run against a system catalog and a user catalog
// sharing one transaction manager.
type session struct {
	ctx    context.Context
	mgr    *txnmgr.TxnManager
	system *catalog.Catalog
	user   *catalog.Catalog
}

func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	mgr, err := txnmgr.NewTxnManager(cfg.Txn)
	if err != nil {
		return nil, err
	}
	s := &session{
		ctx:    ctx,
		mgr:    mgr,
		system: catalog.NewCatalog("system", catalog.WithSystem(), catalog.WithConfig(cfg.Catalog)),
		user:   catalog.NewCatalog("user", catalog.WithConfig(cfg.Catalog)),
	}
	if _, err := s.system.AddSet(schemaSet, defaults.NewSchemaGenerator()); err != nil {
		return nil, err
	}
	if _, err := s.system.AddSet(viewSet, defaults.NewViewGenerator()); err != nil {
		return nil, err
	}
	for _, name := range []string{schemaSet, tableSet} {
		if _, err := s.user.AddSet(name, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) close() {
	s.mgr.Close()
}

// inTxn runs fn in a new transaction, committing on success and rolling
// back otherwise.
func (s *session) inTxn(fn func(txn catalogif.TxnCtx) error) error {
	txn := s.mgr.Begin(s.ctx)
	if err := fn(txn.Ctx()); err != nil {
		if rerr := txn.Rollback(); rerr != nil {
			logutil.Error("rollback failed", zap.Error(rerr))
		}
		return err
	}
	return txn.Commit()
}

func (s *session) create(txn catalogif.TxnCtx, set, name string, entry *chain.Entry, deps ...catalogif.ObjectRef) error {
	created, err := s.user.GetSet(set).CreateEntry(txn, name, entry, deps)
	if err != nil {
		return err
	}
	if !created {
		return moerr.NewDuplicate(txn.Context(), set+"."+name)
	}
	return nil
}

func (s *session) bootstrap(defaultSchema string) error {
	return s.inTxn(func(txn catalogif.TxnCtx) error {
		if err := s.create(txn, schemaSet, defaultSchema, objects.NewSchemaEntry(defaultSchema)); err != nil {
			return err
		}
		if err := s.create(txn, tableSet, "orders", objects.NewTableEntry("orders",
			objects.Column{Name: "id", Type: "bigint"},
			objects.Column{Name: "customer", Type: "bigint"})); err != nil {
			return err
		}
		if err := s.create(txn, tableSet, "customers", objects.NewTableEntry("customers",
			objects.Column{Name: "id", Type: "bigint"},
			objects.Column{Name: "name", Type: "text"})); err != nil {
			return err
		}
		return s.create(txn, tableSet, "recent_orders",
			objects.NewViewEntry("recent_orders", "SELECT * FROM orders ORDER BY id DESC LIMIT 10"),
			catalogif.ObjectRef{Set: tableSet, Name: "orders"})
	})
}

// renameUnderReader renames a table while an older transaction keeps
// reading the old name.
func (s *session) renameUnderReader() error {
	tables := s.user.GetSet(tableSet)
	reader := s.mgr.Begin(s.ctx)
	defer func() {
		if err := reader.Commit(); err != nil {
			logutil.Error("reader commit failed", zap.Error(err))
		}
	}()

	err := s.inTxn(func(txn catalogif.TxnCtx) error {
		if _, err := tables.AlterEntry(txn, "customers", &objects.AddColumnInfo{
			Column: objects.Column{Name: "email", Type: "text"},
		}); err != nil {
			return err
		}
		_, err := tables.AlterEntry(txn, "customers", &objects.RenameInfo{NewName: "clients"})
		return err
	})
	if err != nil {
		return err
	}

	old, err := tables.GetEntry(reader.Ctx(), "customers")
	if err != nil {
		return err
	}
	renamed, err := tables.GetEntry(reader.Ctx(), "clients")
	if err != nil {
		return err
	}
	logutil.Info("older snapshot after rename",
		zap.Bool("sees-customers", old != nil),
		zap.Bool("sees-clients", renamed != nil),
		zap.Int("pending-cleanup", s.mgr.PendingCleanup()))
	return nil
}

// refusedDrop shows a drop blocked by a dependent view, then a cascading
// drop that is rolled back.
func (s *session) refusedDrop() error {
	tables := s.user.GetSet(tableSet)
	txn := s.mgr.Begin(s.ctx)
	_, err := tables.DropEntry(txn.Ctx(), "orders", false, false)
	if !moerr.IsMoErrCode(err, moerr.ErrDependentObjects) {
		_ = txn.Rollback()
		return moerr.NewInvalidState(s.ctx, "drop of orders was not refused: %v", err)
	}
	logutil.Info("drop refused",
		zap.String("sql-state", moerr.DowncastError(err).SqlState()),
		zap.Error(err))
	if _, err := tables.DropEntry(txn.Ctx(), "orders", true, false); err != nil {
		_ = txn.Rollback()
		return err
	}
	var left []string
	if err := tables.Scan(txn.Ctx(), func(e *chain.Entry) { left = append(left, e.Name) }); err != nil {
		_ = txn.Rollback()
		return err
	}
	logutil.Info("after cascading drop", zap.Strings("tables", left))
	return txn.Rollback()
}

func (s *session) lookups() error {
	return s.inTxn(func(txn catalogif.TxnCtx) error {
		for _, name := range []string{"clients", "ordrs"} {
			e, err := s.user.GetEntry(txn, tableSet, name)
			if err != nil {
				if !moerr.IsMoErrCode(err, moerr.ErrNoSuchEntry) {
					return err
				}
				me := moerr.DowncastError(err)
				logutil.Info("lookup failed",
					zap.String("sql-state", me.SqlState()),
					zap.String("error", me.Display()))
				continue
			}
			logutil.Info("lookup", zap.Stringer("entry", e))
		}

		sys := catalogif.SystemTxn(s.ctx)
		var views []string
		if err := s.system.GetSet(viewSet).Scan(sys, func(e *chain.Entry) { views = append(views, e.Name) }); err != nil {
			return err
		}
		schema, err := s.system.GetEntry(sys, schemaSet, "information_schema")
		if err != nil {
			return err
		}
		logutil.Info("system catalog",
			zap.Strings("views", views),
			zap.Stringer("schema", schema))
		return nil
	})
}

// runSession drives the scripted session and verifies both catalogs at
// the end.
func runSession(ctx context.Context, cfg *config.Config) error {
	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"bootstrap", func() error { return s.bootstrap(cfg.Catalog.DefaultSchema) }},
		{"rename", s.renameUnderReader},
		{"drop", s.refusedDrop},
		{"lookup", s.lookups},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			logutil.Error("step failed", zap.String("step", step.name), zap.Error(err))
			return err
		}
		logutil.Info("step done",
			zap.String("step", step.name),
			zap.Uint64("catalog-version", s.user.Version()))
	}
	s.mgr.Flush()
	if err := s.system.Verify(); err != nil {
		return err
	}
	return s.user.Verify()
}
