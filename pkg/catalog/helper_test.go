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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/catalog/objects"
	"github.com/matrixorigin/mocatalog/pkg/config"
	"github.com/matrixorigin/mocatalog/pkg/txn/txnmgr"
)

type testEnv struct {
	t   *testing.T
	cat *Catalog
	set *EntrySet
	mgr *txnmgr.TxnManager
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	cat := NewCatalog("test", opts...)
	set, err := cat.AddSet("tables", nil)
	require.NoError(t, err)
	mgr, err := txnmgr.NewTxnManager(config.TxnConfig{})
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return &testEnv{t: t, cat: cat, set: set, mgr: mgr}
}

func (env *testEnv) begin() *txnmgr.Txn {
	return env.mgr.Begin(context.Background())
}

// commitCreate creates names in a transaction of their own and commits.
func (env *testEnv) commitCreate(names ...string) {
	txn := env.begin()
	for _, name := range names {
		created, err := env.set.CreateEntry(txn.Ctx(), name, testTable(name), nil)
		require.NoError(env.t, err)
		require.True(env.t, created, name)
	}
	require.NoError(env.t, txn.Commit())
}

func testTable(name string) *chain.Entry {
	return objects.NewTableEntry(name, objects.Column{Name: "a", Type: "int"})
}

// countingTable counts payload level undos of abandoned alters.
type countingTable struct {
	*objects.Table
	undos int
}

func (o *countingTable) UndoAlter(context.Context, *chain.Entry, chain.AlterInfo) error {
	o.undos++
	return nil
}

func newCountingTable(name string) (*chain.Entry, *countingTable) {
	obj := &countingTable{Table: &objects.Table{Columns: []objects.Column{{Name: "a", Type: "int"}}}}
	return chain.NewEntry(chain.KindTable, name, obj), obj
}
