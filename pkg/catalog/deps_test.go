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
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/catalog/dependency"
	"github.com/matrixorigin/mocatalog/pkg/catalog/mock_catalogif"
	"github.com/matrixorigin/mocatalog/pkg/catalog/objects"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
)

func tableRef(name string) catalogif.ObjectRef {
	return catalogif.ObjectRef{Set: "tables", Name: name}
}

// newDepsEnv returns an env holding table t and view v on top of it.
func newDepsEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.commitCreate("t")
	txn := env.begin()
	created, err := env.set.CreateEntry(txn.Ctx(), "v", objects.NewViewEntry("v", "SELECT a FROM t"),
		[]catalogif.ObjectRef{tableRef("t")})
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, txn.Commit())
	return env
}

func manager(env *testEnv) *dependency.Manager {
	return env.cat.DependencyManager().(*dependency.Manager)
}

func TestCreateWithMissingDependency(t *testing.T) {
	env := newTestEnv(t)
	txn := env.begin()
	created, err := env.set.CreateEntry(txn.Ctx(), "v", objects.NewViewEntry("v", "SELECT 1"),
		[]catalogif.ObjectRef{tableRef("nope")})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrNoSuchEntry))
	assert.False(t, created)
	assert.Equal(t, 0, env.set.Len())
}

func TestDropWithDependents(t *testing.T) {
	env := newDepsEnv(t)
	assert.Equal(t, []catalogif.ObjectRef{tableRef("v")}, manager(env).Dependents(tableRef("t")))

	txn := env.begin()
	_, err := env.set.DropEntry(txn.Ctx(), "t", false, false)
	require.Error(t, err)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrDependentObjects))
	assert.Contains(t, err.Error(), "tables.v")

	ok, err := env.set.DropEntry(txn.Ctx(), "t", true, false)
	require.NoError(t, err)
	assert.True(t, ok)
	for _, name := range []string{"t", "v"} {
		e, err := env.set.GetEntry(txn.Ctx(), name)
		require.NoError(t, err)
		assert.Nil(t, e, name)
	}
	require.NoError(t, txn.Rollback())

	// dropping the dependent first clears the way
	txn = env.begin()
	ok, err = env.cat.DropEntry(txn.Ctx(), tableRef("v"), false)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.set.DropEntry(txn.Ctx(), "t", false, false)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, txn.Commit())
}

func TestRecreatedEntryForgetsOldDependencies(t *testing.T) {
	env := newDepsEnv(t)
	env.commitCreate("u")
	txn := env.begin()
	ok, err := env.set.DropEntry(txn.Ctx(), "v", false, false)
	require.NoError(t, err)
	require.True(t, ok)
	created, err := env.set.CreateEntry(txn.Ctx(), "v", objects.NewViewEntry("v", "SELECT a FROM u"),
		[]catalogif.ObjectRef{tableRef("u")})
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, txn.Commit())

	assert.Empty(t, manager(env).Dependents(tableRef("t")))
	assert.Equal(t, []catalogif.ObjectRef{tableRef("v")}, manager(env).Dependents(tableRef("u")))

	// a failed create keeps the edges of the live entry
	txn = env.begin()
	created, err = env.set.CreateEntry(txn.Ctx(), "v", objects.NewViewEntry("v", "SELECT a FROM t"),
		[]catalogif.ObjectRef{tableRef("t")})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []catalogif.ObjectRef{tableRef("v")}, manager(env).Dependents(tableRef("u")))
	assert.Empty(t, manager(env).Dependents(tableRef("t")))
}

func TestRenameWithDependents(t *testing.T) {
	env := newDepsEnv(t)
	txn := env.begin()
	ok, err := env.set.AlterEntry(txn.Ctx(), "t", &objects.RenameInfo{NewName: "t2"})
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	// the rename stays in place until the transaction rolls back
	e, err := env.set.GetEntry(txn.Ctx(), "t2")
	require.NoError(t, err)
	assert.NotNil(t, e)
	require.NoError(t, txn.Rollback())

	txn = env.begin()
	e, err = env.set.GetEntry(txn.Ctx(), "t")
	require.NoError(t, err)
	assert.NotNil(t, e)
	e, err = env.set.GetEntry(txn.Ctx(), "t2")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestRenameDependent(t *testing.T) {
	env := newDepsEnv(t)
	txn := env.begin()
	ok, err := env.set.AlterEntry(txn.Ctx(), "v", &objects.RenameInfo{NewName: "w"})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, txn.Commit())
	assert.Equal(t, []catalogif.ObjectRef{tableRef("w")}, manager(env).Dependents(tableRef("t")))

	txn = env.begin()
	_, err = env.set.DropEntry(txn.Ctx(), "t", false, false)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrDependentObjects))
	assert.Contains(t, err.Error(), "tables.w")
}

func TestAlterOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.commitCreate("t", "seq")
	txn := env.begin()

	ok, err := env.set.AlterOwnership(txn.Ctx(), OwnershipInfo{Name: "seq", OwnerSet: "tables", OwnerName: "t"})
	require.NoError(t, err)
	assert.True(t, ok)
	owner, found := manager(env).Owner(tableRef("seq"))
	require.True(t, found)
	assert.Equal(t, tableRef("t"), owner)

	_, err = env.set.AlterOwnership(txn.Ctx(), OwnershipInfo{Name: "t", OwnerSet: "tables", OwnerName: "seq"})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	_, err = env.set.AlterOwnership(txn.Ctx(), OwnershipInfo{Name: "t", OwnerSet: "tables", OwnerName: "t"})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	_, err = env.set.AlterOwnership(txn.Ctx(), OwnershipInfo{Name: "seq", OwnerSet: "tables", OwnerName: "missing"})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrNoSuchEntry))
	ok, err = env.set.AlterOwnership(txn.Ctx(), OwnershipInfo{Name: "missing", OwnerSet: "tables", OwnerName: "t"})
	require.NoError(t, err)
	assert.False(t, ok)

	// owned entries go with their owner, no cascade needed
	ok, err = env.set.DropEntry(txn.Ctx(), "t", false, false)
	require.NoError(t, err)
	assert.True(t, ok)
	e, err := env.set.GetEntry(txn.Ctx(), "seq")
	require.NoError(t, err)
	assert.Nil(t, e)
	require.NoError(t, txn.Commit())
}

func TestDependencyManagerRejectsAlter(t *testing.T) {
	ctrl := gomock.NewController(t)
	deps := mock_catalogif.NewMockDependencyManager(ctrl)
	deps.EXPECT().RegisterDependencies(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	rejected := moerr.NewInvalidInput(moerr.Context(), "rejected")
	deps.EXPECT().NotifyAltered(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ catalogif.TxnCtx, old, altered *chain.Entry) error {
			assert.Equal(t, "", old.Object.(*objects.Table).Comment)
			assert.Equal(t, "c", altered.Object.(*objects.Table).Comment)
			return rejected
		}).Times(1)

	env := newTestEnv(t, WithDependencyManager(deps))
	env.commitCreate("t")
	txn := env.begin()
	ok, err := env.set.AlterEntry(txn.Ctx(), "t", &objects.SetCommentInfo{Comment: "c"})
	assert.False(t, ok)
	assert.Same(t, rejected, err)
	assert.Equal(t, 1, txn.Undo().Len())

	e, err := env.set.GetEntry(txn.Ctx(), "t")
	require.NoError(t, err)
	assert.Equal(t, "c", e.Object.(*objects.Table).Comment)
	require.NoError(t, txn.Rollback())
	assert.Equal(t, 1, env.set.Depth("t"))
}

func TestDropCascadeWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	deps := mock_catalogif.NewMockDependencyManager(ctrl)
	deps.EXPECT().RegisterDependencies(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	env := newTestEnv(t, WithDependencyManager(deps))
	env.commitCreate("t")

	gomock.InOrder(
		deps.EXPECT().DropCascade(gomock.Any(), gomock.Any(), false).
			Return(moerr.NewDependentObjects(moerr.Context(), "tables.t", "tables.x")),
		deps.EXPECT().DropCascade(gomock.Any(), gomock.Any(), true).Return(nil),
	)
	txn := env.begin()
	_, err := env.set.DropEntry(txn.Ctx(), "t", false, false)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrDependentObjects))
	assert.Equal(t, 0, txn.Undo().Len())
	ok, err := env.set.DropEntry(txn.Ctx(), "t", true, false)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, txn.Commit())
}

func TestRenameRollbackKeepsDependencies(t *testing.T) {
	env := newDepsEnv(t)
	txn := env.begin()
	ok, err := env.set.AlterEntry(txn.Ctx(), "v", &objects.RenameInfo{NewName: "w"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []catalogif.ObjectRef{tableRef("w")}, manager(env).Dependents(tableRef("t")))
	require.NoError(t, txn.Rollback())
	assert.Equal(t, []catalogif.ObjectRef{tableRef("v")}, manager(env).Dependents(tableRef("t")))

	txn = env.begin()
	ok, err = env.set.DropEntry(txn.Ctx(), "t", false, false)
	assert.False(t, ok)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrDependentObjects))
	assert.Contains(t, err.Error(), "tables.v")
	require.NoError(t, txn.Rollback())
}

func TestDropRecreateRollbackKeepsDependencies(t *testing.T) {
	env := newDepsEnv(t)
	txn := env.begin()
	ok, err := env.set.DropEntry(txn.Ctx(), "v", false, false)
	require.NoError(t, err)
	require.True(t, ok)
	created, err := env.set.CreateEntry(txn.Ctx(), "v", objects.NewViewEntry("v", "SELECT 1"), nil)
	require.NoError(t, err)
	require.True(t, created)
	assert.Empty(t, manager(env).Dependents(tableRef("t")))
	require.NoError(t, txn.Rollback())
	assert.Equal(t, []catalogif.ObjectRef{tableRef("v")}, manager(env).Dependents(tableRef("t")))

	txn = env.begin()
	ok, err = env.set.DropEntry(txn.Ctx(), "t", false, false)
	assert.False(t, ok)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrDependentObjects))
	require.NoError(t, txn.Rollback())
}

func TestOwnershipCycleRejected(t *testing.T) {
	env := newTestEnv(t)
	env.commitCreate("a", "b", "c")
	txn := env.begin()
	own := func(name, owner string) error {
		_, err := env.set.AlterOwnership(txn.Ctx(), OwnershipInfo{Name: name, OwnerSet: "tables", OwnerName: owner})
		return err
	}
	require.NoError(t, own("b", "a"))
	// b is owned, it cannot own c
	assert.True(t, moerr.IsMoErrCode(own("c", "b"), moerr.ErrInvalidInput))
	// a owns b, it cannot be owned by c
	assert.True(t, moerr.IsMoErrCode(own("a", "c"), moerr.ErrInvalidInput))
	_, found := manager(env).Owner(tableRef("c"))
	assert.False(t, found)

	ok, err := env.set.DropEntry(txn.Ctx(), "a", false, false)
	require.NoError(t, err)
	assert.True(t, ok)
	for name, live := range map[string]bool{"a": false, "b": false, "c": true} {
		e, err := env.set.GetEntry(txn.Ctx(), name)
		require.NoError(t, err)
		assert.Equal(t, live, e != nil, name)
	}
	require.NoError(t, txn.Rollback())

	_, found = manager(env).Owner(tableRef("b"))
	assert.False(t, found)
}

func TestOwnershipAgainstDependency(t *testing.T) {
	env := newDepsEnv(t)
	txn := env.begin()
	// v goes when t is dropped, so v cannot take t with it
	_, err := env.set.AlterOwnership(txn.Ctx(), OwnershipInfo{Name: "t", OwnerSet: "tables", OwnerName: "v"})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	ok, err := env.set.DropEntry(txn.Ctx(), "t", true, false)
	require.NoError(t, err)
	assert.True(t, ok)
	e, err := env.set.GetEntry(txn.Ctx(), "v")
	require.NoError(t, err)
	assert.Nil(t, e)
	require.NoError(t, txn.Commit())
}
