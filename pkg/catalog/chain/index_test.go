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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
)

func collectChain(idx *NameIndex, name string) []*Entry {
	var nodes []*Entry
	for node := idx.Lookup(name); node != nil; node = idx.Elder(node) {
		nodes = append(nodes, node)
	}
	return nodes
}

func TestNameIndexAddLookup(t *testing.T) {
	idx := NewNameIndex()
	e := NewEntry(KindTable, "Orders", nil)
	require.NoError(t, idx.Add(e))
	assert.Same(t, e, idx.Lookup("orders"))
	assert.Same(t, e, idx.Lookup("ORDERS"))
	assert.Nil(t, idx.Lookup("order"))

	err := idx.Add(NewEntry(KindTable, "ORDERS", nil))
	require.Error(t, err)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Add(NewEntry(KindTable, "école", nil)))
	assert.NotNil(t, idx.Lookup("ÉCOLE"))
	require.NoError(t, idx.Verify())
}

func TestNameIndexReplaceHead(t *testing.T) {
	idx := NewNameIndex()
	err := idx.ReplaceHead(NewEntry(KindTable, "t", nil))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))

	root := NewPlaceholder("t")
	v1 := NewEntry(KindTable, "t", nil)
	v2 := NewTombstone(KindTombstone, "T")
	require.NoError(t, idx.Add(root))
	require.NoError(t, idx.ReplaceHead(v1))
	require.NoError(t, idx.ReplaceHead(v2))

	assert.Equal(t, []*Entry{v2, v1, root}, collectChain(idx, "t"))
	assert.Nil(t, idx.Heir(v2))
	assert.Same(t, v2, idx.Heir(v1))
	assert.Same(t, v1, idx.Heir(root))
	assert.Equal(t, 3, idx.Depth("t"))
	assert.Equal(t, 3, idx.Nodes())
	require.NoError(t, idx.Verify())
}

func TestNameIndexRemoveChainNode(t *testing.T) {
	idx := NewNameIndex()
	a := NewEntry(KindTable, "t", nil)
	b := NewEntry(KindTable, "t", nil)
	c := NewEntry(KindTable, "t", nil)
	require.NoError(t, idx.Add(a))
	require.NoError(t, idx.ReplaceHead(b))
	require.NoError(t, idx.ReplaceHead(c))

	// interior
	require.NoError(t, idx.RemoveChainNode(b))
	assert.Equal(t, []*Entry{c, a}, collectChain(idx, "t"))
	assert.Same(t, c, idx.Heir(a))
	assert.False(t, idx.Contains(b))
	require.NoError(t, idx.Verify())

	// removed twice
	err := idx.RemoveChainNode(b)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))

	// head with elder
	require.NoError(t, idx.RemoveChainNode(c))
	assert.Same(t, a, idx.Lookup("t"))
	assert.Nil(t, idx.Heir(a))
	require.NoError(t, idx.Verify())

	// sole head
	require.NoError(t, idx.RemoveChainNode(a))
	assert.Nil(t, idx.Lookup("t"))
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Nodes())
	require.NoError(t, idx.Verify())
}

func TestNameIndexRemoveOldest(t *testing.T) {
	idx := NewNameIndex()
	a := NewEntry(KindTable, "t", nil)
	b := NewEntry(KindTable, "t", nil)
	require.NoError(t, idx.Add(a))
	require.NoError(t, idx.ReplaceHead(b))
	require.NoError(t, idx.RemoveChainNode(a))
	assert.Equal(t, []*Entry{b}, collectChain(idx, "t"))
	assert.False(t, b.HasElder())
	require.NoError(t, idx.Verify())
}

func TestNameIndexScanOrder(t *testing.T) {
	idx := NewNameIndex()
	names := []string{"zeta", "alpha", "Mid", "beta"}
	for _, name := range names {
		require.NoError(t, idx.Add(NewEntry(KindTable, name, nil)))
	}
	// a new head keeps the position of the name
	require.NoError(t, idx.ReplaceHead(NewEntry(KindTable, "ZETA", nil)))
	require.NoError(t, idx.RemoveChainNode(idx.Lookup("alpha")))
	require.NoError(t, idx.Add(NewEntry(KindTable, "alpha", nil)))

	var got []string
	idx.Scan(func(head *Entry) bool {
		got = append(got, head.Name)
		return true
	})
	assert.Equal(t, []string{"ZETA", "Mid", "beta", "alpha"}, got)

	got = got[:0]
	idx.Scan(func(head *Entry) bool {
		got = append(got, head.Name)
		return len(got) < 2
	})
	assert.Equal(t, []string{"ZETA", "Mid"}, got)
}

func TestNameIndexVerifyDetectsCorruption(t *testing.T) {
	idx := NewNameIndex()
	a := NewEntry(KindTable, "t", nil)
	b := NewEntry(KindTable, "t", nil)
	require.NoError(t, idx.Add(a))
	require.NoError(t, idx.ReplaceHead(b))
	a.heir = Handle{}
	err := idx.Verify()
	require.Error(t, err)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))

	idx = NewNameIndex()
	c := NewEntry(KindTable, "u", nil)
	require.NoError(t, idx.Add(c))
	c.Name = "other"
	assert.Error(t, idx.Verify())
}

func TestEntryString(t *testing.T) {
	e := NewPlaceholder("t")
	assert.Equal(t, "t[PLACEHOLDER][ts=0][D]", e.String())
	e = NewEntry(KindSchema, "main", nil)
	e.Internal = true
	e.SetTimestamp(txnts.TxnID(3))
	assert.Equal(t, "main[SCHEMA][ts=txn-3][I]", e.String())
	assert.True(t, KindRenamed.IsMarker())
	assert.False(t, KindSchema.IsMarker())
	assert.Equal(t, "KIND(99)", Kind(99).String())
}
