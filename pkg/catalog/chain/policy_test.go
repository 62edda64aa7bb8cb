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

	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
)

func snapshot(id, start uint64) txnts.Snapshot {
	return txnts.Snapshot{TxnID: txnts.TxnID(id), StartTS: txnts.CommitTS(start)}
}

func TestHasConflict(t *testing.T) {
	snap := snapshot(100, 10)
	cases := []struct {
		ts       txnts.TS
		conflict bool
	}{
		{txnts.TxnID(100), false},
		{txnts.TxnID(101), true},
		{txnts.CommitTS(5), false},
		{txnts.CommitTS(10), false},
		{txnts.CommitTS(11), true},
		{txnts.ZeroTS, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.conflict, HasConflict(snap, c.ts), c.ts.String())
	}
	assert.True(t, IsOwnWrite(txnts.TxnID(100), txnts.TxnID(100)))
	assert.False(t, IsOwnWrite(txnts.TxnID(100), txnts.CommitTS(100)))
}

func TestVisibleNode(t *testing.T) {
	idx := NewNameIndex()
	root := NewPlaceholder("t")
	v1 := NewEntry(KindTable, "t", nil)
	v1.SetTimestamp(txnts.CommitTS(5))
	v2 := NewEntry(KindTable, "t", nil)
	v2.SetTimestamp(txnts.CommitTS(9))
	v3 := NewTombstone(KindTombstone, "t")
	v3.SetTimestamp(txnts.TxnID(50))
	require.NoError(t, idx.Add(root))
	require.NoError(t, idx.ReplaceHead(v1))
	require.NoError(t, idx.ReplaceHead(v2))
	require.NoError(t, idx.ReplaceHead(v3))

	assert.Same(t, v3, idx.VisibleNode(v3, snapshot(50, 4)))
	assert.Same(t, v2, idx.VisibleNode(v3, snapshot(60, 10)))
	// a commit at exactly the start timestamp is not visible
	assert.Same(t, v1, idx.VisibleNode(v3, snapshot(60, 9)))
	assert.Same(t, root, idx.VisibleNode(v3, snapshot(60, 3)))

	assert.Same(t, v2, idx.CommittedNode(v3))
	assert.Same(t, v2, idx.CommittedNode(v2))
}

func TestVisibleNodeFallsBackToOldest(t *testing.T) {
	idx := NewNameIndex()
	v1 := NewEntry(KindTable, "t", nil)
	v1.SetTimestamp(txnts.TxnID(7))
	require.NoError(t, idx.Add(v1))
	assert.Same(t, v1, idx.VisibleNode(v1, snapshot(8, 100)))
	assert.Same(t, v1, idx.CommittedNode(v1))
}
