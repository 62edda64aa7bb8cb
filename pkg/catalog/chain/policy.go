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
	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
)

// HasConflict reports whether a write stamped ts blocks a write by snap:
// it was written by another transaction that has not committed, or it
// committed after snap started.
func HasConflict(snap txnts.Snapshot, ts txnts.TS) bool {
	if ts.IsUncommitted() {
		return !ts.Equal(snap.TxnID)
	}
	return ts.Greater(snap.StartTS)
}

// IsOwnWrite reports whether ts was written by the transaction txnID.
func IsOwnWrite(txnID, ts txnts.TS) bool {
	return ts.IsUncommitted() && ts.Equal(txnID)
}

// IsVisible reports whether snap reads a version stamped ts.
func IsVisible(snap txnts.Snapshot, ts txnts.TS) bool {
	if IsOwnWrite(snap.TxnID, ts) {
		return true
	}
	return ts.IsCommitted() && ts.Less(snap.StartTS)
}

// VisibleNode returns the newest version of the chain headed by head that
// snap reads. When none qualifies the oldest version is returned, callers
// treat it by its deleted flag.
func (idx *NameIndex) VisibleNode(head *Entry, snap txnts.Snapshot) *Entry {
	node := head
	for {
		if IsVisible(snap, node.ts) {
			return node
		}
		elder := idx.Elder(node)
		if elder == nil {
			return node
		}
		node = elder
	}
}

// CommittedNode returns the newest committed version of the chain headed
// by head, or the oldest version when none committed.
func (idx *NameIndex) CommittedNode(head *Entry) *Entry {
	node := head
	for {
		if node.ts.IsCommitted() {
			return node
		}
		elder := idx.Elder(node)
		if elder == nil {
			return node
		}
		node = elder
	}
}
