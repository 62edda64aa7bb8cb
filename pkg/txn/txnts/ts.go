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

package txnts

import (
	"fmt"

	"github.com/matrixorigin/mocatalog/pkg/common/seqnum"
)

// TS is a version timestamp. It is either the id of a transaction that has
// not committed yet, or the commit sequence number of a committed one.
//
// Every uncommitted TS orders after every committed TS, whatever the
// numbers are:
//
//	Committed(0) < Committed(1) < ... < Uncommitted(0) < Uncommitted(1) < ...
type TS struct {
	v           uint64
	uncommitted bool
}

// ZeroTS is the committed timestamp of versions that exist before any
// transaction, e.g. built-in entries and placeholder chain roots.
var ZeroTS = TS{}

func TxnID(v uint64) TS    { return TS{v: v, uncommitted: true} }
func CommitTS(v uint64) TS { return TS{v: v} }

func (ts TS) IsCommitted() bool   { return !ts.uncommitted }
func (ts TS) IsUncommitted() bool { return ts.uncommitted }
func (ts TS) Value() uint64       { return ts.v }

func (ts TS) Compare(o TS) int {
	if ts.uncommitted != o.uncommitted {
		if ts.uncommitted {
			return 1
		}
		return -1
	}
	switch {
	case ts.v < o.v:
		return -1
	case ts.v > o.v:
		return 1
	}
	return 0
}

func (ts TS) Equal(o TS) bool     { return ts == o }
func (ts TS) Less(o TS) bool      { return ts.Compare(o) < 0 }
func (ts TS) LessEq(o TS) bool    { return ts.Compare(o) <= 0 }
func (ts TS) Greater(o TS) bool   { return ts.Compare(o) > 0 }
func (ts TS) GreaterEq(o TS) bool { return ts.Compare(o) >= 0 }

func (ts TS) String() string {
	if ts.uncommitted {
		return fmt.Sprintf("txn-%d", ts.v)
	}
	return fmt.Sprintf("%d", ts.v)
}

// Snapshot is what a transaction presents to version checks: its own id
// and the commit timestamp it reads at.
type Snapshot struct {
	TxnID   TS
	StartTS TS
}

// Sequencer draws transaction ids, start timestamps and commit timestamps
// from one monotonically increasing counter. The counter starts at 1, 0 is
// reserved for ZeroTS. A Sequencer lives as long as the engine, there is
// no teardown.
type Sequencer struct {
	alloc *seqnum.IdAlloctor
}

func NewSequencer() *Sequencer {
	return &Sequencer{alloc: seqnum.NewIdAlloctor(1)}
}

// Begin returns a snapshot for a new transaction: its start timestamp is
// the current counter, so every commit drawn before it is visible.
func (s *Sequencer) Begin() Snapshot {
	start := s.alloc.Alloc()
	id := s.alloc.Alloc()
	return Snapshot{
		TxnID:   TxnID(id),
		StartTS: CommitTS(start),
	}
}

// NextCommitTS returns a commit timestamp greater than every start
// timestamp handed out so far.
func (s *Sequencer) NextCommitTS() TS {
	return CommitTS(s.alloc.Alloc())
}
