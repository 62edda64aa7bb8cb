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

package txnmgr

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/matrixorigin/mocatalog/pkg/catalog/catalogif"
	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
	"github.com/matrixorigin/mocatalog/pkg/txn/undo"
)

type TxnState int32

const (
	TxnStateActive TxnState = iota
	TxnStateCommitted
	TxnStateRollbacked
)

func (s TxnState) String() string {
	switch s {
	case TxnStateActive:
		return "Active"
	case TxnStateCommitted:
		return "Committed"
	case TxnStateRollbacked:
		return "Rollbacked"
	}
	return fmt.Sprintf("TxnState(%d)", int32(s))
}

// Txn is a catalog transaction. Its operations run on one goroutine.
type Txn struct {
	mgr      *TxnManager
	uuid     uuid.UUID
	snap     txnts.Snapshot
	ctx      context.Context
	undo     *undo.Buffer
	state    atomic.Int32
	commitTS txnts.TS
}

func (txn *Txn) String() string {
	return fmt.Sprintf("txn[%s][id=%s][start=%s][%s]",
		txn.uuid, txn.snap.TxnID, txn.snap.StartTS, txn.State())
}

func (txn *Txn) ID() txnts.TS        { return txn.snap.TxnID }
func (txn *Txn) StartTS() txnts.TS   { return txn.snap.StartTS }
func (txn *Txn) CommitTS() txnts.TS  { return txn.commitTS }
func (txn *Txn) Undo() *undo.Buffer  { return txn.undo }
func (txn *Txn) State() TxnState     { return TxnState(txn.state.Load()) }
func (txn *Txn) setState(s TxnState) { txn.state.Store(int32(s)) }
func (txn *Txn) IsActive() bool      { return txn.State() == TxnStateActive }

// Ctx returns the context catalog operations of txn run under.
func (txn *Txn) Ctx() catalogif.TxnCtx {
	return catalogif.TxnCtx{
		ID:      txn.snap.TxnID,
		StartTS: txn.snap.StartTS,
		Undo:    txn.undo,
		Ctx:     txn.ctx,
	}
}

func (txn *Txn) Commit() error {
	return txn.mgr.Commit(txn)
}

func (txn *Txn) Rollback() error {
	return txn.mgr.Rollback(txn)
}
