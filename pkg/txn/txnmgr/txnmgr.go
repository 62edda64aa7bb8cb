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
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
	"github.com/matrixorigin/mocatalog/pkg/config"
	"github.com/matrixorigin/mocatalog/pkg/logutil"
	"github.com/matrixorigin/mocatalog/pkg/txn/txnts"
	"github.com/matrixorigin/mocatalog/pkg/txn/undo"
	v2 "github.com/matrixorigin/mocatalog/pkg/util/metric/v2"
)

// bySnapshot orders active transactions by start timestamp, the
// sequencer never hands out the same one twice.
type bySnapshot struct {
	txn *Txn
}

func (a bySnapshot) Less(than btree.Item) bool {
	return a.txn.snap.StartTS.Less(than.(bySnapshot).txn.snap.StartTS)
}

// TxnManager hands out snapshots, applies commits and rollbacks to the
// catalog and reclaims versions no active snapshot can read any more.
type TxnManager struct {
	sync.Mutex
	seq       *txnts.Sequencer
	active    map[uuid.UUID]*Txn
	snapshots *btree.BTree
	pending   []*Txn

	pool *ants.Pool
	wg   sync.WaitGroup
}

// NewTxnManager returns a manager whose cleanup runs on cfg.CleanupWorkers
// goroutines, or in the finishing goroutine when it is 0.
func NewTxnManager(cfg config.TxnConfig) (*TxnManager, error) {
	mgr := &TxnManager{
		seq:       txnts.NewSequencer(),
		active:    make(map[uuid.UUID]*Txn),
		snapshots: btree.New(8),
	}
	if cfg.CleanupWorkers > 0 {
		pool, err := ants.NewPool(cfg.CleanupWorkers)
		if err != nil {
			return nil, moerr.ConvertGoError(context.Background(), err)
		}
		mgr.pool = pool
	}
	return mgr, nil
}

func (mgr *TxnManager) Sequencer() *txnts.Sequencer {
	return mgr.seq
}

func (mgr *TxnManager) Begin(ctx context.Context) *Txn {
	mgr.Lock()
	defer mgr.Unlock()
	txn := &Txn{
		mgr:  mgr,
		uuid: uuid.New(),
		snap: mgr.seq.Begin(),
		ctx:  ctx,
		undo: undo.NewBuffer(),
	}
	mgr.active[txn.uuid] = txn
	mgr.snapshots.ReplaceOrInsert(bySnapshot{txn})
	v2.TxnBeginCounter.Inc()
	v2.TxnActiveGauge.Inc()
	logutil.Debug("txn begin", zap.String("txn", txn.String()))
	return txn
}

func (mgr *TxnManager) ActiveCount() int {
	mgr.Lock()
	defer mgr.Unlock()
	return len(mgr.active)
}

// PendingCleanup is the number of committed transactions whose replaced
// versions are still kept.
func (mgr *TxnManager) PendingCleanup() int {
	mgr.Lock()
	defer mgr.Unlock()
	return len(mgr.pending)
}

func (mgr *TxnManager) checkActiveLocked(txn *Txn) error {
	if _, ok := mgr.active[txn.uuid]; !ok || !txn.IsActive() {
		return moerr.NewTxnClosed(moerr.Context(), txn.uuid.String())
	}
	return nil
}

// Commit stamps every write of txn with a fresh commit timestamp. No
// transaction begins while the writes are stamped, so a snapshot sees all
// of them or none.
func (mgr *TxnManager) Commit(txn *Txn) error {
	now := time.Now()
	mgr.Lock()
	if err := mgr.checkActiveLocked(txn); err != nil {
		mgr.Unlock()
		return err
	}
	if err := txn.undo.Err(); err != nil {
		mgr.Unlock()
		logutil.Warn("txn commit refused, rolling back",
			zap.String("txn", txn.String()), zap.Error(err))
		if rerr := mgr.Rollback(txn); rerr != nil {
			return rerr
		}
		return err
	}
	ts := mgr.seq.NextCommitTS()
	err := txn.undo.ForEach(func(r *undo.Record) error {
		return r.Set.CommitWrite(r.Prev, ts)
	})
	if err != nil {
		mgr.Unlock()
		logutil.Error("txn commit failed",
			zap.String("txn", txn.String()), zap.Error(err))
		return err
	}
	txn.commitTS = ts
	txn.setState(TxnStateCommitted)
	mgr.removeActiveLocked(txn)
	if txn.undo.Len() > 0 {
		mgr.pending = append(mgr.pending, txn)
	}
	ready := mgr.collectLocked()
	mgr.Unlock()

	v2.TxnCommitCounter.Inc()
	v2.TxnActiveGauge.Dec()
	v2.TxnCommitDurationHistogram.Observe(time.Since(now).Seconds())
	logutil.Debug("txn committed",
		zap.String("txn", txn.String()),
		zap.Stringer("commit-ts", ts),
		zap.Int("writes", txn.undo.Len()))
	mgr.cleanup(ready)
	return nil
}

// Rollback undoes the writes of txn newest first, then the reverts its
// collaborators recorded.
func (mgr *TxnManager) Rollback(txn *Txn) error {
	now := time.Now()
	mgr.Lock()
	if err := mgr.checkActiveLocked(txn); err != nil {
		mgr.Unlock()
		return err
	}
	err := txn.undo.ReverseForEach(func(r *undo.Record) error {
		return r.Set.Undo(r.Prev)
	})
	txn.undo.Revert()
	txn.setState(TxnStateRollbacked)
	mgr.removeActiveLocked(txn)
	ready := mgr.collectLocked()
	mgr.Unlock()

	v2.TxnRollbackCounter.Inc()
	v2.TxnActiveGauge.Dec()
	v2.TxnRollbackDurationHistogram.Observe(time.Since(now).Seconds())
	if err != nil {
		logutil.Error("txn rollback failed",
			zap.String("txn", txn.String()), zap.Error(err))
	} else {
		logutil.Debug("txn rollbacked",
			zap.String("txn", txn.String()),
			zap.Int("writes", txn.undo.Len()))
	}
	mgr.cleanup(ready)
	return err
}

func (mgr *TxnManager) removeActiveLocked(txn *Txn) {
	delete(mgr.active, txn.uuid)
	mgr.snapshots.Delete(bySnapshot{txn})
}

// collectLocked removes and returns the committed transactions older than
// every active snapshot.
func (mgr *TxnManager) collectLocked() []*Txn {
	if len(mgr.pending) == 0 {
		return nil
	}
	var oldest *Txn
	if item := mgr.snapshots.Min(); item != nil {
		oldest = item.(bySnapshot).txn
	}
	var ready []*Txn
	kept := mgr.pending[:0]
	for _, txn := range mgr.pending {
		if oldest == nil || txn.commitTS.Less(oldest.snap.StartTS) {
			ready = append(ready, txn)
		} else {
			kept = append(kept, txn)
		}
	}
	mgr.pending = kept
	v2.TxnPendingCleanupGauge.Set(float64(len(kept)))
	slices.SortFunc(ready, func(a, b *Txn) bool {
		return a.commitTS.Less(b.commitTS)
	})
	return ready
}

func (mgr *TxnManager) cleanup(ready []*Txn) {
	if len(ready) == 0 {
		return
	}
	if mgr.pool == nil {
		mgr.cleanupTxns(ready)
		return
	}
	mgr.wg.Add(1)
	err := mgr.pool.Submit(func() {
		defer mgr.wg.Done()
		mgr.cleanupTxns(ready)
	})
	if err != nil {
		mgr.wg.Done()
		logutil.Warn("txn cleanup not scheduled, running inline", zap.Error(err))
		mgr.cleanupTxns(ready)
	}
}

func (mgr *TxnManager) cleanupTxns(ready []*Txn) {
	now := time.Now()
	for _, txn := range ready {
		err := txn.undo.ForEach(func(r *undo.Record) error {
			return r.Set.CleanupEntry(r.Prev)
		})
		if err != nil {
			logutil.Error("txn cleanup failed",
				zap.String("txn", txn.String()), zap.Error(err))
		}
	}
	v2.TxnCleanupDurationHistogram.Observe(time.Since(now).Seconds())
}

// Flush waits for scheduled cleanups to finish.
func (mgr *TxnManager) Flush() {
	mgr.wg.Wait()
}

func (mgr *TxnManager) Close() {
	mgr.Flush()
	if mgr.pool != nil {
		mgr.pool.Release()
	}
}
