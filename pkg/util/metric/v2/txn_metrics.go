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

package v2

import "github.com/prometheus/client_golang/prometheus"

var (
	txnCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "txn",
			Name:      "catalog_txn_total",
			Help:      "Total number of catalog transactions by outcome.",
		}, []string{"type"})
	TxnBeginCounter    = txnCounter.WithLabelValues("begin")
	TxnCommitCounter   = txnCounter.WithLabelValues("commit")
	TxnRollbackCounter = txnCounter.WithLabelValues("rollback")

	txnDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "txn",
			Name:      "catalog_duration_seconds",
			Help:      "Bucketed histogram of catalog transaction finish duration.",
			Buckets:   getDurationBuckets(),
		}, []string{"type"})
	TxnCommitDurationHistogram   = txnDurationHistogram.WithLabelValues("commit")
	TxnRollbackDurationHistogram = txnDurationHistogram.WithLabelValues("rollback")
	TxnCleanupDurationHistogram  = txnDurationHistogram.WithLabelValues("cleanup")

	TxnActiveGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mo",
			Subsystem: "txn",
			Name:      "catalog_active",
			Help:      "Number of catalog transactions in flight.",
		})

	TxnPendingCleanupGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mo",
			Subsystem: "txn",
			Name:      "catalog_pending_cleanup",
			Help:      "Number of committed transactions waiting for version cleanup.",
		})

	TxnUndoBytesHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "txn",
			Name:      "catalog_undo_record_bytes",
			Help:      "Bucketed histogram of compressed alter record size.",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 12),
		})
)

func initTxnMetrics() {
	registry.MustRegister(txnCounter)
	registry.MustRegister(txnDurationHistogram)
	registry.MustRegister(TxnActiveGauge)
	registry.MustRegister(TxnPendingCleanupGauge)
	registry.MustRegister(TxnUndoBytesHistogram)
}
