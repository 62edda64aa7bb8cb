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
	catalogOpCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "catalog",
			Name:      "op_total",
			Help:      "Total number of catalog writes applied.",
		}, []string{"type"})
	CatalogCreateCounter = catalogOpCounter.WithLabelValues("create")
	CatalogAlterCounter  = catalogOpCounter.WithLabelValues("alter")
	CatalogRenameCounter = catalogOpCounter.WithLabelValues("rename")
	CatalogDropCounter   = catalogOpCounter.WithLabelValues("drop")
	CatalogUndoCounter   = catalogOpCounter.WithLabelValues("undo")
	CatalogCleanCounter  = catalogOpCounter.WithLabelValues("cleanup")

	catalogConflictCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "catalog",
			Name:      "ww_conflict_total",
			Help:      "Total number of catalog write-write conflicts.",
		}, []string{"type"})
	CatalogCreateConflictCounter = catalogConflictCounter.WithLabelValues("create")
	CatalogAlterConflictCounter  = catalogConflictCounter.WithLabelValues("alter")
	CatalogDropConflictCounter   = catalogConflictCounter.WithLabelValues("drop")

	catalogDefaultCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "catalog",
			Name:      "default_entry_total",
			Help:      "Total number of default entry materializations by outcome.",
		}, []string{"type"})
	CatalogDefaultCreatedCounter = catalogDefaultCounter.WithLabelValues("created")
	CatalogDefaultLostCounter    = catalogDefaultCounter.WithLabelValues("lost-race")
	CatalogDefaultMissCounter    = catalogDefaultCounter.WithLabelValues("miss")

	CatalogChainDepthHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mo",
			Subsystem: "catalog",
			Name:      "chain_depth",
			Help:      "Bucketed histogram of version chain depth after a write.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		})

	CatalogVersionGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mo",
			Subsystem: "catalog",
			Name:      "version",
			Help:      "Catalog version, bumped whenever a write is undone.",
		})
)

func initCatalogMetrics() {
	registry.MustRegister(catalogOpCounter)
	registry.MustRegister(catalogConflictCounter)
	registry.MustRegister(catalogDefaultCounter)
	registry.MustRegister(CatalogChainDepthHistogram)
	registry.MustRegister(CatalogVersionGauge)
}
