// Package metrics exposes Prometheus collectors for the crawl and
// merge pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	targetsSelectedTotal    prometheus.Counter
	targetsProcessedTotal   *prometheus.CounterVec
	duplicateDocumentsTotal prometheus.Counter
	recordsStagedTotal      prometheus.Counter
	recordsMergedTotal      prometheus.Counter
	recordsSupersededTotal  prometheus.Counter
	stagedQuarantinedTotal  prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		targetsSelectedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "racewatch_targets_selected_total",
			Help: "Total number of crawl targets selected for processing.",
		})

		targetsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "racewatch_targets_processed_total",
				Help: "Total number of processed crawl targets, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		duplicateDocumentsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "racewatch_duplicate_documents_total",
			Help: "Total number of targets whose document bytes matched an earlier target.",
		})

		recordsStagedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "racewatch_records_staged_total",
			Help: "Total number of result records written to the staging area.",
		})

		recordsMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "racewatch_records_merged_total",
			Help: "Total number of records in the master dataset after each merge.",
		})

		recordsSupersededTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "racewatch_records_superseded_total",
			Help: "Total number of records replaced by a later-encountered duplicate key.",
		})

		stagedQuarantinedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "racewatch_staged_files_quarantined_total",
			Help: "Total number of staged files skipped as unparseable.",
		})
	})
}

// ObserveSelected counts targets selected by the scheduler.
func ObserveSelected(n int) {
	if targetsSelectedTotal == nil {
		return
	}
	targetsSelectedTotal.Add(float64(n))
}

// ObserveTargetOutcome counts one processed target by outcome label.
func ObserveTargetOutcome(outcome string) {
	if targetsProcessedTotal == nil {
		return
	}
	targetsProcessedTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuplicateDocument counts a byte-identical document detection.
func ObserveDuplicateDocument() {
	if duplicateDocumentsTotal == nil {
		return
	}
	duplicateDocumentsTotal.Inc()
}

// ObserveStagedRecords counts records written to staging.
func ObserveStagedRecords(n int) {
	if recordsStagedTotal == nil {
		return
	}
	recordsStagedTotal.Add(float64(n))
}

// ObserveMerge records the outcome of one merge pass.
func ObserveMerge(masterRecords, superseded, quarantined int) {
	if recordsMergedTotal == nil {
		return
	}
	recordsMergedTotal.Add(float64(masterRecords))
	recordsSupersededTotal.Add(float64(superseded))
	stagedQuarantinedTotal.Add(float64(quarantined))
}
