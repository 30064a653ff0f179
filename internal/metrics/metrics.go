// Package metrics defines the Prometheus collectors updated by the record store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store counts record store activity.
type Store struct {
	Writes       *prometheus.CounterVec
	ReadFailures *prometheus.CounterVec
	Marks        *prometheus.CounterVec
}

// NewStore registers the collectors on reg. A nil reg yields unregistered collectors.
func NewStore(reg prometheus.Registerer) *Store {
	f := promauto.With(reg)
	return &Store{
		Writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Collection writes by collection and result (ok, error).",
		}, []string{"collection", "result"}),
		ReadFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "store",
			Name:      "read_failures_total",
			Help:      "Collection reads that failed or held undecodable data.",
		}, []string{"collection"}),
		Marks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Subsystem: "attendance",
			Name:      "marks_total",
			Help:      "Attendance marks by outcome (created, updated).",
		}, []string{"outcome"}),
	}
}

// Write records the outcome of one collection write.
func (s *Store) Write(collection string, err error) {
	if s == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.Writes.WithLabelValues(collection, result).Inc()
}

// ReadFailed records a failed or undecodable collection read.
func (s *Store) ReadFailed(collection string) {
	if s == nil {
		return
	}
	s.ReadFailures.WithLabelValues(collection).Inc()
}

// Marked records an attendance upsert.
func (s *Store) Marked(created bool) {
	if s == nil {
		return
	}
	outcome := "updated"
	if created {
		outcome = "created"
	}
	s.Marks.WithLabelValues(outcome).Inc()
}
