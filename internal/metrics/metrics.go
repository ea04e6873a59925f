// Package metrics counts scan outcomes with Prometheus collectors and writes
// them in the node-exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// Recorder owns a private registry so that several recorders (one per test)
// never collide on the default registerer.
type Recorder struct {
	registry          *prometheus.Registry
	findingsTotal     *prometheus.CounterVec
	scanFailuresTotal *prometheus.CounterVec
	resourcesTotal    *prometheus.CounterVec
}

// NewRecorder returns a Recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lk",
				Name:      "findings_total",
				Help:      "Total findings reported by provider, issue type and severity",
			},
			[]string{"provider", "issue_type", "severity"},
		),
		scanFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lk",
				Name:      "scan_failures_total",
				Help:      "Total provider scans that could not reach the provider",
			},
			[]string{"provider"},
		),
		resourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lk",
				Name:      "resources_scanned_total",
				Help:      "Total resources whose policy was fetched, by provider and kind",
			},
			[]string{"provider", "kind"},
		),
	}
	r.registry.MustRegister(r.findingsTotal, r.scanFailuresTotal, r.resourcesTotal)
	return r
}

// RecordResult counts every finding of result, or one failure when the
// provider could not be reached.
func (r *Recorder) RecordResult(result models.ScanResult) {
	if r == nil {
		return
	}
	provider := string(result.Provider)
	if result.Failed() {
		r.scanFailuresTotal.WithLabelValues(provider).Inc()
		return
	}
	for _, f := range result.Findings {
		r.findingsTotal.WithLabelValues(provider, string(f.IssueType), string(f.Severity)).Inc()
	}
}

// RecordResource counts one scanned resource. Safe for concurrent use.
func (r *Recorder) RecordResource(provider models.Provider, kind models.ResourceKind) {
	if r == nil {
		return
	}
	r.resourcesTotal.WithLabelValues(string(provider), string(kind)).Inc()
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %q: %w", path, err)
	}
	return nil
}
