package octogo

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector defines an interface for collecting operational metrics.
type MetricsCollector interface {
	// RecordBuild is called after each batch build with the number of
	// elements and the number of cells they occupy.
	RecordBuild(elements, cells int, duration time.Duration, err error)

	// RecordQuery is called after each solid query.
	RecordQuery(results int, duration time.Duration, err error)

	// RecordLoad is called after a model was rehydrated from its snapshot.
	RecordLoad(rows int, duration time.Duration, err error)

	// RecordSave is called after each snapshot save.
	RecordSave(rows int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordSave(int, time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildElements   atomic.Int64
	BuildCells      atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
	LoadRows        atomic.Int64
	SaveCount       atomic.Int64
	SaveErrors      atomic.Int64
	SaveRows        atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(elements, cells int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildElements.Add(int64(elements))
	b.BuildCells.Add(int64(cells))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(rows int, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadRows.Add(int64(rows))
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(rows int, _ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveRows.Add(int64(rows))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		BuildElements: b.BuildElements.Load(),
		BuildCells:    b.BuildCells.Load(),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		LoadCount:     b.LoadCount.Load(),
		LoadErrors:    b.LoadErrors.Load(),
		LoadRows:      b.LoadRows.Load(),
		SaveCount:     b.SaveCount.Load(),
		SaveErrors:    b.SaveErrors.Load(),
		SaveRows:      b.SaveRows.Load(),
	}
	if s.QueryCount > 0 {
		s.QueryAvgNanos = b.QueryTotalNanos.Load() / s.QueryCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	BuildElements int64
	BuildCells    int64
	QueryCount    int64
	QueryErrors   int64
	QueryAvgNanos int64
	LoadCount     int64
	LoadErrors    int64
	LoadRows      int64
	SaveCount     int64
	SaveErrors    int64
	SaveRows      int64
}

const statusLabel = "status"

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// PrometheusCollector exports operations as Prometheus metrics.
type PrometheusCollector struct {
	latency  *prometheus.HistogramVec
	elements prometheus.Counter
	cells    prometheus.Counter
	results  prometheus.Histogram
	rows     *prometheus.CounterVec
}

// NewPrometheusCollector registers the octogo metrics with reg. A nil reg
// uses the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PrometheusCollector{
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "octogo_operation_duration_seconds",
			Help:    "Duration of octogo operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", statusLabel}),
		elements: f.NewCounter(prometheus.CounterOpts{
			Name: "octogo_built_elements_total",
			Help: "The total number of elements inserted by builds.",
		}),
		cells: f.NewCounter(prometheus.CounterOpts{
			Name: "octogo_built_cells_total",
			Help: "The total number of cells occupied by built elements.",
		}),
		results: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "octogo_query_results",
			Help:    "The number of elements returned per query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octogo_snapshot_rows_total",
			Help: "The total number of snapshot rows read or written.",
		}, []string{"op"}),
	}
}

// RecordBuild implements MetricsCollector.
func (p *PrometheusCollector) RecordBuild(elements, cells int, d time.Duration, err error) {
	p.latency.WithLabelValues("build", status(err)).Observe(d.Seconds())
	if err == nil {
		p.elements.Add(float64(elements))
		p.cells.Add(float64(cells))
	}
}

// RecordQuery implements MetricsCollector.
func (p *PrometheusCollector) RecordQuery(results int, d time.Duration, err error) {
	p.latency.WithLabelValues("query", status(err)).Observe(d.Seconds())
	if err == nil {
		p.results.Observe(float64(results))
	}
}

// RecordLoad implements MetricsCollector.
func (p *PrometheusCollector) RecordLoad(rows int, d time.Duration, err error) {
	p.latency.WithLabelValues("load", status(err)).Observe(d.Seconds())
	p.rows.WithLabelValues("load").Add(float64(rows))
}

// RecordSave implements MetricsCollector.
func (p *PrometheusCollector) RecordSave(rows int, d time.Duration, err error) {
	p.latency.WithLabelValues("save", status(err)).Observe(d.Seconds())
	if err == nil {
		p.rows.WithLabelValues("save").Add(float64(rows))
	}
}
