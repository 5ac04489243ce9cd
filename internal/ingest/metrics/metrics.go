package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles ingestion pipeline metrics.
type Metrics struct {
	FilesTotal    *prometheus.CounterVec
	FileDuration  prometheus.Histogram
	RowsExtracted *prometheus.CounterVec
	ParseErrors   prometheus.Counter
	UpsertOps     *prometheus.CounterVec
}

// New constructs and registers metrics.
func New() *Metrics {
	m := &Metrics{
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reporting_ingest_files_total",
				Help: "Total processed files by outcome",
			},
			[]string{"status"},
		),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reporting_ingest_file_duration_seconds",
			Help:    "File processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		RowsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reporting_ingest_rows_extracted_total",
				Help: "Total extracted records by sheet kind",
			},
			[]string{"kind"},
		),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reporting_ingest_parse_errors_total",
			Help: "Total accumulated row and sheet parse errors",
		}),
		UpsertOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reporting_ingest_upsert_ops_total",
				Help: "Total upsert outcomes by operation",
			},
			[]string{"op"},
		),
	}
	prometheus.MustRegister(
		m.FilesTotal,
		m.FileDuration,
		m.RowsExtracted,
		m.ParseErrors,
		m.UpsertOps,
	)
	return m
}
