package observability

import (
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/operations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds the conversion counters for one run.
type Metrics struct {
	registry *prometheus.Registry

	FilesConverted     *prometheus.CounterVec
	ConversionErrors   *prometheus.CounterVec
	RowsWritten        prometheus.Counter
	RowGroupsWritten   prometheus.Counter
	ConversionDuration prometheus.Histogram

	FilesTotal prometheus.Gauge
	FilesDone  prometheus.Gauge
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		FilesConverted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csv2parquet_files_total",
				Help: "Number of input files processed by outcome",
			},
			[]string{"status"},
		),
		ConversionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csv2parquet_conversion_errors_total",
				Help: "Number of failed conversions by error kind",
			},
			[]string{"kind"},
		),
		RowsWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "csv2parquet_rows_written_total",
				Help: "Number of data rows written to parquet files",
			},
		),
		RowGroupsWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "csv2parquet_row_groups_written_total",
				Help: "Number of parquet row groups written",
			},
		),
		ConversionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "csv2parquet_conversion_duration_seconds",
				Help:    "Time spent converting a single file",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0},
			},
		),
		FilesTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "csv2parquet_run_files",
				Help: "Number of files scheduled in the current run",
			},
		),
		FilesDone: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "csv2parquet_run_files_done",
				Help: "Number of files finished in the current run",
			},
		),
	}
}

func (obj *Metrics) ObserveConversion(result operations.ConversionResult, duration time.Duration, err error) {
	obj.ConversionDuration.Observe(duration.Seconds())
	if err != nil {
		obj.FilesConverted.WithLabelValues(StatusFailure).Inc()
		obj.ConversionErrors.WithLabelValues(elements.ErrorKind(err)).Inc()
		return
	}
	obj.FilesConverted.WithLabelValues(StatusSuccess).Inc()
	obj.RowsWritten.Add(float64(result.NumRows))
	obj.RowGroupsWritten.Add(float64(result.NumRowGroups))
}

func (obj *Metrics) ObserveSkipped(inputPath string) {
	obj.FilesConverted.WithLabelValues(StatusSkipped).Inc()
}

// WriteTextfile writes every registered metric in the text exposition
// format, for the node exporter textfile collector.
func (obj *Metrics) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, obj.registry); err != nil {
		return elements.NewStackError(err)
	}
	return nil
}
