package observability

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/csv2parquet/operations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	testCases := []struct {
		config   LoggingConfig
		debugOn  bool
		contains string
	}{
		{config: LoggingConfig{Level: "debug", Format: "json"}, debugOn: true, contains: `"msg":"hello"`},
		{config: LoggingConfig{Level: "info", Format: "text"}, debugOn: false, contains: "msg=hello"},
		{config: LoggingConfig{Level: "WARNING"}, debugOn: false, contains: ""},
		{config: LoggingConfig{}, debugOn: false, contains: "msg=hello"},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			buf := new(bytes.Buffer)
			logger := slog.New(NewHandler(tc.config, buf))

			assert.Equal(t, tc.debugOn, logger.Enabled(context.Background(), slog.LevelDebug))
			logger.Info("hello")
			if tc.contains == "" {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tc.contains)
			}
		})
	}
}

func TestMetrics_ObserveConversion(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveConversion(operations.ConversionResult{NumRows: 10, NumRowGroups: 2}, time.Second, nil)
	metrics.ObserveConversion(operations.ConversionResult{NumRows: 5, NumRowGroups: 1}, time.Second, nil)
	metrics.ObserveConversion(
		operations.ConversionResult{},
		time.Millisecond,
		elements.NewFileError("b.csv", fmt.Errorf("%w| no rows", elements.ErrEmptyFile)),
	)
	metrics.ObserveSkipped("c.csv")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FilesConverted.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FilesConverted.WithLabelValues(StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FilesConverted.WithLabelValues(StatusSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConversionErrors.WithLabelValues("empty_file")))
	assert.Equal(t, 15.0, testutil.ToFloat64(metrics.RowsWritten))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RowGroupsWritten))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.ObserveConversion(operations.ConversionResult{NumRows: 3, NumRowGroups: 1}, time.Second, nil)

	filename := filepath.Join(t.TempDir(), "csv2parquet.prom")
	require.Nil(t, metrics.WriteTextfile(filename))

	data, err := os.ReadFile(filename)
	require.Nil(t, err)
	assert.True(t, strings.Contains(string(data), `csv2parquet_files_total{status="success"} 1`))
	assert.True(t, strings.Contains(string(data), "csv2parquet_rows_written_total 3"))
}

type countingSink struct {
	total    int
	done     int
	finished bool
}

func (obj *countingSink) SetTotal(total int) { obj.total = total }
func (obj *countingSink) Increment()         { obj.done++ }
func (obj *countingSink) Finish()            { obj.finished = true }

func TestMultiProgress(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	first, second := new(countingSink), new(countingSink)
	buf := new(bytes.Buffer)

	sink := NewMultiProgress(first, second, NewMetricsProgress(metrics), NewTerminalProgress(buf, "converting"), DiscardProgress{})
	sink.SetTotal(3)
	for i := 0; i < 3; i++ {
		sink.Increment()
	}
	sink.Finish()

	for _, s := range []*countingSink{first, second} {
		assert.Equal(t, 3, s.total)
		assert.Equal(t, 3, s.done)
		assert.True(t, s.finished)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.FilesTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.FilesDone))
	assert.Contains(t, buf.String(), "converting")
}
