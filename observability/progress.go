package observability

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

type IProgressSink interface {
	SetTotal(total int)
	Increment()
	Finish()
}

// TerminalProgress renders run progress as a bar on a terminal.
type TerminalProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func NewTerminalProgress(writer io.Writer, description string) *TerminalProgress {
	bar := progressbar.NewOptions(
		0,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(writer, "\n")
		}),
	)
	return &TerminalProgress{bar: bar}
}

func (obj *TerminalProgress) SetTotal(total int) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.bar.ChangeMax(total)
}

func (obj *TerminalProgress) Increment() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	_ = obj.bar.Add(1)
}

func (obj *TerminalProgress) Finish() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	_ = obj.bar.Finish()
}

// MetricsProgress mirrors run progress into the run gauges.
type MetricsProgress struct {
	metrics *Metrics
}

func NewMetricsProgress(metrics *Metrics) *MetricsProgress {
	return &MetricsProgress{metrics: metrics}
}

func (obj *MetricsProgress) SetTotal(total int) {
	obj.metrics.FilesTotal.Set(float64(total))
	obj.metrics.FilesDone.Set(0)
}
func (obj *MetricsProgress) Increment() { obj.metrics.FilesDone.Inc() }
func (obj *MetricsProgress) Finish()    {}

type DiscardProgress struct{}

func (DiscardProgress) SetTotal(int) {}
func (DiscardProgress) Increment()   {}
func (DiscardProgress) Finish()      {}

// MultiProgress forwards every call to each sink in order.
type MultiProgress struct {
	sinks []IProgressSink
}

func NewMultiProgress(sinks ...IProgressSink) *MultiProgress {
	return &MultiProgress{sinks: sinks}
}

func (obj *MultiProgress) SetTotal(total int) {
	for _, sink := range obj.sinks {
		sink.SetTotal(total)
	}
}

func (obj *MultiProgress) Increment() {
	for _, sink := range obj.sinks {
		sink.Increment()
	}
}

func (obj *MultiProgress) Finish() {
	for _, sink := range obj.sinks {
		sink.Finish()
	}
}
