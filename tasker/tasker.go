package tasker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alekLukanen/csv2parquet/elements"
	"github.com/alekLukanen/errs"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Workers int
}

// Tasker runs packets through their registered tasks on a bounded number
// of goroutines. A failing packet never stops its siblings.
type Tasker struct {
	logger *slog.Logger

	taskRegistry *taskRegistry
	workers      int

	current atomic.Pointer[resultCollector]
}

func NewTasker(
	ctx context.Context,
	logger *slog.Logger,
	options Options,
) (*Tasker, error) {
	if options.Workers <= 0 {
		return nil, elements.NewStackError(fmt.Errorf("%w| %d", ErrInvalidWorkerCount, options.Workers))
	}

	return &Tasker{
		logger:       logger,
		taskRegistry: newTaskRegistry(),
		workers:      options.Workers,
	}, nil

}

func (obj *Tasker) RegisterTask(task ITask) error {
	return obj.taskRegistry.addTask(task)
}

func (obj *Tasker) Workers() int {
	return obj.workers
}

// Run processes every packet and blocks until all of them have finished.
// The returned records are in completion order; an empty list means every
// packet succeeded. Packets that have not started when ctx is cancelled are
// recorded as failed with the context error.
func (obj *Tasker) Run(ctx context.Context, packets []ITaskPacket, sink IProgressSink) []elements.ErrorRecord {
	collector := newResultCollector(len(packets), sink)
	obj.current.Store(collector)

	start := time.Now()
	obj.logger.Info("starting tasks", slog.Int("tasks", len(packets)), slog.Int("workers", obj.workers))

	group := new(errgroup.Group)
	group.SetLimit(obj.workers)
	for _, packet := range packets {
		group.Go(func() error {
			result, err := obj.process(ctx, packet)
			collector.record(packet, result, err)
			if err != nil {
				obj.logger.Debug(
					"task failed",
					slog.String("packet", packet.Id()),
					slog.String("error", errs.ErrorWithStack(err)),
				)
			}
			return nil
		})
	}
	// workers never return an error
	_ = group.Wait()

	summary := collector.summary()
	obj.logger.Info(
		"finished tasks",
		slog.Int("tasks", summary.Total),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int64("elapsedMs", time.Since(start).Milliseconds()),
	)
	return collector.errorRecords()
}

// Progress reports the counters of the latest run.
func (obj *Tasker) Progress() (done, total int) {
	collector := obj.current.Load()
	if collector == nil {
		return 0, 0
	}
	summary := collector.summary()
	return summary.Done, summary.Total
}

// Summary reports the outcome counters of the latest run.
func (obj *Tasker) Summary() Summary {
	collector := obj.current.Load()
	if collector == nil {
		return Summary{}
	}
	return collector.summary()
}

func (obj *Tasker) process(ctx context.Context, packet ITaskPacket) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = elements.NewStackError(fmt.Errorf("%w| %v", ErrTaskPanicked, r))
		}
	}()

	if ctx.Err() != nil {
		return Result{}, elements.NewStackError(ctx.Err())
	}

	task, err := obj.taskRegistry.findTask(packet.TaskName())
	if err != nil {
		return Result{}, errs.Wrap(err)
	}

	// each worker gets its own copy of the packet
	data, err := packet.Marshal()
	if err != nil {
		return Result{}, elements.NewStackError(err)
	}
	ownPacket, err := obj.taskRegistry.buildTaskPacket(task.Name(), data)
	if err != nil {
		return Result{}, errs.Wrap(err)
	}

	return task.Process(ctx, ownPacket)
}

type Summary struct {
	Total   int
	Done    int
	Failed  int
	Skipped int
}

// resultCollector is the only state shared between workers.
type resultCollector struct {
	mu sync.Mutex

	errors  []elements.ErrorRecord
	total   int
	done    int
	skipped int
	sink    IProgressSink
}

func newResultCollector(total int, sink IProgressSink) *resultCollector {
	if sink != nil {
		sink.SetTotal(total)
	}
	return &resultCollector{
		errors: make([]elements.ErrorRecord, 0),
		total:  total,
		sink:   sink,
	}
}

func (obj *resultCollector) record(packet ITaskPacket, result Result, err error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	if err != nil {
		obj.errors = append(obj.errors, toErrorRecord(packet, err))
	} else if result.Skipped {
		obj.skipped++
	}
	obj.done++
	if obj.sink != nil {
		obj.sink.Increment()
	}
}

func (obj *resultCollector) errorRecords() []elements.ErrorRecord {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return append([]elements.ErrorRecord(nil), obj.errors...)
}

func (obj *resultCollector) summary() Summary {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return Summary{Total: obj.total, Done: obj.done, Failed: len(obj.errors), Skipped: obj.skipped}
}

func toErrorRecord(packet ITaskPacket, err error) elements.ErrorRecord {
	var fileErr *elements.FileError
	if errors.As(err, &fileErr) {
		return fileErr.ErrorRecord()
	}
	return elements.ErrorRecord{FilePath: packet.Id(), Error: elements.ErrorMessage(err)}
}
