package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bmharper/pdfdeskew"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrCapacityExceeded is returned by Submit when max_tasks tasks are already unfinished
	ErrCapacityExceeded = errors.New("task queue is full")

	ErrTaskNotFound = errors.New("task not found")
)

// Processor turns a PDF into a straightened PDF. *pdfdeskew.Straightener implements it.
type Processor interface {
	Straighten(ctx context.Context, pdf []byte) (*pdfdeskew.Result, error)
}

type QueueOptions struct {
	MaxTasks  int           // Unfinished tasks admitted at once
	Workers   int           // Tasks processed at once
	Retention time.Duration // Finished tasks are forgotten after this long. Zero keeps them forever.
	Logger    *slog.Logger
}

type task struct {
	Task
	input []byte
}

// Queue is a bounded task queue drained by a fixed pool of workers
type Queue struct {
	processor Processor
	opts      QueueOptions
	logger    *slog.Logger
	admit     *semaphore.Weighted
	jobs      chan *task
	wg        sync.WaitGroup

	mu    sync.RWMutex
	tasks map[string]*task

	submitted metric.Int64Counter
	finished  metric.Int64Counter
}

func NewQueue(processor Processor, opts QueueOptions) *Queue {
	opts.MaxTasks = max(opts.MaxTasks, 1)
	opts.Workers = max(opts.Workers, 1)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	meter := otel.Meter("github.com/bmharper/pdfdeskew/service")
	submitted, _ := meter.Int64Counter("pdfdeskew.tasks.submitted", metric.WithDescription("Tasks admitted to the queue"))
	finished, _ := meter.Int64Counter("pdfdeskew.tasks.finished", metric.WithDescription("Tasks that completed or failed"))
	return &Queue{
		processor: processor,
		opts:      opts,
		logger:    logger,
		admit:     semaphore.NewWeighted(int64(opts.MaxTasks)),
		// Admission bounds the number of unfinished tasks, so sends never block
		jobs:      make(chan *task, opts.MaxTasks),
		tasks:     map[string]*task{},
		submitted: submitted,
		finished:  finished,
	}
}

// Start launches the workers and the retention sweeper. They stop when ctx is done.
func (q *Queue) Start(ctx context.Context) {
	for range q.opts.Workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.work(ctx)
		}()
	}
	if q.opts.Retention > 0 {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.sweep(ctx)
		}()
	}
}

// Wait blocks until every goroutine started by Start has returned
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Submit admits a PDF for processing, or fails with ErrCapacityExceeded if the queue is full
func (q *Queue) Submit(ctx context.Context, pdf []byte) (Task, error) {
	if !q.admit.TryAcquire(1) {
		return Task{}, ErrCapacityExceeded
	}
	t := &task{
		Task: Task{
			ID:      uuid.NewString(),
			Status:  StatusPending,
			Created: time.Now(),
		},
		input: pdf,
	}
	q.mu.Lock()
	q.tasks[t.ID] = t
	snapshot := t.Task
	q.mu.Unlock()

	q.jobs <- t
	q.submitted.Add(ctx, 1)
	q.logger.Info("task submitted", "task", t.ID, "bytes", len(pdf))
	return snapshot, nil
}

// Get returns a snapshot of the task
func (q *Queue) Get(id string) (Task, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, ok := q.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return t.Task, nil
}

func (q *Queue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	s := QueueStats{Capacity: q.opts.MaxTasks}
	for _, t := range q.tasks {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		default:
			s.Finished++
		}
	}
	return s
}

// Prune forgets finished tasks that finished before cutoff, and returns how many were dropped
func (q *Queue) Prune(cutoff time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, t := range q.tasks {
		if t.Status.Finished() && t.Finished.Before(cutoff) {
			delete(q.tasks, id)
			n++
		}
	}
	return n
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.jobs:
			q.run(ctx, t)
		}
	}
}

func (q *Queue) run(ctx context.Context, t *task) {
	defer q.admit.Release(1)

	q.mu.Lock()
	t.Status = StatusRunning
	input := t.input
	t.input = nil
	q.mu.Unlock()

	start := time.Now()
	result, err := q.processor.Straighten(ctx, input)

	q.mu.Lock()
	t.Finished = time.Now()
	if err != nil {
		t.Status = StatusError
		t.Error = err.Error()
	} else {
		t.Status = StatusCompleted
		t.Result = &Result{
			CorrectedPDF: TaskData{Data: result.PDF, Type: MimePDF},
			Report:       result.Report,
		}
	}
	status := t.Status
	q.mu.Unlock()

	q.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	if err != nil {
		q.logger.Warn("task failed", "task", t.ID, "err", err, "duration", time.Since(start))
	} else {
		q.logger.Info("task completed", "task", t.ID, "duration", time.Since(start))
	}
}

func (q *Queue) sweep(ctx context.Context) {
	interval := max(q.opts.Retention/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := q.Prune(now.Add(-q.opts.Retention)); n != 0 {
				q.logger.Debug("pruned finished tasks", "count", n)
			}
		}
	}
}
