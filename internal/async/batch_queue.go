package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

// BatchQueue runs batches on a fixed pool of workers. Different batches may
// run concurrently; documents inside one batch never do.
type BatchQueue struct {
	proc    BatchProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Job, *pipeline.BatchOutcome, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*BatchQueue)

func WithWorkers(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithBatchTimeout bounds a whole batch. When it fires the batch stops before
// its next document and stays PROCESSING.
func WithBatchTimeout(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback run on the worker after each batch.
func WithOnDone(fn func(Job, *pipeline.BatchOutcome, error)) Option {
	return func(q *BatchQueue) { q.onDone = fn }
}

func NewBatchQueue(proc BatchProcessor, logger *slog.Logger, opts ...Option) *BatchQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &BatchQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 30 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *BatchQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *BatchQueue) run(workerID int, job Job) {
	ctx := common.WithRequestID(context.Background(), job.RequestID)
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	out, err := q.proc.ProcessBatch(ctx, job.Batch)
	if err != nil {
		q.logger.Error("queue.batch.failed", "worker_id", workerID, "batch_id", job.Batch.ID, "error", err)
	} else {
		q.logger.Info("queue.batch.done",
			"worker_id", workerID,
			"batch_id", job.Batch.ID,
			"processed", out.Processed,
			"failed", out.Failed,
			"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.onDone != nil {
		q.onDone(job, out, err)
	}
}

// Enqueue blocks while the queue is full until ctx is done.
func (q *BatchQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.RequestID == "" {
		job.RequestID = uuid.NewString()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "batch_id", job.Batch.ID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.batch.queued", "batch_id", job.Batch.ID, "documents", len(job.Batch.Submissions))
		return nil
	default:
	}
	q.logger.Warn("queue.full", "batch_id", job.Batch.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued batches to drain or
// ctx to end.
func (q *BatchQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
