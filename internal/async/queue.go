package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one batch. Its documents run sequentially on a single worker.
type Job struct {
	Batch       pipeline.Batch
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// BatchProcessor is satisfied by *pipeline.Orchestrator.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, b pipeline.Batch) (*pipeline.BatchOutcome, error)
}
