package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/consolidate"
	"github.com/joseph-ayodele/property-intake/internal/entity"
)

// Submission is one uploaded file with its upload metadata. When Data is
// nil the bytes are fetched from Path through the Downloader.
type Submission struct {
	DocumentID       string
	UploadID         string
	BatchID          string
	UserID           string
	PropertyID       string
	OriginalFilename string
	Path             string
	DeclaredSize     int64
	Data             []byte
	Metadata         map[string]any
}

func (s Submission) filename() string {
	if s.OriginalFilename != "" {
		return s.OriginalFilename
	}
	return s.Path
}

// Batch is an ordered group of submissions consolidated into one property.
type Batch struct {
	ID          string
	UserID      string
	Submissions []Submission
}

// BatchOutcome is the result of ProcessBatch. Results keep submission order.
type BatchOutcome struct {
	BatchID       string
	Status        constants.BatchStatus
	Results       []*entity.PipelineResult
	Consolidation *consolidate.Outcome
	Processed     int
	Failed        int
}

// Downloader fetches blob bytes by opaque path.
type Downloader interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// Classifier is the classification stage.
type Classifier interface {
	Classify(ctx context.Context, text string) entity.Classification
	Model() string
}

// Extractor is the field extraction stage.
type Extractor interface {
	Extract(ctx context.Context, text string, docType constants.DocumentType) (*entity.ExtractionResult, error)
	Model() string
}

// OwnerLookup loads the pre-existing owner state for consolidation.
type OwnerLookup interface {
	OwnerContext(ctx context.Context, ownerID string) (entity.OwnerContext, error)
}

// Persister applies consolidation write requests.
type Persister interface {
	ApplyWrites(ctx context.Context, batchID string, out *consolidate.Outcome) error
}

// ErrInvalidBatch is returned for batches missing an id or owner.
var ErrInvalidBatch = errors.New("batch id and user id are required")

// StageFailure wraps an error with the document and stage it happened in.
type StageFailure struct {
	DocumentID string
	Stage      constants.Stage
	Err        error
}

func (e *StageFailure) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("document %s failed at %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }
