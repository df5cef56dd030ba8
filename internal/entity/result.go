package entity

import (
	"time"

	"github.com/joseph-ayodele/property-intake/constants"
)

// SourceInfo traces a result back to the uploaded file.
type SourceInfo struct {
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename,omitempty"`
	Path             string `json:"path,omitempty"`
	FileHash         string `json:"file_hash"`
	FileSize         int64  `json:"file_size"`
	PageCount        int    `json:"page_count"`
}

// ProcessingInfo holds timing and usage for one pass.
type ProcessingInfo struct {
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationMS      int64     `json:"duration_ms"`
	BackendModel    string    `json:"backend_model"`
	ClassifierModel string    `json:"classifier_model,omitempty"`
	TokensUsed      int64     `json:"tokens_used"`
	CacheHit        bool      `json:"cache_hit,omitempty"`
}

// StageError records where and why a document failed.
type StageError struct {
	Stage   constants.Stage `json:"stage"`
	Message string          `json:"message"`
}

// PipelineResult is the immutable record of one document's pass.
type PipelineResult struct {
	DocumentID string                   `json:"document_id"`
	UploadID   string                   `json:"upload_id,omitempty"`
	BatchID    string                   `json:"batch_id,omitempty"`
	Status     constants.DocumentStatus `json:"status"`
	Error      *StageError              `json:"error,omitempty"`

	DocumentType             constants.DocumentType    `json:"document_type"`
	ClassificationConfidence float64                   `json:"classification_confidence"`
	ExtractedData            map[string]ExtractedField `json:"extracted_data"`
	ExtractionConfidence     float64                   `json:"extraction_confidence"`
	Validation               *ValidationResult         `json:"validation,omitempty"`

	RawText    string         `json:"raw_text,omitempty"`
	Pages      []Page         `json:"pages,omitempty"`
	Source     SourceInfo     `json:"source"`
	Processing ProcessingInfo `json:"processing"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Failed reports whether the document ended FAILED.
func (r *PipelineResult) Failed() bool {
	return r.Status == constants.DocumentFailed
}
