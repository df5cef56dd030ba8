package constants

// DocumentStatus is the per-document lifecycle state stored on document_uploads.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentUploaded   DocumentStatus = "UPLOADED"   // accepted, not yet processed
	DocumentProcessing DocumentStatus = "PROCESSING" // in the pipeline
	DocumentProcessed  DocumentStatus = "PROCESSED"  // terminal
	DocumentFailed     DocumentStatus = "FAILED"     // terminal
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentUploaded:   {DocumentProcessing},
	DocumentProcessing: {DocumentProcessed, DocumentFailed},
}

// Terminal reports whether no further transition is allowed.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentProcessed || s == DocumentFailed
}

// CanTransition reports whether s -> next is a legal lifecycle step.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	for _, n := range documentTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "PENDING"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchCompleted  BatchStatus = "COMPLETED"
)

// Stage names the pipeline step a failure is attributed to.
type Stage string

const (
	StageIngestion      Stage = "INGESTION"
	StageClassification Stage = "CLASSIFICATION"
	StageExtraction     Stage = "EXTRACTION"
	StageValidation     Stage = "VALIDATION"
	StageConsolidation  Stage = "CONSOLIDATION"
)
