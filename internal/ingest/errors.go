package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeExceeded is returned before any read when a file is over the limit.
	ErrSizeExceeded = errors.New("file size exceeds maximum")
	// ErrUnsupportedType is returned for extensions no text back-end handles.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// IngestionError wraps every failure of the ingestion stage.
type IngestionError struct {
	Filename string
	Err      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Filename, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
