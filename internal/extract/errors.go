package extract

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/property-intake/constants"
)

// ErrTruncated is in the chain of a parse failure on a length-limited reply.
var ErrTruncated = errors.New("backend response truncated at token limit")

// ErrorKind separates unusable replies from failed backend calls.
type ErrorKind string

const (
	KindParse   ErrorKind = "parse"
	KindBackend ErrorKind = "backend"
)

// ExtractionError is returned when no extraction result can be produced.
type ExtractionError struct {
	Kind         ErrorKind
	DocumentType constants.DocumentType
	Truncated    bool
	Err          error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction failed (%s, %s): %v", e.DocumentType, e.Kind, e.Err)
	if e.Truncated {
		msg += "; response was truncated"
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is matches ErrTruncated for parse failures on truncated replies.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrTruncated && e.Truncated
}
