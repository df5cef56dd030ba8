package consolidate

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
)

// ErrNoOwner is returned when the owner context carries no owner id.
var ErrNoOwner = errors.New("consolidate: owner id is required")

// ErrUnmergeable marks a field value the flat record cannot hold.
var ErrUnmergeable = errors.New("value cannot be merged")

// ConsolidationError records a document whose contribution was skipped.
type ConsolidationError struct {
	DocumentID string
	Field      string
	Err        error
}

func (e *ConsolidationError) Error() string {
	return fmt.Sprintf("consolidate document %s field %s: %v", e.DocumentID, e.Field, e.Err)
}

func (e *ConsolidationError) Unwrap() error { return e.Err }

// WriteOp is the kind of row write requested.
type WriteOp string

const (
	OpInsert WriteOp = "INSERT"
	OpUpdate WriteOp = "UPDATE"
)

// PersonWrite creates the owner row when it does not exist yet.
type PersonWrite struct {
	PersonID  string `json:"person_id"`
	LegalType string `json:"legal_type"`
	FullName  string `json:"full_name"`
	Status    string `json:"status"`
}

// PropertyWrite inserts or updates one property row.
type PropertyWrite struct {
	Op                WriteOp        `json:"op"`
	PropertyID        string         `json:"property_id"`
	OwnerID           string         `json:"person_id"`
	NormalizedAddress string         `json:"normalized_address"`
	Columns           map[string]any `json:"columns"`
}

// MortgageWrite inserts the loan sub-record of a property.
type MortgageWrite struct {
	PropertyID string         `json:"property_id"`
	Columns    map[string]any `json:"columns"`
}

// DocumentUpdate is the per-document write outcome for document_uploads.
type DocumentUpdate struct {
	UploadID     string                           `json:"upload_id"`
	DocumentID   string                           `json:"document_id"`
	Status       constants.DocumentStatus         `json:"upload_status"`
	DocumentType constants.DocumentType           `json:"document_type"`
	Data         map[string]entity.ExtractedField `json:"extracted_data,omitempty"`
	Confidence   float64                          `json:"extraction_confidence"`
	Error        string                           `json:"error,omitempty"`
}

// Outcome is everything the persistence collaborator needs for one batch.
type Outcome struct {
	Record    *entity.ConsolidatedRecord `json:"record"`
	Person    *PersonWrite               `json:"person,omitempty"`
	Property  *PropertyWrite             `json:"property,omitempty"`
	Mortgage  *MortgageWrite             `json:"mortgage,omitempty"`
	Documents []DocumentUpdate           `json:"documents"`
	Skipped   []*ConsolidationError      `json:"-"`
	Merged    int                        `json:"merged"`
}
