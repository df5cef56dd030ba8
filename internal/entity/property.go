package entity

// ConsolidatedRecord is the batch-level flat field map.
type ConsolidatedRecord struct {
	Fields map[string]any `json:"fields"`
	// Sources names the document that contributed the winning value per field.
	Sources map[string]string `json:"sources"`
}

// NewConsolidatedRecord returns an empty record.
func NewConsolidatedRecord() *ConsolidatedRecord {
	return &ConsolidatedRecord{Fields: map[string]any{}, Sources: map[string]string{}}
}

// PropertyRef is an owner's existing property as seen by entity resolution.
type PropertyRef struct {
	ID      string `json:"property_id"`
	Address string `json:"address"`
}

// OwnerContext is the pre-existing state of the batch owner.
type OwnerContext struct {
	OwnerID    string        `json:"owner_id"`
	Exists     bool          `json:"exists"`
	Properties []PropertyRef `json:"properties"`
}
