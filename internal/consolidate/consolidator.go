// Package consolidate folds the per-document extraction results of one
// batch into a single property record and the writes that persist it.
package consolidate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
)

// Consolidator merges a batch. It performs no I/O.
type Consolidator struct {
	logger    *slog.Logger
	newID     func() string
	skipEmpty bool
}

// Option configures a Consolidator.
type Option func(*Consolidator)

// WithIDGenerator overrides how new property ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Consolidator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithSkipEmpty keeps an earlier value when a later document reports the
// field as null or blank. Off by default: a later null overwrites.
func WithSkipEmpty(skip bool) Option {
	return func(c *Consolidator) { c.skipEmpty = skip }
}

func NewConsolidator(logger *slog.Logger, opts ...Option) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consolidator{logger: logger, newID: func() string { return uuid.New().String() }}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Consolidate folds results in the given order; for a field present in
// several documents the later document wins, even when its value is null.
// Failed documents contribute nothing.
func (c *Consolidator) Consolidate(ctx context.Context, results []*entity.PipelineResult, owner entity.OwnerContext) (*Outcome, error) {
	if owner.OwnerID == "" {
		return nil, ErrNoOwner
	}
	out := &Outcome{Record: entity.NewConsolidatedRecord()}

	for _, r := range results {
		if r == nil {
			continue
		}
		out.Documents = append(out.Documents, documentUpdate(r))
		if r.Status != constants.DocumentProcessed {
			continue
		}
		if cerr := c.fold(out.Record, r); cerr != nil {
			c.logger.Warn("consolidate.document.skipped",
				"document_id", r.DocumentID,
				"field", cerr.Field,
				"error", cerr.Err,
			)
			out.Skipped = append(out.Skipped, cerr)
			continue
		}
		out.Merged++
	}

	c.resolve(out, owner)

	c.logger.InfoContext(ctx, "consolidate.done",
		"owner_id", owner.OwnerID,
		"documents", len(results),
		"merged", out.Merged,
		"skipped", len(out.Skipped),
		"fields", len(out.Record.Fields),
		"property_op", propertyOp(out.Property),
		"mortgage", out.Mortgage != nil,
	)
	return out, nil
}

// fold applies one document atomically: every value is checked before any
// is written, so a bad field leaves the record untouched.
func (c *Consolidator) fold(rec *entity.ConsolidatedRecord, r *entity.PipelineResult) *ConsolidationError {
	staged := make(map[string]any, len(r.ExtractedData))
	for name, f := range r.ExtractedData {
		if c.skipEmpty && f.IsEmpty() {
			continue
		}
		switch f.Value.(type) {
		case nil, string, float64, bool, int, int64:
		default:
			return &ConsolidationError{DocumentID: r.DocumentID, Field: name, Err: ErrUnmergeable}
		}
		staged[name] = f.Value
	}
	for name, v := range staged {
		rec.Fields[name] = v
		rec.Sources[name] = r.DocumentID
	}
	return nil
}

func (c *Consolidator) resolve(out *Outcome, owner entity.OwnerContext) {
	fields := out.Record.Fields
	addrVal, ok := firstOf(fields, "property_address", "address")
	if !ok {
		c.logger.Info("consolidate.property.skipped", "owner_id", owner.OwnerID, "reason", "no address")
		return
	}
	address := toString(addrVal)
	norm := NormalizeAddress(address)

	cols := mapColumns(fields, propertyColumns)
	if _, ok := cols["property_type"]; !ok {
		cols["property_type"] = defaultPropertyType
	}

	pw := &PropertyWrite{OwnerID: owner.OwnerID, NormalizedAddress: norm, Columns: cols}
	if existing, found := matchProperty(owner.Properties, norm); found {
		pw.Op = OpUpdate
		pw.PropertyID = existing.ID
	} else {
		pw.Op = OpInsert
		pw.PropertyID = c.newID()
		cols["is_primary_residence"] = len(owner.Properties) == 0
	}
	out.Property = pw

	if !owner.Exists {
		name := "Unknown Owner"
		if v, ok := firstOf(fields, "borrower_name", "owner_name"); ok {
			name = toString(v)
		}
		out.Person = &PersonWrite{
			PersonID:  owner.OwnerID,
			LegalType: "individual",
			FullName:  name,
			Status:    "active",
		}
	}

	if _, hasLoan := firstOf(fields, "loan_amount", "loan_number"); hasLoan {
		mcols := mapColumns(fields, mortgageColumns)
		years := float64(defaultLoanTermYears)
		if v, ok := firstOf(fields, "term_years", "loan_term"); ok {
			if f, ok := toFloat(v); ok && f > 0 {
				years = f
			}
		}
		mcols["loan_term_months"] = int(years * 12)
		out.Mortgage = &MortgageWrite{PropertyID: pw.PropertyID, Columns: mcols}
	}
}

// matchProperty finds an existing property with the same normalized address.
func matchProperty(props []entity.PropertyRef, norm string) (entity.PropertyRef, bool) {
	if norm == "" {
		return entity.PropertyRef{}, false
	}
	for _, p := range props {
		if NormalizeAddress(p.Address) == norm {
			return p, true
		}
	}
	return entity.PropertyRef{}, false
}

func documentUpdate(r *entity.PipelineResult) DocumentUpdate {
	id := r.UploadID
	if id == "" {
		id = r.DocumentID
	}
	u := DocumentUpdate{
		UploadID:     id,
		DocumentID:   r.DocumentID,
		Status:       r.Status,
		DocumentType: r.DocumentType,
		Confidence:   r.ExtractionConfidence,
	}
	if r.Status == constants.DocumentProcessed {
		u.Data = r.ExtractedData
	}
	if r.Error != nil {
		u.Error = string(r.Error.Stage) + ": " + r.Error.Message
	}
	return u
}

func propertyOp(p *PropertyWrite) string {
	if p == nil {
		return "none"
	}
	return string(p.Op)
}
