package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
	"github.com/joseph-ayodele/property-intake/internal/validate"
)

func field(v any, conf float64) entity.ExtractedField {
	return entity.ExtractedField{Value: v, Confidence: conf}
}

func TestValidate_OneMissingRequiredField(t *testing.T) {
	res := &entity.ExtractionResult{Fields: map[string]entity.ExtractedField{
		"property_address": field("12 Main St", 0.95),
		"loan_number":      field("LN-42", 0.9),
		"borrower_name":    field(nil, 0),
		"purchase_price":   field(350000.0, 0.4),
	}}

	got := validate.Validate(res, constants.ClosingStatement, nil, 0.6)

	assert.False(t, got.IsValid)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "borrower_name", got.Errors[0].Field)
	assert.Equal(t, entity.IssueMissingRequiredField, got.Errors[0].Kind)

	require.Len(t, got.Warnings, 2)
	assert.Equal(t, "purchase_price", got.Warnings[0].Field)
	assert.Equal(t, entity.IssueLowConfidence, got.Warnings[0].Kind)
	assert.Equal(t, "borrower_name", got.Warnings[1].Field)
}

func TestValidate_NullFieldStillWarns(t *testing.T) {
	res := &entity.ExtractionResult{Fields: map[string]entity.ExtractedField{
		"parcel_number":       field("12-34", 0.95),
		"tax_amount":          field(4200.0, 0.9),
		"property_tax_county": field(nil, 0),
	}}
	got := validate.Validate(res, constants.TaxBill, nil, 0.6)

	assert.True(t, got.IsValid)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "property_tax_county", got.Warnings[0].Field)
	assert.Equal(t, entity.IssueLowConfidence, got.Warnings[0].Kind)
}

func TestValidate_LowConfidenceDoesNotInvalidate(t *testing.T) {
	res := &entity.ExtractionResult{Fields: map[string]entity.ExtractedField{
		"parcel_number": field("12-34", 0.3),
		"tax_amount":    field(4200.0, 0.2),
	}}
	got := validate.Validate(res, constants.TaxBill, nil, 0.6)
	assert.True(t, got.IsValid)
	assert.Empty(t, got.Errors)
	assert.Len(t, got.Warnings, 2)
}

func TestValidate_BlankStringIsMissing(t *testing.T) {
	res := &entity.ExtractionResult{Fields: map[string]entity.ExtractedField{
		"tenant_name":  field("   ", 0.9),
		"monthly_rent": field(1800.0, 0.9),
	}}
	got := validate.Validate(res, constants.LeaseAgreement, nil, 0.6)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "tenant_name", got.Errors[0].Field)
}

func TestValidate_NilResult(t *testing.T) {
	got := validate.Validate(nil, constants.MortgageStatement, nil, 0.6)
	assert.False(t, got.IsValid)
	assert.Len(t, got.Errors, 2)
	assert.Empty(t, got.Warnings)

	got = validate.Validate(nil, constants.Unknown, nil, 0.6)
	assert.True(t, got.IsValid)
	assert.NotNil(t, got.Errors)
}

func TestValidate_IdempotentAndOrdered(t *testing.T) {
	res := &entity.ExtractionResult{Fields: map[string]entity.ExtractedField{
		"zzz_extra":        field("x", 0.1),
		"aaa_extra":        field("y", 0.1),
		"borrower_name":    field("Jane", 0.5),
		"property_address": field("1 Elm", 0.5),
		"closing_date":     field("2024-01-02", 0.1),
	}}

	first := validate.Validate(res, constants.ClosingStatement, nil, 0.6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, validate.Validate(res, constants.ClosingStatement, nil, 0.6))
	}

	require.Len(t, first.Errors, 1)
	assert.Equal(t, "loan_number", first.Errors[0].Field)

	var names []string
	for _, w := range first.Warnings {
		names = append(names, w.Field)
	}
	require.Len(t, names, 5)
	assert.Equal(t, []string{"aaa_extra", "zzz_extra"}, names[3:])
}
