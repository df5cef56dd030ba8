package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

func TestDefault_CoversEveryDocumentType(t *testing.T) {
	reg := schema.Default()
	for _, dt := range constants.AllDocumentTypes() {
		s := reg.Lookup(dt)
		require.NotNil(t, s, dt)
		assert.Equal(t, dt, s.DocumentType())
	}
	assert.Zero(t, reg.Lookup(constants.Unknown).Len())
	assert.Same(t, reg, schema.Default(), "registry is built once")
}

func TestDefault_ClosingStatementIsLarge(t *testing.T) {
	s := schema.Default().Lookup(constants.ClosingStatement)
	assert.GreaterOrEqual(t, s.Len(), 90)
	assert.Equal(t, []string{"property_address", "loan_number", "borrower_name"}, s.Required())

	f, ok := s.Field("interest_rate")
	require.True(t, ok)
	assert.Equal(t, schema.TypeNumber, f.Type)

	f, ok = s.Field("first_payment_date")
	require.True(t, ok)
	assert.Equal(t, schema.TypeDate, f.Type)
}

func TestDefault_RequiredFields(t *testing.T) {
	tests := []struct {
		docType constants.DocumentType
		want    []string
	}{
		{constants.FirstPaymentLetter, []string{"loan_number", "first_payment_date"}},
		{constants.EscrowDisclosure, []string{"loan_number", "monthly_escrow"}},
		{constants.HomeOwnerInsurance, []string{"policy_number", "effective_date"}},
		{constants.TaxBill, []string{"parcel_number", "tax_amount"}},
		{constants.LeaseAgreement, []string{"tenant_name", "monthly_rent"}},
		{constants.MortgageStatement, []string{"loan_number", "principal_balance"}},
		{constants.ExhibitA, nil},
		{constants.Unknown, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			assert.Equal(t, tt.want, schema.Default().Lookup(tt.docType).Required())
		})
	}
}

func TestLookup_UnrecognizedTypeFallsBackToUnknown(t *testing.T) {
	s := schema.Default().Lookup(constants.DocumentType("grocery_receipt"))
	assert.Equal(t, constants.Unknown, s.DocumentType())
}

func TestFields_ReturnsCopy(t *testing.T) {
	s := schema.Default().Lookup(constants.TaxBill)
	fields := s.Fields()
	fields[0].Name = "mutated"
	_, ok := s.Field("parcel_number")
	assert.True(t, ok)
	assert.Equal(t, 0, s.Position("parcel_number"))
}

func TestNewRegistry_RejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs map[constants.DocumentType][]schema.Field
	}{
		{"duplicate field", map[constants.DocumentType][]schema.Field{
			constants.TaxBill: {{Name: "a", Type: schema.TypeString}, {Name: "a", Type: schema.TypeNumber}},
		}},
		{"bad type", map[constants.DocumentType][]schema.Field{
			constants.TaxBill: {{Name: "a", Type: "money"}},
		}},
		{"unknown document type", map[constants.DocumentType][]schema.Field{
			"receipt": {{Name: "a", Type: schema.TypeString}},
		}},
		{"fields on unknown", map[constants.DocumentType][]schema.Field{
			constants.Unknown: {{Name: "a", Type: schema.TypeString}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.NewRegistry(tt.defs)
			assert.Error(t, err)
		})
	}
}

func TestWithOverlay(t *testing.T) {
	base := schema.Default()
	o, err := schema.ParseOverlay([]byte(`
types:
  tax_bill:
    fields:
      - name: school_district
        type: string
    required: [account_number]
`))
	require.NoError(t, err)

	reg, err := base.WithOverlay(o)
	require.NoError(t, err)

	s := reg.Lookup(constants.TaxBill)
	_, ok := s.Field("school_district")
	assert.True(t, ok)
	assert.Contains(t, s.Required(), "account_number")

	// base untouched
	_, ok = base.Lookup(constants.TaxBill).Field("school_district")
	assert.False(t, ok)
	assert.NotContains(t, base.Lookup(constants.TaxBill).Required(), "account_number")
}

func TestWithOverlay_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"collision", "types:\n  tax_bill:\n    fields:\n      - name: parcel_number\n        type: string\n"},
		{"unknown type", "types:\n  receipt:\n    fields:\n      - name: x\n        type: string\n"},
		{"unknown required", "types:\n  lease_agreement:\n    required: [nope]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := schema.ParseOverlay([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = schema.Default().WithOverlay(o)
			assert.Error(t, err)
		})
	}
}

func TestLoadOverlay_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  exhibit_a:\n    required: [legal_description]\n"), 0o600))

	reg, err := schema.LoadOverlay(schema.Default(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"legal_description"}, reg.Lookup(constants.ExhibitA).Required())

	_, err = schema.LoadOverlay(schema.Default(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
