package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

func TestValidateEnvelope(t *testing.T) {
	s := schema.Default().Lookup(constants.TaxBill)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"fields":{"parcel_number":{"value":"12-34","confidence":0.9,"source_text":"Parcel 12-34"}},"overall_confidence":0.9}`, false},
		{"null value", `{"fields":{"tax_amount":{"value":null,"confidence":0}}}`, false},
		{"extra field allowed", `{"fields":{"something_else":{"value":"x","confidence":0.5}}}`, false},
		{"missing fields", `{"overall_confidence":0.9}`, true},
		{"confidence out of range", `{"fields":{"tax_amount":{"value":1,"confidence":95}}}`, true},
		{"object value", `{"fields":{"tax_amount":{"value":{"amount":1},"confidence":0.9}}}`, true},
		{"not json", `{"fields":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateEnvelope([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
