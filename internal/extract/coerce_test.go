package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/internal/extract"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		typ  schema.FieldType
		want any
		ok   bool
	}{
		{"nil", nil, schema.TypeNumber, nil, true},
		{"null string", "null", schema.TypeString, nil, true},
		{"n/a", " N/A ", schema.TypeDate, nil, true},
		{"number", 12.5, schema.TypeNumber, 12.5, true},
		{"currency", "$1,234.50", schema.TypeNumber, 1234.5, true},
		{"percent", "6.237%", schema.TypeNumber, 6.237, true},
		{"negative parens", "(250.00)", schema.TypeNumber, -250.0, true},
		{"garbage number", "about twelve", schema.TypeNumber, nil, false},
		{"bool as number", true, schema.TypeNumber, nil, false},
		{"string trims", "  Main St ", schema.TypeString, "Main St", true},
		{"number as string", 30.0, schema.TypeString, "30", true},
		{"us date", "03/15/2024", schema.TypeDate, "2024-03-15", true},
		{"long date", "March 15, 2024", schema.TypeDate, "2024-03-15", true},
		{"iso date", "2024-03-15", schema.TypeDate, "2024-03-15", true},
		{"unparseable date kept", "Spring 2024", schema.TypeDate, "Spring 2024", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extract.Coerce(tt.in, tt.typ)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumber(t *testing.T) {
	f, err := extract.ParseNumber("USD 1,000")
	require.Error(t, err)
	assert.Zero(t, f)

	f, err = extract.ParseNumber("1,000USD")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, f)

	_, err = extract.ParseNumber("NaN")
	require.Error(t, err)
}
