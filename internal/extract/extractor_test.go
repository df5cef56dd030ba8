package extract_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/extract"
	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/llm/testutil"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

func newExtractor(t *testing.T, mock *testutil.MockBackend) *extract.Extractor {
	t.Helper()
	e, err := extract.NewExtractor(mock, "gpt-4o", nil, nil)
	require.NoError(t, err)
	return e
}

func envelope(t *testing.T, fields map[string]any, overall any) string {
	t.Helper()
	doc := map[string]any{"fields": fields}
	if overall != nil {
		doc["overall_confidence"] = overall
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(b)
}

func TestExtract_FillsMissingSchemaFields(t *testing.T) {
	s := schema.Default().Lookup(constants.ClosingStatement)
	require.GreaterOrEqual(t, s.Len(), 90)

	fields := map[string]any{}
	for i, f := range s.Fields() {
		if i >= 40 {
			break
		}
		var v any = "value"
		if f.Type == schema.TypeNumber {
			v = 100.0
		}
		if f.Type == schema.TypeDate {
			v = "2024-03-15"
		}
		fields[f.Name] = map[string]any{"value": v, "confidence": 0.9, "source_text": "src"}
	}
	mock := testutil.NewMockBackend(testutil.Reply{Content: envelope(t, fields, 0.85), Tokens: 3000})

	res, err := newExtractor(t, mock).Extract(context.Background(), "closing text", constants.ClosingStatement)
	require.NoError(t, err)

	require.Len(t, res.Fields, s.Len())
	nulls := 0
	for _, f := range s.Fields() {
		got, ok := res.Fields[f.Name]
		require.True(t, ok, f.Name)
		if got.Value == nil {
			nulls++
			assert.Zero(t, got.Confidence)
		}
	}
	assert.Equal(t, s.Len()-40, nulls)
	assert.InDelta(t, 0.85, res.OverallConfidence, 1e-9)
	assert.Equal(t, 3000, res.TokensUsed)
	assert.False(t, res.Truncated)

	req := mock.LastRequest()
	assert.Equal(t, extract.TokenBudget(s.Len()), req.MaxTokens)
	assert.Contains(t, req.Messages[1].Content, "total_monthly_payment_piti")
	assert.Contains(t, req.Messages[1].Content, "divide it by 12")
}

func TestExtract_UnknownSkipsBackend(t *testing.T) {
	mock := testutil.NewMockBackend()
	res, err := newExtractor(t, mock).Extract(context.Background(), "text", constants.Unknown)
	require.NoError(t, err)
	assert.Empty(t, res.Fields)
	assert.Zero(t, mock.Calls())
}

func TestExtract_DefaultsAndCoercion(t *testing.T) {
	content := envelope(t, map[string]any{
		"tenant_name":      map[string]any{"value": "  Jane Roe ", "confidence": 0.95, "source_text": "Tenant: Jane Roe"},
		"monthly_rent":     map[string]any{"value": "$2,350.00", "confidence": 0.9},
		"lease_start_date": map[string]any{"value": "03/01/2024", "confidence": 0.8},
		"not_in_schema":    map[string]any{"value": "x", "confidence": 1},
		"security_deposit": 1500,
	}, nil)
	mock := testutil.NewMockBackend(testutil.Reply{Content: content})

	res, err := newExtractor(t, mock).Extract(context.Background(), "lease", constants.LeaseAgreement)
	require.NoError(t, err)

	assert.InDelta(t, extract.DefaultOverallConfidence, res.OverallConfidence, 1e-9)
	assert.Equal(t, "Jane Roe", res.Fields["tenant_name"].Value)
	assert.Equal(t, "Tenant: Jane Roe", res.Fields["tenant_name"].SourceText)
	assert.Equal(t, 2350.0, res.Fields["monthly_rent"].Value)
	assert.NotContains(t, res.Fields, "not_in_schema")
	assert.Equal(t, "2024-03-01", res.Fields["lease_start_date"].Value)
	assert.Equal(t, 1500.0, res.Fields["security_deposit"].Value)
	assert.Zero(t, res.Fields["security_deposit"].Confidence)
}

func TestExtract_LenientSanitize(t *testing.T) {
	content := `{"fields": {
		"parcel_number": {"value": "12-34-567", "confidence": "95%"},
		"tax_amount": {"value": {"amount": 4200}, "confidence": 1.7}
	}, "overall_confidence": "0.7"}`
	mock := testutil.NewMockBackend(testutil.Reply{Content: content})

	res, err := newExtractor(t, mock).Extract(context.Background(), "tax bill", constants.TaxBill)
	require.NoError(t, err)

	assert.InDelta(t, 0.95, res.Fields["parcel_number"].Confidence, 1e-9)
	assert.InDelta(t, 0.7, res.OverallConfidence, 1e-9)
	// an object where a number is expected cannot be coerced
	assert.Nil(t, res.Fields["tax_amount"].Value)
	assert.Zero(t, res.Fields["tax_amount"].Confidence)
}

func TestExtract_ParseFailures(t *testing.T) {
	tests := []struct {
		name      string
		reply     testutil.Reply
		truncated bool
	}{
		{"not json", testutil.Reply{Content: "sorry, I cannot help"}, false},
		{"no fields", testutil.Reply{Content: `{"overall_confidence": 0.9}`}, false},
		{"truncated", testutil.Reply{Content: `{"fields": {"loan_number": {"value": "12`, FinishReason: llm.FinishReasonLength}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newExtractor(t, testutil.NewMockBackend(tt.reply)).
				Extract(context.Background(), "text", constants.MortgageStatement)
			require.Error(t, err)

			var xe *extract.ExtractionError
			require.ErrorAs(t, err, &xe)
			assert.Equal(t, extract.KindParse, xe.Kind)
			assert.Equal(t, tt.truncated, errors.Is(err, extract.ErrTruncated))
		})
	}
}

func TestExtract_BackendFailure(t *testing.T) {
	cause := llm.NewTransientError(errors.New("503"))
	mock := testutil.NewMockBackend(testutil.Reply{Err: cause})

	_, err := newExtractor(t, mock).Extract(context.Background(), "text", constants.TaxBill)
	var xe *extract.ExtractionError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, extract.KindBackend, xe.Kind)
	assert.True(t, llm.IsTransient(err))
	assert.False(t, errors.Is(err, extract.ErrTruncated))
}

func TestExtract_TruncatedButComplete(t *testing.T) {
	content := envelope(t, map[string]any{
		"loan_number":       map[string]any{"value": "LN-1", "confidence": 0.9},
		"principal_balance": map[string]any{"value": 250000, "confidence": 0.9},
	}, 0.9)
	mock := testutil.NewMockBackend(testutil.Reply{Content: content, FinishReason: llm.FinishReasonLength})

	res, err := newExtractor(t, mock).Extract(context.Background(), "text", constants.MortgageStatement)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 250000.0, res.Fields["principal_balance"].Value)
}

func TestTokenBudget(t *testing.T) {
	assert.Equal(t, 1024+160*5, extract.TokenBudget(5))
	assert.Equal(t, 16000, extract.TokenBudget(95))
	assert.Greater(t, extract.TokenBudget(40), extract.TokenBudget(10))
}
