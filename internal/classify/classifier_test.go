package classify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/classify"
	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/llm/testutil"
)

func newClassifier(t *testing.T, mock *testutil.MockBackend) *classify.Classifier {
	t.Helper()
	c, err := classify.NewClassifier(mock, "gpt-4o-mini", 0.7, nil)
	require.NoError(t, err)
	return c
}

func TestClassify_WellFormed(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{
		Content: `{"document_type":"tax_bill","confidence":0.93,"reasoning":"County tax statement"}`,
	})
	c := newClassifier(t, mock)

	got := c.Classify(context.Background(), "2024 PROPERTY TAX BILL")
	assert.Equal(t, constants.TaxBill, got.DocumentType)
	assert.InDelta(t, 0.93, got.Confidence, 1e-9)
	assert.Equal(t, "County tax statement", got.Reasoning)
	assert.False(t, got.Degraded)

	req := mock.LastRequest()
	assert.Equal(t, "classify", req.Operation)
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
	assert.Equal(t, 500, req.MaxTokens)
	assert.True(t, req.JSONMode)
}

func TestClassify_LowConfidenceStillReturned(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{
		Content: `{"document_type":"lease_agreement","confidence":0.4,"reasoning":"maybe"}`,
	})
	got := newClassifier(t, mock).Classify(context.Background(), "text")
	assert.Equal(t, constants.LeaseAgreement, got.DocumentType)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
	assert.False(t, got.Degraded)
}

func TestClassify_AliasLabel(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{
		Content: "```json\n{\"document_type\":\"closing_alta\",\"confidence\":0.9}\n```",
	})
	got := newClassifier(t, mock).Classify(context.Background(), "ALTA SETTLEMENT STATEMENT")
	assert.Equal(t, constants.ClosingStatement, got.DocumentType)
}

func TestClassify_Degrades(t *testing.T) {
	tests := []struct {
		name  string
		reply testutil.Reply
	}{
		{"backend error", testutil.Reply{Err: llm.NewTransientError(errors.New("connection reset"))}},
		{"not json", testutil.Reply{Content: "I think this is a tax bill"}},
		{"out of set", testutil.Reply{Content: `{"document_type":"grocery_receipt","confidence":0.99}`}},
		{"confidence not a number", testutil.Reply{Content: `{"document_type":"tax_bill","confidence":"high"}`}},
		{"missing type", testutil.Reply{Content: `{"confidence":0.8}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newClassifier(t, testutil.NewMockBackend(tt.reply)).Classify(context.Background(), "text")
			assert.Equal(t, constants.Unknown, got.DocumentType)
			assert.Zero(t, got.Confidence)
			assert.True(t, got.Degraded)
			assert.True(t, strings.HasPrefix(got.Reasoning, "Classification failed: "), got.Reasoning)
		})
	}
}

func TestClassify_NormalizesConfidence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"percentage", "95", 0.95},
		{"fraction", "0.8", 0.8},
		{"above hundred", "250", 1},
		{"negative", "-0.2", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockBackend(testutil.Reply{
				Content: `{"document_type":"tax_bill","confidence":` + tt.raw + `}`,
			})
			got := newClassifier(t, mock).Classify(context.Background(), "text")
			assert.Equal(t, constants.TaxBill, got.DocumentType)
			assert.InDelta(t, tt.want, got.Confidence, 1e-9)
			assert.False(t, got.Degraded)
		})
	}
}

func TestClassify_SendsBoundedPrefix(t *testing.T) {
	mock := testutil.NewMockBackend(testutil.Reply{Content: `{"document_type":"unknown","confidence":0.1}`})
	text := strings.Repeat("é", classify.PrefixRunes) + "TAIL-MARKER"

	newClassifier(t, mock).Classify(context.Background(), text)

	user := mock.LastRequest().Messages[1].Content
	assert.NotContains(t, user, "TAIL-MARKER")
	for _, dt := range constants.AllDocumentTypes() {
		assert.Contains(t, user, string(dt))
	}
}

func TestClassifyBatch_PreservesOrder(t *testing.T) {
	mock := testutil.NewMockBackend(
		testutil.Reply{Content: `{"document_type":"tax_bill","confidence":0.9}`},
		testutil.Reply{Err: errors.New("boom")},
		testutil.Reply{Content: `{"document_type":"exhibit_a","confidence":0.8}`},
	)
	got := newClassifier(t, mock).ClassifyBatch(context.Background(), []string{"a", "b", "c"})
	require.Len(t, got, 3)
	assert.Equal(t, constants.TaxBill, got[0].DocumentType)
	assert.Equal(t, constants.Unknown, got[1].DocumentType)
	assert.Equal(t, constants.ExhibitA, got[2].DocumentType)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "ab", classify.Prefix("abc", 2))
	assert.Equal(t, "abc", classify.Prefix("abc", 10))
	assert.Equal(t, "", classify.Prefix("abc", 0))
	assert.Equal(t, "日本", classify.Prefix("日本語", 2))
}

func TestNewClassifier_RequiresBackend(t *testing.T) {
	_, err := classify.NewClassifier(nil, "m", 0.7, nil)
	require.Error(t, err)
}
