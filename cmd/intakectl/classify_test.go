package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/classify"
	"github.com/joseph-ayodele/property-intake/internal/ingest"
	"github.com/joseph-ayodele/property-intake/internal/llm/testutil"
)

func TestClassifyFiles_SkipsIngestFailuresAndKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"tax.txt":   "2024 PROPERTY TAX BILL",
		"big.txt":   "this file is far over the configured limit",
		"lease.txt": "RESIDENTIAL LEASE",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	mock := testutil.NewMockBackend(
		testutil.Reply{Content: `{"document_type":"tax_bill","confidence":0.92,"reasoning":"county"}`},
		testutil.Reply{Content: `{"document_type":"lease_agreement","confidence":88}`},
	)
	cl, err := classify.NewClassifier(mock, "gpt-4o-mini", 0.7, nil)
	require.NoError(t, err)
	ing := ingest.NewIngestor(ingest.Options{MaxFileSize: 30})

	got := classifyFiles(context.Background(), ing, cl, []string{
		filepath.Join(dir, "tax.txt"),
		filepath.Join(dir, "big.txt"),
		filepath.Join(dir, "lease.txt"),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "tax.txt", got[0].Filename)
	assert.Equal(t, string(constants.TaxBill), got[0].DocumentType)
	assert.Equal(t, "county", got[0].Reasoning)

	assert.Equal(t, "big.txt", got[1].Filename)
	assert.Contains(t, got[1].Error, ingest.ErrSizeExceeded.Error())
	assert.Empty(t, got[1].DocumentType)

	assert.Equal(t, string(constants.LeaseAgreement), got[2].DocumentType)
	assert.InDelta(t, 0.88, got[2].Confidence, 1e-9)
	assert.Equal(t, 2, mock.Calls())
	assert.Contains(t, mock.Requests()[0].Messages[1].Content, "PROPERTY TAX BILL")
}
