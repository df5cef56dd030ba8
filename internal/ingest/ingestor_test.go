package ingest_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/property-intake/internal/ingest"
)

type stubExtractor struct {
	text  ingest.Text
	err   error
	calls int
}

func (s *stubExtractor) ExtractText(context.Context, []byte) (ingest.Text, error) {
	s.calls++
	return s.text, s.err
}

func TestIngest_SizeExceededBeforeExtraction(t *testing.T) {
	stub := &stubExtractor{}
	ing := ingest.NewIngestor(ingest.Options{MaxFileSize: 10, Extractors: map[string]ingest.TextExtractor{"pdf": stub}})

	_, err := ing.Ingest(context.Background(), "big.pdf", 11, []byte("small"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingest.ErrSizeExceeded))
	var ie *ingest.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "big.pdf", ie.Filename)
	assert.Zero(t, stub.calls)

	_, err = ing.Ingest(context.Background(), "big.pdf", 0, bytes.Repeat([]byte("x"), 11))
	assert.True(t, errors.Is(err, ingest.ErrSizeExceeded))
	assert.Zero(t, stub.calls)
}

func TestIngestReader_DeclaredSizeCheckedFirst(t *testing.T) {
	ing := ingest.NewIngestor(ingest.Options{MaxFileSize: 10})
	r := &countingReader{r: strings.NewReader("hello")}

	_, err := ing.IngestReader(context.Background(), "a.txt", 1<<20, r)
	require.ErrorIs(t, err, ingest.ErrSizeExceeded)
	assert.Zero(t, r.n)

	_, err = ing.IngestReader(context.Background(), "a.txt", 0, strings.NewReader(strings.Repeat("y", 50)))
	require.ErrorIs(t, err, ingest.ErrSizeExceeded)
}

type countingReader struct {
	r *strings.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestIngest_PlainText(t *testing.T) {
	data := []byte("PROPERTY   TAX\r\nBILL\t2024\r\n\r\n\r\n\r\nParcel 12-34  \fPage two")
	ing := ingest.NewIngestor(ingest.Options{})

	doc, err := ing.Ingest(context.Background(), "dir/tax.txt", int64(len(data)), data)
	require.NoError(t, err)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.ContentHash)
	assert.Equal(t, "tax.txt", doc.Filename)
	assert.Equal(t, int64(len(data)), doc.ByteSize)
	assert.Equal(t, 2, doc.PageCount)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Equal(t, "Page two", doc.Pages[1].Text)
	assert.Equal(t, "PROPERTY TAX\nBILL 2024\n\nParcel 12-34\n\nPage two", doc.NormalizedText)
}

func TestIngest_PageLimitIsSoft(t *testing.T) {
	pages := make([]string, 8)
	for i := range pages {
		pages[i] = "page"
	}
	stub := &stubExtractor{text: ingest.Text{Pages: pages, PageCount: 8}}
	ing := ingest.NewIngestor(ingest.Options{MaxPages: 3, Extractors: map[string]ingest.TextExtractor{".PDF": stub}})

	doc, err := ing.Ingest(context.Background(), "long.pdf", 4, []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 8, doc.PageCount)
	assert.Equal(t, 1, stub.calls)
}

func TestIngest_UnsupportedAndExtractorErrors(t *testing.T) {
	ing := ingest.NewIngestor(ingest.Options{
		Extractors: map[string]ingest.TextExtractor{"pdf": &stubExtractor{err: errors.New("corrupt xref")}},
	})

	_, err := ing.Ingest(context.Background(), "photo.heic", 3, []byte("abc"))
	require.ErrorIs(t, err, ingest.ErrUnsupportedType)

	_, err = ing.Ingest(context.Background(), "scan.pdf", 3, []byte("abc"))
	require.Error(t, err)
	var ie *ingest.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "corrupt xref")

	// no extension, sniffed as pdf
	_, err = ing.Ingest(context.Background(), "upload", 8, []byte("%PDF-1.7"))
	assert.Contains(t, err.Error(), "corrupt xref")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  a  ", "a"},
		{"a\r\nb\rc", "a\nb\nc"},
		{"a\t\t b", "a b"},
		{"a\n\n\n\n\nb", "a\n\nb"},
		{"a   \n  b", "a\nb"},
		{"a\n \n \n \nb", "a\n\nb"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ingest.Normalize(tt.in), "%q", tt.in)
	}
}

type fakeRunner struct {
	stdout []byte
	err    error
	args   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.args = append([]string{name}, args...)
	return f.stdout, []byte("stderr"), f.err
}

func TestPdftotext(t *testing.T) {
	r := &fakeRunner{stdout: []byte("page one\fpage two\f")}
	got, err := ingest.Pdftotext{Runner: r}.ExtractText(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, got.Pages)
	assert.Equal(t, 2, got.PageCount)
	assert.Equal(t, "pdftotext", r.args[0])
	assert.Equal(t, "-", r.args[len(r.args)-1])

	r.err = errors.New("exit status 1")
	_, err = ingest.Pdftotext{Bin: "/usr/bin/pdftotext", Runner: r}.ExtractText(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stderr")
}

func TestPDFText_RejectsGarbage(t *testing.T) {
	_, err := ingest.PDFText{}.ExtractText(context.Background(), []byte("definitely not a pdf"))
	require.Error(t, err)
}
