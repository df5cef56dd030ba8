// Package ingest turns uploaded file bytes into normalized text, finds
// files on disk and watches an inbox directory.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
)

// Defaults used when Options leave a limit at zero.
const (
	DefaultMaxFileSize int64 = 50 << 20
	DefaultMaxPages          = 500
)

// Options configures an Ingestor.
type Options struct {
	MaxFileSize int64
	MaxPages    int
	// Extractors maps a normalized extension to its back-end. Missing
	// entries fall back to PDFText for pdf and PlainText for txt.
	Extractors map[string]TextExtractor
	Logger     *slog.Logger
}

// Ingestor validates, hashes and extracts text from one file at a time.
type Ingestor struct {
	maxFileSize int64
	maxPages    int
	extractors  map[string]TextExtractor
	logger      *slog.Logger
}

func NewIngestor(opts Options) *Ingestor {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ex := map[string]TextExtractor{
		"pdf": PDFText{Logger: opts.Logger},
		"txt": PlainText{},
	}
	for ext, e := range opts.Extractors {
		ex[constants.NormalizeExt(ext)] = e
	}
	return &Ingestor{
		maxFileSize: opts.MaxFileSize,
		maxPages:    opts.MaxPages,
		extractors:  ex,
		logger:      opts.Logger,
	}
}

// MaxFileSize returns the hard size limit in bytes.
func (i *Ingestor) MaxFileSize() int64 { return i.maxFileSize }

// Ingest builds a RawDocument from data. declaredSize is the size reported
// by the uploader; it is checked before the bytes are looked at.
func (i *Ingestor) Ingest(ctx context.Context, filename string, declaredSize int64, data []byte) (*entity.RawDocument, error) {
	if err := i.checkSize(filename, declaredSize); err != nil {
		return nil, err
	}
	if err := i.checkSize(filename, int64(len(data))); err != nil {
		return nil, err
	}

	ext, extractor, err := i.extractorFor(filename, data)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: err}
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	txt, err := extractor.ExtractText(ctx, data)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("extract text: %w", err)}
	}

	if txt.PageCount > i.maxPages {
		i.logger.Warn("ingest.pages.over_limit",
			"filename", filename,
			"pages", txt.PageCount,
			"max_pages", i.maxPages,
		)
	}

	pages := make([]entity.Page, 0, len(txt.Pages))
	var full bytes.Buffer
	for n, p := range txt.Pages {
		norm := Normalize(p)
		pages = append(pages, entity.Page{Number: n + 1, Text: norm})
		if norm == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString("\n\n")
		}
		full.WriteString(norm)
	}
	text := Normalize(full.String())
	if text == "" {
		i.logger.Warn("ingest.text.empty", "filename", filename, "method", txt.Method)
	}

	pageCount := txt.PageCount
	if pageCount == 0 {
		pageCount = len(pages)
	}

	i.logger.Info("ingest.ok",
		"filename", filename,
		"ext", ext,
		"method", txt.Method,
		"bytes", len(data),
		"pages", pageCount,
		"text_len", len(text),
		"hash", hash,
	)
	return &entity.RawDocument{
		Filename:       filepath.Base(filename),
		Bytes:          data,
		ContentHash:    hash,
		ByteSize:       int64(len(data)),
		PageCount:      pageCount,
		NormalizedText: text,
		Pages:          pages,
	}, nil
}

// IngestReader is Ingest for streamed uploads. The declared size is checked
// before reading and at most MaxFileSize+1 bytes are consumed.
func (i *Ingestor) IngestReader(ctx context.Context, filename string, declaredSize int64, r io.Reader) (*entity.RawDocument, error) {
	if err := i.checkSize(filename, declaredSize); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, i.maxFileSize+1))
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("read: %w", err)}
	}
	return i.Ingest(ctx, filename, declaredSize, data)
}

func (i *Ingestor) checkSize(filename string, size int64) error {
	if size > i.maxFileSize {
		i.logger.Warn("ingest.size.exceeded", "filename", filename, "size", size, "max", i.maxFileSize)
		return &IngestionError{
			Filename: filename,
			Err:      fmt.Errorf("%w: %d > %d bytes", ErrSizeExceeded, size, i.maxFileSize),
		}
	}
	return nil
}

func (i *Ingestor) extractorFor(filename string, data []byte) (string, TextExtractor, error) {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if ext == "" && bytes.HasPrefix(data, []byte("%PDF-")) {
		ext = "pdf"
	}
	if !constants.AllowedExt(ext) {
		return ext, nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	e, ok := i.extractors[ext]
	if !ok {
		return ext, nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return ext, e, nil
}
