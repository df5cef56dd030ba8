package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFText reads the embedded text layer of a PDF in-process.
type PDFText struct {
	Logger *slog.Logger
}

func (p PDFText) ExtractText(ctx context.Context, data []byte) (out Text, err error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Text{}, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return Text{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("ingest.pdf.page_failed", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}

	count, err := PageCount(data)
	if err != nil {
		logger.Debug("ingest.pdf.page_count_fallback", "error", err, "pages", n)
		count = n
	}
	return Text{Pages: pages, PageCount: count, Method: "pdf-text"}, nil
}

// PageCount reads the page tree with relaxed validation.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// Pdftotext shells out to poppler's pdftotext, which copes with more
// producers than the in-process reader.
type Pdftotext struct {
	Bin    string
	Runner Runner
}

func (p Pdftotext) ExtractText(ctx context.Context, data []byte) (Text, error) {
	bin := p.Bin
	if bin == "" {
		bin = "pdftotext"
	}
	runner := p.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	f, err := os.CreateTemp("", "intake-*.pdf")
	if err != nil {
		return Text{}, fmt.Errorf("temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return Text{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Text{}, fmt.Errorf("close temp file: %w", err)
	}

	stdout, stderr, err := runner.Run(ctx, bin, "-layout", "-enc", "UTF-8", "-eol", "unix", f.Name(), "-")
	if err != nil {
		return Text{}, fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	// a form feed ends every page
	pages := strings.Split(strings.TrimSuffix(string(stdout), "\f"), "\f")
	return Text{Pages: pages, PageCount: len(pages), Method: "pdftotext"}, nil
}
