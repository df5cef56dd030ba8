package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/property-intake/internal/entity"
	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

const (
	SheetDocuments    = "Documents"
	SheetFields       = "Fields"
	SheetConsolidated = "Consolidated"
)

// Service renders batch outcomes as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BatchXLSX returns a workbook with one row per document, one row per
// extracted field and the consolidated record.
func (s *Service) BatchXLSX(_ context.Context, out *pipeline.BatchOutcome) ([]byte, error) {
	if out == nil {
		return nil, fmt.Errorf("export: nil batch outcome")
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetDocuments); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetFields, SheetConsolidated} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	writeDocuments(f, out.Results)
	fields := writeFields(f, out.Results)
	writeConsolidated(f, out)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"batch_id", out.BatchID,
		"documents", len(out.Results),
		"field_rows", fields,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func writeDocuments(f *excelize.File, results []*entity.PipelineResult) {
	writeRow(f, SheetDocuments, 1,
		"Document ID", "File", "Status", "Document Type", "Classification Confidence",
		"Extraction Confidence", "Valid", "Errors", "Warnings", "Tokens", "Duration (ms)", "Failure")
	for i, r := range results {
		valid, errs, warns := "", 0, 0
		if r.Validation != nil {
			valid = fmt.Sprint(r.Validation.IsValid)
			errs, warns = len(r.Validation.Errors), len(r.Validation.Warnings)
		}
		failure := ""
		if r.Error != nil {
			failure = string(r.Error.Stage) + ": " + truncate(r.Error.Message, 200)
		}
		writeRow(f, SheetDocuments, i+2,
			r.DocumentID, r.Source.Filename, string(r.Status), string(r.DocumentType), r.ClassificationConfidence,
			r.ExtractionConfidence, valid, errs, warns, r.Processing.TokensUsed, r.Processing.DurationMS, failure)
	}
	_ = f.SetColWidth(SheetDocuments, "A", "B", 28)
	_ = f.SetColWidth(SheetDocuments, "C", "D", 20)
	_ = f.SetColWidth(SheetDocuments, "L", "L", 60)
}

// writeFields lists non-empty fields sorted by name inside each document.
func writeFields(f *excelize.File, results []*entity.PipelineResult) int {
	writeRow(f, SheetFields, 1, "Document ID", "Field", "Value", "Confidence", "Source Text")
	row := 2
	for _, r := range results {
		names := make([]string, 0, len(r.ExtractedData))
		for name, fld := range r.ExtractedData {
			if !fld.IsEmpty() {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			fld := r.ExtractedData[name]
			writeRow(f, SheetFields, row, r.DocumentID, name, fld.Value, fld.Confidence, truncate(fld.SourceText, 140))
			row++
		}
	}
	_ = f.SetColWidth(SheetFields, "A", "B", 32)
	_ = f.SetColWidth(SheetFields, "C", "C", 28)
	_ = f.SetColWidth(SheetFields, "E", "E", 48)
	return row - 2
}

func writeConsolidated(f *excelize.File, out *pipeline.BatchOutcome) {
	writeRow(f, SheetConsolidated, 1, "Field", "Value", "Source Document")
	if out.Consolidation == nil || out.Consolidation.Record == nil {
		return
	}
	rec := out.Consolidation.Record
	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	row := 2
	for _, name := range names {
		writeRow(f, SheetConsolidated, row, name, rec.Fields[name], rec.Sources[name])
		row++
	}
	if p := out.Consolidation.Property; p != nil {
		writeRow(f, SheetConsolidated, row, "property_write", string(p.Op), p.PropertyID)
	}
	_ = f.SetColWidth(SheetConsolidated, "A", "A", 36)
	_ = f.SetColWidth(SheetConsolidated, "B", "C", 32)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
