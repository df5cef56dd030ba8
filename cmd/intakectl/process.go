package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/property-intake/internal/app"
	"github.com/joseph-ayodele/property-intake/internal/export"
	"github.com/joseph-ayodele/property-intake/internal/ingest"
	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

func processCmd(g *globals) *cobra.Command {
	var (
		userID  string
		batchID string
		outPath string
		useDB   bool
	)
	cmd := &cobra.Command{
		Use:   "process <file|dir>...",
		Short: "Run local files through the pipeline as one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.Validate(); err != nil {
				return err
			}
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files found in %v", args)
			}
			if batchID == "" {
				batchID = uuid.NewString()
			}

			ctx := cmd.Context()
			a, err := app.Build(ctx, g.cfg, g.logger(), app.Options{UseDatabase: useDB})
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := localBatch(files, batchID, userID, g.cfg.Pipeline.MaxFileSize)
			if err != nil {
				return err
			}
			if a.DB != nil {
				if err := register(ctx, a, b); err != nil {
					return err
				}
			}
			return runBatch(ctx, a, b, outPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "local", "Owner user id")
	cmd.Flags().StringVar(&batchID, "batch", "", "Batch id (generated when empty)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write an XLSX report to this path")
	cmd.Flags().BoolVar(&useDB, "db", false, "Persist results to DB_URL")
	return cmd
}

func batchCmd(g *globals) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "batch <batch-id>",
		Short: "Process a batch registered in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.Build(ctx, g.cfg, g.logger(), app.Options{UseDatabase: true})
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.DB.BatchSubmissions(ctx, args[0])
			if err != nil {
				return err
			}
			return runBatch(ctx, a, b, outPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "Write an XLSX report to this path")
	return cmd
}

// collectFiles expands directories into the ingestible files beneath them.
// Explicit file arguments are kept as given.
func collectFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		files, err := ingest.ScanDirectory(arg, true)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func localBatch(files []string, batchID, userID string, maxSize int64) (pipeline.Batch, error) {
	b := pipeline.Batch{ID: batchID, UserID: userID}
	for _, p := range files {
		info, err := os.Stat(p)
		if err != nil {
			return b, err
		}
		sub := pipeline.Submission{
			DocumentID:       pipeline.NewDocumentID(time.Now()),
			BatchID:          batchID,
			UserID:           userID,
			OriginalFilename: filepath.Base(p),
			Path:             p,
			DeclaredSize:     info.Size(),
		}
		sub.UploadID = sub.DocumentID
		if maxSize <= 0 || info.Size() <= maxSize {
			if sub.Data, err = os.ReadFile(p); err != nil {
				return b, err
			}
		}
		b.Submissions = append(b.Submissions, sub)
	}
	return b, nil
}

func register(ctx context.Context, a *app.App, b pipeline.Batch) error {
	if err := a.DB.CreateBatch(ctx, b.ID, b.UserID); err != nil {
		return err
	}
	for _, sub := range b.Submissions {
		if err := a.DB.RegisterUpload(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

func runBatch(ctx context.Context, a *app.App, b pipeline.Batch, outPath string, w io.Writer) error {
	out, err := a.Orchestrator.ProcessBatch(ctx, b)
	if out == nil {
		return err
	}
	if outPath != "" {
		data, xerr := export.NewService(a.Logger).BatchXLSX(ctx, out)
		if xerr != nil {
			return xerr
		}
		if xerr := os.WriteFile(outPath, data, 0o644); xerr != nil {
			return xerr
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(summarize(out)); encErr != nil {
		return encErr
	}
	return err
}

type documentSummary struct {
	DocumentID   string  `json:"document_id"`
	Filename     string  `json:"filename"`
	Status       string  `json:"status"`
	DocumentType string  `json:"document_type,omitempty"`
	Confidence   float64 `json:"extraction_confidence"`
	Fields       int     `json:"fields"`
	TokensUsed   int64   `json:"tokens_used"`
	CacheHit     bool    `json:"cache_hit,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type batchSummary struct {
	BatchID    string            `json:"batch_id"`
	Status     string            `json:"status"`
	Processed  int               `json:"processed"`
	Failed     int               `json:"failed"`
	Documents  []documentSummary `json:"documents"`
	PropertyID string            `json:"property_id,omitempty"`
	Property   string            `json:"property_write,omitempty"`
	Merged     int               `json:"merged_documents"`
}

func summarize(out *pipeline.BatchOutcome) batchSummary {
	s := batchSummary{
		BatchID:   out.BatchID,
		Status:    string(out.Status),
		Processed: out.Processed,
		Failed:    out.Failed,
		Documents: make([]documentSummary, 0, len(out.Results)),
	}
	for _, r := range out.Results {
		d := documentSummary{
			DocumentID:   r.DocumentID,
			Filename:     r.Source.Filename,
			Status:       string(r.Status),
			DocumentType: string(r.DocumentType),
			Confidence:   r.ExtractionConfidence,
			Fields:       len(r.ExtractedData),
			TokensUsed:   r.Processing.TokensUsed,
			CacheHit:     r.Processing.CacheHit,
		}
		if r.Error != nil {
			d.Error = fmt.Sprintf("%s: %s", r.Error.Stage, r.Error.Message)
		}
		s.Documents = append(s.Documents, d)
	}
	if c := out.Consolidation; c != nil {
		s.Merged = c.Merged
		if c.Property != nil {
			s.PropertyID = c.Property.PropertyID
			s.Property = string(c.Property.Op)
		}
	}
	return s
}
