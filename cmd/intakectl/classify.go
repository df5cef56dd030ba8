package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/property-intake/internal/app"
	"github.com/joseph-ayodele/property-intake/internal/classify"
	"github.com/joseph-ayodele/property-intake/internal/ingest"
)

func classifyCmd(g *globals) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "classify <file|dir>...",
		Short: "Classify local files without extracting or persisting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.Validate(); err != nil {
				return err
			}
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.Build(ctx, g.cfg, g.logger(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			return write(cmd.OutOrStdout(), format, classifyFiles(ctx, a.Ingestor, a.Classifier, files))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (yaml, json)")
	return cmd
}

type classifySummary struct {
	Filename     string  `json:"filename" yaml:"filename"`
	DocumentType string  `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
	Reasoning    string  `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Degraded     bool    `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Error        string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// classifyFiles streams each file through the ingestor and classifies the
// ones that ingest cleanly in a single ordered pass. Ingestion failures are
// reported in place and never reach the backend.
func classifyFiles(ctx context.Context, ing *ingest.Ingestor, cl *classify.Classifier, files []string) []classifySummary {
	out := make([]classifySummary, len(files))
	var (
		texts []string
		slots []int
	)
	for i, p := range files {
		out[i].Filename = filepath.Base(p)
		text, err := ingestFile(ctx, ing, p)
		if err != nil {
			out[i].Error = err.Error()
			continue
		}
		texts = append(texts, text)
		slots = append(slots, i)
	}
	for j, c := range cl.ClassifyBatch(ctx, texts) {
		s := &out[slots[j]]
		s.DocumentType = string(c.DocumentType)
		s.Confidence = c.Confidence
		s.Reasoning = c.Reasoning
		s.Degraded = c.Degraded
	}
	return out
}

func ingestFile(ctx context.Context, ing *ingest.Ingestor, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	doc, err := ing.IngestReader(ctx, path, info.Size(), f)
	if err != nil {
		return "", err
	}
	return doc.NormalizedText, nil
}
