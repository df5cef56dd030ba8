package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/repository"
	"github.com/joseph-ayodele/property-intake/internal/schema"
)

func schemaCmd() *cobra.Command {
	var (
		format   string
		envelope bool
		overlay  string
	)
	cmd := &cobra.Command{
		Use:   "schema [document-type]",
		Short: "Print field schemas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := schema.Default()
			if overlay != "" {
				r, err := schema.LoadOverlay(reg, overlay)
				if err != nil {
					return err
				}
				reg = r
			}
			types := reg.Types()
			if len(args) == 1 {
				t, ok := constants.ParseDocumentType(args[0])
				if !ok {
					return fmt.Errorf("%w: unknown document type %q", common.ErrInvalidInput, args[0])
				}
				types = []constants.DocumentType{t}
			}

			var doc any
			if envelope {
				m := make(map[string]any, len(types))
				for _, t := range types {
					m[string(t)] = schema.EnvelopeJSONSchema(reg.Lookup(t))
				}
				doc = m
			} else {
				m := make(map[string][]schema.Field, len(types))
				for _, t := range types {
					m[string(t)] = reg.Lookup(t).Fields()
				}
				doc = m
			}
			return write(cmd.OutOrStdout(), format, doc)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml, json)")
	cmd.Flags().BoolVar(&envelope, "envelope", false, "Print the JSON schema of the extraction reply instead")
	cmd.Flags().StringVar(&overlay, "overlay", "", "Schema overlay file; defaults to SCHEMA_OVERLAY")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if overlay == "" {
			overlay = common.LoadConfig().Pipeline.SchemaOverlay
		}
	}
	return cmd
}

func dbHealthCmd(g *globals) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "dbhealth",
		Short: "Ping the database and apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.ValidateDatabase(); err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := repository.Open(ctx, repository.ConfigFrom(g.cfg.Database), g.logger())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.HealthCheck(ctx, timeout); err != nil {
				return err
			}
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok (%s)\n", db.Dialect())
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Ping timeout")
	return cmd
}

func eventsCmd(g *globals) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "events <batch-id>",
		Short: "Print the audit events recorded for a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.cfg.ValidateDatabase(); err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := repository.Open(ctx, repository.ConfigFrom(g.cfg.Database), g.logger())
			if err != nil {
				return err
			}
			defer db.Close()
			events, err := db.EventLog().ForBatch(ctx, args[0])
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), format, events)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (yaml, json)")
	return cmd
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("%w: unknown format %q", common.ErrInvalidInput, format)
}
