// Command intakectl runs the document pipeline from the shell.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/property-intake/internal/app"
	"github.com/joseph-ayodele/property-intake/internal/common"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	cfg *common.Config
}

func rootCmd() *cobra.Command {
	g := &globals{}
	var logLevel string

	cmd := &cobra.Command{
		Use:           "intakectl",
		Short:         "Classify, extract and consolidate real-estate documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.cfg = common.LoadConfig()
			if logLevel != "" {
				g.cfg.Log.Level = logLevel
			}
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")

	cmd.AddCommand(
		processCmd(g),
		classifyCmd(g),
		batchCmd(g),
		schemaCmd(),
		dbHealthCmd(g),
		eventsCmd(g),
	)
	return cmd
}

func (g *globals) logger() *slog.Logger {
	return app.NewLogger(g.cfg.Log, os.Stderr)
}
