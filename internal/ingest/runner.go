package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/property-intake/constants"
)

// stderrLogLimit caps how much tool stderr lands in one log record.
const stderrLogLimit = 8 << 10

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs text extraction tools with os/exec and logs each run
// under the ingestion stage.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("stage", constants.StageIngestion, "tool", filepath.Base(name))
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		logger.Error("ingest.exec.failed",
			"input", inputArg(args),
			"exit_code", exitCode(err),
			"canceled", ctx.Err() != nil,
			"duration_ms", elapsed,
			"error", err,
			"stderr", truncate(errb.String(), stderrLogLimit),
		)
	} else {
		logger.Debug("ingest.exec.ok",
			"input", inputArg(args),
			"duration_ms", elapsed,
			"stdout_bytes", out.Len(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

// inputArg picks the file the tool was pointed at: the last argument that
// is not "-" (stdout).
func inputArg(args []string) string {
	for i := len(args) - 1; i >= 0; i-- {
		if args[i] != "-" {
			return filepath.Base(args[i])
		}
	}
	return ""
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
