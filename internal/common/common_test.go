package common_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/property-intake/internal/common"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg := common.LoadConfig()

	assert.Equal(t, int64(50*1024*1024), cfg.Pipeline.MaxFileSize)
	assert.Equal(t, 500, cfg.Pipeline.MaxPages)
	assert.Equal(t, 0.7, cfg.Pipeline.MinClassificationConfidence)
	assert.Equal(t, 0.6, cfg.Pipeline.MinExtractionConfidence)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.ProcessingTimeout)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("CACHE_TTL", "90")
	t.Setenv("PROCESSING_TIMEOUT", "5s")
	t.Setenv("AI_CLASSIFIER_MODEL", "legacy-model")
	t.Setenv("EXTRACTOR_MODEL", "x-model")
	t.Setenv("INLINE_PROCESSING", "true")
	cfg := common.LoadConfig()

	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.ProcessingTimeout)
	assert.Equal(t, "legacy-model", cfg.LLM.ClassifierModel)
	assert.Equal(t, "x-model", cfg.LLM.ExtractorModel)
	assert.True(t, cfg.Pipeline.InlineProcessing)
}

func TestConfigValidate_ReportsEveryField(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MIN_EXTRACTION_CONFIDENCE", "1.5")
	t.Setenv("STORAGE_BACKEND", "s3")
	cfg := common.LoadConfig()

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	for _, name := range []string{"OPENAI_API_KEY", "MIN_EXTRACTION_CONFIDENCE", "S3_BUCKET"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestValidateDatabase(t *testing.T) {
	cfg := &common.Config{Database: common.DatabaseConfig{Driver: "postgres"}}
	assert.ErrorIs(t, cfg.ValidateDatabase(), common.ErrInvalidInput)

	cfg.Database.Driver = "sqlite"
	assert.NoError(t, cfg.ValidateDatabase())
}

func TestGRPCCode(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{fmt.Errorf("load: %w", common.ErrNotFound), codes.NotFound},
		{common.NewAppError("CONFIG_ERROR", "bad", common.ErrInvalidInput), codes.InvalidArgument},
		{fmt.Errorf("query: %w", common.ErrDatabase), codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, common.GRPCCode(tc.err), "%v", tc.err)
	}
}

func TestLogger_CarriesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := common.WithBatchID(common.WithRequestID(context.Background(), "req-1"), "batch-1")

	common.Logger(ctx, base).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "batch-1", line["batch_id"])
	assert.NotContains(t, line, "document_id")
	assert.Equal(t, "batch-1", common.BatchIDFromContext(ctx))
}
