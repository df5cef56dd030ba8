package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Pipeline PipelineConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr     string
	MetricsAddr  string
	InboxDir     string
	BatchWorkers int
	QueueSize    int
}

// PipelineConfig holds the document pipeline thresholds.
type PipelineConfig struct {
	MaxFileSize                 int64
	MaxPages                    int
	MinClassificationConfidence float64
	MinExtractionConfidence     float64
	ProcessingTimeout           time.Duration
	InlineProcessing            bool
	SchemaOverlay               string
	TextExtractor               string // native | pdftotext
	Pdftotext                   string
}

// LLMConfig holds text-understanding backend configuration
type LLMConfig struct {
	Provider        string // openai | vertex
	APIKey          string
	BaseURL         string
	ClassifierModel string
	ExtractorModel  string
	RequestTimeout  time.Duration
	RateLimit       float64 // requests per second, 0 disables
	LogRequests     bool
	VertexProject   string
	VertexRegion    string
}

// StorageConfig selects the blob storage collaborator.
type StorageConfig struct {
	Backend    string // fs | gcs | s3
	Root       string
	GCSBucket  string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
}

// CacheConfig controls reuse of AI results by content hash.
type CacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	RedisAddr string
	RedisDB   int
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:     getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr:  getEnv("METRICS_ADDR", ":9090"),
			InboxDir:     getEnv("INBOX_DIR", ""),
			BatchWorkers: getEnvAsInt("BATCH_WORKERS", 2),
			QueueSize:    getEnvAsInt("BATCH_QUEUE_SIZE", 64),
		},
		Pipeline: PipelineConfig{
			MaxFileSize:                 getEnvAsInt64("MAX_FILE_SIZE", 50*1024*1024),
			MaxPages:                    getEnvAsInt("MAX_PAGES", 500),
			MinClassificationConfidence: getEnvAsFloat64("MIN_CLASSIFICATION_CONFIDENCE", 0.7),
			MinExtractionConfidence:     getEnvAsFloat64("MIN_EXTRACTION_CONFIDENCE", 0.6),
			ProcessingTimeout:           getEnvAsDuration("PROCESSING_TIMEOUT", 120*time.Second),
			InlineProcessing:            getEnvAsBool("INLINE_PROCESSING", false),
			SchemaOverlay:               getEnv("SCHEMA_OVERLAY", ""),
			TextExtractor:               getEnv("TEXT_EXTRACTOR", "native"),
			Pdftotext:                   getEnv("PDFTOTEXT_BIN", "pdftotext"),
		},
		LLM: LLMConfig{
			Provider:        getEnv("LLM_PROVIDER", "openai"),
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ClassifierModel: getEnv("CLASSIFIER_MODEL", getEnv("AI_CLASSIFIER_MODEL", "gpt-4o-mini")),
			ExtractorModel:  getEnv("EXTRACTOR_MODEL", getEnv("AI_EXTRACTOR_MODEL", "gpt-4o")),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
			RateLimit:       getEnvAsFloat64("LLM_RATE_LIMIT", 0),
			LogRequests:     getEnvAsBool("LOG_AI_REQUESTS", true),
			VertexProject:   getEnv("VERTEX_PROJECT", ""),
			VertexRegion:    getEnv("VERTEX_REGION", "us-central1"),
		},
		Storage: StorageConfig{
			Backend:    getEnv("STORAGE_BACKEND", "fs"),
			Root:       getEnv("STORAGE_ROOT", "."),
			GCSBucket:  getEnv("GCS_BUCKET", ""),
			S3Bucket:   getEnv("S3_BUCKET", ""),
			S3Region:   getEnv("S3_REGION", "us-east-1"),
			S3Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Cache: CacheConfig{
			Enabled:   getEnvAsBool("ENABLE_AI_CACHE", true),
			TTL:       getEnvAsSeconds("CACHE_TTL", time.Hour),
			RedisAddr: getEnv("REDIS_ADDR", ""),
			RedisDB:   getEnvAsInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// bare integers are milliseconds, matching the legacy deployment env files
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(secs) * time.Second
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration for the pipeline core.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("MAX_FILE_SIZE", c.Pipeline.MaxFileSize, Positive).
		Field("MAX_PAGES", c.Pipeline.MaxPages, Positive).
		Field("MIN_CLASSIFICATION_CONFIDENCE", c.Pipeline.MinClassificationConfidence, UnitInterval).
		Field("MIN_EXTRACTION_CONFIDENCE", c.Pipeline.MinExtractionConfidence, UnitInterval).
		Field("REQUEST_TIMEOUT", c.LLM.RequestTimeout, Positive).
		Field("PROCESSING_TIMEOUT", c.Pipeline.ProcessingTimeout, Positive).
		Field("LLM_PROVIDER", c.LLM.Provider, OneOf("openai", "vertex")).
		Field("STORAGE_BACKEND", c.Storage.Backend, OneOf("fs", "gcs", "s3")).
		Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite")).
		Field("TEXT_EXTRACTOR", c.Pipeline.TextExtractor, OneOf("native", "pdftotext"))

	switch c.LLM.Provider {
	case "openai":
		v.Field("OPENAI_API_KEY", c.LLM.APIKey, Required)
	case "vertex":
		v.Field("VERTEX_PROJECT", c.LLM.VertexProject, Required)
	}
	switch c.Storage.Backend {
	case "gcs":
		v.Field("GCS_BUCKET", c.Storage.GCSBucket, Required)
	case "s3":
		v.Field("S3_BUCKET", c.Storage.S3Bucket, Required)
	}

	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// ValidateDatabase is checked only by binaries that persist results.
func (c *Config) ValidateDatabase() error {
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	return nil
}
