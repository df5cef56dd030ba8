package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/property-intake/internal/cache"
	"github.com/joseph-ayodele/property-intake/internal/classify"
	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/consolidate"
	"github.com/joseph-ayodele/property-intake/internal/extract"
	"github.com/joseph-ayodele/property-intake/internal/ingest"
	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/llm/openai"
	"github.com/joseph-ayodele/property-intake/internal/llm/vertex"
	"github.com/joseph-ayodele/property-intake/internal/metrics"
	"github.com/joseph-ayodele/property-intake/internal/pipeline"
	"github.com/joseph-ayodele/property-intake/internal/repository"
	"github.com/joseph-ayodele/property-intake/internal/schema"
	"github.com/joseph-ayodele/property-intake/internal/storage"
)

// App is the wired pipeline shared by the daemon and the CLI.
type App struct {
	Config       *common.Config
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Registry     *schema.Registry
	Client       *llm.Client
	Ingestor     *ingest.Ingestor
	Classifier   *classify.Classifier
	Orchestrator *pipeline.Orchestrator
	Store        storage.Store
	DB           *repository.DB
	Status       *pipeline.MemoryStatusStore
	Cache        cache.Cache

	closers []func()
}

// Options adjust Build for tests and for commands that skip parts.
type Options struct {
	// Backend replaces the configured provider.
	Backend llm.Completer
	// UseDatabase opens DB_URL, migrates it and persists results.
	UseDatabase bool
	// Events receives audit events in addition to the logger and the
	// database event log.
	Events pipeline.EventSink
}

// NewLogger returns a JSON logger at the configured level.
func NewLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	reg := schema.Default()
	if cfg.Pipeline.SchemaOverlay != "" {
		r, err := schema.LoadOverlay(reg, cfg.Pipeline.SchemaOverlay)
		if err != nil {
			return nil, fmt.Errorf("schema overlay: %w", err)
		}
		reg = r
		logger.Info("app.schema.overlay_loaded", "path", cfg.Pipeline.SchemaOverlay)
	}
	a.Registry = reg

	backend := opts.Backend
	if backend == nil {
		b, err := a.provider(ctx)
		if err != nil {
			return nil, err
		}
		backend = b
	}
	a.Client = llm.NewClient(backend, cfg.LLM.Provider,
		llm.WithLogger(logger),
		llm.WithRequestTimeout(cfg.LLM.RequestTimeout),
		llm.WithRateLimit(cfg.LLM.RateLimit),
		llm.WithRequestLogging(cfg.LLM.LogRequests),
		llm.WithObserver(func(op string, d time.Duration, r *llm.Response, err error) {
			tokens := 0
			if r != nil {
				tokens = r.Usage.TotalTokens
			}
			a.Metrics.BackendCall(op, llm.ErrorClass(err), d, tokens)
		}),
	)

	cl, err := classify.NewClassifier(a.Client, cfg.LLM.ClassifierModel, cfg.Pipeline.MinClassificationConfidence, logger)
	if err != nil {
		return nil, err
	}
	a.Classifier = cl
	ex, err := extract.NewExtractor(a.Client, cfg.LLM.ExtractorModel, reg, logger)
	if err != nil {
		return nil, err
	}

	ingOpts := ingest.Options{
		MaxFileSize: cfg.Pipeline.MaxFileSize,
		MaxPages:    cfg.Pipeline.MaxPages,
		Logger:      logger,
	}
	if cfg.Pipeline.TextExtractor == "pdftotext" {
		ingOpts.Extractors = map[string]ingest.TextExtractor{
			"pdf": ingest.Pdftotext{Bin: cfg.Pipeline.Pdftotext, Runner: ingest.ExecRunner{Logger: logger}},
		}
	}
	a.Ingestor = ingest.NewIngestor(ingOpts)

	store, err := storage.New(ctx, cfg.Storage, storage.Options{ReadLimit: cfg.Pipeline.MaxFileSize})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, func() { _ = store.Close() })

	a.Status = pipeline.NewMemoryStatusStore(cfg.Cache.TTL)
	sinks := pipeline.MultiSink{pipeline.SlogSink{Logger: logger}}
	if opts.Events != nil {
		sinks = append(sinks, opts.Events)
	}
	deps := pipeline.Deps{
		Ingestor:     a.Ingestor,
		Classifier:   cl,
		Extractor:    ex,
		Consolidator: consolidate.NewConsolidator(logger),
		Registry:     reg,
		Downloader:   store,
		Status:       a.Status,
		Metrics:      a.Metrics,
	}

	if opts.UseDatabase {
		if err := cfg.ValidateDatabase(); err != nil {
			return nil, err
		}
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		deps.Owners = db
		deps.Persister = db
		deps.Status = pipeline.MultiStatusStore{a.Status, db}
		sinks = append(sinks, db.EventLog())
	}
	deps.Events = sinks

	if cfg.Cache.Enabled {
		c, err := a.resultCache(ctx)
		if err != nil {
			return nil, err
		}
		deps.Cache = c
		a.Cache = c
	}

	orch, err := pipeline.NewOrchestrator(deps,
		pipeline.WithLogger(logger),
		pipeline.WithProcessingTimeout(cfg.Pipeline.ProcessingTimeout),
		pipeline.WithMinExtractionConfidence(cfg.Pipeline.MinExtractionConfidence),
		pipeline.WithCacheTTL(cfg.Cache.TTL),
	)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch
	ok = true
	return a, nil
}

func (a *App) provider(ctx context.Context) (llm.Completer, error) {
	cfg := a.Config.LLM
	switch cfg.Provider {
	case "", "openai":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.RequestTimeout,
		}, a.Logger), nil
	case "vertex":
		c, err := vertex.NewClient(ctx, cfg.VertexProject, cfg.VertexRegion, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		return c, nil
	}
	return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", common.ErrInvalidInput, cfg.Provider)
}

func (a *App) resultCache(ctx context.Context) (cache.Cache, error) {
	cfg := a.Config.Cache
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), nil
	}
	r := cache.NewRedis(cfg.RedisAddr, "", cfg.RedisDB, "property-intake:")
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = r.Close() })
	a.Logger.Info("app.cache.redis", "addr", cfg.RedisAddr)
	return r, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
