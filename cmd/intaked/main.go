package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/property-intake/internal/app"
	"github.com/joseph-ayodele/property-intake/internal/async"
	"github.com/joseph-ayodele/property-intake/internal/cache"
	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/export"
	"github.com/joseph-ayodele/property-intake/internal/ingest"
	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if cfg.Server.InboxDir == "" {
		logger.Error("INBOX_DIR is required")
		os.Exit(2)
	}
	inbox, err := filepath.Abs(cfg.Server.InboxDir)
	if err != nil {
		logger.Error("invalid INBOX_DIR", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, app.Options{UseDatabase: cfg.Database.DSN != ""})
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.DB != nil {
		if err := a.DB.HealthCheck(ctx, 5*time.Second); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
	}

	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           metricsMux(a),
		ReadHeaderTimeout: 5 * time.Second,
	}

	exporter := export.NewService(logger)
	outDir := filepath.Join(inbox, ".out")
	queue := async.NewBatchQueue(a.Orchestrator, logger,
		async.WithWorkers(cfg.Server.BatchWorkers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithOnDone(func(job async.Job, out *pipeline.BatchOutcome, err error) {
			if err != nil {
				logger.Warn("inbox.batch.error", "batch_id", job.Batch.ID, "code", common.GRPCCode(err).String(), "error", err)
			}
			if out == nil {
				return
			}
			writeReport(ctx, exporter, outDir, out, logger)
		}),
	)

	paths, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{inbox},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to watch inbox", "dir", inbox, "error", err)
		os.Exit(1)
	}
	go func() {
		for err := range watchErrs {
			logger.Warn("inbox.watch.error", "error", err)
		}
	}()

	batches := async.CollectBatches(ctx, async.InboxConfig{
		Root:        inbox,
		Idle:        2 * time.Second,
		MaxFileSize: cfg.Pipeline.MaxFileSize,
		Logger:      logger,
	}, paths)
	inline := pipeline.InlineStage{Orchestrator: a.Orchestrator, Enabled: cfg.Pipeline.InlineProcessing}
	go func() {
		for b := range batches {
			submit(ctx, a, inline, queue, b)
		}
	}()

	go evictLoop(ctx, a, time.Minute)

	logger.Info("property-intake listening", "addr", addr, "metrics_addr", cfg.Server.MetricsAddr, "inbox", inbox)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics serve error", "error", err)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	queue.Shutdown(context.Background())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

func metricsMux(a *app.App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if a.DB != nil {
			if err := a.DB.HealthCheck(r.Context(), 2*time.Second); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// submit registers the batch, runs the upload hook for each file and hands
// the batch to the queue.
func submit(ctx context.Context, a *app.App, inline pipeline.InlineStage, q async.Queue, b pipeline.Batch) {
	logger := a.Logger.With("batch_id", b.ID, "user_id", b.UserID)
	if a.DB != nil {
		if err := a.DB.CreateBatch(ctx, b.ID, b.UserID); err != nil {
			logger.Error("inbox.batch.register_failed", "error", err)
			return
		}
	}
	for _, sub := range b.Submissions {
		if a.DB != nil {
			if err := a.DB.RegisterUpload(ctx, sub); err != nil {
				logger.Warn("inbox.upload.register_failed", "document_id", sub.DocumentID, "error", err)
			}
		}
		inline.OnUpload(ctx, sub)
	}
	job := async.Job{Batch: b, SubmittedAt: time.Now(), RequestID: b.ID}
	if err := q.Enqueue(ctx, job); err != nil {
		logger.Error("inbox.batch.enqueue_failed", "error", err)
		return
	}
	logger.Info("inbox.batch.enqueued", "documents", len(b.Submissions))
}

func writeReport(ctx context.Context, exp *export.Service, dir string, out *pipeline.BatchOutcome, logger *slog.Logger) {
	data, err := exp.BatchXLSX(ctx, out)
	if err != nil {
		logger.Error("export.batch.failed", "batch_id", out.BatchID, "error", err)
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("export.batch.failed", "batch_id", out.BatchID, "error", err)
		return
	}
	path := filepath.Join(dir, out.BatchID+".xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Error("export.batch.failed", "batch_id", out.BatchID, "error", err)
		return
	}
	logger.Info("export.batch.written", "batch_id", out.BatchID, "path", path)
}

func evictLoop(ctx context.Context, a *app.App, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := a.Status.Evict()
			if m, ok := a.Cache.(*cache.Memory); ok {
				n += m.Evict()
			}
			if n > 0 {
				a.Logger.Debug("evict.expired", "entries", n)
			}
		}
	}
}
