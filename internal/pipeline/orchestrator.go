package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/cache"
	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/consolidate"
	"github.com/joseph-ayodele/property-intake/internal/entity"
	"github.com/joseph-ayodele/property-intake/internal/ingest"
	"github.com/joseph-ayodele/property-intake/internal/llm"
	"github.com/joseph-ayodele/property-intake/internal/metrics"
	"github.com/joseph-ayodele/property-intake/internal/schema"
	"github.com/joseph-ayodele/property-intake/internal/validate"
)

const (
	DefaultProcessingTimeout       = 120 * time.Second
	DefaultCacheTTL                = time.Hour
	DefaultMinExtractionConfidence = 0.6
)

// Deps are the stage collaborators. Ingestor, Classifier, Extractor and
// Consolidator are required.
type Deps struct {
	Ingestor     *ingest.Ingestor
	Classifier   Classifier
	Extractor    Extractor
	Consolidator *consolidate.Consolidator
	Registry     *schema.Registry

	Downloader Downloader
	Owners     OwnerLookup
	Persister  Persister
	Events     EventSink
	Status     StatusStore
	Cache      cache.Cache
	Metrics    *metrics.Metrics
}

// Option tunes an Orchestrator.
type Option func(*Orchestrator)

// WithProcessingTimeout bounds each document.
func WithProcessingTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMinExtractionConfidence sets the validator warning threshold.
func WithMinExtractionConfidence(v float64) Option {
	return func(o *Orchestrator) {
		if v > 0 {
			o.minConfidence = v
		}
	}
}

// WithCacheTTL sets how long cached analyses live.
func WithCacheTTL(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.cacheTTL = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator drives documents through ingest, classify, extract and
// validate, and batches through consolidation and persistence.
type Orchestrator struct {
	deps          Deps
	timeout       time.Duration
	minConfidence float64
	cacheTTL      time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewOrchestrator(deps Deps, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Ingestor == nil:
		return nil, fmt.Errorf("%w: ingestor is required", common.ErrInvalidInput)
	case deps.Classifier == nil:
		return nil, fmt.Errorf("%w: classifier is required", common.ErrInvalidInput)
	case deps.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor is required", common.ErrInvalidInput)
	case deps.Consolidator == nil:
		return nil, fmt.Errorf("%w: consolidator is required", common.ErrInvalidInput)
	}
	if deps.Registry == nil {
		deps.Registry = schema.Default()
	}
	if deps.Events == nil {
		deps.Events = SlogSink{}
	}
	o := &Orchestrator{
		deps:          deps,
		timeout:       DefaultProcessingTimeout,
		minConfidence: DefaultMinExtractionConfidence,
		cacheTTL:      DefaultCacheTTL,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// NewDocumentID returns doc_<unix millis>_<8 hex chars>.
func NewDocumentID(now time.Time) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("doc_%d_%s", now.UnixMilli(), hex.EncodeToString(b[:]))
}

type analysis struct {
	Classification entity.Classification    `json:"classification"`
	Extraction     *entity.ExtractionResult `json:"extraction"`
}

// ProcessDocument runs one submission to a terminal state. It never returns
// nil; failures are reported through Status and Error. Once started the
// document ignores caller cancellation and is bounded by the processing
// timeout instead.
func (o *Orchestrator) ProcessDocument(ctx context.Context, sub Submission) *entity.PipelineResult {
	start := o.now()
	id := sub.DocumentID
	if id == "" {
		id = NewDocumentID(start)
	}
	res := &entity.PipelineResult{
		DocumentID:   id,
		UploadID:     sub.UploadID,
		BatchID:      sub.BatchID,
		Status:       constants.DocumentProcessing,
		DocumentType: constants.Unknown,
		Source: entity.SourceInfo{
			Filename:         sub.filename(),
			OriginalFilename: sub.OriginalFilename,
			Path:             sub.Path,
			FileSize:         sub.DeclaredSize,
		},
		Processing: entity.ProcessingInfo{
			StartedAt:       start,
			BackendModel:    o.deps.Extractor.Model(),
			ClassifierModel: o.deps.Classifier.Model(),
		},
		Metadata: sub.Metadata,
	}

	ctx = common.WithDocumentID(context.WithoutCancel(ctx), id)
	if sub.BatchID != "" {
		ctx = common.WithBatchID(ctx, sub.BatchID)
	}
	ctx, cancel := common.WithTimeout(ctx, o.timeout)
	defer cancel()
	ctx, tally := llm.WithTally(ctx)
	logger := common.Logger(ctx, o.logger)

	o.setDocumentStatus(ctx, id, constants.DocumentProcessing)
	o.emit(ctx, Event{
		Type:       EventDocumentStarted,
		BatchID:    sub.BatchID,
		UserID:     sub.UserID,
		DocumentID: id,
		Status:     string(constants.DocumentProcessing),
		Data:       map[string]any{"filename": res.Source.Filename},
	})
	logger.Info("pipeline.document.start", "filename", res.Source.Filename)

	err := o.run(ctx, sub, res, logger)

	res.Processing.CompletedAt = o.now()
	res.Processing.DurationMS = res.Processing.CompletedAt.Sub(start).Milliseconds()
	res.Processing.TokensUsed = tally.Tokens()

	if err != nil {
		var sf *StageFailure
		stage := constants.StageIngestion
		if errors.As(err, &sf) {
			stage = sf.Stage
		}
		res.Status = constants.DocumentFailed
		res.Error = &entity.StageError{Stage: stage, Message: err.Error()}
		o.deps.Metrics.StageFailed(string(stage))
		logger.Error("pipeline.document.failed", "stage", stage, "error", err)
	} else {
		res.Status = constants.DocumentProcessed
	}

	o.setDocumentStatus(ctx, id, res.Status)
	o.deps.Metrics.DocumentDone(string(res.Status), string(res.DocumentType), res.Processing.CompletedAt.Sub(start))
	o.emit(ctx, documentEvent(sub, res))
	logger.Info("pipeline.document.done",
		"status", res.Status,
		"document_type", res.DocumentType,
		"duration_ms", res.Processing.DurationMS,
		"tokens_used", res.Processing.TokensUsed,
		"cache_hit", res.Processing.CacheHit,
	)
	return res
}

func (o *Orchestrator) run(ctx context.Context, sub Submission, res *entity.PipelineResult, logger *slog.Logger) error {
	fail := func(stage constants.Stage, err error) error {
		return &StageFailure{DocumentID: res.DocumentID, Stage: stage, Err: err}
	}

	data := sub.Data
	if data == nil {
		if o.deps.Downloader == nil || sub.Path == "" {
			return fail(constants.StageIngestion, fmt.Errorf("%w: no content and no downloadable path", common.ErrInvalidInput))
		}
		if sub.DeclaredSize > o.deps.Ingestor.MaxFileSize() {
			return fail(constants.StageIngestion, &ingest.IngestionError{Filename: res.Source.Filename, Err: ingest.ErrSizeExceeded})
		}
		b, err := o.deps.Downloader.Download(ctx, sub.Path)
		if err != nil {
			return fail(constants.StageIngestion, fmt.Errorf("download %s: %w", sub.Path, err))
		}
		data = b
	}

	raw, err := o.deps.Ingestor.Ingest(ctx, res.Source.Filename, sub.DeclaredSize, data)
	if err != nil {
		return fail(constants.StageIngestion, err)
	}
	res.RawText = raw.NormalizedText
	res.Pages = raw.Pages
	res.Source.FileHash = raw.ContentHash
	res.Source.FileSize = raw.ByteSize
	res.Source.PageCount = raw.PageCount

	an, hit := o.cachedAnalysis(ctx, raw.ContentHash, logger)
	if hit {
		res.Processing.CacheHit = true
	} else {
		an.Classification = o.deps.Classifier.Classify(ctx, raw.NormalizedText)
		if err := ctx.Err(); err != nil {
			return fail(constants.StageClassification, fmt.Errorf("%w: %v", common.ErrTimeout, err))
		}
	}
	res.DocumentType = an.Classification.DocumentType
	res.ClassificationConfidence = an.Classification.Confidence

	if !hit {
		ext, err := o.deps.Extractor.Extract(ctx, raw.NormalizedText, an.Classification.DocumentType)
		if err != nil {
			return fail(constants.StageExtraction, err)
		}
		an.Extraction = ext
		o.storeAnalysis(ctx, raw.ContentHash, an, logger)
	}
	res.ExtractedData = an.Extraction.Fields
	res.ExtractionConfidence = an.Extraction.OverallConfidence

	v := validate.Validate(an.Extraction, res.DocumentType, o.deps.Registry, o.minConfidence)
	res.Validation = &v
	if !v.IsValid {
		logger.Warn("pipeline.document.invalid",
			"document_type", res.DocumentType,
			"errors", len(v.Errors),
		)
	}
	return nil
}

func (o *Orchestrator) cacheKey(hash string) string {
	return "analysis:" + hash + ":" + o.deps.Classifier.Model() + ":" + o.deps.Extractor.Model()
}

func (o *Orchestrator) cachedAnalysis(ctx context.Context, hash string, logger *slog.Logger) (analysis, bool) {
	if o.deps.Cache == nil {
		return analysis{}, false
	}
	b, ok, err := o.deps.Cache.Get(ctx, o.cacheKey(hash))
	if err != nil {
		logger.Warn("pipeline.cache.get_failed", "error", err)
		return analysis{}, false
	}
	o.deps.Metrics.CacheLookup(ok)
	if !ok {
		return analysis{}, false
	}
	var an analysis
	if err := json.Unmarshal(b, &an); err != nil || an.Extraction == nil {
		logger.Warn("pipeline.cache.corrupt", "error", err)
		return analysis{}, false
	}
	logger.Debug("pipeline.cache.hit", "content_hash", hash)
	return an, true
}

func (o *Orchestrator) storeAnalysis(ctx context.Context, hash string, an analysis, logger *slog.Logger) {
	// degraded classifications are not worth replaying
	if o.deps.Cache == nil || an.Classification.Degraded {
		return
	}
	b, err := json.Marshal(an)
	if err != nil {
		logger.Warn("pipeline.cache.encode_failed", "error", err)
		return
	}
	if err := o.deps.Cache.Set(ctx, o.cacheKey(hash), b, o.cacheTTL); err != nil {
		logger.Warn("pipeline.cache.set_failed", "error", err)
	}
}

// ProcessBatch processes submissions one at a time in order, then
// consolidates the processed ones into the owner's property record.
// Cancelling ctx stops the loop before the next document; the batch is
// then left PROCESSING and ctx.Err() is returned with the partial outcome.
func (o *Orchestrator) ProcessBatch(ctx context.Context, b Batch) (*BatchOutcome, error) {
	if b.ID == "" || b.UserID == "" {
		return nil, ErrInvalidBatch
	}
	ctx = common.WithUserID(common.WithBatchID(ctx, b.ID), b.UserID)
	logger := common.Logger(ctx, o.logger)
	out := &BatchOutcome{BatchID: b.ID, Status: constants.BatchProcessing}

	o.setBatchStatus(ctx, b, constants.BatchProcessing)
	o.emit(ctx, Event{
		Type:    EventBatchStarted,
		BatchID: b.ID,
		UserID:  b.UserID,
		Status:  string(constants.BatchProcessing),
		Data:    map[string]any{"documents": len(b.Submissions)},
	})
	logger.Info("pipeline.batch.start", "documents", len(b.Submissions))

	for i, sub := range b.Submissions {
		if err := ctx.Err(); err != nil {
			logger.Warn("pipeline.batch.cancelled", "remaining", len(b.Submissions)-i, "error", err)
			return out, err
		}
		if sub.BatchID == "" {
			sub.BatchID = b.ID
		}
		if sub.UserID == "" {
			sub.UserID = b.UserID
		}
		r := o.ProcessDocument(ctx, sub)
		out.Results = append(out.Results, r)
		if r.Failed() {
			out.Failed++
		} else {
			out.Processed++
		}
	}

	cerr := o.consolidate(ctx, b, out, logger)
	if cerr != nil {
		o.emit(ctx, Event{
			Type:    EventBatchFailed,
			BatchID: b.ID,
			UserID:  b.UserID,
			Data:    map[string]any{"error": cerr.Error()},
		})
	}

	// every document is terminal at this point, even if consolidation failed
	out.Status = constants.BatchCompleted
	o.setBatchStatus(ctx, b, constants.BatchCompleted)
	o.deps.Metrics.BatchDone(string(out.Status))
	o.emit(ctx, Event{
		Type:    EventBatchCompleted,
		BatchID: b.ID,
		UserID:  b.UserID,
		Status:  string(out.Status),
		Data: map[string]any{
			"processed": out.Processed,
			"failed":    out.Failed,
		},
	})
	logger.Info("pipeline.batch.done",
		"processed", out.Processed,
		"failed", out.Failed,
		"error", cerr,
	)
	return out, cerr
}

func (o *Orchestrator) consolidate(ctx context.Context, b Batch, out *BatchOutcome, logger *slog.Logger) error {
	o.emit(ctx, Event{
		Type:    EventConsolidationStarted,
		BatchID: b.ID,
		UserID:  b.UserID,
		Data:    map[string]any{"processed": out.Processed},
	})

	owner := entity.OwnerContext{OwnerID: b.UserID}
	if o.deps.Owners != nil {
		oc, err := o.deps.Owners.OwnerContext(ctx, b.UserID)
		if err != nil {
			return &StageFailure{Stage: constants.StageConsolidation, Err: fmt.Errorf("owner context: %w", err)}
		}
		owner = oc
		if owner.OwnerID == "" {
			owner.OwnerID = b.UserID
		}
	}

	co, err := o.deps.Consolidator.Consolidate(ctx, out.Results, owner)
	if err != nil {
		return &StageFailure{Stage: constants.StageConsolidation, Err: err}
	}
	out.Consolidation = co
	for _, s := range co.Skipped {
		logger.Warn("pipeline.consolidation.skipped", "document_id", s.DocumentID, "field", s.Field)
	}

	if o.deps.Persister != nil {
		if err := o.deps.Persister.ApplyWrites(ctx, b.ID, co); err != nil {
			logger.Error("pipeline.persist.failed", "error", err)
			return &StageFailure{Stage: constants.StageConsolidation, Err: fmt.Errorf("apply writes: %w", err)}
		}
	}

	o.emit(ctx, Event{
		Type:    EventConsolidated,
		BatchID: b.ID,
		UserID:  b.UserID,
		Data: map[string]any{
			"merged":  co.Merged,
			"skipped": len(co.Skipped),
			"fields":  len(co.Record.Fields),
		},
	})
	if p := co.Property; p != nil {
		typ := EventPropertyUpdated
		if p.Op == consolidate.OpInsert {
			typ = EventPropertyCreated
		}
		o.emit(ctx, Event{
			Type:    typ,
			BatchID: b.ID,
			UserID:  b.UserID,
			Data: map[string]any{
				"property_id": p.PropertyID,
				"address":     p.NormalizedAddress,
			},
		})
	}
	return nil
}

func documentEvent(sub Submission, res *entity.PipelineResult) Event {
	ev := Event{
		Type:       EventDocumentProcessed,
		BatchID:    sub.BatchID,
		UserID:     sub.UserID,
		DocumentID: res.DocumentID,
		Status:     string(res.Status),
		Data: map[string]any{
			"document_type": string(res.DocumentType),
			"confidence":    res.ExtractionConfidence,
			"tokens_used":   res.Processing.TokensUsed,
		},
	}
	if res.Error != nil {
		ev.Type = EventDocumentFailed
		ev.Data = map[string]any{
			"stage": string(res.Error.Stage),
			"error": res.Error.Message,
		}
	}
	return ev
}

func (o *Orchestrator) emit(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = o.now()
	}
	o.deps.Metrics.Event(ev.Type)
	o.deps.Events.LogEvent(ctx, ev)
}

func (o *Orchestrator) setDocumentStatus(ctx context.Context, id string, s constants.DocumentStatus) {
	if o.deps.Status == nil {
		return
	}
	if err := o.deps.Status.SetDocumentStatus(ctx, id, s); err != nil {
		o.logger.Warn("pipeline.status.document_failed", "document_id", id, "status", s, "error", err)
	}
}

func (o *Orchestrator) setBatchStatus(ctx context.Context, b Batch, s constants.BatchStatus) {
	if o.deps.Status != nil {
		if err := o.deps.Status.SetBatchStatus(ctx, b.ID, s); err != nil {
			o.logger.Warn("pipeline.status.batch_failed", "batch_id", b.ID, "status", s, "error", err)
		}
	}
	o.emit(ctx, Event{
		Type:    EventBatchStatusUpdated,
		BatchID: b.ID,
		UserID:  b.UserID,
		Status:  string(s),
	})
}
