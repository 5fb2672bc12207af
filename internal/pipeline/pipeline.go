// Package pipeline turns beneficiary screens or records into evaluation
// reports: read text, extract a record through the LLM (cached), check data
// quality, evaluate, render.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/sepcheck/internal/cache"
	"github.com/ppiankov/sepcheck/internal/eligibility"
	"github.com/ppiankov/sepcheck/internal/extract"
	"github.com/ppiankov/sepcheck/internal/llm"
	"github.com/ppiankov/sepcheck/internal/metrics"
	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/reference"
	"github.com/ppiankov/sepcheck/internal/util"
	"github.com/ppiankov/sepcheck/internal/validate"
	"github.com/ppiankov/sepcheck/internal/worker"
)

var (
	// ErrNoProvider is returned when text must be extracted but no LLM
	// provider is configured.
	ErrNoProvider = errors.New("no LLM provider configured (set llm.provider)")

	// ErrEmptyText is returned when there is no screen text to extract from.
	ErrEmptyText = errors.New("input text is empty")
)

// Options wires a Pipeline. Only Engine is required.
type Options struct {
	Engine   *eligibility.Engine
	Sources  *extract.Registry
	Provider llm.Provider
	Cache    cache.Cache
	CacheTTL time.Duration
	Limiter  *worker.Limiter
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// AsOf is the evaluation date used by EvaluateFile. Zero means today.
	AsOf time.Time
}

// Pipeline orchestrates extraction and evaluation. It is safe for
// concurrent use when its collaborators are.
type Pipeline struct {
	engine   *eligibility.Engine
	sources  *extract.Registry
	provider llm.Provider
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	asOf     time.Time
	now      func() time.Time
}

// New creates a pipeline from explicit collaborators.
func New(opts Options) *Pipeline {
	if opts.Engine == nil {
		opts.Engine = eligibility.NewEngine(nil, opts.Logger)
	}
	if opts.Sources == nil {
		opts.Sources = extract.NewRegistry(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		engine:   opts.Engine,
		sources:  opts.Sources,
		provider: opts.Provider,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		asOf:     opts.AsOf,
		now:      time.Now,
	}
}

// NewFromConfig builds the full pipeline from configuration: reference
// snapshot, LLM provider, layered cache, OCR and rate limiter. A provider that
// fails to initialize is logged and left out; ScanText then reports
// ErrNoProvider.
func NewFromConfig(cfg *model.Config, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	snapshot := reference.Load(cfg.Reference.DatasetPath, logger)
	m.SetDeclarations(snapshot.Len())

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.FEMA))
	if err != nil {
		logger.Warn("LLM provider disabled", "provider", cfg.LLM.Provider, "error", err)
		provider = nil
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	var ocr extract.OCR
	if cfg.OCR.Command != "" {
		ocr = extract.NewCommandOCR(cfg.OCR.Command, cfg.OCR.Args)
	}

	return New(Options{
		Engine:   eligibility.NewEngine(snapshot, logger),
		Sources:  extract.NewRegistry(ocr),
		Provider: provider,
		Cache:    c,
		CacheTTL: cfg.Cache.DiskTTL,
		Limiter:  worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Metrics:  m,
		Logger:   logger,
	})
}

// WithAsOf returns a copy of the pipeline whose EvaluateFile uses asOf.
func (p *Pipeline) WithAsOf(asOf time.Time) *Pipeline {
	cp := *p
	cp.asOf = asOf
	return &cp
}

// Engine returns the evaluation engine.
func (p *Pipeline) Engine() *eligibility.Engine {
	return p.engine
}

// ReadText reads screen pages through the source registry.
func (p *Pipeline) ReadText(ctx context.Context, paths ...string) (string, error) {
	return p.sources.ReadText(ctx, paths...)
}

// Provider returns the configured LLM provider, or nil.
func (p *Pipeline) Provider() llm.Provider {
	return p.provider
}

// EvaluateRecord normalizes, checks and evaluates an already structured
// record. It never fails: every record shape yields a report.
func (p *Pipeline) EvaluateRecord(_ context.Context, record model.BeneficiaryRecord, asOf time.Time) *model.Report {
	rec := extract.Normalize(record)

	report := p.newReport()
	report.Record = &rec
	report.Plan = rec.PlanDisplay()
	report.Issues = validate.Check(rec)

	if fp, err := util.Fingerprint(rec); err != nil {
		p.logger.Warn("record fingerprint failed", "error", err)
	} else {
		report.Fingerprint = fp
	}

	result := p.engine.Evaluate(rec, asOf)
	report.Result = &result
	p.metrics.ObserveEvaluation(result)

	return report
}

// ScanText extracts a record from screen text and evaluates it. An explicit
// extraction failure is not an error: the report carries the message and no
// result. Errors are reserved for infrastructure failures.
func (p *Pipeline) ScanText(ctx context.Context, text string, asOf time.Time) (*model.Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if p.provider == nil {
		return nil, ErrNoProvider
	}

	content, meta, err := p.extract(ctx, text)
	if err != nil {
		p.metrics.IncrementExtraction(p.provider.Name(), metrics.ExtractError)
		return nil, err
	}

	record, err := extract.ParsePayload(content)
	var extractErr *model.ExtractionError
	if errors.As(err, &extractErr) {
		p.metrics.IncrementExtraction(meta.Provider, metrics.ExtractSignal)
		p.logger.Info("extraction rejected", "provider", meta.Provider, "message", extractErr.Message)
		report := p.newReport()
		report.Extraction = meta
		report.ExtractionError = extractErr.Message
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}

	if meta.Cached {
		p.metrics.IncrementExtraction(meta.Provider, metrics.ExtractCached)
	} else {
		p.metrics.IncrementExtraction(meta.Provider, metrics.ExtractOK)
		p.store(cache.Key(meta.Provider, p.provider.Model(), text), content)
	}

	report := p.EvaluateRecord(ctx, *record, asOf)
	report.Extraction = meta
	return report, nil
}

// EvaluateFile evaluates one input file. A .json file is treated as an
// extraction payload and evaluated without the LLM; any other file is read
// as screen text. It satisfies worker.Evaluator.
func (p *Pipeline) EvaluateFile(ctx context.Context, path string) (*model.Report, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		report, err := p.EvaluatePayload(ctx, data, p.asOf)
		if err != nil {
			return nil, err
		}
		report.Source = path
		return report, nil
	}

	text, err := p.sources.ReadText(ctx, path)
	if err != nil {
		return nil, err
	}
	report, err := p.ScanText(ctx, text, p.asOf)
	if err != nil {
		return nil, err
	}
	report.Source = path
	return report, nil
}

// EvaluatePayload evaluates a record given as JSON in the extraction payload
// shape. An {"error": ...} payload yields a report with ExtractionError set.
func (p *Pipeline) EvaluatePayload(ctx context.Context, data []byte, asOf time.Time) (*model.Report, error) {
	record, err := extract.ParsePayload(string(data))
	var extractErr *model.ExtractionError
	if errors.As(err, &extractErr) {
		report := p.newReport()
		report.ExtractionError = extractErr.Message
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	return p.EvaluateRecord(ctx, *record, asOf), nil
}

// extract returns the raw payload for text, from cache when possible.
func (p *Pipeline) extract(ctx context.Context, text string) (string, *model.ExtractionMeta, error) {
	meta := &model.ExtractionMeta{Provider: p.provider.Name(), Model: p.provider.Model()}
	key := cache.Key(meta.Provider, meta.Model, text)

	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			var content string
			if err := json.Unmarshal(cached, &content); err == nil {
				meta.Cached = true
				p.logger.Debug("extraction cache hit", "provider", meta.Provider)
				return content, meta, nil
			}
		}
	}

	if err := p.limiter.Wait(ctx, p.provider.Endpoint()); err != nil {
		return "", nil, fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	resp, err := p.provider.Extract(ctx, llm.ExtractRequest{Text: text})
	p.metrics.ObserveExtractLatency(meta.Provider, time.Since(start))
	if err != nil {
		return "", nil, fmt.Errorf("extract: %w", err)
	}

	if resp.Model != "" {
		meta.Model = resp.Model
	}
	meta.TokensUsed = resp.TokensUsed
	p.logger.Debug("extraction complete", "provider", meta.Provider, "model", meta.Model, "tokens", resp.TokensUsed)
	return resp.Content, meta, nil
}

// store caches a successful payload. Failures only log.
func (p *Pipeline) store(key, content string) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(content)
	if err == nil {
		err = p.cache.Set(key, data, p.cacheTTL)
	}
	if err != nil {
		p.logger.Warn("extraction cache write failed", "error", err)
	}
}

func (p *Pipeline) newReport() *model.Report {
	return &model.Report{
		ID:          uuid.NewString(),
		GeneratedAt: p.now().UTC(),
	}
}
