package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
	"github.com/joseph-ayodele/docfields/internal/llm"
	"github.com/joseph-ayodele/docfields/internal/scoring"
)

// Config is the immutable per-run configuration. Nothing in the pipeline reads the environment.
type Config struct {
	Model             string
	Timeout           time.Duration // per inference attempt
	Concurrency       int           // max pages in flight, default 2
	DefaultConfidence int
	VerifyModel       bool
	Scoring           scoring.Config
}

// ConfigFrom builds the pipeline config from the application config.
func ConfigFrom(c *common.Config) Config {
	return Config{
		Model:             c.Inference.Model,
		Timeout:           c.Inference.Timeout,
		Concurrency:       c.Pipeline.Concurrency,
		DefaultConfidence: c.Pipeline.DefaultConfidence,
		VerifyModel:       c.Inference.VerifyModel,
		Scoring:           scoring.ConfigFrom(c.Scoring),
	}
}

// Request is one document to extract.
type Request struct {
	Name         string // for logs only
	Data         []byte
	MimeType     string
	Spec         extract.FieldSpec
	Instructions string
	Model        string // overrides Config.Model when set
}

// Processor coordinates rasterize -> per-page inference/parse -> reconcile -> score.
type Processor struct {
	cfg    Config
	raster extract.Rasterizer
	client extract.InferenceClient
	scorer *scoring.Scorer
	logger *slog.Logger
}

func NewProcessor(cfg Config, raster extract.Rasterizer, client extract.InferenceClient, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.DefaultConfidence < 0 || cfg.DefaultConfidence > 100 {
		cfg.DefaultConfidence = llm.DefaultConfidence
	}
	return &Processor{
		cfg:    cfg,
		raster: raster,
		client: client,
		scorer: scoring.NewScorer(cfg.Scoring, logger),
		logger: logger,
	}
}

// Process runs the whole pipeline for one document. Only document-level failures are returned;
// unparseable or failed pages degrade to null fields.
func (p *Processor) Process(ctx context.Context, req Request) (extract.DocumentExtraction, error) {
	start := time.Now()
	if common.RequestIDFromContext(ctx) == "" {
		ctx = common.WithRequestID(ctx, uuid.New().String())
	}
	if req.Name != "" {
		ctx = common.WithDocument(ctx, req.Name)
	}
	log := common.LoggerFrom(ctx, p.logger)

	if err := req.Spec.Validate(); err != nil {
		return extract.DocumentExtraction{}, err
	}
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	// 1) rasterize; on failure no inference call is made
	pages, err := p.raster.Rasterize(ctx, req.Data, req.MimeType)
	if err != nil {
		log.Error("pipeline.raster.failed", "kind", common.Kind(err), "error", err)
		return extract.DocumentExtraction{}, err
	}
	if len(pages) == 0 {
		return extract.DocumentExtraction{}, common.UnsupportedDocument("document produced no pages", nil)
	}

	// 2) optional capability check before spending inference on every page
	if checker, ok := p.client.(extract.ModelChecker); ok && p.cfg.VerifyModel {
		if err := checker.CheckModel(ctx, model); err != nil {
			log.Error("pipeline.model_check.failed", "model", model, "error", err)
			return extract.DocumentExtraction{}, err
		}
	}

	// 3) per-page fan-out, bounded
	base := llm.BuildPrompt(req.Spec, req.Instructions)
	parser := llm.NewResponseParser(req.Spec, p.cfg.DefaultConfidence, log)
	stage := NewPageStage(p.client, parser, model, p.cfg.Timeout, log)

	results := make([]extract.PageExtraction, len(pages))
	pageErrs := make([]error, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, page := range pages {
		g.Go(func() error {
			pe, pageErr, fatal := stage.Run(gctx, page, llm.PagePrompt(base, i, len(pages)))
			results[i] = pe
			pageErrs[i] = pageErr
			return fatal
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("pipeline.pages.aborted", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return extract.DocumentExtraction{}, err
	}

	failed := 0
	var firstErr error
	for _, e := range pageErrs {
		if e != nil {
			failed++
			if firstErr == nil {
				firstErr = e
			}
		}
	}
	if failed == len(pages) {
		err := firstErr
		if !errors.Is(err, common.ErrInferenceUnavailable) {
			err = common.InferenceUnavailable(fmt.Sprintf("all %d page(s) failed", len(pages)), firstErr)
		}
		log.Error("pipeline.failed", "pages", len(pages), "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return extract.DocumentExtraction{}, err
	}

	// 4) reconcile behind the barrier, then score
	doc := Reconcile(req.Spec, results)
	scored := p.scorer.Score(doc, scoring.SignalsFromPages(pages))

	log.Info("pipeline.ok",
		"model", model,
		"pages", len(pages),
		"failed_pages", failed,
		"fields", req.Spec.Len(),
		"found", len(scored.SourcePages),
		"overall_confidence", scored.OverallConfidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return scored, nil
}
