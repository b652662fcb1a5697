package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
	"github.com/joseph-ayodele/docfields/internal/llm"
)

// PageStage runs prompt -> inference -> parse for one page.
type PageStage struct {
	Client  extract.InferenceClient
	Parser  *llm.ResponseParser
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewPageStage(client extract.InferenceClient, parser *llm.ResponseParser, model string, timeout time.Duration, logger *slog.Logger) *PageStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageStage{Client: client, Parser: parser, Model: model, Timeout: timeout, Logger: logger}
}

// Run returns the page's extraction. An inference failure degrades the page to all-null with
// status FAILED and is reported as pageErr; fatal is set only for conditions that doom every
// page (model missing, caller cancellation).
func (s *PageStage) Run(ctx context.Context, page extract.PageImage, prompt string) (pe extract.PageExtraction, pageErr, fatal error) {
	start := time.Now()
	text, err := s.Client.Generate(ctx, extract.InferenceRequest{
		Model:   s.Model,
		Prompt:  prompt,
		Image:   page.Data,
		Timeout: s.Timeout,
	})
	if err != nil {
		if errors.Is(err, common.ErrModelNotFound) || ctx.Err() != nil {
			return extract.PageExtraction{}, err, err
		}
		s.Logger.Warn("pipeline.page.failed",
			"page", page.Index, "kind", common.Kind(err), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return s.Parser.Fallback(page.Index, constants.PageStatusFailed), err, nil
	}

	pe = s.Parser.Parse(page.Index, text)
	if pe.Status == constants.PageStatusDegraded {
		s.Logger.Warn("pipeline.page.degraded", "page", page.Index, "elapsed_ms", time.Since(start).Milliseconds())
	} else {
		s.Logger.Debug("pipeline.page.ok", "page", page.Index, "elapsed_ms", time.Since(start).Milliseconds())
	}
	return pe, nil, nil
}
