package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
	"github.com/joseph-ayodele/docfields/internal/llm"
)

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Images  []string        `json:"images,omitempty"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options GenerateOptions `json:"options"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

var _ extract.InferenceClient = (*Client)(nil)

// Generate sends one page image and prompt to /api/generate and returns the raw response text.
// Transport errors and per-attempt timeouts are retried; error responses are not.
func (c *Client) Generate(ctx context.Context, req extract.InferenceRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}

	body := generateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		Stream:  false,
		Format:  "json",
		Options: c.cfg.Options,
	}
	if len(req.Image) > 0 {
		body.Images = []string{base64.StdEncoding.EncodeToString(req.Image)}
	}

	c.logger.Info("ollama.generate.start",
		"req_id", rid,
		"request_id", common.RequestIDFromContext(ctx),
		"model", model,
		"prompt_len", len(req.Prompt),
		"image_bytes", len(req.Image),
		"timeout_ms", timeout.Milliseconds(),
	)

	endpoint := c.cfg.BaseURL + "/api/generate"
	out, attempts, err := c.retryWithBackoff(ctx, rid, func(ctx context.Context) (string, bool, error) {
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		raw, status, err := llm.SendJSON(actx, c.http, endpoint, body, nil, c.logger)
		if err != nil {
			var se *llm.StatusError
			if errors.As(err, &se) {
				return "", false, classifyStatus(model, status, se.Body)
			}
			// caller cancellation is not an inference failure
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			return "", true, err
		}

		var gr generateResponse
		if err := json.Unmarshal(raw, &gr); err != nil {
			return "", false, common.InferenceUnavailable("malformed generate envelope", err)
		}
		if gr.Error != "" {
			return "", false, classifyStatus(model, status, []byte(gr.Error))
		}
		return gr.Response, false, nil
	})

	if err != nil {
		if errors.Is(err, context.Canceled) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil) {
			c.logger.Warn("ollama.generate.canceled", "req_id", rid, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return "", err
		}
		if common.Kind(err) == "" {
			err = common.InferenceUnavailable(fmt.Sprintf("generate failed after %d attempt(s)", attempts), err)
		}
		c.logger.Error("ollama.generate.failed",
			"req_id", rid, "model", model, "attempts", attempts, "kind", common.Kind(err), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	c.logger.Info("ollama.generate.ok",
		"req_id", rid,
		"model", model,
		"attempts", attempts,
		"response_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// classifyStatus maps an error response to ModelNotFound or InferenceUnavailable.
func classifyStatus(model string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if status == http.StatusNotFound || strings.Contains(strings.ToLower(msg), "not found") {
		return common.ModelNotFound(fmt.Sprintf("model %q not found", model), errors.New(msg))
	}
	return common.InferenceUnavailable(fmt.Sprintf("inference service error (status %d)", status), errors.New(msg))
}
