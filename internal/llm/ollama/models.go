package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
	"github.com/joseph-ayodele/docfields/internal/llm"
)

// visionFamilies are model families that ship an image projector.
var visionFamilies = map[string]struct{}{
	"clip":     {},
	"mllama":   {},
	"llava":    {},
	"bakllava": {},
	"gemma3":   {},
}

type modelDetails struct {
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

type showResponse struct {
	Details       modelDetails   `json:"details"`
	ProjectorInfo map[string]any `json:"projector_info"`
	Capabilities  []string       `json:"capabilities"`
}

type tagsResponse struct {
	Models []struct {
		Name    string       `json:"name"`
		Model   string       `json:"model"`
		Size    int64        `json:"size"`
		Details modelDetails `json:"details"`
	} `json:"models"`
}

// ModelInfo describes an installed vision-capable model.
type ModelInfo struct {
	Name          string
	Family        string
	ParameterSize string
	Quantization  string
	SizeBytes     int64
}

var _ extract.ModelChecker = (*Client)(nil)

// CheckModel verifies that model is installed and accepts images.
// Transport failures are logged and ignored; the generate call reports them anyway.
func (c *Client) CheckModel(ctx context.Context, model string) error {
	if model == "" {
		model = c.cfg.Model
	}
	body := map[string]string{"model": model, "name": model}
	raw, status, err := llm.SendJSON(ctx, c.http, c.cfg.BaseURL+"/api/show", body, nil, c.logger)
	if err != nil {
		var se *llm.StatusError
		if errors.As(err, &se) {
			if status == http.StatusNotFound || strings.Contains(strings.ToLower(string(se.Body)), "not found") {
				return common.ModelNotFound(fmt.Sprintf("model %q is not installed", model), nil)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("ollama.check_model.skipped", "model", model, "error", err)
		return nil
	}

	var sr showResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		c.logger.Warn("ollama.check_model.decode_error", "model", model, "error", err)
		return nil
	}
	if !isVisionModel(model, sr.Details, len(sr.ProjectorInfo) > 0, sr.Capabilities) {
		return common.ModelNotFound(fmt.Sprintf("model %q does not accept images", model), nil)
	}
	c.logger.Debug("ollama.check_model.ok", "model", model, "family", sr.Details.Family)
	return nil
}

// ListVisionModels returns installed models that can read images, sorted by name.
func (c *Client) ListVisionModels(ctx context.Context) ([]ModelInfo, error) {
	raw, _, err := llm.GetJSON(ctx, c.http, c.cfg.BaseURL+"/api/tags", nil, c.logger)
	if err != nil {
		return nil, common.InferenceUnavailable("list models failed", err)
	}
	var tr tagsResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, common.InferenceUnavailable("malformed tags response", err)
	}
	var out []ModelInfo
	for _, m := range tr.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if !isVisionModel(name, m.Details, false, nil) {
			continue
		}
		out = append(out, ModelInfo{
			Name:          name,
			Family:        m.Details.Family,
			ParameterSize: m.Details.ParameterSize,
			Quantization:  m.Details.QuantizationLevel,
			SizeBytes:     m.Size,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isVisionModel(name string, d modelDetails, hasProjector bool, capabilities []string) bool {
	if hasProjector {
		return true
	}
	for _, capability := range capabilities {
		if capability == "vision" {
			return true
		}
	}
	families := append([]string{d.Family}, d.Families...)
	for _, f := range families {
		if _, ok := visionFamilies[strings.ToLower(f)]; ok {
			return true
		}
	}
	n := strings.ToLower(name)
	return strings.Contains(n, "vision") || strings.Contains(n, "llava")
}
