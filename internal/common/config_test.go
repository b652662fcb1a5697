package common

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "")
	t.Setenv("RASTER_DPI", "")
	cfg := LoadConfig()
	assert.Equal(t, "llama3.2-vision", cfg.Inference.Model)
	assert.Equal(t, 250, cfg.Raster.DPI)
	assert.Equal(t, 1344, cfg.Raster.MaxDimension)
	assert.Equal(t, 300*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 2, cfg.Inference.MaxRetries)
	assert.Equal(t, 50, cfg.Pipeline.DefaultConfidence)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "llava:13b")
	t.Setenv("INFERENCE_TIMEOUT", "45s")
	t.Setenv("INFERENCE_VERIFY_MODEL", "false")
	t.Setenv("SCORING_QUALITY_PENALTY", "0.75")
	t.Setenv("RASTER_DPI", "not-a-number")
	cfg := LoadConfig()
	assert.Equal(t, "llava:13b", cfg.Inference.Model)
	assert.Equal(t, 45*time.Second, cfg.Inference.Timeout)
	assert.False(t, cfg.Inference.VerifyModel)
	assert.InDelta(t, 0.75, cfg.Scoring.QualityPenalty, 1e-9)
	assert.Equal(t, 250, cfg.Raster.DPI, "unparsable values fall back to the default")
}

func TestConfigValidate_Rejects(t *testing.T) {
	cfg := LoadConfig()
	cfg.Raster.DPI = 0
	cfg.Pipeline.Concurrency = 0
	cfg.Raster.Backend = "ghostscript"
	cfg.Scoring.QualityPenalty = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	for _, want := range []string{"RASTER_DPI", "PIPELINE_CONCURRENCY", "RASTER_BACKEND", "SCORING_QUALITY_PENALTY"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestAppError_SentinelsAndStatus(t *testing.T) {
	cause := errors.New("xref table broken")
	cases := []struct {
		err      error
		sentinel error
		code     codes.Code
	}{
		{UnsupportedDocument("text/plain", nil), ErrUnsupportedDocument, codes.InvalidArgument},
		{CorruptDocument("page 2", cause), ErrCorruptDocument, codes.DataLoss},
		{InferenceUnavailable("retries exhausted", cause), ErrInferenceUnavailable, codes.Unavailable},
		{ModelNotFound("llava", nil), ErrModelNotFound, codes.NotFound},
		{InvalidFieldSpec("empty", nil), ErrInvalidFieldSpec, codes.InvalidArgument},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.sentinel)
		st, ok := status.FromError(ToStatus(tc.err))
		require.True(t, ok)
		assert.Equal(t, tc.code, st.Code())
	}
	assert.ErrorIs(t, CorruptDocument("page 2", cause), cause)
	assert.Equal(t, CodeCorruptDocument, Kind(WrapError(CorruptDocument("p", nil), "rasterize")))
	assert.Equal(t, "", Kind(errors.New("plain")))
	assert.Nil(t, ToStatus(nil))
}

func TestValidator_CollectsEveryFailure(t *testing.T) {
	v := NewValidator()
	assert.False(t, v.HasErrors())
	assert.Empty(t, v.ErrorMessage())

	v.Field("name", " ", Required).
		Field("key", "a\nb", NoControlChars, MaxLengthRule(3)).
		Add("key", "a\nb", "duplicate key")

	require.True(t, v.HasErrors())
	msg := v.ErrorMessage()
	assert.Equal(t, 3, strings.Count(msg, "validation failed"))
	assert.Contains(t, msg, "is required")
	assert.Contains(t, msg, "must not contain control characters")
	assert.Contains(t, msg, "duplicate key")
	assert.NotContains(t, msg, "at most")
}
