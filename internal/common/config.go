package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Inference InferenceConfig
	Raster    RasterConfig
	Pipeline  PipelineConfig
	Scoring   ScoringConfig
	Log       LogConfig
}

// InferenceConfig holds vision-model service configuration
type InferenceConfig struct {
	BaseURL        string
	Model          string
	Timeout        time.Duration // per call
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	VerifyModel    bool
}

// RasterConfig holds page rendering configuration
type RasterConfig struct {
	Backend       string // "fitz" | "pdftoppm"
	DPI           int
	MaxDimension  int
	JPEGQuality   int
	MaxPages      int // 0 = no limit
	Pdftoppm      string
	HeicConverter string
}

// PipelineConfig holds per-document processing configuration
type PipelineConfig struct {
	Concurrency       int
	DefaultConfidence int
}

// ScoringConfig holds confidence degradation thresholds
type ScoringConfig struct {
	MinDPI         int
	MinJPEGQuality int
	QualityPenalty float64
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Inference: InferenceConfig{
			BaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:          getEnv("OLLAMA_MODEL", "llama3.2-vision"),
			Timeout:        getEnvAsDuration("INFERENCE_TIMEOUT", 300*time.Second),
			MaxRetries:     getEnvAsInt("INFERENCE_MAX_RETRIES", 2),
			InitialBackoff: getEnvAsDuration("INFERENCE_BACKOFF", 500*time.Millisecond),
			MaxBackoff:     getEnvAsDuration("INFERENCE_MAX_BACKOFF", 5*time.Second),
			VerifyModel:    getEnvAsBool("INFERENCE_VERIFY_MODEL", true),
		},
		Raster: RasterConfig{
			Backend:       getEnv("RASTER_BACKEND", "fitz"),
			DPI:           getEnvAsInt("RASTER_DPI", 250),
			MaxDimension:  getEnvAsInt("RASTER_MAX_DIMENSION", 1344),
			JPEGQuality:   getEnvAsInt("RASTER_JPEG_QUALITY", 95),
			MaxPages:      getEnvAsInt("RASTER_MAX_PAGES", 0),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
		},
		Pipeline: PipelineConfig{
			Concurrency:       getEnvAsInt("PIPELINE_CONCURRENCY", 2),
			DefaultConfidence: getEnvAsInt("PIPELINE_DEFAULT_CONFIDENCE", 50),
		},
		Scoring: ScoringConfig{
			MinDPI:         getEnvAsInt("SCORING_MIN_DPI", 100),
			MinJPEGQuality: getEnvAsInt("SCORING_MIN_JPEG_QUALITY", 85),
			QualityPenalty: getEnvAsFloat64("SCORING_QUALITY_PENALTY", 0.9),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
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
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("OLLAMA_BASE_URL", c.Inference.BaseURL, Required)
	v.Field("OLLAMA_MODEL", c.Inference.Model, Required)
	v.Field("INFERENCE_TIMEOUT", int(c.Inference.Timeout), Positive)
	v.Field("INFERENCE_MAX_RETRIES", c.Inference.MaxRetries, NonNegative)
	v.Field("RASTER_DPI", c.Raster.DPI, Positive)
	v.Field("RASTER_MAX_DIMENSION", c.Raster.MaxDimension, Positive)
	v.Field("RASTER_JPEG_QUALITY", c.Raster.JPEGQuality, func(name string, value interface{}) *ValidationError {
		return IntBetween(name, value, 1, 100)
	})
	v.Field("RASTER_MAX_PAGES", c.Raster.MaxPages, NonNegative)
	v.Field("PIPELINE_CONCURRENCY", c.Pipeline.Concurrency, Positive)
	v.Field("PIPELINE_DEFAULT_CONFIDENCE", c.Pipeline.DefaultConfidence, func(name string, value interface{}) *ValidationError {
		return IntBetween(name, value, 0, 100)
	})
	switch strings.ToLower(c.Raster.Backend) {
	case "fitz", "pdftoppm":
	default:
		v.Field("RASTER_BACKEND", c.Raster.Backend, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "must be fitz or pdftoppm"}
		})
	}
	if p := c.Scoring.QualityPenalty; p <= 0 || p > 1 {
		v.Field("SCORING_QUALITY_PENALTY", p, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "must be in (0, 1]"}
		})
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// String renders the non-secret settings for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("model=%s base_url=%s backend=%s dpi=%d max_dim=%d concurrency=%d",
		c.Inference.Model, c.Inference.BaseURL, c.Raster.Backend, c.Raster.DPI, c.Raster.MaxDimension, c.Pipeline.Concurrency)
}
