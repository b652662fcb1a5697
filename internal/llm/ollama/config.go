package ollama

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docfields/internal/common"
)

// Config for the Ollama client.
type Config struct {
	BaseURL        string        // default http://localhost:11434
	Model          string        // default llama3.2-vision; a request may override it
	Timeout        time.Duration // per attempt, default 300s
	MaxRetries     int           // retries after the first attempt on transport errors/timeouts
	InitialBackoff time.Duration // default 500ms
	MaxBackoff     time.Duration // default 5s
	Options        GenerateOptions
}

// GenerateOptions are the sampling settings sent with every request.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

// DefaultGenerateOptions keeps extraction output as deterministic as the runtime allows.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Temperature: 0, TopP: 0.1, TopK: 10, NumPredict: 2000}
}

// ConfigFrom adapts the application config.
func ConfigFrom(c common.InferenceConfig) Config {
	return Config{
		BaseURL:        c.BaseURL,
		Model:          c.Model,
		Timeout:        c.Timeout,
		MaxRetries:     c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		Options:        DefaultGenerateOptions(),
	}
}

// Client talks to the Ollama native API. It keeps no per-call state and is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "llama3.2-vision"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.Options == (GenerateOptions{}) {
		cfg.Options = DefaultGenerateOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		// per-attempt deadlines come from the request context
		http:   &http.Client{},
		logger: logger,
	}
}

// Model returns the default model identifier.
func (c *Client) Model() string { return c.cfg.Model }
