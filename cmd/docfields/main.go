package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
	"github.com/joseph-ayodele/docfields/internal/llm/ollama"
	"github.com/joseph-ayodele/docfields/internal/pipeline"
	"github.com/joseph-ayodele/docfields/internal/raster"
)

var (
	envFile      string
	fieldsPath   string
	instructions string
	modelName    string
)

var rootCmd = &cobra.Command{
	Use:   "docfields",
	Short: "Extract named fields from documents with a local vision model",
	Long: `docfields renders PDFs and images to page images, asks a vision model served by
Ollama for each requested field with a confidence, and merges the pages into one result.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "vision model (default OLLAMA_MODEL)")
}

// addSpecFlags registers the flags shared by commands that run the pipeline.
func addSpecFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&fieldsPath, "fields", "f", "", "field spec file, JSON or YAML object of key: description (required)")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "additional instructions appended to the prompt")
	_ = cmd.MarkFlagRequired("fields")
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := status.Code(common.ToStatus(err))
		printError("Error [%s]: %v\n", code, err)
		os.Exit(exitCode(code))
	}
}

// exitCode maps the caller-boundary status of a failure onto the process exit code.
func exitCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return 0
	case codes.InvalidArgument, codes.DataLoss:
		return 2
	case codes.NotFound, codes.Unavailable:
		return 3
	case codes.DeadlineExceeded:
		return 4
	case codes.Canceled:
		return 130
	default:
		return 1
	}
}

// app is the wired pipeline shared by the subcommands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	client    *ollama.Client
	processor *pipeline.Processor
}

func loadConfig() (*common.Config, *slog.Logger, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg := common.LoadConfig()
	if modelName != "" {
		cfg.Inference.Model = modelName
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp() (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Info("config.loaded", "config", cfg.String())

	rasterizer := raster.NewRasterizer(raster.ConfigFrom(cfg.Raster), logger)
	client := ollama.NewClient(ollama.ConfigFrom(cfg.Inference), logger)
	return &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		processor: pipeline.NewProcessor(pipeline.ConfigFrom(cfg), rasterizer, client, logger),
	}, nil
}

func loadSpec() (extract.FieldSpec, error) {
	return extract.LoadFieldSpec(fieldsPath)
}

func newLogger(c common.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	// stdout carries results; logs go to stderr
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
