package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/raster"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		path    = flag.String("file", "", "document to rasterize (required)")
		outDir  = flag.String("out", "", "write page images into this directory")
		backend = flag.String("backend", "", "PDF backend: fitz or pdftoppm (default RASTER_BACKEND)")
		dpi     = flag.Int("dpi", 0, "render DPI (default RASTER_DPI)")
		maxDim  = flag.Int("max-dim", 0, "max page edge in pixels (default RASTER_MAX_DIMENSION)")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall time limit")
	)
	flag.Parse()

	if *path == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if *backend != "" {
		cfg.Raster.Backend = *backend
	}
	if *dpi > 0 {
		cfg.Raster.DPI = *dpi
	}
	if *maxDim > 0 {
		cfg.Raster.MaxDimension = *maxDim
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	data, err := os.ReadFile(*path)
	if err != nil {
		printError("Error: read %s: %v\n", *path, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	z := raster.NewRasterizer(raster.ConfigFrom(cfg.Raster), logger)
	pages, err := z.Rasterize(ctx, data, constants.MimeFromExt(filepath.Ext(*path)))
	if err != nil {
		printError("Error: %s: %v\n", common.Kind(err), err)
		os.Exit(2)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tSIZE\tMIME\tBYTES\tDPI\tQUALITY")
	for _, p := range pages {
		fmt.Fprintf(w, "%d\t%dx%d\t%s\t%d\t%d\t%d\n", p.Index+1, p.Width, p.Height, p.MimeType, len(p.Data), p.DPI, p.JPEGQuality)
		if *outDir == "" {
			continue
		}
		ext := ".jpg"
		if strings.HasSuffix(p.MimeType, "png") {
			ext = ".png"
		}
		name := filepath.Join(*outDir, fmt.Sprintf("page-%03d%s", p.Index+1, ext))
		if err := os.WriteFile(name, p.Data, 0o644); err != nil {
			logger.Error("rasterize.write_failed", "path", name, "error", err)
		}
	}
	_ = w.Flush()
	logger.Info("rasterize.done", "pages", len(pages), "elapsed_ms", time.Since(start).Milliseconds())
}
