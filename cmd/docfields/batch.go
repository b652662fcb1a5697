package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docfields/internal/async"
	"github.com/joseph-ayodele/docfields/internal/export"
	"github.com/joseph-ayodele/docfields/internal/extract"
	"github.com/joseph-ayodele/docfields/internal/ingest"
)

var (
	batchDir           string
	batchOut           string
	batchWorkers       int
	batchExts          []string
	batchIncludeHidden bool
	batchTimeout       time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract fields from every document in a directory and write an XLSX summary",
	RunE:  runBatch,
}

func init() {
	addSpecFlags(batchCmd)
	batchCmd.Flags().StringVarP(&batchDir, "dir", "d", "", "directory to scan recursively (required)")
	batchCmd.Flags().StringVarP(&batchOut, "output", "o", "", "XLSX output path (default <dir>/docfields.xlsx)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 1, "documents processed concurrently")
	batchCmd.Flags().StringSliceVar(&batchExts, "ext", nil, "only these extensions (default: every supported type)")
	batchCmd.Flags().BoolVar(&batchIncludeHidden, "include-hidden", false, "include dot files and directories")
	batchCmd.Flags().DurationVar(&batchTimeout, "doc-timeout", 15*time.Minute, "time limit per document")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}

// collector gathers queue results for the XLSX export.
type collector struct {
	mu   sync.Mutex
	rows []export.Row
}

func (c *collector) add(res async.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, export.Row{Path: res.Job.Path, Doc: res.Doc, Err: res.Err})
}

// sorted returns a snapshot ordered by path.
func (c *collector) sorted() []export.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]export.Row(nil), c.rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func writeWorkbook(spec extract.FieldSpec, rows []export.Row, path string, a *app) error {
	data, err := export.WriteXLSX(spec, rows, a.logger)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	spec, err := loadSpec()
	if err != nil {
		return err
	}
	if batchOut == "" {
		batchOut = filepath.Join(batchDir, "docfields.xlsx")
	}

	docs, stats, err := ingest.ScanDirectory(ctx, batchDir, batchExts, !batchIncludeHidden, a.logger)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		a.logger.Warn("batch.empty", "dir", batchDir, "scanned", stats.Scanned)
		return nil
	}

	start := time.Now()
	results := &collector{}
	q := async.NewDocumentQueue(a.processor, async.Template{Spec: spec, Instructions: instructions}, a.logger,
		async.WithWorkers(batchWorkers),
		async.WithQueueSize(len(docs)),
		async.WithProcessTimeout(batchTimeout),
		async.WithResultHandler(results.add),
	)
	for _, d := range docs {
		if err := q.Enqueue(ctx, async.Job{Path: d.Path, MimeType: d.MimeType}); err != nil {
			a.logger.Error("batch.enqueue.failed", "path", d.Path, "error", err)
			break
		}
	}
	q.Shutdown(ctx)

	rows := results.sorted()
	failures := 0
	for _, r := range rows {
		if r.Err != nil {
			failures++
		}
	}
	if err := writeWorkbook(spec, rows, batchOut, a); err != nil {
		return err
	}

	a.logger.Info("batch.done",
		"documents", len(docs),
		"processed", len(rows),
		"failures", failures,
		"output", batchOut,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ctx.Err()
}
