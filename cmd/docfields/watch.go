package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docfields/internal/async"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/ingest"
)

var (
	watchDirs     []string
	watchOut      string
	watchWorkers  int
	watchExisting bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Extract fields from documents as they appear in watched directories",
	Long: `watch prints one JSON line per processed document. With --output the XLSX summary
is rewritten after every document.`,
	RunE: runWatch,
}

func init() {
	addSpecFlags(watchCmd)
	watchCmd.Flags().StringSliceVarP(&watchDirs, "dir", "d", nil, "directories to watch recursively (required)")
	watchCmd.Flags().StringVarP(&watchOut, "output", "o", "", "XLSX summary rewritten after each document")
	watchCmd.Flags().IntVarP(&watchWorkers, "workers", "w", 1, "documents processed concurrently")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also process files already present")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a new file is picked up")
	_ = watchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(watchCmd)
}

type watchLine struct {
	Path      string          `json:"path"`
	TraceID   string          `json:"trace_id"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Code      string          `json:"code,omitempty"`
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	docs, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       watchDirs,
		SkipHidden:  true,
		InitialScan: watchExisting,
		Debounce:    watchDebounce,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}

	results := &collector{}
	enc := json.NewEncoder(cmd.OutOrStdout())
	handle := make(chan async.Result)
	stopWriter := make(chan struct{})
	q := async.NewDocumentQueue(a.processor, async.Template{Spec: spec, Instructions: instructions}, a.logger,
		async.WithWorkers(watchWorkers),
		async.WithResultHandler(func(r async.Result) {
			select {
			case handle <- r:
			case <-stopWriter:
			}
		}),
	)

	// single writer for stdout and the workbook
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var r async.Result
			select {
			case r = <-handle:
			case <-stopWriter:
				return
			}
			line := watchLine{Path: r.Job.Path, TraceID: r.Job.TraceID, ElapsedMS: r.Elapsed.Milliseconds()}
			if r.Err != nil {
				line.Error, line.Kind = r.Err.Error(), common.Kind(r.Err)
				line.Code = status.Code(common.ToStatus(r.Err)).String()
			} else if raw, err := json.Marshal(r.Doc); err == nil {
				line.Result = raw
			}
			if err := enc.Encode(line); err != nil {
				a.logger.Warn("watch.output.failed", "error", err)
			}
			if watchOut != "" {
				results.add(r)
				if err := writeWorkbook(spec, results.sorted(), watchOut, a); err != nil {
					a.logger.Error("watch.export.failed", "output", watchOut, "error", err)
				}
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case d, ok := <-docs:
			if !ok {
				break loop
			}
			if err := q.Enqueue(ctx, async.Job{Path: d.Path, MimeType: d.MimeType}); err != nil {
				a.logger.Warn("watch.enqueue.failed", "path", d.Path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watch.error", "error", err)
		}
	}

	a.logger.Info("watch.stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)
	close(stopWriter)
	<-done
	return nil
}
