package async

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/extract"
	"github.com/joseph-ayodele/docfields/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown started.
var ErrQueueClosed = errors.New("queue is shutting down")

// DocumentProcessor is the part of pipeline.Processor the queue needs.
type DocumentProcessor interface {
	Process(ctx context.Context, req pipeline.Request) (extract.DocumentExtraction, error)
}

// Template carries the request fields shared by every job.
type Template struct {
	Spec         extract.FieldSpec
	Instructions string
	Model        string
}

// DocumentQueue runs documents through a DocumentProcessor on a fixed worker pool.
// Page-level concurrency stays inside the processor; this bounds documents in flight.
type DocumentQueue struct {
	proc     DocumentProcessor
	tmpl     Template
	onResult func(Result)
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// root of every job context; canceled when Shutdown gives up waiting
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*DocumentQueue)(nil)

type Option func(*DocumentQueue)

func WithWorkers(n int) Option {
	return func(q *DocumentQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *DocumentQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *DocumentQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHandler receives every Result. It is called from worker goroutines concurrently.
func WithResultHandler(fn func(Result)) Option {
	return func(q *DocumentQueue) { q.onResult = fn }
}

func NewDocumentQueue(proc DocumentProcessor, tmpl Template, logger *slog.Logger, opts ...Option) *DocumentQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &DocumentQueue{
		proc:    proc,
		tmpl:    tmpl,
		logger:  logger,
		workers: 1,
		timeout: 15 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *DocumentQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					res := q.run(workerID, job)
					if res.Err != nil {
						q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path,
							"trace_id", job.TraceID, "kind", common.Kind(res.Err), "error", res.Err)
					} else {
						q.logger.Info("queue.job.ok", "worker_id", workerID, "path", job.Path,
							"trace_id", job.TraceID, "overall_confidence", res.Doc.OverallConfidence,
							"elapsed_ms", res.Elapsed.Milliseconds())
					}
					if q.onResult != nil {
						q.onResult(res)
					}
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *DocumentQueue) run(workerID int, job Job) Result {
	start := time.Now()
	res := Result{Job: job, WorkerID: workerID}

	data, err := os.ReadFile(job.Path)
	if err != nil {
		res.Err = common.WrapError(err, "read "+job.Path)
		res.Elapsed = time.Since(start)
		return res
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()
	ctx = common.WithRequestID(ctx, job.TraceID)

	res.Doc, res.Err = q.proc.Process(ctx, pipeline.Request{
		Name:         job.Path,
		Data:         data,
		MimeType:     job.MimeType,
		Spec:         q.tmpl.Spec,
		Instructions: q.tmpl.Instructions,
		Model:        q.tmpl.Model,
	})
	res.Elapsed = time.Since(start)
	return res
}

// Enqueue blocks while the buffer is full (backpressure) until ctx is done.
func (q *DocumentQueue) Enqueue(ctx context.Context, job Job) error {
	if job.MimeType == "" {
		job.MimeType = constants.MimeFromExt(filepath.Ext(job.Path))
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.New().String()
	}

	// read lock: many producers may send; Shutdown takes the write lock before closing
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "path", job.Path, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("queue.full.backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for workers to drain the buffer. When ctx ends first,
// in-flight and still-buffered jobs are canceled.
func (q *DocumentQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
	q.cancel()
}
