package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/docfields/internal/extract"
)

// Job is one document file to extract.
type Job struct {
	Path        string
	MimeType    string // derived from the extension when empty
	SubmittedAt time.Time
	TraceID     string
}

// Result is delivered once per processed Job.
type Result struct {
	Job      Job
	Doc      extract.DocumentExtraction
	Err      error
	Elapsed  time.Duration
	WorkerID int
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
