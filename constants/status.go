package constants

// PageStatus is the outcome of one page's prompt/inference/parse sequence.
type PageStatus string

const (
	PageStatusOK       PageStatus = "OK"       // model answered and JSON was recovered
	PageStatusDegraded PageStatus = "DEGRADED" // model answered but no JSON was recoverable
	PageStatusFailed   PageStatus = "FAILED"   // inference unavailable after retries
)
