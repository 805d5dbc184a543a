package bulk

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for local bookkeeping failures, classified via errors.Is().
// These indicate a usage or consistency bug, never a transient remote
// condition.
var (
	ErrDuplicateJob = errors.New("job already registered")
	ErrUnknownJob   = errors.New("unknown job")
	ErrUnknownBatch = errors.New("unknown batch")
	ErrNoBatches    = errors.New("job has no batches")
)

// APIError is any HTTP-level failure (status >= 400) from the Bulk API.
// It carries the status code and the raw response body and is never
// retried automatically.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bulk: API error (%d): %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// BatchError reports a batch that reached a terminal error state. It is
// deterministic and terminal; polling the batch again cannot clear it.
type BatchError struct {
	JobID   string
	BatchID string
	Message string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("bulk: batch %s of job %s failed: %s", e.BatchID, e.JobID, e.Message)
}
