package bulk

import (
	"context"
	"fmt"
	"time"
)

// Default wait windows, used when WaitForBatch/WaitForJob receive a zero
// timeout or interval.
const (
	DefaultBatchTimeout  = 10 * time.Minute
	DefaultBatchInterval = 10 * time.Second
	DefaultJobTimeout    = time.Hour
	DefaultJobInterval   = 30 * time.Second
)

// CheckBatch reports the batch's current progress. A batch already cached
// as Completed is answered from the cache without a remote call; otherwise
// the status is force-reloaded. Terminal error states are returned as a
// plain BatchProgress value, not an error.
func (c *Client) CheckBatch(ctx context.Context, batchID string) (BatchProgress, error) {
	if rec, ok := c.batchStatus.lookup(batchID); ok {
		if BatchState(rec["state"]) == BatchCompleted {
			c.log.Debug("batch completed previously", "batch_id", batchID)
			return BatchProgress{State: BatchCompleted}, nil
		}
	}

	rec, err := c.BatchStatus(ctx, batchID, true)
	if err != nil {
		return BatchProgress{}, err
	}
	return BatchProgress{State: BatchState(rec["state"]), Message: rec["stateMessage"]}, nil
}

// BatchDone reports whether the batch reached terminal success. A terminal
// error state surfaces as a *BatchError carrying the owning job id, the
// batch id, and the remote state message; it is deterministic and is not
// retried.
func (c *Client) BatchDone(ctx context.Context, batchID string) (bool, error) {
	progress, err := c.CheckBatch(ctx, batchID)
	if err != nil {
		return false, err
	}

	if progress.Failed() {
		jobID, err := c.registry.jobForBatch(batchID)
		if err != nil {
			return false, err
		}
		batchErr := &BatchError{JobID: jobID, BatchID: batchID, Message: progress.Message}
		c.log.Error("batch failed",
			"job_id", jobID, "batch_id", batchID, "state_message", progress.Message)
		return false, batchErr
	}

	c.log.Debug("checked batch", "batch_id", batchID, "complete", progress.Done())
	return progress.Done(), nil
}

// JobDone reports whether every batch of the job is complete. Batches are
// checked in registration order and the check short-circuits at the first
// batch that is not done; later batches are not polled in that call. A
// failed batch propagates as *BatchError.
func (c *Client) JobDone(ctx context.Context, jobID string) (bool, error) {
	ids, err := c.registry.batchList(jobID)
	if err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, fmt.Errorf("bulk: %w: %s", ErrNoBatches, jobID)
	}

	for i, batchID := range ids {
		c.log.Debug("checking batch status",
			"batch_id", batchID, "n", i+1, "of", len(ids))
		done, err := c.BatchDone(ctx, batchID)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}

// WaitForBatch polls the batch until it completes, fails, or the timeout
// window elapses. Timeout is not an error: the return is (false, nil) and
// the caller decides what a still-pending batch means. Context cancellation
// returns ctx.Err(). Zero timeout or interval selects the client's
// configured poll settings, then the package defaults.
func (c *Client) WaitForBatch(ctx context.Context, batchID string, timeout, interval time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = pick(c.pollTimeout, DefaultBatchTimeout)
	}
	if interval <= 0 {
		interval = pick(c.pollInterval, DefaultBatchInterval)
	}
	return c.waitFor(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		return c.BatchDone(ctx, batchID)
	})
}

// WaitForJob polls the whole job the same way WaitForBatch polls one batch,
// with the same silent-timeout contract.
func (c *Client) WaitForJob(ctx context.Context, jobID string, timeout, interval time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = pick(c.pollTimeout, DefaultJobTimeout)
	}
	if interval <= 0 {
		interval = pick(c.pollInterval, DefaultJobInterval)
	}
	return c.waitFor(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		return c.JobDone(ctx, jobID)
	})
}

// pick returns the configured override when set, the fallback otherwise.
func pick(configured, fallback time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	return fallback
}

func (c *Client) waitFor(ctx context.Context, timeout, interval time.Duration, check func(context.Context) (bool, error)) (bool, error) {
	var waited time.Duration
	for {
		done, err := check(ctx)
		if done || err != nil {
			return done, err
		}
		if waited >= timeout {
			return false, nil
		}

		c.log.Debug("waiting", "interval", interval, "waited", waited)
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
		waited += interval
	}
}
