package bulk

import (
	"context"
	"fmt"
	"strings"

	"sfbulk/pkg/dataset"
)

// ResultIDs waits for the query job's single batch and returns the ids of
// its result segments in the order the server lists them. That order, not
// submission order, governs concatenation.
func (c *Client) ResultIDs(ctx context.Context, jobID string) ([]string, error) {
	ids, err := c.registry.batchList(jobID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("bulk: %w: %s", ErrNoBatches, jobID)
	}
	batchID := ids[0]

	done, err := c.WaitForBatch(ctx, batchID, 0, 0)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("bulk: batch %s of job %s still pending after wait window", batchID, jobID)
	}

	body, err := c.get(ctx, c.endpoint+"/job/"+jobID+"/batch/"+batchID+"/result")
	if err != nil {
		return nil, err
	}
	resultIDs, err := parseResultIDs(body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("query result segments listed",
		"job_id", jobID, "count", len(resultIDs), "result_ids", strings.Join(resultIDs, ", "))
	return resultIDs, nil
}

// ResultSegment downloads one result segment of a query batch as a dataset.
func (c *Client) ResultSegment(ctx context.Context, jobID, batchID, resultID string) (dataset.Dataset, error) {
	c.log.Debug("downloading result segment", "result_id", resultID)

	body, err := c.get(ctx, c.endpoint+"/job/"+jobID+"/batch/"+batchID+"/result/"+resultID)
	if err != nil {
		return dataset.Dataset{}, err
	}
	return dataset.ParseCSV(string(body))
}

// QueryResults waits for the query job's single batch, downloads every
// result segment in server-listed order, and concatenates them into one
// dataset, preserving row order within and across segments. The final job
// status is fetched afterwards for reporting.
func (c *Client) QueryResults(ctx context.Context, jobID string) (dataset.Dataset, error) {
	resultIDs, err := c.ResultIDs(ctx, jobID)
	if err != nil {
		return dataset.Dataset{}, err
	}

	ids, err := c.registry.batchList(jobID)
	if err != nil {
		return dataset.Dataset{}, err
	}
	batchID := ids[0]

	parts := make([]dataset.Dataset, 0, len(resultIDs))
	for _, resultID := range resultIDs {
		part, err := c.ResultSegment(ctx, jobID, batchID, resultID)
		if err != nil {
			return dataset.Dataset{}, err
		}
		parts = append(parts, part)
	}

	c.logJobSummary(ctx, jobID)
	return dataset.Concat(parts...), nil
}

// BatchResult downloads the single result set of a CSV-operation batch.
func (c *Client) BatchResult(ctx context.Context, jobID, batchID string) (dataset.Dataset, error) {
	c.log.Debug("downloading batch result", "batch_id", batchID)

	if rec, err := c.BatchStatus(ctx, batchID, false); err == nil {
		c.log.Debug("batch status at download", "batch_id", batchID, "state", rec["state"])
	}

	body, err := c.get(ctx, c.endpoint+"/job/"+jobID+"/batch/"+batchID+"/result")
	if err != nil {
		return dataset.Dataset{}, err
	}
	return dataset.ParseCSV(string(body))
}

// OperationResults waits for the whole job, then downloads exactly one
// result set per batch in registration order and concatenates them in that
// order.
func (c *Client) OperationResults(ctx context.Context, jobID string) (dataset.Dataset, error) {
	done, err := c.WaitForJob(ctx, jobID, 0, 0)
	if err != nil {
		return dataset.Dataset{}, err
	}
	if !done {
		return dataset.Dataset{}, fmt.Errorf("bulk: job %s still pending after wait window", jobID)
	}

	ids, err := c.registry.batchList(jobID)
	if err != nil {
		return dataset.Dataset{}, err
	}

	parts := make([]dataset.Dataset, 0, len(ids))
	for _, batchID := range ids {
		part, err := c.BatchResult(ctx, jobID, batchID)
		if err != nil {
			return dataset.Dataset{}, err
		}
		parts = append(parts, part)
	}

	c.logJobSummary(ctx, jobID)
	return dataset.Concat(parts...), nil
}

func (c *Client) logJobSummary(ctx context.Context, jobID string) {
	rec, err := c.JobStatus(ctx, jobID, false)
	if err != nil {
		c.log.Warn("could not fetch final job status", "job_id", jobID, "err", err)
		return
	}
	kv := make([]any, 0, 2+2*len(rec))
	kv = append(kv, "job_id", jobID)
	for k, v := range rec {
		kv = append(kv, k, v)
	}
	c.log.Debug("job results summary", kv...)
}
