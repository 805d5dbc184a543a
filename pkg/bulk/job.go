package bulk

import (
	"context"
	"fmt"
	"regexp"

	"sfbulk/pkg/dataset"
)

var soqlObjectRe = regexp.MustCompile(`(?i)FROM (\w+)`)

// CreateJob validates the config, posts the jobInfo document, and registers
// the returned job id with an empty batch list.
func (c *Client) CreateJob(ctx context.Context, cfg JobConfig) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}

	body, err := c.post(ctx, c.endpoint+"/job", "", jobDoc(jobFields(cfg)))
	if err != nil {
		return "", err
	}

	fields, err := parseFields(body)
	if err != nil {
		return "", err
	}
	jobID := fields["id"]
	if jobID == "" {
		return "", fmt.Errorf("bulk: job creation response carries no id")
	}

	if err := c.registry.register(jobID); err != nil {
		return "", err
	}

	c.log.Debug("created job",
		"operation", cfg.Operation, "object", cfg.Object, "job_id", jobID)
	return jobID, nil
}

// CloseJob transitions the job to Closed. No further batches may be added
// afterwards; the remote side enforces this, not the client.
func (c *Client) CloseJob(ctx context.Context, jobID string) error {
	if err := c.setJobState(ctx, jobID, "Closed"); err != nil {
		return err
	}
	c.log.Debug("closed job", "job_id", jobID)
	return nil
}

// AbortJob transitions the job to Aborted.
func (c *Client) AbortJob(ctx context.Context, jobID string) error {
	if err := c.setJobState(ctx, jobID, "Aborted"); err != nil {
		return err
	}
	c.log.Debug("aborted job", "job_id", jobID)
	return nil
}

func (c *Client) setJobState(ctx context.Context, jobID, state string) error {
	_, err := c.post(ctx, c.endpoint+"/job/"+jobID, "", stateDoc(state))
	return err
}

// SubmitQuery posts the query text as the job's single batch, closes the
// job, and registers the batch id.
func (c *Client) SubmitQuery(ctx context.Context, jobID, soql string) (string, error) {
	batchID, err := c.submitBatch(ctx, jobID, []byte(soql))
	if err != nil {
		return "", err
	}

	if err := c.CloseJob(ctx, jobID); err != nil {
		return "", err
	}
	if err := c.registry.appendBatch(jobID, batchID); err != nil {
		return "", err
	}

	c.log.Debug("submitted query batch", "job_id", jobID, "batch_id", batchID)
	return batchID, nil
}

// Query creates a CSV query job for the object named in the SOQL FROM
// clause, submits the query as its single batch, and returns the job id.
func (c *Client) Query(ctx context.Context, soql string) (string, error) {
	m := soqlObjectRe.FindStringSubmatch(soql)
	if m == nil {
		return "", fmt.Errorf("bulk: cannot find object in query %q", soql)
	}
	c.log.Debug("running SOQL query", "soql", soql)

	jobID, err := c.CreateJob(ctx, JobConfig{
		Operation:   OpQuery,
		Object:      m[1],
		ContentType: "CSV",
	})
	if err != nil {
		return "", err
	}

	if _, err := c.SubmitQuery(ctx, jobID, soql); err != nil {
		return "", err
	}
	return jobID, nil
}

// SubmitData chunks the dataset, submits each chunk as a batch in order,
// registering each id as it is assigned, and optionally closes the job
// after the last chunk. It returns the job's full batch id list in
// submission order.
func (c *Client) SubmitData(ctx context.Context, jobID string, ds dataset.Dataset, closeJob bool) ([]string, error) {
	chunks, err := dataset.Chunk(ds, c.batchSize)
	if err != nil {
		return nil, err
	}

	for i, chunk := range chunks {
		text, err := chunk.MarshalCSV()
		if err != nil {
			return nil, err
		}

		batchID, err := c.submitBatch(ctx, jobID, []byte(text))
		if err != nil {
			return nil, err
		}
		if err := c.registry.appendBatch(jobID, batchID); err != nil {
			return nil, err
		}

		c.log.Debug("added batch to job",
			"batch_id", batchID, "n", i+1, "of", len(chunks), "job_id", jobID)
	}

	if closeJob {
		if err := c.CloseJob(ctx, jobID); err != nil {
			return nil, err
		}
	}
	return c.registry.batchList(jobID)
}

// submitBatch posts raw delimited text (or query text) to the job's batch
// collection and returns the batch id the server assigned.
func (c *Client) submitBatch(ctx context.Context, jobID string, payload []byte) (string, error) {
	body, err := c.post(ctx, c.endpoint+"/job/"+jobID+"/batch", csvContentType, payload)
	if err != nil {
		return "", err
	}

	fields, err := parseFields(body)
	if err != nil {
		return "", err
	}
	batchID := fields["id"]
	if batchID == "" {
		return "", fmt.Errorf("bulk: batch submission response carries no id")
	}
	return batchID, nil
}
