package bulk

import (
	"context"
	"sync"
)

// statusCache memoizes the last-observed status record per id. Job and
// batch ids live in disjoint namespaces but could in principle collide, so
// the Client keeps two independent caches and never merges them.
type statusCache struct {
	mu      sync.Mutex
	entries map[string]map[string]string
}

func newStatusCache() *statusCache {
	return &statusCache{entries: make(map[string]map[string]string)}
}

func (c *statusCache) lookup(id string) (map[string]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries[id]
	return rec, ok
}

// store replaces the whole record for id; partial fields are never merged.
func (c *statusCache) store(id string, rec map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = rec
}

// JobStatus returns the job's status record. A cached record is returned
// as-is unless reload is set; a remote fetch overwrites the cache entry.
func (c *Client) JobStatus(ctx context.Context, jobID string, reload bool) (map[string]string, error) {
	if !reload {
		if rec, ok := c.jobStatus.lookup(jobID); ok {
			return rec, nil
		}
	}

	body, err := c.get(ctx, c.endpoint+"/job/"+jobID)
	if err != nil {
		return nil, err
	}
	rec, err := parseFields(body)
	if err != nil {
		return nil, err
	}

	c.jobStatus.store(jobID, rec)
	return rec, nil
}

// BatchStatus returns the batch's status record, resolving the owning job
// for the request URL. Caching behaves as for JobStatus.
func (c *Client) BatchStatus(ctx context.Context, batchID string, reload bool) (map[string]string, error) {
	if !reload {
		if rec, ok := c.batchStatus.lookup(batchID); ok {
			return rec, nil
		}
	}

	jobID, err := c.registry.jobForBatch(batchID)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, c.endpoint+"/job/"+jobID+"/batch/"+batchID)
	if err != nil {
		return nil, err
	}
	rec, err := parseFields(body)
	if err != nil {
		return nil, err
	}

	c.batchStatus.store(batchID, rec)
	return rec, nil
}
