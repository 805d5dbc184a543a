package bulk

import (
	"fmt"
	"sync"
)

// jobRegistry tracks every job created through one Client and, per job, the
// batch ids in submission order. Batch lists are append-only; submission
// order is the order used for result concatenation. State is owned by the
// Client instance, so separate Clients never interfere.
type jobRegistry struct {
	mu      sync.Mutex
	order   []string
	batches map[string][]string
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{batches: make(map[string][]string)}
}

func (r *jobRegistry) register(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batches[jobID]; ok {
		return fmt.Errorf("bulk: %w: %s", ErrDuplicateJob, jobID)
	}
	r.order = append(r.order, jobID)
	r.batches[jobID] = nil
	return nil
}

func (r *jobRegistry) appendBatch(jobID, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batches[jobID]; !ok {
		return fmt.Errorf("bulk: %w: %s", ErrUnknownJob, jobID)
	}
	r.batches[jobID] = append(r.batches[jobID], batchID)
	return nil
}

// batchList returns a copy of the job's batch ids in submission order.
func (r *jobRegistry) batchList(jobID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.batches[jobID]
	if !ok {
		return nil, fmt.Errorf("bulk: %w: %s", ErrUnknownJob, jobID)
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// jobForBatch finds the job owning a batch id. Every id returned by a
// submission must resolve; a miss is a bookkeeping bug, not a transient
// condition.
func (r *jobRegistry) jobForBatch(batchID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, jobID := range r.order {
		for _, id := range r.batches[jobID] {
			if id == batchID {
				return jobID, nil
			}
		}
	}
	return "", fmt.Errorf("bulk: %w: %s", ErrUnknownBatch, batchID)
}

func (r *jobRegistry) jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
