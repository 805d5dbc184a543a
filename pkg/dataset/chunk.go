package dataset

import "fmt"

// Chunk splits the dataset into contiguous, non-overlapping pieces of at
// most size rows each, preserving row order. Concatenating the chunks in
// order reproduces the input exactly. A dataset with zero rows yields zero
// chunks. Chunks share the header and the backing row slices with the
// input; the input is never mutated.
func Chunk(d Dataset, size int) ([]Dataset, error) {
	if size <= 0 {
		return nil, fmt.Errorf("dataset: chunk size must be positive, got %d", size)
	}

	var chunks []Dataset
	for start := 0; start < len(d.Rows); start += size {
		end := start + size
		if end > len(d.Rows) {
			end = len(d.Rows)
		}
		chunks = append(chunks, Dataset{Columns: d.Columns, Rows: d.Rows[start:end]})
	}
	return chunks, nil
}
