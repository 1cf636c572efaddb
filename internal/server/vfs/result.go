package vfs

// BatchResult reports the outcome of a multi-key mutation. Cross-key
// operations cannot be atomic on an object store, so callers always get the
// exact set of keys that failed and can retry just that subset.
type BatchResult struct {
	// Total is the number of keys the operation enumerated.
	Total int `json:"total"`

	// Succeeded counts keys fully processed.
	Succeeded int `json:"succeeded"`

	// FailedKeys lists keys that were not processed, either because their
	// own call failed or because an earlier failure aborted the batch.
	FailedKeys []string `json:"failedKeys,omitempty"`
}

// AllOK reports whether every enumerated key was processed.
func (r BatchResult) AllOK() bool {
	return len(r.FailedKeys) == 0
}
