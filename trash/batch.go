package trash

// BatchFailure names one id that failed within a batch and why.
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult enumerates the outcome of a batch operation. Success is false
// when any id failed, but every successful sub-operation stays applied.
type BatchResult struct {
	Success   bool           `json:"success"`
	Succeeded []string       `json:"succeeded,omitempty"`
	Failed    []BatchFailure `json:"failed,omitempty"`
}

// BatchMoveToTrash trashes each id in turn, continuing past individual
// failures.
func (b *Bin) BatchMoveToTrash(ids []string) BatchResult {
	result := BatchResult{Success: true}
	for _, id := range ids {
		if err := b.MoveToTrash(id); err != nil {
			result.Success = false
			result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}

// BatchRestore restores each id in turn, continuing past individual
// failures. The options apply to every id; a per-id parent override is not a
// batch concern.
func (b *Bin) BatchRestore(ids []string, opts RestoreOptions) BatchResult {
	result := BatchResult{Success: true}
	for _, id := range ids {
		if err := b.RestoreFromTrash(id, opts); err != nil {
			result.Success = false
			result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}
