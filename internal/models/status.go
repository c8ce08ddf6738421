package models

// WorkingStatus is the transient state of a working directory, recomputed
// on demand and never persisted.
type WorkingStatus struct {
	Dirty bool     `json:"dirty"`
	Files []string `json:"files,omitempty"`
}

// NewWorkingStatus builds a status from the affected paths
func NewWorkingStatus(files []string) WorkingStatus {
	return WorkingStatus{Dirty: len(files) > 0, Files: files}
}
