package resilience

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// FailureEntry records one patent that could not be resolved or annotated,
// persisted to a JSON side file for manual triage.
type FailureEntry struct {
	RunID     string    `json:"run_id"`
	PatentID  string    `json:"patent_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Stage     string    `json:"stage"`
	Error     string    `json:"error"`
	ErrorType string    `json:"error_type"` // "transient" or "permanent"
	FailedAt  time.Time `json:"failed_at"`
}

// FailureLog accumulates failure entries for one run and flushes them to a
// side file. Not safe for concurrent use; the stage driver owns it.
type FailureLog struct {
	runID   string
	stage   string
	entries []FailureEntry
}

// NewFailureLog creates a failure log for one stage run.
func NewFailureLog(stage string) *FailureLog {
	return &FailureLog{
		runID: uuid.NewString(),
		stage: stage,
	}
}

// RunID returns the unique id for this run.
func (l *FailureLog) RunID() string { return l.runID }

// Add records a failed patent.
func (l *FailureLog) Add(patentID, url string, err error) {
	l.entries = append(l.entries, FailureEntry{
		RunID:     l.runID,
		PatentID:  patentID,
		URL:       url,
		Stage:     l.stage,
		Error:     err.Error(),
		ErrorType: ClassifyError(err),
		FailedAt:  time.Now().UTC(),
	})
}

// Len returns the number of recorded failures.
func (l *FailureLog) Len() int { return len(l.entries) }

// Flush writes the entries as a JSON array to path. Nothing is written when
// no failures were recorded.
func (l *FailureLog) Flush(path string) error {
	if len(l.entries) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "faillog: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "faillog: write %s", path)
	}
	return nil
}
