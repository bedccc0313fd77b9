// Package report collects per-case results and writes the run's machine
// readable outputs: report.json and junit.xml. Rendering to HTML or Allure
// happens downstream in CI; this package only produces the data.
package report

import (
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/widgetprobe/internal/failure"
)

// Status is the outcome of a single case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// CaseResult records one executed case on one browser project.
type CaseResult struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Category string        `json:"category"`
	Browser  string        `json:"browser"`
	Viewport string        `json:"viewport"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Attempts int           `json:"attempts"`
	// Failure is nil for passed cases.
	Failure *failure.ClassifiedError `json:"failure,omitempty"`
	// Artifacts are the relative paths of captured diagnostic files.
	Artifacts []string `json:"artifacts,omitempty"`
}

// Summary accumulates results for one run. Add is safe for concurrent use;
// everything else expects the run to have finished.
type Summary struct {
	RunID      string       `json:"run_id"`
	Target     string       `json:"target"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Cases      []CaseResult `json:"cases"`

	mu sync.Mutex
}

// NewSummary starts an empty summary for the given run.
func NewSummary(runID, target string) *Summary {
	return &Summary{RunID: runID, Target: target, StartedAt: time.Now().UTC()}
}

// Add appends one case result.
func (s *Summary) Add(r CaseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cases = append(s.Cases, r)
}

// Finish stamps the end time.
func (s *Summary) Finish() {
	s.FinishedAt = time.Now().UTC()
}

// Passed counts cases with StatusPassed.
func (s *Summary) Passed() int { return s.count(StatusPassed) }

// Failed counts cases with StatusFailed.
func (s *Summary) Failed() int { return s.count(StatusFailed) }

func (s *Summary) count(st Status) int {
	n := 0
	for _, c := range s.Cases {
		if c.Status == st {
			n++
		}
	}
	return n
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON writes the summary as indented JSON.
func (s *Summary) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
