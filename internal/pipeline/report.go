package pipeline

import (
	"time"

	"git.home.luguber.info/inful/deepwiki/internal/guard"
	"git.home.luguber.info/inful/deepwiki/internal/postprocess"
)

// PageReport records one page's synthesis and validation outcome.
type PageReport struct {
	Slug    string
	RelPath string
	Tier    string
	Retries int
	// Warnings are relaxed budget violations; Defects are postprocessing
	// findings. A page with unrepaired defects is emitted with its report
	// rather than silently, and never blocks sibling pages.
	Warnings []string
	Defects  []postprocess.Defect
}

// Valid reports whether the page passed validation cleanly.
func (p *PageReport) Valid() bool {
	for _, d := range p.Defects {
		if !d.Repaired {
			return false
		}
	}
	return true
}

// Report aggregates a whole pipeline run for operator output.
type Report struct {
	RunID          string
	Started        time.Time
	Duration       time.Duration
	StageDurations map[string]time.Duration
	Pages          []PageReport
	Guards         []guard.Result
	Warnings       []error
	Errors         []error
}

func newReport(runID string) *Report {
	return &Report{
		RunID:          runID,
		Started:        time.Now(),
		StageDurations: map[string]time.Duration{},
	}
}

// DefectivePages returns the reports of pages that failed validation.
func (r *Report) DefectivePages() []PageReport {
	var out []PageReport
	for _, p := range r.Pages {
		if !p.Valid() {
			out = append(out, p)
		}
	}
	return out
}
