// Package runstate defines the shared record threaded through the entire
// orchestration graph and the two reducers ("additive" and "singleton")
// used to merge concurrent partial updates into it. Fields are tagged the
// way schema.FromType reads json tags by reflection (see apply.go); no
// field is ever mutated in place, matching the no-in-place-mutation rule
// in SPEC_FULL's concurrency model.
package runstate

import (
	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
)

// RunState is the single typed record every node observes a snapshot of
// and returns partial updates against. The graph engine (orchestrator)
// merges those partial updates field-by-field using the reducer each
// field's struct tag names.
type RunState struct {
	// Set once by Agent A's setup_session node; last-writer-wins, but in
	// practice written exactly once per I1.
	SessionID string            `runstate:"singleton"`
	Session   domainmodel.Session `runstate:"singleton"`

	PagesToProcess int `runstate:"singleton"`

	ExtractedImages []domainmodel.ExtractedImage `runstate:"additive"`
	ExtractedURLs   []domainmodel.ExtractedURL   `runstate:"additive"`

	Missions             []domainmodel.InvestigationMission `runstate:"additive"`
	MissionReports       []domainmodel.MissionReport         `runstate:"additive"`
	MasterEvidenceGraph  domainmodel.EvidenceGraph            `runstate:"singleton"`
	StaticAnalysisReport *domainmodel.StaticAnalysisFinalReport `runstate:"singleton"`

	VisualAnalysisReport *domainmodel.ImageAnalysisReport `runstate:"singleton"`

	PrioritizedURLs    []domainmodel.PrioritizedURL      `runstate:"additive"`
	URLAnalysisResults []domainmodel.URLAnalysisResult    `runstate:"additive"`

	FinalVerdict *domainmodel.FinalVerdict `runstate:"singleton"`
	FinalReport  string                    `runstate:"singleton"`

	Errors []*corerr.Error `runstate:"additive"`
}

// New returns a zero-value RunState with its slice and map fields
// initialized, ready to accept the first partial update.
func New() *RunState {
	return &RunState{
		ExtractedImages:     []domainmodel.ExtractedImage{},
		ExtractedURLs:       []domainmodel.ExtractedURL{},
		Missions:            []domainmodel.InvestigationMission{},
		MissionReports:      []domainmodel.MissionReport{},
		MasterEvidenceGraph: domainmodel.NewEvidenceGraph(),
		PrioritizedURLs:     []domainmodel.PrioritizedURL{},
		URLAnalysisResults:  []domainmodel.URLAnalysisResult{},
		Errors:              []*corerr.Error{},
	}
}

// AppendError is a convenience wrapper nodes use to record a non-fatal
// failure without hand-constructing a one-field Partial.
func AppendError(err *corerr.Error) *Partial {
	return &Partial{Errors: []*corerr.Error{err}}
}
