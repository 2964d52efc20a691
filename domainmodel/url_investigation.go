package domainmodel

import "fmt"

// MissionStatus is a PrioritizedURL's investigation lifecycle state.
type MissionStatus string

const (
	URLStatusNew         MissionStatus = "NEW"
	URLStatusInProgress  MissionStatus = "IN_PROGRESS"
	URLStatusCompleted   MissionStatus = "COMPLETED"
	URLStatusFailed      MissionStatus = "FAILED"
	URLStatusNotRelevant MissionStatus = "NOT_RELEVANT"
)

// urlTransitions enumerates the only legal status transitions per I3: NEW
// may move to IN_PROGRESS or NOT_RELEVANT; IN_PROGRESS may move to COMPLETED
// or FAILED; terminal states never move again.
var urlTransitions = map[MissionStatus]map[MissionStatus]bool{
	URLStatusNew: {
		URLStatusInProgress:  true,
		URLStatusNotRelevant: true,
	},
	URLStatusInProgress: {
		URLStatusCompleted: true,
		URLStatusFailed:    true,
	},
}

// CanTransitionURLStatus reports whether moving a PrioritizedURL from from
// to to is a legal forward transition under I3.
func CanTransitionURLStatus(from, to MissionStatus) bool {
	if from == to {
		return true
	}
	return urlTransitions[from][to]
}

// PrioritizedURL is a URL with Agent C's triage context, mutated only by
// replacement (never in place) as Agent D advances its status.
type PrioritizedURL struct {
	URL           string        `json:"url"`
	PageIndex     int           `json:"page_index"`
	Priority      int           `json:"priority"`
	Reason        string        `json:"reason"`
	SourceContext string        `json:"source_context"`
	MissionStatus MissionStatus `json:"mission_status"`
}

func (p PrioritizedURL) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	if p.Priority < 1 || p.Priority > 10 {
		return fmt.Errorf("priority must be in 1..10, got %d", p.Priority)
	}
	switch p.MissionStatus {
	case URLStatusNew, URLStatusInProgress, URLStatusCompleted, URLStatusFailed, URLStatusNotRelevant:
	default:
		return fmt.Errorf("unknown mission_status %q", p.MissionStatus)
	}
	return nil
}

// WithStatus returns a copy of p with MissionStatus advanced to next,
// rejecting any transition not permitted by I3.
func (p PrioritizedURL) WithStatus(next MissionStatus) (PrioritizedURL, error) {
	if !CanTransitionURLStatus(p.MissionStatus, next) {
		return PrioritizedURL{}, fmt.Errorf("illegal transition %s -> %s for url %q", p.MissionStatus, next, p.URL)
	}
	out := p
	out.MissionStatus = next
	return out, nil
}

// URLVerdict is the terminal classification an analyst assigns to one URL.
type URLVerdict string

const (
	URLVerdictBenign       URLVerdict = "Benign"
	URLVerdictSuspicious   URLVerdict = "Suspicious"
	URLVerdictMalicious    URLVerdict = "Malicious"
	URLVerdictInaccessible URLVerdict = "Inaccessible"
)

// AnalystMissionStatus is the narrower completed/failed status AnalystFindings
// carries, distinct from PrioritizedURL.MissionStatus's five-state lifecycle.
type AnalystMissionStatus string

const (
	AnalystStatusCompleted AnalystMissionStatus = "completed"
	AnalystStatusFailed    AnalystMissionStatus = "failed"
)

// AnalystFindings is Agent D's structured per-URL synthesis, produced by
// analyze_url_content from one investigator's transcript.
type AnalystFindings struct {
	FinalURL          string                `json:"final_url"`
	Verdict           URLVerdict            `json:"verdict"`
	Confidence        float64               `json:"confidence"`
	Summary           string                `json:"summary"`
	DetectedThreats   []string              `json:"detected_threats,omitempty"`
	DomainWhoisRecord string                `json:"domain_whois_record,omitempty"`
	ScreenshotPaths   []string              `json:"screenshot_paths,omitempty"`
	MissionStatus     AnalystMissionStatus  `json:"mission_status"`
}

func (f AnalystFindings) Validate() error {
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %f", f.Confidence)
	}
	switch f.Verdict {
	case URLVerdictBenign, URLVerdictSuspicious, URLVerdictMalicious, URLVerdictInaccessible:
	default:
		return fmt.Errorf("unknown verdict %q", f.Verdict)
	}
	switch f.MissionStatus {
	case AnalystStatusCompleted, AnalystStatusFailed:
	default:
		return fmt.Errorf("unknown mission_status %q", f.MissionStatus)
	}
	return nil
}

// InaccessibleFindings builds the synthetic AnalystFindings produced when a
// ReAct driver terminates BLOCKED for a URL investigation (RECURSION_LIMIT).
func InaccessibleFindings(url string) AnalystFindings {
	return AnalystFindings{
		FinalURL:      url,
		Verdict:       URLVerdictInaccessible,
		Confidence:    0,
		Summary:       "investigation step budget exhausted before a verdict could be reached",
		MissionStatus: AnalystStatusFailed,
	}
}

// URLAnalysisResult pairs Agent D's starting PrioritizedURL with the
// transcript summary and structured findings it produced.
type URLAnalysisResult struct {
	Initial           PrioritizedURL  `json:"initial"`
	TranscriptSummary string          `json:"transcript_summary"`
	Findings          AnalystFindings `json:"findings"`
}
