package domainmodel

import (
	"fmt"
	"regexp"
)

// FileMissionStatus is an InvestigationMission's lifecycle state. It is a
// wider set than PrioritizedURL.MissionStatus: file-analysis missions can
// additionally be BLOCKED (step budget exhausted) without being FAILED.
type FileMissionStatus string

const (
	FileMissionPending     FileMissionStatus = "PENDING"
	FileMissionInProgress  FileMissionStatus = "IN_PROGRESS"
	FileMissionCompleted   FileMissionStatus = "COMPLETED"
	FileMissionFailed      FileMissionStatus = "FAILED"
	FileMissionBlocked     FileMissionStatus = "BLOCKED"
	FileMissionNotRelevant FileMissionStatus = "NOT_RELEVANT"
)

// IsTerminal reports whether status admits no further transitions.
func (s FileMissionStatus) IsTerminal() bool {
	switch s {
	case FileMissionCompleted, FileMissionFailed, FileMissionBlocked, FileMissionNotRelevant:
		return true
	default:
		return false
	}
}

var missionIDPattern = regexp.MustCompile(`^mission_[a-z0-9_]+_[0-9]{3}$`)

// ValidMissionID reports whether id matches the mandated
// mission_<threat_type>_<NNN> shape (e.g. "mission_javascript_001").
func ValidMissionID(id string) bool {
	return missionIDPattern.MatchString(id)
}

// InvestigationMission is a focused file-analysis task created by Agent B's
// triage or reviewer node.
type InvestigationMission struct {
	MissionID   string            `json:"mission_id"`
	Description string            `json:"description"`
	ThreatType  string            `json:"threat_type"`
	Status      FileMissionStatus `json:"status"`
}

func (m InvestigationMission) Validate() error {
	if !ValidMissionID(m.MissionID) {
		return fmt.Errorf("mission_id %q does not match mission_<threat_type>_<NNN>", m.MissionID)
	}
	if m.Description == "" {
		return fmt.Errorf("description must not be empty")
	}
	switch m.Status {
	case FileMissionPending, FileMissionInProgress, FileMissionCompleted,
		FileMissionFailed, FileMissionBlocked, FileMissionNotRelevant:
	default:
		return fmt.Errorf("unknown status %q", m.Status)
	}
	return nil
}

// TriageDecision is Agent B's initial classification of the PDF.
type TriageDecision string

const (
	TriageInnocent   TriageDecision = "innocent"
	TriageSuspicious TriageDecision = "suspicious"
	TriageMalicious  TriageDecision = "malicious"
)

// Role is a ReAct transcript message's speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// TranscriptMessage is one entry in an InvestigatorTranscript.
type TranscriptMessage struct {
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// InvestigatorTranscript is the ordered ReAct history for one investigator
// invocation. It lives only inside that invocation and is discarded after
// the analyst node extracts conclusions from it.
type InvestigatorTranscript struct {
	MissionID string               `json:"mission_id,omitempty"`
	URL       string               `json:"url,omitempty"`
	Messages  []TranscriptMessage  `json:"messages"`
}

// Summary renders a compact textual digest of the transcript for the
// analyst node, which consumes text rather than the raw message list.
func (t InvestigatorTranscript) Summary() string {
	out := ""
	for _, m := range t.Messages {
		if m.Role == RoleAssistant || m.Role == RoleTool {
			out += fmt.Sprintf("[%s] %s\n", m.Role, m.Content)
		}
	}
	return out
}
