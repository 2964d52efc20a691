package fileanalysis

import (
	"context"
	"fmt"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/pdftools"
	"github.com/goreliks/pdf-hunter-go/react"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/schema"
	"github.com/goreliks/pdf-hunter-go/session"
	"github.com/goreliks/pdf-hunter-go/tool"
)

var missionListSchema = schema.Object(map[string]schema.JSON{
	"missions": schema.Array(schema.Object(map[string]schema.JSON{
		"mission_id":  schema.String(),
		"description": schema.String(),
		"threat_type": schema.String(),
	}, "mission_id", "description", "threat_type")),
}, "missions")

type missionListResult struct {
	Missions []struct {
		MissionID   string `json:"mission_id"`
		Description string `json:"description"`
		ThreatType  string `json:"threat_type"`
	} `json:"missions"`
}

// CreateAnalysisTasks implements create_analysis_tasks: asks the model for
// an initial set of missions, each with a semantic mission_<threat_type>_<NNN>
// id, per spec.md §4.6.
func CreateAnalysisTasks(ctx context.Context, deps Deps, triage TriageResult) (*runstate.Partial, error) {
	var result missionListResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You plan focused file-analysis missions for a PDF triaged as " + string(triage.Decision) + ". Every mission_id must match mission_<threat_type>_<NNN>, zero-padded, unique."},
		{Role: llm.RoleUser, Content: triage.Reasoning},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "create_analysis_tasks", messages, missionListSchema, &result); err != nil {
		return nil, err
	}

	partial := &runstate.Partial{}
	for _, m := range result.Missions {
		mission := domainmodel.InvestigationMission{
			MissionID:   m.MissionID,
			Description: m.Description,
			ThreatType:  m.ThreatType,
			Status:      domainmodel.FileMissionPending,
		}
		if err := mission.Validate(); err != nil {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "create_analysis_tasks", corerr.KindLLMSchema,
				fmt.Sprintf("mission %q failed validation", m.MissionID)).WithCause(err))
			continue
		}
		partial.Missions = append(partial.Missions, mission)
	}
	return partial, nil
}

// AssignAnalysisTasks implements assign_analysis_tasks: returns the next
// PENDING mission in creation order, or nil if none remain (the orchestrator
// reads nil as NO_PENDING_MISSIONS).
func AssignAnalysisTasks(missions []domainmodel.InvestigationMission) *domainmodel.InvestigationMission {
	for i := range missions {
		if missions[i].Status == domainmodel.FileMissionPending {
			return &missions[i]
		}
	}
	return nil
}

// RunInvestigation implements run_investigation: a bounded ReAct loop over
// the PDF parser tool adapters plus reflect, scoped to one mission. On
// step-budget exhaustion the mission's terminal status is BLOCKED, per
// spec.md §4.6.
func RunInvestigation(ctx context.Context, deps Deps, sess domainmodel.Session, mission domainmodel.InvestigationMission, budget react.Budget) (*react.Outcome, domainmodel.FileMissionStatus, error) {
	outputDir := session.ArtifactPath(sess, domainmodel.SubdirFileAnalysis)

	registry := react.NewRegistry([]tool.Tool{
		deps.Tools.ObjectContentTool(),
		deps.Tools.DumpObjectStreamTool(outputDir),
		deps.Tools.AnalyzeRTFTool(),
		pdftools.ReflectTool{},
	})

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a PDF static-analysis investigator. Mission: " + mission.Description +
			". Use object_content/dump_object_stream/analyze_rtf_objects to confirm or refute the threat, then stop calling tools and summarize your findings."},
		{Role: llm.RoleUser, Content: "Begin your investigation for mission " + mission.MissionID + "."},
	}

	driver := react.New(deps.Gateway, registry)
	outcome, err := driver.Run(ctx, agentName, "run_investigation", messages, budget)
	if err != nil && outcome == nil {
		return nil, domainmodel.FileMissionFailed, err
	}

	status := domainmodel.FileMissionCompleted
	if outcome.Status == react.StatusBlocked {
		status = domainmodel.FileMissionBlocked
	}
	return outcome, status, err
}

var missionReportSchema = schema.Object(map[string]schema.JSON{
	"summary": schema.String(),
	"nodes": schema.Array(schema.Object(map[string]schema.JSON{
		"object_id": schema.String(),
		"kind":      schema.String(),
		"summary":   schema.String(),
		"details":   schema.String(),
	}, "object_id", "kind", "summary")),
	"edges": schema.Array(schema.Object(map[string]schema.JSON{
		"src":  schema.String(),
		"dst":  schema.String(),
		"type": schema.Enum("references", "triggers", "contains"),
	}, "src", "dst", "type")),
}, "summary", "nodes", "edges")

type missionReportResult struct {
	Summary string `json:"summary"`
	Nodes   []struct {
		ObjectID string `json:"object_id"`
		Kind     string `json:"kind"`
		Summary  string `json:"summary"`
		Details  string `json:"details"`
	} `json:"nodes"`
	Edges []struct {
		Src  string `json:"src"`
		Dst  string `json:"dst"`
		Type string `json:"type"`
	} `json:"edges"`
}

// SummarizeMission is the supplemental structured step bridging
// run_investigation's raw transcript to merge_findings' structured input
// need (see DESIGN.md's Open Question decision on this). It mirrors Agent
// D's analyze_url_content shape: no tools, one structured call consuming a
// finished transcript.
func SummarizeMission(ctx context.Context, deps Deps, mission domainmodel.InvestigationMission, outcome *react.Outcome) (domainmodel.MissionReport, error) {
	var result missionReportResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "Convert this completed investigation transcript into a structured evidence graph: the PDF objects examined, and references/triggers/contains relationships between them."},
		{Role: llm.RoleUser, Content: outcome.Transcript.Summary()},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "summarize_mission", messages, missionReportSchema, &result); err != nil {
		return domainmodel.MissionReport{}, err
	}

	graph := domainmodel.NewEvidenceGraph()
	for _, n := range result.Nodes {
		node := domainmodel.EvidenceNode{ObjectID: n.ObjectID, Kind: n.Kind, Summary: n.Summary}
		if n.Details != "" {
			node.Details = map[string]any{"notes": n.Details}
		}
		graph.AddNode(node)
	}
	for _, e := range result.Edges {
		graph.AddEdge(domainmodel.EvidenceEdge{Src: e.Src, Dst: e.Dst, Type: domainmodel.EvidenceEdgeType(e.Type)})
	}

	return domainmodel.MissionReport{Mission: mission, Summary: result.Summary, Graph: graph}, nil
}

// MergeFindings implements merge_findings: set-unions every mission's
// evidence graph into one master graph.
func MergeFindings(reports []domainmodel.MissionReport) *runstate.Partial {
	graphs := make([]domainmodel.EvidenceGraph, 0, len(reports))
	for _, r := range reports {
		graphs = append(graphs, r.Graph)
	}
	merged := domainmodel.MergeEvidenceGraphs(graphs...)
	return &runstate.Partial{
		MissionReports:      reports,
		MasterEvidenceGraph: &merged,
	}
}
