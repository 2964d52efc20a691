package fileanalysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/schema"
)

var reviewSchema = schema.Object(map[string]schema.JSON{
	"satisfied": schema.Bool(),
	"additional_missions": schema.Array(schema.Object(map[string]schema.JSON{
		"mission_id":  schema.String(),
		"description": schema.String(),
		"threat_type": schema.String(),
	}, "mission_id", "description", "threat_type")),
}, "satisfied", "additional_missions")

type reviewResult struct {
	Satisfied          bool `json:"satisfied"`
	AdditionalMissions []struct {
		MissionID   string `json:"mission_id"`
		Description string `json:"description"`
		ThreatType  string `json:"threat_type"`
	} `json:"additional_missions"`
}

// ReviewAnalysisResults implements review_analysis_results: looks at the
// completed mission reports and decides whether the investigation is
// complete or needs more missions. Bounded to MaxReviewRounds rounds (the
// caller threads round through the RunState loop counter); on the final
// round the node is not called again regardless of what it would have
// decided, per spec.md §4.6.
func ReviewAnalysisResults(ctx context.Context, deps Deps, reports []domainmodel.MissionReport, round int) (*runstate.Partial, bool, error) {
	if round >= MaxReviewRounds {
		return &runstate.Partial{}, true, nil
	}

	var summaries []string
	for _, r := range reports {
		summaries = append(summaries, fmt.Sprintf("mission %s (%s): %s", r.Mission.MissionID, r.Mission.ThreatType, r.Summary))
	}

	var result reviewResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You review completed PDF file-analysis missions. Decide if the investigation is complete, or if additional missions are needed to confirm or refute remaining threat hypotheses."},
		{Role: llm.RoleUser, Content: strings.Join(summaries, "\n\n")},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "review_analysis_results", messages, reviewSchema, &result); err != nil {
		return nil, false, err
	}

	partial := &runstate.Partial{}
	for _, m := range result.AdditionalMissions {
		mission := domainmodel.InvestigationMission{
			MissionID:   m.MissionID,
			Description: m.Description,
			ThreatType:  m.ThreatType,
			Status:      domainmodel.FileMissionPending,
		}
		if err := mission.Validate(); err != nil {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "review_analysis_results", corerr.KindLLMSchema,
				fmt.Sprintf("mission %q failed validation", m.MissionID)).WithCause(err))
			continue
		}
		partial.Missions = append(partial.Missions, mission)
	}

	return partial, result.Satisfied, nil
}

var compileSchema = schema.Object(map[string]schema.JSON{
	"decision":            schema.Enum("innocent", "suspicious", "malicious"),
	"reasoning":           schema.String(),
	"verdict_summary":     schema.String(),
	"iocs":                schema.Array(schema.String()),
	"attack_chain_steps":  schema.Array(schema.String()),
}, "decision", "reasoning", "verdict_summary")

type compileResult struct {
	Decision         string   `json:"decision"`
	Reasoning        string   `json:"reasoning"`
	VerdictSummary   string   `json:"verdict_summary"`
	IOCs             []string `json:"iocs"`
	AttackChainSteps []string `json:"attack_chain_steps"`
}

// CompileFileAnalysis implements compile_file_analysis: synthesizes the
// full StaticAnalysisFinalReport from every mission report and the merged
// evidence graph.
func CompileFileAnalysis(ctx context.Context, deps Deps, reports []domainmodel.MissionReport, master domainmodel.EvidenceGraph) (*runstate.Partial, error) {
	var summaries []string
	for _, r := range reports {
		summaries = append(summaries, fmt.Sprintf("mission %s (%s): %s", r.Mission.MissionID, r.Mission.ThreatType, r.Summary))
	}

	var result compileResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "Synthesize a final static-analysis verdict from these completed mission findings and their merged evidence graph. List concrete indicators of compromise and, if applicable, the attack chain steps in order."},
		{Role: llm.RoleUser, Content: strings.Join(summaries, "\n\n")},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "compile_file_analysis", messages, compileSchema, &result); err != nil {
		return nil, err
	}

	report := &domainmodel.StaticAnalysisFinalReport{
		Decision:            domainmodel.TriageDecision(result.Decision),
		Reasoning:           result.Reasoning,
		MissionReports:      reports,
		MasterEvidenceGraph: master,
		VerdictSummary:      result.VerdictSummary,
		IOCs:                result.IOCs,
		AttackChainSteps:    result.AttackChainSteps,
	}
	if err := report.Validate(); err != nil {
		return nil, corerr.New(agentName, "compile_file_analysis", corerr.KindLLMSchema, "final report failed validation").WithCause(err)
	}

	return &runstate.Partial{StaticAnalysisReport: report}, nil
}
