// Package reportgen implements Agent E — Report Generator (spec.md §4.9):
// one structured call producing the run-terminal FinalVerdict, one free-text
// call producing a Markdown report consistent with it, and persistence of
// both alongside the rest of the RunState. Grounded on schema/schema.go for
// the structured declaration and session.go's JSON-to-disk pattern (already
// reused by agents/fileanalysis and agents/urlinvestigation) for the dual
// JSON/Markdown export.
package reportgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/llmgw"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/schema"
	"github.com/goreliks/pdf-hunter-go/session"
)

const agentName = "ReportGenerator"

// Deps bundles Agent E's external collaborators.
type Deps struct {
	Gateway *llmgw.Client
}

var verdictSchema = schema.Object(map[string]schema.JSON{
	"verdict":      schema.Enum("Benign", "Suspicious", "Malicious"),
	"confidence":   schema.Number(),
	"key_findings": schema.Array(schema.String()),
	"reasoning":    schema.String(),
}, "verdict", "confidence", "reasoning")

type verdictResult struct {
	Verdict     string   `json:"verdict"`
	Confidence  float64  `json:"confidence"`
	KeyFindings []string `json:"key_findings"`
	Reasoning   string   `json:"reasoning"`
}

// DetermineThreatVerdict implements determine_threat_verdict: one
// structured call over the full run state, producing the terminal
// FinalVerdict per spec.md §4.9.
func DetermineThreatVerdict(ctx context.Context, deps Deps, state *runstate.RunState) (*runstate.Partial, error) {
	var result verdictResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are the final forensic reviewer for a PDF analysis pipeline. Weigh the static analysis, visual analysis, and URL investigation findings together and produce one overall verdict with confidence in [0,1]."},
		{Role: llm.RoleUser, Content: summarizeState(state)},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "determine_threat_verdict", messages, verdictSchema, &result); err != nil {
		return nil, err
	}

	verdict := &domainmodel.FinalVerdict{
		Verdict:     domainmodel.Verdict(result.Verdict),
		Confidence:  result.Confidence,
		KeyFindings: result.KeyFindings,
		Reasoning:   result.Reasoning,
	}
	if err := verdict.Validate(); err != nil {
		return nil, corerr.New(agentName, "determine_threat_verdict", corerr.KindLLMSchema, "final verdict failed validation").WithCause(err)
	}

	return &runstate.Partial{FinalVerdict: verdict}, nil
}

// GenerateFinalReport implements generate_final_report: a free-text call
// producing a Markdown forensic report self-consistent with the verdict
// determine_threat_verdict already reached, per spec.md §4.9.
func GenerateFinalReport(ctx context.Context, deps Deps, state *runstate.RunState) (*runstate.Partial, error) {
	if state.FinalVerdict == nil {
		return nil, corerr.New(agentName, "generate_final_report", corerr.KindInput, "final verdict must be set before generating the report")
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "Write a forensic triage report in Markdown. It must be self-consistent with the verdict already reached: do not contradict the verdict, confidence, or key findings given to you. Include sections for Summary, Static Analysis, Visual Analysis, URL Investigation, Indicators of Compromise, and Attack Chain (when applicable)."},
		{Role: llm.RoleUser, Content: summarizeState(state) + fmt.Sprintf("\n\nFinal verdict: %s (confidence %.2f)\nReasoning: %s\nKey findings: %v",
			state.FinalVerdict.Verdict, state.FinalVerdict.Confidence, state.FinalVerdict.Reasoning, state.FinalVerdict.KeyFindings)},
	}

	report, err := deps.Gateway.Complete(ctx, agentName, "generate_final_report", messages)
	if err != nil {
		return nil, err
	}

	return &runstate.Partial{FinalReport: &report}, nil
}

// SaveAnalysisResults implements save_analysis_results: writes
// final_state_session_<id>.json and final_report_session_<id>.md inside
// the session's report_generator/ directory, per spec.md §4.9.
func SaveAnalysisResults(sess domainmodel.Session, state *runstate.RunState) error {
	dir := session.ArtifactPath(sess, domainmodel.SubdirReportGenerator)

	statePath := filepath.Join(dir, fmt.Sprintf("final_state_session_%s.json", sess.SessionID))
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return corerr.New(agentName, "save_analysis_results", corerr.KindPersistence, "failed to marshal final run state").WithCause(err)
	}
	if err := os.WriteFile(statePath, data, 0o644); err != nil {
		return corerr.New(agentName, "save_analysis_results", corerr.KindPersistence, fmt.Sprintf("failed to write %s", statePath)).WithCause(err)
	}

	reportPath := filepath.Join(dir, fmt.Sprintf("final_report_session_%s.md", sess.SessionID))
	if err := os.WriteFile(reportPath, []byte(state.FinalReport), 0o644); err != nil {
		return corerr.New(agentName, "save_analysis_results", corerr.KindPersistence, fmt.Sprintf("failed to write %s", reportPath)).WithCause(err)
	}

	return nil
}

func summarizeState(state *runstate.RunState) string {
	out := fmt.Sprintf("Extracted %d images, %d urls across %d pages processed.\n", len(state.ExtractedImages), len(state.ExtractedURLs), state.PagesToProcess)

	if state.StaticAnalysisReport != nil {
		r := state.StaticAnalysisReport
		out += fmt.Sprintf("Static analysis decision: %s. %s\nIOCs: %v\nAttack chain: %v\n", r.Decision, r.VerdictSummary, r.IOCs, r.AttackChainSteps)
	} else {
		out += "Static analysis: no report (the run never reached it or it failed).\n"
	}

	if state.VisualAnalysisReport != nil {
		r := state.VisualAnalysisReport
		out += fmt.Sprintf("Visual analysis overall verdict: %s (confidence %.2f) across %d pages.\n", r.OverallVerdict, r.OverallConf, len(r.PageReports))
	}

	if len(state.URLAnalysisResults) > 0 {
		out += fmt.Sprintf("URL investigation covered %d urls:\n", len(state.URLAnalysisResults))
		for _, u := range state.URLAnalysisResults {
			out += fmt.Sprintf("- %s: %s (confidence %.2f) - %s\n", u.Findings.FinalURL, u.Findings.Verdict, u.Findings.Confidence, u.Findings.Summary)
		}
	}

	if len(state.Errors) > 0 {
		out += fmt.Sprintf("%d non-fatal errors occurred during analysis; partial success is expected.\n", len(state.Errors))
	}

	return out
}
