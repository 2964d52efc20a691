// Package fileanalysis implements Agent B — File Analysis (spec.md §4.6):
// triage, mission planning, parallel ReAct investigators over the PDF
// parser tools, a bounded reviewer, evidence-graph merge, and a final
// structured report. Grounded throughout on agent/builder.go's node
// shape and react.Driver for the investigator subgraph.
package fileanalysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/llmgw"
	"github.com/goreliks/pdf-hunter-go/pdftools"
	"github.com/goreliks/pdf-hunter-go/rules"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/schema"
)

const agentName = "FileAnalysis"

// MaxReviewRounds bounds review_analysis_results' additional-mission
// iteration, per spec.md §4.6 ("bounded iteration, default 2 review rounds").
const MaxReviewRounds = 2

// Scanners bundles the three external static-analysis tools triage runs.
type Scanners struct {
	PDFID     *pdftools.Scanner
	PDFParser *pdftools.Scanner
	PeePDF    *pdftools.Scanner
}

// Deps bundles Agent B's external collaborators. RunInvestigation builds
// its own react.Driver per mission (each needs a registry scoped to that
// mission's own tool set), so Deps carries the Gateway directly rather
// than a pre-built Driver.
type Deps struct {
	Gateway  *llmgw.Client
	Scanners Scanners
	Risk     *rules.Program
	Tools    *pdftools.ParserTools
}

var triageSchema = schema.Object(map[string]schema.JSON{
	"decision":  schema.Enum("innocent", "suspicious", "malicious"),
	"reasoning": schema.String(),
}, "decision", "reasoning")

// TriageResult is triage's structured LLM decision.
type TriageResult struct {
	Decision  domainmodel.TriageDecision `json:"decision"`
	Reasoning string                     `json:"reasoning"`
}

// Triage implements triage: runs the three scanners, scores the result
// with the structural-risk expression, and asks the model for a
// decision. When the decision is innocent, it also emits the minimal
// final report directly, skipping investigation entirely per spec.md
// §4.6.
func Triage(ctx context.Context, deps Deps, pdfPath string) (*runstate.Partial, TriageResult, error) {
	partial := &runstate.Partial{}

	pdfidOut, err := deps.Scanners.PDFID.Run(ctx, pdfPath)
	if err != nil {
		partial.Errors = append(partial.Errors, asCorerr(err))
	}
	parserOut, err := deps.Scanners.PDFParser.Run(ctx, pdfPath)
	if err != nil {
		partial.Errors = append(partial.Errors, asCorerr(err))
	}
	peepdfOut, err := deps.Scanners.PeePDF.Run(ctx, pdfPath)
	if err != nil {
		partial.Errors = append(partial.Errors, asCorerr(err))
	}

	features := featuresFromScans(pdfidOut, parserOut, peepdfOut)
	risk, err := deps.Risk.Score(features)
	if err != nil {
		return partial, TriageResult{}, corerr.New(agentName, "triage", corerr.KindTool, "risk scoring failed").WithCause(err)
	}

	summary := fmt.Sprintf(
		"pdfid:\n%s\n\npdf-parser:\n%s\n\npeepdf:\n%s\n\nstructural risk score: %.2f",
		pdfidOut, parserOut, peepdfOut, risk,
	)

	var result TriageResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a PDF triage analyst. Decide innocent, suspicious, or malicious from the structural scan summary and structural risk score."},
		{Role: llm.RoleUser, Content: summary},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "triage", messages, triageSchema, &result); err != nil {
		return partial, TriageResult{}, err
	}

	if result.Decision == domainmodel.TriageInnocent {
		report := &domainmodel.StaticAnalysisFinalReport{
			Decision:            result.Decision,
			Reasoning:           result.Reasoning,
			MasterEvidenceGraph: domainmodel.NewEvidenceGraph(),
			VerdictSummary:      "No investigation performed: triage classified this file as innocent.",
		}
		partial.StaticAnalysisReport = report
	}

	return partial, result, nil
}

func featuresFromScans(scans ...string) rules.ScanFeatures {
	var f rules.ScanFeatures
	for _, s := range scans {
		f.HasJavaScript = f.HasJavaScript || containsAny(s, "/JavaScript", "/JS")
		f.HasOpenAction = f.HasOpenAction || containsAny(s, "/OpenAction")
		f.HasLaunchAction = f.HasLaunchAction || containsAny(s, "/Launch")
		f.HasEmbeddedFile = f.HasEmbeddedFile || containsAny(s, "/EmbeddedFile")
		f.HasAcroForm = f.HasAcroForm || containsAny(s, "/AcroForm")
		f.ObjectCount += strings.Count(s, " obj")
		f.SuspiciousObjects += strings.Count(s, "/JavaScript") + strings.Count(s, "/Launch")
	}
	return f
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func asCorerr(err error) *corerr.Error {
	if c, ok := err.(*corerr.Error); ok {
		return c
	}
	return corerr.New(agentName, "triage", corerr.KindTool, err.Error())
}
