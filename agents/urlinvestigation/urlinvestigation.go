// Package urlinvestigation implements Agent D — URL Investigation
// (spec.md §4.8): priority-threshold filtering, one isolated browser
// session and ReAct investigator per IN_PROGRESS URL, a structured
// analyst pass over each transcript, and additive aggregation. Grounded
// on registry/registry.go's per-resource RWMutex map (webintel.Registry)
// and react.Driver for the OODA-loop investigator.
package urlinvestigation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/llmgw"
	"github.com/goreliks/pdf-hunter-go/react"
	"github.com/goreliks/pdf-hunter-go/rules"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/schema"
	"github.com/goreliks/pdf-hunter-go/session"
	"github.com/goreliks/pdf-hunter-go/webintel"
)

const agentName = "URLInvestigation"

// Deps bundles Agent D's external collaborators.
type Deps struct {
	Gateway  *llmgw.Client
	Browsers *webintel.Registry
}

// FilterURLs implements filter_urls: routes each PrioritizedURL to
// IN_PROGRESS or NOT_RELEVANT by rules.FilterByPriority, per spec.md
// §4.8's state machine (NEW -> {IN_PROGRESS, NOT_RELEVANT}).
func FilterURLs(urls []domainmodel.PrioritizedURL, threshold int) (*runstate.Partial, error) {
	filtered, err := rules.FilterByPriority(urls, threshold)
	if err != nil {
		return nil, corerr.New(agentName, "filter_urls", corerr.KindInput, "priority filtering failed").WithCause(err)
	}
	return &runstate.Partial{PrioritizedURLs: filtered}, nil
}

// RouteURLAnalysis implements route_url_analysis: returns the subset of
// urls that filter_urls marked IN_PROGRESS, one fan-out branch per entry.
// The actual parallel dispatch is the orchestrator's job; this node is a
// pure selection.
func RouteURLAnalysis(urls []domainmodel.PrioritizedURL) []domainmodel.PrioritizedURL {
	var out []domainmodel.PrioritizedURL
	for _, u := range urls {
		if u.MissionStatus == domainmodel.URLStatusInProgress {
			out = append(out, u)
		}
	}
	return out
}

// TaskID derives the deterministic task_id = "url_" + hash(url) per
// spec.md §4.8.
func TaskID(url string) string {
	sum := sha1.Sum([]byte(url))
	return "url_" + hex.EncodeToString(sum[:])[:16]
}

const oodaSystemPrompt = `You are a URL investigator using an OODA loop: Observe the page state, Orient against phishing/malware indicators, Decide the next action, Act with exactly one tool call. Before drawing conclusions: dismiss any cookie or consent dialog, follow redirect chains to their final destination, call domain_whois on any suspicious root domain, and if you find a credential-harvesting form, fill it with fake credentials to surface the submission endpoint. Any JavaScript you pass to evaluate must be a single arrow-function expression, e.g. "() => document.title". Stop calling tools once you have enough evidence to reach a verdict.`

// InvestigateURL implements the per-URL ReAct investigator: opens an
// isolated browser session rooted at task_id, wires the browser tools,
// domain_whois, and reflect, and runs a bounded OODA loop. Each URL gets
// its own Driver since each needs a registry scoped to its own browser
// Session, per spec.md §4.8's "isolated browser session rooted at
// output_dir/url_investigation/task_{task_id}/".
func InvestigateURL(ctx context.Context, deps Deps, url domainmodel.PrioritizedURL, budget react.Budget) (*react.Outcome, error) {
	taskID := TaskID(url.URL)

	sess, err := deps.Browsers.Open(ctx, taskID)
	if err != nil {
		return nil, corerr.New(agentName, "investigate_url", corerr.KindBrowser, "failed to open browser session").WithCause(err)
	}
	defer deps.Browsers.Close(taskID)

	tools := &webintel.BrowserTools{Session: sess}
	registry := react.NewRegistry(tools.Tools(), webintel.StateChangingToolNames()...)
	driver := react.New(deps.Gateway, registry)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: oodaSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Investigate this URL found on page %d of the PDF: %s\nReason it was flagged: %s", url.PageIndex, url.URL, url.Reason)},
	}

	return driver.Run(ctx, agentName, "investigate_url", messages, budget)
}

var analystSchema = schema.Object(map[string]schema.JSON{
	"final_url":           schema.String(),
	"verdict":             schema.Enum("Benign", "Suspicious", "Malicious", "Inaccessible"),
	"confidence":          schema.Number(),
	"summary":             schema.String(),
	"detected_threats":    schema.Array(schema.String()),
	"domain_whois_record": schema.String(),
	"screenshot_paths":    schema.Array(schema.String()),
}, "final_url", "verdict", "confidence", "summary")

type analystResult struct {
	FinalURL           string   `json:"final_url"`
	Verdict            string   `json:"verdict"`
	Confidence         float64  `json:"confidence"`
	Summary            string   `json:"summary"`
	DetectedThreats    []string `json:"detected_threats"`
	DomainWhoisRecord  string   `json:"domain_whois_record"`
	ScreenshotPaths    []string `json:"screenshot_paths"`
}

// AnalyzeURLContent implements analyze_url_content: a no-tools structured
// call consuming the finished transcript. On driver BLOCKED it is skipped
// and a synthetic Inaccessible AnalystFindings is produced instead, per
// spec.md §4.8.
func AnalyzeURLContent(ctx context.Context, deps Deps, initial domainmodel.PrioritizedURL, outcome *react.Outcome) (domainmodel.URLAnalysisResult, error) {
	if outcome.Status == react.StatusBlocked {
		return domainmodel.URLAnalysisResult{
			Initial:           initial,
			TranscriptSummary: outcome.Transcript.Summary(),
			Findings:          domainmodel.InaccessibleFindings(initial.URL),
		}, nil
	}

	var result analystResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "Synthesize this URL investigation transcript into a structured verdict."},
		{Role: llm.RoleUser, Content: outcome.Transcript.Summary()},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "analyze_url_content", messages, analystSchema, &result); err != nil {
		return domainmodel.URLAnalysisResult{}, err
	}

	findings := domainmodel.AnalystFindings{
		FinalURL:          result.FinalURL,
		Verdict:           domainmodel.URLVerdict(result.Verdict),
		Confidence:        result.Confidence,
		Summary:           result.Summary,
		DetectedThreats:   result.DetectedThreats,
		DomainWhoisRecord: result.DomainWhoisRecord,
		ScreenshotPaths:   result.ScreenshotPaths,
		MissionStatus:     domainmodel.AnalystStatusCompleted,
	}
	if err := findings.Validate(); err != nil {
		return domainmodel.URLAnalysisResult{}, corerr.New(agentName, "analyze_url_content", corerr.KindLLMSchema, "analyst findings failed validation").WithCause(err)
	}

	return domainmodel.URLAnalysisResult{
		Initial:           initial,
		TranscriptSummary: outcome.Transcript.Summary(),
		Findings:          findings,
	}, nil
}

// CompileURLFindings implements compile_url_findings: an additive
// reducer over per-URL results, also advancing each PrioritizedURL's
// mission_status to COMPLETED or FAILED per the analyst's outcome.
func CompileURLFindings(results []domainmodel.URLAnalysisResult) *runstate.Partial {
	partial := &runstate.Partial{URLAnalysisResults: results}
	for _, r := range results {
		next := domainmodel.URLStatusCompleted
		if r.Findings.MissionStatus == domainmodel.AnalystStatusFailed {
			next = domainmodel.URLStatusFailed
		}
		if moved, err := r.Initial.WithStatus(next); err == nil {
			partial.PrioritizedURLs = append(partial.PrioritizedURLs, moved)
		} else {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "compile_url_findings", corerr.KindInput,
				fmt.Sprintf("illegal status transition for %s", r.Initial.URL)).WithCause(err))
		}
	}
	return partial
}

// SaveResults implements save_results: writes the per-run URL
// investigation state file under the session's url_investigation/
// directory.
func SaveResults(sess domainmodel.Session, results []domainmodel.URLAnalysisResult) error {
	dir := session.ArtifactPath(sess, domainmodel.SubdirURLInvestigation)
	path := filepath.Join(dir, fmt.Sprintf("url_investigation_%s.json", sess.SessionID))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return corerr.New(agentName, "save_results", corerr.KindPersistence, "failed to marshal url investigation results").WithCause(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return corerr.New(agentName, "save_results", corerr.KindPersistence, fmt.Sprintf("failed to write %s", path)).WithCause(err)
	}
	return nil
}
