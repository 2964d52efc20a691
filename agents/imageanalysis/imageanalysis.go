// Package imageanalysis implements Agent C — Image Analysis (spec.md
// §4.7): a sequential per-page visual LLM pass followed by one
// cross-page synthesis call. Grounded on the teacher's agent/builder.go
// sequential-iteration-over-targets pattern; this agent has no domain
// dependency beyond llmgw, per SPEC_FULL.md §4.7.
package imageanalysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/llmgw"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/schema"
)

const agentName = "ImageAnalysis"

// Deps bundles Agent C's external collaborators.
type Deps struct {
	Gateway *llmgw.Client
}

var pageFindingsSchema = schema.Object(map[string]schema.JSON{
	"findings":          schema.Array(schema.String()),
	"deception_tactics": schema.Array(schema.String()),
	"benign_signals":    schema.Array(schema.String()),
	"page_verdict":      schema.Enum("Benign", "Suspicious", "Malicious"),
	"page_confidence":   schema.Number(),
}, "findings", "page_verdict", "page_confidence")

type pageFindingsResult struct {
	Findings         []string `json:"findings"`
	DeceptionTactics []string `json:"deception_tactics"`
	BenignSignals    []string `json:"benign_signals"`
	PageVerdict      string   `json:"page_verdict"`
	PageConfidence   float64  `json:"page_confidence"`
}

// AnalyzeImages implements analyze_images: one structured LLM call per
// extracted page image, processed in ascending page-index order with no
// cross-page dependency. Page 0 additionally receives the XMP metadata
// URLs for the mission-critical tool-chain-coherence check described in
// spec.md §4.7.
func AnalyzeImages(ctx context.Context, deps Deps, images []domainmodel.ExtractedImage, xmpURLs []domainmodel.ExtractedURL) *runstate.Partial {
	ordered := append([]domainmodel.ExtractedImage(nil), images...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PageIndex < ordered[j].PageIndex })

	partial := &runstate.Partial{}
	var pages []domainmodel.PageFindings

	for _, img := range ordered {
		prompt := fmt.Sprintf("Analyze the rendered PDF page at %s for phishing or malware deception tactics (fake login forms, brand impersonation, urgency language, hidden or tiny text, disguised buttons).", img.SavedPath)
		if img.PageIndex == 0 {
			prompt += "\n\nThis is page 0. Cross-check it for tool-chain coherence against the URLs found in the document's XMP metadata: " + xmpSummary(xmpURLs) +
				". A mismatch between the visible content and the XMP-declared authoring tool chain is itself a deception signal."
		}

		var result pageFindingsResult
		messages := []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a visual deception analyst reviewing a rendered PDF page image path. Describe concrete findings; do not speculate beyond what the page would show."},
			{Role: llm.RoleUser, Content: prompt},
		}
		if err := deps.Gateway.CompleteStructured(ctx, agentName, "analyze_images", messages, pageFindingsSchema, &result); err != nil {
			partial.Errors = append(partial.Errors, asCorerr(err, img.PageIndex))
			continue
		}

		page := domainmodel.PageFindings{
			PageIndex:        img.PageIndex,
			Findings:         result.Findings,
			DeceptionTactics: result.DeceptionTactics,
			BenignSignals:    result.BenignSignals,
			PageVerdict:      domainmodel.Verdict(result.PageVerdict),
			PageConfidence:   result.PageConfidence,
		}
		if err := page.Validate(); err != nil {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "analyze_images", corerr.KindLLMSchema,
				fmt.Sprintf("page %d findings failed validation", img.PageIndex)).WithCause(err))
			continue
		}
		pages = append(pages, page)
	}

	partial.VisualAnalysisReport = &domainmodel.ImageAnalysisReport{PageReports: pages}
	return partial
}

func xmpSummary(urls []domainmodel.ExtractedURL) string {
	if len(urls) == 0 {
		return "(none found)"
	}
	out := ""
	for _, u := range urls {
		if u.Source == domainmodel.URLSourceXMP {
			out += u.URL + "; "
		}
	}
	if out == "" {
		return "(none found)"
	}
	return out
}

func asCorerr(err error, pageIndex int) *corerr.Error {
	if c, ok := err.(*corerr.Error); ok {
		return c
	}
	return corerr.New(agentName, "analyze_images", corerr.KindLLMTimeout,
		fmt.Sprintf("page %d analysis failed", pageIndex)).WithCause(err)
}

var compileSchema = schema.Object(map[string]schema.JSON{
	"overall_verdict":    schema.Enum("Benign", "Suspicious", "Malicious"),
	"overall_confidence": schema.Number(),
	"prioritized_urls": schema.Array(schema.Object(map[string]schema.JSON{
		"url":            schema.String(),
		"page_index":     schema.Int(),
		"priority":       schema.Int(),
		"reason":         schema.String(),
		"source_context": schema.String(),
	}, "url", "page_index", "priority", "reason")),
}, "overall_verdict", "overall_confidence", "prioritized_urls")

type compileResult struct {
	OverallVerdict    string  `json:"overall_verdict"`
	OverallConfidence float64 `json:"overall_confidence"`
	PrioritizedURLs   []struct {
		URL           string `json:"url"`
		PageIndex     int    `json:"page_index"`
		Priority      int    `json:"priority"`
		Reason        string `json:"reason"`
		SourceContext string `json:"source_context"`
	} `json:"prioritized_urls"`
}

// CompileImageFindings implements compile_image_findings: synthesizes the
// per-page results into an overall verdict and an aggregated
// prioritized_urls list, every entry starting mission_status=NEW per
// spec.md §4.7.
func CompileImageFindings(ctx context.Context, deps Deps, pages []domainmodel.PageFindings) (*runstate.Partial, error) {
	var summaries string
	for _, p := range pages {
		summaries += fmt.Sprintf("page %d (%s, confidence %.2f): findings=%v deception=%v benign=%v\n",
			p.PageIndex, p.PageVerdict, p.PageConfidence, p.Findings, p.DeceptionTactics, p.BenignSignals)
	}

	var result compileResult
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "Synthesize these per-page visual analyses into one overall verdict and a prioritized list of URLs worth investigating further, priority 1 (highest) to 10 (lowest)."},
		{Role: llm.RoleUser, Content: summaries},
	}
	if err := deps.Gateway.CompleteStructured(ctx, agentName, "compile_image_findings", messages, compileSchema, &result); err != nil {
		return nil, err
	}

	report := &domainmodel.ImageAnalysisReport{
		PageReports:    pages,
		OverallVerdict: domainmodel.Verdict(result.OverallVerdict),
		OverallConf:    result.OverallConfidence,
	}

	partial := &runstate.Partial{}
	for _, u := range result.PrioritizedURLs {
		prioritized := domainmodel.PrioritizedURL{
			URL:           u.URL,
			PageIndex:     u.PageIndex,
			Priority:      u.Priority,
			Reason:        u.Reason,
			SourceContext: u.SourceContext,
			MissionStatus: domainmodel.URLStatusNew,
		}
		if err := prioritized.Validate(); err != nil {
			partial.Errors = append(partial.Errors, corerr.New(agentName, "compile_image_findings", corerr.KindLLMSchema,
				fmt.Sprintf("prioritized url %q failed validation", u.URL)).WithCause(err))
			continue
		}
		report.PrioritizedURLs = append(report.PrioritizedURLs, prioritized)
	}

	if err := report.Validate(); err != nil {
		return nil, corerr.New(agentName, "compile_image_findings", corerr.KindLLMSchema, "image analysis report failed validation").WithCause(err)
	}

	partial.VisualAnalysisReport = report
	partial.PrioritizedURLs = report.PrioritizedURLs
	return partial, nil
}
