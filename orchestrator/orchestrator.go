// Package orchestrator composes Agents A-E into the graph topology
// spec.md §4.10 names: START -> A; A -> B; A -> C; C -> D; {B,D} -> E ->
// END, with E's predecessor a join barrier over B and D. Grounded on the
// teacher's framework.go Mission/StartMission lifecycle (CreateMission,
// StartMission, registry access, Shutdown) but with the actual fan-out
// expressed directly in goroutines and a WaitGroup for the B/C-D join
// (per SPEC_FULL.md §5), since this graph's topology is fixed rather than
// user-assembled like the teacher's agent/tool registries.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/goreliks/pdf-hunter-go/agents/extraction"
	"github.com/goreliks/pdf-hunter-go/agents/fileanalysis"
	"github.com/goreliks/pdf-hunter-go/agents/imageanalysis"
	"github.com/goreliks/pdf-hunter-go/agents/reportgen"
	"github.com/goreliks/pdf-hunter-go/agents/urlinvestigation"
	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/obs"
	"github.com/goreliks/pdf-hunter-go/pdftools"
	"github.com/goreliks/pdf-hunter-go/react"
	"github.com/goreliks/pdf-hunter-go/runstate"
	"github.com/goreliks/pdf-hunter-go/session"
	"github.com/goreliks/pdf-hunter-go/webintel"
)

const orchestratorAgent = "Orchestrator"

// DefaultStepBudget bounds the number of graph super-steps one run may
// take, per spec.md §4.10 ("global step budget, default ~30").
const DefaultStepBudget = 30

// Deps bundles every agent's dependencies plus orchestration-level
// collaborators.
type Deps struct {
	Extraction       extraction.Deps
	FileAnalysis     fileanalysis.Deps
	ImageAnalysis    imageanalysis.Deps
	URLInvestigation urlinvestigation.Deps
	ReportGen        reportgen.Deps

	// Tracer wraps every node invocation with a span, per spec.md §4.10.
	// A nil Tracer disables span creation.
	Tracer trace.Tracer

	// LogSink, when set, receives one structured event per node
	// completion, per spec.md §6's log record schema.
	LogSink *session.Sink

	// Metrics, when set, records per-node duration/count/error
	// instruments. A nil Metrics is a silent no-op.
	Metrics *obs.Metrics

	// StepBudget overrides DefaultStepBudget when positive.
	StepBudget int

	// MissionBudget and URLBudget bound Agent B's and Agent D's
	// per-mission/per-URL ReAct drivers respectively.
	MissionBudget react.Budget
	URLBudget     react.Budget

	// URLPriorityThreshold overrides rules.DefaultPriorityThreshold when
	// positive, per spec.md §9's "configurable, default 5".
	URLPriorityThreshold int

	// OnSessionReady, when set, fires once setup_session succeeds, before
	// the rest of the graph runs. A caller that needs the session id or
	// log path before the run completes - an HTTP facade subscribing a
	// log tailer, for instance - uses this hook rather than polling.
	OnSessionReady func(sess domainmodel.Session)
}

func (d Deps) stepBudget() int {
	if d.StepBudget > 0 {
		return d.StepBudget
	}
	return DefaultStepBudget
}

// run carries the bookkeeping for one Run invocation: the accumulating
// RunState, the global step counter, and the per-session logger. All of
// run's fields are guarded by mu since Agent B and the C->D chain execute
// concurrently and both call step.
type run struct {
	deps   Deps
	mu     sync.Mutex
	state  *runstate.RunState
	steps  int
	logger *slog.Logger
}

// step runs fn inside the global step budget, a corerr.Boundary, and an
// optional tracer span, then merges whatever partial it returned into the
// shared RunState. It is the orchestrator-level analogue of
// corerr.Boundary wrapping every node per spec.md §7's propagation
// policy: a non-fatal node failure is recorded in errors and the run
// continues.
func (r *run) step(ctx context.Context, node string, fn func(ctx context.Context) (*runstate.Partial, error)) *corerr.Error {
	r.mu.Lock()
	r.steps++
	exceeded := r.steps > r.deps.stepBudget()
	r.mu.Unlock()

	if exceeded {
		err := corerr.New(orchestratorAgent, node, corerr.KindRecursionLimit, "global step budget exhausted")
		r.recordError(err)
		return err
	}

	spanCtx := ctx
	var span trace.Span
	if r.deps.Tracer != nil {
		spanCtx, span = r.deps.Tracer.Start(ctx, node)
		defer span.End()
	}

	start := time.Now()
	var partial *runstate.Partial
	boundaryErr := corerr.Boundary(orchestratorAgent, node, func() error {
		p, err := fn(spanCtx)
		partial = p
		return err
	}, func(error) corerr.Kind { return corerr.KindTool })
	elapsed := time.Since(start)

	r.mu.Lock()
	if partial != nil {
		r.state.Apply(partial)
	}
	if boundaryErr != nil {
		r.state.Errors = append(r.state.Errors, boundaryErr)
	}
	r.mu.Unlock()

	if span != nil && boundaryErr != nil {
		span.RecordError(boundaryErr)
	}
	r.deps.Metrics.RecordNode(spanCtx, orchestratorAgent, node, elapsed, boundaryErr != nil)
	r.logNode(spanCtx, node, boundaryErr)
	return boundaryErr
}

func (r *run) recordError(err *corerr.Error) {
	r.mu.Lock()
	r.state.Errors = append(r.state.Errors, err)
	r.mu.Unlock()
}

func (r *run) logNode(ctx context.Context, node string, err *corerr.Error) {
	if r.logger == nil {
		return
	}
	level := slog.LevelInfo
	msg := node + " completed"
	if err != nil {
		level = slog.LevelError
		msg = node + " failed: " + err.Message
	}
	session.Event(ctx, r.logger, level, node, "node_complete", msg)
}

func (r *run) snapshot() runstate.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.state
}

// Run executes one full pipeline invocation against input and returns the
// terminal RunState. Per spec.md §7, the returned error is non-nil only
// when the run is FAILED (no FinalVerdict was produced); every other
// failure is recorded in state.Errors and the run continues.
func Run(ctx context.Context, deps Deps, input domainmodel.RunInput) (*runstate.RunState, error) {
	r := &run{deps: deps, state: runstate.New()}

	// setup_session is not wrapped in step: it has not yet established a
	// session_id, so there is nothing to log against, and an INPUT_ERROR
	// here is unconditionally fatal per spec.md §7 - the graph must not
	// enter Agent B or later (scenario 6).
	sessionPartial, err := extraction.SetupSession(input)
	if err != nil {
		cerr := asCorerr(err, "setup_session")
		r.state.Errors = append(r.state.Errors, cerr)
		return r.state, cerr
	}
	r.state.Apply(sessionPartial)

	if deps.OnSessionReady != nil {
		deps.OnSessionReady(r.state.Session)
	}

	if deps.LogSink != nil {
		r.logger = deps.LogSink.For(orchestratorAgent, r.state.SessionID)
	}

	runExtraction(ctx, r)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runFileAnalysis(ctx, r)
	}()
	go func() {
		defer wg.Done()
		runImageAndURLAnalysis(ctx, r)
	}()
	wg.Wait()

	r.step(ctx, "determine_threat_verdict", func(ctx context.Context) (*runstate.Partial, error) {
		st := r.snapshot()
		return reportgen.DetermineThreatVerdict(ctx, deps.ReportGen, &st)
	})
	r.step(ctx, "generate_final_report", func(ctx context.Context) (*runstate.Partial, error) {
		st := r.snapshot()
		return reportgen.GenerateFinalReport(ctx, deps.ReportGen, &st)
	})

	if deps.URLInvestigation.Browsers != nil {
		deps.URLInvestigation.Browsers.CloseAll()
	}
	if deps.LogSink != nil {
		deps.LogSink.Close()
	}

	st := r.snapshot()
	if err := reportgen.SaveAnalysisResults(st.Session, &st); err != nil {
		r.recordError(asCorerr(err, "save_analysis_results"))
	}

	final := r.snapshot()
	if final.FinalVerdict == nil {
		return &final, fmt.Errorf("run FAILED for session %s: no final verdict produced", final.SessionID)
	}
	return &final, nil
}

// runExtraction drives Agent A's three remaining nodes (setup_session
// already ran in Run). A render or URL-extraction failure is non-fatal:
// the run proceeds with whatever pages/URLs were recovered.
func runExtraction(ctx context.Context, r *run) {
	st := r.snapshot()

	var rendered []pdftools.RenderedPage
	r.step(ctx, "extract_pdf_images", func(ctx context.Context) (*runstate.Partial, error) {
		partial, pages := extraction.ExtractPDFImages(ctx, r.deps.Extraction, st.Session, st.Session.SourcePath, st.PagesToProcess)
		rendered = pages
		return partial, nil
	})

	r.step(ctx, "find_embedded_urls", func(ctx context.Context) (*runstate.Partial, error) {
		annotations, textURLs, xmpURLs, err := pdftools.ExtractRawURLSources(st.Session.SourcePath)
		if err != nil {
			return &runstate.Partial{}, corerr.New("PdfExtraction", "find_embedded_urls", corerr.KindRender,
				"raw url extraction failed").WithCause(err)
		}
		return extraction.FindEmbeddedURLs(annotations, textURLs, xmpURLs), nil
	})

	r.step(ctx, "scan_qr_codes", func(ctx context.Context) (*runstate.Partial, error) {
		return extraction.ScanQRCodes(rendered), nil
	})
}

// runFileAnalysis drives Agent B's full subgraph: triage, mission
// planning, the assign/investigate/summarize loop bounded by
// fileanalysis.MaxReviewRounds review rounds, merge, and compile. It
// maintains its own local mission queue since RunState.Missions is an
// additive log of every mission ever created, not a place to record
// status transitions in place (runstate never mutates in place, per
// spec.md §9).
func runFileAnalysis(ctx context.Context, r *run) {
	st := r.snapshot()
	deps := r.deps.FileAnalysis

	var triage fileanalysis.TriageResult
	triageErr := r.step(ctx, "triage", func(ctx context.Context) (*runstate.Partial, error) {
		partial, result, err := fileanalysis.Triage(ctx, deps, st.Session.SourcePath)
		triage = result
		return partial, err
	})
	if triageErr != nil && triageErr.Kind.Fatal() {
		return
	}
	if triage.Decision == domainmodel.TriageInnocent {
		return
	}

	var queue []domainmodel.InvestigationMission
	r.step(ctx, "create_analysis_tasks", func(ctx context.Context) (*runstate.Partial, error) {
		partial, err := fileanalysis.CreateAnalysisTasks(ctx, deps, triage)
		if partial != nil {
			queue = append(queue, partial.Missions...)
		}
		return partial, err
	})

	var reports []domainmodel.MissionReport
	round := 0
	for {
		next := fileanalysis.AssignAnalysisTasks(queue)
		if next == nil {
			if round >= fileanalysis.MaxReviewRounds {
				break
			}
			var satisfied bool
			var additional []domainmodel.InvestigationMission
			r.step(ctx, "review_analysis_results", func(ctx context.Context) (*runstate.Partial, error) {
				partial, sat, err := fileanalysis.ReviewAnalysisResults(ctx, deps, reports, round)
				satisfied = sat
				if partial != nil {
					additional = partial.Missions
				}
				return partial, err
			})
			round++
			if satisfied || len(additional) == 0 {
				break
			}
			queue = append(queue, additional...)
			continue
		}

		mission := *next
		queue = removeMission(queue, mission.MissionID)

		var outcome *react.Outcome
		var status domainmodel.FileMissionStatus
		r.step(ctx, "run_investigation", func(ctx context.Context) (*runstate.Partial, error) {
			o, s, err := fileanalysis.RunInvestigation(ctx, deps, st.Session, mission, r.deps.MissionBudget)
			outcome, status = o, s
			return nil, err
		})
		mission.Status = status

		if outcome != nil {
			r.step(ctx, "summarize_mission", func(ctx context.Context) (*runstate.Partial, error) {
				report, err := fileanalysis.SummarizeMission(ctx, deps, mission, outcome)
				if err != nil {
					return nil, err
				}
				reports = append(reports, report)
				return &runstate.Partial{MissionReports: []domainmodel.MissionReport{report}}, nil
			})
		}
	}

	var master domainmodel.EvidenceGraph
	r.step(ctx, "merge_findings", func(ctx context.Context) (*runstate.Partial, error) {
		partial := fileanalysis.MergeFindings(reports)
		if partial.MasterEvidenceGraph != nil {
			master = *partial.MasterEvidenceGraph
		}
		return partial, nil
	})

	r.step(ctx, "compile_file_analysis", func(ctx context.Context) (*runstate.Partial, error) {
		return fileanalysis.CompileFileAnalysis(ctx, deps, reports, master)
	})
}

func removeMission(missions []domainmodel.InvestigationMission, id string) []domainmodel.InvestigationMission {
	out := make([]domainmodel.InvestigationMission, 0, len(missions))
	for _, m := range missions {
		if m.MissionID != id {
			out = append(out, m)
		}
	}
	return out
}

// runImageAndURLAnalysis drives Agent C followed by Agent D: C's
// compiled prioritized_urls feed D's filter/route/investigate/compile
// chain. Per URL investigations fan out concurrently (spec.md §4.8), each
// on its own browser session.
func runImageAndURLAnalysis(ctx context.Context, r *run) {
	st := r.snapshot()
	imageDeps := r.deps.ImageAnalysis

	r.step(ctx, "analyze_images", func(ctx context.Context) (*runstate.Partial, error) {
		return imageanalysis.AnalyzeImages(ctx, imageDeps, st.ExtractedImages, st.ExtractedURLs), nil
	})

	var pages []domainmodel.PageFindings
	st2 := r.snapshot()
	if st2.VisualAnalysisReport != nil {
		pages = st2.VisualAnalysisReport.PageReports
	}

	compileErr := r.step(ctx, "compile_image_findings", func(ctx context.Context) (*runstate.Partial, error) {
		return imageanalysis.CompileImageFindings(ctx, imageDeps, pages)
	})
	if compileErr != nil && compileErr.Kind.Fatal() {
		return
	}

	st3 := r.snapshot()
	var prioritized []domainmodel.PrioritizedURL
	if st3.VisualAnalysisReport != nil {
		prioritized = st3.VisualAnalysisReport.PrioritizedURLs
	}

	urlDeps := r.deps.URLInvestigation

	var filtered []domainmodel.PrioritizedURL
	r.step(ctx, "filter_urls", func(ctx context.Context) (*runstate.Partial, error) {
		partial, err := urlinvestigation.FilterURLs(prioritized, r.deps.URLPriorityThreshold)
		if partial != nil {
			filtered = partial.PrioritizedURLs
		}
		return partial, err
	})

	inProgress := urlinvestigation.RouteURLAnalysis(filtered)
	if len(inProgress) == 0 {
		return
	}

	results := make([]domainmodel.URLAnalysisResult, 0, len(inProgress))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, u := range inProgress {
		wg.Add(1)
		go func(u domainmodel.PrioritizedURL) {
			defer wg.Done()
			var outcome *react.Outcome
			investigateErr := r.step(ctx, "investigate_url", func(ctx context.Context) (*runstate.Partial, error) {
				o, err := urlinvestigation.InvestigateURL(ctx, urlDeps, u, r.deps.URLBudget)
				outcome = o
				return nil, err
			})
			if outcome == nil {
				if investigateErr != nil {
					mu.Lock()
					results = append(results, domainmodel.URLAnalysisResult{
						Initial:  u,
						Findings: domainmodel.InaccessibleFindings(u.URL),
					})
					mu.Unlock()
				}
				return
			}

			var result domainmodel.URLAnalysisResult
			r.step(ctx, "analyze_url_content", func(ctx context.Context) (*runstate.Partial, error) {
				res, err := urlinvestigation.AnalyzeURLContent(ctx, urlDeps, u, outcome)
				result = res
				return nil, err
			})
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	r.step(ctx, "compile_url_findings", func(ctx context.Context) (*runstate.Partial, error) {
		return urlinvestigation.CompileURLFindings(results), nil
	})

	st4 := r.snapshot()
	if err := urlinvestigation.SaveResults(st4.Session, results); err != nil {
		r.recordError(asCorerr(err, "save_results"))
	}
}

func asCorerr(err error, node string) *corerr.Error {
	if c, ok := err.(*corerr.Error); ok {
		return c
	}
	return corerr.New(orchestratorAgent, node, corerr.KindTool, err.Error()).WithCause(err)
}
