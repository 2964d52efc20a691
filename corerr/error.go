// Package corerr provides the structured error type threaded through the
// orchestration graph. It generalizes the tool-level error shape in
// toolerr (Tool/Operation/Code) to the graph-level shape the orchestrator
// and agents use (Agent/Node/Kind), with a fixed taxonomy of eight error
// kinds instead of an open set of tool error codes.
package corerr

import (
	"fmt"
	"strings"
)

// Kind is one of the eight error kinds the orchestration graph recognizes.
// Unlike toolerr's open-ended Code strings, Kind is a closed set: every
// node boundary classifies its failure into exactly one of these.
type Kind string

const (
	// KindInput marks an unreadable or absent PDF, or invalid run arguments.
	// Fatal: the run fails fast before Agent A completes.
	KindInput Kind = "INPUT_ERROR"

	// KindRender marks a page render or QR decode failure. Local: the page
	// is skipped, the error recorded, and extraction continues.
	KindRender Kind = "RENDER_ERROR"

	// KindTool marks an external PDF tool or subprocess failure. Surfaced
	// to the ReAct driver as a tool observation; not fatal.
	KindTool Kind = "TOOL_ERROR"

	// KindLLMTimeout marks a deadline exceeded on an LLM call. The owning
	// mission or URL investigation ends FAILED; never fatal at run level.
	KindLLMTimeout Kind = "LLM_TIMEOUT"

	// KindLLMSchema marks a structured completion that did not conform to
	// its schema after one retry. The owning node's terminal status is
	// FAILED.
	KindLLMSchema Kind = "LLM_SCHEMA_ERROR"

	// KindRecursionLimit marks a ReAct step budget exhausted without
	// natural termination. A file-analysis mission goes BLOCKED; a URL
	// investigation goes FAILED with a synthetic Inaccessible verdict.
	KindRecursionLimit Kind = "RECURSION_LIMIT"

	// KindBrowser marks a navigation, click, or evaluate failure in the
	// browser automation tool. Surfaced as a tool observation; the
	// investigation continues.
	KindBrowser Kind = "BROWSER_ERROR"

	// KindPersistence marks a session directory write failure. Fatal only
	// if it affects the final report write; otherwise logged.
	KindPersistence Kind = "PERSISTENCE_ERROR"
)

// Fatal reports whether a Kind, on its own, must fail the entire run. Only
// INPUT_ERROR is unconditionally fatal; PERSISTENCE_ERROR is conditionally
// fatal and is judged by the orchestrator code that receives it, not by
// this table.
func (k Kind) Fatal() bool {
	return k == KindInput
}

// Error is the structured error record recorded in RunState.Errors and
// surfaced in the Markdown report's Limitations section. It mirrors
// toolerr.Error's shape with Agent replacing Tool and Node replacing
// Operation, reflecting that these errors are raised at orchestration
// graph boundaries rather than inside a single tool adapter.
type Error struct {
	// Agent is the PascalCase agent name that raised the error, e.g.
	// "PdfExtraction", "FileAnalysis", "ImageAnalysis", "URLInvestigation",
	// "ReportGenerator".
	Agent string `json:"agent"`

	// Node is the snake_case node name within that agent's subgraph.
	Node string `json:"node"`

	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// New creates a structured orchestration error.
func New(agent, node string, kind Kind, message string) *Error {
	return &Error{Agent: agent, Node: node, Kind: kind, Message: message}
}

// WithCause attaches the underlying error and returns the receiver for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetails attaches structured context and returns the receiver for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Error implements the error interface, formatting as
// "Agent/node [KIND]: message: cause".
func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("%s/%s [%s]", e.Agent, e.Node, e.Kind)}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause, enabling errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality by Agent, Node, and Kind, matching toolerr.Error.Is's
// convention of comparing classification fields rather than messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Agent == t.Agent && e.Node == t.Node && e.Kind == t.Kind
}
