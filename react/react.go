// Package react implements the generic bounded ReAct investigator: a loop
// that alternates model calls against a tool registry until the model
// returns no further tool calls or a step budget is exhausted. It never
// interprets a tool's result — that is the caller's analyst node's job —
// it only routes observations back into the transcript.
//
// Grounded on the teacher's agent.Harness execution/streaming dispatch:
// a driver that owns one bounded loop over a pluggable step function,
// generalized here away from the Gibson mission framework and the
// deleted proto tool-call transport.
package react

import (
	"context"
	"sync"

	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/llmgw"
	"github.com/goreliks/pdf-hunter-go/tool"
)

// Status is the terminal status of one Driver.Run invocation.
type Status string

const (
	// StatusDone means the model returned no tool calls: natural termination.
	StatusDone Status = "DONE"

	// StatusBlocked means the loop stopped before natural termination: the
	// step budget reached zero (an exhausted action budget ends the loop the
	// same way), or the context was cancelled or a model call failed, in
	// which case Run also returns that error (spec P9).
	StatusBlocked Status = "BLOCKED"
)

// Budget bounds one investigation. StepBudget counts model turns.
// ActionBudget separately counts tool calls that mutate remote state
// (browser navigate/click/fill_form); pure observation tools (screenshot,
// evaluate, network_requests, domain_whois, reflect) never count against
// it. A zero ActionBudget disables the check.
type Budget struct {
	StepBudget   int
	ActionBudget int
}

// Outcome is what Driver.Run returns.
type Outcome struct {
	Status      Status
	FinalText   string
	Transcript  domainmodel.InvestigatorTranscript
	StepsUsed   int
	ActionsUsed int
}

// Registry resolves a tool by name and reports whether invoking it counts
// against the action budget.
type Registry struct {
	tools         map[string]tool.Tool
	stateChanging map[string]bool
}

// NewRegistry builds a Registry from a set of tools. stateChanging names
// the subset of tool names whose invocations count against the action
// budget (browser navigate/click/fill_form, per spec.md §4.4); every
// other registered tool is a pure observation.
func NewRegistry(tools []tool.Tool, stateChanging ...string) *Registry {
	r := &Registry{tools: make(map[string]tool.Tool, len(tools)), stateChanging: make(map[string]bool, len(stateChanging))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	for _, name := range stateChanging {
		r.stateChanging[name] = true
	}
	return r
}

func (r *Registry) lookup(name string) (tool.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) countsAgainstAction(name string) bool {
	return r.stateChanging[name]
}

// Defs returns the llm.ToolDef list to offer the model, derived from each
// tool's descriptor.
func (r *Registry) Defs() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schemaToParameters(t),
		})
	}
	return defs
}

func schemaToParameters(t tool.Tool) map[string]any {
	raw := t.InputSchema()
	props := make(map[string]any, len(raw.Properties))
	for k, v := range raw.Properties {
		props[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   raw.Required,
	}
}

// Driver runs one bounded ReAct loop against an llmgw.Client and a
// Registry. A single Driver instance is reused across investigations; it
// holds no per-run state.
type Driver struct {
	gateway  *llmgw.Client
	registry *Registry
}

// New constructs a Driver.
func New(gateway *llmgw.Client, registry *Registry) *Driver {
	return &Driver{gateway: gateway, registry: registry}
}

// Run executes the bounded loop described in spec.md §4.4: call
// complete_with_tools, terminate naturally if no tool calls come back,
// otherwise execute each tool call (blocking tools run on their own
// goroutine so the outer context's cancellation is observed promptly) and
// append observations, decrementing the step budget each turn.
func (d *Driver) Run(ctx context.Context, agent, node string, initial []llm.Message, budget Budget) (*Outcome, error) {
	transcript := domainmodel.InvestigatorTranscript{Messages: toTranscriptMessages(initial)}
	messages := append([]llm.Message(nil), initial...)

	stepsUsed := 0
	actionsUsed := 0
	stepBudget := budget.StepBudget
	if stepBudget <= 0 {
		stepBudget = 1
	}

	for stepsUsed < stepBudget {
		select {
		case <-ctx.Done():
			return &Outcome{Status: StatusBlocked, Transcript: transcript, StepsUsed: stepsUsed, ActionsUsed: actionsUsed}, ctx.Err()
		default:
		}

		resp, err := d.gateway.CompleteWithTools(ctx, agent, node, messages, d.registry.Defs())
		stepsUsed++
		if err != nil {
			return &Outcome{Status: StatusBlocked, Transcript: transcript, StepsUsed: stepsUsed, ActionsUsed: actionsUsed}, err
		}

		if !resp.HasToolCalls() {
			assistantMsg := llm.Message{Role: llm.RoleAssistant, Content: resp.Content}
			messages = append(messages, assistantMsg)
			transcript.Messages = append(transcript.Messages, domainmodel.TranscriptMessage{Role: domainmodel.RoleAssistant, Content: resp.Content})
			return &Outcome{Status: StatusDone, FinalText: resp.Content, Transcript: transcript, StepsUsed: stepsUsed, ActionsUsed: actionsUsed}, nil
		}

		assistantMsg := llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls}
		messages = append(messages, assistantMsg)
		transcript.Messages = append(transcript.Messages, domainmodel.TranscriptMessage{Role: domainmodel.RoleAssistant, Content: resp.Content})

		results := d.dispatchToolCalls(ctx, resp.ToolCalls)
		for _, tc := range resp.ToolCalls {
			if d.registry.countsAgainstAction(tc.Name) {
				actionsUsed++
				if budget.ActionBudget > 0 && actionsUsed >= budget.ActionBudget {
					// hard limit reached mid-turn: still deliver this
					// turn's observations so the transcript stays
					// consistent, then stop issuing further turns.
					stepBudget = stepsUsed
				}
			}
		}

		toolResults := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			result := results[tc.ID]
			toolResults = append(toolResults, result)
			transcript.Messages = append(transcript.Messages, domainmodel.TranscriptMessage{
				Role:       domainmodel.RoleTool,
				Content:    result.Content,
				ToolCallID: tc.ID,
			})
		}
		messages = append(messages, llm.Message{Role: llm.RoleTool, ToolResults: toolResults, Name: "observations"})
	}

	return &Outcome{Status: StatusBlocked, Transcript: transcript, StepsUsed: stepsUsed, ActionsUsed: actionsUsed}, nil
}

// dispatchToolCalls invokes every tool call concurrently, each on its own
// goroutine so that blocking tools (subprocess wrappers, browser RPCs)
// never stall the others, and so ctx cancellation reaches each call
// promptly rather than only after the slowest one returns.
func (d *Driver) dispatchToolCalls(ctx context.Context, calls []llm.ToolCall) map[string]llm.ToolResult {
	results := make(map[string]llm.ToolResult, len(calls))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, call := range calls {
		wg.Add(1)
		go func(tc llm.ToolCall) {
			defer wg.Done()
			result := d.invokeOne(ctx, tc)
			mu.Lock()
			results[tc.ID] = result
			mu.Unlock()
		}(call)
	}
	wg.Wait()
	return results
}

func (d *Driver) invokeOne(ctx context.Context, tc llm.ToolCall) llm.ToolResult {
	t, ok := d.registry.lookup(tc.Name)
	if !ok {
		return llm.NewToolError(tc.ID, "unknown tool: "+tc.Name)
	}

	var args map[string]any
	if err := tc.ParseArguments(&args); err != nil {
		return llm.NewToolError(tc.ID, "invalid tool arguments: "+err.Error())
	}

	out, err := t.Execute(ctx, args)
	if err != nil {
		return llm.NewToolError(tc.ID, err.Error())
	}

	result := llm.NewToolResult(tc.ID, "")
	if err := result.SetJSONContent(out); err != nil {
		return llm.NewToolError(tc.ID, "failed to encode tool output: "+err.Error())
	}
	return result
}

func toTranscriptMessages(messages []llm.Message) []domainmodel.TranscriptMessage {
	out := make([]domainmodel.TranscriptMessage, 0, len(messages))
	for _, m := range messages {
		role := domainmodel.Role(m.Role)
		out = append(out, domainmodel.TranscriptMessage{Role: role, Content: m.Content})
	}
	return out
}
