package react

import (
	"context"
	"testing"

	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/llmgw"
	"github.com/goreliks/pdf-hunter-go/schema"
	"github.com/goreliks/pdf-hunter-go/tool"
	"github.com/goreliks/pdf-hunter-go/types"
)

type stepProvider struct {
	calls     int
	responses []*llm.CompletionResponse
}

func (p *stepProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	idx := p.calls
	p.calls++
	if idx >= len(p.responses) {
		return p.responses[len(p.responses)-1], nil
	}
	return p.responses[idx], nil
}

type echoTool struct {
	name string
}

func (e *echoTool) Name() string              { return e.name }
func (e *echoTool) Version() string           { return "1.0.0" }
func (e *echoTool) Description() string       { return "echoes its input back" }
func (e *echoTool) Tags() []string             { return []string{"test"} }
func (e *echoTool) InputSchema() schema.JSON  { return schema.Object(map[string]schema.JSON{}) }
func (e *echoTool) OutputSchema() schema.JSON { return schema.Object(map[string]schema.JSON{}) }
func (e *echoTool) Health(ctx context.Context) types.HealthStatus {
	return types.NewHealthyStatus("ok")
}
func (e *echoTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return map[string]any{"echo": input}, nil
}

func TestRunTerminatesNaturallyWithNoToolCalls(t *testing.T) {
	p := &stepProvider{responses: []*llm.CompletionResponse{{Content: "no further action needed"}}}
	gw := llmgw.New(llmgw.Config{Provider: p})
	reg := NewRegistry(nil)
	d := New(gw, reg)

	outcome, err := d.Run(context.Background(), "FileAnalysis", "run_investigation",
		[]llm.Message{{Role: llm.RoleSystem, Content: "investigate"}}, Budget{StepBudget: 5})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if outcome.Status != StatusDone {
		t.Errorf("got status %v, want %v", outcome.Status, StatusDone)
	}
	if outcome.StepsUsed != 1 {
		t.Errorf("got %d steps used, want 1", outcome.StepsUsed)
	}
}

func TestRunDispatchesToolCallsAndContinues(t *testing.T) {
	p := &stepProvider{responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "reflect", Arguments: `{"note":"hi"}`}}},
		{Content: "done after observation"},
	}}
	gw := llmgw.New(llmgw.Config{Provider: p})
	reg := NewRegistry([]tool.Tool{&echoTool{name: "reflect"}})
	d := New(gw, reg)

	outcome, err := d.Run(context.Background(), "FileAnalysis", "run_investigation",
		[]llm.Message{{Role: llm.RoleSystem, Content: "investigate"}}, Budget{StepBudget: 5})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if outcome.Status != StatusDone {
		t.Errorf("got status %v, want %v", outcome.Status, StatusDone)
	}
	if outcome.StepsUsed != 2 {
		t.Errorf("got %d steps used, want 2", outcome.StepsUsed)
	}
}

func TestRunTerminatesBlockedOnStepBudgetExhaustion(t *testing.T) {
	p := &stepProvider{responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "reflect", Arguments: `{}`}}},
	}}
	gw := llmgw.New(llmgw.Config{Provider: p})
	reg := NewRegistry([]tool.Tool{&echoTool{name: "reflect"}})
	d := New(gw, reg)

	outcome, err := d.Run(context.Background(), "URLInvestigation", "investigate_url",
		[]llm.Message{{Role: llm.RoleSystem, Content: "investigate"}}, Budget{StepBudget: 2})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if outcome.Status != StatusBlocked {
		t.Errorf("got status %v, want %v", outcome.Status, StatusBlocked)
	}
}

func TestActionBudgetCountsOnlyStateChangingTools(t *testing.T) {
	reg := NewRegistry([]tool.Tool{&echoTool{name: "navigate"}, &echoTool{name: "screenshot"}}, "navigate")
	if !reg.countsAgainstAction("navigate") {
		t.Error("expected navigate to count against the action budget")
	}
	if reg.countsAgainstAction("screenshot") {
		t.Error("expected screenshot not to count against the action budget")
	}
}
