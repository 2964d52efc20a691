// Package llmgw is the LLM Gateway: a single abstraction over three call
// modes (free text, schema-validated structured output, and tool-calling)
// built on the kept llm package's request/response types. It is grounded
// on the teacher's CallbackHarness.Complete — the gen_ai.* OpenTelemetry
// span conventions and NewCompletionRequest plumbing are kept; the gRPC
// transport to an external orchestrator process is replaced by a
// pluggable Provider interface, since the proto package it depended on is
// not part of the retrieval pack.
package llmgw

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goreliks/pdf-hunter-go/corerr"
	"github.com/goreliks/pdf-hunter-go/llm"
	"github.com/goreliks/pdf-hunter-go/schema"
)

// Provider performs one raw completion call against a concrete LLM
// backend. Implementations are expected to honor ctx's deadline.
type Provider interface {
	Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Config configures a Client's deadlines. Temperature is deliberately not
// configurable: per spec.md §4.3 it is fixed at 0 for determinism.
type Config struct {
	Provider Provider
	Tracer   trace.Tracer

	// TextTimeout bounds free-text and structured completions.
	// Default: 60s, matching LLM_TIMEOUT_TEXT.
	TextTimeout time.Duration

	// ToolTimeout bounds tool-calling completions, which typically need
	// more headroom for larger contexts. Default: 120s.
	ToolTimeout time.Duration
}

// Client is the LLM Gateway. All three methods are cancellable and always
// apply a deadline even if the caller's context has none.
type Client struct {
	provider    Provider
	tracer      trace.Tracer
	textTimeout time.Duration
	toolTimeout time.Duration
}

// New constructs a Client. A nil Tracer is replaced with the no-op tracer.
func New(cfg Config) *Client {
	textTimeout := cfg.TextTimeout
	if textTimeout <= 0 {
		textTimeout = 60 * time.Second
	}
	toolTimeout := cfg.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = 120 * time.Second
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("pdf-hunter-go/llmgw")
	}
	return &Client{provider: cfg.Provider, tracer: tracer, textTimeout: textTimeout, toolTimeout: toolTimeout}
}

const temperatureFixed = 0.0

func (c *Client) startSpan(ctx context.Context, messages []llm.Message) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "gen_ai.chat",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", "pdf-hunter"),
			attribute.Int("gen_ai.request.message_count", len(messages)),
			attribute.Float64("gen_ai.request.temperature", temperatureFixed),
		),
	)
	return ctx, span
}

// Complete performs a free-text completion (spec.md "complete(messages) -> text").
func (c *Client) Complete(ctx context.Context, agent, node string, messages []llm.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.textTimeout)
	defer cancel()

	ctx, span := c.startSpan(ctx, messages)
	defer span.End()

	req := llm.NewCompletionRequest(messages, llm.WithTemperature(temperatureFixed))
	resp, err := c.provider.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", classifyTimeout(agent, node, err)
	}
	return resp.Content, nil
}

// CompleteStructured performs a schema-bound completion and unmarshals the
// model's output into out, which must be a pointer. On a schema violation
// it retries exactly once before failing with corerr.KindLLMSchema, per
// spec.md §4.3.
func (c *Client) CompleteStructured(ctx context.Context, agent, node string, messages []llm.Message, schemaDef schema.JSON, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.textTimeout)
	defer cancel()

	ctx, span := c.startSpan(ctx, messages)
	defer span.End()
	span.SetAttributes(attribute.String("gen_ai.response.format", "json_schema"))

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req := llm.NewCompletionRequest(messages, llm.WithTemperature(temperatureFixed))
		resp, err := c.provider.Complete(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return classifyTimeout(agent, node, err)
		}

		var asMap map[string]any
		if unmarshalErr := json.Unmarshal([]byte(resp.Content), &asMap); unmarshalErr != nil {
			lastErr = unmarshalErr
			continue
		}
		if validateErr := schemaDef.Validate(asMap); validateErr != nil {
			lastErr = validateErr
			continue
		}
		if unmarshalErr := json.Unmarshal([]byte(resp.Content), out); unmarshalErr != nil {
			lastErr = unmarshalErr
			continue
		}
		return nil
	}

	err := corerr.New(agent, node, corerr.KindLLMSchema, "structured output did not conform after retry").WithCause(lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// CompleteWithTools performs a tool-calling completion: the model may
// return zero or more tool invocations for the caller (the ReAct driver)
// to execute and feed back as observations.
func (c *Client) CompleteWithTools(ctx context.Context, agent, node string, messages []llm.Message, tools []llm.ToolDef) (*llm.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.toolTimeout)
	defer cancel()

	ctx, span := c.startSpan(ctx, messages)
	defer span.End()
	span.SetAttributes(attribute.Int("gen_ai.request.tool_count", len(tools)))

	req := llm.NewCompletionRequest(messages, llm.WithTemperature(temperatureFixed), llm.WithTools(tools...))
	resp, err := c.provider.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyTimeout(agent, node, err)
	}
	span.SetAttributes(attribute.Int("gen_ai.response.tool_call_count", len(resp.ToolCalls)))
	return resp, nil
}

func classifyTimeout(agent, node string, err error) error {
	if err == context.DeadlineExceeded {
		return corerr.New(agent, node, corerr.KindLLMTimeout, "llm call exceeded its deadline").WithCause(err)
	}
	return corerr.New(agent, node, corerr.KindLLMTimeout, "llm call failed").WithCause(err)
}
