package webintel

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goreliks/pdf-hunter-go/schema"
	"github.com/goreliks/pdf-hunter-go/tool"
	"github.com/goreliks/pdf-hunter-go/types"
)

// BrowserTools bundles the browser tool.Tool adapters for one Session,
// offered to a URL investigator's react.Driver per spec.md §4.8.
type BrowserTools struct {
	Session *Session
}

type navigateTool struct{ t *BrowserTools }
type clickTool struct{ t *BrowserTools }
type fillFormTool struct{ t *BrowserTools }
type screenshotTool struct{ t *BrowserTools }
type evaluateTool struct{ t *BrowserTools }
type networkRequestsTool struct{ t *BrowserTools }
type whoisTool struct{}

// Tools returns the complete tool set for a URL investigator: the six
// browser tools plus domain_whois, per spec.md §4.8. reflect is shared
// across agents and lives in pdftools.ReflectTool.
func (b *BrowserTools) Tools() []tool.Tool {
	return []tool.Tool{
		&navigateTool{t: b}, &clickTool{t: b}, &fillFormTool{t: b},
		&screenshotTool{t: b}, &evaluateTool{t: b}, &networkRequestsTool{t: b},
		&whoisTool{},
	}
}

// StateChangingToolNames is the subset of browser tool names that count
// against the action budget (navigate, click, fill_form), per spec.md
// §4.4: screenshot/evaluate/network_requests/domain_whois/reflect are
// pure observations and never count.
func StateChangingToolNames() []string {
	return []string{"navigate", "click", "fill_form"}
}

func healthy(ctx context.Context) types.HealthStatus { return types.NewHealthyStatus("ok") }

func (navigateTool) Name() string        { return "navigate" }
func (navigateTool) Version() string     { return "1.0.0" }
func (navigateTool) Description() string { return "Navigates the browser session to a URL." }
func (navigateTool) Tags() []string       { return []string{"browser"} }
func (navigateTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"url": schema.String()}, "url")
}
func (navigateTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"navigated": schema.Bool()}, "navigated")
}
func (navigateTool) Health(ctx context.Context) types.HealthStatus { return healthy(ctx) }
func (n *navigateTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	target, _ := input["url"].(string)
	if target == "" {
		return nil, fmt.Errorf("url is required")
	}
	if err := n.t.Session.Navigate(target); err != nil {
		return nil, err
	}
	n.t.Session.DismissConsentDialogs()
	return map[string]any{"navigated": true}, nil
}

func (clickTool) Name() string        { return "click" }
func (clickTool) Version() string     { return "1.0.0" }
func (clickTool) Description() string { return "Clicks the first element matching a CSS selector." }
func (clickTool) Tags() []string       { return []string{"browser"} }
func (clickTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"selector": schema.String()}, "selector")
}
func (clickTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"clicked": schema.Bool()}, "clicked")
}
func (clickTool) Health(ctx context.Context) types.HealthStatus { return healthy(ctx) }
func (c *clickTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	selector, _ := input["selector"].(string)
	if selector == "" {
		return nil, fmt.Errorf("selector is required")
	}
	if err := c.t.Session.Click(selector); err != nil {
		return nil, err
	}
	return map[string]any{"clicked": true}, nil
}

func (fillFormTool) Name() string    { return "fill_form" }
func (fillFormTool) Version() string { return "1.0.0" }
func (fillFormTool) Description() string {
	return "Types a value into a form field. Use fake credentials on suspected phishing forms to surface the submission endpoint."
}
func (fillFormTool) Tags() []string { return []string{"browser"} }
func (fillFormTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{
		"selector": schema.String(),
		"value":    schema.String(),
	}, "selector", "value")
}
func (fillFormTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"filled": schema.Bool()}, "filled")
}
func (fillFormTool) Health(ctx context.Context) types.HealthStatus { return healthy(ctx) }
func (f *fillFormTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	selector, _ := input["selector"].(string)
	value, _ := input["value"].(string)
	if selector == "" {
		return nil, fmt.Errorf("selector is required")
	}
	if err := f.t.Session.FillForm(selector, value); err != nil {
		return nil, err
	}
	return map[string]any{"filled": true}, nil
}

func (screenshotTool) Name() string        { return "screenshot" }
func (screenshotTool) Version() string     { return "1.0.0" }
func (screenshotTool) Description() string { return "Captures a screenshot of the current viewport." }
func (screenshotTool) Tags() []string       { return []string{"browser"} }
func (screenshotTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"mode": schema.Enum("tactical", "forensic")})
}
func (screenshotTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"bytes_len": schema.Int()}, "bytes_len")
}
func (screenshotTool) Health(ctx context.Context) types.HealthStatus { return healthy(ctx) }
func (s *screenshotTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	data, err := s.t.Session.Screenshot()
	if err != nil {
		return nil, err
	}
	return map[string]any{"bytes_len": len(data)}, nil
}

func (evaluateTool) Name() string        { return "evaluate" }
func (evaluateTool) Version() string     { return "1.0.0" }
func (evaluateTool) Description() string {
	return "Evaluates JavaScript in the page. js must be an arrow-function expression."
}
func (evaluateTool) Tags() []string { return []string{"browser"} }
func (evaluateTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"js": schema.String()}, "js")
}
func (evaluateTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"result": schema.Any()})
}
func (evaluateTool) Health(ctx context.Context) types.HealthStatus { return healthy(ctx) }
func (e *evaluateTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	js, _ := input["js"].(string)
	if js == "" {
		return nil, fmt.Errorf("js is required")
	}
	result, err := e.t.Session.Evaluate(js)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": result}, nil
}

func (networkRequestsTool) Name() string    { return "network_requests" }
func (networkRequestsTool) Version() string { return "1.0.0" }
func (networkRequestsTool) Description() string {
	return "Returns every network request observed since the session opened."
}
func (networkRequestsTool) Tags() []string { return []string{"browser"} }
func (networkRequestsTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{})
}
func (networkRequestsTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"requests": schema.Array(schema.Any())}, "requests")
}
func (networkRequestsTool) Health(ctx context.Context) types.HealthStatus { return healthy(ctx) }
func (n *networkRequestsTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return map[string]any{"requests": n.t.Session.NetworkRequests()}, nil
}

func (whoisTool) Name() string        { return "domain_whois" }
func (whoisTool) Version() string     { return "1.0.0" }
func (whoisTool) Description() string { return "Looks up a WHOIS record for a domain." }
func (whoisTool) Tags() []string       { return []string{"whois"} }
func (whoisTool) InputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"domain": schema.String()}, "domain")
}
func (whoisTool) OutputSchema() schema.JSON {
	return schema.Object(map[string]schema.JSON{"summary": schema.String()}, "summary")
}
func (whoisTool) Health(ctx context.Context) types.HealthStatus { return healthy(ctx) }
func (whoisTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	domain, _ := input["domain"].(string)
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	summary, err := WhoisLookup(domain)
	if err != nil {
		return nil, err
	}
	return map[string]any{"summary": summary}, nil
}

// RootDomain extracts the registrable-ish host from a URL for the
// domain_whois tool, stripping scheme, port, and path. It is a pragmatic
// simplification, not a public-suffix-list-aware registrable domain
// parser — sufficient for deciding which host to hand to WhoisLookup.
func RootDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return host, nil
}
