// Package webintel wraps the browser automation surface and WHOIS lookup
// spec.md §1 treats as external collaborators ("an opaque tool server" and
// "a pure function domain → record"). Grounded on SPEC_FULL.md §2.2's
// domain-stack table: chromedp/cdproto for the browser, likexian/whois +
// whois-parser for WHOIS.
package webintel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/goreliks/pdf-hunter-go/corerr"
)

// Session is one isolated browser session rooted at a URL investigation's
// task_id, per spec.md §4.8 ("one isolated session per URL task id").
// Navigation state persists across tool calls within a Session and is
// released by Close when the URL analyst node completes.
type Session struct {
	TaskID string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	requests []NetworkRequest
}

// NetworkRequest is one observed request, captured for the
// network_requests tool.
type NetworkRequest struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Status int64  `json:"status,omitempty"`
}

// Registry owns the set of live browser Sessions for one run, keyed by
// task_id. Grounded on registry/registry.go's RWMutex-guarded resource
// map, adapted from service registration to per-URL browser sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timeout  time.Duration
}

// NewRegistry constructs an empty Registry. timeout bounds each new
// session's navigation context; zero means no extra timeout beyond the
// caller's context.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{sessions: make(map[string]*Session), timeout: timeout}
}

// Open creates and registers a new Session for taskID, isolated from any
// other session in the registry (chromedp.NewContext allocates a fresh
// browser tab).
func (r *Registry) Open(ctx context.Context, taskID string) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		browserCancel()
		allocCancel()
	}

	if r.timeout > 0 {
		var timeoutCancel context.CancelFunc
		browserCtx, timeoutCancel = context.WithTimeout(browserCtx, r.timeout)
		prevCancel := cancel
		cancel = func() {
			timeoutCancel()
			prevCancel()
		}
	}

	sess := &Session{TaskID: taskID, ctx: browserCtx, cancel: cancel}

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			sess.mu.Lock()
			sess.requests = append(sess.requests, NetworkRequest{
				URL:    resp.Response.URL,
				Method: "GET",
				Status: resp.Response.Status,
			})
			sess.mu.Unlock()
		}
	})

	r.mu.Lock()
	r.sessions[taskID] = sess
	r.mu.Unlock()

	return sess, nil
}

// Close releases one session and removes it from the registry. Safe to
// call more than once.
func (r *Registry) Close(taskID string) {
	r.mu.Lock()
	sess, ok := r.sessions[taskID]
	if ok {
		delete(r.sessions, taskID)
	}
	r.mu.Unlock()
	if ok {
		sess.cancel()
	}
}

// CloseAll is the orchestrator-level finalizer that releases every
// remaining session on run end (spec.md §5: "An orchestrator-level
// finalizer closes any remaining sessions on run end").
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.cancel()
	}
}

// Navigate loads url and waits for the page to become ready.
func (s *Session) Navigate(url string) error {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return corerr.New("URLInvestigation", "investigate_url", corerr.KindBrowser,
			fmt.Sprintf("navigate to %s failed", url)).WithCause(err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(selector string) error {
	if err := chromedp.Run(s.ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return corerr.New("URLInvestigation", "investigate_url", corerr.KindBrowser,
			fmt.Sprintf("click %s failed", selector)).WithCause(err)
	}
	return nil
}

// FillForm types value into the element matching selector, per spec.md
// §4.8's "fill with fake credentials" mandatory behavior for phishing
// forms.
func (s *Session) FillForm(selector, value string) error {
	if err := chromedp.Run(s.ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery)); err != nil {
		return corerr.New("URLInvestigation", "investigate_url", corerr.KindBrowser,
			fmt.Sprintf("fill_form %s failed", selector)).WithCause(err)
	}
	return nil
}

// Screenshot captures the current viewport. The mode ("tactical" vs
// "forensic") is caller metadata only; both capture the same way.
func (s *Session) Screenshot() ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(s.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, corerr.New("URLInvestigation", "investigate_url", corerr.KindBrowser, "screenshot failed").WithCause(err)
	}
	return buf, nil
}

// Evaluate runs js, which must be expressed as an arrow-function string
// per spec.md §6. js is wrapped as "(" + js + ")()" and the result is
// invoked in the page, so an expression that is not a function fails there
// with BROWSER_ERROR; the syntax is not parsed or checked in Go.
func (s *Session) Evaluate(js string) (any, error) {
	var result any
	if err := chromedp.Run(s.ctx, chromedp.Evaluate("("+js+")()", &result)); err != nil {
		return nil, corerr.New("URLInvestigation", "investigate_url", corerr.KindBrowser, "evaluate failed").WithCause(err)
	}
	return result, nil
}

// NetworkRequests returns every request observed since the session was
// opened.
func (s *Session) NetworkRequests() []NetworkRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NetworkRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// DismissConsentDialogs best-effort clicks common cookie/consent dialog
// selectors, per spec.md §4.8's mandatory pre-analysis behavior.
func (s *Session) DismissConsentDialogs() {
	candidates := []string{
		`button[id*="accept" i]`,
		`button[class*="accept" i]`,
		`button[id*="consent" i]`,
		`#onetrust-accept-btn-handler`,
	}
	for _, sel := range candidates {
		_ = chromedp.Run(s.ctx, chromedp.Click(sel, chromedp.ByQuery))
	}
}
