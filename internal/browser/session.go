package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

// targetAttr marks the element a Click or Fill should act on
const targetAttr = "data-crudcheck-target"

// Session is one isolated browser context with a single tab
type Session struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	opts      Options
	logger    arbor.ILogger
	idle      *idleTracker
	marks     atomic.Int64
}

var (
	_ interfaces.BrowserSession = (*Session)(nil)
	_ interfaces.PageInspector  = (*Session)(nil)
)

func newSession(tabCtx context.Context, tabCancel context.CancelFunc, opts Options, logger arbor.ILogger) *Session {
	return &Session{
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
		opts:      opts,
		logger:    logger,
		idle:      newIdleTracker(time.Now),
	}
}

// listen wires network accounting and dialog auto-accept
func (s *Session) listen() {
	chromedp.ListenTarget(s.tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.idle.started(string(e.RequestID))
		case *network.EventLoadingFinished:
			s.idle.finished(string(e.RequestID))
		case *network.EventLoadingFailed:
			s.idle.finished(string(e.RequestID))
		case *page.EventJavascriptDialogOpening:
			s.logger.Debug().Str("type", string(e.Type)).Str("message", e.Message).Msg("Accepting dialog")
			// Handling the dialog from inside the listener would deadlock the event loop
			common.SafeGo(s.logger, "accept-dialog", func() {
				if err := chromedp.Run(s.tabCtx, page.HandleJavaScriptDialog(true)); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to accept dialog")
				}
			})
		}
	})
}

// bind returns a context that carries the tab but is cancelled with ctx
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads target; relative paths resolve against the base URL
func (s *Session) Navigate(ctx context.Context, target string) error {
	resolved, err := ResolveURL(s.opts.BaseURL, target)
	if err != nil {
		return err
	}
	s.logger.Debug().Str("url", resolved).Msg("Navigating")
	if err := s.run(ctx, chromedp.Navigate(resolved)); err != nil {
		return fmt.Errorf("navigate to %s: %w", resolved, err)
	}
	return nil
}

// WaitForNetworkIdle waits for a quiet window with no requests in flight
func (s *Session) WaitForNetworkIdle(ctx context.Context) error {
	return s.idle.wait(ctx, s.opts.Backoff, s.opts.IdleQuiet, s.opts.IdleTimeout)
}

type queryResult struct {
	Index   int    `json:"index"`
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
	Value   string `json:"value"`
	Marked  bool   `json:"marked"`
}

// queryJS resolves a css, xpath or text expression, optionally marking one match.
// Text matching keeps only the innermost elements when no tag narrows the search.
const queryJS = `(function(kind, expr, needle, markIndex, markAttr, markValue) {
	function norm(s) { return (s || "").replace(/\s+/g, " ").trim().toLowerCase(); }
	var els = [];
	try {
		if (kind === "xpath") {
			var r = document.evaluate(expr, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			for (var i = 0; i < r.snapshotLength; i++) { els.push(r.snapshotItem(i)); }
		} else {
			els = Array.prototype.slice.call(document.querySelectorAll(expr));
		}
	} catch (e) {
		return [];
	}
	if (kind === "text") {
		els = els.filter(function(el) {
			if (norm(el.textContent).indexOf(needle) < 0) { return false; }
			if (expr !== "*") { return true; }
			for (var c = el.firstElementChild; c; c = c.nextElementSibling) {
				if (norm(c.textContent).indexOf(needle) >= 0) { return false; }
			}
			return true;
		});
	}
	return els.map(function(el, i) {
		var style = window.getComputedStyle(el);
		var rect = el.getBoundingClientRect();
		var visible = style.visibility !== "hidden" && style.display !== "none" && rect.width > 0 && rect.height > 0;
		var marked = false;
		if (i === markIndex) {
			el.setAttribute(markAttr, markValue);
			marked = true;
		}
		return {
			index: i,
			visible: visible,
			text: (el.innerText || el.textContent || "").trim(),
			value: (el.value === undefined || el.value === null) ? "" : String(el.value),
			marked: marked
		};
	});
})(%s, %s, %s, %d, %s, %s)`

func (s *Session) evaluate(ctx context.Context, loc models.Locator, markIndex int, mark string) ([]queryResult, error) {
	kind, expr, needle := Expression(loc)
	script := fmt.Sprintf(queryJS, jsString(kind), jsString(expr), jsString(needle), markIndex, jsString(targetAttr), jsString(mark))

	var results []queryResult
	if err := s.run(ctx, chromedp.Evaluate(script, &results)); err != nil {
		return nil, err
	}
	return results, nil
}

// Query snapshots the elements matched by loc right now.
// Evaluation failures while the page is mid-navigation read as "nothing matched".
func (s *Session) Query(ctx context.Context, loc models.Locator) ([]models.ElementState, error) {
	results, err := s.evaluate(ctx, loc, -1, "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Debug().Str("locator", loc.String()).Err(err).Msg("Query failed, treating as no match")
		return nil, nil
	}

	states := make([]models.ElementState, len(results))
	for i, r := range results {
		states[i] = models.ElementState{Index: r.Index, Visible: r.Visible, Text: r.Text, Value: r.Value}
	}
	return states, nil
}

// mark tags the index-th match of loc and returns a CSS selector for it
func (s *Session) mark(ctx context.Context, loc models.Locator, index int) (string, error) {
	value := fmt.Sprintf("m%d", s.marks.Add(1))
	results, err := s.evaluate(ctx, loc, index, value)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", loc, err)
	}
	if index < 0 || index >= len(results) || !results[index].Marked {
		return "", fmt.Errorf("%s[%d] is no longer in the page (%d matches)", loc, index, len(results))
	}
	return fmt.Sprintf(`[%s="%s"]`, targetAttr, value), nil
}

func (s *Session) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Action <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Action)
}

// Click clicks the index-th element matched by loc
func (s *Session) Click(ctx context.Context, loc models.Locator, index int) error {
	actionCtx, cancel := s.actionContext(ctx)
	defer cancel()

	sel, err := s.mark(actionCtx, loc, index)
	if err != nil {
		return err
	}
	if err := s.run(actionCtx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s[%d]: %w", loc, index, err)
	}
	return nil
}

// Fill clears the index-th input matched by loc and types value
func (s *Session) Fill(ctx context.Context, loc models.Locator, index int, value string) error {
	actionCtx, cancel := s.actionContext(ctx)
	defer cancel()

	sel, err := s.mark(actionCtx, loc, index)
	if err != nil {
		return err
	}

	actions := []chromedp.Action{
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
	}
	if value != "" {
		actions = append(actions, chromedp.SendKeys(sel, value, chromedp.ByQuery))
	} else {
		// Clearing alone does not notify input listeners
		actions = append(actions, chromedp.Evaluate(fmt.Sprintf(
			`(function(el){ if (el) { el.dispatchEvent(new Event("input", {bubbles: true})); el.dispatchEvent(new Event("change", {bubbles: true})); } })(document.querySelector(%s))`,
			jsString(sel)), nil))
	}

	if err := s.run(actionCtx, actions...); err != nil {
		return fmt.Errorf("fill %s[%d]: %w", loc, index, err)
	}
	return nil
}

// CurrentURL returns the page location
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// HTML returns the serialized document
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Screenshot captures the full page as PNG
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close disposes the browser context
func (s *Session) Close() error {
	s.tabCancel()
	return nil
}

// ResolveURL resolves target against base; absolute targets pass through
func ResolveURL(base, target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}
	if ref.IsAbs() || base == "" {
		return target, nil
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(ref.Path, "/"), RawQuery: ref.RawQuery, Fragment: ref.Fragment}).String(), nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
