// Package browser implements the browser capability on top of chromedp.
//
// One Chrome process is started per Factory. Each scenario gets its own
// incognito-style browser context so cookies and storage never leak between
// scenarios.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
)

// Options configures the browser factory
type Options struct {
	Browser     common.BrowserConfig
	BaseURL     string
	IdleQuiet   time.Duration // quiet window for network idle
	IdleTimeout time.Duration // upper bound for one network idle wait
	Action      time.Duration // upper bound for one click or fill
	Backoff     common.Backoff
}

// OptionsFromConfig derives factory options from the harness configuration
func OptionsFromConfig(config *common.Config) Options {
	return Options{
		Browser:     config.Browser,
		BaseURL:     config.App.BaseURL,
		IdleQuiet:   config.Timeouts.NetworkIdleQuiet.D(),
		IdleTimeout: config.Timeouts.NetworkIdle.D(),
		Action:      config.Timeouts.Locate.D(),
		Backoff:     common.BackoffFromConfig(config.Poll),
	}
}

// Factory owns the Chrome process and opens isolated sessions on it
type Factory struct {
	opts   Options
	logger arbor.ILogger

	mu              sync.Mutex
	rootCtx         context.Context
	rootCancel      context.CancelFunc
	allocatorCancel context.CancelFunc
	closed          bool
}

var _ interfaces.SessionFactory = (*Factory)(nil)

// NewFactory starts Chrome and verifies it responds within startTimeout
func NewFactory(opts Options, startTimeout time.Duration, logger arbor.ILogger) (*Factory, error) {
	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Browser.Headless),
		chromedp.Flag("disable-gpu", opts.Browser.DisableGPU),
		chromedp.Flag("no-sandbox", opts.Browser.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.Browser.WindowWidth, opts.Browser.WindowHeight),
	)
	if opts.Browser.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(opts.Browser.UserAgent))
	}
	if opts.Browser.ExecPath != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(opts.Browser.ExecPath))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	rootCtx, rootCancel := chromedp.NewContext(allocatorCtx)

	// The first Run launches the browser process and binds it to the context it
	// is given, so it runs on rootCtx itself. The timer bounds startup instead.
	timer := time.AfterFunc(startTimeout, rootCancel)
	err := chromedp.Run(rootCtx)
	if !timer.Stop() && err == nil {
		err = fmt.Errorf("no response within %s", startTimeout)
	}
	if err != nil {
		rootCancel()
		allocatorCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug().
		Bool("headless", opts.Browser.Headless).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser started")

	return &Factory{
		opts:            opts,
		logger:          logger,
		rootCtx:         rootCtx,
		rootCancel:      rootCancel,
		allocatorCancel: allocatorCancel,
	}, nil
}

// NewSession opens a fresh browser context and tab
func (f *Factory) NewSession(ctx context.Context) (interfaces.BrowserSession, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, fmt.Errorf("browser factory is closed")
	}
	rootCtx := f.rootCtx
	f.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(rootCtx, chromedp.WithNewBrowserContext())
	session := newSession(tabCtx, tabCancel, f.opts, f.logger)

	// Listeners must be attached before the target exists to see its first requests
	session.listen()

	// The tab's event loop lives as long as the context of its first Run
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}

	f.logger.Debug().Msg("Browser session opened")
	return session, nil
}

// Close shuts down Chrome; open sessions become unusable
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	if err := chromedp.Cancel(f.rootCtx); err != nil {
		f.logger.Warn().Err(err).Msg("Failed to close browser gracefully")
	}
	f.rootCancel()
	f.allocatorCancel()
	return nil
}
