package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/beekhof/shift-sync/internal/config"
	"github.com/beekhof/shift-sync/internal/syncerr"
)

// chromePage drives a Chromium tab. Every step gets its own deadline.
type chromePage struct {
	ctx     context.Context // tab context
	timeout time.Duration
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := p.step(ctx)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

// step derives a deadline-bound context from the tab. ctx is only watched
// for cancellation; chromedp needs the tab's own context to find its target.
func (p *chromePage) step(ctx context.Context) (context.Context, context.CancelFunc) {
	stepCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	stop := context.AfterFunc(ctx, cancel)
	return stepCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Navigate(ctx context.Context, url, selector string) error {
	return p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady(selector, chromedp.ByQuery),
	)
}

func (p *chromePage) Snapshot(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *chromePage) Type(ctx context.Context, selector, text string) error {
	return p.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (p *chromePage) Submit(ctx context.Context, selector string) error {
	stepCtx, cancel := p.step(ctx)
	defer cancel()

	resp, err := chromedp.RunResponse(stepCtx, chromedp.Click(selector, chromedp.ByQuery))
	if err != nil {
		return err
	}
	if resp != nil {
		log.Printf("DEBUG: submit navigated to %s (%d)", resp.URL, resp.Status)
	}
	return nil
}

func (p *chromePage) WaitReady(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromePage) ClickInFrame(ctx context.Context, frameSelector, selector string) error {
	stepCtx, cancel := p.step(ctx)
	defer cancel()

	var frames []*cdp.Node
	if err := chromedp.Run(stepCtx, chromedp.Nodes(frameSelector, &frames, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to locate frame %s: %w", frameSelector, err)
	}
	if len(frames) == 0 {
		return fmt.Errorf("frame %s not found", frameSelector)
	}
	return chromedp.Run(stepCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery, chromedp.FromNode(frames[0])),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.FromNode(frames[0])),
	)
}

// Session scrapes the published schedule with a fresh browser per call.
type Session struct {
	cfg     *config.Config
	secrets *config.Secrets
}

// NewSession creates a Session for the configured site and credentials.
func NewSession(cfg *config.Config, secrets *config.Secrets) *Session {
	return &Session{cfg: cfg, secrets: secrets}
}

// Shifts launches Chromium, logs in, and pages through the schedule.
func (s *Session) Shifts(ctx context.Context) ([]Shift, error) {
	pattern, err := s.cfg.ScheduleDataPattern()
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !s.cfg.ShowBrowser),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	// Starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("%w: failed to start browser: %w", syncerr.ErrNavigation, err)
	}

	interceptor := NewInterceptor(pattern, func(ctx context.Context, requestID string) ([]byte, error) {
		var body []byte
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(network.RequestID(requestID)).Do(ctx)
			return err
		}))
		return body, err
	})
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			interceptor.ResponseReceived(e.RequestID.String(), e.Response.URL)
		case *network.EventLoadingFinished:
			interceptor.LoadingFinished(e.RequestID.String())
		}
	})
	go interceptor.Run(tabCtx)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("%w: failed to enable network events: %w", syncerr.ErrNavigation, err)
	}

	page := &chromePage{ctx: tabCtx, timeout: s.cfg.NavigationTimeout()}
	sel := s.cfg.Selectors

	log.Printf("Opening %s", s.cfg.SiteURL)
	if err := page.Navigate(ctx, s.cfg.SiteURL, sel.UsernameInput); err != nil {
		return nil, fmt.Errorf("%w: failed to load login page: %w", syncerr.ErrNavigation, err)
	}

	if err := NewNavigator(page, sel, s.secrets, s.cfg.MaxLoginSteps).Login(ctx); err != nil {
		return nil, err
	}

	shifts, err := NewExtractor(interceptor, page, sel, s.cfg.NavigationTimeout(), s.cfg.MaxPages).Extract(ctx)
	if err != nil {
		return nil, err
	}

	log.Printf("Downloaded %d shift(s)", len(shifts))
	return shifts, nil
}
