// Package browser provides the live Chrome-backed implementations of the
// agent's frame, signal, and actuation interfaces. One Session owns one tab
// over CDP; everything the observer scores is harvested from that tab's
// event stream plus an injected in-page probe.
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/agent"
	"github.com/veritas-qa/veritas-core/internal/config"
)

// Session is an active browser tab. It implements the agent's FrameSource,
// SignalSource, and Actuator against a real page.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu              sync.Mutex
	inflight        map[network.RequestID]struct{}
	lastInteraction time.Time
	closed          bool
}

var (
	_ agent.FrameSource  = (*Session)(nil)
	_ agent.SignalSource = (*Session)(nil)
	_ agent.Actuator     = (*Session)(nil)
)

// NewSession launches a browser and opens one tab. The caller must Close the
// session to release the browser process.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	sessionID := uuid.NewString()
	s := &Session{
		id:          sessionID,
		cfg:         cfg,
		logger:      logger.Named("browser").With(zap.String("session_id", sessionID)),
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      tabCancel,
		inflight:    make(map[network.RequestID]struct{}),
	}

	// The listener must be registered before any navigation so no request
	// lifecycle event is missed.
	chromedp.ListenTarget(tabCtx, s.handleEvent)

	err := chromedp.Run(tabCtx,
		network.Enable(),
		runtime.Enable(),
		installProbe(),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	s.logger.Info("browser session started", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// installProbe injects the stability probe into every new document.
func installProbe() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(probeInstallJS).Do(ctx)
		return err
	})
}

// handleEvent tracks request lifecycles so PendingNetwork is exact at any
// sampling instant.
func (s *Session) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		s.mu.Lock()
		s.inflight[e.RequestID] = struct{}{}
		s.mu.Unlock()
	case *network.EventLoadingFinished:
		s.mu.Lock()
		delete(s.inflight, e.RequestID)
		s.mu.Unlock()
	case *network.EventLoadingFailed:
		s.mu.Lock()
		delete(s.inflight, e.RequestID)
		s.mu.Unlock()
	}
}

// Navigate loads a URL and waits for the document to become ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.logger.Debug("navigated", zap.String("url", url))
	return nil
}

// Capture implements agent.FrameSource with a viewport screenshot.
func (s *Session) Capture(ctx context.Context) (string, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("screenshot capture failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Perform implements agent.Actuator by clicking the center of the target's
// bounding box and recording the interaction time for recency scoring.
func (s *Session) Perform(ctx context.Context, action string, target schemas.Candidate) error {
	x := float64(target.Box.CenterX())
	y := float64(target.Box.CenterY())

	if err := s.run(ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return fmt.Errorf("click at (%.0f,%.0f) failed: %w", x, y, err)
	}

	s.mu.Lock()
	s.lastInteraction = time.Now()
	s.mu.Unlock()

	s.logger.Debug("performed action",
		zap.String("action", action),
		zap.Float64("x", x),
		zap.Float64("y", y))
	return nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.allocCancel()
	s.logger.Info("browser session closed")
}

// run executes tab actions bounded by the caller's deadline, if any, without
// detaching from the tab's lifetime.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}
