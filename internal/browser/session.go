// Package browser owns the Chrome instance and the single tab a scan cycle works in.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	// Network counts as idle once no request was in flight for this long.
	idleQuietPeriod = 500 * time.Millisecond
	idleTimeout     = 30 * time.Second
	idlePollEvery   = 100 * time.Millisecond

	// Pause after every action in visible mode so a human can follow along.
	visibleSlowMo = 100 * time.Millisecond
)

var ErrSessionNotOpen = errors.New("browser session not initialized")

// Session is one browser process with one tab. It is not safe for concurrent use
// beyond Close, which may be called from any goroutine.
type Session struct {
	opts   []chromedp.ExecAllocatorOption
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	slowMo time.Duration
	idle   *idleTracker
}

// NewSession prepares a session. opts are applied after chromedp's defaults.
func NewSession(opts ...chromedp.ExecAllocatorOption) *Session {
	return &Session{opts: opts}
}

// Open launches the browser. The browser dies when ctx is cancelled or Close is called.
func (s *Session) Open(ctx context.Context, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return errors.New("browser session already open")
	}

	log.Println("Initializing browser...")
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !visible),
	)
	opts = append(opts, s.opts...)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))

	idle := newIdleTracker()
	chromedp.ListenTarget(tabCtx, idle.handle)

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		cancelTab()
		cancelAlloc()
		return fmt.Errorf("launching browser: %w", err)
	}

	s.ctx = tabCtx
	s.cancel = func() {
		cancelTab()
		cancelAlloc()
	}
	s.idle = idle
	if visible {
		s.slowMo = visibleSlowMo
	}
	log.Println("Browser initialized")
	return nil
}

// Close releases the tab and the browser process. Calling it again, or on a
// session that was never opened, is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil
	}

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.ctx = nil
	s.cancel = nil
	s.idle = nil
	log.Println("Browser closed")
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

func (s *Session) tab() (context.Context, *idleTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, nil, ErrSessionNotOpen
	}
	return s.ctx, s.idle, nil
}

// Run executes actions in the tab. The actions stop when either ctx or the
// session ends.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, _, err := s.tab()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	if s.slowMo > 0 {
		return sleep(ctx, s.slowMo)
	}
	return nil
}

// RunWithin is Run bounded by timeout.
func (s *Session) RunWithin(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Run(ctx, actions...)
}

// Navigate loads url and waits until network activity settles.
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, idle, err := s.tab()
	if err != nil {
		return err
	}

	idle.reset()
	if err := s.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return s.WaitIdle(ctx)
}

// WaitIdle blocks until no request has been in flight for idleQuietPeriod.
func (s *Session) WaitIdle(ctx context.Context) error {
	_, idle, err := s.tab()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, idleTimeout)
	defer cancel()

	ticker := time.NewTicker(idlePollEvery)
	defer ticker.Stop()

	for idle.quietFor() < idleQuietPeriod {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for network idle: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// Settle pauses for d. Used after UI actions that give no ready signal.
func (s *Session) Settle(ctx context.Context, d time.Duration) error {
	if _, _, err := s.tab(); err != nil {
		return err
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
