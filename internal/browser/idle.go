package browser

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// idleTracker counts in-flight requests of the tab from CDP network events.
type idleTracker struct {
	mu           sync.Mutex
	inflight     map[network.RequestID]struct{}
	lastActivity time.Time
	now          func() time.Time
}

func newIdleTracker() *idleTracker {
	return &idleTracker{
		inflight:     make(map[network.RequestID]struct{}),
		lastActivity: time.Now(),
		now:          time.Now,
	}
}

func (t *idleTracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.inflight[ev.RequestID] = struct{}{}
	case *network.EventLoadingFinished:
		delete(t.inflight, ev.RequestID)
	case *network.EventLoadingFailed:
		delete(t.inflight, ev.RequestID)
	default:
		return
	}
	t.lastActivity = t.now()
}

// quietFor reports how long the network has had no request in flight.
func (t *idleTracker) quietFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.inflight) > 0 {
		return 0
	}
	return t.now().Sub(t.lastActivity)
}

// reset forgets requests that will never complete, e.g. after a navigation.
func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inflight = make(map[network.RequestID]struct{})
	t.lastActivity = t.now()
}
