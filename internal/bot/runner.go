package bot

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Runner runs a check immediately and then on every tick of interval. A tick
// that arrives while a check is still running is skipped.
type Runner struct {
	interval time.Duration
	check    func(ctx context.Context) error

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewRunner(interval time.Duration, check func(ctx context.Context) error) *Runner {
	return &Runner{
		interval: interval,
		check:    check,
	}
}

// Run blocks until ctx is cancelled and the in-flight check has returned.
func (r *Runner) Run(ctx context.Context) {
	r.trigger(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down, waiting for the running check...")
			r.wg.Wait()
			return
		case <-ticker.C:
			r.trigger(ctx)
		}
	}
}

func (r *Runner) trigger(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		log.Println("⏭️ Previous check still running, skipping this tick")
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)
		r.runCheck(ctx)
	}()
	return true
}

func (r *Runner) runCheck(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("💥 Check panicked: %v\n%s", rec, debug.Stack())
		}
	}()

	if err := r.check(ctx); err != nil {
		log.Printf("❌ Error running check: %v", err)
	}
}
