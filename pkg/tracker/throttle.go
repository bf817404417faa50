package tracker

import (
	"context"
	"log"
	"sync"

	"golang.org/x/time/rate"
)

// Throttler enforces the global emission budget. Decided actions are
// queued in arrival order and drained at no more than the configured
// packets per second, decoupling decision-time bursts from output
// pacing. Enqueue never blocks, so a slow APRS-IS peer cannot stall
// SBS ingestion.
type Throttler struct {
	limiter *rate.Limiter
	depth   int

	mu      sync.Mutex
	queue   []Action
	dropped uint64
	sent    uint64

	wake chan struct{}
}

// NewThrottler creates a throttler with the given packets-per-second
// budget and queue depth.
func NewThrottler(maxPerSec, depth int) *Throttler {
	return &Throttler{
		limiter: rate.NewLimiter(rate.Limit(maxPerSec), 1),
		depth:   depth,
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue adds an action to the outbound queue.
//
// When the queue overflows, the oldest update whose aircraft has a
// newer action queued is dropped as superseded; failing that, an
// overflowing update is itself discarded. Creates and deletes are
// always kept even past the bound: losing one would desynchronize the
// downstream display permanently, and they are rare enough that the
// bound is soft for them.
func (th *Throttler) Enqueue(a Action) {
	th.mu.Lock()
	th.queue = append(th.queue, a)
	if len(th.queue) > th.depth {
		if i, ok := th.supersededUpdate(); ok {
			th.queue = append(th.queue[:i], th.queue[i+1:]...)
			th.dropped++
		} else if !a.lifecycle() {
			th.queue = th.queue[:len(th.queue)-1]
			th.dropped++
		}
	}
	th.mu.Unlock()

	select {
	case th.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue, delivering one action per limiter grant, until
// the context ends. Delivery errors are logged and the action is
// dropped; replaying stale announcements after an outage is the
// transport's call, not the throttler's.
func (th *Throttler) Run(ctx context.Context, deliver func(Action) error) {
	for {
		if !th.waitNonEmpty(ctx) {
			return
		}
		if err := th.limiter.Wait(ctx); err != nil {
			return
		}

		a, ok := th.pop()
		if !ok {
			continue
		}
		if err := deliver(a); err != nil {
			log.Printf("[SEND] %s %s failed: %v", a.Type, a.Name, err)
			continue
		}

		th.mu.Lock()
		th.sent++
		th.mu.Unlock()
	}
}

// Stats returns the queue depth and lifetime sent/dropped counters.
func (th *Throttler) Stats() (queued int, sent, dropped uint64) {
	th.mu.Lock()
	defer th.mu.Unlock()
	return len(th.queue), th.sent, th.dropped
}

func (th *Throttler) waitNonEmpty(ctx context.Context) bool {
	for {
		th.mu.Lock()
		n := len(th.queue)
		th.mu.Unlock()
		if n > 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-th.wake:
		}
	}
}

func (th *Throttler) pop() (Action, bool) {
	th.mu.Lock()
	defer th.mu.Unlock()
	if len(th.queue) == 0 {
		return Action{}, false
	}
	a := th.queue[0]
	th.queue = th.queue[1:]
	return a, true
}

// supersededUpdate finds the oldest queued update whose aircraft has a
// newer action anywhere behind it in the queue. Caller holds th.mu.
func (th *Throttler) supersededUpdate() (int, bool) {
	newest := make(map[string]int, len(th.queue))
	for i, a := range th.queue {
		newest[a.ICAO] = i
	}
	for i, a := range th.queue {
		if a.Type == ActionUpdate && newest[a.ICAO] > i {
			return i, true
		}
	}
	return 0, false
}
