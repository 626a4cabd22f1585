package watch

import (
	"context"
	"time"
)

// Trigger is an aggregated rebuild request.
type Trigger struct {
	Reason  string
	Changes int
}

// Debouncer coalesces bursts of change notifications into a single rebuild
// trigger: a quiet window must elapse after the last change, but the trigger
// cannot be postponed past the max delay.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	in       chan string
	out      chan Trigger
}

// NewDebouncer creates a debouncer with the given quiet window and max delay.
func NewDebouncer(quiet, maxDelay time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 2 * time.Second
	}
	if maxDelay < quiet {
		maxDelay = quiet
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		in:       make(chan string, 64),
		out:      make(chan Trigger, 1),
	}
}

// Notify reports one change. Never blocks; when the inbox is full the change
// is folded into the pending burst anyway once Run drains it.
func (d *Debouncer) Notify(reason string) {
	select {
	case d.in <- reason:
	default:
	}
}

// Triggers returns the channel rebuild triggers are delivered on.
func (d *Debouncer) Triggers() <-chan Trigger {
	return d.out
}

// Run processes notifications until the context is canceled. It is intended
// to run as a single goroutine.
func (d *Debouncer) Run(ctx context.Context) {
	var (
		quietTimer    *time.Timer
		deadlineTimer *time.Timer
		pending       int
		reason        string
	)

	stopTimers := func() {
		if quietTimer != nil {
			quietTimer.Stop()
			quietTimer = nil
		}
		if deadlineTimer != nil {
			deadlineTimer.Stop()
			deadlineTimer = nil
		}
	}

	fire := func() {
		stopTimers()
		trigger := Trigger{Reason: reason, Changes: pending}
		pending = 0
		reason = ""
		select {
		case d.out <- trigger:
		case <-ctx.Done():
		}
	}

	for {
		var quietC, deadlineC <-chan time.Time
		if quietTimer != nil {
			quietC = quietTimer.C
		}
		if deadlineTimer != nil {
			deadlineC = deadlineTimer.C
		}

		select {
		case <-ctx.Done():
			stopTimers()
			return
		case r := <-d.in:
			pending++
			reason = r
			if quietTimer != nil {
				quietTimer.Stop()
			}
			quietTimer = time.NewTimer(d.quiet)
			if deadlineTimer == nil {
				deadlineTimer = time.NewTimer(d.maxDelay)
			}
		case <-quietC:
			fire()
		case <-deadlineC:
			fire()
		}
	}
}
