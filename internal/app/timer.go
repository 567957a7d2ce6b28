package app

import (
	"sync"
	"time"
)

// TimerMode selects how the countdown budget is applied.
type TimerMode int

const (
	// TimerTotal runs a single budget for the whole exam.
	TimerTotal TimerMode = iota
	// TimerPerQuestion restarts the budget on every question change.
	TimerPerQuestion
)

const (
	totalWarningSeconds    = 300
	questionWarningSeconds = 10
)

// TimerConfig describes a countdown and its callbacks. Callbacks are invoked
// from the tick goroutine without the timer lock held, so they may call back
// into the timer (Reset, Stop).
type TimerConfig struct {
	Mode               TimerMode
	TotalSeconds       int
	PerQuestionSeconds int
	OnExpire           func()
	OnQuestionExpire   func()
	OnWarning          func(secondsRemaining int)
}

// Timer is a 1-second-granularity countdown owned by one exam attempt.
// Pausing freezes the remaining budget exactly; there is no drift on resume
// because elapsed wall time is never consulted, only tick counts.
type Timer struct {
	mu        sync.Mutex
	cfg       TimerConfig
	remaining int
	active    bool
	stopped   bool
	warned    bool
	ticking   bool
	done      chan struct{}
}

func NewTimer(cfg TimerConfig) *Timer {
	t := &Timer{cfg: cfg, done: make(chan struct{})}
	t.remaining = t.budget()
	return t
}

func (t *Timer) budget() int {
	if t.cfg.Mode == TimerPerQuestion {
		return t.cfg.PerQuestionSeconds
	}
	return t.cfg.TotalSeconds
}

// Start begins (or resumes) the countdown. A timer with no budget is inert:
// an untimed exam simply never ticks.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.budget() <= 0 {
		return
	}
	t.active = true
	if t.ticking {
		return
	}
	t.ticking = true
	go t.loop()
}

func (t *Timer) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Pause freezes the countdown without losing the remaining budget.
func (t *Timer) Pause() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

// Reset restores the full per-question budget and re-arms the warning; it is
// called on every question change. A total budget is a single decrementing
// counter for the whole exam, so in total mode Reset is a no-op.
func (t *Timer) Reset() {
	t.mu.Lock()
	if !t.stopped && t.cfg.Mode == TimerPerQuestion {
		t.remaining = t.cfg.PerQuestionSeconds
		t.warned = false
	}
	t.mu.Unlock()
}

// Stop terminates the timer for good. No callback fires after Stop returns
// provided the caller serializes Stop with its own mutation lock; a tick
// already past the stopped check is rejected by the session's state guard.
func (t *Timer) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.active = false
	if t.ticking {
		close(t.done)
		t.ticking = false
	}
	t.mu.Unlock()
}

// Remaining reports the seconds left on the current budget.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Tick advances the countdown by one second. Exposed so tests can drive the
// timer deterministically instead of waiting on the wall clock.
func (t *Timer) Tick() {
	t.mu.Lock()
	if t.stopped || !t.active || t.remaining <= 0 {
		t.mu.Unlock()
		return
	}
	t.remaining--
	rem := t.remaining

	threshold := totalWarningSeconds
	if t.cfg.Mode == TimerPerQuestion {
		threshold = questionWarningSeconds
	}
	warn := !t.warned && rem == threshold
	if warn {
		t.warned = true
	}

	expired := rem == 0
	if expired {
		if t.cfg.Mode == TimerPerQuestion {
			// The next question starts on a full budget immediately.
			t.remaining = t.cfg.PerQuestionSeconds
			t.warned = false
		} else {
			t.active = false
		}
	}
	onWarning := t.cfg.OnWarning
	onExpire := t.cfg.OnExpire
	onQuestionExpire := t.cfg.OnQuestionExpire
	t.mu.Unlock()

	if warn && onWarning != nil {
		onWarning(rem)
	}
	if expired {
		if t.cfg.Mode == TimerPerQuestion {
			if onQuestionExpire != nil {
				onQuestionExpire()
			}
		} else if onExpire != nil {
			onExpire()
		}
	}
}
