package mcts

import (
	"context"
	"sync/atomic"
	"time"
)

type StopReason int

const (
	StopNone       StopReason = iota
	StopInterrupt             = 1 // Stopped by the user, via Stop() or context cancellation
	StopMovetime              = 2 // Time budget spent
	StopNodes                 = 4 // Tree size cap reached
	StopIterations            = 8 // Iteration budget spent
)

func (sr StopReason) String() string {
	if sr == StopNone {
		return "None"
	}

	reasons := []struct {
		flag StopReason
		name string
	}{
		{StopInterrupt, "Interrupt"},
		{StopMovetime, "Movetime"},
		{StopNodes, "Nodes"},
		{StopIterations, "Iterations"},
	}

	var result string
	for _, r := range reasons {
		if sr&r.flag == r.flag {
			if result != "" {
				result += "|"
			}
			result += r.name
		}
	}

	return result
}

// LimiterLike decides when the search loop has to end. The planner
// calls Ok between iterations, never mid-descent, so a time budget can
// overshoot by at most one iteration.
type LimiterLike interface {
	SetContext(ctx context.Context)
	// Set the limits
	SetLimits(*Limits)
	// Get the limits
	Limits() *Limits
	// Elapsed milliseconds since the last Reset
	Elapsed() int
	// Raise or clear the external stop signal
	SetStop(bool)
	// Stop reports whether the stop signal is raised, folding in
	// context cancellation
	Stop() bool
	// Reset arms the limiter for a new search
	Reset()
	// Ok reports whether another iteration may run
	Ok(size, iterations int) bool
	// Get the reason why the search was stopped, valid after the search ends
	StopReason() StopReason
	// Evaluate the stop reason based on the final counters, called once
	// after the search loop exits
	EvaluateStopReason(size, iterations int)
}

// Wall clock side of the limiter, armed per search from
// Limits.Movetime. A zero movetime produces a deadline that is already
// past on the first check.
type searchTimer struct {
	start    time.Time
	deadline time.Time
	bounded  bool
}

func (t *searchTimer) reset(movetimeMs int) {
	t.start = time.Now()
	t.bounded = movetimeMs >= 0
	if t.bounded {
		t.deadline = t.start.Add(time.Duration(movetimeMs) * time.Millisecond)
	}
}

func (t *searchTimer) expired() bool {
	return t.bounded && !time.Now().Before(t.deadline)
}

func (t *searchTimer) elapsedMs() int {
	return max(int(time.Since(t.start).Milliseconds()), 1)
}

type Limiter struct {
	limits *Limits
	timer  searchTimer
	stop   atomic.Bool
	reason StopReason
	ctx    context.Context
}

func NewLimiter() *Limiter {
	return &Limiter{
		limits: DefaultLimits(),
		ctx:    context.Background(),
	}
}

func (l *Limiter) Reset() {
	l.timer.reset(l.limits.Movetime)
	l.stop.Store(false)
	l.reason = StopNone
}

func (l *Limiter) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.ctx = ctx
}

func (l *Limiter) SetStop(v bool) {
	l.stop.Store(v)
}

func (l *Limiter) Stop() bool {
	select {
	case <-l.ctx.Done():
		l.stop.Store(true)
	default:
	}
	return l.stop.Load()
}

func (l *Limiter) SetLimits(limits *Limits) {
	l.limits = limits
}

func (l *Limiter) Limits() *Limits {
	return l.limits
}

func (l *Limiter) Elapsed() int {
	return l.timer.elapsedMs()
}

func (l *Limiter) exceeded(size, iterations int) StopReason {
	reason := StopNone
	if l.Stop() {
		reason |= StopInterrupt
	}

	// Infinite honors only the stop signal
	if l.limits.Infinite {
		return reason
	}

	if l.timer.expired() {
		reason |= StopMovetime
	}
	if size >= l.limits.Nodes {
		reason |= StopNodes
	}
	if iterations >= l.limits.Iterations {
		reason |= StopIterations
	}

	return reason
}

func (l *Limiter) Ok(size, iterations int) bool {
	return l.exceeded(size, iterations) == StopNone
}

func (l *Limiter) StopReason() StopReason {
	return l.reason
}

func (l *Limiter) EvaluateStopReason(size, iterations int) {
	l.reason = l.exceeded(size, iterations)
}
