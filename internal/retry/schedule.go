package retry

import (
	"context"
	"time"

	"replyflow/internal/constants"
)

// SchedulePolicy is a bounded reconnect policy with a fixed delay schedule
// indexed by attempt count. Attempts beyond the schedule length use the
// last entry; attempts at or beyond MaxAttempts are exhausted and must not
// be scheduled.
type SchedulePolicy struct {
	Delays      []time.Duration
	MaxAttempts int
}

// NewSchedulePolicy builds a policy from a schedule given in whole seconds.
// Empty or invalid inputs fall back to the defaults.
func NewSchedulePolicy(scheduleSec []int, maxAttempts int) SchedulePolicy {
	if len(scheduleSec) == 0 {
		scheduleSec = constants.DefaultReconnectScheduleSec
	}
	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultMaxReconnectAttempts
	}

	delays := make([]time.Duration, len(scheduleSec))
	for i, sec := range scheduleSec {
		delays[i] = time.Duration(sec) * time.Second
	}

	return SchedulePolicy{
		Delays:      delays,
		MaxAttempts: maxAttempts,
	}
}

// DefaultSchedulePolicy returns the stock reconnect policy.
func DefaultSchedulePolicy() SchedulePolicy {
	return NewSchedulePolicy(nil, 0)
}

// DelayFor returns the delay for the given zero-based attempt count,
// clamped to the last schedule entry.
func (p SchedulePolicy) DelayFor(attempt int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(p.Delays) {
		return p.Delays[len(p.Delays)-1]
	}
	return p.Delays[attempt]
}

// Exhausted reports whether the given attempt count has reached the cap.
func (p SchedulePolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Wait blocks for the attempt's scheduled delay or until ctx is done.
// It returns false if the context was cancelled before the delay elapsed.
func (p SchedulePolicy) Wait(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(p.DelayFor(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
