package retry

import (
	"context"
	"testing"
	"time"
)

func TestSchedulePolicy_Defaults(t *testing.T) {
	policy := DefaultSchedulePolicy()

	if policy.MaxAttempts != 5 {
		t.Errorf("Expected max attempts of 5, got %d", policy.MaxAttempts)
	}

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		30 * time.Second,
		60 * time.Second,
		120 * time.Second,
	}
	if len(policy.Delays) != len(expected) {
		t.Fatalf("Expected %d schedule entries, got %d", len(expected), len(policy.Delays))
	}
	for i, want := range expected {
		if policy.Delays[i] != want {
			t.Errorf("Entry %d: expected %v, got %v", i, want, policy.Delays[i])
		}
	}
}

func TestSchedulePolicy_DelayForClampsToLastEntry(t *testing.T) {
	policy := NewSchedulePolicy([]int{1, 2, 5}, 10)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 5 * time.Second},
		{3, 5 * time.Second},
		{99, 5 * time.Second},
		{-1, 1 * time.Second},
	}

	for _, tc := range cases {
		if got := policy.DelayFor(tc.attempt); got != tc.want {
			t.Errorf("DelayFor(%d): expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestSchedulePolicy_Exhausted(t *testing.T) {
	policy := NewSchedulePolicy([]int{1}, 3)

	for attempt := 0; attempt < 3; attempt++ {
		if policy.Exhausted(attempt) {
			t.Errorf("Attempt %d should not be exhausted", attempt)
		}
	}
	if !policy.Exhausted(3) {
		t.Error("Attempt 3 should be exhausted")
	}
	if !policy.Exhausted(4) {
		t.Error("Attempt 4 should be exhausted")
	}
}

func TestSchedulePolicy_WaitCancelled(t *testing.T) {
	policy := NewSchedulePolicy([]int{60}, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if policy.Wait(ctx, 0) {
		t.Error("Expected Wait to report cancellation")
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly after cancellation")
	}
}

func TestSchedulePolicy_WaitElapses(t *testing.T) {
	policy := SchedulePolicy{Delays: []time.Duration{5 * time.Millisecond}, MaxAttempts: 1}

	if !policy.Wait(context.Background(), 0) {
		t.Error("Expected Wait to complete its delay")
	}
}
