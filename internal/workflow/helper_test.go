package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/anudishu/promote-cleanup/test/mocks"
)

// recordingSleeper records requested pauses without blocking
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func (s *recordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

func testReaperOptions() ReaperOptions {
	return ReaperOptions{
		MaxAttempts:       3,
		Backoff:           5 * time.Second,
		StabilizeTimeout:  60 * time.Second,
		StabilizeInterval: 5 * time.Second,
		ForceStopSettle:   5 * time.Second,
		Settle:            10 * time.Second,
		SettleInterval:    2 * time.Second,
	}
}

func testPromoterOptions() PromoterOptions {
	return PromoterOptions{
		Family:         "rhel9-runtime",
		CreatedBy:      "promote-cleanup-function",
		Settle:         30 * time.Second,
		SettleInterval: 2 * time.Second,
	}
}

func newTestReaper(m *mocks.MockCompute, s *recordingSleeper, opts ReaperOptions) *InstanceReaper {
	waiter := NewOperationWaiter(m, 2*time.Second, 0, s.Sleep)
	return NewInstanceReaper(m, NewResourceStateProbe(m), waiter, opts, s.Sleep)
}

func newTestPromoter(m *mocks.MockCompute, s *recordingSleeper, opts PromoterOptions) *ImagePromoter {
	waiter := NewOperationWaiter(m, 2*time.Second, 0, s.Sleep)
	return NewImagePromoter(m, waiter, opts, s.Sleep)
}

func methods(calls []mocks.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.String())
	}
	return out
}

func indexOf(calls []mocks.Call, method string) int {
	for i, c := range calls {
		if c.Method == method {
			return i
		}
	}
	return -1
}
