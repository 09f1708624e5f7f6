// internal/common/metrics/counters.go
package metrics

import "sync/atomic"

// Counter names tracked by the aggregator.
const (
	CounterCandidatesTotal = "candidates_total"
	CounterInvitesSent     = "invites_sent"
	CounterFeedbackSent    = "feedback_sent"
)

// CounterStore holds process-wide increment-only counters. A single instance
// is created at startup and shared by the pipeline stages and the dispatcher.
// Increments are atomic and safe under concurrent candidate processing.
type CounterStore struct {
	counters map[string]*atomic.Int64
}

// NewCounterStore creates a store pre-registered with the pipeline counters.
func NewCounterStore() *CounterStore {
	s := &CounterStore{counters: make(map[string]*atomic.Int64)}
	for _, name := range []string{
		CounterCandidatesTotal,
		CounterInvitesSent,
		CounterFeedbackSent,
	} {
		s.counters[name] = &atomic.Int64{}
	}
	return s
}

// Inc increments a counter by one. Unknown names are ignored so a stage can
// never crash the pipeline through a typo'd metric.
func (s *CounterStore) Inc(name string) {
	if c, ok := s.counters[name]; ok {
		c.Add(1)
	}
}

// Value returns the current value of a counter, or zero for unknown names.
func (s *CounterStore) Value(name string) int64 {
	if c, ok := s.counters[name]; ok {
		return c.Load()
	}
	return 0
}

// Snapshot returns a point-in-time copy of all counters.
func (s *CounterStore) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(s.counters))
	for name, c := range s.counters {
		out[name] = c.Load()
	}
	return out
}
