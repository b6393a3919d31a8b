package hltb

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo remembers outcomes for the lifetime of a session. Both found and
// unavailable outcomes are kept, so a title that failed is not retried
// until it is explicitly refreshed.
type Memo struct {
	mu       sync.RWMutex
	outcomes map[Query]Outcome
	group    singleflight.Group
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	return &Memo{outcomes: make(map[Query]Outcome)}
}

// Get returns a copy of the memoized outcome for q.
func (m *Memo) Get(q Query) (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.outcomes[q]
	if !ok {
		return Outcome{}, false
	}
	return o.clone(), true
}

// Set stores an outcome, replacing any earlier one.
func (m *Memo) Set(q Query, o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[q] = o.clone()
}

// Forget drops the outcome for q.
func (m *Memo) Forget(q Query) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outcomes, q)
}

// Reset empties the memo.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = make(map[Query]Outcome)
}

// Len returns the number of memoized queries.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.outcomes)
}

// GetOrCompute returns the memoized outcome for q, or runs compute once for
// all concurrent callers asking for the same q. The shared computation is
// detached from any single caller's cancellation; each caller stops waiting
// when its own ctx is done and gets a timeout outcome, while the computation
// finishes and is memoized for the others.
func (m *Memo) GetOrCompute(ctx context.Context, q Query, compute func(context.Context) Outcome) Outcome {
	if o, ok := m.Get(q); ok {
		return o
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(string(q), func() (any, error) {
		if o, ok := m.Get(q); ok {
			return o, nil
		}
		o := compute(detached)
		m.Set(q, o)
		return o, nil
	})

	select {
	case res := <-ch:
		return res.Val.(Outcome).clone()
	case <-ctx.Done():
		return cancelled(ctx.Err())
	}
}

func cancelled(err error) Outcome {
	return Unavailable(Failure{Reason: ReasonTimeout, Message: err.Error()})
}

func (o Outcome) clone() Outcome {
	c := Outcome{}
	if o.Result != nil {
		r := *o.Result
		r.MainStory = copyHours(o.Result.MainStory)
		r.MainExtra = copyHours(o.Result.MainExtra)
		r.Completionist = copyHours(o.Result.Completionist)
		c.Result = &r
	}
	if len(o.Failures) > 0 {
		c.Failures = append([]Failure(nil), o.Failures...)
	}
	return c
}

func copyHours(h *float64) *float64 {
	if h == nil {
		return nil
	}
	return hours(*h)
}
