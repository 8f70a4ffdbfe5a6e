package docsearch

import (
	"context"
	"slices"
	"sync"
)

// Session is the client side of one query. Results accumulate as
// batches arrive; completion happens exactly once.
type Session struct {
	id   uint64
	term string

	// cbMu serializes callback invocations so a replay and a live batch
	// never interleave.
	cbMu sync.Mutex

	mu           sync.Mutex
	results      []Match
	pages        map[int]struct{}
	done         bool
	doneNotified bool
	err          error
	onResult     func([]Match)
	onDone       func()

	doneCh chan struct{}
}

func newSession(id uint64, term string) *Session {
	return &Session{
		id:     id,
		term:   term,
		pages:  make(map[int]struct{}),
		doneCh: make(chan struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() uint64 { return s.id }

// Term returns the query term.
func (s *Session) Term() string { return s.term }

// Results returns a copy of the matches received so far, in arrival
// order.
func (s *Session) Results() []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

// PageCount returns the number of distinct pages among the results.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// OnResult sets the result callback, replacing any earlier one. Results
// already received are replayed to fn as one batch before OnResult
// returns; every later batch is passed as it arrives.
func (s *Session) OnResult(fn func([]Match)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.mu.Lock()
	s.onResult = fn
	replay := slices.Clone(s.results)
	s.mu.Unlock()

	if fn != nil && len(replay) > 0 {
		fn(replay)
	}
}

// OnDone sets the completion callback. If the session has already
// finished, fn runs immediately. Completion is notified at most once per
// session, so a second registration after notification never fires.
func (s *Session) OnDone(fn func()) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.mu.Lock()
	if s.doneNotified {
		s.mu.Unlock()
		return
	}
	s.onDone = fn
	fire := s.done && fn != nil
	if fire {
		s.doneNotified = true
	}
	s.mu.Unlock()

	if fire {
		fn()
	}
}

// Done is closed when the session finishes.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// Wait blocks until the session finishes or ctx is done. It returns the
// session error, if any.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.doneCh:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports why the session ended early. It is nil while running and
// after a normal end of stream.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) deliver(batch []Match) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.results = append(s.results, batch...)
	for _, m := range batch {
		s.pages[m.Number] = struct{}{}
	}
	fn := s.onResult
	s.mu.Unlock()

	if fn != nil {
		fn(batch)
	}
}

func (s *Session) finish(err error) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.err = err
	close(s.doneCh)
	fn := s.onDone
	if fn != nil {
		s.doneNotified = true
	}
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}
