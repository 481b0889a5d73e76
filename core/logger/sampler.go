package logger

import "sync"

// sampler lets keep lines through out of every window. A zero window
// disables sampling.
type sampler struct {
	mu     sync.Mutex
	keep   int
	window int
	seen   int
}

func (s *sampler) set(keep, window int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep > window {
		keep = window
	}
	s.keep, s.window, s.seen = keep, window, 0
}

func (s *sampler) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window <= 0 || s.keep <= 0 {
		return true
	}
	s.seen = s.seen%s.window + 1
	return s.seen <= s.keep
}
