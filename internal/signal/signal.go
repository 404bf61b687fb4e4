package signal

import "sync"

// Signal is a broadcast primitive with cross-tab semantics: any context that
// marks messages read notifies it, and every subscriber is woken promptly.
// Notifications are edge-triggered and carry no payload; a slow subscriber
// coalesces bursts into one pending wake instead of blocking the notifier.
type Signal struct {
	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

// New creates an empty signal.
func New() *Signal {
	return &Signal{
		subs: make(map[chan struct{}]struct{}),
	}
}

// Subscribe registers a wake channel. The returned cancel func removes it.
func (s *Signal) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Notify wakes all current subscribers.
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
			// Subscriber already has a pending wake
		}
	}
}

// Close removes all subscribers and rejects further notifications.
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	s.subs = make(map[chan struct{}]struct{})
}
