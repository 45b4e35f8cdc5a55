package cart

import "sync"

// Sessions hands out one cart per terminal session id. Carts live for the
// process lifetime; a stall runs a handful of terminals at most.
type Sessions struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewSessions() *Sessions {
	return &Sessions{carts: make(map[string]*Cart)}
}

// Get returns the cart for the session, creating it on first use.
func (s *Sessions) Get(sessionID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[sessionID]; ok {
		return c
	}
	c := New()
	s.carts[sessionID] = c
	return c
}
