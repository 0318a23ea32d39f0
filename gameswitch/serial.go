package gameswitch

import "sync"

// UserSerializer runs functions one at a time per key while letting different
// keys proceed in parallel. The orchestrator's read-modify-write of the game
// context is only safe when calls for the same user never interleave, and
// both the category monitor and the HTTP layer funnel through this.
type UserSerializer struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewUserSerializer() *UserSerializer {
	return &UserSerializer{locks: make(map[string]*userLock)}
}

// Do runs fn holding the user's lock. Entries are refcounted and removed when
// the last waiter finishes, so the map stays bounded by concurrent users, not
// by every user ever seen.
func (s *UserSerializer) Do(userID string, fn func()) {
	l := s.acquire(userID)
	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		s.release(userID, l)
	}()
	fn()
}

func (s *UserSerializer) acquire(userID string) *userLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	return l
}

func (s *UserSerializer) release(userID string, l *userLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, userID)
	}
}
