package session

import (
	"log/slog"
	"sync"
	"time"
)

// Store holds live sessions keyed by ID and expires idle ones in the
// background.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger      *slog.Logger
	ticker      *time.Ticker
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// StartCleanup launches a goroutine that drops sessions idle longer than
// threshold, checking every interval.
func (st *Store) StartCleanup(threshold, interval time.Duration) {
	st.stopCleanup = make(chan struct{})
	st.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-st.ticker.C:
				st.cleanup(threshold)
			case <-st.stopCleanup:
				st.ticker.Stop()
				return
			}
		}
	}()
}

func (st *Store) StopCleanup() {
	if st.stopCleanup != nil {
		st.stopOnce.Do(func() { close(st.stopCleanup) })
	}
}

func (st *Store) cleanup(threshold time.Duration) {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > threshold {
			delete(st.sessions, id)
			st.logger.Debug("Expired idle session", slog.String("session_id", id))
		}
	}
}

// Get returns the session with the given ID, if it is still live.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// GetOrCreate returns the session with the given ID, creating a fresh one
// when the ID is unknown or empty.
func (st *Store) GetOrCreate(id string) *Session {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s
		}
	}

	s := New()
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
