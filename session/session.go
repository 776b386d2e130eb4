package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string
	Answer   string
}

// Session is one caller's conversation state. Every operation that uses
// history receives the session explicitly; there is no process-wide
// conversation state.
type Session struct {
	ID string

	mu       sync.Mutex
	history  []Turn
	lastSeen time.Time
	lastFile string
}

func New() *Session {
	return &Session{
		ID:       uuid.NewString(),
		lastSeen: time.Now(),
	}
}

// Record appends a completed turn. Ordering is strictly append-order.
func (s *Session) Record(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Question: question, Answer: answer})
	s.lastSeen = time.Now()
}

// History returns a copy of all recorded turns in order.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Render serializes the most recent maxTurns turns as alternating
// "User:"/"AI:" lines for prompt interpolation. The cap keeps prompt growth
// bounded; the full transcript stays available through History.
func (s *Session) Render(maxTurns int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.history
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "User: %s\nAI: %s\n", t.Question, t.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

// SetLastFile remembers the most recently uploaded file for this session.
func (s *Session) SetLastFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFile = path
	s.lastSeen = time.Now()
}

func (s *Session) LastFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFile
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
