package dispatch

import (
	"sync"

	"taskbot/internal/channel"
	"taskbot/internal/task"
)

// State is the conversation position for one (channel, user) pair.
type State int

const (
	StateIdle State = iota
	StateAwaitingToken
	StateAwaitingTaskName
	StateAwaitingDueDate
	StateAwaitingPriority
	StateAwaitingCategory
)

// Draft accumulates wizard input until the final step commits it.
type Draft struct {
	Name     string
	DueDate  string
	Priority task.Priority
	Category string
}

// session holds one user's conversation state. The session mutex is held for
// the whole of a message or callback handling pass, so concurrent input from
// the same user never interleaves wizard steps.
type session struct {
	mu    sync.Mutex
	state State
	draft Draft
}

func (s *session) reset() {
	s.state = StateIdle
	s.draft = Draft{}
}

type sessionKey struct {
	channel channel.ID
	userID  string
}

// sessionStore is the lock-guarded session map owned by the engine. Sessions
// are created on first contact and never expire; a lingering draft persists
// until the user finishes the wizard.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[sessionKey]*session)}
}

func (s *sessionStore) get(ch channel.ID, userID string) *session {
	key := sessionKey{channel: ch, userID: userID}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{}
		s.sessions[key] = sess
	}
	return sess
}
