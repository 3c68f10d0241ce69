package engine

import (
	"sync"

	"github.com/spec-kit/intake-service/internal/domain"
)

// Session is the per-user, in-process conversation state. It exists only while
// a flow is underway; completion, cancellation and restart destroy it.
type Session struct {
	Identity      domain.Identity
	State         State
	Category      domain.Category
	MasterName    string
	RosterEntryID int64
	Photos        []domain.PhotoRef
	Comment       string

	// Administrator flow scratch data.
	PendingEmployeeID domain.Identity
	PendingDeleteID   int64
}

// reset clears everything except the identity, returning the session to the
// start of the submission flow.
func (s *Session) reset() {
	s.State = StateChoosingCategory
	s.Category = ""
	s.MasterName = ""
	s.RosterEntryID = 0
	s.Photos = nil
	s.Comment = ""
	s.PendingEmployeeID = 0
	s.PendingDeleteID = 0
}

// sessionEntry owns one user's session plus the mutex that serializes all
// event dispatch for that user. The entry mutex is never held while touching
// another user's entry, so independent conversations proceed concurrently.
type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// sessionStore is the mutex-guarded identity → entry map. The store lock only
// guards map access; per-user work happens under the entry lock.
type sessionStore struct {
	mu      sync.Mutex
	entries map[domain.Identity]*sessionEntry
}

func newSessionStore() *sessionStore {
	return &sessionStore{entries: make(map[domain.Identity]*sessionEntry)}
}

func (s *sessionStore) entry(identity domain.Identity) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[identity]
	if !ok {
		entry = &sessionEntry{}
		s.entries[identity] = entry
	}
	return entry
}

// snapshot returns a copy of the user's session, if one exists. Used by tests
// and diagnostics; never hands out the live pointer.
func (s *sessionStore) snapshot(identity domain.Identity) (Session, bool) {
	entry := s.entry(identity)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.session == nil {
		return Session{}, false
	}
	copied := *entry.session
	copied.Photos = append([]domain.PhotoRef(nil), entry.session.Photos...)
	return copied, true
}
