package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"masterplan-studio/internal/jobs"
)

const sessionCookie = "studio_session"

// Session carries the per-browser state the frontend relies on between
// requests: the current masterplan, the ids of in-flight generation jobs,
// and the last completed payloads.
type Session struct {
	ID                string
	Masterplan        string
	MockupJobID       string
	ArchitectureJobID string
	Mockups           []jobs.ContentBlock
	Diagrams          []jobs.ContentBlock
	LastSeen          time.Time
}

// Sessions is an in-process session table keyed by a uuid cookie. Handlers
// run concurrently, so reads return copies and all mutation goes through
// Update.
type Sessions struct {
	mu   sync.Mutex
	ttl  time.Duration
	byID map[string]*Session
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{ttl: ttl, byID: make(map[string]*Session)}
}

// FromRequest returns a copy of the request's session, creating one (and
// setting the cookie) when the request carries none or an expired one.
// Expired sessions are pruned opportunistically.
func (s *Sessions) FromRequest(w http.ResponseWriter, r *http.Request) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.byID[c.Value]; ok {
			sess.LastSeen = time.Now()
			return *sess
		}
	}

	sess := &Session{ID: uuid.New().String(), LastSeen: time.Now()}
	s.byID[sess.ID] = sess
	http.SetCookie(w, s.cookie(sess.ID))
	return *sess
}

// Update applies fn to the live session under the table lock.
func (s *Sessions) Update(id string, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		sess = &Session{ID: id}
		s.byID[id] = sess
	}
	fn(sess)
	sess.LastSeen = time.Now()
}

// Reset clears a session's state, keeping its id and, when asked, its
// masterplan.
func (s *Sessions) Reset(id string, preserveMasterplan bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return
	}
	masterplan := sess.Masterplan
	*sess = Session{ID: id, LastSeen: time.Now()}
	if preserveMasterplan {
		sess.Masterplan = masterplan
	}
}

func (s *Sessions) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func (s *Sessions) pruneLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.byID {
		if sess.LastSeen.Before(cutoff) {
			delete(s.byID, id)
		}
	}
}
