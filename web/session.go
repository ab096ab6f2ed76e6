package web

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/dangdungcntt/gelly"
)

const sessionCookie = "gelly_session"

// Session is one visitor's server-side state, exposed to templates as the
// "session" scope. Vars persist across that visitor's requests.
type Session struct {
	ID    string
	Vars  *gelly.Scope
	fresh bool
}

// SessionStore keeps sessions in memory, keyed by an id carried in a signed
// cookie. State does not survive a restart.
type SessionStore struct {
	codec *securecookie.SecureCookie

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates a store. hashKey signs the cookie; blockKey is
// optional and enables encryption when set.
func NewSessionStore(hashKey, blockKey []byte) *SessionStore {
	return &SessionStore{
		codec:    securecookie.New(hashKey, blockKey),
		sessions: map[string]*Session{},
	}
}

// Load returns the request's session, creating a fresh one when the cookie
// is missing, invalid, or references an expired entry.
func (s *SessionStore) Load(c *gin.Context) *Session {
	if raw, err := c.Cookie(sessionCookie); err == nil {
		var id string
		if err := s.codec.Decode(sessionCookie, raw, &id); err == nil {
			s.mu.Lock()
			sess, ok := s.sessions[id]
			s.mu.Unlock()
			if ok {
				return sess
			}
		}
	}

	sess := &Session{ID: uuid.NewString(), Vars: gelly.NewScope(nil), fresh: true}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Save sets the session cookie for a freshly created session. Called only
// after a successful render so failed requests stay cookie-free.
func (s *SessionStore) Save(c *gin.Context, sess *Session) error {
	if !sess.fresh {
		return nil
	}
	encoded, err := s.codec.Encode(sessionCookie, sess.ID)
	if err != nil {
		return err
	}
	c.SetCookie(sessionCookie, encoded, 0, "/", "", false, true)
	sess.fresh = false
	return nil
}
