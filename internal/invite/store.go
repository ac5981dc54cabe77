// Package invite issues and validates room-scoped invite tokens and tracks
// the one invite session that exists per room.
package invite

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTTL is the fixed validity window of an invite token. There is no
// renewal; an expired invite requires the host to mint a new one.
const DefaultTTL = 24 * time.Hour

// Session maps a room to its host metadata and outstanding invite token.
type Session struct {
	RoomID    string    `json:"roomId"`
	HostName  string    `json:"hostName"`
	CreatedAt time.Time `json:"createdAt"`
	Token     string    `json:"inviteToken,omitempty"`
}

type Store struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(secret string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// EnsureSession creates the session for roomID if absent and returns its
// token. A stored token is reused while it still verifies; an expired one
// is replaced with a fresh mint.
func (s *Store) EnsureSession(roomID, hostName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[roomID]
	if !ok {
		sess = &Session{RoomID: roomID, HostName: hostName, CreatedAt: s.now()}
		s.sessions[roomID] = sess
		log.Info().Str("module", "invite").Str("room", roomID).Msg("invite session created")
	}
	if sess.Token != "" {
		if _, valid := verify(s.secret, sess.Token, s.now()); !valid {
			sess.Token = ""
			log.Info().Str("module", "invite").Str("room", roomID).Msg("invite token expired, reminting")
		}
	}
	if sess.Token == "" {
		issued := s.now()
		sess.Token = sign(s.secret, claims{
			RoomID:    roomID,
			IssuedAt:  issued.Unix(),
			ExpiresAt: issued.Add(s.ttl).Unix(),
		})
	}
	return sess.Token
}

// Get returns a copy of the session for roomID.
func (s *Store) Get(roomID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[roomID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

func (s *Store) RemoveSession(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[roomID]; ok {
		delete(s.sessions, roomID)
		log.Info().Str("module", "invite").Str("room", roomID).Msg("invite session removed")
	}
}

// Verify checks signature, expiry and shape. It fails closed and never
// returns an error to the caller.
func (s *Store) Verify(token string) (roomID string, valid bool) {
	return verify(s.secret, token, s.now())
}
