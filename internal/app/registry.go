package app

import (
	"context"
	"sync"

	"github.com/dkeye/Roster/internal/app/composer"
	"github.com/dkeye/Roster/internal/app/member"
	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type SessionID string

// Session is one connected UI client: its own cache context plus the
// controllers bound to the room it watches.
type Session struct {
	SID      SessionID
	RoomID   domain.RoomID
	User     domain.UserEntity
	Cache    *core.CacheManager
	Members  *member.Controller
	Composer *composer.Controller
	Cancel   context.CancelFunc
}

// Close tears down the controllers and clears the session cache.
func (s *Session) Close() {
	s.Members.Close()
	s.Composer.Close()
	s.Cache.Clear()
	if s.Cancel != nil {
		s.Cancel()
	}
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SessionID]*Session)}
}

// Bind stores s, closing any session previously bound under the same sid.
func (r *Registry) Bind(s *Session) {
	r.mu.Lock()
	old, ok := r.sessions[s.SID]
	r.sessions[s.SID] = s
	r.mu.Unlock()
	if ok && old != s {
		old.Close()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(s.SID)).Str("room", string(s.RoomID)).Msg("bound session")
}

func (r *Registry) Get(sid SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// Unbind removes and closes the session. It reports whether one was bound.
func (r *Registry) Unbind(sid SessionID) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	if ok {
		delete(r.sessions, sid)
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.Close()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return s, true
}

// UnbindSession unbinds s only if it is still the session bound under its sid.
func (r *Registry) UnbindSession(s *Session) bool {
	r.mu.Lock()
	cur, ok := r.sessions[s.SID]
	if ok && cur == s {
		delete(r.sessions, s.SID)
	}
	r.mu.Unlock()
	if !ok || cur != s {
		return false
	}
	s.Close()
	log.Info().Str("module", "app.registry").Str("sid", string(s.SID)).Msg("unbind session")
	return true
}

func (r *Registry) SessionsInRoom(roomID domain.RoomID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.RoomID == roomID {
			out = append(out, s)
		}
	}
	return out
}

// SessionsOfUser lists the sessions userID has open in roomID.
func (r *Registry) SessionsOfUser(roomID domain.RoomID, userID domain.UserID) []*Session {
	return lo.Filter(r.SessionsInRoom(roomID), func(s *Session, _ int) bool { return s.User.UserID == userID })
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Dispatch hands a room event to every session watching that room.
func (r *Registry) Dispatch(evt domain.RoomEvent) {
	for _, s := range r.SessionsInRoom(evt.RoomID) {
		s.Members.HandleRoomEvent(evt)
	}
	log.Debug().Str("module", "app.registry").Str("room", string(evt.RoomID)).Str("kind", string(evt.Kind)).Msg("room event dispatched")
}

// CloseAll unbinds every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[SessionID]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
