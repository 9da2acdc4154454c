package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/app/composer"
	"github.com/dkeye/Roster/internal/app/member"
	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
)

// OpenSession joins user to the room and binds fresh controllers for sid.
func (o *Orchestrator) OpenSession(sid app.SessionID, roomID domain.RoomID, user domain.UserEntity, cancel context.CancelFunc) (*app.Session, error) {
	room, ok := o.Directory.FindRoom(roomID).Get()
	if !ok {
		return nil, app.ErrRoomNotFound
	}
	if err := o.Directory.Join(roomID, user); err != nil {
		return nil, err
	}

	caps := []string{CapSendMessage}
	if o.Policy != nil && o.Policy.CanOperate(room, user.UserID, "", domain.OpKick) {
		caps = append(caps, CapModerate)
	}

	cache := core.NewCacheManager()
	cache.SaveOwnUser(user)
	s := &app.Session{
		SID:      sid,
		RoomID:   roomID,
		User:     user,
		Cache:    cache,
		Members:  member.NewController(roomID, o.Directory, cache, o.memberOptions()...),
		Composer: composer.NewController(roomID, o.composerOptions(caps)...),
		Cancel:   cancel,
	}
	o.Registry.Bind(s)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("user", string(user.UserID)).Msg("session opened")
	return s, nil
}

// CloseSession unbinds s and takes its user out of the room.
// A session already replaced or evicted is left alone.
func (o *Orchestrator) CloseSession(s *app.Session) {
	if !o.Registry.UnbindSession(s) {
		return
	}
	sid := s.SID
	if err := o.Directory.Leave(s.RoomID, s.User.UserID); err != nil && !errors.Is(err, app.ErrUserNotMember) && !errors.Is(err, app.ErrRoomNotFound) {
		log.Error().Err(err).Str("module", "app.orch").Str("sid", string(sid)).Msg("leave failed")
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Msg("session closed")
}

// Rename updates the session user's nickname in the directory and its own cache.
func (o *Orchestrator) Rename(s *app.Session, nickname string) (domain.UserEntity, error) {
	user := s.Cache.Users.GetUserInfo(s.User.UserID)
	user.Nickname = nickname
	if err := o.Directory.SaveUser(user); err != nil {
		return domain.UserEntity{}, err
	}
	s.Cache.SaveOwnUser(user)
	log.Info().Str("module", "app.orch").Str("sid", string(s.SID)).Str("nickname", nickname).Msg("renamed")
	return user, nil
}
