package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
)

// Operate applies op to target on behalf of the session user, if the policy allows it.
func (o *Orchestrator) Operate(ctx context.Context, s *app.Session, target domain.UserID, op domain.Operation) (domain.UserEntity, error) {
	room, ok := o.Directory.FindRoom(s.RoomID).Get()
	if !ok {
		return domain.UserEntity{}, app.ErrRoomNotFound
	}
	if o.Policy != nil && !o.Policy.CanOperate(room, s.User.UserID, target, op) {
		log.Warn().Str("module", "app.orch").Str("sid", string(s.SID)).Str("target", string(target)).Str("op", op.String()).Msg("operation denied")
		return domain.UserEntity{}, fmt.Errorf("%s %s: %w", op, target, ErrForbidden)
	}

	switch op {
	case domain.OpMute:
		return s.Members.MuteUser(ctx, target)
	case domain.OpUnmute:
		return s.Members.UnmuteUser(ctx, target)
	case domain.OpKick:
		return s.Members.RemoveUser(ctx, target)
	}
	return domain.UserEntity{}, fmt.Errorf("unknown operation %s", op)
}

// dropKicked closes every session the kicked user has in the room.
// Their membership is already gone, so nothing leaves the directory here.
func (o *Orchestrator) dropKicked(roomID domain.RoomID, userID domain.UserID) {
	for _, s := range o.Registry.SessionsOfUser(roomID, userID) {
		if o.Registry.UnbindSession(s) {
			log.Info().Str("module", "app.orch").Str("sid", string(s.SID)).Str("room", string(roomID)).Str("user", string(userID)).Msg("kicked session closed")
		}
	}
}

// EvictRoom closes every session watching the room and removes it.
func (o *Orchestrator) EvictRoom(roomID domain.RoomID) {
	for _, s := range o.Registry.SessionsInRoom(roomID) {
		o.Registry.Unbind(s.SID)
	}
	o.Directory.RemoveRoom(roomID)
	log.Info().Str("module", "app.orch").Str("room", string(roomID)).Msg("room evicted")
}
