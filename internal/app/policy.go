package app

import "github.com/dkeye/Roster/internal/domain"

// Policy decides whether actor may apply op to target in room.
type Policy interface {
	CanOperate(room domain.Room, actor, target domain.UserID, op domain.Operation) bool
}

// OwnerPolicy lets only the room owner operate on others.
// Rooms without an owner are open to everyone.
type OwnerPolicy struct{}

func (OwnerPolicy) CanOperate(room domain.Room, actor, target domain.UserID, op domain.Operation) bool {
	if actor == target {
		return false
	}
	if room.Owner == "" {
		return true
	}
	return room.Owner == actor
}
