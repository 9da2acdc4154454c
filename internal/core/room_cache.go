package core

import (
	"sync"

	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
)

// orderedIDs is an insertion-ordered set of user ids.
type orderedIDs struct {
	order []domain.UserID
	index map[domain.UserID]struct{}
}

func newOrderedIDs() *orderedIDs {
	return &orderedIDs{index: make(map[domain.UserID]struct{})}
}

func (s *orderedIDs) add(ids []domain.UserID) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.order = append(s.order, id)
		added++
	}
	return added
}

func (s *orderedIDs) remove(id domain.UserID) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *orderedIDs) snapshot() []domain.UserID {
	out := make([]domain.UserID, len(s.order))
	copy(out, s.order)
	return out
}

type roomSets struct {
	members *orderedIDs
	muted   *orderedIDs
}

// RoomCache keeps per-room member and mute id lists.
// A muted id is not required to also be a member.
type RoomCache struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomSets
}

func NewRoomCache() *RoomCache {
	return &RoomCache{rooms: make(map[domain.RoomID]*roomSets)}
}

func (c *RoomCache) room(roomID domain.RoomID) *roomSets {
	r, ok := c.rooms[roomID]
	if !ok {
		r = &roomSets{members: newOrderedIDs(), muted: newOrderedIDs()}
		c.rooms[roomID] = r
	}
	return r
}

// SaveRoomMemberList appends ids not seen before, in arrival order.
func (c *RoomCache) SaveRoomMemberList(roomID domain.RoomID, ids []domain.UserID) {
	c.mu.Lock()
	added := c.room(roomID).members.add(ids)
	c.mu.Unlock()
	log.Debug().Str("module", "core.room_cache").Str("room", string(roomID)).Int("added", added).Msg("members saved")
}

func (c *RoomCache) SaveRoomMuteList(roomID domain.RoomID, ids []domain.UserID) {
	c.mu.Lock()
	added := c.room(roomID).muted.add(ids)
	c.mu.Unlock()
	log.Debug().Str("module", "core.room_cache").Str("room", string(roomID)).Int("added", added).Msg("muted saved")
}

// RemoveRoomMember is a no-op for unknown rooms or ids.
func (c *RoomCache) RemoveRoomMember(roomID domain.RoomID, id domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rooms[roomID]; ok {
		r.members.remove(id)
	}
}

func (c *RoomCache) RemoveRoomMuteMember(roomID domain.RoomID, id domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rooms[roomID]; ok {
		r.muted.remove(id)
	}
}

func (c *RoomCache) GetRoomMemberList(roomID domain.RoomID) []domain.UserID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.rooms[roomID]; ok {
		return r.members.snapshot()
	}
	return []domain.UserID{}
}

func (c *RoomCache) GetRoomMuteList(roomID domain.RoomID) []domain.UserID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.rooms[roomID]; ok {
		return r.muted.snapshot()
	}
	return []domain.UserID{}
}

func (c *RoomCache) IsMuted(roomID domain.RoomID, id domain.UserID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return false
	}
	_, muted := r.muted.index[id]
	return muted
}

// ClearRoom drops one room's member and mute lists.
func (c *RoomCache) ClearRoom(roomID domain.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

// ClearRoomUserCache drops every room association. User records are untouched.
func (c *RoomCache) ClearRoomUserCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = make(map[domain.RoomID]*roomSets)
}
