package core

import (
	"sync"

	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
)

// CacheManager is the shared cache context handed to every controller.
// Create one per session and Clear it on logout.
type CacheManager struct {
	Users *UserCache
	Rooms *RoomCache

	mu  sync.RWMutex
	own domain.UserID
}

func NewCacheManager() *CacheManager {
	return &CacheManager{
		Users: NewUserCache(),
		Rooms: NewRoomCache(),
	}
}

// SaveOwnUser stores the logged-in user's own profile.
func (m *CacheManager) SaveOwnUser(user domain.UserEntity) {
	m.Users.SaveUserInfo(user.UserID, user)
	m.mu.Lock()
	m.own = user.UserID
	m.mu.Unlock()
	log.Info().Str("module", "core.cache").Str("user", string(user.UserID)).Msg("own user saved")
}

func (m *CacheManager) OwnUser() (domain.UserEntity, bool) {
	m.mu.RLock()
	own := m.own
	m.mu.RUnlock()
	if own == "" {
		return domain.UserEntity{}, false
	}
	return m.Users.GetUserInfo(own), true
}

func (m *CacheManager) Clear() {
	m.Users.Clear()
	m.Rooms.ClearRoomUserCache()
	m.mu.Lock()
	m.own = ""
	m.mu.Unlock()
	log.Info().Str("module", "core.cache").Msg("cache cleared")
}
