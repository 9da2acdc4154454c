package core

import (
	"sync"

	"github.com/dkeye/Roster/internal/domain"
	"github.com/samber/mo"
)

// UserCache is a process-wide id -> UserEntity store.
// There is no eviction; entries go away only on Clear.
type UserCache struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.UserEntity
}

func NewUserCache() *UserCache {
	return &UserCache{users: make(map[domain.UserID]domain.UserEntity)}
}

func (c *UserCache) SaveUserInfo(id domain.UserID, user domain.UserEntity) {
	if id == "" {
		return
	}
	user.UserID = id
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[id] = user
}

// GetUserInfo never fails: unknown ids resolve to a placeholder.
func (c *UserCache) GetUserInfo(id domain.UserID) domain.UserEntity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if u, ok := c.users[id]; ok {
		return u
	}
	return domain.NewPlaceholder(id)
}

func (c *UserCache) Lookup(id domain.UserID) mo.Option[domain.UserEntity] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return mo.TupleToOption(u, ok)
}

func (c *UserCache) InCache(id domain.UserID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.users[id]
	return ok
}

// Resolve maps ids to entities in order, placeholders included.
func (c *UserCache) Resolve(ids []domain.UserID) []domain.UserEntity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.UserEntity, 0, len(ids))
	for _, id := range ids {
		if u, ok := c.users[id]; ok {
			out = append(out, u)
			continue
		}
		out = append(out, domain.NewPlaceholder(id))
	}
	return out
}

// Missing returns the ids not yet cached, keeping order.
func (c *UserCache) Missing(ids []domain.UserID) []domain.UserID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.UserID, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.users[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (c *UserCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

func (c *UserCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = make(map[domain.UserID]domain.UserEntity)
}
