package signal

import (
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Roster/internal/domain"
)

// opWindow holds the moderation attempts of one user, oldest first.
type opWindow struct {
	hits []time.Time
}

// expire drops attempts at or before cutoff.
func (w *opWindow) expire(cutoff time.Time) {
	keep := slices.IndexFunc(w.hits, func(t time.Time) bool { return t.After(cutoff) })
	if keep < 0 {
		w.hits = w.hits[:0]
		return
	}
	w.hits = w.hits[keep:]
}

// RoomRateLimiter caps mute, unmute and kick requests per acting user
// within a sliding window. Rejected attempts do not count.
type RoomRateLimiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[domain.UserID]*opWindow
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[domain.UserID]*opWindow),
	}
}

func (rl *RoomRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[uid]
	if !ok {
		w = &opWindow{}
		rl.windows[uid] = w
	}
	w.expire(now.Add(-rl.interval))
	if len(w.hits) >= rl.limit {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

// Forget drops the window of uid when it holds no live attempts,
// so reconnecting never resets a limit that is still in force.
func (rl *RoomRateLimiter) Forget(uid domain.UserID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	w, ok := rl.windows[uid]
	if !ok {
		return
	}
	w.expire(rl.now().Add(-rl.interval))
	if len(w.hits) == 0 {
		delete(rl.windows, uid)
	}
}

func (rl *RoomRateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
