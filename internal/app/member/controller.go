package member

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const DefaultPageSize = 10

var (
	ErrClosed          = errors.New("member list closed")
	ErrFetchInProgress = errors.New("member fetch already in progress")
	ErrIndexOutOfRange = errors.New("visible range out of bounds")
)

type Option func(*Controller)

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Controller drives the member and mute lists of one room.
// Remote calls run outside the lock; their results are applied only while the
// controller is open, so nothing touches the caches after Close returns.
type Controller struct {
	roomID   domain.RoomID
	remote   core.Remote
	cache    *core.CacheManager
	pageSize int
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pager   pager
	view    View
	items   []domain.UserEntity
	lastErr error
	state   *core.State[ListState]
}

func NewController(roomID domain.RoomID, remote core.Remote, cache *core.CacheManager, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		roomID:   roomID,
		remote:   remote,
		cache:    cache,
		pageSize: DefaultPageSize,
		ctx:      ctx,
		cancel:   cancel,
		pager:    newPager(),
		state:    core.NewState(ListState{Items: []domain.UserEntity{}}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.With().Str("module", "app.member").Str("room", string(roomID)).Logger()
	return c
}

func (c *Controller) RoomID() domain.RoomID { return c.roomID }

func (c *Controller) State() *core.State[ListState] { return c.state }

func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.cursor.hasMore
}

func (c *Controller) MuteHasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.muteHasMore
}

// Items returns a copy of the materialized list.
func (c *Controller) Items() []domain.UserEntity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneUsers(c.items)
}

// Close cancels in-flight remote calls and ends list subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.state.Close()
	c.logger.Info().Msg("member list closed")
}

// FetchRoomMembers restarts pagination from the first page.
func (c *Controller) FetchRoomMembers(ctx context.Context) ([]domain.UserEntity, error) {
	c.mu.Lock()
	if err := c.beginFetchLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.pager.reset()
	c.view = ViewMembers
	c.items = nil
	c.cache.Rooms.ClearRoom(c.roomID)
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug().Msg("refreshing members")
	page, err := c.fetchPage(ctx, "", true, func(page []domain.UserEntity) {
		c.items = cloneUsers(page)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FetchMoreRoomMembers requests the page after the stored cursor.
// With isLoadMore the page is appended to the materialized list.
func (c *Controller) FetchMoreRoomMembers(ctx context.Context, fetchUserInfo, isLoadMore bool) ([]domain.UserEntity, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if !c.pager.cursor.hasMore {
		c.mu.Unlock()
		return []domain.UserEntity{}, nil
	}
	if err := c.beginFetchLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	cursor := c.pager.cursor.token
	c.publishLocked()
	c.mu.Unlock()

	var apply func([]domain.UserEntity)
	if isLoadMore {
		apply = func(page []domain.UserEntity) {
			if c.view != ViewMembers {
				c.view = ViewMembers
				c.items = nil
			}
			c.appendItemsLocked(page)
		}
	}
	return c.fetchPage(ctx, cursor, fetchUserInfo, apply)
}

// fetchPage expects beginFetchLocked to have succeeded.
func (c *Controller) fetchPage(ctx context.Context, cursor string, fetchUserInfo bool, apply func([]domain.UserEntity)) ([]domain.UserEntity, error) {
	rctx, done := c.bind(ctx)
	defer done()

	res, err := c.remote.FetchMembers(rctx, c.roomID, cursor, c.pageSize)
	if err != nil {
		c.failFetch(err)
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pager.advance(res.Cursor, len(res.Data), c.pageSize)
	c.cache.Rooms.SaveRoomMemberList(c.roomID, res.Data)
	needs := c.cache.Users.Missing(res.Data)
	c.mu.Unlock()

	c.logger.Debug().Int("returned", len(res.Data)).Int("needs_info", len(needs)).Str("cursor", res.Cursor).Msg("member page")

	if fetchUserInfo && len(needs) > 0 {
		// A failed bulk fetch still delivers the page with placeholders.
		if _, err := c.fetchUsers(rctx, needs); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil, err
			}
			c.logger.Warn().Err(err).Int("ids", len(needs)).Msg("user info fetch failed, delivering placeholders")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	page := c.cache.Users.Resolve(res.Data)
	if apply != nil {
		apply(page)
	}
	c.pager.loading = false
	c.lastErr = nil
	c.publishLocked()
	return page, nil
}

// FetchMuteList loads the next page of muted users; refresh starts over.
func (c *Controller) FetchMuteList(ctx context.Context, refresh bool) ([]domain.UserEntity, error) {
	c.mu.Lock()
	if err := c.beginFetchLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if refresh || c.view != ViewMuted {
		c.pager.resetMute()
		c.view = ViewMuted
		c.items = nil
	}
	if !c.pager.muteHasMore {
		c.pager.loading = false
		c.publishLocked()
		c.mu.Unlock()
		return []domain.UserEntity{}, nil
	}
	pageNum := c.pager.mutePage
	c.publishLocked()
	c.mu.Unlock()

	rctx, done := c.bind(ctx)
	defer done()

	ids, err := c.remote.FetchMuteList(rctx, c.roomID, pageNum, c.pageSize)
	if err != nil {
		c.failFetch(err)
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pager.advanceMute(len(ids), c.pageSize)
	c.cache.Rooms.SaveRoomMuteList(c.roomID, ids)
	needs := c.cache.Users.Missing(ids)
	c.mu.Unlock()

	if len(needs) > 0 {
		if _, err := c.fetchUsers(rctx, needs); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil, err
			}
			c.logger.Warn().Err(err).Msg("muted user info fetch failed")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	page := c.cache.Users.Resolve(ids)
	if c.view == ViewMuted {
		c.appendItemsLocked(page)
	}
	c.pager.loading = false
	c.lastErr = nil
	c.publishLocked()
	return page, nil
}

// GetCacheMemberList resolves the cached member ids of this room.
func (c *Controller) GetCacheMemberList() []domain.UserEntity {
	return c.cache.Users.Resolve(c.cache.Rooms.GetRoomMemberList(c.roomID))
}

func (c *Controller) GetCacheMuteList() []domain.UserEntity {
	return c.cache.Users.Resolve(c.cache.Rooms.GetRoomMuteList(c.roomID))
}

// FetchUsersInfo fetches and caches profiles for ids, then refreshes the list.
func (c *Controller) FetchUsersInfo(ctx context.Context, ids []domain.UserID) ([]domain.UserEntity, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	rctx, done := c.bind(ctx)
	defer done()
	return c.fetchUsers(rctx, ids)
}

// FetchVisibleUsersInfo fetches profiles missing for items[first:last].
func (c *Controller) FetchVisibleUsersInfo(ctx context.Context, first, last int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if first < 0 || first > last || last > len(c.items) {
		n := len(c.items)
		c.mu.Unlock()
		return fmt.Errorf("%w: [%d:%d] of %d", ErrIndexOutOfRange, first, last, n)
	}
	ids := lo.Uniq(domain.UserIDs(c.items[first:last]))
	c.mu.Unlock()

	needs := c.cache.Users.Missing(ids)
	if len(needs) == 0 {
		return nil
	}
	c.logger.Debug().Int("first", first).Int("last", last).Int("needs_info", len(needs)).Msg("viewport prefetch")
	_, err := c.FetchUsersInfo(ctx, needs)
	return err
}

func (c *Controller) fetchUsers(ctx context.Context, ids []domain.UserID) ([]domain.UserEntity, error) {
	users, err := c.remote.FetchUserInfoList(ctx, ids)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	for _, u := range users {
		c.cache.Users.SaveUserInfo(u.UserID, u)
	}
	c.refreshLocked()
	return users, nil
}

func (c *Controller) MuteUser(ctx context.Context, id domain.UserID) (domain.UserEntity, error) {
	return c.operate(ctx, id, domain.OpMute)
}

func (c *Controller) UnmuteUser(ctx context.Context, id domain.UserID) (domain.UserEntity, error) {
	return c.operate(ctx, id, domain.OpUnmute)
}

// RemoveUser kicks id from the room and drops it from both lists.
func (c *Controller) RemoveUser(ctx context.Context, id domain.UserID) (domain.UserEntity, error) {
	return c.operate(ctx, id, domain.OpKick)
}

// operate applies the cache change only after the remote confirmed it.
func (c *Controller) operate(ctx context.Context, id domain.UserID, op domain.Operation) (domain.UserEntity, error) {
	if err := c.checkOpen(); err != nil {
		return domain.UserEntity{}, err
	}
	rctx, done := c.bind(ctx)
	defer done()

	if err := c.remote.OperateUser(rctx, c.roomID, id, op); err != nil {
		c.logger.Warn().Err(err).Str("user", string(id)).Str("op", op.String()).Msg("operation failed")
		return domain.UserEntity{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.UserEntity{}, ErrClosed
	}
	c.applyLocked(id, op)
	c.publishLocked()
	c.logger.Info().Str("user", string(id)).Str("op", op.String()).Msg("operation applied")
	return c.cache.Users.GetUserInfo(id), nil
}

func (c *Controller) applyLocked(id domain.UserID, op domain.Operation) {
	rooms := c.cache.Rooms
	switch op {
	case domain.OpMute:
		rooms.RemoveRoomMember(c.roomID, id)
		rooms.SaveRoomMuteList(c.roomID, []domain.UserID{id})
		if c.view == ViewMembers {
			c.dropItemLocked(id)
		}
	case domain.OpUnmute:
		rooms.RemoveRoomMuteMember(c.roomID, id)
		if c.view == ViewMuted {
			c.dropItemLocked(id)
		}
	case domain.OpKick:
		rooms.RemoveRoomMember(c.roomID, id)
		rooms.RemoveRoomMuteMember(c.roomID, id)
		c.dropItemLocked(id)
	}
}

// SearchUsers filters the cached member or mute list locally.
// The match replaces the materialized list; an empty keyword only clears it.
func (c *Controller) SearchUsers(keyword string, isMute bool) []domain.UserEntity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return []domain.UserEntity{}
	}
	c.items = nil
	c.view = ViewMembers
	if isMute {
		c.view = ViewMuted
	}
	if keyword == "" {
		c.publishLocked()
		return []domain.UserEntity{}
	}

	var ids []domain.UserID
	if isMute {
		ids = c.cache.Rooms.GetRoomMuteList(c.roomID)
	} else {
		ids = c.cache.Rooms.GetRoomMemberList(c.roomID)
	}
	result := lo.Filter(c.cache.Users.Resolve(ids), func(u domain.UserEntity, _ int) bool {
		return strings.Contains(u.Nickname, keyword) || strings.Contains(string(u.UserID), keyword)
	})
	c.items = cloneUsers(result)
	c.publishLocked()
	return result
}

// HandleRoomEvent keeps the caches in line with membership changes pushed by the backend.
func (c *Controller) HandleRoomEvent(evt domain.RoomEvent) {
	if evt.RoomID != c.roomID || evt.UserID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if evt.User != nil {
		c.cache.Users.SaveUserInfo(evt.UserID, *evt.User)
	}

	rooms := c.cache.Rooms
	switch evt.Kind {
	case domain.MemberJoined:
		rooms.SaveRoomMemberList(c.roomID, []domain.UserID{evt.UserID})
		if c.view == ViewMembers && !c.pager.cursor.hasMore {
			c.appendItemsLocked([]domain.UserEntity{c.cache.Users.GetUserInfo(evt.UserID)})
		}
	case domain.MemberLeft, domain.MemberKicked:
		c.applyLocked(evt.UserID, domain.OpKick)
	case domain.MemberMuted:
		c.applyLocked(evt.UserID, domain.OpMute)
	case domain.MemberUnmuted:
		c.applyLocked(evt.UserID, domain.OpUnmute)
	default:
		c.logger.Warn().Str("kind", string(evt.Kind)).Msg("unknown room event")
		return
	}
	c.refreshLocked()
}

func (c *Controller) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Controller) beginFetchLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.pager.loading {
		return ErrFetchInProgress
	}
	c.pager.loading = true
	c.lastErr = nil
	return nil
}

func (c *Controller) failFetch(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pager.loading = false
	if c.closed {
		return
	}
	c.lastErr = err
	c.publishLocked()
	c.logger.Error().Err(err).Msg("member fetch failed")
}

// bind derives a context cancelled by either the caller or Close.
func (c *Controller) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return rctx, func() {
		stop()
		cancel()
	}
}

// appendItemsLocked adds users not already listed.
func (c *Controller) appendItemsLocked(users []domain.UserEntity) {
	seen := make(map[domain.UserID]struct{}, len(c.items))
	for _, u := range c.items {
		seen[u.UserID] = struct{}{}
	}
	for _, u := range users {
		if _, ok := seen[u.UserID]; ok {
			continue
		}
		seen[u.UserID] = struct{}{}
		c.items = append(c.items, u)
	}
}

func (c *Controller) dropItemLocked(id domain.UserID) {
	c.items = lo.Reject(c.items, func(u domain.UserEntity, _ int) bool { return u.UserID == id })
}

// refreshLocked re-resolves every listed user from the cache and republishes.
func (c *Controller) refreshLocked() {
	c.items = c.cache.Users.Resolve(domain.UserIDs(c.items))
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	st := ListState{Status: StatusIdle, View: c.view, Items: cloneUsers(c.items)}
	switch {
	case c.pager.loading:
		st.Status = StatusLoading
	case c.lastErr != nil:
		st.Status = StatusError
		st.Err = c.lastErr
	}
	c.state.Set(st)
}

func cloneUsers(users []domain.UserEntity) []domain.UserEntity {
	out := make([]domain.UserEntity, len(users))
	copy(out, users)
	return out
}
