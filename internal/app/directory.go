package app

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Remote error codes reported by the directory.
const (
	CodeBadRequest    = 400
	CodeForbidden     = 403
	CodeRoomNotFound  = 404
	CodeUserNotMember = 409
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrUserNotMember = errors.New("user is not a room member")
	ErrBadCursor     = errors.New("bad cursor")
)

type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Name        domain.RoomName `json:"name"`
	Owner       domain.UserID   `json:"owner,omitempty"`
	MemberCount int             `json:"member_count"`
}

// roomState is the authoritative membership of one room, in join order.
type roomState struct {
	room    domain.Room
	order   []domain.UserID
	members map[domain.UserID]*domain.Member
}

func (r *roomState) mutedIDs() []domain.UserID {
	return lo.Filter(r.order, func(id domain.UserID, _ int) bool { return r.members[id].Mute })
}

// Directory is the in-memory chatroom backend. It implements core.Remote
// and publishes a RoomEvent for every membership change.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
	users map[domain.UserID]domain.UserEntity

	subMu  sync.RWMutex
	subs   map[int]func(domain.RoomEvent)
	nextID int
}

var _ core.Remote = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[domain.RoomID]*roomState),
		users: make(map[domain.UserID]domain.UserEntity),
		subs:  make(map[int]func(domain.RoomEvent)),
	}
}

// CreateRoom registers room; an empty id gets a generated one.
func (d *Directory) CreateRoom(room domain.Room) domain.Room {
	if room.ID == "" {
		room.ID = domain.RoomID(uuid.NewString())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.rooms[room.ID]; ok {
		return r.room
	}
	d.rooms[room.ID] = &roomState{room: room, members: make(map[domain.UserID]*domain.Member)}
	log.Info().Str("module", "app.directory").Str("room", string(room.ID)).Str("name", string(room.Name)).Msg("room created")
	return room
}

func (d *Directory) FindRoom(id domain.RoomID) mo.Option[domain.Room] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.rooms[id]; ok {
		return mo.Some(r.room)
	}
	return mo.None[domain.Room]()
}

func (d *Directory) ListRooms() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, RoomInfo{ID: r.room.ID, Name: r.room.Name, Owner: r.room.Owner, MemberCount: len(r.order)})
	}
	return out
}

// RemoveRoom drops the room and reports every member as having left.
func (d *Directory) RemoveRoom(id domain.RoomID) {
	d.mu.Lock()
	r, ok := d.rooms[id]
	if ok {
		delete(d.rooms, id)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	for _, uid := range r.order {
		d.publish(domain.RoomEvent{Kind: domain.MemberLeft, RoomID: id, UserID: uid})
	}
	log.Info().Str("module", "app.directory").Str("room", string(id)).Msg("room removed")
}

func (d *Directory) SaveUser(user domain.UserEntity) error {
	if err := user.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.UserID] = user
	return nil
}

func (d *Directory) User(id domain.UserID) mo.Option[domain.UserEntity] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return mo.TupleToOption(u, ok)
}

// Join adds user to the room. Joining twice is a no-op.
func (d *Directory) Join(roomID domain.RoomID, user domain.UserEntity) error {
	if err := user.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	r, ok := d.rooms[roomID]
	if !ok {
		d.mu.Unlock()
		return ErrRoomNotFound
	}
	d.users[user.UserID] = user
	if _, member := r.members[user.UserID]; member {
		d.mu.Unlock()
		return nil
	}
	r.members[user.UserID] = domain.NewMember(user)
	r.order = append(r.order, user.UserID)
	d.mu.Unlock()

	log.Info().Str("module", "app.directory").Str("room", string(roomID)).Str("user", string(user.UserID)).Msg("member joined")
	u := user
	d.publish(domain.RoomEvent{Kind: domain.MemberJoined, RoomID: roomID, UserID: user.UserID, User: &u})
	return nil
}

func (d *Directory) Leave(roomID domain.RoomID, userID domain.UserID) error {
	if err := d.removeMember(roomID, userID); err != nil {
		return err
	}
	log.Info().Str("module", "app.directory").Str("room", string(roomID)).Str("user", string(userID)).Msg("member left")
	d.publish(domain.RoomEvent{Kind: domain.MemberLeft, RoomID: roomID, UserID: userID})
	return nil
}

func (d *Directory) removeMember(roomID domain.RoomID, userID domain.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if _, member := r.members[userID]; !member {
		return ErrUserNotMember
	}
	delete(r.members, userID)
	r.order = lo.Without(r.order, userID)
	return nil
}

// Subscribe registers fn for every room event. fn must not block.
func (d *Directory) Subscribe(fn func(domain.RoomEvent)) func() {
	d.subMu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.subMu.Unlock()
	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

func (d *Directory) publish(evt domain.RoomEvent) {
	d.subMu.RLock()
	fns := lo.Values(d.subs)
	d.subMu.RUnlock()
	for _, fn := range fns {
		fn(evt)
	}
}

// FetchMembers pages through members in join order. The cursor is the offset
// of the next page. Past the end the page is empty and the cursor stays put.
func (d *Directory) FetchMembers(ctx context.Context, roomID domain.RoomID, cursor string, pageSize int) (core.CursorResult, error) {
	if err := ctx.Err(); err != nil {
		return core.CursorResult{}, err
	}
	if pageSize <= 0 {
		return core.CursorResult{}, toRemote(ErrBadCursor)
	}
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return core.CursorResult{}, toRemote(ErrBadCursor)
		}
		offset = n
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return core.CursorResult{}, toRemote(ErrRoomNotFound)
	}
	page := pageOf(r.order, offset, pageSize)
	next := strconv.Itoa(offset + len(page))
	return core.CursorResult{Data: page, Cursor: next}, nil
}

// FetchMuteList pages through muted members; pageNum starts at 1.
func (d *Directory) FetchMuteList(ctx context.Context, roomID domain.RoomID, pageNum, pageSize int) ([]domain.UserID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageNum < 1 || pageSize <= 0 {
		return nil, toRemote(ErrBadCursor)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return nil, toRemote(ErrRoomNotFound)
	}
	return pageOf(r.mutedIDs(), (pageNum-1)*pageSize, pageSize), nil
}

func (d *Directory) OperateUser(ctx context.Context, roomID domain.RoomID, userID domain.UserID, op domain.Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var kind domain.RoomEventKind
	switch op {
	case domain.OpKick:
		if err := d.removeMember(roomID, userID); err != nil {
			return toRemote(err)
		}
		kind = domain.MemberKicked
	case domain.OpMute, domain.OpUnmute:
		if err := d.setMute(roomID, userID, op == domain.OpMute); err != nil {
			return toRemote(err)
		}
		kind = domain.MemberMuted
		if op == domain.OpUnmute {
			kind = domain.MemberUnmuted
		}
	default:
		return core.NewRemoteError(CodeBadRequest, "unknown operation "+op.String())
	}
	log.Info().Str("module", "app.directory").Str("room", string(roomID)).Str("user", string(userID)).Str("op", op.String()).Msg("member operated")
	d.publish(domain.RoomEvent{Kind: kind, RoomID: roomID, UserID: userID})
	return nil
}

func (d *Directory) setMute(roomID domain.RoomID, userID domain.UserID, mute bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	m, ok := r.members[userID]
	if !ok {
		return ErrUserNotMember
	}
	m.Mute = mute
	return nil
}

// FetchUserInfoList returns known users in request order; unknown ids are skipped.
func (d *Directory) FetchUserInfoList(ctx context.Context, ids []domain.UserID) ([]domain.UserEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.UserEntity, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func pageOf(ids []domain.UserID, offset, size int) []domain.UserID {
	if offset >= len(ids) {
		return []domain.UserID{}
	}
	end := min(offset+size, len(ids))
	out := make([]domain.UserID, end-offset)
	copy(out, ids[offset:end])
	return out
}

func toRemote(err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return core.NewRemoteError(CodeRoomNotFound, err.Error())
	case errors.Is(err, ErrUserNotMember):
		return core.NewRemoteError(CodeUserNotMember, err.Error())
	case errors.Is(err, ErrBadCursor):
		return core.NewRemoteError(CodeBadRequest, err.Error())
	default:
		return err
	}
}
