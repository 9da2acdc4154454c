package member

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
)

// remoteStub is an in-memory core.Remote that records every call.
type remoteStub struct {
	mu      sync.Mutex
	members []domain.UserID
	muted   []domain.UserID
	users   map[domain.UserID]domain.UserEntity

	// emptyEndCursor makes the last page carry no continuation token.
	emptyEndCursor bool

	fetchErr error
	infoErr  error
	opErr    error

	// gate, when set, holds FetchMembers until it is closed or ctx ends.
	gate    chan struct{}
	started chan struct{}

	cursors   []string
	mutePages []int
	infoCalls [][]domain.UserID
	ops       []string
}

func newRemoteStub(n int) *remoteStub {
	r := &remoteStub{users: make(map[domain.UserID]domain.UserEntity)}
	for i := 0; i < n; i++ {
		id := domain.UserID(fmt.Sprintf("u%02d", i))
		r.members = append(r.members, id)
		r.users[id] = domain.UserEntity{UserID: id, Nickname: fmt.Sprintf("user-%02d", i)}
	}
	return r
}

func (r *remoteStub) FetchMembers(ctx context.Context, _ domain.RoomID, cursor string, pageSize int) (core.CursorResult, error) {
	r.mu.Lock()
	r.cursors = append(r.cursors, cursor)
	gate, started := r.gate, r.started
	r.mu.Unlock()

	if gate != nil {
		if started != nil {
			close(started)
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return core.CursorResult{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return core.CursorResult{}, r.fetchErr
	}
	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	end := min(offset+pageSize, len(r.members))
	page := []domain.UserID{}
	if offset < end {
		page = append(page, r.members[offset:end]...)
	}
	if r.emptyEndCursor && end >= len(r.members) {
		return core.CursorResult{Data: page}, nil
	}
	return core.CursorResult{Data: page, Cursor: strconv.Itoa(max(offset, end))}, nil
}

func (r *remoteStub) FetchMuteList(_ context.Context, _ domain.RoomID, pageNum, pageSize int) ([]domain.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutePages = append(r.mutePages, pageNum)
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	offset := (pageNum - 1) * pageSize
	if offset >= len(r.muted) {
		return []domain.UserID{}, nil
	}
	end := min(offset+pageSize, len(r.muted))
	return append([]domain.UserID{}, r.muted[offset:end]...), nil
}

func (r *remoteStub) OperateUser(_ context.Context, _ domain.RoomID, userID domain.UserID, op domain.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op.String()+":"+string(userID))
	return r.opErr
}

func (r *remoteStub) FetchUserInfoList(_ context.Context, ids []domain.UserID) ([]domain.UserEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infoCalls = append(r.infoCalls, append([]domain.UserID{}, ids...))
	if r.infoErr != nil {
		return nil, r.infoErr
	}
	out := make([]domain.UserEntity, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *remoteStub) set(fn func(r *remoteStub)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func (r *remoteStub) recordedCursors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.cursors...)
}

func (r *remoteStub) infoCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.infoCalls)
}
