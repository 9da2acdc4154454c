package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Roster/internal/domain"
)

// CursorResult is one page of member ids plus the continuation token.
type CursorResult struct {
	Data   []domain.UserID `json:"data"`
	Cursor string          `json:"cursor"`
}

// ChatService is the room side of the remote chat backend.
type ChatService interface {
	FetchMembers(ctx context.Context, roomID domain.RoomID, cursor string, pageSize int) (CursorResult, error)
	FetchMuteList(ctx context.Context, roomID domain.RoomID, pageNum, pageSize int) ([]domain.UserID, error)
	OperateUser(ctx context.Context, roomID domain.RoomID, userID domain.UserID, op domain.Operation) error
}

// UserService resolves user profiles.
type UserService interface {
	FetchUserInfoList(ctx context.Context, ids []domain.UserID) ([]domain.UserEntity, error)
}

// Remote is everything a member list controller calls out to.
type Remote interface {
	ChatService
	UserService
}

// RemoteError is a failure reported by the remote backend. It is surfaced verbatim.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

func NewRemoteError(code int, message string) *RemoteError {
	return &RemoteError{Code: code, Message: message}
}

// AsRemoteError unwraps err into a RemoteError when it carries one.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
