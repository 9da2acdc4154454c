// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 64
	MaxNicknameLen = 36
)

var (
	ErrEmptyUserID     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrNicknameTooLong = errors.New("nickname too long")
)

type UserID string

// UserEntity is the display record resolved for a user id.
// Empty string fields mean "unknown".
type UserEntity struct {
	UserID    UserID `json:"userId" mapstructure:"id"`
	Nickname  string `json:"nickname,omitempty" mapstructure:"nickname"`
	AvatarURL string `json:"avatarUrl,omitempty" mapstructure:"avatar_url"`
	Gender    int    `json:"gender,omitempty" mapstructure:"gender"`
	Ext       string `json:"ext,omitempty" mapstructure:"ext"`
}

// NewPlaceholder returns an entity that carries only the id.
func NewPlaceholder(id UserID) UserEntity {
	return UserEntity{UserID: id}
}

// NewGuest is a tiny helper for clients that join without an id of their own.
func NewGuest(nickname string) (UserEntity, error) {
	if len(nickname) > MaxNicknameLen {
		return UserEntity{}, ErrNicknameTooLong
	}
	return UserEntity{UserID: UserID(uuid.NewString()), Nickname: nickname}, nil
}

func (u UserEntity) IsPlaceholder() bool {
	return u.Nickname == "" && u.AvatarURL == "" && u.Gender == 0 && u.Ext == ""
}

func (u UserEntity) Validate() error {
	if u.UserID == "" {
		return ErrEmptyUserID
	}
	if len(u.UserID) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	if len(u.Nickname) > MaxNicknameLen {
		return ErrNicknameTooLong
	}
	return nil
}

// UserIDs extracts ids keeping order.
func UserIDs(users []UserEntity) []UserID {
	out := make([]UserID, 0, len(users))
	for _, u := range users {
		out = append(out, u.UserID)
	}
	return out
}
