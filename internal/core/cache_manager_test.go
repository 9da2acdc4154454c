package core

import (
	"testing"

	"github.com/dkeye/Roster/internal/domain"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCacheManagerOwnUserAndClear(t *testing.T) {
	t.Parallel()

	m := NewCacheManager()
	if _, ok := m.OwnUser(); ok {
		t.Fatal("fresh manager reports an own user")
	}

	m.SaveOwnUser(domain.UserEntity{UserID: "me", Nickname: "me"})
	m.Rooms.SaveRoomMemberList("r1", []domain.UserID{"me"})

	own, ok := m.OwnUser()
	if !ok || own.Nickname != "me" {
		t.Fatalf("OwnUser() = %+v, %v", own, ok)
	}

	m.Clear()
	if _, ok := m.OwnUser(); ok {
		t.Fatal("own user survived Clear")
	}
	if m.Users.Len() != 0 || len(m.Rooms.GetRoomMemberList("r1")) != 0 {
		t.Fatal("Clear left cached data behind")
	}
}

func TestAsRemoteError(t *testing.T) {
	t.Parallel()

	err := error(NewRemoteError(404, "room not found"))
	re, ok := AsRemoteError(err)
	if !ok || re.Code != 404 {
		t.Fatalf("AsRemoteError = %v, %v", re, ok)
	}
	if _, ok := AsRemoteError(nil); ok {
		t.Fatal("nil error reported as remote")
	}
}
