package domain

type RoomEventKind string

const (
	MemberJoined  RoomEventKind = "member_joined"
	MemberLeft    RoomEventKind = "member_left"
	MemberKicked  RoomEventKind = "member_kicked"
	MemberMuted   RoomEventKind = "member_muted"
	MemberUnmuted RoomEventKind = "member_unmuted"
)

// RoomEvent is a membership change observed in a room.
// User is set when the source knows more than the id.
type RoomEvent struct {
	Kind   RoomEventKind `json:"kind"`
	RoomID RoomID        `json:"room"`
	UserID UserID        `json:"userId"`
	User   *UserEntity   `json:"user,omitempty"`
}
