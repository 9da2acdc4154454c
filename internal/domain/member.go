package domain

import "fmt"

// Operation is an owner action applied to a room member.
type Operation int

const (
	OpMute Operation = iota + 1
	OpUnmute
	OpKick
)

func (op Operation) String() string {
	switch op {
	case OpMute:
		return "mute"
	case OpUnmute:
		return "unmute"
	case OpKick:
		return "kick"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

func ParseOperation(s string) (Operation, error) {
	switch s {
	case "mute":
		return OpMute, nil
	case "unmute":
		return OpUnmute, nil
	case "kick":
		return OpKick, nil
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User UserEntity
	Mute bool
}

func NewMember(user UserEntity) *Member {
	return &Member{User: user}
}
