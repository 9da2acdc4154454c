package member

import "github.com/dkeye/Roster/internal/domain"

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// View says which cached list the materialized items were drawn from.
type View int

const (
	ViewMembers View = iota
	ViewMuted
)

// ListState is the snapshot published to list subscribers.
type ListState struct {
	Status Status
	View   View
	Items  []domain.UserEntity
	Err    error
}
