package domain

type (
	RoomName string
	RoomID   string
)

type Room struct {
	ID    RoomID   `json:"id" mapstructure:"id"`
	Name  RoomName `json:"name" mapstructure:"name"`
	Owner UserID   `json:"owner,omitempty" mapstructure:"owner"`
}
