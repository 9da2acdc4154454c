package orch

import (
	"errors"
	"time"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/app/composer"
	"github.com/dkeye/Roster/internal/app/member"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrForbidden = errors.New("operation not allowed")

// Capabilities handed to the composer of each session.
const (
	CapSendMessage = "send-message"
	CapModerate    = "moderate-members"
)

// Settings tune the controllers created per session.
type Settings struct {
	PageSize         int
	Debounce         time.Duration
	MaxMessageLength int
}

type Orchestrator struct {
	Registry  *app.Registry
	Directory *app.Directory
	Policy    app.Policy
	Settings  Settings
}

// Start forwards directory room events to bound sessions until the returned func is called.
func (o *Orchestrator) Start() func() {
	stop := o.Directory.Subscribe(o.handleRoomEvent)
	log.Info().Str("module", "app.orch").Msg("room event dispatch started")
	return func() {
		stop()
		o.Registry.CloseAll()
		log.Info().Str("module", "app.orch").Msg("room event dispatch stopped")
	}
}

func (o *Orchestrator) handleRoomEvent(evt domain.RoomEvent) {
	o.Registry.Dispatch(evt)
	if evt.Kind == domain.MemberKicked {
		o.dropKicked(evt.RoomID, evt.UserID)
	}
}

func (o *Orchestrator) memberOptions() []member.Option {
	return []member.Option{member.WithPageSize(o.Settings.PageSize)}
}

func (o *Orchestrator) composerOptions(caps []string) []composer.Option {
	return []composer.Option{
		composer.WithDebounce(o.Settings.Debounce),
		composer.WithMaxMessageLength(o.Settings.MaxMessageLength),
		composer.WithCapabilities(caps...),
	}
}
