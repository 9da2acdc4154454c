package signal

import (
	"context"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(s *app.Session, conn *WsSignalConn, data []byte) {
	var p struct {
		Name string `json:"name"`
	}
	if !ctl.decode(conn, "rename", data, &p) {
		return
	}
	if p.Name == "" {
		ctl.sendJSON(conn, map[string]any{"type": "error", "request": "rename", "error": "empty name"})
		return
	}
	if _, err := ctl.Orch.Rename(s, p.Name); err != nil {
		ctl.sendJSON(conn, map[string]any{"type": "error", "request": "rename", "error": "invalid_name"})
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(s.SID)).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(s, conn)
}

func (ctl *SignalWSController) handleWhoAmI(s *app.Session, conn *WsSignalConn) {
	user, _ := s.Cache.OwnUser()
	resp := struct {
		Type     string            `json:"type"`
		User     domain.UserEntity `json:"user"`
		Room     domain.RoomID     `json:"room"`
		RoomName domain.RoomName   `json:"room_name,omitempty"`
	}{
		Type: "whoami",
		User: user,
		Room: s.RoomID,
	}
	if room, ok := ctl.Orch.Directory.FindRoom(s.RoomID).Get(); ok {
		resp.RoomName = room.Name
	}
	ctl.sendJSON(conn, resp)
}

// handleOperate runs mute, unmute and kick, rate limited per acting user.
func (ctl *SignalWSController) handleOperate(ctx context.Context, s *app.Session, conn *WsSignalConn, request string, data []byte) {
	var p struct {
		User domain.UserID `json:"user"`
	}
	if !ctl.decode(conn, request, data, &p) {
		return
	}
	op, err := domain.ParseOperation(request)
	if err != nil || p.User == "" {
		ctl.sendJSON(conn, map[string]any{"type": "error", "request": request, "error": "bad_payload"})
		return
	}
	if !ctl.limiter.Allow(s.User.UserID) {
		ctl.sendJSON(conn, map[string]any{"type": "error", "request": request, "error": "rate_limited"})
		return
	}
	user, err := ctl.Orch.Operate(ctx, s, p.User, op)
	if err != nil {
		ctl.sendJSON(conn, errorMessage(request, err))
		return
	}
	ctl.sendJSON(conn, struct {
		Type    string            `json:"type"`
		Request string            `json:"request"`
		User    domain.UserEntity `json:"user"`
	}{"operated", request, user})
}
