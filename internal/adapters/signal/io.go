package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Roster/internal/app"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.opts.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump handles requests one at a time; leaving it ends the session.
func (ctl *SignalWSController) readPump(ctx context.Context, s *app.Session, c *WsSignalConn) {
	sid := s.SID
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.CloseSession(s)
		if len(ctl.Orch.Registry.SessionsOfUser(s.RoomID, s.User.UserID)) == 0 {
			ctl.limiter.Forget(s.User.UserID)
		}
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(ctx, s, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, s *app.Session, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_json"})
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(c)
	case "whoami":
		ctl.handleWhoAmI(s, c)
	case "rename":
		ctl.handleRename(s, c, data)
	case "fetch":
		ctl.handleFetch(ctx, s, c)
	case "more":
		ctl.handleMore(ctx, s, c, data)
	case "muted":
		ctl.handleMuted(ctx, s, c, data)
	case "users_info":
		ctl.handleUsersInfo(ctx, s, c, data)
	case "visible":
		ctl.handleVisible(ctx, s, c, data)
	case "search":
		ctl.handleSearch(s, c, data)
	case "mute", "unmute", "kick":
		ctl.handleOperate(ctx, s, c, env.Type, data)
	case "input":
		ctl.handleInput(s, c, data)
	case "flush":
		s.Composer.UpdateInputValue()
	case "clear":
		s.Composer.ClearData()
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendJSON(c, map[string]any{"type": "error", "request": env.Type, "error": "unknown_type"})
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// decode reads the payload of a request, replying with bad_payload on failure.
func (ctl *SignalWSController) decode(c *WsSignalConn, request string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", request).Msg("bad payload")
		ctl.sendJSON(c, map[string]any{"type": "error", "request": request, "error": "bad_payload"})
		return false
	}
	return true
}
