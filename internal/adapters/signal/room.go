package signal

import (
	"context"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/app/member"
	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/rs/zerolog/log"
)

type membersMessage struct {
	Type    string              `json:"type"`
	Room    domain.RoomID       `json:"room"`
	Status  string              `json:"status"`
	View    string              `json:"view"`
	Items   []domain.UserEntity `json:"items"`
	HasMore bool                `json:"hasMore"`
	Error   string              `json:"error,omitempty"`
}

type pageMessage struct {
	Type    string              `json:"type"`
	Request string              `json:"request"`
	Users   []domain.UserEntity `json:"users"`
	HasMore bool                `json:"hasMore"`
}

// pushPump forwards member list and composer snapshots until the session closes.
func (ctl *SignalWSController) pushPump(s *app.Session, c *WsSignalConn) {
	members, stopMembers := s.Members.State().Subscribe()
	defer stopMembers()
	composer, stopComposer := s.Composer.State().Subscribe()
	defer stopComposer()

	for members != nil || composer != nil {
		select {
		case st, ok := <-members:
			if !ok {
				members = nil
				continue
			}
			ctl.sendJSON(c, toMembersMessage(s, st))
		case st, ok := <-composer:
			if !ok {
				composer = nil
				continue
			}
			ctl.sendJSON(c, toComposerMessage(st))
		}
	}
	log.Debug().Str("module", "signal").Str("sid", string(s.SID)).Msg("pushPump done")
}

func toMembersMessage(s *app.Session, st member.ListState) membersMessage {
	msg := membersMessage{
		Type:    "members",
		Room:    s.RoomID,
		Status:  st.Status.String(),
		View:    "members",
		Items:   st.Items,
		HasMore: s.Members.HasMore(),
	}
	if st.View == member.ViewMuted {
		msg.View = "muted"
		msg.HasMore = s.Members.MuteHasMore()
	}
	if st.Err != nil {
		msg.Error = st.Err.Error()
	}
	return msg
}

func (ctl *SignalWSController) handleFetch(ctx context.Context, s *app.Session, c *WsSignalConn) {
	users, err := s.Members.FetchRoomMembers(ctx)
	if err != nil {
		ctl.sendJSON(c, errorMessage("fetch", err))
		return
	}
	ctl.sendJSON(c, pageMessage{Type: "page", Request: "fetch", Users: users, HasMore: s.Members.HasMore()})
}

func (ctl *SignalWSController) handleMore(ctx context.Context, s *app.Session, c *WsSignalConn, data []byte) {
	var p struct {
		FetchUserInfo bool `json:"fetchUserInfo"`
	}
	if !ctl.decode(c, "more", data, &p) {
		return
	}
	users, err := s.Members.FetchMoreRoomMembers(ctx, p.FetchUserInfo, true)
	if err != nil {
		ctl.sendJSON(c, errorMessage("more", err))
		return
	}
	ctl.sendJSON(c, pageMessage{Type: "page", Request: "more", Users: users, HasMore: s.Members.HasMore()})
}

func (ctl *SignalWSController) handleMuted(ctx context.Context, s *app.Session, c *WsSignalConn, data []byte) {
	var p struct {
		Refresh bool `json:"refresh"`
	}
	if !ctl.decode(c, "muted", data, &p) {
		return
	}
	users, err := s.Members.FetchMuteList(ctx, p.Refresh)
	if err != nil {
		ctl.sendJSON(c, errorMessage("muted", err))
		return
	}
	ctl.sendJSON(c, pageMessage{Type: "page", Request: "muted", Users: users, HasMore: s.Members.MuteHasMore()})
}

func (ctl *SignalWSController) handleUsersInfo(ctx context.Context, s *app.Session, c *WsSignalConn, data []byte) {
	var p struct {
		IDs []domain.UserID `json:"ids"`
	}
	if !ctl.decode(c, "users_info", data, &p) {
		return
	}
	users, err := s.Members.FetchUsersInfo(ctx, p.IDs)
	if err != nil {
		ctl.sendJSON(c, errorMessage("users_info", err))
		return
	}
	ctl.sendJSON(c, pageMessage{Type: "users", Request: "users_info", Users: users})
}

func (ctl *SignalWSController) handleVisible(ctx context.Context, s *app.Session, c *WsSignalConn, data []byte) {
	var p struct {
		First int `json:"first"`
		Last  int `json:"last"`
	}
	if !ctl.decode(c, "visible", data, &p) {
		return
	}
	if err := s.Members.FetchVisibleUsersInfo(ctx, p.First, p.Last); err != nil {
		ctl.sendJSON(c, errorMessage("visible", err))
	}
}

func (ctl *SignalWSController) handleSearch(s *app.Session, c *WsSignalConn, data []byte) {
	var p struct {
		Keyword string `json:"keyword"`
		Mute    bool   `json:"mute"`
	}
	if !ctl.decode(c, "search", data, &p) {
		return
	}
	users := s.Members.SearchUsers(p.Keyword, p.Mute)
	ctl.sendJSON(c, pageMessage{Type: "users", Request: "search", Users: users})
}

func errorMessage(request string, err error) map[string]any {
	msg := map[string]any{
		"type":    "error",
		"request": request,
		"error":   err.Error(),
	}
	if re, ok := core.AsRemoteError(err); ok {
		msg["code"] = re.Code
		msg["error"] = re.Message
	}
	return msg
}
