package signal

import (
	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/domain"
)

type composerError struct {
	Kind             string `json:"kind"`
	Message          string `json:"message"`
	MessageLength    int    `json:"messageLength,omitempty"`
	MaxMessageLength int    `json:"maxMessageLength,omitempty"`
}

type composerMessage struct {
	Type         string          `json:"type"`
	InputValue   string          `json:"inputValue"`
	Errors       []composerError `json:"validationErrors"`
	Capabilities []string        `json:"ownCapabilities"`
}

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleInput(s *app.Session, conn *WsSignalConn, data []byte) {
	var p struct {
		Value string `json:"value"`
	}
	if !ctl.decode(conn, "input", data, &p) {
		return
	}
	s.Composer.SetMessageInput(p.Value)
}

func toComposerMessage(st domain.ComposerState) composerMessage {
	msg := composerMessage{
		Type:         "composer",
		InputValue:   st.InputValue,
		Errors:       make([]composerError, 0, len(st.ValidationErrors)),
		Capabilities: st.OwnCapabilities,
	}
	for _, ve := range st.ValidationErrors {
		ce := composerError{Kind: ve.Kind(), Message: ve.Error()}
		if le, ok := ve.(domain.MessageLengthExceeded); ok {
			ce.MessageLength = le.MessageLength
			ce.MaxMessageLength = le.MaxMessageLength
		}
		msg.Errors = append(msg.Errors, ce)
	}
	return msg
}
