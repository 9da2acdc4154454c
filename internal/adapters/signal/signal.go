package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/app/orch"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is one outgoing JSON message.
type Frame []byte

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	RateLimit  int
	RateWindow time.Duration
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	opts    Options
	limiter *RoomRateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = 10 * time.Second
	}
	return &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRoomRateLimiter(opts.RateLimit, opts.RateWindow),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds a session watching ?room=.
// The user comes from ?id= and ?name=; without an id a guest id is generated.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := app.SessionID(c.GetString("client_token"))
	roomID := domain.RoomID(c.Query("room"))
	if ctl.Orch.Directory.FindRoom(roomID).IsAbsent() {
		c.JSON(http.StatusNotFound, gin.H{"error": "room is not exists"})
		return
	}
	user, err := ctl.resolveUser(c.Query("id"), c.Query("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(roomID)).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan Frame, 32),
	}
	ctx, cancel := context.WithCancel(ctx)
	teardown := func() {
		cancel()
		conn.Close()
	}

	sess, err := ctl.Orch.OpenSession(sid, roomID, user, teardown)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("open session")
		_ = ws.WriteJSON(errorMessage("open", err))
		teardown()
		return
	}

	go ctl.writePump(ctx, conn)
	go ctl.pushPump(sess, conn)
	go ctl.readPump(ctx, sess, conn)
}

func (ctl *SignalWSController) resolveUser(id, name string) (domain.UserEntity, error) {
	if id == "" {
		return domain.NewGuest(name)
	}
	user, ok := ctl.Orch.Directory.User(domain.UserID(id)).Get()
	if !ok {
		user = domain.UserEntity{UserID: domain.UserID(id)}
	}
	if name != "" {
		user.Nickname = name
	}
	return user, user.Validate()
}
