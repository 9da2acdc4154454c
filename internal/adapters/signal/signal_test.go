package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/app/orch"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := app.NewDirectory()
	dir.CreateRoom(domain.Room{ID: "lobby", Name: "Lobby", Owner: "owner"})
	for _, id := range []domain.UserID{"u1", "u2", "u3"} {
		if err := dir.Join("lobby", domain.UserEntity{UserID: id, Nickname: "nick-" + string(id)}); err != nil {
			t.Fatal(err)
		}
	}
	o := &orch.Orchestrator{
		Registry:  app.NewRegistry(),
		Directory: dir,
		Policy:    app.OwnerPolicy{},
		Settings:  orch.Settings{PageSize: 10, Debounce: 10 * time.Millisecond, MaxMessageLength: 5},
	}
	stop := o.Start()

	ctx, cancel := context.WithCancel(context.Background())
	ctl := NewSignalWSController(o, Options{RateLimit: 1, RateWindow: time.Minute})
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("client_token", c.Query("sid"))
		ctl.HandleSignal(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		stop()
		srv.Close()
	})
	return srv, o
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil returns the first message accepted by match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(map[string]any) bool {
	return func(m map[string]any) bool { return m["type"] == typ }
}

func TestSignalFetchMembers(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	conn := dial(t, srv, "sid=s1&room=lobby&id=u1")

	if err := conn.WriteJSON(map[string]any{"type": "fetch"}); err != nil {
		t.Fatal(err)
	}
	page := readUntil(t, conn, ofType("page"))
	users, _ := page["users"].([]any)
	if len(users) != 3 || page["hasMore"] != false {
		t.Fatalf("page = %v", page)
	}

	if err := conn.WriteJSON(map[string]any{"type": "search", "keyword": "u2"}); err != nil {
		t.Fatal(err)
	}
	found := readUntil(t, conn, ofType("users"))
	if hits, _ := found["users"].([]any); len(hits) != 1 {
		t.Fatalf("search = %v", found)
	}
}

func TestSignalComposerValidation(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	conn := dial(t, srv, "sid=s1&room=lobby&id=u1")

	if err := conn.WriteJSON(map[string]any{"type": "input", "value": "too long"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, func(m map[string]any) bool {
		errs, _ := m["validationErrors"].([]any)
		return m["type"] == "composer" && len(errs) == 1
	})
	if msg["inputValue"] != "too long" {
		t.Fatalf("composer = %v", msg)
	}
}

func TestSignalOperateForbiddenAndRateLimited(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	conn := dial(t, srv, "sid=s1&room=lobby&id=u1")

	if err := conn.WriteJSON(map[string]any{"type": "kick", "user": "u2"}); err != nil {
		t.Fatal(err)
	}
	first := readUntil(t, conn, ofType("error"))
	if first["request"] != "kick" || !strings.Contains(first["error"].(string), "not allowed") {
		t.Fatalf("first = %v", first)
	}

	if err := conn.WriteJSON(map[string]any{"type": "kick", "user": "u2"}); err != nil {
		t.Fatal(err)
	}
	second := readUntil(t, conn, ofType("error"))
	if second["error"] != "rate_limited" {
		t.Fatalf("second = %v", second)
	}
}

func TestSignalUnknownRoom(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?sid=s1&room=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial to unknown room succeeded")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("response = %v", resp)
	}
}

func TestErrorMessageCarriesRemoteCode(t *testing.T) {
	t.Parallel()

	_, err := app.NewDirectory().FetchMembers(context.Background(), "nope", "", 10)
	msg := errorMessage("fetch", err)
	if msg["code"] != app.CodeRoomNotFound || msg["request"] != "fetch" {
		t.Fatalf("msg = %v", msg)
	}
}

func TestRoomRateLimiter(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	rl := NewRoomRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	if !rl.Allow("u") || !rl.Allow("u") {
		t.Fatal("first two attempts rejected")
	}
	if rl.Allow("u") {
		t.Fatal("third attempt allowed")
	}
	if !rl.Allow("other") {
		t.Fatal("limit leaked across users")
	}
	rl.Forget("u")
	if rl.Allow("u") {
		t.Fatal("Forget reset a limit still in force")
	}

	now = now.Add(1100 * time.Millisecond)
	if !rl.Allow("u") {
		t.Fatal("attempt after window rejected")
	}

	now = now.Add(2 * time.Second)
	rl.Forget("u")
	rl.Forget("other")
	rl.Forget("unknown")
	if got := rl.tracked(); got != 0 {
		t.Fatalf("tracked windows = %d, want 0", got)
	}
}
