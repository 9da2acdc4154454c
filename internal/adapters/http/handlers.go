package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/app/orch"
	"github.com/dkeye/Roster/internal/core"
	"github.com/dkeye/Roster/internal/domain"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	dir      *app.Directory
	pageSize int
}

type createRoomRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

type joinRequest struct {
	User domain.UserEntity `json:"user"`
}

type usersInfoRequest struct {
	IDs []domain.UserID `json:"ids"`
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.dir.ListRooms()})
}

func (h *handlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}
	room := h.dir.CreateRoom(domain.Room{
		ID:    domain.RoomID(req.ID),
		Name:  domain.RoomName(req.Name),
		Owner: domain.UserID(req.Owner),
	})
	c.JSON(http.StatusCreated, room)
}

func (h *handlers) evictRoom(c *gin.Context, o *orch.Orchestrator) {
	roomID := domain.RoomID(c.Param("room"))
	if h.dir.FindRoom(roomID).IsAbsent() {
		writeError(c, app.ErrRoomNotFound)
		return
	}
	o.EvictRoom(roomID)
	c.Status(http.StatusNoContent)
}

// GET /api/rooms/:room/members?cursor=&limit=
func (h *handlers) fetchMembers(c *gin.Context) {
	limit, ok := h.limit(c)
	if !ok {
		return
	}
	res, err := h.dir.FetchMembers(c.Request.Context(), domain.RoomID(c.Param("room")), c.Query("cursor"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/rooms/:room/muted?page=&limit=
func (h *handlers) fetchMuteList(c *gin.Context) {
	limit, ok := h.limit(c)
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	ids, err := h.dir.FetchMuteList(c.Request.Context(), domain.RoomID(c.Param("room")), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ids})
}

func (h *handlers) joinRoom(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user"})
		return
	}
	if err := h.dir.Join(domain.RoomID(c.Param("room")), req.User); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) leaveRoom(c *gin.Context) {
	if err := h.dir.Leave(domain.RoomID(c.Param("room")), domain.UserID(c.Param("user"))); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/rooms/:room/members/:user/{mute|unmute|kick}
func (h *handlers) operateUser(c *gin.Context) {
	op, err := domain.ParseOperation(c.Param("op"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err = h.dir.OperateUser(c.Request.Context(), domain.RoomID(c.Param("room")), domain.UserID(c.Param("user")), op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) fetchUsersInfo(c *gin.Context) {
	var req usersInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ids"})
		return
	}
	users, err := h.dir.FetchUserInfoList(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *handlers) limit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return h.pageSize, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return n, true
}

func writeError(c *gin.Context, err error) {
	if re, ok := core.AsRemoteError(err); ok {
		status := re.Code
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": re.Message, "code": re.Code})
		return
	}
	switch {
	case errors.Is(err, app.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrUserNotMember):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyUserID), errors.Is(err, domain.ErrUserIDTooLong), errors.Is(err, domain.ErrNicknameTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
