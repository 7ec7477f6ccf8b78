package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portal-service/internal/apperr"
	"portal-service/internal/models"
	"portal-service/internal/policy"
	"portal-service/internal/repositories"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

type ActivityLogger interface {
	LogActivity(ctx context.Context, actorID *int, action, targetType string, targetID int)
}

// RoomHandler serves room management and message history.
type RoomHandler struct {
	rooms       repositories.RoomRepository
	messages    repositories.MessageRepository
	activity    ActivityLogger
	departments []string
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms repositories.RoomRepository, messages repositories.MessageRepository, activity ActivityLogger, departments []string) *RoomHandler {
	return &RoomHandler{
		rooms:       rooms,
		messages:    messages,
		activity:    activity,
		departments: departments,
	}
}

// Me returns the resolved identity.
func (h *RoomHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListDepartments returns the configured departments.
func (h *RoomHandler) ListDepartments(c *gin.Context) {
	departments := h.departments
	if departments == nil {
		departments = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}

// ListRooms returns the rooms the user can see.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	rooms, err := h.rooms.ListRoomsVisibleTo(c.Request.Context(), user)
	if err != nil {
		respondError(c, apperr.Persistence(err))
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom adds a Custom or Department room.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if d := policy.CanManageRooms(user); !d.Allowed {
		respondError(c, apperr.Forbidden(d.Reason))
		return
	}

	var req struct {
		Name       string          `json:"name"`
		Type       models.RoomKind `json:"type"`
		Department *string         `json:"department_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(c, apperr.Validation("Room name required"))
		return
	}
	kind := req.Type
	if kind == "" {
		kind = models.RoomCustom
	}
	if kind != models.RoomCustom && kind != models.RoomDepartment {
		respondError(c, apperr.Validation("Invalid room type"))
		return
	}
	if kind == models.RoomDepartment && (req.Department == nil || *req.Department == "") {
		respondError(c, apperr.Validation("Department required"))
		return
	}

	creator := user.ID
	room, err := h.rooms.CreateRoom(c.Request.Context(), models.Room{
		Name:        name,
		Kind:        kind,
		Department:  req.Department,
		CreatedByID: &creator,
	})
	if errors.Is(err, repositories.ErrRoomExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "Room already exists"})
		return
	}
	if err != nil {
		respondError(c, apperr.Persistence(err))
		return
	}

	h.logActivity(c, user, "room_created", room.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "Room created", "room": room})
}

// DeleteRoom removes a custom room.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if d := policy.CanManageRooms(user); !d.Allowed {
		respondError(c, apperr.Forbidden(d.Reason))
		return
	}
	roomID, ok := intParam(c, "room_id", "invalid room id")
	if !ok {
		return
	}

	switch err := h.rooms.DeleteRoom(c.Request.Context(), roomID); {
	case errors.Is(err, repositories.ErrRoomNotFound):
		respondError(c, apperr.NotFound("Room not found"))
		return
	case errors.Is(err, repositories.ErrSystemRoom):
		respondError(c, apperr.Validation("Cannot delete system rooms"))
		return
	case err != nil:
		respondError(c, apperr.Persistence(err))
		return
	}

	h.logActivity(c, user, "room_deleted", roomID)
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

// GetMessages returns a page of room history, oldest first.
func (h *RoomHandler) GetMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := intParam(c, "room_id", "invalid room id")
	if !ok {
		return
	}

	limit := queryInt(c, "limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	room, err := h.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) {
		respondError(c, apperr.NotFound("Room not found"))
		return
	}
	if err != nil {
		respondError(c, apperr.Persistence(err))
		return
	}
	if d := policy.CanViewRoom(user, room); !d.Allowed {
		respondError(c, apperr.Forbidden(d.Reason))
		return
	}

	msgs, err := h.messages.ListRecentMessages(ctx, roomID, limit, offset)
	if err != nil {
		respondError(c, apperr.Persistence(err))
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *RoomHandler) logActivity(c *gin.Context, user models.User, action string, roomID int) {
	if h.activity == nil {
		return
	}
	actor := user.ID
	h.activity.LogActivity(c.Request.Context(), &actor, action, "room", roomID)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
