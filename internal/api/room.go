package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/middleware"
	"github.com/lalith-99/chatrelay/internal/models"
	"github.com/lalith-99/chatrelay/internal/repository"
	"go.uber.org/zap"
)

// RoomHandler holds the dependencies for room CRUD. The realtime router
// never goes through here; this is plain request/response plumbing.
type RoomHandler struct {
	rooms   repository.RoomRepository
	members repository.MembershipRepository
	logger  *zap.Logger
}

func NewRoomHandler(rooms repository.RoomRepository, members repository.MembershipRepository, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, members: members, logger: logger}
}

type createRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	RoomType    string `json:"room_type"`
}

// Create handles POST /v1/rooms. The creator is enrolled as an admin
// member so the room is immediately joinable for them.
func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RoomType == "" {
		req.RoomType = models.RoomTypeGroup
	}
	if req.RoomType != models.RoomTypeGroup && req.RoomType != models.RoomTypePrivate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_type must be group or private"})
		return
	}

	userID := middleware.GetUserID(c)

	room, err := h.rooms.Create(c.Request.Context(), req.Name, req.Description, req.RoomType, userID)
	if err != nil {
		h.logger.Error("failed to create room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	if err := h.members.AddMember(c.Request.Context(), room.ID, userID, "admin"); err != nil {
		h.logger.Error("failed to enroll room creator", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// List handles GET /v1/rooms, the authenticated user's rooms.
func (h *RoomHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	rooms, err := h.rooms.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list rooms", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// GetByID handles GET /v1/rooms/:id
func (h *RoomHandler) GetByID(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := h.rooms.GetByID(c.Request.Context(), roomID)
	if err != nil {
		h.logger.Error("failed to get room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	c.JSON(http.StatusOK, room)
}
