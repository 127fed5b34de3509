package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/middleware"
	"github.com/lalith-99/chatrelay/internal/repository"
	"go.uber.org/zap"
)

// MembershipHandler handles room membership operations. Durable
// membership is what the realtime router checks before a live join or a
// room send, so changes here take effect on the next realtime event.
type MembershipHandler struct {
	rooms  repository.RoomRepository
	repo   repository.MembershipRepository
	logger *zap.Logger
}

func NewMembershipHandler(rooms repository.RoomRepository, repo repository.MembershipRepository, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{rooms: rooms, repo: repo, logger: logger}
}

// Join handles POST /v1/rooms/:id/join. Self-join only, always as
// role "member". Idempotent.
func (h *MembershipHandler) Join(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, err := h.rooms.GetByID(c.Request.Context(), roomID)
	if err != nil {
		h.logger.Error("failed to get room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	userID := middleware.GetUserID(c)

	if err := h.repo.AddMember(c.Request.Context(), roomID, userID, "member"); err != nil {
		h.logger.Error("failed to join room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Leave handles POST /v1/rooms/:id/leave
func (h *MembershipHandler) Leave(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	userID := middleware.GetUserID(c)

	if err := h.repo.RemoveMember(c.Request.Context(), roomID, userID); err != nil {
		h.logger.Error("failed to leave room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave room"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMembers handles GET /v1/rooms/:id/members
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	members, err := h.repo.ListMembers(c.Request.Context(), roomID)
	if err != nil {
		h.logger.Error("failed to list members", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list members"})
		return
	}

	c.JSON(http.StatusOK, members)
}
