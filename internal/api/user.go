package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/middleware"
	"github.com/lalith-99/chatrelay/internal/repository"
	"go.uber.org/zap"
)

// PresenceReader is the slice of the presence table the roster endpoint
// needs.
type PresenceReader interface {
	ListOnline(ctx context.Context) ([]uuid.UUID, error)
}

// UserHandler handles user profile and roster reads.
type UserHandler struct {
	repo     repository.UserRepository
	presence PresenceReader
	logger   *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, presence PresenceReader, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, presence: presence, logger: logger}
}

// GetMe handles GET /v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

type onlineUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// ListOnline handles GET /v1/users/online: the roster of currently
// online users, enriched with usernames from the store.
func (h *UserHandler) ListOnline(c *gin.Context) {
	ids, err := h.presence.ListOnline(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list online users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list online users"})
		return
	}

	users, err := h.repo.GetByIDs(c.Request.Context(), ids)
	if err != nil {
		h.logger.Error("failed to resolve online users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list online users"})
		return
	}

	online := make([]onlineUser, 0, len(users))
	for _, u := range users {
		online = append(online, onlineUser{ID: u.ID, Username: u.Username})
	}

	c.JSON(http.StatusOK, gin.H{"online": online})
}
