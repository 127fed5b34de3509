package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/chatrelay/internal/cache"
	"github.com/lalith-99/chatrelay/internal/middleware"
	"github.com/lalith-99/chatrelay/internal/models"
	"github.com/lalith-99/chatrelay/internal/repository"
	"go.uber.org/zap"
)

// MessageHandler serves history reads. Page 1 is read through the recent
// cache when warm; everything else comes from the store. Either way the
// page is reversed to chronological order before it goes out.
type MessageHandler struct {
	repo    repository.MessageRepository
	members repository.MembershipRepository
	recent  *cache.Recent
	logger  *zap.Logger
}

func NewMessageHandler(repo repository.MessageRepository, members repository.MembershipRepository, recent *cache.Recent, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{repo: repo, members: members, recent: recent, logger: logger}
}

type messagePage struct {
	Messages []models.Message `json:"messages"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

func pageParams(c *gin.Context) (page, perPage int) {
	page = 1
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	perPage = 50
	if pp := c.Query("per_page"); pp != "" {
		if n, err := strconv.Atoi(pp); err == nil && n > 0 {
			perPage = n
		}
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func reverseChronological(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// ListByRoom handles GET /v1/rooms/:id/messages?page&per_page
func (h *MessageHandler) ListByRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	userID := middleware.GetUserID(c)
	isMember, err := h.members.IsMember(c.Request.Context(), roomID, userID)
	if err != nil {
		h.logger.Error("failed to check membership", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	page, perPage := pageParams(c)
	msgs := h.readPage(c, cache.RoomKey(roomID), page, perPage, func() ([]models.Message, error) {
		return h.repo.ListByRoom(c.Request.Context(), roomID, page, perPage)
	})
	if msgs == nil {
		return
	}

	c.JSON(http.StatusOK, messagePage{Messages: msgs, Page: page, PerPage: perPage})
}

// ListDirect handles GET /v1/messages/direct/:user_id?page&per_page,
// the 1:1 history between the authenticated user and :user_id.
func (h *MessageHandler) ListDirect(c *gin.Context) {
	otherID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := middleware.GetUserID(c)
	page, perPage := pageParams(c)
	msgs := h.readPage(c, cache.DirectKey(userID, otherID), page, perPage, func() ([]models.Message, error) {
		return h.repo.ListDirect(c.Request.Context(), userID, otherID, page, perPage)
	})
	if msgs == nil {
		return
	}

	c.JSON(http.StatusOK, messagePage{Messages: msgs, Page: page, PerPage: perPage})
}

// readPage serves page 1 from the recent cache when it holds enough
// entries, otherwise falls back to the store. Returns nil after writing
// an error response.
func (h *MessageHandler) readPage(c *gin.Context, key string, page, perPage int, fromStore func() ([]models.Message, error)) []models.Message {
	if page == 1 {
		cached, err := h.recent.ReadRecent(c.Request.Context(), key, perPage)
		if err != nil {
			// Cache trouble is not a request failure; the store answers.
			h.logger.Warn("recent cache read failed", zap.String("key", key), zap.Error(err))
		} else if len(cached) > 0 {
			reverseChronological(cached)
			return cached
		}
	}

	msgs, err := fromStore()
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return nil
	}
	reverseChronological(msgs)
	return msgs
}
