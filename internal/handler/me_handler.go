package handler

import (
	"net/http"

	"kobo/internal/middleware"
	"kobo/internal/models"

	"github.com/gin-gonic/gin"
)

type MeUserStore interface {
	GetByID(id uint) (*models.User, error)
	UpdateFCMToken(userID uint, token string) error
}

type MeHandler struct {
	users MeUserStore
}

func NewMeHandler(users MeUserStore) *MeHandler {
	return &MeHandler{users: users}
}

func (h *MeHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	u, err := h.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

type fcmTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterFCMToken stores the device token used for the offline mobile push
// fallback.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req fcmTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	if err := h.users.UpdateFCMToken(userID, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
