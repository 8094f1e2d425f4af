package handler

import (
	"net/http"

	"kobo/internal/middleware"
	"kobo/internal/models"

	"github.com/gin-gonic/gin"
)

type PreferenceStore interface {
	GetOrCreate(userID uint) (*models.NotificationPreference, error)
	Update(userID uint, updates map[string]interface{}) error
}

type PreferenceHandler struct {
	store PreferenceStore
}

func NewPreferenceHandler(store PreferenceStore) *PreferenceHandler {
	return &PreferenceHandler{store: store}
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	p, err := h.store.GetOrCreate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preferences unavailable"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type updatePreferencesRequest struct {
	Transaction *bool `json:"transaction"`
	Security    *bool `json:"security"`
	Marketing   *bool `json:"marketing"`
	Push        *bool `json:"push"`
}

// Update patches only the flags present in the body.
func (h *PreferenceHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if _, err := h.store.GetOrCreate(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preferences unavailable"})
		return
	}
	updates := map[string]interface{}{}
	if req.Transaction != nil {
		updates["transaction"] = *req.Transaction
	}
	if req.Security != nil {
		updates["security"] = *req.Security
	}
	if req.Marketing != nil {
		updates["marketing"] = *req.Marketing
	}
	if req.Push != nil {
		updates["push"] = *req.Push
	}
	if err := h.store.Update(userID, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	p, err := h.store.GetOrCreate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preferences unavailable"})
		return
	}
	c.JSON(http.StatusOK, p)
}
