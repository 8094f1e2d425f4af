package handler

import (
	"net/http"

	"kobo/internal/domain"
	"kobo/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler is a thin REST adapter over the dispatcher for the ops
// console. Collaborator subsystems call the dispatcher in-process instead.
type AdminHandler struct {
	dispatcher *service.Dispatcher
}

func NewAdminHandler(dispatcher *service.Dispatcher) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher}
}

type systemNotificationRequest struct {
	Title    string `json:"title" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Priority string `json:"priority"`
}

// SendSystem pushes a transient notice to every connected user. Users who
// are offline at call time get nothing, by design.
func (h *AdminHandler) SendSystem(c *gin.Context) {
	var req systemNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created := h.dispatcher.SendSystemNotification(req.Title, req.Message, req.Priority)
	c.JSON(http.StatusOK, gin.H{"created": len(created)})
}

type broadcastRequest struct {
	UserIDs  []uint                 `json:"userIds" binding:"required,min=1"`
	Type     string                 `json:"type"`
	Title    string                 `json:"title" binding:"required"`
	Message  string                 `json:"message" binding:"required"`
	Priority string                 `json:"priority"`
	Data     map[string]interface{} `json:"data"`
}

// Broadcast creates one durable record per target user and attempts delivery
// to each.
func (h *AdminHandler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	typ := req.Type
	if typ == "" {
		typ = domain.TypeGeneric
	}
	created := h.dispatcher.BroadcastToUsers(req.UserIDs, service.Template{
		Type:     typ,
		Title:    req.Title,
		Message:  req.Message,
		Priority: req.Priority,
		Data:     req.Data,
	})
	c.JSON(http.StatusOK, gin.H{"notifications": created})
}
