package handler

import (
	"github.com/gin-gonic/gin"

	notificationapp "github.com/storefront/backend/internal/application/notification"
)

// NotificationHandler handles admin notification queue endpoints
type NotificationHandler struct {
	BaseHandler
	notificationService *notificationapp.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *notificationapp.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns queued notifications with filters
func (h *NotificationHandler) List(c *gin.Context) {
	var filter notificationapp.NotificationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.notificationService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Paginated(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Stats returns delivery counters grouped by channel and status
func (h *NotificationHandler) Stats(c *gin.Context) {
	stats, err := h.notificationService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// RetryFailed requeues permanently failed notifications
func (h *NotificationHandler) RetryFailed(c *gin.Context) {
	resp, err := h.notificationService.RetryFailed(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListTemplates returns the message templates
func (h *NotificationHandler) ListTemplates(c *gin.Context) {
	templates, err := h.notificationService.ListTemplates(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, templates)
}

// UpdateTemplate replaces a template's subject and body
func (h *NotificationHandler) UpdateTemplate(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid template ID")
		return
	}

	var req notificationapp.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.notificationService.UpdateTemplate(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
