package handler

import (
	"net/http"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// NotificationHandler registers push-notification tokens
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// TokenRequest carries an FCM registration token
type TokenRequest struct {
	Token string `json:"token"`
}

// SaveToken handles POST /api/notifications/token
func (h *NotificationHandler) SaveToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	if err := h.notificationService.AddToken(r.Context(), middleware.GetIdentity(r.Context()), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteMessage(w, http.StatusOK, "FCM token saved")
}

// RemoveToken handles DELETE /api/notifications/token
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	if err := h.notificationService.RemoveToken(r.Context(), middleware.GetIdentity(r.Context()), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteMessage(w, http.StatusOK, "FCM token removed")
}
