package handler

import (
	"net/http"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// EventHandler handles event and guest endpoints
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// CreateEventRequest is the body of POST /api/events
type CreateEventRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Venue string `json:"venue"`
}

// UpdateEventRequest is the body of PUT /api/events/{eventId}
type UpdateEventRequest struct {
	Title *string `json:"title,omitempty"`
	Date  *string `json:"date,omitempty"`
	Venue *string `json:"venue,omitempty"`
}

// AddGuestRequest is the body of POST /api/events/{eventId}/guests
type AddGuestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GuestStatusRequest is the body of PUT /api/events/{eventId}/guests/{guestId}
type GuestStatusRequest struct {
	Status string `json:"status"`
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), middleware.GetIdentity(r.Context()), service.CreateEventInput{
		Title: req.Title,
		Date:  req.Date,
		Venue: req.Venue,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListEvents(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []*model.Event{}
	}

	WriteJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{eventId}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEvent(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("eventId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /api/events/{eventId}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	event, err := h.eventService.UpdateEvent(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("eventId"), service.UpdateEventInput{
		Title: req.Title,
		Date:  req.Date,
		Venue: req.Venue,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{eventId}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.eventService.DeleteEvent(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("eventId")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// AddGuest handles POST /api/events/{eventId}/guests
func (h *EventHandler) AddGuest(w http.ResponseWriter, r *http.Request) {
	var req AddGuestRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	event, err := h.eventService.AddGuest(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("eventId"), service.AddGuestInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, event)
}

// UpdateGuestStatus handles PUT /api/events/{eventId}/guests/{guestId}
func (h *EventHandler) UpdateGuestStatus(w http.ResponseWriter, r *http.Request) {
	var req GuestStatusRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	event, err := h.eventService.UpdateGuestStatus(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("eventId"), r.PathValue("guestId"), model.GuestStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, event)
}
