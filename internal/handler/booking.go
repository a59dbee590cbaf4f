package handler

import (
	"net/http"
	"strings"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// BookingHandler handles bookings of offerings for events
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// CreateBookingRequest is the body of POST /api/bookings
type CreateBookingRequest struct {
	EventID    string `json:"event_id"`
	OfferingID string `json:"offering_id"`
	Quantity   *int   `json:"quantity,omitempty"`
}

// BookingStatusRequest is the body of PUT /api/bookings/{bookingId}/status
type BookingStatusRequest struct {
	Status string `json:"status"`
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	booking, err := h.bookingService.CreateBooking(r.Context(), middleware.GetIdentity(r.Context()), service.CreateBookingInput{
		EventID:    req.EventID,
		OfferingID: req.OfferingID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, booking)
}

// ListEventBookings handles GET /api/bookings?event={eventId}
func (h *BookingHandler) ListEventBookings(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(r.URL.Query().Get("event"))
	if eventID == "" {
		WriteError(w, model.NewBadRequestError("event query parameter is required"))
		return
	}

	bookings, err := h.bookingService.ListBookingsForEvent(r.Context(), middleware.GetIdentity(r.Context()), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBookingViews(w, bookings)
}

// ListVendorBookings handles GET /api/vendors/{vendorId}/bookings
func (h *BookingHandler) ListVendorBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListBookingsForVendor(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("vendorId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBookingViews(w, bookings)
}

// UpdateStatus handles PUT /api/bookings/{bookingId}/status
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req BookingStatusRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	booking, err := h.bookingService.UpdateBookingStatus(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("bookingId"), model.BookingStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, booking)
}

func writeBookingViews(w http.ResponseWriter, bookings []*model.BookingView) {
	if bookings == nil {
		bookings = []*model.BookingView{}
	}
	WriteJSON(w, http.StatusOK, bookings)
}
