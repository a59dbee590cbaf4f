package service

import (
	"context"
	"strings"

	"github.com/forgo/fete/api/internal/events"
	"github.com/forgo/fete/api/internal/model"
)

// BookingRepository defines the interface for booking storage
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	TransitionFromPending(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.BookingView, error)
	ListByVendor(ctx context.Context, vendorID string) ([]*model.BookingView, error)
}

// EventLookup loads events by id
type EventLookup interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// OfferingLookup loads offerings by id
type OfferingLookup interface {
	GetByID(ctx context.Context, id string) (*model.Offering, error)
}

// BookingService runs the booking state machine: pending -> confirmed | declined
type BookingService struct {
	repo      BookingRepository
	events    EventLookup
	offerings OfferingLookup
	publisher events.Publisher
	guard     *Guard
}

// BookingServiceConfig holds the dependencies of the booking service.
// Publisher is optional.
type BookingServiceConfig struct {
	Repo      BookingRepository
	Events    EventLookup
	Offerings OfferingLookup
	Publisher events.Publisher
	Guard     *Guard
}

// NewBookingService creates a new booking service
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	return &BookingService{
		repo:      cfg.Repo,
		events:    cfg.Events,
		offerings: cfg.Offerings,
		publisher: cfg.Publisher,
		guard:     cfg.Guard,
	}
}

// CreateBookingInput carries a booking request. A nil Quantity books one unit.
type CreateBookingInput struct {
	EventID    string
	OfferingID string
	Quantity   *int
}

// CreateBooking books an offering for one of the caller's events
func (s *BookingService) CreateBooking(ctx context.Context, caller *model.Identity, in CreateBookingInput) (*model.Booking, error) {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return nil, err
	}

	eventID := strings.TrimSpace(in.EventID)
	offeringID := strings.TrimSpace(in.OfferingID)
	if eventID == "" || offeringID == "" {
		return nil, ErrBookingFieldsMissing
	}

	quantity := model.DefaultBookingQuantity
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	if quantity < 1 || quantity > model.MaxBookingQuantity {
		return nil, ErrInvalidQuantity
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil || !s.guard.IsOwner(caller, event.OrganizerID) {
		return nil, ErrEventNotFound
	}

	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if offering == nil {
		return nil, ErrOfferingNotFound
	}

	booking := &model.Booking{
		EventID:    event.ID,
		OfferingID: offering.ID,
		Quantity:   quantity,
		Status:     model.BookingPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, events.New(events.TypeBookingCreated, booking.ID, map[string]interface{}{
		"booking_id":   booking.ID,
		"event_id":     booking.EventID,
		"offering_id":  booking.OfferingID,
		"vendor_id":    offering.VendorID,
		"organizer_id": caller.ID,
		"quantity":     booking.Quantity,
	}))
	return booking, nil
}

// UpdateBookingStatus lets the offering's vendor confirm or decline a
// pending booking. Re-applying the current terminal status is a no-op;
// switching to the other terminal status is a conflict.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, caller *model.Identity, bookingID string, status model.BookingStatus) (*model.Booking, error) {
	if err := s.guard.RequireRole(caller, model.RoleVendor); err != nil {
		return nil, err
	}
	if !status.IsValidTransition() {
		return nil, ErrInvalidBookingStatus
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	offering, err := s.offerings.GetByID(ctx, booking.OfferingID)
	if err != nil {
		return nil, err
	}
	if offering == nil {
		return nil, ErrNotOwner
	}
	if err := s.guard.Authorize(caller, Resource{
		Kind:         "booking",
		OwnerID:      offering.VendorID,
		RequiredRole: model.RoleVendor,
		Access:       AccessWrite,
	}); err != nil {
		return nil, err
	}

	if booking.Status.IsTerminal() {
		return settledBooking(booking, status)
	}

	updated, err := s.repo.TransitionFromPending(ctx, booking.ID, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Another transition won the race; judge against what it wrote
		current, err := s.repo.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrBookingNotFound
		}
		return settledBooking(current, status)
	}

	publish(ctx, s.publisher, events.New(events.TypeBookingStatusChanged, updated.ID, map[string]interface{}{
		"booking_id": updated.ID,
		"event_id":   updated.EventID,
		"vendor_id":  offering.VendorID,
		"from":       string(model.BookingPending),
		"to":         string(updated.Status),
	}))
	return updated, nil
}

// ListBookingsForEvent returns the bookings of one of the caller's events.
// Admins may read any event's bookings.
func (s *BookingService) ListBookingsForEvent(ctx context.Context, caller *model.Identity, eventID string) ([]*model.BookingView, error) {
	if err := s.guard.Authorize(caller, Resource{
		Kind:         "event",
		RequiredRole: model.RoleOrganizer,
		Access:       AccessRead,
	}); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	if err := s.guard.Authorize(caller, Resource{
		Kind:    "event",
		OwnerID: event.OrganizerID,
		Access:  AccessRead,
	}); err != nil {
		return nil, ErrEventNotFound
	}

	return s.repo.ListByEvent(ctx, event.ID)
}

// ListBookingsForVendor returns bookings against the vendor's offerings.
// Admins may read any vendor's bookings.
func (s *BookingService) ListBookingsForVendor(ctx context.Context, caller *model.Identity, vendorID string) ([]*model.BookingView, error) {
	if err := s.guard.Authorize(caller, Resource{
		Kind:         "booking",
		OwnerID:      vendorID,
		RequiredRole: model.RoleVendor,
		Access:       AccessRead,
	}); err != nil {
		return nil, err
	}
	return s.repo.ListByVendor(ctx, vendorID)
}

// settledBooking resolves a request against a booking that is already final
func settledBooking(booking *model.Booking, requested model.BookingStatus) (*model.Booking, error) {
	if booking.Status == requested {
		return booking, nil
	}
	return nil, ErrBookingFinalized
}
