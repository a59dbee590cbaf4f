package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
	"github.com/google/uuid"
)

// maxWriteAttempts bounds the optimistic-concurrency retry loops
const maxWriteAttempts = 3

// EventRepository defines the interface for event storage. Every method
// taking an organizer id only matches events owned by that organizer.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetOwned(ctx context.Context, id, organizerID string) (*model.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Event, error)
	Update(ctx context.Context, id, organizerID string, update model.EventUpdate) (*model.Event, error)
	Delete(ctx context.Context, id, organizerID string) (bool, error)
	ReplaceGuests(ctx context.Context, id, organizerID string, guests []model.Guest, expectedVersion int) (*model.Event, error)
}

// EventService handles events and their guest lists
type EventService struct {
	repo  EventRepository
	guard *Guard
}

// NewEventService creates a new event service
func NewEventService(repo EventRepository, guard *Guard) *EventService {
	return &EventService{
		repo:  repo,
		guard: guard,
	}
}

// CreateEventInput carries a new event. Date is RFC3339 or YYYY-MM-DD.
type CreateEventInput struct {
	Title string
	Date  string
	Venue string
}

// UpdateEventInput carries a partial event update. Nil fields are unchanged.
type UpdateEventInput struct {
	Title *string
	Date  *string
	Venue *string
}

// AddGuestInput carries a new guest
type AddGuestInput struct {
	Name  string
	Email string
}

// CreateEvent creates an event owned by the caller
func (s *EventService) CreateEvent(ctx context.Context, caller *model.Identity, in CreateEventInput) (*model.Event, error) {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return nil, err
	}

	title, err := validateEventTitle(in.Title)
	if err != nil {
		return nil, err
	}
	venue, err := validateVenue(in.Venue)
	if err != nil {
		return nil, err
	}
	date, err := ParseEventDate(in.Date)
	if err != nil {
		return nil, err
	}

	event := &model.Event{
		OrganizerID: caller.ID,
		Title:       title,
		Date:        date,
		Venue:       venue,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns the caller's events by date
func (s *EventService) ListEvents(ctx context.Context, caller *model.Identity) ([]*model.Event, error) {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return nil, err
	}
	return s.repo.ListByOrganizer(ctx, caller.ID)
}

// GetEvent returns one of the caller's events
func (s *EventService) GetEvent(ctx context.Context, caller *model.Identity, eventID string) (*model.Event, error) {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return nil, err
	}
	return s.getOwned(ctx, caller, eventID)
}

// UpdateEvent applies a partial update to one of the caller's events
func (s *EventService) UpdateEvent(ctx context.Context, caller *model.Identity, eventID string, in UpdateEventInput) (*model.Event, error) {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return nil, err
	}

	var update model.EventUpdate
	if in.Title != nil {
		title, err := validateEventTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if in.Venue != nil {
		venue, err := validateVenue(*in.Venue)
		if err != nil {
			return nil, err
		}
		update.Venue = &venue
	}
	if in.Date != nil {
		date, err := ParseEventDate(*in.Date)
		if err != nil {
			return nil, err
		}
		update.Date = &date
	}

	if update.IsEmpty() {
		return s.getOwned(ctx, caller, eventID)
	}

	event, err := s.repo.Update(ctx, eventID, caller.ID, update)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// DeleteEvent removes one of the caller's events together with its bookings
func (s *EventService) DeleteEvent(ctx context.Context, caller *model.Identity, eventID string) error {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, eventID, caller.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrEventNotFound
	}
	return nil
}

// AddGuest appends a pending guest to one of the caller's events
func (s *EventService) AddGuest(ctx context.Context, caller *model.Identity, eventID string, in AddGuestInput) (*model.Event, error) {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, ErrGuestFieldsMissing
	}
	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return nil, ErrNameTooLong
	}
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	guest := model.Guest{
		ID:     uuid.New().String(),
		Name:   name,
		Email:  email,
		Status: model.GuestPending,
	}

	return s.mutateGuests(ctx, caller, eventID, func(event *model.Event) ([]model.Guest, error) {
		if len(event.Guests) >= model.MaxGuestsPerEvent {
			return nil, ErrGuestListFull
		}
		guests := make([]model.Guest, len(event.Guests), len(event.Guests)+1)
		copy(guests, event.Guests)
		return append(guests, guest), nil
	})
}

// UpdateGuestStatus records a guest's RSVP on one of the caller's events
func (s *EventService) UpdateGuestStatus(ctx context.Context, caller *model.Identity, eventID, guestID string, status model.GuestStatus) (*model.Event, error) {
	if err := s.guard.RequireRole(caller, model.RoleOrganizer); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, ErrInvalidGuestStatus
	}

	return s.mutateGuests(ctx, caller, eventID, func(event *model.Event) ([]model.Guest, error) {
		idx := event.FindGuest(guestID)
		if idx < 0 {
			return nil, ErrGuestNotFound
		}
		if event.Guests[idx].Status == status {
			return nil, nil
		}
		guests := make([]model.Guest, len(event.Guests))
		copy(guests, event.Guests)
		guests[idx].Status = status
		return guests, nil
	})
}

// mutateGuests runs a read-modify-write of the guest list guarded by the
// event version. fn returns the new list, or nil to leave the event as is.
// A lost race is retried with a fresh read up to maxWriteAttempts times.
func (s *EventService) mutateGuests(ctx context.Context, caller *model.Identity, eventID string, fn func(*model.Event) ([]model.Guest, error)) (*model.Event, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		event, err := s.getOwned(ctx, caller, eventID)
		if err != nil {
			return nil, err
		}

		guests, err := fn(event)
		if err != nil {
			return nil, err
		}
		if guests == nil {
			return event, nil
		}

		updated, err := s.repo.ReplaceGuests(ctx, event.ID, caller.ID, guests, event.Version)
		if errors.Is(err, database.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrEventModifiedTooOften
}

func (s *EventService) getOwned(ctx context.Context, caller *model.Identity, eventID string) (*model.Event, error) {
	event, err := s.repo.GetOwned(ctx, eventID, caller.ID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// ParseEventDate accepts RFC3339 timestamps and bare YYYY-MM-DD dates (UTC midnight)
func ParseEventDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEventDateRequired
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidEventDate
}

func validateEventTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEventTitleRequired
	}
	if utf8.RuneCountInString(title) > model.MaxEventTitleLength {
		return "", ErrEventTitleTooLong
	}
	return title, nil
}

func validateVenue(venue string) (string, error) {
	venue = strings.TrimSpace(venue)
	if venue == "" {
		return "", ErrEventVenueRequired
	}
	if utf8.RuneCountInString(venue) > model.MaxVenueLength {
		return "", ErrEventVenueTooLong
	}
	return venue, nil
}
