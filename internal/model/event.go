package model

import "time"

// GuestStatus is a guest's RSVP answer
type GuestStatus string

const (
	GuestPending GuestStatus = "pending"
	GuestYes     GuestStatus = "yes"
	GuestNo      GuestStatus = "no"
)

// IsValid returns true if the status is a known RSVP answer
func (s GuestStatus) IsValid() bool {
	switch s {
	case GuestPending, GuestYes, GuestNo:
		return true
	default:
		return false
	}
}

// Event is an organizer's gathering. Guests are embedded and written with a
// version check, see repository.EventRepository.ReplaceGuests.
type Event struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Guests      []Guest   `json:"guests"`
	Version     int       `json:"-"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

// FindGuest returns the index of the guest with the given id, or -1
func (e *Event) FindGuest(guestID string) int {
	for i := range e.Guests {
		if e.Guests[i].ID == guestID {
			return i
		}
	}
	return -1
}

// Guest is an invitee of an event
type Guest struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Status GuestStatus `json:"status"`
}

// EventUpdate carries a partial event update. Nil fields are left unchanged.
type EventUpdate struct {
	Title *string
	Date  *time.Time
	Venue *string
}

// IsEmpty returns true if nothing would change
func (u EventUpdate) IsEmpty() bool {
	return u.Title == nil && u.Date == nil && u.Venue == nil
}

// Validation constraints for events
const (
	MaxEventTitleLength = 200
	MaxVenueLength      = 300
	MaxGuestsPerEvent   = 1000
)
