package model

import "time"

// BookingStatus is the state of a booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingDeclined  BookingStatus = "declined"
)

// IsTerminal returns true once the vendor has answered
func (s BookingStatus) IsTerminal() bool {
	return s == BookingConfirmed || s == BookingDeclined
}

// IsValidTransition returns true for the statuses a vendor may set
func (s BookingStatus) IsValidTransition() bool {
	return s.IsTerminal()
}

// Booking reserves a quantity of an offering for an event
type Booking struct {
	ID         string        `json:"id"`
	EventID    string        `json:"event_id"`
	OfferingID string        `json:"offering_id"`
	Quantity   int           `json:"quantity"`
	Status     BookingStatus `json:"status"`
	CreatedOn  time.Time     `json:"created_on"`
	UpdatedOn  time.Time     `json:"updated_on"`
}

// BookingVendorRef is the vendor display block attached to a booking
type BookingVendorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookingOfferingRef is the offering display block attached to a booking
type BookingOfferingRef struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Price  float64           `json:"price"`
	Vendor *BookingVendorRef `json:"vendor,omitempty"`
}

// BookingEventRef is the event display block attached to a booking
type BookingEventRef struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// BookingView is a booking joined with its display fields
type BookingView struct {
	Booking
	Offering *BookingOfferingRef `json:"offering,omitempty"`
	Event    *BookingEventRef    `json:"event,omitempty"`
}

// Business constraints for bookings
const (
	DefaultBookingQuantity = 1
	MaxBookingQuantity     = 10000
)
