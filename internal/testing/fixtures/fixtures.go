// Package fixtures provides test data factories for integration tests.
//
// Each factory method creates entities with sensible defaults while allowing
// customization via option functions. Factories write through the
// repositories so records have the same shape the API produces.
//
// Usage:
//
//	f := fixtures.New(tdb.DB)
//	org := f.CreateOrganizer(t)
//	vendor := f.CreateVendor(t)
//	event := f.CreateEvent(t, org)
//	offering := f.CreateOffering(t, vendor)
//	booking := f.CreateBooking(t, event, offering)
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every identity created by the factory
const DefaultPassword = "testpass123"

// Factory creates test entities in the database
type Factory struct {
	users     *repository.UserRepository
	events    *repository.EventRepository
	menus     *repository.MenuRepository
	offerings *repository.OfferingRepository
	bookings  *repository.BookingRepository
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{
		users:     repository.NewUserRepository(db),
		events:    repository.NewEventRepository(db),
		menus:     repository.NewMenuRepository(db),
		offerings: repository.NewOfferingRepository(db),
		bookings:  repository.NewBookingRepository(db),
	}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func testCtx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// Identity Fixtures
// ============================================================================

// IdentityOpts customizes identity creation
type IdentityOpts struct {
	Name        string
	Email       string
	Password    string
	Phone       string
	ServiceType model.ServiceType
	Location    *model.GeoPoint
}

// WithEmail sets the identity's email
func WithEmail(email string) func(*IdentityOpts) {
	return func(o *IdentityOpts) { o.Email = email }
}

// WithLocation places a vendor at the given coordinate
func WithLocation(lng, lat float64) func(*IdentityOpts) {
	return func(o *IdentityOpts) { o.Location = &model.GeoPoint{Longitude: lng, Latitude: lat} }
}

// WithServiceType sets a vendor's service type
func WithServiceType(st model.ServiceType) func(*IdentityOpts) {
	return func(o *IdentityOpts) { o.ServiceType = st }
}

// CreateOrganizer creates an organizer identity
func (f *Factory) CreateOrganizer(t *testing.T, opts ...func(*IdentityOpts)) *model.Identity {
	t.Helper()
	return f.createIdentity(t, model.RoleOrganizer, opts)
}

// CreateVendor creates a vendor identity with a profile
func (f *Factory) CreateVendor(t *testing.T, opts ...func(*IdentityOpts)) *model.Identity {
	t.Helper()
	return f.createIdentity(t, model.RoleVendor, opts)
}

// CreateAdmin creates an admin identity
func (f *Factory) CreateAdmin(t *testing.T, opts ...func(*IdentityOpts)) *model.Identity {
	t.Helper()
	return f.createIdentity(t, model.RoleAdmin, opts)
}

func (f *Factory) createIdentity(t *testing.T, role model.Role, opts []func(*IdentityOpts)) *model.Identity {
	t.Helper()

	id := randomID()
	o := &IdentityOpts{
		Name:        fmt.Sprintf("%s %s", role, id),
		Email:       fmt.Sprintf("%s_%s@test.local", role, id),
		Password:    DefaultPassword,
		Phone:       "555-0100",
		ServiceType: model.ServiceDecorator,
	}
	for _, fn := range opts {
		fn(o)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: failed to hash password: %v", err)
	}

	user := &model.Identity{
		Name:         o.Name,
		Email:        o.Email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        o.Phone,
	}
	if role == model.RoleVendor {
		user.VendorProfile = &model.VendorProfile{
			ServiceType: o.ServiceType,
			Location:    o.Location,
		}
	}

	if err := f.users.Create(testCtx(t), user); err != nil {
		t.Fatalf("fixtures: failed to create %s: %v", role, err)
	}
	return user
}

// ============================================================================
// Event Fixtures
// ============================================================================

// EventOpts customizes event creation
type EventOpts struct {
	Title string
	Date  time.Time
	Venue string
}

// CreateEvent creates an event owned by the organizer
func (f *Factory) CreateEvent(t *testing.T, organizer *model.Identity, opts ...func(*EventOpts)) *model.Event {
	t.Helper()

	o := &EventOpts{
		Title: fmt.Sprintf("Event %s", randomID()),
		Date:  time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second),
		Venue: "Community Hall",
	}
	for _, fn := range opts {
		fn(o)
	}

	event := &model.Event{
		OrganizerID: organizer.ID,
		Title:       o.Title,
		Date:        o.Date,
		Venue:       o.Venue,
	}
	if err := f.events.Create(testCtx(t), event); err != nil {
		t.Fatalf("fixtures: failed to create event: %v", err)
	}
	return event
}

// ============================================================================
// Menu Fixtures
// ============================================================================

// CreateSection creates a menu section for the vendor
func (f *Factory) CreateSection(t *testing.T, vendor *model.Identity, name string) *model.MenuSection {
	t.Helper()

	if name == "" {
		name = fmt.Sprintf("Section %s", randomID())
	}
	section := &model.MenuSection{
		VendorID: vendor.ID,
		Name:     name,
	}
	if err := f.menus.CreateSection(testCtx(t), section); err != nil {
		t.Fatalf("fixtures: failed to create menu section: %v", err)
	}
	return section
}

// CreateItem creates a menu item within the section
func (f *Factory) CreateItem(t *testing.T, section *model.MenuSection, name string, price float64) *model.MenuItem {
	t.Helper()

	if name == "" {
		name = fmt.Sprintf("Item %s", randomID())
	}
	item := &model.MenuItem{
		SectionID: section.ID,
		VendorID:  section.VendorID,
		Name:      name,
		Price:     price,
	}
	if err := f.menus.CreateItem(testCtx(t), item); err != nil {
		t.Fatalf("fixtures: failed to create menu item: %v", err)
	}
	return item
}

// ============================================================================
// Offering and Booking Fixtures
// ============================================================================

// OfferingOpts customizes offering creation
type OfferingOpts struct {
	Title       string
	Description string
	Price       float64
	Images      []string
}

// CreateOffering creates an offering for the vendor
func (f *Factory) CreateOffering(t *testing.T, vendor *model.Identity, opts ...func(*OfferingOpts)) *model.Offering {
	t.Helper()

	o := &OfferingOpts{
		Title:       fmt.Sprintf("Offering %s", randomID()),
		Description: "Test offering",
		Price:       100,
	}
	for _, fn := range opts {
		fn(o)
	}

	offering := &model.Offering{
		VendorID:    vendor.ID,
		Title:       o.Title,
		Description: o.Description,
		Price:       o.Price,
		Images:      o.Images,
	}
	if err := f.offerings.Create(testCtx(t), offering); err != nil {
		t.Fatalf("fixtures: failed to create offering: %v", err)
	}
	return offering
}

// CreateBooking creates a pending booking of one unit
func (f *Factory) CreateBooking(t *testing.T, event *model.Event, offering *model.Offering) *model.Booking {
	t.Helper()

	booking := &model.Booking{
		EventID:    event.ID,
		OfferingID: offering.ID,
		Quantity:   model.DefaultBookingQuantity,
		Status:     model.BookingPending,
	}
	if err := f.bookings.Create(testCtx(t), booking); err != nil {
		t.Fatalf("fixtures: failed to create booking: %v", err)
	}
	return booking
}
