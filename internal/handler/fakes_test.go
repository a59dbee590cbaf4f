package handler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/forgo/fete/api/internal/cache"
	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
	"github.com/forgo/fete/api/internal/storage"
	"github.com/forgo/fete/api/internal/testing/helpers"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// ============================================================================
// In-memory repositories
// ============================================================================

type idSeq struct {
	mu   sync.Mutex
	next int
}

func (s *idSeq) newID(table string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s:%d", table, s.next)
}

type memUsers struct {
	mu    sync.Mutex
	ids   *idSeq
	users map[string]*model.Identity
}

func (m *memUsers) Create(ctx context.Context, user *model.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return database.ErrDuplicate
		}
	}
	user.ID = m.ids.newID("user")
	user.CreatedOn = time.Now()
	user.UpdatedOn = user.CreatedOn
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, user *model.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUsers) ListVendors(ctx context.Context) ([]*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Identity
	for _, u := range m.users {
		if u.Role == model.RoleVendor {
			copied := *u
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memUsers) ListVendorsInBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]*model.Identity, error) {
	vendors, _ := m.ListVendors(ctx)
	var out []*model.Identity
	for _, v := range vendors {
		if v.VendorProfile == nil || v.VendorProfile.Location == nil {
			continue
		}
		loc := v.VendorProfile.Location
		if loc.Latitude >= minLat && loc.Latitude <= maxLat && loc.Longitude >= minLng && loc.Longitude <= maxLng {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memUsers) SetVendorProfile(ctx context.Context, userID string, profile *model.VendorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.VendorProfile = profile
	}
	return nil
}

func (m *memUsers) ReplaceFCMTokens(ctx context.Context, userID string, tokens []string, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.Version != expectedVersion {
		return database.ErrVersionMismatch
	}
	u.FCMTokens = tokens
	u.Version++
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	ids    *idSeq
	events map[string]*model.Event
}

func (m *memEvents) Create(ctx context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = m.ids.newID("event")
	if event.Guests == nil {
		event.Guests = []model.Guest{}
	}
	copied := *event
	m.events[event.ID] = &copied
	return nil
}

func (m *memEvents) GetByID(ctx context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (m *memEvents) GetOwned(ctx context.Context, id, organizerID string) (*model.Event, error) {
	e, _ := m.GetByID(ctx, id)
	if e == nil || e.OrganizerID != organizerID {
		return nil, nil
	}
	return e, nil
}

func (m *memEvents) ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Event
	for _, e := range m.events {
		if e.OrganizerID == organizerID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memEvents) Update(ctx context.Context, id, organizerID string, update model.EventUpdate) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.OrganizerID != organizerID {
		return nil, nil
	}
	if update.Title != nil {
		e.Title = *update.Title
	}
	if update.Venue != nil {
		e.Venue = *update.Venue
	}
	if update.Date != nil {
		e.Date = *update.Date
	}
	copied := *e
	return &copied, nil
}

func (m *memEvents) Delete(ctx context.Context, id, organizerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.OrganizerID != organizerID {
		return false, nil
	}
	delete(m.events, id)
	return true, nil
}

func (m *memEvents) ReplaceGuests(ctx context.Context, id, organizerID string, guests []model.Guest, expectedVersion int) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.OrganizerID != organizerID || e.Version != expectedVersion {
		return nil, database.ErrVersionMismatch
	}
	e.Guests = guests
	e.Version++
	copied := *e
	return &copied, nil
}

type memMenu struct {
	mu       sync.Mutex
	ids      *idSeq
	sections []*model.MenuSection
	items    []*model.MenuItem
}

func (m *memMenu) CreateSection(ctx context.Context, section *model.MenuSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	section.ID = m.ids.newID("menu_section")
	section.CreatedOn = time.Now()
	section.UpdatedOn = section.CreatedOn
	copied := *section
	m.sections = append(m.sections, &copied)
	return nil
}

func (m *memMenu) findSection(vendorID, sectionID string) *model.MenuSection {
	for _, s := range m.sections {
		if s.ID == sectionID && s.VendorID == vendorID {
			return s
		}
	}
	return nil
}

func (m *memMenu) GetSection(ctx context.Context, vendorID, sectionID string) (*model.MenuSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.findSection(vendorID, sectionID); s != nil {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (m *memMenu) ListSections(ctx context.Context, vendorID string) ([]*model.MenuSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MenuSection
	for _, s := range m.sections {
		if s.VendorID == vendorID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memMenu) RenameSection(ctx context.Context, vendorID, sectionID, name string) (*model.MenuSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.findSection(vendorID, sectionID)
	if s == nil {
		return nil, nil
	}
	s.Name = name
	copied := *s
	return &copied, nil
}

func (m *memMenu) DeleteSectionCascade(ctx context.Context, vendorID, sectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[:0]
	for _, it := range m.items {
		if it.SectionID != sectionID || it.VendorID != vendorID {
			items = append(items, it)
		}
	}
	m.items = items
	sections := m.sections[:0]
	for _, s := range m.sections {
		if s.ID != sectionID || s.VendorID != vendorID {
			sections = append(sections, s)
		}
	}
	m.sections = sections
	return nil
}

func (m *memMenu) CreateItem(ctx context.Context, item *model.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.ids.newID("menu_item")
	item.CreatedOn = time.Now()
	item.UpdatedOn = item.CreatedOn
	copied := *item
	m.items = append(m.items, &copied)
	return nil
}

func (m *memMenu) findItem(vendorID, sectionID, itemID string) int {
	for i, it := range m.items {
		if it.ID == itemID && it.SectionID == sectionID && it.VendorID == vendorID {
			return i
		}
	}
	return -1
}

func (m *memMenu) GetItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.findItem(vendorID, sectionID, itemID); i >= 0 {
		copied := *m.items[i]
		return &copied, nil
	}
	return nil, nil
}

func (m *memMenu) ListItems(ctx context.Context, vendorID, sectionID string) ([]*model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MenuItem
	for _, it := range m.items {
		if it.SectionID == sectionID && it.VendorID == vendorID {
			copied := *it
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memMenu) GetFullMenu(ctx context.Context, vendorID string) ([]*model.MenuSectionWithItems, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	menu := []*model.MenuSectionWithItems{}
	for _, s := range m.sections {
		if s.VendorID != vendorID {
			continue
		}
		entry := &model.MenuSectionWithItems{MenuSection: *s, Items: []*model.MenuItem{}}
		for _, it := range m.items {
			if it.SectionID == s.ID {
				copied := *it
				entry.Items = append(entry.Items, &copied)
			}
		}
		menu = append(menu, entry)
	}
	return menu, nil
}

func (m *memMenu) UpdateItem(ctx context.Context, vendorID, sectionID, itemID string, update model.MenuItemUpdate) (*model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findItem(vendorID, sectionID, itemID)
	if i < 0 {
		return nil, nil
	}
	it := m.items[i]
	if update.Name != nil {
		it.Name = *update.Name
	}
	if update.Description != nil {
		it.Description = update.Description
	}
	if update.Price != nil {
		it.Price = *update.Price
	}
	if update.ImageURL != nil {
		it.ImageURL = update.ImageURL
	}
	copied := *it
	return &copied, nil
}

func (m *memMenu) DeleteItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findItem(vendorID, sectionID, itemID)
	if i < 0 {
		return nil, nil
	}
	deleted := m.items[i]
	m.items = append(m.items[:i], m.items[i+1:]...)
	return deleted, nil
}

func (m *memMenu) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memOfferings struct {
	mu        sync.Mutex
	ids       *idSeq
	offerings map[string]*model.Offering
}

func (m *memOfferings) Create(ctx context.Context, offering *model.Offering) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	offering.ID = m.ids.newID("offering")
	if offering.Images == nil {
		offering.Images = []string{}
	}
	copied := *offering
	m.offerings[offering.ID] = &copied
	return nil
}

func (m *memOfferings) GetByID(ctx context.Context, id string) (*model.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.offerings[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, nil
}

func (m *memOfferings) GetOwned(ctx context.Context, vendorID, id string) (*model.Offering, error) {
	o, _ := m.GetByID(ctx, id)
	if o == nil || o.VendorID != vendorID {
		return nil, nil
	}
	return o, nil
}

func (m *memOfferings) ListByVendor(ctx context.Context, vendorID string) ([]*model.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Offering
	for _, o := range m.offerings {
		if o.VendorID == vendorID {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memOfferings) Update(ctx context.Context, vendorID, id string, update model.OfferingUpdate) (*model.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[id]
	if !ok || o.VendorID != vendorID {
		return nil, nil
	}
	if update.Title != nil {
		o.Title = *update.Title
	}
	if update.Description != nil {
		o.Description = *update.Description
	}
	if update.Price != nil {
		o.Price = *update.Price
	}
	if update.Images != nil {
		o.Images = update.Images
	}
	copied := *o
	return &copied, nil
}

func (m *memOfferings) Delete(ctx context.Context, vendorID, id string) (*model.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[id]
	if !ok || o.VendorID != vendorID {
		return nil, nil
	}
	delete(m.offerings, id)
	return o, nil
}

type memBookings struct {
	mu       sync.Mutex
	ids      *idSeq
	bookings map[string]*model.Booking
	events   *memEvents
	offers   *memOfferings
}

func (m *memBookings) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking.ID = m.ids.newID("booking")
	copied := *booking
	m.bookings[booking.ID] = &copied
	return nil
}

func (m *memBookings) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *memBookings) TransitionFromPending(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return nil, nil
	}
	b.Status = status
	copied := *b
	return &copied, nil
}

func (m *memBookings) ListByEvent(ctx context.Context, eventID string) ([]*model.BookingView, error) {
	return m.list(ctx, func(b *model.Booking, _ *model.Offering) bool { return b.EventID == eventID })
}

func (m *memBookings) ListByVendor(ctx context.Context, vendorID string) ([]*model.BookingView, error) {
	return m.list(ctx, func(_ *model.Booking, o *model.Offering) bool { return o != nil && o.VendorID == vendorID })
}

func (m *memBookings) list(ctx context.Context, keep func(*model.Booking, *model.Offering) bool) ([]*model.BookingView, error) {
	m.mu.Lock()
	all := make([]*model.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		all = append(all, b)
	}
	m.mu.Unlock()

	var out []*model.BookingView
	for _, b := range all {
		o, _ := m.offers.GetByID(ctx, b.OfferingID)
		if !keep(b, o) {
			continue
		}
		view := &model.BookingView{Booking: *b}
		if o != nil {
			view.Offering = &model.BookingOfferingRef{ID: o.ID, Title: o.Title, Price: o.Price}
		}
		out = append(out, view)
	}
	return out, nil
}

// ============================================================================
// Test API
// ============================================================================

type fakeQR struct {
	content string
}

func (f *fakeQR) Generate(content string) ([]byte, error) {
	f.content = content
	return []byte("\x89PNG\r\n\x1a\nfake"), nil
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type testAPI struct {
	router    http.Handler
	jwt       *helpers.JWTHelper
	users     *memUsers
	events    *memEvents
	offerings *memOfferings
	bookings  *memBookings
	menu      *memMenu
	redis     *miniredis.Miniredis
	qr        *fakeQR
	uploadDir string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	ids := &idSeq{}
	users := &memUsers{ids: ids, users: map[string]*model.Identity{}}
	events := &memEvents{ids: ids, events: map[string]*model.Event{}}
	offerings := &memOfferings{ids: ids, offerings: map[string]*model.Offering{}}
	bookings := &memBookings{ids: ids, bookings: map[string]*model.Booking{}, events: events, offers: offerings}
	menu := &memMenu{ids: ids}

	jwtHelper := helpers.NewJWTHelper(t)
	uploadDir := t.TempDir()
	blobs := storage.NewLocalStore(uploadDir, "/api/uploads")
	guard := service.NewGuard()
	qr := &fakeQR{}

	authService := service.NewAuthService(service.AuthServiceConfig{
		Users:  users,
		Tokens: jwtHelper.Service,
		Blobs:  blobs,
	})
	bookingService := service.NewBookingService(service.BookingServiceConfig{
		Repo:      bookings,
		Events:    events,
		Offerings: offerings,
		Guard:     guard,
	})

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	menuService := service.NewMenuService(service.MenuServiceConfig{
		Repo:  menu,
		Cache: cache.NewMenuCache(redisClient, time.Minute),
		Blobs: blobs,
		Guard: guard,
	})

	idem := middleware.NewMemoryIdempotencyStore(middleware.IdempotencyConfig{})
	t.Cleanup(idem.Stop)

	router := NewRouter(RouterConfig{
		Auth:          NewAuthHandler(authService),
		Events:        NewEventHandler(service.NewEventService(events, guard)),
		Vendors:       NewVendorHandler(service.NewVendorService(users, service.NewGeoService(), guard)),
		Menu:          NewMenuHandler(menuService, qr, "https://fete.example"),
		Offerings:     NewOfferingHandler(service.NewOfferingService(offerings, blobs, guard)),
		Bookings:      NewBookingHandler(bookingService),
		Notification:  NewNotificationHandler(service.NewNotificationService(users)),
		Health:        NewHealthHandler(fakePinger{}),
		Uploads:       UploadsHandler(uploadDir, "/api/uploads"),
		Resolver:      authService,
		Idempotency:   idem,
		UploadsPrefix: "/api/uploads",
	})

	return &testAPI{
		router:    router,
		jwt:       jwtHelper,
		users:     users,
		events:    events,
		offerings: offerings,
		bookings:  bookings,
		menu:      menu,
		redis:     mr,
		qr:        qr,
		uploadDir: uploadDir,
	}
}

// addUser stores an identity directly, skipping password hashing
func (a *testAPI) addUser(t *testing.T, name string, role model.Role) (*model.Identity, string) {
	t.Helper()
	user := &model.Identity{
		Name:  name,
		Email: fmt.Sprintf("%s@example.com", name),
		Role:  role,
		Phone: "555-0100",
	}
	if role == model.RoleVendor {
		user.VendorProfile = &model.VendorProfile{ServiceType: model.ServiceDecorator}
	}
	if err := a.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user, a.jwt.GenerateToken(t, user)
}

// pngBytes returns a small valid PNG
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
