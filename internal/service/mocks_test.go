package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/forgo/fete/api/internal/events"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/storage"
	"github.com/forgo/fete/api/pkg/jwt"
)

// ============================================================================
// Identities
// ============================================================================

var (
	organizer      = &model.Identity{ID: "user:org", Name: "Alice", Role: model.RoleOrganizer}
	otherOrganizer = &model.Identity{ID: "user:org2", Name: "Carol", Role: model.RoleOrganizer}
	vendor         = &model.Identity{ID: "user:ven", Name: "Bob", Role: model.RoleVendor}
	otherVendor    = &model.Identity{ID: "user:ven2", Name: "Dave", Role: model.RoleVendor}
	admin          = &model.Identity{ID: "user:admin", Name: "Root", Role: model.RoleAdmin}
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// ============================================================================
// Mock User Repository
// ============================================================================

type mockUserRepo struct {
	createFunc           func(ctx context.Context, user *model.Identity) error
	getByIDFunc          func(ctx context.Context, id string) (*model.Identity, error)
	getByEmailFunc       func(ctx context.Context, email string) (*model.Identity, error)
	updateProfileFunc    func(ctx context.Context, user *model.Identity) error
	listVendorsFunc      func(ctx context.Context) ([]*model.Identity, error)
	listVendorsInBoxFunc func(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]*model.Identity, error)
	setVendorProfileFunc func(ctx context.Context, userID string, profile *model.VendorProfile) error
	replaceTokensFunc    func(ctx context.Context, userID string, tokens []string, expectedVersion int) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.Identity) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = "user:new"
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *model.Identity) error {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) ListVendors(ctx context.Context) ([]*model.Identity, error) {
	if m.listVendorsFunc != nil {
		return m.listVendorsFunc(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) ListVendorsInBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]*model.Identity, error) {
	if m.listVendorsInBoxFunc != nil {
		return m.listVendorsInBoxFunc(ctx, minLat, maxLat, minLng, maxLng)
	}
	return nil, nil
}

func (m *mockUserRepo) SetVendorProfile(ctx context.Context, userID string, profile *model.VendorProfile) error {
	if m.setVendorProfileFunc != nil {
		return m.setVendorProfileFunc(ctx, userID, profile)
	}
	return nil
}

func (m *mockUserRepo) ReplaceFCMTokens(ctx context.Context, userID string, tokens []string, expectedVersion int) error {
	if m.replaceTokensFunc != nil {
		return m.replaceTokensFunc(ctx, userID, tokens, expectedVersion)
	}
	return nil
}

// ============================================================================
// Mock Menu Repository
// ============================================================================

type mockMenuRepo struct {
	createSectionFunc     func(ctx context.Context, section *model.MenuSection) error
	getSectionFunc        func(ctx context.Context, vendorID, sectionID string) (*model.MenuSection, error)
	listSectionsFunc      func(ctx context.Context, vendorID string) ([]*model.MenuSection, error)
	renameSectionFunc     func(ctx context.Context, vendorID, sectionID, name string) (*model.MenuSection, error)
	deleteCascadeFunc     func(ctx context.Context, vendorID, sectionID string) error
	createItemFunc        func(ctx context.Context, item *model.MenuItem) error
	getItemFunc           func(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error)
	listItemsFunc         func(ctx context.Context, vendorID, sectionID string) ([]*model.MenuItem, error)
	getFullMenuFunc       func(ctx context.Context, vendorID string) ([]*model.MenuSectionWithItems, error)
	updateItemFunc        func(ctx context.Context, vendorID, sectionID, itemID string, update model.MenuItemUpdate) (*model.MenuItem, error)
	deleteItemFunc        func(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error)
}

func (m *mockMenuRepo) CreateSection(ctx context.Context, section *model.MenuSection) error {
	if m.createSectionFunc != nil {
		return m.createSectionFunc(ctx, section)
	}
	section.ID = "menu_section:1"
	return nil
}

func (m *mockMenuRepo) GetSection(ctx context.Context, vendorID, sectionID string) (*model.MenuSection, error) {
	if m.getSectionFunc != nil {
		return m.getSectionFunc(ctx, vendorID, sectionID)
	}
	return nil, nil
}

func (m *mockMenuRepo) ListSections(ctx context.Context, vendorID string) ([]*model.MenuSection, error) {
	if m.listSectionsFunc != nil {
		return m.listSectionsFunc(ctx, vendorID)
	}
	return nil, nil
}

func (m *mockMenuRepo) RenameSection(ctx context.Context, vendorID, sectionID, name string) (*model.MenuSection, error) {
	if m.renameSectionFunc != nil {
		return m.renameSectionFunc(ctx, vendorID, sectionID, name)
	}
	return &model.MenuSection{ID: sectionID, VendorID: vendorID, Name: name}, nil
}

func (m *mockMenuRepo) DeleteSectionCascade(ctx context.Context, vendorID, sectionID string) error {
	if m.deleteCascadeFunc != nil {
		return m.deleteCascadeFunc(ctx, vendorID, sectionID)
	}
	return nil
}

func (m *mockMenuRepo) CreateItem(ctx context.Context, item *model.MenuItem) error {
	if m.createItemFunc != nil {
		return m.createItemFunc(ctx, item)
	}
	item.ID = "menu_item:1"
	return nil
}

func (m *mockMenuRepo) GetItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, vendorID, sectionID, itemID)
	}
	return nil, nil
}

func (m *mockMenuRepo) ListItems(ctx context.Context, vendorID, sectionID string) ([]*model.MenuItem, error) {
	if m.listItemsFunc != nil {
		return m.listItemsFunc(ctx, vendorID, sectionID)
	}
	return nil, nil
}

func (m *mockMenuRepo) GetFullMenu(ctx context.Context, vendorID string) ([]*model.MenuSectionWithItems, error) {
	if m.getFullMenuFunc != nil {
		return m.getFullMenuFunc(ctx, vendorID)
	}
	return []*model.MenuSectionWithItems{}, nil
}

func (m *mockMenuRepo) UpdateItem(ctx context.Context, vendorID, sectionID, itemID string, update model.MenuItemUpdate) (*model.MenuItem, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, vendorID, sectionID, itemID, update)
	}
	return nil, nil
}

func (m *mockMenuRepo) DeleteItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, vendorID, sectionID, itemID)
	}
	return nil, nil
}

// ============================================================================
// Mock Offering Repository
// ============================================================================

type mockOfferingRepo struct {
	createFunc       func(ctx context.Context, offering *model.Offering) error
	getByIDFunc      func(ctx context.Context, id string) (*model.Offering, error)
	getOwnedFunc     func(ctx context.Context, vendorID, id string) (*model.Offering, error)
	listByVendorFunc func(ctx context.Context, vendorID string) ([]*model.Offering, error)
	updateFunc       func(ctx context.Context, vendorID, id string, update model.OfferingUpdate) (*model.Offering, error)
	deleteFunc       func(ctx context.Context, vendorID, id string) (*model.Offering, error)
}

func (m *mockOfferingRepo) Create(ctx context.Context, offering *model.Offering) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, offering)
	}
	offering.ID = "offering:1"
	return nil
}

func (m *mockOfferingRepo) GetByID(ctx context.Context, id string) (*model.Offering, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockOfferingRepo) GetOwned(ctx context.Context, vendorID, id string) (*model.Offering, error) {
	if m.getOwnedFunc != nil {
		return m.getOwnedFunc(ctx, vendorID, id)
	}
	return nil, nil
}

func (m *mockOfferingRepo) ListByVendor(ctx context.Context, vendorID string) ([]*model.Offering, error) {
	if m.listByVendorFunc != nil {
		return m.listByVendorFunc(ctx, vendorID)
	}
	return nil, nil
}

func (m *mockOfferingRepo) Update(ctx context.Context, vendorID, id string, update model.OfferingUpdate) (*model.Offering, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, vendorID, id, update)
	}
	return nil, nil
}

func (m *mockOfferingRepo) Delete(ctx context.Context, vendorID, id string) (*model.Offering, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, vendorID, id)
	}
	return nil, nil
}

// ============================================================================
// Mock Booking Repository
// ============================================================================

type mockBookingRepo struct {
	createFunc       func(ctx context.Context, booking *model.Booking) error
	getByIDFunc      func(ctx context.Context, id string) (*model.Booking, error)
	transitionFunc   func(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error)
	listByEventFunc  func(ctx context.Context, eventID string) ([]*model.BookingView, error)
	listByVendorFunc func(ctx context.Context, vendorID string) ([]*model.BookingView, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = "booking:1"
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBookingRepo) TransitionFromPending(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, status)
	}
	return nil, nil
}

func (m *mockBookingRepo) ListByEvent(ctx context.Context, eventID string) ([]*model.BookingView, error) {
	if m.listByEventFunc != nil {
		return m.listByEventFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *mockBookingRepo) ListByVendor(ctx context.Context, vendorID string) ([]*model.BookingView, error) {
	if m.listByVendorFunc != nil {
		return m.listByVendorFunc(ctx, vendorID)
	}
	return nil, nil
}

// ============================================================================
// Mock Event Repository
// ============================================================================

type mockEventRepo struct {
	createFunc          func(ctx context.Context, event *model.Event) error
	getByIDFunc         func(ctx context.Context, id string) (*model.Event, error)
	getOwnedFunc        func(ctx context.Context, id, organizerID string) (*model.Event, error)
	listByOrganizerFunc func(ctx context.Context, organizerID string) ([]*model.Event, error)
	updateFunc          func(ctx context.Context, id, organizerID string, update model.EventUpdate) (*model.Event, error)
	deleteFunc          func(ctx context.Context, id, organizerID string) (bool, error)
	replaceGuestsFunc   func(ctx context.Context, id, organizerID string, guests []model.Guest, expectedVersion int) (*model.Event, error)
}

func (m *mockEventRepo) Create(ctx context.Context, event *model.Event) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, event)
	}
	event.ID = "event:1"
	return nil
}

func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockEventRepo) GetOwned(ctx context.Context, id, organizerID string) (*model.Event, error) {
	if m.getOwnedFunc != nil {
		return m.getOwnedFunc(ctx, id, organizerID)
	}
	return nil, nil
}

func (m *mockEventRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Event, error) {
	if m.listByOrganizerFunc != nil {
		return m.listByOrganizerFunc(ctx, organizerID)
	}
	return nil, nil
}

func (m *mockEventRepo) Update(ctx context.Context, id, organizerID string, update model.EventUpdate) (*model.Event, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, organizerID, update)
	}
	return nil, nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id, organizerID string) (bool, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, organizerID)
	}
	return false, nil
}

func (m *mockEventRepo) ReplaceGuests(ctx context.Context, id, organizerID string, guests []model.Guest, expectedVersion int) (*model.Event, error) {
	if m.replaceGuestsFunc != nil {
		return m.replaceGuestsFunc(ctx, id, organizerID, guests, expectedVersion)
	}
	return &model.Event{ID: id, OrganizerID: organizerID, Guests: guests, Version: expectedVersion + 1}, nil
}

// ============================================================================
// Mock Blob Store
// ============================================================================

type mockBlobStore struct {
	mu       sync.Mutex
	storeErr error
	stored   []string
	deleted  []string
}

func (m *mockBlobStore) Store(_ context.Context, class storage.Class, filename string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return "", m.storeErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	url := fmt.Sprintf("/api/uploads/%s/%d-%s", class, len(m.stored)+1, filename)
	m.stored = append(m.stored, url)
	return url, nil
}

func (m *mockBlobStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

// ============================================================================
// Mock Menu Cache
// ============================================================================

type mockMenuCache struct {
	mu          sync.Mutex
	versions    map[string]int64
	menus       map[string][]*model.MenuSectionWithItems
	versionErr  error
	getErr      error
	invalidated []string
}

func newMockMenuCache() *mockMenuCache {
	return &mockMenuCache{
		versions: make(map[string]int64),
		menus:    make(map[string][]*model.MenuSectionWithItems),
	}
}

func snapshotKey(vendorID string, version int64) string {
	return fmt.Sprintf("%s@%d", vendorID, version)
}

func (m *mockMenuCache) Version(_ context.Context, vendorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versionErr != nil {
		return 0, m.versionErr
	}
	return m.versions[vendorID], nil
}

func (m *mockMenuCache) Get(_ context.Context, vendorID string, version int64) ([]*model.MenuSectionWithItems, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	menu, ok := m.menus[snapshotKey(vendorID, version)]
	return menu, ok, nil
}

func (m *mockMenuCache) Set(_ context.Context, vendorID string, version int64, menu []*model.MenuSectionWithItems) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[vendorID] != version {
		return false, nil
	}
	m.menus[snapshotKey(vendorID, version)] = menu
	return true, nil
}

func (m *mockMenuCache) Invalidate(_ context.Context, vendorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.menus, snapshotKey(vendorID, m.versions[vendorID]))
	m.versions[vendorID]++
	m.invalidated = append(m.invalidated, vendorID)
	return nil
}

// ============================================================================
// Mock Publisher
// ============================================================================

type mockPublisher struct {
	err       error
	published []events.Event
}

func (m *mockPublisher) Publish(_ context.Context, event events.Event) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// ============================================================================
// Mock Token Signer
// ============================================================================

var errBadToken = errors.New("bad token")

// mockTokenSigner issues "token-for:<user id>" tokens
type mockTokenSigner struct{}

func (mockTokenSigner) Sign(userID, role string) (string, error) {
	return "token-for:" + userID, nil
}

func (mockTokenSigner) Validate(token string) (*jwt.Claims, error) {
	const prefix = "token-for:"
	if token == "expired" {
		return nil, jwt.ErrTokenExpired
	}
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return nil, errBadToken
	}
	return &jwt.Claims{UserID: token[len(prefix):]}, nil
}
