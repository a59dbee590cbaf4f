package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/forgo/fete/api/internal/cache"
	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
	"github.com/forgo/fete/api/internal/testing/helpers"
)

// ============================================================================
// Auth
// ============================================================================

func TestAuth_RegisterLoginMe(t *testing.T) {
	api := newTestAPI(t)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/auth/register").
		WithBody(map[string]interface{}{
			"name":     "Alice",
			"email":    "Alice@Org.com",
			"password": "pass123",
			"role":     "organizer",
			"phone":    "555-0101",
		}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var registered service.AuthResult
	helpers.DecodeResponse(t, resp, &registered)
	if registered.Token == "" {
		t.Fatal("expected token")
	}
	if registered.User.Email != "alice@org.com" {
		t.Errorf("expected normalized email, got %q", registered.User.Email)
	}
	if strings.Contains(resp.Body.String(), "password") {
		t.Error("response must not expose the password hash")
	}

	resp = helpers.NewRequest(t, http.MethodPost, "/api/auth/login").
		WithBody(map[string]string{"email": "alice@org.com", "password": "pass123"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	var loggedIn service.AuthResult
	helpers.DecodeResponse(t, resp, &loggedIn)

	resp = helpers.NewRequest(t, http.MethodGet, "/api/auth/me").
		WithToken(loggedIn.Token).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	var me UserResponse
	helpers.DecodeResponse(t, resp, &me)
	if me.User.ID != registered.User.ID {
		t.Errorf("expected %s, got %s", registered.User.ID, me.User.ID)
	}
}

func TestAuth_RegisterDuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]interface{}{
		"name":     "Bob",
		"email":    "bob@vendor.com",
		"password": "pass123",
		"role":     "vendor",
		"phone":    "555-0102",
		"vendor_profile": map[string]string{
			"service_type": "decorator",
		},
	}

	resp := helpers.NewRequest(t, http.MethodPost, "/api/auth/register").WithBody(body).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)

	resp = helpers.NewRequest(t, http.MethodPost, "/api/auth/register").WithBody(body).Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusConflict, model.ErrCodeAlreadyExists)
}

func TestAuth_RegisterMissingFields(t *testing.T) {
	api := newTestAPI(t)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/auth/register").
		WithBody(map[string]string{"email": "x@example.com"}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	api := newTestAPI(t)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/auth/login").
		WithBody(map[string]string{"email": "nobody@example.com", "password": "wrong"}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusUnauthorized, model.ErrCodeLoginFailed)
}

func TestAuth_MissingAndExpiredToken(t *testing.T) {
	api := newTestAPI(t)
	user, _ := api.addUser(t, "carol", model.RoleOrganizer)

	resp := helpers.NewRequest(t, http.MethodGet, "/api/auth/me").Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusUnauthorized, model.ErrCodeUnauthorized)

	expired := api.jwt.GenerateExpiredToken(t, user)
	resp = helpers.NewRequest(t, http.MethodGet, "/api/auth/me").WithToken(expired).Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusUnauthorized, model.ErrCodeTokenExpired)

	resp = helpers.NewRequest(t, http.MethodGet, "/api/auth/me").WithToken("not-a-jwt").Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusUnauthorized, model.ErrCodeTokenInvalid)
}

func TestAuth_UnknownFieldRejected(t *testing.T) {
	api := newTestAPI(t)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/auth/login").
		WithBody(map[string]string{"email": "a@b.com", "password": "x", "extra": "y"}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)
}

// ============================================================================
// Role gating
// ============================================================================

func TestRouter_VendorCannotCreateEvent(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.addUser(t, "dave", model.RoleVendor)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/events").
		WithToken(token).
		WithBody(map[string]string{"title": "Party", "date": "2026-12-31", "venue": "Hall"}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusForbidden, model.ErrCodeWrongRole)
}

func TestRouter_OrganizerCannotCreateOffering(t *testing.T) {
	api := newTestAPI(t)
	org, token := api.addUser(t, "erin", model.RoleOrganizer)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/vendors/"+org.ID+"/offerings").
		WithToken(token).
		WithBody(map[string]interface{}{"title": "Arch", "price": 10}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusForbidden, model.ErrCodeWrongRole)
}

// ============================================================================
// Events and guests
// ============================================================================

func createEvent(t *testing.T, api *testAPI, token string) *model.Event {
	t.Helper()
	resp := helpers.NewRequest(t, http.MethodPost, "/api/events").
		WithToken(token).
		WithBody(map[string]string{"title": "Launch Party", "date": "2026-12-31", "venue": "Rooftop"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var event model.Event
	helpers.DecodeResponse(t, resp, &event)
	return &event
}

func TestEvents_CRUD(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.addUser(t, "frank", model.RoleOrganizer)

	event := createEvent(t, api, token)
	if event.Title != "Launch Party" || len(event.Guests) != 0 {
		t.Fatalf("unexpected event: %+v", event)
	}

	resp := helpers.NewRequest(t, http.MethodGet, "/api/events").WithToken(token).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var list []model.Event
	helpers.DecodeResponse(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 event, got %d", len(list))
	}

	resp = helpers.NewRequest(t, http.MethodPut, "/api/events/"+event.ID).
		WithToken(token).
		WithBody(map[string]string{"venue": "Garden"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var updated model.Event
	helpers.DecodeResponse(t, resp, &updated)
	if updated.Venue != "Garden" || updated.Title != "Launch Party" {
		t.Errorf("partial update not applied: %+v", updated)
	}

	resp = helpers.NewRequest(t, http.MethodDelete, "/api/events/"+event.ID).WithToken(token).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusNoContent)

	resp = helpers.NewRequest(t, http.MethodGet, "/api/events/"+event.ID).WithToken(token).Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusNotFound, model.ErrCodeNotFound)
}

func TestEvents_ListEmptyIsArray(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.addUser(t, "gina", model.RoleOrganizer)

	resp := helpers.NewRequest(t, http.MethodGet, "/api/events").WithToken(token).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	if got := strings.TrimSpace(resp.Body.String()); got != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestEvents_OtherOrganizerGetsNotFound(t *testing.T) {
	api := newTestAPI(t)
	_, owner := api.addUser(t, "hank", model.RoleOrganizer)
	_, other := api.addUser(t, "ivy", model.RoleOrganizer)

	event := createEvent(t, api, owner)

	resp := helpers.NewRequest(t, http.MethodGet, "/api/events/"+event.ID).WithToken(other).Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusNotFound, model.ErrCodeNotFound)

	resp = helpers.NewRequest(t, http.MethodDelete, "/api/events/"+event.ID).WithToken(other).Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusNotFound, model.ErrCodeNotFound)
}

func TestEvents_GuestFlow(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.addUser(t, "jack", model.RoleOrganizer)
	event := createEvent(t, api, token)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/events/"+event.ID+"/guests").
		WithToken(token).
		WithBody(map[string]string{"name": "Guest", "email": "Guest@Example.com"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var withGuest model.Event
	helpers.DecodeResponse(t, resp, &withGuest)
	if len(withGuest.Guests) != 1 {
		t.Fatalf("expected 1 guest, got %d", len(withGuest.Guests))
	}
	guest := withGuest.Guests[0]
	if guest.Status != model.GuestPending || guest.Email != "guest@example.com" {
		t.Errorf("unexpected guest: %+v", guest)
	}

	resp = helpers.NewRequest(t, http.MethodPut, "/api/events/"+event.ID+"/guests/"+guest.ID).
		WithToken(token).
		WithBody(map[string]string{"status": "yes"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	var answered model.Event
	helpers.DecodeResponse(t, resp, &answered)
	if answered.Guests[0].Status != model.GuestYes {
		t.Errorf("expected yes, got %s", answered.Guests[0].Status)
	}

	resp = helpers.NewRequest(t, http.MethodPut, "/api/events/"+event.ID+"/guests/"+guest.ID).
		WithToken(token).
		WithBody(map[string]string{"status": "maybe"}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)
}

// ============================================================================
// Vendors
// ============================================================================

func TestVendors_FilterParsing(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.addUser(t, "kim", model.RoleOrganizer)
	api.addUser(t, "lee", model.RoleVendor)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "no filter", query: "", status: http.StatusOK},
		{name: "only lat ignored", query: "?lat=40", status: http.StatusOK},
		{name: "valid point", query: "?lat=40.7&lng=-74.0&radius=5", status: http.StatusOK},
		{name: "bad lat", query: "?lat=north&lng=-74", status: http.StatusBadRequest},
		{name: "bad radius", query: "?lat=40&lng=-74&radius=far", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := helpers.NewRequest(t, http.MethodGet, "/api/vendors"+tt.query).WithToken(token).Do(api.router)
			helpers.AssertStatus(t, resp, tt.status)
		})
	}
}

func TestVendors_UpdateLocationThenSearch(t *testing.T) {
	api := newTestAPI(t)
	vendor, vendorToken := api.addUser(t, "mia", model.RoleVendor)
	_, orgToken := api.addUser(t, "ned", model.RoleOrganizer)

	resp := helpers.NewRequest(t, http.MethodPut, "/api/vendors/"+vendor.ID+"/location").
		WithToken(vendorToken).
		WithBody(map[string]interface{}{"lat": 40.7128, "lng": "-74.0060"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	var loc LocationResponse
	helpers.DecodeResponse(t, resp, &loc)
	if loc.Message != "Location updated" || loc.VendorProfile == nil || loc.VendorProfile.Location == nil {
		t.Fatalf("unexpected response: %+v", loc)
	}

	resp = helpers.NewRequest(t, http.MethodGet, "/api/vendors?lat=40.72&lng=-74.0&radius=5").
		WithToken(orgToken).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var near []model.VendorSummary
	helpers.DecodeResponse(t, resp, &near)
	if len(near) != 1 || near[0].ID != vendor.ID {
		t.Fatalf("expected vendor nearby, got %+v", near)
	}

	resp = helpers.NewRequest(t, http.MethodGet, "/api/vendors?lat=51.5&lng=-0.12&radius=5").
		WithToken(orgToken).
		Do(api.router)
	var far []model.VendorSummary
	helpers.DecodeResponse(t, resp, &far)
	if len(far) != 0 {
		t.Errorf("expected no vendors near London, got %d", len(far))
	}
}

func TestVendors_UpdateOtherLocationForbidden(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.addUser(t, "olga", model.RoleVendor)
	_, other := api.addUser(t, "pete", model.RoleVendor)

	resp := helpers.NewRequest(t, http.MethodPut, "/api/vendors/"+owner.ID+"/location").
		WithToken(other).
		WithBody(map[string]float64{"lat": 1, "lng": 1}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusForbidden, model.ErrCodeForbidden)
}

// ============================================================================
// Offerings and uploads
// ============================================================================

func TestOfferings_MultipartCreateServesImage(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "quinn", model.RoleVendor)
	img := pngBytes(t)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/vendors/"+vendor.ID+"/offerings").
		WithToken(token).
		WithMultipart(
			map[string]string{"title": "Balloon Arch", "price": "150"},
			map[string][]helpers.File{"images": {{Name: "arch.png", Content: img}}},
		).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var offering model.Offering
	helpers.DecodeResponse(t, resp, &offering)
	if offering.Price != 150 || len(offering.Images) != 1 {
		t.Fatalf("unexpected offering: %+v", offering)
	}
	if !strings.HasPrefix(offering.Images[0], "/api/uploads/offerings/") {
		t.Fatalf("unexpected image url %s", offering.Images[0])
	}

	resp = helpers.NewRequest(t, http.MethodGet, offering.Images[0]).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	if ct := resp.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if resp.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}

	resp = helpers.NewRequest(t, http.MethodGet, "/api/uploads/offerings/").Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusNotFound)
}

func TestOfferings_TooManyImages(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "rosa", model.RoleVendor)
	img := pngBytes(t)

	files := make([]helpers.File, model.MaxOfferingImages+1)
	for i := range files {
		files[i] = helpers.File{Name: fmt.Sprintf("img%d.png", i), Content: img}
	}

	resp := helpers.NewRequest(t, http.MethodPost, "/api/vendors/"+vendor.ID+"/offerings").
		WithToken(token).
		WithMultipart(map[string]string{"title": "Arch", "price": "10"}, map[string][]helpers.File{"images": files}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)
}

func TestOfferings_JSONImagesRejected(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "sam", model.RoleVendor)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/vendors/"+vendor.ID+"/offerings").
		WithToken(token).
		WithBody(map[string]interface{}{"title": "Arch", "price": 10, "images": []string{"http://x/y.png"}}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusBadRequest)
}

func TestOfferings_JSONCreateAndList(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "tina", model.RoleVendor)
	_, orgToken := api.addUser(t, "uma", model.RoleOrganizer)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/vendors/"+vendor.ID+"/offerings").
		WithToken(token).
		WithBody(map[string]interface{}{"title": "Photo Booth", "price": "99.5"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)

	resp = helpers.NewRequest(t, http.MethodGet, "/api/vendors/"+vendor.ID+"/offerings").WithToken(orgToken).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var list []model.Offering
	helpers.DecodeResponse(t, resp, &list)
	if len(list) != 1 || list[0].Price != 99.5 {
		t.Fatalf("unexpected offerings: %+v", list)
	}
}

// ============================================================================
// Bookings
// ============================================================================

func seedBookable(t *testing.T, api *testAPI) (orgToken, vendorToken string, event *model.Event, offering *model.Offering) {
	t.Helper()
	_, orgToken = api.addUser(t, "alice", model.RoleOrganizer)
	vendor, vendorToken := api.addUser(t, "bob", model.RoleVendor)
	event = createEvent(t, api, orgToken)

	offering = &model.Offering{VendorID: vendor.ID, Title: "Balloon Arch", Price: 150}
	if err := api.offerings.Create(context.Background(), offering); err != nil {
		t.Fatalf("create offering: %v", err)
	}
	return orgToken, vendorToken, event, offering
}

func TestBookings_Lifecycle(t *testing.T) {
	api := newTestAPI(t)
	orgToken, vendorToken, event, offering := seedBookable(t, api)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/bookings").
		WithToken(orgToken).
		WithBody(CreateBookingRequest{EventID: event.ID, OfferingID: offering.ID}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var booking model.Booking
	helpers.DecodeResponse(t, resp, &booking)
	if booking.Status != model.BookingPending || booking.Quantity != 1 {
		t.Fatalf("unexpected booking: %+v", booking)
	}

	resp = helpers.NewRequest(t, http.MethodPut, "/api/bookings/"+booking.ID+"/status").
		WithToken(vendorToken).
		WithBody(map[string]string{"status": "confirmed"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	// Re-applying the same status is a no-op
	resp = helpers.NewRequest(t, http.MethodPut, "/api/bookings/"+booking.ID+"/status").
		WithToken(vendorToken).
		WithBody(map[string]string{"status": "confirmed"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	resp = helpers.NewRequest(t, http.MethodPut, "/api/bookings/"+booking.ID+"/status").
		WithToken(vendorToken).
		WithBody(map[string]string{"status": "declined"}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusConflict, model.ErrCodeConflict)

	resp = helpers.NewRequest(t, http.MethodGet, "/api/bookings?event="+event.ID).WithToken(orgToken).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var views []model.BookingView
	helpers.DecodeResponse(t, resp, &views)
	if len(views) != 1 || views[0].Status != model.BookingConfirmed {
		t.Fatalf("unexpected bookings: %+v", views)
	}
}

func TestBookings_ListRequiresEvent(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.addUser(t, "vic", model.RoleOrganizer)

	resp := helpers.NewRequest(t, http.MethodGet, "/api/bookings").WithToken(token).Do(api.router)
	problem := helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)
	if problem.Detail != "event query parameter is required" {
		t.Errorf("unexpected detail %q", problem.Detail)
	}
}

func TestBookings_IdempotentReplay(t *testing.T) {
	api := newTestAPI(t)
	orgToken, _, event, offering := seedBookable(t, api)
	body := CreateBookingRequest{EventID: event.ID, OfferingID: offering.ID, Quantity: helpers.IntPtr(2)}

	first := helpers.NewRequest(t, http.MethodPost, "/api/bookings").
		WithToken(orgToken).
		WithHeader("Idempotency-Key", "book-1").
		WithBody(body).
		Do(api.router)
	helpers.AssertStatus(t, first, http.StatusCreated)

	second := helpers.NewRequest(t, http.MethodPost, "/api/bookings").
		WithToken(orgToken).
		WithHeader("Idempotency-Key", "book-1").
		WithBody(body).
		Do(api.router)
	helpers.AssertStatus(t, second, http.StatusCreated)

	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replayed header")
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replay body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
	if n := len(api.bookings.bookings); n != 1 {
		t.Errorf("expected 1 stored booking, got %d", n)
	}
}

func TestBookings_VendorListOtherVendorForbidden(t *testing.T) {
	api := newTestAPI(t)
	owner, _ := api.addUser(t, "wes", model.RoleVendor)
	_, other := api.addUser(t, "xena", model.RoleVendor)

	resp := helpers.NewRequest(t, http.MethodGet, "/api/vendors/"+owner.ID+"/bookings").WithToken(other).Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusForbidden, model.ErrCodeForbidden)
}

func TestBookings_AdminReadsVendorBookings(t *testing.T) {
	api := newTestAPI(t)
	vendor, _ := api.addUser(t, "yuri", model.RoleVendor)
	_, admin := api.addUser(t, "zoe", model.RoleAdmin)

	resp := helpers.NewRequest(t, http.MethodGet, "/api/vendors/"+vendor.ID+"/bookings").WithToken(admin).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
}

// ============================================================================
// Menu
// ============================================================================

func menuPath(vendorID string, parts ...string) string {
	path := "/api/vendors/" + vendorID + "/menu"
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

// createSection creates a section through the API and returns it
func createSection(t *testing.T, api *testAPI, token, vendorID, name string) model.MenuSection {
	t.Helper()
	resp := helpers.NewRequest(t, http.MethodPost, menuPath(vendorID, "sections")).
		WithToken(token).
		WithBody(map[string]string{"name": name}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)
	var section model.MenuSection
	helpers.DecodeResponse(t, resp, &section)
	return section
}

// createItem creates an item through the API and returns it
func createItem(t *testing.T, api *testAPI, token, vendorID, sectionID string, body map[string]interface{}) model.MenuItem {
	t.Helper()
	resp := helpers.NewRequest(t, http.MethodPost, menuPath(vendorID, "sections", sectionID, "items")).
		WithToken(token).
		WithBody(body).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)
	var item model.MenuItem
	helpers.DecodeResponse(t, resp, &item)
	return item
}

func TestMenu_DeleteSectionRemovesItems(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "rosa", model.RoleVendor)
	_, orgToken := api.addUser(t, "sam", model.RoleOrganizer)

	section := createSection(t, api, token, vendor.ID, "Appetizers")
	item := createItem(t, api, token, vendor.ID, section.ID, map[string]interface{}{"name": "Hummus", "price": 20})
	if item.Price != 20 || item.SectionID != section.ID {
		t.Fatalf("unexpected item: %+v", item)
	}

	// Menus are readable by any authenticated identity; this read fills the cache
	resp := helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID)).WithToken(orgToken).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var menu []model.MenuSectionWithItems
	helpers.DecodeResponse(t, resp, &menu)
	if len(menu) != 1 || len(menu[0].Items) != 1 || menu[0].Items[0].Name != "Hummus" {
		t.Fatalf("unexpected menu: %+v", menu)
	}

	resp = helpers.NewRequest(t, http.MethodDelete, menuPath(vendor.ID, "sections", section.ID)).
		WithToken(token).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusNoContent)

	resp = helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID, "sections", section.ID, "items", item.ID)).
		WithToken(orgToken).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusNotFound, model.ErrCodeNotFound)

	resp = helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID, "sections", section.ID, "items")).
		WithToken(orgToken).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusNotFound, model.ErrCodeNotFound)

	resp = helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID)).WithToken(orgToken).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	if body := strings.TrimSpace(resp.Body.String()); body != "[]" {
		t.Errorf("expected an empty menu after the delete, got %s", body)
	}
	if n := api.menu.itemCount(); n != 0 {
		t.Errorf("expected no surviving items, got %d", n)
	}
}

func TestMenu_SectionRenameAndList(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "tara", model.RoleVendor)

	first := createSection(t, api, token, vendor.ID, "Mains")
	createSection(t, api, token, vendor.ID, "Desserts")

	resp := helpers.NewRequest(t, http.MethodPut, menuPath(vendor.ID, "sections", first.ID)).
		WithToken(token).
		WithBody(map[string]string{"name": "  Main Courses "}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	resp = helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID, "sections")).WithToken(token).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var sections []model.MenuSection
	helpers.DecodeResponse(t, resp, &sections)
	if len(sections) != 2 || sections[0].Name != "Main Courses" || sections[1].Name != "Desserts" {
		t.Errorf("unexpected sections: %+v", sections)
	}

	resp = helpers.NewRequest(t, http.MethodPost, menuPath(vendor.ID, "sections")).
		WithToken(token).
		WithBody(map[string]string{"name": "   "}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)
}

func TestMenu_MultipartStringPrice(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "uma", model.RoleVendor)
	section := createSection(t, api, token, vendor.ID, "Starters")

	resp := helpers.NewRequest(t, http.MethodPost, menuPath(vendor.ID, "sections", section.ID, "items")).
		WithToken(token).
		WithMultipart(
			map[string]string{"name": "Falafel", "price": "19.99"},
			map[string][]helpers.File{"image": {{Name: "falafel.png", Content: pngBytes(t)}}},
		).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusCreated)
	if !strings.Contains(resp.Body.String(), `"price":19.99`) {
		t.Errorf("expected a numeric price in %s", resp.Body.String())
	}

	var item model.MenuItem
	helpers.DecodeResponse(t, resp, &item)
	if item.Price != 19.99 {
		t.Errorf("expected price 19.99, got %v", item.Price)
	}
	if item.ImageURL == nil || !strings.HasPrefix(*item.ImageURL, "/api/uploads/") {
		t.Fatalf("expected a stored image url, got %v", item.ImageURL)
	}

	resp = helpers.NewRequest(t, http.MethodGet, *item.ImageURL).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	resp = helpers.NewRequest(t, http.MethodPut, menuPath(vendor.ID, "sections", section.ID, "items", item.ID)).
		WithToken(token).
		WithBody(map[string]interface{}{"price": "21.5"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	resp = helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID, "sections", section.ID, "items", item.ID)).
		WithToken(token).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var fetched model.MenuItem
	helpers.DecodeResponse(t, resp, &fetched)
	if fetched.Price != 21.5 || fetched.Name != "Falafel" {
		t.Errorf("unexpected item after update: %+v", fetched)
	}
}

func TestMenu_InvalidPriceCreatesNothing(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "vera", model.RoleVendor)
	section := createSection(t, api, token, vendor.ID, "Starters")
	path := menuPath(vendor.ID, "sections", section.ID, "items")

	resp := helpers.NewRequest(t, http.MethodPost, path).
		WithToken(token).
		WithBody(map[string]interface{}{"name": "Hummus", "price": "abc"}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)

	resp = helpers.NewRequest(t, http.MethodPost, path).
		WithToken(token).
		WithMultipart(map[string]string{"name": "Hummus", "price": "abc"}, nil).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)

	resp = helpers.NewRequest(t, http.MethodPost, path).
		WithToken(token).
		WithBody(map[string]interface{}{"name": "Hummus", "price": -1}).
		Do(api.router)
	helpers.AssertProblemDetails(t, resp, http.StatusBadRequest, model.ErrCodeInvalidInput)

	if n := api.menu.itemCount(); n != 0 {
		t.Errorf("expected no items after rejected creates, got %d", n)
	}
}

func TestMenu_NonOwnerWrites(t *testing.T) {
	api := newTestAPI(t)
	owner, ownerToken := api.addUser(t, "wren", model.RoleVendor)
	other, otherToken := api.addUser(t, "xena", model.RoleVendor)
	_, orgToken := api.addUser(t, "yuri", model.RoleOrganizer)

	section := createSection(t, api, ownerToken, owner.ID, "Starters")
	item := createItem(t, api, ownerToken, owner.ID, section.ID, map[string]interface{}{"name": "Hummus", "price": 20})

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
		wantCode   model.ErrorCode
	}{
		{"create section on another menu", http.MethodPost, menuPath(owner.ID, "sections"), otherToken,
			map[string]string{"name": "Mine"}, http.StatusForbidden, model.ErrCodeForbidden},
		{"rename another vendor's section", http.MethodPut, menuPath(owner.ID, "sections", section.ID), otherToken,
			map[string]string{"name": "Mine"}, http.StatusForbidden, model.ErrCodeForbidden},
		{"delete another vendor's section", http.MethodDelete, menuPath(owner.ID, "sections", section.ID), otherToken,
			nil, http.StatusForbidden, model.ErrCodeForbidden},
		{"update another vendor's item", http.MethodPut, menuPath(owner.ID, "sections", section.ID, "items", item.ID), otherToken,
			map[string]interface{}{"price": 1}, http.StatusForbidden, model.ErrCodeForbidden},
		{"delete another vendor's item", http.MethodDelete, menuPath(owner.ID, "sections", section.ID, "items", item.ID), otherToken,
			nil, http.StatusForbidden, model.ErrCodeForbidden},
		{"foreign section under own menu", http.MethodPost, menuPath(other.ID, "sections", section.ID, "items"), otherToken,
			map[string]interface{}{"name": "Stolen", "price": 1}, http.StatusNotFound, model.ErrCodeNotFound},
		{"foreign section rename under own menu", http.MethodPut, menuPath(other.ID, "sections", section.ID), otherToken,
			map[string]string{"name": "Mine"}, http.StatusNotFound, model.ErrCodeNotFound},
		{"organizer writes a menu", http.MethodPost, menuPath(owner.ID, "sections"), orgToken,
			map[string]string{"name": "Mine"}, http.StatusForbidden, model.ErrCodeWrongRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := helpers.NewRequest(t, tt.method, tt.path).WithToken(tt.token)
			if tt.body != nil {
				req = req.WithBody(tt.body)
			}
			helpers.AssertProblemDetails(t, req.Do(api.router), tt.wantStatus, tt.wantCode)
		})
	}

	resp := helpers.NewRequest(t, http.MethodGet, menuPath(owner.ID)).WithToken(ownerToken).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var menu []model.MenuSectionWithItems
	helpers.DecodeResponse(t, resp, &menu)
	if len(menu) != 1 || menu[0].Name != "Starters" || len(menu[0].Items) != 1 || menu[0].Items[0].Price != 20 {
		t.Errorf("owner's menu changed by non-owner writes: %+v", menu)
	}
}

func TestMenu_WriteInvalidatesCachedMenu(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "zoe", model.RoleVendor)
	section := createSection(t, api, token, vendor.ID, "Starters")

	resp := helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID)).WithToken(token).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	version, err := api.redis.Get(cache.VersionKey(vendor.ID))
	if err != nil {
		t.Fatalf("expected a menu version after the first write: %v", err)
	}
	if !api.redis.Exists(cache.MenuKey(vendor.ID, 1)) || version != "1" {
		t.Fatalf("expected the menu cached at version 1, version is %s", version)
	}

	createItem(t, api, token, vendor.ID, section.ID, map[string]interface{}{"name": "Olives", "price": 4})
	if api.redis.Exists(cache.MenuKey(vendor.ID, 1)) {
		t.Error("expected the item write to drop the cached menu")
	}

	resp = helpers.NewRequest(t, http.MethodGet, menuPath(vendor.ID)).WithToken(token).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)
	var menu []model.MenuSectionWithItems
	helpers.DecodeResponse(t, resp, &menu)
	if len(menu) != 1 || len(menu[0].Items) != 1 {
		t.Errorf("expected the new item in the menu, got %+v", menu)
	}
}

// ============================================================================
// Notifications, menu QR, health
// ============================================================================

func TestNotifications_SaveAndRemoveToken(t *testing.T) {
	api := newTestAPI(t)
	user, token := api.addUser(t, "abe", model.RoleOrganizer)

	resp := helpers.NewRequest(t, http.MethodPost, "/api/notifications/token").
		WithToken(token).
		WithBody(TokenRequest{Token: "fcm-abc"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	var msg MessageResponse
	helpers.DecodeResponse(t, resp, &msg)
	if msg.Message != "FCM token saved" {
		t.Errorf("unexpected message %q", msg.Message)
	}

	stored, _ := api.users.GetByID(context.Background(), user.ID)
	if !stored.HasFCMToken("fcm-abc") {
		t.Fatal("token not stored")
	}

	resp = helpers.NewRequest(t, http.MethodDelete, "/api/notifications/token").
		WithToken(token).
		WithBody(TokenRequest{Token: "fcm-abc"}).
		Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	stored, _ = api.users.GetByID(context.Background(), user.ID)
	if stored.HasFCMToken("fcm-abc") {
		t.Error("token not removed")
	}
}

func TestMenu_QRCode(t *testing.T) {
	api := newTestAPI(t)
	vendor, token := api.addUser(t, "bea", model.RoleVendor)

	resp := helpers.NewRequest(t, http.MethodGet, "/api/vendors/"+vendor.ID+"/menu/qr").WithToken(token).Do(api.router)
	helpers.AssertStatus(t, resp, http.StatusOK)

	if ct := resp.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if want := "https://fete.example/api/vendors/" + vendor.ID + "/menu"; api.qr.content != want {
		t.Errorf("expected qr content %s, got %s", want, api.qr.content)
	}
}

func TestHealth(t *testing.T) {
	ok := NewHealthHandler(fakePinger{})
	resp := helpers.NewRequest(t, http.MethodGet, "/health").Do(http.HandlerFunc(ok.Health))
	helpers.AssertStatus(t, resp, http.StatusOK)

	var body HealthResponse
	helpers.DecodeResponse(t, resp, &body)
	if body.Status != "ok" {
		t.Errorf("expected ok, got %s", body.Status)
	}

	down := NewHealthHandler(fakePinger{err: errors.New("connection refused")})
	resp = helpers.NewRequest(t, http.MethodGet, "/health").Do(http.HandlerFunc(down.Health))
	helpers.AssertProblemDetails(t, resp, http.StatusServiceUnavailable, model.ErrCodeDatabase)
}

// ============================================================================
// Error mapping
// ============================================================================

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   model.ErrorCode
		detail string
	}{
		{"validation", service.ErrInvalidPrice, http.StatusBadRequest, model.ErrCodeInvalidInput, "price must be a non-negative number"},
		{"login", service.ErrInvalidCredentials, http.StatusUnauthorized, model.ErrCodeLoginFailed, "invalid credentials"},
		{"token", service.ErrInvalidToken, http.StatusUnauthorized, model.ErrCodeTokenInvalid, "invalid token"},
		{"expired", service.ErrTokenExpired, http.StatusUnauthorized, model.ErrCodeTokenExpired, "token expired"},
		{"unauthenticated", service.ErrNotAuthenticated, http.StatusUnauthorized, model.ErrCodeUnauthorized, "authentication required"},
		{"wrong role", service.ErrWrongRole, http.StatusForbidden, model.ErrCodeWrongRole, "role not permitted for this action"},
		{"not owner", service.ErrNotOwner, http.StatusForbidden, model.ErrCodeForbidden, "not the owner of this resource"},
		{"not found", service.ErrSectionNotFound, http.StatusNotFound, model.ErrCodeNotFound, "section not found"},
		{"duplicate", service.ErrEmailAlreadyExists, http.StatusConflict, model.ErrCodeAlreadyExists, "email already registered"},
		{"stale", service.ErrEventModifiedTooOften, http.StatusConflict, model.ErrCodeStaleWrite, "event was modified concurrently, retry the request"},
		{"finalized", service.ErrBookingFinalized, http.StatusConflict, model.ErrCodeConflict, "booking already finalized"},
		{"database", fmt.Errorf("select: %w", database.ErrQuery), http.StatusInternalServerError, model.ErrCodeDatabase, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, model.ErrCodeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd := MapServiceError(tt.err)
			if pd.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, pd.Status)
			}
			if pd.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, pd.Code)
			}
			if tt.detail != "" && pd.Detail != tt.detail {
				t.Errorf("expected detail %q, got %q", tt.detail, pd.Detail)
			}
		})
	}

	if MapServiceError(nil) != nil {
		t.Error("nil error should map to nil")
	}
}
