package handler

import (
	"net/http"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
)

// RouterConfig holds everything the API routes are built from
type RouterConfig struct {
	Auth         *AuthHandler
	Events       *EventHandler
	Vendors      *VendorHandler
	Menu         *MenuHandler
	Offerings    *OfferingHandler
	Bookings     *BookingHandler
	Notification *NotificationHandler
	Health       *HealthHandler
	Uploads      http.Handler

	Resolver    middleware.IdentityResolver
	Idempotency middleware.IdempotencyStore
	// UploadsPrefix is the public path uploads are served from, e.g. /api/uploads
	UploadsPrefix string
}

// NewRouter registers every API route on a new ServeMux
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	authed := middleware.Auth(cfg.Resolver)
	protect := func(h http.HandlerFunc, roles ...model.Role) http.Handler {
		if len(roles) == 0 {
			return authed(h)
		}
		return middleware.Chain(h, authed, middleware.RequireRole(roles...))
	}
	organizer := []model.Role{model.RoleOrganizer}
	vendor := []model.Role{model.RoleVendor}

	// Health check endpoint
	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.Health)
	}

	// Auth endpoints
	mux.HandleFunc("POST /api/auth/register", cfg.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", cfg.Auth.Login)
	mux.Handle("GET /api/auth/me", protect(cfg.Auth.Me))
	mux.Handle("PUT /api/auth/me", protect(cfg.Auth.UpdateMe))

	// Event endpoints (organizer)
	mux.Handle("POST /api/events", protect(cfg.Events.CreateEvent, organizer...))
	mux.Handle("GET /api/events", protect(cfg.Events.ListEvents, organizer...))
	mux.Handle("GET /api/events/{eventId}", protect(cfg.Events.GetEvent, organizer...))
	mux.Handle("PUT /api/events/{eventId}", protect(cfg.Events.UpdateEvent, organizer...))
	mux.Handle("DELETE /api/events/{eventId}", protect(cfg.Events.DeleteEvent, organizer...))
	mux.Handle("POST /api/events/{eventId}/guests", protect(cfg.Events.AddGuest, organizer...))
	mux.Handle("PUT /api/events/{eventId}/guests/{guestId}", protect(cfg.Events.UpdateGuestStatus, organizer...))

	// Vendor directory
	mux.Handle("GET /api/vendors", protect(cfg.Vendors.ListVendors))
	mux.Handle("PUT /api/vendors/{vendorId}/location", protect(cfg.Vendors.UpdateLocation, vendor...))

	// Menu endpoints: reads open to any identity, writes ownership-checked in the service
	mux.Handle("GET /api/vendors/{vendorId}/menu", protect(cfg.Menu.GetMenu))
	mux.Handle("GET /api/vendors/{vendorId}/menu/qr", protect(cfg.Menu.GetMenuQR))
	mux.Handle("GET /api/vendors/{vendorId}/menu/sections", protect(cfg.Menu.ListSections))
	mux.Handle("POST /api/vendors/{vendorId}/menu/sections", protect(cfg.Menu.CreateSection))
	mux.Handle("PUT /api/vendors/{vendorId}/menu/sections/{sectionId}", protect(cfg.Menu.UpdateSection))
	mux.Handle("DELETE /api/vendors/{vendorId}/menu/sections/{sectionId}", protect(cfg.Menu.DeleteSection))
	mux.Handle("GET /api/vendors/{vendorId}/menu/sections/{sectionId}/items", protect(cfg.Menu.ListItems))
	mux.Handle("POST /api/vendors/{vendorId}/menu/sections/{sectionId}/items", protect(cfg.Menu.CreateItem))
	mux.Handle("GET /api/vendors/{vendorId}/menu/sections/{sectionId}/items/{itemId}", protect(cfg.Menu.GetItem))
	mux.Handle("PUT /api/vendors/{vendorId}/menu/sections/{sectionId}/items/{itemId}", protect(cfg.Menu.UpdateItem))
	mux.Handle("DELETE /api/vendors/{vendorId}/menu/sections/{sectionId}/items/{itemId}", protect(cfg.Menu.DeleteItem))

	// Offering endpoints
	mux.Handle("GET /api/vendors/{vendorId}/offerings", protect(cfg.Offerings.ListOfferings))
	mux.Handle("POST /api/vendors/{vendorId}/offerings", protect(cfg.Offerings.CreateOffering, vendor...))
	mux.Handle("GET /api/vendors/{vendorId}/offerings/{offeringId}", protect(cfg.Offerings.GetOffering))
	mux.Handle("PUT /api/vendors/{vendorId}/offerings/{offeringId}", protect(cfg.Offerings.UpdateOffering, vendor...))
	mux.Handle("DELETE /api/vendors/{vendorId}/offerings/{offeringId}", protect(cfg.Offerings.DeleteOffering, vendor...))

	// Booking endpoints
	createBooking := http.Handler(http.HandlerFunc(cfg.Bookings.CreateBooking))
	if cfg.Idempotency != nil {
		createBooking = middleware.Idempotency(cfg.Idempotency)(createBooking)
	}
	mux.Handle("POST /api/bookings", middleware.Chain(createBooking, authed, middleware.RequireRole(organizer...)))
	mux.Handle("GET /api/bookings", protect(cfg.Bookings.ListEventBookings, model.RoleOrganizer, model.RoleAdmin))
	mux.Handle("PUT /api/bookings/{bookingId}/status", protect(cfg.Bookings.UpdateStatus, vendor...))
	mux.Handle("GET /api/vendors/{vendorId}/bookings", protect(cfg.Bookings.ListVendorBookings, model.RoleVendor, model.RoleAdmin))

	// Push notification tokens
	mux.Handle("POST /api/notifications/token", protect(cfg.Notification.SaveToken))
	mux.Handle("DELETE /api/notifications/token", protect(cfg.Notification.RemoveToken))

	// Stored images (public)
	if cfg.Uploads != nil {
		prefix := cfg.UploadsPrefix
		if prefix == "" {
			prefix = "/api/uploads"
		}
		mux.Handle("GET "+prefix+"/", cfg.Uploads)
	}

	return mux
}
