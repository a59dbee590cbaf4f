package model

import (
	"math"
	"time"
)

// Role is the marketplace role of an identity
type Role string

const (
	RoleOrganizer Role = "organizer" // Creates events and books offerings
	RoleVendor    Role = "vendor"    // Publishes offerings and menus
	RoleAdmin     Role = "admin"     // Read-only oversight of owner-scoped collections
)

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleOrganizer, RoleVendor, RoleAdmin:
		return true
	default:
		return false
	}
}

// ServiceType classifies what a vendor offers
type ServiceType string

const (
	ServiceDecorator        ServiceType = "decorator"
	ServiceInteriorDesigner ServiceType = "interior_designer"
	ServiceFurnitureStore   ServiceType = "furniture_store"
	ServicePhotographer     ServiceType = "photographer"
	ServiceRestaurant       ServiceType = "restaurant"
	ServiceGiftShop         ServiceType = "gift_shop"
	ServiceEntertainer      ServiceType = "entertainer"
	ServiceUnknown          ServiceType = "unknown"
)

// PlaceholderServiceType is assigned when a vendor profile has to be created
// on the fly, e.g. by a location update for an account predating profiles.
const PlaceholderServiceType = ServiceInteriorDesigner

// IsValid returns true if the service type is known
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceDecorator, ServiceInteriorDesigner, ServiceFurnitureStore,
		ServicePhotographer, ServiceRestaurant, ServiceGiftShop,
		ServiceEntertainer, ServiceUnknown:
		return true
	default:
		return false
	}
}

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// IsValid returns true if the point lies on the globe
func (p GeoPoint) IsValid() bool {
	if math.IsNaN(p.Longitude) || math.IsNaN(p.Latitude) {
		return false
	}
	return p.Longitude >= -180 && p.Longitude <= 180 &&
		p.Latitude >= -90 && p.Latitude <= 90
}

// VendorProfile is the vendor-specific extension of an identity
type VendorProfile struct {
	ServiceType ServiceType `json:"service_type"`
	Bio         *string     `json:"bio,omitempty"`
	Location    *GeoPoint   `json:"location,omitempty"`
}

// Identity is a marketplace account
type Identity struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"`
	Role          Role           `json:"role"`
	Phone         string         `json:"phone"`
	AvatarURL     *string        `json:"avatar_url"`
	VendorProfile *VendorProfile `json:"vendor_profile"`
	FCMTokens     []string       `json:"-"`
	Version       int            `json:"-"`
	CreatedOn     time.Time      `json:"created_on"`
	UpdatedOn     time.Time      `json:"updated_on"`
}

// HasRole returns true if the identity holds the given role
func (i *Identity) HasRole(role Role) bool {
	return i != nil && i.Role == role
}

// IsAdmin returns true if the identity has the admin role
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// IsVendor returns true if the identity has the vendor role
func (i *Identity) IsVendor() bool {
	return i.HasRole(RoleVendor)
}

// HasFCMToken reports whether the token is already registered
func (i *Identity) HasFCMToken(token string) bool {
	for _, t := range i.FCMTokens {
		if t == token {
			return true
		}
	}
	return false
}

// VendorSummary is the public directory view of a vendor
type VendorSummary struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	VendorProfile *VendorProfile `json:"vendor_profile"`
	DistanceKm    *float64       `json:"distance_km,omitempty"`
}

// VendorFilter narrows the directory to a radius around a point
type VendorFilter struct {
	Longitude float64
	Latitude  float64
	RadiusKm  float64
}

// Validation constraints for identities
const (
	MaxNameLength  = 100
	MaxPhoneLength = 32
	MaxBioLength   = 1000
	MaxFCMTokenLen = 4096

	// DefaultSearchRadiusKm applies when coordinates are given without a radius
	DefaultSearchRadiusKm = 10.0
)
