package service

import (
	"context"
	"math"
	"sort"

	"github.com/forgo/fete/api/internal/model"
)

// VendorRepository defines the identity storage the vendor directory needs
type VendorRepository interface {
	GetByID(ctx context.Context, id string) (*model.Identity, error)
	ListVendors(ctx context.Context) ([]*model.Identity, error)
	ListVendorsInBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]*model.Identity, error)
	SetVendorProfile(ctx context.Context, userID string, profile *model.VendorProfile) error
}

// VendorService handles the vendor directory and vendor locations
type VendorService struct {
	repo  VendorRepository
	geo   *GeoService
	guard *Guard
}

// NewVendorService creates a new vendor service
func NewVendorService(repo VendorRepository, geo *GeoService, guard *Guard) *VendorService {
	return &VendorService{
		repo:  repo,
		geo:   geo,
		guard: guard,
	}
}

// ListVendors returns the vendor directory. Without a filter every vendor is
// returned by name. With a filter only located vendors inside the radius are
// returned, nearest first.
func (s *VendorService) ListVendors(ctx context.Context, filter *model.VendorFilter) ([]*model.VendorSummary, error) {
	if filter == nil {
		vendors, err := s.repo.ListVendors(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*model.VendorSummary, 0, len(vendors))
		for _, v := range vendors {
			out = append(out, toVendorSummary(v, nil))
		}
		return out, nil
	}

	center := model.GeoPoint{Longitude: filter.Longitude, Latitude: filter.Latitude}
	if !center.IsValid() {
		return nil, ErrInvalidCoordinates
	}
	radius := filter.RadiusKm
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, ErrInvalidRadius
	}
	if radius <= 0 {
		radius = model.DefaultSearchRadiusKm
	}
	if radius > MaxSearchRadiusKm {
		radius = MaxSearchRadiusKm
	}

	box := s.geo.GetBoundingBox(center.Latitude, center.Longitude, radius)
	candidates, err := s.repo.ListVendorsInBox(ctx, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, err
	}

	out := make([]*model.VendorSummary, 0, len(candidates))
	for _, v := range candidates {
		if v.VendorProfile == nil || v.VendorProfile.Location == nil {
			continue
		}
		d := s.geo.DistanceBetween(&center, v.VendorProfile.Location)
		if d < 0 || d > radius {
			continue
		}
		out = append(out, toVendorSummary(v, &d))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceKm < *out[j].DistanceKm
	})
	return out, nil
}

// UpdateLocation sets the caller's own vendor location. A missing profile is
// created with the placeholder service type.
func (s *VendorService) UpdateLocation(ctx context.Context, caller *model.Identity, vendorID string, lng, lat float64) (*model.VendorProfile, error) {
	if err := s.guard.Authorize(caller, Resource{
		Kind:         "vendor",
		OwnerID:      vendorID,
		RequiredRole: model.RoleVendor,
		Access:       AccessWrite,
	}); err != nil {
		return nil, err
	}

	point := model.GeoPoint{Longitude: lng, Latitude: lat}
	if !point.IsValid() {
		return nil, ErrInvalidCoordinates
	}

	vendor, err := s.repo.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, ErrVendorNotFound
	}

	profile := &model.VendorProfile{ServiceType: model.PlaceholderServiceType}
	if vendor.VendorProfile != nil {
		copied := *vendor.VendorProfile
		profile = &copied
	}
	profile.Location = &point

	if err := s.repo.SetVendorProfile(ctx, vendor.ID, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func toVendorSummary(v *model.Identity, distanceKm *float64) *model.VendorSummary {
	return &model.VendorSummary{
		ID:            v.ID,
		Name:          v.Name,
		VendorProfile: v.VendorProfile,
		DistanceKm:    distanceKm,
	}
}
