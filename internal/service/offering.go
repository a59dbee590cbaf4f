package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/storage"
)

// OfferingRepository defines the interface for offering storage
type OfferingRepository interface {
	Create(ctx context.Context, offering *model.Offering) error
	GetOwned(ctx context.Context, vendorID, id string) (*model.Offering, error)
	ListByVendor(ctx context.Context, vendorID string) ([]*model.Offering, error)
	Update(ctx context.Context, vendorID, id string, update model.OfferingUpdate) (*model.Offering, error)
	Delete(ctx context.Context, vendorID, id string) (*model.Offering, error)
}

// OfferingService manages a vendor's bookable offerings
type OfferingService struct {
	repo  OfferingRepository
	blobs BlobStore
	guard *Guard
}

// NewOfferingService creates a new offering service
func NewOfferingService(repo OfferingRepository, blobs BlobStore, guard *Guard) *OfferingService {
	return &OfferingService{
		repo:  repo,
		blobs: blobs,
		guard: guard,
	}
}

// CreateOfferingInput carries a new offering. Price is a number or numeric string.
type CreateOfferingInput struct {
	Title       string
	Description *string
	Price       interface{}
	Images      []*Upload
}

// UpdateOfferingInput carries a partial update. Non-empty Images replace the
// stored image list.
type UpdateOfferingInput struct {
	Title       *string
	Description *string
	Price       interface{}
	Images      []*Upload
}

// CreateOffering publishes a new offering for the caller
func (s *OfferingService) CreateOffering(ctx context.Context, caller *model.Identity, vendorID string, in CreateOfferingInput) (*model.Offering, error) {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return nil, err
	}

	title, err := validateOfferingTitle(in.Title)
	if err != nil {
		return nil, err
	}
	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if len(in.Images) > model.MaxOfferingImages {
		return nil, ErrTooManyImages
	}
	description := ""
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
	}
	if utf8.RuneCountInString(description) > model.MaxDescriptionLength {
		return nil, ErrItemDescriptionTooLong
	}

	images, err := storeImages(ctx, s.blobs, storage.ClassOffering, in.Images)
	if err != nil {
		return nil, err
	}

	offering := &model.Offering{
		VendorID:    vendorID,
		Title:       title,
		Description: description,
		Images:      images,
		Price:       price,
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		discardImages(ctx, s.blobs, images...)
		return nil, err
	}
	return offering, nil
}

// UpdateOffering applies a partial update to one of the caller's offerings
func (s *OfferingService) UpdateOffering(ctx context.Context, caller *model.Identity, vendorID, offeringID string, in UpdateOfferingInput) (*model.Offering, error) {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetOwned(ctx, vendorID, offeringID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrOfferingNotFound
	}

	var update model.OfferingUpdate
	if in.Title != nil {
		title, err := validateOfferingTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(description) > model.MaxDescriptionLength {
			return nil, ErrItemDescriptionTooLong
		}
		update.Description = &description
	}
	if in.Price != nil {
		price, err := ParsePrice(in.Price)
		if err != nil {
			return nil, err
		}
		update.Price = &price
	}
	if len(in.Images) > model.MaxOfferingImages {
		return nil, ErrTooManyImages
	}
	if len(in.Images) > 0 {
		images, err := storeImages(ctx, s.blobs, storage.ClassOffering, in.Images)
		if err != nil {
			return nil, err
		}
		update.Images = images
	}

	offering, err := s.repo.Update(ctx, vendorID, existing.ID, update)
	if err != nil || offering == nil {
		discardImages(ctx, s.blobs, update.Images...)
		if err != nil {
			return nil, err
		}
		return nil, ErrOfferingNotFound
	}

	if update.Images != nil {
		discardImages(ctx, s.blobs, replacedImages(existing.Images, update.Images)...)
	}
	return offering, nil
}

// DeleteOffering removes one of the caller's offerings
func (s *OfferingService) DeleteOffering(ctx context.Context, caller *model.Identity, vendorID, offeringID string) error {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, vendorID, offeringID)
	if err != nil {
		return err
	}
	if deleted == nil {
		return ErrOfferingNotFound
	}
	discardImages(ctx, s.blobs, deleted.Images...)
	return nil
}

// ListOfferings returns a vendor's offerings
func (s *OfferingService) ListOfferings(ctx context.Context, vendorID string) ([]*model.Offering, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

// GetOffering returns one offering of a vendor
func (s *OfferingService) GetOffering(ctx context.Context, vendorID, offeringID string) (*model.Offering, error) {
	offering, err := s.repo.GetOwned(ctx, vendorID, offeringID)
	if err != nil {
		return nil, err
	}
	if offering == nil {
		return nil, ErrOfferingNotFound
	}
	return offering, nil
}

func (s *OfferingService) authorizeWrite(caller *model.Identity, vendorID string) error {
	return s.guard.Authorize(caller, Resource{
		Kind:         "offering",
		OwnerID:      vendorID,
		RequiredRole: model.RoleVendor,
		Access:       AccessWrite,
	})
}

func validateOfferingTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrOfferingTitleRequired
	}
	if utf8.RuneCountInString(title) > model.MaxOfferingTitleLength {
		return "", ErrOfferingTitleTooLong
	}
	return title, nil
}

// replacedImages returns the old images no longer referenced by current
func replacedImages(old, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, url := range current {
		keep[url] = struct{}{}
	}
	var out []string
	for _, url := range old {
		if _, ok := keep[url]; !ok {
			out = append(out, url)
		}
	}
	return out
}
