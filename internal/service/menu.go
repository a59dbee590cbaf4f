package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/forgo/fete/api/internal/events"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/storage"
)

// MenuRepository defines the interface for menu storage
type MenuRepository interface {
	CreateSection(ctx context.Context, section *model.MenuSection) error
	GetSection(ctx context.Context, vendorID, sectionID string) (*model.MenuSection, error)
	ListSections(ctx context.Context, vendorID string) ([]*model.MenuSection, error)
	RenameSection(ctx context.Context, vendorID, sectionID, name string) (*model.MenuSection, error)
	DeleteSectionCascade(ctx context.Context, vendorID, sectionID string) error
	CreateItem(ctx context.Context, item *model.MenuItem) error
	GetItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error)
	ListItems(ctx context.Context, vendorID, sectionID string) ([]*model.MenuItem, error)
	GetFullMenu(ctx context.Context, vendorID string) ([]*model.MenuSectionWithItems, error)
	UpdateItem(ctx context.Context, vendorID, sectionID, itemID string, update model.MenuItemUpdate) (*model.MenuItem, error)
	DeleteItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error)
}

// MenuCache caches a vendor's assembled menu. Snapshots are tagged with the
// menu version they were read under; Invalidate moves the version on, and
// Set refuses a snapshot whose version is no longer current.
type MenuCache interface {
	Version(ctx context.Context, vendorID string) (int64, error)
	Get(ctx context.Context, vendorID string, version int64) ([]*model.MenuSectionWithItems, bool, error)
	Set(ctx context.Context, vendorID string, version int64, menu []*model.MenuSectionWithItems) (bool, error)
	Invalidate(ctx context.Context, vendorID string) error
}

// MenuService manages the vendor -> section -> item hierarchy
type MenuService struct {
	repo      MenuRepository
	cache     MenuCache
	blobs     BlobStore
	publisher events.Publisher
	guard     *Guard
}

// MenuServiceConfig holds the dependencies of the menu service.
// Cache and Publisher are optional.
type MenuServiceConfig struct {
	Repo      MenuRepository
	Cache     MenuCache
	Blobs     BlobStore
	Publisher events.Publisher
	Guard     *Guard
}

// NewMenuService creates a new menu service
func NewMenuService(cfg MenuServiceConfig) *MenuService {
	return &MenuService{
		repo:      cfg.Repo,
		cache:     cfg.Cache,
		blobs:     cfg.Blobs,
		publisher: cfg.Publisher,
		guard:     cfg.Guard,
	}
}

// CreateItemInput carries a new menu item. Price is a number or numeric string.
type CreateItemInput struct {
	Name        string
	Description *string
	Price       interface{}
	Image       *Upload
}

// UpdateItemInput carries a partial item update. Nil fields are unchanged.
type UpdateItemInput struct {
	Name        *string
	Description *string
	Price       interface{}
	Image       *Upload
}

// ============================================================================
// Sections
// ============================================================================

// CreateSection adds a section to the caller's own menu
func (s *MenuService) CreateSection(ctx context.Context, caller *model.Identity, vendorID, name string) (*model.MenuSection, error) {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return nil, err
	}
	name, err := validateSectionName(name)
	if err != nil {
		return nil, err
	}

	section := &model.MenuSection{VendorID: vendorID, Name: name}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, err
	}
	s.invalidate(ctx, vendorID)
	return section, nil
}

// UpdateSection renames a section. A nil name leaves it unchanged.
func (s *MenuService) UpdateSection(ctx context.Context, caller *model.Identity, vendorID, sectionID string, name *string) (*model.MenuSection, error) {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return nil, err
	}
	if name == nil {
		return s.requireSection(ctx, vendorID, sectionID)
	}
	validated, err := validateSectionName(*name)
	if err != nil {
		return nil, err
	}

	section, err := s.repo.RenameSection(ctx, vendorID, sectionID, validated)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, ErrSectionNotFound
	}
	s.invalidate(ctx, vendorID)
	return section, nil
}

// DeleteSection removes a section and every item in it atomically
func (s *MenuService) DeleteSection(ctx context.Context, caller *model.Identity, vendorID, sectionID string) error {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return err
	}
	section, err := s.requireSection(ctx, vendorID, sectionID)
	if err != nil {
		return err
	}

	items, err := s.repo.ListItems(ctx, vendorID, section.ID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSectionCascade(ctx, vendorID, section.ID); err != nil {
		return err
	}
	s.invalidate(ctx, vendorID)

	images := make([]string, 0, len(items))
	for _, item := range items {
		if item.ImageURL != nil {
			images = append(images, *item.ImageURL)
		}
	}
	discardImages(ctx, s.blobs, images...)

	publish(ctx, s.publisher, events.New(events.TypeMenuSectionDeleted, vendorID, map[string]interface{}{
		"vendor_id":     vendorID,
		"section_id":    section.ID,
		"items_deleted": len(items),
	}))
	return nil
}

// ListSections returns a vendor's sections in creation order
func (s *MenuService) ListSections(ctx context.Context, vendorID string) ([]*model.MenuSection, error) {
	return s.repo.ListSections(ctx, vendorID)
}

// ============================================================================
// Items
// ============================================================================

// CreateItem adds an item to a section of the caller's own menu. The image,
// if any, is stored before the record and removed again if the record write
// fails.
func (s *MenuService) CreateItem(ctx context.Context, caller *model.Identity, vendorID, sectionID string, in CreateItemInput) (*model.MenuItem, error) {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return nil, err
	}
	section, err := s.requireSection(ctx, vendorID, sectionID)
	if err != nil {
		return nil, err
	}

	name, err := validateItemName(in.Name)
	if err != nil {
		return nil, err
	}
	description, err := validateDescription(in.Description)
	if err != nil {
		return nil, err
	}
	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	item := &model.MenuItem{
		SectionID:   section.ID,
		VendorID:    vendorID,
		Name:        name,
		Description: description,
		Price:       price,
	}

	if in.Image != nil {
		url, err := storeImage(ctx, s.blobs, storage.ClassMenu, in.Image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = &url
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		if item.ImageURL != nil {
			discardImages(ctx, s.blobs, *item.ImageURL)
		}
		return nil, err
	}
	s.invalidate(ctx, vendorID)
	return item, nil
}

// UpdateItem applies a partial update to an item of the caller's own menu
func (s *MenuService) UpdateItem(ctx context.Context, caller *model.Identity, vendorID, sectionID, itemID string, in UpdateItemInput) (*model.MenuItem, error) {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return nil, err
	}
	section, err := s.requireSection(ctx, vendorID, sectionID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetItem(ctx, vendorID, section.ID, itemID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrItemNotFound
	}

	var update model.MenuItemUpdate
	if in.Name != nil {
		name, err := validateItemName(*in.Name)
		if err != nil {
			return nil, err
		}
		update.Name = &name
	}
	if in.Description != nil {
		description, err := validateDescription(in.Description)
		if err != nil {
			return nil, err
		}
		update.Description = description
	}
	if in.Price != nil {
		price, err := ParsePrice(in.Price)
		if err != nil {
			return nil, err
		}
		update.Price = &price
	}
	if in.Image != nil {
		url, err := storeImage(ctx, s.blobs, storage.ClassMenu, in.Image)
		if err != nil {
			return nil, err
		}
		update.ImageURL = &url
	}

	item, err := s.repo.UpdateItem(ctx, vendorID, section.ID, existing.ID, update)
	if err != nil || item == nil {
		if update.ImageURL != nil {
			discardImages(ctx, s.blobs, *update.ImageURL)
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrItemNotFound
	}

	if update.ImageURL != nil && existing.ImageURL != nil && *existing.ImageURL != *update.ImageURL {
		discardImages(ctx, s.blobs, *existing.ImageURL)
	}
	s.invalidate(ctx, vendorID)
	return item, nil
}

// DeleteItem removes an item from the caller's own menu
func (s *MenuService) DeleteItem(ctx context.Context, caller *model.Identity, vendorID, sectionID, itemID string) error {
	if err := s.authorizeWrite(caller, vendorID); err != nil {
		return err
	}
	section, err := s.requireSection(ctx, vendorID, sectionID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteItem(ctx, vendorID, section.ID, itemID)
	if err != nil {
		return err
	}
	if deleted == nil {
		return ErrItemNotFound
	}
	if deleted.ImageURL != nil {
		discardImages(ctx, s.blobs, *deleted.ImageURL)
	}
	s.invalidate(ctx, vendorID)
	return nil
}

// GetItem returns one item of a vendor's section
func (s *MenuService) GetItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error) {
	section, err := s.requireSection(ctx, vendorID, sectionID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.GetItem(ctx, vendorID, section.ID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// ListItems returns the items of a vendor's section in creation order
func (s *MenuService) ListItems(ctx context.Context, vendorID, sectionID string) ([]*model.MenuItem, error) {
	section, err := s.requireSection(ctx, vendorID, sectionID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, vendorID, section.ID)
}

// GetFullMenu returns every section of a vendor with its items nested, both
// in creation order. The menu version is read before the store so a write
// landing mid-read keeps this result out of the cache.
func (s *MenuService) GetFullMenu(ctx context.Context, vendorID string) ([]*model.MenuSectionWithItems, error) {
	var version int64
	cacheable := false
	if s.cache != nil {
		v, err := s.cache.Version(ctx, vendorID)
		if err != nil {
			slog.Warn("menu cache version read failed", slog.String("vendor_id", vendorID), slog.String("error", err.Error()))
		} else {
			version, cacheable = v, true
			menu, ok, err := s.cache.Get(ctx, vendorID, version)
			if err != nil {
				slog.Warn("menu cache read failed", slog.String("vendor_id", vendorID), slog.String("error", err.Error()))
			} else if ok {
				return menu, nil
			}
		}
	}

	menu, err := s.repo.GetFullMenu(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, vendorID, version, menu)
		if err != nil {
			slog.Warn("menu cache write failed", slog.String("vendor_id", vendorID), slog.String("error", err.Error()))
		} else if !stored {
			slog.Debug("menu changed while loading, not cached", slog.String("vendor_id", vendorID))
		}
	}
	return menu, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *MenuService) authorizeWrite(caller *model.Identity, vendorID string) error {
	return s.guard.Authorize(caller, Resource{
		Kind:         "menu",
		OwnerID:      vendorID,
		RequiredRole: model.RoleVendor,
		Access:       AccessWrite,
	})
}

func (s *MenuService) requireSection(ctx context.Context, vendorID, sectionID string) (*model.MenuSection, error) {
	section, err := s.repo.GetSection(ctx, vendorID, sectionID)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, ErrSectionNotFound
	}
	return section, nil
}

func (s *MenuService) invalidate(ctx context.Context, vendorID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, vendorID); err != nil {
		slog.Warn("menu cache invalidation failed", slog.String("vendor_id", vendorID), slog.String("error", err.Error()))
	}
}

func validateSectionName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrSectionNameRequired
	}
	if utf8.RuneCountInString(name) > model.MaxSectionNameLength {
		return "", ErrSectionNameTooLong
	}
	return name, nil
}

func validateItemName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrItemNameRequired
	}
	if utf8.RuneCountInString(name) > model.MaxItemNameLength {
		return "", ErrItemNameTooLong
	}
	return name, nil
}

func validateDescription(description *string) (*string, error) {
	description = trimmedPtr(description)
	if description != nil && utf8.RuneCountInString(*description) > model.MaxDescriptionLength {
		return nil, ErrItemDescriptionTooLong
	}
	return description, nil
}
