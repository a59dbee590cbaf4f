package model

import "time"

// MenuSection groups menu items of a vendor
type MenuSection struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendor_id"`
	Name      string    `json:"name"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// MenuItem is a dish within a section. VendorID mirrors the section's owner.
type MenuItem struct {
	ID          string    `json:"id"`
	SectionID   string    `json:"section_id"`
	VendorID    string    `json:"vendor_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

// MenuItemUpdate carries a partial item update. Nil fields are left unchanged.
type MenuItemUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	ImageURL    *string
}

// MenuSectionWithItems is one entry of a vendor's full menu
type MenuSectionWithItems struct {
	MenuSection
	Items []*MenuItem `json:"items"`
}

// Validation constraints for menus
const (
	MaxSectionNameLength = 100
	MaxItemNameLength    = 150
	MaxDescriptionLength = 2000
)
