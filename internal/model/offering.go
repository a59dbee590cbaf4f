package model

import "time"

// Offering is a vendor's bookable service or product
type Offering struct {
	ID          string    `json:"id"`
	VendorID    string    `json:"vendor_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Price       float64   `json:"price"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

// OfferingUpdate carries a partial offering update. A non-nil Images
// replaces the whole image list.
type OfferingUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	Images      []string
}

// Business constraints for offerings
const (
	MaxOfferingImages      = 5
	MaxOfferingTitleLength = 200
)
