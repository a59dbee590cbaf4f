package repository

import (
	"context"
	"strings"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
)

// OfferingRepository handles offering data access
type OfferingRepository struct {
	db database.Database
}

// NewOfferingRepository creates a new offering repository
func NewOfferingRepository(db database.Database) *OfferingRepository {
	return &OfferingRepository{db: db}
}

type offeringRecord struct {
	ID          string    `json:"id"`
	VendorID    string    `json:"vendor_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Price       float64   `json:"price"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

func (r *offeringRecord) toModel() *model.Offering {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return &model.Offering{
		ID:          r.ID,
		VendorID:    r.VendorID,
		Title:       r.Title,
		Description: r.Description,
		Images:      images,
		Price:       r.Price,
		CreatedOn:   r.CreatedOn,
		UpdatedOn:   r.UpdatedOn,
	}
}

// Create creates an offering
func (r *OfferingRepository) Create(ctx context.Context, offering *model.Offering) error {
	query := `
		CREATE offering CONTENT {
			vendor_id: $vendor_id,
			title: $title,
			description: $description,
			images: $images,
			price: $price,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	images := offering.Images
	if images == nil {
		images = []string{}
	}
	row, err := r.db.QueryOne(ctx, query, map[string]interface{}{
		"vendor_id":   offering.VendorID,
		"title":       offering.Title,
		"description": offering.Description,
		"images":      images,
		"price":       offering.Price,
	})
	if err != nil {
		return err
	}
	created, err := decodeRecord[offeringRecord](row)
	if err != nil {
		return err
	}
	offering.ID = created.ID
	offering.Images = images
	offering.CreatedOn = created.CreatedOn
	offering.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID returns an offering regardless of vendor
func (r *OfferingRepository) GetByID(ctx context.Context, id string) (*model.Offering, error) {
	ref, ok := recordRef(tableOffering, id)
	if !ok {
		return nil, nil
	}
	rec, err := queryOne[offeringRecord](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": ref})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// GetOwned returns an offering only if it belongs to vendorID
func (r *OfferingRepository) GetOwned(ctx context.Context, vendorID, id string) (*model.Offering, error) {
	ref, ok := recordRef(tableOffering, id)
	if !ok {
		return nil, nil
	}
	query := `SELECT * FROM type::record($id) WHERE vendor_id = $vendor_id`
	rec, err := queryOne[offeringRecord](ctx, r.db, query, map[string]interface{}{
		"id":        ref,
		"vendor_id": vendorID,
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// ListByVendor returns a vendor's offerings, newest first
func (r *OfferingRepository) ListByVendor(ctx context.Context, vendorID string) ([]*model.Offering, error) {
	query := `SELECT * FROM offering WHERE vendor_id = $vendor_id ORDER BY created_on DESC`
	recs, err := queryMany[offeringRecord](ctx, r.db, query, map[string]interface{}{"vendor_id": vendorID})
	if err != nil {
		return nil, err
	}
	offerings := make([]*model.Offering, 0, len(recs))
	for _, rec := range recs {
		offerings = append(offerings, rec.toModel())
	}
	return offerings, nil
}

// Update applies a partial update scoped to vendorID. Returns (nil, nil) when
// nothing matched.
func (r *OfferingRepository) Update(ctx context.Context, vendorID, id string, update model.OfferingUpdate) (*model.Offering, error) {
	ref, ok := recordRef(tableOffering, id)
	if !ok {
		return nil, nil
	}

	sets := []string{"updated_on = time::now()"}
	vars := map[string]interface{}{
		"id":        ref,
		"vendor_id": vendorID,
	}
	if update.Title != nil {
		sets = append(sets, "title = $title")
		vars["title"] = *update.Title
	}
	if update.Description != nil {
		sets = append(sets, "description = $description")
		vars["description"] = *update.Description
	}
	if update.Price != nil {
		sets = append(sets, "price = $price")
		vars["price"] = *update.Price
	}
	if update.Images != nil {
		sets = append(sets, "images = $images")
		vars["images"] = update.Images
	}

	query := `UPDATE type::record($id) SET ` + strings.Join(sets, ", ") +
		` WHERE vendor_id = $vendor_id RETURN AFTER`

	rec, err := queryOne[offeringRecord](ctx, r.db, query, vars)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// Delete removes an offering scoped to vendorID. Returns the deleted
// offering, or nil when nothing matched.
func (r *OfferingRepository) Delete(ctx context.Context, vendorID, id string) (*model.Offering, error) {
	ref, ok := recordRef(tableOffering, id)
	if !ok {
		return nil, nil
	}
	query := `DELETE type::record($id) WHERE vendor_id = $vendor_id RETURN BEFORE`
	rec, err := queryOne[offeringRecord](ctx, r.db, query, map[string]interface{}{
		"id":        ref,
		"vendor_id": vendorID,
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}
