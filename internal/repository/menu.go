package repository

import (
	"context"
	"strings"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
)

// MenuRepository handles menu sections and items. Writes always filter on
// vendor_id so a caller can only touch rows of the vendor in the path.
type MenuRepository struct {
	db database.Database
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db database.Database) *MenuRepository {
	return &MenuRepository{db: db}
}

type menuSectionRecord struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendor_id"`
	Name      string    `json:"name"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

func (r *menuSectionRecord) toModel() *model.MenuSection {
	return &model.MenuSection{
		ID:        r.ID,
		VendorID:  r.VendorID,
		Name:      r.Name,
		CreatedOn: r.CreatedOn,
		UpdatedOn: r.UpdatedOn,
	}
}

type menuSectionWithItemsRecord struct {
	menuSectionRecord
	Items []menuItemRecord `json:"items"`
}

type menuItemRecord struct {
	ID          string    `json:"id"`
	SectionID   string    `json:"section_id"`
	VendorID    string    `json:"vendor_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

func (r *menuItemRecord) toModel() *model.MenuItem {
	return &model.MenuItem{
		ID:          r.ID,
		SectionID:   r.SectionID,
		VendorID:    r.VendorID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		CreatedOn:   r.CreatedOn,
		UpdatedOn:   r.UpdatedOn,
	}
}

// ============================================================================
// Sections
// ============================================================================

// CreateSection creates a menu section
func (r *MenuRepository) CreateSection(ctx context.Context, section *model.MenuSection) error {
	query := `
		CREATE menu_section CONTENT {
			vendor_id: $vendor_id,
			name: $name,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	row, err := r.db.QueryOne(ctx, query, map[string]interface{}{
		"vendor_id": section.VendorID,
		"name":      section.Name,
	})
	if err != nil {
		return err
	}
	created, err := decodeRecord[menuSectionRecord](row)
	if err != nil {
		return err
	}
	section.ID = created.ID
	section.CreatedOn = created.CreatedOn
	section.UpdatedOn = created.UpdatedOn
	return nil
}

// GetSection returns the section only if it belongs to vendorID
func (r *MenuRepository) GetSection(ctx context.Context, vendorID, sectionID string) (*model.MenuSection, error) {
	ref, ok := recordRef(tableMenuSection, sectionID)
	if !ok {
		return nil, nil
	}
	query := `SELECT * FROM type::record($id) WHERE vendor_id = $vendor_id`
	rec, err := queryOne[menuSectionRecord](ctx, r.db, query, map[string]interface{}{
		"id":        ref,
		"vendor_id": vendorID,
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// ListSections returns a vendor's sections in creation order
func (r *MenuRepository) ListSections(ctx context.Context, vendorID string) ([]*model.MenuSection, error) {
	query := `SELECT * FROM menu_section WHERE vendor_id = $vendor_id ORDER BY created_on ASC`
	recs, err := queryMany[menuSectionRecord](ctx, r.db, query, map[string]interface{}{"vendor_id": vendorID})
	if err != nil {
		return nil, err
	}
	sections := make([]*model.MenuSection, 0, len(recs))
	for _, rec := range recs {
		sections = append(sections, rec.toModel())
	}
	return sections, nil
}

// RenameSection renames a vendor's section. Returns (nil, nil) when the
// section does not belong to vendorID.
func (r *MenuRepository) RenameSection(ctx context.Context, vendorID, sectionID, name string) (*model.MenuSection, error) {
	ref, ok := recordRef(tableMenuSection, sectionID)
	if !ok {
		return nil, nil
	}
	query := `
		UPDATE type::record($id) SET name = $name, updated_on = time::now()
		WHERE vendor_id = $vendor_id
		RETURN AFTER
	`
	rec, err := queryOne[menuSectionRecord](ctx, r.db, query, map[string]interface{}{
		"id":        ref,
		"vendor_id": vendorID,
		"name":      name,
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// DeleteSectionCascade removes a section and all of its items in a single
// transaction. Either both deletes land or neither does.
func (r *MenuRepository) DeleteSectionCascade(ctx context.Context, vendorID, sectionID string) error {
	ref, ok := recordRef(tableMenuSection, sectionID)
	if !ok {
		return database.ErrNotFound
	}
	batch := database.NewAtomicBatch()
	batch.Add(`DELETE menu_item WHERE section_id = $section_id AND vendor_id = $vendor_id`, map[string]interface{}{
		"section_id": ref,
		"vendor_id":  vendorID,
	})
	batch.Add(`DELETE type::record($section_id) WHERE vendor_id = $vendor_id`, map[string]interface{}{
		"section_id": ref,
		"vendor_id":  vendorID,
	})
	return batch.Execute(ctx, r.db)
}

// ============================================================================
// Items
// ============================================================================

// CreateItem creates a menu item
func (r *MenuRepository) CreateItem(ctx context.Context, item *model.MenuItem) error {
	query := `
		CREATE menu_item CONTENT {
			section_id: $section_id,
			vendor_id: $vendor_id,
			name: $name,
			description: IF $description IS NOT NULL THEN $description ELSE NONE END,
			price: $price,
			image_url: IF $image_url IS NOT NULL THEN $image_url ELSE NONE END,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"section_id":  item.SectionID,
		"vendor_id":   item.VendorID,
		"name":        item.Name,
		"description": noneIfNil(item.Description),
		"price":       item.Price,
		"image_url":   noneIfNil(item.ImageURL),
	}
	row, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		return err
	}
	created, err := decodeRecord[menuItemRecord](row)
	if err != nil {
		return err
	}
	item.ID = created.ID
	item.CreatedOn = created.CreatedOn
	item.UpdatedOn = created.UpdatedOn
	return nil
}

// GetItem returns an item only if it sits in sectionID of vendorID
func (r *MenuRepository) GetItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error) {
	ref, ok := recordRef(tableMenuItem, itemID)
	if !ok {
		return nil, nil
	}
	query := `SELECT * FROM type::record($id) WHERE section_id = $section_id AND vendor_id = $vendor_id`
	rec, err := queryOne[menuItemRecord](ctx, r.db, query, map[string]interface{}{
		"id":         ref,
		"section_id": sectionID,
		"vendor_id":  vendorID,
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// ListItems returns the items of one section in creation order
func (r *MenuRepository) ListItems(ctx context.Context, vendorID, sectionID string) ([]*model.MenuItem, error) {
	query := `
		SELECT * FROM menu_item
		WHERE section_id = $section_id AND vendor_id = $vendor_id
		ORDER BY created_on ASC
	`
	return r.listItems(ctx, query, map[string]interface{}{
		"section_id": sectionID,
		"vendor_id":  vendorID,
	})
}

// GetFullMenu returns a vendor's sections with their items nested, both in
// creation order. Sections and items come from a single statement so a
// concurrent cascade delete is seen either whole or not at all.
func (r *MenuRepository) GetFullMenu(ctx context.Context, vendorID string) ([]*model.MenuSectionWithItems, error) {
	query := `
		SELECT *, (
			SELECT * FROM menu_item
			WHERE section_id = type::string($parent.id) AND vendor_id = $vendor_id
			ORDER BY created_on ASC
		) AS items
		FROM menu_section
		WHERE vendor_id = $vendor_id
		ORDER BY created_on ASC
	`
	recs, err := queryMany[menuSectionWithItemsRecord](ctx, r.db, query, map[string]interface{}{"vendor_id": vendorID})
	if err != nil {
		return nil, err
	}
	menu := make([]*model.MenuSectionWithItems, 0, len(recs))
	for _, rec := range recs {
		entry := &model.MenuSectionWithItems{
			MenuSection: *rec.toModel(),
			Items:       make([]*model.MenuItem, 0, len(rec.Items)),
		}
		for i := range rec.Items {
			entry.Items = append(entry.Items, rec.Items[i].toModel())
		}
		menu = append(menu, entry)
	}
	return menu, nil
}

// UpdateItem applies a partial update to an item scoped to its section and
// vendor. Returns (nil, nil) when nothing matched.
func (r *MenuRepository) UpdateItem(ctx context.Context, vendorID, sectionID, itemID string, update model.MenuItemUpdate) (*model.MenuItem, error) {
	ref, ok := recordRef(tableMenuItem, itemID)
	if !ok {
		return nil, nil
	}

	sets := []string{"updated_on = time::now()"}
	vars := map[string]interface{}{
		"id":         ref,
		"section_id": sectionID,
		"vendor_id":  vendorID,
	}
	if update.Name != nil {
		sets = append(sets, "name = $name")
		vars["name"] = *update.Name
	}
	if update.Description != nil {
		sets = append(sets, "description = $description")
		vars["description"] = *update.Description
	}
	if update.Price != nil {
		sets = append(sets, "price = $price")
		vars["price"] = *update.Price
	}
	if update.ImageURL != nil {
		sets = append(sets, "image_url = $image_url")
		vars["image_url"] = *update.ImageURL
	}

	query := `UPDATE type::record($id) SET ` + strings.Join(sets, ", ") +
		` WHERE section_id = $section_id AND vendor_id = $vendor_id RETURN AFTER`

	rec, err := queryOne[menuItemRecord](ctx, r.db, query, vars)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// DeleteItem removes an item scoped to its section and vendor. Returns the
// deleted item, or nil when nothing matched.
func (r *MenuRepository) DeleteItem(ctx context.Context, vendorID, sectionID, itemID string) (*model.MenuItem, error) {
	ref, ok := recordRef(tableMenuItem, itemID)
	if !ok {
		return nil, nil
	}
	query := `
		DELETE type::record($id)
		WHERE section_id = $section_id AND vendor_id = $vendor_id
		RETURN BEFORE
	`
	rec, err := queryOne[menuItemRecord](ctx, r.db, query, map[string]interface{}{
		"id":         ref,
		"section_id": sectionID,
		"vendor_id":  vendorID,
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *MenuRepository) listItems(ctx context.Context, query string, vars map[string]interface{}) ([]*model.MenuItem, error) {
	recs, err := queryMany[menuItemRecord](ctx, r.db, query, vars)
	if err != nil {
		return nil, err
	}
	items := make([]*model.MenuItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.toModel())
	}
	return items, nil
}
