package repository

import (
	"context"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
)

// BookingRepository handles booking data access. Display joins (offering,
// vendor, event) are resolved with one batched lookup per table.
type BookingRepository struct {
	db database.Database
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db database.Database) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingRecord struct {
	ID         string              `json:"id"`
	EventID    string              `json:"event_id"`
	OfferingID string              `json:"offering_id"`
	Quantity   int                 `json:"quantity"`
	Status     model.BookingStatus `json:"status"`
	CreatedOn  time.Time           `json:"created_on"`
	UpdatedOn  time.Time           `json:"updated_on"`
}

func (r *bookingRecord) toModel() *model.Booking {
	return &model.Booking{
		ID:         r.ID,
		EventID:    r.EventID,
		OfferingID: r.OfferingID,
		Quantity:   r.Quantity,
		Status:     r.Status,
		CreatedOn:  r.CreatedOn,
		UpdatedOn:  r.UpdatedOn,
	}
}

// Create creates a booking in the pending state
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		CREATE booking CONTENT {
			event_id: $event_id,
			offering_id: $offering_id,
			quantity: $quantity,
			status: 'pending',
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	row, err := r.db.QueryOne(ctx, query, map[string]interface{}{
		"event_id":    booking.EventID,
		"offering_id": booking.OfferingID,
		"quantity":    booking.Quantity,
	})
	if err != nil {
		return err
	}
	created, err := decodeRecord[bookingRecord](row)
	if err != nil {
		return err
	}
	booking.ID = created.ID
	booking.Status = created.Status
	booking.CreatedOn = created.CreatedOn
	booking.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a booking
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	ref, ok := recordRef(tableBooking, id)
	if !ok {
		return nil, nil
	}
	rec, err := queryOne[bookingRecord](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": ref})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// TransitionFromPending sets the status of a pending booking. Returns
// (nil, nil) when the booking is no longer pending, so only one concurrent
// transition can win.
func (r *BookingRepository) TransitionFromPending(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error) {
	ref, ok := recordRef(tableBooking, id)
	if !ok {
		return nil, nil
	}
	query := `
		UPDATE type::record($id) SET status = $status, updated_on = time::now()
		WHERE status = 'pending'
		RETURN AFTER
	`
	rec, err := queryOne[bookingRecord](ctx, r.db, query, map[string]interface{}{
		"id":     ref,
		"status": string(status),
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// ListByEvent returns an event's bookings joined with offering and vendor
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.BookingView, error) {
	query := `SELECT * FROM booking WHERE event_id = $event_id ORDER BY created_on DESC`
	recs, err := queryMany[bookingRecord](ctx, r.db, query, map[string]interface{}{"event_id": eventID})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return []*model.BookingView{}, nil
	}

	offeringIDs := make([]string, 0, len(recs))
	for _, rec := range recs {
		offeringIDs = append(offeringIDs, rec.OfferingID)
	}
	offerings, err := r.offeringsByID(ctx, offeringIDs)
	if err != nil {
		return nil, err
	}

	vendorIDs := make([]string, 0, len(offerings))
	for _, o := range offerings {
		vendorIDs = append(vendorIDs, o.VendorID)
	}
	vendorNames, err := r.vendorNames(ctx, vendorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*model.BookingView, 0, len(recs))
	for _, rec := range recs {
		view := &model.BookingView{Booking: *rec.toModel()}
		if o, ok := offerings[rec.OfferingID]; ok {
			view.Offering = &model.BookingOfferingRef{
				ID:    o.ID,
				Title: o.Title,
				Price: o.Price,
			}
			if name, ok := vendorNames[o.VendorID]; ok {
				view.Offering.Vendor = &model.BookingVendorRef{ID: o.VendorID, Name: name}
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// ListByVendor returns bookings against any of the vendor's offerings,
// joined with event and offering.
func (r *BookingRepository) ListByVendor(ctx context.Context, vendorID string) ([]*model.BookingView, error) {
	offeringQuery := `SELECT * FROM offering WHERE vendor_id = $vendor_id`
	offeringRecs, err := queryMany[offeringRecord](ctx, r.db, offeringQuery, map[string]interface{}{"vendor_id": vendorID})
	if err != nil {
		return nil, err
	}
	if len(offeringRecs) == 0 {
		return []*model.BookingView{}, nil
	}
	offerings := make(map[string]*offeringRecord, len(offeringRecs))
	offeringIDs := make([]string, 0, len(offeringRecs))
	for _, o := range offeringRecs {
		offerings[o.ID] = o
		offeringIDs = append(offeringIDs, o.ID)
	}

	query := `SELECT * FROM booking WHERE offering_id INSIDE $offering_ids ORDER BY created_on DESC`
	recs, err := queryMany[bookingRecord](ctx, r.db, query, map[string]interface{}{"offering_ids": offeringIDs})
	if err != nil {
		return nil, err
	}

	eventIDs := make([]string, 0, len(recs))
	for _, rec := range recs {
		eventIDs = append(eventIDs, rec.EventID)
	}
	eventRecs, err := fetchByIDs[eventRecord](ctx, r.db, tableEvent, uniqueStrings(eventIDs))
	if err != nil {
		return nil, err
	}
	events := make(map[string]*eventRecord, len(eventRecs))
	for _, e := range eventRecs {
		events[e.ID] = e
	}

	views := make([]*model.BookingView, 0, len(recs))
	for _, rec := range recs {
		view := &model.BookingView{Booking: *rec.toModel()}
		if o, ok := offerings[rec.OfferingID]; ok {
			view.Offering = &model.BookingOfferingRef{ID: o.ID, Title: o.Title, Price: o.Price}
		}
		if e, ok := events[rec.EventID]; ok {
			view.Event = &model.BookingEventRef{ID: e.ID, Title: e.Title, Date: e.Date}
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *BookingRepository) offeringsByID(ctx context.Context, ids []string) (map[string]*offeringRecord, error) {
	recs, err := fetchByIDs[offeringRecord](ctx, r.db, tableOffering, uniqueStrings(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]*offeringRecord, len(recs))
	for _, rec := range recs {
		out[rec.ID] = rec
	}
	return out, nil
}

func (r *BookingRepository) vendorNames(ctx context.Context, ids []string) (map[string]string, error) {
	recs, err := fetchByIDs[userRecord](ctx, r.db, tableUser, uniqueStrings(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(recs))
	for _, rec := range recs {
		out[rec.ID] = rec.Name
	}
	return out, nil
}
