package repository

import (
	"context"
	"strings"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
)

// EventRepository handles event data access. Every organizer-facing lookup
// folds the organizer into the query so non-owned events read as absent.
type EventRepository struct {
	db database.Database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.Database) *EventRepository {
	return &EventRepository{db: db}
}

type eventRecord struct {
	ID          string        `json:"id"`
	OrganizerID string        `json:"organizer_id"`
	Title       string        `json:"title"`
	Date        time.Time     `json:"date"`
	Venue       string        `json:"venue"`
	Guests      []model.Guest `json:"guests"`
	Version     int           `json:"version"`
	CreatedOn   time.Time     `json:"created_on"`
	UpdatedOn   time.Time     `json:"updated_on"`
}

func (r *eventRecord) toModel() *model.Event {
	guests := r.Guests
	if guests == nil {
		guests = []model.Guest{}
	}
	return &model.Event{
		ID:          r.ID,
		OrganizerID: r.OrganizerID,
		Title:       r.Title,
		Date:        r.Date,
		Venue:       r.Venue,
		Guests:      guests,
		Version:     r.Version,
		CreatedOn:   r.CreatedOn,
		UpdatedOn:   r.UpdatedOn,
	}
}

func guestVars(guests []model.Guest) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(guests))
	for _, g := range guests {
		out = append(out, map[string]interface{}{
			"id":     g.ID,
			"name":   g.Name,
			"email":  g.Email,
			"status": string(g.Status),
		})
	}
	return out
}

// Create creates a new event with an empty guest list
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		CREATE event CONTENT {
			organizer_id: $organizer_id,
			title: $title,
			date: <datetime>$date,
			venue: $venue,
			guests: [],
			version: 0,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"organizer_id": event.OrganizerID,
		"title":        event.Title,
		"date":         surrealTime(event.Date),
		"venue":        event.Venue,
	}

	row, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		return err
	}
	created, err := decodeRecord[eventRecord](row)
	if err != nil {
		return err
	}

	event.ID = created.ID
	event.Date = created.Date
	event.Guests = []model.Guest{}
	event.Version = created.Version
	event.CreatedOn = created.CreatedOn
	event.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves an event regardless of owner
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	ref, ok := recordRef(tableEvent, id)
	if !ok {
		return nil, nil
	}
	rec, err := queryOne[eventRecord](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": ref})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// GetOwned retrieves an event only if organizerID owns it
func (r *EventRepository) GetOwned(ctx context.Context, id, organizerID string) (*model.Event, error) {
	ref, ok := recordRef(tableEvent, id)
	if !ok {
		return nil, nil
	}
	query := `SELECT * FROM type::record($id) WHERE organizer_id = $organizer_id`
	rec, err := queryOne[eventRecord](ctx, r.db, query, map[string]interface{}{
		"id":           ref,
		"organizer_id": organizerID,
	})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// ListByOrganizer returns the organizer's events by date
func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Event, error) {
	query := `SELECT * FROM event WHERE organizer_id = $organizer_id ORDER BY date ASC`
	recs, err := queryMany[eventRecord](ctx, r.db, query, map[string]interface{}{"organizer_id": organizerID})
	if err != nil {
		return nil, err
	}
	events := make([]*model.Event, 0, len(recs))
	for _, rec := range recs {
		events = append(events, rec.toModel())
	}
	return events, nil
}

// Update applies a partial update to an owned event. Returns (nil, nil) when
// the event does not exist or belongs to someone else.
func (r *EventRepository) Update(ctx context.Context, id, organizerID string, update model.EventUpdate) (*model.Event, error) {
	ref, ok := recordRef(tableEvent, id)
	if !ok {
		return nil, nil
	}

	sets := []string{"updated_on = time::now()"}
	vars := map[string]interface{}{
		"id":           ref,
		"organizer_id": organizerID,
	}
	if update.Title != nil {
		sets = append(sets, "title = $title")
		vars["title"] = *update.Title
	}
	if update.Date != nil {
		sets = append(sets, "date = <datetime>$date")
		vars["date"] = surrealTime(*update.Date)
	}
	if update.Venue != nil {
		sets = append(sets, "venue = $venue")
		vars["venue"] = *update.Venue
	}

	query := `UPDATE type::record($id) SET ` + strings.Join(sets, ", ") +
		` WHERE organizer_id = $organizer_id RETURN AFTER`

	rec, err := queryOne[eventRecord](ctx, r.db, query, vars)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// Delete removes an owned event together with its bookings in one
// transaction. Returns false when nothing matched.
func (r *EventRepository) Delete(ctx context.Context, id, organizerID string) (bool, error) {
	event, err := r.GetOwned(ctx, id, organizerID)
	if err != nil || event == nil {
		return false, err
	}

	err = WithTransaction(ctx, r.db, func(tx database.Transaction) error {
		if err := tx.Execute(ctx, `DELETE booking WHERE event_id = $del_event_id`, map[string]interface{}{
			"del_event_id": event.ID,
		}); err != nil {
			return err
		}
		return tx.Execute(ctx, `DELETE type::record($del_event_ref) WHERE organizer_id = $del_organizer_id`, map[string]interface{}{
			"del_event_ref":    event.ID,
			"del_organizer_id": organizerID,
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceGuests writes the guest list of an owned event if its version still
// matches expectedVersion. Returns database.ErrVersionMismatch when another
// writer changed the event in between.
func (r *EventRepository) ReplaceGuests(ctx context.Context, id, organizerID string, guests []model.Guest, expectedVersion int) (*model.Event, error) {
	ref, ok := recordRef(tableEvent, id)
	if !ok {
		return nil, database.ErrNotFound
	}
	query := `
		UPDATE type::record($id) SET
			guests = $guests,
			version = version + 1,
			updated_on = time::now()
		WHERE organizer_id = $organizer_id AND version = $expected_version
		RETURN AFTER
	`
	vars := map[string]interface{}{
		"id":               ref,
		"organizer_id":     organizerID,
		"guests":           guestVars(guests),
		"expected_version": expectedVersion,
	}

	rec, err := queryOne[eventRecord](ctx, r.db, query, vars)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, database.ErrVersionMismatch
	}
	return rec.toModel(), nil
}
