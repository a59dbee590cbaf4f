package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
)

// UserRepository handles identity data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// userRecord is the stored shape of an identity
type userRecord struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	PasswordHash  string               `json:"password_hash"`
	Role          model.Role           `json:"role"`
	Phone         string               `json:"phone"`
	AvatarURL     *string              `json:"avatar_url"`
	VendorProfile *model.VendorProfile `json:"vendor_profile"`
	FCMTokens     []string             `json:"fcm_tokens"`
	Version       int                  `json:"version"`
	CreatedOn     time.Time            `json:"created_on"`
	UpdatedOn     time.Time            `json:"updated_on"`
}

func (r *userRecord) toModel() *model.Identity {
	return &model.Identity{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		Role:          r.Role,
		Phone:         r.Phone,
		AvatarURL:     r.AvatarURL,
		VendorProfile: r.VendorProfile,
		FCMTokens:     r.FCMTokens,
		Version:       r.Version,
		CreatedOn:     r.CreatedOn,
		UpdatedOn:     r.UpdatedOn,
	}
}

// vendorProfileVars flattens a profile into an object SurrealDB can store,
// omitting absent optional fields so they stay NONE.
func vendorProfileVars(p *model.VendorProfile) interface{} {
	if p == nil {
		return nil
	}
	out := map[string]interface{}{
		"service_type": string(p.ServiceType),
	}
	if p.Bio != nil {
		out["bio"] = *p.Bio
	}
	if p.Location != nil {
		out["location"] = map[string]interface{}{
			"longitude": p.Location.Longitude,
			"latitude":  p.Location.Latitude,
		}
	}
	return out
}

// Create creates a new identity
func (r *UserRepository) Create(ctx context.Context, user *model.Identity) error {
	query := `
		CREATE user CONTENT {
			name: $name,
			email: $email,
			password_hash: $password_hash,
			role: $role,
			phone: $phone,
			avatar_url: IF $avatar_url IS NOT NULL THEN $avatar_url ELSE NONE END,
			vendor_profile: IF $vendor_profile IS NOT NULL THEN $vendor_profile ELSE NONE END,
			fcm_tokens: [],
			version: 0,
			created_on: time::now(),
			updated_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"name":           user.Name,
		"email":          user.Email,
		"password_hash":  user.PasswordHash,
		"role":           string(user.Role),
		"phone":          user.Phone,
		"avatar_url":     noneIfNil(user.AvatarURL),
		"vendor_profile": vendorProfileVars(user.VendorProfile),
	}

	row, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: email already exists", database.ErrDuplicate)
		}
		return err
	}

	created, err := decodeRecord[userRecord](row)
	if err != nil {
		return err
	}

	user.ID = created.ID
	user.FCMTokens = []string{}
	user.Version = created.Version
	user.CreatedOn = created.CreatedOn
	user.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves an identity by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	ref, ok := recordRef(tableUser, id)
	if !ok {
		return nil, nil
	}
	rec, err := queryOne[userRecord](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": ref})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// GetByEmail retrieves an identity by its normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	query := `SELECT * FROM user WHERE email = $email LIMIT 1`
	rec, err := queryOne[userRecord](ctx, r.db, query, map[string]interface{}{"email": email})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// UpdateProfile writes the editable account fields
func (r *UserRepository) UpdateProfile(ctx context.Context, user *model.Identity) error {
	query := `
		UPDATE type::record($id) SET
			name = $name,
			email = $email,
			phone = $phone,
			avatar_url = IF $avatar_url IS NOT NULL THEN $avatar_url ELSE NONE END,
			updated_on = time::now()
		RETURN AFTER
	`

	vars := map[string]interface{}{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"phone":      user.Phone,
		"avatar_url": noneIfNil(user.AvatarURL),
	}

	row, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: email already exists", database.ErrDuplicate)
		}
		return err
	}
	updated, err := decodeRecord[userRecord](row)
	if err != nil {
		return err
	}
	user.UpdatedOn = updated.UpdatedOn
	return nil
}

// SetVendorProfile replaces the vendor profile of an identity
func (r *UserRepository) SetVendorProfile(ctx context.Context, userID string, profile *model.VendorProfile) error {
	query := `UPDATE type::record($id) SET vendor_profile = $vendor_profile, updated_on = time::now()`
	vars := map[string]interface{}{
		"id":             userID,
		"vendor_profile": vendorProfileVars(profile),
	}
	return r.db.Execute(ctx, query, vars)
}

// ListVendors returns every vendor ordered by name
func (r *UserRepository) ListVendors(ctx context.Context) ([]*model.Identity, error) {
	query := `SELECT * FROM user WHERE role = 'vendor' ORDER BY name ASC`
	return r.list(ctx, query, nil)
}

// ListVendorsInBox returns located vendors whose coordinates fall inside the
// given bounding box. Exact distance filtering is left to the caller.
func (r *UserRepository) ListVendorsInBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]*model.Identity, error) {
	query := `
		SELECT * FROM user
		WHERE role = 'vendor'
			AND vendor_profile.location != NONE
			AND vendor_profile.location.latitude >= $min_lat
			AND vendor_profile.location.latitude <= $max_lat
			AND vendor_profile.location.longitude >= $min_lng
			AND vendor_profile.location.longitude <= $max_lng
	`
	vars := map[string]interface{}{
		"min_lat": minLat,
		"max_lat": maxLat,
		"min_lng": minLng,
		"max_lng": maxLng,
	}
	return r.list(ctx, query, vars)
}

// ReplaceFCMTokens writes the token set if the stored version still matches
// expectedVersion. Returns database.ErrVersionMismatch when another writer
// got there first.
func (r *UserRepository) ReplaceFCMTokens(ctx context.Context, userID string, tokens []string, expectedVersion int) error {
	query := `
		UPDATE type::record($id) SET
			fcm_tokens = $tokens,
			version = version + 1,
			updated_on = time::now()
		WHERE version = $expected_version
		RETURN AFTER
	`
	if tokens == nil {
		tokens = []string{}
	}
	vars := map[string]interface{}{
		"id":               userID,
		"tokens":           tokens,
		"expected_version": expectedVersion,
	}

	_, err := r.db.QueryOne(ctx, query, vars)
	if errors.Is(err, database.ErrNotFound) {
		return database.ErrVersionMismatch
	}
	return err
}

func (r *UserRepository) list(ctx context.Context, query string, vars map[string]interface{}) ([]*model.Identity, error) {
	recs, err := queryMany[userRecord](ctx, r.db, query, vars)
	if err != nil {
		return nil, err
	}
	users := make([]*model.Identity, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.toModel())
	}
	return users, nil
}
