package service

import (
	"errors"
	"fmt"
	"strings"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable. Every domain error wraps
// exactly one category so handlers only need errors.Is on the category.

// ===== Categories =====
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

func badRequest(msg string) error   { return fmt.Errorf("%w: %s", ErrBadRequest, msg) }
func unauthorized(msg string) error { return fmt.Errorf("%w: %s", ErrUnauthorized, msg) }
func forbidden(msg string) error    { return fmt.Errorf("%w: %s", ErrForbidden, msg) }
func notFound(msg string) error     { return fmt.Errorf("%w: %s", ErrNotFound, msg) }
func conflict(msg string) error     { return fmt.Errorf("%w: %s", ErrConflict, msg) }

var categories = []error{ErrBadRequest, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict}

// Detail returns the user-facing message of err without its category prefix
func Detail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, c := range categories {
		if errors.Is(err, c) {
			return strings.TrimPrefix(msg, c.Error()+": ")
		}
	}
	return msg
}

// ===== Authentication Errors =====
var (
	ErrNotAuthenticated    = unauthorized("authentication required")
	ErrInvalidToken        = unauthorized("invalid token")
	ErrTokenExpired        = unauthorized("token expired")
	ErrInvalidCredentials  = unauthorized("invalid credentials")
	ErrEmailAlreadyExists  = conflict("email already registered")
	ErrUserNotFound        = notFound("user not found")
	ErrMissingFields       = badRequest("name, email, password, role and phone are required")
	ErrInvalidRole         = badRequest("role must be organizer or vendor")
	ErrInvalidServiceType  = badRequest("invalid service type")
	ErrPasswordTooShort    = badRequest("password must be at least 6 characters")
	ErrPasswordTooLong     = badRequest("password must be at most 128 characters")
	ErrInvalidEmail        = badRequest("invalid email format")
	ErrNameTooLong         = badRequest("name exceeds maximum length")
	ErrPhoneTooLong        = badRequest("phone exceeds maximum length")
	ErrBioTooLong          = badRequest("bio exceeds maximum length")
	ErrEmptyProfileUpdate  = badRequest("nothing to update")
	ErrEmptyRequiredFields = badRequest("fields cannot be empty")
)

// ===== Access Errors =====
var (
	ErrWrongRole = forbidden("role not permitted for this action")
	ErrNotOwner  = forbidden("not the owner of this resource")
)

// ===== Vendor Errors =====
var (
	ErrVendorNotFound     = notFound("vendor not found")
	ErrInvalidCoordinates = badRequest("invalid coordinates")
	ErrInvalidRadius      = badRequest("invalid radius")
)

// ===== Menu Errors =====
var (
	ErrSectionNotFound        = notFound("section not found")
	ErrItemNotFound           = notFound("item not found")
	ErrSectionNameRequired    = badRequest("section name is required")
	ErrSectionNameTooLong     = badRequest("section name exceeds maximum length")
	ErrItemNameRequired       = badRequest("item name is required")
	ErrItemNameTooLong        = badRequest("item name exceeds maximum length")
	ErrItemDescriptionTooLong = badRequest("description exceeds maximum length")
	ErrPriceRequired          = badRequest("price is required")
	ErrInvalidPrice           = badRequest("price must be a non-negative number")
)

// ===== Offering Errors =====
var (
	ErrOfferingNotFound      = notFound("offering not found")
	ErrOfferingTitleRequired = badRequest("title is required")
	ErrOfferingTitleTooLong  = badRequest("title exceeds maximum length")
	ErrTooManyImages         = badRequest("at most 5 images are allowed")
)

// ===== Booking Errors =====
var (
	ErrBookingNotFound      = notFound("booking not found")
	ErrBookingFieldsMissing = badRequest("event and offering are required")
	ErrInvalidQuantity      = badRequest("quantity must be at least 1")
	ErrInvalidBookingStatus = badRequest("status must be confirmed or declined")
	ErrBookingFinalized     = conflict("booking already finalized")
)

// ===== Event Errors =====
var (
	ErrEventNotFound         = notFound("event not found")
	ErrGuestNotFound         = notFound("guest not found")
	ErrEventTitleRequired    = badRequest("title is required")
	ErrEventTitleTooLong     = badRequest("title exceeds maximum length")
	ErrEventVenueRequired    = badRequest("venue is required")
	ErrEventVenueTooLong     = badRequest("venue exceeds maximum length")
	ErrEventDateRequired     = badRequest("date is required")
	ErrInvalidEventDate      = badRequest("date must be RFC3339 or YYYY-MM-DD")
	ErrGuestFieldsMissing    = badRequest("guest name and email are required")
	ErrInvalidGuestStatus    = badRequest("status must be pending, yes or no")
	ErrGuestListFull         = badRequest("guest list is full")
	ErrEventModifiedTooOften = conflict("event was modified concurrently, retry the request")
)

// ===== Notification Errors =====
var (
	ErrTokenRequired        = badRequest("token is required")
	ErrTokenTooLong         = badRequest("token exceeds maximum length")
	ErrUserModifiedTooOften = conflict("account was modified concurrently, retry the request")
)

// ===== Upload Errors =====
var (
	ErrFileTooLarge     = badRequest("file too large")
	ErrUnsupportedImage = badRequest("unsupported image type")
)
