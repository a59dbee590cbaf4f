// Package model defines domain entities and data structures for the Fete API.
//
// The model package contains all struct definitions for domain objects, request/response
// types, and error definitions. Models are used across all layers of the application.
//
// # Domain Entities
//
// Core domain entities include:
//
//   - Identity: Organizer, vendor or admin account, with an optional vendor profile
//   - Event: Organizer-owned gathering with an embedded guest list
//   - MenuSection / MenuItem: Two-level vendor menu
//   - Offering: Priced, bookable vendor listing with up to five images
//   - Booking: Reservation of an offering for an event
//
// # Ownership
//
// Every entity stores its owner as a string record id (organizer_id,
// vendor_id, section_id). Services compare these stored ids against the
// resolved caller and never against ids supplied in a request body.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go:
//
//	type ProblemDetails struct {
//	    Type    string    `json:"type"`
//	    Title   string    `json:"title"`
//	    Status  int       `json:"status"`
//	    Detail  string    `json:"detail"`
//	}
package model
