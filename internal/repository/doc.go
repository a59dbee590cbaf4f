// Package repository implements the data access layer for the Fete API.
//
// Each repository struct handles storage for one domain entity on SurrealDB:
// identities, events with their embedded guests, menu sections and items,
// offerings and bookings.
//
// # Ownership in the query
//
// Methods that take an owner id fold it into the WHERE clause, so a record
// owned by someone else is indistinguishable from a missing one. Such
// methods return (nil, nil) when nothing matched and leave the NotFound
// decision to the service.
//
// # Record ids
//
// Ids are "table:key" strings. Path parameters go through recordRef, which
// accepts a bare key or a full id of the expected table and rejects ids
// naming any other table.
//
// # Concurrent writes
//
//   - Embedded lists (guests, push tokens) are written with a version check
//     and report database.ErrVersionMismatch when another writer won.
//   - Booking transitions are conditional on status = 'pending'.
//   - Multi-record deletes (menu section cascade, event with bookings) run
//     in a single transaction.
//
// # Example Usage
//
//	repo := NewMenuRepository(db)
//	section, err := repo.GetSection(ctx, vendorID, "menu_section:abc123")
//	if err != nil {
//	    return err
//	}
//	if section == nil {
//	    // Missing or owned by another vendor
//	}
package repository
