// Package service implements the business logic layer for the Fete API.
//
// The service package contains all domain logic, validation rules, and
// orchestration of repository operations. Services are the primary
// abstraction between HTTP handlers and data access.
//
// # Service Pattern
//
//   - Constructor function (NewXxxService) accepts its dependencies, or a
//     config struct when some of them are optional
//   - Methods take the calling *model.Identity and re-derive ownership from
//     stored foreign keys through the shared Guard
//   - Side effects that must not fail a request (cache, blob cleanup, domain
//     events) are logged with slog.Warn
//
// # Repository Interfaces
//
// Services define their own repository interfaces, allowing:
//
//   - Easy mocking for unit tests
//   - Decoupling from specific database implementations
//   - Clear contracts for data access requirements
//
// # Error Handling
//
// Every sentinel in errors.go wraps exactly one category, so handlers map
// errors with errors.Is on the category:
//
//	var ErrSectionNotFound = notFound("section not found")
//
//	errors.Is(ErrSectionNotFound, ErrNotFound) // true
//
// # Example Usage
//
//	menus := NewMenuService(MenuServiceConfig{
//	    Repo:  menuRepository,
//	    Cache: menuCache,
//	    Blobs: blobStore,
//	    Guard: NewGuard(),
//	})
//	section, err := menus.CreateSection(ctx, caller, caller.ID, "Starters")
package service
