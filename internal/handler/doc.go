// Package handler provides HTTP request handlers for the Fete API.
//
// Each handler struct wraps one service and serves one feature area
// (auth, events, vendors, menus, offerings, bookings, notifications).
// NewRouter registers every route on a stdlib ServeMux using method
// patterns, and path parameters are read with r.PathValue.
//
// # Handler Pattern
//
//   - Constructor function (NewXxxHandler) accepts the service it wraps
//   - Methods decode the request, call the service with the resolved
//     identity, and write the result
//   - Service errors are mapped to RFC 9457 Problem Details by MapServiceError
//
// # Response Format
//
// Successful responses are bare JSON documents:
//
//   - WriteJSON: Any JSON value with a status code
//   - WriteMessage: {"message": "..."} acknowledgements
//   - WriteNoContent: 204 for deletes
//   - WriteError: RFC 9457 Problem Details error response
//
// # Uploads
//
// Offering, menu item and avatar endpoints accept multipart/form-data as well
// as JSON. Stored files are served read-only by UploadsHandler.
//
// # Example Usage
//
//	mux := NewRouter(RouterConfig{
//	    Auth:     NewAuthHandler(authService),
//	    Events:   NewEventHandler(eventService),
//	    Resolver: authService,
//	})
package handler
