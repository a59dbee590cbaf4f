package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// Service errors carry one category each, so the category picks the status
// and the message after the category prefix becomes the detail.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}
	detail := service.Detail(err)

	switch {
	// ===== 400 =====
	case errors.Is(err, service.ErrBadRequest):
		return model.NewBadRequestError(detail)

	// ===== 401 =====
	case errors.Is(err, service.ErrInvalidCredentials):
		pd := model.NewUnauthorizedError(detail)
		pd.Code = model.ErrCodeLoginFailed
		return pd
	case errors.Is(err, service.ErrTokenExpired):
		pd := model.NewUnauthorizedError(detail)
		pd.Code = model.ErrCodeTokenExpired
		return pd
	case errors.Is(err, service.ErrInvalidToken):
		pd := model.NewUnauthorizedError(detail)
		pd.Code = model.ErrCodeTokenInvalid
		return pd
	case errors.Is(err, service.ErrUnauthorized):
		return model.NewUnauthorizedError(detail)

	// ===== 403 =====
	case errors.Is(err, service.ErrWrongRole):
		pd := model.NewForbiddenError(detail)
		pd.Code = model.ErrCodeWrongRole
		return pd
	case errors.Is(err, service.ErrForbidden):
		return model.NewForbiddenError(detail)

	// ===== 404 =====
	case errors.Is(err, service.ErrNotFound):
		pd := model.NewNotFoundError("resource")
		pd.Detail = detail
		return pd

	// ===== 409 =====
	case errors.Is(err, service.ErrEmailAlreadyExists):
		pd := model.NewConflictError(detail)
		pd.Code = model.ErrCodeAlreadyExists
		return pd
	case errors.Is(err, service.ErrEventModifiedTooOften),
		errors.Is(err, service.ErrUserModifiedTooOften):
		pd := model.NewConflictError(detail)
		pd.Code = model.ErrCodeStaleWrite
		return pd
	case errors.Is(err, service.ErrConflict):
		return model.NewConflictError(detail)

	// ===== 500 =====
	case errors.Is(err, database.ErrConnection),
		errors.Is(err, database.ErrQuery):
		pd := model.NewInternalError("")
		pd.Code = model.ErrCodeDatabase
		return pd
	default:
		return model.NewInternalError("")
	}
}

// writeServiceError maps err and writes it, logging anything that is not a
// client error
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	pd := MapServiceError(err)
	if pd.Status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
	WriteError(w, pd)
}
