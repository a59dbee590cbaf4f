package handler

import (
	"net/http"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRequest represents the register endpoint request body. Vendor
// profile fields may be sent flat or nested under vendor_profile.
type RegisterRequest struct {
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Password      string                 `json:"password"`
	Role          string                 `json:"role"`
	Phone         string                 `json:"phone"`
	ServiceType   string                 `json:"service_type,omitempty"`
	Bio           *string                `json:"bio,omitempty"`
	VendorProfile *RegisterVendorProfile `json:"vendor_profile,omitempty"`
}

// RegisterVendorProfile is the nested vendor profile of a registration
type RegisterVendorProfile struct {
	ServiceType string  `json:"service_type,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// LoginRequest represents the login endpoint request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateMeRequest represents a JSON profile update
type UpdateMeRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// UserResponse wraps the caller's account
type UserResponse struct {
	User *model.Identity `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	in := service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Phone:       req.Phone,
		ServiceType: req.ServiceType,
		Bio:         req.Bio,
	}
	if p := req.VendorProfile; p != nil {
		if in.ServiceType == "" {
			in.ServiceType = p.ServiceType
		}
		if in.Bio == nil {
			in.Bio = p.Bio
		}
	}

	result, err := h.authService.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, UserResponse{User: user})
}

// UpdateMe handles PUT /api/auth/me. Accepts JSON, or multipart with an
// optional avatar file.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateMeInput

	if isMultipart(r) {
		form, err := parseUploadForm(w, r)
		if err != nil {
			WriteError(w, model.NewBadRequestError("invalid multipart body"))
			return
		}
		defer form.Close()

		in.Name = form.Value("name")
		in.Email = form.Value("email")
		in.Phone = form.Value("phone")
		if in.Avatar, err = form.File("avatar"); err != nil {
			WriteError(w, model.NewBadRequestError("invalid avatar upload"))
			return
		}
	} else {
		var req UpdateMeRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid request body"))
			return
		}
		in.Name, in.Email, in.Phone = req.Name, req.Email, req.Phone
	}

	user, err := h.authService.UpdateMe(r.Context(), middleware.GetIdentity(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, UserResponse{User: user})
}
