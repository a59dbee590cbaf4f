package handler

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// VendorHandler handles the vendor directory and vendor locations
type VendorHandler struct {
	vendorService *service.VendorService
}

// NewVendorHandler creates a new vendor handler
func NewVendorHandler(vendorService *service.VendorService) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
	}
}

// LocationRequest is the body of PUT /api/vendors/{vendorId}/location.
// Coordinates may be numbers or numeric strings.
type LocationRequest struct {
	Lat interface{} `json:"lat"`
	Lng interface{} `json:"lng"`
}

// LocationResponse acknowledges a location update
type LocationResponse struct {
	Message       string               `json:"message"`
	VendorProfile *model.VendorProfile `json:"vendor_profile"`
}

// ListVendors handles GET /api/vendors?lat=&lng=&radius=
func (h *VendorHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseVendorFilter(r)
	if problem != nil {
		WriteError(w, problem)
		return
	}

	vendors, err := h.vendorService.ListVendors(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, vendors)
}

// UpdateLocation handles PUT /api/vendors/{vendorId}/location
func (h *VendorHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	lat, okLat := parseNumber(req.Lat)
	lng, okLng := parseNumber(req.Lng)
	if !okLat || !okLng {
		WriteError(w, MapServiceError(service.ErrInvalidCoordinates))
		return
	}

	profile, err := h.vendorService.UpdateLocation(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("vendorId"), lng, lat)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, LocationResponse{
		Message:       "Location updated",
		VendorProfile: profile,
	})
}

// parseVendorFilter reads the radius filter. The filter only applies when
// both lat and lng are present.
func parseVendorFilter(r *http.Request) (*model.VendorFilter, *model.ProblemDetails) {
	q := r.URL.Query()
	latStr, lngStr := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	if latStr == "" || lngStr == "" {
		return nil, nil
	}

	lat, okLat := parseNumber(latStr)
	lng, okLng := parseNumber(lngStr)
	if !okLat || !okLng {
		return nil, MapServiceError(service.ErrInvalidCoordinates)
	}

	filter := &model.VendorFilter{Latitude: lat, Longitude: lng}
	if radiusStr := strings.TrimSpace(q.Get("radius")); radiusStr != "" {
		radius, ok := parseNumber(radiusStr)
		if !ok {
			return nil, MapServiceError(service.ErrInvalidRadius)
		}
		filter.RadiusKm = radius
	}
	return filter, nil
}

// parseNumber accepts a JSON number or a numeric string and rejects
// non-finite values
func parseNumber(v interface{}) (float64, bool) {
	var f float64
	var err error
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
