package handler

import (
	"net/http"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// OfferingHandler handles a vendor's offerings
type OfferingHandler struct {
	offeringService *service.OfferingService
}

// NewOfferingHandler creates a new offering handler
func NewOfferingHandler(offeringService *service.OfferingService) *OfferingHandler {
	return &OfferingHandler{
		offeringService: offeringService,
	}
}

// OfferingRequest is the JSON body of offering create and update. Images
// can only be sent as multipart files; a JSON list must be empty.
type OfferingRequest struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Price       interface{} `json:"price,omitempty"`
	Images      []string    `json:"images,omitempty"`
}

// ListOfferings handles GET /api/vendors/{vendorId}/offerings
func (h *OfferingHandler) ListOfferings(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.offeringService.ListOfferings(r.Context(), r.PathValue("vendorId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if offerings == nil {
		offerings = []*model.Offering{}
	}

	WriteJSON(w, http.StatusOK, offerings)
}

// GetOffering handles GET /api/vendors/{vendorId}/offerings/{offeringId}
func (h *OfferingHandler) GetOffering(w http.ResponseWriter, r *http.Request) {
	offering, err := h.offeringService.GetOffering(r.Context(), r.PathValue("vendorId"), r.PathValue("offeringId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, offering)
}

// CreateOffering handles POST /api/vendors/{vendorId}/offerings. Accepts
// JSON, or multipart with up to five files under images.
func (h *OfferingHandler) CreateOffering(w http.ResponseWriter, r *http.Request) {
	fields, images, cleanup, problem := readOfferingRequest(w, r)
	if problem != nil {
		WriteError(w, problem)
		return
	}
	defer cleanup()

	in := service.CreateOfferingInput{
		Description: fields.Description,
		Price:       fields.Price,
		Images:      images,
	}
	if fields.Title != nil {
		in.Title = *fields.Title
	}

	offering, err := h.offeringService.CreateOffering(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("vendorId"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, offering)
}

// UpdateOffering handles PUT /api/vendors/{vendorId}/offerings/{offeringId}.
// Uploaded images replace the stored list.
func (h *OfferingHandler) UpdateOffering(w http.ResponseWriter, r *http.Request) {
	fields, images, cleanup, problem := readOfferingRequest(w, r)
	if problem != nil {
		WriteError(w, problem)
		return
	}
	defer cleanup()

	offering, err := h.offeringService.UpdateOffering(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("vendorId"), r.PathValue("offeringId"), service.UpdateOfferingInput{
			Title:       fields.Title,
			Description: fields.Description,
			Price:       fields.Price,
			Images:      images,
		})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, offering)
}

// DeleteOffering handles DELETE /api/vendors/{vendorId}/offerings/{offeringId}
func (h *OfferingHandler) DeleteOffering(w http.ResponseWriter, r *http.Request) {
	err := h.offeringService.DeleteOffering(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("vendorId"), r.PathValue("offeringId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}

func readOfferingRequest(w http.ResponseWriter, r *http.Request) (*OfferingRequest, []*service.Upload, func(), *model.ProblemDetails) {
	if !isMultipart(r) {
		var req OfferingRequest
		if err := DecodeJSON(r, &req); err != nil {
			return nil, nil, nil, model.NewBadRequestError("invalid request body")
		}
		if len(req.Images) > 0 {
			return nil, nil, nil, model.NewBadRequestError("images must be uploaded as multipart files")
		}
		return &req, nil, func() {}, nil
	}

	form, err := parseUploadForm(w, r)
	if err != nil {
		return nil, nil, nil, model.NewBadRequestError("invalid multipart body")
	}
	images, err := form.Files("images")
	if err != nil {
		form.Close()
		return nil, nil, nil, model.NewBadRequestError("invalid image upload")
	}
	return &OfferingRequest{
		Title:       form.Value("title"),
		Description: form.Value("description"),
		Price:       optionalValue(form.Value("price")),
	}, images, form.Close, nil
}
