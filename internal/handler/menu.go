package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/forgo/fete/api/internal/middleware"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// MenuHandler handles the vendor menu: sections, items and the menu QR code
type MenuHandler struct {
	menuService *service.MenuService
	qr          service.QRGenerator
	baseURL     string
}

// NewMenuHandler creates a new menu handler. baseURL is the public origin
// encoded into menu QR codes.
func NewMenuHandler(menuService *service.MenuService, qr service.QRGenerator, baseURL string) *MenuHandler {
	return &MenuHandler{
		menuService: menuService,
		qr:          qr,
		baseURL:     baseURL,
	}
}

// SectionRequest is the body of section create and rename
type SectionRequest struct {
	Name *string `json:"name"`
}

// ItemRequest is the JSON body of item create and update. Price may be a
// number or a numeric string.
type ItemRequest struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Price       interface{} `json:"price,omitempty"`
}

// GetMenu handles GET /api/vendors/{vendorId}/menu
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.menuService.GetFullMenu(r.Context(), r.PathValue("vendorId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, menu)
}

// GetMenuQR handles GET /api/vendors/{vendorId}/menu/qr, a PNG linking to
// the public menu
func (h *MenuHandler) GetMenuQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.qr.Generate(service.MenuLink(h.baseURL, r.PathValue("vendorId")))
	if err != nil {
		slog.Error("failed to render menu qr code", slog.String("error", err.Error()))
		WriteError(w, model.NewInternalError("failed to render QR code"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ============================================================================
// Sections
// ============================================================================

// ListSections handles GET /api/vendors/{vendorId}/menu/sections
func (h *MenuHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.menuService.ListSections(r.Context(), r.PathValue("vendorId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if sections == nil {
		sections = []*model.MenuSection{}
	}

	WriteJSON(w, http.StatusOK, sections)
}

// CreateSection handles POST /api/vendors/{vendorId}/menu/sections
func (h *MenuHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	section, err := h.menuService.CreateSection(r.Context(), middleware.GetIdentity(r.Context()), r.PathValue("vendorId"), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, section)
}

// UpdateSection handles PUT /api/vendors/{vendorId}/menu/sections/{sectionId}
func (h *MenuHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	var req SectionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	section, err := h.menuService.UpdateSection(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("vendorId"), r.PathValue("sectionId"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, section)
}

// DeleteSection handles DELETE /api/vendors/{vendorId}/menu/sections/{sectionId}.
// The section's items go with it.
func (h *MenuHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	err := h.menuService.DeleteSection(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("vendorId"), r.PathValue("sectionId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// ============================================================================
// Items
// ============================================================================

// ListItems handles GET /api/vendors/{vendorId}/menu/sections/{sectionId}/items
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.menuService.ListItems(r.Context(), r.PathValue("vendorId"), r.PathValue("sectionId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.MenuItem{}
	}

	WriteJSON(w, http.StatusOK, items)
}

// GetItem handles GET /api/vendors/{vendorId}/menu/sections/{sectionId}/items/{itemId}
func (h *MenuHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.menuService.GetItem(r.Context(), r.PathValue("vendorId"), r.PathValue("sectionId"), r.PathValue("itemId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /api/vendors/{vendorId}/menu/sections/{sectionId}/items.
// Accepts JSON, or multipart with an optional image file.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	fields, form, problem := readItemRequest(w, r)
	if problem != nil {
		WriteError(w, problem)
		return
	}
	in := service.CreateItemInput{
		Description: fields.Description,
		Price:       fields.Price,
	}
	if fields.Name != nil {
		in.Name = *fields.Name
	}
	if form != nil {
		defer form.Close()
		image, err := form.File("image")
		if err != nil {
			WriteError(w, model.NewBadRequestError("invalid image upload"))
			return
		}
		in.Image = image
	}

	item, err := h.menuService.CreateItem(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("vendorId"), r.PathValue("sectionId"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/vendors/{vendorId}/menu/sections/{sectionId}/items/{itemId}
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	fields, form, problem := readItemRequest(w, r)
	if problem != nil {
		WriteError(w, problem)
		return
	}
	in := service.UpdateItemInput{
		Name:        fields.Name,
		Description: fields.Description,
		Price:       fields.Price,
	}
	if form != nil {
		defer form.Close()
		image, err := form.File("image")
		if err != nil {
			WriteError(w, model.NewBadRequestError("invalid image upload"))
			return
		}
		in.Image = image
	}

	item, err := h.menuService.UpdateItem(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("vendorId"), r.PathValue("sectionId"), r.PathValue("itemId"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/vendors/{vendorId}/menu/sections/{sectionId}/items/{itemId}
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	err := h.menuService.DeleteItem(r.Context(), middleware.GetIdentity(r.Context()),
		r.PathValue("vendorId"), r.PathValue("sectionId"), r.PathValue("itemId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// readItemRequest reads item fields from JSON or multipart. The returned
// form is non-nil for multipart requests and must be closed by the caller.
func readItemRequest(w http.ResponseWriter, r *http.Request) (*ItemRequest, *uploadForm, *model.ProblemDetails) {
	if !isMultipart(r) {
		var req ItemRequest
		if err := DecodeJSON(r, &req); err != nil {
			return nil, nil, model.NewBadRequestError("invalid request body")
		}
		return &req, nil, nil
	}

	form, err := parseUploadForm(w, r)
	if err != nil {
		return nil, nil, model.NewBadRequestError("invalid multipart body")
	}
	return &ItemRequest{
		Name:        form.Value("name"),
		Description: form.Value("description"),
		Price:       optionalValue(form.Value("price")),
	}, form, nil
}
