package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

// ContentHandler handles home page content: carousels, featured breeders
// and the company settings.
type ContentHandler struct {
	DB     *db.DB
	Logger *zap.Logger
}

// ListCarousels handles GET /api/carousels.
func (h *ContentHandler) ListCarousels(w http.ResponseWriter, r *http.Request) {
	h.listCarousels(w, r, false)
}

// ListAllCarousels handles GET /api/admin/carousels.
func (h *ContentHandler) ListAllCarousels(w http.ResponseWriter, r *http.Request) {
	h.listCarousels(w, r, true)
}

func (h *ContentHandler) listCarousels(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	list, err := store.ListCarousels(r.Context(), h.DB, includeInactive)
	if err != nil {
		storeError(w, h.Logger, err, "failed to list carousels")
		return
	}
	if list == nil {
		list = []model.Carousel{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// CreateCarousel handles POST /api/admin/carousels.
func (h *ContentHandler) CreateCarousel(w http.ResponseWriter, r *http.Request) {
	var in model.CarouselInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.ImageURL) == "" {
		jsonError(w, http.StatusBadRequest, "title and image_url required")
		return
	}

	c, err := store.CreateCarousel(r.Context(), h.DB, in)
	if err != nil {
		storeError(w, h.Logger, err, "failed to create carousel")
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// UpdateCarousel handles PUT /api/admin/carousels/{id}.
func (h *ContentHandler) UpdateCarousel(w http.ResponseWriter, r *http.Request) {
	var p model.CarouselPatch
	if err := decodePatch(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (p.Title.Set && strings.TrimSpace(p.Title.Value) == "") || (p.ImageURL.Set && strings.TrimSpace(p.ImageURL.Value) == "") {
		jsonError(w, http.StatusBadRequest, "title and image_url must not be empty")
		return
	}

	c, err := store.UpdateCarousel(r.Context(), h.DB, chi.URLParam(r, "id"), p)
	if err != nil {
		storeError(w, h.Logger, err, "carousel")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// DeleteCarousel handles DELETE /api/admin/carousels/{id}.
func (h *ContentHandler) DeleteCarousel(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteCarousel(r.Context(), h.DB, chi.URLParam(r, "id")); err != nil {
		storeError(w, h.Logger, err, "carousel")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "carousel deleted"})
}

// ListFeatured handles GET /api/featured-products.
func (h *ContentHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	h.listFeatured(w, r, false)
}

// ListAllFeatured handles GET /api/admin/featured-products.
func (h *ContentHandler) ListAllFeatured(w http.ResponseWriter, r *http.Request) {
	h.listFeatured(w, r, true)
}

func (h *ContentHandler) listFeatured(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	list, err := store.ListFeatured(r.Context(), h.DB, includeInactive)
	if err != nil {
		storeError(w, h.Logger, err, "failed to list featured products")
		return
	}
	if list == nil {
		list = []model.Featured{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// CreateFeatured handles POST /api/admin/featured-products.
func (h *ContentHandler) CreateFeatured(w http.ResponseWriter, r *http.Request) {
	var in model.FeaturedInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.BreederID == "" {
		jsonError(w, http.StatusBadRequest, "product_id required")
		return
	}

	b, err := store.GetBreeder(r.Context(), h.DB, in.BreederID)
	if err != nil {
		storeError(w, h.Logger, err, "failed to get product")
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	f, err := store.CreateFeatured(r.Context(), h.DB, in)
	if err != nil {
		storeError(w, h.Logger, err, "failed to create featured product")
		return
	}
	jsonResponse(w, http.StatusCreated, f)
}

// UpdateFeatured handles PUT /api/admin/featured-products/{id}.
func (h *ContentHandler) UpdateFeatured(w http.ResponseWriter, r *http.Request) {
	var p model.FeaturedPatch
	if err := decodePatch(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := store.UpdateFeatured(r.Context(), h.DB, chi.URLParam(r, "id"), p)
	if err != nil {
		storeError(w, h.Logger, err, "featured product")
		return
	}
	jsonResponse(w, http.StatusOK, f)
}

// DeleteFeatured handles DELETE /api/admin/featured-products/{id}.
func (h *ContentHandler) DeleteFeatured(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteFeatured(r.Context(), h.DB, chi.URLParam(r, "id")); err != nil {
		storeError(w, h.Logger, err, "featured product")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "featured product deleted"})
}

// GetSettings handles GET /api/settings.
func (h *ContentHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := store.GetSiteSettings(r.Context(), h.DB)
	if err != nil {
		storeError(w, h.Logger, err, "failed to get settings")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// UpdateSettings handles PUT /api/admin/settings.
func (h *ContentHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p model.SiteSettingsPatch
	if err := decodePatch(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := store.UpdateSiteSettings(r.Context(), h.DB, p)
	if err != nil {
		storeError(w, h.Logger, err, "failed to update settings")
		return
	}

	h.Logger.Info("site settings updated", zap.String("user", GetClaims(r.Context()).Username))
	jsonResponse(w, http.StatusOK, s)
}
