package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/media"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

// ProductsHandler handles the catalogue view of breeders and their admin
// CRUD.
type ProductsHandler struct {
	DB     *db.DB
	Blobs  blob.Store
	Logger *zap.Logger
}

type productList struct {
	Products   []model.Breeder `json:"products"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

// List handles GET /api/products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 50, 1, 1000)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort := q.Get("sort")
	if !store.ValidProductSort(sort) {
		jsonError(w, http.StatusBadRequest, "invalid sort")
		return
	}
	sex := q.Get("sex")
	if sex != "" && !model.ValidSex(sex) {
		jsonError(w, http.StatusBadRequest, "invalid sex; must be male or female")
		return
	}

	products, total, err := store.ListProducts(r.Context(), h.DB, store.ProductQuery{
		Page:     page,
		Limit:    limit,
		Search:   q.Get("search"),
		Sex:      sex,
		SeriesID: q.Get("series_id"),
		Sort:     sort,
	})
	if err != nil {
		storeError(w, h.Logger, err, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Breeder{}
	}

	jsonResponse(w, http.StatusOK, productList{
		Products:   products,
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
	})
}

// Featured handles GET /api/products/featured.
func (h *ProductsHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 8, 1, 100)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := store.ListFeaturedProducts(r.Context(), h.DB, limit)
	if err != nil {
		storeError(w, h.Logger, err, "failed to list featured products")
		return
	}
	if products == nil {
		products = []model.Breeder{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Get handles GET /api/products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := store.GetBreeder(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, h.Logger, err, "failed to get product")
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// Create handles POST /api/products.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.BreederInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := store.CreateBreeder(r.Context(), h.DB, in)
	if err != nil {
		storeError(w, h.Logger, err, "failed to create product")
		return
	}

	h.Logger.Info("product created", zap.String("user", GetClaims(r.Context()).Username), zap.String("code", b.Code))
	jsonResponse(w, http.StatusCreated, b)
}

// Update handles PUT /api/products/{id}.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p model.BreederPatch
	if err := decodePatch(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Empty() {
		jsonError(w, http.StatusBadRequest, "no valid fields to update")
		return
	}

	b, err := store.UpdateBreeder(r.Context(), h.DB, chi.URLParam(r, "id"), p)
	if err != nil {
		storeError(w, h.Logger, err, "product")
		return
	}

	h.Logger.Info("product updated", zap.String("user", GetClaims(r.Context()).Username), zap.String("code", b.Code))
	jsonResponse(w, http.StatusOK, b)
}

// Delete handles DELETE /api/products/{id}. Rows go first; blob cleanup
// failures are logged and do not fail the request.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := store.GetBreeder(ctx, h.DB, chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, h.Logger, err, "failed to get product")
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := store.DeleteBreeder(ctx, h.DB, b.ID); err != nil {
		storeError(w, h.Logger, err, "product")
		return
	}

	for _, img := range b.Images {
		if err := media.Remove(ctx, h.Blobs, img); err != nil {
			h.Logger.Warn("removing image blobs", zap.String("image_id", img.ID), zap.Error(err))
		}
	}
	if err := media.RemoveAll(ctx, h.Blobs, b.Code); err != nil {
		h.Logger.Warn("removing breeder blobs", zap.String("code", b.Code), zap.Error(err))
	}

	h.Logger.Info("product deleted", zap.String("user", GetClaims(ctx).Username), zap.String("code", b.Code))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "product deleted"})
}
