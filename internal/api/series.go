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

// SeriesHandler handles series endpoints.
type SeriesHandler struct {
	DB     *db.DB
	Logger *zap.Logger
}

// ListPublic handles GET /api/series.
func (h *SeriesHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// ListAdmin handles GET /api/admin/series.
func (h *SeriesHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	includeInactive, err := queryBool(r, "include_inactive", false)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.list(w, r, includeInactive)
}

func (h *SeriesHandler) list(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	series, err := store.ListSeries(r.Context(), h.DB, includeInactive)
	if err != nil {
		storeError(w, h.Logger, err, "failed to list series")
		return
	}
	if series == nil {
		series = []model.Series{}
	}
	jsonResponse(w, http.StatusOK, series)
}

// Create handles POST /api/admin/series.
func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.SeriesInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}

	s, err := store.CreateSeries(r.Context(), h.DB, in)
	if err != nil {
		storeError(w, h.Logger, err, "failed to create series")
		return
	}

	h.Logger.Info("series created", zap.String("user", GetClaims(r.Context()).Username), zap.String("series", s.Name))
	jsonResponse(w, http.StatusCreated, s)
}

// Update handles PUT /api/admin/series/{id}.
func (h *SeriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p model.SeriesPatch
	if err := decodePatch(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Name.Set && strings.TrimSpace(p.Name.Value) == "" {
		jsonError(w, http.StatusBadRequest, "name is required")
		return
	}

	s, err := store.UpdateSeries(r.Context(), h.DB, chi.URLParam(r, "id"), p)
	if err != nil {
		storeError(w, h.Logger, err, "series")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Delete handles DELETE /api/admin/series/{id}.
func (h *SeriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := store.DeleteSeries(r.Context(), h.DB, id); err != nil {
		storeError(w, h.Logger, err, "series")
		return
	}

	h.Logger.Info("series deleted", zap.String("user", GetClaims(r.Context()).Username), zap.String("series_id", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "series deleted"})
}
