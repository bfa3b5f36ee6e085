package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
	"github.com/erazemk/turtlealbum/internal/timeline"
)

// RecordsHandler handles the admin breeding log: legacy mating and egg
// records and the structured event timeline.
type RecordsHandler struct {
	DB     *db.DB
	Logger *zap.Logger
}

// CreateMating handles POST /api/admin/mating-records.
func (h *RecordsHandler) CreateMating(w http.ResponseWriter, r *http.Request) {
	var in model.MatingRecordInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.FemaleID == "" || in.MaleID == "" {
		jsonError(w, http.StatusBadRequest, "female_id and male_id required")
		return
	}
	matedAt, ok := parseRecordDate(w, "mated_at", in.MatedAt)
	if !ok {
		return
	}
	if !h.requireSex(w, r, in.FemaleID, model.SexFemale) || !h.requireSex(w, r, in.MaleID, model.SexMale) {
		return
	}

	rec, err := store.CreateMatingRecord(r.Context(), h.DB, in.FemaleID, in.MaleID, matedAt, strings.TrimSpace(in.Notes))
	if err != nil {
		storeError(w, h.Logger, err, "failed to create mating record")
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

// DeleteMating handles DELETE /api/admin/mating-records/{id}.
func (h *RecordsHandler) DeleteMating(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteMatingRecord(r.Context(), h.DB, chi.URLParam(r, "id")); err != nil {
		storeError(w, h.Logger, err, "mating record")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "mating record deleted"})
}

// CreateEgg handles POST /api/admin/egg-records.
func (h *RecordsHandler) CreateEgg(w http.ResponseWriter, r *http.Request) {
	var in model.EggRecordInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.FemaleID == "" {
		jsonError(w, http.StatusBadRequest, "female_id required")
		return
	}
	if in.Count != nil && *in.Count < 0 {
		jsonError(w, http.StatusBadRequest, "count must not be negative")
		return
	}
	laidAt, ok := parseRecordDate(w, "laid_at", in.LaidAt)
	if !ok {
		return
	}
	if !h.requireSex(w, r, in.FemaleID, model.SexFemale) {
		return
	}

	rec, err := store.CreateEggRecord(r.Context(), h.DB, in.FemaleID, laidAt, in.Count, strings.TrimSpace(in.Notes))
	if err != nil {
		storeError(w, h.Logger, err, "failed to create egg record")
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

// DeleteEgg handles DELETE /api/admin/egg-records/{id}.
func (h *RecordsHandler) DeleteEgg(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteEggRecord(r.Context(), h.DB, chi.URLParam(r, "id")); err != nil {
		storeError(w, h.Logger, err, "egg record")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "egg record deleted"})
}

// CreateEvent handles POST /api/admin/breeders/{id}/events.
func (h *RecordsHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.EggCount != nil && *in.EggCount < 0 {
		jsonError(w, http.StatusBadRequest, "egg_count must not be negative")
		return
	}

	b, err := store.GetBreeder(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, h.Logger, err, "failed to get breeder")
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "breeder not found")
		return
	}

	e, err := store.CreateEvent(r.Context(), h.DB, b, in)
	if err != nil {
		storeError(w, h.Logger, err, "failed to create event")
		return
	}

	h.Logger.Info("event created",
		zap.String("user", GetClaims(r.Context()).Username), zap.String("code", b.Code), zap.String("type", e.EventType))
	jsonResponse(w, http.StatusCreated, e)
}

// DeleteEvent handles DELETE /api/admin/events/{id}.
func (h *RecordsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := store.GetEvent(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Logger, err, "failed to get event")
		return
	}
	if e == nil {
		jsonError(w, http.StatusNotFound, "event: not found")
		return
	}
	if err := store.DeleteEvent(r.Context(), h.DB, id); err != nil {
		storeError(w, h.Logger, err, "event")
		return
	}

	h.Logger.Info("event deleted",
		zap.String("user", GetClaims(r.Context()).Username),
		zap.String("breeder_id", e.BreederID), zap.String("type", e.EventType))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

// requireSex writes an error and returns false unless breeder id exists and
// has the given sex.
func (h *RecordsHandler) requireSex(w http.ResponseWriter, r *http.Request, id, sex string) bool {
	b, err := store.GetBreeder(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Logger, err, "failed to get breeder")
		return false
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "breeder "+id+" not found")
		return false
	}
	if b.Sex != sex {
		jsonError(w, http.StatusBadRequest, "breeder "+b.Code+" is not "+sex)
		return false
	}
	return true
}

// parseRecordDate parses an optional record date, defaulting to now.
func parseRecordDate(w http.ResponseWriter, field, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), true
	}
	t, err := timeline.ParseTime(raw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid "+field)
		return time.Time{}, false
	}
	return t, true
}
