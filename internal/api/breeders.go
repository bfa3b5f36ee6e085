package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/codesort"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/mating"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
	"github.com/erazemk/turtlealbum/internal/timeline"
)

// BreedersHandler serves the public album: breeder lists, details and the
// derived views built on top of them.
type BreedersHandler struct {
	DB         *db.DB
	Logger     *zap.Logger
	Thresholds mating.Thresholds
	// Now is the clock used for day counts; nil means the current UTC time.
	Now func() time.Time
}

func (h *BreedersHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

type breederListItem struct {
	model.Breeder
	NeedMatingStatus mating.Status `json:"needMatingStatus,omitempty"`
	LastEggAt        *time.Time    `json:"lastEggAt"`
	LastMatingAt     *time.Time    `json:"lastMatingAt"`
	DaysSinceEgg     *int          `json:"daysSinceEgg"`
}

type breederDetail struct {
	*model.Breeder
	CurrentMateCode *string           `json:"currentMateCode"`
	CurrentMate     *model.BreederRef `json:"currentMate"`
}

type breederByCode struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	MainImageURL *string `json:"mainImageUrl"`
}

type breederRecords struct {
	BreederID             string               `json:"breederId"`
	Sex                   string               `json:"sex"`
	CurrentMate           *model.BreederRef    `json:"currentMate"`
	MatingRecordsAsFemale []model.MatingRecord `json:"matingRecordsAsFemale"`
	MatingRecordsAsMale   []model.MatingRecord `json:"matingRecordsAsMale"`
	EggRecords            []model.EggRecord    `json:"eggRecords"`
}

type mateLoadResponse struct {
	MaleID   string         `json:"maleId"`
	MaleCode string         `json:"maleCode"`
	Totals   mating.Totals  `json:"totals"`
	Items    []mating.Entry `json:"items"`
}

// List handles GET /api/breeders.
func (h *BreedersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sex := q.Get("sex")
	if sex != "" && !model.ValidSex(sex) {
		jsonError(w, http.StatusBadRequest, "invalid sex; must be male or female")
		return
	}
	limit, err := queryInt(r, "limit", 200, 1, 1000)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	breeders, err := store.ListAlbumBreeders(r.Context(), h.DB, store.AlbumFilter{
		SeriesID: q.Get("series_id"),
		Sex:      sex,
		Limit:    limit,
	})
	if err != nil {
		storeError(w, h.Logger, err, "failed to list breeders")
		return
	}

	var females []string
	for _, b := range breeders {
		if b.Sex == model.SexFemale {
			females = append(females, b.ID)
		}
	}
	activity, err := store.FemaleActivity(r.Context(), h.DB, females)
	if err != nil {
		storeError(w, h.Logger, err, "failed to read breeding activity")
		return
	}

	now := h.now()
	items := make([]breederListItem, 0, len(breeders))
	for _, b := range breeders {
		item := breederListItem{Breeder: b}
		if b.Sex == model.SexFemale {
			a := activity[b.ID]
			item.LastEggAt = a.LastEggAt
			item.LastMatingAt = a.LastMatingAt
			item.DaysSinceEgg = mating.DaysSince(now, a.LastEggAt)
			item.NeedMatingStatus = h.Thresholds.Classify(now, a.LastEggAt, a.LastMatingAt)
		}
		items = append(items, item)
	}
	jsonResponse(w, http.StatusOK, items)
}

// ByCode handles GET /api/breeders/by-code/{code}.
func (h *BreedersHandler) ByCode(w http.ResponseWriter, r *http.Request) {
	b, err := store.GetAlbumBreederByCode(r.Context(), h.DB, codesort.Upper(chi.URLParam(r, "code")))
	if err != nil {
		storeError(w, h.Logger, err, "failed to get breeder")
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "breeder not found")
		return
	}

	resp := breederByCode{ID: b.ID, Code: b.Code}
	if img := b.MainImage(); img != nil {
		resp.MainImageURL = &img.URL
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Get handles GET /api/breeders/{id}.
func (h *BreedersHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, ok := h.albumBreeder(w, r)
	if !ok {
		return
	}

	mate, err := h.resolveMate(r.Context(), b)
	if err != nil {
		storeError(w, h.Logger, err, "failed to resolve mate")
		return
	}
	jsonResponse(w, http.StatusOK, breederDetail{
		Breeder:         b,
		CurrentMateCode: currentMateCode(b),
		CurrentMate:     mate,
	})
}

// Records handles GET /api/breeders/{id}/records.
func (h *BreedersHandler) Records(w http.ResponseWriter, r *http.Request) {
	b, ok := h.albumBreeder(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	resp := breederRecords{
		BreederID:             b.ID,
		Sex:                   b.Sex,
		MatingRecordsAsFemale: []model.MatingRecord{},
		MatingRecordsAsMale:   []model.MatingRecord{},
		EggRecords:            []model.EggRecord{},
	}

	var err error
	switch b.Sex {
	case model.SexFemale:
		if resp.CurrentMate, err = h.resolveMate(ctx, b); err != nil {
			break
		}
		if resp.MatingRecordsAsFemale, err = store.ListMatingRecords(ctx, h.DB, b.ID, true); err != nil {
			break
		}
		resp.EggRecords, err = store.ListEggRecords(ctx, h.DB, b.ID)
	case model.SexMale:
		resp.MatingRecordsAsMale, err = store.ListMatingRecords(ctx, h.DB, b.ID, false)
	}
	if err != nil {
		storeError(w, h.Logger, err, "failed to list records")
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Events handles GET /api/breeders/{id}/events.
func (h *BreedersHandler) Events(w http.ResponseWriter, r *http.Request) {
	b, ok := h.albumBreeder(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	eventType := q.Get("type")
	if eventType != "" && !model.ValidEventType(eventType) {
		jsonError(w, http.StatusBadRequest, "invalid event type")
		return
	}
	limit, err := queryInt(r, "limit", timeline.DefaultLimit, 1, timeline.MaxLimit)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	var after *timeline.Position
	if cursor := q.Get("cursor"); cursor != "" {
		pos, err := timeline.Decode(cursor)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		after = &pos
	}

	rows, err := store.ListEvents(r.Context(), h.DB, b.ID, eventType, after, limit)
	if err != nil {
		storeError(w, h.Logger, err, "failed to list events")
		return
	}
	jsonResponse(w, http.StatusOK, timeline.NewPage(rows, limit, store.EventPosition))
}

// MateLoad handles GET /api/breeders/{id}/mate-load.
func (h *BreedersHandler) MateLoad(w http.ResponseWriter, r *http.Request) {
	b, ok := h.albumBreeder(w, r)
	if !ok {
		return
	}
	if b.Sex != model.SexMale {
		jsonError(w, http.StatusBadRequest, "mate-load is only supported for male breeders")
		return
	}

	limit, err := queryInt(r, "limit", 80, 1, 300)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeFallback, err := queryBool(r, "include_fallback", true)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := store.MateLoad(r.Context(), h.DB, b, includeFallback)
	if err != nil {
		storeError(w, h.Logger, err, "failed to compute mate load")
		return
	}

	now := h.now()
	entries := make([]mating.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, mating.Entry{
			FemaleID:                 row.FemaleID,
			FemaleCode:               row.FemaleCode,
			LastEggAt:                row.Activity.LastEggAt,
			LastMatingAt:             row.Activity.LastMatingAt,
			LastMatingWithThisMaleAt: row.LastMatingWithMaleAt,
			DaysSinceEgg:             mating.DaysSince(now, row.Activity.LastEggAt),
			Status:                   h.Thresholds.Classify(now, row.Activity.LastEggAt, row.Activity.LastMatingAt),
		})
	}
	mating.Rank(entries)
	totals := mating.Tally(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}

	jsonResponse(w, http.StatusOK, mateLoadResponse{
		MaleID:   b.ID,
		MaleCode: b.Code,
		Totals:   totals,
		Items:    entries,
	})
}

// albumBreeder loads the {id} breeder and writes a 404 unless it is shown in
// the album.
func (h *BreedersHandler) albumBreeder(w http.ResponseWriter, r *http.Request) (*model.Breeder, bool) {
	b, err := store.GetBreeder(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, h.Logger, err, "failed to get breeder")
		return nil, false
	}
	if b == nil || !b.InAlbum() {
		jsonError(w, http.StatusNotFound, "breeder not found")
		return nil, false
	}
	return b, true
}

// currentMateCode is the female's explicit mate code, else the code from the
// last mate-change note in her description.
func currentMateCode(b *model.Breeder) *string {
	if b.Sex != model.SexFemale {
		return nil
	}
	code := strings.TrimSpace(b.MateCode)
	if code == "" {
		code = strings.TrimSpace(mating.ParseMateChange(b.Description))
	}
	if code == "" {
		return nil
	}
	return &code
}

// resolveMate finds the current male of a female: the explicit mate code,
// then the last mate-change note, then the male of the latest mating
// record. Codes are tried with and without the trailing 公.
func (h *BreedersHandler) resolveMate(ctx context.Context, b *model.Breeder) (*model.BreederRef, error) {
	if b.Sex != model.SexFemale {
		return nil, nil
	}

	for _, code := range []string{b.MateCode, mating.ParseMateChange(b.Description)} {
		for _, c := range mating.MateCodeCandidates(code) {
			m, err := store.GetAlbumBreederByCode(ctx, h.DB, codesort.Upper(c))
			if err != nil {
				return nil, err
			}
			if m != nil && m.Sex == model.SexMale {
				return &model.BreederRef{ID: m.ID, Code: m.Code}, nil
			}
		}
	}

	id, err := store.LatestMateID(ctx, h.DB, b.ID)
	if err != nil || id == "" {
		return nil, err
	}
	m, err := store.GetBreeder(ctx, h.DB, id)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Sex != model.SexMale {
		return nil, nil
	}
	return &model.BreederRef{ID: m.ID, Code: m.Code}, nil
}
