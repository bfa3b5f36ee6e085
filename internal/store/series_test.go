package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

func TestCreateSeriesSortOrderAndUniqueness(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first := mustSeries(t, database, "  Albino ")
	if first.Name != "Albino" {
		t.Errorf("name not trimmed: %q", first.Name)
	}
	if first.SortOrder != 0 || !first.IsActive {
		t.Errorf("first series: sortOrder=%d active=%v", first.SortOrder, first.IsActive)
	}

	second := mustSeries(t, database, "Melanistic")
	if second.SortOrder != 1 {
		t.Errorf("second sort order = %d, want 1", second.SortOrder)
	}

	_, err := CreateSeries(ctx, database, model.SeriesInput{Name: "ALBINO"})
	if !errors.Is(err, ErrSeriesNameExists) {
		t.Errorf("expected ErrSeriesNameExists, got %v", err)
	}

	if _, err := CreateSeries(ctx, database, model.SeriesInput{Name: "  "}); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestListSeriesActiveOnly(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	inactive := false
	order := 5
	mustSeries(t, database, "A")
	if _, err := CreateSeries(ctx, database, model.SeriesInput{Name: "B", IsActive: &inactive, SortOrder: &order}); err != nil {
		t.Fatal(err)
	}

	active, _ := ListSeries(ctx, database, false)
	if len(active) != 1 || active[0].Name != "A" {
		t.Errorf("active series = %+v", active)
	}
	all, _ := ListSeries(ctx, database, true)
	if len(all) != 2 || all[1].Name != "B" {
		t.Errorf("all series = %+v", all)
	}
}

func TestUpdateSeries(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a := mustSeries(t, database, "A")
	mustSeries(t, database, "B")

	_, err := UpdateSeries(ctx, database, a.ID, model.SeriesPatch{Name: model.Of("b")})
	if !errors.Is(err, ErrSeriesNameExists) {
		t.Errorf("expected ErrSeriesNameExists, got %v", err)
	}

	// Renaming to a different case of its own name is allowed.
	got, err := UpdateSeries(ctx, database, a.ID, model.SeriesPatch{Name: model.Of("a"), IsActive: model.Of(false)})
	if err != nil {
		t.Fatalf("UpdateSeries: %v", err)
	}
	if got.Name != "a" || got.IsActive {
		t.Errorf("updated series = %+v", got)
	}

	if _, err := UpdateSeries(ctx, database, "missing", model.SeriesPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSeriesInUse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	s := mustSeries(t, database, "A")
	b := mustBreeder(t, database, model.BreederInput{Code: "A-1", SeriesID: s.ID, Sex: model.SexMale})

	if err := DeleteSeries(ctx, database, s.ID); !errors.Is(err, ErrSeriesInUse) {
		t.Fatalf("expected ErrSeriesInUse, got %v", err)
	}

	if err := DeleteBreeder(ctx, database, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := DeleteSeries(ctx, database, s.ID); err != nil {
		t.Fatalf("DeleteSeries: %v", err)
	}
	if got, _ := GetSeries(ctx, database, s.ID); got != nil {
		t.Error("series still exists")
	}
}
