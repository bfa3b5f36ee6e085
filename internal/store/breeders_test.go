package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

func TestCreateBreederNormalisesCode(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := mustSeries(t, database, "Albino")

	b := mustBreeder(t, database, model.BreederInput{
		Code: "  hb-1-a ", SeriesID: s.ID, Sex: model.SexMale, SireCode: "hb-1", MateCode: "f-2",
	})
	if b.Code != "HB-1-A" {
		t.Errorf("code = %q, want HB-1-A", b.Code)
	}
	if b.SireCode != "HB-1" || b.MateCode != "F-2" {
		t.Errorf("sire/mate = %q/%q", b.SireCode, b.MateCode)
	}
	if b.Name != "HB-1-A" {
		t.Errorf("name should default to code, got %q", b.Name)
	}
	if b.Price != 0 || !b.InStock {
		t.Errorf("defaults: price=%v inStock=%v", b.Price, b.InStock)
	}
	if b.Sort.Prefix == nil || *b.Sort.Prefix != "HB" || b.Sort.ParentNumber == nil || *b.Sort.ParentNumber != 1 ||
		b.Sort.ChildLetter == nil || *b.Sort.ChildLetter != "A" || b.Sort.ChildNumber != nil {
		t.Errorf("sort components not persisted: %+v", b.Sort)
	}

	got, err := GetBreederByCode(ctx, database, "HB-1-A")
	if err != nil || got == nil || got.ID != b.ID {
		t.Fatalf("GetBreederByCode: %v %v", got, err)
	}
}

func TestCreateBreederRules(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	price := 120.0

	mustBreeder(t, database, model.BreederInput{Code: "A-1"})

	_, err := CreateBreeder(ctx, database, model.BreederInput{Code: "a-1"})
	if !errors.Is(err, ErrCodeExists) {
		t.Errorf("duplicate code: expected ErrCodeExists, got %v", err)
	}

	_, err = CreateBreeder(ctx, database, model.BreederInput{Code: "   "})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("empty code: expected ErrValidation, got %v", err)
	}

	_, err = CreateBreeder(ctx, database, model.BreederInput{Code: "M-1", Sex: model.SexMale, OffspringUnitPrice: &price})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("male offspring price: expected ErrValidation, got %v", err)
	}

	f := mustBreeder(t, database, model.BreederInput{Code: "F-1", Sex: model.SexFemale, OffspringUnitPrice: &price})
	if f.OffspringUnitPrice == nil || *f.OffspringUnitPrice != 120 {
		t.Errorf("female offspring price = %v", f.OffspringUnitPrice)
	}
}

func TestListAlbumBreedersNaturalOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := mustSeries(t, database, "白化")
	other := mustSeries(t, database, "Other")

	for _, code := range []string{"白化-10", "白化-2", "白化-1", "白化-1-B", "白化-1-2", "白化"} {
		mustBreeder(t, database, model.BreederInput{Code: code, SeriesID: s.ID, Sex: model.SexFemale})
	}
	mustBreeder(t, database, model.BreederInput{Code: "X-1", SeriesID: other.ID, Sex: model.SexMale})
	// Not in the album: no series.
	mustBreeder(t, database, model.BreederInput{Code: "白化-3", Sex: model.SexFemale})

	got, err := ListAlbumBreeders(ctx, database, AlbumFilter{SeriesID: s.ID})
	if err != nil {
		t.Fatalf("ListAlbumBreeders: %v", err)
	}
	want := []string{"白化-1-2", "白化-1-B", "白化-1", "白化-2", "白化-10", "白化"}
	if diff := cmp.Diff(want, codes(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	males, err := ListAlbumBreeders(ctx, database, AlbumFilter{Sex: model.SexMale})
	if err != nil {
		t.Fatalf("ListAlbumBreeders: %v", err)
	}
	if diff := cmp.Diff([]string{"X-1"}, codes(males)); diff != "" {
		t.Errorf("sex filter (-want +got):\n%s", diff)
	}

	limited, _ := ListAlbumBreeders(ctx, database, AlbumFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit: got %d rows", len(limited))
	}
}

func TestUpdateBreederPatch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	price := 80.0

	b := mustBreeder(t, database, model.BreederInput{
		Code: "F-1", Sex: model.SexFemale, OffspringUnitPrice: &price, Description: "keep", Price: &price,
	})
	mustBreeder(t, database, model.BreederInput{Code: "F-2"})

	// Absent fields are untouched; explicit null price stores 0.
	updated, err := UpdateBreeder(ctx, database, b.ID, model.BreederPatch{
		Price:    model.Null[float64](),
		MateCode: model.Of("m-9"),
	})
	if err != nil {
		t.Fatalf("UpdateBreeder: %v", err)
	}
	if updated.Price != 0 {
		t.Errorf("price = %v, want 0", updated.Price)
	}
	if updated.Description != "keep" || updated.MateCode != "M-9" {
		t.Errorf("description/mate = %q/%q", updated.Description, updated.MateCode)
	}
	if updated.OffspringUnitPrice == nil {
		t.Error("offspring price should be kept")
	}

	// Code conflict.
	_, err = UpdateBreeder(ctx, database, b.ID, model.BreederPatch{Code: model.Of("f-2")})
	if !errors.Is(err, ErrCodeExists) {
		t.Errorf("expected ErrCodeExists, got %v", err)
	}

	// Switching away from female clears the offspring price.
	updated, err = UpdateBreeder(ctx, database, b.ID, model.BreederPatch{Sex: model.Of(model.SexMale)})
	if err != nil {
		t.Fatalf("UpdateBreeder: %v", err)
	}
	if updated.OffspringUnitPrice != nil {
		t.Errorf("offspring price should be cleared, got %v", *updated.OffspringUnitPrice)
	}

	// Offspring price needs a female.
	_, err = UpdateBreeder(ctx, database, b.ID, model.BreederPatch{OffspringUnitPrice: model.Of(10.0)})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	// Sort columns follow the code.
	updated, err = UpdateBreeder(ctx, database, b.ID, model.BreederPatch{Code: model.Of("hb-7")})
	if err != nil {
		t.Fatalf("UpdateBreeder: %v", err)
	}
	if updated.Code != "HB-7" || updated.Sort.ParentNumber == nil || *updated.Sort.ParentNumber != 7 {
		t.Errorf("code/sort after rename: %q %+v", updated.Code, updated.Sort)
	}

	// Empty patch and missing breeder.
	if _, err := UpdateBreeder(ctx, database, b.ID, model.BreederPatch{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty patch: expected ErrValidation, got %v", err)
	}
	if _, err := UpdateBreeder(ctx, database, "missing", model.BreederPatch{Name: model.Of("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing breeder: expected ErrNotFound, got %v", err)
	}
}

func TestListProducts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for i, code := range []string{"AA-1", "AB-2", "BB-3"} {
		p := float64(100 - i*10)
		mustBreeder(t, database, model.BreederInput{Code: code, Price: &p, PopularityScore: i, Description: "turtle " + code})
	}

	items, total, err := ListProducts(ctx, database, ProductQuery{Search: "a", Sort: SortPriceLow, Limit: 10})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if diff := cmp.Diff([]string{"AB-2", "AA-1"}, codes(items)); diff != "" {
		t.Errorf("price_low (-want +got):\n%s", diff)
	}

	items, total, _ = ListProducts(ctx, database, ProductQuery{Sort: SortPopular, Limit: 1, Page: 2})
	if total != 3 || len(items) != 1 || items[0].Code != "AB-2" {
		t.Errorf("popular page 2: total=%d items=%v", total, codes(items))
	}
}

func TestListFeaturedProductsFallback(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	mustBreeder(t, database, model.BreederInput{Code: "A-1"})
	got, err := ListFeaturedProducts(ctx, database, 8)
	if err != nil {
		t.Fatalf("ListFeaturedProducts: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("fallback should return newest, got %d", len(got))
	}

	mustBreeder(t, database, model.BreederInput{Code: "B-1", IsFeatured: true})
	got, _ = ListFeaturedProducts(ctx, database, 8)
	if diff := cmp.Diff([]string{"B-1"}, codes(got)); diff != "" {
		t.Errorf("featured (-want +got):\n%s", diff)
	}
}

func TestDeleteBreederRemovesDependents(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f := mustBreeder(t, database, model.BreederInput{Code: "F-1", Sex: model.SexFemale})
	m := mustBreeder(t, database, model.BreederInput{Code: "M-1", Sex: model.SexMale})
	if _, err := CreateMatingRecord(ctx, database, f.ID, m.ID, day(2025, 1, 1), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := AddImage(ctx, database, f.ID, NewImage{URL: "/images/F-1/a.jpg"}); err != nil {
		t.Fatal(err)
	}

	if err := DeleteBreeder(ctx, database, f.ID); err != nil {
		t.Fatalf("DeleteBreeder: %v", err)
	}
	if got, _ := GetBreeder(ctx, database, f.ID); got != nil {
		t.Error("breeder still exists")
	}
	recs, _ := ListMatingRecords(ctx, database, m.ID, false)
	if len(recs) != 0 {
		t.Errorf("mating records left: %d", len(recs))
	}
	if err := DeleteBreeder(ctx, database, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
