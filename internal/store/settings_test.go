package store

import (
	"context"
	"testing"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, database); err != nil {
		t.Fatal(err)
	}

	// First call should generate a secret.
	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call should return the same secret.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSiteSettingsDefaultsAndPatch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	s, err := GetSiteSettings(ctx, database)
	if err != nil {
		t.Fatalf("GetSiteSettings: %v", err)
	}
	if s.CompanyName != DefaultSiteSettings.CompanyName {
		t.Errorf("expected default company name, got %q", s.CompanyName)
	}

	updated, err := UpdateSiteSettings(ctx, database, model.SiteSettingsPatch{
		ContactPhone: model.Of("+386 1 234 5678"),
	})
	if err != nil {
		t.Fatalf("UpdateSiteSettings: %v", err)
	}
	if updated.ContactPhone != "+386 1 234 5678" {
		t.Errorf("phone = %q", updated.ContactPhone)
	}
	if updated.CompanyName != DefaultSiteSettings.CompanyName {
		t.Errorf("unpatched field changed to %q", updated.CompanyName)
	}

	// A second patch keeps the first one's values.
	if _, err := UpdateSiteSettings(ctx, database, model.SiteSettingsPatch{WechatNumber: model.Of("turtles")}); err != nil {
		t.Fatalf("UpdateSiteSettings: %v", err)
	}
	got, _ := GetSiteSettings(ctx, database)
	if got.ContactPhone != "+386 1 234 5678" || got.WechatNumber != "turtles" {
		t.Errorf("settings after two patches: %+v", got)
	}
}
