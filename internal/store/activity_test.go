package store

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

func TestFemaleActivityMergesSources(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f1 := mustBreeder(t, database, model.BreederInput{Code: "F-1", Sex: model.SexFemale})
	f2 := mustBreeder(t, database, model.BreederInput{Code: "F-2", Sex: model.SexFemale})
	f3 := mustBreeder(t, database, model.BreederInput{Code: "F-3", Sex: model.SexFemale})
	m := mustBreeder(t, database, model.BreederInput{Code: "M-1", Sex: model.SexMale})

	// F-1: the event log is newer for eggs, the legacy table for matings.
	insertEvent(t, database, "e1", f1.ID, model.EventEgg, day(2025, 4, 10), day(2025, 4, 10))
	if _, err := CreateEggRecord(ctx, database, f1.ID, day(2025, 4, 1), nil, ""); err != nil {
		t.Fatal(err)
	}
	insertEvent(t, database, "e2", f1.ID, model.EventMating, day(2025, 3, 1), day(2025, 3, 1))
	if _, err := CreateMatingRecord(ctx, database, f1.ID, m.ID, day(2025, 3, 20), ""); err != nil {
		t.Fatal(err)
	}

	// F-2: only legacy egg records.
	count := 12
	if _, err := CreateEggRecord(ctx, database, f2.ID, day(2025, 2, 2), &count, "clutch"); err != nil {
		t.Fatal(err)
	}

	got, err := FemaleActivity(ctx, database, []string{f1.ID, f2.ID, f3.ID})
	if err != nil {
		t.Fatalf("FemaleActivity: %v", err)
	}

	a1 := got[f1.ID]
	if a1.LastEggAt == nil || !a1.LastEggAt.Equal(day(2025, 4, 10)) {
		t.Errorf("F-1 last egg = %v", a1.LastEggAt)
	}
	if a1.LastMatingAt == nil || !a1.LastMatingAt.Equal(day(2025, 3, 20)) {
		t.Errorf("F-1 last mating = %v", a1.LastMatingAt)
	}
	a2 := got[f2.ID]
	if a2.LastEggAt == nil || !a2.LastEggAt.Equal(day(2025, 2, 2)) || a2.LastMatingAt != nil {
		t.Errorf("F-2 activity = %+v", a2)
	}
	if a3 := got[f3.ID]; a3.LastEggAt != nil || a3.LastMatingAt != nil {
		t.Errorf("F-3 activity = %+v", a3)
	}

	eggs, _ := ListEggRecords(ctx, database, f2.ID)
	if len(eggs) != 1 || eggs[0].Count == nil || *eggs[0].Count != 12 || eggs[0].Notes != "clutch" {
		t.Errorf("egg records = %+v", eggs)
	}
}

func TestMateLoadSources(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := mustSeries(t, database, "S")

	male := mustBreeder(t, database, model.BreederInput{Code: "M-1", SeriesID: s.ID, Sex: model.SexMale})
	byEvent := mustBreeder(t, database, model.BreederInput{Code: "F-1", SeriesID: s.ID, Sex: model.SexFemale})
	byRecord := mustBreeder(t, database, model.BreederInput{Code: "F-2", SeriesID: s.ID, Sex: model.SexFemale})
	mustBreeder(t, database, model.BreederInput{Code: "F-3", SeriesID: s.ID, Sex: model.SexFemale, MateCode: "M-1公"})
	mustBreeder(t, database, model.BreederInput{Code: "F-4", SeriesID: s.ID, Sex: model.SexFemale, MateCode: "M-2"})

	_, err := database.ExecContext(ctx,
		`INSERT INTO breeder_events (id, breeder_id, event_type, event_date, male_code, created_at)
		 VALUES ('ev', ?, 'mating', '2025-05-05T00:00:00.000000', 'M-1', '2025-05-05T00:00:00.000000')`, byEvent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateMatingRecord(ctx, database, byRecord.ID, male.ID, day(2025, 4, 4), ""); err != nil {
		t.Fatal(err)
	}

	rows, err := MateLoad(ctx, database, male, true)
	if err != nil {
		t.Fatalf("MateLoad: %v", err)
	}
	var got []string
	withMale := map[string]bool{}
	for _, r := range rows {
		got = append(got, r.FemaleCode)
		withMale[r.FemaleCode] = r.LastMatingWithMaleAt != nil
	}
	sort.Strings(got)
	if diff := cmp.Diff([]string{"F-1", "F-2", "F-3"}, got); diff != "" {
		t.Errorf("related females (-want +got):\n%s", diff)
	}
	if !withMale["F-1"] || !withMale["F-2"] || withMale["F-3"] {
		t.Errorf("lastMatingWithThisMale presence = %v", withMale)
	}

	rows, err = MateLoad(ctx, database, male, false)
	if err != nil {
		t.Fatalf("MateLoad: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("without fallback: %d rows, want 2", len(rows))
	}
}

func TestListMatingRecordsResolvesPartner(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f := mustBreeder(t, database, model.BreederInput{Code: "F-1", Sex: model.SexFemale})
	m := mustBreeder(t, database, model.BreederInput{Code: "M-1", Sex: model.SexMale})
	m2 := mustBreeder(t, database, model.BreederInput{Code: "M-2", Sex: model.SexMale})
	CreateMatingRecord(ctx, database, f.ID, m.ID, day(2025, 1, 1), "first")
	CreateMatingRecord(ctx, database, f.ID, m2.ID, day(2025, 2, 1), "second")

	asFemale, err := ListMatingRecords(ctx, database, f.ID, true)
	if err != nil {
		t.Fatalf("ListMatingRecords: %v", err)
	}
	if len(asFemale) != 2 || asFemale[0].Male == nil || asFemale[0].Male.Code != "M-2" {
		t.Errorf("as female = %+v", asFemale)
	}
	if !asFemale[0].MatedAt.Equal(day(2025, 2, 1)) {
		t.Errorf("mated at = %v", asFemale[0].MatedAt)
	}

	asMale, _ := ListMatingRecords(ctx, database, m.ID, false)
	if len(asMale) != 1 || asMale[0].Female == nil || asMale[0].Female.Code != "F-1" {
		t.Errorf("as male = %+v", asMale)
	}

	latest, _ := LatestMateID(ctx, database, f.ID)
	if latest != m2.ID {
		t.Errorf("latest mate = %q, want %q", latest, m2.ID)
	}
}
