package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/mating"
	"github.com/erazemk/turtlealbum/internal/model"
)

// Activity is a female's most recent egg and mating dates, merged from the
// event log and the legacy record tables.
type Activity struct {
	LastEggAt    *time.Time
	LastMatingAt *time.Time
}

func pick(a, b map[string]time.Time, id string) *time.Time {
	var pa, pb *time.Time
	if t, ok := a[id]; ok {
		pa = &t
	}
	if t, ok := b[id]; ok {
		pb = &t
	}
	return mating.PickLatest(pa, pb)
}

// FemaleActivity returns the activity of each listed female with four
// grouped queries, whatever the number of ids.
func FemaleActivity(ctx context.Context, q db.Querier, femaleIDs []string) (map[string]Activity, error) {
	out := make(map[string]Activity, len(femaleIDs))
	if len(femaleIDs) == 0 {
		return out, nil
	}
	in, args := inArgs(femaleIDs)

	eggEvents, err := lastDates(ctx, q,
		`SELECT breeder_id, MAX(event_date) FROM breeder_events
		 WHERE event_type = 'egg' AND breeder_id IN (`+in+`) GROUP BY breeder_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("reading last egg events: %w", err)
	}
	eggRecords, err := lastDates(ctx, q,
		`SELECT female_id, MAX(laid_at) FROM egg_records
		 WHERE female_id IN (`+in+`) GROUP BY female_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("reading last egg records: %w", err)
	}
	matingEvents, err := lastDates(ctx, q,
		`SELECT breeder_id, MAX(event_date) FROM breeder_events
		 WHERE event_type = 'mating' AND breeder_id IN (`+in+`) GROUP BY breeder_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("reading last mating events: %w", err)
	}
	matingRecords, err := lastDates(ctx, q,
		`SELECT female_id, MAX(mated_at) FROM mating_records
		 WHERE female_id IN (`+in+`) GROUP BY female_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("reading last mating records: %w", err)
	}

	for _, id := range femaleIDs {
		out[id] = Activity{
			LastEggAt:    pick(eggEvents, eggRecords, id),
			LastMatingAt: pick(matingEvents, matingRecords, id),
		}
	}
	return out, nil
}

// MateLoadRow is one female related to a male, with her activity.
type MateLoadRow struct {
	FemaleID             string
	FemaleCode           string
	Activity             Activity
	LastMatingWithMaleAt *time.Time
}

// MateLoad collects the females related to male: those with mating events
// naming his code, those with legacy mating records against him and, when
// includeFallback is set, album females whose mate code is his code with or
// without the trailing 公.
func MateLoad(ctx context.Context, q db.Querier, male *model.Breeder, includeFallback bool) ([]MateLoadRow, error) {
	withEvents, err := lastDates(ctx, q,
		`SELECT breeder_id, MAX(event_date) FROM breeder_events
		 WHERE event_type = 'mating' AND male_code = ? GROUP BY breeder_id`, male.Code)
	if err != nil {
		return nil, fmt.Errorf("reading mating events with male: %w", err)
	}
	withRecords, err := lastDates(ctx, q,
		`SELECT female_id, MAX(mated_at) FROM mating_records
		 WHERE male_id = ? GROUP BY female_id`, male.ID)
	if err != nil {
		return nil, fmt.Errorf("reading mating records with male: %w", err)
	}

	ids := map[string]bool{}
	for id := range withEvents {
		ids[id] = true
	}
	for id := range withRecords {
		ids[id] = true
	}

	if includeFallback {
		if candidates := mating.MateCodeCandidates(male.Code); len(candidates) > 0 {
			in, args := inArgs(candidates)
			rows, err := q.QueryContext(ctx,
				`SELECT id FROM breeders
				 WHERE series_id IS NOT NULL AND sex = 'female' AND mate_code IN (`+in+`)`, args...)
			if err != nil {
				return nil, fmt.Errorf("reading fallback females: %w", err)
			}
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					rows.Close()
					return nil, fmt.Errorf("scanning fallback female: %w", err)
				}
				ids[id] = true
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return nil, err
			}
		}
	}

	if len(ids) == 0 {
		return []MateLoadRow{}, nil
	}

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	in, args := inArgs(list)

	type female struct{ id, code string }
	var females []female
	rows, err := q.QueryContext(ctx,
		`SELECT id, code FROM breeders
		 WHERE id IN (`+in+`) AND series_id IS NOT NULL AND sex = 'female'`, args...)
	if err != nil {
		return nil, fmt.Errorf("reading related females: %w", err)
	}
	for rows.Next() {
		var f female
		if err := rows.Scan(&f.id, &f.code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning related female: %w", err)
		}
		females = append(females, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	femaleIDs := make([]string, len(females))
	for i, f := range females {
		femaleIDs[i] = f.id
	}
	activity, err := FemaleActivity(ctx, q, femaleIDs)
	if err != nil {
		return nil, err
	}

	out := make([]MateLoadRow, 0, len(females))
	for _, f := range females {
		out = append(out, MateLoadRow{
			FemaleID:             f.id,
			FemaleCode:           f.code,
			Activity:             activity[f.id],
			LastMatingWithMaleAt: pick(withEvents, withRecords, f.id),
		})
	}
	return out, nil
}
