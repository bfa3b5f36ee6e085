package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/timeline"
)

// CreateMatingRecord stores a legacy mating record.
func CreateMatingRecord(ctx context.Context, q db.Querier, femaleID, maleID string, matedAt time.Time, notes string) (*model.MatingRecord, error) {
	r := &model.MatingRecord{
		ID:        newID(),
		FemaleID:  femaleID,
		MaleID:    maleID,
		MatedAt:   matedAt,
		Notes:     notes,
		CreatedAt: now(),
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO mating_records (id, female_id, male_id, mated_at, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.FemaleID, r.MaleID, timeline.FormatTime(matedAt), notes, r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating mating record: %w", err)
	}
	return r, nil
}

// DeleteMatingRecord deletes a mating record.
func DeleteMatingRecord(ctx context.Context, q db.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM mating_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting mating record: %w", err)
	}
	return checkAffected(res)
}

// ListMatingRecords returns mating records where the breeder is the female
// (asFemale) or the male, newest first, with the partner's code resolved.
func ListMatingRecords(ctx context.Context, q db.Querier, breederID string, asFemale bool) ([]model.MatingRecord, error) {
	col := "r.male_id"
	partner := "r.female_id"
	if asFemale {
		col, partner = "r.female_id", "r.male_id"
	}

	rows, err := q.QueryContext(ctx,
		`SELECT r.id, r.female_id, r.male_id, r.mated_at, r.notes, r.created_at, p.id, p.code
		 FROM mating_records r
		 LEFT JOIN breeders p ON p.id = `+partner+`
		 WHERE `+col+` = ?
		 ORDER BY r.mated_at DESC, r.created_at DESC`, breederID)
	if err != nil {
		return nil, fmt.Errorf("listing mating records: %w", err)
	}
	defer rows.Close()

	out := []model.MatingRecord{}
	for rows.Next() {
		var r model.MatingRecord
		var matedAt string
		var pid, pcode sql.NullString
		if err := rows.Scan(&r.ID, &r.FemaleID, &r.MaleID, &matedAt, &r.Notes, &r.CreatedAt, &pid, &pcode); err != nil {
			return nil, fmt.Errorf("scanning mating record: %w", err)
		}
		if t, err := timeline.ParseTime(matedAt); err == nil {
			r.MatedAt = t
		}
		if pid.Valid {
			ref := &model.BreederRef{ID: pid.String, Code: pcode.String}
			if asFemale {
				r.Male = ref
			} else {
				r.Female = ref
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestMateID returns the male of the female's most recent mating record.
func LatestMateID(ctx context.Context, q db.Querier, femaleID string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT male_id FROM mating_records WHERE female_id = ? ORDER BY mated_at DESC, created_at DESC LIMIT 1`, femaleID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting latest mate: %w", err)
	}
	return id, nil
}

// CreateEggRecord stores a legacy egg record.
func CreateEggRecord(ctx context.Context, q db.Querier, femaleID string, laidAt time.Time, count *int, notes string) (*model.EggRecord, error) {
	r := &model.EggRecord{
		ID:        newID(),
		FemaleID:  femaleID,
		LaidAt:    laidAt,
		Count:     count,
		Notes:     notes,
		CreatedAt: now(),
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO egg_records (id, female_id, laid_at, count, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.FemaleID, timeline.FormatTime(laidAt), count, notes, r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating egg record: %w", err)
	}
	return r, nil
}

// DeleteEggRecord deletes an egg record.
func DeleteEggRecord(ctx context.Context, q db.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM egg_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting egg record: %w", err)
	}
	return checkAffected(res)
}

// ListEggRecords returns a female's egg records, newest first.
func ListEggRecords(ctx context.Context, q db.Querier, femaleID string) ([]model.EggRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, female_id, laid_at, count, notes, created_at
		 FROM egg_records WHERE female_id = ? ORDER BY laid_at DESC, created_at DESC`, femaleID)
	if err != nil {
		return nil, fmt.Errorf("listing egg records: %w", err)
	}
	defer rows.Close()

	out := []model.EggRecord{}
	for rows.Next() {
		var r model.EggRecord
		var laidAt string
		var count sql.NullInt64
		if err := rows.Scan(&r.ID, &r.FemaleID, &laidAt, &count, &r.Notes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning egg record: %w", err)
		}
		if t, err := timeline.ParseTime(laidAt); err == nil {
			r.LaidAt = t
		}
		if count.Valid {
			n := int(count.Int64)
			r.Count = &n
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
