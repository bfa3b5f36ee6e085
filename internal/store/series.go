package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

const seriesColumns = `id, code, name, description, sort_order, is_active, created_at, updated_at`

func scanSeries(row interface{ Scan(...any) error }) (*model.Series, error) {
	s := &model.Series{}
	var code sql.NullString
	if err := row.Scan(&s.ID, &code, &s.Name, &s.Description, &s.SortOrder, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Code = code.String
	return s, nil
}

// ListSeries returns series ordered by sort order, newest first on ties.
func ListSeries(ctx context.Context, q db.Querier, includeInactive bool) ([]model.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order ASC, created_at DESC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}
	defer rows.Close()

	out := []model.Series{}
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetSeries returns a series by ID.
func GetSeries(ctx context.Context, q db.Querier, id string) (*model.Series, error) {
	s, err := scanSeries(q.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting series: %w", err)
	}
	return s, nil
}

// GetSeriesByName returns a series by name, ignoring case.
func GetSeriesByName(ctx context.Context, q db.Querier, name string) (*model.Series, error) {
	s, err := scanSeries(q.QueryRowContext(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE LOWER(name) = LOWER(?)`, strings.TrimSpace(name)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting series by name: %w", err)
	}
	return s, nil
}

func seriesNameTaken(ctx context.Context, q db.Querier, name, exceptID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM series WHERE LOWER(name) = LOWER(?) AND id <> ?`, name, exceptID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking series name: %w", err)
	}
	return n > 0, nil
}

// CreateSeries creates a series. The name is trimmed and must be unique
// ignoring case; a nil sort order appends after the current maximum.
func CreateSeries(ctx context.Context, q db.Querier, in model.SeriesInput) (*model.Series, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("creating series: name is required")
	}

	taken, err := seriesNameTaken(ctx, q, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSeriesNameExists
	}

	sortOrder := 0
	if in.SortOrder != nil {
		sortOrder = *in.SortOrder
	} else {
		var max sql.NullInt64
		if err := q.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM series`).Scan(&max); err != nil {
			return nil, fmt.Errorf("reading max sort order: %w", err)
		}
		if max.Valid {
			sortOrder = int(max.Int64) + 1
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	id := newID()
	ts := now()
	_, err = q.ExecContext(ctx,
		`INSERT INTO series (id, code, name, description, sort_order, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullString(strings.TrimSpace(in.Code)), name, in.Description, sortOrder, active, ts, ts,
	)
	if isUniqueViolation(err) {
		return nil, ErrSeriesNameExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating series: %w", err)
	}

	return GetSeries(ctx, q, id)
}

// UpdateSeries applies a patch to a series.
func UpdateSeries(ctx context.Context, q db.Querier, id string, p model.SeriesPatch) (*model.Series, error) {
	s, err := GetSeries(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}

	if p.Name.Set {
		name := strings.TrimSpace(p.Name.Value)
		if name == "" {
			return nil, fmt.Errorf("updating series: name is required")
		}
		taken, err := seriesNameTaken(ctx, q, name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrSeriesNameExists
		}
		s.Name = name
	}
	if p.Code.Set {
		s.Code = strings.TrimSpace(p.Code.Value)
	}
	if p.Description.Set {
		s.Description = p.Description.Value
	}
	if p.SortOrder.Set {
		s.SortOrder = p.SortOrder.Value
	}
	if p.IsActive.Set && !p.IsActive.Null {
		s.IsActive = p.IsActive.Value
	}

	_, err = q.ExecContext(ctx,
		`UPDATE series SET code = ?, name = ?, description = ?, sort_order = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		nullString(s.Code), s.Name, s.Description, s.SortOrder, s.IsActive, now(), id,
	)
	if isUniqueViolation(err) {
		return nil, ErrSeriesNameExists
	}
	if err != nil {
		return nil, fmt.Errorf("updating series: %w", err)
	}
	return GetSeries(ctx, q, id)
}

// DeleteSeries deletes a series that no breeder refers to.
func DeleteSeries(ctx context.Context, q db.Querier, id string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM breeders WHERE series_id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("counting series breeders: %w", err)
	}
	if n > 0 {
		return ErrSeriesInUse
	}

	res, err := q.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting series: %w", err)
	}
	return checkAffected(res)
}
