package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/turtlealbum/internal/codesort"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/timeline"
)

const eventColumns = `id, breeder_id, event_type, event_date, male_code, egg_count, note, old_mate_code, new_mate_code, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.BreederEvent, error) {
	e := &model.BreederEvent{}
	var eventDate, createdAt string
	var male, note, oldMate, newMate sql.NullString
	var eggs sql.NullInt64
	if err := row.Scan(&e.ID, &e.BreederID, &e.EventType, &eventDate, &male, &eggs, &note, &oldMate, &newMate, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if e.EventDate, err = timeline.ParseTime(eventDate); err != nil {
		return nil, fmt.Errorf("event %s date: %w", e.ID, err)
	}
	if e.CreatedAt, err = timeline.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("event %s created_at: %w", e.ID, err)
	}
	str := func(ns sql.NullString) *string {
		if !ns.Valid {
			return nil
		}
		s := ns.String
		return &s
	}
	e.MaleCode = str(male)
	e.Note = str(note)
	e.OldMateCode = str(oldMate)
	e.NewMateCode = str(newMate)
	if eggs.Valid {
		n := int(eggs.Int64)
		e.EggCount = &n
	}
	return e, nil
}

// EventPosition is the timeline sort key of an event.
func EventPosition(e model.BreederEvent) timeline.Position {
	return timeline.Position{EventDate: e.EventDate, CreatedAt: e.CreatedAt, ID: e.ID}
}

// ListEvents returns up to timeline.ClampLimit(limit)+1 events of a breeder
// strictly after the given position, newest first by (event date, created
// at, id). The extra row tells the caller whether another page exists.
func ListEvents(ctx context.Context, q db.Querier, breederID, eventType string, after *timeline.Position, limit int) ([]model.BreederEvent, error) {
	c := q.Dialect().ByteOrder

	query := `SELECT ` + eventColumns + ` FROM breeder_events WHERE breeder_id = ?`
	args := []any{breederID}
	if eventType != "" {
		query += ` AND event_type = ?`
		args = append(args, eventType)
	}
	if after != nil {
		ed := timeline.FormatTime(after.EventDate)
		ca := timeline.FormatTime(after.CreatedAt)
		query += ` AND (` + c("event_date") + ` < ?
			OR (event_date = ? AND ` + c("created_at") + ` < ?)
			OR (event_date = ? AND created_at = ? AND ` + c("id") + ` < ?))`
		args = append(args, ed, ed, ca, ed, ca, after.ID)
	}
	query += ` ORDER BY ` + c("event_date") + ` DESC, ` + c("created_at") + ` DESC, ` + c("id") + ` DESC LIMIT ?`
	args = append(args, timeline.ClampLimit(limit)+1)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	out := []model.BreederEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// GetEvent returns an event by ID.
func GetEvent(ctx context.Context, q db.Querier, id string) (*model.BreederEvent, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM breeder_events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting event: %w", err)
	}
	return e, nil
}

// CreateEvent validates and stores an event for breeder b. A change_mate
// event records the previous mate code and updates the breeder's mate code.
func CreateEvent(ctx context.Context, d *db.DB, b *model.Breeder, in model.EventInput) (*model.BreederEvent, error) {
	if !model.ValidEventType(in.EventType) {
		return nil, fmt.Errorf("%w: event_type must be mating, egg or change_mate", ErrValidation)
	}

	eventDate := now()
	if s := strings.TrimSpace(in.EventDate); s != "" {
		t, err := timeline.ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid event_date", ErrValidation)
		}
		eventDate = t
	}

	e := &model.BreederEvent{
		ID:        newID(),
		BreederID: b.ID,
		EventType: in.EventType,
		EventDate: eventDate,
		CreatedAt: now(),
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		e.Note = &note
	}

	switch in.EventType {
	case model.EventMating:
		male := codesort.Upper(in.MaleCode)
		if male == "" {
			return nil, fmt.Errorf("%w: male_code is required for mating events", ErrValidation)
		}
		e.MaleCode = &male
	case model.EventEgg:
		if in.EggCount != nil && *in.EggCount < 0 {
			return nil, fmt.Errorf("%w: egg_count must not be negative", ErrValidation)
		}
		e.EggCount = in.EggCount
	case model.EventChangeMate:
		mate := codesort.Upper(in.NewMateCode)
		if mate == "" {
			return nil, fmt.Errorf("%w: new_mate_code is required for change_mate events", ErrValidation)
		}
		e.NewMateCode = &mate
		if b.MateCode != "" {
			old := b.MateCode
			e.OldMateCode = &old
		}
	}

	err := d.InTx(ctx, func(tx *db.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO breeder_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.BreederID, e.EventType, timeline.FormatTime(e.EventDate), e.MaleCode, e.EggCount,
			e.Note, e.OldMateCode, e.NewMateCode, timeline.FormatTime(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("creating event: %w", err)
		}
		if e.EventType == model.EventChangeMate {
			return SetMateCode(ctx, tx, b.ID, *e.NewMateCode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent deletes an event.
func DeleteEvent(ctx context.Context, q db.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM breeder_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	return checkAffected(res)
}

// lastDates runs a "breeder id, MAX(date)" grouping query and collects the
// results. The date column is TEXT in timeline.Layout.
func lastDates(ctx context.Context, q db.Querier, query string, args ...any) (map[string]time.Time, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]time.Time{}
	for rows.Next() {
		var id string
		var last sql.NullString
		if err := rows.Scan(&id, &last); err != nil {
			return nil, err
		}
		if t := parseStamp(last); t != nil {
			out[id] = *t
		}
	}
	return out, rows.Err()
}

func inArgs(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return db.Placeholders(len(ids)), args
}
