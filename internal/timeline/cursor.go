// Package timeline implements keyset pagination over a breeder's dated
// events, newest first by (event date, creation time, id).
package timeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCursor is returned for a cursor that cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// Layout is the fixed-width ISO-8601 form used for cursors and for stored
// event timestamps. Fixed width keeps string comparison chronological.
const Layout = "2006-01-02T15:04:05.000000"

const sep = "|"

// Position is the sort key of one event.
type Position struct {
	EventDate time.Time
	CreatedAt time.Time
	ID        string
}

// Newer reports whether p sorts before q in the newest-first timeline.
func (p Position) Newer(q Position) bool {
	if !p.EventDate.Equal(q.EventDate) {
		return p.EventDate.After(q.EventDate)
	}
	if !p.CreatedAt.Equal(q.CreatedAt) {
		return p.CreatedAt.After(q.CreatedAt)
	}
	return p.ID > q.ID
}

// Encode serialises p as "eventDate|createdAt|id". A zero CreatedAt falls
// back to the event date.
func Encode(p Position) string {
	created := p.CreatedAt
	if created.IsZero() {
		created = p.EventDate
	}
	return FormatTime(p.EventDate) + sep + FormatTime(created) + sep + p.ID
}

// Decode parses a cursor produced by Encode. Dates with a trailing Z or a
// numeric offset are accepted; the zone is dropped and the wall clock kept,
// matching how timestamps are stored.
func Decode(cursor string) (Position, error) {
	parts := strings.Split(cursor, sep)
	if len(parts) != 3 {
		return Position{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrInvalidCursor, len(parts))
	}

	eventDate, err := ParseTime(parts[0])
	if err != nil {
		return Position{}, fmt.Errorf("%w: event date: %v", ErrInvalidCursor, err)
	}
	createdAt, err := ParseTime(parts[1])
	if err != nil {
		return Position{}, fmt.Errorf("%w: created at: %v", ErrInvalidCursor, err)
	}

	return Position{EventDate: eventDate, CreatedAt: createdAt, ID: parts[2]}, nil
}

// FormatTime renders t's wall clock in Layout.
func FormatTime(t time.Time) string {
	return t.Format(Layout)
}

var parseLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 date or date-time and returns it as a naive
// UTC value carrying the same wall clock.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
