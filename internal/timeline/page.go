package timeline

import (
	"slices"
)

// Limits for page sizes.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ClampLimit maps a non-positive limit to DefaultLimit and caps it at
// MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Page is one page of a timeline.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

// NewPage builds a page from rows fetched with ClampLimit(limit)+1. The extra
// row, if present, only signals that more rows exist and is dropped.
func NewPage[T any](rows []T, limit int, pos func(T) Position) Page[T] {
	limit = ClampLimit(limit)
	p := Page[T]{Items: rows}
	if len(rows) > limit {
		p.HasMore = true
		p.Items = rows[:limit]
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	if p.HasMore && len(p.Items) > 0 {
		next := Encode(pos(p.Items[len(p.Items)-1]))
		p.NextCursor = &next
	}
	return p
}

// Paginate returns the page of items strictly after cursor (or the first
// page for an empty cursor) among those accepted by keep, newest first. A
// nil keep accepts everything. The limit is passed through ClampLimit. The
// input slice is not modified.
func Paginate[T any](items []T, pos func(T) Position, cursor string, limit int, keep func(T) bool) (Page[T], error) {
	limit = ClampLimit(limit)
	var after *Position
	if cursor != "" {
		c, err := Decode(cursor)
		if err != nil {
			return Page[T]{}, err
		}
		after = &c
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		pa, pb := pos(a), pos(b)
		switch {
		case pa.Newer(pb):
			return -1
		case pb.Newer(pa):
			return 1
		}
		return 0
	})

	rows := make([]T, 0, limit+1)
	for _, it := range sorted {
		if keep != nil && !keep(it) {
			continue
		}
		if after != nil && !after.Newer(pos(it)) {
			continue
		}
		rows = append(rows, it)
		if len(rows) == limit+1 {
			break
		}
	}

	return NewPage(rows, limit, pos), nil
}
