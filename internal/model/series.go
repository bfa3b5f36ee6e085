package model

import "time"

// Series is a named grouping of breeders.
type Series struct {
	ID          string    `json:"id"`
	Code        string    `json:"code,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SeriesInput is the body of a series create request.
type SeriesInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

// SeriesPatch is a partial series update.
type SeriesPatch struct {
	Code        Field[string] `json:"code"`
	Name        Field[string] `json:"name"`
	Description Field[string] `json:"description"`
	SortOrder   Field[int]    `json:"sort_order"`
	IsActive    Field[bool]   `json:"is_active"`
}
