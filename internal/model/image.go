package model

import "time"

// Image types.
const (
	ImageTypeMain    = "main"
	ImageTypeGallery = "gallery"
)

// Image is a stored photo of a breeder. URL is the main (optimised) rendition;
// Variants maps size names to their URLs.
type Image struct {
	ID        string            `json:"id"`
	BreederID string            `json:"productId"`
	URL       string            `json:"url"`
	Alt       string            `json:"alt"`
	Type      string            `json:"type"`
	SortOrder int               `json:"sortOrder"`
	Variants  map[string]string `json:"variants,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ImageOrder is one element of a reorder request.
type ImageOrder struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sort_order"`
}
