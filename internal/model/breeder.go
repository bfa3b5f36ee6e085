package model

import (
	"time"

	"github.com/erazemk/turtlealbum/internal/codesort"
)

// Breeder is an individual animal in the album, identified by a unique code.
type Breeder struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	SeriesID           string    `json:"seriesId,omitempty"`
	Sex                string    `json:"sex,omitempty"`
	OffspringUnitPrice *float64  `json:"offspringUnitPrice"`
	SireCode           string    `json:"sireCode,omitempty"`
	DamCode            string    `json:"damCode,omitempty"`
	SireImageURL       string    `json:"sireImageUrl,omitempty"`
	DamImageURL        string    `json:"damImageUrl,omitempty"`
	MateCode           string    `json:"mateCode,omitempty"`
	Price              float64   `json:"price"`
	CostPrice          float64   `json:"costPrice"`
	HasSample          bool      `json:"hasSample"`
	InStock            bool      `json:"inStock"`
	PopularityScore    int       `json:"popularityScore"`
	IsFeatured         bool      `json:"isFeatured"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Images             []Image   `json:"images"`

	// Sort holds the parsed code, persisted in the code_* columns.
	Sort codesort.Components `json:"-"`
}

// Sexes.
const (
	SexMale   = "male"
	SexFemale = "female"
)

// ValidSex reports whether s is a known sex.
func ValidSex(s string) bool {
	return s == SexMale || s == SexFemale
}

// InAlbum reports whether the breeder is shown in the public album, which
// only lists records with both a series and a sex.
func (b *Breeder) InAlbum() bool {
	return b.SeriesID != "" && b.Sex != ""
}

// MainImage returns the main image, or the first image, or nil.
func (b *Breeder) MainImage() *Image {
	for i := range b.Images {
		if b.Images[i].Type == ImageTypeMain {
			return &b.Images[i]
		}
	}
	if len(b.Images) > 0 {
		return &b.Images[0]
	}
	return nil
}

// BreederInput is the body of a create request.
type BreederInput struct {
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	SeriesID           string   `json:"series_id"`
	Sex                string   `json:"sex"`
	OffspringUnitPrice *float64 `json:"offspring_unit_price"`
	SireCode           string   `json:"sire_code"`
	DamCode            string   `json:"dam_code"`
	SireImageURL       string   `json:"sire_image_url"`
	DamImageURL        string   `json:"dam_image_url"`
	MateCode           string   `json:"mate_code"`
	Price              *float64 `json:"price"`
	CostPrice          *float64 `json:"cost_price"`
	HasSample          bool     `json:"has_sample"`
	InStock            *bool    `json:"in_stock"`
	PopularityScore    int      `json:"popularity_score"`
	IsFeatured         bool     `json:"is_featured"`
}

// BreederPatch is a partial update. Only fields with Set are applied; a Null
// field clears the column (or stores its neutral value for non-null ones).
type BreederPatch struct {
	Code               Field[string]  `json:"code"`
	Name               Field[string]  `json:"name"`
	Description        Field[string]  `json:"description"`
	SeriesID           Field[string]  `json:"series_id"`
	Sex                Field[string]  `json:"sex"`
	OffspringUnitPrice Field[float64] `json:"offspring_unit_price"`
	SireCode           Field[string]  `json:"sire_code"`
	DamCode            Field[string]  `json:"dam_code"`
	SireImageURL       Field[string]  `json:"sire_image_url"`
	DamImageURL        Field[string]  `json:"dam_image_url"`
	MateCode           Field[string]  `json:"mate_code"`
	Price              Field[float64] `json:"price"`
	CostPrice          Field[float64] `json:"cost_price"`
	HasSample          Field[bool]    `json:"has_sample"`
	InStock            Field[bool]    `json:"in_stock"`
	PopularityScore    Field[int]     `json:"popularity_score"`
	IsFeatured         Field[bool]    `json:"is_featured"`
}

// Empty reports whether no field is set.
func (p BreederPatch) Empty() bool {
	return !(p.Code.Set || p.Name.Set || p.Description.Set || p.SeriesID.Set || p.Sex.Set ||
		p.OffspringUnitPrice.Set || p.SireCode.Set || p.DamCode.Set ||
		p.SireImageURL.Set || p.DamImageURL.Set || p.MateCode.Set ||
		p.Price.Set || p.CostPrice.Set || p.HasSample.Set || p.InStock.Set ||
		p.PopularityScore.Set || p.IsFeatured.Set)
}

// BreederRef is the short form of a breeder used in links.
type BreederRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}
