package store

import (
	"context"
	"fmt"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

// GetAlbumBreederByCode returns the album breeder with the exact code.
func GetAlbumBreederByCode(ctx context.Context, q db.Querier, code string) (*model.Breeder, error) {
	b, err := GetBreederByCode(ctx, q, code)
	if err != nil || b == nil || !b.InAlbum() {
		return nil, err
	}
	return b, nil
}

// Relatives selects album breeders by parent codes. Empty fields are not
// used as filters; ExcludeID drops one breeder from the result.
type Relatives struct {
	SireCode  string
	DamCode   string
	ExcludeID string
}

// ListRelatives returns album breeders matching r in natural code order.
// At least one of SireCode and DamCode must be set.
func ListRelatives(ctx context.Context, q db.Querier, r Relatives) ([]model.Breeder, error) {
	if r.SireCode == "" && r.DamCode == "" {
		return []model.Breeder{}, nil
	}

	query := `SELECT ` + breederColumns + ` FROM breeders WHERE series_id IS NOT NULL AND sex IS NOT NULL`
	var args []any
	if r.SireCode != "" {
		query += ` AND sire_code = ?`
		args = append(args, r.SireCode)
	}
	if r.DamCode != "" {
		query += ` AND dam_code = ?`
		args = append(args, r.DamCode)
	}
	if r.ExcludeID != "" {
		query += ` AND id <> ?`
		args = append(args, r.ExcludeID)
	}
	query += ` ORDER BY ` + naturalOrder(q.Dialect())

	breeders, err := queryBreeders(ctx, q, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing relatives: %w", err)
	}
	if err := withImages(ctx, q, breeders); err != nil {
		return nil, err
	}
	return breeders, nil
}
