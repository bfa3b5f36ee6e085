package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

const carouselColumns = `id, title, description, image_url, link_url, is_active, sort_order, created_at, updated_at`

func scanCarousel(row interface{ Scan(...any) error }) (*model.Carousel, error) {
	c := &model.Carousel{}
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.ImageURL, &c.LinkURL, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCarousels returns carousel slides by sort order.
func ListCarousels(ctx context.Context, q db.Querier, includeInactive bool) ([]model.Carousel, error) {
	query := `SELECT ` + carouselColumns + ` FROM carousels`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, created_at`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing carousels: %w", err)
	}
	defer rows.Close()

	out := []model.Carousel{}
	for rows.Next() {
		c, err := scanCarousel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning carousel: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetCarousel returns a carousel slide by ID.
func GetCarousel(ctx context.Context, q db.Querier, id string) (*model.Carousel, error) {
	c, err := scanCarousel(q.QueryRowContext(ctx, `SELECT `+carouselColumns+` FROM carousels WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting carousel: %w", err)
	}
	return c, nil
}

// CreateCarousel creates a carousel slide.
func CreateCarousel(ctx context.Context, q db.Querier, in model.CarouselInput) (*model.Carousel, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	id := newID()
	ts := now()
	_, err := q.ExecContext(ctx,
		`INSERT INTO carousels (`+carouselColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Title, in.Description, in.ImageURL, in.LinkURL, active, in.SortOrder, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating carousel: %w", err)
	}
	return GetCarousel(ctx, q, id)
}

// UpdateCarousel applies a patch to a carousel slide.
func UpdateCarousel(ctx context.Context, q db.Querier, id string, p model.CarouselPatch) (*model.Carousel, error) {
	c, err := GetCarousel(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}

	if p.Title.Set {
		c.Title = p.Title.Value
	}
	if p.Description.Set {
		c.Description = p.Description.Value
	}
	if p.ImageURL.Set {
		c.ImageURL = p.ImageURL.Value
	}
	if p.LinkURL.Set {
		c.LinkURL = p.LinkURL.Value
	}
	if p.IsActive.Set {
		c.IsActive = p.IsActive.Value
	}
	if p.SortOrder.Set {
		c.SortOrder = p.SortOrder.Value
	}

	_, err = q.ExecContext(ctx,
		`UPDATE carousels SET title = ?, description = ?, image_url = ?, link_url = ?, is_active = ?, sort_order = ?, updated_at = ?
		 WHERE id = ?`,
		c.Title, c.Description, c.ImageURL, c.LinkURL, c.IsActive, c.SortOrder, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating carousel: %w", err)
	}
	return GetCarousel(ctx, q, id)
}

// DeleteCarousel deletes a carousel slide.
func DeleteCarousel(ctx context.Context, q db.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM carousels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting carousel: %w", err)
	}
	return checkAffected(res)
}

const featuredColumns = `id, breeder_id, is_active, sort_order, created_at, updated_at`

func scanFeatured(row interface{ Scan(...any) error }) (*model.Featured, error) {
	f := &model.Featured{}
	if err := row.Scan(&f.ID, &f.BreederID, &f.IsActive, &f.SortOrder, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

// ListFeatured returns featured entries by sort order, each with its breeder.
func ListFeatured(ctx context.Context, q db.Querier, includeInactive bool) ([]model.Featured, error) {
	query := `SELECT ` + featuredColumns + ` FROM featured_breeders`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, created_at`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing featured: %w", err)
	}
	var out []model.Featured
	for rows.Next() {
		f, err := scanFeatured(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning featured: %w", err)
		}
		out = append(out, *f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Breeders are loaded after the rows are closed so a single-connection
	// pool is never asked for a second connection.
	result := make([]model.Featured, 0, len(out))
	for _, f := range out {
		b, err := GetBreeder(ctx, q, f.BreederID)
		if err != nil {
			return nil, err
		}
		if b == nil {
			continue
		}
		f.Breeder = b
		result = append(result, f)
	}
	return result, nil
}

// GetFeatured returns a featured entry by ID.
func GetFeatured(ctx context.Context, q db.Querier, id string) (*model.Featured, error) {
	f, err := scanFeatured(q.QueryRowContext(ctx, `SELECT `+featuredColumns+` FROM featured_breeders WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting featured: %w", err)
	}
	return f, nil
}

// CreateFeatured pins a breeder. A breeder can be pinned once.
func CreateFeatured(ctx context.Context, q db.Querier, in model.FeaturedInput) (*model.Featured, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	id := newID()
	ts := now()
	_, err := q.ExecContext(ctx,
		`INSERT INTO featured_breeders (`+featuredColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.BreederID, active, in.SortOrder, ts, ts,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: breeder is already featured", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("creating featured: %w", err)
	}
	return GetFeatured(ctx, q, id)
}

// UpdateFeatured applies a patch to a featured entry.
func UpdateFeatured(ctx context.Context, q db.Querier, id string, p model.FeaturedPatch) (*model.Featured, error) {
	f, err := GetFeatured(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotFound
	}
	if p.IsActive.Set {
		f.IsActive = p.IsActive.Value
	}
	if p.SortOrder.Set {
		f.SortOrder = p.SortOrder.Value
	}

	_, err = q.ExecContext(ctx,
		`UPDATE featured_breeders SET is_active = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		f.IsActive, f.SortOrder, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating featured: %w", err)
	}
	return GetFeatured(ctx, q, id)
}

// DeleteFeatured removes a featured entry.
func DeleteFeatured(ctx context.Context, q db.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM featured_breeders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting featured: %w", err)
	}
	return checkAffected(res)
}
