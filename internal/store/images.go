package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

const imageColumns = `id, breeder_id, url, alt, type, sort_order, variants, created_at`

func scanImage(row interface{ Scan(...any) error }) (*model.Image, error) {
	img := &model.Image{}
	var variants string
	if err := row.Scan(&img.ID, &img.BreederID, &img.URL, &img.Alt, &img.Type, &img.SortOrder, &variants, &img.CreatedAt); err != nil {
		return nil, err
	}
	if variants != "" && variants != "{}" {
		if err := json.Unmarshal([]byte(variants), &img.Variants); err != nil {
			return nil, fmt.Errorf("decoding image variants: %w", err)
		}
	}
	return img, nil
}

// ListImages returns a breeder's images in display order.
func ListImages(ctx context.Context, q db.Querier, breederID string) ([]model.Image, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM breeder_images WHERE breeder_id = ? ORDER BY sort_order, created_at`, breederID)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	out := []model.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		out = append(out, *img)
	}
	return out, rows.Err()
}

func imagesFor(ctx context.Context, q db.Querier, breederIDs []string) (map[string][]model.Image, error) {
	out := make(map[string][]model.Image, len(breederIDs))
	if len(breederIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(breederIDs))
	for i, id := range breederIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM breeder_images WHERE breeder_id IN (`+db.Placeholders(len(args))+`)
		 ORDER BY breeder_id, sort_order, created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		out[img.BreederID] = append(out[img.BreederID], *img)
	}
	return out, rows.Err()
}

// GetImage returns one image of a breeder.
func GetImage(ctx context.Context, q db.Querier, breederID, imageID string) (*model.Image, error) {
	img, err := scanImage(q.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM breeder_images WHERE id = ? AND breeder_id = ?`, imageID, breederID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	return img, nil
}

// NewImage describes an uploaded image to attach to a breeder.
type NewImage struct {
	URL      string
	Alt      string
	Type     string
	Variants map[string]string
}

// AddImageTx appends an image after the breeder's current last image. The
// first image of a breeder without a main image becomes main, and a new main
// image demotes the previous one to gallery.
func AddImageTx(ctx context.Context, tx *db.Tx, breederID string, in NewImage) (*model.Image, error) {
	var maxOrder sql.NullInt64
	var mains int
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(sort_order), COALESCE(SUM(CASE WHEN type = 'main' THEN 1 ELSE 0 END), 0)
		 FROM breeder_images WHERE breeder_id = ?`, breederID,
	).Scan(&maxOrder, &mains)
	if err != nil {
		return nil, fmt.Errorf("reading image order: %w", err)
	}

	typ := in.Type
	if typ == "" {
		typ = model.ImageTypeGallery
		if mains == 0 {
			typ = model.ImageTypeMain
		}
	}
	if typ == model.ImageTypeMain && mains > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE breeder_images SET type = 'gallery' WHERE breeder_id = ? AND type = 'main'`, breederID,
		); err != nil {
			return nil, fmt.Errorf("demoting main image: %w", err)
		}
	}

	order := 0
	if maxOrder.Valid {
		order = int(maxOrder.Int64) + 1
	}
	variants := []byte("{}")
	if len(in.Variants) > 0 {
		if variants, err = json.Marshal(in.Variants); err != nil {
			return nil, fmt.Errorf("encoding image variants: %w", err)
		}
	}

	id := newID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO breeder_images (`+imageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, breederID, in.URL, in.Alt, typ, order, string(variants), now(),
	)
	if err != nil {
		return nil, fmt.Errorf("adding image: %w", err)
	}

	return GetImage(ctx, tx, breederID, id)
}

// DeleteImage removes an image. Deleting the main image promotes the first
// remaining image. The deleted image is returned so its blobs can be removed.
func DeleteImage(ctx context.Context, d *db.DB, breederID, imageID string) (*model.Image, error) {
	var deleted *model.Image
	err := d.InTx(ctx, func(tx *db.Tx) error {
		img, err := GetImage(ctx, tx, breederID, imageID)
		if err != nil {
			return err
		}
		if img == nil {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM breeder_images WHERE id = ?`, imageID); err != nil {
			return fmt.Errorf("deleting image: %w", err)
		}

		if img.Type == model.ImageTypeMain {
			var next string
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM breeder_images WHERE breeder_id = ? ORDER BY sort_order, created_at LIMIT 1`, breederID,
			).Scan(&next)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("finding next main image: %w", err)
			}
			if err == nil {
				if _, err := tx.ExecContext(ctx, `UPDATE breeder_images SET type = 'main' WHERE id = ?`, next); err != nil {
					return fmt.Errorf("promoting image: %w", err)
				}
			}
		}

		deleted = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// SetMainImage makes imageID the breeder's only main image.
func SetMainImage(ctx context.Context, d *db.DB, breederID, imageID string) error {
	return d.InTx(ctx, func(tx *db.Tx) error {
		img, err := GetImage(ctx, tx, breederID, imageID)
		if err != nil {
			return err
		}
		if img == nil {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE breeder_images SET type = 'gallery' WHERE breeder_id = ? AND type = 'main'`, breederID,
		); err != nil {
			return fmt.Errorf("demoting main image: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE breeder_images SET type = 'main' WHERE id = ?`, imageID); err != nil {
			return fmt.Errorf("setting main image: %w", err)
		}
		return nil
	})
}

// ReorderImages sets the sort order of the listed images. Every id must
// belong to the breeder.
func ReorderImages(ctx context.Context, d *db.DB, breederID string, order []model.ImageOrder) error {
	return d.InTx(ctx, func(tx *db.Tx) error {
		for _, o := range order {
			res, err := tx.ExecContext(ctx,
				`UPDATE breeder_images SET sort_order = ? WHERE id = ? AND breeder_id = ?`,
				o.SortOrder, o.ID, breederID,
			)
			if err != nil {
				return fmt.Errorf("reordering images: %w", err)
			}
			if err := checkAffected(res); err != nil {
				return fmt.Errorf("image %s: %w", o.ID, err)
			}
		}
		return nil
	})
}
