package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/turtlealbum/internal/codesort"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

// ErrValidation wraps input that is well-formed but not acceptable for the
// current state of a breeder.
var ErrValidation = errors.New("invalid input")

const breederColumns = `id, code, name, description, series_id, sex, offspring_unit_price,
	sire_code, dam_code, sire_image_url, dam_image_url, mate_code,
	price, cost_price, has_sample, in_stock, popularity_score, is_featured,
	code_prefix, code_parent_number, code_child_number, code_child_letter,
	created_at, updated_at`

func scanBreeder(row interface{ Scan(...any) error }) (*model.Breeder, error) {
	b := &model.Breeder{}
	var (
		seriesID, sex, sire, dam, sireImg, damImg, mate sql.NullString
		offspring                                       sql.NullFloat64
		prefix, letter                                  sql.NullString
		parent, child                                   sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &seriesID, &sex, &offspring,
		&sire, &dam, &sireImg, &damImg, &mate,
		&b.Price, &b.CostPrice, &b.HasSample, &b.InStock, &b.PopularityScore, &b.IsFeatured,
		&prefix, &parent, &child, &letter,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.SeriesID = seriesID.String
	b.Sex = sex.String
	if offspring.Valid {
		v := offspring.Float64
		b.OffspringUnitPrice = &v
	}
	b.SireCode = sire.String
	b.DamCode = dam.String
	b.SireImageURL = sireImg.String
	b.DamImageURL = damImg.String
	b.MateCode = mate.String

	if prefix.Valid {
		b.Sort.Prefix = &prefix.String
	}
	if parent.Valid {
		n := int(parent.Int64)
		b.Sort.ParentNumber = &n
	}
	if child.Valid {
		n := int(child.Int64)
		b.Sort.ChildNumber = &n
	}
	if letter.Valid {
		b.Sort.ChildLetter = &letter.String
	}
	b.Images = []model.Image{}
	return b, nil
}

func queryBreeders(ctx context.Context, q db.Querier, query string, args ...any) ([]model.Breeder, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Breeder{}
	for rows.Next() {
		b, err := scanBreeder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning breeder: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// naturalOrder is the ORDER BY clause that keeps codes in human order.
func naturalOrder(d db.Dialect) string {
	return d.ByteOrder("code_prefix") + ` ASC,
		code_parent_number ASC NULLS LAST,
		code_child_number ASC NULLS LAST,
		code_child_letter ASC NULLS LAST,
		` + d.ByteOrder("code") + ` ASC,
		created_at DESC`
}

// GetBreeder returns a breeder by ID with its images.
func GetBreeder(ctx context.Context, q db.Querier, id string) (*model.Breeder, error) {
	return getBreederWhere(ctx, q, `id = ?`, id)
}

// GetBreederByCode returns a breeder by exact code with its images.
func GetBreederByCode(ctx context.Context, q db.Querier, code string) (*model.Breeder, error) {
	if code == "" {
		return nil, nil
	}
	return getBreederWhere(ctx, q, `code = ?`, code)
}

func getBreederWhere(ctx context.Context, q db.Querier, where string, arg any) (*model.Breeder, error) {
	b, err := scanBreeder(q.QueryRowContext(ctx, `SELECT `+breederColumns+` FROM breeders WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting breeder: %w", err)
	}

	images, err := ListImages(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	b.Images = images
	return b, nil
}

// withImages fills in the images of each breeder with one query.
func withImages(ctx context.Context, q db.Querier, breeders []model.Breeder) error {
	if len(breeders) == 0 {
		return nil
	}
	ids := make([]string, len(breeders))
	for i := range breeders {
		ids[i] = breeders[i].ID
	}
	byBreeder, err := imagesFor(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range breeders {
		if imgs, ok := byBreeder[breeders[i].ID]; ok {
			breeders[i].Images = imgs
		}
	}
	return nil
}

// AlbumFilter selects breeders for the public album list.
type AlbumFilter struct {
	SeriesID string
	Sex      string
	Limit    int
}

// ListAlbumBreeders returns breeders that have both a series and a sex, in
// natural code order.
func ListAlbumBreeders(ctx context.Context, q db.Querier, f AlbumFilter) ([]model.Breeder, error) {
	query := `SELECT ` + breederColumns + ` FROM breeders WHERE series_id IS NOT NULL AND sex IS NOT NULL`
	var args []any
	if f.SeriesID != "" {
		query += ` AND series_id = ?`
		args = append(args, f.SeriesID)
	}
	if f.Sex != "" {
		query += ` AND sex = ?`
		args = append(args, f.Sex)
	}
	query += ` ORDER BY ` + naturalOrder(q.Dialect())
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	breeders, err := queryBreeders(ctx, q, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing album breeders: %w", err)
	}
	if err := withImages(ctx, q, breeders); err != nil {
		return nil, err
	}
	return breeders, nil
}

// Product list sort options.
const (
	SortNewest    = "newest"
	SortPopular   = "popular"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
)

// ValidProductSort reports whether s is a known sort option (or empty).
func ValidProductSort(s string) bool {
	switch s {
	case "", SortNewest, SortPopular, SortPriceLow, SortPriceHigh:
		return true
	}
	return false
}

// ProductQuery pages through all breeders for the catalogue views.
type ProductQuery struct {
	Page     int
	Limit    int
	Search   string
	Sex      string
	SeriesID string
	Sort     string
}

// ListProducts returns one page of breeders and the total match count.
func ListProducts(ctx context.Context, q db.Querier, pq ProductQuery) ([]model.Breeder, int, error) {
	where := ` WHERE 1 = 1`
	var args []any
	if s := strings.TrimSpace(pq.Search); s != "" {
		like := "%" + s + "%"
		where += ` AND (LOWER(name) LIKE LOWER(?) OR LOWER(code) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?))`
		args = append(args, like, like, like)
	}
	if pq.Sex != "" {
		where += ` AND sex = ?`
		args = append(args, pq.Sex)
	}
	if pq.SeriesID != "" {
		where += ` AND series_id = ?`
		args = append(args, pq.SeriesID)
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM breeders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	order := ` ORDER BY created_at DESC, id DESC`
	switch pq.Sort {
	case SortPopular:
		order = ` ORDER BY popularity_score DESC, created_at DESC, id DESC`
	case SortPriceLow:
		order = ` ORDER BY price ASC, created_at DESC, id DESC`
	case SortPriceHigh:
		order = ` ORDER BY price DESC, created_at DESC, id DESC`
	}

	page, limit := pq.Page, pq.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	args = append(args, limit, (page-1)*limit)

	breeders, err := queryBreeders(ctx, q, `SELECT `+breederColumns+` FROM breeders`+where+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	if err := withImages(ctx, q, breeders); err != nil {
		return nil, 0, err
	}
	return breeders, total, nil
}

// ListFeaturedProducts returns breeders flagged as featured, newest first.
// When none are flagged it falls back to the newest breeders.
func ListFeaturedProducts(ctx context.Context, q db.Querier, limit int) ([]model.Breeder, error) {
	breeders, err := queryBreeders(ctx, q,
		`SELECT `+breederColumns+` FROM breeders WHERE is_featured = TRUE ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing featured products: %w", err)
	}
	if len(breeders) == 0 {
		breeders, err = queryBreeders(ctx, q,
			`SELECT `+breederColumns+` FROM breeders ORDER BY created_at DESC LIMIT ?`, limit)
		if err != nil {
			return nil, fmt.Errorf("listing newest products: %w", err)
		}
	}
	if err := withImages(ctx, q, breeders); err != nil {
		return nil, err
	}
	return breeders, nil
}

func codeTaken(ctx context.Context, q db.Querier, code, exceptID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM breeders WHERE code = ? AND id <> ?`, code, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking breeder code: %w", err)
	}
	return n > 0, nil
}

func sortArgs(code string) []any {
	c := codesort.Parse(code)
	return []any{c.Prefix, c.ParentNumber, c.ChildNumber, c.ChildLetter}
}

// CreateBreeder creates a breeder. Codes are uppercased; the breeder code
// must be unique.
func CreateBreeder(ctx context.Context, q db.Querier, in model.BreederInput) (*model.Breeder, error) {
	code := codesort.Upper(in.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	}
	if in.Sex != "" && !model.ValidSex(in.Sex) {
		return nil, fmt.Errorf("%w: sex must be 'male' or 'female'", ErrValidation)
	}
	if in.OffspringUnitPrice != nil && in.Sex != model.SexFemale {
		return nil, fmt.Errorf("%w: offspring_unit_price is only allowed for female breeders", ErrValidation)
	}

	taken, err := codeTaken(ctx, q, code, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrCodeExists
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = code
	}
	price, cost := 0.0, 0.0
	if in.Price != nil {
		price = *in.Price
	}
	if in.CostPrice != nil {
		cost = *in.CostPrice
	}
	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}

	id := newID()
	ts := now()
	args := []any{
		id, code, name, in.Description, nullString(in.SeriesID), nullString(in.Sex), in.OffspringUnitPrice,
		nullString(codesort.Upper(in.SireCode)), nullString(codesort.Upper(in.DamCode)),
		nullString(in.SireImageURL), nullString(in.DamImageURL), nullString(codesort.Upper(in.MateCode)),
		price, cost, in.HasSample, inStock, in.PopularityScore, in.IsFeatured,
	}
	args = append(args, sortArgs(code)...)
	args = append(args, ts, ts)

	_, err = q.ExecContext(ctx,
		`INSERT INTO breeders (`+breederColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if isUniqueViolation(err) {
		return nil, ErrCodeExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating breeder: %w", err)
	}

	return GetBreeder(ctx, q, id)
}

// ApplyBreederPatch applies p to b in memory, enforcing the rules that
// depend on the breeder's current state. It does not check code uniqueness.
func ApplyBreederPatch(b *model.Breeder, p model.BreederPatch) error {
	if p.Empty() {
		return fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	if p.Code.Set {
		code := codesort.Upper(p.Code.Value)
		if p.Code.Null || code == "" {
			return fmt.Errorf("%w: code cannot be empty", ErrValidation)
		}
		b.Code = code
	}

	if p.Sex.Set {
		if p.Sex.Null || p.Sex.Value == "" {
			b.Sex = ""
		} else if !model.ValidSex(p.Sex.Value) {
			return fmt.Errorf("%w: sex must be 'male' or 'female'", ErrValidation)
		} else {
			b.Sex = p.Sex.Value
		}
	}

	if p.OffspringUnitPrice.Set {
		if p.OffspringUnitPrice.Null {
			b.OffspringUnitPrice = nil
		} else {
			if b.Sex != model.SexFemale {
				return fmt.Errorf("%w: offspring_unit_price is only allowed for female breeders", ErrValidation)
			}
			b.OffspringUnitPrice = p.OffspringUnitPrice.Ptr()
		}
	}
	if b.Sex != model.SexFemale {
		b.OffspringUnitPrice = nil
	}

	setString := func(f model.Field[string], dst *string, upper bool) {
		if !f.Set {
			return
		}
		v := f.Value
		if upper {
			v = codesort.Upper(v)
		}
		*dst = v
	}
	setString(p.Name, &b.Name, false)
	setString(p.Description, &b.Description, false)
	setString(p.SeriesID, &b.SeriesID, false)
	setString(p.SireCode, &b.SireCode, true)
	setString(p.DamCode, &b.DamCode, true)
	setString(p.SireImageURL, &b.SireImageURL, false)
	setString(p.DamImageURL, &b.DamImageURL, false)
	setString(p.MateCode, &b.MateCode, true)

	if p.Price.Set {
		b.Price = p.Price.Value
	}
	if p.CostPrice.Set {
		b.CostPrice = p.CostPrice.Value
	}
	if p.HasSample.Set {
		b.HasSample = p.HasSample.Value
	}
	if p.InStock.Set {
		b.InStock = p.InStock.Null || p.InStock.Value
	}
	if p.PopularityScore.Set {
		b.PopularityScore = p.PopularityScore.Value
	}
	if p.IsFeatured.Set {
		b.IsFeatured = p.IsFeatured.Value
	}

	b.Sort = codesort.Parse(b.Code)
	return nil
}

// UpdateBreeder applies a partial update inside one transaction.
func UpdateBreeder(ctx context.Context, d *db.DB, id string, p model.BreederPatch) (*model.Breeder, error) {
	var out *model.Breeder
	err := d.InTx(ctx, func(tx *db.Tx) error {
		b, err := GetBreeder(ctx, tx, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNotFound
		}
		out, err = PatchBreeder(ctx, tx, b, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PatchBreeder applies p to the loaded breeder b and saves it through q.
func PatchBreeder(ctx context.Context, q db.Querier, b *model.Breeder, p model.BreederPatch) (*model.Breeder, error) {
	oldCode := b.Code
	if err := ApplyBreederPatch(b, p); err != nil {
		return nil, err
	}
	if b.Code != oldCode {
		taken, err := codeTaken(ctx, q, b.Code, b.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrCodeExists
		}
	}

	if err := saveBreeder(ctx, q, b); err != nil {
		return nil, err
	}
	return GetBreeder(ctx, q, b.ID)
}

func saveBreeder(ctx context.Context, q db.Querier, b *model.Breeder) error {
	args := []any{
		b.Code, b.Name, b.Description, nullString(b.SeriesID), nullString(b.Sex), b.OffspringUnitPrice,
		nullString(b.SireCode), nullString(b.DamCode), nullString(b.SireImageURL), nullString(b.DamImageURL),
		nullString(b.MateCode), b.Price, b.CostPrice, b.HasSample, b.InStock, b.PopularityScore, b.IsFeatured,
	}
	args = append(args, sortArgs(b.Code)...)
	args = append(args, now(), b.ID)

	_, err := q.ExecContext(ctx,
		`UPDATE breeders SET code = ?, name = ?, description = ?, series_id = ?, sex = ?, offspring_unit_price = ?,
		     sire_code = ?, dam_code = ?, sire_image_url = ?, dam_image_url = ?, mate_code = ?,
		     price = ?, cost_price = ?, has_sample = ?, in_stock = ?, popularity_score = ?, is_featured = ?,
		     code_prefix = ?, code_parent_number = ?, code_child_number = ?, code_child_letter = ?,
		     updated_at = ?
		 WHERE id = ?`,
		args...,
	)
	if isUniqueViolation(err) {
		return ErrCodeExists
	}
	if err != nil {
		return fmt.Errorf("updating breeder: %w", err)
	}
	return nil
}

// SetMateCode updates only a breeder's current mate code.
func SetMateCode(ctx context.Context, q db.Querier, id, mateCode string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE breeders SET mate_code = ?, updated_at = ? WHERE id = ?`,
		nullString(codesort.Upper(mateCode)), now(), id,
	)
	if err != nil {
		return fmt.Errorf("setting mate code: %w", err)
	}
	return checkAffected(res)
}

// DeleteBreeder removes a breeder with its images, records, events and
// featured entries. Blob cleanup is the caller's job.
func DeleteBreeder(ctx context.Context, d *db.DB, id string) error {
	return d.InTx(ctx, func(tx *db.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM breeder_images WHERE breeder_id = ?`,
			`DELETE FROM breeder_events WHERE breeder_id = ?`,
			`DELETE FROM egg_records WHERE female_id = ?`,
			`DELETE FROM mating_records WHERE female_id = ? OR male_id = ?`,
			`DELETE FROM featured_breeders WHERE breeder_id = ?`,
		} {
			args := []any{id}
			if strings.Count(stmt, "?") == 2 {
				args = append(args, id)
			}
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("deleting breeder dependents: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM breeders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting breeder: %w", err)
		}
		return checkAffected(res)
	})
}
