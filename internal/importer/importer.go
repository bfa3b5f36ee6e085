// Package importer loads breeders from an Excel sheet, optionally with an
// image ZIP holding one folder per breeder code.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/codesort"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/media"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

var (
	ErrMissingColumns  = errors.New("missing required columns")
	ErrZipTooLarge     = errors.New("zip is too large after decompression")
	ErrZipTooManyFiles = errors.New("zip contains too many files")
	ErrUnsafePath      = errors.New("zip contains an unsafe path")
)

// Limits bound the image archive.
type Limits struct {
	MaxFiles int
	MaxBytes int64
}

// DefaultLimits are 5000 entries and 500 MiB uncompressed.
var DefaultLimits = Limits{MaxFiles: 5000, MaxBytes: 500 << 20}

// Result summarises a run. Errors are failed rows; warnings are skipped
// rows and image notes.
type Result struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type Importer struct {
	DB     *db.DB
	Blobs  blob.Store
	Logger *zap.Logger
}

// Run imports every non-blank row of the first sheet. Each row is upserted
// by code in its own transaction, so a failing row never aborts the run.
// images may be nil.
func (im *Importer) Run(ctx context.Context, excel io.Reader, images *Archive) (*Result, error) {
	sh, err := readSheet(excel)
	if err != nil {
		return nil, err
	}

	res := &Result{Errors: []string{}, Warnings: []string{}}
	for i := range sh.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sh.blank(i) {
			continue
		}
		rowNum := i + 2
		res.Total++

		code := codesort.Upper(sh.cell(i, ColCode))
		if code == "" {
			res.Failed++
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: skipped, missing %s", rowNum, ColCode))
			continue
		}

		warnings, err := im.importRow(ctx, sh, i, code, images)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: importing %s failed: %v", rowNum, code, err))
			im.logger().Warn("import row failed", zap.Int("row", rowNum), zap.String("code", code), zap.Error(err))
			continue
		}
		res.Imported++
		for _, w := range warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: %s", rowNum, w))
		}
	}

	im.logger().Info("import finished",
		zap.Int("total", res.Total), zap.Int("imported", res.Imported), zap.Int("failed", res.Failed))
	return res, nil
}

func (im *Importer) logger() *zap.Logger {
	if im.Logger == nil {
		return zap.NewNop()
	}
	return im.Logger
}

func (im *Importer) importRow(ctx context.Context, sh *sheet, i int, code string, images *Archive) ([]string, error) {
	row, err := parseRow(sh, i, code)
	if err != nil {
		return nil, err
	}

	var warnings, stored []string
	err = im.DB.InTx(ctx, func(tx *db.Tx) error {
		warnings, stored = nil, nil

		seriesID := ""
		if row.series != "" {
			s, err := store.GetSeriesByName(ctx, tx, row.series)
			if err != nil {
				return err
			}
			if s == nil {
				if s, err = store.CreateSeries(ctx, tx, model.SeriesInput{Name: row.series}); err != nil {
					return err
				}
				warnings = append(warnings, fmt.Sprintf("created series %s", s.Name))
			}
			seriesID = s.ID
		}

		b, err := store.GetBreederByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if b == nil {
			b, err = store.CreateBreeder(ctx, tx, row.input(seriesID))
		} else if p := row.patch(sh, seriesID); !p.Empty() {
			b, err = store.PatchBreeder(ctx, tx, b, p)
		}
		if err != nil {
			return err
		}

		if images == nil {
			return nil
		}
		w, keys, err := im.attachImages(ctx, tx, b, images)
		stored = keys
		warnings = append(warnings, w...)
		return err
	})
	if err != nil {
		media.Discard(ctx, im.Blobs, stored)
		return nil, err
	}
	return warnings, nil
}

// attachImages stores every image in the breeder's folder. A bad image is a
// warning; a database error fails the row.
func (im *Importer) attachImages(ctx context.Context, tx *db.Tx, b *model.Breeder, images *Archive) ([]string, []string, error) {
	fo := images.find(b.Code)
	if fo == nil {
		if similar := images.similar(b.Code); len(similar) > 0 {
			return []string{fmt.Sprintf("%s has no image folder, similar folders: %s; check the naming",
				b.Code, strings.Join(similar, ", "))}, nil, nil
		}
		return []string{fmt.Sprintf("%s has no image folder in the ZIP", b.Code)}, nil, nil
	}

	var warnings, keys []string
	count := 0
	for _, f := range fo.files {
		name := path.Base(f.Name)
		rc, err := images.open(f)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: cannot read %s: %v", b.Code, name, err))
			continue
		}
		st, err := media.Save(ctx, im.Blobs, b.Code, name, rc)
		rc.Close()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: skipped image %s: %v", b.Code, name, err))
			continue
		}
		keys = append(keys, st.Keys...)

		_, err = store.AddImageTx(ctx, tx, b.ID, store.NewImage{
			URL:      st.URL,
			Alt:      b.Code + " - " + name,
			Variants: st.Variants,
		})
		if err != nil {
			return warnings, keys, err
		}
		count++
	}
	if count > 0 {
		warnings = append(warnings, fmt.Sprintf("%s imported %d images", b.Code, count))
	}
	return warnings, keys, nil
}

type row struct {
	code, name, description, series, sex string
	sire, dam, mate                      string
	price, offspringUnitPrice            *float64
}

func parseRow(sh *sheet, i int, code string) (*row, error) {
	r := &row{
		code:        code,
		name:        sh.cell(i, ColName),
		description: sh.cell(i, ColDescription),
		series:      sh.cell(i, ColSeries),
		sire:        sh.cell(i, ColSire),
		dam:         sh.cell(i, ColDam),
		mate:        sh.cell(i, ColMate),
	}

	sex, err := parseSex(sh.cell(i, ColSex))
	if err != nil {
		return nil, err
	}
	r.sex = sex

	if r.price, err = parseNumber(ColPrice, sh.cell(i, ColPrice)); err != nil {
		return nil, err
	}
	if r.offspringUnitPrice, err = parseNumber(ColOffspringUnitPrice, sh.cell(i, ColOffspringUnitPrice)); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *row) input(seriesID string) model.BreederInput {
	return model.BreederInput{
		Code:               r.code,
		Name:               r.name,
		Description:        r.description,
		SeriesID:           seriesID,
		Sex:                r.sex,
		SireCode:           r.sire,
		DamCode:            r.dam,
		MateCode:           r.mate,
		Price:              r.price,
		OffspringUnitPrice: r.offspringUnitPrice,
	}
}

// patch overwrites exactly the columns present in the sheet.
func (r *row) patch(sh *sheet, seriesID string) model.BreederPatch {
	var p model.BreederPatch
	str := func(col, v string, dst *model.Field[string]) {
		if sh.has(col) {
			*dst = model.Of(v)
		}
	}
	name := r.name
	if name == "" {
		name = r.code
	}
	str(ColName, name, &p.Name)
	str(ColDescription, r.description, &p.Description)
	str(ColSeries, seriesID, &p.SeriesID)
	str(ColSex, r.sex, &p.Sex)
	str(ColSire, r.sire, &p.SireCode)
	str(ColDam, r.dam, &p.DamCode)
	str(ColMate, r.mate, &p.MateCode)

	if sh.has(ColPrice) {
		p.Price = model.Of(0.0)
		if r.price != nil {
			p.Price = model.Of(*r.price)
		}
	}
	if sh.has(ColOffspringUnitPrice) {
		p.OffspringUnitPrice = model.Null[float64]()
		if r.offspringUnitPrice != nil {
			p.OffspringUnitPrice = model.Of(*r.offspringUnitPrice)
		}
	}
	return p
}

func parseSex(v string) (string, error) {
	switch strings.ToLower(v) {
	case "":
		return "", nil
	case "公", "雄", "male", "m":
		return model.SexMale, nil
	case "母", "雌", "female", "f":
		return model.SexFemale, nil
	}
	return "", fmt.Errorf("%s must be 公/male or 母/female, got %q", ColSex, v)
}

func parseNumber(col, v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("%s is not a number: %q", col, v)
	}
	return &n, nil
}
