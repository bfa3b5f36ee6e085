package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		img.Set(x, 0, color.RGBA{255, uint8(x), 0, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func zipOf(t *testing.T, files map[string][]byte) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return bytes.NewReader(buf.Bytes())
}

func newImporter(t *testing.T) (*Importer, *db.DB, *blob.Memory) {
	t.Helper()
	database := db.NewTestDB(t)
	blobs := blob.NewMemory()
	return &Importer{DB: database, Blobs: blobs}, database, blobs
}

func TestRunCreatesAndReportsRows(t *testing.T) {
	im, database, _ := newImporter(t)
	ctx := context.Background()

	sheet := workbook(t,
		[]any{ColCode, ColName, ColSeries, ColSex, ColSire, ColMate, ColPrice, ColOffspringUnitPrice},
		[]any{"f-1", "Lady", "Albino", "母", "m-0", "m-1", 1200, 300},
		[]any{"M-1", "", "albino", "公", "", "", "", ""},
		[]any{},
		[]any{"", "No code"},
		[]any{"X-1", "", "", "maybe"},
		[]any{"M-2", "", "", "male", "", "", "", 50},
		[]any{"F-2", "", "", "", "", "", "cheap"},
	)

	res, err := im.Run(ctx, sheet, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 4, res.Failed)
	assert.Len(t, res.Errors, 3)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "row 5: skipped")
	assert.Contains(t, strings.Join(res.Errors, "\n"), "row 6: importing X-1 failed")

	f, err := store.GetBreederByCode(ctx, database, "F-1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Lady", f.Name)
	assert.Equal(t, model.SexFemale, f.Sex)
	assert.Equal(t, "M-0", f.SireCode)
	assert.Equal(t, "M-1", f.MateCode)
	assert.Equal(t, 1200.0, f.Price)
	require.NotNil(t, f.OffspringUnitPrice)
	assert.Equal(t, 300.0, *f.OffspringUnitPrice)

	m, err := store.GetBreederByCode(ctx, database, "M-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "M-1", m.Name)
	// Series names match ignoring case, so only one was created.
	assert.Equal(t, f.SeriesID, m.SeriesID)
	series, _ := store.ListSeries(ctx, database, true)
	assert.Len(t, series, 1)
}

func TestRunUpdatesOnlyPresentColumns(t *testing.T) {
	im, database, _ := newImporter(t)
	ctx := context.Background()

	_, err := im.Run(ctx, workbook(t,
		[]any{ColCode, ColName, ColSeries, ColSex, ColPrice},
		[]any{"F-1", "Lady", "Albino", "母", 100},
	), nil)
	require.NoError(t, err)

	res, err := im.Run(ctx, workbook(t,
		[]any{ColCode, ColPrice},
		[]any{"F-1", 150},
	), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	f, _ := store.GetBreederByCode(ctx, database, "F-1")
	require.NotNil(t, f)
	assert.Equal(t, 150.0, f.Price)
	assert.Equal(t, "Lady", f.Name)
	assert.Equal(t, model.SexFemale, f.Sex)
	assert.NotEmpty(t, f.SeriesID)
}

func TestRunMissingCodeColumn(t *testing.T) {
	im, _, _ := newImporter(t)
	_, err := im.Run(context.Background(), workbook(t, []any{ColName}, []any{"x"}), nil)
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestRunWithImages(t *testing.T) {
	im, database, blobs := newImporter(t)
	ctx := context.Background()

	pic := pngBytes(t)
	z := zipOf(t, map[string][]byte{
		"photos/f-001/b.png":      pic,
		"photos/f-001/a.png":      pic,
		"photos/f-001/notes.txt":  []byte("ignored"),
		"photos/f-001/broken.jpg": []byte("not a jpeg"),
		"photos/M-10/c.png":       pic,
		"__MACOSX/photos/x.png":   pic,
	})
	archive, err := OpenArchive(z, z.Size(), DefaultLimits)
	require.NoError(t, err)

	res, err := im.Run(ctx, workbook(t,
		[]any{ColCode, ColSex},
		[]any{"F-1", "母"},
		[]any{"M-1", "公"},
	), archive)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	warnings := strings.Join(res.Warnings, "\n")
	assert.Contains(t, warnings, "F-1 imported 2 images")
	assert.Contains(t, warnings, "skipped image broken.jpg")
	assert.Contains(t, warnings, "similar folders: M-10")

	f, _ := store.GetBreederByCode(ctx, database, "F-1")
	require.NotNil(t, f)
	imgs, err := store.ListImages(ctx, database, f.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, model.ImageTypeMain, imgs[0].Type)
	assert.Equal(t, "F-1 - a.png", imgs[0].Alt)
	assert.Len(t, imgs[0].Variants, 4)

	stored, _ := blobs.List(ctx, "images/F-1/")
	assert.Len(t, stored, 10)
}

func TestOpenArchiveLimits(t *testing.T) {
	two := zipOf(t, map[string][]byte{"A/1.png": []byte("1"), "A/2.png": bytes.Repeat([]byte("x"), 100)})

	_, err := OpenArchive(two, two.Size(), Limits{MaxFiles: 1, MaxBytes: 1 << 20})
	assert.ErrorIs(t, err, ErrZipTooManyFiles)

	_, err = OpenArchive(two, two.Size(), Limits{MaxFiles: 10, MaxBytes: 50})
	assert.ErrorIs(t, err, ErrZipTooLarge)

	for _, name := range []string{"../evil.png", "/abs/evil.png", "A/../../evil.png", `C:\evil.png`} {
		z := zipOf(t, map[string][]byte{name: []byte("x")})
		_, err = OpenArchive(z, z.Size(), DefaultLimits)
		assert.ErrorIs(t, err, ErrUnsafePath, name)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"O01":    "o1",
		"o1":     "o1",
		"O001":   "o1",
		"F-001":  "f-1",
		"F_01":   "f_1",
		"001":    "1",
		"000":    "0",
		"abc":    "abc",
		"F-1A":   "f-1a",
		" F-01 ": "f-1",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeCode(in), in)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	sh, err := readSheet(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	for _, c := range Columns {
		assert.True(t, sh.has(c), c)
	}
	require.Len(t, sh.rows, 1)
	assert.Equal(t, "F-1", sh.cell(0, ColCode))

	im, database, _ := newImporter(t)
	res, err := im.Run(context.Background(), bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported, res.Errors)

	f, _ := store.GetBreederByCode(context.Background(), database, "F-1")
	require.NotNil(t, f)
	assert.Equal(t, "M-2", f.MateCode)
}
