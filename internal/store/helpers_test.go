package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
)

func mustSeries(t *testing.T, database *db.DB, name string) *model.Series {
	t.Helper()
	s, err := CreateSeries(context.Background(), database, model.SeriesInput{Name: name})
	if err != nil {
		t.Fatalf("CreateSeries(%q): %v", name, err)
	}
	return s
}

func mustBreeder(t *testing.T, database *db.DB, in model.BreederInput) *model.Breeder {
	t.Helper()
	b, err := CreateBreeder(context.Background(), database, in)
	if err != nil {
		t.Fatalf("CreateBreeder(%q): %v", in.Code, err)
	}
	return b
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func codes(breeders []model.Breeder) []string {
	out := make([]string, len(breeders))
	for i, b := range breeders {
		out[i] = b.Code
	}
	return out
}

// AddImage runs AddImageTx in its own transaction.
func AddImage(ctx context.Context, d *db.DB, breederID string, in NewImage) (*model.Image, error) {
	var out *model.Image
	err := d.InTx(ctx, func(tx *db.Tx) error {
		var err error
		out, err = AddImageTx(ctx, tx, breederID, in)
		return err
	})
	return out, err
}
