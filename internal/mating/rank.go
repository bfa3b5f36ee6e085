package mating

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Entry is one female in a male's mate-load view.
type Entry struct {
	FemaleID                 string     `json:"femaleId"`
	FemaleCode               string     `json:"femaleCode"`
	LastEggAt                *time.Time `json:"lastEggAt"`
	LastMatingAt             *time.Time `json:"lastMatingAt"`
	LastMatingWithThisMaleAt *time.Time `json:"lastMatingWithThisMaleAt"`
	DaysSinceEgg             *int       `json:"daysSinceEgg"`
	Status                   Status     `json:"status"`
}

// Totals summarise a set of entries.
type Totals struct {
	RelatedFemales int `json:"relatedFemales"`
	NeedMating     int `json:"needMating"`
	Warning        int `json:"warning"`
}

// Rank sorts entries most urgent first: by severity, then by days since the
// last egg (missing last), then by female code.
func Rank(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Status.Severity(), a.Status.Severity()); c != 0 {
			return c
		}
		if c := cmp.Compare(daysOrMinusOne(b.DaysSinceEgg), daysOrMinusOne(a.DaysSinceEgg)); c != 0 {
			return c
		}
		return strings.Compare(a.FemaleCode, b.FemaleCode)
	})
}

// Tally counts entries per status.
func Tally(entries []Entry) Totals {
	t := Totals{RelatedFemales: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case StatusNeedMating:
			t.NeedMating++
		case StatusWarning:
			t.Warning++
		}
	}
	return t
}

func daysOrMinusOne(d *int) int {
	if d == nil {
		return -1
	}
	return *d
}
