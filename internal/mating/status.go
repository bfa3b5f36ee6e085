// Package mating classifies how urgently a female breeder needs to be
// paired again after laying eggs.
package mating

import "time"

// Status is the urgency of re-pairing a female.
type Status string

// Statuses, from least to most urgent.
const (
	StatusNormal     Status = "normal"
	StatusNeedMating Status = "need_mating"
	StatusWarning    Status = "warning"
)

// Severity ranks statuses for sorting; higher is more urgent.
func (s Status) Severity() int {
	switch s {
	case StatusWarning:
		return 2
	case StatusNeedMating:
		return 1
	}
	return 0
}

// Thresholds are the day counts after the last egg at which a female needs
// mating and at which it becomes a warning.
type Thresholds struct {
	NeedMatingDays int `yaml:"need_mating_days"`
	WarningDays    int `yaml:"warning_days"`
}

// DefaultThresholds are the business defaults.
var DefaultThresholds = Thresholds{NeedMatingDays: 10, WarningDays: 25}

// Classify uses DefaultThresholds.
func Classify(now time.Time, lastEggAt, lastMatingAt *time.Time) Status {
	return DefaultThresholds.Classify(now, lastEggAt, lastMatingAt)
}

// Classify returns the status of a female given her last egg and last
// mating. A mating on or after the day of the last egg clears the need.
func (th Thresholds) Classify(now time.Time, lastEggAt, lastMatingAt *time.Time) Status {
	if lastEggAt == nil {
		return StatusNormal
	}
	if lastMatingAt != nil && !date(*lastMatingAt).Before(date(*lastEggAt)) {
		return StatusNormal
	}

	days := daysBetween(*lastEggAt, now)
	switch {
	case days >= th.WarningDays:
		return StatusWarning
	case days >= th.NeedMatingDays:
		return StatusNeedMating
	}
	return StatusNormal
}

// DaysSince returns the number of UTC calendar days from t to now, counting
// the day of t as day 0. It returns nil when t is nil.
func DaysSince(now time.Time, t *time.Time) *int {
	if t == nil {
		return nil
	}
	d := daysBetween(*t, now)
	return &d
}

// PickLatest returns the later of two optional times. It is used to merge
// the event log with the legacy record tables.
func PickLatest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	}
	return a
}

// date truncates t to its UTC calendar day. Stored dates are UTC wall-clock
// times, so the clock is compared in UTC too.
func date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(date(to).Sub(date(from)) / (24 * time.Hour))
}
