package model

import "time"

// MatingRecord is a legacy flat mating entry linking a female and a male.
type MatingRecord struct {
	ID        string      `json:"id"`
	FemaleID  string      `json:"femaleId"`
	MaleID    string      `json:"maleId"`
	Female    *BreederRef `json:"female,omitempty"`
	Male      *BreederRef `json:"male,omitempty"`
	MatedAt   time.Time   `json:"matedAt"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// EggRecord is a legacy flat egg-laying entry for a female.
type EggRecord struct {
	ID        string    `json:"id"`
	FemaleID  string    `json:"femaleId"`
	LaidAt    time.Time `json:"laidAt"`
	Count     *int      `json:"count"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event types in a breeder's timeline.
const (
	EventMating     = "mating"
	EventEgg        = "egg"
	EventChangeMate = "change_mate"
)

// ValidEventType reports whether t is a known event type.
func ValidEventType(t string) bool {
	switch t {
	case EventMating, EventEgg, EventChangeMate:
		return true
	}
	return false
}

// BreederEvent is one entry of the structured event log.
type BreederEvent struct {
	ID          string    `json:"id"`
	BreederID   string    `json:"productId"`
	EventType   string    `json:"eventType"`
	EventDate   time.Time `json:"eventDate"`
	MaleCode    *string   `json:"maleCode"`
	EggCount    *int      `json:"eggCount"`
	Note        *string   `json:"note"`
	OldMateCode *string   `json:"oldMateCode"`
	NewMateCode *string   `json:"newMateCode"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MatingRecordInput is the body of a mating record create request.
type MatingRecordInput struct {
	FemaleID string `json:"female_id"`
	MaleID   string `json:"male_id"`
	MatedAt  string `json:"mated_at"`
	Notes    string `json:"notes"`
}

// EggRecordInput is the body of an egg record create request.
type EggRecordInput struct {
	FemaleID string `json:"female_id"`
	LaidAt   string `json:"laid_at"`
	Count    *int   `json:"count"`
	Notes    string `json:"notes"`
}

// EventInput is the body of an event create request.
type EventInput struct {
	EventType   string `json:"event_type"`
	EventDate   string `json:"event_date"`
	MaleCode    string `json:"male_code"`
	EggCount    *int   `json:"egg_count"`
	Note        string `json:"note"`
	NewMateCode string `json:"new_mate_code"`
}
