package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventType is the closed set of journal entry kinds.
type EventType string

const (
	EventDecision EventType = "DECISION"
	EventMistake  EventType = "MISTAKE"
	EventStress   EventType = "STRESS"

	// EventFilterAll is a query sentinel meaning "no type filter". Never stored.
	EventFilterAll EventType = "ALL"
)

// Valid reports whether t is a storable event type.
func (t EventType) Valid() bool {
	switch t {
	case EventDecision, EventMistake, EventStress:
		return true
	}
	return false
}

// EventTypes lists the storable types in stable order, for zero-filled aggregates.
func EventTypes() []EventType {
	return []EventType{EventDecision, EventMistake, EventStress}
}

// Event is one journaled entry with an optional later reflection.
// JSON field names are the on-disk and export wire format; do not rename.
type Event struct {
	ID            string                 `json:"id"              gorm:"type:char(36);primaryKey"`
	Type          EventType              `json:"type"            gorm:"index;not null"`
	Context       string                 `json:"context"         gorm:"type:text;not null"`
	Emotion       string                 `json:"emotion"`
	Tags          StringArray            `json:"tags"            gorm:"type:text"`
	MetaData      map[string]interface{} `json:"meta_data"       gorm:"type:text;serializer:json"`
	Reflection    *string                `json:"reflection"      gorm:"type:text"`
	ActualOutcome *string                `json:"actual_outcome"  gorm:"type:text"`
	IsReviewed    bool                   `json:"is_reviewed"     gorm:"index;default:false"`
	ReviewDueDate time.Time              `json:"review_due_date" gorm:"index"`
	CreatedAt     time.Time              `json:"created_at"      gorm:"index"`
	UpdatedAt     *time.Time             `json:"updated_at"      gorm:"autoUpdateTime:false"`

	// SearchText is the lowercased fold of the markup-stripped context, the
	// emotion and the tags, maintained at write time via BuildSearchText.
	// Excluded from the export shape.
	SearchText string `json:"-" gorm:"column:search_text;type:text"`
}

// BuildSearchText folds an event's searchable fields into the single
// lowercased blob search queries match against. Folding happens in Go at
// write time so both backends compare identical bytes; SQLite's LOWER()
// only handles ASCII and must never be the one doing the case folding.
// Fields are newline-separated so substrings cannot span two of them.
func BuildSearchText(plain, emotion string, tags StringArray) string {
	parts := make([]string, 0, len(tags)+2)
	parts = append(parts, plain, emotion)
	parts = append(parts, tags...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func (Event) TableName() string { return "events" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// DailyLog is one self-rating per calendar date. Writing an existing date
// overwrites in place; identity is the date key.
type DailyLog struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	DateKey   string    `json:"date_key"   gorm:"uniqueIndex;not null;size:191"`
	Score     int       `json:"score"`
	Reason    string    `json:"reason"     gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (DailyLog) TableName() string { return "daily_logs" }

func (d *DailyLog) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}
