// Package storage defines the persistence contract for journal data.
//
// Two interchangeable backends implement Store: a Redis key→JSON blob store
// (kvstore) and an embedded SQLite store (sqlstore). One is selected at
// startup; both must produce identical result sets and ordering for the
// same inputs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hindsight-app/core/internal/models"
)

var (
	// ErrNotReady is returned when a backend has not finished initializing.
	ErrNotReady = errors.New("storage: backend not ready")
	// ErrDuplicateID is returned when inserting an event whose id already exists.
	ErrDuplicateID = errors.New("storage: duplicate id")
)

// EventFilter narrows event queries. Zero value matches everything.
type EventFilter struct {
	// Type filters by event type. Empty or the ALL sentinel disables the filter.
	Type models.EventType
	// Tag requires exact (case-sensitive) membership in the event's tag list.
	Tag string
	// Query matches case-insensitive substrings against the markup-stripped
	// context, the emotion field, and each tag. Blank disables the filter.
	Query string
}

// Store is the backend-agnostic persistence contract. Implementations must
// order QueryEvents by created_at descending with id descending as the
// tie-break, and must skip (not fail on) individually corrupt records.
type Store interface {
	Name() string

	InsertEvent(ctx context.Context, e *models.Event) error
	// GetEvent returns (nil, nil) when the id is absent.
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	// UpdateEvent applies partial changes keyed by wire field name, atomically
	// per record. Returns false without error when the id is absent.
	UpdateEvent(ctx context.Context, id string, changes map[string]interface{}) (bool, error)
	// DeleteEvent is idempotent; deleting an absent id is not an error.
	DeleteEvent(ctx context.Context, id string) error
	DeleteAllEvents(ctx context.Context) error

	QueryEvents(ctx context.Context, f EventFilter, page, size int) ([]models.Event, int64, error)
	CountEvents(ctx context.Context, f EventFilter) (int64, error)
	// CountsByType is zero-filled: every storable type appears in the result.
	CountsByType(ctx context.Context) (map[models.EventType]int64, error)

	ListPending(ctx context.Context, now time.Time) ([]models.Event, error)
	CountPending(ctx context.Context, now time.Time) (int64, error)
	// ListReviewed returns completed reviews, most recently reflected-on first.
	ListReviewed(ctx context.Context) ([]models.Event, error)

	AllEvents(ctx context.Context) ([]models.Event, error)
	// AllEventTags reads only the tag lists of every event, skipping malformed entries.
	AllEventTags(ctx context.Context) ([]models.StringArray, error)
	// SeedEvents inserts in bounded chunks; each chunk commits independently.
	SeedEvents(ctx context.Context, events []models.Event) error

	UpsertDailyLog(ctx context.Context, d *models.DailyLog) error
	GetDailyLog(ctx context.Context, dateKey string) (*models.DailyLog, error)
	ListDailyLogs(ctx context.Context) ([]models.DailyLog, error)

	GetOption(ctx context.Context, name string) (string, bool, error)
	SetOption(ctx context.Context, name, value string) error
	ListOptions(ctx context.Context) ([]models.Option, error)
}

// SeedChunkSize bounds batched seed writes so a single statement stays small.
const SeedChunkSize = 30
