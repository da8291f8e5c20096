// Package entry is the event repository: journal entries with delayed
// review scheduling, filtering, search, aggregates and export. All
// persistence goes through storage.Store so both backends behave
// identically.
package entry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/modules/tags"
	"github.com/hindsight-app/core/internal/pkg/pagination"
	"github.com/hindsight-app/core/internal/pkg/plaintext"
	"github.com/hindsight-app/core/internal/pkg/response"
	"github.com/hindsight-app/core/internal/pkg/review"
	"github.com/hindsight-app/core/internal/storage"
)

type Service struct {
	store    storage.Store
	tagIndex *tags.Index
}

func NewService(store storage.Store, tagIndex *tags.Index) *Service {
	return &Service{store: store, tagIndex: tagIndex}
}

// Add validates and persists a new event. The review due date is fixed at
// creation; the searchable text is derived from the markup once, here.
// A client-supplied id is honored so exports can be re-imported; absent one,
// a fresh UUID is assigned.
func (s *Service) Add(ctx context.Context, dto CreateEventDTO) (*models.Event, error) {
	eventType := models.EventType(strings.ToUpper(strings.TrimSpace(dto.Type)))
	if !eventType.Valid() {
		return nil, fmt.Errorf("invalid event type %q", dto.Type)
	}
	text := strings.TrimSpace(dto.Context)
	if text == "" {
		return nil, fmt.Errorf("context must not be empty")
	}
	id := strings.TrimSpace(dto.ID)
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now()
	emotion := strings.TrimSpace(dto.Emotion)
	tagList := normalizeTags(dto.Tags)
	e := &models.Event{
		ID:            id,
		Type:          eventType,
		Context:       text,
		Emotion:       emotion,
		Tags:          tagList,
		MetaData:      dto.MetaData,
		ReviewDueDate: review.DueDate(now),
		CreatedAt:     now,
		SearchText:    models.BuildSearchText(plaintext.Extract(text), emotion, tagList),
	}

	if err := s.store.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	for _, tag := range e.Tags {
		s.tagIndex.AddOptimistic(tag)
	}
	return e, nil
}

func normalizeTags(raw []string) models.StringArray {
	out := make(models.StringArray, 0, len(raw))
	for _, tag := range raw {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Get returns the event or (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// UpdateReview records the reflection for an event and marks it reviewed,
// in a single write. A missing id is a no-op reported as (nil, nil): the
// event may have been deleted while the review sat open.
func (s *Service) UpdateReview(ctx context.Context, id string, dto ReviewDTO, now time.Time) (*models.Event, error) {
	changes := map[string]interface{}{
		"reflection":     dto.Reflection,
		"actual_outcome": dto.ActualOutcome,
		"is_reviewed":    true,
		"updated_at":     now,
	}
	ok, err := s.store.UpdateEvent(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.store.GetEvent(ctx, id)
}

// Delete removes an event. Deleting an absent id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteEvent(ctx, id)
}

// DeleteAll wipes the whole event corpus.
func (s *Service) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAllEvents(ctx)
}

// GetPaging returns one page of the filtered, newest-first corpus.
func (s *Service) GetPaging(ctx context.Context, f storage.EventFilter, q pagination.Query) ([]models.Event, response.Pagination, error) {
	events, total, err := s.store.QueryEvents(ctx, f, q.Offset(), q.Size)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, pagination.Meta(total, q), nil
}

// PendingReviews lists events whose waiting period has elapsed without a
// reflection, longest-waiting first.
func (s *Service) PendingReviews(ctx context.Context, now time.Time) ([]models.Event, error) {
	return s.store.ListPending(ctx, now)
}

func (s *Service) PendingCount(ctx context.Context, now time.Time) (int64, error) {
	return s.store.CountPending(ctx, now)
}

// CompletedReviews lists reviewed events, most recently reflected-on first.
func (s *Service) CompletedReviews(ctx context.Context) ([]models.Event, error) {
	return s.store.ListReviewed(ctx)
}

// Stats returns the per-type event counts. Types with no events appear
// with count 0.
func (s *Service) Stats(ctx context.Context) (map[models.EventType]int64, error) {
	return s.store.CountsByType(ctx)
}

// Export serializes the full corpus as a pretty-printed JSON array in the
// exact wire shape consumers re-import.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	events, err := s.store.AllEvents(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(events, "", "  ")
}
