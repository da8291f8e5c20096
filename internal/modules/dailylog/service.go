// Package dailylog handles the once-a-day self-rating check-in. One record
// per calendar date; writing a date again replaces the earlier check-in.
package dailylog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/storage"
)

const dateKeyLayout = "2006-01-02"

type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Upsert records the self-rating for a date. An existing check-in for the
// same date is replaced whole, never partially updated.
func (s *Service) Upsert(ctx context.Context, dto UpsertDailyLogDTO) (*models.DailyLog, error) {
	dateKey := strings.TrimSpace(dto.DateKey)
	if dateKey == "" {
		dateKey = time.Now().Format(dateKeyLayout)
	}
	if _, err := time.Parse(dateKeyLayout, dateKey); err != nil {
		return nil, fmt.Errorf("invalid date_key %q, expected YYYY-MM-DD", dto.DateKey)
	}
	if dto.Score < 0 || dto.Score > 100 {
		return nil, fmt.Errorf("score %d out of range 0-100", dto.Score)
	}

	d := &models.DailyLog{
		DateKey:   dateKey,
		Score:     dto.Score,
		Reason:    strings.TrimSpace(dto.Reason),
		CreatedAt: time.Now(),
	}
	if err := s.store.UpsertDailyLog(ctx, d); err != nil {
		return nil, err
	}
	return s.store.GetDailyLog(ctx, dateKey)
}

// Get returns the check-in for a date or (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, dateKey string) (*models.DailyLog, error) {
	return s.store.GetDailyLog(ctx, dateKey)
}

// List returns every check-in, newest date first.
func (s *Service) List(ctx context.Context) ([]models.DailyLog, error) {
	return s.store.ListDailyLogs(ctx)
}
