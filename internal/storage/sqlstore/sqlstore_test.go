package sqlstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/storage"
	"github.com/hindsight-app/core/internal/storage/storetest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	db := newTestDB(t)
	return New(db)
}

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A uniquely named shared in-memory database per test: shared so the
	// pool sees one database, named so tests stay isolated.
	dsn := fmt.Sprintf("file:sqlstore_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Event{}, &models.DailyLog{}, &models.Option{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestCorruptTagsRowIsSkippedByTagFilter(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	ctx := context.Background()

	good := models.Event{
		ID:        "ev-good",
		Type:      models.EventDecision,
		Context:   "fine entry",
		Tags:      models.StringArray{"work"},
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.InsertEvent(ctx, &good); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Damage a tags column directly, bypassing the serializer.
	err := db.Exec(
		`INSERT INTO events (id, type, context, tags, is_reviewed, review_due_date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"ev-bad", "MISTAKE", "broken entry", "{not json", false,
		time.Date(2026, 5, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC),
	).Error
	if err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	events, total, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll, Tag: "work"}, 0, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 || len(events) != 1 || events[0].ID != "ev-good" {
		t.Errorf("tag filter over corrupt row: total=%d events=%v", total, events)
	}

	// Without the tag predicate the damaged row still lists; its tags just
	// come back empty instead of failing the scan.
	all, _, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll}, 0, 10)
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	for _, e := range all {
		if e.ID == "ev-bad" && len(e.Tags) != 0 {
			t.Errorf("corrupt tags decoded to %v", e.Tags)
		}
	}
}
