package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/modules/tags"
	"github.com/hindsight-app/core/internal/pkg/pagination"
	"github.com/hindsight-app/core/internal/pkg/review"
	"github.com/hindsight-app/core/internal/storage"
	"github.com/hindsight-app/core/internal/storage/sqlstore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func newTestService(t *testing.T) (*Service, *tags.Index) {
	t.Helper()
	dsn := fmt.Sprintf("file:entry_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Event{}, &models.DailyLog{}, &models.Option{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.New(db)
	index := tags.NewIndex(store)
	return NewService(store, index), index
}

func TestAddSetsDerivedFields(t *testing.T) {
	svc, index := newTestService(t)
	ctx := context.Background()

	e, err := svc.Add(ctx, CreateEventDTO{
		Type:    "decision",
		Context: "chose the **risky** option",
		Emotion: " hopeful ",
		Tags:    []string{" work ", "", "Risk"},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.ID == "" {
		t.Error("no id assigned")
	}
	if e.Type != models.EventDecision {
		t.Errorf("type = %s", e.Type)
	}
	if e.Emotion != "hopeful" {
		t.Errorf("emotion = %q", e.Emotion)
	}
	if len(e.Tags) != 2 || e.Tags[0] != "work" || e.Tags[1] != "Risk" {
		t.Errorf("tags = %v", e.Tags)
	}
	if !e.ReviewDueDate.Equal(review.DueDate(e.CreatedAt)) {
		t.Errorf("due date %v not created+delay (%v)", e.ReviewDueDate, e.CreatedAt)
	}
	// Markup stripped, then context, emotion and tags folded to lowercase.
	if e.SearchText != "chose the risky option\nhopeful\nwork\nrisk" {
		t.Errorf("search text = %q", e.SearchText)
	}
	if e.IsReviewed || e.UpdatedAt != nil {
		t.Error("new event already carries review state")
	}

	// The just-written tags are suggestible immediately.
	if got := index.Search("risk"); len(got) != 1 || got[0] != "Risk" {
		t.Errorf("index search = %v", got)
	}
}

func TestAddHonorsClientID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	e, err := svc.Add(ctx, CreateEventDTO{ID: " imported-1 ", Type: "DECISION", Context: "restored from an export"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.ID != "imported-1" {
		t.Errorf("id = %q, want imported-1", e.ID)
	}

	if _, err := svc.Add(ctx, CreateEventDTO{ID: "imported-1", Type: "DECISION", Context: "same id again"}); !errors.Is(err, storage.ErrDuplicateID) {
		t.Errorf("duplicate id err = %v, want ErrDuplicateID", err)
	}

	gen, err := svc.Add(ctx, CreateEventDTO{Type: "DECISION", Context: "no id supplied"})
	if err != nil {
		t.Fatalf("add without id: %v", err)
	}
	if gen.ID == "" || gen.ID == "imported-1" {
		t.Errorf("generated id = %q", gen.ID)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, CreateEventDTO{Type: "RANT", Context: "x"}); err == nil {
		t.Error("unknown type accepted")
	}
	if _, err := svc.Add(ctx, CreateEventDTO{Type: "ALL", Context: "x"}); err == nil {
		t.Error("filter sentinel accepted as stored type")
	}
	if _, err := svc.Add(ctx, CreateEventDTO{Type: "STRESS", Context: "   "}); err == nil {
		t.Error("blank context accepted")
	}
}

func TestUpdateReview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	e, err := svc.Add(ctx, CreateEventDTO{Type: "MISTAKE", Context: "deployed on friday"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	now := time.Now().Add(8 * 24 * time.Hour)
	outcome := "nothing broke, got lucky"
	updated, err := svc.UpdateReview(ctx, e.ID, ReviewDTO{
		Reflection:    "wait for monday next time",
		ActualOutcome: &outcome,
	}, now)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if updated == nil {
		t.Fatal("review reported missing event")
	}
	if !updated.IsReviewed {
		t.Error("is_reviewed not set")
	}
	if updated.Reflection == nil || *updated.Reflection != "wait for monday next time" {
		t.Errorf("reflection = %v", updated.Reflection)
	}
	if updated.ActualOutcome == nil || *updated.ActualOutcome != outcome {
		t.Errorf("actual_outcome = %v", updated.ActualOutcome)
	}
	if updated.UpdatedAt == nil || !updated.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v, want %v", updated.UpdatedAt, now)
	}

	missing, err := svc.UpdateReview(ctx, "no-such-id", ReviewDTO{Reflection: "x"}, now)
	if err != nil {
		t.Fatalf("review missing: %v", err)
	}
	if missing != nil {
		t.Errorf("review of missing id returned %+v", missing)
	}
}

func TestStatsAndDeleteAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Add(ctx, CreateEventDTO{Type: "DECISION", Context: fmt.Sprintf("d%d", i)}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := svc.Add(ctx, CreateEventDTO{Type: "STRESS", Context: "s"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	counts, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if counts[models.EventDecision] != 3 || counts[models.EventStress] != 1 || counts[models.EventMistake] != 0 {
		t.Errorf("stats = %v", counts)
	}

	if err := svc.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	counts, err = svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats after wipe: %v", err)
	}
	for typ, n := range counts {
		if n != 0 {
			t.Errorf("count[%s] = %d after delete-all", typ, n)
		}
	}

	events, pag, err := svc.GetPaging(ctx, storage.EventFilter{Type: models.EventFilterAll}, pagination.Query{Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("paging after wipe: %v", err)
	}
	if len(events) != 0 || pag.Total != 0 {
		t.Errorf("corpus not empty: %v %+v", events, pag)
	}
}

func TestExportShape(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, CreateEventDTO{Type: "MISTAKE", Context: "**overslept** again", Tags: []string{"sleep"}}); err != nil {
		t.Fatalf("add: %v", err)
	}

	b, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(string(b), "[\n") {
		t.Error("export is not a pretty-printed array")
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d", len(records))
	}

	wantKeys := []string{
		"id", "type", "context", "emotion", "tags", "meta_data",
		"reflection", "actual_outcome", "is_reviewed", "review_due_date",
		"created_at", "updated_at",
	}
	for _, key := range wantKeys {
		if _, ok := records[0][key]; !ok {
			t.Errorf("export missing field %q", key)
		}
	}
	if _, ok := records[0]["search_text"]; ok {
		t.Error("derived search_text leaked into export")
	}
	if len(records[0]) != len(wantKeys) {
		t.Errorf("export has %d fields, want %d", len(records[0]), len(wantKeys))
	}
}

func TestSeed(t *testing.T) {
	svc, index := newTestService(t)
	ctx := context.Background()

	inserted, err := svc.Seed(ctx, 40)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if inserted != 40 {
		t.Fatalf("inserted = %d, want 40", inserted)
	}

	all, pag, err := svc.GetPaging(ctx, storage.EventFilter{Type: models.EventFilterAll}, pagination.Query{Page: 1, Size: 100})
	if err != nil {
		t.Fatalf("paging: %v", err)
	}
	if pag.Total != 40 {
		t.Fatalf("total = %d", pag.Total)
	}

	now := time.Now()
	for _, e := range all {
		if e.CreatedAt.After(now) || e.CreatedAt.Before(now.Add(-61*24*time.Hour)) {
			t.Errorf("event %s created %v, outside the 60-day spread", e.ID, e.CreatedAt)
		}
		if !e.ReviewDueDate.Equal(review.DueDate(e.CreatedAt)) {
			t.Errorf("event %s due date inconsistent", e.ID)
		}
		if e.IsReviewed && e.UpdatedAt == nil {
			t.Errorf("event %s reviewed without updated_at", e.ID)
		}
		if e.SearchText == "" {
			t.Errorf("event %s has no search text", e.ID)
		}
	}

	// Seeding refreshed the tag index from the stored corpus.
	if len(index.All()) == 0 {
		t.Error("tag index empty after seed")
	}

	if _, err := svc.Seed(ctx, 0); err == nil {
		t.Error("non-positive count accepted")
	}
}
