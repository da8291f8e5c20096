package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hindsight-app/core/internal/models"
	redisclient "github.com/hindsight-app/core/internal/pkg/redis"
	"github.com/hindsight-app/core/internal/storage"
	"github.com/hindsight-app/core/internal/storage/storetest"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(redisclient.Wrap(rdb))
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestCorruptBlobIsSkipped(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := New(redisclient.Wrap(rdb))
	ctx := context.Background()

	if err := mr.Set("hs:event:ev-bad", "{truncated"); err != nil {
		t.Fatalf("plant corrupt blob: %v", err)
	}
	// A blob that parses but has no id is equally unusable.
	if err := mr.Set("hs:event:ev-anon", `{"type":"MISTAKE"}`); err != nil {
		t.Fatalf("plant anonymous blob: %v", err)
	}

	events, total, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll}, 0, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 0 || total != 0 {
		t.Errorf("corrupt blobs leaked into results: %v", events)
	}

	got, err := s.GetEvent(ctx, "ev-bad")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("corrupt blob surfaced as event: %+v", got)
	}
}

func TestEventBlobKeepsSearchText(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := New(redisclient.Wrap(rdb))
	ctx := context.Background()

	events, _, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll, Query: "stripped"}, 0, 10)
	if err != nil {
		t.Fatalf("query empty: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("unexpected events: %v", events)
	}

	if err := mr.Set("hs:event:ev-st", `{"id":"ev-st","type":"DECISION","context":"**bold** words","search_text":"stripped bold words","tags":[],"is_reviewed":false,"review_due_date":"2026-05-08T12:00:00Z","created_at":"2026-05-01T12:00:00Z"}`); err != nil {
		t.Fatalf("set: %v", err)
	}

	events, _, err = s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll, Query: "stripped"}, 0, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ev-st" {
		t.Fatalf("search over blob search_text failed: %v", events)
	}
	if events[0].SearchText != "stripped bold words" {
		t.Errorf("search_text = %q", events[0].SearchText)
	}
}
