// Package storetest is the conformance suite every storage.Store backend
// must pass. Both backends run the exact same assertions, which is what
// keeps their observable behavior identical.
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/storage"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.Store

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func event(id string, typ models.EventType, created time.Time, mods ...func(*models.Event)) models.Event {
	e := models.Event{
		ID:            id,
		Type:          typ,
		Context:       "context for " + id,
		Emotion:       "neutral",
		Tags:          models.StringArray{"general"},
		MetaData:      map[string]interface{}{"source": "fixture"},
		ReviewDueDate: created.Add(7 * 24 * time.Hour),
		CreatedAt:     created,
	}
	for _, mod := range mods {
		mod(&e)
	}
	if e.SearchText == "" {
		e.SearchText = models.BuildSearchText(e.Context, e.Emotion, e.Tags)
	}
	return e
}

func insert(t *testing.T, s storage.Store, events ...models.Event) {
	t.Helper()
	ctx := context.Background()
	for i := range events {
		if err := s.InsertEvent(ctx, &events[i]); err != nil {
			t.Fatalf("insert %s: %v", events[i].ID, err)
		}
	}
}

func ids(events []models.Event) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].ID
	}
	return out
}

// Run executes the full conformance suite.
func Run(t *testing.T, factory Factory) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, factory(t)) })
	t.Run("DuplicateID", func(t *testing.T) { testDuplicateID(t, factory(t)) })
	t.Run("UpdateReview", func(t *testing.T) { testUpdateReview(t, factory(t)) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, factory(t)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, factory(t)) })
	t.Run("FilterAndSearch", func(t *testing.T) { testFilterAndSearch(t, factory(t)) })
	t.Run("PendingAndCompleted", func(t *testing.T) { testPendingAndCompleted(t, factory(t)) })
	t.Run("CountsByType", func(t *testing.T) { testCountsByType(t, factory(t)) })
	t.Run("DeleteAll", func(t *testing.T) { testDeleteAll(t, factory(t)) })
	t.Run("SeedChunking", func(t *testing.T) { testSeedChunking(t, factory(t)) })
	t.Run("DailyLogs", func(t *testing.T) { testDailyLogs(t, factory(t)) })
	t.Run("Options", func(t *testing.T) { testOptions(t, factory(t)) })
}

func testRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	outcome := "it went fine"
	in := event("ev-roundtrip", models.EventDecision, baseTime, func(e *models.Event) {
		e.Emotion = "hopeful"
		e.Tags = models.StringArray{"Work", "deploy"}
		e.ActualOutcome = &outcome
	})
	insert(t, s, in)

	got, err := s.GetEvent(ctx, in.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected event, got nil")
	}
	if got.Type != in.Type || got.Context != in.Context || got.Emotion != in.Emotion {
		t.Errorf("core fields mismatch: got %+v", got)
	}
	if !reflect.DeepEqual(got.Tags, in.Tags) {
		t.Errorf("tags = %v, want %v", got.Tags, in.Tags)
	}
	if got.MetaData["source"] != "fixture" {
		t.Errorf("meta_data = %v", got.MetaData)
	}
	if got.ActualOutcome == nil || *got.ActualOutcome != outcome {
		t.Errorf("actual_outcome = %v", got.ActualOutcome)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) || !got.ReviewDueDate.Equal(in.ReviewDueDate) {
		t.Errorf("timestamps drifted: created %v due %v", got.CreatedAt, got.ReviewDueDate)
	}
	if got.IsReviewed {
		t.Error("new event must not be reviewed")
	}
	if got.SearchText != in.SearchText {
		t.Errorf("search text = %q, want %q", got.SearchText, in.SearchText)
	}

	missing, err := s.GetEvent(ctx, "ev-absent")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing id returned %+v", missing)
	}
}

func testDuplicateID(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := event("ev-dup", models.EventStress, baseTime)
	insert(t, s, e)

	again := event("ev-dup", models.EventStress, baseTime)
	if err := s.InsertEvent(ctx, &again); err != storage.ErrDuplicateID {
		t.Fatalf("duplicate insert err = %v, want ErrDuplicateID", err)
	}
}

func testUpdateReview(t *testing.T, s storage.Store) {
	ctx := context.Background()
	insert(t, s, event("ev-review", models.EventMistake, baseTime))

	reviewedAt := baseTime.Add(8 * 24 * time.Hour)
	changes := map[string]interface{}{
		"reflection":     "should have waited for review",
		"actual_outcome": nil,
		"is_reviewed":    true,
		"updated_at":     reviewedAt,
	}
	ok, err := s.UpdateEvent(ctx, "ev-review", changes)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("update reported no-op for existing id")
	}

	got, err := s.GetEvent(ctx, "ev-review")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Reflection == nil || *got.Reflection != "should have waited for review" {
		t.Errorf("reflection = %v", got.Reflection)
	}
	if !got.IsReviewed {
		t.Error("is_reviewed not set")
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(reviewedAt) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, reviewedAt)
	}
	if got.Context != "context for ev-review" {
		t.Errorf("untouched field changed: %q", got.Context)
	}

	ok, err = s.UpdateEvent(ctx, "ev-gone", changes)
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Error("update of missing id reported success")
	}
}

func testDeleteIdempotent(t *testing.T, s storage.Store) {
	ctx := context.Background()
	insert(t, s, event("ev-del", models.EventDecision, baseTime))

	for i := 0; i < 2; i++ {
		if err := s.DeleteEvent(ctx, "ev-del"); err != nil {
			t.Fatalf("delete round %d: %v", i, err)
		}
	}
	got, err := s.GetEvent(ctx, "ev-del")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("event still present after delete")
	}
}

func testPagination(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const n = 25
	for i := 0; i < n; i++ {
		insert(t, s, event(
			fmt.Sprintf("ev-page-%02d", i),
			models.EventDecision,
			baseTime.Add(time.Duration(i)*time.Hour),
		))
	}

	seen := make(map[string]bool)
	sizes := []int{10, 10, 5}
	for page := 0; page < 3; page++ {
		events, total, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll}, page, 10)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if total != n {
			t.Fatalf("page %d total = %d, want %d", page, total, n)
		}
		if len(events) != sizes[page] {
			t.Fatalf("page %d len = %d, want %d", page, len(events), sizes[page])
		}
		for _, id := range ids(events) {
			if seen[id] {
				t.Fatalf("id %s returned twice", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != n {
		t.Errorf("pages covered %d ids, want %d", len(seen), n)
	}

	// Newest first: the latest created id leads page 0.
	events, _, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll}, 0, 10)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if events[0].ID != "ev-page-24" {
		t.Errorf("first id = %s, want ev-page-24", events[0].ID)
	}

	empty, total, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll}, 9, 10)
	if err != nil {
		t.Fatalf("out-of-range page: %v", err)
	}
	if len(empty) != 0 || total != n {
		t.Errorf("out-of-range page: len %d total %d", len(empty), total)
	}
}

// The fixture corpus and the expected id sequences below are shared by both
// backends, so passing this test on each proves cross-backend consistency.
func testFilterAndSearch(t *testing.T, s storage.Store) {
	ctx := context.Background()
	fixtures := []models.Event{
		event("ev-f1", models.EventMistake, baseTime.Add(4*time.Hour), func(e *models.Event) {
			e.Context = "Pushed the **deploy** script without review"
			e.Tags = models.StringArray{"work", "deploy"}
			e.SearchText = models.BuildSearchText("Pushed the deploy script without review", e.Emotion, e.Tags)
		}),
		event("ev-f2", models.EventMistake, baseTime.Add(3*time.Hour), func(e *models.Event) {
			e.Context = "Forgot the standup"
			e.Tags = models.StringArray{"work"}
		}),
		event("ev-f3", models.EventDecision, baseTime.Add(2*time.Hour), func(e *models.Event) {
			e.Context = "Chose to DEPLOY on Friday"
			e.Tags = models.StringArray{"Work"}
		}),
		event("ev-f4", models.EventStress, baseTime.Add(1*time.Hour), func(e *models.Event) {
			e.Context = "Pager all night"
			e.Emotion = "deploy dread"
			e.Tags = models.StringArray{}
		}),
		// Non-ASCII corpus member: matching depends on Unicode case folding,
		// which only Go performs consistently across both backends.
		event("ev-f5", models.EventStress, baseTime, func(e *models.Event) {
			e.Context = "ÄRGER mit dem Release"
			e.Emotion = "genervt"
			e.Tags = models.StringArray{}
		}),
	}
	insert(t, s, fixtures...)

	cases := []struct {
		name   string
		filter storage.EventFilter
		want   []string
	}{
		{"TypeOnly", storage.EventFilter{Type: models.EventMistake}, []string{"ev-f1", "ev-f2"}},
		{"TypeAndQuery", storage.EventFilter{Type: models.EventMistake, Query: "deploy"}, []string{"ev-f1"}},
		{"QueryAcrossFields", storage.EventFilter{Type: models.EventFilterAll, Query: "deploy"}, []string{"ev-f1", "ev-f3", "ev-f4"}},
		{"TagExact", storage.EventFilter{Type: models.EventFilterAll, Tag: "work"}, []string{"ev-f1", "ev-f2"}},
		{"TagCaseSensitive", storage.EventFilter{Type: models.EventFilterAll, Tag: "Work"}, []string{"ev-f3"}},
		{"WildcardLiteral", storage.EventFilter{Type: models.EventFilterAll, Query: "%"}, []string{}},
		{"UnicodeFold", storage.EventFilter{Type: models.EventFilterAll, Query: "ärger"}, []string{"ev-f5"}},
		{"UnicodeFoldUpperQuery", storage.EventFilter{Type: models.EventFilterAll, Query: "ÄRGER"}, []string{"ev-f5"}},
		{"NoMatch", storage.EventFilter{Type: models.EventFilterAll, Query: "zzz"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, total, err := s.QueryEvents(ctx, tc.filter, 0, 50)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			got := ids(events)
			if !reflect.DeepEqual(got, tc.want) && !(len(got) == 0 && len(tc.want) == 0) {
				t.Errorf("ids = %v, want %v", got, tc.want)
			}
			if total != int64(len(tc.want)) {
				t.Errorf("total = %d, want %d", total, len(tc.want))
			}
		})
	}
}

func testPendingAndCompleted(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := baseTime.Add(30 * 24 * time.Hour)
	updatedEarly := now.Add(-2 * time.Hour)
	updatedLate := now.Add(-1 * time.Hour)

	insert(t, s,
		// Due long ago, never reviewed: pending, first in line.
		event("ev-p1", models.EventMistake, baseTime),
		// Due later but still past: pending, second.
		event("ev-p2", models.EventStress, baseTime.Add(24*time.Hour)),
		// Same due date as ev-p2: id breaks the tie.
		event("ev-p0", models.EventStress, baseTime.Add(24*time.Hour)),
		// Not yet due: absent from pending.
		event("ev-future", models.EventDecision, now.Add(-6*24*time.Hour)),
		// Reviewed: absent from pending, present in completed.
		event("ev-done1", models.EventDecision, baseTime, func(e *models.Event) {
			e.IsReviewed = true
			e.UpdatedAt = &updatedEarly
		}),
		event("ev-done2", models.EventDecision, baseTime, func(e *models.Event) {
			e.IsReviewed = true
			e.UpdatedAt = &updatedLate
		}),
	)

	pending, err := s.ListPending(ctx, now)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	wantPending := []string{"ev-p1", "ev-p0", "ev-p2"}
	if !reflect.DeepEqual(ids(pending), wantPending) {
		t.Errorf("pending ids = %v, want %v", ids(pending), wantPending)
	}

	n, err := s.CountPending(ctx, now)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if n != 3 {
		t.Errorf("pending count = %d, want 3", n)
	}

	done, err := s.ListReviewed(ctx)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	wantDone := []string{"ev-done2", "ev-done1"}
	if !reflect.DeepEqual(ids(done), wantDone) {
		t.Errorf("completed ids = %v, want %v", ids(done), wantDone)
	}
}

func testCountsByType(t *testing.T, s storage.Store) {
	ctx := context.Background()

	counts, err := s.CountsByType(ctx)
	if err != nil {
		t.Fatalf("counts on empty store: %v", err)
	}
	for _, typ := range models.EventTypes() {
		if counts[typ] != 0 {
			t.Errorf("empty store count[%s] = %d", typ, counts[typ])
		}
	}

	insert(t, s,
		event("ev-c1", models.EventDecision, baseTime),
		event("ev-c2", models.EventDecision, baseTime.Add(time.Hour)),
		event("ev-c3", models.EventMistake, baseTime.Add(2*time.Hour)),
	)

	counts, err = s.CountsByType(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[models.EventDecision] != 2 || counts[models.EventMistake] != 1 || counts[models.EventStress] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func testDeleteAll(t *testing.T, s storage.Store) {
	ctx := context.Background()
	insert(t, s,
		event("ev-w1", models.EventDecision, baseTime),
		event("ev-w2", models.EventStress, baseTime.Add(time.Hour)),
	)

	if err := s.DeleteAllEvents(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	events, total, err := s.QueryEvents(ctx, storage.EventFilter{Type: models.EventFilterAll}, 0, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 0 || total != 0 {
		t.Errorf("corpus not empty: len %d total %d", len(events), total)
	}

	counts, err := s.CountsByType(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	for typ, n := range counts {
		if n != 0 {
			t.Errorf("count[%s] = %d after delete-all", typ, n)
		}
	}

	// Empty store again: delete-all stays a no-op.
	if err := s.DeleteAllEvents(ctx); err != nil {
		t.Fatalf("second delete all: %v", err)
	}
}

func testSeedChunking(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const n = storage.SeedChunkSize*2 + 5
	batch := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, event(
			fmt.Sprintf("ev-seed-%03d", i),
			models.EventTypes()[i%3],
			baseTime.Add(time.Duration(i)*time.Minute),
		))
	}

	if err := s.SeedEvents(ctx, batch); err != nil {
		t.Fatalf("seed: %v", err)
	}
	total, err := s.CountEvents(ctx, storage.EventFilter{Type: models.EventFilterAll})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != n {
		t.Errorf("count = %d, want %d", total, n)
	}
}

func testDailyLogs(t *testing.T, s storage.Store) {
	ctx := context.Background()

	first := &models.DailyLog{ID: "dl-1", DateKey: "2026-05-01", Score: 40, Reason: "rough day", CreatedAt: baseTime}
	if err := s.UpsertDailyLog(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Same date again: replaced in place, identity preserved.
	second := &models.DailyLog{ID: "dl-2", DateKey: "2026-05-01", Score: 75, Reason: "recovered", CreatedAt: baseTime.Add(time.Hour)}
	if err := s.UpsertDailyLog(ctx, second); err != nil {
		t.Fatalf("upsert overwrite: %v", err)
	}

	got, err := s.GetDailyLog(ctx, "2026-05-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected daily log")
	}
	if got.ID != "dl-1" {
		t.Errorf("identity changed on overwrite: id = %s", got.ID)
	}
	if got.Score != 75 || got.Reason != "recovered" {
		t.Errorf("overwrite not applied: %+v", got)
	}

	other := &models.DailyLog{ID: "dl-3", DateKey: "2026-05-03", Score: 90, CreatedAt: baseTime.Add(48 * time.Hour)}
	if err := s.UpsertDailyLog(ctx, other); err != nil {
		t.Fatalf("upsert other: %v", err)
	}

	logs, err := s.ListDailyLogs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 || logs[0].DateKey != "2026-05-03" || logs[1].DateKey != "2026-05-01" {
		t.Errorf("list order wrong: %+v", logs)
	}

	missing, err := s.GetDailyLog(ctx, "2026-06-01")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing date returned %+v", missing)
	}
}

func testOptions(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, found, err := s.GetOption(ctx, "theme")
	if err != nil {
		t.Fatalf("get unset: %v", err)
	}
	if found {
		t.Error("unset option reported found")
	}

	if err := s.SetOption(ctx, "theme", "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetOption(ctx, "theme", "light"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.SetOption(ctx, "push_device_key", "abc123"); err != nil {
		t.Fatalf("set second: %v", err)
	}

	val, found, err := s.GetOption(ctx, "theme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || val != "light" {
		t.Errorf("theme = %q found=%v, want light", val, found)
	}

	opts, err := s.ListOptions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(opts) != 2 || opts[0].Name != "push_device_key" || opts[1].Name != "theme" {
		t.Errorf("options = %+v", opts)
	}
}
