package tags

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/storage"
	"github.com/hindsight-app/core/internal/storage/sqlstore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func newTestIndex(t *testing.T) (*Index, storage.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:tags_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Event{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.New(db)
	return NewIndex(store), store
}

func insertTagged(t *testing.T, store storage.Store, id string, tagList ...string) {
	t.Helper()
	e := models.Event{
		ID:        id,
		Type:      models.EventDecision,
		Context:   "ctx",
		Tags:      models.StringArray(tagList),
		CreatedAt: time.Now(),
	}
	if err := store.InsertEvent(context.Background(), &e); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func TestReloadDedupesAndSorts(t *testing.T) {
	index, store := newTestIndex(t)
	insertTagged(t, store, "e1", "work", "Family")
	insertTagged(t, store, "e2", "work", "health", "  ", "")
	insertTagged(t, store, "e3", "Work")

	if err := index.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	// Case-sensitive dedupe: "work" and "Work" stay distinct.
	want := []string{"Family", "Work", "health", "work"}
	if got := index.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("All = %v, want %v", got, want)
	}

	// Reload is deterministic.
	if err := index.Reload(context.Background()); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if got := index.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("second All = %v, want %v", got, want)
	}
}

func TestSearch(t *testing.T) {
	index, store := newTestIndex(t)
	insertTagged(t, store, "e1", "work", "Workout", "family")
	if err := index.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if got := index.Search("WORK"); !reflect.DeepEqual(got, []string{"Workout", "work"}) {
		t.Errorf("Search(WORK) = %v", got)
	}
	if got := index.Search("fam"); !reflect.DeepEqual(got, []string{"family"}) {
		t.Errorf("Search(fam) = %v", got)
	}
	if got := index.Search("   "); len(got) != 0 {
		t.Errorf("blank query matched %v", got)
	}
	if got := index.Search("zzz"); len(got) != 0 {
		t.Errorf("no-match query returned %v", got)
	}
}

func TestAddOptimistic(t *testing.T) {
	index, _ := newTestIndex(t)

	index.AddOptimistic("beta")
	index.AddOptimistic("alpha")
	index.AddOptimistic("beta")
	index.AddOptimistic("  ")

	want := []string{"alpha", "beta"}
	if got := index.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("All = %v, want %v", got, want)
	}
	if got := index.Search("bet"); !reflect.DeepEqual(got, []string{"beta"}) {
		t.Errorf("Search = %v", got)
	}
}
