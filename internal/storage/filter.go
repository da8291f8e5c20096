package storage

import (
	"sort"
	"strings"

	"github.com/hindsight-app/core/internal/models"
)

// Matches applies f to a single event in memory. The kvstore backend filters
// with this after loading blobs; the sqlstore backend pushes the equivalent
// predicates into SQL. The two must agree exactly.
func (f EventFilter) Matches(e *models.Event) bool {
	if f.Type.Valid() && e.Type != f.Type {
		return false
	}
	if f.Tag != "" && !e.Tags.Contains(f.Tag) {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	// SearchText is already the lowercased fold of context, emotion and tags
	// (models.BuildSearchText), so one Contains covers all three fields with
	// Unicode-correct case folding.
	return strings.Contains(e.SearchText, q)
}

// HasQuery reports whether the filter carries a non-blank search query.
func (f EventFilter) HasQuery() bool {
	return strings.TrimSpace(f.Query) != ""
}

// SortNewestFirst orders events by created_at descending, id descending as the
// deterministic tie-break. This ordering is load-bearing for pagination.
func SortNewestFirst(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// Page slices the [page*size, page*size+size) window. Out-of-range pages
// return an empty slice, never an error.
func Page(events []models.Event, page, size int) []models.Event {
	if page < 0 || size <= 0 {
		return []models.Event{}
	}
	start := page * size
	if start >= len(events) {
		return []models.Event{}
	}
	end := start + size
	if end > len(events) {
		end = len(events)
	}
	return events[start:end]
}
