// Package review holds the reflection scheduling policy. Pure computation,
// no stored state: callers evaluate it lazily against a clock they supply.
package review

import (
	"sort"
	"time"

	"github.com/hindsight-app/core/internal/models"
)

// Delay is the fixed waiting period between logging an event and being
// prompted to reflect on it. Not user-configurable.
const Delay = 7 * 24 * time.Hour

// DueDate computes when an event created at createdAt becomes reviewable.
func DueDate(createdAt time.Time) time.Time {
	return createdAt.Add(Delay)
}

// IsPending reports whether e is past due without a reflection yet.
// An unreviewed event whose due date has not arrived is "not yet due",
// which is distinct from pending.
func IsPending(e *models.Event, now time.Time) bool {
	return !e.IsReviewed && !e.ReviewDueDate.After(now)
}

// SortPending orders by review_due_date ascending so the longest-waiting
// items come first. Ties break on id for determinism.
func SortPending(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.ReviewDueDate.Equal(b.ReviewDueDate) {
			return a.ReviewDueDate.Before(b.ReviewDueDate)
		}
		return a.ID < b.ID
	})
}

// SortCompleted orders by updated_at descending, most recently reflected-on
// first. Events without an update timestamp sort last.
func SortCompleted(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.UpdatedAt == nil && b.UpdatedAt == nil:
			return a.ID > b.ID
		case a.UpdatedAt == nil:
			return false
		case b.UpdatedAt == nil:
			return true
		case !a.UpdatedAt.Equal(*b.UpdatedAt):
			return a.UpdatedAt.After(*b.UpdatedAt)
		}
		return a.ID > b.ID
	})
}
