// Package tags maintains an in-memory index of every tag in use, for
// autocomplete. The index is a cache over the event corpus: rebuilt on
// demand, extended optimistically on writes.
package tags

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hindsight-app/core/internal/storage"
)

type Index struct {
	store storage.Store

	mu   sync.RWMutex
	tags []string // sorted, case-sensitively unique
}

func NewIndex(store storage.Store) *Index {
	return &Index{store: store, tags: []string{}}
}

// Reload rebuilds the index from the stored corpus. Tags differing only in
// case stay distinct. Malformed tag lists were already dropped by the
// storage layer.
func (x *Index) Reload(ctx context.Context) error {
	lists, err := x.store.AllEventTags(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)

	x.mu.Lock()
	x.tags = tags
	x.mu.Unlock()
	return nil
}

// All returns the indexed tags in sorted order.
func (x *Index) All() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, len(x.tags))
	copy(out, x.tags)
	return out
}

// Search returns tags containing q, case-insensitively. A blank query
// matches nothing.
func (x *Index) Search(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []string{}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0)
	for _, tag := range x.tags {
		if strings.Contains(strings.ToLower(tag), q) {
			out = append(out, tag)
		}
	}
	return out
}

// AddOptimistic inserts a tag into the index without touching storage, so
// a just-written tag is suggestible before the next reload.
func (x *Index) AddOptimistic(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	i := sort.SearchStrings(x.tags, tag)
	if i < len(x.tags) && x.tags[i] == tag {
		return
	}
	x.tags = append(x.tags, "")
	copy(x.tags[i+1:], x.tags[i:])
	x.tags[i] = tag
}
