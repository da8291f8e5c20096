// Package kvstore implements storage.Store on Redis: one JSON blob per
// record under a namespaced key prefix. Corpus operations load every blob
// and filter in memory; corrupt blobs are skipped per record.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/hindsight-app/core/internal/models"
	redisclient "github.com/hindsight-app/core/internal/pkg/redis"
	"github.com/hindsight-app/core/internal/pkg/review"
	"github.com/hindsight-app/core/internal/storage"
	goredis "github.com/redis/go-redis/v9"
)

// Each entity kind gets its own key namespace so record kinds can never be
// confused when scanning (no field-sniffing).
const (
	eventPrefix  = "hs:event:"
	dailyPrefix  = "hs:daily:"
	optionPrefix = "hs:option:"
)

const mgetChunkSize = 200

// Store is the Redis-backed blob store.
type Store struct {
	rc *redisclient.Client
}

// New wraps a connected Redis client.
func New(rc *redisclient.Client) *Store { return &Store{rc: rc} }

func (s *Store) Name() string { return "redis" }

// eventBlob is the stored shape: the export wire format plus the derived
// search text, which the wire format deliberately omits.
type eventBlob struct {
	models.Event
	SearchText string `json:"search_text"`
}

func encodeEvent(e *models.Event) ([]byte, error) {
	return json.Marshal(eventBlob{Event: *e, SearchText: e.SearchText})
}

func decodeEvent(raw string) (*models.Event, bool) {
	var blob eventBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return nil, false
	}
	e := blob.Event
	e.SearchText = blob.SearchText
	if e.ID == "" {
		return nil, false
	}
	return &e, true
}

func (s *Store) InsertEvent(ctx context.Context, e *models.Event) error {
	b, err := encodeEvent(e)
	if err != nil {
		return err
	}
	ok, err := s.rc.SetNX(ctx, eventPrefix+e.ID, string(b))
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrDuplicateID
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	raw, err := s.rc.Get(ctx, eventPrefix+id)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	e, ok := decodeEvent(raw)
	if !ok {
		// Corrupt blob: indistinguishable from absent, by contract.
		return nil, nil
	}
	return e, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, changes map[string]interface{}) (bool, error) {
	key := eventPrefix + id
	raw, err := s.rc.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return false, nil
	}
	for field, value := range changes {
		record[field] = value
	}
	b, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	// Single SET: a reader never observes a partially applied change set.
	if err := s.rc.Set(ctx, key, string(b), 0); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.rc.Del(ctx, eventPrefix+id)
}

func (s *Store) DeleteAllEvents(ctx context.Context) error {
	keys, err := s.rc.ScanKeys(ctx, eventPrefix+"*")
	if err != nil {
		return err
	}
	return s.rc.Del(ctx, keys...)
}

// loadEvents reads the full event corpus, skipping corrupt blobs.
func (s *Store) loadEvents(ctx context.Context) ([]models.Event, error) {
	keys, err := s.rc.ScanKeys(ctx, eventPrefix+"*")
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(keys))
	for start := 0; start < len(keys); start += mgetChunkSize {
		end := start + mgetChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		values, err := s.rc.MGet(ctx, keys[start:end]...)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			if e, ok := decodeEvent(raw); ok {
				events = append(events, *e)
			}
		}
	}
	return events, nil
}

func (s *Store) QueryEvents(ctx context.Context, f storage.EventFilter, page, size int) ([]models.Event, int64, error) {
	all, err := s.loadEvents(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]models.Event, 0, len(all))
	for i := range all {
		if f.Matches(&all[i]) {
			matched = append(matched, all[i])
		}
	}
	storage.SortNewestFirst(matched)
	return storage.Page(matched, page, size), int64(len(matched)), nil
}

func (s *Store) CountEvents(ctx context.Context, f storage.EventFilter) (int64, error) {
	all, err := s.loadEvents(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for i := range all {
		if f.Matches(&all[i]) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountsByType(ctx context.Context) (map[models.EventType]int64, error) {
	counts := make(map[models.EventType]int64, 3)
	for _, t := range models.EventTypes() {
		counts[t] = 0
	}
	all, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if _, ok := counts[all[i].Type]; ok {
			counts[all[i].Type]++
		}
	}
	return counts, nil
}

func (s *Store) ListPending(ctx context.Context, now time.Time) ([]models.Event, error) {
	all, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]models.Event, 0)
	for i := range all {
		if review.IsPending(&all[i], now) {
			pending = append(pending, all[i])
		}
	}
	review.SortPending(pending)
	return pending, nil
}

func (s *Store) CountPending(ctx context.Context, now time.Time) (int64, error) {
	all, err := s.loadEvents(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for i := range all {
		if review.IsPending(&all[i], now) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListReviewed(ctx context.Context) ([]models.Event, error) {
	all, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	done := make([]models.Event, 0)
	for i := range all {
		if all[i].IsReviewed {
			done = append(done, all[i])
		}
	}
	review.SortCompleted(done)
	return done, nil
}

func (s *Store) AllEvents(ctx context.Context) ([]models.Event, error) {
	all, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	storage.SortNewestFirst(all)
	return all, nil
}

func (s *Store) AllEventTags(ctx context.Context) ([]models.StringArray, error) {
	all, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	lists := make([]models.StringArray, 0, len(all))
	for i := range all {
		lists = append(lists, all[i].Tags)
	}
	return lists, nil
}

func (s *Store) SeedEvents(ctx context.Context, events []models.Event) error {
	for start := 0; start < len(events); start += storage.SeedChunkSize {
		end := start + storage.SeedChunkSize
		if end > len(events) {
			end = len(events)
		}
		pipe := s.rc.Raw().Pipeline()
		for i := start; i < end; i++ {
			b, err := encodeEvent(&events[i])
			if err != nil {
				return err
			}
			pipe.Set(ctx, eventPrefix+events[i].ID, string(b), 0)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertDailyLog(ctx context.Context, d *models.DailyLog) error {
	key := dailyPrefix + d.DateKey
	// Keep the original identity when overwriting an existing date.
	if raw, err := s.rc.Get(ctx, key); err != nil {
		return err
	} else if raw != "" {
		var prev models.DailyLog
		if json.Unmarshal([]byte(raw), &prev) == nil && prev.ID != "" {
			d.ID = prev.ID
		}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, key, string(b), 0)
}

func (s *Store) GetDailyLog(ctx context.Context, dateKey string) (*models.DailyLog, error) {
	raw, err := s.rc.Get(ctx, dailyPrefix+dateKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var d models.DailyLog
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, nil
	}
	return &d, nil
}

func (s *Store) ListDailyLogs(ctx context.Context) ([]models.DailyLog, error) {
	keys, err := s.rc.ScanKeys(ctx, dailyPrefix+"*")
	if err != nil {
		return nil, err
	}
	logs := make([]models.DailyLog, 0, len(keys))
	values, err := s.rc.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var d models.DailyLog
		if json.Unmarshal([]byte(raw), &d) == nil && d.DateKey != "" {
			logs = append(logs, d)
		}
	}
	sortDailyLogs(logs)
	return logs, nil
}

func sortDailyLogs(logs []models.DailyLog) {
	// Newest date first; date keys are YYYY-MM-DD so string order is date order.
	sort.Slice(logs, func(i, j int) bool { return logs[i].DateKey > logs[j].DateKey })
}

func (s *Store) GetOption(ctx context.Context, name string) (string, bool, error) {
	val, err := s.rc.Raw().Get(ctx, optionPrefix+name).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (s *Store) SetOption(ctx context.Context, name, value string) error {
	return s.rc.Set(ctx, optionPrefix+name, value, 0)
}

func (s *Store) ListOptions(ctx context.Context) ([]models.Option, error) {
	keys, err := s.rc.ScanKeys(ctx, optionPrefix+"*")
	if err != nil {
		return nil, err
	}
	opts := make([]models.Option, 0, len(keys))
	for _, key := range keys {
		val, err := s.rc.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, models.Option{Name: key[len(optionPrefix):], Value: val})
	}
	sortOptions(opts)
	return opts, nil
}

func sortOptions(opts []models.Option) {
	sort.Slice(opts, func(i, j int) bool { return opts[i].Name < opts[j].Name })
}
