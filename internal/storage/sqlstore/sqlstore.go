// Package sqlstore implements storage.Store on an embedded SQLite database
// through GORM. Filtering, ordering and pagination are pushed into SQL; the
// predicates mirror storage.EventFilter.Matches exactly so both backends
// return identical result sets.
package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hindsight-app/core/internal/models"
	"github.com/hindsight-app/core/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the SQLite-backed relational store.
type Store struct {
	db *gorm.DB
}

// New wraps an open GORM handle. The caller owns migration and lifecycle.
func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Name() string { return "sqlite" }

func (s *Store) InsertEvent(ctx context.Context, e *models.Event) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateID
		}
		return err
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, changes map[string]interface{}) (bool, error) {
	if len(changes) == 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.Event{}, "id = ?", id).Error
}

func (s *Store) DeleteAllEvents(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&models.Event{}).Error
}

// likePattern lowercases and escapes a search query for a LIKE ... ESCAPE '\'
// predicate, so wildcard characters in user input match literally. Lowercasing
// happens here in Go, never via SQL LOWER(): SQLite only folds ASCII, while
// the stored search_text is folded with Go's Unicode rules.
func likePattern(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (s *Store) filtered(ctx context.Context, f storage.EventFilter) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Event{})
	if f.Type.Valid() {
		tx = tx.Where("type = ?", f.Type)
	}
	if f.Tag != "" {
		// json_valid guards corrupt tag columns: they drop out of the result
		// set instead of failing the query.
		tx = tx.Where(
			"json_valid(tags) AND EXISTS (SELECT 1 FROM json_each(events.tags) WHERE json_each.value = ?)",
			f.Tag,
		)
	}
	if f.HasQuery() {
		// search_text is the pre-folded blob of context, emotion and tags.
		tx = tx.Where(`search_text LIKE ? ESCAPE '\'`, likePattern(f.Query))
	}
	return tx
}

func (s *Store) QueryEvents(ctx context.Context, f storage.EventFilter, page, size int) ([]models.Event, int64, error) {
	tx := s.filtered(ctx, f)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 0 || size <= 0 {
		return []models.Event{}, total, nil
	}

	events := make([]models.Event, 0, size)
	err := tx.
		Order("created_at DESC, id DESC").
		Offset(page * size).
		Limit(size).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *Store) CountEvents(ctx context.Context, f storage.EventFilter) (int64, error) {
	var n int64
	err := s.filtered(ctx, f).Count(&n).Error
	return n, err
}

func (s *Store) CountsByType(ctx context.Context) (map[models.EventType]int64, error) {
	counts := make(map[models.EventType]int64, 3)
	for _, t := range models.EventTypes() {
		counts[t] = 0
	}

	var rows []struct {
		Type models.EventType
		N    int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("type, COUNT(*) AS n").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, ok := counts[row.Type]; ok {
			counts[row.Type] = row.N
		}
	}
	return counts, nil
}

func (s *Store) ListPending(ctx context.Context, now time.Time) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := s.db.WithContext(ctx).
		Where("is_reviewed = ? AND review_due_date <= ?", false, now).
		Order("review_due_date ASC, id ASC").
		Find(&events).Error
	return events, err
}

func (s *Store) CountPending(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("is_reviewed = ? AND review_due_date <= ?", false, now).
		Count(&n).Error
	return n, err
}

func (s *Store) ListReviewed(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	// SQLite sorts NULLs last under DESC, matching the in-memory ordering.
	err := s.db.WithContext(ctx).
		Where("is_reviewed = ?", true).
		Order("updated_at DESC, id DESC").
		Find(&events).Error
	return events, err
}

func (s *Store) AllEvents(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&events).Error
	return events, err
}

func (s *Store) AllEventTags(ctx context.Context) ([]models.StringArray, error) {
	var rows []models.Event
	if err := s.db.WithContext(ctx).Select("tags").Find(&rows).Error; err != nil {
		return nil, err
	}
	lists := make([]models.StringArray, 0, len(rows))
	for i := range rows {
		lists = append(lists, rows[i].Tags)
	}
	return lists, nil
}

func (s *Store) SeedEvents(ctx context.Context, events []models.Event) error {
	// One transaction per chunk: a mid-batch failure leaves earlier chunks
	// committed, never a partially applied chunk.
	for start := 0; start < len(events); start += storage.SeedChunkSize {
		end := start + storage.SeedChunkSize
		if end > len(events) {
			end = len(events)
		}
		chunk := events[start:end]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&chunk).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertDailyLog(ctx context.Context, d *models.DailyLog) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "reason", "created_at"}),
	}).Create(d).Error
}

func (s *Store) GetDailyLog(ctx context.Context, dateKey string) (*models.DailyLog, error) {
	var d models.DailyLog
	if err := s.db.WithContext(ctx).First(&d, "date_key = ?", dateKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDailyLogs(ctx context.Context) ([]models.DailyLog, error) {
	logs := make([]models.DailyLog, 0)
	err := s.db.WithContext(ctx).Order("date_key DESC").Find(&logs).Error
	return logs, err
}

func (s *Store) GetOption(ctx context.Context, name string) (string, bool, error) {
	var opt models.Option
	if err := s.db.WithContext(ctx).First(&opt, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return opt.Value, true, nil
}

func (s *Store) SetOption(ctx context.Context, name, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Option{Name: name, Value: value}).Error
}

func (s *Store) ListOptions(ctx context.Context) ([]models.Option, error) {
	opts := make([]models.Option, 0)
	err := s.db.WithContext(ctx).Order("name ASC").Find(&opts).Error
	return opts, err
}
