package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prayer-alerts/internal/model"
)

// ErrNotFound is returned by lookups that match no document.
var ErrNotFound = errors.New("not found")

// Store defines the interface for all pending-work store operations.
type Store interface {
	// Dispatch pass
	DueReminders(ctx context.Context, now time.Time) ([]model.ScheduledNotification, error)
	PendingImmediate(ctx context.Context) ([]model.AdminNotification, error)
	DueScheduled(ctx context.Context, now time.Time) ([]model.AdminNotification, error)
	RecipientTokens(ctx context.Context) ([]string, error)
	IsPending(ctx context.Context, kind model.Kind, id string) (bool, error)
	MarkSent(ctx context.Context, kind model.Kind, id string, at time.Time) (bool, error)
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)

	// Admin tooling
	CreateReminder(ctx context.Context, n *model.ScheduledNotification) error
	GetReminder(ctx context.Context, id string) (*model.ScheduledNotification, error)
	CreateAdminNotification(ctx context.Context, n *model.AdminNotification) error
	GetAdminNotification(ctx context.Context, id string) (*model.AdminNotification, error)
	UpsertToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context, token string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

const pendingReminder = "(sent IS NULL OR sent = ?)"

// DueReminders returns live-event reminders scheduled at or before now that are not sent yet.
func (s *gormStore) DueReminders(ctx context.Context, now time.Time) ([]model.ScheduledNotification, error) {
	var items []model.ScheduledNotification
	err := s.db.WithContext(ctx).
		Where("scheduled_time <= ? AND "+pendingReminder, now.UTC(), false).
		Order("scheduled_time").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	return items, nil
}

// PendingImmediate returns unsent admin notifications of type immediate.
func (s *gormStore) PendingImmediate(ctx context.Context) ([]model.AdminNotification, error) {
	var items []model.AdminNotification
	err := s.db.WithContext(ctx).
		Where("type = ? AND sent = ?", model.AdminTypeImmediate, false).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("query immediate admin notifications: %w", err)
	}
	return items, nil
}

// DueScheduled returns unsent scheduled admin notifications whose time has come.
// Documents without a scheduled time never become due.
func (s *gormStore) DueScheduled(ctx context.Context, now time.Time) ([]model.AdminNotification, error) {
	var items []model.AdminNotification
	err := s.db.WithContext(ctx).
		Where("type = ? AND sent = ?", model.AdminTypeScheduled, false).
		Where("scheduled_time IS NOT NULL AND scheduled_time <= ?", now.UTC()).
		Order("scheduled_time").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("query scheduled admin notifications: %w", err)
	}
	return items, nil
}

// RecipientTokens loads the full registered token set.
func (s *gormStore) RecipientTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).
		Model(&model.UserToken{}).
		Where("token <> ?", "").
		Order("created_at").
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("load recipient tokens: %w", err)
	}
	return tokens, nil
}

// IsPending re-reads the idempotency guard of a single item.
func (s *gormStore) IsPending(ctx context.Context, kind model.Kind, id string) (bool, error) {
	q, err := s.pendingQuery(ctx, kind, id)
	if err != nil {
		return false, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check %s %s: %w", kind, id, err)
	}
	return n > 0, nil
}

// MarkSent flips the guard of a still-pending item and stamps sent_at.
// It reports false when the item was already marked by someone else.
func (s *gormStore) MarkSent(ctx context.Context, kind model.Kind, id string, at time.Time) (bool, error) {
	q, err := s.pendingQuery(ctx, kind, id)
	if err != nil {
		return false, err
	}
	res := q.Updates(map[string]any{"sent": true, "sent_at": at.UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("mark %s %s sent: %w", kind, id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) pendingQuery(ctx context.Context, kind model.Kind, id string) (*gorm.DB, error) {
	tx := s.db.WithContext(ctx)
	switch kind {
	case model.KindLiveEventReminder:
		return tx.Model(&model.ScheduledNotification{}).Where("id = ? AND "+pendingReminder, id, false), nil
	case model.KindAdminImmediate, model.KindAdminScheduled:
		return tx.Model(&model.AdminNotification{}).Where("id = ? AND sent = ?", id, false), nil
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
}

// DeleteTokens removes tokens the push service reported as gone.
func (s *gormStore) DeleteTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&model.UserToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CreateReminder inserts a live-event reminder, assigning an id when missing.
func (s *gormStore) CreateReminder(ctx context.Context, n *model.ScheduledNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.ScheduledTime = n.ScheduledTime.UTC()
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// GetReminder loads a reminder by id.
func (s *gormStore) GetReminder(ctx context.Context, id string) (*model.ScheduledNotification, error) {
	var n model.ScheduledNotification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// CreateAdminNotification inserts an admin notification, assigning an id when missing.
func (s *gormStore) CreateAdminNotification(ctx context.Context, n *model.AdminNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.ScheduledTime != nil {
		t := n.ScheduledTime.UTC()
		n.ScheduledTime = &t
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create admin notification: %w", err)
	}
	return nil
}

// GetAdminNotification loads an admin notification by id.
func (s *gormStore) GetAdminNotification(ctx context.Context, id string) (*model.AdminNotification, error) {
	var n model.AdminNotification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// UpsertToken registers a token; registering it again is a no-op.
func (s *gormStore) UpsertToken(ctx context.Context, token string) error {
	t := model.UserToken{ID: uuid.NewString(), Token: token, CreatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoNothing: true,
	}).Create(&t).Error
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// DeleteToken unregisters a token. Unknown tokens are not an error.
func (s *gormStore) DeleteToken(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.UserToken{}).Error; err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
