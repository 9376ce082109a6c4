package model

import "time"

// Kind identifies one of the pending-work item kinds handled by a dispatch pass.
type Kind string

const (
	KindLiveEventReminder Kind = "live_event_reminder"
	KindAdminImmediate    Kind = "admin_immediate"
	KindAdminScheduled    Kind = "admin_scheduled"
)

// AdminType is the "type" field of an admin notification document.
type AdminType string

const (
	AdminTypeImmediate AdminType = "immediate"
	AdminTypeScheduled AdminType = "scheduled"
)

// Kind maps the admin document type to its dispatch kind.
func (t AdminType) Kind() Kind {
	if t == AdminTypeScheduled {
		return KindAdminScheduled
	}
	return KindAdminImmediate
}

// ScheduledNotification is a live-event reminder (collection scheduled_notifications).
// A nil Sent means pending.
type ScheduledNotification struct {
	ID            string     `gorm:"primaryKey;size:64" json:"id"`
	ScheduledTime time.Time  `gorm:"not null;index" json:"scheduledTime"`
	Sent          *bool      `gorm:"index" json:"sent"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	Message       string     `gorm:"size:1024" json:"message"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// AdminNotification is an admin-authored broadcast (collection admin_notifications).
// A nil Tokens means "every registered token".
type AdminNotification struct {
	ID            string            `gorm:"primaryKey;size:64" json:"id"`
	Type          AdminType         `gorm:"size:16;not null;index" json:"type"`
	Sent          bool              `gorm:"not null;default:false;index" json:"sent"`
	SentAt        *time.Time        `json:"sentAt,omitempty"`
	ScheduledTime *time.Time        `gorm:"index" json:"scheduledTime,omitempty"`
	Title         string            `gorm:"size:256" json:"title"`
	Body          string            `gorm:"size:2048" json:"body"`
	Data          map[string]string `gorm:"serializer:json" json:"data,omitempty"`
	Tokens        []string          `gorm:"serializer:json" json:"tokens,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
