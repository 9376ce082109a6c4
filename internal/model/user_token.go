package model

import "time"

// UserToken is one registered push token (collection user_tokens).
// Token holds the JSON form of a browser PushSubscription.
type UserToken struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Token     string    `gorm:"uniqueIndex;size:2048;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
