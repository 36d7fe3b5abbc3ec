package model

import (
	"encoding/json"
	"time"
)

// User owns a pet and carries the sync watermark.
type User struct {
	ID             string    `json:"id"`
	GitHubID       int64     `json:"github_id"`
	Username       string    `json:"username"`
	TokenEncrypted string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`
	LastSync       time.Time `json:"last_sync"` // watermark; zero means never synced
}

// NotificationType names a lifecycle notification.
type NotificationType string

const (
	NotificationHatched     NotificationType = "hatched"
	NotificationEvolved     NotificationType = "evolved"
	NotificationTraitLocked NotificationType = "trait_locked"
)

// Notification is a user-facing record of a pet lifecycle change.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Payload   json.RawMessage  `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
	Seen      bool             `json:"seen"`
}
