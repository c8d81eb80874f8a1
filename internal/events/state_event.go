package events

import (
	"time"

	"memoria/internal/models"
)

const (
	StateChanged      = "state:changed"
	StateNotification = "state:notification"
	StateTheme        = "state:theme"
)

// ThemeEvent tells the frontend which visual theme to apply.
type ThemeEvent struct {
	DarkMode  bool      `json:"darkMode"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationEvent carries the current notification slot. Notification is
// nil when the slot was cleared or expired.
type NotificationEvent struct {
	Notification *models.Notification `json:"notification"`
	Timestamp    time.Time            `json:"timestamp"`
}

func NewThemeEvent(dark bool) ThemeEvent {
	return ThemeEvent{DarkMode: dark, Timestamp: time.Now()}
}

func NewNotificationEvent(n *models.Notification) NotificationEvent {
	return NotificationEvent{Notification: n, Timestamp: time.Now()}
}
