package models

import "time"

// KeyValue is one persisted entry of the sqlite storage backend. Removed keys are
// kept as tombstones so other app instances can observe the removal.
type KeyValue struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text;not null;default:''"`
	Origin    string `gorm:"size:64;not null"`
	Revision  int64  `gorm:"not null;index"`
	Deleted   bool   `gorm:"not null;default:false"`
	UpdatedAt time.Time
}
