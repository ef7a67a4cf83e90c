package entity

import "time"

// AuditLog records one authentication event
type AuditLog struct {
	ID        string
	AccountID string
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}
