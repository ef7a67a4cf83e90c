package application

import (
	"context"
	"io"
	"time"
)

// Notification kinds understood by every Notifier
const (
	NotifyVerifyOTP = "verify_otp"
	NotifyResetOTP  = "reset_otp"
	NotifyWelcome   = "welcome"
)

// Notification is one outbound message to an account holder
type Notification struct {
	Kind      string
	To        string
	Name      string
	Code      string
	Link      string
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// Notifier delivers notifications. Delivery is a side channel: a failure is
// reported to the caller but never rolls back the state change behind it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// AccountIndexer keeps the searchable account directory in sync
type AccountIndexer interface {
	Index(ctx context.Context, s AccountSummary) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// ObjectStore uploads public objects and returns their URL
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// RequestMeta describes the caller for notification context
type RequestMeta struct {
	IP        string
	UserAgent string
}
