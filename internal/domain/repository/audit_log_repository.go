package repository

import (
	"context"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
)

// AuditLogRepository persists authentication events
type AuditLogRepository interface {
	Insert(ctx context.Context, l *entity.AuditLog) error
}
