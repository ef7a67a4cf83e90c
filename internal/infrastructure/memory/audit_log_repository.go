package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/domain/repository"
)

type AuditLogRepository struct {
	mu   sync.Mutex
	logs []entity.AuditLog
}

func NewAuditLogRepository() *AuditLogRepository { return &AuditLogRepository{} }

func (r *AuditLogRepository) Insert(_ context.Context, l *entity.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now()
	r.mu.Lock()
	r.logs = append(r.logs, *l)
	r.mu.Unlock()
	return nil
}

// Actions returns recorded actions in insertion order
func (r *AuditLogRepository) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

var _ repository.AuditLogRepository = (*AuditLogRepository)(nil)
