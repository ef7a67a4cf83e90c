package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/domain/repository"
)

type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

func (r *AuditLogRepository) Insert(ctx context.Context, l *entity.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	md, err := json.Marshal(l.Metadata)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO auth_audit_logs (id, account_id, email, action, ip, user_agent, metadata)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING created_at
	`, l.ID, l.AccountID, l.Email, l.Action, l.IP, l.UserAgent, md).Scan(&l.CreatedAt)
}

var _ repository.AuditLogRepository = (*AuditLogRepository)(nil)
