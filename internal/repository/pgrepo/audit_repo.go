package pgrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

type AuditRepository struct {
	conn uow.DBTX
}

func NewAuditRepository(conn uow.DBTX) *AuditRepository {
	return &AuditRepository{conn: conn}
}

func (a *AuditRepository) SaveAuditLog(ctx context.Context, log *domain.AuditLog) error {
	changes, err := json.Marshal(log.Changes)
	if err != nil {
		return fmt.Errorf("[repository/save audit log] marshal changes: %w", err)
	}
	_, err = a.conn.Exec(ctx,
		`INSERT INTO audit_log (id, entity_type, entity_id, action, user_id, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID,
		log.EntityType,
		log.EntityID,
		log.Action,
		log.UserID,
		changes,
		log.CreatedAt,
	)
	return convertErr(err, "save audit log %s/%s", log.EntityType, log.EntityID)
}
