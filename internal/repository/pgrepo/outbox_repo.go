package pgrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/distributed-ledger/internal/domain"
	"github.com/fsdevblog/distributed-ledger/pkg/uow"
)

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, payload, processed, retry_count, error_message,
	created_at, updated_at`

type OutboxRepository struct {
	conn uow.DBTX
}

func NewOutboxRepository(conn uow.DBTX) *OutboxRepository {
	return &OutboxRepository{conn: conn}
}

func (o *OutboxRepository) Save(ctx context.Context, record *domain.OutboxRecord) error {
	_, err := o.conn.Exec(ctx,
		`INSERT INTO outbox_events (`+outboxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID,
		record.AggregateType,
		record.AggregateID,
		record.EventType,
		record.Payload,
		record.Processed,
		record.RetryCount,
		record.ErrorMessage,
		record.CreatedAt,
		record.UpdatedAt,
	)
	return convertErr(err, "save outbox record %s", record.ID)
}

// ClaimBatch выбирает до limit необработанных записей по возрастанию id и блокирует их до конца транзакции.
// Строки, уже заблокированные другим экземпляром, пропускаются (SKIP LOCKED), поэтому параллельные
// обработчики получают непересекающиеся пачки. Вызывать нужно внутри транзакции.
func (o *OutboxRepository) ClaimBatch(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	rows, err := o.conn.Query(ctx,
		`SELECT `+outboxColumns+` FROM outbox_events
		WHERE processed = false
		ORDER BY id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, convertErr(err, "claim outbox batch")
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OutboxRecord, error) {
		var r domain.OutboxRecord
		scanErr := row.Scan(
			&r.ID,
			&r.AggregateType,
			&r.AggregateID,
			&r.EventType,
			&r.Payload,
			&r.Processed,
			&r.RetryCount,
			&r.ErrorMessage,
			&r.CreatedAt,
			&r.UpdatedAt,
		)
		return r, scanErr //nolint:wrapcheck
	})
	if err != nil {
		return nil, convertErr(err, "scan outbox batch")
	}
	return records, nil
}

// UpdateStatus сохраняет результат попытки публикации.
func (o *OutboxRepository) UpdateStatus(ctx context.Context, record *domain.OutboxRecord) error {
	tag, err := o.conn.Exec(ctx,
		`UPDATE outbox_events
		SET processed = $1, retry_count = $2, error_message = $3, updated_at = $4
		WHERE id = $5`,
		record.Processed,
		record.RetryCount,
		record.ErrorMessage,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return convertErr(err, "update outbox record %s", record.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("[repository/update outbox record %s] %w", record.ID, domain.ErrRecordNotFound)
	}
	return nil
}

// DeleteProcessedBefore удаляет обработанные записи, последний раз измененные раньше threshold.
// Необработанные записи не удаляются независимо от возраста.
func (o *OutboxRepository) DeleteProcessedBefore(ctx context.Context, threshold time.Time) (int64, error) {
	tag, err := o.conn.Exec(ctx,
		`DELETE FROM outbox_events WHERE processed = true AND updated_at < $1`,
		threshold,
	)
	if err != nil {
		return 0, convertErr(err, "delete processed outbox records")
	}
	return tag.RowsAffected(), nil
}
