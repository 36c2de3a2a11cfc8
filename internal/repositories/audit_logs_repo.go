package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"packloop/internal/common"
	"packloop/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditLogsRepository interface {
	// Create a new audit log entry
	Create(ctx context.Context, auditLog *models.AuditLog) error

	// Get audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// List audit logs with filtering options
	List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)

	// Get audit logs for a specific entity
	GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db *pgxpool.Pool
}

func NewAuditLogsRepository(db *pgxpool.Pool) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	var detailBytes []byte
	var err error
	if auditLog.Detail != nil {
		detailBytes, err = json.Marshal(auditLog.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal detail: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, entity_type, entity_id, event_type, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.Exec(ctx, query,
		auditLog.ID,
		auditLog.EntityType,
		auditLog.EntityID,
		auditLog.EventType,
		detailBytes,
		auditLog.CreatedAt,
	)
	return err
}

func (r *auditLogsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	auditLog := &models.AuditLog{}
	var detailBytes []byte

	query := `
		SELECT id, entity_type, entity_id, event_type, detail, created_at
		FROM audit_logs
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&auditLog.ID,
		&auditLog.EntityType,
		&auditLog.EntityID,
		&auditLog.EventType,
		&detailBytes,
		&auditLog.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("audit log %s", id)
	}
	if err != nil {
		return nil, err
	}

	if len(detailBytes) > 0 {
		if err := json.Unmarshal(detailBytes, &auditLog.Detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal detail: %w", err)
		}
	}
	return auditLog, nil
}

func (r *auditLogsRepo) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	queryBase := `
		SELECT id, entity_type, entity_id, event_type, detail, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []interface{}{}
	n := 0

	if filters.EntityType != nil {
		n++
		queryBase += fmt.Sprintf(` AND entity_type = $%d`, n)
		args = append(args, *filters.EntityType)
	}
	if filters.EntityID != nil {
		n++
		queryBase += fmt.Sprintf(` AND entity_id = $%d`, n)
		args = append(args, *filters.EntityID)
	}
	if filters.EventType != nil {
		n++
		queryBase += fmt.Sprintf(` AND event_type = $%d`, n)
		args = append(args, *filters.EventType)
	}
	if filters.StartDate != nil {
		n++
		queryBase += fmt.Sprintf(` AND created_at >= $%d`, n)
		args = append(args, *filters.StartDate)
	}
	if filters.EndDate != nil {
		n++
		queryBase += fmt.Sprintf(` AND created_at <= $%d`, n)
		args = append(args, *filters.EndDate)
	}

	queryBase += ` ORDER BY created_at DESC`

	n++
	queryBase += fmt.Sprintf(` LIMIT $%d`, n)
	args = append(args, limit)
	if filters.Offset > 0 {
		n++
		queryBase += fmt.Sprintf(` OFFSET $%d`, n)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func (r *auditLogsRepo) GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, entity_type, entity_id, event_type, detail, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, entityType, entityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*models.AuditLog, error) {
	var logs []*models.AuditLog
	for rows.Next() {
		auditLog := &models.AuditLog{}
		var detailBytes []byte
		if err := rows.Scan(&auditLog.ID, &auditLog.EntityType, &auditLog.EntityID, &auditLog.EventType, &detailBytes, &auditLog.CreatedAt); err != nil {
			return nil, err
		}
		if len(detailBytes) > 0 {
			if err := json.Unmarshal(detailBytes, &auditLog.Detail); err != nil {
				return nil, fmt.Errorf("failed to unmarshal detail: %w", err)
			}
		}
		logs = append(logs, auditLog)
	}
	return logs, rows.Err()
}
