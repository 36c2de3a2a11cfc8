package services

import (
	"context"
	"errors"
	"time"

	"packloop/internal/common"
	"packloop/internal/models"
	"packloop/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// AuditLogsService records state-changing events as append-only log entries.
// Entries reference entities by type and id only, so history stays readable
// after the entity itself is deleted.
type AuditLogsService interface {
	LogEvent(ctx context.Context, entityType, entityID, eventType string, detail models.JSONB) error

	GetAuditLog(ctx context.Context, auditLogID uuid.UUID) (*models.AuditLog, error)
	ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
	GetEntityHistory(ctx context.Context, entityType, entityID string, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
	clock         clockwork.Clock
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository, clock clockwork.Clock) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
		clock:         clock,
	}
}

func (s *auditLogsService) LogEvent(ctx context.Context, entityType, entityID, eventType string, detail models.JSONB) error {
	if entityType == "" {
		return common.NewValidationError("entity_type", "is required")
	}
	if eventType == "" {
		return common.NewValidationError("event_type", "is required")
	}

	return s.auditLogsRepo.Create(ctx, &models.AuditLog{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		Detail:     detail,
		CreatedAt:  s.clock.Now().UTC(),
	})
}

func (s *auditLogsService) GetAuditLog(ctx context.Context, auditLogID uuid.UUID) (*models.AuditLog, error) {
	return s.auditLogsRepo.GetByID(ctx, auditLogID)
}

func (s *auditLogsService) ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{Limit: 50}
	}
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 50
	}
	if err := validateAuditFilters(filters); err != nil {
		return nil, err
	}

	return s.auditLogsRepo.List(ctx, filters)
}

func (s *auditLogsService) GetEntityHistory(ctx context.Context, entityType, entityID string, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	return s.auditLogsRepo.GetByEntity(ctx, entityType, entityID, limit, offset)
}

func validateAuditFilters(filters *models.AuditLogFilters) error {
	if filters.StartDate != nil && filters.EndDate != nil {
		if filters.EndDate.Sub(*filters.StartDate) > 365*24*time.Hour {
			return errors.New("date range cannot exceed 1 year")
		}
	}
	return nil
}
