package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"packloop/internal/common"
	"packloop/internal/metrics"
	"packloop/internal/models"
	"packloop/internal/repositories"
)

// InstanceService is the asset instance registry. All state changes go
// through Transition, which enforces the lifecycle table with the instance
// row locked so concurrent transitions serialize.
type InstanceService interface {
	Register(ctx context.Context, catalogID uuid.UUID, uidCode string) (*models.Instance, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Instance, error)
	GetByUIDCode(ctx context.Context, uidCode string) (*models.Instance, error)
	List(ctx context.Context, filter *models.InstanceFilter) ([]*models.Instance, error)

	// Transition moves the instance to the target state, failing with
	// InvalidStateTransition when the lifecycle table forbids it. The event
	// names what triggered the attempt and is carried in the failure.
	Transition(ctx context.Context, id uuid.UUID, target models.InstanceState, event string) (*models.Instance, error)

	MarkDamaged(ctx context.Context, id uuid.UUID, event string) (*models.Instance, error)
	MarkLost(ctx context.Context, id uuid.UUID) (*models.Instance, error)
	Retire(ctx context.Context, id uuid.UUID) (*models.Instance, error)
	CountByState(ctx context.Context) (map[models.InstanceState]int, error)
}

type instanceService struct {
	db           DB
	instanceRepo repositories.InstanceRepository
	catalogRepo  repositories.CatalogRepository
	auditSvc     AuditLogsService
	clock        clockwork.Clock
}

func NewInstanceService(db DB, instanceRepo repositories.InstanceRepository, catalogRepo repositories.CatalogRepository, auditSvc AuditLogsService, clock clockwork.Clock) InstanceService {
	return &instanceService{
		db:           db,
		instanceRepo: instanceRepo,
		catalogRepo:  catalogRepo,
		auditSvc:     auditSvc,
		clock:        clock,
	}
}

func (s *instanceService) Register(ctx context.Context, catalogID uuid.UUID, uidCode string) (*models.Instance, error) {
	if err := common.ValidateRequiredString(uidCode, "uid_code"); err != nil {
		return nil, common.NewValidationError("uid_code", "is required")
	}
	if _, err := s.catalogRepo.GetByID(ctx, catalogID); err != nil {
		return nil, err
	}

	instance := &models.Instance{
		ID:        uuid.New(),
		CatalogID: catalogID,
		UIDCode:   uidCode,
		State:     models.StateAvailable,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.instanceRepo.Create(ctx, instance); err != nil {
		return nil, err
	}

	s.audit(ctx, instance.ID, "instance_registered", models.JSONB{"uid_code": uidCode, "catalog_id": catalogID.String()})
	return instance, nil
}

func (s *instanceService) GetByID(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	return s.instanceRepo.GetByID(ctx, id)
}

func (s *instanceService) GetByUIDCode(ctx context.Context, uidCode string) (*models.Instance, error) {
	return s.instanceRepo.GetByUIDCode(ctx, uidCode)
}

func (s *instanceService) List(ctx context.Context, filter *models.InstanceFilter) ([]*models.Instance, error) {
	if filter.State != nil && !filter.State.Valid() {
		return nil, common.NewValidationError("state", "unknown instance state")
	}
	return s.instanceRepo.List(ctx, filter)
}

func (s *instanceService) Transition(ctx context.Context, id uuid.UUID, target models.InstanceState, event string) (*models.Instance, error) {
	if !target.Valid() {
		return nil, common.NewValidationError("state", "unknown instance state")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	instance, err := transitionInstance(ctx, tx, id, target, event, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.StateTransitions.WithLabelValues(string(target)).Inc()
	s.audit(ctx, id, "state_transition", models.JSONB{"to": string(target), "event": event})
	return instance, nil
}

// transitionInstance locks the instance row, checks the lifecycle table and
// writes the new state. The retirement timestamp is set exactly once, on
// entry to retired. Shared with the loan and quality services inside their
// own transactions. A transition to the current state is a no-op.
func transitionInstance(ctx context.Context, tx pgx.Tx, id uuid.UUID, target models.InstanceState, event string, now time.Time) (*models.Instance, error) {
	instance := &models.Instance{}
	err := tx.QueryRow(ctx, `
		SELECT id, catalog_id, uid_code, state, created_at, retired_at
		FROM packaging_instances
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&instance.ID, &instance.CatalogID, &instance.UIDCode, &instance.State, &instance.CreatedAt, &instance.RetiredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("instance %s", id)
	}
	if err != nil {
		return nil, err
	}

	if instance.State == target {
		return instance, nil
	}
	if !models.CanTransition(instance.State, target) {
		return nil, &common.InvalidStateTransition{
			Current: string(instance.State),
			Target:  string(target),
			Event:   event,
		}
	}

	var retiredAt *time.Time
	if target == models.StateRetired && instance.RetiredAt == nil {
		retiredAt = &now
	}
	_, err = tx.Exec(ctx, `
		UPDATE packaging_instances
		SET state = $1, retired_at = COALESCE(retired_at, $2)
		WHERE id = $3
	`, target, retiredAt, id)
	if err != nil {
		return nil, err
	}

	instance.State = target
	if retiredAt != nil {
		instance.RetiredAt = retiredAt
	}
	return instance, nil
}

func (s *instanceService) MarkDamaged(ctx context.Context, id uuid.UUID, event string) (*models.Instance, error) {
	if event == "" {
		event = "mark_damaged"
	}
	return s.Transition(ctx, id, models.StateDamaged, event)
}

func (s *instanceService) MarkLost(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	return s.Transition(ctx, id, models.StateLost, "mark_lost")
}

func (s *instanceService) Retire(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	return s.Transition(ctx, id, models.StateRetired, "retire")
}

func (s *instanceService) CountByState(ctx context.Context) (map[models.InstanceState]int, error) {
	return s.instanceRepo.CountByState(ctx)
}

func (s *instanceService) audit(ctx context.Context, id uuid.UUID, eventType string, detail models.JSONB) {
	if s.auditSvc == nil {
		return
	}
	// Audit failures never fail the operation.
	_ = s.auditSvc.LogEvent(ctx, "instance", id.String(), eventType, detail)
}
