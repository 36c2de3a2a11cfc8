package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/random"

	"packloop/internal/common"
	"packloop/internal/config"
	"packloop/internal/metrics"
	"packloop/internal/models"
	"packloop/internal/repositories"
)

// QualityService runs hub-side hygiene: wash cycles, inspections, and
// contamination incidents. Inspections and incidents are pure appends; the
// instance state feedback they trigger is governed by the configured policy.
type QualityService interface {
	// StartCycle opens a wash batch at a hub and moves the attached
	// instances into washing. Instances not currently at_hub are skipped
	// with an error per instance rather than failing the batch.
	StartCycle(ctx context.Context, hubID uuid.UUID, batchCode string, temperatureC *float64, detergent *string, instanceIDs []uuid.UUID) (*models.WashCycle, []error, error)

	// CompleteCycle closes the batch and moves its members from washing
	// back to at_hub, pending inspection. Completing twice fails.
	CompleteCycle(ctx context.Context, cycleID uuid.UUID) (*models.WashCycle, error)

	// RecordInspection appends an inspection. A pass releases an at_hub or
	// washing instance to available; a fail marks it damaged when the
	// policy says so.
	RecordInspection(ctx context.Context, instanceID uuid.UUID, cycleID *uuid.UUID, inspector string, result models.InspectionResult, notes *string) (*models.Inspection, error)

	// RecordContamination appends an incident, severity 1 to 5. At or
	// above the configured threshold the instance is marked damaged.
	RecordContamination(ctx context.Context, instanceID uuid.UUID, kind models.ContaminationKind, severity int, description *string) (*models.ContaminationIncident, error)

	GetCycle(ctx context.Context, id uuid.UUID) (*models.WashCycle, error)
	ListCyclesByHub(ctx context.Context, hubID uuid.UUID, limit, offset int) ([]*models.WashCycle, error)
	ListCycleInstances(ctx context.Context, cycleID uuid.UUID) ([]uuid.UUID, error)
	GetInspection(ctx context.Context, id uuid.UUID) (*models.Inspection, error)
	ListInspectionsByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Inspection, error)
	ListContaminationByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.ContaminationIncident, error)
	AttachInspectionPhoto(ctx context.Context, inspectionID uuid.UUID, photoKey string) error
}

type qualityService struct {
	db         DB
	washRepo   repositories.WashRepository
	inspRepo   repositories.InspectionRepository
	contamRepo repositories.ContaminationRepository
	hubRepo    repositories.HubRepository
	auditSvc   AuditLogsService
	policy     config.QualityPolicy
	clock      clockwork.Clock
}

func NewQualityService(db DB, washRepo repositories.WashRepository, inspRepo repositories.InspectionRepository, contamRepo repositories.ContaminationRepository, hubRepo repositories.HubRepository, auditSvc AuditLogsService, policy config.QualityPolicy, clock clockwork.Clock) QualityService {
	return &qualityService{
		db:         db,
		washRepo:   washRepo,
		inspRepo:   inspRepo,
		contamRepo: contamRepo,
		hubRepo:    hubRepo,
		auditSvc:   auditSvc,
		policy:     policy,
		clock:      clock,
	}
}

func (s *qualityService) StartCycle(ctx context.Context, hubID uuid.UUID, batchCode string, temperatureC *float64, detergent *string, instanceIDs []uuid.UUID) (*models.WashCycle, []error, error) {
	if _, err := s.hubRepo.GetByID(ctx, hubID); err != nil {
		return nil, nil, err
	}
	if batchCode == "" {
		batchCode = "WB-" + random.String(8, random.Uppercase, random.Numeric)
	}

	now := s.clock.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	cycle := &models.WashCycle{
		ID:           uuid.New(),
		HubID:        hubID,
		BatchCode:    batchCode,
		StartedAt:    now,
		TemperatureC: temperatureC,
		Detergent:    detergent,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO wash_cycles (id, hub_id, batch_code, started_at, ended_at, temperature_c, detergent)
		VALUES ($1, $2, $3, $4, NULL, $5, $6)
	`, cycle.ID, cycle.HubID, cycle.BatchCode, cycle.StartedAt, cycle.TemperatureC, cycle.Detergent)
	if err != nil {
		return nil, nil, err
	}

	// One bad instance does not sink the batch; callers get the skips back.
	var skipped []error
	for _, instanceID := range instanceIDs {
		if _, err := transitionInstance(ctx, tx, instanceID, models.StateWashing, "wash_start", now); err != nil {
			var invalid *common.InvalidStateTransition
			if errors.As(err, &invalid) || errors.Is(err, common.ErrNotFound) {
				skipped = append(skipped, &common.ValidationError{
					Field:   "instance_ids",
					Message: instanceID.String() + ": " + err.Error(),
				})
				continue
			}
			return nil, nil, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO wash_cycle_instances (cycle_id, instance_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, cycle.ID, instanceID)
		if err != nil {
			return nil, nil, err
		}
		metrics.StateTransitions.WithLabelValues(string(models.StateWashing)).Inc()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	s.audit(ctx, "wash_cycle", cycle.ID, "wash_cycle_started", models.JSONB{
		"hub_id":     hubID.String(),
		"batch_code": batchCode,
		"attached":   len(instanceIDs) - len(skipped),
		"skipped":    len(skipped),
	})
	return cycle, skipped, nil
}

func (s *qualityService) CompleteCycle(ctx context.Context, cycleID uuid.UUID) (*models.WashCycle, error) {
	now := s.clock.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cycle := &models.WashCycle{}
	err = tx.QueryRow(ctx, `
		SELECT id, hub_id, batch_code, started_at, ended_at, temperature_c, detergent
		FROM wash_cycles
		WHERE id = $1
		FOR UPDATE
	`, cycleID).Scan(&cycle.ID, &cycle.HubID, &cycle.BatchCode, &cycle.StartedAt, &cycle.EndedAt, &cycle.TemperatureC, &cycle.Detergent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("wash cycle %s", cycleID)
	}
	if err != nil {
		return nil, err
	}
	if !cycle.Open() {
		metrics.RejectedOperations.WithLabelValues("cycle_already_closed").Inc()
		return nil, common.ErrCycleAlreadyClosed
	}

	_, err = tx.Exec(ctx, `UPDATE wash_cycles SET ended_at = $1 WHERE id = $2`, now, cycleID)
	if err != nil {
		return nil, err
	}
	cycle.EndedAt = &now

	rows, err := tx.Query(ctx, `SELECT instance_id FROM wash_cycle_instances WHERE cycle_id = $1`, cycleID)
	if err != nil {
		return nil, err
	}
	var members []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		members = append(members, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, instanceID := range members {
		if _, err := transitionInstance(ctx, tx, instanceID, models.StateAtHub, "wash_complete", now); err != nil {
			// A member marked damaged or lost mid-cycle stays where it is.
			var invalid *common.InvalidStateTransition
			if errors.As(err, &invalid) {
				log.Printf("wash cycle %s: instance %s not returned to hub: %v", cycleID, instanceID, err)
				continue
			}
			return nil, err
		}
		metrics.StateTransitions.WithLabelValues(string(models.StateAtHub)).Inc()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.audit(ctx, "wash_cycle", cycleID, "wash_cycle_completed", models.JSONB{
		"members": len(members),
	})
	return cycle, nil
}

func (s *qualityService) RecordInspection(ctx context.Context, instanceID uuid.UUID, cycleID *uuid.UUID, inspector string, result models.InspectionResult, notes *string) (*models.Inspection, error) {
	if inspector == "" {
		return nil, common.NewValidationError("inspector", "is required")
	}
	if !result.Valid() {
		return nil, common.NewValidationError("result", "must be pass or fail")
	}

	now := s.clock.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var state models.InstanceState
	err = tx.QueryRow(ctx, `
		SELECT state FROM packaging_instances WHERE id = $1 FOR UPDATE
	`, instanceID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("instance %s", instanceID)
	}
	if err != nil {
		return nil, err
	}

	if cycleID != nil {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wash_cycles WHERE id = $1)`, *cycleID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, common.NotFoundf("wash cycle %s", *cycleID)
		}
	}

	inspection := &models.Inspection{
		ID:         uuid.New(),
		InstanceID: instanceID,
		CycleID:    cycleID,
		Inspector:  inspector,
		Result:     result,
		Notes:      notes,
		CreatedAt:  now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO inspections (id, instance_id, cycle_id, inspector, result, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, inspection.ID, inspection.InstanceID, inspection.CycleID, inspection.Inspector, inspection.Result, inspection.Notes, inspection.CreatedAt)
	if err != nil {
		return nil, err
	}

	switch {
	case result == models.ResultPass && (state == models.StateAtHub || state == models.StateWashing):
		if _, err := transitionInstance(ctx, tx, instanceID, models.StateAvailable, "inspection_pass", now); err != nil {
			return nil, err
		}
		metrics.StateTransitions.WithLabelValues(string(models.StateAvailable)).Inc()
	case result == models.ResultFail && s.policy.FailMarksDamaged && state != models.StateRetired:
		if _, err := transitionInstance(ctx, tx, instanceID, models.StateDamaged, "inspection_fail", now); err != nil {
			return nil, err
		}
		metrics.StateTransitions.WithLabelValues(string(models.StateDamaged)).Inc()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.audit(ctx, "inspection", inspection.ID, "inspection_recorded", models.JSONB{
		"instance_id": instanceID.String(),
		"result":      string(result),
	})
	return inspection, nil
}

func (s *qualityService) RecordContamination(ctx context.Context, instanceID uuid.UUID, kind models.ContaminationKind, severity int, description *string) (*models.ContaminationIncident, error) {
	if !kind.Valid() {
		return nil, common.NewValidationError("kind", "unknown contamination kind")
	}
	if severity < 1 || severity > 5 {
		return nil, common.NewValidationError("severity", "must be between 1 and 5")
	}

	now := s.clock.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var state models.InstanceState
	err = tx.QueryRow(ctx, `
		SELECT state FROM packaging_instances WHERE id = $1 FOR UPDATE
	`, instanceID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("instance %s", instanceID)
	}
	if err != nil {
		return nil, err
	}

	incident := &models.ContaminationIncident{
		ID:          uuid.New(),
		InstanceID:  instanceID,
		Kind:        kind,
		Severity:    severity,
		Description: description,
		OccurredAt:  now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO contamination_incidents (id, instance_id, kind, severity, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, incident.ID, incident.InstanceID, incident.Kind, incident.Severity, incident.Description, incident.OccurredAt)
	if err != nil {
		return nil, err
	}

	threshold := s.policy.ContaminationDamageSeverity
	if threshold > 0 && severity >= threshold && state != models.StateRetired && state != models.StateDamaged {
		if _, err := transitionInstance(ctx, tx, instanceID, models.StateDamaged, "contamination", now); err != nil {
			return nil, err
		}
		metrics.StateTransitions.WithLabelValues(string(models.StateDamaged)).Inc()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.audit(ctx, "contamination_incident", incident.ID, "contamination_recorded", models.JSONB{
		"instance_id": instanceID.String(),
		"kind":        string(kind),
		"severity":    severity,
	})
	return incident, nil
}

func (s *qualityService) GetCycle(ctx context.Context, id uuid.UUID) (*models.WashCycle, error) {
	return s.washRepo.GetByID(ctx, id)
}

func (s *qualityService) ListCyclesByHub(ctx context.Context, hubID uuid.UUID, limit, offset int) ([]*models.WashCycle, error) {
	return s.washRepo.ListByHub(ctx, hubID, limit, offset)
}

func (s *qualityService) ListCycleInstances(ctx context.Context, cycleID uuid.UUID) ([]uuid.UUID, error) {
	return s.washRepo.ListInstances(ctx, cycleID)
}

func (s *qualityService) GetInspection(ctx context.Context, id uuid.UUID) (*models.Inspection, error) {
	return s.inspRepo.GetByID(ctx, id)
}

func (s *qualityService) ListInspectionsByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Inspection, error) {
	return s.inspRepo.ListByInstance(ctx, instanceID, limit, offset)
}

func (s *qualityService) ListContaminationByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.ContaminationIncident, error) {
	return s.contamRepo.ListByInstance(ctx, instanceID, limit, offset)
}

func (s *qualityService) AttachInspectionPhoto(ctx context.Context, inspectionID uuid.UUID, photoKey string) error {
	if photoKey == "" {
		return common.NewValidationError("photo_key", "is required")
	}
	if err := s.inspRepo.SetPhotoKey(ctx, inspectionID, photoKey); err != nil {
		return err
	}
	s.audit(ctx, "inspection", inspectionID, "inspection_photo_attached", models.JSONB{
		"photo_key": photoKey,
	})
	return nil
}

func (s *qualityService) audit(ctx context.Context, entityType string, id uuid.UUID, eventType string, detail models.JSONB) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.LogEvent(ctx, entityType, id.String(), eventType, detail)
}
