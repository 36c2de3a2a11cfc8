package repositories

import (
	"context"
	"errors"

	"packloop/internal/common"
	"packloop/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WashRepository is read-only: cycle and membership writes happen inside the
// quality service's transaction, alongside the member state transitions.
type WashRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.WashCycle, error)
	ListByHub(ctx context.Context, hubID uuid.UUID, limit, offset int) ([]*models.WashCycle, error)
	ListInstances(ctx context.Context, cycleID uuid.UUID) ([]uuid.UUID, error)
}

type washRepo struct {
	db *pgxpool.Pool
}

func NewWashRepository(db *pgxpool.Pool) WashRepository {
	return &washRepo{db: db}
}

func (r *washRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WashCycle, error) {
	cycle := &models.WashCycle{}
	query := `
		SELECT id, hub_id, batch_code, started_at, ended_at, temperature_c, detergent
		FROM wash_cycles
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&cycle.ID, &cycle.HubID, &cycle.BatchCode, &cycle.StartedAt, &cycle.EndedAt, &cycle.TemperatureC, &cycle.Detergent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("wash cycle %s", id)
	}
	if err != nil {
		return nil, err
	}
	return cycle, nil
}

func (r *washRepo) ListByHub(ctx context.Context, hubID uuid.UUID, limit, offset int) ([]*models.WashCycle, error) {
	query := `
		SELECT id, hub_id, batch_code, started_at, ended_at, temperature_c, detergent
		FROM wash_cycles
		WHERE hub_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, hubID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []*models.WashCycle
	for rows.Next() {
		cycle := &models.WashCycle{}
		if err := rows.Scan(&cycle.ID, &cycle.HubID, &cycle.BatchCode, &cycle.StartedAt, &cycle.EndedAt, &cycle.TemperatureC, &cycle.Detergent); err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}

func (r *washRepo) ListInstances(ctx context.Context, cycleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT instance_id FROM wash_cycle_instances WHERE cycle_id = $1`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
