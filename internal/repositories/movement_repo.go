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

type MovementRepository interface {
	Create(ctx context.Context, movement *models.Movement) error
	ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Movement, error)
	// Latest returns up to n most recent movements for the instance,
	// newest first, ordered by (moved_at, mv_id).
	Latest(ctx context.Context, instanceID uuid.UUID, n int) ([]*models.Movement, error)
	LastLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error)
	AllLastLocations(ctx context.Context) ([]*models.LastLocation, error)
}

type movementRepo struct {
	db *pgxpool.Pool
}

func NewMovementRepository(db *pgxpool.Pool) MovementRepository {
	return &movementRepo{db: db}
}

// Create appends the movement and backfills the generated mv_id.
func (r *movementRepo) Create(ctx context.Context, movement *models.Movement) error {
	query := `
		INSERT INTO movements (instance_id, from_loc_id, to_loc_id, moved_at, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING mv_id
	`
	return r.db.QueryRow(ctx, query, movement.InstanceID, movement.FromLocID, movement.ToLocID, movement.MovedAt, movement.Note).Scan(&movement.MvID)
}

func (r *movementRepo) ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Movement, error) {
	query := `
		SELECT mv_id, instance_id, from_loc_id, to_loc_id, moved_at, note
		FROM movements
		WHERE instance_id = $1
		ORDER BY moved_at DESC, mv_id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, instanceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (r *movementRepo) Latest(ctx context.Context, instanceID uuid.UUID, n int) ([]*models.Movement, error) {
	query := `
		SELECT mv_id, instance_id, from_loc_id, to_loc_id, moved_at, note
		FROM movements
		WHERE instance_id = $1
		ORDER BY moved_at DESC, mv_id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, instanceID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (r *movementRepo) LastLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error) {
	last := &models.LastLocation{}
	query := `
		SELECT instance_id, location_id, moved_at
		FROM instance_last_location
		WHERE instance_id = $1
	`
	err := r.db.QueryRow(ctx, query, instanceID).Scan(&last.InstanceID, &last.LocationID, &last.MovedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("movements for instance %s", instanceID)
	}
	if err != nil {
		return nil, err
	}
	return last, nil
}

func (r *movementRepo) AllLastLocations(ctx context.Context) ([]*models.LastLocation, error) {
	rows, err := r.db.Query(ctx, `SELECT instance_id, location_id, moved_at FROM instance_last_location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.LastLocation
	for rows.Next() {
		last := &models.LastLocation{}
		if err := rows.Scan(&last.InstanceID, &last.LocationID, &last.MovedAt); err != nil {
			return nil, err
		}
		out = append(out, last)
	}
	return out, rows.Err()
}

func scanMovements(rows pgx.Rows) ([]*models.Movement, error) {
	var movements []*models.Movement
	for rows.Next() {
		movement := &models.Movement{}
		if err := rows.Scan(&movement.MvID, &movement.InstanceID, &movement.FromLocID, &movement.ToLocID, &movement.MovedAt, &movement.Note); err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, rows.Err()
}
