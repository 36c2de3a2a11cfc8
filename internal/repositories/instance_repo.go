package repositories

import (
	"context"
	"errors"
	"time"

	"packloop/internal/common"
	"packloop/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InstanceRepository interface {
	Create(ctx context.Context, instance *models.Instance) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Instance, error)
	GetByUIDCode(ctx context.Context, uidCode string) (*models.Instance, error)
	List(ctx context.Context, filter *models.InstanceFilter) ([]*models.Instance, error)
	UpdateState(ctx context.Context, id uuid.UUID, state models.InstanceState, retiredAt *time.Time) error
	CountByState(ctx context.Context) (map[models.InstanceState]int, error)
}

type instanceRepo struct {
	db *pgxpool.Pool
}

func NewInstanceRepository(db *pgxpool.Pool) InstanceRepository {
	return &instanceRepo{db: db}
}

func (r *instanceRepo) Create(ctx context.Context, instance *models.Instance) error {
	query := `
		INSERT INTO packaging_instances (id, catalog_id, uid_code, state, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, instance.ID, instance.CatalogID, instance.UIDCode, instance.State, instance.CreatedAt)
	return err
}

func (r *instanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	instance := &models.Instance{}
	query := `
		SELECT id, catalog_id, uid_code, state, created_at, retired_at
		FROM packaging_instances
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&instance.ID, &instance.CatalogID, &instance.UIDCode, &instance.State, &instance.CreatedAt, &instance.RetiredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("instance %s", id)
	}
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (r *instanceRepo) GetByUIDCode(ctx context.Context, uidCode string) (*models.Instance, error) {
	instance := &models.Instance{}
	query := `
		SELECT id, catalog_id, uid_code, state, created_at, retired_at
		FROM packaging_instances
		WHERE uid_code = $1
	`
	err := r.db.QueryRow(ctx, query, uidCode).Scan(&instance.ID, &instance.CatalogID, &instance.UIDCode, &instance.State, &instance.CreatedAt, &instance.RetiredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("instance %q", uidCode)
	}
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (r *instanceRepo) List(ctx context.Context, filter *models.InstanceFilter) ([]*models.Instance, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, catalog_id, uid_code, state, created_at, retired_at
		FROM packaging_instances
		WHERE ($1::text IS NULL OR state = $1)
		  AND ($2::uuid IS NULL OR catalog_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, filter.State, filter.CatalogID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*models.Instance
	for rows.Next() {
		instance := &models.Instance{}
		if err := rows.Scan(&instance.ID, &instance.CatalogID, &instance.UIDCode, &instance.State, &instance.CreatedAt, &instance.RetiredAt); err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, rows.Err()
}

// UpdateState writes the new state; retiredAt is only set on the retiring
// transition and never overwritten afterwards.
func (r *instanceRepo) UpdateState(ctx context.Context, id uuid.UUID, state models.InstanceState, retiredAt *time.Time) error {
	query := `
		UPDATE packaging_instances
		SET state = $1, retired_at = COALESCE(retired_at, $2)
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, state, retiredAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("instance %s", id)
	}
	return nil
}

func (r *instanceRepo) CountByState(ctx context.Context) (map[models.InstanceState]int, error) {
	rows, err := r.db.Query(ctx, `SELECT state, COUNT(*) FROM packaging_instances GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.InstanceState]int)
	for rows.Next() {
		var state models.InstanceState
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[state] = n
	}
	return counts, rows.Err()
}
