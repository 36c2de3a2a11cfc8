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

type InspectionRepository interface {
	Create(ctx context.Context, inspection *models.Inspection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inspection, error)
	ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Inspection, error)
	SetPhotoKey(ctx context.Context, id uuid.UUID, photoKey string) error
}

type inspectionRepo struct {
	db *pgxpool.Pool
}

func NewInspectionRepository(db *pgxpool.Pool) InspectionRepository {
	return &inspectionRepo{db: db}
}

func (r *inspectionRepo) Create(ctx context.Context, inspection *models.Inspection) error {
	query := `
		INSERT INTO inspections (id, instance_id, cycle_id, inspector, result, notes, photo_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, inspection.ID, inspection.InstanceID, inspection.CycleID, inspection.Inspector, inspection.Result, inspection.Notes, inspection.PhotoKey, inspection.CreatedAt)
	return err
}

func (r *inspectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Inspection, error) {
	inspection := &models.Inspection{}
	query := `
		SELECT id, instance_id, cycle_id, inspector, result, notes, photo_key, created_at
		FROM inspections
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&inspection.ID, &inspection.InstanceID, &inspection.CycleID, &inspection.Inspector, &inspection.Result, &inspection.Notes, &inspection.PhotoKey, &inspection.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("inspection %s", id)
	}
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

func (r *inspectionRepo) ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Inspection, error) {
	query := `
		SELECT id, instance_id, cycle_id, inspector, result, notes, photo_key, created_at
		FROM inspections
		WHERE instance_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, instanceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inspections []*models.Inspection
	for rows.Next() {
		inspection := &models.Inspection{}
		if err := rows.Scan(&inspection.ID, &inspection.InstanceID, &inspection.CycleID, &inspection.Inspector, &inspection.Result, &inspection.Notes, &inspection.PhotoKey, &inspection.CreatedAt); err != nil {
			return nil, err
		}
		inspections = append(inspections, inspection)
	}
	return inspections, rows.Err()
}

func (r *inspectionRepo) SetPhotoKey(ctx context.Context, id uuid.UUID, photoKey string) error {
	tag, err := r.db.Exec(ctx, `UPDATE inspections SET photo_key = $1 WHERE id = $2`, photoKey, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("inspection %s", id)
	}
	return nil
}
