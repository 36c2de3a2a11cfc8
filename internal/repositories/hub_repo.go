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

type HubRepository interface {
	Create(ctx context.Context, hub *models.Hub) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Hub, error)
	GetByLocation(ctx context.Context, locationID uuid.UUID) (*models.Hub, error)
	List(ctx context.Context, limit, offset int) ([]*models.Hub, error)
	Update(ctx context.Context, hub *models.Hub) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type hubRepo struct {
	db *pgxpool.Pool
}

func NewHubRepository(db *pgxpool.Pool) HubRepository {
	return &hubRepo{db: db}
}

func (r *hubRepo) Create(ctx context.Context, hub *models.Hub) error {
	query := `
		INSERT INTO hubs (id, location_id, name, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, hub.ID, hub.LocationID, hub.Name, hub.Capacity, hub.CreatedAt)
	return err
}

func (r *hubRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Hub, error) {
	hub := &models.Hub{}
	query := `
		SELECT id, location_id, name, capacity, created_at
		FROM hubs
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&hub.ID, &hub.LocationID, &hub.Name, &hub.Capacity, &hub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("hub %s", id)
	}
	if err != nil {
		return nil, err
	}
	return hub, nil
}

func (r *hubRepo) GetByLocation(ctx context.Context, locationID uuid.UUID) (*models.Hub, error) {
	hub := &models.Hub{}
	query := `
		SELECT id, location_id, name, capacity, created_at
		FROM hubs
		WHERE location_id = $1
	`
	err := r.db.QueryRow(ctx, query, locationID).Scan(&hub.ID, &hub.LocationID, &hub.Name, &hub.Capacity, &hub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("hub at location %s", locationID)
	}
	if err != nil {
		return nil, err
	}
	return hub, nil
}

func (r *hubRepo) List(ctx context.Context, limit, offset int) ([]*models.Hub, error) {
	query := `
		SELECT id, location_id, name, capacity, created_at
		FROM hubs
		ORDER BY name
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hubs []*models.Hub
	for rows.Next() {
		hub := &models.Hub{}
		if err := rows.Scan(&hub.ID, &hub.LocationID, &hub.Name, &hub.Capacity, &hub.CreatedAt); err != nil {
			return nil, err
		}
		hubs = append(hubs, hub)
	}
	return hubs, rows.Err()
}

func (r *hubRepo) Update(ctx context.Context, hub *models.Hub) error {
	query := `
		UPDATE hubs
		SET name = $1, capacity = $2
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, hub.Name, hub.Capacity, hub.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("hub %s", hub.ID)
	}
	return nil
}

func (r *hubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM hubs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("hub %s", id)
	}
	return nil
}
