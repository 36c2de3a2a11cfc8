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

type LocationRepository interface {
	Create(ctx context.Context, loc *models.Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	GetByName(ctx context.Context, name string) (*models.Location, error)
	List(ctx context.Context, kind *models.LocationKind, limit, offset int) ([]*models.Location, error)
	Update(ctx context.Context, loc *models.Location) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type locationRepo struct {
	db *pgxpool.Pool
}

func NewLocationRepository(db *pgxpool.Pool) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Create(ctx context.Context, loc *models.Location) error {
	query := `
		INSERT INTO locations (id, name, kind, address, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, loc.ID, loc.Name, loc.Kind, loc.Address, loc.Latitude, loc.Longitude, loc.CreatedAt)
	return err
}

func (r *locationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	loc := &models.Location{}
	query := `
		SELECT id, name, kind, address, latitude, longitude, created_at
		FROM locations
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Address, &loc.Latitude, &loc.Longitude, &loc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("location %s", id)
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (r *locationRepo) GetByName(ctx context.Context, name string) (*models.Location, error) {
	loc := &models.Location{}
	query := `
		SELECT id, name, kind, address, latitude, longitude, created_at
		FROM locations
		WHERE name = $1
	`
	err := r.db.QueryRow(ctx, query, name).Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Address, &loc.Latitude, &loc.Longitude, &loc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("location %q", name)
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (r *locationRepo) List(ctx context.Context, kind *models.LocationKind, limit, offset int) ([]*models.Location, error) {
	query := `
		SELECT id, name, kind, address, latitude, longitude, created_at
		FROM locations
		WHERE ($1::text IS NULL OR kind = $1)
		ORDER BY name
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		loc := &models.Location{}
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Address, &loc.Latitude, &loc.Longitude, &loc.CreatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// Update never touches kind: a location's kind is immutable once created.
func (r *locationRepo) Update(ctx context.Context, loc *models.Location) error {
	query := `
		UPDATE locations
		SET name = $1, address = $2, latitude = $3, longitude = $4
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query, loc.Name, loc.Address, loc.Latitude, loc.Longitude, loc.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("location %s", loc.ID)
	}
	return nil
}

func (r *locationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("location %s", id)
	}
	return nil
}
