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

type RetailerRepository interface {
	Create(ctx context.Context, retailer *models.Retailer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Retailer, error)
	GetByLocation(ctx context.Context, locationID uuid.UUID) (*models.Retailer, error)
	List(ctx context.Context, limit, offset int) ([]*models.Retailer, error)
	Update(ctx context.Context, retailer *models.Retailer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type retailerRepo struct {
	db *pgxpool.Pool
}

func NewRetailerRepository(db *pgxpool.Pool) RetailerRepository {
	return &retailerRepo{db: db}
}

func (r *retailerRepo) Create(ctx context.Context, retailer *models.Retailer) error {
	query := `
		INSERT INTO retailers (id, location_id, name, contact, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, retailer.ID, retailer.LocationID, retailer.Name, retailer.Contact, retailer.CreatedAt)
	return err
}

func (r *retailerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Retailer, error) {
	retailer := &models.Retailer{}
	query := `
		SELECT id, location_id, name, contact, created_at
		FROM retailers
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&retailer.ID, &retailer.LocationID, &retailer.Name, &retailer.Contact, &retailer.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("retailer %s", id)
	}
	if err != nil {
		return nil, err
	}
	return retailer, nil
}

func (r *retailerRepo) GetByLocation(ctx context.Context, locationID uuid.UUID) (*models.Retailer, error) {
	retailer := &models.Retailer{}
	query := `
		SELECT id, location_id, name, contact, created_at
		FROM retailers
		WHERE location_id = $1
	`
	err := r.db.QueryRow(ctx, query, locationID).Scan(&retailer.ID, &retailer.LocationID, &retailer.Name, &retailer.Contact, &retailer.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("retailer at location %s", locationID)
	}
	if err != nil {
		return nil, err
	}
	return retailer, nil
}

func (r *retailerRepo) List(ctx context.Context, limit, offset int) ([]*models.Retailer, error) {
	query := `
		SELECT id, location_id, name, contact, created_at
		FROM retailers
		ORDER BY name
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var retailers []*models.Retailer
	for rows.Next() {
		retailer := &models.Retailer{}
		if err := rows.Scan(&retailer.ID, &retailer.LocationID, &retailer.Name, &retailer.Contact, &retailer.CreatedAt); err != nil {
			return nil, err
		}
		retailers = append(retailers, retailer)
	}
	return retailers, rows.Err()
}

func (r *retailerRepo) Update(ctx context.Context, retailer *models.Retailer) error {
	query := `
		UPDATE retailers
		SET name = $1, contact = $2
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, retailer.Name, retailer.Contact, retailer.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("retailer %s", retailer.ID)
	}
	return nil
}

func (r *retailerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM retailers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("retailer %s", id)
	}
	return nil
}
