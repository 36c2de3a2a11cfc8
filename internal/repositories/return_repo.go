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

type ReturnRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Return, error)
	ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Return, error)
}

type returnRepo struct {
	db *pgxpool.Pool
}

func NewReturnRepository(db *pgxpool.Pool) ReturnRepository {
	return &returnRepo{db: db}
}

func (r *returnRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	ret := &models.Return{}
	query := `
		SELECT id, instance_id, location_id, customer_id, checkout_id, returned_at
		FROM returns
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&ret.ID, &ret.InstanceID, &ret.LocationID, &ret.CustomerID, &ret.CheckoutID, &ret.ReturnedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("return %s", id)
	}
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *returnRepo) ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Return, error) {
	query := `
		SELECT id, instance_id, location_id, customer_id, checkout_id, returned_at
		FROM returns
		WHERE instance_id = $1
		ORDER BY returned_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, instanceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var returns []*models.Return
	for rows.Next() {
		ret := &models.Return{}
		if err := rows.Scan(&ret.ID, &ret.InstanceID, &ret.LocationID, &ret.CustomerID, &ret.CheckoutID, &ret.ReturnedAt); err != nil {
			return nil, err
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}
