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

type CheckoutRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Checkout, error)
	GetOpenByInstance(ctx context.Context, instanceID uuid.UUID) (*models.Checkout, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Checkout, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.OverdueCheckout, error)
}

type checkoutRepo struct {
	db *pgxpool.Pool
}

func NewCheckoutRepository(db *pgxpool.Pool) CheckoutRepository {
	return &checkoutRepo{db: db}
}

func (r *checkoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Checkout, error) {
	checkout := &models.Checkout{}
	query := `
		SELECT id, instance_id, retailer_id, customer_id, checkout_time, due_back_days, closed
		FROM checkouts
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&checkout.ID, &checkout.InstanceID, &checkout.RetailerID, &checkout.CustomerID, &checkout.CheckoutTime, &checkout.DueBackDays, &checkout.Closed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("checkout %s", id)
	}
	if err != nil {
		return nil, err
	}
	return checkout, nil
}

// GetOpenByInstance returns the instance's open checkout, or ErrNotFound
// when there is none. The partial unique index guarantees at most one.
func (r *checkoutRepo) GetOpenByInstance(ctx context.Context, instanceID uuid.UUID) (*models.Checkout, error) {
	checkout := &models.Checkout{}
	query := `
		SELECT id, instance_id, retailer_id, customer_id, checkout_time, due_back_days, closed
		FROM checkouts
		WHERE instance_id = $1 AND NOT closed
	`
	err := r.db.QueryRow(ctx, query, instanceID).Scan(&checkout.ID, &checkout.InstanceID, &checkout.RetailerID, &checkout.CustomerID, &checkout.CheckoutTime, &checkout.DueBackDays, &checkout.Closed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("open checkout for instance %s", instanceID)
	}
	if err != nil {
		return nil, err
	}
	return checkout, nil
}

func (r *checkoutRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Checkout, error) {
	query := `
		SELECT id, instance_id, retailer_id, customer_id, checkout_time, due_back_days, closed
		FROM checkouts
		WHERE customer_id = $1
		ORDER BY checkout_time DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkouts []*models.Checkout
	for rows.Next() {
		checkout := &models.Checkout{}
		if err := rows.Scan(&checkout.ID, &checkout.InstanceID, &checkout.RetailerID, &checkout.CustomerID, &checkout.CheckoutTime, &checkout.DueBackDays, &checkout.Closed); err != nil {
			return nil, err
		}
		checkouts = append(checkouts, checkout)
	}
	return checkouts, rows.Err()
}

// ListOverdue returns open checkouts past their due date as of the given
// instant, most overdue first. Recomputed on each call.
func (r *checkoutRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.OverdueCheckout, error) {
	query := `
		SELECT id, instance_id, retailer_id, customer_id, checkout_time, due_back_days, closed
		FROM checkouts
		WHERE NOT closed
		  AND checkout_time + make_interval(days => due_back_days) < $1
		ORDER BY checkout_time + make_interval(days => due_back_days) ASC
	`
	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overdue []*models.OverdueCheckout
	for rows.Next() {
		oc := &models.OverdueCheckout{}
		if err := rows.Scan(&oc.ID, &oc.InstanceID, &oc.RetailerID, &oc.CustomerID, &oc.CheckoutTime, &oc.DueBackDays, &oc.Closed); err != nil {
			return nil, err
		}
		oc.DaysOverdue = int(asOf.Sub(oc.DueAt()).Hours() / 24)
		overdue = append(overdue, oc)
	}
	return overdue, rows.Err()
}
