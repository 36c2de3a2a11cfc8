package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"packloop/internal/caching"
	"packloop/internal/common"
	"packloop/internal/metrics"
	"packloop/internal/models"
	"packloop/internal/repositories"
)

const (
	refTypeCheckout = "checkout"
	refTypeReturn   = "return"
)

// LoanService pairs checkouts with returns. Opening a checkout and closing a
// return each run in one database transaction covering the instance state
// change, the loan row, and the deposit hold or release, so partial
// application is impossible.
type LoanService interface {
	// OpenCheckout lends an instance to a customer at a retailer. The
	// catalog deposit is held against the customer's account.
	OpenCheckout(ctx context.Context, instanceID, retailerID, customerID uuid.UUID, dueBackDays int) (*models.Checkout, error)

	// CloseReturn records an instance coming back. When checkoutID is nil
	// the most recent open checkout for the instance is matched; with no
	// open checkout the return is recorded unmatched and no account is
	// credited. Returns to a dropbox park the instance in the at_retailer
	// holding state pending hub transfer.
	CloseReturn(ctx context.Context, instanceID, locationID uuid.UUID, customerID, checkoutID *uuid.UUID) (*models.Return, error)

	// OverdueCheckouts lists open checkouts past due as of the given
	// instant, most overdue first. Zero asOf means now. Recomputed on each
	// call.
	OverdueCheckouts(ctx context.Context, asOf time.Time) ([]*models.OverdueCheckout, error)

	GetCheckout(ctx context.Context, id uuid.UUID) (*models.Checkout, error)

	// OpenCheckoutForInstance returns the instance's open checkout, or
	// ErrNotFound when the instance is not on loan.
	OpenCheckoutForInstance(ctx context.Context, instanceID uuid.UUID) (*models.Checkout, error)

	ListCheckoutsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Checkout, error)
	GetReturn(ctx context.Context, id uuid.UUID) (*models.Return, error)
	ListReturnsByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Return, error)
}

type loanService struct {
	db           DB
	checkoutRepo repositories.CheckoutRepository
	returnRepo   repositories.ReturnRepository
	locationRepo repositories.LocationRepository
	auditSvc     AuditLogsService
	cacheSvc     caching.CacheService
	clock        clockwork.Clock
}

func NewLoanService(db DB, checkoutRepo repositories.CheckoutRepository, returnRepo repositories.ReturnRepository, locationRepo repositories.LocationRepository, auditSvc AuditLogsService, cacheSvc caching.CacheService, clock clockwork.Clock) LoanService {
	return &loanService{
		db:           db,
		checkoutRepo: checkoutRepo,
		returnRepo:   returnRepo,
		locationRepo: locationRepo,
		auditSvc:     auditSvc,
		cacheSvc:     cacheSvc,
		clock:        clock,
	}
}

func (s *loanService) OpenCheckout(ctx context.Context, instanceID, retailerID, customerID uuid.UUID, dueBackDays int) (*models.Checkout, error) {
	if dueBackDays <= 0 {
		return nil, common.NewValidationError("due_back_days", "must be positive")
	}

	now := s.clock.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the instance row first: concurrent checkouts and returns on the
	// same instance serialize here.
	var state models.InstanceState
	var catalogID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT state, catalog_id
		FROM packaging_instances
		WHERE id = $1
		FOR UPDATE
	`, instanceID).Scan(&state, &catalogID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("instance %s", instanceID)
	}
	if err != nil {
		return nil, err
	}

	var open bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM checkouts WHERE instance_id = $1 AND NOT closed)
	`, instanceID).Scan(&open)
	if err != nil {
		return nil, err
	}
	if open {
		metrics.RejectedOperations.WithLabelValues("duplicate_open_checkout").Inc()
		return nil, common.ErrDuplicateOpenCheckout
	}

	if state != models.StateAvailable && state != models.StateAtRetailer {
		metrics.RejectedOperations.WithLabelValues("invalid_state_transition").Inc()
		return nil, &common.InvalidStateTransition{
			Current: string(state),
			Target:  string(models.StateInUse),
			Event:   "checkout",
		}
	}

	var retailerExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM retailers WHERE id = $1)`, retailerID).Scan(&retailerExists); err != nil {
		return nil, err
	}
	if !retailerExists {
		return nil, common.NotFoundf("retailer %s", retailerID)
	}

	var accountID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM deposit_accounts WHERE customer_id = $1`, customerID).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("account for customer %s", customerID)
	}
	if err != nil {
		return nil, err
	}

	var depositCents int64
	if err := tx.QueryRow(ctx, `SELECT deposit_amount_cents FROM packaging_catalog WHERE id = $1`, catalogID).Scan(&depositCents); err != nil {
		return nil, err
	}

	checkout := &models.Checkout{
		ID:           uuid.New(),
		InstanceID:   instanceID,
		RetailerID:   retailerID,
		CustomerID:   customerID,
		CheckoutTime: now,
		DueBackDays:  dueBackDays,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO checkouts (id, instance_id, retailer_id, customer_id, checkout_time, due_back_days, closed)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`, checkout.ID, instanceID, retailerID, customerID, now, dueBackDays)
	if err != nil {
		return nil, err
	}

	if depositCents > 0 {
		refType := refTypeCheckout
		refID := checkout.ID
		if _, _, err := appendLedgerEntry(ctx, tx, accountID, -depositCents, models.ReasonCheckoutHold, &refType, &refID, now); err != nil {
			return nil, err
		}
	}

	if _, err := transitionInstance(ctx, tx, instanceID, models.StateInUse, "checkout", now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.CheckoutsOpened.Inc()
	metrics.LedgerEntries.WithLabelValues(string(models.ReasonCheckoutHold)).Inc()
	metrics.StateTransitions.WithLabelValues(string(models.StateInUse)).Inc()
	if s.cacheSvc != nil {
		_ = s.cacheSvc.DeleteBalance(ctx, customerID)
	}
	s.audit(ctx, "checkout", checkout.ID, "checkout_opened", models.JSONB{
		"instance_id":   instanceID.String(),
		"customer_id":   customerID.String(),
		"deposit_cents": depositCents,
	})
	return checkout, nil
}

func (s *loanService) CloseReturn(ctx context.Context, instanceID, locationID uuid.UUID, customerID, checkoutID *uuid.UUID) (*models.Return, error) {
	now := s.clock.Now().UTC()

	// Returns land at retailers or dropboxes, never directly at hubs.
	location, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if location.Kind != models.LocationRetailer && location.Kind != models.LocationDropbox {
		return nil, common.NewValidationError("location_id", "returns must go to a retailer or dropbox location")
	}

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

	// Resolve the checkout being closed, if any.
	var matched *models.Checkout
	if checkoutID != nil {
		matched = &models.Checkout{}
		err = tx.QueryRow(ctx, `
			SELECT id, instance_id, retailer_id, customer_id, checkout_time, due_back_days, closed
			FROM checkouts
			WHERE id = $1
			FOR UPDATE
		`, *checkoutID).Scan(&matched.ID, &matched.InstanceID, &matched.RetailerID, &matched.CustomerID, &matched.CheckoutTime, &matched.DueBackDays, &matched.Closed)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFoundf("checkout %s", *checkoutID)
		}
		if err != nil {
			return nil, err
		}
		if matched.InstanceID != instanceID {
			return nil, common.NewValidationError("checkout_id", "checkout belongs to a different instance")
		}
		if matched.Closed {
			metrics.RejectedOperations.WithLabelValues("duplicate_return").Inc()
			return nil, common.ErrDuplicateReturn
		}
	} else {
		matched = &models.Checkout{}
		err = tx.QueryRow(ctx, `
			SELECT id, instance_id, retailer_id, customer_id, checkout_time, due_back_days, closed
			FROM checkouts
			WHERE instance_id = $1 AND NOT closed
			ORDER BY checkout_time DESC
			LIMIT 1
			FOR UPDATE
		`, instanceID).Scan(&matched.ID, &matched.InstanceID, &matched.RetailerID, &matched.CustomerID, &matched.CheckoutTime, &matched.DueBackDays, &matched.Closed)
		if errors.Is(err, pgx.ErrNoRows) {
			matched = nil // unmatched return, allowed
		} else if err != nil {
			return nil, err
		}
	}

	ret := &models.Return{
		ID:         uuid.New(),
		InstanceID: instanceID,
		LocationID: locationID,
		CustomerID: customerID,
		ReturnedAt: now,
	}
	if matched != nil {
		ret.CheckoutID = &matched.ID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO returns (id, instance_id, location_id, customer_id, checkout_id, returned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ret.ID, ret.InstanceID, ret.LocationID, ret.CustomerID, ret.CheckoutID, ret.ReturnedAt)
	if err != nil {
		return nil, err
	}

	if matched != nil {
		_, err = tx.Exec(ctx, `UPDATE checkouts SET closed = TRUE WHERE id = $1`, matched.ID)
		if err != nil {
			return nil, err
		}

		// Release exactly what was held for this loan.
		var heldCents int64
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(-SUM(delta_cents), 0)
			FROM deposit_transactions
			WHERE ref_type = $1 AND ref_id = $2 AND reason = $3
		`, refTypeCheckout, matched.ID, models.ReasonCheckoutHold).Scan(&heldCents)
		if err != nil {
			return nil, err
		}

		if heldCents > 0 {
			var accountID uuid.UUID
			err = tx.QueryRow(ctx, `SELECT id FROM deposit_accounts WHERE customer_id = $1`, matched.CustomerID).Scan(&accountID)
			if errors.Is(err, pgx.ErrNoRows) {
				// Customer deleted mid-loan; the release has no account to
				// land on, record the return without a credit.
				err = nil
			} else if err != nil {
				return nil, err
			} else {
				refType := refTypeReturn
				refID := ret.ID
				if _, _, err := appendLedgerEntry(ctx, tx, accountID, heldCents, models.ReasonReturnRelease, &refType, &refID, now); err != nil {
					return nil, err
				}
			}
		}
	}

	if _, err := transitionInstance(ctx, tx, instanceID, models.StateAtRetailer, "return", now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	matchedLabel := "false"
	if matched != nil {
		matchedLabel = "true"
		metrics.LedgerEntries.WithLabelValues(string(models.ReasonReturnRelease)).Inc()
		if s.cacheSvc != nil {
			_ = s.cacheSvc.DeleteBalance(ctx, matched.CustomerID)
		}
	}
	metrics.ReturnsRecorded.WithLabelValues(matchedLabel).Inc()
	metrics.StateTransitions.WithLabelValues(string(models.StateAtRetailer)).Inc()
	s.audit(ctx, "return", ret.ID, "return_recorded", models.JSONB{
		"instance_id": instanceID.String(),
		"location_id": locationID.String(),
		"matched":     matched != nil,
	})
	return ret, nil
}

func (s *loanService) OverdueCheckouts(ctx context.Context, asOf time.Time) ([]*models.OverdueCheckout, error) {
	if asOf.IsZero() {
		asOf = s.clock.Now().UTC()
	}
	return s.checkoutRepo.ListOverdue(ctx, asOf)
}

func (s *loanService) GetCheckout(ctx context.Context, id uuid.UUID) (*models.Checkout, error) {
	return s.checkoutRepo.GetByID(ctx, id)
}

func (s *loanService) OpenCheckoutForInstance(ctx context.Context, instanceID uuid.UUID) (*models.Checkout, error) {
	return s.checkoutRepo.GetOpenByInstance(ctx, instanceID)
}

func (s *loanService) ListCheckoutsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Checkout, error) {
	return s.checkoutRepo.ListByCustomer(ctx, customerID, limit, offset)
}

func (s *loanService) GetReturn(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	return s.returnRepo.GetByID(ctx, id)
}

func (s *loanService) ListReturnsByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Return, error) {
	return s.returnRepo.ListByInstance(ctx, instanceID, limit, offset)
}

func (s *loanService) audit(ctx context.Context, entityType string, id uuid.UUID, eventType string, detail models.JSONB) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.LogEvent(ctx, entityType, id.String(), eventType, detail)
}
