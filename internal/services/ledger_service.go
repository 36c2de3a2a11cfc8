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

// LedgerService owns the deposit ledger: every credit or debit appends one
// immutable transaction and moves the account balance by the same delta
// inside a single database transaction, with the account row locked.
type LedgerService interface {
	Credit(ctx context.Context, accountID uuid.UUID, amountCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID) (*models.DepositTransaction, error)
	Debit(ctx context.Context, accountID uuid.UUID, amountCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID) (*models.DepositTransaction, error)

	// Reconcile recomputes the account balance from the transaction log and
	// compares it with the stored balance. Divergence is a LedgerCorruption
	// fault, never silently repaired.
	Reconcile(ctx context.Context, accountID uuid.UUID) (balanceCents, ledgerCents int64, err error)

	GetAccountByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DepositAccount, error)
	Statement(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.DepositTransaction, error)
	Balances(ctx context.Context, limit, offset int) ([]*models.BalanceRow, error)

	// CustomerBalance serves one customer's balance row through the cache;
	// ledger writes on the account invalidate the cached copy.
	CustomerBalance(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error)
}

const balanceCacheTTL = time.Minute

type ledgerService struct {
	db          DB
	accountRepo repositories.AccountRepository
	cacheSvc    caching.CacheService
	clock       clockwork.Clock
}

func NewLedgerService(db DB, accountRepo repositories.AccountRepository, cacheSvc caching.CacheService, clock clockwork.Clock) LedgerService {
	return &ledgerService{
		db:          db,
		accountRepo: accountRepo,
		cacheSvc:    cacheSvc,
		clock:       clock,
	}
}

func (s *ledgerService) Credit(ctx context.Context, accountID uuid.UUID, amountCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID) (*models.DepositTransaction, error) {
	if amountCents <= 0 {
		return nil, common.NewValidationError("amount_cents", "must be positive")
	}
	return s.apply(ctx, accountID, amountCents, reason, refType, refID)
}

func (s *ledgerService) Debit(ctx context.Context, accountID uuid.UUID, amountCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID) (*models.DepositTransaction, error) {
	if amountCents <= 0 {
		return nil, common.NewValidationError("amount_cents", "must be positive")
	}
	return s.apply(ctx, accountID, -amountCents, reason, refType, refID)
}

func (s *ledgerService) apply(ctx context.Context, accountID uuid.UUID, deltaCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID) (*models.DepositTransaction, error) {
	if !reason.Valid() {
		return nil, common.NewValidationError("reason", "unknown transaction reason")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, customerID, err := appendLedgerEntry(ctx, tx, accountID, deltaCents, reason, refType, refID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.LedgerEntries.WithLabelValues(string(reason)).Inc()
	if s.cacheSvc != nil {
		_ = s.cacheSvc.DeleteBalance(ctx, customerID)
	}
	return entry, nil
}

// appendLedgerEntry locks the account row, enforces the negative-balance
// policy, appends the ledger entry, and moves the balance by the same delta.
// Callers that bundle ledger writes with other state (checkout, return)
// share this inside their own transaction.
//
// Policy: checkout_hold debits may not push the balance negative; penalty
// and adjustment debits may.
func appendLedgerEntry(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, deltaCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID, now time.Time) (*models.DepositTransaction, uuid.UUID, error) {
	var balance int64
	var customerID uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT balance_cents, customer_id
		FROM deposit_accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID).Scan(&balance, &customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, uuid.Nil, common.NotFoundf("account %s", accountID)
	}
	if err != nil {
		return nil, uuid.Nil, err
	}

	if deltaCents < 0 && reason == models.ReasonCheckoutHold && balance+deltaCents < 0 {
		return nil, uuid.Nil, &common.InsufficientFunds{
			AccountID:    accountID.String(),
			BalanceCents: balance,
			DebitCents:   -deltaCents,
		}
	}

	entry := &models.DepositTransaction{
		AccountID:  accountID,
		DeltaCents: deltaCents,
		Reason:     reason,
		RefType:    refType,
		RefID:      refID,
		CreatedAt:  now,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO deposit_transactions (account_id, delta_cents, reason, ref_type, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING tx_id
	`, accountID, deltaCents, reason, refType, refID, now).Scan(&entry.TxID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE deposit_accounts
		SET balance_cents = balance_cents + $1
		WHERE id = $2
	`, deltaCents, accountID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	return entry, customerID, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, accountID uuid.UUID) (int64, int64, error) {
	var balance, ledger int64
	err := s.db.QueryRow(ctx, `
		SELECT a.balance_cents,
		       COALESCE((SELECT SUM(t.delta_cents) FROM deposit_transactions t WHERE t.account_id = a.id), 0)
		FROM deposit_accounts a
		WHERE a.id = $1
	`, accountID).Scan(&balance, &ledger)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, common.NotFoundf("account %s", accountID)
	}
	if err != nil {
		return 0, 0, err
	}

	if balance != ledger {
		return balance, ledger, &common.LedgerCorruption{
			AccountID:    accountID.String(),
			BalanceCents: balance,
			LedgerCents:  ledger,
		}
	}
	return balance, ledger, nil
}

func (s *ledgerService) GetAccountByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DepositAccount, error) {
	return s.accountRepo.GetByCustomer(ctx, customerID)
}

func (s *ledgerService) Statement(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.DepositTransaction, error) {
	return s.accountRepo.ListTransactions(ctx, accountID, limit, offset)
}

func (s *ledgerService) Balances(ctx context.Context, limit, offset int) ([]*models.BalanceRow, error) {
	return s.accountRepo.Balances(ctx, limit, offset)
}

func (s *ledgerService) CustomerBalance(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error) {
	if s.cacheSvc != nil {
		if row, err := s.cacheSvc.GetBalance(ctx, customerID); err == nil && row != nil {
			return row, nil
		}
	}

	row, err := s.accountRepo.BalanceByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.SetBalance(ctx, row, balanceCacheTTL)
	}
	return row, nil
}
