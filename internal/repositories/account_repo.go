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

type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.DepositAccount, error)
	GetByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DepositAccount, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.DepositTransaction, error)
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)
	Balances(ctx context.Context, limit, offset int) ([]*models.BalanceRow, error)
	BalanceByCustomer(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error)
}

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DepositAccount, error) {
	account := &models.DepositAccount{}
	query := `
		SELECT id, customer_id, balance_cents, created_at
		FROM deposit_accounts
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&account.ID, &account.CustomerID, &account.BalanceCents, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("account %s", id)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepo) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DepositAccount, error) {
	account := &models.DepositAccount{}
	query := `
		SELECT id, customer_id, balance_cents, created_at
		FROM deposit_accounts
		WHERE customer_id = $1
	`
	err := r.db.QueryRow(ctx, query, customerID).Scan(&account.ID, &account.CustomerID, &account.BalanceCents, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("account for customer %s", customerID)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepo) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.DepositTransaction, error) {
	query := `
		SELECT tx_id, account_id, delta_cents, reason, ref_type, ref_id, created_at
		FROM deposit_transactions
		WHERE account_id = $1
		ORDER BY tx_id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*models.DepositTransaction
	for rows.Next() {
		tx := &models.DepositTransaction{}
		if err := rows.Scan(&tx.TxID, &tx.AccountID, &tx.DeltaCents, &tx.Reason, &tx.RefType, &tx.RefID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *accountRepo) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM deposit_accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Balances reads the customer_balances view: stored balance next to the
// independently recomputed ledger sum.
func (r *accountRepo) Balances(ctx context.Context, limit, offset int) ([]*models.BalanceRow, error) {
	query := `
		SELECT customer_id, name, balance, ledger_sum
		FROM customer_balances
		ORDER BY name
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.BalanceRow
	for rows.Next() {
		row := &models.BalanceRow{}
		if err := rows.Scan(&row.CustomerID, &row.Name, &row.Balance, &row.LedgerSum); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *accountRepo) BalanceByCustomer(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error) {
	row := &models.BalanceRow{}
	query := `
		SELECT customer_id, name, balance, ledger_sum
		FROM customer_balances
		WHERE customer_id = $1
	`
	err := r.db.QueryRow(ctx, query, customerID).Scan(&row.CustomerID, &row.Name, &row.Balance, &row.LedgerSum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("balance for customer %s", customerID)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}
