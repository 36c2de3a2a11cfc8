package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionReason is the closed set of ledger entry reasons.
type TransactionReason string

const (
	ReasonCheckoutHold  TransactionReason = "checkout_hold"
	ReasonReturnRelease TransactionReason = "return_release"
	ReasonPenalty       TransactionReason = "penalty"
	ReasonAdjustment    TransactionReason = "adjustment"
)

func (r TransactionReason) Valid() bool {
	switch r {
	case ReasonCheckoutHold, ReasonReturnRelease, ReasonPenalty, ReasonAdjustment:
		return true
	}
	return false
}

// DepositAccount holds one customer's balance in integer cents. The balance
// must equal the sum of the account's transaction deltas at all times.
type DepositAccount struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CustomerID   uuid.UUID `json:"customer_id" db:"customer_id"`
	BalanceCents int64     `json:"balance_cents" db:"balance_cents"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DepositTransaction is one immutable ledger entry. Entries are never
// updated or deleted after insertion.
type DepositTransaction struct {
	TxID       int64             `json:"tx_id" db:"tx_id"`
	AccountID  uuid.UUID         `json:"account_id" db:"account_id"`
	DeltaCents int64             `json:"delta_cents" db:"delta_cents"`
	Reason     TransactionReason `json:"reason" db:"reason"`
	RefType    *string           `json:"ref_type,omitempty" db:"ref_type"`
	RefID      *uuid.UUID        `json:"ref_id,omitempty" db:"ref_id"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// BalanceRow is one row of the customer_balances view: the stored balance
// alongside the independently recomputed ledger sum, for drift detection.
type BalanceRow struct {
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	Name       string    `json:"name" db:"name"`
	Balance    int64     `json:"balance" db:"balance"`
	LedgerSum  int64     `json:"ledger_sum" db:"ledger_sum"`
}
