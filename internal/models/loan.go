package models

import (
	"time"

	"github.com/google/uuid"
)

// Checkout links one instance, one retailer and one customer. An instance
// has at most one open checkout (closed = false) at a time.
type Checkout struct {
	ID           uuid.UUID `json:"id" db:"id"`
	InstanceID   uuid.UUID `json:"instance_id" db:"instance_id"`
	RetailerID   uuid.UUID `json:"retailer_id" db:"retailer_id"`
	CustomerID   uuid.UUID `json:"customer_id" db:"customer_id"`
	CheckoutTime time.Time `json:"checkout_time" db:"checkout_time"`
	DueBackDays  int       `json:"due_back_days" db:"due_back_days"`
	Closed       bool      `json:"closed" db:"closed"`
}

// DueAt is the instant the loan becomes overdue.
func (c *Checkout) DueAt() time.Time {
	return c.CheckoutTime.Add(time.Duration(c.DueBackDays) * 24 * time.Hour)
}

// Return records an instance coming back to a retailer or dropbox.
// Customer and checkout are optional: anonymous dropbox returns and returns
// of instances with no open loan are both allowed.
type Return struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	InstanceID uuid.UUID  `json:"instance_id" db:"instance_id"`
	LocationID uuid.UUID  `json:"location_id" db:"location_id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	CheckoutID *uuid.UUID `json:"checkout_id,omitempty" db:"checkout_id"`
	ReturnedAt time.Time  `json:"returned_at" db:"returned_at"`
}

// OverdueCheckout is a checkout past its due date with no matching return.
type OverdueCheckout struct {
	Checkout
	DaysOverdue int `json:"days_overdue"`
}
