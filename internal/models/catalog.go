package models

import (
	"time"

	"github.com/google/uuid"
)

// PackagingKind is the closed set of packaging form factors.
type PackagingKind string

const (
	PackagingCup PackagingKind = "cup"
	PackagingBox PackagingKind = "box"
	PackagingJar PackagingKind = "jar"
)

func (k PackagingKind) Valid() bool {
	switch k {
	case PackagingCup, PackagingBox, PackagingJar:
		return true
	}
	return false
}

// CatalogEntry is a packaging type (SKU) shared by many physical instances.
// The deposit amount charged on checkout is defined here, in minor currency
// units.
type CatalogEntry struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	SKU                string        `json:"sku" db:"sku"`
	Kind               PackagingKind `json:"kind" db:"kind"`
	Material           string        `json:"material" db:"material"`
	CapacityML         *int          `json:"capacity_ml,omitempty" db:"capacity_ml"`
	DepositAmountCents int64         `json:"deposit_amount_cents" db:"deposit_amount_cents"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
}
