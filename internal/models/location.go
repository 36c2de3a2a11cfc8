package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationKind is the closed set of physical site kinds.
type LocationKind string

const (
	LocationRetailer LocationKind = "retailer"
	LocationHub      LocationKind = "hub"
	LocationDropbox  LocationKind = "dropbox"
)

// Valid reports whether k is a known location kind.
func (k LocationKind) Valid() bool {
	switch k {
	case LocationRetailer, LocationHub, LocationDropbox:
		return true
	}
	return false
}

type Location struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Kind      LocationKind `json:"kind" db:"kind"`
	Address   *string      `json:"address,omitempty" db:"address"`
	Latitude  *float64     `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64     `json:"longitude,omitempty" db:"longitude"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// Retailer wraps exactly one location of kind retailer.
type Retailer struct {
	ID         uuid.UUID `json:"id" db:"id"`
	LocationID uuid.UUID `json:"location_id" db:"location_id"`
	Name       string    `json:"name" db:"name"`
	Contact    *string   `json:"contact,omitempty" db:"contact"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Hub wraps exactly one location of kind hub.
type Hub struct {
	ID         uuid.UUID `json:"id" db:"id"`
	LocationID uuid.UUID `json:"location_id" db:"location_id"`
	Name       string    `json:"name" db:"name"`
	Capacity   *int      `json:"capacity,omitempty" db:"capacity"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
