package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB is a free-form payload stored as jsonb.
type JSONB map[string]interface{}

// AuditLog is a free-form event record. It carries no foreign keys so that
// history survives deletion of the entities it describes; entity_type and
// entity_id are an untyped weak back-reference, never an ownership edge.
type AuditLog struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	EventType  string    `json:"event_type" db:"event_type"`
	Detail     JSONB     `json:"detail,omitempty" db:"detail"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// AuditLogFilters represents filters for querying audit logs.
type AuditLogFilters struct {
	EntityType *string    `json:"entity_type,omitempty"`
	EntityID   *string    `json:"entity_id,omitempty"`
	EventType  *string    `json:"event_type,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
