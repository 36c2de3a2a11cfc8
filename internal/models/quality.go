package models

import (
	"time"

	"github.com/google/uuid"
)

// InspectionResult is the closed set of inspection outcomes.
type InspectionResult string

const (
	ResultPass InspectionResult = "pass"
	ResultFail InspectionResult = "fail"
)

func (r InspectionResult) Valid() bool {
	return r == ResultPass || r == ResultFail
}

// ContaminationKind is the closed set of contamination categories.
type ContaminationKind string

const (
	ContaminationMicrobial     ContaminationKind = "microbial"
	ContaminationChemical      ContaminationKind = "chemical"
	ContaminationForeignMatter ContaminationKind = "foreign_matter"
)

func (k ContaminationKind) Valid() bool {
	switch k {
	case ContaminationMicrobial, ContaminationChemical, ContaminationForeignMatter:
		return true
	}
	return false
}

// WashCycle is one hub wash batch. EndedAt is nil while in progress; a
// completed cycle is never reopened.
type WashCycle struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	HubID        uuid.UUID  `json:"hub_id" db:"hub_id"`
	BatchCode    string     `json:"batch_code" db:"batch_code"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	TemperatureC *float64   `json:"temperature_c,omitempty" db:"temperature_c"`
	Detergent    *string    `json:"detergent,omitempty" db:"detergent"`
}

// Open reports whether the cycle is still in progress.
func (w *WashCycle) Open() bool {
	return w.EndedAt == nil
}

type Inspection struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	InstanceID uuid.UUID        `json:"instance_id" db:"instance_id"`
	CycleID    *uuid.UUID       `json:"cycle_id,omitempty" db:"cycle_id"`
	Inspector  string           `json:"inspector" db:"inspector"`
	Result     InspectionResult `json:"result" db:"result"`
	Notes      *string          `json:"notes,omitempty" db:"notes"`
	PhotoKey   *string          `json:"photo_key,omitempty" db:"photo_key"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// ContaminationIncident severity runs 1 (minor) to 5 (critical).
type ContaminationIncident struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	InstanceID  uuid.UUID         `json:"instance_id" db:"instance_id"`
	Kind        ContaminationKind `json:"kind" db:"kind"`
	Severity    int               `json:"severity" db:"severity"`
	Description *string           `json:"description,omitempty" db:"description"`
	OccurredAt  time.Time         `json:"occurred_at" db:"occurred_at"`
}
