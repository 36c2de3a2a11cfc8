package models

import (
	"time"

	"github.com/google/uuid"
)

// SensorType is the closed set of telemetry channels.
type SensorType string

const (
	SensorTemperature SensorType = "temperature"
	SensorShock       SensorType = "shock"
	SensorHumidity    SensorType = "humidity"
)

func (t SensorType) Valid() bool {
	switch t {
	case SensorTemperature, SensorShock, SensorHumidity:
		return true
	}
	return false
}

// SensorReading is pure telemetry, never updated. Instance and location are
// both optional; a reading may be tied to either, both, or neither.
type SensorReading struct {
	ReadingID  int64      `json:"reading_id" db:"reading_id"`
	InstanceID *uuid.UUID `json:"instance_id,omitempty" db:"instance_id"`
	LocationID *uuid.UUID `json:"location_id,omitempty" db:"location_id"`
	SensorType SensorType `json:"sensor_type" db:"sensor_type"`
	Value      float64    `json:"value" db:"value"`
	RecordedAt time.Time  `json:"recorded_at" db:"recorded_at"`
}

// SensorFilter holds filter criteria for reading queries.
type SensorFilter struct {
	InstanceID *uuid.UUID  `json:"instance_id,omitempty"`
	LocationID *uuid.UUID  `json:"location_id,omitempty"`
	SensorType *SensorType `json:"sensor_type,omitempty"`
	From       *time.Time  `json:"from,omitempty"`
	To         *time.Time  `json:"to,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}

// Movement is one chain-of-custody record. Nil from/to mean origin unknown
// and destination unknown respectively. The ordered sequence per instance,
// by (moved_at, mv_id), is that instance's location history.
type Movement struct {
	MvID       int64      `json:"mv_id" db:"mv_id"`
	InstanceID uuid.UUID  `json:"instance_id" db:"instance_id"`
	FromLocID  *uuid.UUID `json:"from_loc_id,omitempty" db:"from_loc_id"`
	ToLocID    *uuid.UUID `json:"to_loc_id,omitempty" db:"to_loc_id"`
	MovedAt    time.Time  `json:"moved_at" db:"moved_at"`
	Note       *string    `json:"note,omitempty" db:"note"`
}

// LastLocation is one row of the instance_last_location view.
type LastLocation struct {
	InstanceID uuid.UUID  `json:"instance_id" db:"instance_id"`
	LocationID *uuid.UUID `json:"location_id" db:"location_id"`
	MovedAt    time.Time  `json:"moved_at" db:"moved_at"`
}
