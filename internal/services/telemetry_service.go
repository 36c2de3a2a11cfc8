package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"packloop/internal/caching"
	"packloop/internal/common"
	"packloop/internal/metrics"
	"packloop/internal/models"
	"packloop/internal/repositories"
)

const lastLocationTTL = 5 * time.Minute

// TelemetryService ingests movements and sensor readings. Both streams are
// append-only: a movement whose origin disagrees with the recorded last
// location is still stored, the mismatch is only logged and counted.
type TelemetryService interface {
	// RecordMovement appends a chain-of-custody record. A movement into a
	// hub-kind location additionally tries to move the instance to at_hub;
	// a failure there never rejects the movement itself.
	RecordMovement(ctx context.Context, instanceID uuid.UUID, fromLocID, toLocID *uuid.UUID, movedAt time.Time, note *string) (*models.Movement, error)

	// LastKnownLocation returns the latest movement destination, or nil
	// when the instance has never moved.
	LastKnownLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error)

	// DwellTime reports how long the instance sat at its current location
	// before its latest movement. ok is false with fewer than two movements.
	DwellTime(ctx context.Context, instanceID uuid.UUID) (time.Duration, bool, error)

	// RecordSensorReading appends one reading. Zero recordedAt means now.
	// source labels the ingest path for metrics, e.g. "http" or "mqtt".
	RecordSensorReading(ctx context.Context, instanceID, locationID *uuid.UUID, sensorType models.SensorType, value float64, recordedAt time.Time, source string) (*models.SensorReading, error)

	SearchReadings(ctx context.Context, filter *models.SensorFilter) ([]*models.SensorReading, error)
	MovementHistory(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Movement, error)
}

type telemetryService struct {
	movementRepo repositories.MovementRepository
	sensorRepo   repositories.SensorRepository
	instanceRepo repositories.InstanceRepository
	locationRepo repositories.LocationRepository
	instanceSvc  InstanceService
	cacheSvc     caching.CacheService
	clock        clockwork.Clock
}

func NewTelemetryService(movementRepo repositories.MovementRepository, sensorRepo repositories.SensorRepository, instanceRepo repositories.InstanceRepository, locationRepo repositories.LocationRepository, instanceSvc InstanceService, cacheSvc caching.CacheService, clock clockwork.Clock) TelemetryService {
	return &telemetryService{
		movementRepo: movementRepo,
		sensorRepo:   sensorRepo,
		instanceRepo: instanceRepo,
		locationRepo: locationRepo,
		instanceSvc:  instanceSvc,
		cacheSvc:     cacheSvc,
		clock:        clock,
	}
}

func (s *telemetryService) RecordMovement(ctx context.Context, instanceID uuid.UUID, fromLocID, toLocID *uuid.UUID, movedAt time.Time, note *string) (*models.Movement, error) {
	if _, err := s.instanceRepo.GetByID(ctx, instanceID); err != nil {
		return nil, err
	}
	var toLocation *models.Location
	if toLocID != nil {
		loc, err := s.locationRepo.GetByID(ctx, *toLocID)
		if err != nil {
			return nil, err
		}
		toLocation = loc
	}
	if fromLocID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *fromLocID); err != nil {
			return nil, err
		}
	}
	if movedAt.IsZero() {
		movedAt = s.clock.Now().UTC()
	}

	// Advisory check only: telemetry arrives late and out of order, so a
	// from/last-location disagreement is noted, never rejected.
	if fromLocID != nil {
		last, err := s.movementRepo.LastLocation(ctx, instanceID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if last != nil && last.LocationID != nil && *last.LocationID != *fromLocID {
			metrics.MovementFromMismatch.Inc()
			log.Printf("movement for instance %s: origin %s disagrees with last known location %s", instanceID, *fromLocID, *last.LocationID)
		}
	}

	movement := &models.Movement{
		InstanceID: instanceID,
		FromLocID:  fromLocID,
		ToLocID:    toLocID,
		MovedAt:    movedAt,
		Note:       note,
	}
	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, err
	}

	// Arrival at a hub implies the instance is back in circulation control.
	// State feedback is best effort; a conflicting state stays untouched.
	if toLocation != nil && toLocation.Kind == models.LocationHub && s.instanceSvc != nil {
		if _, err := s.instanceSvc.Transition(ctx, instanceID, models.StateAtHub, "movement_to_hub"); err != nil {
			var invalid *common.InvalidStateTransition
			if !errors.As(err, &invalid) {
				log.Printf("movement for instance %s: hub arrival transition failed: %v", instanceID, err)
			}
		}
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.SetLastLocation(ctx, &models.LastLocation{
			InstanceID: instanceID,
			LocationID: toLocID,
			MovedAt:    movedAt,
		}, lastLocationTTL)
	}
	return movement, nil
}

func (s *telemetryService) LastKnownLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error) {
	if s.cacheSvc != nil {
		if last, err := s.cacheSvc.GetLastLocation(ctx, instanceID); err == nil && last != nil {
			return last, nil
		}
	}

	last, err := s.movementRepo.LastLocation(ctx, instanceID)
	if errors.Is(err, common.ErrNotFound) {
		// Never moved; distinct from the instance not existing.
		if _, lookupErr := s.instanceRepo.GetByID(ctx, instanceID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.SetLastLocation(ctx, last, lastLocationTTL)
	}
	return last, nil
}

func (s *telemetryService) DwellTime(ctx context.Context, instanceID uuid.UUID) (time.Duration, bool, error) {
	latest, err := s.movementRepo.Latest(ctx, instanceID, 2)
	if err != nil {
		return 0, false, err
	}
	if len(latest) < 2 {
		return 0, false, nil
	}
	return latest[0].MovedAt.Sub(latest[1].MovedAt), true, nil
}

func (s *telemetryService) RecordSensorReading(ctx context.Context, instanceID, locationID *uuid.UUID, sensorType models.SensorType, value float64, recordedAt time.Time, source string) (*models.SensorReading, error) {
	if !sensorType.Valid() {
		return nil, common.NewValidationError("sensor_type", "unknown sensor type")
	}
	if instanceID != nil {
		if _, err := s.instanceRepo.GetByID(ctx, *instanceID); err != nil {
			return nil, err
		}
	}
	if locationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *locationID); err != nil {
			return nil, err
		}
	}
	if recordedAt.IsZero() {
		recordedAt = s.clock.Now().UTC()
	}

	reading := &models.SensorReading{
		InstanceID: instanceID,
		LocationID: locationID,
		SensorType: sensorType,
		Value:      value,
		RecordedAt: recordedAt,
	}
	if err := s.sensorRepo.Create(ctx, reading); err != nil {
		return nil, err
	}
	metrics.SensorReadingsIngested.WithLabelValues(source).Inc()
	return reading, nil
}

func (s *telemetryService) SearchReadings(ctx context.Context, filter *models.SensorFilter) ([]*models.SensorReading, error) {
	if filter == nil {
		filter = &models.SensorFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	return s.sensorRepo.Search(ctx, filter)
}

func (s *telemetryService) MovementHistory(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Movement, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.movementRepo.ListByInstance(ctx, instanceID, limit, offset)
}
