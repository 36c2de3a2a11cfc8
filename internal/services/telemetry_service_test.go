package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packloop/internal/common"
	"packloop/internal/models"
)

type stubMovementRepo struct {
	created []*models.Movement
	latest  []*models.Movement
	last    *models.LastLocation
}

func (s *stubMovementRepo) Create(ctx context.Context, movement *models.Movement) error {
	movement.MvID = int64(len(s.created) + 1)
	s.created = append(s.created, movement)
	return nil
}
func (s *stubMovementRepo) ListByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Movement, error) {
	return s.created, nil
}
func (s *stubMovementRepo) Latest(ctx context.Context, instanceID uuid.UUID, n int) ([]*models.Movement, error) {
	if len(s.latest) > n {
		return s.latest[:n], nil
	}
	return s.latest, nil
}
func (s *stubMovementRepo) LastLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error) {
	if s.last == nil {
		return nil, common.NotFoundf("no movements for instance %s", instanceID)
	}
	return s.last, nil
}
func (s *stubMovementRepo) AllLastLocations(ctx context.Context) ([]*models.LastLocation, error) {
	if s.last == nil {
		return nil, nil
	}
	return []*models.LastLocation{s.last}, nil
}

type stubSensorRepo struct {
	created []*models.SensorReading
}

func (s *stubSensorRepo) Create(ctx context.Context, reading *models.SensorReading) error {
	reading.ReadingID = int64(len(s.created) + 1)
	s.created = append(s.created, reading)
	return nil
}
func (s *stubSensorRepo) Search(ctx context.Context, filter *models.SensorFilter) ([]*models.SensorReading, error) {
	return s.created, nil
}

type stubInstanceRepo struct {
	instances map[uuid.UUID]*models.Instance
}

func (s *stubInstanceRepo) Create(ctx context.Context, instance *models.Instance) error { return nil }
func (s *stubInstanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Instance, error) {
	if inst, ok := s.instances[id]; ok {
		return inst, nil
	}
	return nil, common.NotFoundf("instance %s", id)
}
func (s *stubInstanceRepo) GetByUIDCode(ctx context.Context, uidCode string) (*models.Instance, error) {
	return nil, common.NotFoundf("instance %s", uidCode)
}
func (s *stubInstanceRepo) List(ctx context.Context, filter *models.InstanceFilter) ([]*models.Instance, error) {
	return nil, nil
}
func (s *stubInstanceRepo) UpdateState(ctx context.Context, id uuid.UUID, state models.InstanceState, retiredAt *time.Time) error {
	return nil
}
func (s *stubInstanceRepo) CountByState(ctx context.Context) (map[models.InstanceState]int, error) {
	return nil, nil
}

type telemetryFixture struct {
	movements *stubMovementRepo
	sensors   *stubSensorRepo
	instances *stubInstanceRepo
	locations *stubLocationRepo
	clock     *clockwork.FakeClock
	svc       TelemetryService

	instanceID uuid.UUID
	locationID uuid.UUID
}

func newTelemetryFixture(t *testing.T) *telemetryFixture {
	t.Helper()
	f := &telemetryFixture{
		movements:  &stubMovementRepo{},
		sensors:    &stubSensorRepo{},
		instances:  &stubInstanceRepo{instances: map[uuid.UUID]*models.Instance{}},
		locations:  &stubLocationRepo{},
		clock:      clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		instanceID: uuid.New(),
		locationID: uuid.New(),
	}
	f.instances.instances[f.instanceID] = &models.Instance{ID: f.instanceID, State: models.StateInUse}
	f.locations.loc = &models.Location{ID: f.locationID, Name: "Corner Shop", Kind: models.LocationRetailer}
	f.svc = NewTelemetryService(f.movements, f.sensors, f.instances, f.locations, nil, nil, f.clock)
	return f
}

func TestRecordMovement_AppendedDespiteOriginMismatch(t *testing.T) {
	f := newTelemetryFixture(t)
	elsewhere := uuid.New()
	f.movements.last = &models.LastLocation{
		InstanceID: f.instanceID,
		LocationID: &elsewhere,
		MovedAt:    f.clock.Now().UTC().Add(-time.Hour),
	}

	movement, err := f.svc.RecordMovement(context.Background(), f.instanceID, &f.locationID, nil, time.Time{}, nil)
	require.NoError(t, err)
	assert.Len(t, f.movements.created, 1)
	assert.Equal(t, f.locationID, *movement.FromLocID)
}

func TestRecordMovement_ZeroMovedAtDefaultsToNow(t *testing.T) {
	f := newTelemetryFixture(t)

	movement, err := f.svc.RecordMovement(context.Background(), f.instanceID, nil, &f.locationID, time.Time{}, nil)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().UTC(), movement.MovedAt)
}

func TestRecordMovement_UnknownInstanceRejected(t *testing.T) {
	f := newTelemetryFixture(t)

	_, err := f.svc.RecordMovement(context.Background(), uuid.New(), nil, &f.locationID, time.Time{}, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, f.movements.created)
}

func TestLastKnownLocation_NeverMoved(t *testing.T) {
	f := newTelemetryFixture(t)

	last, err := f.svc.LastKnownLocation(context.Background(), f.instanceID)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestLastKnownLocation_UnknownInstance(t *testing.T) {
	f := newTelemetryFixture(t)

	_, err := f.svc.LastKnownLocation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDwellTime_RequiresTwoMovements(t *testing.T) {
	f := newTelemetryFixture(t)
	now := f.clock.Now().UTC()
	f.movements.latest = []*models.Movement{
		{InstanceID: f.instanceID, MovedAt: now},
	}

	_, ok, err := f.svc.DwellTime(context.Background(), f.instanceID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDwellTime_BetweenLatestTwoMovements(t *testing.T) {
	f := newTelemetryFixture(t)
	now := f.clock.Now().UTC()
	f.movements.latest = []*models.Movement{
		{InstanceID: f.instanceID, MovedAt: now},
		{InstanceID: f.instanceID, MovedAt: now.Add(-90 * time.Minute)},
	}

	dwell, ok, err := f.svc.DwellTime(context.Background(), f.instanceID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, dwell)
}

func TestRecordSensorReading_UnknownTypeRejected(t *testing.T) {
	f := newTelemetryFixture(t)

	_, err := f.svc.RecordSensorReading(context.Background(), &f.instanceID, nil, models.SensorType("tilt"), 1.0, time.Time{}, "http")
	var validation *common.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "sensor_type", validation.Field)
	assert.Empty(t, f.sensors.created)
}

func TestRecordSensorReading_DefaultsRecordedAt(t *testing.T) {
	f := newTelemetryFixture(t)

	reading, err := f.svc.RecordSensorReading(context.Background(), &f.instanceID, &f.locationID, models.SensorTemperature, 4.5, time.Time{}, "mqtt")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().UTC(), reading.RecordedAt)
	assert.Len(t, f.sensors.created, 1)
}
